package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"vigil/internal/ipc"
)

func buildAttemptStatsRows(stats ipc.AttemptStats) [][]string {
	if stats.Total == 0 {
		return nil
	}
	rows := make([][]string, 0, 4)
	appendRow := func(label string, count int) {
		if count == 0 {
			return
		}
		rows = append(rows, []string{label, fmt.Sprintf("%d", count)})
	}
	appendRow("Active", stats.Active)
	appendRow("Completed", stats.Completed)
	appendRow("Failed", stats.Failed)
	appendRow("Interrupted", stats.Interrupted)
	return rows
}

func buildSessionRows(sessions []ipc.Session) [][]string {
	if len(sessions) == 0 {
		return nil
	}
	rows := make([][]string, 0, len(sessions))
	for _, session := range sessions {
		rows = append(rows, []string{
			fmt.Sprintf("%d", session.ID),
			fmt.Sprintf("%d", session.TaskID),
			session.RoomID,
			formatSessionStatus(session),
			formatSessionProgress(session),
			formatDisplayTime(session.StartedAt),
			formatDisplayTime(session.FinishedAt),
		})
	}
	return rows
}

func formatSessionStatus(session ipc.Session) string {
	label := formatStatusLabel(session.Status)
	if session.Interrupted {
		label += " (interrupted)"
	}
	if reason := strings.TrimSpace(session.FailureReason); reason != "" {
		label += fmt.Sprintf(" [%s]", reason)
	}
	return label
}

func formatSessionProgress(session ipc.Session) string {
	percent := strconv.FormatFloat(session.ProgressPercent, 'f', -1, 64)
	return fmt.Sprintf("%d/%d (%s%%)", session.WatchedMinutes, session.TotalMinutes, percent)
}

func formatStatusLabel(status string) string {
	status = strings.TrimSpace(status)
	if status == "" {
		return ""
	}
	return cases.Title(language.Und).String(strings.ReplaceAll(status, "_", " "))
}

func formatDisplayTime(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return "-"
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t.UTC().Format("2006-01-02 15:04")
	}
	return value
}
