package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"vigil/internal/daemonctl"
)

func newStopCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Stop the vigil daemon (completely terminates the process)",
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()
			result, err := daemonctl.StopAndTerminate(ctx.socketPath(), ctx.configValue(), 5*time.Second)
			if errors.Is(err, daemonctl.ErrDaemonNotRunning) {
				fmt.Fprintln(stdout, "Daemon is not running")
				return nil
			}
			if err != nil {
				return err
			}
			if !result.StopAcknowledged {
				fmt.Fprintln(stdout, "Stop request sent")
			} else {
				fmt.Fprintln(stdout, "Stopping watch agent...")
			}
			if result.ForcedKill && result.PID > 0 {
				fmt.Fprintf(stdout, "Stopping daemon process (pid %d)...\n", result.PID)
			}
			fmt.Fprintln(stdout, "Daemon stopped")
			return nil
		},
	}
}

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show agent and watch session status",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := ctx.configValue()
			statusResp, err := daemonctl.BuildStatusSnapshot(cmd.Context(), ctx.socketPath(), cfg)
			if err != nil {
				return err
			}

			stdout := cmd.OutOrStdout()
			colorize := shouldColorize(stdout)

			for _, line := range renderSectionHeader("Agent Status", colorize) {
				fmt.Fprintln(stdout, line)
			}
			if statusResp.Running {
				fmt.Fprintln(stdout, renderStatusLine("Vigil", statusOK, fmt.Sprintf("Running (pid %d)", statusResp.PID), colorize))
				if statusResp.TaskID > 0 {
					fmt.Fprintln(stdout, renderStatusLine("Task", statusInfo, fmt.Sprintf("%d (room %s)", statusResp.TaskID, statusResp.RoomID), colorize))
					if state := formatStatusLabel(statusResp.State); state != "" {
						fmt.Fprintln(stdout, renderStatusLine("State", statusInfo, state, colorize))
					}
					percent := strconv.FormatFloat(statusResp.Percent, 'f', -1, 64)
					fmt.Fprintln(stdout, renderStatusLine("Progress", statusInfo, fmt.Sprintf("%d/%d minutes (%s%%)", statusResp.WatchedMinutes, statusResp.TotalMinutes, percent), colorize))
				} else {
					fmt.Fprintln(stdout, renderStatusLine("Task", statusInfo, "Idle (waiting for assignment)", colorize))
				}
			} else {
				fmt.Fprintln(stdout, renderStatusLine("Vigil", statusWarn, "Not running (start with `vigil run`)", colorize))
			}
			if cfg != nil {
				fmt.Fprintln(stdout, renderStatusLine("Control", statusInfo, cfg.Control.BaseURL, colorize))
				if strings.TrimSpace(cfg.Notifications.NtfyTopic) != "" {
					fmt.Fprintln(stdout, renderStatusLine("Notifications", statusOK, "Configured", colorize))
				} else {
					fmt.Fprintln(stdout, renderStatusLine("Notifications", statusWarn, "Not configured", colorize))
				}
			}
			fmt.Fprintln(stdout)

			for _, line := range renderSectionHeader("Watch Sessions", colorize) {
				fmt.Fprintln(stdout, line)
			}
			rows := buildAttemptStatsRows(statusResp.Attempts)
			if len(rows) == 0 {
				fmt.Fprintln(stdout, "No watch sessions recorded")
				return nil
			}
			table := renderTable([]string{"Status", "Count"}, rows, []columnAlignment{alignLeft, alignRight})
			fmt.Fprint(stdout, table)
			return nil
		},
	}
}
