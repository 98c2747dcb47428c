package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"vigil/internal/ipc"
	"vigil/internal/journal"
	"vigil/internal/task"
)

func newSessionsCommand(ctx *commandContext) *cobra.Command {
	var listStatuses []string
	var listLimit int
	var asJSON bool

	sessionsCmd := &cobra.Command{
		Use:   "sessions",
		Short: "List recorded watch sessions",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withJournal(func(client *ipc.Client, store *journal.Store) error {
				var sessions []ipc.Session
				if client != nil {
					resp, err := client.Sessions(listStatuses, listLimit)
					if err != nil {
						return err
					}
					sessions = resp.Sessions
				} else {
					attempts, err := listAttempts(cmd, store, listStatuses, listLimit)
					if err != nil {
						return err
					}
					sessions = make([]ipc.Session, 0, len(attempts))
					for _, attempt := range attempts {
						if attempt == nil {
							continue
						}
						sessions = append(sessions, ipc.FromAttempt(attempt))
					}
				}

				if asJSON {
					return writeJSON(cmd, map[string]any{"sessions": sessions})
				}
				if len(sessions) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No watch sessions recorded")
					return nil
				}
				table := renderTable(
					[]string{"ID", "Task", "Room", "Status", "Progress", "Started", "Finished"},
					buildSessionRows(sessions),
					[]columnAlignment{alignRight, alignRight, alignLeft, alignLeft, alignRight, alignLeft, alignLeft},
				)
				fmt.Fprint(cmd.OutOrStdout(), table)
				return nil
			})
		},
	}

	sessionsCmd.Flags().StringSliceVarP(&listStatuses, "status", "s", nil, "Filter by session status (repeatable)")
	sessionsCmd.Flags().IntVar(&listLimit, "limit", 20, "Maximum sessions to list when no status filter is set")
	sessionsCmd.Flags().BoolVar(&asJSON, "json", false, "Emit JSON instead of a table")

	sessionsCmd.AddCommand(newSessionsClearCommand(ctx))
	return sessionsCmd
}

// listAttempts mirrors the daemon-side session listing for offline use.
func listAttempts(cmd *cobra.Command, store *journal.Store, statusFilters []string, limit int) ([]*journal.Attempt, error) {
	statuses := make([]task.Status, 0, len(statusFilters))
	for _, raw := range statusFilters {
		status, err := task.ParseStatus(raw)
		if err != nil {
			continue
		}
		statuses = append(statuses, status)
	}
	if len(statuses) > 0 {
		return store.List(cmd.Context(), statuses...)
	}
	return store.Latest(cmd.Context(), limit)
}

func newSessionsClearCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove all recorded watch sessions",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withJournal(func(client *ipc.Client, store *journal.Store) error {
				var removed int64
				if client != nil {
					resp, err := client.ClearSessions()
					if err != nil {
						return err
					}
					removed = resp.Removed
				} else {
					var err error
					removed, err = store.Clear(cmd.Context())
					if err != nil {
						return err
					}
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Cleared %d sessions\n", removed)
				return nil
			})
		},
	}
}
