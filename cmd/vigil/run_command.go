package main

import (
	"strings"

	"github.com/spf13/cobra"

	"vigil/internal/daemonrun"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	var logLevel string
	var development bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the watch daemon in the foreground",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if ctx.socketFlag != nil {
				if socket := strings.TrimSpace(*ctx.socketFlag); socket != "" {
					cfg.Daemon.SocketPath = socket
				}
			}
			level := strings.TrimSpace(logLevel)
			if level == "" {
				level = cfg.Logging.Level
			}
			return daemonrun.Run(cmd.Context(), cfg, daemonrun.Options{
				LogLevel:    level,
				Development: development,
			})
		},
	}

	cmd.Flags().StringVar(&logLevel, "log-level", "", "Override the configured log level")
	cmd.Flags().BoolVar(&development, "dev", false, "Enable development logging output")
	return cmd
}
