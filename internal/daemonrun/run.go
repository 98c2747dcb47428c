// Package daemonrun wires the full daemon process: logging, identity,
// journal, control client, browser factory, agent, and IPC server.
package daemonrun

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"vigil/internal/agent"
	"vigil/internal/config"
	"vigil/internal/control"
	"vigil/internal/daemon"
	"vigil/internal/daemonctl"
	"vigil/internal/identity"
	"vigil/internal/ipc"
	"vigil/internal/journal"
	"vigil/internal/logging"
	"vigil/internal/notifications"
	"vigil/internal/viewer"
)

// Options configures daemon process runtime behavior.
type Options struct {
	LogLevel    string
	Development bool
}

// Run starts the vigil daemon and blocks until a signal arrives or a
// stop request comes in over IPC.
func Run(cmdCtx context.Context, cfg *config.Config, opts Options) error {
	if cfg == nil {
		return fmt.Errorf("config is required")
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return fmt.Errorf("prepare state directories: %w", err)
	}

	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	runID := time.Now().UTC().Format("20060102T150405.000Z")
	logPath := filepath.Join(cfg.Paths.LogDir, fmt.Sprintf("vigil-%s.log", runID))
	logger, err := logging.New(logging.Options{
		Level:            opts.LogLevel,
		Format:           cfg.Logging.Format,
		OutputPaths:      []string{"stdout", logPath},
		ErrorOutputPaths: []string{"stderr", logPath},
		Development:      opts.Development,
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	if err := ensureCurrentLogPointer(cfg.Paths.LogDir, logPath); err != nil {
		fmt.Fprintf(os.Stderr, "warn: unable to update vigil.log link: %v\n", err)
	}
	retention := time.Duration(cfg.Logging.RetentionDays) * 24 * time.Hour
	if err := logging.CleanupOldLogs([]logging.RetentionTarget{
		{Dir: cfg.Paths.LogDir, Prefix: "vigil-", Suffix: ".log", MaxAge: retention},
		{Dir: cfg.Paths.SnapshotDir, Prefix: "task_", Suffix: ".png", MaxAge: retention},
	}, time.Now()); err != nil {
		logger.Warn("log retention sweep incomplete", logging.Error(err))
	}

	pidPath := filepath.Join(cfg.Paths.LogDir, daemonctl.PIDFileName)
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	defer os.Remove(pidPath)

	identityStore := identity.NewStore(cfg.Paths.IdentityPath)
	record, ephemeral, err := identityStore.Ensure()
	if err != nil {
		logger.Error("prepare client identity", logging.Error(err))
		return err
	}
	if ephemeral {
		logger.Warn("identity file unreadable, using ephemeral client id",
			logging.String("path", identityStore.Path()),
			logging.String("client_id", record.ClientID),
			logging.String(logging.FieldErrorHint, "repair or remove the file to get a stable id"),
		)
	}
	if strings.TrimSpace(cfg.Browser.ExecutablePath) == "" {
		cfg.Browser.ExecutablePath = record.ExecutableHint()
	}

	store, err := journal.Open(cfg)
	if err != nil {
		logger.Error("open journal store", logging.Error(err))
		return err
	}
	defer store.Close()

	logDependencySnapshot(logger, cfg, record.ClientID)

	notifier := notifications.NewService(cfg)
	controlClient := control.NewHTTPClient(cfg.Control.BaseURL, record.ClientID,
		time.Duration(cfg.Control.RequestTimeout)*time.Second, logger)
	factory := viewer.NewRodFactory(cfg, logger)
	watcher := agent.NewWithNotifier(cfg, store, logger, controlClient, factory, notifier)

	d, err := daemon.New(cfg, store, logger, watcher, logPath)
	if err != nil {
		return fmt.Errorf("create daemon: %w", err)
	}
	defer d.Close()

	ipcServer, err := ipc.NewServer(signalCtx, cfg.Daemon.SocketPath, d, logger, cancel)
	if err != nil {
		return fmt.Errorf("start IPC server: %w", err)
	}
	defer ipcServer.Close()
	ipcServer.Serve()

	if err := d.Start(signalCtx); err != nil {
		logger.Warn("daemon start failed",
			logging.Error(err),
			logging.String(logging.FieldEventType, "daemon_start_failed"),
			logging.String(logging.FieldErrorHint, "check configuration and journal database access"),
			logging.String(logging.FieldImpact, "watch tasks will not be fetched"),
		)
	} else if err := notifier.NotifyAgentStarted(signalCtx, record.ClientID); err != nil {
		logger.Debug("startup notification failed", logging.Error(err))
	}

	<-signalCtx.Done()
	logger.Info("vigil daemon shutting down")
	return nil
}

func ensureCurrentLogPointer(logDir, target string) error {
	if logDir == "" || target == "" {
		return nil
	}
	current := filepath.Join(logDir, "vigil.log")
	if err := os.Remove(current); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove existing log pointer: %w", err)
	}
	if err := os.Symlink(target, current); err == nil {
		return nil
	}
	if err := os.Link(target, current); err != nil {
		return fmt.Errorf("link log pointer: %w", err)
	}
	return nil
}

func writePIDFile(path string) error {
	if path == "" {
		return nil
	}
	value := strconv.Itoa(os.Getpid()) + "\n"
	return os.WriteFile(path, []byte(value), 0o644)
}

func logDependencySnapshot(logger *slog.Logger, cfg *config.Config, clientID string) {
	if logger == nil || cfg == nil {
		return
	}
	browser := strings.TrimSpace(cfg.Browser.ExecutablePath)
	logger.Info("dependency snapshot",
		logging.String(logging.FieldEventType, "dependency_snapshot"),
		logging.String("client_id", clientID),
		logging.Bool("browser_available", binaryAvailable(browser)),
		logging.String("browser_binary", browser),
		logging.String("control_url", cfg.Control.BaseURL),
		logging.Bool("ntfy_configured", strings.TrimSpace(cfg.Notifications.NtfyTopic) != ""),
	)
}

func binaryAvailable(name string) bool {
	if strings.TrimSpace(name) == "" {
		return false
	}
	_, err := exec.LookPath(name)
	return err == nil
}
