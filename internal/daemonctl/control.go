// Package daemonctl orchestrates daemon control from the CLI side:
// stop-with-termination fallback and status snapshots that work
// whether or not the daemon is running.
package daemonctl

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"vigil/internal/config"
	"vigil/internal/ipc"
	"vigil/internal/journal"
)

// ErrDaemonNotRunning indicates daemon IPC is unavailable.
var ErrDaemonNotRunning = errors.New("daemon not running")

// PIDFileName is the file the daemon writes its process id to, under
// the configured log directory.
const PIDFileName = "vigil.pid"

const probeInterval = 200 * time.Millisecond

// probe dials the daemon once. reachable=false with a nil error means
// the socket is gone or refusing connections.
func probe(socketPath string) (reachable, running bool, pid int, err error) {
	client, dialErr := ipc.Dial(socketPath)
	if dialErr != nil {
		if isDaemonUnavailable(dialErr) {
			return false, false, 0, nil
		}
		return false, false, 0, dialErr
	}
	defer client.Close()

	status, statusErr := client.Status()
	if statusErr != nil {
		return true, false, 0, statusErr
	}
	return true, status.Running, status.PID, nil
}

// WaitForShutdown waits for daemon IPC to disappear or report not-running.
func WaitForShutdown(socketPath string, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	var lastErr error
	for time.Now().Before(deadline) {
		reachable, running, _, err := probe(socketPath)
		switch {
		case err == nil && (!reachable || !running):
			return nil
		case err != nil:
			lastErr = err
		default:
			lastErr = errors.New("daemon still running")
		}
		time.Sleep(probeInterval)
	}
	if lastErr == nil {
		lastErr = errors.New("timeout waiting for shutdown")
	}
	return fmt.Errorf("daemon did not stop: %w", lastErr)
}

// ProcessInfo returns whether daemon IPC is reachable and the daemon PID when available.
func ProcessInfo(socketPath string) (bool, int, error) {
	reachable, _, pid, err := probe(socketPath)
	return reachable, pid, err
}

// readPIDFile parses the daemon pid file. A missing file or garbage
// content reports ok=false without an error.
func readPIDFile(path string) (pid int, ok bool, err error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("read daemon pid file %q: %w", path, err)
	}
	pid, convErr := strconv.Atoi(strings.TrimSpace(string(data)))
	if convErr != nil || pid <= 0 {
		return 0, false, nil
	}
	return pid, true, nil
}

// ForceKillProcess sends SIGKILL to the daemon process and cleans pid/lock files.
func ForceKillProcess(pidPath, lockPath string, fallbackPID int) (int, error) {
	pid, ok, err := readPIDFile(pidPath)
	if err != nil {
		return 0, err
	}
	if !ok {
		pid = fallbackPID
	}
	if pid <= 0 {
		return 0, fmt.Errorf("unable to determine daemon pid (pid file: %s)", pidPath)
	}
	if pid == os.Getpid() {
		return 0, fmt.Errorf("refusing to kill current process (pid %d)", pid)
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return 0, fmt.Errorf("locate daemon process %d: %w", pid, err)
	}
	if err := proc.Kill(); err != nil {
		return 0, fmt.Errorf("kill daemon process %d: %w", pid, err)
	}
	if err := os.Remove(pidPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return 0, fmt.Errorf("remove pid file %q: %w", pidPath, err)
	}
	if lockPath != "" {
		_ = os.Remove(lockPath)
	}
	return pid, nil
}

// StopResult captures daemon stop/termination outcome.
type StopResult struct {
	StopAcknowledged bool
	ForcedKill       bool
	PID              int
}

// StopAndTerminate requests daemon stop and force-kills the process if
// still alive after gracePeriod.
func StopAndTerminate(socketPath string, cfg *config.Config, gracePeriod time.Duration) (StopResult, error) {
	client, err := ipc.Dial(socketPath)
	if err != nil {
		if isDaemonUnavailable(err) {
			return StopResult{}, ErrDaemonNotRunning
		}
		return StopResult{}, err
	}
	statusResp, statusErr := client.Status()
	var lockPath, logPath string
	pid := 0
	if statusErr == nil && statusResp != nil {
		lockPath = statusResp.LockPath
		logPath = statusResp.LogPath
		pid = statusResp.PID
	}
	resp, err := client.Stop()
	_ = client.Close()
	if err != nil {
		return StopResult{}, err
	}
	result := StopResult{PID: pid}
	if resp != nil {
		result.StopAcknowledged = resp.Stopped
	}

	_ = WaitForShutdown(socketPath, gracePeriod)
	alive, livePID, aliveErr := ProcessInfo(socketPath)
	if aliveErr != nil {
		alive = false
	}
	if !alive {
		return result, nil
	}

	currentPID := livePID
	if currentPID == 0 {
		currentPID = pid
	}
	logDir := deriveLogDir(logPath, cfg)
	if logDir == "" {
		return result, fmt.Errorf("unable to determine daemon log directory")
	}
	if lockPath == "" && cfg != nil {
		lockPath = cfg.Daemon.LockPath
	}
	pidPath := filepath.Join(logDir, PIDFileName)
	killedPID, killErr := ForceKillProcess(pidPath, lockPath, currentPID)
	if killErr != nil {
		return result, fmt.Errorf("failed to stop daemon process: %w", killErr)
	}
	_ = os.Remove(socketPath)
	result.ForcedKill = true
	result.PID = killedPID
	return result, nil
}

// BuildStatusSnapshot collects daemon status and falls back to reading
// the journal directly when the daemon is not running.
func BuildStatusSnapshot(ctx context.Context, socketPath string, cfg *config.Config) (*ipc.StatusResponse, error) {
	if cfg == nil {
		return nil, errors.New("configuration not available")
	}
	statusResp := &ipc.StatusResponse{}

	client, err := ipc.Dial(socketPath)
	if err == nil {
		defer client.Close()
		if resp, statusErr := client.Status(); statusErr == nil && resp != nil {
			statusResp = resp
		}
	}

	if !statusResp.Running {
		queryCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()

		store, openErr := journal.Open(cfg)
		if openErr == nil {
			health, healthErr := store.Health(queryCtx)
			_ = store.Close()
			if healthErr == nil {
				statusResp.Attempts = ipc.AttemptStats{
					Total:       health.Total,
					Active:      health.Active,
					Completed:   health.Completed,
					Failed:      health.Failed,
					Interrupted: health.Interrupted,
				}
			}
		}
		if statusResp.JournalPath == "" {
			statusResp.JournalPath = cfg.Paths.JournalPath
		}
		if statusResp.LockPath == "" {
			statusResp.LockPath = cfg.Daemon.LockPath
		}
	}

	return statusResp, nil
}

func deriveLogDir(logPath string, cfg *config.Config) string {
	if strings.TrimSpace(logPath) != "" {
		return filepath.Dir(logPath)
	}
	if cfg != nil && strings.TrimSpace(cfg.Paths.LogDir) != "" {
		return cfg.Paths.LogDir
	}
	return ""
}

func isDaemonUnavailable(err error) bool {
	return os.IsNotExist(err) ||
		errors.Is(err, os.ErrNotExist) ||
		errors.Is(err, syscall.ENOENT) ||
		errors.Is(err, syscall.ECONNREFUSED)
}
