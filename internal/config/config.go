package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and state-file configuration.
type Paths struct {
	DataDir      string `toml:"data_dir"`
	LogDir       string `toml:"log_dir"`
	SnapshotDir  string `toml:"snapshot_dir"`
	IdentityPath string `toml:"identity_path"`
	JournalPath  string `toml:"journal_path"`
}

// Control contains configuration for the control-plane connection.
type Control struct {
	BaseURL           string `toml:"base_url"`
	RequestTimeout    int    `toml:"request_timeout"`
	HeartbeatInterval int    `toml:"heartbeat_interval"`
	TaskPollInterval  int    `toml:"task_poll_interval"`
}

// Browser contains configuration for the headless viewer browser.
type Browser struct {
	ExecutablePath string `toml:"executable_path"`
	Headless       bool   `toml:"headless"`
	NoSandbox      bool   `toml:"no_sandbox"`
	DisableGPU     bool   `toml:"disable_gpu"`
	MuteAudio      bool   `toml:"mute_audio"`
	WindowWidth    int    `toml:"window_width"`
	WindowHeight   int    `toml:"window_height"`
	UserAgent      string `toml:"user_agent"`
}

// Watch contains configuration for stream watching behavior.
type Watch struct {
	StreamURLTemplate    string   `toml:"stream_url_template"`
	PlayerMountTimeout   int      `toml:"player_mount_timeout"`
	PlaybackReadyTimeout int      `toml:"playback_ready_timeout"`
	AliveCheckTimeout    int      `toml:"alive_check_timeout"`
	Activities           []string `toml:"activities"`
	ChatMessage          string   `toml:"chat_message"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
	TaskEvents     bool   `toml:"task_events"`
	Errors         bool   `toml:"errors"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format        string `toml:"format"`
	Level         string `toml:"level"`
	RetentionDays int    `toml:"retention_days"`
}

// Daemon contains configuration for the long-running process.
type Daemon struct {
	SocketPath string `toml:"socket_path"`
	LockPath   string `toml:"lock_path"`
}

// Config encapsulates all configuration values for Vigil.
//
// Configuration sections by subsystem:
//   - Paths: state directories, identity record, attempt journal
//   - Control: control-plane base URL and loop cadences
//   - Browser: headless browser launch settings
//   - Watch: stream URL shape, readiness timeouts, activity mix
//   - Notifications: ntfy push notification settings
//   - Logging: log format, level, and retention
//   - Daemon: control socket and lock file locations
type Config struct {
	Paths         Paths         `toml:"paths"`
	Control       Control       `toml:"control"`
	Browser       Browser       `toml:"browser"`
	Watch         Watch         `toml:"watch"`
	Notifications Notifications `toml:"notifications"`
	Logging       Logging       `toml:"logging"`
	Daemon        Daemon        `toml:"daemon"`
}

// DefaultConfigPath returns the absolute path to the default
// configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/vigil/config.toml")
}

// Load locates, parses, and validates a configuration file. The
// returned config has all path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("vigil.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for daemon operation.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.LogDir, c.Paths.SnapshotDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other
// packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified
// location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
