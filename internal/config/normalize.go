package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.normalizeControl(); err != nil {
		return err
	}
	if err := c.normalizeBrowser(); err != nil {
		return err
	}
	c.normalizeWatch()
	c.normalizeNotifications()
	c.normalizeLogging()
	return c.normalizeDaemon()
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if c.Paths.SnapshotDir, err = expandPath(c.Paths.SnapshotDir); err != nil {
		return fmt.Errorf("paths.snapshot_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.IdentityPath) == "" {
		c.Paths.IdentityPath = filepath.Join(c.Paths.DataDir, "identity.json")
	}
	if c.Paths.IdentityPath, err = expandPath(c.Paths.IdentityPath); err != nil {
		return fmt.Errorf("paths.identity_path: %w", err)
	}
	if strings.TrimSpace(c.Paths.JournalPath) == "" {
		c.Paths.JournalPath = filepath.Join(c.Paths.DataDir, "journal.db")
	}
	if c.Paths.JournalPath, err = expandPath(c.Paths.JournalPath); err != nil {
		return fmt.Errorf("paths.journal_path: %w", err)
	}
	return nil
}

func (c *Config) normalizeControl() error {
	c.Control.BaseURL = strings.TrimSpace(c.Control.BaseURL)
	if c.Control.BaseURL == "" {
		if value, ok := os.LookupEnv("VIGIL_CONTROL_URL"); ok {
			c.Control.BaseURL = strings.TrimSpace(value)
		}
	}
	if c.Control.BaseURL == "" {
		c.Control.BaseURL = defaultControlBaseURL
	}
	c.Control.BaseURL = strings.TrimRight(c.Control.BaseURL, "/")
	if c.Control.RequestTimeout <= 0 {
		c.Control.RequestTimeout = defaultControlTimeout
	}
	if c.Control.HeartbeatInterval <= 0 {
		c.Control.HeartbeatInterval = defaultHeartbeatInterval
	}
	if c.Control.TaskPollInterval <= 0 {
		c.Control.TaskPollInterval = defaultTaskPollInterval
	}
	return nil
}

func (c *Config) normalizeBrowser() error {
	var err error
	c.Browser.ExecutablePath = strings.TrimSpace(c.Browser.ExecutablePath)
	if c.Browser.ExecutablePath != "" {
		if c.Browser.ExecutablePath, err = expandPath(c.Browser.ExecutablePath); err != nil {
			return fmt.Errorf("browser.executable_path: %w", err)
		}
	}
	if c.Browser.WindowWidth <= 0 {
		c.Browser.WindowWidth = defaultWindowWidth
	}
	if c.Browser.WindowHeight <= 0 {
		c.Browser.WindowHeight = defaultWindowHeight
	}
	c.Browser.UserAgent = strings.TrimSpace(c.Browser.UserAgent)
	return nil
}

func (c *Config) normalizeWatch() {
	c.Watch.StreamURLTemplate = strings.TrimSpace(c.Watch.StreamURLTemplate)
	if c.Watch.StreamURLTemplate == "" {
		c.Watch.StreamURLTemplate = defaultStreamURLTemplate
	}
	if c.Watch.PlayerMountTimeout <= 0 {
		c.Watch.PlayerMountTimeout = defaultPlayerMountTimeout
	}
	if c.Watch.PlaybackReadyTimeout <= 0 {
		c.Watch.PlaybackReadyTimeout = defaultPlaybackReadyTimeout
	}
	if c.Watch.AliveCheckTimeout <= 0 {
		c.Watch.AliveCheckTimeout = defaultAliveCheckTimeout
	}
	if c.Watch.ChatMessage == "" {
		c.Watch.ChatMessage = defaultChatMessage
	}

	if len(c.Watch.Activities) == 0 {
		c.Watch.Activities = defaultActivities()
		return
	}
	kept := make([]string, 0, len(c.Watch.Activities))
	seen := make(map[string]struct{}, len(c.Watch.Activities))
	for _, name := range c.Watch.Activities {
		normalized := strings.ToLower(strings.TrimSpace(name))
		if normalized == "" {
			continue
		}
		if _, exists := seen[normalized]; exists {
			continue
		}
		seen[normalized] = struct{}{}
		kept = append(kept, normalized)
	}
	if len(kept) == 0 {
		kept = defaultActivities()
	}
	c.Watch.Activities = kept
}

func (c *Config) normalizeNotifications() {
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.NtfyTopic == "" {
		if value, ok := os.LookupEnv("VIGIL_NTFY_TOPIC"); ok {
			c.Notifications.NtfyTopic = strings.TrimSpace(value)
		}
	}
	if c.Notifications.RequestTimeout <= 0 {
		c.Notifications.RequestTimeout = defaultNotifyTimeout
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Logging.RetentionDays < 0 {
		c.Logging.RetentionDays = 0
	}
}

func (c *Config) normalizeDaemon() error {
	var err error
	if strings.TrimSpace(c.Daemon.SocketPath) == "" {
		c.Daemon.SocketPath = filepath.Join(c.Paths.DataDir, "vigild.sock")
	}
	if c.Daemon.SocketPath, err = expandPath(c.Daemon.SocketPath); err != nil {
		return fmt.Errorf("daemon.socket_path: %w", err)
	}
	if strings.TrimSpace(c.Daemon.LockPath) == "" {
		c.Daemon.LockPath = filepath.Join(c.Paths.DataDir, "vigild.lock")
	}
	if c.Daemon.LockPath, err = expandPath(c.Daemon.LockPath); err != nil {
		return fmt.Errorf("daemon.lock_path: %w", err)
	}
	return nil
}
