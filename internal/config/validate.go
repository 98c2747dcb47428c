package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

var knownActivities = map[string]struct{}{
	"refresh": {},
	"scroll":  {},
	"like":    {},
	"chat":    {},
}

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateControl(); err != nil {
		return err
	}
	if err := c.validateBrowser(); err != nil {
		return err
	}
	if err := c.validateWatch(); err != nil {
		return err
	}
	if err := c.validateNotifications(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateControl() error {
	parsed, err := url.Parse(c.Control.BaseURL)
	if err != nil {
		return fmt.Errorf("control.base_url is not a valid URL: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("control.base_url must use http or https, got %q", c.Control.BaseURL)
	}
	if parsed.Host == "" {
		return fmt.Errorf("control.base_url is missing a host: %q", c.Control.BaseURL)
	}
	return ensurePositiveMap(map[string]int{
		"control.request_timeout":    c.Control.RequestTimeout,
		"control.heartbeat_interval": c.Control.HeartbeatInterval,
		"control.task_poll_interval": c.Control.TaskPollInterval,
	})
}

func (c *Config) validateBrowser() error {
	return ensurePositiveMap(map[string]int{
		"browser.window_width":  c.Browser.WindowWidth,
		"browser.window_height": c.Browser.WindowHeight,
	})
}

func (c *Config) validateWatch() error {
	if !strings.Contains(c.Watch.StreamURLTemplate, "%s") {
		return fmt.Errorf("watch.stream_url_template must contain a %%s room placeholder, got %q", c.Watch.StreamURLTemplate)
	}
	if err := ensurePositiveMap(map[string]int{
		"watch.player_mount_timeout":   c.Watch.PlayerMountTimeout,
		"watch.playback_ready_timeout": c.Watch.PlaybackReadyTimeout,
		"watch.alive_check_timeout":    c.Watch.AliveCheckTimeout,
	}); err != nil {
		return err
	}
	if len(c.Watch.Activities) == 0 {
		return errors.New("watch.activities must include at least one activity")
	}
	for _, name := range c.Watch.Activities {
		if _, ok := knownActivities[name]; !ok {
			return fmt.Errorf("watch.activities contains unknown activity %q", name)
		}
		if name == "chat" && strings.TrimSpace(c.Watch.ChatMessage) == "" {
			return errors.New("watch.chat_message must be set when the chat activity is enabled")
		}
	}
	return nil
}

func (c *Config) validateNotifications() error {
	if c.Notifications.RequestTimeout <= 0 {
		return errors.New("notifications.request_timeout must be positive")
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
