package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"vigil/internal/config"
)

func TestLoadDefaultsExpandPathsAndDeriveStateFiles(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Setenv("VIGIL_CONTROL_URL", "")
	t.Setenv("VIGIL_NTFY_TOPIC", "")

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantData := filepath.Join(tempHome, ".local", "share", "vigil")
	if cfg.Paths.DataDir != wantData {
		t.Fatalf("unexpected data dir: got %q want %q", cfg.Paths.DataDir, wantData)
	}
	if cfg.Paths.IdentityPath != filepath.Join(wantData, "identity.json") {
		t.Fatalf("unexpected identity path: %q", cfg.Paths.IdentityPath)
	}
	if cfg.Paths.JournalPath != filepath.Join(wantData, "journal.db") {
		t.Fatalf("unexpected journal path: %q", cfg.Paths.JournalPath)
	}
	if cfg.Daemon.SocketPath != filepath.Join(wantData, "vigild.sock") {
		t.Fatalf("unexpected socket path: %q", cfg.Daemon.SocketPath)
	}
	if cfg.Daemon.LockPath != filepath.Join(wantData, "vigild.lock") {
		t.Fatalf("unexpected lock path: %q", cfg.Daemon.LockPath)
	}
	if cfg.Control.BaseURL != "http://127.0.0.1:8080" {
		t.Fatalf("unexpected control url: %q", cfg.Control.BaseURL)
	}
	if cfg.Control.HeartbeatInterval != 50 || cfg.Control.TaskPollInterval != 60 {
		t.Fatalf("unexpected cadence defaults: %+v", cfg.Control)
	}
	if !cfg.Browser.Headless || !cfg.Browser.MuteAudio {
		t.Fatalf("unexpected browser defaults: %+v", cfg.Browser)
	}
	if cfg.Browser.WindowWidth != 1280 || cfg.Browser.WindowHeight != 720 {
		t.Fatalf("unexpected viewport defaults: %+v", cfg.Browser)
	}
	if cfg.Watch.PlayerMountTimeout != 180 || cfg.Watch.PlaybackReadyTimeout != 60 {
		t.Fatalf("unexpected watch timeouts: %+v", cfg.Watch)
	}
	if len(cfg.Watch.Activities) != 4 {
		t.Fatalf("unexpected default activities: %v", cfg.Watch.Activities)
	}
	if cfg.Watch.ChatMessage != "666" {
		t.Fatalf("unexpected chat message: %q", cfg.Watch.ChatMessage)
	}
	if cfg.Logging.Format != "console" || cfg.Logging.Level != "info" {
		t.Fatalf("unexpected logging defaults: %+v", cfg.Logging)
	}
}

func TestLoadReadsFileAndNormalizes(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)

	path := filepath.Join(tempHome, "vigil.toml")
	content := `
[control]
base_url = "https://control.example.net/"
heartbeat_interval = 10

[watch]
activities = ["Refresh", "refresh", " LIKE ", ""]

[logging]
format = "JSON"
retention_days = -5
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || resolved != path {
		t.Fatalf("resolution mismatch: %q %v", resolved, exists)
	}
	if cfg.Control.BaseURL != "https://control.example.net" {
		t.Fatalf("trailing slash not trimmed: %q", cfg.Control.BaseURL)
	}
	if cfg.Control.HeartbeatInterval != 10 {
		t.Fatalf("heartbeat interval not taken from file: %d", cfg.Control.HeartbeatInterval)
	}
	if cfg.Control.TaskPollInterval != 60 {
		t.Fatalf("poll interval default lost: %d", cfg.Control.TaskPollInterval)
	}
	want := []string{"refresh", "like"}
	if len(cfg.Watch.Activities) != len(want) {
		t.Fatalf("activities not deduped: %v", cfg.Watch.Activities)
	}
	for i, name := range want {
		if cfg.Watch.Activities[i] != name {
			t.Fatalf("activities = %v, want %v", cfg.Watch.Activities, want)
		}
	}
	if cfg.Logging.Format != "json" {
		t.Fatalf("format not lowercased: %q", cfg.Logging.Format)
	}
	if cfg.Logging.RetentionDays != 0 {
		t.Fatalf("negative retention not clamped: %d", cfg.Logging.RetentionDays)
	}
}

func TestLoadUsesControlURLFromEnv(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Setenv("VIGIL_CONTROL_URL", "http://control.internal:9090")

	cfg, _, _, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Control.BaseURL != "http://control.internal:9090" {
		t.Fatalf("env fallback ignored: %q", cfg.Control.BaseURL)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)

	cases := map[string]string{
		"bad scheme": `
[control]
base_url = "ftp://control.example.net"
`,
		"unknown activity": `
[watch]
activities = ["refresh", "dance"]
`,
		"template without placeholder": `
[watch]
stream_url_template = "https://live.example.net/room"
`,
		"chat without message": `
[watch]
activities = ["chat"]
chat_message = "  "
`,
	}
	for name, content := range cases {
		path := filepath.Join(t.TempDir(), "vigil.toml")
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatalf("%s: write config: %v", name, err)
		}
		if _, _, _, err := config.Load(path); err == nil {
			t.Fatalf("%s: expected validation error", name)
		}
	}
}

func TestCreateSampleProducesLoadableConfig(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)

	path := filepath.Join(tempHome, ".config", "vigil", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	if !strings.Contains(string(data), "[control]") {
		t.Fatal("sample missing control section")
	}

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load of sample failed: %v", err)
	}
	if !exists || resolved != path {
		t.Fatalf("sample not picked up: %q %v", resolved, exists)
	}
	if cfg.Control.RequestTimeout != 30 {
		t.Fatalf("sample values drifted from defaults: %+v", cfg.Control)
	}
}
