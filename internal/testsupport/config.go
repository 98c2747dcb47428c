package testsupport

import (
	"path/filepath"
	"testing"

	"vigil/internal/config"
)

// ConfigOption allows callers to customize the generated test
// configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	cfg *config.Config
}

// NewConfig produces a config seeded with unique temp directories per
// test. It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.DataDir = filepath.Join(base, "data")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.SnapshotDir = filepath.Join(base, "snapshots")
	cfgVal.Paths.IdentityPath = filepath.Join(base, "data", "identity.json")
	cfgVal.Paths.JournalPath = filepath.Join(base, "data", "journal.db")
	cfgVal.Control.BaseURL = "http://127.0.0.1:0"
	cfgVal.Daemon.SocketPath = filepath.Join(base, "data", "vigild.sock")
	cfgVal.Daemon.LockPath = filepath.Join(base, "data", "vigild.lock")

	builder := &configBuilder{cfg: &cfgVal}
	for _, opt := range opts {
		opt(builder)
	}
	return builder.cfg
}

// WithControlURL points the test config at a control-plane endpoint,
// usually an httptest server.
func WithControlURL(url string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Control.BaseURL = url
	}
}

// WithNtfyTopic enables notifications against the given topic or URL.
func WithNtfyTopic(topic string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Notifications.NtfyTopic = topic
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.DataDir)
}
