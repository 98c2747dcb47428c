package identity

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/google/uuid"
)

// Record is the persisted client identity. The id is generated once
// and survives restarts so the control plane sees a stable client.
// BrowserPaths caches the discovered browser executable per platform.
type Record struct {
	ClientID     string            `json:"client_id"`
	BrowserPaths map[string]string `json:"browser_paths,omitempty"`
	UpdatedAt    time.Time         `json:"updated_at"`
}

// ExecutableHint returns the cached browser path for the current
// platform, or empty when none is recorded.
func (r *Record) ExecutableHint() string {
	if r == nil || r.BrowserPaths == nil {
		return ""
	}
	return r.BrowserPaths[runtime.GOOS]
}

// SetExecutableHint records the browser path for the current platform.
func (r *Record) SetExecutableHint(path string) {
	if r.BrowserPaths == nil {
		r.BrowserPaths = make(map[string]string, 1)
	}
	r.BrowserPaths[runtime.GOOS] = path
}

// Store reads and writes the identity record at a fixed path.
type Store struct {
	path string
}

// NewStore returns a store bound to the given file path.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Path returns the backing file location.
func (s *Store) Path() string {
	return s.path
}

// Load reads the record without repairing it. A missing file returns
// (nil, nil) so callers can distinguish absence from corruption.
func (s *Store) Load() (*Record, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read identity: %w", err)
	}
	var record Record
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("parse identity: %w", err)
	}
	return &record, nil
}

// Save writes the record atomically, creating parent directories as
// needed.
func (s *Store) Save(record *Record) error {
	record.UpdatedAt = time.Now().UTC()
	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return fmt.Errorf("encode identity: %w", err)
	}
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create identity directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".identity-*")
	if err != nil {
		return fmt.Errorf("stage identity: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("write identity: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("flush identity: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("replace identity: %w", err)
	}
	return nil
}

// Ensure loads the record and repairs whatever is missing: an absent
// file is created, an empty client id is generated, and stale browser
// hints are re-probed, with repairs persisted before returning. An
// unreadable or corrupt file is left untouched; the returned record
// then carries an ephemeral id and ephemeral reports true so callers
// can warn that the id will not survive a restart.
func (s *Store) Ensure() (record *Record, ephemeral bool, err error) {
	record, err = s.Load()
	if err != nil {
		record = &Record{ClientID: uuid.NewString()}
		if found := DetectBrowser(); found != "" {
			record.SetExecutableHint(found)
		}
		return record, true, nil
	}

	dirty := false
	if record == nil {
		record = &Record{}
		dirty = true
	}

	if record.ClientID == "" {
		record.ClientID = uuid.NewString()
		dirty = true
	}

	hint := record.ExecutableHint()
	if hint != "" && !executableExists(hint) {
		hint = ""
		delete(record.BrowserPaths, runtime.GOOS)
		dirty = true
	}
	if hint == "" {
		if found := DetectBrowser(); found != "" {
			record.SetExecutableHint(found)
			dirty = true
		}
	}

	if dirty {
		if err := s.Save(record); err != nil {
			return nil, false, err
		}
	}
	return record, false, nil
}

var browserCandidates = map[string][]string{
	"linux": {
		"/usr/bin/google-chrome",
		"/usr/bin/google-chrome-stable",
		"/usr/bin/chromium-browser",
		"/usr/bin/chromium",
		"/snap/bin/chromium",
		"/usr/bin/microsoft-edge",
	},
	"darwin": {
		"/Applications/Google Chrome.app/Contents/MacOS/Google Chrome",
		"/Applications/Chromium.app/Contents/MacOS/Chromium",
		"/Applications/Microsoft Edge.app/Contents/MacOS/Microsoft Edge",
	},
	"windows": {
		`C:\Program Files\Google\Chrome\Application\chrome.exe`,
		`C:\Program Files (x86)\Google\Chrome\Application\chrome.exe`,
		`C:\Program Files (x86)\Microsoft\Edge\Application\msedge.exe`,
	},
}

// DetectBrowser probes well-known install locations for the current
// platform and returns the first hit.
func DetectBrowser() string {
	for _, candidate := range browserCandidates[runtime.GOOS] {
		if executableExists(candidate) {
			return candidate
		}
	}
	return ""
}

func executableExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
