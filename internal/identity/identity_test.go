package identity_test

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"vigil/internal/identity"
)

func TestEnsureCreatesRecordWithClientID(t *testing.T) {
	path := filepath.Join(t.TempDir(), "identity.json")
	store := identity.NewStore(path)

	record, ephemeral, err := store.Ensure()
	if err != nil {
		t.Fatalf("Ensure: %v", err)
	}
	if ephemeral {
		t.Fatal("fresh record should be persisted, not ephemeral")
	}
	if record.ClientID == "" {
		t.Fatal("expected generated client id")
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("record not persisted: %v", err)
	}

	again, _, err := store.Ensure()
	if err != nil {
		t.Fatalf("second Ensure: %v", err)
	}
	if again.ClientID != record.ClientID {
		t.Fatalf("client id not stable: %q vs %q", again.ClientID, record.ClientID)
	}
}

func TestEnsureUsesEphemeralIDForCorruptRecord(t *testing.T) {
	path := filepath.Join(t.TempDir(), "identity.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("write corrupt file: %v", err)
	}

	store := identity.NewStore(path)
	record, ephemeral, err := store.Ensure()
	if err != nil {
		t.Fatalf("Ensure: %v", err)
	}
	if !ephemeral {
		t.Fatal("corrupt record should yield an ephemeral id")
	}
	if record.ClientID == "" {
		t.Fatal("expected generated client id")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read file after Ensure: %v", err)
	}
	if string(data) != "{not json" {
		t.Fatalf("corrupt file was overwritten: %q", data)
	}

	second, ephemeral, err := store.Ensure()
	if err != nil {
		t.Fatalf("second Ensure: %v", err)
	}
	if !ephemeral {
		t.Fatal("second Ensure should stay ephemeral")
	}
	if second.ClientID == record.ClientID {
		t.Fatal("ephemeral ids must not be persisted between calls")
	}
}

func TestEnsureFillsMissingClientIDOnly(t *testing.T) {
	path := filepath.Join(t.TempDir(), "identity.json")
	if err := os.WriteFile(path, []byte(`{"client_id": ""}`), 0o644); err != nil {
		t.Fatalf("write record: %v", err)
	}

	record, ephemeral, err := identity.NewStore(path).Ensure()
	if err != nil {
		t.Fatalf("Ensure: %v", err)
	}
	if ephemeral {
		t.Fatal("readable record should be repaired in place")
	}
	if record.ClientID == "" {
		t.Fatal("expected generated client id for empty field")
	}
}

func TestEnsureDropsStaleBrowserHint(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "identity.json")
	store := identity.NewStore(path)

	record := &identity.Record{ClientID: "keep-me"}
	record.SetExecutableHint(filepath.Join(dir, "gone", "chrome"))
	if err := store.Save(record); err != nil {
		t.Fatalf("Save: %v", err)
	}

	repaired, _, err := store.Ensure()
	if err != nil {
		t.Fatalf("Ensure: %v", err)
	}
	if repaired.ClientID != "keep-me" {
		t.Fatalf("client id changed during repair: %q", repaired.ClientID)
	}
	if hint := repaired.ExecutableHint(); hint != "" && !exists(hint) {
		t.Fatalf("stale hint survived: %q", hint)
	}
}

func TestEnsureKeepsValidBrowserHint(t *testing.T) {
	dir := t.TempDir()
	browser := filepath.Join(dir, "chrome")
	if err := os.WriteFile(browser, []byte("#!/bin/sh\n"), 0o755); err != nil {
		t.Fatalf("write fake browser: %v", err)
	}

	store := identity.NewStore(filepath.Join(dir, "identity.json"))
	record := &identity.Record{ClientID: "keep-me"}
	record.SetExecutableHint(browser)
	if err := store.Save(record); err != nil {
		t.Fatalf("Save: %v", err)
	}

	repaired, _, err := store.Ensure()
	if err != nil {
		t.Fatalf("Ensure: %v", err)
	}
	if repaired.ExecutableHint() != browser {
		t.Fatalf("valid hint lost: %q", repaired.ExecutableHint())
	}
	if repaired.BrowserPaths[runtime.GOOS] != browser {
		t.Fatalf("hint keyed wrong: %+v", repaired.BrowserPaths)
	}
}

func TestLoadDistinguishesMissingFromCorrupt(t *testing.T) {
	dir := t.TempDir()

	record, err := identity.NewStore(filepath.Join(dir, "absent.json")).Load()
	if err != nil {
		t.Fatalf("missing file should not error: %v", err)
	}
	if record != nil {
		t.Fatal("missing file should yield nil record")
	}

	corrupt := filepath.Join(dir, "corrupt.json")
	if err := os.WriteFile(corrupt, []byte("]["), 0o644); err != nil {
		t.Fatalf("write corrupt file: %v", err)
	}
	if _, err := identity.NewStore(corrupt).Load(); err == nil {
		t.Fatal("corrupt file should error on strict load")
	}
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
