package viewer

import (
	"context"
	"errors"
	"testing"
	"time"

	"vigil/internal/config"
	"vigil/internal/logging"
	"vigil/internal/services"
)

func TestBuildLaunchFlagsDefaults(t *testing.T) {
	launchFlags := buildLaunchFlags(config.Default().Browser)

	byName := make(map[string]string, len(launchFlags))
	for _, lf := range launchFlags {
		byName[lf.name] = lf.value
	}

	for _, name := range []string{
		"no-sandbox",
		"disable-setuid-sandbox",
		"disable-dev-shm-usage",
		"disable-gpu",
		"mute-audio",
		"disable-site-isolation-trials",
	} {
		if _, ok := byName[name]; !ok {
			t.Errorf("expected flag %q in %v", name, launchFlags)
		}
	}
	if byName["autoplay-policy"] != "no-user-gesture-required" {
		t.Errorf("autoplay-policy = %q", byName["autoplay-policy"])
	}
	if byName["disable-features"] != "IsolateOrigins,site-per-process" {
		t.Errorf("disable-features = %q", byName["disable-features"])
	}
}

func TestBuildLaunchFlagsRespectsToggles(t *testing.T) {
	browser := config.Default().Browser
	browser.NoSandbox = false
	browser.DisableGPU = false
	browser.MuteAudio = false

	for _, lf := range buildLaunchFlags(browser) {
		switch lf.name {
		case "no-sandbox", "disable-setuid-sandbox", "disable-gpu", "mute-audio":
			t.Errorf("flag %q present with its toggle off", lf.name)
		}
	}
}

func TestCookieDomain(t *testing.T) {
	tests := []struct {
		template string
		want     string
	}{
		{"https://live.bilibili.com/%s", ".bilibili.com"},
		{"https://example.com/%s", ".example.com"},
		{"http://127.0.0.1:8080/%s", "127.0.0.1"},
		{"relative/path/%s", ""},
	}
	for _, tt := range tests {
		if got := cookieDomain(tt.template); got != tt.want {
			t.Errorf("cookieDomain(%q) = %q, want %q", tt.template, got, tt.want)
		}
	}
}

func TestCookieParamsSortedAndScoped(t *testing.T) {
	params := cookieParams(map[string]string{
		"SESSDATA":   "secret",
		"bili_jct":   "csrf",
		"DedeUserID": "42",
	}, ".bilibili.com")

	if len(params) != 3 {
		t.Fatalf("expected 3 cookies, got %d", len(params))
	}
	want := []string{"DedeUserID", "SESSDATA", "bili_jct"}
	for i, param := range params {
		if param.Name != want[i] {
			t.Fatalf("cookie %d = %q, want %q", i, param.Name, want[i])
		}
		if param.Domain != ".bilibili.com" || param.Path != "/" {
			t.Errorf("cookie %s scoped to %s%s", param.Name, param.Domain, param.Path)
		}
	}
	if params[0].Value != "42" {
		t.Errorf("cookie value = %q, want %q", params[0].Value, "42")
	}
}

func TestCookieParamsEmpty(t *testing.T) {
	if params := cookieParams(nil, ".bilibili.com"); params != nil {
		t.Errorf("expected nil for empty credentials, got %v", params)
	}
	if params := cookieParams(map[string]string{"a": "b"}, ""); params != nil {
		t.Errorf("expected nil for empty domain, got %v", params)
	}
}

func TestSnapshotFilename(t *testing.T) {
	captured := time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC)
	if got := snapshotFilename("42", captured); got != "42_20250314_092653.png" {
		t.Errorf("snapshotFilename = %q", got)
	}
}

func TestSessionGuardsBeforeOpen(t *testing.T) {
	cfg := config.Default()
	session := &rodSession{cfg: &cfg, logger: logging.NewNop(), picker: NewRandomPicker()}

	if err := session.Alive(context.Background()); !errors.Is(err, services.ErrStreamLost) {
		t.Errorf("Alive error = %v, want stream-lost", err)
	}
	if err := session.ActivityTick(context.Background()); !errors.Is(err, services.ErrStreamLost) {
		t.Errorf("ActivityTick error = %v, want stream-lost", err)
	}
	if _, err := session.Snapshot(context.Background(), "1"); err == nil {
		t.Error("Snapshot without an open page should fail")
	}
}

func TestSessionCloseIdempotent(t *testing.T) {
	cfg := config.Default()
	session := &rodSession{cfg: &cfg, logger: logging.NewNop()}

	if err := session.Close(context.Background()); err != nil {
		t.Fatalf("first close: %v", err)
	}
	if err := session.Close(context.Background()); err != nil {
		t.Fatalf("second close: %v", err)
	}
}

func TestWithPickerOverride(t *testing.T) {
	cfg := config.Default()
	fixed := fixedPicker{activity: likeActivity{}}
	factory := NewRodFactory(&cfg, logging.NewNop(), WithPicker(fixed))
	if factory.picker != Picker(fixed) {
		t.Fatal("picker not overridden")
	}
}

type fixedPicker struct {
	activity Activity
}

func (p fixedPicker) Pick([]Activity) Activity { return p.activity }
