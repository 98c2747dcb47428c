package viewer

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/rod/lib/proto"

	"vigil/internal/config"
	"vigil/internal/logging"
	"vigil/internal/services"
)

// Stream page selectors.
const (
	playerMountSelector = "#live-player"
	playerAliveSelector = ".live-player-mounter"
	likeButtonSelector  = ".like-btn"
	chatInputSelector   = ".chat-input"
	chatSendSelector    = ".chat-send-btn"
)

const playbackReadyScript = `() => {
	const video = document.querySelector('video');
	return video && video.readyState >= 3;
}`

var (
	_ Factory = (*RodFactory)(nil)
	_ Session = (*rodSession)(nil)
)

// RodFactory launches headless Chromium instances over the DevTools
// protocol.
type RodFactory struct {
	cfg    *config.Config
	logger *slog.Logger
	picker Picker
}

// FactoryOption adjusts factory construction.
type FactoryOption func(*RodFactory)

// WithPicker overrides the activity selection strategy.
func WithPicker(picker Picker) FactoryOption {
	return func(f *RodFactory) {
		if picker != nil {
			f.picker = picker
		}
	}
}

// NewRodFactory creates a viewer session factory backed by go-rod.
func NewRodFactory(cfg *config.Config, logger *slog.Logger, opts ...FactoryOption) *RodFactory {
	factory := &RodFactory{
		cfg:    cfg,
		logger: logging.NewComponentLogger(logger, "viewer"),
		picker: NewRandomPicker(),
	}
	for _, opt := range opts {
		opt(factory)
	}
	return factory
}

// Create launches a browser, connects to it, and installs the task
// credentials as cookies. Launch and connect failures are fatal for the
// session; cookie installation is best-effort.
func (f *RodFactory) Create(ctx context.Context, credentials map[string]string) (Session, error) {
	launch := launcher.New().Headless(f.cfg.Browser.Headless)
	if binary := f.cfg.Browser.ExecutablePath; binary != "" {
		launch = launch.Bin(binary)
	}
	for _, lf := range buildLaunchFlags(f.cfg.Browser) {
		if lf.value == "" {
			launch = launch.Set(flags.Flag(lf.name))
		} else {
			launch = launch.Set(flags.Flag(lf.name), lf.value)
		}
	}

	controlURL, err := launch.Launch()
	if err != nil {
		return nil, services.Wrap(services.ErrSessionInit, "viewer", "launch", "start browser", err)
	}

	browser := rod.New().ControlURL(controlURL).Context(ctx)
	if err := browser.Connect(); err != nil {
		launch.Kill()
		launch.Cleanup()
		return nil, services.Wrap(services.ErrSessionInit, "viewer", "connect", "attach to browser", err)
	}

	session := &rodSession{
		cfg:        f.cfg,
		logger:     f.logger,
		picker:     f.picker,
		activities: buildActivities(f.cfg.Watch),
		launch:     launch,
		browser:    browser,
	}

	if params := cookieParams(credentials, cookieDomain(f.cfg.Watch.StreamURLTemplate)); len(params) > 0 {
		if err := browser.SetCookies(params); err != nil {
			f.logger.Warn("credential cookies not installed",
				logging.Int("cookies", len(params)),
				logging.Error(err))
		} else {
			f.logger.Debug("credential cookies installed", logging.Int("cookies", len(params)))
		}
	}

	f.logger.Info("viewer session created", logging.Bool("headless", f.cfg.Browser.Headless))
	return session, nil
}

type rodSession struct {
	cfg        *config.Config
	logger     *slog.Logger
	picker     Picker
	activities []Activity

	launch  *launcher.Launcher
	browser *rod.Browser
	page    *rod.Page

	closeOnce sync.Once
	closeErr  error
}

// OpenStream builds the room URL, navigates, and waits for the player
// mount point. A stream that never reports a ready video element is
// still considered open.
func (s *rodSession) OpenStream(ctx context.Context, roomID string) error {
	streamURL := fmt.Sprintf(s.cfg.Watch.StreamURLTemplate, roomID)
	mountTimeout := time.Duration(s.cfg.Watch.PlayerMountTimeout) * time.Second

	page, err := s.browser.Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		return services.Wrap(services.ErrStreamOpen, "viewer", "open-stream", "create page", err)
	}

	if err := s.applyPageOverrides(page); err != nil {
		s.logger.Warn("page overrides not applied", logging.Error(err))
	}

	if err := page.Context(ctx).Timeout(mountTimeout).Navigate(streamURL); err != nil {
		_ = page.Close()
		return services.Wrap(services.ErrStreamOpen, "viewer", "open-stream", fmt.Sprintf("navigate to %s", streamURL), err)
	}
	if _, err := page.Context(ctx).Timeout(mountTimeout).Element(playerMountSelector); err != nil {
		_ = page.Close()
		return services.Wrap(services.ErrStreamOpen, "viewer", "open-stream", "player mount not found", err)
	}

	readyTimeout := time.Duration(s.cfg.Watch.PlaybackReadyTimeout) * time.Second
	if err := page.Context(ctx).Timeout(readyTimeout).Wait(rod.Eval(playbackReadyScript)); err != nil {
		s.logger.Warn("playback readiness not confirmed",
			logging.String(logging.FieldRoomID, roomID),
			logging.Error(err))
	}

	s.page = page
	s.logger.Info("stream page open",
		logging.String(logging.FieldRoomID, roomID),
		logging.String("url", streamURL))
	return nil
}

// Alive asserts the player is still mounted within the alive-check
// window.
func (s *rodSession) Alive(ctx context.Context) error {
	if s.page == nil {
		return services.Wrap(services.ErrStreamLost, "viewer", "assert-alive", "stream page not open", nil)
	}
	aliveTimeout := time.Duration(s.cfg.Watch.AliveCheckTimeout) * time.Second
	if _, err := s.page.Context(ctx).Timeout(aliveTimeout).Element(playerAliveSelector); err != nil {
		return services.Wrap(services.ErrStreamLost, "viewer", "assert-alive", "player mount missing", err)
	}
	return nil
}

// ActivityTick runs one picked activity against the stream page.
func (s *rodSession) ActivityTick(ctx context.Context) error {
	if s.page == nil {
		return services.Wrap(services.ErrStreamLost, "viewer", "activity", "stream page not open", nil)
	}
	activity := s.picker.Pick(s.activities)
	if activity == nil {
		return nil
	}
	if err := activity.Run(ctx, s.page); err != nil {
		s.logger.Warn("viewer activity failed",
			logging.String("activity", activity.Name()),
			logging.Error(err))
		return fmt.Errorf("activity %s: %w", activity.Name(), err)
	}
	s.logger.Debug("viewer activity done", logging.String("activity", activity.Name()))
	return nil
}

// Snapshot writes a PNG capture of the current page into the snapshot
// directory and returns the file path.
func (s *rodSession) Snapshot(ctx context.Context, prefix string) (string, error) {
	if s.page == nil {
		return "", services.Wrap(services.ErrInternal, "viewer", "snapshot", "stream page not open", nil)
	}
	data, err := s.page.Context(ctx).Screenshot(false, nil)
	if err != nil {
		return "", services.Wrap(services.ErrInternal, "viewer", "snapshot", "capture page", err)
	}
	if err := os.MkdirAll(s.cfg.Paths.SnapshotDir, 0o755); err != nil {
		return "", services.Wrap(services.ErrInternal, "viewer", "snapshot", "create snapshot directory", err)
	}
	path := filepath.Join(s.cfg.Paths.SnapshotDir, snapshotFilename(prefix, time.Now()))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", services.Wrap(services.ErrInternal, "viewer", "snapshot", "write snapshot", err)
	}
	s.logger.Info("snapshot captured", logging.String("path", path))
	return path, nil
}

// Close shuts down the page, the browser connection, and the launched
// process. Repeated calls return the first result.
func (s *rodSession) Close(ctx context.Context) error {
	s.closeOnce.Do(func() {
		if s.page != nil {
			if err := s.page.Close(); err != nil {
				s.logger.Debug("page close failed", logging.Error(err))
			}
			s.page = nil
		}
		if s.browser != nil {
			if err := s.browser.Close(); err != nil {
				s.closeErr = err
			}
			s.browser = nil
		}
		if s.launch != nil {
			s.launch.Kill()
			s.launch.Cleanup()
			s.launch = nil
		}
		s.logger.Info("viewer session closed")
	})
	return s.closeErr
}

func (s *rodSession) applyPageOverrides(page *rod.Page) error {
	viewport := proto.EmulationSetDeviceMetricsOverride{
		Width:             s.cfg.Browser.WindowWidth,
		Height:            s.cfg.Browser.WindowHeight,
		DeviceScaleFactor: 1,
	}
	if err := viewport.Call(page); err != nil {
		return fmt.Errorf("set viewport: %w", err)
	}
	if userAgent := s.cfg.Browser.UserAgent; userAgent != "" {
		override := proto.NetworkSetUserAgentOverride{UserAgent: userAgent}
		if err := override.Call(page); err != nil {
			return fmt.Errorf("set user agent: %w", err)
		}
	}
	return nil
}

type launchFlag struct {
	name  string
	value string
}

// buildLaunchFlags translates browser config into Chromium switches. The
// autoplay and isolation switches are always set so playback starts
// without a user gesture.
func buildLaunchFlags(browser config.Browser) []launchFlag {
	launchFlags := []launchFlag{
		{name: "disable-dev-shm-usage"},
		{name: "disable-web-security"},
		{name: "autoplay-policy", value: "no-user-gesture-required"},
		{name: "disable-features", value: "IsolateOrigins,site-per-process"},
		{name: "disable-site-isolation-trials"},
	}
	if browser.NoSandbox {
		launchFlags = append(launchFlags,
			launchFlag{name: "no-sandbox"},
			launchFlag{name: "disable-setuid-sandbox"},
		)
	}
	if browser.DisableGPU {
		launchFlags = append(launchFlags, launchFlag{name: "disable-gpu"})
	}
	if browser.MuteAudio {
		launchFlags = append(launchFlags, launchFlag{name: "mute-audio"})
	}
	return launchFlags
}

// cookieDomain derives the cookie scope from the stream URL template.
// Subdomains collapse onto the registrable parent so credentials cover
// the whole stream site.
func cookieDomain(streamURLTemplate string) string {
	parsed, err := url.Parse(fmt.Sprintf(streamURLTemplate, "0"))
	if err != nil {
		return ""
	}
	host := parsed.Hostname()
	if host == "" {
		return ""
	}
	if net.ParseIP(host) != nil {
		return host
	}
	if parts := strings.Split(host, "."); len(parts) > 2 {
		host = strings.Join(parts[1:], ".")
	}
	return "." + host
}

// cookieParams converts credential pairs into cookie parameters in a
// stable name order.
func cookieParams(credentials map[string]string, domain string) []*proto.NetworkCookieParam {
	if len(credentials) == 0 || domain == "" {
		return nil
	}
	names := make([]string, 0, len(credentials))
	for name := range credentials {
		names = append(names, name)
	}
	sort.Strings(names)
	params := make([]*proto.NetworkCookieParam, 0, len(names))
	for _, name := range names {
		params = append(params, &proto.NetworkCookieParam{
			Name:   name,
			Value:  credentials[name],
			Domain: domain,
			Path:   "/",
		})
	}
	return params
}

func snapshotFilename(prefix string, captured time.Time) string {
	return fmt.Sprintf("%s_%s.png", prefix, captured.Format("20060102_150405"))
}
