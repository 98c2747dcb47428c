package config

const (
	defaultDataDir              = "~/.local/share/vigil"
	defaultLogDir               = "~/.local/share/vigil/logs"
	defaultSnapshotDir          = "~/.local/share/vigil/snapshots"
	defaultLogRetentionDays     = 60
	defaultLogFormat            = "console"
	defaultLogLevel             = "info"
	defaultControlBaseURL       = "http://127.0.0.1:8080"
	defaultControlTimeout       = 30
	defaultHeartbeatInterval    = 50
	defaultTaskPollInterval     = 60
	defaultWindowWidth          = 1280
	defaultWindowHeight         = 720
	defaultStreamURLTemplate    = "https://live.bilibili.com/%s"
	defaultPlayerMountTimeout   = 180
	defaultPlaybackReadyTimeout = 60
	defaultAliveCheckTimeout    = 5
	defaultChatMessage          = "666"
	defaultNotifyTimeout        = 10
)

func defaultActivities() []string {
	return []string{"refresh", "scroll", "like", "chat"}
}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir:     defaultDataDir,
			LogDir:      defaultLogDir,
			SnapshotDir: defaultSnapshotDir,
		},
		Control: Control{
			RequestTimeout:    defaultControlTimeout,
			HeartbeatInterval: defaultHeartbeatInterval,
			TaskPollInterval:  defaultTaskPollInterval,
		},
		Browser: Browser{
			Headless:     true,
			NoSandbox:    true,
			DisableGPU:   true,
			MuteAudio:    true,
			WindowWidth:  defaultWindowWidth,
			WindowHeight: defaultWindowHeight,
		},
		Watch: Watch{
			StreamURLTemplate:    defaultStreamURLTemplate,
			PlayerMountTimeout:   defaultPlayerMountTimeout,
			PlaybackReadyTimeout: defaultPlaybackReadyTimeout,
			AliveCheckTimeout:    defaultAliveCheckTimeout,
			Activities:           defaultActivities(),
			ChatMessage:          defaultChatMessage,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyTimeout,
			TaskEvents:     true,
			Errors:         true,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}
