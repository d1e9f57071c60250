package config

const (
	defaultSourceDir      = "~/.local/share/versecast/input"
	defaultOutputDir      = "~/.local/share/versecast/output"
	defaultDataDir        = "~/.local/share/versecast/data"
	defaultLogDir         = "~/.local/share/versecast/logs"
	defaultTTSTimeout     = 300
	defaultRenderTimeout  = 600
	defaultPalette        = "midnight"
	defaultFontSize       = 80
	defaultParticles      = 80
	defaultFPS            = 30
	defaultWidth          = 1080
	defaultHeight         = 1920
	defaultFadeSeconds    = 0.5
	defaultMaxAttempts    = 3
	defaultWorkers        = 1
	defaultPublishTarget  = "none"
	defaultPrivacy        = "unlisted"
	defaultCategoryID     = "22"
	defaultNotifyTimeout  = 10
	defaultLogFormat      = "console"
	defaultLogLevel       = "info"
	defaultFFmpegBinary   = "ffmpeg"
	defaultFFprobeBinary  = "ffprobe"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			SourceDir: defaultSourceDir,
			OutputDir: defaultOutputDir,
			DataDir:   defaultDataDir,
			LogDir:    defaultLogDir,
		},
		TTS: TTS{
			TimeoutSeconds: defaultTTSTimeout,
		},
		Render: Render{
			FFmpegBinary:   defaultFFmpegBinary,
			FFprobeBinary:  defaultFFprobeBinary,
			Palette:        defaultPalette,
			FontSize:       defaultFontSize,
			Particles:      defaultParticles,
			FPS:            defaultFPS,
			Width:          defaultWidth,
			Height:         defaultHeight,
			FadeSeconds:    defaultFadeSeconds,
			TimeoutSeconds: defaultRenderTimeout,
		},
		Publish: Publish{
			Target: defaultPublishTarget,
			YouTube: YouTube{
				Privacy:    defaultPrivacy,
				CategoryID: defaultCategoryID,
			},
		},
		Workflow: Workflow{
			MaxAttempts: defaultMaxAttempts,
			Workers:     defaultWorkers,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyTimeout,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
