package config

const (
	defaultOutputDir        = "~/transcripts"
	defaultLogDir           = "~/.local/share/scribe/logs"
	defaultModel            = "medium"
	defaultLanguage         = "auto"
	defaultWorkers          = 1
	defaultFormat           = "txt"
	defaultFFmpegBinary     = "ffmpeg"
	defaultFFprobeBinary    = "ffprobe"
	defaultWhisperBinary    = "whisper"
	defaultSampleRate       = 16000
	defaultChannels         = 1
	defaultStallTimeout     = 300
	defaultTerminationGrace = 10
	defaultLogFormat        = "console"
	defaultLogLevel         = "info"
)

// defaultExtensions is the media extension allow-list, matching the container
// formats ffmpeg decodes reliably.
var defaultExtensions = []string{
	".mp4", ".avi", ".mov", ".mkv", ".flv", ".webm", ".m4v", ".wmv", ".3gp", ".ogv",
}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			OutputDir: defaultOutputDir,
			LogDir:    defaultLogDir,
		},
		Processing: Processing{
			Model:        defaultModel,
			Language:     defaultLanguage,
			Workers:      defaultWorkers,
			SkipExisting: true,
			Extensions:   append([]string(nil), defaultExtensions...),
		},
		Output: Output{
			Format: defaultFormat,
		},
		Engines: Engines{
			FFmpegBinary:     defaultFFmpegBinary,
			FFprobeBinary:    defaultFFprobeBinary,
			WhisperBinary:    defaultWhisperBinary,
			SampleRate:       defaultSampleRate,
			Channels:         defaultChannels,
			StallTimeout:     defaultStallTimeout,
			TerminationGrace: defaultTerminationGrace,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
