package config

const (
	defaultIntakeDir          = "~/.local/share/pulpit/intake"
	defaultProjectsDir        = "~/sermon-projects"
	defaultStagingDir         = "~/.local/share/pulpit/staging"
	defaultLogDir             = "~/.local/share/pulpit/logs"
	defaultOpenAIBaseURL      = "https://api.openai.com/v1"
	defaultTranscribeModel    = "whisper-1"
	defaultChatModel          = "gpt-4-turbo"
	defaultLanguage           = "es"
	defaultOpenAITimeout      = 300
	defaultRequestsPerMinute  = 50
	defaultSegmentSeconds     = 300
	defaultSampleRate         = 16000
	defaultBitrate            = "32k"
	defaultTranscribeWorkers  = 2
	defaultCorrectionMode     = "document"
	defaultCorrectionTemp     = 0.3
	defaultUnitMaxChars       = 400
	defaultCorrectionAttempts = 3
	defaultMaxDriftRatio      = 0.2
	defaultIdeaCount          = 7
	defaultIdeaTemp           = 0.1
	defaultLogFormat          = "console"
	defaultLogLevel           = "info"
	defaultNotifyTimeout      = 10
	defaultPollInterval       = 5
	defaultErrorRetryInterval = 10
	defaultHeartbeatInterval  = 15
	defaultHeartbeatTimeout   = 120
	defaultWatchSettleSeconds = 5
)

func defaultFormats() []string {
	return []string{"mp4", "mkv", "mov", "mp3", "wav", "m4a"}
}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			IntakeDir:   defaultIntakeDir,
			ProjectsDir: defaultProjectsDir,
			StagingDir:  defaultStagingDir,
			LogDir:      defaultLogDir,
		},
		OpenAI: OpenAI{
			BaseURL:           defaultOpenAIBaseURL,
			TranscribeModel:   defaultTranscribeModel,
			ChatModel:         defaultChatModel,
			Language:          defaultLanguage,
			TimeoutSeconds:    defaultOpenAITimeout,
			RequestsPerMinute: defaultRequestsPerMinute,
		},
		Transcription: Transcription{
			SegmentSeconds: defaultSegmentSeconds,
			SampleRate:     defaultSampleRate,
			Bitrate:        defaultBitrate,
			Workers:        defaultTranscribeWorkers,
			Formats:        defaultFormats(),
		},
		Correction: Correction{
			Enabled:       true,
			Mode:          defaultCorrectionMode,
			Temperature:   defaultCorrectionTemp,
			UnitMaxChars:  defaultUnitMaxChars,
			MaxAttempts:   defaultCorrectionAttempts,
			MaxDriftRatio: defaultMaxDriftRatio,
		},
		Ideas: Ideas{
			Enabled:     true,
			Count:       defaultIdeaCount,
			ActOne:      2,
			ActTwo:      2,
			ActThree:    3,
			Temperature: defaultIdeaTemp,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyTimeout,
		},
		Workflow: Workflow{
			QueuePollInterval:  defaultPollInterval,
			ErrorRetryInterval: defaultErrorRetryInterval,
			HeartbeatInterval:  defaultHeartbeatInterval,
			HeartbeatTimeout:   defaultHeartbeatTimeout,
			WatchSettleSeconds: defaultWatchSettleSeconds,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
