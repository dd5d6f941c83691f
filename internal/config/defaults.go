package config

const (
	defaultStagingDir = "~/.local/share/gistcast/staging"
	defaultOutputDir  = "~/.local/share/gistcast/episodes"
	defaultLogDir     = "~/.local/share/gistcast/logs"
	defaultAPIBind    = "127.0.0.1:7319"

	defaultTextGenBaseURL      = "https://openrouter.ai/api/v1/chat/completions"
	defaultTextGenModel        = "google/gemini-3-flash-preview"
	defaultTextGenRetries      = 3
	defaultTextGenRetryDelay   = 15
	defaultTextGenTimeout      = 120
	defaultSpeechModel         = "gemini-2.5-pro-preview-tts"
	defaultHostVoice           = "Enceladus"
	defaultGuestVoice          = "Leda"
	defaultSpeechAttempts      = 3
	defaultSpeechHardTimeout   = 300
	defaultArtifactsBucket     = "episodes"
	defaultTargetLengthMinutes = 10
	defaultWordsPerMinute      = 170
	defaultChunkTargetTurns    = 15
	defaultChunkThresholdTurns = 10
	defaultGapMilliseconds     = 300
	defaultInterChunkDelay     = 2
	defaultPipelineAttempts    = 2
	defaultPipelineRetryDelay  = 60

	defaultWorkers             = 3
	defaultQueuePollInterval   = 5
	defaultErrorRetryInterval  = 5
	defaultStaleCheckInterval  = 60
	defaultStaleTimeoutMinutes = 15
	defaultShutdownJoinTimeout = 10

	defaultNotifyRequestTimeout = 10

	defaultLogFormat = "console"
	defaultLogLevel  = "info"
)

func defaultSpeechRetryDelays() []int { return []int{5, 15, 30} }

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			StagingDir: defaultStagingDir,
			OutputDir:  defaultOutputDir,
			LogDir:     defaultLogDir,
			APIBind:    defaultAPIBind,
		},
		TextGen: TextGen{
			BaseURL:           defaultTextGenBaseURL,
			Model:             defaultTextGenModel,
			MaxRetries:        defaultTextGenRetries,
			RetryDelaySeconds: defaultTextGenRetryDelay,
			TimeoutSeconds:    defaultTextGenTimeout,
		},
		Speech: Speech{
			Model:              defaultSpeechModel,
			HostVoice:          defaultHostVoice,
			GuestVoice:         defaultGuestVoice,
			Attempts:           defaultSpeechAttempts,
			RetryDelaySeconds:  defaultSpeechRetryDelays(),
			HardTimeoutSeconds: defaultSpeechHardTimeout,
		},
		Artifacts: Artifacts{
			Bucket: defaultArtifactsBucket,
		},
		Episode: Episode{
			TargetLengthMinutes:       defaultTargetLengthMinutes,
			WordsPerMinute:            defaultWordsPerMinute,
			ChunkTargetTurns:          defaultChunkTargetTurns,
			ChunkThresholdTurns:       defaultChunkThresholdTurns,
			GapMilliseconds:           defaultGapMilliseconds,
			InterChunkDelaySeconds:    defaultInterChunkDelay,
			PipelineAttempts:          defaultPipelineAttempts,
			PipelineRetryDelaySeconds: defaultPipelineRetryDelay,
		},
		Workflow: Workflow{
			Workers:             defaultWorkers,
			QueuePollInterval:   defaultQueuePollInterval,
			ErrorRetryInterval:  defaultErrorRetryInterval,
			StaleCheckInterval:  defaultStaleCheckInterval,
			StaleTimeoutMinutes: defaultStaleTimeoutMinutes,
			ShutdownJoinTimeout: defaultShutdownJoinTimeout,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyRequestTimeout,
			EpisodeReady:   true,
			Errors:         true,
			Queue:          true,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
