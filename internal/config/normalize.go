package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeTextGen()
	c.normalizeSpeech()
	c.normalizeArtifacts()
	c.normalizeEpisode()
	c.normalizeWorkflow()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.StagingDir) == "" {
		c.Paths.StagingDir = defaultStagingDir
	}
	if c.Paths.StagingDir, err = expandPath(c.Paths.StagingDir); err != nil {
		return fmt.Errorf("paths.staging_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.OutputDir) == "" {
		c.Paths.OutputDir = defaultOutputDir
	}
	if c.Paths.OutputDir, err = expandPath(c.Paths.OutputDir); err != nil {
		return fmt.Errorf("paths.output_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	if c.Paths.APIBind == "" {
		c.Paths.APIBind = defaultAPIBind
	}
	c.Paths.APIToken = strings.TrimSpace(c.Paths.APIToken)
	if c.Paths.APIToken == "" {
		if value, ok := os.LookupEnv("GISTCAST_API_TOKEN"); ok {
			c.Paths.APIToken = strings.TrimSpace(value)
		}
	}
	return nil
}

func (c *Config) normalizeTextGen() {
	c.TextGen.APIKey = strings.TrimSpace(c.TextGen.APIKey)
	if c.TextGen.APIKey == "" {
		if value, ok := os.LookupEnv("GISTCAST_TEXTGEN_API_KEY"); ok {
			c.TextGen.APIKey = strings.TrimSpace(value)
		} else if value, ok := os.LookupEnv("OPENROUTER_API_KEY"); ok {
			c.TextGen.APIKey = strings.TrimSpace(value)
		}
	}
	c.TextGen.BaseURL = strings.TrimSpace(c.TextGen.BaseURL)
	if c.TextGen.BaseURL == "" {
		c.TextGen.BaseURL = defaultTextGenBaseURL
	}
	c.TextGen.Model = strings.TrimSpace(c.TextGen.Model)
	if c.TextGen.Model == "" {
		c.TextGen.Model = defaultTextGenModel
	}
	if c.TextGen.MaxRetries <= 0 {
		c.TextGen.MaxRetries = defaultTextGenRetries
	}
	if c.TextGen.RetryDelaySeconds <= 0 {
		c.TextGen.RetryDelaySeconds = defaultTextGenRetryDelay
	}
	if c.TextGen.TimeoutSeconds <= 0 {
		c.TextGen.TimeoutSeconds = defaultTextGenTimeout
	}
}

func (c *Config) normalizeSpeech() {
	c.Speech.APIKey = strings.TrimSpace(c.Speech.APIKey)
	if c.Speech.APIKey == "" {
		if value, ok := os.LookupEnv("GISTCAST_SPEECH_API_KEY"); ok {
			c.Speech.APIKey = strings.TrimSpace(value)
		} else if value, ok := os.LookupEnv("GEMINI_API_KEY"); ok {
			c.Speech.APIKey = strings.TrimSpace(value)
		}
	}
	c.Speech.BaseURL = strings.TrimSpace(c.Speech.BaseURL)
	c.Speech.Model = strings.TrimSpace(c.Speech.Model)
	if c.Speech.Model == "" {
		c.Speech.Model = defaultSpeechModel
	}
	c.Speech.HostVoice = strings.TrimSpace(c.Speech.HostVoice)
	if c.Speech.HostVoice == "" {
		c.Speech.HostVoice = defaultHostVoice
	}
	c.Speech.GuestVoice = strings.TrimSpace(c.Speech.GuestVoice)
	if c.Speech.GuestVoice == "" {
		c.Speech.GuestVoice = defaultGuestVoice
	}
	if c.Speech.Attempts <= 0 {
		c.Speech.Attempts = defaultSpeechAttempts
	}
	delays := make([]int, 0, len(c.Speech.RetryDelaySeconds))
	for _, d := range c.Speech.RetryDelaySeconds {
		if d > 0 {
			delays = append(delays, d)
		}
	}
	if len(delays) == 0 {
		delays = defaultSpeechRetryDelays()
	}
	c.Speech.RetryDelaySeconds = delays
	if c.Speech.HardTimeoutSeconds <= 0 {
		c.Speech.HardTimeoutSeconds = defaultSpeechHardTimeout
	}
}

func (c *Config) normalizeArtifacts() {
	c.Artifacts.BaseURL = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(c.Artifacts.BaseURL), "/"))
	c.Artifacts.ServiceKey = strings.TrimSpace(c.Artifacts.ServiceKey)
	if c.Artifacts.ServiceKey == "" {
		if value, ok := os.LookupEnv("GISTCAST_ARTIFACTS_SERVICE_KEY"); ok {
			c.Artifacts.ServiceKey = strings.TrimSpace(value)
		}
	}
	c.Artifacts.Bucket = strings.TrimSpace(c.Artifacts.Bucket)
	if c.Artifacts.Bucket == "" {
		c.Artifacts.Bucket = defaultArtifactsBucket
	}
}

func (c *Config) normalizeEpisode() {
	if c.Episode.TargetLengthMinutes <= 0 {
		c.Episode.TargetLengthMinutes = defaultTargetLengthMinutes
	}
	if c.Episode.WordsPerMinute <= 0 {
		c.Episode.WordsPerMinute = defaultWordsPerMinute
	}
	if c.Episode.ChunkTargetTurns <= 0 {
		c.Episode.ChunkTargetTurns = defaultChunkTargetTurns
	}
	if c.Episode.ChunkThresholdTurns <= 0 {
		c.Episode.ChunkThresholdTurns = defaultChunkThresholdTurns
	}
	if c.Episode.GapMilliseconds < 0 {
		c.Episode.GapMilliseconds = defaultGapMilliseconds
	}
	if c.Episode.InterChunkDelaySeconds < 0 {
		c.Episode.InterChunkDelaySeconds = defaultInterChunkDelay
	}
	if c.Episode.PipelineAttempts <= 0 {
		c.Episode.PipelineAttempts = defaultPipelineAttempts
	}
	if c.Episode.PipelineRetryDelaySeconds <= 0 {
		c.Episode.PipelineRetryDelaySeconds = defaultPipelineRetryDelay
	}
}

func (c *Config) normalizeWorkflow() {
	if c.Workflow.Workers <= 0 {
		c.Workflow.Workers = defaultWorkers
	}
	if c.Workflow.QueuePollInterval <= 0 {
		c.Workflow.QueuePollInterval = defaultQueuePollInterval
	}
	if c.Workflow.ErrorRetryInterval <= 0 {
		c.Workflow.ErrorRetryInterval = defaultErrorRetryInterval
	}
	if c.Workflow.StaleCheckInterval <= 0 {
		c.Workflow.StaleCheckInterval = defaultStaleCheckInterval
	}
	if c.Workflow.StaleTimeoutMinutes <= 0 {
		c.Workflow.StaleTimeoutMinutes = defaultStaleTimeoutMinutes
	}
	if c.Workflow.ShutdownJoinTimeout <= 0 {
		c.Workflow.ShutdownJoinTimeout = defaultShutdownJoinTimeout
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
