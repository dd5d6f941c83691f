package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateTextGen(); err != nil {
		return err
	}
	if err := c.validateSpeech(); err != nil {
		return err
	}
	if err := c.validateArtifacts(); err != nil {
		return err
	}
	if err := c.validateEpisode(); err != nil {
		return err
	}
	if err := c.validateWorkflow(); err != nil {
		return err
	}
	if err := c.validateNotifications(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateTextGen() error {
	if c.TextGen.APIKey == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = "~/.config/gistcast/config.toml"
		}
		return fmt.Errorf("textgen.api_key is required. Set GISTCAST_TEXTGEN_API_KEY env var or edit %s (create with 'gistcast config init')", defaultPath)
	}
	if c.TextGen.BaseURL == "" {
		return errors.New("textgen.base_url must be set")
	}
	if c.TextGen.Model == "" {
		return errors.New("textgen.model must be set")
	}
	return ensurePositiveMap(map[string]int{
		"textgen.max_retries":         c.TextGen.MaxRetries,
		"textgen.retry_delay_seconds": c.TextGen.RetryDelaySeconds,
		"textgen.timeout_seconds":     c.TextGen.TimeoutSeconds,
	})
}

func (c *Config) validateSpeech() error {
	if c.Speech.APIKey == "" {
		return errors.New("speech.api_key is required (or set GISTCAST_SPEECH_API_KEY)")
	}
	if c.Speech.HostVoice == "" || c.Speech.GuestVoice == "" {
		return errors.New("speech.host_voice and speech.guest_voice must be set")
	}
	if c.Speech.HostVoice == c.Speech.GuestVoice {
		return errors.New("speech.host_voice and speech.guest_voice must differ")
	}
	if err := ensurePositiveMap(map[string]int{
		"speech.attempts":             c.Speech.Attempts,
		"speech.hard_timeout_seconds": c.Speech.HardTimeoutSeconds,
	}); err != nil {
		return err
	}
	for _, delay := range c.Speech.RetryDelaySeconds {
		if delay <= 0 {
			return errors.New("speech.retry_delays entries must be positive")
		}
	}
	return nil
}

func (c *Config) validateArtifacts() error {
	if strings.TrimSpace(c.Artifacts.BaseURL) == "" {
		// Uploads are optional; episodes stay on disk when unset.
		return nil
	}
	if strings.TrimSpace(c.Artifacts.ServiceKey) == "" {
		return errors.New("artifacts.service_key must be set when artifacts.base_url is configured")
	}
	if strings.TrimSpace(c.Artifacts.Bucket) == "" {
		return errors.New("artifacts.bucket must be set when artifacts.base_url is configured")
	}
	return nil
}

func (c *Config) validateEpisode() error {
	if err := ensurePositiveMap(map[string]int{
		"episode.target_length_minutes":        c.Episode.TargetLengthMinutes,
		"episode.words_per_minute":             c.Episode.WordsPerMinute,
		"episode.chunk_target_turns":           c.Episode.ChunkTargetTurns,
		"episode.chunk_threshold_turns":        c.Episode.ChunkThresholdTurns,
		"episode.pipeline_attempts":            c.Episode.PipelineAttempts,
		"episode.pipeline_retry_delay_seconds": c.Episode.PipelineRetryDelaySeconds,
	}); err != nil {
		return err
	}
	if c.Episode.GapMilliseconds < 0 {
		return errors.New("episode.gap_ms must be >= 0")
	}
	if c.Episode.InterChunkDelaySeconds < 0 {
		return errors.New("episode.interchunk_delay_seconds must be >= 0")
	}
	return nil
}

func (c *Config) validateWorkflow() error {
	if err := ensurePositiveMap(map[string]int{
		"workflow.workers":               c.Workflow.Workers,
		"workflow.queue_poll_interval":   c.Workflow.QueuePollInterval,
		"workflow.error_retry_interval":  c.Workflow.ErrorRetryInterval,
		"workflow.stale_check_interval":  c.Workflow.StaleCheckInterval,
		"workflow.stale_timeout_minutes": c.Workflow.StaleTimeoutMinutes,
		"workflow.shutdown_join_timeout": c.Workflow.ShutdownJoinTimeout,
	}); err != nil {
		return err
	}
	if c.Workflow.StaleTimeoutMinutes*60 <= c.Workflow.StaleCheckInterval {
		return errors.New("workflow.stale_timeout_minutes must exceed workflow.stale_check_interval")
	}
	return nil
}

func (c *Config) validateNotifications() error {
	if c.Notifications.RequestTimeout <= 0 {
		return errors.New("notifications.request_timeout must be positive")
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
