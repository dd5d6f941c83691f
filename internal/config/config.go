package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and bind address configuration.
type Paths struct {
	StagingDir string `toml:"staging_dir"`
	OutputDir  string `toml:"output_dir"`
	LogDir     string `toml:"log_dir"`
	APIBind    string `toml:"api_bind"`
	APIToken   string `toml:"api_token"`
}

// TextGen contains connection settings for the outline and script provider.
type TextGen struct {
	APIKey            string `toml:"api_key"`
	BaseURL           string `toml:"base_url"`
	Model             string `toml:"model"`
	MaxRetries        int    `toml:"max_retries"`
	RetryDelaySeconds int    `toml:"retry_delay_seconds"`
	TimeoutSeconds    int    `toml:"timeout_seconds"`
}

// Speech contains connection settings for the text-to-speech provider.
type Speech struct {
	APIKey             string `toml:"api_key"`
	BaseURL            string `toml:"base_url"`
	Model              string `toml:"model"`
	HostVoice          string `toml:"host_voice"`
	GuestVoice         string `toml:"guest_voice"`
	Attempts           int    `toml:"attempts"`
	RetryDelaySeconds  []int  `toml:"retry_delays"`
	HardTimeoutSeconds int    `toml:"hard_timeout_seconds"`
}

// Artifacts contains settings for the object storage where finished
// episodes are uploaded.
type Artifacts struct {
	BaseURL    string `toml:"base_url"`
	ServiceKey string `toml:"service_key"`
	Bucket     string `toml:"bucket"`
}

// Episode contains generation thresholds and audio assembly settings.
type Episode struct {
	TargetLengthMinutes       int `toml:"target_length_minutes"`
	WordsPerMinute            int `toml:"words_per_minute"`
	ChunkTargetTurns          int `toml:"chunk_target_turns"`
	ChunkThresholdTurns       int `toml:"chunk_threshold_turns"`
	GapMilliseconds           int `toml:"gap_ms"`
	InterChunkDelaySeconds    int `toml:"interchunk_delay_seconds"`
	PipelineAttempts          int `toml:"pipeline_attempts"`
	PipelineRetryDelaySeconds int `toml:"pipeline_retry_delay_seconds"`
}

// Workflow contains worker pool timing and intervals.
type Workflow struct {
	Workers             int `toml:"workers"`
	QueuePollInterval   int `toml:"queue_poll_interval"`
	ErrorRetryInterval  int `toml:"error_retry_interval"`
	StaleCheckInterval  int `toml:"stale_check_interval"`
	StaleTimeoutMinutes int `toml:"stale_timeout_minutes"`
	ShutdownJoinTimeout int `toml:"shutdown_join_timeout"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
	EpisodeReady   bool   `toml:"episode_ready"`
	Errors         bool   `toml:"errors"`
	Queue          bool   `toml:"queue"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for gistcast.
//
// Configuration sections by subsystem:
//   - Paths: working directories and API bind address
//   - TextGen: outline and script generation provider
//   - Speech: text-to-speech provider and retry schedule
//   - Artifacts: episode upload storage
//   - Episode: length targets, chunking, and audio assembly
//   - Workflow: worker pool sizing, polling, and stale recovery
//   - Notifications: ntfy push notification settings
//   - Logging: log format and level
type Config struct {
	Paths         Paths         `toml:"paths"`
	TextGen       TextGen       `toml:"textgen"`
	Speech        Speech        `toml:"speech"`
	Artifacts     Artifacts     `toml:"artifacts"`
	Episode       Episode       `toml:"episode"`
	Workflow      Workflow      `toml:"workflow"`
	Notifications Notifications `toml:"notifications"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/gistcast/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config
// has all path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("gistcast.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for daemon operation.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.StagingDir, c.Paths.OutputDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// DatabasePath returns the SQLite database location inside the staging directory.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.Paths.StagingDir, "gistcast.db")
}

// FFmpegBinary returns the ffmpeg executable name used for audio encoding.
func (c *Config) FFmpegBinary() string {
	return "ffmpeg"
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	sample := sampleConfig

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sample), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
