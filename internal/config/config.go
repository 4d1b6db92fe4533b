package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	IntakeDir   string `toml:"intake_dir"`
	ProjectsDir string `toml:"projects_dir"`
	StagingDir  string `toml:"staging_dir"`
	LogDir      string `toml:"log_dir"`
}

// OpenAI contains connection settings for the transcription and chat APIs.
type OpenAI struct {
	APIKey            string `toml:"api_key"`
	BaseURL           string `toml:"base_url"`
	TranscribeModel   string `toml:"transcribe_model"`
	ChatModel         string `toml:"chat_model"`
	Language          string `toml:"language"`
	TimeoutSeconds    int    `toml:"timeout_seconds"`
	RequestsPerMinute int    `toml:"requests_per_minute"`
}

// Transcription contains audio preparation and upload settings.
type Transcription struct {
	SegmentSeconds int      `toml:"segment_seconds"`
	SampleRate     int      `toml:"sample_rate"`
	Bitrate        string   `toml:"bitrate"`
	Workers        int      `toml:"workers"`
	Formats        []string `toml:"formats"`
}

// Correction contains transcript correction settings.
type Correction struct {
	Enabled       bool    `toml:"enabled"`
	Mode          string  `toml:"mode"`
	Temperature   float32 `toml:"temperature"`
	UnitMaxChars  int     `toml:"unit_max_chars"`
	MaxAttempts   int     `toml:"max_attempts"`
	MaxDriftRatio float64 `toml:"max_drift_ratio"`
}

// Ideas contains key-idea extraction settings.
type Ideas struct {
	Enabled     bool    `toml:"enabled"`
	Count       int     `toml:"count"`
	ActOne      int     `toml:"act_one"`
	ActTwo      int     `toml:"act_two"`
	ActThree    int     `toml:"act_three"`
	Temperature float32 `toml:"temperature"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
}

// Workflow contains timing configuration for the queue processor.
type Workflow struct {
	QueuePollInterval  int `toml:"queue_poll_interval"`
	ErrorRetryInterval int `toml:"error_retry_interval"`
	HeartbeatInterval  int `toml:"heartbeat_interval"`
	HeartbeatTimeout   int `toml:"heartbeat_timeout"`
	WatchSettleSeconds int `toml:"watch_settle_seconds"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for pulpit.
//
// Configuration sections by subsystem:
//   - Paths: intake, project, staging, and log directories
//   - OpenAI: Whisper transcription and chat correction API settings
//   - Transcription: ffmpeg audio preparation and segment upload settings
//   - Correction: transcript correction mode and guard rails
//   - Ideas: key-idea extraction settings
//   - Notifications: ntfy push notification settings
//   - Workflow: queue polling intervals and timeouts
//   - Logging: log format and level
type Config struct {
	Paths         Paths         `toml:"paths"`
	OpenAI        OpenAI        `toml:"openai"`
	Transcription Transcription `toml:"transcription"`
	Correction    Correction    `toml:"correction"`
	Ideas         Ideas         `toml:"ideas"`
	Notifications Notifications `toml:"notifications"`
	Workflow      Workflow      `toml:"workflow"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration
// file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/pulpit/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned
// config has all path fields expanded and normalized. A .env file in the
// working directory is loaded first so OPENAI_API_KEY can live outside the
// TOML file.
func Load(path string) (*Config, string, bool, error) {
	// Missing .env is the common case and not an error.
	_ = godotenv.Load()

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

	projectPath, err := filepath.Abs("pulpit.toml")
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

// WriteSample writes the embedded sample configuration to the given path,
// creating parent directories as needed. Fails when the file already exists.
func WriteSample(path string) error {
	expanded, err := expandPath(path)
	if err != nil {
		return err
	}
	if _, err := os.Stat(expanded); err == nil {
		return fmt.Errorf("config file already exists at %s", expanded)
	} else if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("stat config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(expanded), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	if err := os.WriteFile(expanded, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

// EnsureDirectories creates required directories for pipeline operation.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.IntakeDir, c.Paths.ProjectsDir, c.Paths.StagingDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// FFmpegBinary returns the ffmpeg executable name used for audio extraction.
func (c *Config) FFmpegBinary() string {
	return "ffmpeg"
}

// FFprobeBinary returns the ffprobe executable name used for media inspection.
func (c *Config) FFprobeBinary() string {
	return "ffprobe"
}

// AcceptsFormat reports whether a filename extension is accepted for intake.
func (c *Config) AcceptsFormat(path string) bool {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
	if ext == "" {
		return false
	}
	for _, format := range c.Transcription.Formats {
		if strings.EqualFold(strings.TrimPrefix(format, "."), ext) {
			return true
		}
	}
	return false
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
