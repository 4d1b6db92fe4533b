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
	c.normalizeOpenAI()
	c.normalizeTranscription()
	c.normalizeCorrection()
	c.normalizeIdeas()
	c.normalizeWorkflow()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.IntakeDir, err = expandPath(c.Paths.IntakeDir); err != nil {
		return fmt.Errorf("paths.intake_dir: %w", err)
	}
	if c.Paths.ProjectsDir, err = expandPath(c.Paths.ProjectsDir); err != nil {
		return fmt.Errorf("paths.projects_dir: %w", err)
	}
	if c.Paths.StagingDir, err = expandPath(c.Paths.StagingDir); err != nil {
		return fmt.Errorf("paths.staging_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeOpenAI() {
	// OPENAI_API_KEY overrides the config file so a key never has to be
	// written to disk; the TOML value is the fallback.
	if value := strings.TrimSpace(os.Getenv("OPENAI_API_KEY")); value != "" {
		c.OpenAI.APIKey = value
	}
	c.OpenAI.BaseURL = strings.TrimRight(strings.TrimSpace(c.OpenAI.BaseURL), "/")
	if c.OpenAI.BaseURL == "" {
		c.OpenAI.BaseURL = defaultOpenAIBaseURL
	}
	if strings.TrimSpace(c.OpenAI.TranscribeModel) == "" {
		c.OpenAI.TranscribeModel = defaultTranscribeModel
	}
	if strings.TrimSpace(c.OpenAI.ChatModel) == "" {
		c.OpenAI.ChatModel = defaultChatModel
	}
	if c.OpenAI.TimeoutSeconds <= 0 {
		c.OpenAI.TimeoutSeconds = defaultOpenAITimeout
	}
	if c.OpenAI.RequestsPerMinute <= 0 {
		c.OpenAI.RequestsPerMinute = defaultRequestsPerMinute
	}
}

func (c *Config) normalizeTranscription() {
	if c.Transcription.SegmentSeconds <= 0 {
		c.Transcription.SegmentSeconds = defaultSegmentSeconds
	}
	if c.Transcription.SampleRate <= 0 {
		c.Transcription.SampleRate = defaultSampleRate
	}
	if strings.TrimSpace(c.Transcription.Bitrate) == "" {
		c.Transcription.Bitrate = defaultBitrate
	}
	if c.Transcription.Workers <= 0 {
		c.Transcription.Workers = defaultTranscribeWorkers
	}
	if len(c.Transcription.Formats) == 0 {
		c.Transcription.Formats = defaultFormats()
	}
}

func (c *Config) normalizeCorrection() {
	c.Correction.Mode = strings.ToLower(strings.TrimSpace(c.Correction.Mode))
	if c.Correction.Mode == "" {
		c.Correction.Mode = defaultCorrectionMode
	}
	if c.Correction.Temperature <= 0 {
		c.Correction.Temperature = defaultCorrectionTemp
	}
	if c.Correction.UnitMaxChars <= 0 {
		c.Correction.UnitMaxChars = defaultUnitMaxChars
	}
	if c.Correction.MaxAttempts <= 0 {
		c.Correction.MaxAttempts = defaultCorrectionAttempts
	}
	if c.Correction.MaxDriftRatio <= 0 {
		c.Correction.MaxDriftRatio = defaultMaxDriftRatio
	}
}

func (c *Config) normalizeIdeas() {
	if c.Ideas.Count <= 0 {
		c.Ideas.Count = defaultIdeaCount
	}
	if c.Ideas.ActOne <= 0 && c.Ideas.ActTwo <= 0 && c.Ideas.ActThree <= 0 {
		c.Ideas.ActOne, c.Ideas.ActTwo, c.Ideas.ActThree = 2, 2, 3
	}
	if c.Ideas.Temperature <= 0 {
		c.Ideas.Temperature = defaultIdeaTemp
	}
}

func (c *Config) normalizeWorkflow() {
	if c.Workflow.QueuePollInterval <= 0 {
		c.Workflow.QueuePollInterval = defaultPollInterval
	}
	if c.Workflow.ErrorRetryInterval <= 0 {
		c.Workflow.ErrorRetryInterval = defaultErrorRetryInterval
	}
	if c.Workflow.HeartbeatInterval <= 0 {
		c.Workflow.HeartbeatInterval = defaultHeartbeatInterval
	}
	if c.Workflow.HeartbeatTimeout <= 0 {
		c.Workflow.HeartbeatTimeout = defaultHeartbeatTimeout
	}
	if c.Workflow.WatchSettleSeconds <= 0 {
		c.Workflow.WatchSettleSeconds = defaultWatchSettleSeconds
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
