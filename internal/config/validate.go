package config

import (
	"errors"
	"fmt"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateOpenAI(); err != nil {
		return err
	}
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateTranscription(); err != nil {
		return err
	}
	if err := c.validateCorrection(); err != nil {
		return err
	}
	if err := c.validateIdeas(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateOpenAI() error {
	if c.OpenAI.APIKey == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = "~/.config/pulpit/config.toml"
		}
		return fmt.Errorf("openai.api_key is required. Set OPENAI_API_KEY env var (a .env file works) or edit %s (create with 'pulpit config init')", defaultPath)
	}
	return nil
}

func (c *Config) validatePaths() error {
	if c.Paths.IntakeDir == "" {
		return errors.New("paths.intake_dir must be set")
	}
	if c.Paths.ProjectsDir == "" {
		return errors.New("paths.projects_dir must be set")
	}
	if c.Paths.StagingDir == "" {
		return errors.New("paths.staging_dir must be set")
	}
	if c.Paths.IntakeDir == c.Paths.StagingDir {
		return errors.New("paths.intake_dir and paths.staging_dir must differ")
	}
	return nil
}

func (c *Config) validateTranscription() error {
	if c.Transcription.SegmentSeconds < 30 {
		return errors.New("transcription.segment_seconds must be at least 30")
	}
	if c.Transcription.Workers > 8 {
		return errors.New("transcription.workers must be 8 or fewer")
	}
	return nil
}

func (c *Config) validateCorrection() error {
	switch c.Correction.Mode {
	case "document", "units":
	default:
		return fmt.Errorf("correction.mode must be %q or %q, got %q", "document", "units", c.Correction.Mode)
	}
	if c.Correction.MaxDriftRatio >= 1 {
		return errors.New("correction.max_drift_ratio must be below 1")
	}
	return nil
}

func (c *Config) validateIdeas() error {
	if !c.Ideas.Enabled {
		return nil
	}
	if c.Ideas.ActOne+c.Ideas.ActTwo+c.Ideas.ActThree != c.Ideas.Count {
		return fmt.Errorf("ideas act distribution %d/%d/%d must sum to ideas.count (%d)",
			c.Ideas.ActOne, c.Ideas.ActTwo, c.Ideas.ActThree, c.Ideas.Count)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be %q or %q, got %q", "console", "json", c.Logging.Format)
	}
	return nil
}
