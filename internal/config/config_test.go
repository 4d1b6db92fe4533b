package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"pulpit/internal/config"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadAppliesDefaultsAndOverrides(t *testing.T) {
	base := t.TempDir()
	t.Setenv("OPENAI_API_KEY", "")
	path := writeConfig(t, `
[openai]
api_key = "sk-test"
language = "en"

[paths]
intake_dir = "`+filepath.Join(base, "intake")+`"
projects_dir = "`+filepath.Join(base, "projects")+`"
staging_dir = "`+filepath.Join(base, "staging")+`"
log_dir = "`+filepath.Join(base, "logs")+`"

[transcription]
segment_seconds = 120
workers = 4
`)

	cfg, resolvedPath, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !exists {
		t.Fatal("expected config file to be reported as existing")
	}
	if resolvedPath != path {
		t.Fatalf("resolved path = %q, want %q", resolvedPath, path)
	}
	if cfg.OpenAI.APIKey != "sk-test" || cfg.OpenAI.Language != "en" {
		t.Fatalf("openai section = %+v", cfg.OpenAI)
	}
	if cfg.Transcription.SegmentSeconds != 120 || cfg.Transcription.Workers != 4 {
		t.Fatalf("transcription overrides lost: %+v", cfg.Transcription)
	}
	// Untouched fields keep their defaults.
	if cfg.OpenAI.ChatModel != "gpt-4-turbo" || cfg.OpenAI.TranscribeModel != "whisper-1" {
		t.Fatalf("model defaults lost: %+v", cfg.OpenAI)
	}
	if cfg.Correction.Mode != "document" || !cfg.Correction.Enabled {
		t.Fatalf("correction defaults lost: %+v", cfg.Correction)
	}
	if cfg.Ideas.Count != 7 || cfg.Ideas.ActThree != 3 {
		t.Fatalf("ideas defaults lost: %+v", cfg.Ideas)
	}
}

func TestLoadReadsAPIKeyFromEnvironment(t *testing.T) {
	base := t.TempDir()
	t.Setenv("OPENAI_API_KEY", "sk-from-env")
	path := writeConfig(t, `
[paths]
intake_dir = "`+filepath.Join(base, "intake")+`"
projects_dir = "`+filepath.Join(base, "projects")+`"
staging_dir = "`+filepath.Join(base, "staging")+`"
log_dir = "`+filepath.Join(base, "logs")+`"
`)

	cfg, _, _, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.OpenAI.APIKey != "sk-from-env" {
		t.Fatalf("api key = %q, want env value", cfg.OpenAI.APIKey)
	}
}

func TestLoadEnvironmentKeyOverridesFile(t *testing.T) {
	base := t.TempDir()
	t.Setenv("OPENAI_API_KEY", "sk-from-env")
	path := writeConfig(t, `
[openai]
api_key = "sk-from-file"

[paths]
intake_dir = "`+filepath.Join(base, "intake")+`"
projects_dir = "`+filepath.Join(base, "projects")+`"
staging_dir = "`+filepath.Join(base, "staging")+`"
log_dir = "`+filepath.Join(base, "logs")+`"
`)

	cfg, _, _, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.OpenAI.APIKey != "sk-from-env" {
		t.Fatalf("api key = %q, env should win over the file", cfg.OpenAI.APIKey)
	}
}

func TestLoadRejectsMissingAPIKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	os.Unsetenv("OPENAI_API_KEY")
	path := writeConfig(t, `
[paths]
intake_dir = "/tmp/pulpit-test/intake"
projects_dir = "/tmp/pulpit-test/projects"
staging_dir = "/tmp/pulpit-test/staging"
`)

	_, _, _, err := config.Load(path)
	if err == nil || !strings.Contains(err.Error(), "api_key") {
		t.Fatalf("expected api key error, got %v", err)
	}
}

func TestValidate(t *testing.T) {
	valid := func() config.Config {
		cfg := config.Default()
		cfg.OpenAI.APIKey = "sk-test"
		return cfg
	}

	tests := []struct {
		name     string
		mutate   func(*config.Config)
		fragment string
	}{
		{
			name:     "segment seconds too small",
			mutate:   func(c *config.Config) { c.Transcription.SegmentSeconds = 10 },
			fragment: "segment_seconds",
		},
		{
			name:     "too many workers",
			mutate:   func(c *config.Config) { c.Transcription.Workers = 9 },
			fragment: "workers",
		},
		{
			name:     "bad correction mode",
			mutate:   func(c *config.Config) { c.Correction.Mode = "aggressive" },
			fragment: "correction.mode",
		},
		{
			name:     "drift ratio too large",
			mutate:   func(c *config.Config) { c.Correction.MaxDriftRatio = 1.5 },
			fragment: "max_drift_ratio",
		},
		{
			name:     "idea distribution mismatch",
			mutate:   func(c *config.Config) { c.Ideas.ActOne = 5 },
			fragment: "distribution",
		},
		{
			name:     "bad log format",
			mutate:   func(c *config.Config) { c.Logging.Format = "xml" },
			fragment: "logging.format",
		},
		{
			name:     "intake equals staging",
			mutate:   func(c *config.Config) { c.Paths.StagingDir = c.Paths.IntakeDir },
			fragment: "must differ",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			if err := cfg.Validate(); err != nil {
				t.Fatalf("baseline config invalid: %v", err)
			}
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.fragment) {
				t.Fatalf("error %q missing %q", err.Error(), tt.fragment)
			}
		})
	}
}

func TestValidateAllowsDisabledIdeasMismatch(t *testing.T) {
	cfg := config.Default()
	cfg.OpenAI.APIKey = "sk-test"
	cfg.Ideas.Enabled = false
	cfg.Ideas.ActOne = 5
	if err := cfg.Validate(); err != nil {
		t.Fatalf("disabled ideas should skip distribution check: %v", err)
	}
}

func TestWriteSampleRefusesOverwrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := config.WriteSample(path); err != nil {
		t.Fatalf("WriteSample: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	if !strings.Contains(string(data), "[openai]") {
		t.Fatalf("sample config missing openai section: %q", string(data))
	}
	if err := config.WriteSample(path); err == nil {
		t.Fatal("expected error when file exists")
	}
}

func TestSampleConfigParses(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := config.WriteSample(path); err != nil {
		t.Fatalf("WriteSample: %v", err)
	}
	t.Setenv("OPENAI_API_KEY", "sk-sample")
	if _, _, _, err := config.Load(path); err != nil {
		t.Fatalf("sample config should load: %v", err)
	}
}

func TestAcceptsFormat(t *testing.T) {
	cfg := config.Default()

	tests := []struct {
		path string
		want bool
	}{
		{"/intake/sermon.mp4", true},
		{"/intake/sermon.MP4", true},
		{"/intake/sermon.mkv", true},
		{"/intake/audio.mp3", true},
		{"/intake/audio.m4a", true},
		{"/intake/notes.txt", false},
		{"/intake/noextension", false},
	}
	for _, tt := range tests {
		if got := cfg.AcceptsFormat(tt.path); got != tt.want {
			t.Errorf("AcceptsFormat(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}
}

func TestEnsureDirectories(t *testing.T) {
	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.IntakeDir = filepath.Join(base, "a", "intake")
	cfg.Paths.ProjectsDir = filepath.Join(base, "b", "projects")
	cfg.Paths.StagingDir = filepath.Join(base, "c", "staging")
	cfg.Paths.LogDir = filepath.Join(base, "d", "logs")

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	for _, dir := range []string{cfg.Paths.IntakeDir, cfg.Paths.ProjectsDir, cfg.Paths.StagingDir, cfg.Paths.LogDir} {
		info, err := os.Stat(dir)
		if err != nil || !info.IsDir() {
			t.Fatalf("directory %s not created: %v", dir, err)
		}
	}
}
