package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeCLIConfig(t *testing.T) string {
	t.Helper()
	base := t.TempDir()
	content := `
[openai]
api_key = "sk-test"

[paths]
intake_dir = "` + filepath.Join(base, "intake") + `"
projects_dir = "` + filepath.Join(base, "projects") + `"
staging_dir = "` + filepath.Join(base, "staging") + `"
log_dir = "` + filepath.Join(base, "logs") + `"
`
	path := filepath.Join(base, "config.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestAddQueuesRecording(t *testing.T) {
	configPath := writeCLIConfig(t)
	source := filepath.Join(t.TempDir(), "la_fe_que_vence.mp4")
	if err := os.WriteFile(source, []byte("fake video"), 0o644); err != nil {
		t.Fatalf("write source: %v", err)
	}

	output, err := runCLI(t, "add", source, "--config", configPath)
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if !strings.Contains(output, "Queued item 1: La Fe Que Vence") {
		t.Fatalf("output = %q", output)
	}

	output, err = runCLI(t, "add", source, "--config", configPath)
	if err != nil {
		t.Fatalf("second add: %v", err)
	}
	if !strings.Contains(output, "Already queued as item 1") {
		t.Fatalf("output = %q", output)
	}
}

func TestAddRejectsUnsupportedFormat(t *testing.T) {
	configPath := writeCLIConfig(t)
	source := filepath.Join(t.TempDir(), "notes.txt")
	if err := os.WriteFile(source, []byte("notes"), 0o644); err != nil {
		t.Fatalf("write source: %v", err)
	}

	_, err := runCLI(t, "add", source, "--config", configPath)
	if err == nil || !strings.Contains(err.Error(), "unsupported format") {
		t.Fatalf("expected unsupported format error, got %v", err)
	}
}

func TestQueueListEmpty(t *testing.T) {
	configPath := writeCLIConfig(t)
	output, err := runCLI(t, "queue", "list", "--config", configPath)
	if err != nil {
		t.Fatalf("queue list: %v", err)
	}
	if !strings.Contains(output, "Queue is empty.") {
		t.Fatalf("output = %q", output)
	}
}

func TestQueueListRejectsUnknownStatus(t *testing.T) {
	configPath := writeCLIConfig(t)
	_, err := runCLI(t, "queue", "list", "--status", "sleeping", "--config", configPath)
	if err == nil || !strings.Contains(err.Error(), "unknown status") {
		t.Fatalf("expected unknown status error, got %v", err)
	}
}

func TestQueueStatusCountsItems(t *testing.T) {
	configPath := writeCLIConfig(t)
	source := filepath.Join(t.TempDir(), "sermon.mp4")
	if err := os.WriteFile(source, []byte("fake video"), 0o644); err != nil {
		t.Fatalf("write source: %v", err)
	}
	if _, err := runCLI(t, "add", source, "--config", configPath); err != nil {
		t.Fatalf("add: %v", err)
	}

	output, err := runCLI(t, "queue", "status", "--config", configPath)
	if err != nil {
		t.Fatalf("queue status: %v", err)
	}
	if !strings.Contains(output, "pending") || !strings.Contains(output, "total") {
		t.Fatalf("output = %q", output)
	}
}

func TestQueueRetryWithEmptyQueue(t *testing.T) {
	configPath := writeCLIConfig(t)
	output, err := runCLI(t, "queue", "retry", "--config", configPath)
	if err != nil {
		t.Fatalf("queue retry: %v", err)
	}
	if !strings.Contains(output, "Retrying 0 item(s)") {
		t.Fatalf("output = %q", output)
	}
}

func TestConfigInitWritesSample(t *testing.T) {
	target := filepath.Join(t.TempDir(), "config.toml")

	output, err := runCLI(t, "config", "init", "--path", target)
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	if !strings.Contains(output, "Wrote sample configuration to "+target) {
		t.Fatalf("output = %q", output)
	}
	data, err := os.ReadFile(target)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	if !strings.Contains(string(data), "[transcription]") {
		t.Fatalf("sample missing sections: %q", string(data))
	}

	if _, err := runCLI(t, "config", "init", "--path", target); err == nil {
		t.Fatal("expected error when target already exists")
	}
}

func TestConfigValidate(t *testing.T) {
	configPath := writeCLIConfig(t)
	output, err := runCLI(t, "config", "validate", "--config", configPath)
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	if !strings.Contains(output, "is valid") {
		t.Fatalf("output = %q", output)
	}
	if !strings.Contains(output, "Notifications are disabled") {
		t.Fatalf("output = %q", output)
	}
}

func TestConfigShowRendersEffectiveSettings(t *testing.T) {
	configPath := writeCLIConfig(t)
	output, err := runCLI(t, "config", "show", "--config", configPath)
	if err != nil {
		t.Fatalf("config show: %v", err)
	}
	for _, fragment := range []string{"Config file", "Transcribe model", "whisper-1", "Correction mode", "document"} {
		if !strings.Contains(output, fragment) {
			t.Fatalf("output missing %q: %q", fragment, output)
		}
	}
}

func TestTestNotifyRequiresTopic(t *testing.T) {
	configPath := writeCLIConfig(t)
	_, err := runCLI(t, "test-notify", "--config", configPath)
	if err == nil {
		t.Fatal("expected error without ntfy topic")
	}
}
