package ffprobe_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"pulpit/internal/media/ffprobe"
)

func stubProbe(t *testing.T, payload string) string {
	t.Helper()
	binDir := t.TempDir()
	script := "#!/bin/sh\ncat <<'EOF'\n" + payload + "\nEOF\n"
	path := filepath.Join(binDir, "ffprobe")
	if err := os.WriteFile(path, []byte(script), 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}
	return path
}

func TestInspectParsesProbeOutput(t *testing.T) {
	binary := stubProbe(t, `{
		"streams":[
			{"index":0,"codec_name":"h264","codec_type":"video"},
			{"index":1,"codec_name":"aac","codec_type":"audio","sample_rate":"48000","channels":2}
		],
		"format":{"filename":"sermon.mp4","nb_streams":2,"duration":"3722.5","size":"52428800","format_name":"mov,mp4"}
	}`)

	result, err := ffprobe.Inspect(context.Background(), binary, "sermon.mp4")
	if err != nil {
		t.Fatalf("Inspect: %v", err)
	}
	if result.AudioStreamCount() != 1 {
		t.Fatalf("audio streams = %d, want 1", result.AudioStreamCount())
	}
	if result.DurationSeconds() != 3722.5 {
		t.Fatalf("duration = %v", result.DurationSeconds())
	}
	if result.SizeBytes() != 52428800 {
		t.Fatalf("size = %d", result.SizeBytes())
	}
	if result.Streams[1].Channels != 2 {
		t.Fatalf("channels = %d", result.Streams[1].Channels)
	}
}

func TestInspectRejectsEmptyPath(t *testing.T) {
	if _, err := ffprobe.Inspect(context.Background(), "ffprobe", "  "); err == nil {
		t.Fatal("expected error for empty path")
	}
}

func TestInspectReportsBinaryFailure(t *testing.T) {
	binDir := t.TempDir()
	path := filepath.Join(binDir, "ffprobe")
	if err := os.WriteFile(path, []byte("#!/bin/sh\necho 'sermon.mp4: No such file or directory' >&2\nexit 1\n"), 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}
	if _, err := ffprobe.Inspect(context.Background(), path, "sermon.mp4"); err == nil {
		t.Fatal("expected error from failing binary")
	}
}

func TestDurationSecondsToleratesMissingValue(t *testing.T) {
	var result ffprobe.Result
	if result.DurationSeconds() != 0 {
		t.Fatalf("duration = %v, want 0", result.DurationSeconds())
	}
	if result.SizeBytes() != 0 {
		t.Fatalf("size = %d, want 0", result.SizeBytes())
	}
}
