package audio

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
)

// ExtractParams controls WAV extraction from a source media file.
type ExtractParams struct {
	FFmpegBinary string
	SampleRate   int
}

// SegmentParams controls MP3 segmentation of an extracted WAV file.
type SegmentParams struct {
	FFmpegBinary   string
	SampleRate     int
	Bitrate        string
	SegmentSeconds int
}

// Window describes one segment of the source audio. A zero Length means the
// segment runs to the end of the file.
type Window struct {
	Index  int
	Start  float64
	Length float64
}

// Extract produces a mono 16-bit PCM WAV file suitable for transcription.
func Extract(ctx context.Context, params ExtractParams, sourcePath string, outputPath string) error {
	if strings.TrimSpace(sourcePath) == "" {
		return errors.New("audio extract: empty source path")
	}
	if strings.TrimSpace(outputPath) == "" {
		return errors.New("audio extract: empty output path")
	}
	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return fmt.Errorf("audio extract: create output directory: %w", err)
	}

	cmd := exec.CommandContext(ctx, ffmpegBinary(params.FFmpegBinary), extractArgs(params, sourcePath, outputPath)...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("audio extract: ffmpeg: %w: %s", err, tailLines(string(output), 5))
	}

	info, err := os.Stat(outputPath)
	if err != nil {
		return fmt.Errorf("audio extract: output missing: %w", err)
	}
	if info.Size() == 0 {
		return errors.New("audio extract: ffmpeg produced an empty file")
	}
	return nil
}

// PlanSegments computes the segment windows for the given total duration.
// The final window is open-ended so trailing audio is never dropped.
func PlanSegments(durationSeconds float64, segmentSeconds int) []Window {
	if durationSeconds <= 0 || segmentSeconds <= 0 {
		return []Window{{Index: 0, Start: 0, Length: 0}}
	}
	step := float64(segmentSeconds)
	var windows []Window
	for start := 0.0; start < durationSeconds; start += step {
		w := Window{Index: len(windows), Start: start, Length: step}
		if start+step >= durationSeconds {
			w.Length = 0
		}
		windows = append(windows, w)
	}
	if len(windows) == 0 {
		windows = append(windows, Window{Index: 0, Start: 0, Length: 0})
	}
	return windows
}

// Split encodes each window of the WAV file into a numbered MP3 segment under
// outputDir and returns the segment paths in order.
func Split(ctx context.Context, params SegmentParams, wavPath string, outputDir string, windows []Window) ([]string, error) {
	if strings.TrimSpace(wavPath) == "" {
		return nil, errors.New("audio split: empty source path")
	}
	if len(windows) == 0 {
		return nil, errors.New("audio split: no segment windows")
	}
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, fmt.Errorf("audio split: create output directory: %w", err)
	}

	base := strings.TrimSuffix(filepath.Base(wavPath), filepath.Ext(wavPath))
	paths := make([]string, 0, len(windows))
	for _, window := range windows {
		segmentPath := filepath.Join(outputDir, fmt.Sprintf("%s_part%03d.mp3", base, window.Index+1))
		cmd := exec.CommandContext(ctx, ffmpegBinary(params.FFmpegBinary), segmentArgs(params, window, wavPath, segmentPath)...)
		output, err := cmd.CombinedOutput()
		if err != nil {
			return nil, fmt.Errorf("audio split: segment %d: %w: %s", window.Index+1, err, tailLines(string(output), 5))
		}
		paths = append(paths, segmentPath)
	}
	return paths, nil
}

func extractArgs(params ExtractParams, sourcePath, outputPath string) []string {
	return []string{
		"-hide_banner",
		"-nostdin",
		"-y",
		"-i", sourcePath,
		"-vn",
		"-acodec", "pcm_s16le",
		"-ac", "1",
		"-ar", strconv.Itoa(sampleRate(params.SampleRate)),
		outputPath,
	}
}

func segmentArgs(params SegmentParams, window Window, wavPath, segmentPath string) []string {
	args := []string{
		"-hide_banner",
		"-nostdin",
		"-y",
		"-ss", formatSeconds(window.Start),
	}
	if window.Length > 0 {
		args = append(args, "-t", formatSeconds(window.Length))
	}
	bitrate := strings.TrimSpace(params.Bitrate)
	if bitrate == "" {
		bitrate = "32k"
	}
	args = append(args,
		"-i", wavPath,
		"-acodec", "libmp3lame",
		"-ac", "1",
		"-ar", strconv.Itoa(sampleRate(params.SampleRate)),
		"-b:a", bitrate,
		segmentPath,
	)
	return args
}

func ffmpegBinary(binary string) string {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		return "ffmpeg"
	}
	return binary
}

func sampleRate(rate int) int {
	if rate <= 0 {
		return 16000
	}
	return rate
}

func formatSeconds(value float64) string {
	return strconv.FormatFloat(value, 'f', 3, 64)
}

func tailLines(output string, n int) string {
	lines := strings.Split(strings.TrimSpace(output), "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, " | ")
}
