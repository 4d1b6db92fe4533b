package transcript

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// Segment is one timestamped span of speech, with times relative to the
// start of the full recording.
type Segment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

// Transcript is the assembled transcription of a full recording.
type Transcript struct {
	Title        string    `json:"title"`
	SourceFile   string    `json:"source_file"`
	AudioFile    string    `json:"audio_file"`
	Language     string    `json:"language"`
	Duration     float64   `json:"duration"`
	SegmentCount int       `json:"segment_count"`
	CreatedAt    time.Time `json:"created_at"`
	Text         string    `json:"text"`
	Segments     []Segment `json:"segments"`
}

// Part is the transcription of one audio chunk together with the chunk's
// offset from the start of the recording.
type Part struct {
	Index    int
	Offset   float64
	Text     string
	Language string
	Duration float64
	Segments []Segment
}

// Merge assembles chunk transcriptions into a single transcript, rebasing
// each chunk's segment timestamps by the chunk offset.
func Merge(parts []Part) (Transcript, error) {
	if len(parts) == 0 {
		return Transcript{}, errors.New("transcript merge: no parts")
	}

	ordered := make([]Part, len(parts))
	copy(ordered, parts)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].Index < ordered[j].Index })

	var result Transcript
	var texts []string
	for _, part := range ordered {
		if text := strings.TrimSpace(part.Text); text != "" {
			texts = append(texts, text)
		}
		if result.Language == "" {
			result.Language = part.Language
		}
		for _, segment := range part.Segments {
			result.Segments = append(result.Segments, Segment{
				Start: part.Offset + segment.Start,
				End:   part.Offset + segment.End,
				Text:  strings.TrimSpace(segment.Text),
			})
		}
		if end := part.Offset + part.Duration; end > result.Duration {
			result.Duration = end
		}
	}

	result.Text = strings.Join(texts, " ")
	result.SegmentCount = len(parts)
	result.CreatedAt = time.Now().UTC()
	return result, nil
}

// Save writes the transcript as indented JSON.
func (t Transcript) Save(path string) error {
	encoded, err := json.MarshalIndent(t, "", "  ")
	if err != nil {
		return fmt.Errorf("transcript save: encode: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("transcript save: %w", err)
	}
	if err := os.WriteFile(path, encoded, 0o644); err != nil {
		return fmt.Errorf("transcript save: %w", err)
	}
	return nil
}

// Load reads a transcript previously written by Save.
func Load(path string) (Transcript, error) {
	var t Transcript
	data, err := os.ReadFile(path)
	if err != nil {
		return t, fmt.Errorf("transcript load: %w", err)
	}
	if err := json.Unmarshal(data, &t); err != nil {
		return t, fmt.Errorf("transcript load: decode %s: %w", filepath.Base(path), err)
	}
	return t, nil
}

const textSeparatorWidth = 80

// ExportText renders the transcript as a plain text document with a short
// metadata header.
func (t Transcript) ExportText() string {
	var b strings.Builder
	title := strings.TrimSpace(t.Title)
	if title == "" {
		title = "Untitled"
	}
	fmt.Fprintf(&b, "Transcription: %s\n", title)
	if t.SourceFile != "" {
		fmt.Fprintf(&b, "Source: %s\n", filepath.Base(t.SourceFile))
	}
	if !t.CreatedAt.IsZero() {
		fmt.Fprintf(&b, "Date: %s\n", t.CreatedAt.Format("2006-01-02 15:04:05"))
	}
	if t.Duration > 0 {
		fmt.Fprintf(&b, "Duration: %s\n", FormatTimestamp(t.Duration))
	}
	b.WriteString(strings.Repeat("=", textSeparatorWidth))
	b.WriteString("\n\n")
	b.WriteString(strings.TrimSpace(t.Text))
	b.WriteString("\n")
	return b.String()
}

// ExportTimestamped renders the transcript with one timestamped line per
// segment.
func (t Transcript) ExportTimestamped() string {
	var b strings.Builder
	for _, segment := range t.Segments {
		fmt.Fprintf(&b, "[%s] %s\n", FormatTimestamp(segment.Start), segment.Text)
	}
	return b.String()
}

// FormatTimestamp renders seconds as HH:MM:SS.
func FormatTimestamp(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	total := int(seconds)
	return fmt.Sprintf("%02d:%02d:%02d", total/3600, (total%3600)/60, total%60)
}
