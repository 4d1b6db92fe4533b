package transcribe

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"pulpit/internal/config"
	"pulpit/internal/logging"
	"pulpit/internal/notifications"
	"pulpit/internal/project"
	"pulpit/internal/queue"
	"pulpit/internal/services"
	"pulpit/internal/services/openai"
	"pulpit/internal/stage"
	"pulpit/internal/transcript"
)

// Speech transcribes one audio file. Implemented by the OpenAI client;
// narrowed to an interface so tests can substitute fakes.
type Speech interface {
	Transcribe(ctx context.Context, audioPath string) (openai.Transcription, error)
	HealthCheck(ctx context.Context) error
}

// Transcriber sends audio segments to the transcription API and assembles
// the combined transcript.
type Transcriber struct {
	cfg      *config.Config
	store    *queue.Store
	logger   *slog.Logger
	speech   Speech
	notifier notifications.Service
}

// NewTranscriber constructs the transcription stage handler using default dependencies.
func NewTranscriber(cfg *config.Config, store *queue.Store, logger *slog.Logger) *Transcriber {
	client := openai.NewClient(openai.Config{
		APIKey:            cfg.OpenAI.APIKey,
		BaseURL:           cfg.OpenAI.BaseURL,
		TranscribeModel:   cfg.OpenAI.TranscribeModel,
		ChatModel:         cfg.OpenAI.ChatModel,
		Language:          cfg.OpenAI.Language,
		TimeoutSeconds:    cfg.OpenAI.TimeoutSeconds,
		RequestsPerMinute: cfg.OpenAI.RequestsPerMinute,
	})
	return NewTranscriberWithDependencies(cfg, store, logger, client, notifications.NewService(cfg))
}

// NewTranscriberWithDependencies allows injecting collaborators (used in tests).
func NewTranscriberWithDependencies(cfg *config.Config, store *queue.Store, logger *slog.Logger, speech Speech, notifier notifications.Service) *Transcriber {
	stageLogger := logger
	if stageLogger != nil {
		stageLogger = stageLogger.With(logging.String("component", "transcriber"))
	}
	return &Transcriber{cfg: cfg, store: store, logger: stageLogger, speech: speech, notifier: notifier}
}

func (t *Transcriber) Prepare(ctx context.Context, item *queue.Item) error {
	logger := logging.WithContext(ctx, t.logger)
	item.InitProgress("Transcribing", "Preparing transcription")

	if strings.TrimSpace(item.AudioFile) == "" {
		return services.Wrap(services.ErrValidation, "transcribing", "validate inputs",
			"no extracted audio present; run extraction first", nil)
	}
	if strings.TrimSpace(item.ProjectDir) == "" {
		return services.Wrap(services.ErrValidation, "transcribing", "validate inputs",
			"queue item has no project directory", nil)
	}
	segments, err := segmentFiles(item.ProjectDir)
	if err != nil {
		return services.Wrap(services.ErrValidation, "transcribing", "validate inputs",
			"could not list audio segments", err)
	}
	if len(segments) == 0 {
		return services.Wrap(services.ErrValidation, "transcribing", "validate inputs",
			"no audio segments found; re-run extraction", nil)
	}

	logger.Info("starting transcription preparation", logging.Int("segments", len(segments)))
	return nil
}

func (t *Transcriber) Execute(ctx context.Context, item *queue.Item) error {
	logger := logging.WithContext(ctx, t.logger)

	segments, err := segmentFiles(item.ProjectDir)
	if err != nil {
		return services.Wrap(services.ErrValidation, "transcribing", "list segments", "could not list audio segments", err)
	}

	workers := t.cfg.Transcription.Workers
	if workers <= 0 {
		workers = 1
	}
	offsetStep := float64(t.cfg.Transcription.SegmentSeconds)

	parts := make([]transcript.Part, len(segments))
	var mu sync.Mutex
	completed := 0

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(workers)
	for index, segmentPath := range segments {
		group.Go(func() error {
			result, err := t.speech.Transcribe(groupCtx, segmentPath)
			if err != nil {
				// One missing chunk silently truncates the sermon text, so a
				// failed segment fails the whole item instead of being skipped.
				return services.Wrap(services.ErrTransient, "transcribing", "transcribe segment",
					fmt.Sprintf("segment %d of %d failed", index+1, len(segments)), err)
			}

			part := transcript.Part{
				Index:    index,
				Offset:   float64(index) * offsetStep,
				Text:     result.Text,
				Language: result.Language,
				Duration: result.Duration,
				Segments: make([]transcript.Segment, 0, len(result.Segments)),
			}
			for _, s := range result.Segments {
				part.Segments = append(part.Segments, transcript.Segment{Start: s.Start, End: s.End, Text: s.Text})
			}

			// The queue item is shared across workers; progress mutation and
			// the store write both read item fields, so they stay under mu.
			mu.Lock()
			parts[index] = part
			completed++
			percent := float64(completed) / float64(len(segments)) * 90
			item.SetProgress("Transcribing", fmt.Sprintf("Transcribed segment %d of %d", completed, len(segments)), percent)
			updateErr := t.store.Update(groupCtx, item)
			mu.Unlock()

			if updateErr != nil {
				logger.Warn("failed to persist transcription progress", logging.Error(updateErr))
			}
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return err
	}

	combined, err := transcript.Merge(parts)
	if err != nil {
		return services.Wrap(services.ErrValidation, "transcribing", "merge segments", "could not assemble transcript", err)
	}
	combined.Title = item.Title
	combined.SourceFile = item.SourcePath
	combined.AudioFile = item.AudioFile
	combined.SegmentCount = len(segments)

	transcriptDir := filepath.Join(item.ProjectDir, project.TranscriptSubdir)
	jsonPath := filepath.Join(transcriptDir, "transcript.json")
	if err := combined.Save(jsonPath); err != nil {
		return services.Wrap(services.ErrConfiguration, "transcribing", "save transcript", "could not write transcript JSON", err)
	}
	textPath := filepath.Join(transcriptDir, "transcript.txt")
	if err := os.WriteFile(textPath, []byte(combined.ExportText()), 0o644); err != nil {
		return services.Wrap(services.ErrConfiguration, "transcribing", "save transcript", "could not write transcript text", err)
	}
	timestampedPath := filepath.Join(transcriptDir, "transcript_timestamped.txt")
	if err := os.WriteFile(timestampedPath, []byte(combined.ExportTimestamped()), 0o644); err != nil {
		return services.Wrap(services.ErrConfiguration, "transcribing", "save transcript", "could not write timestamped transcript", err)
	}

	item.TranscriptJSON = jsonPath
	item.TranscriptText = textPath
	item.SetProgress("Transcribing", fmt.Sprintf("Transcribed %d segments", len(segments)), 100)

	logger.Info(
		"transcription completed",
		logging.Int("segments", len(segments)),
		logging.Float64("duration_seconds", combined.Duration),
		logging.String("transcript_file", jsonPath),
	)
	if t.notifier != nil {
		if err := t.notifier.NotifyTranscriptionCompleted(ctx, item.Title, len(segments)); err != nil {
			logger.Warn("transcription notification failed", logging.Error(err))
		}
	}
	return nil
}

func (t *Transcriber) HealthCheck(ctx context.Context) stage.Health {
	const name = "transcriber"
	if strings.TrimSpace(t.cfg.OpenAI.APIKey) == "" {
		return stage.Unhealthy(name, "openai api_key not configured")
	}
	if t.speech == nil {
		return stage.Unhealthy(name, "transcription client unavailable")
	}
	if err := t.speech.HealthCheck(ctx); err != nil {
		return stage.Unhealthy(name, err.Error())
	}
	return stage.Healthy(name)
}

// segmentFiles lists the MP3 chunks produced by extraction in upload order.
func segmentFiles(projectDir string) ([]string, error) {
	pattern := filepath.Join(projectDir, project.TempSubdir, "*.mp3")
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return nil, err
	}
	sort.Strings(matches)
	return matches, nil
}
