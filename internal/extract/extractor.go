package extract

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"pulpit/internal/config"
	"pulpit/internal/deps"
	"pulpit/internal/logging"
	"pulpit/internal/media/audio"
	"pulpit/internal/media/ffprobe"
	"pulpit/internal/notifications"
	"pulpit/internal/project"
	"pulpit/internal/queue"
	"pulpit/internal/services"
	"pulpit/internal/stage"
)

// Extractor converts a queued recording into transcription-ready audio: one
// WAV master plus compressed MP3 chunks sized for upload.
type Extractor struct {
	cfg      *config.Config
	store    *queue.Store
	logger   *slog.Logger
	projects *project.Manager
	notifier notifications.Service
}

// NewExtractor constructs the extraction stage handler using default dependencies.
func NewExtractor(cfg *config.Config, store *queue.Store, logger *slog.Logger) *Extractor {
	return NewExtractorWithDependencies(cfg, store, logger, project.NewManager(cfg.Paths.ProjectsDir), notifications.NewService(cfg))
}

// NewExtractorWithDependencies allows injecting collaborators (used in tests).
func NewExtractorWithDependencies(cfg *config.Config, store *queue.Store, logger *slog.Logger, projects *project.Manager, notifier notifications.Service) *Extractor {
	stageLogger := logger
	if stageLogger != nil {
		stageLogger = stageLogger.With(logging.String("component", "extractor"))
	}
	return &Extractor{cfg: cfg, store: store, logger: stageLogger, projects: projects, notifier: notifier}
}

func (e *Extractor) Prepare(ctx context.Context, item *queue.Item) error {
	logger := logging.WithContext(ctx, e.logger)
	item.InitProgress("Extracting", "Preparing audio extraction")

	source := strings.TrimSpace(item.SourcePath)
	if source == "" {
		return services.Wrap(services.ErrValidation, "extracting", "validate inputs", "queue item has no source path", nil)
	}
	if _, err := os.Stat(source); err != nil {
		return services.Wrap(services.ErrValidation, "extracting", "validate inputs",
			fmt.Sprintf("source file missing: %s", source), err)
	}
	if !e.cfg.AcceptsFormat(source) {
		return services.Wrap(services.ErrValidation, "extracting", "validate inputs",
			fmt.Sprintf("unsupported source format: %s", filepath.Ext(source)), nil)
	}

	logger.Info("starting extraction preparation", logging.String("source_file", source))
	return nil
}

func (e *Extractor) Execute(ctx context.Context, item *queue.Item) error {
	logger := logging.WithContext(ctx, e.logger)
	source := strings.TrimSpace(item.SourcePath)

	probe, err := ffprobe.Inspect(ctx, e.cfg.FFprobeBinary(), source)
	if err != nil {
		return services.Wrap(services.ErrExternalTool, "extracting", "probe source", "ffprobe failed to inspect the source file", err)
	}
	if probe.AudioStreamCount() == 0 {
		return services.Wrap(services.ErrValidation, "extracting", "probe source", "source file contains no audio stream", nil)
	}
	duration := probe.DurationSeconds()
	if duration <= 0 {
		return services.Wrap(services.ErrValidation, "extracting", "probe source", "source file reports zero duration", nil)
	}

	proj, err := e.projects.Create(item.Title, source)
	if err != nil {
		return services.Wrap(services.ErrConfiguration, "extracting", "create project",
			fmt.Sprintf("could not create project directory under %s", e.projects.Root()), err)
	}
	item.ProjectDir = proj.Dir

	item.SetProgress("Extracting", "Extracting audio track", 10)
	if err := e.store.Update(ctx, item); err != nil {
		logger.Warn("failed to persist extraction progress", logging.Error(err))
	}

	base := strings.TrimSuffix(filepath.Base(source), filepath.Ext(source))
	wavPath := filepath.Join(proj.AudioDir(), base+".wav")
	extractParams := audio.ExtractParams{
		FFmpegBinary: e.cfg.FFmpegBinary(),
		SampleRate:   e.cfg.Transcription.SampleRate,
	}
	if err := audio.Extract(ctx, extractParams, source, wavPath); err != nil {
		return services.Wrap(services.ErrExternalTool, "extracting", "extract audio", "ffmpeg audio extraction failed", err)
	}
	item.AudioFile = wavPath

	windows := audio.PlanSegments(duration, e.cfg.Transcription.SegmentSeconds)
	item.SetProgress("Extracting", fmt.Sprintf("Splitting audio into %d segments", len(windows)), 60)
	if err := e.store.Update(ctx, item); err != nil {
		logger.Warn("failed to persist extraction progress", logging.Error(err))
	}

	segmentParams := audio.SegmentParams{
		FFmpegBinary:   e.cfg.FFmpegBinary(),
		SampleRate:     e.cfg.Transcription.SampleRate,
		Bitrate:        e.cfg.Transcription.Bitrate,
		SegmentSeconds: e.cfg.Transcription.SegmentSeconds,
	}
	segments, err := audio.Split(ctx, segmentParams, wavPath, proj.TempDir(), windows)
	if err != nil {
		return services.Wrap(services.ErrExternalTool, "extracting", "split audio", "ffmpeg segmentation failed", err)
	}
	item.SegmentCount = len(segments)

	item.SetProgress("Extracting", fmt.Sprintf("Extracted %d audio segments", len(segments)), 100)
	logger.Info(
		"extraction completed",
		logging.String("audio_file", wavPath),
		logging.Int("segments", len(segments)),
		logging.Float64("duration_seconds", duration),
	)
	return nil
}

func (e *Extractor) HealthCheck(ctx context.Context) stage.Health {
	const name = "extractor"
	statuses := deps.CheckBinaries(deps.Defaults())
	var missing []string
	for _, status := range statuses {
		if !status.Available {
			missing = append(missing, status.Command)
		}
	}
	if len(missing) > 0 {
		return stage.Unhealthy(name, fmt.Sprintf("missing binaries: %s", strings.Join(missing, ", ")))
	}
	if strings.TrimSpace(e.cfg.Paths.ProjectsDir) == "" {
		return stage.Unhealthy(name, "projects_dir not configured")
	}
	return stage.Healthy(name)
}
