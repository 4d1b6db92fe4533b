package correct

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"pulpit/internal/config"
	"pulpit/internal/logging"
	"pulpit/internal/notifications"
	"pulpit/internal/project"
	"pulpit/internal/queue"
	"pulpit/internal/services"
	"pulpit/internal/services/openai"
	"pulpit/internal/stage"
	"pulpit/internal/textutil"
	"pulpit/internal/transcript"
)

// ModeDocument corrects the transcript in a single completion; ModeUnits
// corrects sentence groups independently so one bad response cannot ruin
// the whole document.
const (
	ModeDocument = "document"
	ModeUnits    = "units"
)

// Completer issues chat completions. Implemented by the OpenAI client;
// narrowed to an interface so tests can substitute fakes.
type Completer interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string, temperature float32) (string, error)
	HealthCheck(ctx context.Context) error
}

// Corrector cleans up transcription artifacts: punctuation, casing, and
// mis-heard words, without rewriting the speaker's content.
type Corrector struct {
	cfg       *config.Config
	store     *queue.Store
	logger    *slog.Logger
	completer Completer
	notifier  notifications.Service
}

// NewCorrector constructs the correction stage handler using default dependencies.
func NewCorrector(cfg *config.Config, store *queue.Store, logger *slog.Logger) *Corrector {
	client := openai.NewClient(openai.Config{
		APIKey:            cfg.OpenAI.APIKey,
		BaseURL:           cfg.OpenAI.BaseURL,
		ChatModel:         cfg.OpenAI.ChatModel,
		TimeoutSeconds:    cfg.OpenAI.TimeoutSeconds,
		RequestsPerMinute: cfg.OpenAI.RequestsPerMinute,
	})
	return NewCorrectorWithDependencies(cfg, store, logger, client, notifications.NewService(cfg))
}

// NewCorrectorWithDependencies allows injecting collaborators (used in tests).
func NewCorrectorWithDependencies(cfg *config.Config, store *queue.Store, logger *slog.Logger, completer Completer, notifier notifications.Service) *Corrector {
	stageLogger := logger
	if stageLogger != nil {
		stageLogger = stageLogger.With(logging.String("component", "corrector"))
	}
	return &Corrector{cfg: cfg, store: store, logger: stageLogger, completer: completer, notifier: notifier}
}

func (c *Corrector) Prepare(ctx context.Context, item *queue.Item) error {
	logger := logging.WithContext(ctx, c.logger)
	item.InitProgress("Correcting", "Preparing correction")

	if !c.cfg.Correction.Enabled {
		item.SetProgress("Correcting", "Correction disabled in configuration", 0)
		return nil
	}
	if strings.TrimSpace(item.TranscriptJSON) == "" {
		return services.Wrap(services.ErrValidation, "correcting", "validate inputs",
			"no transcript present; run transcription first", nil)
	}
	if _, err := os.Stat(item.TranscriptJSON); err != nil {
		return services.Wrap(services.ErrValidation, "correcting", "validate inputs",
			fmt.Sprintf("transcript file missing: %s", item.TranscriptJSON), err)
	}

	logger.Info("starting correction preparation", logging.String("mode", c.cfg.Correction.Mode))
	return nil
}

func (c *Corrector) Execute(ctx context.Context, item *queue.Item) error {
	logger := logging.WithContext(ctx, c.logger)

	if !c.cfg.Correction.Enabled {
		logger.Info("correction disabled; passing transcript through")
		item.SetProgress("Correcting", "Correction skipped", 100)
		return nil
	}

	combined, err := transcript.Load(item.TranscriptJSON)
	if err != nil {
		return services.Wrap(services.ErrValidation, "correcting", "load transcript", "could not read transcript JSON", err)
	}
	original := strings.TrimSpace(combined.Text)
	if original == "" {
		return services.Wrap(services.ErrValidation, "correcting", "load transcript", "transcript text is empty", nil)
	}

	progress := func(done, total int) {
		percent := float64(done) / float64(total) * 95
		item.SetProgress("Correcting", fmt.Sprintf("Corrected unit %d of %d", done, total), percent)
		if err := c.store.Update(ctx, item); err != nil {
			logger.Warn("failed to persist correction progress", logging.Error(err))
		}
	}
	corrected, err := c.CorrectText(ctx, original, progress)
	if err != nil {
		return err
	}

	outputPath := filepath.Join(item.ProjectDir, project.OutputSubdir, "corrected.txt")
	document := renderCorrected(item.Title, corrected)
	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return services.Wrap(services.ErrConfiguration, "correcting", "save output", "could not create output directory", err)
	}
	if err := os.WriteFile(outputPath, []byte(document), 0o644); err != nil {
		return services.Wrap(services.ErrConfiguration, "correcting", "save output", "could not write corrected text", err)
	}

	item.CorrectedFile = outputPath
	item.SetProgress("Correcting", "Correction complete", 100)
	logger.Info(
		"correction completed",
		logging.String("mode", c.cfg.Correction.Mode),
		logging.Int("original_chars", len(original)),
		logging.Int("corrected_chars", len(corrected)),
		logging.String("corrected_file", outputPath),
	)
	if c.notifier != nil {
		if err := c.notifier.NotifyCorrectionCompleted(ctx, item.Title); err != nil {
			logger.Warn("correction notification failed", logging.Error(err))
		}
	}
	return nil
}

// CorrectText corrects raw transcript text using the configured mode. The
// progress callback, when non-nil, is invoked after each unit in units mode.
func (c *Corrector) CorrectText(ctx context.Context, original string, progress func(done, total int)) (string, error) {
	switch c.cfg.Correction.Mode {
	case ModeUnits:
		return c.correctUnits(ctx, original, progress)
	default:
		return c.correctDocument(ctx, original)
	}
}

func (c *Corrector) correctDocument(ctx context.Context, original string) (string, error) {
	attempts := c.cfg.Correction.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}

	var lastErr error
	rejected := false
	for attempt := 1; attempt <= attempts; attempt++ {
		corrected, err := c.completer.Complete(ctx, documentSystemPrompt(c.cfg.OpenAI.Language), original, c.cfg.Correction.Temperature)
		if err != nil {
			lastErr = err
			rejected = false
			continue
		}
		corrected = strings.TrimSpace(corrected)
		if DriftExceeded(original, corrected, c.cfg.Correction.MaxDriftRatio) {
			lastErr = fmt.Errorf("corrected text drifted beyond %.0f%% of the original length", c.cfg.Correction.MaxDriftRatio*100)
			rejected = true
			continue
		}
		return corrected, nil
	}
	// Repeated drift rejections mean the model keeps rewriting the sermon;
	// that needs a human decision, not another retry.
	marker := services.ErrTransient
	if rejected {
		marker = services.ErrAPIRejected
	}
	return "", services.Wrap(marker, "correcting", "correct document",
		fmt.Sprintf("document correction failed after %d attempts", attempts), lastErr)
}

func (c *Corrector) correctUnits(ctx context.Context, original string, progress func(done, total int)) (string, error) {
	logger := logging.WithContext(ctx, c.logger)

	sentences := textutil.SplitSentences(original)
	units := textutil.GroupUnits(sentences, c.cfg.Correction.UnitMaxChars)
	if len(units) == 0 {
		return original, nil
	}

	attempts := c.cfg.Correction.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}

	correctedUnits := make([]string, len(units))
	fallbacks := 0
	for index, unit := range units {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		corrected, ok := c.correctOneUnit(ctx, unit, attempts)
		if !ok {
			// A stubborn unit keeps its original text rather than blocking
			// the rest of the document.
			corrected = unit
			fallbacks++
		}
		correctedUnits[index] = corrected
		if progress != nil {
			progress(index+1, len(units))
		}
	}
	if fallbacks > 0 {
		logger.Warn("some units kept their original text", logging.Int("fallback_units", fallbacks), logging.Int("total_units", len(units)))
	}

	return JoinUnits(correctedUnits), nil
}

func (c *Corrector) correctOneUnit(ctx context.Context, unit string, attempts int) (string, bool) {
	logger := logging.WithContext(ctx, c.logger)
	for attempt := 1; attempt <= attempts; attempt++ {
		corrected, err := c.completer.Complete(ctx, unitSystemPrompt(c.cfg.OpenAI.Language), unit, c.cfg.Correction.Temperature)
		if err != nil {
			logger.Warn("unit correction attempt failed", logging.Int("attempt", attempt), logging.Error(err))
			if ctx.Err() != nil {
				return "", false
			}
			continue
		}
		corrected = strings.TrimSpace(corrected)
		if DriftExceeded(unit, corrected, c.cfg.Correction.MaxDriftRatio) {
			logger.Warn("unit correction rejected for length drift",
				logging.Int("attempt", attempt),
				logging.Int("original_chars", len(unit)),
				logging.Int("corrected_chars", len(corrected)),
			)
			continue
		}
		return preserveLayout(unit, corrected), true
	}
	return "", false
}

func (c *Corrector) HealthCheck(ctx context.Context) stage.Health {
	const name = "corrector"
	if !c.cfg.Correction.Enabled {
		return stage.Healthy(name)
	}
	if strings.TrimSpace(c.cfg.OpenAI.APIKey) == "" {
		return stage.Unhealthy(name, "openai api_key not configured")
	}
	if c.completer == nil {
		return stage.Unhealthy(name, "completion client unavailable")
	}
	return stage.Healthy(name)
}
