package ideas

import (
	"context"
	"encoding/json"
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
	"pulpit/internal/transcript"
)

const parseAttempts = 3

// Completer issues chat completions. Implemented by the OpenAI client;
// narrowed to an interface so tests can substitute fakes.
type Completer interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string, temperature float32) (string, error)
	HealthCheck(ctx context.Context) error
}

// Analyzer distills the corrected sermon into a fixed set of key ideas
// arranged in a three-act narrative structure.
type Analyzer struct {
	cfg       *config.Config
	store     *queue.Store
	logger    *slog.Logger
	completer Completer
	notifier  notifications.Service
}

// NewAnalyzer constructs the analysis stage handler using default dependencies.
func NewAnalyzer(cfg *config.Config, store *queue.Store, logger *slog.Logger) *Analyzer {
	client := openai.NewClient(openai.Config{
		APIKey:            cfg.OpenAI.APIKey,
		BaseURL:           cfg.OpenAI.BaseURL,
		ChatModel:         cfg.OpenAI.ChatModel,
		TimeoutSeconds:    cfg.OpenAI.TimeoutSeconds,
		RequestsPerMinute: cfg.OpenAI.RequestsPerMinute,
	})
	return NewAnalyzerWithDependencies(cfg, store, logger, client, notifications.NewService(cfg))
}

// NewAnalyzerWithDependencies allows injecting collaborators (used in tests).
func NewAnalyzerWithDependencies(cfg *config.Config, store *queue.Store, logger *slog.Logger, completer Completer, notifier notifications.Service) *Analyzer {
	stageLogger := logger
	if stageLogger != nil {
		stageLogger = stageLogger.With(logging.String("component", "analyzer"))
	}
	return &Analyzer{cfg: cfg, store: store, logger: stageLogger, completer: completer, notifier: notifier}
}

func (a *Analyzer) Prepare(ctx context.Context, item *queue.Item) error {
	logger := logging.WithContext(ctx, a.logger)
	item.InitProgress("Analyzing", "Preparing idea extraction")

	if !a.cfg.Ideas.Enabled {
		item.SetProgress("Analyzing", "Idea extraction disabled in configuration", 0)
		return nil
	}
	if strings.TrimSpace(item.TranscriptJSON) == "" {
		return services.Wrap(services.ErrValidation, "analyzing", "validate inputs",
			"no transcript present; run transcription first", nil)
	}

	logger.Info("starting analysis preparation", logging.Int("idea_count", a.cfg.Ideas.Count))
	return nil
}

func (a *Analyzer) Execute(ctx context.Context, item *queue.Item) error {
	logger := logging.WithContext(ctx, a.logger)

	if !a.cfg.Ideas.Enabled {
		logger.Info("idea extraction disabled; skipping analysis")
		item.SetProgress("Analyzing", "Idea extraction skipped", 100)
		return nil
	}

	text, err := a.sourceText(item)
	if err != nil {
		return err
	}

	distribution := ActDistribution{
		Total:    a.cfg.Ideas.Count,
		ActOne:   a.cfg.Ideas.ActOne,
		ActTwo:   a.cfg.Ideas.ActTwo,
		ActThree: a.cfg.Ideas.ActThree,
	}

	var extracted []Idea
	var lastErr error
	rejected := false
	for attempt := 1; attempt <= parseAttempts; attempt++ {
		item.SetProgress("Analyzing", fmt.Sprintf("Extracting ideas (attempt %d of %d)", attempt, parseAttempts), float64(attempt-1)/parseAttempts*90)
		if err := a.store.Update(ctx, item); err != nil {
			logger.Warn("failed to persist analysis progress", logging.Error(err))
		}

		content, err := a.completer.Complete(ctx, analysisSystemPrompt(a.cfg.OpenAI.Language, distribution), text, a.cfg.Ideas.Temperature)
		if err != nil {
			lastErr = err
			rejected = false
			if ctx.Err() != nil {
				break
			}
			continue
		}
		ideas, err := ParseIdeas(content)
		if err != nil {
			lastErr = err
			rejected = true
			logger.Warn("idea payload could not be parsed", logging.Int("attempt", attempt), logging.Error(err))
			continue
		}
		if err := distribution.Validate(ideas); err != nil {
			lastErr = err
			rejected = true
			logger.Warn("idea distribution rejected", logging.Int("attempt", attempt), logging.Error(err))
			continue
		}
		extracted = ideas
		break
	}
	if extracted == nil {
		// A model that keeps producing unusable payloads will not improve on
		// a retry of the whole stage; hand the item to a human instead.
		marker := services.ErrTransient
		if rejected {
			marker = services.ErrAPIRejected
		}
		return services.Wrap(marker, "analyzing", "extract ideas",
			fmt.Sprintf("idea extraction failed after %d attempts", parseAttempts), lastErr)
	}

	outputDir := filepath.Join(item.ProjectDir, project.OutputSubdir)
	jsonPath := filepath.Join(outputDir, "ideas.json")
	if err := saveIdeasJSON(jsonPath, item.Title, extracted); err != nil {
		return services.Wrap(services.ErrConfiguration, "analyzing", "save output", "could not write ideas JSON", err)
	}
	markdownPath := filepath.Join(outputDir, "ideas.md")
	if err := os.WriteFile(markdownPath, []byte(RenderMarkdown(item.Title, extracted)), 0o644); err != nil {
		return services.Wrap(services.ErrConfiguration, "analyzing", "save output", "could not write ideas markdown", err)
	}

	item.IdeasFile = jsonPath
	item.SetProgress("Analyzing", fmt.Sprintf("Extracted %d ideas", len(extracted)), 100)
	logger.Info("analysis completed", logging.Int("ideas", len(extracted)), logging.String("ideas_file", jsonPath))
	return nil
}

// sourceText prefers the corrected document and falls back to the raw
// transcript when correction was disabled or skipped.
func (a *Analyzer) sourceText(item *queue.Item) (string, error) {
	if corrected := strings.TrimSpace(item.CorrectedFile); corrected != "" {
		data, err := os.ReadFile(corrected)
		if err == nil {
			if text := stripHeader(string(data)); text != "" {
				return text, nil
			}
		}
	}
	combined, err := transcript.Load(item.TranscriptJSON)
	if err != nil {
		return "", services.Wrap(services.ErrValidation, "analyzing", "load transcript", "could not read transcript JSON", err)
	}
	text := strings.TrimSpace(combined.Text)
	if text == "" {
		return "", services.Wrap(services.ErrValidation, "analyzing", "load transcript", "transcript text is empty", nil)
	}
	return text, nil
}

func (a *Analyzer) HealthCheck(ctx context.Context) stage.Health {
	const name = "analyzer"
	if !a.cfg.Ideas.Enabled {
		return stage.Healthy(name)
	}
	if strings.TrimSpace(a.cfg.OpenAI.APIKey) == "" {
		return stage.Unhealthy(name, "openai api_key not configured")
	}
	if a.completer == nil {
		return stage.Unhealthy(name, "completion client unavailable")
	}
	return stage.Healthy(name)
}

func saveIdeasJSON(path, title string, ideas []Idea) error {
	document := struct {
		Title string `json:"title"`
		Ideas []Idea `json:"ideas"`
	}{Title: title, Ideas: ideas}
	encoded, err := json.MarshalIndent(document, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, encoded, 0o644)
}

// stripHeader drops the metadata header written above corrected documents.
func stripHeader(document string) string {
	separator := strings.Repeat("=", 80)
	if idx := strings.Index(document, separator); idx >= 0 {
		return strings.TrimSpace(document[idx+len(separator):])
	}
	return strings.TrimSpace(document)
}
