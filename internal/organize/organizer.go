package organize

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
	"pulpit/internal/stage"
)

// Organizer finalizes a processed recording: verifying artifacts, updating
// the project registry, and clearing scratch data.
type Organizer struct {
	cfg      *config.Config
	store    *queue.Store
	logger   *slog.Logger
	projects *project.Manager
	notifier notifications.Service
}

// NewOrganizer constructs the organization stage handler using default dependencies.
func NewOrganizer(cfg *config.Config, store *queue.Store, logger *slog.Logger) *Organizer {
	return NewOrganizerWithDependencies(cfg, store, logger, project.NewManager(cfg.Paths.ProjectsDir), notifications.NewService(cfg))
}

// NewOrganizerWithDependencies allows injecting collaborators (used in tests).
func NewOrganizerWithDependencies(cfg *config.Config, store *queue.Store, logger *slog.Logger, projects *project.Manager, notifier notifications.Service) *Organizer {
	stageLogger := logger
	if stageLogger != nil {
		stageLogger = stageLogger.With(logging.String("component", "organizer"))
	}
	return &Organizer{cfg: cfg, store: store, logger: stageLogger, projects: projects, notifier: notifier}
}

func (o *Organizer) Prepare(ctx context.Context, item *queue.Item) error {
	logger := logging.WithContext(ctx, o.logger)
	item.InitProgress("Organizing", "Preparing project finalization")

	if strings.TrimSpace(item.ProjectDir) == "" {
		return services.Wrap(services.ErrValidation, "organizing", "validate inputs",
			"queue item has no project directory", nil)
	}
	if strings.TrimSpace(item.TranscriptJSON) == "" {
		return services.Wrap(services.ErrValidation, "organizing", "validate inputs",
			"no transcript present; run transcription first", nil)
	}

	logger.Info("starting organization preparation", logging.String("project_dir", item.ProjectDir))
	return nil
}

func (o *Organizer) Execute(ctx context.Context, item *queue.Item) error {
	logger := logging.WithContext(ctx, o.logger)

	proj, err := project.Load(item.ProjectDir)
	if err != nil {
		return services.Wrap(services.ErrNotFound, "organizing", "load project",
			fmt.Sprintf("project metadata missing in %s", item.ProjectDir), err)
	}

	missing := missingArtifacts(item)
	if len(missing) > 0 {
		return services.Wrap(services.ErrValidation, "organizing", "verify artifacts",
			fmt.Sprintf("expected artifacts missing: %s", strings.Join(missing, ", ")), nil)
	}

	item.SetProgress("Organizing", "Clearing scratch data", 50)
	if err := o.store.Update(ctx, item); err != nil {
		logger.Warn("failed to persist organization progress", logging.Error(err))
	}
	if err := proj.CleanTemp(); err != nil {
		logger.Warn("failed to remove scratch directory", logging.Error(err))
	}

	if err := o.projects.UpdateStatus(proj, "completed"); err != nil {
		return services.Wrap(services.ErrConfiguration, "organizing", "update registry",
			"could not record project completion", err)
	}

	item.SetProgress("Organizing", "Project finalized", 100)
	logger.Info(
		"organization completed",
		logging.String("project_dir", item.ProjectDir),
		logging.String("corrected_file", strings.TrimSpace(item.CorrectedFile)),
		logging.String("ideas_file", strings.TrimSpace(item.IdeasFile)),
	)
	if o.notifier != nil {
		if err := o.notifier.NotifyProcessingCompleted(ctx, item.Title, filepath.Base(item.ProjectDir)); err != nil {
			logger.Warn("completion notification failed", logging.Error(err))
		}
	}
	return nil
}

func (o *Organizer) HealthCheck(ctx context.Context) stage.Health {
	const name = "organizer"
	root := strings.TrimSpace(o.cfg.Paths.ProjectsDir)
	if root == "" {
		return stage.Unhealthy(name, "projects_dir not configured")
	}
	if info, err := os.Stat(root); err != nil || !info.IsDir() {
		return stage.Unhealthy(name, fmt.Sprintf("projects_dir not accessible: %s", root))
	}
	return stage.Healthy(name)
}

// missingArtifacts lists required files absent from disk. The corrected and
// ideas outputs are optional since their stages can be disabled.
func missingArtifacts(item *queue.Item) []string {
	type artifact struct {
		label    string
		path     string
		optional bool
	}
	checks := []artifact{
		{label: "audio", path: item.AudioFile},
		{label: "transcript", path: item.TranscriptJSON},
		{label: "corrected", path: item.CorrectedFile, optional: true},
		{label: "ideas", path: item.IdeasFile, optional: true},
	}

	var missing []string
	for _, check := range checks {
		if strings.TrimSpace(check.path) == "" {
			if !check.optional {
				missing = append(missing, check.label)
			}
			continue
		}
		if _, err := os.Stat(check.path); err != nil {
			missing = append(missing, check.label)
		}
	}
	return missing
}
