package organize_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"pulpit/internal/logging"
	"pulpit/internal/organize"
	"pulpit/internal/project"
	"pulpit/internal/queue"
	"pulpit/internal/services"
	"pulpit/internal/testsupport"
)

func TestExecuteFinalizesProject(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	manager := project.NewManager(cfg.Paths.ProjectsDir)
	proj, err := manager.Create("Finalize Me", "/media/sermon.mp4")
	if err != nil {
		t.Fatalf("project create: %v", err)
	}
	scratch := filepath.Join(proj.TempDir(), "segment_part001.mp3")
	testsupport.WriteFile(t, scratch, 64)

	item := testsupport.NewFile(t, store, "/media/sermon.mp4")
	item.ProjectDir = proj.Dir
	item.AudioFile = filepath.Join(proj.AudioDir(), "sermon.wav")
	item.TranscriptJSON = filepath.Join(proj.TranscriptDir(), "transcript.json")
	testsupport.WriteFile(t, item.AudioFile, 128)
	testsupport.WriteFile(t, item.TranscriptJSON, 64)
	if err := store.Update(ctx, item); err != nil {
		t.Fatalf("store update: %v", err)
	}

	organizer := organize.NewOrganizerWithDependencies(cfg, store, logging.NewNop(), manager, nil)
	if err := organizer.Prepare(ctx, item); err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	if err := organizer.Execute(ctx, item); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	if _, err := os.Stat(proj.TempDir()); !os.IsNotExist(err) {
		t.Fatalf("temp dir should be removed, stat err = %v", err)
	}
	entry, err := manager.Find(proj.ID)
	if err != nil {
		t.Fatalf("registry find: %v", err)
	}
	if entry.Status != "completed" {
		t.Fatalf("registry status = %q", entry.Status)
	}
	if item.ProgressPercent != 100 {
		t.Fatalf("progress = %v, want 100", item.ProgressPercent)
	}
}

func TestExecuteFailsWhenRequiredArtifactMissing(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	manager := project.NewManager(cfg.Paths.ProjectsDir)
	proj, err := manager.Create("Incomplete", "/media/sermon.mp4")
	if err != nil {
		t.Fatalf("project create: %v", err)
	}

	item := testsupport.NewFile(t, store, "/media/sermon.mp4")
	item.ProjectDir = proj.Dir
	item.TranscriptJSON = filepath.Join(proj.TranscriptDir(), "transcript.json")
	testsupport.WriteFile(t, item.TranscriptJSON, 64)
	// AudioFile left empty: a required artifact.

	organizer := organize.NewOrganizerWithDependencies(cfg, store, logging.NewNop(), manager, nil)
	execErr := organizer.Execute(ctx, item)
	if execErr == nil {
		t.Fatal("expected error for missing audio artifact")
	}
	if !errors.Is(execErr, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", execErr)
	}
	if services.FailureStatus(execErr) != queue.StatusReview {
		t.Fatalf("missing artifacts should route to review, got %v", services.FailureStatus(execErr))
	}
}

func TestExecuteFailsWhenProjectMetadataMissing(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	item := testsupport.NewFile(t, store, "/media/sermon.mp4")
	item.ProjectDir = filepath.Join(cfg.Paths.ProjectsDir, "missing_project")

	organizer := organize.NewOrganizerWithDependencies(cfg, store, logging.NewNop(), project.NewManager(cfg.Paths.ProjectsDir), nil)
	err := organizer.Execute(ctx, item)
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found error, got %v", err)
	}
}

func TestPrepareRejectsMissingInputs(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	organizer := organize.NewOrganizerWithDependencies(cfg, store, logging.NewNop(), project.NewManager(cfg.Paths.ProjectsDir), nil)

	noProject := testsupport.NewFile(t, store, "/media/one.mp4")
	if err := organizer.Prepare(ctx, noProject); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error for missing project dir, got %v", err)
	}

	noTranscript := testsupport.NewFile(t, store, "/media/two.mp4")
	noTranscript.ProjectDir = cfg.Paths.ProjectsDir
	if err := organizer.Prepare(ctx, noTranscript); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error for missing transcript, got %v", err)
	}
}

func TestHealthCheck(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	organizer := organize.NewOrganizerWithDependencies(cfg, store, logging.NewNop(), project.NewManager(cfg.Paths.ProjectsDir), nil)
	if health := organizer.HealthCheck(context.Background()); !health.Ready {
		t.Fatalf("expected healthy organizer, got %+v", health)
	}

	cfg.Paths.ProjectsDir = filepath.Join(cfg.Paths.ProjectsDir, "does_not_exist")
	if health := organizer.HealthCheck(context.Background()); health.Ready {
		t.Fatal("expected unhealthy organizer for missing projects dir")
	}
}
