package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"pulpit/internal/logging"
	"pulpit/internal/notifications"
	"pulpit/internal/preflight"
	"pulpit/internal/queue"
	"pulpit/internal/watcher"
	"pulpit/internal/workflow"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Process the queue until it drains",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPipeline(cmd, ctx, false)
		},
	}
}

func newWatchCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Process the queue and watch the intake directory for new recordings",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPipeline(cmd, ctx, true)
		},
	}
}

func runPipeline(cmd *cobra.Command, cmdCtx *commandContext, withWatcher bool) error {
	cfg, err := cmdCtx.ensureConfig()
	if err != nil {
		return err
	}
	logger, err := cmdCtx.buildLogger()
	if err != nil {
		return err
	}

	// One pipeline per queue database; a second invocation exits early
	// instead of fighting over items.
	lock := flock.New(filepath.Join(cfg.Paths.LogDir, "pulpit.lock"))
	locked, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire pipeline lock: %w", err)
	}
	if !locked {
		return fmt.Errorf("another pulpit pipeline is already running (lock: %s)", lock.Path())
	}
	defer lock.Unlock()

	for _, result := range preflight.RunAll(cmd.Context(), cfg) {
		if result.Passed {
			logger.Info("preflight check passed", logging.String("check", result.Name), logging.String("detail", result.Detail))
		} else {
			logger.Warn("preflight check failed", logging.String("check", result.Name), logging.String("detail", result.Detail))
		}
	}

	store, err := cmdCtx.openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	signalCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	runCtx, cancelRun := context.WithCancel(signalCtx)
	defer cancelRun()

	manager := workflow.NewManager(cfg, store, logger)
	if err := manager.Start(runCtx); err != nil {
		return err
	}
	if report, err := manager.Health(runCtx); err == nil {
		for _, stageHealth := range report.Stages {
			if stageHealth.Ready {
				logger.Info("stage ready", logging.String("stage", stageHealth.Summary()))
			} else {
				logger.Warn("stage not ready", logging.String("stage", stageHealth.Summary()))
			}
		}
	}

	group, groupCtx := errgroup.WithContext(runCtx)
	if withWatcher {
		intakeWatcher := watcher.New(cfg, store, logger, notifications.NewService(cfg))
		group.Go(func() error {
			if err := intakeWatcher.Run(groupCtx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
	} else {
		// Batch mode: stop once nothing is pending or in flight.
		group.Go(func() error {
			pollInterval := time.Duration(cfg.Workflow.QueuePollInterval) * time.Second
			if pollInterval <= 0 {
				pollInterval = time.Second
			}
			ticker := time.NewTicker(pollInterval)
			defer ticker.Stop()
			for {
				select {
				case <-groupCtx.Done():
					return nil
				case <-ticker.C:
					summary, err := store.Health(groupCtx)
					if err != nil {
						continue
					}
					if summary.Pending == 0 && summary.Processing == 0 {
						logger.Info("queue drained")
						cancelRun()
						return nil
					}
				}
			}
		})
	}
	group.Go(func() error {
		<-groupCtx.Done()
		return nil
	})

	logger.Info("pipeline running", logging.Bool("watching_intake", withWatcher))
	waitErr := group.Wait()

	manager.Stop()
	if failed, err := store.FailProcessing(context.Background(), queue.ShutdownStopReason); err != nil {
		logger.Warn("failed to mark in-flight items", logging.Error(err))
	} else if failed > 0 {
		logger.Info("marked in-flight items as failed for retry", logging.Int64("count", failed))
	}
	logger.Info("pipeline stopped")
	if waitErr != nil && !errors.Is(waitErr, context.Canceled) {
		return waitErr
	}
	return nil
}
