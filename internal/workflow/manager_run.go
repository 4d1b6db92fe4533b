package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"pulpit/internal/logging"
	"pulpit/internal/queue"
	"pulpit/internal/services"
)

// Start begins background processing.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return errors.New("workflow already running")
	}
	if len(m.stages) == 0 {
		m.mu.Unlock()
		return errors.New("workflow stages not configured")
	}
	runCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.running = true
	m.wg.Add(1)
	m.mu.Unlock()

	logger := m.runLogger()
	if reset, err := m.store.ResetStuckProcessing(runCtx); err != nil {
		logger.Warn("reset stuck processing failed; stuck items may remain", logging.Error(err))
	} else if reset > 0 {
		logger.Info("reset stuck processing items", logging.Int64("count", reset))
	}

	go m.run(runCtx, logger)
	return nil
}

// Stop terminates background processing and waits for completion.
func (m *Manager) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	cancel := m.cancel
	m.running = false
	m.cancel = nil
	m.mu.Unlock()

	cancel()
	m.wg.Wait()
}

func (m *Manager) runLogger() *slog.Logger {
	logger := m.logger
	if logger == nil {
		logger = logging.NewNop()
	}
	return logger.With(logging.String("component", "workflow-manager"))
}

func (m *Manager) run(ctx context.Context, logger *slog.Logger) {
	defer m.wg.Done()

	startStatuses := m.startStatuses()
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if err := m.heartbeat.ReclaimStaleItems(ctx, logger); err != nil {
			logger.Warn("reclaim stale processing failed; stuck items may remain",
				logging.Error(err),
				logging.String(logging.FieldEventType, "heartbeat_reclaim_failed"),
				logging.String(logging.FieldErrorHint, "check queue database access"),
			)
		}

		item, err := m.store.NextForStatuses(ctx, startStatuses...)
		if err != nil {
			m.setLastError(err)
			logger.Error("failed to fetch next queue item",
				logging.Error(err),
				logging.String(logging.FieldEventType, "queue_fetch_failed"),
				logging.String(logging.FieldErrorHint, "check queue database access"),
			)
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Duration(m.cfg.Workflow.ErrorRetryInterval) * time.Second):
			}
			continue
		}
		if item == nil {
			m.checkQueueCompletion(ctx)
			select {
			case <-ctx.Done():
				return
			case <-time.After(m.pollInterval):
			}
			continue
		}

		if err := m.processItem(ctx, logger, item); err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
		}
	}
}

func (m *Manager) processItem(ctx context.Context, logger *slog.Logger, item *queue.Item) error {
	pipeline, ok := m.stageForStatus(item.Status)
	if !ok {
		logger.Warn("no stage configured for status", logging.String("status", string(item.Status)))
		return nil
	}

	requestID := uuid.NewString()
	stageCtx := services.WithItemID(ctx, item.ID)
	stageCtx = services.WithStage(stageCtx, pipeline.name)
	stageCtx = services.WithRequestID(stageCtx, requestID)
	stageLogger := logging.WithContext(stageCtx, logger)

	if err := m.transitionToProcessing(stageCtx, pipeline, item); err != nil {
		stageLogger.Error("failed to transition item to processing", logging.Error(err))
		m.setLastError(err)
		return err
	}
	return m.executeStage(stageCtx, stageLogger, pipeline, item)
}

func (m *Manager) executeStage(ctx context.Context, stageLogger *slog.Logger, pipeline pipelineStage, item *queue.Item) error {
	stageStart := time.Now()
	stageLogger.Info(
		"stage started",
		logging.String(logging.FieldEventType, "stage_start"),
		logging.String("processing_status", string(pipeline.processingStatus)),
		logging.String("title", strings.TrimSpace(item.Title)),
		logging.String("source_file", strings.TrimSpace(item.SourcePath)),
	)

	if err := pipeline.handler.Prepare(ctx, item); err != nil {
		m.handleStageFailure(ctx, pipeline.name, item, err)
		m.setLastError(err)
		return err
	}
	if err := m.store.Update(ctx, item); err != nil {
		wrapped := fmt.Errorf("persist stage preparation: %w", err)
		stageLogger.Error("failed to persist stage preparation", logging.Error(wrapped))
		m.setLastError(wrapped)
		return wrapped
	}

	execErr := m.executeWithHeartbeat(ctx, pipeline, item)
	if execErr != nil {
		if errors.Is(execErr, context.Canceled) {
			stageLogger.Debug("stage interrupted by shutdown")
			return execErr
		}
		m.handleStageFailure(ctx, pipeline.name, item, execErr)
		m.setLastError(execErr)
		return execErr
	}

	if item.Status == pipeline.processingStatus || item.Status == "" {
		item.Status = pipeline.doneStatus
	}
	item.LastHeartbeat = nil
	if item.Status == queue.StatusCompleted {
		if item.ProgressPercent < 100 {
			item.ProgressPercent = 100
		}
		if strings.TrimSpace(item.ProgressMessage) == "" {
			item.ProgressMessage = "Completed"
		}
		m.mu.Lock()
		m.processed++
		m.mu.Unlock()
	}
	if err := m.store.Update(ctx, item); err != nil {
		wrapped := fmt.Errorf("persist stage result: %w", err)
		stageLogger.Error("failed to persist stage result", logging.Error(wrapped))
		m.setLastError(wrapped)
		return wrapped
	}
	stageLogger.Info(
		"stage completed",
		logging.String(logging.FieldEventType, "stage_complete"),
		logging.String("next_status", string(item.Status)),
		logging.Duration("stage_duration", time.Since(stageStart)),
	)
	m.setLastItem(item)
	m.checkQueueCompletion(ctx)
	return nil
}

func (m *Manager) executeWithHeartbeat(ctx context.Context, pipeline pipelineStage, item *queue.Item) error {
	hbCtx, hbCancel := context.WithCancel(ctx)
	var hbWG sync.WaitGroup
	hbWG.Add(1)
	go m.heartbeat.StartLoop(hbCtx, &hbWG, item.ID)

	execErr := pipeline.handler.Execute(ctx, item)
	hbCancel()
	hbWG.Wait()
	return execErr
}

func (m *Manager) transitionToProcessing(ctx context.Context, pipeline pipelineStage, item *queue.Item) error {
	now := time.Now().UTC()
	item.Status = pipeline.processingStatus
	item.ProgressPercent = 0
	item.ErrorMessage = ""
	item.LastHeartbeat = &now
	if err := m.store.Update(ctx, item); err != nil {
		return fmt.Errorf("persist processing transition: %w", err)
	}
	m.setLastItem(item)
	m.markQueueActive(ctx)
	return nil
}

func (m *Manager) handleStageFailure(ctx context.Context, stageName string, item *queue.Item, stageErr error) {
	logger := logging.WithContext(ctx, m.runLogger())

	message := strings.TrimSpace(failureMessage(stageName, stageErr))
	resolved := services.FailureStatus(stageErr)
	if resolved == queue.StatusReview {
		item.Status = queue.StatusReview
		item.NeedsReview = true
		item.ReviewReason = message
		item.ErrorMessage = message
		item.ProgressMessage = message
		item.LastHeartbeat = nil
	} else {
		item.SetFailed(message)
		m.mu.Lock()
		m.failed++
		m.mu.Unlock()
	}

	logger.Error("stage failed",
		logging.String("resolved_status", string(resolved)),
		logging.String("error_message", message),
		logging.Error(stageErr),
		logging.String(logging.FieldEventType, "stage_failure"),
	)

	if err := m.store.Update(ctx, item); err != nil {
		if errors.Is(err, context.Canceled) {
			logger.Debug("shutting down, could not update stage failure")
		} else {
			logger.Error("failed to persist stage failure", logging.Error(err))
		}
	}
	m.setLastItem(item)

	if m.notifier != nil {
		var notifyErr error
		if resolved == queue.StatusReview {
			notifyErr = m.notifier.NotifyReviewRequired(ctx, item.Title, message)
		} else {
			notifyErr = m.notifier.NotifyError(ctx, stageErr, fmt.Sprintf("%s stage", stageName))
		}
		if notifyErr != nil {
			logger.Warn("failure notification failed", logging.Error(notifyErr))
		}
	}
	m.checkQueueCompletion(ctx)
}

func failureMessage(stageName string, stageErr error) string {
	if stageErr == nil {
		if stageName != "" {
			return fmt.Sprintf("%s failed without error detail", stageName)
		}
		return "workflow failed without error detail"
	}
	return stageErr.Error()
}

func (m *Manager) markQueueActive(ctx context.Context) {
	m.mu.Lock()
	if m.queueActive {
		m.mu.Unlock()
		return
	}
	m.queueActive = true
	m.queueStart = time.Now()
	m.processed = 0
	m.failed = 0
	m.mu.Unlock()

	if m.notifier != nil {
		health, err := m.store.Health(ctx)
		count := 0
		if err == nil {
			count = health.Pending + health.Processing
		}
		if err := m.notifier.NotifyQueueStarted(ctx, count); err != nil {
			m.runLogger().Warn("queue start notification failed", logging.Error(err))
		}
	}
}

// checkQueueCompletion fires the queue-complete notification once every item
// has reached a terminal status.
func (m *Manager) checkQueueCompletion(ctx context.Context) {
	m.mu.Lock()
	active := m.queueActive
	m.mu.Unlock()
	if !active {
		return
	}

	health, err := m.store.Health(ctx)
	if err != nil || health.Pending > 0 || health.Processing > 0 {
		return
	}

	m.mu.Lock()
	m.queueActive = false
	processed := m.processed
	failed := m.failed
	duration := time.Since(m.queueStart)
	m.mu.Unlock()

	if m.notifier != nil {
		if err := m.notifier.NotifyQueueCompleted(ctx, processed, failed, duration); err != nil {
			m.runLogger().Warn("queue completion notification failed", logging.Error(err))
		}
	}
}
