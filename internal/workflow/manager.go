package workflow

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"pulpit/internal/config"
	"pulpit/internal/correct"
	"pulpit/internal/extract"
	"pulpit/internal/ideas"
	"pulpit/internal/notifications"
	"pulpit/internal/organize"
	"pulpit/internal/queue"
	"pulpit/internal/stage"
	"pulpit/internal/transcribe"
)

// pipelineStage binds a stage handler to the statuses it consumes and emits.
type pipelineStage struct {
	name             string
	startStatus      queue.Status
	processingStatus queue.Status
	doneStatus       queue.Status
	handler          stage.Handler
}

// Manager coordinates queue processing by driving items through the
// registered stages in order.
type Manager struct {
	cfg          *config.Config
	store        *queue.Store
	logger       *slog.Logger
	notifier     notifications.Service
	pollInterval time.Duration
	heartbeat    *HeartbeatMonitor

	stages      []pipelineStage
	stageByName map[queue.Status]int

	mu       sync.RWMutex
	running  bool
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	lastErr  error
	lastItem *queue.Item

	queueActive bool
	queueStart  time.Time
	processed   int
	failed      int
}

// NewManager constructs a workflow manager with the default stage handlers.
func NewManager(cfg *config.Config, store *queue.Store, logger *slog.Logger) *Manager {
	return NewManagerWithNotifier(cfg, store, logger, notifications.NewService(cfg))
}

// NewManagerWithNotifier constructs a workflow manager with a custom notifier (used in tests).
func NewManagerWithNotifier(cfg *config.Config, store *queue.Store, logger *slog.Logger, notifier notifications.Service) *Manager {
	m := newManagerCore(cfg, store, logger, notifier)
	m.RegisterStage("extract", queue.StatusPending, queue.StatusExtracting, queue.StatusExtracted,
		extract.NewExtractor(cfg, store, logger))
	m.RegisterStage("transcribe", queue.StatusExtracted, queue.StatusTranscribing, queue.StatusTranscribed,
		transcribe.NewTranscriber(cfg, store, logger))
	m.RegisterStage("correct", queue.StatusTranscribed, queue.StatusCorrecting, queue.StatusCorrected,
		correct.NewCorrector(cfg, store, logger))
	m.RegisterStage("analyze", queue.StatusCorrected, queue.StatusAnalyzing, queue.StatusAnalyzed,
		ideas.NewAnalyzer(cfg, store, logger))
	m.RegisterStage("organize", queue.StatusAnalyzed, queue.StatusOrganizing, queue.StatusCompleted,
		organize.NewOrganizer(cfg, store, logger))
	return m
}

// NewManagerBare constructs a manager with no stages registered (used in tests).
func NewManagerBare(cfg *config.Config, store *queue.Store, logger *slog.Logger, notifier notifications.Service) *Manager {
	return newManagerCore(cfg, store, logger, notifier)
}

func newManagerCore(cfg *config.Config, store *queue.Store, logger *slog.Logger, notifier notifications.Service) *Manager {
	return &Manager{
		cfg:          cfg,
		store:        store,
		logger:       logger,
		notifier:     notifier,
		pollInterval: time.Duration(cfg.Workflow.QueuePollInterval) * time.Second,
		heartbeat: NewHeartbeatMonitor(
			store,
			logger,
			time.Duration(cfg.Workflow.HeartbeatInterval)*time.Second,
			time.Duration(cfg.Workflow.HeartbeatTimeout)*time.Second,
		),
		stageByName: make(map[queue.Status]int),
	}
}

// RegisterStage appends a stage to the pipeline. Stages run in registration
// order; each consumes items whose status equals its start status.
func (m *Manager) RegisterStage(name string, start, processing, done queue.Status, handler stage.Handler) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stageByName[start] = len(m.stages)
	m.stages = append(m.stages, pipelineStage{
		name:             name,
		startStatus:      start,
		processingStatus: processing,
		doneStatus:       done,
		handler:          handler,
	})
}

func (m *Manager) stageForStatus(status queue.Status) (pipelineStage, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	index, ok := m.stageByName[status]
	if !ok {
		return pipelineStage{}, false
	}
	return m.stages[index], true
}

func (m *Manager) startStatuses() []queue.Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	statuses := make([]queue.Status, 0, len(m.stages))
	for _, s := range m.stages {
		statuses = append(statuses, s.startStatus)
	}
	return statuses
}

func (m *Manager) setLastError(err error) {
	m.mu.Lock()
	m.lastErr = err
	m.mu.Unlock()
}

// LastError returns the most recent processing error, if any.
func (m *Manager) LastError() error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastErr
}

func (m *Manager) setLastItem(item *queue.Item) {
	m.mu.Lock()
	copied := *item
	m.lastItem = &copied
	m.mu.Unlock()
}

// LastItem returns a copy of the most recently processed item.
func (m *Manager) LastItem() *queue.Item {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.lastItem == nil {
		return nil
	}
	copied := *m.lastItem
	return &copied
}

// Running reports whether background processing is active.
func (m *Manager) Running() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.running
}
