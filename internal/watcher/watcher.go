package watcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"pulpit/internal/config"
	"pulpit/internal/logging"
	"pulpit/internal/notifications"
	"pulpit/internal/queue"
)

// candidate tracks a file seen in the intake directory until its size stops
// changing, which signals the upload or copy has finished.
type candidate struct {
	size      int64
	lastCheck time.Time
	stableFor time.Duration
}

// Watcher enqueues recordings dropped into the intake directory.
type Watcher struct {
	cfg      *config.Config
	store    *queue.Store
	logger   *slog.Logger
	notifier notifications.Service
	settle   time.Duration

	mu         sync.Mutex
	candidates map[string]*candidate
}

// New constructs an intake watcher.
func New(cfg *config.Config, store *queue.Store, logger *slog.Logger, notifier notifications.Service) *Watcher {
	if logger != nil {
		logger = logger.With(logging.String("component", "watcher"))
	}
	settle := time.Duration(cfg.Workflow.WatchSettleSeconds) * time.Second
	if settle <= 0 {
		settle = 5 * time.Second
	}
	return &Watcher{
		cfg:        cfg,
		store:      store,
		logger:     logger,
		notifier:   notifier,
		settle:     settle,
		candidates: make(map[string]*candidate),
	}
}

// Run watches the intake directory until the context is cancelled. Files
// already present at startup are considered as well.
func (w *Watcher) Run(ctx context.Context) error {
	intake := strings.TrimSpace(w.cfg.Paths.IntakeDir)
	if intake == "" {
		return errors.New("watcher: intake_dir not configured")
	}
	if err := os.MkdirAll(intake, 0o755); err != nil {
		return fmt.Errorf("watcher: create intake dir: %w", err)
	}

	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watcher: %w", err)
	}
	defer fsWatcher.Close()
	if err := fsWatcher.Add(intake); err != nil {
		return fmt.Errorf("watcher: watch %s: %w", intake, err)
	}

	logger := logging.WithContext(ctx, w.logger)
	logger.Info("watching intake directory", logging.String("intake_dir", intake))

	if err := w.scanExisting(ctx, intake); err != nil {
		logger.Warn("initial intake scan failed", logging.Error(err))
	}

	ticker := time.NewTicker(w.settle / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-fsWatcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			w.consider(ctx, event.Name)
		case err, ok := <-fsWatcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watch error", logging.Error(err))
		case <-ticker.C:
			w.enqueueSettled(ctx)
		}
	}
}

func (w *Watcher) scanExisting(ctx context.Context, intake string) error {
	entries, err := os.ReadDir(intake)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		w.consider(ctx, filepath.Join(intake, entry.Name()))
	}
	return nil
}

func (w *Watcher) consider(ctx context.Context, path string) {
	if !w.cfg.AcceptsFormat(path) {
		return
	}
	logger := logging.WithContext(ctx, w.logger)

	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	entry, exists := w.candidates[path]
	if !exists {
		w.candidates[path] = &candidate{size: info.Size(), lastCheck: time.Now()}
		logger.Debug("tracking intake candidate", logging.String("file", filepath.Base(path)))
		return
	}
	// A write event means the file is still growing; restart the clock.
	entry.size = info.Size()
	entry.lastCheck = time.Now()
	entry.stableFor = 0
}

// enqueueSettled promotes candidates whose size has been stable for the
// settle window into queue items.
func (w *Watcher) enqueueSettled(ctx context.Context) {
	logger := logging.WithContext(ctx, w.logger)

	w.mu.Lock()
	paths := make([]string, 0, len(w.candidates))
	for path := range w.candidates {
		paths = append(paths, path)
	}
	w.mu.Unlock()

	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			w.forget(path)
			continue
		}

		w.mu.Lock()
		entry := w.candidates[path]
		if entry == nil {
			w.mu.Unlock()
			continue
		}
		now := time.Now()
		if info.Size() != entry.size {
			entry.size = info.Size()
			entry.lastCheck = now
			entry.stableFor = 0
			w.mu.Unlock()
			continue
		}
		entry.stableFor += now.Sub(entry.lastCheck)
		entry.lastCheck = now
		settled := entry.stableFor >= w.settle
		w.mu.Unlock()

		if !settled {
			continue
		}
		w.forget(path)
		if err := w.enqueue(ctx, path); err != nil {
			logger.Error("failed to enqueue intake file",
				logging.String("file", filepath.Base(path)),
				logging.Error(err),
			)
		}
	}
}

func (w *Watcher) forget(path string) {
	w.mu.Lock()
	delete(w.candidates, path)
	w.mu.Unlock()
}

func (w *Watcher) enqueue(ctx context.Context, path string) error {
	logger := logging.WithContext(ctx, w.logger)

	existing, err := w.store.FindBySourcePath(ctx, path)
	if err != nil {
		return err
	}
	if existing != nil {
		logger.Debug("intake file already queued",
			logging.String("file", filepath.Base(path)),
			logging.Int64(logging.FieldItemID, existing.ID),
		)
		return nil
	}

	item, err := w.store.NewFile(ctx, path)
	if err != nil {
		return err
	}
	logger.Info("queued intake file",
		logging.String("file", filepath.Base(path)),
		logging.String("title", item.Title),
		logging.Int64(logging.FieldItemID, item.ID),
	)
	if w.notifier != nil {
		if err := w.notifier.NotifyIntakeDetected(ctx, item.Title); err != nil {
			logger.Warn("intake notification failed", logging.Error(err))
		}
	}
	return nil
}
