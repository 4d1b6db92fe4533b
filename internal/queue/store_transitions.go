package queue

import (
	"context"
	"fmt"
	"time"
)

// ResetStuckProcessing resets items in processing states back to the start of
// their current stage.
func (s *Store) ResetStuckProcessing(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(
		ctx,
		`UPDATE queue_items
         SET status = CASE status
             WHEN ? THEN ?
             WHEN ? THEN ?
             WHEN ? THEN ?
             WHEN ? THEN ?
             WHEN ? THEN ?
             ELSE status
         END,
             progress_stage = 'Reset from stuck processing',
             progress_percent = 0, progress_message = NULL, last_heartbeat = NULL, updated_at = ?
         WHERE status IN (?, ?, ?, ?, ?)`,
		StatusExtracting, StatusPending,
		StatusTranscribing, StatusExtracted,
		StatusCorrecting, StatusTranscribed,
		StatusAnalyzing, StatusCorrected,
		StatusOrganizing, StatusAnalyzed,
		time.Now().UTC().Format(time.RFC3339Nano),
		StatusExtracting,
		StatusTranscribing,
		StatusCorrecting,
		StatusAnalyzing,
		StatusOrganizing,
	)
	if err != nil {
		return 0, fmt.Errorf("reset stuck items: %w", err)
	}
	return res.RowsAffected()
}

// UpdateHeartbeat updates the last heartbeat timestamp for an in-flight item.
func (s *Store) UpdateHeartbeat(ctx context.Context, id int64) error {
	now := time.Now().UTC()
	if _, err := s.db.ExecContext(
		ctx,
		`UPDATE queue_items SET last_heartbeat = ?, updated_at = ? WHERE id = ?`,
		now.Format(time.RFC3339Nano),
		now.Format(time.RFC3339Nano),
		id,
	); err != nil {
		return fmt.Errorf("update heartbeat: %w", err)
	}
	return nil
}

// ReclaimStaleProcessing returns items stuck in processing back to the start
// of their current stage when heartbeats expire.
func (s *Store) ReclaimStaleProcessing(ctx context.Context, cutoff time.Time) (int64, error) {
	now := time.Now().UTC()
	res, err := s.db.ExecContext(
		ctx,
		`UPDATE queue_items
        SET status = CASE status
            WHEN ? THEN ?
            WHEN ? THEN ?
            WHEN ? THEN ?
            WHEN ? THEN ?
            WHEN ? THEN ?
            ELSE status
        END,
            progress_stage = 'Reclaimed from stale processing',
            progress_percent = 0, progress_message = NULL, last_heartbeat = NULL, updated_at = ?
        WHERE status IN (?, ?, ?, ?, ?) AND last_heartbeat IS NOT NULL AND last_heartbeat < ?`,
		StatusExtracting, StatusPending,
		StatusTranscribing, StatusExtracted,
		StatusCorrecting, StatusTranscribed,
		StatusAnalyzing, StatusCorrected,
		StatusOrganizing, StatusAnalyzed,
		now.Format(time.RFC3339Nano),
		StatusExtracting,
		StatusTranscribing,
		StatusCorrecting,
		StatusAnalyzing,
		StatusOrganizing,
		cutoff.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return 0, fmt.Errorf("reclaim stale items: %w", err)
	}
	return res.RowsAffected()
}

// RetryFailed moves failed items back to pending for reprocessing. With no
// ids, every failed item is retried.
func (s *Store) RetryFailed(ctx context.Context, ids ...int64) (int64, error) {
	timestamp := time.Now().UTC().Format(time.RFC3339Nano)
	if len(ids) == 0 {
		res, err := s.db.ExecContext(
			ctx,
			`UPDATE queue_items
            SET status = ?, progress_stage = 'Retry requested', progress_percent = 0,
                progress_message = NULL, error_message = NULL, updated_at = ?
            WHERE status = ?`,
			StatusPending,
			timestamp,
			StatusFailed,
		)
		if err != nil {
			return 0, fmt.Errorf("retry failed items: %w", err)
		}
		return res.RowsAffected()
	}

	placeholders := makePlaceholders(len(ids))
	args := make([]any, 0, len(ids)+3)
	args = append(args, StatusPending, timestamp, StatusFailed)
	for _, id := range ids {
		args = append(args, id)
	}
	query := `UPDATE queue_items
        SET status = ?, progress_stage = 'Retry requested', progress_percent = 0,
            progress_message = NULL, error_message = NULL, updated_at = ?
        WHERE status = ? AND id IN (` + placeholders + `)`
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("retry selected items: %w", err)
	}
	return res.RowsAffected()
}

// Clear removes queue items. When completedOnly is set, only completed items
// are removed.
func (s *Store) Clear(ctx context.Context, completedOnly bool) (int64, error) {
	query := `DELETE FROM queue_items`
	args := []any{}
	if completedOnly {
		query += ` WHERE status = ?`
		args = append(args, StatusCompleted)
	}
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("clear queue: %w", err)
	}
	return res.RowsAffected()
}

// ClearFailed removes failed items from the queue.
func (s *Store) ClearFailed(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM queue_items WHERE status = ?`, StatusFailed)
	if err != nil {
		return 0, fmt.Errorf("clear failed items: %w", err)
	}
	return res.RowsAffected()
}

// FailProcessing marks every in-flight item as failed with the given reason.
// Used when the workflow shuts down without finishing its current item.
func (s *Store) FailProcessing(ctx context.Context, reason string) (int64, error) {
	res, err := s.db.ExecContext(
		ctx,
		`UPDATE queue_items
        SET status = ?, error_message = ?, progress_message = ?, last_heartbeat = NULL, updated_at = ?
        WHERE status IN (?, ?, ?, ?, ?)`,
		StatusFailed,
		reason,
		reason,
		time.Now().UTC().Format(time.RFC3339Nano),
		StatusExtracting,
		StatusTranscribing,
		StatusCorrecting,
		StatusAnalyzing,
		StatusOrganizing,
	)
	if err != nil {
		return 0, fmt.Errorf("fail processing items: %w", err)
	}
	return res.RowsAffected()
}
