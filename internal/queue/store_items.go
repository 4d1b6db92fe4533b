package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// NewFile enqueues a media file awaiting audio extraction.
func (s *Store) NewFile(ctx context.Context, sourcePath string) (*Item, error) {
	sourcePath = strings.TrimSpace(sourcePath)
	if sourcePath == "" {
		return nil, errors.New("source path required")
	}

	now := time.Now().UTC()
	timestamp := now.Format(time.RFC3339Nano)
	title := inferTitleFromPath(sourcePath)

	res, err := s.db.ExecContext(
		ctx,
		`INSERT INTO queue_items (
            source_path, title, status, created_at, updated_at,
            progress_stage, progress_percent, progress_message
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		sourcePath,
		title,
		StatusPending,
		timestamp,
		timestamp,
		nil,
		0.0,
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("insert file: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}

	return s.GetByID(ctx, id)
}

// GetByID fetches a queue item by identifier.
func (s *Store) GetByID(ctx context.Context, id int64) (*Item, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+itemColumns+` FROM queue_items WHERE id = ?`, id)
	item, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get item: %w", err)
	}
	return item, nil
}

// FindBySourcePath returns the first item matching a source path.
func (s *Store) FindBySourcePath(ctx context.Context, sourcePath string) (*Item, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT `+itemColumns+` FROM queue_items WHERE source_path = ? ORDER BY id LIMIT 1`,
		sourcePath,
	)
	item, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find by source path: %w", err)
	}
	return item, nil
}

// Update persists changes to an existing queue item.
func (s *Store) Update(ctx context.Context, item *Item) error {
	if item == nil {
		return errors.New("item is nil")
	}
	item.UpdatedAt = time.Now().UTC()
	_, err := s.db.ExecContext(
		ctx,
		`UPDATE queue_items
         SET source_path = ?, title = ?, status = ?, audio_file = ?, segment_count = ?,
             transcript_json = ?, transcript_text = ?, corrected_file = ?, ideas_file = ?,
             project_dir = ?, error_message = ?, updated_at = ?, progress_stage = ?,
             progress_percent = ?, progress_message = ?, last_heartbeat = ?,
             needs_review = ?, review_reason = ?
         WHERE id = ?`,
		nullableString(item.SourcePath),
		nullableString(item.Title),
		item.Status,
		nullableString(item.AudioFile),
		item.SegmentCount,
		nullableString(item.TranscriptJSON),
		nullableString(item.TranscriptText),
		nullableString(item.CorrectedFile),
		nullableString(item.IdeasFile),
		nullableString(item.ProjectDir),
		nullableString(item.ErrorMessage),
		item.UpdatedAt.Format(time.RFC3339Nano),
		nullableString(item.ProgressStage),
		item.ProgressPercent,
		nullableString(item.ProgressMessage),
		nullableTime(item.LastHeartbeat),
		boolToInt(item.NeedsReview),
		nullableString(item.ReviewReason),
		item.ID,
	)
	if err != nil {
		return fmt.Errorf("update item: %w", err)
	}
	return nil
}

// List returns queue items, optionally filtered by statuses, ordered by id.
func (s *Store) List(ctx context.Context, statuses ...Status) ([]*Item, error) {
	query := `SELECT ` + itemColumns + ` FROM queue_items`
	args := make([]any, 0, len(statuses))
	if len(statuses) > 0 {
		query += ` WHERE status IN (` + makePlaceholders(len(statuses)) + `)`
		for _, status := range statuses {
			args = append(args, status)
		}
	}
	query += ` ORDER BY id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	defer rows.Close()

	var items []*Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// NextForStatuses returns the oldest item whose status matches one of the
// provided values, or nil when none exists.
func (s *Store) NextForStatuses(ctx context.Context, statuses ...Status) (*Item, error) {
	if len(statuses) == 0 {
		return nil, nil
	}
	args := make([]any, 0, len(statuses))
	for _, status := range statuses {
		args = append(args, status)
	}
	row := s.db.QueryRowContext(
		ctx,
		`SELECT `+itemColumns+` FROM queue_items
         WHERE status IN (`+makePlaceholders(len(statuses))+`)
         ORDER BY id LIMIT 1`,
		args...,
	)
	item, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("next item: %w", err)
	}
	return item, nil
}

// Stats returns per-status item counts.
func (s *Store) Stats(ctx context.Context) (map[Status]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(1) FROM queue_items GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("queue stats: %w", err)
	}
	defer rows.Close()

	stats := make(map[Status]int)
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("scan stats: %w", err)
		}
		stats[Status(status)] = count
	}
	return stats, rows.Err()
}

// Health aggregates queue counts into a summary.
func (s *Store) Health(ctx context.Context) (HealthSummary, error) {
	stats, err := s.Stats(ctx)
	if err != nil {
		return HealthSummary{}, err
	}
	summary := HealthSummary{}
	for status, count := range stats {
		summary.Total += count
		switch {
		case status == StatusPending:
			summary.Pending += count
		case IsProcessingStatus(status):
			summary.Processing += count
		case status == StatusFailed:
			summary.Failed += count
		case status == StatusReview:
			summary.Review += count
		case status == StatusCompleted:
			summary.Completed += count
		}
	}
	return summary, nil
}
