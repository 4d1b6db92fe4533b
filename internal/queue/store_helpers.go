package queue

import (
	"database/sql"
	"errors"
	"time"
)

const itemColumns = "id, source_path, title, status, audio_file, segment_count, transcript_json, transcript_text, corrected_file, ideas_file, project_dir, error_message, created_at, updated_at, progress_stage, progress_percent, progress_message, last_heartbeat, needs_review, review_reason"

func scanItem(scanner interface{ Scan(dest ...any) error }) (*Item, error) {
	var (
		id               int64
		sourcePath       sql.NullString
		title            sql.NullString
		statusStr        string
		audioFile        sql.NullString
		segmentCount     sql.NullInt64
		transcriptJSON   sql.NullString
		transcriptText   sql.NullString
		correctedFile    sql.NullString
		ideasFile        sql.NullString
		projectDir       sql.NullString
		errorMessage     sql.NullString
		createdRaw       sql.NullString
		updatedRaw       sql.NullString
		progressStage    sql.NullString
		progressPercent  sql.NullFloat64
		progressMessage  sql.NullString
		lastHeartbeatRaw sql.NullString
		needsReview      sql.NullInt64
		reviewReason     sql.NullString
	)

	if err := scanner.Scan(
		&id,
		&sourcePath,
		&title,
		&statusStr,
		&audioFile,
		&segmentCount,
		&transcriptJSON,
		&transcriptText,
		&correctedFile,
		&ideasFile,
		&projectDir,
		&errorMessage,
		&createdRaw,
		&updatedRaw,
		&progressStage,
		&progressPercent,
		&progressMessage,
		&lastHeartbeatRaw,
		&needsReview,
		&reviewReason,
	); err != nil {
		return nil, err
	}

	item := &Item{
		ID:              id,
		SourcePath:      sourcePath.String,
		Title:           title.String,
		Status:          Status(statusStr),
		AudioFile:       audioFile.String,
		SegmentCount:    int(segmentCount.Int64),
		TranscriptJSON:  transcriptJSON.String,
		TranscriptText:  transcriptText.String,
		CorrectedFile:   correctedFile.String,
		IdeasFile:       ideasFile.String,
		ProjectDir:      projectDir.String,
		ErrorMessage:    errorMessage.String,
		ProgressStage:   progressStage.String,
		ProgressPercent: progressPercent.Float64,
		ProgressMessage: progressMessage.String,
		ReviewReason:    reviewReason.String,
	}
	if needsReview.Valid {
		item.NeedsReview = needsReview.Int64 != 0
	}

	if created, err := parseTimeString(createdRaw.String); err == nil {
		item.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw.String); err == nil {
		item.UpdatedAt = updated
	}
	if lastHeartbeatRaw.Valid {
		if heartbeat, err := parseTimeString(lastHeartbeatRaw.String); err == nil {
			item.LastHeartbeat = &heartbeat
		}
	}
	return item, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func nullableTime(value *time.Time) any {
	if value == nil {
		return nil
	}
	return value.UTC().Format(time.RFC3339Nano)
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}

func makePlaceholders(count int) string {
	if count <= 0 {
		return ""
	}
	placeholders := make([]byte, 0, count*2)
	for i := 0; i < count; i++ {
		if i > 0 {
			placeholders = append(placeholders, ',')
		}
		placeholders = append(placeholders, '?')
	}
	return string(placeholders)
}
