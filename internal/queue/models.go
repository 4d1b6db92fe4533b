package queue

import (
	"strings"
	"time"
)

// Status represents the lifecycle of a queue item.
type Status string

const (
	StatusPending      Status = "pending"
	StatusExtracting   Status = "extracting"
	StatusExtracted    Status = "extracted"
	StatusTranscribing Status = "transcribing"
	StatusTranscribed  Status = "transcribed"
	StatusCorrecting   Status = "correcting"
	StatusCorrected    Status = "corrected"
	StatusAnalyzing    Status = "analyzing"
	StatusAnalyzed     Status = "analyzed"
	StatusOrganizing   Status = "organizing"
	StatusCompleted    Status = "completed"
	StatusFailed       Status = "failed"
	StatusReview       Status = "review"
)

// ShutdownStopReason is the error message set when items are failed due to
// workflow shutdown.
const ShutdownStopReason = "Workflow stopped"

var allStatuses = []Status{
	StatusPending,
	StatusExtracting,
	StatusExtracted,
	StatusTranscribing,
	StatusTranscribed,
	StatusCorrecting,
	StatusCorrected,
	StatusAnalyzing,
	StatusAnalyzed,
	StatusOrganizing,
	StatusCompleted,
	StatusFailed,
	StatusReview,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

var processingStatuses = map[Status]struct{}{
	StatusExtracting:   {},
	StatusTranscribing: {},
	StatusCorrecting:   {},
	StatusAnalyzing:    {},
	StatusOrganizing:   {},
}

type statusTransition struct {
	from Status
	to   Status
}

// stageRollbackTransitions maps each in-flight status back to the status a
// stalled item should be reset to so the stage reruns from a clean boundary.
var stageRollbackTransitions = []statusTransition{
	{from: StatusExtracting, to: StatusPending},
	{from: StatusTranscribing, to: StatusExtracted},
	{from: StatusCorrecting, to: StatusTranscribed},
	{from: StatusAnalyzing, to: StatusCorrected},
	{from: StatusOrganizing, to: StatusAnalyzed},
}

// HealthSummary describes aggregated queue counts per key lifecycle states.
type HealthSummary struct {
	Total      int
	Pending    int
	Processing int
	Failed     int
	Review     int
	Completed  int
}

// Item represents a queue item persisted in SQLite.
type Item struct {
	ID              int64
	SourcePath      string
	Title           string
	Status          Status
	AudioFile       string
	SegmentCount    int
	TranscriptJSON  string
	TranscriptText  string
	CorrectedFile   string
	IdeasFile       string
	ProjectDir      string
	ErrorMessage    string
	CreatedAt       time.Time
	UpdatedAt       time.Time
	ProgressStage   string
	ProgressPercent float64
	ProgressMessage string
	LastHeartbeat   *time.Time
	NeedsReview     bool
	ReviewReason    string
}

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []Status {
	cp := make([]Status, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := statusSet[normalized]
	return normalized, ok
}

// IsProcessing returns true when the status reflects an in-flight operation.
func (i Item) IsProcessing() bool {
	_, ok := processingStatuses[i.Status]
	return ok
}

// IsProcessingStatus reports whether a status reflects an in-flight operation.
func IsProcessingStatus(status Status) bool {
	_, ok := processingStatuses[status]
	return ok
}

// IsTerminal reports whether the item needs no further workflow attention.
func (i Item) IsTerminal() bool {
	switch i.Status {
	case StatusCompleted, StatusFailed, StatusReview:
		return true
	default:
		return false
	}
}

// InitProgress resets progress fields for a new stage. If ProgressStage is
// currently empty it is set to the provided stage value; otherwise the
// existing stage is preserved to support resume scenarios.
func (i *Item) InitProgress(stage, message string) {
	if i.ProgressStage == "" {
		i.ProgressStage = stage
	}
	i.ProgressMessage = message
	i.ProgressPercent = 0
	i.ErrorMessage = ""
}

// SetProgress updates all three progress fields together.
func (i *Item) SetProgress(stage, message string, percent float64) {
	i.ProgressStage = stage
	i.ProgressMessage = message
	i.ProgressPercent = percent
}

// SetFailed marks the item as failed with the given error message.
func (i *Item) SetFailed(message string) {
	i.Status = StatusFailed
	i.ErrorMessage = message
	i.ProgressPercent = 0
	i.ProgressMessage = message
	i.LastHeartbeat = nil
	i.ProgressStage = "Failed"
}
