package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"pulpit/internal/config"
)

const userAgent = "Pulpit/0.1.0"

// Service defines the notification surface exposed to workflow components.
type Service interface {
	NotifyIntakeDetected(ctx context.Context, title string) error
	NotifyTranscriptionCompleted(ctx context.Context, title string, segments int) error
	NotifyCorrectionCompleted(ctx context.Context, title string) error
	NotifyProcessingCompleted(ctx context.Context, title, projectDir string) error
	NotifyQueueStarted(ctx context.Context, count int) error
	NotifyQueueCompleted(ctx context.Context, processed, failed int, duration time.Duration) error
	NotifyError(ctx context.Context, err error, context string) error
	NotifyReviewRequired(ctx context.Context, title, reason string) error
	TestNotification(ctx context.Context) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &ntfyService{
		endpoint: topic,
		client:   &http.Client{Timeout: timeout},
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint string
	client   *http.Client
}

func (n *ntfyService) NotifyIntakeDetected(ctx context.Context, title string) error {
	data := payload{
		title:   "Pulpit - New Recording",
		message: fmt.Sprintf("New recording queued: %s", strings.TrimSpace(title)),
		tags:    []string{"pulpit", "intake", "detected"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyTranscriptionCompleted(ctx context.Context, title string, segments int) error {
	data := payload{
		title:   "Pulpit - Transcribed",
		message: fmt.Sprintf("Transcription complete: %s (%d segments)", strings.TrimSpace(title), segments),
		tags:    []string{"pulpit", "transcribe", "completed"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyCorrectionCompleted(ctx context.Context, title string) error {
	data := payload{
		title:   "Pulpit - Corrected",
		message: fmt.Sprintf("Correction complete: %s", strings.TrimSpace(title)),
		tags:    []string{"pulpit", "correct", "completed"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyProcessingCompleted(ctx context.Context, title, projectDir string) error {
	title = strings.TrimSpace(title)
	message := fmt.Sprintf("Ready for review: %s", title)
	if projectDir = strings.TrimSpace(projectDir); projectDir != "" {
		message = fmt.Sprintf("%s\nProject: %s", message, projectDir)
	}
	data := payload{
		title:    "Pulpit - Complete",
		message:  message,
		tags:     []string{"pulpit", "workflow", "completed"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyQueueStarted(ctx context.Context, count int) error {
	data := payload{
		title:   "Pulpit - Queue Started",
		message: fmt.Sprintf("Started processing queue with %d items", count),
		tags:    []string{"pulpit", "queue", "started"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyQueueCompleted(ctx context.Context, processed, failed int, duration time.Duration) error {
	duration = duration.Round(time.Second)
	if duration < 0 {
		duration = 0
	}
	durationText := duration.String()
	if duration == 0 {
		durationText = "0s"
	}

	var title string
	var message string
	if failed == 0 {
		title = "Pulpit - Queue Complete"
		message = fmt.Sprintf("Queue processing complete: %d items processed in %s", processed, durationText)
	} else {
		title = "Pulpit - Queue Complete (with errors)"
		message = fmt.Sprintf("Queue processing complete: %d succeeded, %d failed in %s", processed, failed, durationText)
	}

	data := payload{
		title:   title,
		message: message,
		tags:    []string{"pulpit", "queue", "completed"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyError(ctx context.Context, err error, contextLabel string) error {
	var builder strings.Builder
	builder.WriteString("Error")
	if contextLabel = strings.TrimSpace(contextLabel); contextLabel != "" {
		builder.WriteString(" with ")
		builder.WriteString(contextLabel)
	}
	builder.WriteString(": ")
	if err != nil {
		builder.WriteString(strings.TrimSpace(err.Error()))
	} else {
		builder.WriteString("unknown")
	}

	data := payload{
		title:    "Pulpit - Error",
		message:  builder.String(),
		tags:     []string{"pulpit", "error", "alert"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyReviewRequired(ctx context.Context, title, reason string) error {
	title = strings.TrimSpace(title)
	message := fmt.Sprintf("Manual review required: %s", title)
	if reason = strings.TrimSpace(reason); reason != "" {
		message = fmt.Sprintf("%s\nReason: %s", message, reason)
	}
	data := payload{
		title:   "Pulpit - Review Required",
		message: message,
		tags:    []string{"pulpit", "review"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	data := payload{
		title:    "Pulpit - Test",
		message:  "Notification system test",
		tags:     []string{"pulpit", "test"},
		priority: "low",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) send(ctx context.Context, data payload) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.message))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" && data.priority != "default" {
		req.Header.Set("Priority", data.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type noopService struct{}

func (noopService) NotifyIntakeDetected(context.Context, string) error                  { return nil }
func (noopService) NotifyTranscriptionCompleted(context.Context, string, int) error     { return nil }
func (noopService) NotifyCorrectionCompleted(context.Context, string) error             { return nil }
func (noopService) NotifyProcessingCompleted(context.Context, string, string) error     { return nil }
func (noopService) NotifyQueueStarted(context.Context, int) error                       { return nil }
func (noopService) NotifyQueueCompleted(context.Context, int, int, time.Duration) error { return nil }
func (noopService) NotifyError(context.Context, error, string) error                    { return nil }
func (noopService) NotifyReviewRequired(context.Context, string, string) error          { return nil }
func (noopService) TestNotification(context.Context) error                              { return nil }
