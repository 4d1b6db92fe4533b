package notifications_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"pulpit/internal/notifications"
	"pulpit/internal/testsupport"
)

type capturedRequest struct {
	title    string
	message  string
	tags     string
	priority string
}

func newCaptureServer(t *testing.T) (*httptest.Server, func() []capturedRequest) {
	t.Helper()
	var mu sync.Mutex
	var requests []capturedRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		mu.Lock()
		requests = append(requests, capturedRequest{
			title:    r.Header.Get("Title"),
			message:  string(body),
			tags:     r.Header.Get("Tags"),
			priority: r.Header.Get("Priority"),
		})
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(server.Close)
	return server, func() []capturedRequest {
		mu.Lock()
		defer mu.Unlock()
		return append([]capturedRequest(nil), requests...)
	}
}

func TestNewServiceReturnsNoopWhenTopicMissing(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Notifications.NtfyTopic = ""
	svc := notifications.NewService(cfg)
	if err := svc.NotifyIntakeDetected(context.Background(), "Example"); err != nil {
		t.Fatalf("expected noop notifier to return nil, got %v", err)
	}
	if err := svc.TestNotification(context.Background()); err != nil {
		t.Fatalf("expected noop test notification to return nil, got %v", err)
	}
}

func TestNtfyServiceFormatsPayloads(t *testing.T) {
	server, captured := newCaptureServer(t)
	cfg := testsupport.NewConfig(t)
	cfg.Notifications.NtfyTopic = server.URL
	svc := notifications.NewService(cfg)
	ctx := context.Background()

	tests := []struct {
		name           string
		send           func() error
		expectTitle    string
		expectMessage  string
		expectTags     string
		expectPriority string
	}{
		{
			name:          "intake detected",
			send:          func() error { return svc.NotifyIntakeDetected(ctx, "La Fe Que Vence") },
			expectTitle:   "Pulpit - New Recording",
			expectMessage: "New recording queued: La Fe Que Vence",
			expectTags:    "pulpit,intake,detected",
		},
		{
			name:          "transcription completed",
			send:          func() error { return svc.NotifyTranscriptionCompleted(ctx, "La Fe Que Vence", 8) },
			expectTitle:   "Pulpit - Transcribed",
			expectMessage: "Transcription complete: La Fe Que Vence (8 segments)",
			expectTags:    "pulpit,transcribe,completed",
		},
		{
			name:          "correction completed",
			send:          func() error { return svc.NotifyCorrectionCompleted(ctx, "La Fe Que Vence") },
			expectTitle:   "Pulpit - Corrected",
			expectMessage: "Correction complete: La Fe Que Vence",
			expectTags:    "pulpit,correct,completed",
		},
		{
			name:           "processing completed",
			send:           func() error { return svc.NotifyProcessingCompleted(ctx, "La Fe Que Vence", "20260824_101500_ab12cd34_La_Fe") },
			expectTitle:    "Pulpit - Complete",
			expectMessage:  "Ready for review: La Fe Que Vence\nProject: 20260824_101500_ab12cd34_La_Fe",
			expectTags:     "pulpit,workflow,completed",
			expectPriority: "high",
		},
		{
			name:          "queue started",
			send:          func() error { return svc.NotifyQueueStarted(ctx, 3) },
			expectTitle:   "Pulpit - Queue Started",
			expectMessage: "Started processing queue with 3 items",
			expectTags:    "pulpit,queue,started",
		},
		{
			name:          "queue completed clean",
			send:          func() error { return svc.NotifyQueueCompleted(ctx, 3, 0, 95*time.Second) },
			expectTitle:   "Pulpit - Queue Complete",
			expectMessage: "Queue processing complete: 3 items processed in 1m35s",
			expectTags:    "pulpit,queue,completed",
		},
		{
			name:          "queue completed with errors",
			send:          func() error { return svc.NotifyQueueCompleted(ctx, 2, 1, time.Minute) },
			expectTitle:   "Pulpit - Queue Complete (with errors)",
			expectMessage: "Queue processing complete: 2 succeeded, 1 failed in 1m0s",
			expectTags:    "pulpit,queue,completed",
		},
		{
			name:           "review required",
			send:           func() error { return svc.NotifyReviewRequired(ctx, "La Fe Que Vence", "no audio stream") },
			expectTitle:    "Pulpit - Review Required",
			expectMessage:  "Manual review required: La Fe Que Vence\nReason: no audio stream",
			expectTags:     "pulpit,review",
			expectPriority: "",
		},
		{
			name:           "test notification",
			send:           func() error { return svc.TestNotification(ctx) },
			expectTitle:    "Pulpit - Test",
			expectMessage:  "Notification system test",
			expectTags:     "pulpit,test",
			expectPriority: "low",
		},
	}

	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.send(); err != nil {
				t.Fatalf("send: %v", err)
			}
			requests := captured()
			if len(requests) != i+1 {
				t.Fatalf("expected %d requests, got %d", i+1, len(requests))
			}
			got := requests[i]
			if got.title != tt.expectTitle {
				t.Errorf("title = %q, want %q", got.title, tt.expectTitle)
			}
			if got.message != tt.expectMessage {
				t.Errorf("message = %q, want %q", got.message, tt.expectMessage)
			}
			if got.tags != tt.expectTags {
				t.Errorf("tags = %q, want %q", got.tags, tt.expectTags)
			}
			if got.priority != tt.expectPriority {
				t.Errorf("priority = %q, want %q", got.priority, tt.expectPriority)
			}
		})
	}
}

func TestNtfyServiceReportsServerErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "topic quota exceeded", http.StatusTooManyRequests)
	}))
	t.Cleanup(server.Close)

	cfg := testsupport.NewConfig(t)
	cfg.Notifications.NtfyTopic = server.URL
	svc := notifications.NewService(cfg)

	err := svc.TestNotification(context.Background())
	if err == nil {
		t.Fatal("expected error for non-2xx response")
	}
}

func TestNotifyErrorIncludesContext(t *testing.T) {
	server, captured := newCaptureServer(t)
	cfg := testsupport.NewConfig(t)
	cfg.Notifications.NtfyTopic = server.URL
	svc := notifications.NewService(cfg)

	if err := svc.NotifyError(context.Background(), io.ErrUnexpectedEOF, "transcribe stage"); err != nil {
		t.Fatalf("NotifyError: %v", err)
	}
	requests := captured()
	if len(requests) != 1 {
		t.Fatalf("expected 1 request, got %d", len(requests))
	}
	if requests[0].message != "Error with transcribe stage: unexpected EOF" {
		t.Fatalf("message = %q", requests[0].message)
	}
	if requests[0].priority != "high" {
		t.Fatalf("priority = %q, want high", requests[0].priority)
	}
}
