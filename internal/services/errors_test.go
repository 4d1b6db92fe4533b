package services_test

import (
	"errors"
	"strings"
	"testing"

	"pulpit/internal/queue"
	"pulpit/internal/services"
)

func TestWrapIncludesStageContext(t *testing.T) {
	cause := errors.New("disk full")
	err := services.Wrap(services.ErrConfiguration, "extracting", "write audio", "could not write wav", cause)

	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration marker: %v", err)
	}
	if !errors.Is(err, cause) {
		t.Fatalf("expected wrapped cause: %v", err)
	}
	for _, fragment := range []string{"extracting", "write audio", "could not write wav", "disk full"} {
		if !strings.Contains(err.Error(), fragment) {
			t.Fatalf("error %q missing %q", err.Error(), fragment)
		}
	}
}

func TestWrapDefaultsToTransient(t *testing.T) {
	err := services.Wrap(nil, "transcribing", "upload", "request failed", nil)
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected transient marker: %v", err)
	}
}

func TestFailureStatus(t *testing.T) {
	tests := []struct {
		name   string
		marker error
		want   queue.Status
	}{
		{name: "validation routes to review", marker: services.ErrValidation, want: queue.StatusReview},
		{name: "configuration routes to review", marker: services.ErrConfiguration, want: queue.StatusReview},
		{name: "not found routes to review", marker: services.ErrNotFound, want: queue.StatusReview},
		{name: "rejected api response routes to review", marker: services.ErrAPIRejected, want: queue.StatusReview},
		{name: "transient routes to failed", marker: services.ErrTransient, want: queue.StatusFailed},
		{name: "external tool routes to failed", marker: services.ErrExternalTool, want: queue.StatusFailed},
		{name: "timeout routes to failed", marker: services.ErrTimeout, want: queue.StatusFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := services.Wrap(tt.marker, "stage", "op", "message", nil)
			if got := services.FailureStatus(err); got != tt.want {
				t.Fatalf("FailureStatus = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFailureStatusPlainError(t *testing.T) {
	if got := services.FailureStatus(errors.New("boom")); got != queue.StatusFailed {
		t.Fatalf("plain errors should fail, got %v", got)
	}
}
