package correct_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"pulpit/internal/correct"
	"pulpit/internal/logging"
	"pulpit/internal/queue"
	"pulpit/internal/services"
	"pulpit/internal/testsupport"
)

type fakeCompleter struct {
	responses []string
	errs      []error
	calls     int
	prompts   []string
}

func (f *fakeCompleter) Complete(ctx context.Context, systemPrompt, userPrompt string, temperature float32) (string, error) {
	index := f.calls
	f.calls++
	f.prompts = append(f.prompts, userPrompt)
	if index < len(f.errs) && f.errs[index] != nil {
		return "", f.errs[index]
	}
	if index < len(f.responses) {
		return f.responses[index], nil
	}
	return userPrompt, nil
}

func (f *fakeCompleter) HealthCheck(ctx context.Context) error { return nil }

func TestDriftExceeded(t *testing.T) {
	tests := []struct {
		name      string
		original  string
		corrected string
		ratio     float64
		want      bool
	}{
		{name: "identical", original: "hola mundo", corrected: "hola mundo", ratio: 0.2, want: false},
		{name: "small change", original: strings.Repeat("a", 100), corrected: strings.Repeat("a", 110), ratio: 0.2, want: false},
		{name: "grew too much", original: strings.Repeat("a", 100), corrected: strings.Repeat("a", 130), ratio: 0.2, want: true},
		{name: "shrank too much", original: strings.Repeat("a", 100), corrected: strings.Repeat("a", 70), ratio: 0.2, want: true},
		{name: "zero ratio disables check", original: "abc", corrected: "abcdefghij", ratio: 0, want: false},
		{name: "empty original", original: "", corrected: "text", ratio: 0.2, want: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := correct.DriftExceeded(tt.original, tt.corrected, tt.ratio); got != tt.want {
				t.Fatalf("DriftExceeded(%q, %q, %v) = %v, want %v", tt.original, tt.corrected, tt.ratio, got, tt.want)
			}
		})
	}
}

func TestJoinUnits(t *testing.T) {
	tests := []struct {
		name  string
		units []string
		want  string
	}{
		{name: "space between units", units: []string{"One.", "Two."}, want: "One. Two."},
		{name: "newline boundary preserved", units: []string{"One.\n\n", "Two."}, want: "One.\n\nTwo."},
		{name: "single unit", units: []string{"Only."}, want: "Only."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := correct.JoinUnits(tt.units); got != tt.want {
				t.Fatalf("JoinUnits = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestCorrectTextDocumentMode(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithCorrectionMode(correct.ModeDocument))
	completer := &fakeCompleter{responses: []string{"Texto corregido y limpio."}}
	corrector := correct.NewCorrectorWithDependencies(cfg, nil, logging.NewNop(), completer, nil)

	got, err := corrector.CorrectText(context.Background(), "Texto original con errores.", nil)
	if err != nil {
		t.Fatalf("CorrectText: %v", err)
	}
	if got != "Texto corregido y limpio." {
		t.Fatalf("corrected = %q", got)
	}
	if completer.calls != 1 {
		t.Fatalf("expected 1 completion call, got %d", completer.calls)
	}
}

func TestCorrectTextDocumentModeRetriesOnDrift(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithCorrectionMode(correct.ModeDocument))
	original := strings.Repeat("palabra ", 20) + "fin."
	drifted := "resumen corto"
	completer := &fakeCompleter{responses: []string{drifted, original}}
	corrector := correct.NewCorrectorWithDependencies(cfg, nil, logging.NewNop(), completer, nil)

	got, err := corrector.CorrectText(context.Background(), original, nil)
	if err != nil {
		t.Fatalf("CorrectText: %v", err)
	}
	if got != original {
		t.Fatalf("expected second attempt result, got %q", got)
	}
	if completer.calls != 2 {
		t.Fatalf("expected 2 calls, got %d", completer.calls)
	}
}

func TestCorrectTextDocumentModeFailsAfterAttempts(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithCorrectionMode(correct.ModeDocument))
	cfg.Correction.MaxAttempts = 2
	boom := errors.New("api down")
	completer := &fakeCompleter{errs: []error{boom, boom}}
	corrector := correct.NewCorrectorWithDependencies(cfg, nil, logging.NewNop(), completer, nil)

	_, err := corrector.CorrectText(context.Background(), "Texto original.", nil)
	if err == nil {
		t.Fatal("expected error after exhausted attempts")
	}
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("api failures should stay transient, got %v", err)
	}
	if services.FailureStatus(err) != queue.StatusFailed {
		t.Fatalf("document correction failure should be retryable, got %v", services.FailureStatus(err))
	}
}

func TestCorrectTextDocumentModeRoutesPersistentDriftToReview(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithCorrectionMode(correct.ModeDocument))
	cfg.Correction.MaxAttempts = 2
	original := strings.Repeat("palabra ", 20) + "fin."
	// Every attempt returns a heavy rewrite that trips the drift guard.
	completer := &fakeCompleter{responses: []string{"resumen", "resumen"}}
	corrector := correct.NewCorrectorWithDependencies(cfg, nil, logging.NewNop(), completer, nil)

	_, err := corrector.CorrectText(context.Background(), original, nil)
	if err == nil {
		t.Fatal("expected error after repeated drift rejections")
	}
	if !errors.Is(err, services.ErrAPIRejected) {
		t.Fatalf("expected rejected-response marker, got %v", err)
	}
	if services.FailureStatus(err) != queue.StatusReview {
		t.Fatalf("persistent drift should need review, got %v", services.FailureStatus(err))
	}
	if completer.calls != 2 {
		t.Fatalf("calls = %d, want 2", completer.calls)
	}
}

func TestCorrectTextUnitsModeKeepsOriginalOnStubbornUnit(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithCorrectionMode(correct.ModeUnits))
	cfg.Correction.UnitMaxChars = 10
	cfg.Correction.MaxAttempts = 1
	boom := errors.New("api down")
	// First unit fails, second succeeds.
	completer := &fakeCompleter{errs: []error{boom}, responses: []string{"", "Dos limpio."}}
	corrector := correct.NewCorrectorWithDependencies(cfg, nil, logging.NewNop(), completer, nil)

	var progressCalls int
	got, err := corrector.CorrectText(context.Background(), "Uno sucio. Dos sucio.", func(done, total int) {
		progressCalls++
		if total != 2 {
			t.Fatalf("total = %d, want 2", total)
		}
	})
	if err != nil {
		t.Fatalf("CorrectText: %v", err)
	}
	if !strings.HasPrefix(got, "Uno sucio.") {
		t.Fatalf("failed unit should keep original text, got %q", got)
	}
	if !strings.Contains(got, "Dos limpio.") {
		t.Fatalf("second unit should be corrected, got %q", got)
	}
	if progressCalls != 2 {
		t.Fatalf("progress calls = %d, want 2", progressCalls)
	}
}

func TestCorrectTextUnitsModeStopsOnCancel(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithCorrectionMode(correct.ModeUnits))
	cfg.Correction.UnitMaxChars = 10
	corrector := correct.NewCorrectorWithDependencies(cfg, nil, logging.NewNop(), &fakeCompleter{}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := corrector.CorrectText(ctx, "Uno. Dos.", nil); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
