package openai_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"pulpit/internal/services/openai"
)

type apiServer struct {
	t *testing.T

	mu            sync.Mutex
	chatCalls     int
	chatFailures  int
	chatResponse  string
	failureStatus int
	retryAfter    string
}

func (s *apiServer) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/models", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"object":"list","data":[{"id":"whisper-1","object":"model"}]}`))
	})
	mux.HandleFunc("/v1/chat/completions", func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.chatCalls++
		fail := s.chatCalls <= s.chatFailures
		status := s.failureStatus
		response := s.chatResponse
		retryAfter := s.retryAfter
		s.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		if fail {
			if retryAfter != "" {
				w.Header().Set("Retry-After", retryAfter)
			}
			w.WriteHeader(status)
			_, _ = w.Write([]byte(`{"error":{"message":"synthetic failure","type":"server_error"}}`))
			return
		}
		_, _ = w.Write([]byte(`{
			"id":"chatcmpl-1","object":"chat.completion","created":1,
			"model":"gpt-4-turbo",
			"choices":[{"index":0,"message":{"role":"assistant","content":` + response + `},"finish_reason":"stop"}]
		}`))
	})
	mux.HandleFunc("/v1/audio/transcriptions", func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(32 << 20); err != nil {
			s.t.Errorf("parse multipart: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"task":"transcribe","language":"spanish","duration":12.4,
			"text":" Hola a todos. ",
			"segments":[
				{"id":0,"start":0.0,"end":4.2,"text":" Hola a todos."},
				{"id":1,"start":4.2,"end":12.4,"text":" Bienvenidos."}
			]
		}`))
	})
	return mux
}

func (s *apiServer) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.chatCalls
}

func newTestClient(t *testing.T, server *httptest.Server, opts ...openai.Option) *openai.Client {
	t.Helper()
	base := []openai.Option{
		openai.WithRetryBackoff(time.Millisecond, 2*time.Millisecond),
		openai.WithSleeper(func(time.Duration) {}),
	}
	return openai.NewClient(openai.Config{
		APIKey:   "test-key",
		BaseURL:  server.URL + "/v1",
		Language: "es",
	}, append(base, opts...)...)
}

func TestCompleteReturnsContent(t *testing.T) {
	api := &apiServer{t: t, chatResponse: `"Texto corregido."`}
	server := httptest.NewServer(api.handler())
	t.Cleanup(server.Close)

	client := newTestClient(t, server)
	got, err := client.Complete(context.Background(), "system prompt", "user prompt", 0.3)
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if got != "Texto corregido." {
		t.Fatalf("content = %q", got)
	}
	if api.calls() != 1 {
		t.Fatalf("calls = %d, want 1", api.calls())
	}
}

func TestCompleteRetriesServerErrors(t *testing.T) {
	api := &apiServer{t: t, chatResponse: `"ok"`, chatFailures: 2, failureStatus: http.StatusInternalServerError}
	server := httptest.NewServer(api.handler())
	t.Cleanup(server.Close)

	var sleeps int
	client := newTestClient(t, server, openai.WithSleeper(func(time.Duration) { sleeps++ }))

	got, err := client.Complete(context.Background(), "system", "user", 0)
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if got != "ok" {
		t.Fatalf("content = %q", got)
	}
	if api.calls() != 3 {
		t.Fatalf("calls = %d, want 3", api.calls())
	}
	if sleeps != 2 {
		t.Fatalf("sleeps = %d, want 2", sleeps)
	}
}

func TestCompleteHonorsRetryAfterHeader(t *testing.T) {
	api := &apiServer{t: t, chatResponse: `"ok"`, chatFailures: 1, failureStatus: http.StatusTooManyRequests, retryAfter: "2"}
	server := httptest.NewServer(api.handler())
	t.Cleanup(server.Close)

	var sleeps []time.Duration
	client := newTestClient(t, server, openai.WithSleeper(func(d time.Duration) { sleeps = append(sleeps, d) }))

	got, err := client.Complete(context.Background(), "system", "user", 0)
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if got != "ok" {
		t.Fatalf("content = %q", got)
	}
	if api.calls() != 2 {
		t.Fatalf("calls = %d, want 2", api.calls())
	}
	// The server asked for 2 seconds; the hint replaces the millisecond backoff.
	if len(sleeps) != 1 || sleeps[0] != 2*time.Second {
		t.Fatalf("sleeps = %v, want one 2s wait", sleeps)
	}
}

func TestCompleteFallsBackToBackoffWithoutRetryAfter(t *testing.T) {
	api := &apiServer{t: t, chatResponse: `"ok"`, chatFailures: 1, failureStatus: http.StatusTooManyRequests}
	server := httptest.NewServer(api.handler())
	t.Cleanup(server.Close)

	var sleeps []time.Duration
	client := newTestClient(t, server, openai.WithSleeper(func(d time.Duration) { sleeps = append(sleeps, d) }))

	if _, err := client.Complete(context.Background(), "system", "user", 0); err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if len(sleeps) != 1 || sleeps[0] != time.Millisecond {
		t.Fatalf("sleeps = %v, want one base backoff wait", sleeps)
	}
}

func TestCompleteDoesNotRetryClientErrors(t *testing.T) {
	api := &apiServer{t: t, chatResponse: `"ok"`, chatFailures: 10, failureStatus: http.StatusBadRequest}
	server := httptest.NewServer(api.handler())
	t.Cleanup(server.Close)

	client := newTestClient(t, server)
	if _, err := client.Complete(context.Background(), "system", "user", 0); err == nil {
		t.Fatal("expected error for 400 response")
	}
	if api.calls() != 1 {
		t.Fatalf("calls = %d, want 1 (no retries)", api.calls())
	}
}

func TestCompleteGivesUpAfterMaxAttempts(t *testing.T) {
	api := &apiServer{t: t, chatResponse: `"ok"`, chatFailures: 10, failureStatus: http.StatusTooManyRequests}
	server := httptest.NewServer(api.handler())
	t.Cleanup(server.Close)

	client := newTestClient(t, server, openai.WithRetryMaxAttempts(3))
	_, err := client.Complete(context.Background(), "system", "user", 0)
	if err == nil {
		t.Fatal("expected error after exhausted retries")
	}
	if !strings.Contains(err.Error(), "failed after 3 attempts") {
		t.Fatalf("unexpected error: %v", err)
	}
	if api.calls() != 3 {
		t.Fatalf("calls = %d, want 3", api.calls())
	}
}

func TestCompleteValidatesPrompts(t *testing.T) {
	api := &apiServer{t: t, chatResponse: `"ok"`}
	server := httptest.NewServer(api.handler())
	t.Cleanup(server.Close)

	client := newTestClient(t, server)
	if _, err := client.Complete(context.Background(), "", "user", 0); err == nil {
		t.Fatal("expected error for empty system prompt")
	}
	if _, err := client.Complete(context.Background(), "system", "   ", 0); err == nil {
		t.Fatal("expected error for empty user prompt")
	}
	if api.calls() != 0 {
		t.Fatalf("calls = %d, want 0", api.calls())
	}
}

func TestTranscribeParsesVerboseResponse(t *testing.T) {
	api := &apiServer{t: t}
	server := httptest.NewServer(api.handler())
	t.Cleanup(server.Close)

	audioPath := filepath.Join(t.TempDir(), "sermon_part001.mp3")
	if err := os.WriteFile(audioPath, []byte("fake mp3 bytes"), 0o644); err != nil {
		t.Fatalf("write audio: %v", err)
	}

	client := newTestClient(t, server)
	got, err := client.Transcribe(context.Background(), audioPath)
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if got.Text != "Hola a todos." {
		t.Fatalf("text = %q", got.Text)
	}
	if got.Language != "spanish" || got.Duration != 12.4 {
		t.Fatalf("metadata = %+v", got)
	}
	if len(got.Segments) != 2 {
		t.Fatalf("segments = %+v", got.Segments)
	}
	if got.Segments[1].Start != 4.2 || got.Segments[1].Text != "Bienvenidos." {
		t.Fatalf("second segment = %+v", got.Segments[1])
	}
}

func TestTranscribeRequiresAPIKey(t *testing.T) {
	client := openai.NewClient(openai.Config{})
	if _, err := client.Transcribe(context.Background(), "/tmp/audio.mp3"); err == nil {
		t.Fatal("expected error without api key")
	}
}

func TestHealthCheck(t *testing.T) {
	api := &apiServer{t: t}
	server := httptest.NewServer(api.handler())
	t.Cleanup(server.Close)

	client := newTestClient(t, server)
	if err := client.HealthCheck(context.Background()); err != nil {
		t.Fatalf("HealthCheck: %v", err)
	}
}
