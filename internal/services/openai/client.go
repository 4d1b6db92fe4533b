package openai

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	goopenai "github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"
)

const (
	defaultHTTPTimeout    = 120 * time.Second
	defaultRetryMaxDelay  = 30 * time.Second
	defaultRetryBaseDelay = 1 * time.Second
	defaultRetryAttempts  = 5

	// Upper bound on server-requested Retry-After waits so a hostile or
	// misconfigured header cannot stall a stage indefinitely.
	retryAfterCeiling = 2 * time.Minute
)

// Config captures the runtime settings required to talk to the OpenAI API.
type Config struct {
	APIKey            string
	BaseURL           string
	TranscribeModel   string
	ChatModel         string
	Language          string
	TimeoutSeconds    int
	RequestsPerMinute int
}

// Client wraps the OpenAI transcription and chat completion APIs with
// rate limiting and bounded retries.
type Client struct {
	cfg Config
	api *goopenai.Client

	limiter          *rate.Limiter
	retryMaxAttempts int
	retryBaseDelay   time.Duration
	retryMaxDelay    time.Duration
	retryAfter       *retryAfterTransport
	sleeper          func(time.Duration)
}

// Option customizes the client.
type Option func(*Client)

// WithRetryMaxAttempts overrides the default retry count (defaults to 5).
func WithRetryMaxAttempts(attempts int) Option {
	return func(c *Client) {
		c.retryMaxAttempts = attempts
	}
}

// WithRetryBackoff overrides the retry backoff delays.
func WithRetryBackoff(baseDelay, maxDelay time.Duration) Option {
	return func(c *Client) {
		c.retryBaseDelay = baseDelay
		c.retryMaxDelay = maxDelay
	}
}

// WithSleeper overrides how retry sleeps are performed (useful for tests).
func WithSleeper(sleeper func(time.Duration)) Option {
	return func(c *Client) {
		c.sleeper = sleeper
	}
}

// NewClient constructs an OpenAI client using the supplied configuration.
func NewClient(cfg Config, opts ...Option) *Client {
	timeout := defaultHTTPTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}

	apiConfig := goopenai.DefaultConfig(strings.TrimSpace(cfg.APIKey))
	if baseURL := strings.TrimSpace(cfg.BaseURL); baseURL != "" {
		apiConfig.BaseURL = baseURL
	}
	// The SDK's error types only carry the status code, so a transport
	// records the Retry-After header for the retry loop.
	transport := &retryAfterTransport{base: http.DefaultTransport}
	apiConfig.HTTPClient = &http.Client{Timeout: timeout, Transport: transport}

	client := &Client{
		cfg:              cfg,
		api:              goopenai.NewClientWithConfig(apiConfig),
		retryAfter:       transport,
		retryMaxAttempts: defaultRetryAttempts,
		retryBaseDelay:   defaultRetryBaseDelay,
		retryMaxDelay:    defaultRetryMaxDelay,
	}
	if cfg.RequestsPerMinute > 0 {
		client.limiter = rate.NewLimiter(rate.Limit(float64(cfg.RequestsPerMinute)/60.0), 1)
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// TranscriptionSegment is one timestamped chunk of a transcription response.
type TranscriptionSegment struct {
	ID    int     `json:"id"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

// Transcription is the parsed verbose transcription response for one audio file.
type Transcription struct {
	Text     string                 `json:"text"`
	Language string                 `json:"language"`
	Duration float64                `json:"duration"`
	Segments []TranscriptionSegment `json:"segments"`
}

// Transcribe uploads the audio file and returns the verbose transcription with
// per-segment timestamps.
func (c *Client) Transcribe(ctx context.Context, audioPath string) (Transcription, error) {
	var empty Transcription
	if strings.TrimSpace(c.cfg.APIKey) == "" {
		return empty, errors.New("openai transcribe: api key required")
	}
	if strings.TrimSpace(audioPath) == "" {
		return empty, errors.New("openai transcribe: empty audio path")
	}

	model := strings.TrimSpace(c.cfg.TranscribeModel)
	if model == "" {
		model = goopenai.Whisper1
	}
	req := goopenai.AudioRequest{
		Model:    model,
		FilePath: audioPath,
		Format:   goopenai.AudioResponseFormatVerboseJSON,
		Language: strings.TrimSpace(c.cfg.Language),
	}

	var resp goopenai.AudioResponse
	err := c.withRetry(ctx, "openai transcribe", func(ctx context.Context) error {
		var callErr error
		resp, callErr = c.api.CreateTranscription(ctx, req)
		return callErr
	})
	if err != nil {
		return empty, err
	}

	result := Transcription{
		Text:     strings.TrimSpace(resp.Text),
		Language: resp.Language,
		Duration: resp.Duration,
		Segments: make([]TranscriptionSegment, 0, len(resp.Segments)),
	}
	for _, segment := range resp.Segments {
		result.Segments = append(result.Segments, TranscriptionSegment{
			ID:    segment.ID,
			Start: segment.Start,
			End:   segment.End,
			Text:  strings.TrimSpace(segment.Text),
		})
	}
	return result, nil
}

// Complete issues a chat completion with the supplied prompts and returns the
// assistant message content.
func (c *Client) Complete(ctx context.Context, systemPrompt, userPrompt string, temperature float32) (string, error) {
	systemPrompt = strings.TrimSpace(systemPrompt)
	userPrompt = strings.TrimSpace(userPrompt)
	if systemPrompt == "" {
		return "", errors.New("openai complete: system prompt required")
	}
	if userPrompt == "" {
		return "", errors.New("openai complete: user prompt required")
	}
	if strings.TrimSpace(c.cfg.APIKey) == "" {
		return "", errors.New("openai complete: api key required")
	}

	model := strings.TrimSpace(c.cfg.ChatModel)
	if model == "" {
		model = goopenai.GPT4Turbo
	}
	req := goopenai.ChatCompletionRequest{
		Model: model,
		Messages: []goopenai.ChatCompletionMessage{
			{Role: goopenai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: goopenai.ChatMessageRoleUser, Content: userPrompt},
		},
		Temperature: temperature,
	}

	var content string
	err := c.withRetry(ctx, "openai complete", func(ctx context.Context) error {
		resp, callErr := c.api.CreateChatCompletion(ctx, req)
		if callErr != nil {
			return callErr
		}
		if len(resp.Choices) == 0 {
			return errors.New("openai complete: empty choices")
		}
		content = strings.TrimSpace(resp.Choices[0].Message.Content)
		if content == "" {
			return errors.New("openai complete: empty content")
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return content, nil
}

// HealthCheck verifies the API key is usable by listing available models.
func (c *Client) HealthCheck(ctx context.Context) error {
	if strings.TrimSpace(c.cfg.APIKey) == "" {
		return errors.New("openai health: api key required")
	}
	if _, err := c.api.ListModels(ctx); err != nil {
		return fmt.Errorf("openai health: %w", err)
	}
	return nil
}

func (c *Client) withRetry(ctx context.Context, op string, call func(context.Context) error) error {
	attempts := c.retryAttempts()
	var lastErr error

	for attempt := 1; attempt <= attempts; attempt++ {
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return fmt.Errorf("%s: rate limit wait: %w", op, err)
			}
		}

		err := call(ctx)
		if err == nil {
			return nil
		}

		delay, retry := c.retryDelay(ctx, err, attempt, attempts)
		if !retry {
			return fmt.Errorf("%s: %w", op, err)
		}
		if sleepErr := c.sleep(ctx, delay); sleepErr != nil {
			return fmt.Errorf("%s: %w", op, sleepErr)
		}
		lastErr = err
	}

	if lastErr == nil {
		lastErr = errors.New("unknown retry failure")
	}
	return fmt.Errorf("%s: failed after %d attempts: %w", op, attempts, lastErr)
}

func (c *Client) retryAttempts() int {
	if c == nil || c.retryMaxAttempts <= 0 {
		return 1
	}
	return c.retryMaxAttempts
}

func (c *Client) retryDelay(ctx context.Context, err error, attempt, maxAttempts int) (time.Duration, bool) {
	if attempt >= maxAttempts || err == nil {
		return 0, false
	}
	if ctx == nil || ctx.Err() != nil {
		return 0, false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return 0, false
	}

	if code, ok := statusCode(err); ok {
		switch {
		case code == http.StatusRequestTimeout,
			code == http.StatusTooManyRequests,
			code >= http.StatusInternalServerError:
			if hinted := c.retryAfterHint(); hinted > 0 {
				return hinted, true
			}
			return c.backoffDelay(attempt), true
		default:
			return 0, false
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return c.backoffDelay(attempt), true
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return c.backoffDelay(attempt), true
	}

	return 0, false
}

func statusCode(err error) (int, bool) {
	var apiErr *goopenai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode, true
	}
	var reqErr *goopenai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode, true
	}
	return 0, false
}

func (c *Client) backoffDelay(attempt int) time.Duration {
	base := c.retryBaseDelay
	maxDelay := c.retryMaxDelay
	if base <= 0 {
		return 0
	}
	if maxDelay <= 0 {
		maxDelay = defaultRetryMaxDelay
	}

	// attempt 1 -> base, attempt 2 -> base*2, attempt 3 -> base*4, ...
	delay := base
	for i := 1; i < attempt; i++ {
		if delay > maxDelay/2 {
			delay = maxDelay
			break
		}
		delay *= 2
	}
	if delay > maxDelay {
		delay = maxDelay
	}
	return delay
}

// retryAfterHint returns the server-requested wait recorded by the transport,
// consuming it so a stale hint never outlives the response that set it.
func (c *Client) retryAfterHint() time.Duration {
	if c == nil || c.retryAfter == nil {
		return 0
	}
	hint := c.retryAfter.take()
	if hint > retryAfterCeiling {
		hint = retryAfterCeiling
	}
	return hint
}

// retryAfterTransport captures the Retry-After header from throttled
// responses. The SDK surfaces errors without headers, so this is the only
// place the hint is visible.
type retryAfterTransport struct {
	base http.RoundTripper

	mu   sync.Mutex
	hint time.Duration
}

func (t *retryAfterTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := t.base.RoundTrip(req)
	if err != nil {
		return resp, err
	}
	var hint time.Duration
	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode == http.StatusServiceUnavailable {
		hint = parseRetryAfter(resp.Header.Get("Retry-After"))
	}
	t.mu.Lock()
	t.hint = hint
	t.mu.Unlock()
	return resp, nil
}

func (t *retryAfterTransport) take() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	hint := t.hint
	t.hint = 0
	return hint
}

// parseRetryAfter accepts both forms of the header: delay seconds and an
// HTTP date.
func parseRetryAfter(value string) time.Duration {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0
	}
	if seconds, err := strconv.Atoi(value); err == nil {
		if seconds <= 0 {
			return 0
		}
		return time.Duration(seconds) * time.Second
	}
	if when, err := http.ParseTime(value); err == nil {
		if wait := time.Until(when); wait > 0 {
			return wait
		}
	}
	return 0
}

func (c *Client) sleep(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return nil
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if c.sleeper != nil {
		c.sleeper(delay)
		return ctx.Err()
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
