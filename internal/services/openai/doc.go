// Package openai provides the shared OpenAI API client used for audio
// transcription and chat-based text processing.
//
// The client layers two policies on top of the raw API bindings: a token
// bucket limiter derived from the configured requests-per-minute budget, and
// bounded retries with exponential backoff (base 1s, max 30s, up to 5
// attempts) for rate-limit, server, and network errors. Context cancellation
// always wins over a pending retry.
package openai
