// Package logging builds slog loggers with console or JSON output and the
// attribute helpers the rest of the pipeline uses for structured fields.
package logging
