// Package services defines the shared error taxonomy and context plumbing used
// by stage handlers and the external API clients beneath them.
//
// Stage failures are tagged with sentinel errors (ErrValidation,
// ErrExternalTool, ...) via Wrap so the workflow manager can decide whether a
// failed item should be retried or routed to manual review.
package services
