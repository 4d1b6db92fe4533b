package stage

import (
	"context"

	"pulpit/internal/queue"
)

// Handler is one step of the sermon pipeline. The workflow manager calls
// Prepare to validate the artifacts earlier stages left on the item, then
// Execute to do the stage's work; both may mutate the item, which the
// manager persists afterwards.
type Handler interface {
	Prepare(context.Context, *queue.Item) error
	Execute(context.Context, *queue.Item) error
	HealthCheck(context.Context) Health
}
