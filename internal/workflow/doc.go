// Package workflow drives queued recordings through the processing pipeline.
//
// A single manager goroutine polls the queue for items whose status matches a
// registered stage, moves them to the stage's processing status, runs the
// handler with a heartbeat loop, and persists the outcome. Stage errors are
// classified through the services package: validation and configuration
// problems route the item to manual review while transient failures mark it
// failed for retry. Items whose heartbeats expire are reclaimed to the start
// of their stage on the next poll.
package workflow
