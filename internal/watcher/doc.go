// Package watcher monitors the intake directory and queues new recordings
// once their size has been stable for the configured settle window, so files
// still being copied are never picked up early.
package watcher
