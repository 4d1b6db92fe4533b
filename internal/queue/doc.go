// Package queue persists pipeline work items in SQLite and defines the status
// lifecycle the workflow manager advances them through:
//
//	pending → extracting → extracted → transcribing → transcribed →
//	correcting → corrected → analyzing → analyzed → organizing →
//	completed | failed | review
//
// In-flight statuses carry heartbeat timestamps so stalled items can be
// reclaimed after a crash or shutdown.
package queue
