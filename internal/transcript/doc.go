// Package transcript assembles per-chunk transcription results into a single
// document with recording-relative timestamps and renders the export formats.
package transcript
