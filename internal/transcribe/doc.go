// Package transcribe implements the transcription stage: uploading audio
// segments to the speech API with a bounded worker pool and assembling the
// results into a single timestamped transcript.
package transcribe
