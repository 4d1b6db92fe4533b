// Package ffprobe wraps the ffprobe binary for media container inspection.
package ffprobe
