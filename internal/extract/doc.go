// Package extract implements the first pipeline stage: probing the source
// recording, allocating its project directory, extracting a mono WAV track,
// and cutting it into upload-sized MP3 segments.
package extract
