// Package audio drives ffmpeg to extract transcription-ready WAV audio from
// source media and to cut it into compressed MP3 segments sized for upload.
package audio
