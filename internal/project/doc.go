// Package project manages the on-disk layout of processed recordings: one
// timestamped directory per recording with numbered artifact subdirectories,
// a project.json metadata file, and a shared registry index under _registry/.
package project
