// Package textutil provides text processing utilities for filename
// sanitization and for splitting transcripts into small correction units.
package textutil
