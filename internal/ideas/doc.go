// Package ideas implements the analysis stage: distilling a corrected sermon
// into a fixed number of key ideas arranged across a three-act structure.
// Responses are requested as JSON and parsed defensively since models wrap
// arrays in prose or code fences more often than not.
package ideas
