// Package correct implements the correction stage: cleaning transcription
// artifacts with chat completions while guarding against the model rewriting
// or summarizing the source.
//
// Two modes are supported. Document mode sends the whole transcript in one
// request. Units mode splits the text into sentence groups capped at a
// configurable length, corrects each independently with bounded attempts,
// and falls back to the original text for units that keep failing. Both
// modes reject responses whose length drifts too far from the input.
package correct
