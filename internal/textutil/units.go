package textutil

import (
	"strings"
)

// SplitSentences breaks text into sentences on ., ?, and ! boundaries while
// preserving trailing newlines attached to a sentence.
func SplitSentences(text string) []string {
	var sentences []string
	var b strings.Builder
	runes := []rune(text)
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		b.WriteRune(r)
		if r != '.' && r != '?' && r != '!' {
			continue
		}
		// Keep newlines that immediately follow the terminator with the
		// sentence so reassembly preserves the original layout.
		for i+1 < len(runes) && runes[i+1] == '\n' {
			i++
			b.WriteRune(runes[i])
		}
		if i+1 < len(runes) && runes[i+1] == ' ' {
			i++
		}
		if sentence := b.String(); strings.TrimSpace(sentence) != "" {
			sentences = append(sentences, sentence)
		}
		b.Reset()
	}
	if tail := b.String(); strings.TrimSpace(tail) != "" {
		sentences = append(sentences, tail)
	}
	return sentences
}

// GroupUnits packs sentences into units no longer than maxChars. A sentence
// longer than maxChars becomes its own unit rather than being split.
func GroupUnits(sentences []string, maxChars int) []string {
	if maxChars <= 0 {
		maxChars = 400
	}
	var units []string
	var current strings.Builder
	for _, sentence := range sentences {
		if current.Len() == 0 {
			current.WriteString(sentence)
			continue
		}
		if current.Len()+1+len(sentence) <= maxChars {
			if !strings.HasSuffix(current.String(), "\n") {
				current.WriteByte(' ')
			}
			current.WriteString(sentence)
			continue
		}
		units = append(units, current.String())
		current.Reset()
		current.WriteString(sentence)
	}
	if current.Len() > 0 {
		units = append(units, current.String())
	}
	return units
}
