package correct

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// DriftExceeded reports whether the corrected text's length moved further
// from the original than the allowed ratio. Large drift almost always means
// the model summarized or padded instead of correcting.
func DriftExceeded(original, corrected string, maxRatio float64) bool {
	if maxRatio <= 0 {
		return false
	}
	originalLen := utf8.RuneCountInString(original)
	if originalLen == 0 {
		return corrected != ""
	}
	correctedLen := utf8.RuneCountInString(corrected)
	diff := correctedLen - originalLen
	if diff < 0 {
		diff = -diff
	}
	return float64(diff)/float64(originalLen) > maxRatio
}

// JoinUnits reassembles corrected units, keeping paragraph breaks that were
// preserved on unit boundaries.
func JoinUnits(units []string) string {
	var b strings.Builder
	for i, unit := range units {
		if i > 0 && !strings.HasSuffix(units[i-1], "\n") {
			b.WriteByte(' ')
		}
		b.WriteString(unit)
	}
	return strings.TrimSpace(b.String())
}

// preserveLayout carries the original unit's trailing newlines over to the
// corrected text so paragraph structure survives reassembly.
func preserveLayout(original, corrected string) string {
	trailing := ""
	for strings.HasSuffix(original, "\n") {
		trailing += "\n"
		original = strings.TrimSuffix(original, "\n")
	}
	return strings.TrimRight(corrected, "\n") + trailing
}

func renderCorrected(title, text string) string {
	var b strings.Builder
	title = strings.TrimSpace(title)
	if title == "" {
		title = "Untitled"
	}
	fmt.Fprintf(&b, "Corrected transcription: %s\n", title)
	b.WriteString(strings.Repeat("=", 80))
	b.WriteString("\n\n")
	b.WriteString(strings.TrimSpace(text))
	b.WriteString("\n")
	return b.String()
}

func documentSystemPrompt(language string) string {
	return fmt.Sprintf(`You are an expert editor of sermon transcriptions in %s.
Correct transcription errors: punctuation, capitalization, mis-heard words, and broken sentences.
Preserve the speaker's words, order, and meaning. Do not summarize, do not add content, do not translate.
Respond with the corrected text only.`, languageName(language))
}

func unitSystemPrompt(language string) string {
	return fmt.Sprintf(`You are an expert editor of sermon transcriptions in %s.
Correct only transcription errors in the fragment: punctuation, capitalization, and mis-heard words.
Keep the length close to the original. Do not summarize, do not add content, do not translate.
Respond with the corrected fragment only.`, languageName(language))
}

func languageName(code string) string {
	switch strings.ToLower(strings.TrimSpace(code)) {
	case "es":
		return "Spanish"
	case "en":
		return "English"
	case "pt":
		return "Portuguese"
	case "fr":
		return "French"
	case "":
		return "the original language"
	default:
		return code
	}
}
