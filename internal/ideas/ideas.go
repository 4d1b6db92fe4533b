package ideas

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Idea is one key idea extracted from a sermon.
type Idea struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Act         int    `json:"act"`
}

// ActDistribution pins how many ideas each narrative act must contain.
type ActDistribution struct {
	Total    int
	ActOne   int
	ActTwo   int
	ActThree int
}

// Validate checks the idea count and per-act distribution.
func (d ActDistribution) Validate(ideas []Idea) error {
	if len(ideas) != d.Total {
		return fmt.Errorf("expected %d ideas, got %d", d.Total, len(ideas))
	}
	counts := map[int]int{}
	for _, idea := range ideas {
		if idea.Act < 1 || idea.Act > 3 {
			return fmt.Errorf("idea %q has invalid act %d", idea.Title, idea.Act)
		}
		if strings.TrimSpace(idea.Title) == "" {
			return errors.New("idea with empty title")
		}
		counts[idea.Act]++
	}
	if counts[1] != d.ActOne || counts[2] != d.ActTwo || counts[3] != d.ActThree {
		return fmt.Errorf("act distribution %d/%d/%d does not match required %d/%d/%d",
			counts[1], counts[2], counts[3], d.ActOne, d.ActTwo, d.ActThree)
	}
	return nil
}

// ParseIdeas decodes the model response into ideas, tolerating code fences
// and prose around the JSON array by scanning for the outermost brackets.
func ParseIdeas(content string) ([]Idea, error) {
	trimmed := strings.TrimSpace(stripCodeFence(content))
	if trimmed == "" {
		return nil, errors.New("empty payload")
	}

	var ideas []Idea
	if err := json.Unmarshal([]byte(trimmed), &ideas); err == nil {
		return ideas, nil
	}

	// Some responses wrap the array in an object or surround it with text.
	var wrapper struct {
		Ideas []Idea `json:"ideas"`
	}
	if err := json.Unmarshal([]byte(trimmed), &wrapper); err == nil && len(wrapper.Ideas) > 0 {
		return wrapper.Ideas, nil
	}

	start := strings.Index(trimmed, "[")
	end := strings.LastIndex(trimmed, "]")
	if start < 0 || end <= start {
		return nil, fmt.Errorf("no JSON array found in payload: %s", snippet(trimmed))
	}
	salvaged := trimmed[start : end+1]
	if err := json.Unmarshal([]byte(salvaged), &ideas); err != nil {
		return nil, fmt.Errorf("decode salvaged array: %w", err)
	}
	return ideas, nil
}

// RenderMarkdown renders the ideas grouped by act.
func RenderMarkdown(title string, ideas []Idea) string {
	var b strings.Builder
	title = strings.TrimSpace(title)
	if title == "" {
		title = "Untitled"
	}
	fmt.Fprintf(&b, "# Key Ideas: %s\n", title)
	actNames := map[int]string{1: "Act I - Opening", 2: "Act II - Development", 3: "Act III - Resolution"}
	for act := 1; act <= 3; act++ {
		var grouped []Idea
		for _, idea := range ideas {
			if idea.Act == act {
				grouped = append(grouped, idea)
			}
		}
		if len(grouped) == 0 {
			continue
		}
		fmt.Fprintf(&b, "\n## %s\n\n", actNames[act])
		for _, idea := range grouped {
			fmt.Fprintf(&b, "- **%s**: %s\n", strings.TrimSpace(idea.Title), strings.TrimSpace(idea.Description))
		}
	}
	return b.String()
}

func analysisSystemPrompt(language string, d ActDistribution) string {
	return fmt.Sprintf(`You analyze sermon transcriptions written in %s.
Extract exactly %d key ideas arranged as a three-act narrative:
act 1 (opening) must contain %d ideas, act 2 (development) %d ideas, and act 3 (resolution) %d ideas.
Respond with a JSON array only. Each element has the fields "title", "description", and "act" (1, 2, or 3).
Titles are short phrases; descriptions are one or two sentences grounded in the text.`,
		languageName(language), d.Total, d.ActOne, d.ActTwo, d.ActThree)
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

func stripCodeFence(content string) string {
	trimmed := strings.TrimSpace(content)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	body := trimmed[3:]
	body = strings.TrimLeft(body, " \t\r\n")
	if len(body) >= 4 && strings.EqualFold(body[:4], "json") {
		body = strings.TrimLeft(body[4:], " \t\r\n")
	}
	if idx := strings.LastIndex(body, "```"); idx >= 0 {
		body = body[:idx]
	}
	return strings.TrimSpace(body)
}

func snippet(content string) string {
	clean := strings.Join(strings.Fields(content), " ")
	const limit = 120
	runes := []rune(clean)
	if len(runes) > limit {
		clean = string(runes[:limit]) + "..."
	}
	return clean
}
