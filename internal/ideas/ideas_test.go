package ideas_test

import (
	"strings"
	"testing"

	"pulpit/internal/ideas"
)

func TestParseIdeas(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    int
		wantErr bool
	}{
		{
			name:    "plain array",
			content: `[{"title":"Uno","description":"d","act":1}]`,
			want:    1,
		},
		{
			name:    "wrapped in object",
			content: `{"ideas":[{"title":"Uno","description":"d","act":1},{"title":"Dos","description":"d","act":2}]}`,
			want:    2,
		},
		{
			name:    "code fence with language tag",
			content: "```json\n[{\"title\":\"Uno\",\"description\":\"d\",\"act\":1}]\n```",
			want:    1,
		},
		{
			name:    "prose around the array",
			content: `Here are the ideas: [{"title":"Uno","description":"d","act":1}] as requested.`,
			want:    1,
		},
		{
			name:    "empty payload",
			content: "   ",
			wantErr: true,
		},
		{
			name:    "no array present",
			content: "The sermon was about hope.",
			wantErr: true,
		},
		{
			name:    "malformed salvage",
			content: `prefix [{"title": broken}] suffix`,
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ideas.ParseIdeas(tt.content)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %+v", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseIdeas: %v", err)
			}
			if len(got) != tt.want {
				t.Fatalf("got %d ideas, want %d", len(got), tt.want)
			}
		})
	}
}

func sevenIdeas() []ideas.Idea {
	return []ideas.Idea{
		{Title: "A", Description: "d", Act: 1},
		{Title: "B", Description: "d", Act: 1},
		{Title: "C", Description: "d", Act: 2},
		{Title: "D", Description: "d", Act: 2},
		{Title: "E", Description: "d", Act: 3},
		{Title: "F", Description: "d", Act: 3},
		{Title: "G", Description: "d", Act: 3},
	}
}

func TestActDistributionValidate(t *testing.T) {
	dist := ideas.ActDistribution{Total: 7, ActOne: 2, ActTwo: 2, ActThree: 3}

	if err := dist.Validate(sevenIdeas()); err != nil {
		t.Fatalf("valid distribution rejected: %v", err)
	}

	short := sevenIdeas()[:6]
	if err := dist.Validate(short); err == nil {
		t.Fatal("expected error for wrong idea count")
	}

	badAct := sevenIdeas()
	badAct[0].Act = 4
	if err := dist.Validate(badAct); err == nil {
		t.Fatal("expected error for act outside 1..3")
	}

	emptyTitle := sevenIdeas()
	emptyTitle[2].Title = "  "
	if err := dist.Validate(emptyTitle); err == nil {
		t.Fatal("expected error for empty title")
	}

	skewed := sevenIdeas()
	skewed[0].Act = 2
	if err := dist.Validate(skewed); err == nil {
		t.Fatal("expected error for mismatched distribution")
	}
}

func TestRenderMarkdown(t *testing.T) {
	out := ideas.RenderMarkdown("La Esperanza", sevenIdeas())

	if !strings.HasPrefix(out, "# Key Ideas: La Esperanza\n") {
		t.Fatalf("missing heading: %q", out)
	}
	for _, section := range []string{"## Act I - Opening", "## Act II - Development", "## Act III - Resolution"} {
		if !strings.Contains(out, section) {
			t.Fatalf("missing section %q in %q", section, out)
		}
	}
	if !strings.Contains(out, "- **A**: d\n") {
		t.Fatalf("missing idea bullet: %q", out)
	}
}

func TestRenderMarkdownSkipsEmptyActs(t *testing.T) {
	out := ideas.RenderMarkdown("", []ideas.Idea{{Title: "Solo", Description: "d", Act: 2}})
	if !strings.Contains(out, "# Key Ideas: Untitled") {
		t.Fatalf("expected default title: %q", out)
	}
	if strings.Contains(out, "Act I - Opening") || strings.Contains(out, "Act III - Resolution") {
		t.Fatalf("empty acts should be omitted: %q", out)
	}
}
