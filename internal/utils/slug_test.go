package utils

import (
	"strings"
	"testing"
)

func TestSlugify(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "simple title",
			input: "Meeting Notes",
			want:  "meeting-notes",
		},
		{
			name:  "punctuation collapses",
			input: "Q3: Plans & Priorities!",
			want:  "q3-plans-priorities",
		},
		{
			name:  "leading and trailing separators dropped",
			input: "  --Draft--  ",
			want:  "draft",
		},
		{
			name:  "digits survive",
			input: "2026 Roadmap v2",
			want:  "2026-roadmap-v2",
		},
		{
			name:  "unicode letters survive",
			input: "Über Äpfel",
			want:  "über-äpfel",
		},
		{
			name:  "nothing usable",
			input: "!!! ???",
			want:  "",
		},
		{
			name:  "empty",
			input: "",
			want:  "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Slugify(tt.input); got != tt.want {
				t.Errorf("Slugify(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestDocumentURL(t *testing.T) {
	id := "3f2b8c41-9a77-4c1e-b210-d85f13a9c377"

	url := DocumentURL("Meeting Notes", id)
	if url != "/doc/meeting-notes-3f2b8c419a" {
		t.Errorf("DocumentURL = %q, want %q", url, "/doc/meeting-notes-3f2b8c419a")
	}

	// Identical titles must still produce distinct URLs.
	other := DocumentURL("Meeting Notes", "77aa0b12-0000-4c1e-b210-d85f13a9c377")
	if other == url {
		t.Errorf("URLs for distinct documents collide: %q", url)
	}

	// A title with no usable characters still yields a path.
	bare := DocumentURL("???", id)
	if !strings.HasPrefix(bare, "/doc/") || strings.Contains(bare, "--") {
		t.Errorf("DocumentURL for unusable title = %q", bare)
	}
}
