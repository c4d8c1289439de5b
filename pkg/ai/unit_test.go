package ai

import (
	"strings"
	"testing"
)

func wordCount(s string) int {
	return len(strings.Fields(s))
}

func TestSentenceSpans(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{
			name: "empty input",
			text: "",
			want: nil,
		},
		{
			name: "single sentence",
			text: "The act applies nationwide.",
			want: []string{"The act applies nationwide."},
		},
		{
			name: "multiple terminators",
			text: "Section 1 defines producer. Is strict liability imposed? Yes; see section 4.",
			want: []string{
				"Section 1 defines producer.",
				"Is strict liability imposed?",
				"Yes;",
				"see section 4.",
			},
		},
		{
			name: "decimal numbers stay whole",
			text: "Damages are capped at 3.5 million euro. Interest accrues.",
			want: []string{
				"Damages are capped at 3.5 million euro.",
				"Interest accrues.",
			},
		},
		{
			name: "no terminal punctuation",
			text: "a fragment without an ending",
			want: []string{"a fragment without an ending"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spans := sentenceSpans(tt.text)
			if len(spans) != len(tt.want) {
				t.Fatalf("got %d spans, want %d", len(spans), len(tt.want))
			}
			for i, s := range spans {
				if got := tt.text[s.start:s.end]; got != tt.want[i] {
					t.Errorf("span %d = %q, want %q", i, got, tt.want[i])
				}
			}
		})
	}
}

func TestSplitIntoUnitsOffsetsMatchText(t *testing.T) {
	text := "First finding here. Second finding follows. Third one closes the section."
	units := splitIntoUnits(text, wordCount, 6)

	if len(units) < 2 {
		t.Fatalf("got %d units, want at least 2 under a 6-word budget", len(units))
	}
	for i, u := range units {
		if text[u.start:u.end] != u.text {
			t.Errorf("unit %d text %q does not match offsets [%d:%d]", i, u.text, u.start, u.end)
		}
	}
	if units[0].start != 0 {
		t.Errorf("first unit starts at %d, want 0", units[0].start)
	}
	if last := units[len(units)-1]; last.end != len(text) {
		t.Errorf("last unit ends at %d, want %d", last.end, len(text))
	}
}

func TestSplitIntoUnitsRespectsBudget(t *testing.T) {
	text := strings.TrimSpace(strings.Repeat("One short sentence sits here. ", 10))
	units := splitIntoUnits(text, wordCount, 11)

	for i, u := range units {
		if got := wordCount(u.text); got > 11 {
			t.Errorf("unit %d has %d words, over the budget of 11", i, got)
		}
	}
	if len(units) < 2 {
		t.Errorf("got %d units, want the text split across several", len(units))
	}
}

func TestSplitIntoUnitsOversizedSentenceKeptWhole(t *testing.T) {
	text := "This single sentence is far too long to fit inside the configured token budget for one unit."
	units := splitIntoUnits(text, wordCount, 4)

	if len(units) != 1 {
		t.Fatalf("got %d units, want 1 (oversized sentence kept whole)", len(units))
	}
	if units[0].text != text {
		t.Errorf("unit text = %q, want the full sentence", units[0].text)
	}
}

func TestSplitIntoUnitsEmpty(t *testing.T) {
	if units := splitIntoUnits("", wordCount, 10); units != nil {
		t.Errorf("got %v, want nil for empty text", units)
	}
}
