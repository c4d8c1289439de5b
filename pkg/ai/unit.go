package ai

import (
	"fmt"

	"github.com/pkoukk/tiktoken-go"
)

// textUnit is one contiguous span of canonical text handed to the model as a
// single extraction request. Offsets are byte positions in the canonical
// text, so quote offsets found inside a unit translate directly into
// source-level spans.
type textUnit struct {
	start int
	end   int
	text  string
}

type sentenceSpan struct {
	start int
	end   int
}

// sentenceSpans splits canonical text into sentence spans. Canonical text has
// every whitespace run collapsed to a single space, so a sentence ends at
// terminal punctuation followed by a space. Offsets cover the punctuation but
// not the separating space.
func sentenceSpans(text string) []sentenceSpan {
	var spans []sentenceSpan
	start := 0
	for i := 0; i < len(text); i++ {
		switch text[i] {
		case '.', '!', '?', ';':
			if i+1 < len(text) && text[i+1] != ' ' {
				continue
			}
			spans = append(spans, sentenceSpan{start: start, end: i + 1})
			start = i + 2
			i++
		}
	}
	if start < len(text) {
		spans = append(spans, sentenceSpan{start: start, end: len(text)})
	}
	return spans
}

// splitIntoUnits packs sentences greedily into units of at most maxTokens
// tokens. A single sentence over the budget becomes its own oversized unit
// rather than being cut mid-claim. Each unit's text is exactly
// text[unit.start:unit.end].
func splitIntoUnits(text string, countTokens func(string) int, maxTokens int) []textUnit {
	sentences := sentenceSpans(text)
	if len(sentences) == 0 {
		return nil
	}

	var units []textUnit
	unitStart := sentences[0].start
	unitEnd := sentences[0].end
	unitTokens := countTokens(text[unitStart:unitEnd])

	flush := func() {
		units = append(units, textUnit{
			start: unitStart,
			end:   unitEnd,
			text:  text[unitStart:unitEnd],
		})
	}

	for _, s := range sentences[1:] {
		tokens := countTokens(text[s.start:s.end]) + 1
		if unitTokens+tokens > maxTokens {
			flush()
			unitStart = s.start
			unitEnd = s.end
			unitTokens = tokens - 1
			continue
		}
		unitEnd = s.end
		unitTokens += tokens
	}
	flush()

	return units
}

// newTokenCounter builds a token counting function for the named tiktoken
// encoding (e.g. "cl100k_base").
func newTokenCounter(encoder string) (func(string) int, error) {
	enc, err := tiktoken.GetEncoding(encoder)
	if err != nil {
		return nil, fmt.Errorf("failed to load encoding %s: %w", encoder, err)
	}
	return func(s string) int {
		return len(enc.Encode(s, nil, nil))
	}, nil
}
