// Package chunk splits raw source text into bounded, overlapping passages
// suitable for embedding.
package chunk

import (
	"fmt"
	"strings"

	"github.com/mohammad-safakhou/shopchat/internal/rag"
)

// Chunk is one passage of normalized text. Start and End are rune offsets
// into the normalized text, half-open.
type Chunk struct {
	Text  string
	Start int
	End   int
}

// Split divides text into chunks of at most maxChars runes, preferring
// sentence boundaries and keeping overlapChars runes of trailing context
// between consecutive chunks. Whitespace runs are collapsed to single spaces
// before splitting, so identical input always yields identical boundaries.
// Empty or whitespace-only text yields no chunks.
func Split(text string, maxChars, overlapChars int) ([]Chunk, error) {
	if maxChars <= 0 {
		return nil, fmt.Errorf("%w: chunk size must be positive, got %d", rag.ErrConfiguration, maxChars)
	}
	if overlapChars < 0 {
		return nil, fmt.Errorf("%w: chunk overlap must not be negative, got %d", rag.ErrConfiguration, overlapChars)
	}
	if overlapChars >= maxChars {
		return nil, fmt.Errorf("%w: chunk overlap %d must be smaller than chunk size %d", rag.ErrConfiguration, overlapChars, maxChars)
	}

	runes := []rune(normalize(text))
	if len(runes) == 0 {
		return nil, nil
	}
	if len(runes) <= maxChars {
		return []Chunk{{Text: string(runes), Start: 0, End: len(runes)}}, nil
	}

	var chunks []Chunk
	start := 0
	for start < len(runes) {
		end := start + maxChars
		if end < len(runes) {
			// Cut at the last sentence boundary inside the window; fall
			// back to a hard cut when a sentence exceeds the window.
			if cut := lastBoundary(runes, start, end); cut > start {
				end = cut + 1
			}
		} else {
			end = len(runes)
		}

		// Trim the window's edge spaces and move the offsets with them, so
		// Start..End always addresses exactly the chunk text. Normalization
		// leaves single spaces as the only whitespace.
		ltrim, rtrim := start, end
		for ltrim < rtrim && runes[ltrim] == ' ' {
			ltrim++
		}
		for rtrim > ltrim && runes[rtrim-1] == ' ' {
			rtrim--
		}
		if rtrim > ltrim {
			chunks = append(chunks, Chunk{Text: string(runes[ltrim:rtrim]), Start: ltrim, End: rtrim})
		}

		next := end - overlapChars
		if next <= start {
			// Overlap would revisit the same window; step past it instead.
			next = end
		}
		start = next
		if start <= 0 || start >= len(runes) {
			break
		}
	}
	return chunks, nil
}

func normalize(text string) string {
	return strings.Join(strings.Fields(text), " ")
}

// lastBoundary returns the index of the last sentence-ending rune in
// runes[start:end), or -1 when the window holds none.
func lastBoundary(runes []rune, start, end int) int {
	for i := end - 1; i >= start; i-- {
		switch runes[i] {
		case '.', '!', '?':
			return i
		}
	}
	return -1
}
