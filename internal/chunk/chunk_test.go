package chunk

import (
	"errors"
	"strings"
	"testing"

	"github.com/mohammad-safakhou/shopchat/internal/rag"
)

func TestSplitShortText(t *testing.T) {
	chunks, err := Split("The battery lasts 8 hours.", 500, 50)
	if err != nil {
		t.Fatalf("Split: %v", err)
	}
	if len(chunks) != 1 {
		t.Fatalf("expected one chunk, got %d", len(chunks))
	}
	if chunks[0].Text != "The battery lasts 8 hours." {
		t.Fatalf("unexpected chunk text: %q", chunks[0].Text)
	}
	if chunks[0].Start != 0 || chunks[0].End != len([]rune(chunks[0].Text)) {
		t.Fatalf("unexpected offsets: %d..%d", chunks[0].Start, chunks[0].End)
	}
}

func TestSplitEmpty(t *testing.T) {
	for _, text := range []string{"", "   ", "\n\t "} {
		chunks, err := Split(text, 100, 10)
		if err != nil {
			t.Fatalf("Split(%q): %v", text, err)
		}
		if len(chunks) != 0 {
			t.Fatalf("Split(%q): expected no chunks, got %d", text, len(chunks))
		}
	}
}

func TestSplitNormalizesWhitespace(t *testing.T) {
	chunks, err := Split("hello\n\n  world\ttabs", 100, 0)
	if err != nil {
		t.Fatalf("Split: %v", err)
	}
	if chunks[0].Text != "hello world tabs" {
		t.Fatalf("expected collapsed whitespace, got %q", chunks[0].Text)
	}
}

func TestSplitPrefersSentenceBoundary(t *testing.T) {
	text := "First sentence here. Second sentence is a bit longer than the first one."
	chunks, err := Split(text, 40, 0)
	if err != nil {
		t.Fatalf("Split: %v", err)
	}
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}
	if !strings.HasSuffix(chunks[0].Text, ".") {
		t.Fatalf("first chunk should end at a sentence boundary, got %q", chunks[0].Text)
	}
}

func TestSplitRespectsMaxSize(t *testing.T) {
	text := strings.Repeat("abcdefghij", 30) // no sentence boundaries at all
	chunks, err := Split(text, 50, 10)
	if err != nil {
		t.Fatalf("Split: %v", err)
	}
	for i, c := range chunks {
		if n := len([]rune(c.Text)); n > 50 {
			t.Fatalf("chunk %d has %d runes, max is 50", i, n)
		}
	}
}

func TestSplitOverlapCoversWholeText(t *testing.T) {
	text := strings.Repeat("x", 120)
	chunks, err := Split(text, 50, 10)
	if err != nil {
		t.Fatalf("Split: %v", err)
	}
	covered := 0
	for _, c := range chunks {
		if c.Start < covered-10 || c.Start > covered {
			t.Fatalf("chunk starting at %d leaves a gap or overlaps too much (covered %d)", c.Start, covered)
		}
		if c.End > covered {
			covered = c.End
		}
	}
	if covered != 120 {
		t.Fatalf("chunks cover %d of 120 runes", covered)
	}
}

func TestSplitDeterministic(t *testing.T) {
	text := strings.Repeat("Sentence one. Sentence two is longer. ", 30)
	a, err := Split(text, 80, 20)
	if err != nil {
		t.Fatalf("Split: %v", err)
	}
	b, _ := Split(text, 80, 20)
	if len(a) != len(b) {
		t.Fatalf("non-deterministic chunk count: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("chunk %d differs between runs", i)
		}
	}
}

func TestSplitConfigErrors(t *testing.T) {
	cases := []struct {
		name     string
		max, ovl int
	}{
		{"zero size", 0, 0},
		{"negative overlap", 100, -1},
		{"overlap not smaller than size", 100, 100},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Split("text", tc.max, tc.ovl)
			if !errors.Is(err, rag.ErrConfiguration) {
				t.Fatalf("expected ErrConfiguration, got %v", err)
			}
		})
	}
}

func TestSplitOffsetsAddressChunkText(t *testing.T) {
	// Sentence cuts land on the space after the terminator, so untrimmed
	// offsets used to include it.
	text := strings.Repeat("Short sentence here. ", 20)
	chunks, err := Split(text, 60, 10)
	if err != nil {
		t.Fatalf("Split: %v", err)
	}
	norm := []rune(normalize(text))
	for i, c := range chunks {
		if got := string(norm[c.Start:c.End]); got != c.Text {
			t.Fatalf("chunk %d offsets %d..%d address %q, text is %q", i, c.Start, c.End, got, c.Text)
		}
		if strings.TrimSpace(c.Text) != c.Text {
			t.Fatalf("chunk %d text carries edge whitespace: %q", i, c.Text)
		}
	}
}

func TestSplitTerminatesOnDenseBoundaries(t *testing.T) {
	// Boundary right after the window start used to stall the scan when the
	// overlap exceeded the advance.
	text := strings.Repeat(". ", 200)
	chunks, err := Split(text, 10, 8)
	if err != nil {
		t.Fatalf("Split: %v", err)
	}
	if len(chunks) == 0 {
		t.Fatal("expected chunks")
	}
}
