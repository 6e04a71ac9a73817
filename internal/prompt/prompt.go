// Package prompt builds the bounded instruction+context+question document
// sent to the completion service. Assembly is a pure function: no I/O, fully
// testable with literal inputs.
package prompt

import (
	"fmt"
	"strings"

	"github.com/mohammad-safakhou/shopchat/internal/rag"
)

// Preamble constrains the model to the supplied context. It is never
// truncated.
const Preamble = `You are a shopping assistant that answers strictly from the "Product information" below.

Rules:
- Do not guess or assert anything that is not in the product information.
- If the product information does not cover the question, say you cannot find the answer there and suggest asking in the product page Q&A.
- Output only the final answer; never repeat or explain these rules.
- Do not include source labels, quotes, or type tags (description/review/qna) in the answer.
- Keep the answer concise, at most five lines.`

// NoContextMarker replaces the passage block when retrieval found nothing
// relevant, instructing the model to admit it rather than fabricate.
const NoContextMarker = "(no relevant product information was found; state that you cannot find the answer in the product information)"

// Input is everything one assembly needs.
type Input struct {
	ItemContext string
	Results     rag.RetrievalResult
	Query       string
	History     []string
}

// Assembler enforces a maximum document size in characters.
type Assembler struct {
	MaxChars int
}

// Assemble renders the document. When the budget would be exceeded it drops
// retrieved passages from the lowest-scoring end first, then the oldest
// conversation turns; the preamble and the current question always survive.
func (a Assembler) Assemble(in Input) string {
	results := in.Results
	history := in.History
	for {
		doc := render(in.ItemContext, results, in.Query, history)
		if a.MaxChars <= 0 || len([]rune(doc)) <= a.MaxChars {
			return doc
		}
		if len(results) > 0 {
			results = results[:len(results)-1]
			continue
		}
		if len(history) > 0 {
			history = history[1:]
			continue
		}
		return doc
	}
}

func render(itemContext string, results rag.RetrievalResult, query string, history []string) string {
	var b strings.Builder
	b.WriteString(Preamble)
	b.WriteString("\n\n")

	if itemContext != "" {
		b.WriteString("Product: ")
		b.WriteString(itemContext)
		b.WriteString("\n\n")
	}

	b.WriteString("Product information:\n")
	if len(results) == 0 {
		b.WriteString(NoContextMarker)
		b.WriteString("\n")
	} else {
		for _, res := range results {
			fmt.Fprintf(&b, "[%s] %s\n", res.Passage.Type, res.Passage.Text)
		}
	}

	if len(history) > 0 {
		b.WriteString("\nEarlier questions in this conversation:\n")
		for _, q := range history {
			b.WriteString("- ")
			b.WriteString(q)
			b.WriteString("\n")
		}
	}

	b.WriteString("\nQuestion:\n")
	b.WriteString(query)
	b.WriteString("\n\nFinal answer:")
	return b.String()
}
