package answer

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// suggest derives follow-up questions for the response. It first asks the
// completion service for short follow-ups; when that fails it falls back to
// category-keyed templates. Nothing here may fail the overall answer, so
// the worst case is an empty list.
func (e *Engine) suggest(ctx context.Context, item ItemContext, query string, asked []string) []string {
	n := e.cfg.SuggestionCount
	if n == 0 {
		return nil
	}

	if generated := e.generateSuggestions(ctx, item, query, asked, n); len(generated) > 0 {
		return generated
	}
	return templateSuggestions(item, query, asked, n)
}

func (e *Engine) generateSuggestions(ctx context.Context, item ItemContext, query string, asked []string, n int) []string {
	doc := fmt.Sprintf(
		"A shopper looking at %q just asked: %q\nSuggest %d short follow-up questions about this product, one per line, no numbering, nothing else.",
		itemLine(item), query, n)
	text, err := e.generator.Generate(ctx, doc)
	if err != nil {
		e.logger.Printf("warn: suggestion generation failed, using templates: %v", err)
		return nil
	}

	seen := map[string]bool{strings.ToLower(strings.TrimSpace(query)): true}
	for _, q := range asked {
		seen[strings.ToLower(strings.TrimSpace(q))] = true
	}
	var out []string
	for _, line := range strings.Split(text, "\n") {
		q := strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(line), "-*0123456789. "))
		if q == "" || seen[strings.ToLower(q)] {
			continue
		}
		seen[strings.ToLower(q)] = true
		out = append(out, q)
		if len(out) == n {
			break
		}
	}
	return out
}

// Tokens too generic to indicate what the shopper actually cares about.
var stopTokens = map[string]bool{
	"the": true, "this": true, "that": true, "what": true, "how": true,
	"does": true, "is": true, "are": true, "can": true, "much": true,
	"many": true, "about": true, "with": true, "have": true, "has": true,
	"will": true, "would": true, "product": true, "item": true,
}

var tokenPattern = regexp.MustCompile(`[0-9a-zA-Z]{2,}`)

// templateSuggestions ranks the category's default FAQ questions by keyword
// overlap with the user's question, skipping ones already asked.
func templateSuggestions(item ItemContext, query string, asked []string, n int) []string {
	askedSet := make(map[string]bool, len(asked))
	for _, q := range asked {
		askedSet[q] = true
	}
	var candidates []string
	for _, q := range defaultQuestions(item) {
		if !askedSet[q] {
			candidates = append(candidates, q)
		}
	}
	if len(candidates) == 0 {
		return nil
	}

	type scored struct {
		question string
		score    int
		idx      int
	}
	tokens := queryTokens(query)
	list := make([]scored, len(candidates))
	for i, q := range candidates {
		list[i] = scored{question: q, score: matchScore(tokens, q), idx: i}
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].score != list[j].score {
			return list[i].score > list[j].score
		}
		return list[i].idx < list[j].idx
	})
	if n > len(list) {
		n = len(list)
	}
	out := make([]string, n)
	for i := 0; i < n; i++ {
		out[i] = list[i].question
	}
	return out
}

func defaultQuestions(item ItemContext) []string {
	name := item.Name
	if name == "" {
		return []string{
			"What are the key features of this product?",
			"What options or variants are available?",
			"What are the size and weight?",
			"How do I use and care for it?",
			"How do shipping and returns work?",
		}
	}
	switch strings.ToLower(item.Category) {
	case "bedding":
		return []string{
			fmt.Sprintf("What material is the %s made of?", name),
			fmt.Sprintf("How should the %s be washed and cared for?", name),
			fmt.Sprintf("What sizes does the %s come in?", name),
			fmt.Sprintf("How warm is the %s across seasons?", name),
			"How do shipping and returns work?",
		}
	case "food":
		return []string{
			fmt.Sprintf("How do I prepare the %s?", name),
			fmt.Sprintf("How spicy is the %s?", name),
			fmt.Sprintf("How should the %s be stored, and what is the shelf life?", name),
			fmt.Sprintf("How big is one serving of the %s?", name),
			"How do shipping and returns work?",
		}
	default:
		return []string{
			fmt.Sprintf("What are the key features of the %s?", name),
			fmt.Sprintf("What options or variants does the %s have?", name),
			fmt.Sprintf("What are the size and weight of the %s?", name),
			fmt.Sprintf("How do I use and care for the %s?", name),
			"How do shipping and returns work?",
		}
	}
}

func queryTokens(query string) []string {
	var tokens []string
	for _, tok := range tokenPattern.FindAllString(strings.ToLower(query), -1) {
		if !stopTokens[tok] {
			tokens = append(tokens, tok)
		}
	}
	return tokens
}

func matchScore(tokens []string, question string) int {
	q := strings.ToLower(question)
	score := 0
	for _, tok := range tokens {
		if strings.Contains(q, tok) {
			score++
		}
	}
	return score
}
