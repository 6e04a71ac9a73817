// Package answer runs one question through retrieval, prompt assembly,
// generation, and packaging, producing an AnswerPackage with attributed
// sources.
package answer

import (
	"context"
	"fmt"
	"log"

	"github.com/mohammad-safakhou/shopchat/internal/prompt"
	"github.com/mohammad-safakhou/shopchat/internal/rag"
)

// State tracks where a call is in its lifecycle. Every call moves
// Retrieving → Assembling → Generating → Packaging → Done, or to Failed from
// any state.
type State string

const (
	StateRetrieving State = "retrieving"
	StateAssembling State = "assembling"
	StateGenerating State = "generating"
	StatePackaging  State = "packaging"
	StateDone       State = "done"
	StateFailed     State = "failed"
)

// Generator is the opaque completion service.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Retriever is the slice of the retrieval pipeline the engine depends on.
type Retriever interface {
	Retrieve(ctx context.Context, itemID int64, query string, history []string, topK int) (rag.RetrievalResult, error)
}

// ItemContext is the catalog metadata the prompt and suggestion fallback
// need; the caller loads it so the engine stays off the database.
type ItemContext struct {
	Name     string
	Category string
}

// Config bounds the engine's per-call work.
type Config struct {
	TopK            int
	SuggestionCount int
}

// Engine composes the pipeline. All state is per call; engines are safe for
// concurrent use.
type Engine struct {
	retriever Retriever
	assembler prompt.Assembler
	generator Generator
	cfg       Config
	logger    *log.Logger
}

func New(retriever Retriever, assembler prompt.Assembler, generator Generator, cfg Config, logger *log.Logger) (*Engine, error) {
	if retriever == nil || generator == nil {
		return nil, fmt.Errorf("%w: answer engine requires a retriever and a generator", rag.ErrConfiguration)
	}
	if cfg.SuggestionCount < 0 {
		cfg.SuggestionCount = 0
	}
	if logger == nil {
		logger = log.New(log.Writer(), "[ANSWER] ", log.LstdFlags)
	}
	return &Engine{
		retriever: retriever,
		assembler: assembler,
		generator: generator,
		cfg:       cfg,
		logger:    logger,
	}, nil
}

// Answer produces the grounded answer for one question. Retrieval coming
// back empty is not a failure: the prompt carries the no-context marker and
// the model is instructed to say it cannot find the answer. A generation
// failure surfaces as ErrGenerationUnavailable with no retry and no canned
// substitute. Suggestion failures degrade to an empty list, never failing
// the answer.
func (e *Engine) Answer(ctx context.Context, itemID int64, item ItemContext, query string, history []string) (rag.AnswerPackage, error) {
	state := StateRetrieving
	results, err := e.retriever.Retrieve(ctx, itemID, query, history, e.cfg.TopK)
	if err != nil {
		return e.fail(state, itemID, err)
	}
	if len(results) == 0 {
		e.logger.Printf("item %d: no context above threshold, answering with no-context marker", itemID)
	}

	state = StateAssembling
	doc := e.assembler.Assemble(prompt.Input{
		ItemContext: itemLine(item),
		Results:     results,
		Query:       query,
		History:     history,
	})

	state = StateGenerating
	text, err := e.generator.Generate(ctx, doc)
	if err != nil {
		return e.fail(state, itemID, fmt.Errorf("%w: %v", rag.ErrGenerationUnavailable, err))
	}

	state = StatePackaging
	suggestions := e.suggest(ctx, item, query, history)

	state = StateDone
	e.logger.Printf("item %d: answered with %d sources, %d suggestions (%s)", itemID, len(results), len(suggestions), state)
	return rag.AnswerPackage{
		Answer:             text,
		Sources:            results,
		SuggestedQuestions: suggestions,
	}, nil
}

func (e *Engine) fail(state State, itemID int64, err error) (rag.AnswerPackage, error) {
	e.logger.Printf("item %d: %s failed: %v", itemID, state, err)
	return rag.AnswerPackage{}, err
}

func itemLine(item ItemContext) string {
	switch {
	case item.Name == "":
		return item.Category
	case item.Category == "":
		return item.Name
	default:
		return item.Name + " (" + item.Category + ")"
	}
}
