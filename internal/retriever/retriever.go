// Package retriever orchestrates chunking and embedding at index time and
// item-scoped similarity search at query time.
package retriever

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"

	"github.com/mohammad-safakhou/shopchat/internal/chunk"
	"github.com/mohammad-safakhou/shopchat/internal/rag"
)

// Config carries the retrieval tuning knobs.
type Config struct {
	ChunkSize     int
	ChunkOverlap  int
	TopK          int
	MinScore      float64
	HistoryWindow int
	BatchSize     int
}

// Retriever owns no global state: the index and embedder are injected so
// test suites can run in parallel with independent stores.
type Retriever struct {
	embedder rag.Embedder
	index    rag.VectorIndex
	keyword  *KeywordIndex // optional degraded path, may be nil
	cfg      Config
	logger   *log.Logger

	mu    sync.Mutex
	locks map[int64]*sync.Mutex
}

func New(embedder rag.Embedder, index rag.VectorIndex, keyword *KeywordIndex, cfg Config, logger *log.Logger) (*Retriever, error) {
	if embedder == nil || index == nil {
		return nil, fmt.Errorf("%w: retriever requires an embedder and a vector index", rag.ErrConfiguration)
	}
	if cfg.ChunkOverlap >= cfg.ChunkSize {
		return nil, fmt.Errorf("%w: chunk overlap %d must be smaller than chunk size %d", rag.ErrConfiguration, cfg.ChunkOverlap, cfg.ChunkSize)
	}
	if cfg.TopK <= 0 {
		cfg.TopK = 5
	}
	if cfg.HistoryWindow < 0 {
		cfg.HistoryWindow = 0
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 32
	}
	if logger == nil {
		logger = log.New(log.Writer(), "[RETRIEVER] ", log.LstdFlags)
	}
	return &Retriever{
		embedder: embedder,
		index:    index,
		keyword:  keyword,
		cfg:      cfg,
		logger:   logger,
		locks:    map[int64]*sync.Mutex{},
	}, nil
}

// Retrieve embeds the question (expanded with a bounded window of recent
// prior questions) and searches the index scoped to the item. Results below
// the similarity threshold are dropped; an empty result is returned rather
// than padding with weak matches.
func (r *Retriever) Retrieve(ctx context.Context, itemID int64, query string, history []string, topK int) (rag.RetrievalResult, error) {
	if topK <= 0 {
		topK = r.cfg.TopK
	}
	effective := r.effectiveQuery(query, history)

	vec, err := r.embedder.Embed(ctx, effective)
	if err != nil {
		if errors.Is(err, rag.ErrEmbeddingUnavailable) && r.keyword != nil {
			fallback, kerr := r.keyword.Search(itemID, query, topK, r.cfg.MinScore)
			if kerr == nil && len(fallback) > 0 {
				r.logger.Printf("embedding backend down, serving keyword results for item %d: %v", itemID, err)
				return fallback, nil
			}
			// An empty keyword result cannot distinguish "nothing relevant"
			// from "nothing indexed here this process"; report the outage
			// rather than a confident miss.
		}
		return nil, err
	}

	results, err := r.index.Search(ctx, itemID, vec, topK)
	if err != nil {
		return nil, err
	}
	filtered := results[:0]
	for _, res := range results {
		if res.Score >= r.cfg.MinScore {
			filtered = append(filtered, res)
		}
	}
	return filtered, nil
}

// IndexItem rebuilds the passage set for one item: chunk every source text,
// embed the chunks, then swap the complete new set in. The swap happens only
// after every embedding succeeded, so a mid-way failure leaves the previous
// set queryable. Calls for the same item are serialized.
func (r *Retriever) IndexItem(ctx context.Context, itemID int64, sources []rag.SourceText) error {
	lock := r.itemLock(itemID)
	lock.Lock()
	defer lock.Unlock()

	passages, err := r.buildPassages(itemID, sources)
	if err != nil {
		return err
	}

	entries := make([]rag.IndexEntry, 0, len(passages))
	for start := 0; start < len(passages); start += r.cfg.BatchSize {
		end := start + r.cfg.BatchSize
		if end > len(passages) {
			end = len(passages)
		}
		batch := passages[start:end]
		texts := make([]string, len(batch))
		for i, p := range batch {
			texts[i] = p.Text
		}
		vecs, err := r.embedder.EmbedBatch(ctx, texts)
		if err != nil {
			return fmt.Errorf("embedding passages for item %d: %w", itemID, err)
		}
		for i, p := range batch {
			entries = append(entries, rag.IndexEntry{Passage: p, Vector: vecs[i]})
		}
	}

	if err := r.index.ReplaceItem(ctx, itemID, entries); err != nil {
		return fmt.Errorf("replacing passages for item %d: %w", itemID, err)
	}
	if r.keyword != nil {
		if err := r.keyword.ReplaceItem(itemID, passages); err != nil {
			// The vector index is authoritative; a degraded keyword index
			// only narrows the fallback path.
			r.logger.Printf("warn: keyword index refresh failed for item %d: %v", itemID, err)
		}
	}
	r.logger.Printf("indexed item %d: %d sources, %d passages", itemID, len(sources), len(entries))
	return nil
}

func (r *Retriever) buildPassages(itemID int64, sources []rag.SourceText) ([]rag.Passage, error) {
	var passages []rag.Passage
	for _, src := range sources {
		if src.ItemID != itemID {
			return nil, fmt.Errorf("source %d belongs to item %d, not %d", src.ID, src.ItemID, itemID)
		}
		chunks, err := chunk.Split(src.Content, r.cfg.ChunkSize, r.cfg.ChunkOverlap)
		if err != nil {
			return nil, err
		}
		for i, c := range chunks {
			passages = append(passages, rag.Passage{
				// Source ids restart per table, so the type is part of the
				// passage id to keep ids unique across source kinds.
				ID:         fmt.Sprintf("%d_%s_%d_%d", itemID, src.Type, src.ID, i),
				ItemID:     itemID,
				SourceID:   src.ID,
				Type:       src.Type,
				ChunkIndex: i,
				Text:       c.Text,
				CharStart:  c.Start,
				CharEnd:    c.End,
			})
		}
	}
	return passages, nil
}

func (r *Retriever) effectiveQuery(query string, history []string) string {
	window := r.cfg.HistoryWindow
	if window == 0 || len(history) == 0 {
		return query
	}
	if len(history) > window {
		history = history[len(history)-window:]
	}
	parts := make([]string, 0, len(history)+1)
	parts = append(parts, history...)
	parts = append(parts, query)
	return strings.Join(parts, "\n")
}

func (r *Retriever) itemLock(itemID int64) *sync.Mutex {
	r.mu.Lock()
	defer r.mu.Unlock()
	lock, ok := r.locks[itemID]
	if !ok {
		lock = &sync.Mutex{}
		r.locks[itemID] = lock
	}
	return lock
}
