package rag

import "context"

// Embedder maps text to fixed-length vectors. Implementations must be
// deterministic for a fixed model configuration, and EmbedBatch must be
// behaviorally identical to calling Embed per item in order.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
}

// VectorIndex stores (vector, passage) entries partitioned by item id and
// supports item-scoped nearest-neighbor search.
type VectorIndex interface {
	// Upsert inserts or replaces entries keyed by passage id.
	Upsert(ctx context.Context, entries []IndexEntry) error

	// ReplaceItem atomically swaps all entries for the item with the given
	// set. On failure the previous set stays queryable.
	ReplaceItem(ctx context.Context, itemID int64, entries []IndexEntry) error

	// DeleteByItem removes every entry for the item.
	DeleteByItem(ctx context.Context, itemID int64) error

	// Search returns the topK highest-scoring entries for the item, ties
	// broken by lowest passage id. An item with no entries yields an empty
	// result, not an error.
	Search(ctx context.Context, itemID int64, vector []float32, topK int) (RetrievalResult, error)
}
