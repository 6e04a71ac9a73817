// Package memory implements the vector index as an in-process brute-force
// cosine store with an optional JSON snapshot. It backs tests and
// single-node development setups without Postgres.
package memory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"sort"
	"sync"

	"github.com/mohammad-safakhou/shopchat/internal/rag"
)

// Index partitions entries by item id. All methods are safe for concurrent
// use; searches on one item proceed while another item is being replaced.
type Index struct {
	mu    sync.RWMutex
	dims  int
	items map[int64]map[string]rag.IndexEntry
}

func New(dims int) (*Index, error) {
	if dims <= 0 {
		return nil, fmt.Errorf("%w: embedding dimensions must be positive, got %d", rag.ErrConfiguration, dims)
	}
	return &Index{dims: dims, items: make(map[int64]map[string]rag.IndexEntry)}, nil
}

func (ix *Index) Upsert(ctx context.Context, entries []rag.IndexEntry) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	for _, e := range entries {
		if err := ix.validate(e); err != nil {
			return err
		}
		bucket := ix.items[e.Passage.ItemID]
		if bucket == nil {
			bucket = make(map[string]rag.IndexEntry)
			ix.items[e.Passage.ItemID] = bucket
		}
		bucket[e.Passage.ID] = e
	}
	return nil
}

func (ix *Index) ReplaceItem(ctx context.Context, itemID int64, entries []rag.IndexEntry) error {
	// Validate before touching state so a bad batch leaves the old set intact.
	for _, e := range entries {
		if e.Passage.ItemID != itemID {
			return fmt.Errorf("passage %s belongs to item %d, not %d", e.Passage.ID, e.Passage.ItemID, itemID)
		}
		if err := ix.validate(e); err != nil {
			return err
		}
	}
	bucket := make(map[string]rag.IndexEntry, len(entries))
	for _, e := range entries {
		bucket[e.Passage.ID] = e
	}
	ix.mu.Lock()
	defer ix.mu.Unlock()
	if len(bucket) == 0 {
		delete(ix.items, itemID)
	} else {
		ix.items[itemID] = bucket
	}
	return nil
}

func (ix *Index) DeleteByItem(ctx context.Context, itemID int64) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	delete(ix.items, itemID)
	return nil
}

func (ix *Index) Search(ctx context.Context, itemID int64, vector []float32, topK int) (rag.RetrievalResult, error) {
	if topK <= 0 {
		topK = 5
	}
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	bucket := ix.items[itemID]
	if len(bucket) == 0 {
		return nil, nil
	}
	results := make(rag.RetrievalResult, 0, len(bucket))
	for _, e := range bucket {
		results = append(results, rag.SearchResult{
			Passage: e.Passage,
			Score:   clampScore(cosine(vector, e.Vector)),
		})
	}
	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Passage.ID < results[j].Passage.ID
	})
	if topK < len(results) {
		results = results[:topK]
	}
	return results, nil
}

// snapshot is the on-disk layout.
type snapshot struct {
	Dimensions int             `json:"dimensions"`
	Entries    []rag.IndexEntry `json:"entries"`
}

// Load restores a snapshot written by Save. A missing file is fine (fresh
// index); an unreadable or garbled one fails with ErrIndexCorrupt so data
// loss is never masked by silently starting empty.
func (ix *Index) Load(path string) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("%w: reading snapshot %s: %v", rag.ErrIndexCorrupt, path, err)
	}
	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return fmt.Errorf("%w: decoding snapshot %s: %v", rag.ErrIndexCorrupt, path, err)
	}
	if snap.Dimensions != ix.dims {
		return fmt.Errorf("%w: snapshot has %d dimensions, configuration expects %d (reindex required)",
			rag.ErrIndexCorrupt, snap.Dimensions, ix.dims)
	}
	items := make(map[int64]map[string]rag.IndexEntry)
	for _, e := range snap.Entries {
		if len(e.Vector) != snap.Dimensions {
			return fmt.Errorf("%w: snapshot passage %s has %d dimensions, want %d",
				rag.ErrIndexCorrupt, e.Passage.ID, len(e.Vector), snap.Dimensions)
		}
		bucket := items[e.Passage.ItemID]
		if bucket == nil {
			bucket = make(map[string]rag.IndexEntry)
			items[e.Passage.ItemID] = bucket
		}
		bucket[e.Passage.ID] = e
	}
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.items = items
	return nil
}

// Save writes the current entries to path atomically (tmp file + rename).
func (ix *Index) Save(path string) error {
	ix.mu.RLock()
	snap := snapshot{Dimensions: ix.dims}
	for _, bucket := range ix.items {
		for _, e := range bucket {
			snap.Entries = append(snap.Entries, e)
		}
	}
	ix.mu.RUnlock()

	sort.Slice(snap.Entries, func(i, j int) bool {
		return snap.Entries[i].Passage.ID < snap.Entries[j].Passage.ID
	})
	data, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

func (ix *Index) validate(e rag.IndexEntry) error {
	if e.Passage.ID == "" {
		return fmt.Errorf("passage id required")
	}
	if len(e.Vector) != ix.dims {
		return fmt.Errorf("passage %s: vector has %d dimensions, want %d", e.Passage.ID, len(e.Vector), ix.dims)
	}
	return nil
}

func cosine(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

func clampScore(s float64) float64 {
	if s < 0 {
		return 0
	}
	if s > 1 {
		return 1
	}
	return s
}
