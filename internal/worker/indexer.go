// Package worker drives batch (re)indexing of catalog items outside the
// query path.
package worker

import (
	"context"
	"fmt"
	"log"

	"github.com/mohammad-safakhou/shopchat/internal/catalog"
	"github.com/mohammad-safakhou/shopchat/internal/retriever"
)

// Indexer feeds catalog source texts through the retriever's indexing path.
type Indexer struct {
	Catalog   *catalog.Store
	Retriever *retriever.Retriever
	Logger    *log.Logger
}

func NewIndexer(cat *catalog.Store, ret *retriever.Retriever, logger *log.Logger) *Indexer {
	if logger == nil {
		logger = log.New(log.Writer(), "[INDEXER] ", log.LstdFlags)
	}
	return &Indexer{Catalog: cat, Retriever: ret, Logger: logger}
}

// ReindexItems rebuilds the passages of the given products. A failure on one
// item aborts the run; items already swapped keep their new set, items not
// yet reached keep their old one; per-item replacement is the atomic unit.
func (ix *Indexer) ReindexItems(ctx context.Context, productIDs []int64) error {
	for _, id := range productIDs {
		sources, err := ix.Catalog.SourceTexts(ctx, id)
		if err != nil {
			return fmt.Errorf("loading sources for product %d: %w", id, err)
		}
		if len(sources) == 0 {
			ix.Logger.Printf("product %d has no source texts, clearing its passages", id)
		}
		if err := ix.Retriever.IndexItem(ctx, id, sources); err != nil {
			return err
		}
	}
	return nil
}

// ReindexAll rebuilds every product in the catalog.
func (ix *Indexer) ReindexAll(ctx context.Context) (int, error) {
	ids, err := ix.Catalog.AllProductIDs(ctx)
	if err != nil {
		return 0, err
	}
	if err := ix.ReindexItems(ctx, ids); err != nil {
		return 0, err
	}
	ix.Logger.Printf("reindexed %d products", len(ids))
	return len(ids), nil
}
