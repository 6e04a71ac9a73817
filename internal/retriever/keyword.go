package retriever

import (
	"fmt"
	"sort"
	"strconv"
	"sync"

	"github.com/blevesearch/bleve"
	"github.com/blevesearch/bleve/analysis/analyzer/keyword"

	"github.com/mohammad-safakhou/shopchat/internal/rag"
)

// KeywordIndex is a mem-only BM25 index over the same passages as the vector
// index. It serves retrieval only while the embedding backend is down; it is
// never the primary ranking.
type KeywordIndex struct {
	mu     sync.RWMutex
	index  bleve.Index
	meta   map[string]rag.Passage
	byItem map[int64][]string
}

func NewKeywordIndex() (*KeywordIndex, error) {
	im := bleve.NewIndexMapping()
	doc := bleve.NewDocumentMapping()

	itemField := bleve.NewTextFieldMapping()
	itemField.Analyzer = keyword.Name
	doc.AddFieldMappingsAt("item", itemField)

	textField := bleve.NewTextFieldMapping()
	doc.AddFieldMappingsAt("text", textField)

	im.DefaultMapping = doc

	idx, err := bleve.NewMemOnly(im)
	if err != nil {
		return nil, fmt.Errorf("creating keyword index: %w", err)
	}
	return &KeywordIndex{
		index:  idx,
		meta:   map[string]rag.Passage{},
		byItem: map[int64][]string{},
	}, nil
}

// ReplaceItem swaps the indexed passages for one item.
func (k *KeywordIndex) ReplaceItem(itemID int64, passages []rag.Passage) error {
	k.mu.Lock()
	defer k.mu.Unlock()

	batch := k.index.NewBatch()
	for _, id := range k.byItem[itemID] {
		batch.Delete(id)
		delete(k.meta, id)
	}
	ids := make([]string, 0, len(passages))
	for _, p := range passages {
		if err := batch.Index(p.ID, map[string]interface{}{
			"item": strconv.FormatInt(itemID, 10),
			"text": p.Text,
		}); err != nil {
			return err
		}
		ids = append(ids, p.ID)
	}
	if err := k.index.Batch(batch); err != nil {
		return err
	}
	for _, p := range passages {
		k.meta[p.ID] = p
	}
	if len(ids) == 0 {
		delete(k.byItem, itemID)
	} else {
		k.byItem[itemID] = ids
	}
	return nil
}

// Search runs a BM25 match scoped to the item. BM25 scores are unbounded, so
// they are squashed with s/(1+s) to stay inside the [0,1] score contract.
func (k *KeywordIndex) Search(itemID int64, query string, topK int, minScore float64) (rag.RetrievalResult, error) {
	if topK <= 0 {
		topK = 5
	}
	k.mu.RLock()
	defer k.mu.RUnlock()

	match := bleve.NewMatchQuery(query)
	match.SetField("text")
	scope := bleve.NewTermQuery(strconv.FormatInt(itemID, 10))
	scope.SetField("item")

	req := bleve.NewSearchRequestOptions(bleve.NewConjunctionQuery(match, scope), topK, 0, false)
	res, err := k.index.Search(req)
	if err != nil {
		return nil, err
	}

	var results rag.RetrievalResult
	for _, hit := range res.Hits {
		p, ok := k.meta[hit.ID]
		if !ok || p.ItemID != itemID {
			continue
		}
		score := hit.Score / (1 + hit.Score)
		if score < minScore {
			continue
		}
		results = append(results, rag.SearchResult{Passage: p, Score: score})
	}
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Passage.ID < results[j].Passage.ID
	})
	return results, nil
}
