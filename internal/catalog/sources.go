package catalog

import (
	"context"
	"fmt"

	"github.com/mohammad-safakhou/shopchat/internal/rag"
)

// SourceTexts assembles the typed text units of one product for indexing:
// its description, each review, and each Q&A pair rendered as a single
// "Q: …\nA: …" unit so question and answer stay in the same passage.
func (s *Store) SourceTexts(ctx context.Context, productID int64) ([]rag.SourceText, error) {
	product, err := s.GetProduct(ctx, productID)
	if err != nil {
		return nil, err
	}

	var sources []rag.SourceText
	if product.Description != "" {
		sources = append(sources, rag.SourceText{
			ID:      product.ID,
			ItemID:  productID,
			Type:    rag.SourceDescription,
			Content: product.Description,
		})
	}

	reviews, err := s.ListReviews(ctx, productID)
	if err != nil {
		return nil, err
	}
	for _, r := range reviews {
		sources = append(sources, rag.SourceText{
			ID:      r.ID,
			ItemID:  productID,
			Type:    rag.SourceReview,
			Content: r.Text,
		})
	}

	qnas, err := s.ListQnA(ctx, productID)
	if err != nil {
		return nil, err
	}
	for _, q := range qnas {
		sources = append(sources, rag.SourceText{
			ID:      q.ID,
			ItemID:  productID,
			Type:    rag.SourceQnA,
			Content: fmt.Sprintf("Q: %s\nA: %s", q.Question, q.Answer),
		})
	}
	return sources, nil
}
