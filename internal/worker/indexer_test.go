package worker

import (
	"context"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"

	"github.com/mohammad-safakhou/shopchat/internal/catalog"
	"github.com/mohammad-safakhou/shopchat/internal/index/memory"
	"github.com/mohammad-safakhou/shopchat/internal/retriever"
)

type fixedEmbedder struct{}

func (fixedEmbedder) Dimensions() int { return 2 }

func (f fixedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return []float32{1, 0}, nil
}

func (f fixedEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{1, 0}
	}
	return out, nil
}

func expectProductSources(mock sqlmock.Sqlmock, id int64, description string) {
	mock.ExpectQuery("SELECT id, name").
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "image_url", "price", "category", "description"}).
			AddRow(id, "Product", "", 10.0, "electronics", description))
	mock.ExpectQuery("SELECT id, product_id, COALESCE\\(user_name").
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows([]string{"id", "product_id", "user_name", "review_text", "rating", "created_at"}).
			AddRow(1, id, "", "Solid build quality.", 4, time.Now()))
	mock.ExpectQuery("SELECT id, product_id, question, answer").
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows([]string{"id", "product_id", "question", "answer", "created_at"}))
}

func TestReindexItems(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	ix, _ := memory.New(2)
	ret, err := retriever.New(fixedEmbedder{}, ix, nil, retriever.Config{
		ChunkSize: 200, ChunkOverlap: 20, TopK: 5,
	}, nil)
	if err != nil {
		t.Fatalf("retriever.New: %v", err)
	}
	indexer := NewIndexer(&catalog.Store{DB: db}, ret, nil)

	expectProductSources(mock, 7, "A fine description.")

	if err := indexer.ReindexItems(context.Background(), []int64{7}); err != nil {
		t.Fatalf("ReindexItems: %v", err)
	}

	results, err := ix.Search(context.Background(), 7, []float32{1, 0}, 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected description and review passages, got %d", len(results))
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestReindexAll(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	ix, _ := memory.New(2)
	ret, _ := retriever.New(fixedEmbedder{}, ix, nil, retriever.Config{
		ChunkSize: 200, ChunkOverlap: 20, TopK: 5,
	}, nil)
	indexer := NewIndexer(&catalog.Store{DB: db}, ret, nil)

	mock.ExpectQuery("SELECT id FROM products").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1).AddRow(2))
	expectProductSources(mock, 1, "First product.")
	expectProductSources(mock, 2, "Second product.")

	n, err := indexer.ReindexAll(context.Background())
	if err != nil {
		t.Fatalf("ReindexAll: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 products, got %d", n)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}
