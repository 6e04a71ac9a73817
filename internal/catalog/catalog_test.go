package catalog

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"

	"github.com/mohammad-safakhou/shopchat/internal/rag"
)

func TestGetProduct(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	st := &Store{DB: db}
	query := regexp.QuoteMeta(`
SELECT id, name, COALESCE(image_url,''), price, COALESCE(category,''), COALESCE(description,'')
FROM products
WHERE id = $1
`)
	rows := sqlmock.NewRows([]string{"id", "name", "image_url", "price", "category", "description"}).
		AddRow(7, "AeroBuds", "", 59.90, "electronics", "One charge lasts 8 hours of playback.")
	mock.ExpectQuery(query).WithArgs(int64(7)).WillReturnRows(rows)

	p, err := st.GetProduct(context.Background(), 7)
	if err != nil {
		t.Fatalf("GetProduct: %v", err)
	}
	if p.Name != "AeroBuds" || p.Category != "electronics" {
		t.Fatalf("unexpected product: %+v", p)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestGetProductNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	st := &Store{DB: db}
	mock.ExpectQuery("SELECT id, name").
		WithArgs(int64(42)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err = st.GetProduct(context.Background(), 42)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSourceTexts(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	st := &Store{DB: db}
	now := time.Now()

	mock.ExpectQuery("SELECT id, name").
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "image_url", "price", "category", "description"}).
			AddRow(7, "AeroBuds", "", 59.90, "electronics", "The product description."))

	mock.ExpectQuery("SELECT id, product_id, COALESCE\\(user_name").
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "product_id", "user_name", "review_text", "rating", "created_at"}).
			AddRow(3, 7, "sam", "Great battery life.", 5, now))

	mock.ExpectQuery("SELECT id, product_id, question, answer").
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "product_id", "question", "answer", "created_at"}).
			AddRow(9, 7, "Is the battery replaceable?", "No, it is sealed.", now))

	sources, err := st.SourceTexts(context.Background(), 7)
	if err != nil {
		t.Fatalf("SourceTexts: %v", err)
	}
	if len(sources) != 3 {
		t.Fatalf("expected 3 sources, got %d", len(sources))
	}
	if sources[0].Type != rag.SourceDescription || sources[0].Content != "The product description." {
		t.Fatalf("unexpected description source: %+v", sources[0])
	}
	if sources[1].Type != rag.SourceReview || sources[1].ID != 3 {
		t.Fatalf("unexpected review source: %+v", sources[1])
	}
	if sources[2].Type != rag.SourceQnA {
		t.Fatalf("unexpected qna source: %+v", sources[2])
	}
	if sources[2].Content != "Q: Is the battery replaceable?\nA: No, it is sealed." {
		t.Fatalf("qna must render as one Q/A unit, got %q", sources[2].Content)
	}
	for _, s := range sources {
		if s.ItemID != 7 {
			t.Fatalf("source %d carries item %d", s.ID, s.ItemID)
		}
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestSourceTextsSkipsEmptyDescription(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	st := &Store{DB: db}
	mock.ExpectQuery("SELECT id, name").
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "image_url", "price", "category", "description"}).
			AddRow(7, "AeroBuds", "", 59.90, "electronics", ""))
	mock.ExpectQuery("SELECT id, product_id, COALESCE\\(user_name").
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "product_id", "user_name", "review_text", "rating", "created_at"}))
	mock.ExpectQuery("SELECT id, product_id, question, answer").
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "product_id", "question", "answer", "created_at"}))

	sources, err := st.SourceTexts(context.Background(), 7)
	if err != nil {
		t.Fatalf("SourceTexts: %v", err)
	}
	if len(sources) != 0 {
		t.Fatalf("expected no sources, got %d", len(sources))
	}
}

func TestAllProductIDs(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	st := &Store{DB: db}
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id FROM products ORDER BY id`)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1).AddRow(2).AddRow(3))

	ids, err := st.AllProductIDs(context.Background())
	if err != nil {
		t.Fatalf("AllProductIDs: %v", err)
	}
	if len(ids) != 3 || ids[0] != 1 || ids[2] != 3 {
		t.Fatalf("unexpected ids: %v", ids)
	}
}
