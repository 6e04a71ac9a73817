// Package catalog is the read-only view of the product store: basic product
// data for the API and the typed source texts the indexer consumes.
package catalog

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// ErrNotFound is returned when a product id does not exist.
var ErrNotFound = errors.New("product not found")

type Product struct {
	ID          int64   `json:"id"`
	Name        string  `json:"name"`
	ImageURL    string  `json:"image_url"`
	Price       float64 `json:"price"`
	Category    string  `json:"category"`
	Description string  `json:"description"`
}

type Review struct {
	ID        int64     `json:"id"`
	ProductID int64     `json:"product_id"`
	UserName  string    `json:"user_name,omitempty"`
	Text      string    `json:"review_text"`
	Rating    int       `json:"rating,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type QnA struct {
	ID        int64     `json:"id"`
	ProductID int64     `json:"product_id"`
	Question  string    `json:"question"`
	Answer    string    `json:"answer"`
	CreatedAt time.Time `json:"created_at"`
}

// Store reads the catalog tables. It never writes during query serving; the
// seed command owns inserts.
type Store struct {
	DB *sql.DB
}

func (s *Store) ListProducts(ctx context.Context) ([]Product, error) {
	rows, err := s.DB.QueryContext(ctx, `
SELECT id, name, COALESCE(image_url,''), price, COALESCE(category,''), COALESCE(description,'')
FROM products
ORDER BY id
`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var products []Product
	for rows.Next() {
		var p Product
		if err := rows.Scan(&p.ID, &p.Name, &p.ImageURL, &p.Price, &p.Category, &p.Description); err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

func (s *Store) GetProduct(ctx context.Context, id int64) (Product, error) {
	var p Product
	err := s.DB.QueryRowContext(ctx, `
SELECT id, name, COALESCE(image_url,''), price, COALESCE(category,''), COALESCE(description,'')
FROM products
WHERE id = $1
`, id).Scan(&p.ID, &p.Name, &p.ImageURL, &p.Price, &p.Category, &p.Description)
	if errors.Is(err, sql.ErrNoRows) {
		return Product{}, ErrNotFound
	}
	return p, err
}

func (s *Store) ListReviews(ctx context.Context, productID int64) ([]Review, error) {
	rows, err := s.DB.QueryContext(ctx, `
SELECT id, product_id, COALESCE(user_name,''), review_text, COALESCE(rating,0), created_at
FROM product_reviews
WHERE product_id = $1
ORDER BY id
`, productID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reviews []Review
	for rows.Next() {
		var r Review
		if err := rows.Scan(&r.ID, &r.ProductID, &r.UserName, &r.Text, &r.Rating, &r.CreatedAt); err != nil {
			return nil, err
		}
		reviews = append(reviews, r)
	}
	return reviews, rows.Err()
}

func (s *Store) ListQnA(ctx context.Context, productID int64) ([]QnA, error) {
	rows, err := s.DB.QueryContext(ctx, `
SELECT id, product_id, question, answer, created_at
FROM product_qna
WHERE product_id = $1
ORDER BY id
`, productID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var qnas []QnA
	for rows.Next() {
		var q QnA
		if err := rows.Scan(&q.ID, &q.ProductID, &q.Question, &q.Answer, &q.CreatedAt); err != nil {
			return nil, err
		}
		qnas = append(qnas, q)
	}
	return qnas, rows.Err()
}

// AllProductIDs lists every product id, for full reindex runs.
func (s *Store) AllProductIDs(ctx context.Context) ([]int64, error) {
	rows, err := s.DB.QueryContext(ctx, `SELECT id FROM products ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
