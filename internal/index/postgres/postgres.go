// Package postgres implements the vector index on a pgvector column, giving
// passages durable storage that survives process restarts.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/mohammad-safakhou/shopchat/internal/rag"
)

// Index stores passage embeddings in the item_passages table.
type Index struct {
	DB   *sql.DB
	dims int
}

func New(db *sql.DB, dims int) (*Index, error) {
	if db == nil {
		return nil, fmt.Errorf("%w: postgres index requires a database handle", rag.ErrConfiguration)
	}
	if dims <= 0 {
		return nil, fmt.Errorf("%w: embedding dimensions must be positive, got %d", rag.ErrConfiguration, dims)
	}
	return &Index{DB: db, dims: dims}, nil
}

// EnsureReady verifies the persisted index is readable and that the stored
// vectors match the configured dimensionality. A mismatch means the
// embedding model changed without a reindex; we fail fast instead of
// serving stale-space results.
func (ix *Index) EnsureReady(ctx context.Context) error {
	var dims sql.NullInt64
	err := ix.DB.QueryRowContext(ctx, `SELECT vector_dims(embedding) FROM item_passages LIMIT 1`).Scan(&dims)
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("%w: probing item_passages: %v", rag.ErrIndexCorrupt, err)
	}
	if dims.Valid && int(dims.Int64) != ix.dims {
		return fmt.Errorf("%w: stored vectors have %d dimensions, configuration expects %d (reindex required)",
			rag.ErrIndexCorrupt, dims.Int64, ix.dims)
	}
	return nil
}

// Upsert inserts or replaces entries keyed by passage id.
func (ix *Index) Upsert(ctx context.Context, entries []rag.IndexEntry) error {
	if len(entries) == 0 {
		return nil
	}
	stmt, err := ix.DB.PrepareContext(ctx, upsertSQL)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, e := range entries {
		if err := execUpsert(ctx, stmt, ix.dims, e); err != nil {
			return err
		}
	}
	return nil
}

// ReplaceItem swaps every entry for the item inside one transaction, so a
// concurrent search sees either the complete old set or the complete new
// one, never a mix.
func (ix *Index) ReplaceItem(ctx context.Context, itemID int64, entries []rag.IndexEntry) (err error) {
	tx, err := ix.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		} else {
			err = tx.Commit()
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM item_passages WHERE item_id=$1`, itemID); err != nil {
		return fmt.Errorf("delete existing passages: %w", err)
	}
	if len(entries) == 0 {
		return nil
	}
	stmt, err := tx.PrepareContext(ctx, upsertSQL)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, e := range entries {
		if e.Passage.ItemID != itemID {
			return fmt.Errorf("passage %s belongs to item %d, not %d", e.Passage.ID, e.Passage.ItemID, itemID)
		}
		if err = execUpsert(ctx, stmt, ix.dims, e); err != nil {
			return err
		}
	}
	return nil
}

// DeleteByItem removes all entries for the item.
func (ix *Index) DeleteByItem(ctx context.Context, itemID int64) error {
	_, err := ix.DB.ExecContext(ctx, `DELETE FROM item_passages WHERE item_id=$1`, itemID)
	return err
}

// Search returns the topK most similar passages for the item, scored by
// cosine similarity clamped to [0,1], ties broken by lowest passage id.
func (ix *Index) Search(ctx context.Context, itemID int64, vector []float32, topK int) (rag.RetrievalResult, error) {
	if topK <= 0 {
		topK = 5
	}
	vecLiteral, err := encodeVectorLiteral(vector)
	if err != nil {
		return nil, err
	}
	rows, err := ix.DB.QueryContext(ctx, `
SELECT passage_id, item_id, source_id, source_type, chunk_index, content, char_start, char_end,
       embedding <=> $1::vector AS distance
FROM item_passages
WHERE item_id = $2
ORDER BY embedding <=> $1::vector, passage_id
LIMIT $3
`, vecLiteral, itemID, topK)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results rag.RetrievalResult
	for rows.Next() {
		var (
			p        rag.Passage
			distance float64
		)
		if err := rows.Scan(&p.ID, &p.ItemID, &p.SourceID, &p.Type, &p.ChunkIndex, &p.Text, &p.CharStart, &p.CharEnd, &distance); err != nil {
			return nil, err
		}
		results = append(results, rag.SearchResult{Passage: p, Score: clampScore(1 - distance)})
	}
	return results, rows.Err()
}

const upsertSQL = `
INSERT INTO item_passages (passage_id, item_id, source_id, source_type, chunk_index, content, char_start, char_end, embedding, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9::vector,NOW())
ON CONFLICT (passage_id) DO UPDATE SET
  item_id = EXCLUDED.item_id,
  source_id = EXCLUDED.source_id,
  source_type = EXCLUDED.source_type,
  chunk_index = EXCLUDED.chunk_index,
  content = EXCLUDED.content,
  char_start = EXCLUDED.char_start,
  char_end = EXCLUDED.char_end,
  embedding = EXCLUDED.embedding,
  created_at = NOW();
`

func execUpsert(ctx context.Context, stmt *sql.Stmt, dims int, e rag.IndexEntry) error {
	if e.Passage.ID == "" {
		return fmt.Errorf("passage id required")
	}
	if len(e.Vector) != dims {
		return fmt.Errorf("passage %s: vector has %d dimensions, want %d", e.Passage.ID, len(e.Vector), dims)
	}
	vecLiteral, err := encodeVectorLiteral(e.Vector)
	if err != nil {
		return err
	}
	_, err = stmt.ExecContext(ctx,
		e.Passage.ID, e.Passage.ItemID, e.Passage.SourceID, string(e.Passage.Type),
		e.Passage.ChunkIndex, e.Passage.Text, e.Passage.CharStart, e.Passage.CharEnd, vecLiteral)
	return err
}

func encodeVectorLiteral(vec []float32) (string, error) {
	if len(vec) == 0 {
		return "", fmt.Errorf("vector must not be empty")
	}
	var builder strings.Builder
	builder.WriteByte('[')
	for i, f := range vec {
		if i > 0 {
			builder.WriteByte(',')
		}
		builder.WriteString(strconv.FormatFloat(float64(f), 'f', -1, 32))
	}
	builder.WriteByte(']')
	return builder.String(), nil
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
