package storage

import (
	"context"
	"fmt"

	"veriflow/internal/models"
)

type ChunkRepo struct {
	db *DB
}

func NewChunkRepo(db *DB) *ChunkRepo {
	return &ChunkRepo{db: db}
}

// InsertChunks writes a document's chunks in one transaction so a partially
// indexed document never leaves stray rows behind.
func (r *ChunkRepo) InsertChunks(ctx context.Context, documentID string, chunks []models.DocumentChunk) error {
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin insert chunks: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM document_chunks WHERE document_id=$1`, documentID); err != nil {
		return fmt.Errorf("clear previous chunks: %w", err)
	}
	for _, c := range chunks {
		_, err := tx.Exec(ctx, `
INSERT INTO document_chunks (id, document_id, chunk_index, content, page_number, start_char, end_char, vector_id)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			c.ID, documentID, c.ChunkIndex, c.Content, c.PageNumber, c.StartChar, c.EndChar, c.VectorID,
		)
		if err != nil {
			return fmt.Errorf("insert chunk %d: %w", c.ChunkIndex, err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit insert chunks: %w", err)
	}
	return nil
}

func (r *ChunkRepo) ListByDocument(ctx context.Context, documentID string) ([]models.DocumentChunk, error) {
	rows, err := r.db.Pool.Query(ctx, `
SELECT id::text, document_id::text, chunk_index, content, page_number, start_char, end_char, COALESCE(vector_id,''), created_at
FROM document_chunks
WHERE document_id=$1
ORDER BY chunk_index`, documentID)
	if err != nil {
		return nil, fmt.Errorf("list chunks: %w", err)
	}
	defer rows.Close()

	out := make([]models.DocumentChunk, 0)
	for rows.Next() {
		var c models.DocumentChunk
		if err := rows.Scan(&c.ID, &c.DocumentID, &c.ChunkIndex, &c.Content, &c.PageNumber,
			&c.StartChar, &c.EndChar, &c.VectorID, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan chunk: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate chunks: %w", err)
	}
	return out, nil
}

func (r *ChunkRepo) DeleteByDocument(ctx context.Context, documentID string) error {
	if _, err := r.db.Pool.Exec(ctx, `DELETE FROM document_chunks WHERE document_id=$1`, documentID); err != nil {
		return fmt.Errorf("delete chunks: %w", err)
	}
	return nil
}
