package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"veriflow/internal/models"
	"veriflow/internal/util"
)

type DocumentRepo struct {
	db *DB
}

func NewDocumentRepo(db *DB) *DocumentRepo {
	return &DocumentRepo{db: db}
}

const documentCols = `
id::text, project_id::text, filename, original_filename, file_path, file_size,
COALESCE(mime_type,''), document_type, page_count, indexed, indexed_at, created_at`

func (r *DocumentRepo) Create(ctx context.Context, d models.Document) error {
	_, err := r.db.Pool.Exec(ctx, `
INSERT INTO documents (id, project_id, filename, original_filename, file_path, file_size, mime_type, document_type)
VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7,''), $8)`,
		d.ID, d.ProjectID, d.Filename, d.OriginalFilename, d.FilePath, d.FileSize, d.MimeType, d.DocumentType,
	)
	if err != nil {
		return fmt.Errorf("insert document: %w", err)
	}
	return nil
}

func (r *DocumentRepo) Get(ctx context.Context, id string) (models.Document, error) {
	var d models.Document
	err := r.db.Pool.QueryRow(ctx,
		`SELECT `+documentCols+` FROM documents WHERE id=$1`, id).
		Scan(&d.ID, &d.ProjectID, &d.Filename, &d.OriginalFilename, &d.FilePath, &d.FileSize,
			&d.MimeType, &d.DocumentType, &d.PageCount, &d.Indexed, &d.IndexedAt, &d.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Document{}, fmt.Errorf("document %s: %w", id, util.ErrNotFound)
	}
	if err != nil {
		return models.Document{}, fmt.Errorf("get document: %w", err)
	}
	return d, nil
}

func (r *DocumentRepo) ListByProject(ctx context.Context, projectID string) ([]models.Document, error) {
	rows, err := r.db.Pool.Query(ctx,
		`SELECT `+documentCols+` FROM documents WHERE project_id=$1 ORDER BY created_at DESC`, projectID)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	out := make([]models.Document, 0)
	for rows.Next() {
		var d models.Document
		if err := rows.Scan(&d.ID, &d.ProjectID, &d.Filename, &d.OriginalFilename, &d.FilePath, &d.FileSize,
			&d.MimeType, &d.DocumentType, &d.PageCount, &d.Indexed, &d.IndexedAt, &d.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate documents: %w", err)
	}
	return out, nil
}

// CountIndexedSupporting reports how many supporting documents in the project
// have finished indexing. Job creation requires at least one.
func (r *DocumentRepo) CountIndexedSupporting(ctx context.Context, projectID string) (int, error) {
	var n int
	err := r.db.Pool.QueryRow(ctx, `
SELECT COUNT(*) FROM documents
WHERE project_id=$1 AND document_type='supporting' AND indexed`, projectID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count indexed supporting documents: %w", err)
	}
	return n, nil
}

func (r *DocumentRepo) MarkIndexed(ctx context.Context, id string, pageCount int) error {
	tag, err := r.db.Pool.Exec(ctx, `
UPDATE documents SET indexed=TRUE, indexed_at=NOW(), page_count=$2 WHERE id=$1`, id, pageCount)
	if err != nil {
		return fmt.Errorf("mark document indexed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("document %s: %w", id, util.ErrNotFound)
	}
	return nil
}

func (r *DocumentRepo) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Pool.Exec(ctx, `DELETE FROM documents WHERE id=$1`, id)
	if err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("document %s: %w", id, util.ErrNotFound)
	}
	return nil
}
