// Package vector stores and queries chunk embeddings. Namespaces isolate
// projects from each other; every point belongs to exactly one namespace.
package vector

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Point is one embedded chunk with the payload returned on query hits.
type Point struct {
	ID           string
	DocumentID   string
	Content      string
	Filename     string
	DocumentType string
	PageNumber   *int
	StartChar    int
	EndChar      int
	Embedding    []float32
}

// Hit is a query result; Similarity is cosine similarity in [0, 1].
type Hit struct {
	ID           string
	DocumentID   string
	Content      string
	Filename     string
	DocumentType string
	PageNumber   *int
	StartChar    int
	EndChar      int
	Similarity   float64
}

// Index is the evidence store contract. Implementations must scope every
// operation to the given namespace.
type Index interface {
	CreateNamespace(ctx context.Context, namespace string) error
	Upsert(ctx context.Context, namespace string, points []Point) error
	Query(ctx context.Context, namespace string, vec []float32, topK int) ([]Hit, error)
	DeleteByDocument(ctx context.Context, namespace, documentID string) error
	DeleteNamespace(ctx context.Context, namespace string) error
}

type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// PGIndex keeps vectors in a pgvector table keyed by (namespace, point id).
type PGIndex struct {
	q Querier
}

func NewPGIndex(q Querier) *PGIndex { return &PGIndex{q: q} }

// CreateNamespace is a no-op: rows carry their namespace, nothing to prepare.
func (x *PGIndex) CreateNamespace(ctx context.Context, namespace string) error {
	_ = ctx
	_ = namespace
	return nil
}

func (x *PGIndex) Upsert(ctx context.Context, namespace string, points []Point) error {
	for _, p := range points {
		_, err := x.q.Exec(ctx, `
INSERT INTO chunk_vectors
    (id, namespace, document_id, content, filename, document_type, page_number, start_char, end_char, embedding)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10::vector)
ON CONFLICT (id) DO UPDATE SET
    namespace = EXCLUDED.namespace,
    document_id = EXCLUDED.document_id,
    content = EXCLUDED.content,
    filename = EXCLUDED.filename,
    document_type = EXCLUDED.document_type,
    page_number = EXCLUDED.page_number,
    start_char = EXCLUDED.start_char,
    end_char = EXCLUDED.end_char,
    embedding = EXCLUDED.embedding`,
			p.ID, namespace, p.DocumentID, p.Content, p.Filename, p.DocumentType,
			p.PageNumber, p.StartChar, p.EndChar, ToLiteral(p.Embedding))
		if err != nil {
			return fmt.Errorf("upsert vector %s: %w", p.ID, err)
		}
	}
	return nil
}

func (x *PGIndex) Query(ctx context.Context, namespace string, vec []float32, topK int) ([]Hit, error) {
	if topK <= 0 {
		topK = 5
	}
	rows, err := x.q.Query(ctx, `
SELECT id, document_id, content, filename, document_type, page_number, start_char, end_char,
       1 - (embedding <=> $2::vector) AS similarity
FROM chunk_vectors
WHERE namespace = $1
ORDER BY embedding <=> $2::vector
LIMIT $3`, namespace, ToLiteral(vec), topK)
	if err != nil {
		return nil, fmt.Errorf("query vectors: %w", err)
	}
	defer rows.Close()

	hits := make([]Hit, 0, topK)
	for rows.Next() {
		var h Hit
		if err := rows.Scan(&h.ID, &h.DocumentID, &h.Content, &h.Filename, &h.DocumentType,
			&h.PageNumber, &h.StartChar, &h.EndChar, &h.Similarity); err != nil {
			return nil, fmt.Errorf("scan vector hit: %w", err)
		}
		hits = append(hits, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate vector hits: %w", err)
	}
	return hits, nil
}

func (x *PGIndex) DeleteByDocument(ctx context.Context, namespace, documentID string) error {
	if _, err := x.q.Exec(ctx,
		`DELETE FROM chunk_vectors WHERE namespace = $1 AND document_id = $2`,
		namespace, documentID); err != nil {
		return fmt.Errorf("delete document vectors: %w", err)
	}
	return nil
}

func (x *PGIndex) DeleteNamespace(ctx context.Context, namespace string) error {
	if _, err := x.q.Exec(ctx,
		`DELETE FROM chunk_vectors WHERE namespace = $1`, namespace); err != nil {
		return fmt.Errorf("delete namespace vectors: %w", err)
	}
	return nil
}

// ToLiteral renders a float32 slice as a pgvector input literal.
func ToLiteral(v []float32) string {
	parts := make([]string, 0, len(v))
	for _, x := range v {
		parts = append(parts, fmt.Sprintf("%f", x))
	}
	return "[" + strings.Join(parts, ",") + "]"
}
