package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"veriflow/internal/models"
	"veriflow/internal/util"
)

type SentenceRepo struct {
	db *DB
}

func NewSentenceRepo(db *DB) *SentenceRepo {
	return &SentenceRepo{db: db}
}

// Insert writes a verified sentence and its citations in one transaction.
func (r *SentenceRepo) Insert(ctx context.Context, s models.VerifiedSentence) error {
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin insert sentence: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
INSERT INTO verified_sentences
    (id, verification_job_id, sentence_index, content, page_number, start_char, end_char,
     validation_result, confidence_score, reasoning)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NULLIF($10,''))`,
		s.ID, s.VerificationJobID, s.SentenceIndex, s.Content, s.PageNumber, s.StartChar, s.EndChar,
		s.ValidationResult, s.ConfidenceScore, s.Reasoning,
	)
	if err != nil {
		return fmt.Errorf("insert sentence: %w", err)
	}

	for i, c := range s.Citations {
		_, err := tx.Exec(ctx, `
INSERT INTO citations
    (id, verified_sentence_id, source_document_id, cited_text, filename, page_number,
     start_char, end_char, similarity_score, relevance_rank, context_before, context_after)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NULLIF($11,''), NULLIF($12,''))`,
			c.ID, s.ID, c.SourceDocumentID, c.CitedText, c.Filename, c.PageNumber,
			c.StartChar, c.EndChar, c.SimilarityScore, i+1, c.ContextBefore, c.ContextAfter,
		)
		if err != nil {
			return fmt.Errorf("insert citation %d: %w", i, err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit insert sentence: %w", err)
	}
	return nil
}

func (r *SentenceRepo) ListByJob(ctx context.Context, jobID string) ([]models.VerifiedSentence, error) {
	rows, err := r.db.Pool.Query(ctx, `
SELECT id::text, verification_job_id::text, sentence_index, content, page_number, start_char, end_char,
       validation_result, confidence_score, COALESCE(reasoning,''), manually_reviewed,
       COALESCE(reviewer_notes,''), created_at, updated_at
FROM verified_sentences
WHERE verification_job_id=$1
ORDER BY sentence_index`, jobID)
	if err != nil {
		return nil, fmt.Errorf("list sentences: %w", err)
	}
	defer rows.Close()

	out := make([]models.VerifiedSentence, 0)
	ids := make([]string, 0)
	for rows.Next() {
		var s models.VerifiedSentence
		if err := rows.Scan(&s.ID, &s.VerificationJobID, &s.SentenceIndex, &s.Content, &s.PageNumber,
			&s.StartChar, &s.EndChar, &s.ValidationResult, &s.ConfidenceScore, &s.Reasoning,
			&s.ManuallyReviewed, &s.ReviewerNotes, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan sentence: %w", err)
		}
		out = append(out, s)
		ids = append(ids, s.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sentences: %w", err)
	}
	if len(out) == 0 {
		return out, nil
	}

	citations, err := r.citationsFor(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range out {
		out[i].Citations = citations[out[i].ID]
	}
	return out, nil
}

func (r *SentenceRepo) citationsFor(ctx context.Context, sentenceIDs []string) (map[string][]models.Citation, error) {
	rows, err := r.db.Pool.Query(ctx, `
SELECT id::text, verified_sentence_id::text, source_document_id::text, cited_text, COALESCE(filename,''),
       page_number, start_char, end_char, similarity_score, relevance_rank,
       COALESCE(context_before,''), COALESCE(context_after,''), created_at
FROM citations
WHERE verified_sentence_id = ANY($1)
ORDER BY verified_sentence_id, relevance_rank`, sentenceIDs)
	if err != nil {
		return nil, fmt.Errorf("list citations: %w", err)
	}
	defer rows.Close()

	out := make(map[string][]models.Citation)
	for rows.Next() {
		var c models.Citation
		if err := rows.Scan(&c.ID, &c.VerifiedSentenceID, &c.SourceDocumentID, &c.CitedText, &c.Filename,
			&c.PageNumber, &c.StartChar, &c.EndChar, &c.SimilarityScore, &c.RelevanceRank,
			&c.ContextBefore, &c.ContextAfter, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan citation: %w", err)
		}
		out[c.VerifiedSentenceID] = append(out[c.VerifiedSentenceID], c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate citations: %w", err)
	}
	return out, nil
}

// Review records a manual override of a sentence verdict.
func (r *SentenceRepo) Review(ctx context.Context, id string, result models.ValidationResult, notes string) error {
	tag, err := r.db.Pool.Exec(ctx, `
UPDATE verified_sentences
SET validation_result=$2, manually_reviewed=TRUE, reviewer_notes=NULLIF($3,''), updated_at=NOW()
WHERE id=$1`, id, result, notes)
	if err != nil {
		return fmt.Errorf("review sentence: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("sentence %s: %w", id, util.ErrNotFound)
	}
	return nil
}

func (r *SentenceRepo) Get(ctx context.Context, id string) (models.VerifiedSentence, error) {
	var s models.VerifiedSentence
	err := r.db.Pool.QueryRow(ctx, `
SELECT id::text, verification_job_id::text, sentence_index, content, page_number, start_char, end_char,
       validation_result, confidence_score, COALESCE(reasoning,''), manually_reviewed,
       COALESCE(reviewer_notes,''), created_at, updated_at
FROM verified_sentences
WHERE id=$1`, id).
		Scan(&s.ID, &s.VerificationJobID, &s.SentenceIndex, &s.Content, &s.PageNumber,
			&s.StartChar, &s.EndChar, &s.ValidationResult, &s.ConfidenceScore, &s.Reasoning,
			&s.ManuallyReviewed, &s.ReviewerNotes, &s.CreatedAt, &s.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.VerifiedSentence{}, fmt.Errorf("sentence %s: %w", id, util.ErrNotFound)
	}
	if err != nil {
		return models.VerifiedSentence{}, fmt.Errorf("get sentence: %w", err)
	}
	return s, nil
}
