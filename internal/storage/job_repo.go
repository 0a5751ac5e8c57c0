package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"veriflow/internal/models"
	"veriflow/internal/util"
)

type JobRepo struct {
	db *DB
}

func NewJobRepo(db *DB) *JobRepo {
	return &JobRepo{db: db}
}

const jobCols = `
id::text, project_id::text, main_document_id::text, status, progress,
total_sentences, verified_sentences, validated_count, uncertain_count, incorrect_count,
COALESCE(workflow_id,''), started_at, completed_at, COALESCE(error_message,''), created_at, updated_at`

// Create inserts a job only when the project has no other active one. The
// guard and the insert are a single statement, so two concurrent creates
// cannot both succeed.
func (r *JobRepo) Create(ctx context.Context, j models.VerificationJob) error {
	tag, err := r.db.Pool.Exec(ctx, `
INSERT INTO verification_jobs (id, project_id, main_document_id, status)
SELECT $1, $2, $3, $4
WHERE NOT EXISTS (
    SELECT 1 FROM verification_jobs
    WHERE project_id = $2 AND status IN ('pending','indexing','processing')
)`,
		j.ID, j.ProjectID, j.MainDocumentID, j.Status,
	)
	if err != nil {
		return fmt.Errorf("insert verification job: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("project %s: %w", j.ProjectID, util.ErrActiveJobExists)
	}
	return nil
}

func (r *JobRepo) Get(ctx context.Context, id string) (models.VerificationJob, error) {
	var j models.VerificationJob
	err := r.db.Pool.QueryRow(ctx,
		`SELECT `+jobCols+` FROM verification_jobs WHERE id=$1`, id).
		Scan(&j.ID, &j.ProjectID, &j.MainDocumentID, &j.Status, &j.Progress,
			&j.TotalSentences, &j.VerifiedSentences, &j.ValidatedCount, &j.UncertainCount, &j.IncorrectCount,
			&j.WorkflowID, &j.StartedAt, &j.CompletedAt, &j.ErrorMessage, &j.CreatedAt, &j.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.VerificationJob{}, fmt.Errorf("job %s: %w", id, util.ErrNotFound)
	}
	if err != nil {
		return models.VerificationJob{}, fmt.Errorf("get job: %w", err)
	}
	return j, nil
}

func (r *JobRepo) ListByProject(ctx context.Context, projectID string) ([]models.VerificationJob, error) {
	rows, err := r.db.Pool.Query(ctx,
		`SELECT `+jobCols+` FROM verification_jobs WHERE project_id=$1 ORDER BY created_at DESC`, projectID)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	out := make([]models.VerificationJob, 0)
	for rows.Next() {
		var j models.VerificationJob
		if err := rows.Scan(&j.ID, &j.ProjectID, &j.MainDocumentID, &j.Status, &j.Progress,
			&j.TotalSentences, &j.VerifiedSentences, &j.ValidatedCount, &j.UncertainCount, &j.IncorrectCount,
			&j.WorkflowID, &j.StartedAt, &j.CompletedAt, &j.ErrorMessage, &j.CreatedAt, &j.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		out = append(out, j)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate jobs: %w", err)
	}
	return out, nil
}

// SetStatus transitions a job. Moving to processing stamps started_at once;
// reaching a terminal status stamps completed_at, and completion forces
// progress to 100.
func (r *JobRepo) SetStatus(ctx context.Context, id string, status models.VerificationStatus, errorMessage string) error {
	tag, err := r.db.Pool.Exec(ctx, `
UPDATE verification_jobs
SET status=$2,
    error_message=NULLIF($3,''),
    started_at=CASE WHEN $2='processing' AND started_at IS NULL THEN NOW() ELSE started_at END,
    completed_at=CASE WHEN $2 IN ('completed','failed') THEN NOW() ELSE completed_at END,
    progress=CASE WHEN $2='completed' THEN 100 ELSE progress END,
    updated_at=NOW()
WHERE id=$1`, id, status, errorMessage)
	if err != nil {
		return fmt.Errorf("update job status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("job %s: %w", id, util.ErrNotFound)
	}
	return nil
}

func (r *JobRepo) SetWorkflowID(ctx context.Context, id, workflowID string) error {
	_, err := r.db.Pool.Exec(ctx,
		`UPDATE verification_jobs SET workflow_id=$2, updated_at=NOW() WHERE id=$1`, id, workflowID)
	if err != nil {
		return fmt.Errorf("update job workflow id: %w", err)
	}
	return nil
}

func (r *JobRepo) SetTotals(ctx context.Context, id string, totalSentences int) error {
	_, err := r.db.Pool.Exec(ctx,
		`UPDATE verification_jobs SET total_sentences=$2, updated_at=NOW() WHERE id=$1`, id, totalSentences)
	if err != nil {
		return fmt.Errorf("update job totals: %w", err)
	}
	return nil
}

// IncrementVerified bumps the verified counter and the per-verdict counter in
// one statement and returns the fresh counts. Progress is derived from the
// claims actually persisted, so skipped claims do not advance it.
func (r *JobRepo) IncrementVerified(ctx context.Context, id string, result models.ValidationResult) (models.VerificationJob, error) {
	var j models.VerificationJob
	err := r.db.Pool.QueryRow(ctx, `
UPDATE verification_jobs
SET verified_sentences = verified_sentences + 1,
    validated_count = validated_count + CASE WHEN $2='validated' THEN 1 ELSE 0 END,
    uncertain_count = uncertain_count + CASE WHEN $2='uncertain' THEN 1 ELSE 0 END,
    incorrect_count = incorrect_count + CASE WHEN $2='incorrect' THEN 1 ELSE 0 END,
    progress = CASE WHEN total_sentences > 0
        THEN LEAST(100.0, (verified_sentences + 1) * 100.0 / total_sentences)
        ELSE progress END,
    updated_at = NOW()
WHERE id=$1
RETURNING `+jobCols, id, result).
		Scan(&j.ID, &j.ProjectID, &j.MainDocumentID, &j.Status, &j.Progress,
			&j.TotalSentences, &j.VerifiedSentences, &j.ValidatedCount, &j.UncertainCount, &j.IncorrectCount,
			&j.WorkflowID, &j.StartedAt, &j.CompletedAt, &j.ErrorMessage, &j.CreatedAt, &j.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.VerificationJob{}, fmt.Errorf("job %s: %w", id, util.ErrNotFound)
	}
	if err != nil {
		return models.VerificationJob{}, fmt.Errorf("increment verified count: %w", err)
	}
	return j, nil
}
