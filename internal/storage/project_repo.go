package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"veriflow/internal/models"
	"veriflow/internal/util"
)

type ProjectRepo struct {
	db *DB
}

func NewProjectRepo(db *DB) *ProjectRepo {
	return &ProjectRepo{db: db}
}

func (r *ProjectRepo) Create(ctx context.Context, p models.Project) error {
	_, err := r.db.Pool.Exec(ctx, `
INSERT INTO projects (id, name, description, background_context)
VALUES ($1, $2, NULLIF($3,''), NULLIF($4,''))`,
		p.ID, p.Name, p.Description, p.BackgroundContext,
	)
	if err != nil {
		return fmt.Errorf("insert project: %w", err)
	}
	return nil
}

func (r *ProjectRepo) Get(ctx context.Context, id string) (models.Project, error) {
	var p models.Project
	err := r.db.Pool.QueryRow(ctx, `
SELECT id::text, name, COALESCE(description,''), COALESCE(background_context,''), created_at, updated_at
FROM projects
WHERE id=$1`, id).Scan(&p.ID, &p.Name, &p.Description, &p.BackgroundContext, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Project{}, fmt.Errorf("project %s: %w", id, util.ErrNotFound)
	}
	if err != nil {
		return models.Project{}, fmt.Errorf("get project: %w", err)
	}
	return p, nil
}

func (r *ProjectRepo) List(ctx context.Context) ([]models.Project, error) {
	rows, err := r.db.Pool.Query(ctx, `
SELECT id::text, name, COALESCE(description,''), COALESCE(background_context,''), created_at, updated_at
FROM projects
ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	defer rows.Close()

	out := make([]models.Project, 0)
	for rows.Next() {
		var p models.Project
		if err := rows.Scan(&p.ID, &p.Name, &p.Description, &p.BackgroundContext, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan project: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate projects: %w", err)
	}
	return out, nil
}

func (r *ProjectRepo) Update(ctx context.Context, p models.Project) error {
	tag, err := r.db.Pool.Exec(ctx, `
UPDATE projects
SET name=$2, description=NULLIF($3,''), background_context=NULLIF($4,''), updated_at=NOW()
WHERE id=$1`, p.ID, p.Name, p.Description, p.BackgroundContext)
	if err != nil {
		return fmt.Errorf("update project: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("project %s: %w", p.ID, util.ErrNotFound)
	}
	return nil
}

// Delete removes a project; documents, jobs, sentences and citations go with
// it via ON DELETE CASCADE.
func (r *ProjectRepo) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Pool.Exec(ctx, `DELETE FROM projects WHERE id=$1`, id)
	if err != nil {
		return fmt.Errorf("delete project: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("project %s: %w", id, util.ErrNotFound)
	}
	return nil
}
