package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/repolens/repolens/internal/api/domain"
	"github.com/repolens/repolens/internal/api/model"
	"github.com/repolens/repolens/shared/postgresql"
)

type Storage struct {
	db *sqlx.DB
}

func NewStorage(pg *postgresql.Client) *Storage {
	return &Storage{
		db: pg.GetDB(),
	}
}

func (s *Storage) CreateRepository(ctx context.Context, repo *model.Repository) error {
	query := `
		INSERT INTO repositories (
			repository_id, source_link, clone_status, run_status,
			created_at, updated_at
		) VALUES (
			$1, $2, $3, $4,
			$5, $6
		)
	`

	_, err := s.db.ExecContext(
		ctx,
		query,
		repo.RepositoryID,
		repo.SourceLink,
		repo.CloneStatus,
		repo.RunStatus,
		repo.CreatedAt,
		repo.UpdatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to create repository: %w", err)
	}

	return nil
}

func (s *Storage) GetRepositoryByID(ctx context.Context, repositoryID string) (*model.Repository, error) {
	var repo model.Repository
	query := `
		SELECT
			repository_id, source_link, clone_status, run_status,
			primary_language, result_url, error_message, worker_id,
			created_at, updated_at
		FROM repositories
		WHERE repository_id = $1
	`

	err := s.db.GetContext(ctx, &repo, query, repositoryID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrRepositoryNotFound
		}
		return nil, fmt.Errorf("failed to get repository: %w", err)
	}

	return &repo, nil
}

// MarkFailed forces both stage statuses to FAILED. Used when a row was
// created but the job could not be enqueued, so it is never reported as
// PENDING forever.
func (s *Storage) MarkFailed(ctx context.Context, repositoryID, cause string) error {
	query := `
		UPDATE repositories
		SET clone_status = $1,
		    run_status = $1,
		    error_message = $2,
		    updated_at = NOW()
		WHERE repository_id = $3
	`

	if _, err := s.db.ExecContext(ctx, query, domain.StatusFailed, cause, repositoryID); err != nil {
		return fmt.Errorf("failed to mark repository failed: %w", err)
	}

	return nil
}

type RepositoryFilter struct {
	CloneStatus string
	RunStatus   string
	PageSize    int
	Cursor      *RepositoryCursor
}

type RepositoryCursor struct {
	CreatedAt    time.Time
	RepositoryID string
}

func (s *Storage) ListRepositories(ctx context.Context, filter RepositoryFilter) ([]model.Repository, error) {
	query := `
        SELECT
            repository_id, source_link, clone_status, run_status,
            primary_language, result_url, error_message, worker_id,
            created_at, updated_at
        FROM repositories
        WHERE 1=1
    `
	args := []interface{}{}
	argIdx := 1

	// Filters
	if filter.CloneStatus != "" {
		query += fmt.Sprintf(" AND clone_status = $%d", argIdx)
		args = append(args, filter.CloneStatus)
		argIdx++
	}

	if filter.RunStatus != "" {
		query += fmt.Sprintf(" AND run_status = $%d", argIdx)
		args = append(args, filter.RunStatus)
		argIdx++
	}

	if filter.Cursor != nil {
		query += fmt.Sprintf(" AND (created_at, repository_id) < ($%d, $%d)", argIdx, argIdx+1)
		args = append(args, filter.Cursor.CreatedAt, filter.Cursor.RepositoryID)
		argIdx += 2
	}

	// Order by created_at DESC, repository_id DESC for consistent pagination
	query += " ORDER BY created_at DESC, repository_id DESC"

	// Fetch one extra to determine if there are more results
	query += fmt.Sprintf(" LIMIT $%d", argIdx)
	args = append(args, filter.PageSize+1)

	var repos []model.Repository
	err := s.db.SelectContext(ctx, &repos, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list repositories: %w", err)
	}

	return repos, nil
}
