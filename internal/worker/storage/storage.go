package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/jmoiron/sqlx"

	"github.com/repolens/repolens/internal/worker/domain"
)

// Storage is the worker-side view of the job ledger
type Storage struct {
	db     *sqlx.DB
	logger *slog.Logger
}

// NewStorage creates a new Storage instance
func NewStorage(db *sqlx.DB, logger *slog.Logger) *Storage {
	return &Storage{
		db:     db,
		logger: logger,
	}
}

// GetByID retrieves one repository row
func (s *Storage) GetByID(ctx context.Context, repositoryID string) (*domain.Repository, error) {
	query := `
		SELECT repository_id, source_link, clone_status, run_status,
		       primary_language, result_url, error_message, worker_id,
		       created_at, updated_at
		FROM repositories
		WHERE repository_id = $1
	`

	repo, err := scanRepository(s.db.QueryRowContext(ctx, query, repositoryID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrRepositoryNotFound
		}
		return nil, fmt.Errorf("failed to get repository: %w", err)
	}

	return repo, nil
}

// Claim marks a repository as owned by this worker using optimistic locking.
// The queue already guarantees single delivery; the claim is a second line of
// defence against duplicate processing after redelivery.
func (s *Storage) Claim(ctx context.Context, repositoryID, workerID string) (*domain.Repository, error) {
	query := `
		UPDATE repositories
		SET worker_id = $1,
		    updated_at = NOW()
		WHERE repository_id = $2
		  AND worker_id IS NULL
		RETURNING repository_id, source_link, clone_status, run_status,
		          primary_language, result_url, error_message, worker_id,
		          created_at, updated_at
	`

	repo, err := scanRepository(s.db.QueryRowContext(ctx, query, workerID, repositoryID))
	if err != nil {
		if err == sql.ErrNoRows {
			// Distinguish a missing row from one another worker owns
			if _, getErr := s.GetByID(ctx, repositoryID); getErr != nil {
				return nil, getErr
			}

			s.logger.Warn("Failed to claim repository - already claimed",
				slog.String("repository_id", repositoryID),
				slog.String("worker_id", workerID),
			)
			return nil, domain.ErrAlreadyClaimed
		}
		return nil, fmt.Errorf("failed to claim repository: %w", err)
	}

	s.logger.Info("Repository claimed",
		slog.String("repository_id", repositoryID),
		slog.String("worker_id", workerID),
	)

	return repo, nil
}

// MarkCloneSucceeded records a successful clone stage
func (s *Storage) MarkCloneSucceeded(ctx context.Context, repositoryID string) error {
	query := `
		UPDATE repositories
		SET clone_status = $1,
		    updated_at = NOW()
		WHERE repository_id = $2
	`

	return s.exec(ctx, repositoryID, query, domain.StatusSuccess, repositoryID)
}

// SetPrimaryLanguage records the detected primary language
func (s *Storage) SetPrimaryLanguage(ctx context.Context, repositoryID, language string) error {
	query := `
		UPDATE repositories
		SET primary_language = $1,
		    updated_at = NOW()
		WHERE repository_id = $2
	`

	return s.exec(ctx, repositoryID, query, language, repositoryID)
}

// MarkRunUnsupported records that no runnable entry point was found. A valid
// terminal outcome distinct from FAILED; the result URL stays null.
func (s *Storage) MarkRunUnsupported(ctx context.Context, repositoryID string) error {
	query := `
		UPDATE repositories
		SET run_status = $1,
		    updated_at = NOW()
		WHERE repository_id = $2
	`

	return s.exec(ctx, repositoryID, query, domain.StatusUnsupported, repositoryID)
}

// MarkSucceeded records the successful terminal state with the published
// result URL
func (s *Storage) MarkSucceeded(ctx context.Context, repositoryID, resultURL string) error {
	query := `
		UPDATE repositories
		SET run_status = $1,
		    result_url = $2,
		    error_message = '',
		    updated_at = NOW()
		WHERE repository_id = $3
	`

	return s.exec(ctx, repositoryID, query, domain.StatusSuccess, resultURL, repositoryID)
}

// MarkFailed forces both stage statuses to FAILED, reflecting the
// all-or-nothing externally visible result
func (s *Storage) MarkFailed(ctx context.Context, repositoryID, cause string) error {
	query := `
		UPDATE repositories
		SET clone_status = $1,
		    run_status = $1,
		    error_message = $2,
		    updated_at = NOW()
		WHERE repository_id = $3
	`

	return s.exec(ctx, repositoryID, query, domain.StatusFailed, cause, repositoryID)
}

func (s *Storage) exec(ctx context.Context, repositoryID, query string, args ...interface{}) error {
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to update repository %s: %w", repositoryID, err)
	}

	s.logger.Debug("Repository ledger updated",
		slog.String("repository_id", repositoryID),
	)

	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRepository(row rowScanner) (*domain.Repository, error) {
	var repo domain.Repository
	var primaryLanguage, resultURL, errorMessage, workerID sql.NullString

	err := row.Scan(
		&repo.RepositoryID,
		&repo.SourceLink,
		&repo.CloneStatus,
		&repo.RunStatus,
		&primaryLanguage,
		&resultURL,
		&errorMessage,
		&workerID,
		&repo.CreatedAt,
		&repo.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	repo.PrimaryLanguage = primaryLanguage.String
	repo.ResultURL = resultURL.String
	repo.ErrorMessage = errorMessage.String
	repo.WorkerID = workerID.String

	return &repo, nil
}
