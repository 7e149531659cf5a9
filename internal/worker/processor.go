package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/repolens/repolens/internal/worker/domain"
)

// processJob claims the repository row and runs the processing pipeline
func (w *Worker) processJob(ctx context.Context, msg *domain.JobMessage) error {
	w.logger.Info("Processing repository",
		slog.String("repository_id", msg.RepositoryID),
		slog.String("worker_id", w.workerID),
	)

	// Claim the repository so exactly one worker instance processes it
	repo, err := w.storage.Claim(ctx, msg.RepositoryID, w.workerID)
	if err != nil {
		if errors.Is(err, domain.ErrAlreadyClaimed) {
			w.logger.Warn("Repository already claimed, skipping",
				slog.String("repository_id", msg.RepositoryID),
			)
			return fmt.Errorf("repository already claimed: %w", err)
		}

		if errors.Is(err, domain.ErrRepositoryNotFound) {
			w.logger.Error("Repository row not found for job message",
				slog.String("repository_id", msg.RepositoryID),
			)
			return fmt.Errorf("%w: no row for repository %s", domain.ErrInvalidMessage, msg.RepositoryID)
		}

		// Database errors are likely transient, requeue and let another
		// instance try again
		w.logger.Error("Failed to claim repository",
			slog.String("repository_id", msg.RepositoryID),
			slog.String("error", err.Error()),
		)
		return domain.NewRetryableError(fmt.Errorf("failed to claim repository: %w", err))
	}

	// The pipeline writes its own ledger entries as it goes, so any error
	// returned here has already been recorded as FAILED. Never requeue.
	if err := w.pipeline.Process(ctx, repo.RepositoryID, repo.SourceLink); err != nil {
		w.logger.Error("Pipeline failed",
			slog.String("repository_id", repo.RepositoryID),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("pipeline failed for repository %s: %w", repo.RepositoryID, err)
	}

	w.logger.Info("Repository processed",
		slog.String("repository_id", repo.RepositoryID),
	)

	return nil
}
