package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
)

// Uploader pushes a local file to durable object storage
type Uploader interface {
	UploadRaw(ctx context.Context, filePath, publicID string) (string, error)
}

// ArtifactPublisher uploads the result summary to object storage and returns
// a public reference. The object is keyed deterministically by repository id
// so repeated publish attempts overwrite rather than duplicate.
type ArtifactPublisher struct {
	uploader Uploader
	logger   *slog.Logger
}

// NewArtifactPublisher creates a new ArtifactPublisher
func NewArtifactPublisher(uploader Uploader, logger *slog.Logger) *ArtifactPublisher {
	return &ArtifactPublisher{
		uploader: uploader,
		logger:   logger,
	}
}

// Publish uploads filePath and returns its public URL. Fails with
// ErrPublishFailed when the file is missing or the upload transport errors;
// there is no automatic retry since the execution that produced the artifact
// is not cheaply repeatable.
func (p *ArtifactPublisher) Publish(ctx context.Context, filePath, repositoryID string) (string, error) {
	if _, err := os.Stat(filePath); err != nil {
		return "", fmt.Errorf("%w: result file missing: %v", ErrPublishFailed, err)
	}

	publicID := "repo_results/" + repositoryID

	url, err := p.uploader.UploadRaw(ctx, filePath, publicID)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrPublishFailed, err)
	}

	p.logger.Info("Result published",
		slog.String("repository_id", repositoryID),
		slog.String("url", url),
	)

	return url, nil
}
