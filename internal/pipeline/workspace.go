package pipeline

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// Workspaces manages per-job scratch directories under a single base path.
// One workspace per repository id; two jobs never share a path.
type Workspaces struct {
	basePath string
	logger   *slog.Logger
}

// NewWorkspaces creates the workspace manager and ensures the base directory
// exists
func NewWorkspaces(basePath string, logger *slog.Logger) (*Workspaces, error) {
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("%w: cannot create base directory %s: %v", ErrWorkspace, basePath, err)
	}

	return &Workspaces{
		basePath: basePath,
		logger:   logger,
	}, nil
}

// Create makes the scratch directory for one repository id. Fails with
// ErrWorkspace when the directory already exists or cannot be created.
func (w *Workspaces) Create(repositoryID string) (string, error) {
	path := filepath.Join(w.basePath, repositoryID)

	if err := os.Mkdir(path, 0o755); err != nil {
		return "", fmt.Errorf("%w: cannot create %s: %v", ErrWorkspace, path, err)
	}

	w.logger.Debug("Workspace created",
		slog.String("repository_id", repositoryID),
		slog.String("path", path),
	)

	return path, nil
}

// Destroy removes a workspace. Idempotent and best-effort: partial failures
// are logged, never raised, so a failed cleanup cannot abort the pipeline.
func (w *Workspaces) Destroy(path string) {
	if path == "" {
		return
	}

	// Refuse to delete anything outside the base path
	if !strings.HasPrefix(filepath.Clean(path), filepath.Clean(w.basePath)+string(os.PathSeparator)) {
		w.logger.Warn("Refusing to destroy path outside workspace base",
			slog.String("path", path),
		)
		return
	}

	if err := os.RemoveAll(path); err != nil {
		w.logger.Warn("Failed to clean up workspace",
			slog.String("path", path),
			slog.Any("error", err),
		)
		return
	}

	w.logger.Debug("Workspace destroyed",
		slog.String("path", path),
	)
}
