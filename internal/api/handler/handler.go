package handler

import (
	"context"
	"log/slog"

	"github.com/repolens/repolens/internal/api/model"
	"github.com/repolens/repolens/internal/api/progress"
	"github.com/repolens/repolens/internal/api/storage"
	"github.com/repolens/repolens/shared/postgresql"
	"github.com/repolens/repolens/shared/rabbitmq"
)

// LinkValidator checks that a submitted link is well formed and points at an
// existing repository or account
type LinkValidator interface {
	Validate(ctx context.Context, link string) (bool, error)
}

// RepositoryStore is the ledger surface the handlers need
type RepositoryStore interface {
	CreateRepository(ctx context.Context, repo *model.Repository) error
	GetRepositoryByID(ctx context.Context, repositoryID string) (*model.Repository, error)
	ListRepositories(ctx context.Context, filter storage.RepositoryFilter) ([]model.Repository, error)
	MarkFailed(ctx context.Context, repositoryID, cause string) error
}

// JobPublisher hands accepted jobs to the worker fleet
type JobPublisher interface {
	PublishJob(ctx context.Context, body []byte) error
}

// Dependencies holds all dependencies needed by handlers
type Dependencies struct {
	Logger       *slog.Logger
	DBClient     *postgresql.Client
	RabbitClient *rabbitmq.Client
	Validator    LinkValidator
	Hub          *progress.Hub
}

// RepositoryHandler handles repository-related HTTP requests
type RepositoryHandler struct {
	logger    *slog.Logger
	store     RepositoryStore
	publisher JobPublisher
	validator LinkValidator
	hub       *progress.Hub
}

// NewRepositoryHandler creates a new RepositoryHandler instance
func NewRepositoryHandler(deps *Dependencies) *RepositoryHandler {
	return &RepositoryHandler{
		logger:    deps.Logger,
		store:     storage.NewStorage(deps.DBClient),
		publisher: deps.RabbitClient,
		validator: deps.Validator,
		hub:       deps.Hub,
	}
}
