package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/repolens/repolens/shared/rabbitmq"
)

// progressEvent is the wire format published on the progress exchange
type progressEvent struct {
	RepositoryID string `json:"repository_id"`
	Message      string `json:"message"`
	Status       string `json:"status"`
	Timestamp    string `json:"timestamp"`
}

// ProgressNotifier publishes progress events over the progress exchange.
// Fire-and-forget: callers log and swallow failures.
type ProgressNotifier struct {
	rabbitClient *rabbitmq.Client
	logger       *slog.Logger
}

// NewProgressNotifier creates a new ProgressNotifier
func NewProgressNotifier(rabbitClient *rabbitmq.Client, logger *slog.Logger) *ProgressNotifier {
	return &ProgressNotifier{
		rabbitClient: rabbitClient,
		logger:       logger,
	}
}

// Notify publishes one progress event for a repository
func (n *ProgressNotifier) Notify(ctx context.Context, repositoryID, message, level string) error {
	event := progressEvent{
		RepositoryID: repositoryID,
		Message:      message,
		Status:       level,
		Timestamp:    time.Now().UTC().Format(time.RFC3339Nano),
	}

	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal progress event: %w", err)
	}

	if err := n.rabbitClient.PublishProgress(ctx, repositoryID, body); err != nil {
		return err
	}

	n.logger.Debug("Progress event sent",
		slog.String("repository_id", repositoryID),
		slog.String("status", level),
		slog.String("message", message),
	)

	return nil
}
