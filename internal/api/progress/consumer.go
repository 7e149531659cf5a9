package progress

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/repolens/repolens/shared/rabbitmq"
)

// Consumer bridges broker progress events into the in-process hub. Each API
// instance binds its own exclusive queue to the progress exchange, so every
// instance sees every event and can serve subscribers for any repository.
type Consumer struct {
	rabbitClient *rabbitmq.Client
	hub          *Hub
	logger       *slog.Logger
}

func NewConsumer(rabbitClient *rabbitmq.Client, hub *Hub, logger *slog.Logger) *Consumer {
	return &Consumer{
		rabbitClient: rabbitClient,
		hub:          hub,
		logger:       logger,
	}
}

// Run consumes progress events and broadcasts them until the context is
// canceled or the delivery channel closes
func (c *Consumer) Run(ctx context.Context, consumerTag string) error {
	deliveries, err := c.rabbitClient.ConsumeProgress(consumerTag)
	if err != nil {
		return fmt.Errorf("failed to consume progress events: %w", err)
	}

	c.logger.Info("Progress consumer started",
		slog.String("consumer_tag", consumerTag),
	)

	for {
		select {
		case <-ctx.Done():
			c.logger.Info("Progress consumer stopped - context canceled")
			return nil

		case delivery, ok := <-deliveries:
			if !ok {
				c.logger.Warn("Progress delivery channel closed")
				return fmt.Errorf("progress delivery channel closed")
			}

			var event struct {
				RepositoryID string `json:"repository_id"`
			}
			if err := json.Unmarshal(delivery.Body, &event); err != nil {
				c.logger.Error("Failed to parse progress event",
					slog.String("error", err.Error()),
				)
				continue
			}

			// Forward the payload untouched so the wire format is
			// identical for every subscriber
			c.hub.Broadcast(event.RepositoryID, delivery.Body)
		}
	}
}
