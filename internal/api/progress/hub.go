package progress

import (
	"log/slog"
	"sync"
)

// Subscription receives progress event payloads for a single repository.
// Events is closed when the subscription is removed from the hub.
type Subscription struct {
	RepositoryID string
	Events       chan []byte
}

// Hub fans progress events out to in-process subscribers keyed by
// repository id. Subscribers that connect after an event was broadcast do
// not receive it.
type Hub struct {
	mu          sync.RWMutex
	subscribers map[string]map[*Subscription]struct{}
	logger      *slog.Logger
}

func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		subscribers: make(map[string]map[*Subscription]struct{}),
		logger:      logger,
	}
}

// Subscribe registers interest in one repository's progress events
func (h *Hub) Subscribe(repositoryID string) *Subscription {
	sub := &Subscription{
		RepositoryID: repositoryID,
		Events:       make(chan []byte, 16),
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.subscribers[repositoryID] == nil {
		h.subscribers[repositoryID] = make(map[*Subscription]struct{})
	}
	h.subscribers[repositoryID][sub] = struct{}{}

	h.logger.Debug("Progress subscriber added",
		slog.String("repository_id", repositoryID),
		slog.Int("subscriber_count", len(h.subscribers[repositoryID])),
	)

	return sub
}

// Unsubscribe removes a subscription and closes its event channel. Safe to
// call more than once.
func (h *Hub) Unsubscribe(sub *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()

	subs, ok := h.subscribers[sub.RepositoryID]
	if !ok {
		return
	}

	if _, ok := subs[sub]; !ok {
		return
	}

	delete(subs, sub)
	if len(subs) == 0 {
		delete(h.subscribers, sub.RepositoryID)
	}
	close(sub.Events)
}

// Broadcast delivers a raw event payload to every subscriber of the
// repository. Slow subscribers are skipped rather than blocking the
// broadcast - delivery is best-effort, at most once.
func (h *Hub) Broadcast(repositoryID string, payload []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for sub := range h.subscribers[repositoryID] {
		select {
		case sub.Events <- payload:
		default:
			h.logger.Warn("Dropping progress event for slow subscriber",
				slog.String("repository_id", repositoryID),
			)
		}
	}
}
