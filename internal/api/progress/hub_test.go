package progress

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

const repoA = "11111111-2222-3333-4444-555555555555"
const repoB = "99999999-8888-7777-6666-555555555555"

func TestHub_BroadcastReachesOnlyMatchingSubscribers(t *testing.T) {
	hub := NewHub(testLogger())

	subA := hub.Subscribe(repoA)
	subB := hub.Subscribe(repoB)
	defer hub.Unsubscribe(subA)
	defer hub.Unsubscribe(subB)

	hub.Broadcast(repoA, []byte(`{"message":"Cloning repository..."}`))

	select {
	case payload := <-subA.Events:
		assert.Contains(t, string(payload), "Cloning")
	default:
		t.Fatal("subscriber for repoA received nothing")
	}

	select {
	case payload := <-subB.Events:
		t.Fatalf("subscriber for repoB received unexpected event: %s", payload)
	default:
	}
}

func TestHub_MultipleSubscribersSameRepository(t *testing.T) {
	hub := NewHub(testLogger())

	first := hub.Subscribe(repoA)
	second := hub.Subscribe(repoA)
	defer hub.Unsubscribe(first)
	defer hub.Unsubscribe(second)

	hub.Broadcast(repoA, []byte("event"))

	assert.Equal(t, "event", string(<-first.Events))
	assert.Equal(t, "event", string(<-second.Events))
}

func TestHub_LateSubscriberMissesEarlierEvents(t *testing.T) {
	hub := NewHub(testLogger())

	hub.Broadcast(repoA, []byte("early event"))

	sub := hub.Subscribe(repoA)
	defer hub.Unsubscribe(sub)

	select {
	case payload := <-sub.Events:
		t.Fatalf("late subscriber should not see earlier events, got: %s", payload)
	default:
	}
}

func TestHub_UnsubscribeClosesChannelAndIsIdempotent(t *testing.T) {
	hub := NewHub(testLogger())

	sub := hub.Subscribe(repoA)
	hub.Unsubscribe(sub)

	_, open := <-sub.Events
	assert.False(t, open)

	// Second unsubscribe must not panic on the closed channel
	hub.Unsubscribe(sub)

	// Broadcasting to a repository with no subscribers is a no-op
	hub.Broadcast(repoA, []byte("nobody listening"))
}

func TestHub_SlowSubscriberDoesNotBlockBroadcast(t *testing.T) {
	hub := NewHub(testLogger())

	sub := hub.Subscribe(repoA)
	defer hub.Unsubscribe(sub)

	// Fill the buffer and then some; the extra events are dropped rather
	// than blocking
	for i := 0; i < cap(sub.Events)+10; i++ {
		hub.Broadcast(repoA, []byte("event"))
	}

	require.Equal(t, cap(sub.Events), len(sub.Events))
}
