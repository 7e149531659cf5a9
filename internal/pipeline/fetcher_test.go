package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGitFetcher_Clone(t *testing.T) {
	t.Run("succeeds on first attempt", func(t *testing.T) {
		fetcher := NewGitFetcher(3, time.Second, testLogger())

		calls := 0
		fetcher.clone = func(ctx context.Context, link, destination string) error {
			calls++
			return nil
		}
		fetcher.sleep = func(time.Duration) { t.Fatal("should not sleep on success") }

		err := fetcher.Clone(context.Background(), "https://github.com/octocat/hello-world", "/tmp/ws")

		require.NoError(t, err)
		assert.Equal(t, 1, calls)
	})

	t.Run("fails twice then succeeds on the third attempt", func(t *testing.T) {
		fetcher := NewGitFetcher(3, time.Second, testLogger())

		calls := 0
		fetcher.clone = func(ctx context.Context, link, destination string) error {
			calls++
			if calls <= 2 {
				return errors.New("remote hung up unexpectedly")
			}
			return nil
		}

		var waits []time.Duration
		fetcher.sleep = func(d time.Duration) { waits = append(waits, d) }

		err := fetcher.Clone(context.Background(), "https://github.com/octocat/hello-world", "/tmp/ws")

		require.NoError(t, err)
		assert.Equal(t, 3, calls)
		assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, waits)
	})

	t.Run("exhausts the attempt budget", func(t *testing.T) {
		fetcher := NewGitFetcher(3, time.Second, testLogger())

		calls := 0
		fetcher.clone = func(ctx context.Context, link, destination string) error {
			calls++
			return errors.New("could not resolve host")
		}
		fetcher.sleep = func(time.Duration) {}

		err := fetcher.Clone(context.Background(), "https://github.com/octocat/hello-world", "/tmp/ws")

		require.Error(t, err)
		assert.ErrorIs(t, err, ErrFetchFailed)
		assert.Contains(t, err.Error(), "after 3 attempts")
		assert.Equal(t, 3, calls)
	})
}
