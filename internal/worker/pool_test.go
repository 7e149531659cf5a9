package worker

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/repolens/repolens/internal/worker/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestWorker_ShouldRequeueJob(t *testing.T) {
	w := &Worker{logger: testLogger()}

	tests := []struct {
		name string
		err  error
		want bool
	}{
		{
			name: "already claimed is never requeued",
			err:  fmt.Errorf("repository already claimed: %w", domain.ErrAlreadyClaimed),
			want: false,
		},
		{
			name: "invalid message is never requeued",
			err:  fmt.Errorf("%w: no row for repository abc", domain.ErrInvalidMessage),
			want: false,
		},
		{
			name: "retryable error is requeued",
			err:  domain.NewRetryableError(errors.New("connection reset")),
			want: true,
		},
		{
			name: "wrapped retryable error is requeued",
			err:  fmt.Errorf("claim step: %w", domain.NewRetryableError(errors.New("deadlock detected"))),
			want: true,
		},
		{
			name: "pipeline failure is terminal",
			err:  errors.New("pipeline failed for repository abc: fetch failed"),
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, w.shouldRequeueJob(tt.err))
		})
	}
}

func TestRetryableError_Unwrap(t *testing.T) {
	cause := errors.New("dial tcp: connection refused")
	err := domain.NewRetryableError(cause)

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "connection refused")

	var retryable *domain.RetryableError
	assert.ErrorAs(t, fmt.Errorf("outer: %w", err), &retryable)
}
