package rabbitmq

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestClient_PublishBackoff(t *testing.T) {
	tests := []struct {
		name     string
		config   Config
		expected []time.Duration
	}{
		{
			name:   "defaults double from 100ms",
			config: Config{},
			expected: []time.Duration{
				100 * time.Millisecond,
				200 * time.Millisecond,
				400 * time.Millisecond,
			},
		},
		{
			name: "configured base and multiplier",
			config: Config{
				PublishRetryDelay:  50 * time.Millisecond,
				PublishBackoffMult: 3,
			},
			expected: []time.Duration{
				50 * time.Millisecond,
				150 * time.Millisecond,
				450 * time.Millisecond,
			},
		},
		{
			name: "fractional multiplier",
			config: Config{
				PublishRetryDelay:  200 * time.Millisecond,
				PublishBackoffMult: 1.5,
			},
			expected: []time.Duration{
				200 * time.Millisecond,
				300 * time.Millisecond,
				450 * time.Millisecond,
			},
		},
		{
			name: "multiplier at or below one falls back to doubling",
			config: Config{
				PublishRetryDelay:  100 * time.Millisecond,
				PublishBackoffMult: 0.5,
			},
			expected: []time.Duration{
				100 * time.Millisecond,
				200 * time.Millisecond,
				400 * time.Millisecond,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &Client{config: &tt.config}
			for attempt, want := range tt.expected {
				assert.Equal(t, want, c.publishBackoff(attempt), "attempt %d", attempt)
			}
		})
	}
}
