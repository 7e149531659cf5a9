package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"time"
)

// cloneFunc performs a single clone attempt; swapped out in tests
type cloneFunc func(ctx context.Context, link, destination string) error

// GitFetcher clones a repository's default branch into the workspace with
// bounded retry and exponential backoff
type GitFetcher struct {
	attempts int
	baseWait time.Duration
	clone    cloneFunc
	sleep    func(time.Duration)
	logger   *slog.Logger
}

// NewGitFetcher creates a fetcher shelling out to the git CLI
func NewGitFetcher(attempts int, baseWait time.Duration, logger *slog.Logger) *GitFetcher {
	if attempts <= 0 {
		attempts = 3
	}
	if baseWait <= 0 {
		baseWait = time.Second
	}

	return &GitFetcher{
		attempts: attempts,
		baseWait: baseWait,
		clone:    gitClone,
		sleep:    time.Sleep,
		logger:   logger,
	}
}

// Clone performs a full clone of the default branch into destination. The
// caller owns destination and must pass it in empty. Transient failures are
// retried up to the attempt budget with exponential backoff (1s, 2s, ...);
// exhausting the budget fails with ErrFetchFailed.
func (f *GitFetcher) Clone(ctx context.Context, link, destination string) error {
	var lastErr error

	for attempt := 1; attempt <= f.attempts; attempt++ {
		err := f.clone(ctx, link, destination)
		if err == nil {
			if attempt > 1 {
				f.logger.Info("Clone succeeded after retry",
					slog.String("link", link),
					slog.Int("attempt", attempt),
				)
			}
			return nil
		}

		lastErr = err

		if attempt < f.attempts {
			backoff := f.baseWait * time.Duration(1<<uint(attempt-1))
			f.logger.Warn("Clone attempt failed, retrying...",
				slog.String("link", link),
				slog.Int("attempt", attempt),
				slog.Int("max_attempts", f.attempts),
				slog.Duration("retry_after", backoff),
				slog.Any("error", err),
			)
			f.sleep(backoff)
		}
	}

	return fmt.Errorf("%w after %d attempts: %v", ErrFetchFailed, f.attempts, lastErr)
}

// gitClone runs one `git clone` of the default branch
func gitClone(ctx context.Context, link, destination string) error {
	cmd := exec.CommandContext(ctx, "git", "clone", "--single-branch", link, destination)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		detail := strings.TrimSpace(stderr.String())
		if detail != "" {
			return fmt.Errorf("git clone failed: %s: %w", detail, err)
		}
		return fmt.Errorf("git clone failed: %w", err)
	}

	return nil
}
