package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"
)

// UnknownLanguage is reported when no language could be determined
const UnknownLanguage = "Unknown"

// LanguagesClient fetches the per-language byte counts for a repository
type LanguagesClient interface {
	Languages(ctx context.Context, owner, repo string) (map[string]int64, error)
}

// MetadataProber queries the hosting API for language byte counts, bounded by
// the shared retry budget
type MetadataProber struct {
	github   LanguagesClient
	attempts int
	baseWait time.Duration
	sleep    func(time.Duration)
	logger   *slog.Logger
}

// NewMetadataProber creates a new MetadataProber
func NewMetadataProber(github LanguagesClient, attempts int, baseWait time.Duration, logger *slog.Logger) *MetadataProber {
	if attempts <= 0 {
		attempts = 3
	}
	if baseWait <= 0 {
		baseWait = time.Second
	}

	return &MetadataProber{
		github:   github,
		attempts: attempts,
		baseWait: baseWait,
		sleep:    time.Sleep,
		logger:   logger,
	}
}

// Detect fetches the language byte counts for a repository link. Fails with
// ErrProbeFailed when the link cannot be decomposed into owner/name or the
// remote call errors on every attempt.
func (p *MetadataProber) Detect(ctx context.Context, link string) (map[string]int64, error) {
	parsed, err := ParseLink(link)
	if err != nil || parsed.IsAccount {
		return nil, fmt.Errorf("%w: link is not a repository: %s", ErrProbeFailed, link)
	}

	var lastErr error
	for attempt := 1; attempt <= p.attempts; attempt++ {
		languages, err := p.github.Languages(ctx, parsed.Owner, parsed.Name)
		if err == nil {
			return languages, nil
		}

		lastErr = err

		if attempt < p.attempts {
			backoff := p.baseWait * time.Duration(1<<uint(attempt-1))
			p.logger.Warn("Language probe attempt failed, retrying...",
				slog.Int("attempt", attempt),
				slog.Int("max_attempts", p.attempts),
				slog.Duration("retry_after", backoff),
				slog.Any("error", err),
			)
			p.sleep(backoff)
		}
	}

	return nil, fmt.Errorf("%w after %d attempts: %v", ErrProbeFailed, p.attempts, lastErr)
}

// PrimaryLanguage returns the language with the greatest byte count. Ties are
// broken by the first maximum over the sorted key order so the result is
// deterministic. An empty mapping yields UnknownLanguage.
func PrimaryLanguage(languages map[string]int64) string {
	if len(languages) == 0 {
		return UnknownLanguage
	}

	keys := make([]string, 0, len(languages))
	for language := range languages {
		keys = append(keys, language)
	}
	sort.Strings(keys)

	primary := keys[0]
	for _, language := range keys[1:] {
		if languages[language] > languages[primary] {
			primary = language
		}
	}

	return primary
}
