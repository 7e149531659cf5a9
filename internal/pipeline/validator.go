package pipeline

import (
	"context"
	"log/slog"
)

// ExistenceProber checks that a repository or account actually exists on the
// remote host
type ExistenceProber interface {
	RepositoryExists(ctx context.Context, owner, repo string) (bool, error)
	UserExists(ctx context.Context, owner string) (bool, error)
}

// LinkValidator validates a submitted link: shape first, then an existence
// probe against the hosting API
type LinkValidator struct {
	github ExistenceProber
	logger *slog.Logger
}

// NewLinkValidator creates a new LinkValidator
func NewLinkValidator(github ExistenceProber, logger *slog.Logger) *LinkValidator {
	return &LinkValidator{
		github: github,
		logger: logger,
	}
}

// Validate returns true only when the link is well formed and the remote host
// has it. Malformed input fails fast with ErrInvalidLink before any network
// call; probe transport errors and non-2xx responses are treated as "not
// valid", not surfaced.
func (v *LinkValidator) Validate(ctx context.Context, link string) (bool, error) {
	parsed, err := ParseLink(link)
	if err != nil {
		return false, err
	}

	var exists bool
	if parsed.IsAccount {
		exists, err = v.github.UserExists(ctx, parsed.Owner)
	} else {
		exists, err = v.github.RepositoryExists(ctx, parsed.Owner, parsed.Name)
	}

	if err != nil {
		v.logger.Warn("Existence probe failed",
			slog.String("link", link),
			slog.Any("error", err),
		)
		return false, nil
	}

	if !exists {
		v.logger.Info("Link does not exist on remote host",
			slog.String("link", link),
		)
	}

	return exists, nil
}
