package pipeline

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	repoPattern    = regexp.MustCompile(`^https?://(www\.)?github\.com/([a-zA-Z0-9-]+)/([a-zA-Z0-9._-]+)$`)
	accountPattern = regexp.MustCompile(`^https?://(www\.)?github\.com/([a-zA-Z0-9-]+)$`)
)

// Link is a decomposed GitHub link: either a repository (owner/name) or an
// account (owner only)
type Link struct {
	Owner     string
	Name      string
	IsAccount bool
}

// ParseLink validates the shape of a submitted link and decomposes it.
// Returns ErrInvalidLink for empty or malformed input without touching the
// network.
func ParseLink(raw string) (Link, error) {
	normalized := strings.TrimRight(strings.TrimSpace(raw), "/")
	if normalized == "" {
		return Link{}, fmt.Errorf("%w: link is empty", ErrInvalidLink)
	}

	if m := repoPattern.FindStringSubmatch(normalized); m != nil {
		return Link{
			Owner: m[2],
			Name:  strings.TrimSuffix(m[3], ".git"),
		}, nil
	}

	if m := accountPattern.FindStringSubmatch(normalized); m != nil {
		return Link{
			Owner:     m[2],
			IsAccount: true,
		}, nil
	}

	return Link{}, fmt.Errorf("%w: %s", ErrInvalidLink, raw)
}
