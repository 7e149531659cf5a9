package domain

import (
	"errors"
)

const (
	StatusPending = "PENDING"
	StatusSuccess = "SUCCESS"
	StatusFailed  = "FAILED"

	// RunStatusUnsupported marks projects with no recognized runnable entry
	// point. Distinct from FAILED: nothing went wrong, there was just
	// nothing to run.
	RunStatusUnsupported = "UNSUPPORTED"
)

var (
	ErrRepositoryNotFound = errors.New("repository not found")
)
