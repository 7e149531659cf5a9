package domain

import "errors"

var (
	// ErrRepositoryNotFound is returned when a repository row cannot be found
	ErrRepositoryNotFound = errors.New("repository not found")

	// ErrAlreadyClaimed is returned when attempting to claim a repository
	// that another worker already owns
	ErrAlreadyClaimed = errors.New("repository already claimed by another worker")

	// ErrInvalidMessage is returned when a queue message is malformed
	ErrInvalidMessage = errors.New("invalid job message")
)

// RetryableError wraps transient errors that should trigger a requeue
type RetryableError struct {
	Err error
}

func (e *RetryableError) Error() string {
	return "retryable error: " + e.Err.Error()
}

func (e *RetryableError) Unwrap() error {
	return e.Err
}

// NewRetryableError creates a new retryable error
func NewRetryableError(err error) error {
	return &RetryableError{Err: err}
}
