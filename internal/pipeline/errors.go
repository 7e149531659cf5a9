package pipeline

import "errors"

var (
	// ErrInvalidLink is returned when a link is empty or does not match the
	// repository or account path shape. No network call is made in that case.
	ErrInvalidLink = errors.New("invalid repository link format")

	// ErrProbeFailed is returned when the language breakdown cannot be
	// fetched after the retry budget is exhausted
	ErrProbeFailed = errors.New("language probe failed")

	// ErrWorkspace is returned when the per-job scratch directory cannot be
	// created or written
	ErrWorkspace = errors.New("workspace error")

	// ErrFetchFailed is returned when the clone fails on every attempt
	ErrFetchFailed = errors.New("repository fetch failed")

	// ErrExecutionFailed is returned when the sandboxed command cannot be
	// started or exits non-zero. Execution is never retried.
	ErrExecutionFailed = errors.New("sandbox execution failed")

	// ErrExecutionTimedOut is returned when the sandboxed command exceeds
	// the wall-clock timeout. Treated as failed, never retried.
	ErrExecutionTimedOut = errors.New("sandbox execution timed out")

	// ErrPublishFailed is returned when the result file is missing or the
	// upload transport fails. Terminal for the job.
	ErrPublishFailed = errors.New("artifact publish failed")
)
