package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// ContainerSpec describes one sandboxed execution
type ContainerSpec struct {
	Image     string
	Command   string // run through /bin/sh -c inside the container
	Workspace string // bind-mounted read-write at /workspace
	Memory    string
	Network   bool
}

// ContainerRuntime is the container lifecycle the executor drives:
// CREATED → STARTED → (completed | timed out) → REMOVED
type ContainerRuntime interface {
	Create(ctx context.Context, spec ContainerSpec) (string, error)
	Start(ctx context.Context, containerID string) error
	Wait(ctx context.Context, containerID string) (int, error)
	Logs(ctx context.Context, containerID string) (string, error)
	Remove(ctx context.Context, containerID string) error
}

// ExecResult is the outcome of a sandboxed execution
type ExecResult struct {
	Image    string
	ExitCode int
	Output   string
}

// SandboxExecutor runs a classified command inside an ephemeral, time-boxed,
// resource-bound container
type SandboxExecutor struct {
	runtime      ContainerRuntime
	timeout      time.Duration
	memory       string
	network      bool
	images       map[string]string
	defaultImage string
	logger       *slog.Logger
}

// ExecutorConfig holds sandbox limits and the language-to-image table
type ExecutorConfig struct {
	Timeout      time.Duration
	Memory       string
	Network      bool
	Images       map[string]string
	DefaultImage string
}

// NewSandboxExecutor creates a new SandboxExecutor
func NewSandboxExecutor(runtime ContainerRuntime, cfg ExecutorConfig, logger *slog.Logger) *SandboxExecutor {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &SandboxExecutor{
		runtime:      runtime,
		timeout:      timeout,
		memory:       cfg.Memory,
		network:      cfg.Network,
		images:       cfg.Images,
		defaultImage: cfg.DefaultImage,
		logger:       logger,
	}
}

// Image maps a detected primary language to a container image, with a generic
// fallback for unrecognized languages
func (e *SandboxExecutor) Image(language string) string {
	if image, ok := e.images[language]; ok {
		return image
	}
	return e.defaultImage
}

// Run executes the command in a fresh container with the workspace mounted at
// /workspace. The container is force-removed regardless of outcome; removal
// failures are logged, not raised. A timeout is treated as failed and never
// retried.
func (e *SandboxExecutor) Run(ctx context.Context, workspaceRoot, language, command string) (*ExecResult, error) {
	spec := ContainerSpec{
		Image:     e.Image(language),
		Command:   command,
		Workspace: workspaceRoot,
		Memory:    e.memory,
		Network:   e.network,
	}

	containerID, err := e.runtime.Create(ctx, spec)
	if err != nil {
		return nil, fmt.Errorf("%w: create: %v", ErrExecutionFailed, err)
	}

	defer func() {
		// Removal must not inherit the (possibly expired) run context
		removeCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := e.runtime.Remove(removeCtx, containerID); err != nil {
			e.logger.Warn("Failed to remove container",
				slog.String("container_id", containerID),
				slog.Any("error", err),
			)
		}
	}()

	if err := e.runtime.Start(ctx, containerID); err != nil {
		return nil, fmt.Errorf("%w: start: %v", ErrExecutionFailed, err)
	}

	e.logger.Info("Sandbox execution started",
		slog.String("container_id", containerID),
		slog.String("image", spec.Image),
		slog.Duration("timeout", e.timeout),
	)

	waitCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	exitCode, err := e.runtime.Wait(waitCtx, containerID)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(waitCtx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w after %s", ErrExecutionTimedOut, e.timeout)
		}
		return nil, fmt.Errorf("%w: wait: %v", ErrExecutionFailed, err)
	}

	output, logErr := e.runtime.Logs(ctx, containerID)
	if logErr != nil {
		e.logger.Warn("Failed to collect container logs",
			slog.String("container_id", containerID),
			slog.Any("error", logErr),
		)
	}

	result := &ExecResult{
		Image:    spec.Image,
		ExitCode: exitCode,
		Output:   output,
	}

	if exitCode != 0 {
		return result, fmt.Errorf("%w: exit code %d", ErrExecutionFailed, exitCode)
	}

	return result, nil
}
