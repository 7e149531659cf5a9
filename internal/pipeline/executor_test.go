package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRuntime struct {
	createErr error
	startErr  error
	waitErr   error
	exitCode  int
	output    string
	waitBlock bool

	created []ContainerSpec
	started []string
	removed []string
}

func (f *fakeRuntime) Create(ctx context.Context, spec ContainerSpec) (string, error) {
	if f.createErr != nil {
		return "", f.createErr
	}
	f.created = append(f.created, spec)
	return "container-1", nil
}

func (f *fakeRuntime) Start(ctx context.Context, containerID string) error {
	if f.startErr != nil {
		return f.startErr
	}
	f.started = append(f.started, containerID)
	return nil
}

func (f *fakeRuntime) Wait(ctx context.Context, containerID string) (int, error) {
	if f.waitBlock {
		<-ctx.Done()
		return 0, ctx.Err()
	}
	if f.waitErr != nil {
		return 0, f.waitErr
	}
	return f.exitCode, nil
}

func (f *fakeRuntime) Logs(ctx context.Context, containerID string) (string, error) {
	return f.output, nil
}

func (f *fakeRuntime) Remove(ctx context.Context, containerID string) error {
	f.removed = append(f.removed, containerID)
	return nil
}

func newTestExecutor(runtime ContainerRuntime, timeout time.Duration) *SandboxExecutor {
	return NewSandboxExecutor(runtime, ExecutorConfig{
		Timeout: timeout,
		Memory:  "256m",
		Images: map[string]string{
			"Go":     "golang:1.23-alpine",
			"Python": "python:3.12-slim",
		},
		DefaultImage: "ubuntu:24.04",
	}, testLogger())
}

func TestSandboxExecutor_Image(t *testing.T) {
	executor := newTestExecutor(&fakeRuntime{}, time.Second)

	assert.Equal(t, "golang:1.23-alpine", executor.Image("Go"))
	assert.Equal(t, "python:3.12-slim", executor.Image("Python"))
	assert.Equal(t, "ubuntu:24.04", executor.Image("Fortran"))
	assert.Equal(t, "ubuntu:24.04", executor.Image(UnknownLanguage))
}

func TestSandboxExecutor_Run(t *testing.T) {
	t.Run("successful execution", func(t *testing.T) {
		runtime := &fakeRuntime{exitCode: 0, output: "server listening on :3000"}
		executor := newTestExecutor(runtime, time.Second)

		result, err := executor.Run(context.Background(), "/tmp/ws", "Go", "go run .")

		require.NoError(t, err)
		assert.Equal(t, "golang:1.23-alpine", result.Image)
		assert.Equal(t, 0, result.ExitCode)
		assert.Equal(t, "server listening on :3000", result.Output)

		require.Len(t, runtime.created, 1)
		assert.Equal(t, "/tmp/ws", runtime.created[0].Workspace)
		assert.Equal(t, "go run .", runtime.created[0].Command)
		assert.Equal(t, "256m", runtime.created[0].Memory)

		// Container removed even on success
		assert.Equal(t, []string{"container-1"}, runtime.removed)
	})

	t.Run("nonzero exit code fails with the result attached", func(t *testing.T) {
		runtime := &fakeRuntime{exitCode: 2, output: "panic: boom"}
		executor := newTestExecutor(runtime, time.Second)

		result, err := executor.Run(context.Background(), "/tmp/ws", "Go", "go run .")

		require.Error(t, err)
		assert.ErrorIs(t, err, ErrExecutionFailed)
		require.NotNil(t, result)
		assert.Equal(t, 2, result.ExitCode)
		assert.Equal(t, []string{"container-1"}, runtime.removed)
	})

	t.Run("timeout is terminal and the container is still removed", func(t *testing.T) {
		runtime := &fakeRuntime{waitBlock: true}
		executor := newTestExecutor(runtime, 20*time.Millisecond)

		result, err := executor.Run(context.Background(), "/tmp/ws", "Go", "go run .")

		require.Error(t, err)
		assert.ErrorIs(t, err, ErrExecutionTimedOut)
		assert.Nil(t, result)
		assert.Equal(t, []string{"container-1"}, runtime.removed)
	})

	t.Run("create failure", func(t *testing.T) {
		runtime := &fakeRuntime{createErr: errors.New("no such image")}
		executor := newTestExecutor(runtime, time.Second)

		_, err := executor.Run(context.Background(), "/tmp/ws", "Go", "go run .")

		require.Error(t, err)
		assert.ErrorIs(t, err, ErrExecutionFailed)
		assert.Empty(t, runtime.removed)
	})

	t.Run("start failure still removes the container", func(t *testing.T) {
		runtime := &fakeRuntime{startErr: errors.New("cannot start")}
		executor := newTestExecutor(runtime, time.Second)

		_, err := executor.Run(context.Background(), "/tmp/ws", "Go", "go run .")

		require.Error(t, err)
		assert.ErrorIs(t, err, ErrExecutionFailed)
		assert.Equal(t, []string{"container-1"}, runtime.removed)
	})
}
