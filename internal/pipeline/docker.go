package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strconv"
	"strings"
)

// DockerRuntime drives containers through the docker CLI
type DockerRuntime struct {
	logger *slog.Logger
}

// NewDockerRuntime creates a new DockerRuntime
func NewDockerRuntime(logger *slog.Logger) *DockerRuntime {
	return &DockerRuntime{logger: logger}
}

// Create creates a container without starting it and returns its id
func (d *DockerRuntime) Create(ctx context.Context, spec ContainerSpec) (string, error) {
	args := []string{
		"create",
		"-v", spec.Workspace + ":/workspace",
		"-w", "/workspace",
	}

	if spec.Memory != "" {
		args = append(args, "--memory", spec.Memory)
	}
	if !spec.Network {
		args = append(args, "--network=none")
	}

	args = append(args, spec.Image, "/bin/sh", "-c", spec.Command)

	out, err := d.run(ctx, args...)
	if err != nil {
		return "", err
	}

	containerID := strings.TrimSpace(out)
	if containerID == "" {
		return "", fmt.Errorf("docker create returned no container id")
	}

	return containerID, nil
}

// Start starts a created container
func (d *DockerRuntime) Start(ctx context.Context, containerID string) error {
	_, err := d.run(ctx, "start", containerID)
	return err
}

// Wait blocks until the container exits and returns its exit code. The
// caller's context deadline bounds the wait.
func (d *DockerRuntime) Wait(ctx context.Context, containerID string) (int, error) {
	out, err := d.run(ctx, "wait", containerID)
	if err != nil {
		if ctx.Err() != nil {
			return 0, ctx.Err()
		}
		return 0, err
	}

	exitCode, convErr := strconv.Atoi(strings.TrimSpace(out))
	if convErr != nil {
		return 0, fmt.Errorf("unexpected docker wait output %q: %w", out, convErr)
	}

	return exitCode, nil
}

// Logs returns the container's combined output
func (d *DockerRuntime) Logs(ctx context.Context, containerID string) (string, error) {
	return d.run(ctx, "logs", containerID)
}

// Remove force-removes the container
func (d *DockerRuntime) Remove(ctx context.Context, containerID string) error {
	_, err := d.run(ctx, "rm", "-f", containerID)
	return err
}

func (d *DockerRuntime) run(ctx context.Context, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "docker", args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		detail := strings.TrimSpace(stderr.String())
		if detail != "" {
			return "", fmt.Errorf("docker %s: %s: %w", args[0], detail, err)
		}
		return "", fmt.Errorf("docker %s: %w", args[0], err)
	}

	return stdout.String(), nil
}
