package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const (
	reportFileName   = "results.txt"
	maxOutputExcerpt = 4096
)

// WriteReport generates the result summary file inside the workspace and
// returns its path
func WriteReport(workspaceRoot, repositoryID, language string, projectType ProjectType, result *ExecResult) (string, error) {
	var b strings.Builder

	fmt.Fprintf(&b, "Repository ID: %s\n", repositoryID)
	fmt.Fprintf(&b, "Primary Language: %s\n", language)
	fmt.Fprintf(&b, "Project Type: %s\n", projectType)
	b.WriteString("Processing Log:\n")

	switch projectType {
	case ProjectTypeWeb:
		b.WriteString("Detected web project. Generated preview from sandbox run.\n")
	case ProjectTypeAPI:
		b.WriteString("Detected API project. Built and verified in sandbox.\n")
	case ProjectTypeMobile:
		b.WriteString("Detected mobile project. Generated preview from sandbox run.\n")
	default:
		b.WriteString("Unknown project type. Ran best-effort entry point.\n")
	}

	fmt.Fprintf(&b, "Sandbox Image: %s\n", result.Image)
	fmt.Fprintf(&b, "Exit Code: %d\n", result.ExitCode)

	if output := strings.TrimSpace(result.Output); output != "" {
		if len(output) > maxOutputExcerpt {
			output = output[:maxOutputExcerpt] + "\n... (truncated)"
		}
		b.WriteString("Output:\n")
		b.WriteString(output)
		b.WriteString("\n")
	}

	path := filepath.Join(workspaceRoot, reportFileName)
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return "", fmt.Errorf("%w: cannot write report: %v", ErrWorkspace, err)
	}

	return path, nil
}
