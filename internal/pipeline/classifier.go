package pipeline

import (
	"log/slog"
	"os"
	"path/filepath"
)

// ProjectType is the category a fetched tree is classified into
type ProjectType string

const (
	ProjectTypeWeb     ProjectType = "web"
	ProjectTypeAPI     ProjectType = "api"
	ProjectTypeMobile  ProjectType = "mobile"
	ProjectTypeUnknown ProjectType = "unknown"
)

// typeMarkers maps marker files at the tree root to a project type, checked
// in order
var typeMarkers = []struct {
	marker      string
	projectType ProjectType
}{
	{"package.json", ProjectTypeWeb},
	{"pom.xml", ProjectTypeAPI},
	{"openapi.yaml", ProjectTypeAPI},
	{"openapi.yml", ProjectTypeAPI},
	{"AndroidManifest.xml", ProjectTypeMobile},
	{"Info.plist", ProjectTypeMobile},
}

// runRule derives a runnable shell command from a language convention
type runRule struct {
	language string
	marker   string
	command  string
}

// runRules is the explicit mapping from (language, entry-point marker) to a
// run command. Checked per detected language first, then as a generic
// fallback scan.
var runRules = []runRule{
	{"JavaScript", "package.json", "npm install --no-audit --no-fund && npm start"},
	{"TypeScript", "package.json", "npm install --no-audit --no-fund && npm start"},
	{"Python", "main.py", "python main.py"},
	{"Python", "app.py", "python app.py"},
	{"Go", "go.mod", "go run ."},
	{"Java", "pom.xml", "mvn -q -DskipTests package"},
	{"Ruby", "main.rb", "ruby main.rb"},
}

// Classifier inspects a fetched tree for marker files
type Classifier struct {
	logger *slog.Logger
}

// NewClassifier creates a new Classifier
func NewClassifier(logger *slog.Logger) *Classifier {
	return &Classifier{logger: logger}
}

// Classify decides the project category by the presence of marker files at
// the workspace root
func (c *Classifier) Classify(workspaceRoot string) ProjectType {
	for _, tm := range typeMarkers {
		if fileExists(filepath.Join(workspaceRoot, tm.marker)) {
			c.logger.Debug("Project classified",
				slog.String("marker", tm.marker),
				slog.String("type", string(tm.projectType)),
			)
			return tm.projectType
		}
	}

	return ProjectTypeUnknown
}

// RunCommand derives a runnable shell command from language conventions.
// Returns ok=false when no recognized entry point exists; that is a valid
// terminal outcome, not an error.
func (c *Classifier) RunCommand(workspaceRoot, language string) (string, bool) {
	for _, rule := range runRules {
		if rule.language != language {
			continue
		}
		if fileExists(filepath.Join(workspaceRoot, rule.marker)) {
			return rule.command, true
		}
	}

	// Language not recognized or its marker absent: fall back to any known
	// entry point in the tree
	for _, rule := range runRules {
		if fileExists(filepath.Join(workspaceRoot, rule.marker)) {
			return rule.command, true
		}
	}

	c.logger.Info("No runnable entry point found",
		slog.String("workspace", workspaceRoot),
		slog.String("language", language),
	)

	return "", false
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
