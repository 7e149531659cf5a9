package pipeline

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func touchFiles(t *testing.T, root string, names ...string) {
	t.Helper()
	for _, name := range names {
		require.NoError(t, os.WriteFile(filepath.Join(root, name), []byte("x"), 0o644))
	}
}

func TestClassifier_Classify(t *testing.T) {
	tests := []struct {
		name    string
		markers []string
		want    ProjectType
	}{
		{
			name:    "package.json is a web project",
			markers: []string{"package.json", "index.js"},
			want:    ProjectTypeWeb,
		},
		{
			name:    "pom.xml is an api project",
			markers: []string{"pom.xml"},
			want:    ProjectTypeAPI,
		},
		{
			name:    "openapi.yaml is an api project",
			markers: []string{"openapi.yaml"},
			want:    ProjectTypeAPI,
		},
		{
			name:    "AndroidManifest.xml is a mobile project",
			markers: []string{"AndroidManifest.xml"},
			want:    ProjectTypeMobile,
		},
		{
			name:    "Info.plist is a mobile project",
			markers: []string{"Info.plist"},
			want:    ProjectTypeMobile,
		},
		{
			name:    "markers are checked in order",
			markers: []string{"package.json", "pom.xml"},
			want:    ProjectTypeWeb,
		},
		{
			name:    "no markers",
			markers: []string{"README.md"},
			want:    ProjectTypeUnknown,
		},
		{
			name: "empty tree",
			want: ProjectTypeUnknown,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := t.TempDir()
			touchFiles(t, root, tt.markers...)

			classifier := NewClassifier(testLogger())

			assert.Equal(t, tt.want, classifier.Classify(root))
		})
	}
}

func TestClassifier_RunCommand(t *testing.T) {
	tests := []struct {
		name        string
		markers     []string
		language    string
		wantCommand string
		wantOK      bool
	}{
		{
			name:        "javascript with package.json",
			markers:     []string{"package.json"},
			language:    "JavaScript",
			wantCommand: "npm install --no-audit --no-fund && npm start",
			wantOK:      true,
		},
		{
			name:        "typescript shares the npm rule",
			markers:     []string{"package.json"},
			language:    "TypeScript",
			wantCommand: "npm install --no-audit --no-fund && npm start",
			wantOK:      true,
		},
		{
			name:        "python main.py",
			markers:     []string{"main.py"},
			language:    "Python",
			wantCommand: "python main.py",
			wantOK:      true,
		},
		{
			name:        "python app.py",
			markers:     []string{"app.py"},
			language:    "Python",
			wantCommand: "python app.py",
			wantOK:      true,
		},
		{
			name:        "go module",
			markers:     []string{"go.mod"},
			language:    "Go",
			wantCommand: "go run .",
			wantOK:      true,
		},
		{
			name:        "unrecognized language falls back to marker scan",
			markers:     []string{"go.mod"},
			language:    "Assembly",
			wantCommand: "go run .",
			wantOK:      true,
		},
		{
			name:     "unknown language and no markers",
			markers:  []string{"README.md"},
			language: UnknownLanguage,
			wantOK:   false,
		},
		{
			name:     "known language but marker missing and no fallback",
			markers:  []string{"README.md"},
			language: "Python",
			wantOK:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := t.TempDir()
			touchFiles(t, root, tt.markers...)

			classifier := NewClassifier(testLogger())

			command, ok := classifier.RunCommand(root, tt.language)

			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantCommand, command)
		})
	}
}

func TestClassifier_MarkerMustBeAFile(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(root, "package.json"), 0o755))

	classifier := NewClassifier(testLogger())

	assert.Equal(t, ProjectTypeUnknown, classifier.Classify(root))

	_, ok := classifier.RunCommand(root, "JavaScript")
	assert.False(t, ok)
}
