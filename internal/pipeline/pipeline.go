package pipeline

import (
	"context"
	"fmt"
	"log/slog"
)

// Progress event severity levels
const (
	LevelInfo    = "INFO"
	LevelSuccess = "SUCCESS"
	LevelError   = "ERROR"
)

// Validator confirms a link is well formed and exists on the remote host
type Validator interface {
	Validate(ctx context.Context, link string) (bool, error)
}

// Prober fetches the per-language byte counts for a repository link
type Prober interface {
	Detect(ctx context.Context, link string) (map[string]int64, error)
}

// WorkspaceManager creates and tears down per-job scratch directories
type WorkspaceManager interface {
	Create(repositoryID string) (string, error)
	Destroy(path string)
}

// Fetcher clones a repository into a workspace
type Fetcher interface {
	Clone(ctx context.Context, link, destination string) error
}

// ProjectClassifier decides a project category and a runnable command
type ProjectClassifier interface {
	Classify(workspaceRoot string) ProjectType
	RunCommand(workspaceRoot, language string) (string, bool)
}

// Executor runs a command inside the sandbox
type Executor interface {
	Run(ctx context.Context, workspaceRoot, language, command string) (*ExecResult, error)
}

// Publisher uploads the result file and returns a public URL
type Publisher interface {
	Publish(ctx context.Context, filePath, repositoryID string) (string, error)
}

// Ledger is the persistent job record the pipeline reports into
type Ledger interface {
	MarkCloneSucceeded(ctx context.Context, repositoryID string) error
	SetPrimaryLanguage(ctx context.Context, repositoryID, language string) error
	MarkRunUnsupported(ctx context.Context, repositoryID string) error
	MarkSucceeded(ctx context.Context, repositoryID, resultURL string) error
	MarkFailed(ctx context.Context, repositoryID, cause string) error
}

// Notifier publishes human-readable progress events. Best-effort: failures
// must never abort the pipeline.
type Notifier interface {
	Notify(ctx context.Context, repositoryID, message, level string) error
}

// Pipeline sequences the processing stages for one repository and owns the
// failure transitions
type Pipeline struct {
	validator  Validator
	workspaces WorkspaceManager
	fetcher    Fetcher
	prober     Prober
	classifier ProjectClassifier
	executor   Executor
	publisher  Publisher
	ledger     Ledger
	notifier   Notifier
	logger     *slog.Logger
}

// Deps holds the pipeline's collaborators
type Deps struct {
	Validator  Validator
	Workspaces WorkspaceManager
	Fetcher    Fetcher
	Prober     Prober
	Classifier ProjectClassifier
	Executor   Executor
	Publisher  Publisher
	Ledger     Ledger
	Notifier   Notifier
	Logger     *slog.Logger
}

// New creates a new Pipeline
func New(deps Deps) *Pipeline {
	return &Pipeline{
		validator:  deps.Validator,
		workspaces: deps.Workspaces,
		fetcher:    deps.Fetcher,
		prober:     deps.Prober,
		classifier: deps.Classifier,
		executor:   deps.Executor,
		publisher:  deps.Publisher,
		ledger:     deps.Ledger,
		notifier:   deps.Notifier,
		logger:     deps.Logger,
	}
}

// Process runs the full pipeline for one repository id. Any stage failure is
// converted into a FAILED ledger update plus an ERROR progress event; the
// workspace is destroyed exactly once on every path out.
func (p *Pipeline) Process(ctx context.Context, repositoryID, link string) error {
	p.notify(ctx, repositoryID, "Starting repository processing...", LevelInfo)

	valid, err := p.validator.Validate(ctx, link)
	if err != nil {
		return p.fail(ctx, repositoryID, err)
	}
	if !valid {
		return p.fail(ctx, repositoryID, fmt.Errorf("%w: link failed the existence probe: %s", ErrInvalidLink, link))
	}

	workspace, err := p.workspaces.Create(repositoryID)
	if err != nil {
		return p.fail(ctx, repositoryID, err)
	}
	defer p.workspaces.Destroy(workspace)

	p.notify(ctx, repositoryID, "Cloning repository...", LevelInfo)
	if err := p.fetcher.Clone(ctx, link, workspace); err != nil {
		return p.fail(ctx, repositoryID, err)
	}

	p.notify(ctx, repositoryID, "Repository cloned", LevelInfo)
	if err := p.ledger.MarkCloneSucceeded(ctx, repositoryID); err != nil {
		return p.fail(ctx, repositoryID, err)
	}

	p.notify(ctx, repositoryID, "Detecting project languages...", LevelInfo)
	languages, err := p.prober.Detect(ctx, link)
	if err != nil {
		return p.fail(ctx, repositoryID, err)
	}

	language := PrimaryLanguage(languages)
	if err := p.ledger.SetPrimaryLanguage(ctx, repositoryID, language); err != nil {
		return p.fail(ctx, repositoryID, err)
	}

	p.notify(ctx, repositoryID, "Classifying project...", LevelInfo)
	projectType := p.classifier.Classify(workspace)

	command, runnable := p.classifier.RunCommand(workspace, language)
	if !runnable {
		p.notify(ctx, repositoryID, "No runnable entry point found; execution skipped", LevelInfo)
		if err := p.ledger.MarkRunUnsupported(ctx, repositoryID); err != nil {
			return p.fail(ctx, repositoryID, err)
		}

		p.logger.Info("Repository has no runnable entry point",
			slog.String("repository_id", repositoryID),
			slog.String("language", language),
		)
		return nil
	}

	p.notify(ctx, repositoryID, "Executing project in sandbox...", LevelInfo)
	result, err := p.executor.Run(ctx, workspace, language, command)
	if err != nil {
		return p.fail(ctx, repositoryID, err)
	}

	reportPath, err := WriteReport(workspace, repositoryID, language, projectType, result)
	if err != nil {
		return p.fail(ctx, repositoryID, err)
	}

	p.notify(ctx, repositoryID, "Uploading results...", LevelInfo)
	resultURL, err := p.publisher.Publish(ctx, reportPath, repositoryID)
	if err != nil {
		return p.fail(ctx, repositoryID, err)
	}

	p.notify(ctx, repositoryID, "Processing complete! Results available at: "+resultURL, LevelSuccess)
	if err := p.ledger.MarkSucceeded(ctx, repositoryID, resultURL); err != nil {
		return p.fail(ctx, repositoryID, err)
	}

	p.logger.Info("Repository processed successfully",
		slog.String("repository_id", repositoryID),
		slog.String("link", link),
		slog.String("result_url", resultURL),
	)

	return nil
}

// fail records the terminal failure: ERROR progress event first, then the
// ledger update forcing both stage statuses to FAILED
func (p *Pipeline) fail(ctx context.Context, repositoryID string, cause error) error {
	p.notify(ctx, repositoryID, "Error: "+cause.Error(), LevelError)

	if err := p.ledger.MarkFailed(ctx, repositoryID, cause.Error()); err != nil {
		p.logger.Error("Failed to record FAILED status",
			slog.String("repository_id", repositoryID),
			slog.Any("error", err),
		)
	}

	p.logger.Error("Repository processing failed",
		slog.String("repository_id", repositoryID),
		slog.Any("error", cause),
	)

	return cause
}

// notify publishes a progress event; delivery failure is logged and swallowed
func (p *Pipeline) notify(ctx context.Context, repositoryID, message, level string) {
	if err := p.notifier.Notify(ctx, repositoryID, message, level); err != nil {
		p.logger.Warn("Failed to publish progress event",
			slog.String("repository_id", repositoryID),
			slog.String("message", message),
			slog.Any("error", err),
		)
	}
}
