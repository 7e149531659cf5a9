package githubapi

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

const acceptHeader = "application/vnd.github.v3+json"

// Config holds GitHub API client configuration
type Config struct {
	BaseURL string
	Token   string // optional; unauthenticated requests are rate-limited
	Timeout time.Duration
}

// Client is a thin client for the GitHub REST API endpoints the pipeline
// needs: existence probes and the per-repository language breakdown.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a new GitHub API client
func NewClient(config *Config, logger *slog.Logger) *Client {
	timeout := config.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	baseURL := config.BaseURL
	if baseURL == "" {
		baseURL = "https://api.github.com"
	}

	return &Client{
		baseURL:    baseURL,
		token:      config.Token,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// RepositoryExists probes GET /repos/{owner}/{repo}
func (c *Client) RepositoryExists(ctx context.Context, owner, repo string) (bool, error) {
	return c.probe(ctx, fmt.Sprintf("%s/repos/%s/%s", c.baseURL, owner, repo))
}

// UserExists probes GET /users/{owner}
func (c *Client) UserExists(ctx context.Context, owner string) (bool, error) {
	return c.probe(ctx, fmt.Sprintf("%s/users/%s", c.baseURL, owner))
}

func (c *Client) probe(ctx context.Context, url string) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return false, fmt.Errorf("failed to build probe request: %w", err)
	}
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false, fmt.Errorf("probe request failed: %w", err)
	}
	defer resp.Body.Close()

	c.logger.Debug("GitHub existence probe",
		slog.String("url", url),
		slog.Int("status", resp.StatusCode),
	)

	return resp.StatusCode >= 200 && resp.StatusCode < 300, nil
}

// Languages fetches GET /repos/{owner}/{repo}/languages and returns the
// per-language byte counts
func (c *Client) Languages(ctx context.Context, owner, repo string) (map[string]int64, error) {
	url := fmt.Sprintf("%s/repos/%s/%s/languages", c.baseURL, owner, repo)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build languages request: %w", err)
	}
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("languages request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("languages request returned status %d", resp.StatusCode)
	}

	var languages map[string]int64
	if err := json.NewDecoder(resp.Body).Decode(&languages); err != nil {
		return nil, fmt.Errorf("failed to decode languages response: %w", err)
	}

	c.logger.Debug("Detected languages",
		slog.String("owner", owner),
		slog.String("repo", repo),
		slog.Int("count", len(languages)),
	)

	return languages, nil
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Accept", acceptHeader)
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
}
