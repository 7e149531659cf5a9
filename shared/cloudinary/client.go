package cloudinary

import (
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// Config holds Cloudinary upload credentials
type Config struct {
	CloudName string
	APIKey    string
	APISecret string
	BaseURL   string // defaults to the public Cloudinary API
	Timeout   time.Duration
}

// Validate checks that all required credentials are present
func (c *Config) Validate() error {
	if c.CloudName == "" || c.APIKey == "" || c.APISecret == "" {
		return fmt.Errorf("missing Cloudinary configuration properties")
	}
	return nil
}

// Client uploads raw result files to Cloudinary over its REST upload API
type Client struct {
	config     *Config
	httpClient *http.Client
	logger     *slog.Logger
}

type uploadResponse struct {
	SecureURL string `json:"secure_url"`
	PublicID  string `json:"public_id"`
}

// NewClient creates a new Cloudinary client
func NewClient(config *Config, logger *slog.Logger) (*Client, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	timeout := config.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &Client{
		config:     config,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}, nil
}

// UploadRaw uploads a local file as a raw resource under the given public id.
// The id is deterministic per repository so repeated uploads overwrite the
// previous result instead of duplicating it.
func (c *Client) UploadRaw(ctx context.Context, filePath, publicID string) (string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return "", fmt.Errorf("failed to open result file: %w", err)
	}
	defer file.Close()

	timestamp := strconv.FormatInt(time.Now().Unix(), 10)

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	fields := map[string]string{
		"api_key":   c.config.APIKey,
		"overwrite": "true",
		"public_id": publicID,
		"timestamp": timestamp,
		"signature": c.sign(publicID, timestamp),
	}
	for name, value := range fields {
		if err := writer.WriteField(name, value); err != nil {
			return "", fmt.Errorf("failed to write form field %s: %w", name, err)
		}
	}

	part, err := writer.CreateFormFile("file", filepath.Base(filePath))
	if err != nil {
		return "", fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return "", fmt.Errorf("failed to copy result file: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("failed to finalize multipart body: %w", err)
	}

	url := fmt.Sprintf("%s/v1_1/%s/raw/upload", c.baseURL(), c.config.CloudName)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, body)
	if err != nil {
		return "", fmt.Errorf("failed to build upload request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("upload request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("upload returned status %d: %s", resp.StatusCode, string(payload))
	}

	var uploaded uploadResponse
	if err := json.NewDecoder(resp.Body).Decode(&uploaded); err != nil {
		return "", fmt.Errorf("failed to decode upload response: %w", err)
	}

	c.logger.Info("Uploaded result file to Cloudinary",
		slog.String("public_id", uploaded.PublicID),
		slog.String("url", uploaded.SecureURL),
	)

	return uploaded.SecureURL, nil
}

// sign computes the Cloudinary request signature: the signed parameters in
// alphabetical order joined with '&', followed by the API secret, SHA-1 hashed
func (c *Client) sign(publicID, timestamp string) string {
	payload := fmt.Sprintf("overwrite=true&public_id=%s&timestamp=%s%s", publicID, timestamp, c.config.APISecret)
	sum := sha1.Sum([]byte(payload))
	return hex.EncodeToString(sum[:])
}

func (c *Client) baseURL() string {
	if c.config.BaseURL != "" {
		return c.config.BaseURL
	}
	return "https://api.cloudinary.com"
}
