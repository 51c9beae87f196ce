package deepface

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Config holds the configuration for the DeepFace client
type Config struct {
	BaseURL    string
	Timeout    time.Duration
	Detector   string
	RetryCount int
	// RetryBaseDelay is the first backoff; later attempts double it
	RetryBaseDelay time.Duration
}

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() Config {
	return Config{
		BaseURL:        "http://localhost:5005",
		Timeout:        30 * time.Second,
		Detector:       "retinaface",
		RetryCount:     3,
		RetryBaseDelay: time.Second,
	}
}

// Client is the HTTP client for DeepFace API
type Client struct {
	httpClient *http.Client
	config     Config
}

// NewClient creates a new DeepFace client
func NewClient(config Config) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		config: config,
	}
}

// StatusError is returned when DeepFace answers with a non-2xx status
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("deepface returned status %d: %s", e.StatusCode, e.Body)
}

// Analyze calls POST /analyze with the emotion action. Detection is not
// enforced, so a photo without faces yields results with zero confidence
// instead of an HTTP error.
func (c *Client) Analyze(ctx context.Context, img string) (*AnalyzeResponse, error) {
	req := AnalyzeRequest{
		Img:              img,
		Actions:          []string{ActionEmotion},
		Detector:         c.config.Detector,
		EnforceDetection: false,
	}

	var resp AnalyzeResponse
	if err := c.doRequestWithRetry(ctx, http.MethodPost, "/analyze", req, &resp); err != nil {
		return nil, err
	}

	return &resp, nil
}

// maxBackoff is the maximum backoff duration for retries
const maxBackoff = 30 * time.Second

// calculateBackoff returns base, 2*base, 4*base... capped at maxBackoff
func calculateBackoff(base time.Duration, attempt int) time.Duration {
	if base <= 0 {
		base = time.Second
	}
	if attempt <= 1 {
		return base
	}
	backoff := base
	for i := 1; i < attempt && backoff < maxBackoff; i++ {
		backoff *= 2
	}
	if backoff > maxBackoff {
		backoff = maxBackoff
	}
	return backoff
}

// doRequestWithRetry executes HTTP request with retry logic
func (c *Client) doRequestWithRetry(ctx context.Context, method, path string, body interface{}, result interface{}) error {
	var lastErr error

	for attempt := 0; attempt <= c.config.RetryCount; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(calculateBackoff(c.config.RetryBaseDelay, attempt)):
			}
		}

		lastErr = c.doRequest(ctx, method, path, body, result)
		if lastErr == nil {
			return nil
		}

		// Don't retry on context errors
		if ctx.Err() != nil {
			return ctx.Err()
		}

		// Only server errors (5xx) and transport failures are retried
		if isClientError(lastErr) || errors.Is(lastErr, ErrInvalidResponse) {
			return lastErr
		}
	}

	return fmt.Errorf("%w: %v", ErrDeepFaceUnavailable, lastErr)
}

// isClientError checks if the error is a 4xx client error
func isClientError(err error) bool {
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.StatusCode >= 400 && statusErr.StatusCode < 500
	}
	return false
}

// doRequest executes a single HTTP request
func (c *Client) doRequest(ctx context.Context, method, path string, body interface{}, result interface{}) error {
	var bodyReader io.Reader
	if body != nil {
		bodyBytes, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(bodyBytes)
	}

	url := c.config.BaseURL + path
	req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return &StatusError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	if result != nil {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidResponse, err)
		}
	}

	return nil
}
