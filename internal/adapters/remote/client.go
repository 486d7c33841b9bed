// Package remote implements the remote document-store adapters over
// HTTP. One adapter per entity kind; all of them share a thin JSON
// client with retry. Entities live in per-user subcollections except
// links and shares, which are shared records.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/feltworks/rangesync/internal/domain/errors"
)

// Config holds remote store connection settings.
type Config struct {
	BaseURL    string
	APIKey     string
	Timeout    time.Duration
	MaxRetries int
}

// DefaultConfig returns sensible defaults for the remote client.
func DefaultConfig() Config {
	return Config{
		Timeout:    30 * time.Second,
		MaxRetries: 3,
	}
}

// Client handles HTTP communication with the remote document store.
type Client struct {
	httpClient *http.Client
	config     Config
}

// NewClient creates a new remote store client.
func NewClient(config Config) *Client {
	if config.Timeout <= 0 {
		config.Timeout = 30 * time.Second
	}
	return &Client{
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		config: config,
	}
}

// getJSON performs a GET and decodes the response body into out.
func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	resp, err := c.doRequestWithRetry(ctx, http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return c.handleErrorResponse(resp)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.NewError(errors.CodeRemote, "failed to decode response", err)
	}
	return nil
}

// sendJSON performs a request with a JSON body and discards any
// response payload.
func (c *Client) sendJSON(ctx context.Context, method, path string, in any) error {
	var body []byte
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return errors.NewError(errors.CodeValidation, "failed to marshal request", err)
		}
		body = raw
	}

	resp, err := c.doRequestWithRetry(ctx, method, path, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return c.handleErrorResponse(resp)
	}
	return nil
}

// delete performs a DELETE.
func (c *Client) delete(ctx context.Context, path string) error {
	return c.sendJSON(ctx, http.MethodDelete, path, nil)
}

// doRequestWithRetry performs an HTTP request with exponential backoff retry.
func (c *Client) doRequestWithRetry(ctx context.Context, method, path string, body []byte) (*http.Response, error) {
	var lastErr error
	baseDelay := 500 * time.Millisecond

	for attempt := 0; attempt <= c.config.MaxRetries; attempt++ {
		if attempt > 0 {
			// Exponential backoff: 500ms, 1s, 2s, 4s...
			delay := baseDelay * time.Duration(1<<(attempt-1))
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
		}

		req, err := c.newRequest(ctx, method, path, body)
		if err != nil {
			return nil, err
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = errors.NewError(errors.CodeRemote, "request failed", err)
			continue
		}

		// Retry on rate limit (429) or server errors (5xx)
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			resp.Body.Close()
			lastErr = fmt.Errorf("HTTP %d", resp.StatusCode)
			continue
		}

		return resp, nil
	}

	return nil, errors.NewError(errors.CodeRemote,
		fmt.Sprintf("request failed after %d retries", c.config.MaxRetries+1), lastErr)
}

// newRequest creates a new HTTP request with required headers.
func (c *Client) newRequest(ctx context.Context, method, path string, body []byte) (*http.Request, error) {
	url := c.config.BaseURL + path

	var bodyReader io.Reader
	if body != nil {
		bodyReader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
	if err != nil {
		return nil, errors.NewError(errors.CodeRemote, "failed to create request", err)
	}

	req.Header.Set("Content-Type", "application/json")
	if c.config.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.config.APIKey)
	}
	return req, nil
}

// handleErrorResponse maps an error response to a coded domain error.
// Not-found responses carry ErrRemoteNotFound so the synchronizer can
// classify them as permanent.
func (c *Client) handleErrorResponse(resp *http.Response) error {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.NewError(errors.CodeRemote,
			fmt.Sprintf("HTTP %d: failed to read error response", resp.StatusCode), err)
	}

	msg := string(body)
	var errResp struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(body, &errResp) == nil && errResp.Error != "" {
		msg = errResp.Error
	}

	switch resp.StatusCode {
	case http.StatusNotFound:
		return errors.NewError(errors.CodeNotFound,
			fmt.Sprintf("HTTP 404: %s", msg), errors.ErrRemoteNotFound)
	case http.StatusUnauthorized, http.StatusForbidden:
		return errors.NewError(errors.CodeConfiguration,
			fmt.Sprintf("HTTP %d: %s", resp.StatusCode, msg), nil)
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return errors.NewError(errors.CodeValidation,
			fmt.Sprintf("HTTP %d: %s", resp.StatusCode, msg), nil)
	case http.StatusTooManyRequests:
		return errors.NewError(errors.CodeRateLimit,
			fmt.Sprintf("HTTP 429: %s", msg), errors.ErrRateLimited)
	default:
		return errors.NewError(errors.CodeRemote,
			fmt.Sprintf("HTTP %d: %s", resp.StatusCode, msg), nil)
	}
}
