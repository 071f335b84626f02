// Package remote talks to the hosted serverless functions: script execution
// and the admin user-management endpoints.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"salonrecon/internal/models"
)

const (
	executeScriptPath = "/.netlify/functions/execute-script"
	deleteUserPath    = "/.netlify/functions/delete-user"
	cleanupUserPath   = "/.netlify/functions/cleanup-orphaned-user"

	// DefaultTimeout bounds a single script execution
	DefaultTimeout = 60 * time.Second

	maxResponseBytes = 32 << 20
)

// Client calls the remote functions. The zero Timeout means DefaultTimeout.
type Client struct {
	BaseURL string
	HTTP    *http.Client
	Timeout time.Duration
}

// New creates a client for the given base URL
func New(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP:    &http.Client{},
		Timeout: timeout,
	}
}

type executeRequest struct {
	Script    string       `json:"script"`
	File1Data models.Table `json:"file1Data"`
	File2Data models.Table `json:"file2Data"`
}

type executeResponse struct {
	Result json.RawMessage `json:"result"`
	Error  string          `json:"error,omitempty"`
}

// ExecuteScript sends the script and both uploads (header row first) to the
// execution endpoint and returns the validated result table. The call is
// made once; failures are returned as *Error.
func (c *Client) ExecuteScript(ctx context.Context, script string, file1, file2 models.Table) (models.Table, error) {
	if file1 == nil {
		file1 = models.Table{}
	}
	if file2 == nil {
		file2 = models.Table{}
	}

	body, status, err := c.post(ctx, executeScriptPath, executeRequest{
		Script:    script,
		File1Data: file1,
		File2Data: file2,
	})
	if err != nil {
		return nil, err
	}

	var resp executeResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, &Error{Kind: KindUnknown, Status: status, Err: ErrInvalidResult}
	}
	if resp.Error != "" {
		return nil, &Error{Kind: KindUnknown, Status: status, Err: fmt.Errorf("script error: %s", resp.Error)}
	}

	table, err := DecodeResult(resp.Result)
	if err != nil {
		return nil, &Error{Kind: KindUnknown, Status: status, Err: err}
	}
	return table, nil
}

// DeleteUser asks the remote function to remove a user and their data
func (c *Client) DeleteUser(ctx context.Context, userID string) (json.RawMessage, error) {
	if userID == "" {
		return nil, errors.New("user id is required")
	}
	body, _, err := c.post(ctx, deleteUserPath, map[string]string{"userId": userID})
	return body, err
}

// CleanupOrphanedUser removes an auth record that has no matching profile
func (c *Client) CleanupOrphanedUser(ctx context.Context, email string) (json.RawMessage, error) {
	if email == "" {
		return nil, errors.New("email is required")
	}
	body, _, err := c.post(ctx, cleanupUserPath, map[string]string{"email": email})
	return body, err
}

// post sends a JSON body and returns the response body of a 2xx reply.
// Everything else comes back as *Error.
func (c *Client) post(ctx context.Context, path string, payload interface{}) ([]byte, int, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to encode request: %w", err)
	}

	timeout := c.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+path, bytes.NewReader(data))
	if err != nil {
		return nil, 0, &Error{Kind: KindUnknown, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	httpClient := c.HTTP
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, 0, classifyTransport(ctx, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, resp.StatusCode, classifyTransport(ctx, err)
	}

	switch {
	case resp.StatusCode >= 500:
		return nil, resp.StatusCode, &Error{Kind: KindServer, Status: resp.StatusCode, Err: errors.New(errorText(body, resp.Status))}
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return nil, resp.StatusCode, &Error{Kind: KindUnknown, Status: resp.StatusCode, Err: errors.New(errorText(body, resp.Status))}
	}

	return body, resp.StatusCode, nil
}

// errorText pulls {"error": "..."} out of a failure body when present
func errorText(body []byte, fallback string) string {
	var e struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(body, &e) == nil && e.Error != "" {
		return e.Error
	}
	return fallback
}
