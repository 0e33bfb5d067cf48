// Package panel implements the authenticated client for the cloud panel's HTTP API.
package panel

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

const defaultTimeout = 30 * time.Second

// APIError is the single error shape every client call collapses to.
// Transport failures, non-2xx responses and unparseable bodies all end up
// here so callers need one branch, not three. The client never retries;
// retry policy belongs to callers.
type APIError struct {
	Message string
}

func (e *APIError) Error() string { return e.Message }

// Client talks to the panel API under <baseURL>/api/v1/oci.
// It is stateless and safe for concurrent use by all sessions and pollers.
type Client struct {
	base   string
	apiKey string
	http   *http.Client
}

// NewClient creates a panel client. baseURL is the panel root, without the
// API path suffix.
func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		base:   strings.TrimRight(baseURL, "/") + "/api/v1/oci",
		apiKey: apiKey,
		http:   &http.Client{Timeout: defaultTimeout},
	}
}

// ListAccounts returns the configured account aliases.
func (c *Client) ListAccounts(ctx context.Context) ([]string, error) {
	var accounts []string
	if err := c.request(ctx, http.MethodGet, "profiles", nil, &accounts); err != nil {
		return nil, err
	}
	return accounts, nil
}

// ListInstances returns the instances of one account.
func (c *Client) ListInstances(ctx context.Context, account string) ([]Instance, error) {
	var instances []Instance
	if err := c.request(ctx, http.MethodGet, account+"/instances", nil, &instances); err != nil {
		return nil, err
	}
	return instances, nil
}

// PerformInstanceAction issues a lifecycle action and returns the tracking task.
func (c *Client) PerformInstanceAction(ctx context.Context, account string, req ActionRequest) (*SubmitResult, error) {
	var res SubmitResult
	if err := c.request(ctx, http.MethodPost, account+"/instance-action", req, &res); err != nil {
		return nil, err
	}
	if res.TaskID == "" {
		return nil, &APIError{Message: "panel accepted the action but returned no task id"}
	}
	return &res, nil
}

// SubmitJob posts a create or snatch provisioning job.
func (c *Client) SubmitJob(ctx context.Context, account string, kind JobKind, params map[string]any) (*SubmitResult, error) {
	var res SubmitResult
	if err := c.request(ctx, http.MethodPost, account+"/"+kind.endpoint(), params, &res); err != nil {
		return nil, err
	}
	if res.TaskID == "" {
		return nil, &APIError{Message: "panel accepted the job but returned no task id"}
	}
	return &res, nil
}

// JobStatus fetches the current status of a submitted job.
func (c *Client) JobStatus(ctx context.Context, taskID string) (*Task, error) {
	var task Task
	if err := c.request(ctx, http.MethodGet, "task-status/"+taskID, nil, &task); err != nil {
		return nil, err
	}
	if task.ID == "" {
		task.ID = taskID
	}
	return &task, nil
}

// ListJobs returns all jobs of a category in the given status across accounts.
func (c *Client) ListJobs(ctx context.Context, category, status string) ([]Task, error) {
	var tasks []Task
	if err := c.request(ctx, http.MethodGet, "tasks/"+category+"/"+status, nil, &tasks); err != nil {
		return nil, err
	}
	return tasks, nil
}

// errorBody is the panel's error payload shape.
type errorBody struct {
	Error string `json:"error"`
}

func (c *Client) request(ctx context.Context, method, endpoint string, body, out any) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return &APIError{Message: fmt.Sprintf("encode request: %v", err)}
		}
		reader = bytes.NewReader(encoded)
	}

	url := c.base + "/" + endpoint
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return &APIError{Message: err.Error()}
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		slog.Error("panel request failed", "method", method, "endpoint", endpoint, "error", err)
		return &APIError{Message: err.Error()}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return &APIError{Message: fmt.Sprintf("read response: %v", err)}
	}

	if resp.StatusCode >= 300 {
		slog.Error("panel returned error", "method", method, "endpoint", endpoint, "status", resp.StatusCode)
		var eb errorBody
		if json.Unmarshal(raw, &eb) == nil && eb.Error != "" {
			return &APIError{Message: eb.Error}
		}
		return &APIError{Message: fmt.Sprintf("panel returned non-JSON error: %d", resp.StatusCode)}
	}

	// A missing body is an empty success object.
	if len(bytes.TrimSpace(raw)) == 0 || out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return &APIError{Message: fmt.Sprintf("decode response: %v", err)}
	}
	return nil
}
