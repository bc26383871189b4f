// Package engine is the typed HTTP boundary to the external pipeline
// execution engine (data-engine). The control plane only submits tasks,
// polls their status and cancels them; everything else is the engine's
// business.
package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/hww/data-terminal/pkg/retry"
)

// DefaultTimeout bounds every engine call.
const DefaultTimeout = 30 * time.Second

// SubmitRequest is the submission body for a collection task.
type SubmitRequest struct {
	TaskType    string          `json:"task_type"`
	TaskName    string          `json:"task_name"`
	TaskConfig  json.RawMessage `json:"task_config"`
	SubmittedBy string          `json:"submitted_by"`
}

// SubmitResponse is the engine's acknowledgment of a submission.
type SubmitResponse struct {
	ExecutionID string `json:"execution_id"`
	Status      string `json:"status"`
	SubmittedAt string `json:"submitted_at"`
}

// StatusResponse is the engine's view of a running execution.
type StatusResponse struct {
	ExecutionID        string   `json:"execution_id"`
	Status             string   `json:"status"`
	ProgressPercentage *float32 `json:"progress_percentage,omitempty"`
	CurrentStep        *string  `json:"current_step,omitempty"`
}

// Client talks to the execution engine over HTTP.
type Client struct {
	baseURL    string
	httpClient *http.Client
	retryCfg   *retry.Config
	logger     *zap.Logger
}

// NewClient creates an engine client with a bounded request timeout.
// Status and cancel calls are retried on transient failures; submit is
// never auto-retried to avoid duplicate executions.
func NewClient(baseURL string, timeout time.Duration, logger *zap.Logger) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		retryCfg:   retry.DefaultConfig(),
		logger:     logger,
	}
}

// Submit hands a collection task to the engine and returns its execution id.
func (c *Client) Submit(ctx context.Context, req *SubmitRequest) (*SubmitResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal submit request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/api/v1/pipeline/tasks", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build submit request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, networkErr(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		io.Copy(io.Discard, resp.Body)
		return nil, rejectedErr(resp.StatusCode)
	}

	var result SubmitResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, malformedErr(err)
	}
	if result.ExecutionID == "" {
		return nil, malformedErr(fmt.Errorf("missing execution_id"))
	}

	c.logger.Info("Submitted task to engine",
		zap.String("task_name", req.TaskName),
		zap.String("execution_id", result.ExecutionID))
	return &result, nil
}

// GetStatus polls the engine for an execution's status. Idempotent;
// transient failures are retried.
func (c *Client) GetStatus(ctx context.Context, executionID string) (*StatusResponse, error) {
	var result *StatusResponse
	err := retry.DoIfRetryable(ctx, c.retryCfg, func() error {
		var callErr error
		result, callErr = c.getStatusOnce(ctx, executionID)
		return callErr
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (c *Client) getStatusOnce(ctx context.Context, executionID string) (*StatusResponse, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet,
		fmt.Sprintf("%s/api/v1/pipeline/tasks/%s/status", c.baseURL, url.PathEscape(executionID)), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build status request: %w", err)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, networkErr(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		io.Copy(io.Discard, resp.Body)
		return nil, notFoundErr(executionID)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		io.Copy(io.Discard, resp.Body)
		return nil, rejectedErr(resp.StatusCode)
	}

	var result StatusResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, malformedErr(err)
	}
	return &result, nil
}

// Cancel asks the engine to stop an execution. Idempotent; transient
// failures are retried. An unknown execution id returns ErrExecutionNotFound
// so the caller can treat the cancellation as already done.
func (c *Client) Cancel(ctx context.Context, executionID string) error {
	return retry.DoIfRetryable(ctx, c.retryCfg, func() error {
		return c.cancelOnce(ctx, executionID)
	})
}

func (c *Client) cancelOnce(ctx context.Context, executionID string) error {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodDelete,
		fmt.Sprintf("%s/api/v1/pipeline/tasks/%s", c.baseURL, url.PathEscape(executionID)), nil)
	if err != nil {
		return fmt.Errorf("failed to build cancel request: %w", err)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return networkErr(err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode == http.StatusNotFound {
		return notFoundErr(executionID)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return rejectedErr(resp.StatusCode)
	}
	return nil
}
