// Package client talks to the lookscore analysis API over HTTP.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/kiranshivaraju/lookscore/pkg/models"
)

// Sentinel errors for API client failures.
var (
	ErrUnreachable = errors.New("lookscore api unreachable")
	ErrAPI         = errors.New("lookscore api error")
	ErrTimeout     = errors.New("lookscore api timeout")
)

// DefaultPollInterval is how often Wait polls the status endpoint.
const DefaultPollInterval = 2 * time.Second

// API is the interface for driving analyses remotely.
type API interface {
	Start(ctx context.Context, req models.AnalysisRequest) (string, error)
	Status(ctx context.Context, jobID string) (models.JobStatus, error)
	Wait(ctx context.Context, jobID string) (models.JobStatus, error)
}

// HTTPClient implements API against a running server.
type HTTPClient struct {
	baseURL      string
	pollInterval time.Duration
	client       *http.Client
}

// NewHTTPClient creates a new API client. A zero pollInterval uses
// DefaultPollInterval.
func NewHTTPClient(baseURL string, pollInterval, timeout time.Duration) *HTTPClient {
	if pollInterval <= 0 {
		pollInterval = DefaultPollInterval
	}
	return &HTTPClient{
		baseURL:      strings.TrimRight(baseURL, "/"),
		pollInterval: pollInterval,
		client:       &http.Client{Timeout: timeout},
	}
}

func (c *HTTPClient) Start(ctx context.Context, req models.AnalysisRequest) (string, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("encoding request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/v1/analyses", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("building request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	var out struct {
		JobID string `json:"jobId"`
	}
	if err := c.do(httpReq, http.StatusAccepted, &out); err != nil {
		return "", err
	}
	if out.JobID == "" {
		return "", fmt.Errorf("%w: empty job id", ErrAPI)
	}
	return out.JobID, nil
}

func (c *HTTPClient) Status(ctx context.Context, jobID string) (models.JobStatus, error) {
	u := fmt.Sprintf("%s/api/v1/analyses/%s", c.baseURL, url.PathEscape(jobID))

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return models.JobStatus{}, fmt.Errorf("building request: %w", err)
	}

	var out models.JobStatus
	if err := c.do(httpReq, http.StatusOK, &out); err != nil {
		return models.JobStatus{}, err
	}
	return out, nil
}

// Wait polls Status at a fixed interval until the job is terminal or ctx is done.
func (c *HTTPClient) Wait(ctx context.Context, jobID string) (models.JobStatus, error) {
	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		st, err := c.Status(ctx, jobID)
		if err != nil {
			return models.JobStatus{}, err
		}
		if st.Status == models.JobStatusSucceeded || st.Status == models.JobStatusFailed {
			return st, nil
		}

		select {
		case <-ctx.Done():
			return st, ctx.Err()
		case <-ticker.C:
		}
	}
}

// do sends req and decodes the data envelope into out when the status matches.
func (c *HTTPClient) do(req *http.Request, want int, out any) error {
	resp, err := c.client.Do(req)
	if err != nil {
		return classifyError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != want {
		var env struct {
			Error struct {
				Code    string `json:"code"`
				Message string `json:"message"`
			} `json:"error"`
		}
		if json.NewDecoder(resp.Body).Decode(&env) == nil && env.Error.Code != "" {
			return fmt.Errorf("%w: status %d: %s: %s", ErrAPI, resp.StatusCode, env.Error.Code, env.Error.Message)
		}
		return fmt.Errorf("%w: status %d", ErrAPI, resp.StatusCode)
	}

	var env struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("decoding response data: %w", err)
	}
	return nil
}

// classifyError maps transport-level errors to sentinel errors.
func classifyError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%w: %w", ErrTimeout, err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}

	return fmt.Errorf("%w: %v", ErrUnreachable, err)
}

// Compile-time check that HTTPClient implements API.
var _ API = (*HTTPClient)(nil)
