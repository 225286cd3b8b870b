package scrapehub

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Run statuses reported by GET /runs/{run_id}.
const (
	RunStatusRunning = "running"
	RunStatusSuccess = "success"
	RunStatusFailed  = "failed"
)

// JobDefinition is one entry of the remote job catalog.
type JobDefinition struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Client consumes the scraping service through its three-call HTTP
// contract: list job definitions, start a run, poll/fetch a run.
type Client struct {
	baseURL string
	http    *HTTPClient
}

func NewClient(baseURL string, timeout time.Duration, retries int, backoff time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    NewHTTPClient(timeout, retries, backoff),
	}
}

// ListJobs fetches the provider catalog.
func (c *Client) ListJobs(ctx context.Context) ([]JobDefinition, error) {
	var jobs []JobDefinition
	if err := c.http.DoJSON(ctx, "GET", c.baseURL+"/jobs", nil, nil, &jobs); err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	return jobs, nil
}

// StartRun submits a new execution of the given job definition and
// returns its run id.
func (c *Client) StartRun(ctx context.Context, jobID string, params map[string]interface{}) (string, error) {
	var resp struct {
		RunID string `json:"run_id"`
	}
	body := map[string]interface{}{"params": params}
	endpoint := fmt.Sprintf("%s/jobs/%s/run", c.baseURL, url.PathEscape(jobID))
	if err := c.http.DoJSON(ctx, "POST", endpoint, nil, body, &resp); err != nil {
		return "", fmt.Errorf("start run for job %s: %w", jobID, err)
	}
	if resp.RunID == "" {
		return "", fmt.Errorf("start run for job %s: empty run_id in response", jobID)
	}
	return resp.RunID, nil
}

// RunStatus reports the current status of a run.
func (c *Client) RunStatus(ctx context.Context, runID string) (string, error) {
	var resp struct {
		Status string `json:"status"`
	}
	endpoint := fmt.Sprintf("%s/runs/%s", c.baseURL, url.PathEscape(runID))
	if err := c.http.DoJSON(ctx, "GET", endpoint, nil, nil, &resp); err != nil {
		return "", fmt.Errorf("run %s status: %w", runID, err)
	}
	return resp.Status, nil
}

// RunResults fetches the records produced by a successful run.
func (c *Client) RunResults(ctx context.Context, runID string) ([]map[string]interface{}, error) {
	var resp struct {
		Results []map[string]interface{} `json:"results"`
	}
	endpoint := fmt.Sprintf("%s/runs/%s/results", c.baseURL, url.PathEscape(runID))
	if err := c.http.DoJSON(ctx, "GET", endpoint, nil, nil, &resp); err != nil {
		return nil, fmt.Errorf("run %s results: %w", runID, err)
	}
	return resp.Results, nil
}
