// Package jobs manages the asynchronous lifecycle of queue jobs: submission,
// polling and bounded waiting for a terminal state.
package jobs

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"keboola-mcp/internal/logging"
	"keboola-mcp/internal/sapi"
	"keboola-mcp/pkg/models"
)

// Handle is the local view of one submitted job. It is created on submission
// and overwritten only by polling the remote service; intermediate states are
// never guessed. Terminal states are final — resuming a terminated job is
// not possible, a new job must be submitted.
type Handle struct {
	ID          string           `json:"id"`
	ComponentID string           `json:"component,omitempty"`
	ConfigID    string           `json:"config,omitempty"`
	Status      models.JobStatus `json:"status"`
	Result      map[string]any   `json:"result,omitempty"`
}

// SearchParams filter a job listing. Limit defaults to 100 and is capped at
// 500; results are sorted by start time, newest first.
type SearchParams struct {
	ComponentID string
	ConfigID    string
	Status      []models.JobStatus
	Limit       int
	Offset      int
}

// Client talks to the job queue service API.
type Client struct {
	raw *sapi.Client
	log *logging.Logger
}

// NewClient creates a queue client for the given service root, e.g.
// https://queue.keboola.com.
func NewClient(queueURL, token string, log *logging.Logger) *Client {
	return &Client{
		raw: sapi.NewClient(queueURL, token, log),
		log: log,
	}
}

type rawJob struct {
	ID              string         `json:"id"`
	Status          string         `json:"status"`
	Component       string         `json:"component"`
	Config          string         `json:"config"`
	IsFinished      bool           `json:"isFinished"`
	CreatedTime     string         `json:"createdTime"`
	StartTime       string         `json:"startTime"`
	EndTime         string         `json:"endTime"`
	URL             string         `json:"url"`
	RunID           string         `json:"runId"`
	DurationSeconds float64        `json:"durationSeconds"`
	Result          map[string]any `json:"result"`
	Metrics         map[string]any `json:"metrics"`
}

func (j rawJob) summary() models.JobSummary {
	return models.JobSummary{
		ID:          j.ID,
		Status:      models.JobStatus(j.Status),
		ComponentID: j.Component,
		ConfigID:    j.Config,
		IsFinished:  j.IsFinished,
		CreatedTime: j.CreatedTime,
		StartTime:   j.StartTime,
		EndTime:     j.EndTime,
	}
}

func (j rawJob) detail() models.JobDetail {
	return models.JobDetail{
		JobSummary:      j.summary(),
		URL:             j.URL,
		RunID:           j.RunID,
		DurationSeconds: j.DurationSeconds,
		Result:          j.Result,
		Metrics:         j.Metrics,
	}
}

func (j rawJob) handle() *Handle {
	return &Handle{
		ID:          j.ID,
		ComponentID: j.Component,
		ConfigID:    j.Config,
		Status:      models.JobStatus(j.Status),
		Result:      j.Result,
	}
}

// Submit creates a new job for a configuration and returns immediately; the
// returned handle starts in the created state. Submissions are never retried
// to avoid duplicate runs.
func (c *Client) Submit(ctx context.Context, componentID, configurationID string) (*Handle, error) {
	payload := map[string]string{
		"component": componentID,
		"config":    configurationID,
		"mode":      "run",
	}
	var raw rawJob
	if err := c.raw.Post(ctx, "jobs", payload, &raw); err != nil {
		return nil, err
	}
	h := raw.handle()
	if h.Status == "" {
		h.Status = models.JobStatusCreated
	}
	c.log.Info("job submitted", "job", h.ID, "component", componentID, "config", configurationID)
	return h, nil
}

// Poll fetches the job's current remote status and returns a fresh handle.
// The input handle is never mutated.
func (c *Client) Poll(ctx context.Context, h *Handle) (*Handle, error) {
	var raw rawJob
	if err := c.raw.Get(ctx, fmt.Sprintf("jobs/%s", h.ID), nil, &raw); err != nil {
		return nil, err
	}
	return raw.handle(), nil
}

// GetDetail retrieves the full job record.
func (c *Client) GetDetail(ctx context.Context, jobID string) (*models.JobDetail, error) {
	var raw rawJob
	if err := c.raw.Get(ctx, fmt.Sprintf("jobs/%s", jobID), nil, &raw); err != nil {
		return nil, err
	}
	detail := raw.detail()
	return &detail, nil
}

// Search lists jobs matching the given filters, newest first.
func (c *Client) Search(ctx context.Context, p SearchParams) ([]models.JobSummary, error) {
	if p.Limit <= 0 {
		p.Limit = 100
	}
	if p.Limit > 500 {
		p.Limit = 500
	}

	params := url.Values{
		"limit":     {strconv.Itoa(p.Limit)},
		"offset":    {strconv.Itoa(p.Offset)},
		"sortBy":    {"startTime"},
		"sortOrder": {"desc"},
	}
	if p.ComponentID != "" {
		params.Set("componentId", p.ComponentID)
	}
	if p.ConfigID != "" {
		params.Set("configId", p.ConfigID)
	}
	for _, s := range p.Status {
		params.Add("status", string(s))
	}

	var raw []rawJob
	if err := c.raw.Get(ctx, "search/jobs", params, &raw); err != nil {
		return nil, err
	}
	jobs := make([]models.JobSummary, len(raw))
	for i, j := range raw {
		jobs[i] = j.summary()
	}
	return jobs, nil
}
