package backend

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/kdimtricp/streamguard/internal/models"
)

// Dashboard is the top-level view payload: the streams and agents the
// viewer may see.
type Dashboard struct {
	Streams []models.StreamHandle `json:"streams"`
	Agents  []models.Agent        `json:"agents"`
}

func (c *Client) GetDashboard(ctx context.Context) (*Dashboard, error) {
	var dash Dashboard
	if err := c.do(ctx, http.MethodGet, "/api/dashboard", nil, &dash); err != nil {
		return nil, err
	}
	return &dash, nil
}

func (c *Client) ListStreams(ctx context.Context) ([]models.StreamHandle, error) {
	var streams []models.StreamHandle
	if err := c.do(ctx, http.MethodGet, "/api/streams", nil, &streams); err != nil {
		return nil, err
	}
	return streams, nil
}

func (c *Client) CreateStream(ctx context.Context, handle *models.StreamHandle) error {
	return c.do(ctx, http.MethodPost, "/api/streams", handle, nil)
}

func (c *Client) DeleteStream(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/streams/"+url.PathEscape(id), nil, nil)
}

// InteractiveCreateJob is returned by the interactive stream-creation flow;
// progress arrives on the job's SSE endpoint.
type InteractiveCreateJob struct {
	JobID string `json:"job_id"`
}

// InteractiveProgress is one SSE progress event for an interactive job.
type InteractiveProgress struct {
	Progress      int    `json:"progress"`
	Message       string `json:"message"`
	EstimatedTime int    `json:"estimated_time"`
}

func (c *Client) CreateStreamInteractive(ctx context.Context, roomURL string, platform models.Platform, agentID string) (*InteractiveCreateJob, error) {
	body := map[string]string{
		"room_url": roomURL,
		"platform": string(platform),
		"agent_id": agentID,
	}
	var job InteractiveCreateJob
	if err := c.do(ctx, http.MethodPost, "/api/streams/interactive", body, &job); err != nil {
		return nil, err
	}
	if job.JobID == "" {
		return nil, fmt.Errorf("interactive create returned no job id")
	}
	return &job, nil
}

// InteractiveProgressURL is the SSE endpoint for an interactive job.
func (c *Client) InteractiveProgressURL(jobID string) string {
	return c.baseURL + "/api/streams/interactive/sse?job_id=" + url.QueryEscape(jobID)
}

// DetectionEventsURL is the SSE endpoint for live detection events.
func (c *Client) DetectionEventsURL() string {
	return c.baseURL + "/api/detection-events"
}

func (c *Client) ListAgents(ctx context.Context) ([]models.Agent, error) {
	var agents []models.Agent
	if err := c.do(ctx, http.MethodGet, "/api/agents", nil, &agents); err != nil {
		return nil, err
	}
	return agents, nil
}

func (c *Client) CreateAgent(ctx context.Context, agent *models.Agent) error {
	return c.do(ctx, http.MethodPost, "/api/agents", agent, nil)
}

func (c *Client) UpdateAgent(ctx context.Context, agent *models.Agent) error {
	return c.do(ctx, http.MethodPut, "/api/agents/"+url.PathEscape(agent.ID), agent, nil)
}

func (c *Client) DeleteAgent(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/agents/"+url.PathEscape(id), nil, nil)
}

func (c *Client) ListKeywords(ctx context.Context, kind string) ([]models.Keyword, error) {
	var keywords []models.Keyword
	path := "/api/keywords"
	if kind == "object" {
		path = "/api/objects"
	}
	if err := c.do(ctx, http.MethodGet, path, nil, &keywords); err != nil {
		return nil, err
	}
	return keywords, nil
}

func (c *Client) CreateKeyword(ctx context.Context, keyword *models.Keyword) error {
	path := "/api/keywords"
	if keyword.Kind == "object" {
		path = "/api/objects"
	}
	return c.do(ctx, http.MethodPost, path, keyword, nil)
}
