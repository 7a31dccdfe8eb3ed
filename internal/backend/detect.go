package backend

import (
	"context"
	"net/http"

	"github.com/kdimtricp/streamguard/internal/models"
)

// ReportDetection posts one detection-loop emission to the backend, which
// turns it into a notification record and fans it out.
func (c *Client) ReportDetection(ctx context.Context, report *models.DetectionReport) error {
	return c.do(ctx, http.MethodPost, "/api/detect-objects", report, nil)
}

// TriggerDetection asks the backend to start server-side monitoring of a
// stream URL (audio and chat detectors run server-side).
func (c *Client) TriggerDetection(ctx context.Context, streamURL string) error {
	body := map[string]string{"stream_url": streamURL}
	return c.do(ctx, http.MethodPost, "/api/trigger-detection", body, nil)
}

func (c *Client) StopDetection(ctx context.Context, streamURL string) error {
	body := map[string]string{"stream_url": streamURL}
	return c.do(ctx, http.MethodPost, "/api/stop-detection", body, nil)
}
