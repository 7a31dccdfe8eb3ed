package backend

import (
	"context"
	"net/http"
	"net/url"

	"github.com/kdimtricp/streamguard/internal/models"
)

func (c *Client) ListNotifications(ctx context.Context) ([]models.NotificationRecord, error) {
	var records []models.NotificationRecord
	if err := c.do(ctx, http.MethodGet, "/api/notifications", nil, &records); err != nil {
		return nil, err
	}
	return records, nil
}

func (c *Client) MarkNotificationRead(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodPut, "/api/notifications/"+url.PathEscape(id)+"/read", nil, nil)
}

func (c *Client) MarkAllNotificationsRead(ctx context.Context) error {
	return c.do(ctx, http.MethodPut, "/api/notifications/read-all", nil, nil)
}

func (c *Client) DeleteNotification(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/notifications/"+url.PathEscape(id), nil, nil)
}

func (c *Client) DeleteAllNotifications(ctx context.Context) error {
	return c.do(ctx, http.MethodDelete, "/api/notifications", nil, nil)
}

// ForwardNotification assigns a notification to a specific agent. The
// record's read state is untouched.
func (c *Client) ForwardNotification(ctx context.Context, id, agentID string) error {
	body := map[string]string{"agent_id": agentID}
	return c.do(ctx, http.MethodPost, "/api/notifications/"+url.PathEscape(id)+"/forward", body, nil)
}
