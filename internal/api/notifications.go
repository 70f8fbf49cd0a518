package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"sociogo/client/internal/models"
)

// Notifications fetches one page of the viewer's notification feed. The
// backend binds pagination under a "pageable" prefix here, unlike the other
// list endpoints.
func (c *Client) Notifications(ctx context.Context, page, size int) (*models.NotificationPage, error) {
	q := url.Values{}
	q.Set("pageable.page", strconv.Itoa(page))
	q.Set("pageable.size", strconv.Itoa(size))

	var out models.NotificationPage
	if err := c.get(ctx, "/api/v1/notifications", q, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ReadNotification marks a single notification read.
func (c *Client) ReadNotification(ctx context.Context, notificationID int64) error {
	_, err := c.do(ctx, http.MethodPost, fmt.Sprintf("/api/v1/notifications/%d/read", notificationID), nil, nil)
	return err
}

// DeleteNotification removes a notification.
func (c *Client) DeleteNotification(ctx context.Context, notificationID int64) error {
	_, err := c.do(ctx, http.MethodDelete, fmt.Sprintf("/api/v1/notifications/%d", notificationID), nil, nil)
	return err
}
