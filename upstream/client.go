package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"response-dashboard/models"
)

// Client talks to the upstream emergency API. All responses are normalized
// into the canonical model shapes at this boundary so the rest of the service
// never sees the loose upstream field variants.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// NewClient creates an upstream API client.
func NewClient(baseURL, token string) *Client {
	return &Client{
		baseURL: baseURL,
		token:   token,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// ListAllReports fetches the full report list.
func (c *Client) ListAllReports(ctx context.Context) ([]models.Report, error) {
	var raw []models.RawReport
	if err := c.getJSON(ctx, "/api/reports", &raw); err != nil {
		return nil, fmt.Errorf("failed to list reports: %w", err)
	}
	reports := make([]models.Report, 0, len(raw))
	for _, r := range raw {
		reports = append(reports, models.NormalizeReport(r))
	}
	return reports, nil
}

// ListNotifications fetches the full notification list for a user.
func (c *Client) ListNotifications(ctx context.Context, userID string) ([]models.Notification, error) {
	path := "/api/notifications?userId=" + url.QueryEscape(userID)
	var raw []models.RawNotification
	if err := c.getJSON(ctx, path, &raw); err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	notifications := make([]models.Notification, 0, len(raw))
	for _, n := range raw {
		notifications = append(notifications, models.NormalizeNotification(n))
	}
	return notifications, nil
}

// MarkNotificationRead marks a single raw notification read or unread.
func (c *Client) MarkNotificationRead(ctx context.Context, id string, read bool) error {
	body := map[string]bool{"read": read}
	path := "/api/notifications/" + url.PathEscape(id) + "/read"
	if err := c.do(ctx, http.MethodPost, path, body); err != nil {
		return fmt.Errorf("failed to mark notification %s read=%t: %w", id, read, err)
	}
	return nil
}

// DeleteNotification deletes a single raw notification.
func (c *Client) DeleteNotification(ctx context.Context, id string) error {
	path := "/api/notifications/" + url.PathEscape(id)
	if err := c.do(ctx, http.MethodDelete, path, nil); err != nil {
		return fmt.Errorf("failed to delete notification %s: %w", id, err)
	}
	return nil
}

// MarkAllNotificationsRead marks every notification for a user read.
func (c *Client) MarkAllNotificationsRead(ctx context.Context, userID string) error {
	path := "/api/notifications/read-all?userId=" + url.QueryEscape(userID)
	if err := c.do(ctx, http.MethodPost, path, nil); err != nil {
		return fmt.Errorf("failed to mark all notifications read: %w", err)
	}
	return nil
}

// getJSON performs a GET and decodes the JSON response into out.
func (c *Client) getJSON(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("upstream returned status %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode upstream response: %w", err)
	}
	return nil
}

// do performs a mutating request with an optional JSON body and drains the
// response.
func (c *Client) do(ctx context.Context, method, path string, body interface{}) error {
	var reader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		reader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	c.setHeaders(req)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("upstream returned status %d", resp.StatusCode)
	}
	return nil
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
}
