// Package client is a typed HTTP client for the event platform API.  It
// backs the eventctl command and can be used by integrations.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/iliyamo/event-platform/internal/model"
)

// APIError is a non-2xx answer.  Message is the "error" field of the body
// when present.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error: status=%d: %s", e.Status, e.Message)
}

// IsStatus reports whether err is an APIError with the given status.
func IsStatus(err error, status int) bool {
	var ae *APIError
	return errors.As(err, &ae) && ae.Status == status
}

// Client is safe for concurrent use.
type Client struct {
	baseURL    string
	httpClient *http.Client

	mu    sync.RWMutex
	token string
}

// New returns a client for baseURL, e.g. "http://localhost:8080".
func New(baseURL string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// SetToken sets the bearer token sent with every request.
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

func (c *Client) do(ctx context.Context, method, path string, body any) (*http.Response, error) {
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request: %w", err)
		}
		r = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, r)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if tok := c.Token(); tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 400 {
		defer resp.Body.Close()
		return nil, apiError(resp)
	}
	return resp, nil
}

func apiError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	var body struct {
		Error string `json:"error"`
	}
	msg := strings.TrimSpace(string(raw))
	if json.Unmarshal(raw, &body) == nil && body.Error != "" {
		msg = body.Error
	}
	return &APIError{Status: resp.StatusCode, Message: msg}
}

// call sends body and decodes the answer into out (which may be nil).
func (c *Client) call(ctx context.Context, method, path string, body, out any) error {
	resp, err := c.do(ctx, method, path, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// Session is the answer of login and register.
type Session struct {
	User   *model.User `json:"user"`
	Access struct {
		Token   string    `json:"token"`
		Expires time.Time `json:"expires"`
	} `json:"access"`
	Refresh struct {
		Token   string    `json:"token"`
		Expires time.Time `json:"expires"`
	} `json:"refresh"`
}

// Login signs in and keeps the access token for later calls.
func (c *Client) Login(ctx context.Context, email, password string) (*Session, error) {
	var s Session
	err := c.call(ctx, http.MethodPost, "/v1/auth/login", map[string]string{"email": email, "password": password}, &s)
	if err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}
	c.SetToken(s.Access.Token)
	return &s, nil
}

// Notifications lists the inbox, newest first.
func (c *Client) Notifications(ctx context.Context, unreadOnly bool) ([]*model.Notification, error) {
	path := "/v1/notifications"
	if unreadOnly {
		path += "?unread=true"
	}
	var out struct {
		Items []*model.Notification `json:"items"`
	}
	if err := c.call(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	return out.Items, nil
}

// SetRead marks one notification read or unread.
func (c *Client) SetRead(ctx context.Context, id uint64, isRead bool) (*model.Notification, error) {
	var n model.Notification
	err := c.call(ctx, http.MethodPatch, fmt.Sprintf("/v1/notifications/%d", id), map[string]bool{"is_read": isRead}, &n)
	if err != nil {
		return nil, fmt.Errorf("set read: %w", err)
	}
	return &n, nil
}

func (c *Client) UnreadCount(ctx context.Context) (int, error) {
	var out struct {
		UnreadCount int `json:"unread_count"`
	}
	if err := c.call(ctx, http.MethodGet, "/v1/notifications/unread-count", nil, &out); err != nil {
		return 0, fmt.Errorf("unread count: %w", err)
	}
	return out.UnreadCount, nil
}

func (c *Client) MarkAllRead(ctx context.Context) (int64, error) {
	var out struct {
		Updated int64 `json:"updated"`
	}
	if err := c.call(ctx, http.MethodPost, "/v1/notifications/read-all", nil, &out); err != nil {
		return 0, fmt.Errorf("mark all read: %w", err)
	}
	return out.Updated, nil
}

// ExportSurveyCSV copies the survey export of an event to w.
func (c *Client) ExportSurveyCSV(ctx context.Context, eventID uint64, w io.Writer) error {
	resp, err := c.do(ctx, http.MethodGet, fmt.Sprintf("/v1/events/%d/survey/export.csv", eventID), nil)
	if err != nil {
		return fmt.Errorf("export survey: %w", err)
	}
	defer resp.Body.Close()
	if _, err := io.Copy(w, resp.Body); err != nil {
		return fmt.Errorf("export survey: %w", err)
	}
	return nil
}
