package notifyapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/clinicops/notifysync/pkg/logger"
	"github.com/clinicops/notifysync/pkg/notifications"
	"github.com/clinicops/notifysync/pkg/requestid"
)

const (
	maxResponseBytes = 1 << 20
	maxErrorBody     = 1 << 10
)

// Client talks to the notification REST service. It implements notifications.Client.
type Client struct {
	base    *url.URL
	http    *http.Client
	headers http.Header
	logger  *slog.Logger
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(c *http.Client) ClientOption {
	return func(cl *Client) {
		if c != nil {
			cl.http = c
		}
	}
}

// WithTimeout sets a per-request timeout on the default http.Client.
func WithTimeout(d time.Duration) ClientOption {
	return func(cl *Client) { cl.http.Timeout = d }
}

// WithHeader adds a header sent with every request, e.g. Authorization.
func WithHeader(key, value string) ClientOption {
	return func(cl *Client) { cl.headers.Set(key, value) }
}

// WithUser identifies the inbox owner to the reference service.
func WithUser(userID string) ClientOption {
	return WithHeader(UserHeader, userID)
}

// WithClientLogger sets the logger for failed calls.
func WithClientLogger(l *slog.Logger) ClientOption {
	return func(cl *Client) {
		if l != nil {
			cl.logger = l
		}
	}
}

// NewClient returns a Client for the service rooted at baseURL,
// e.g. "https://api.example.com/v1".
func NewClient(baseURL string, opts ...ClientOption) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, errors.Join(ErrInvalidBaseURL, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, ErrInvalidBaseURL
	}

	c := &Client{
		base:    u,
		http:    &http.Client{Timeout: 15 * time.Second},
		headers: make(http.Header),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With(logger.Component("notifyapi.client"))
	return c, nil
}

func (c *Client) List(ctx context.Context, limit int) ([]byte, error) {
	q := url.Values{}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	return c.do(ctx, http.MethodGet, "/notifications", q, nil)
}

func (c *Client) Create(ctx context.Context, in notifications.Input) ([]byte, error) {
	body, err := json.Marshal(in)
	if err != nil {
		return nil, err
	}
	return c.do(ctx, http.MethodPost, "/notifications", nil, body)
}

func (c *Client) Delete(ctx context.Context, id string) error {
	_, err := c.do(ctx, http.MethodDelete, "/notifications/"+url.PathEscape(id), nil, nil)
	return err
}

func (c *Client) MarkRead(ctx context.Context, id string) error {
	_, err := c.do(ctx, http.MethodPatch, "/notifications/"+url.PathEscape(id)+"/read", nil, nil)
	return err
}

func (c *Client) MarkAllRead(ctx context.Context) error {
	_, err := c.do(ctx, http.MethodPatch, "/notifications/read-all", nil, nil)
	return err
}

// UnreadCount asks the service for the server-side unread count.
func (c *Client) UnreadCount(ctx context.Context) (int, error) {
	body, err := c.do(ctx, http.MethodGet, "/notifications/unread-count", nil, nil)
	if err != nil {
		return 0, err
	}
	var resp struct {
		Data struct {
			Count int `json:"count"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return 0, errors.Join(notifications.ErrMalformedPayload, err)
	}
	return resp.Data.Count, nil
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body []byte) ([]byte, error) {
	u := c.base.JoinPath(path)
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), reader)
	if err != nil {
		return nil, err
	}
	for k, v := range c.headers {
		req.Header[k] = v
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	requestid.Inject(ctx, req.Header)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes+1))
	if err != nil {
		return nil, err
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		serr := &StatusError{
			Method: method,
			Path:   path,
			Code:   resp.StatusCode,
			Body:   string(data[:min(len(data), maxErrorBody)]),
		}
		c.logger.LogAttrs(ctx, slog.LevelDebug, "Notification service returned an error status",
			slog.String("method", method),
			slog.String("path", path),
			slog.Int("status_code", resp.StatusCode),
		)
		return nil, serr
	}
	if len(data) > maxResponseBytes {
		return nil, fmt.Errorf("%w: %s %s exceeds %d bytes", ErrResponseTooLarge, method, path, maxResponseBytes)
	}
	return data, nil
}
