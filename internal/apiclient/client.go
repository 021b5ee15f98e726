// Package apiclient talks to the trading backend's REST API.
package apiclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"

	"github.com/freqdash/freqdash/internal/domain"
)

// HTTPError is a non-2xx response from the backend.
type HTTPError struct {
	Method     string
	Path       string
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	body := strings.TrimSpace(e.Body)
	if len(body) > 200 {
		body = body[:200] + "..."
	}
	return fmt.Sprintf("%s %s: http %d: %s", e.Method, e.Path, e.StatusCode, body)
}

// Client is a thin typed wrapper over the backend endpoints.
type Client struct {
	client *resty.Client
}

// New builds a client for baseURL. Retries are disabled: a refresh cycle that fails is
// abandoned, not retried.
func New(baseURL string, timeout time.Duration) *Client {
	baseURL = strings.TrimRight(baseURL, "/")
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetRetryCount(0).
		SetHeader("Accept", "application/json").
		SetHeader("User-Agent", "freqdash")
	return &Client{client: client}
}

// BaseURL returns the configured backend address.
func (c *Client) BaseURL() string {
	return c.client.BaseURL
}

func (c *Client) Trades(ctx context.Context) ([]domain.Trade, error) {
	var out []domain.Trade
	if err := c.do(ctx, http.MethodGet, "/trades", nil, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = []domain.Trade{}
	}
	return out, nil
}

func (c *Client) Strategies(ctx context.Context) ([]domain.Strategy, error) {
	var out []domain.Strategy
	if err := c.do(ctx, http.MethodGet, "/strategies", nil, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = []domain.Strategy{}
	}
	return out, nil
}

func (c *Client) Status(ctx context.Context) (string, error) {
	var out domain.Status
	if err := c.do(ctx, http.MethodGet, "/status", nil, &out); err != nil {
		return "", err
	}
	return out.Status, nil
}

// Start asks the backend to run the named strategy. A nil config is sent as {}.
func (c *Client) Start(ctx context.Context, name string, config map[string]any) error {
	if config == nil {
		config = map[string]any{}
	}
	body := domain.StartRequest{Name: name, Config: config}
	return c.do(ctx, http.MethodPost, "/start", body, nil)
}

// Stop asks the backend to halt the active run. No body is sent.
func (c *Client) Stop(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/stop", nil, nil)
}

func (c *Client) do(ctx context.Context, method, path string, body any, out any) error {
	req := c.client.R().SetContext(ctx)
	if body != nil {
		req.SetHeader("Content-Type", "application/json").SetBody(body)
	}

	resp, err := req.Execute(method, path)
	if err != nil {
		return errors.Wrapf(err, "%s %s", method, path)
	}
	if resp.IsError() || resp.StatusCode() < 200 || resp.StatusCode() >= 300 {
		return errors.WithStack(&HTTPError{
			Method:     method,
			Path:       path,
			StatusCode: resp.StatusCode(),
			Body:       resp.String(),
		})
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(resp.Body(), out); err != nil {
		return errors.Wrapf(err, "%s %s: decode response", method, path)
	}
	return nil
}
