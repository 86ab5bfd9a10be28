// Package status reports whether the site is in maintenance mode.
package status

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// States reported by the status endpoint.
const (
	StateOperational = "operational"
	StateDegraded    = "degraded"
	StateMaintenance = "maintenance"
)

// Summary is the current platform state.
type Summary struct {
	State     string
	Message   string
	UpdatedAt time.Time
}

// Maintenance reports whether pages should be redirected to the maintenance page.
func (s Summary) Maintenance() bool { return s.State == StateMaintenance }

// Client reads the status endpoint with a TTL cache. Without a URL it only
// serves the forced state.
type Client struct {
	url    string
	forced bool
	ttl    time.Duration
	http   *http.Client
	now    func() time.Time
	logger *zap.Logger

	mu      sync.Mutex
	cached  Summary
	expires time.Time
}

// Option customises a Client.
type Option func(*Client)

// WithForcedMaintenance pins the state to maintenance regardless of the endpoint.
func WithForcedMaintenance(on bool) Option {
	return func(c *Client) { c.forced = on }
}

// WithTTL sets the cache lifetime.
func WithTTL(ttl time.Duration) Option {
	return func(c *Client) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithNow injects the clock.
func WithNow(now func() time.Time) Option {
	return func(c *Client) {
		if now != nil {
			c.now = now
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewClient builds a status client for url.
func NewClient(url string, opts ...Option) *Client {
	c := &Client{
		url:    strings.TrimSpace(url),
		ttl:    30 * time.Second,
		http:   &http.Client{Timeout: 3 * time.Second},
		now:    time.Now,
		logger: zap.NewNop(),
		cached: Summary{State: StateOperational},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

// Summary returns the cached state, refreshing it once the TTL has passed.
// A failed refresh keeps the previous state.
func (c *Client) Summary(ctx context.Context) Summary {
	if c.forced {
		return Summary{State: StateMaintenance, UpdatedAt: c.now()}
	}
	if c.url == "" {
		return Summary{State: StateOperational}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	if now.Before(c.expires) {
		return c.cached
	}
	summary, err := c.fetch(ctx)
	c.expires = now.Add(c.ttl)
	if err != nil {
		c.logger.Warn("status refresh failed", zap.Error(err), zap.String("state", c.cached.State))
		return c.cached
	}
	if summary.State != c.cached.State {
		c.logger.Info("status changed", zap.String("from", c.cached.State), zap.String("to", summary.State))
	}
	c.cached = summary
	return summary
}

// Maintenance is shorthand for Summary(ctx).Maintenance().
func (c *Client) Maintenance(ctx context.Context) bool {
	return c.Summary(ctx).Maintenance()
}

type remoteSummary struct {
	State     string `json:"state"`
	Message   string `json:"message"`
	UpdatedAt string `json:"updated_at"`
}

func (c *Client) fetch(ctx context.Context) (Summary, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return Summary{}, err
	}
	req.Header.Set("Accept", "application/json")
	resp, err := c.http.Do(req)
	if err != nil {
		return Summary{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return Summary{}, fmt.Errorf("status: remote status %d", resp.StatusCode)
	}
	var raw remoteSummary
	if err := json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&raw); err != nil {
		return Summary{}, fmt.Errorf("status: decode: %w", err)
	}
	state := strings.ToLower(strings.TrimSpace(raw.State))
	switch state {
	case StateOperational, StateDegraded, StateMaintenance:
	case "":
		state = StateOperational
	default:
		return Summary{}, fmt.Errorf("status: unknown state %q", raw.State)
	}
	summary := Summary{State: state, Message: strings.TrimSpace(raw.Message)}
	if t, err := time.Parse(time.RFC3339, strings.TrimSpace(raw.UpdatedAt)); err == nil {
		summary.UpdatedAt = t
	}
	return summary, nil
}
