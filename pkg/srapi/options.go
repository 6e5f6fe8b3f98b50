package srapi

import (
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	"speedrun-api/internal/infra/metrics"
)

// Option configures a Client.
type Option func(*Client)

// WithLogger sets a custom slog.Logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// WithBaseURL sets the root that relative paths passed to URL resolve against.
func WithBaseURL(base string) Option {
	return func(c *Client) { c.baseURL = base }
}

// WithUserAgent sets the User-Agent sent when a request carries none.
func WithUserAgent(ua string) Option {
	return func(c *Client) { c.userAgent = ua }
}

// WithTLS configures the TLS context of the native backend. The embedded
// backend ignores it; the host owns TLS there.
func WithTLS(cfg TLSConfig) Option {
	return func(c *Client) { c.tls = cfg }
}

// WithBackend replaces the backend compiled in for the target.
func WithBackend(b Backend) Option {
	return func(c *Client) { c.backend = b }
}

// WithRateLimit paces requests to at most perMinute. Zero disables pacing.
func WithRateLimit(perMinute int) Option {
	return func(c *Client) {
		if perMinute <= 0 {
			c.limiter = nil
			return
		}
		c.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), 1)
	}
}

// WithMetrics records request and websocket instruments on m.
func WithMetrics(m *metrics.Collector) Option {
	return func(c *Client) { c.metrics = m }
}
