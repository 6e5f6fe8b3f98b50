// Package srapi is the core of the speedrun.com API client: one request and
// websocket contract served by the backend compiled in for the target.
//
// Native targets talk to the network through net/http with a TLS context the
// client owns; js/wasm targets go through the host's fetch and WebSocket.
//
// Example:
//
//	c, err := srapi.New(srapi.WithRateLimit(100))
//	if err != nil { ... }
//	c.SetAccessToken(token)
//	games, err := srapi.GetJSON[GameList](ctx, c, srapi.NewRequest("", c.URL("games"), nil))
package srapi

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/oklog/ulid/v2"
	"golang.org/x/net/http/httpguts"
	"golang.org/x/time/rate"

	"speedrun-api/internal/domain"
	"speedrun-api/internal/infra/config"
	"speedrun-api/internal/infra/logger"
	"speedrun-api/internal/infra/metrics"
	"speedrun-api/internal/infra/tracer"
)

// Client owns one backend and an optional access token.
type Client struct {
	backend   domain.Backend
	token     atomic.Pointer[string]
	baseURL   string
	userAgent string
	tls       config.TLSConfig
	limiter   *rate.Limiter
	metrics   *metrics.Collector
	logger    *slog.Logger
}

// New creates a Client. The default backend, including the native TLS
// context, is built here once.
func New(opts ...Option) (*Client, error) {
	c := &Client{
		baseURL: config.DefaultBaseURL,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = logger.Component(c.logger, "srapi")

	if c.backend == nil {
		b, err := newDefaultBackend(c.tls, c.logger)
		if err != nil {
			return nil, err
		}
		c.backend = b
	}
	return c, nil
}

// NewFromConfig creates a Client from loaded configuration; opts are applied
// after the configured values.
func NewFromConfig(cfg *config.Config, opts ...Option) (*Client, error) {
	base := []Option{
		WithBaseURL(cfg.API.BaseURL),
		WithUserAgent(cfg.API.UserAgent),
		WithTLS(cfg.TLS),
		WithRateLimit(cfg.API.RateLimitPerMinute),
	}
	c, err := New(append(base, opts...)...)
	if err != nil {
		return nil, err
	}
	if cfg.API.AccessToken != "" {
		c.SetAccessToken(cfg.API.AccessToken)
	}
	return c, nil
}

// SetAccessToken stores the bearer token attached to later requests.
// The last call wins; the token is not validated here.
func (c *Client) SetAccessToken(token string) {
	v := "Bearer " + token
	c.token.Store(&v)
}

// Backend returns the backend the client delegates to.
func (c *Client) Backend() Backend { return c.backend }

// URL resolves path against the configured base URL. Absolute URLs are
// returned unchanged.
func (c *Client) URL(path string) string {
	if strings.Contains(path, "://") {
		return path
	}
	return strings.TrimRight(c.baseURL, "/") + "/" + strings.TrimLeft(path, "/")
}

// Request performs req on the backend and returns the raw response; it does
// not classify the status. A stored token overwrites any Authorization
// header. A token that is not a valid header value is skipped.
func (c *Client) Request(ctx context.Context, req *Request) (*Response, error) {
	const op = "srapi.Request"

	id := ulid.Make().String()
	log := c.logger.With("request_id", id)

	if req.Header == nil {
		req.Header = make(http.Header)
	}
	if tok := c.token.Load(); tok != nil {
		if httpguts.ValidHeaderFieldValue(*tok) {
			req.Header.Set("Authorization", *tok)
		} else {
			log.Warn("access token is not a valid header value; sending request without it")
		}
	}
	if c.userAgent != "" && req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	method := req.Method
	if method == "" {
		method = http.MethodGet
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, domain.NewTransportError(op, err)
		}
	}

	name := c.backend.Name()
	ctx, span := tracer.StartSpan(ctx, op,
		tracer.AttrBackend.String(name),
		tracer.AttrRequestID.String(id),
		tracer.AttrMethod.String(method),
		tracer.AttrURL.String(req.URL),
	)
	defer span.End()

	log.Debug("request started", "method", method, "url", req.URL, "backend", name)
	start := time.Now()

	resp, err := c.backend.Do(ctx, req)
	elapsed := time.Since(start)
	if err != nil {
		err = asTransport(op, err)
		c.metrics.ObserveRequest(name, method, 0, err, elapsed)
		tracer.RecordError(span, err)
		log.Debug("request failed", "error", err, "code", domain.CodeOf(err))
		return nil, err
	}

	c.metrics.ObserveRequest(name, method, resp.StatusCode, nil, elapsed)
	span.SetAttributes(tracer.AttrStatusCode.Int(resp.StatusCode))
	tracer.SetOK(span)
	log.Debug("request finished", "status", resp.StatusCode, "elapsed", elapsed)
	return resp, nil
}

// ConnectWS upgrades uri to a websocket on the backend.
func (c *Client) ConnectWS(ctx context.Context, uri string) (WsStream, error) {
	const op = "srapi.ConnectWS"

	id := ulid.Make().String()
	name := c.backend.Name()
	ctx, span := tracer.StartSpan(ctx, op,
		tracer.AttrBackend.String(name),
		tracer.AttrRequestID.String(id),
		tracer.AttrURL.String(uri),
	)
	defer span.End()

	s, err := c.backend.ConnectWS(ctx, uri)
	if err != nil {
		err = asTransport(op, err)
	}
	c.metrics.ObserveConnect(name, err)
	if err != nil {
		tracer.RecordError(span, err)
		c.logger.Debug("websocket connect failed", "request_id", id, "url", uri, "error", err)
		return nil, err
	}

	tracer.SetOK(span)
	c.logger.Debug("websocket connected", "request_id", id, "url", uri)
	return &instrumentedStream{WsStream: s, backend: name, metrics: c.metrics}, nil
}

// asTransport keeps taxonomy errors as they are and files anything else
// under ErrTransport.
func asTransport(op string, err error) error {
	var de *domain.Error
	if errors.As(err, &de) {
		return err
	}
	return domain.NewTransportError(op, err)
}

// instrumentedStream counts messages and the stream's release.
type instrumentedStream struct {
	WsStream
	backend string
	metrics *metrics.Collector
	once    sync.Once
}

func (s *instrumentedStream) Recv(ctx context.Context) (Message, error) {
	msg, err := s.WsStream.Recv(ctx)
	if err == nil {
		s.metrics.ObserveMessage(s.backend, "in")
		return msg, nil
	}
	if s.WsStream.State() == domain.WsClosed {
		s.closed()
	}
	return msg, err
}

func (s *instrumentedStream) Send(ctx context.Context, msg Message) error {
	if err := s.WsStream.Send(ctx, msg); err != nil {
		return err
	}
	s.metrics.ObserveMessage(s.backend, "out")
	return nil
}

func (s *instrumentedStream) Close() error {
	err := s.WsStream.Close()
	s.closed()
	return err
}

func (s *instrumentedStream) closed() {
	s.once.Do(func() { s.metrics.StreamClosed(s.backend) })
}
