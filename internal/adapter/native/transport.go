// Package native implements the client backend on direct TLS-capable sockets.
package native

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"speedrun-api/internal/domain"
	"speedrun-api/internal/infra/config"
	"speedrun-api/internal/infra/logger"
)

// Name identifies this backend in logs and metrics.
const Name = "native"

// Transport performs requests and websocket upgrades over net/http.
type Transport struct {
	client    *http.Client
	tlsConfig *tls.Config
	logger    *slog.Logger
}

// New builds a Transport and its TLS context.
func New(cfg config.TLSConfig, log *slog.Logger) (*Transport, error) {
	tc, err := buildTLSConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("native: %w", err)
	}

	return &Transport{
		client: &http.Client{
			Transport: &http.Transport{
				Proxy:             http.ProxyFromEnvironment,
				TLSClientConfig:   tc,
				ForceAttemptHTTP2: true,
			},
			// Upgraded connections must outlive the request, so no client timeout.
		},
		tlsConfig: tc,
		logger:    logger.Component(log, Name),
	}, nil
}

// NewWithClient wraps an existing *http.Client. The client owns its TLS setup.
func NewWithClient(client *http.Client, log *slog.Logger) *Transport {
	return &Transport{client: client, logger: logger.Component(log, Name)}
}

// Name implements domain.Backend.
func (t *Transport) Name() string { return Name }

// TLSConfig returns the TLS context owned by the transport, or nil when the
// transport wraps a caller-provided client.
func (t *Transport) TLSConfig() *tls.Config { return t.tlsConfig }

// Do implements domain.Backend. It returns once the response head is
// available; the body streams lazily from the connection.
func (t *Transport) Do(ctx context.Context, req *domain.Request) (*domain.Response, error) {
	httpReq, err := t.newHTTPRequest(ctx, req)
	if err != nil {
		return nil, domain.NewTransportError("native.Do", err)
	}

	httpResp, err := t.client.Do(httpReq)
	if err != nil {
		return nil, domain.NewTransportError("native.Do", err)
	}

	t.logger.Debug("response head received",
		"method", httpReq.Method,
		"url", httpReq.URL.Redacted(),
		"status", httpResp.StatusCode,
	)

	return &domain.Response{
		StatusCode: httpResp.StatusCode,
		Header:     httpResp.Header,
		Body:       domain.StreamBody(httpResp.Body),
	}, nil
}

func (t *Transport) newHTTPRequest(ctx context.Context, req *domain.Request) (*http.Request, error) {
	var body io.Reader
	switch req.Body.Kind() {
	case domain.BodyOwned:
		data, _ := req.Body.Peek()
		body = bytes.NewReader(data)
	case domain.BodyHostStream:
		body = req.Body.Reader()
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, req.URL, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if req.Header != nil {
		httpReq.Header = req.Header.Clone()
	}
	return httpReq, nil
}

var _ domain.Backend = (*Transport)(nil)
