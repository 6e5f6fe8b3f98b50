package embedded

import (
	"context"
	"log/slog"
	"maps"
	"net/http"
	"slices"

	"speedrun-api/internal/domain"
	"speedrun-api/internal/infra/logger"
)

// Name identifies this backend in logs and metrics.
const Name = "embedded"

// Transport adapts a Host to domain.Backend.
type Transport struct {
	host   Host
	logger *slog.Logger
}

func New(host Host, log *slog.Logger) *Transport {
	return &Transport{host: host, logger: logger.Component(log, Name)}
}

// Name implements domain.Backend.
func (t *Transport) Name() string { return Name }

// Do implements domain.Backend. The response body is copied into an owned
// buffer before Do returns.
func (t *Transport) Do(ctx context.Context, req *domain.Request) (*domain.Response, error) {
	const op = "embedded.Do"

	if !t.host.HasFetch() {
		return nil, domain.NewNoWindowError(op)
	}

	headers := t.host.NewHeaders()
	for _, name := range slices.Sorted(maps.Keys(req.Header)) {
		for _, value := range req.Header[name] {
			if err := checkHeader(name, value); err != nil {
				return nil, domain.NewForbiddenHeaderError(op, name, err)
			}
			if err := headers.Append(name, value); err != nil {
				return nil, domain.NewForbiddenHeaderError(op, name, err)
			}
		}
	}

	body, err := req.Body.Bytes()
	if err != nil {
		return nil, domain.NewTransportError(op, err)
	}

	method := req.Method
	if method == "" {
		method = http.MethodGet
	}

	resp, err := t.host.Fetch(ctx, &FetchRequest{
		Method:  method,
		URL:     req.URL,
		Headers: headers,
		Body:    body,
	})
	if err != nil {
		return nil, domain.NewTransportError(op, err)
	}

	header := resp.Header
	if header == nil {
		header = make(http.Header)
	}

	t.logger.Debug("fetch completed", "method", method, "status", resp.Status, "bytes", len(resp.Body))

	return &domain.Response{
		StatusCode: resp.Status,
		Header:     header,
		Body:       domain.NewBody(resp.Body),
	}, nil
}

var _ domain.Backend = (*Transport)(nil)
