package domain

import (
	"context"
	"net/http"
)

// Request is a single outgoing exchange. It is built per call and not reused.
type Request struct {
	Method string
	URL    string
	Header http.Header
	Body   *Body
}

// NewRequest builds a Request with an empty header map. A nil body is Empty.
func NewRequest(method, url string, body *Body) *Request {
	if method == "" {
		method = http.MethodGet
	}
	if body == nil {
		body = EmptyBody()
	}
	return &Request{
		Method: method,
		URL:    url,
		Header: make(http.Header),
		Body:   body,
	}
}

// Response is a completed exchange head plus its (possibly lazy) body.
// The body is consumed at most once and owned by the caller.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       *Body
}

// Success reports whether the status is 2xx.
func (r *Response) Success() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Backend is the capability contract both transports implement: the native
// socket transport and the host-embedded transport.
type Backend interface {
	// Do performs one request/response exchange and returns once the
	// response head is available.
	Do(ctx context.Context, req *Request) (*Response, error)
	// ConnectWS performs the websocket upgrade and returns an Open stream.
	ConnectWS(ctx context.Context, uri string) (WsStream, error)
	// Name identifies the backend in logs and metrics.
	Name() string
}
