// Package embedded implements the client backend on top of a host runtime's
// fetch and WebSocket capabilities, for targets without raw socket access.
package embedded

import (
	"context"
	"net/http"

	"speedrun-api/internal/domain"
)

// Host is the embedding runtime. Under js/wasm it is the browser-like global
// scope; tests substitute an in-memory fake.
type Host interface {
	// HasFetch reports whether the global scope offers a fetch capability.
	HasFetch() bool
	// NewHeaders creates the host's header collection for one request.
	NewHeaders() HeaderList
	// Fetch performs one exchange and returns once the whole body has been
	// received. Cancelling ctx aborts the host request.
	Fetch(ctx context.Context, req *FetchRequest) (*FetchResponse, error)
	// NewSocket constructs a host WebSocket. No event fires before
	// SetHandlers is called on the returned socket.
	NewSocket(url string) (Socket, error)
}

// HeaderList is the host's request header collection.
type HeaderList interface {
	Append(name, value string) error
}

type FetchRequest struct {
	Method  string
	URL     string
	Headers HeaderList
	Body    []byte
}

// FetchResponse is a completed host exchange. Body is owned by the caller.
type FetchResponse struct {
	Status int
	Header http.Header
	Body   []byte
}

// Socket is a host WebSocket object.
type Socket interface {
	SetHandlers(h Handlers)
	ClearHandlers()
	SendText(text string) error
	Close() error
}

// Handlers are the four lifecycle callbacks of a host socket. They are
// invoked from the host's event loop and must not block.
type Handlers struct {
	OnOpen    func()
	OnMessage func(msg domain.Message)
	OnClose   func(code int, reason string)
	OnError   func(err error)
}
