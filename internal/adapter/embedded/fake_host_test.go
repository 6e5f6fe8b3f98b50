package embedded

import (
	"context"
	"errors"
	"sync"

	"speedrun-api/internal/domain"
)

// fakeHost is an in-memory Host.
type fakeHost struct {
	noFetch      bool
	rejectHeader string
	fetch        func(ctx context.Context, req *FetchRequest) (*FetchResponse, error)
	socketErr    error
	script       func(s *fakeSocket)

	mu      sync.Mutex
	fetched []*FetchRequest
	sockets []*fakeSocket
}

func (h *fakeHost) HasFetch() bool { return !h.noFetch }

func (h *fakeHost) NewHeaders() HeaderList {
	return &fakeHeaders{reject: h.rejectHeader}
}

func (h *fakeHost) Fetch(ctx context.Context, req *FetchRequest) (*FetchResponse, error) {
	h.mu.Lock()
	h.fetched = append(h.fetched, req)
	h.mu.Unlock()
	if h.fetch == nil {
		return &FetchResponse{Status: 200}, nil
	}
	return h.fetch(ctx, req)
}

func (h *fakeHost) NewSocket(url string) (Socket, error) {
	if h.socketErr != nil {
		return nil, h.socketErr
	}
	s := &fakeSocket{url: url, script: h.script}
	h.mu.Lock()
	h.sockets = append(h.sockets, s)
	h.mu.Unlock()
	return s, nil
}

func (h *fakeHost) fetchCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.fetched)
}

var errHostRejected = errors.New("TypeError: invalid header")

type fakeHeaders struct {
	reject string
	pairs  [][2]string
}

func (hs *fakeHeaders) Append(name, value string) error {
	if name == hs.reject {
		return errHostRejected
	}
	hs.pairs = append(hs.pairs, [2]string{name, value})
	return nil
}

// fakeSocket keeps its handlers after ClearHandlers so tests can emulate
// events the host had already queued.
type fakeSocket struct {
	url    string
	script func(s *fakeSocket)

	mu      sync.Mutex
	h       Handlers
	cleared bool
	closes  int
	sent    []string
	sendErr error
}

func (s *fakeSocket) SetHandlers(h Handlers) {
	s.mu.Lock()
	s.h = h
	s.mu.Unlock()
	if s.script != nil {
		s.script(s)
	}
}

func (s *fakeSocket) ClearHandlers() {
	s.mu.Lock()
	s.cleared = true
	s.mu.Unlock()
}

func (s *fakeSocket) SendText(text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sendErr != nil {
		return s.sendErr
	}
	s.sent = append(s.sent, text)
	return nil
}

func (s *fakeSocket) Close() error {
	s.mu.Lock()
	s.closes++
	s.mu.Unlock()
	return nil
}

func (s *fakeSocket) handlers() Handlers {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.h
}

func (s *fakeSocket) open() { s.handlers().OnOpen() }
func (s *fakeSocket) message(text string) { s.handlers().OnMessage(domain.TextMessage(text)) }
func (s *fakeSocket) close(c int, r string) { s.handlers().OnClose(c, r) }
func (s *fakeSocket) fail(err error) { s.handlers().OnError(err) }
func (s *fakeSocket) binary(p []byte) { s.handlers().OnMessage(domain.BinaryMessage(p)) }

func (s *fakeSocket) stats() (closes int, cleared bool, sent []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closes, s.cleared, append([]string(nil), s.sent...)
}
