package embedded

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"

	"speedrun-api/internal/domain"
)

type eventKind int

const (
	eventOpen eventKind = iota
	eventClose
	eventError
)

// lifecycleEvent is one of the three host lifecycle callbacks.
type lifecycleEvent struct {
	kind   eventKind
	code   int
	reason string
	err    error
}

var errHostSocket = errors.New("host websocket error event")

func (ev lifecycleEvent) asError(op string) error {
	if ev.kind == eventClose {
		return domain.NewClosedError(op, ev.code, ev.reason)
	}
	cause := ev.err
	if cause == nil {
		cause = errHostSocket
	}
	return domain.NewTransportError(op, cause)
}

// ConnectWS implements domain.Backend. It races the socket's first lifecycle
// event: open yields a stream, close or error fails the connect and leaves
// nothing behind. Messages that arrive before open are queued and delivered
// after it, in arrival order.
func (t *Transport) ConnectWS(ctx context.Context, uri string) (domain.WsStream, error) {
	const op = "embedded.ConnectWS"

	sock, err := t.host.NewSocket(uri)
	if err != nil {
		return nil, domain.NewTransportError(op, err)
	}

	s := newStream(sock, t.logger)
	sock.SetHandlers(s.handlers())

	select {
	case ev := <-s.events:
		if ev.kind == eventOpen {
			s.state.CompareAndSwap(int32(domain.WsConnecting), int32(domain.WsOpen))
			t.logger.Debug("websocket open", "url", uri)
			return s, nil
		}
		s.release(false)
		t.logger.Debug("websocket connect failed", "url", uri, "event", ev.kind)
		return nil, ev.asError(op)
	case <-ctx.Done():
		s.release(true)
		return nil, domain.NewTransportError(op, ctx.Err())
	}
}

// stream is the embedded WsStream. Host callbacks feed two channels: events
// carries open, close and error (each at most once, so it never fills) and
// inbox carries messages. Recv drains the inbox before reporting an event.
type stream struct {
	sock   Socket
	logger *slog.Logger
	inbox  *inbox
	events chan lifecycleEvent

	state    atomic.Int32
	detached atomic.Bool
	local    atomic.Bool // released by Close rather than by a terminal event
	once     sync.Once

	fired [3]atomic.Bool

	// Owned by the Recv caller.
	pending *lifecycleEvent
	ended   bool
}

func newStream(sock Socket, log *slog.Logger) *stream {
	s := &stream{
		sock:   sock,
		logger: log,
		inbox:  newInbox(),
		events: make(chan lifecycleEvent, 3),
	}
	s.state.Store(int32(domain.WsConnecting))
	return s
}

func (s *stream) handlers() Handlers {
	return Handlers{
		OnOpen: func() {
			s.emit(lifecycleEvent{kind: eventOpen})
		},
		OnMessage: func(msg domain.Message) {
			if s.detached.Load() {
				return
			}
			s.inbox.push(msg)
		},
		OnClose: func(code int, reason string) {
			if s.detached.Load() {
				return
			}
			s.state.Store(int32(domain.WsClosed))
			s.emit(lifecycleEvent{kind: eventClose, code: code, reason: reason})
		},
		OnError: func(err error) {
			s.emit(lifecycleEvent{kind: eventError, err: err})
		},
	}
}

func (s *stream) emit(ev lifecycleEvent) {
	if s.detached.Load() || s.fired[ev.kind].Swap(true) {
		return
	}
	s.events <- ev
}

func (s *stream) State() domain.WsState { return domain.WsState(s.state.Load()) }

// Recv implements domain.WsStream. A cancelled ctx returns its error without
// ending the stream.
func (s *stream) Recv(ctx context.Context) (domain.Message, error) {
	for {
		if s.ended || s.local.Load() {
			return domain.Message{}, io.EOF
		}
		if msg, ok := s.inbox.pop(); ok {
			return msg, nil
		}
		if s.pending != nil {
			ev := *s.pending
			s.pending = nil
			return domain.Message{}, s.terminate(ev)
		}
		if s.detached.Load() {
			// Released: deliver terminal events that were already queued.
			select {
			case ev := <-s.events:
				if ev.kind != eventOpen {
					return domain.Message{}, s.terminate(ev)
				}
				continue
			default:
				s.ended = true
				return domain.Message{}, io.EOF
			}
		}

		select {
		case <-s.inbox.ready():
		case ev := <-s.events:
			if ev.kind != eventOpen {
				// Messages queued before the event go first.
				s.pending = &ev
			}
		case <-ctx.Done():
			return domain.Message{}, domain.NewTransportError("embedded.Recv", ctx.Err())
		}
	}
}

// terminate reports ev and releases the host socket; events already queued
// behind it are still delivered by later calls.
func (s *stream) terminate(ev lifecycleEvent) error {
	s.release(false)
	s.logger.Debug("websocket ended", "event", ev.kind)
	return ev.asError("embedded.Recv")
}

// Send implements domain.WsStream. Only Text is supported.
func (s *stream) Send(_ context.Context, msg domain.Message) error {
	const op = "embedded.Send"

	if s.State() != domain.WsOpen {
		return domain.NewSendError(op, domain.ErrNotOpen)
	}
	if msg.Type != domain.MessageText {
		return domain.NewSendError(op, domain.ErrBinaryUnsupported)
	}
	if err := s.sock.SendText(string(msg.Data)); err != nil {
		return domain.NewSendError(op, err)
	}
	return nil
}

// Close implements domain.WsStream. Recv returns io.EOF afterwards.
func (s *stream) Close() error {
	s.release(true)
	return nil
}

// release detaches the callbacks and closes the host socket, exactly once.
func (s *stream) release(local bool) {
	s.once.Do(func() {
		s.local.Store(local)
		s.detached.Store(true)
		s.state.Store(int32(domain.WsClosed))
		s.sock.ClearHandlers()
		if err := s.sock.Close(); err != nil {
			s.logger.Debug("host socket close failed", "error", err)
		}
	})
}

func (k eventKind) String() string {
	switch k {
	case eventOpen:
		return "open"
	case eventClose:
		return "close"
	default:
		return "error"
	}
}

var _ domain.WsStream = (*stream)(nil)
