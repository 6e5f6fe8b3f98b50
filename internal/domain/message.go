package domain

import "context"

// MessageType distinguishes websocket data frames.
type MessageType int

const (
	MessageText MessageType = iota + 1
	MessageBinary
)

func (t MessageType) String() string {
	switch t {
	case MessageText:
		return "text"
	case MessageBinary:
		return "binary"
	default:
		return "unknown"
	}
}

// Message is one websocket data message.
type Message struct {
	Type MessageType
	Data []byte
}

// TextMessage builds a Text message.
func TextMessage(s string) Message {
	return Message{Type: MessageText, Data: []byte(s)}
}

// BinaryMessage builds a Binary message.
func BinaryMessage(p []byte) Message {
	return Message{Type: MessageBinary, Data: p}
}

// Text returns the payload as a string.
func (m Message) Text() string { return string(m.Data) }

// WsState is the lifecycle state of a stream.
type WsState int32

const (
	WsConnecting WsState = iota
	WsOpen
	WsClosed
)

func (s WsState) String() string {
	switch s {
	case WsConnecting:
		return "connecting"
	case WsOpen:
		return "open"
	default:
		return "closed"
	}
}

// WsStream is a live upgraded connection with a single logical consumer.
//
// Recv returns inbound messages in arrival order. The event that ends the
// stream is reported exactly once: a close handshake as an ErrClosed error
// carrying a *CloseError, a failure as an ErrTransport error. After that Recv
// returns io.EOF. A cancelled ctx makes Recv return ctx.Err() wrapped in
// ErrTransport; whether the stream survives that depends on the backend.
//
// Close releases the backend connection exactly once; calling it again, or
// after the stream ended on its own, is a no-op.
type WsStream interface {
	Recv(ctx context.Context) (Message, error)
	Send(ctx context.Context, msg Message) error
	Close() error
	State() WsState
}
