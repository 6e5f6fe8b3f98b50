package domain

import (
	"bytes"
	"io"
	"sync"
)

// BodyKind tags the representation backing a Body.
type BodyKind int

const (
	BodyEmpty BodyKind = iota
	BodyOwned
	BodyHostStream
)

func (k BodyKind) String() string {
	switch k {
	case BodyOwned:
		return "owned"
	case BodyHostStream:
		return "host-stream"
	default:
		return "empty"
	}
}

// Body is a message payload: empty, fully materialized, or backed by a
// backend-native stream. A Body is not rewindable: after the first Bytes or
// Reader call further reads observe an empty payload. A nil *Body is Empty.
type Body struct {
	mu       sync.Mutex
	kind     BodyKind
	data     []byte
	stream   io.ReadCloser
	consumed bool
}

// EmptyBody returns a Body with no payload.
func EmptyBody() *Body { return &Body{kind: BodyEmpty} }

// NewBody returns an owned Body. A nil slice yields an Empty body.
func NewBody(data []byte) *Body {
	if data == nil {
		return EmptyBody()
	}
	return &Body{kind: BodyOwned, data: data}
}

// StreamBody wraps a backend-native stream. The Body takes ownership of rc.
func StreamBody(rc io.ReadCloser) *Body {
	if rc == nil {
		return EmptyBody()
	}
	return &Body{kind: BodyHostStream, stream: rc}
}

// Kind reports the body's representation.
func (b *Body) Kind() BodyKind {
	if b == nil {
		return BodyEmpty
	}
	return b.kind
}

// Bytes drains the body into memory. A stream body is closed once drained.
func (b *Body) Bytes() ([]byte, error) {
	if b == nil {
		return nil, nil
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.consumed {
		return nil, nil
	}
	b.consumed = true

	switch b.kind {
	case BodyOwned:
		data := b.data
		b.data = nil
		return data, nil
	case BodyHostStream:
		rc := b.stream
		b.stream = nil
		defer rc.Close()
		return io.ReadAll(rc)
	default:
		return nil, nil
	}
}

// Reader returns a reader over the remaining payload. For a stream body the
// caller should Close the Body when done.
func (b *Body) Reader() io.Reader {
	if b == nil {
		return bytes.NewReader(nil)
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.consumed {
		return bytes.NewReader(nil)
	}
	b.consumed = true

	switch b.kind {
	case BodyOwned:
		data := b.data
		b.data = nil
		return bytes.NewReader(data)
	case BodyHostStream:
		return b.stream
	default:
		return bytes.NewReader(nil)
	}
}

// Peek returns the owned bytes without consuming them. It reports false for
// Empty and stream bodies, and for bodies that were already consumed.
func (b *Body) Peek() ([]byte, bool) {
	if b == nil {
		return nil, false
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.kind != BodyOwned || b.consumed {
		return nil, false
	}
	return b.data, true
}

// Len returns the owned payload length, or -1 when unknown.
func (b *Body) Len() int64 {
	switch b.Kind() {
	case BodyEmpty:
		return 0
	case BodyOwned:
		if data, ok := b.Peek(); ok {
			return int64(len(data))
		}
		return 0
	default:
		return -1
	}
}

// Close releases a stream body. It is safe to call more than once.
func (b *Body) Close() error {
	if b == nil {
		return nil
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.kind != BodyHostStream {
		b.consumed = true
		b.data = nil
		return nil
	}
	if b.stream == nil {
		return nil
	}
	err := b.stream.Close()
	b.stream = nil
	b.consumed = true
	return err
}
