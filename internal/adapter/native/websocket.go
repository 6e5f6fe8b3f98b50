package native

import (
	"bufio"
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"sync/atomic"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"

	"speedrun-api/internal/domain"
)

// ConnectWS implements domain.Backend. It performs the HTTP/1.1 upgrade
// through the transport's client and frames the upgraded connection itself.
// The server's Sec-WebSocket-Accept value is not verified.
func (t *Transport) ConnectWS(ctx context.Context, uri string) (domain.WsStream, error) {
	target, err := upgradeURL(uri)
	if err != nil {
		return nil, domain.NewTransportError("native.ConnectWS", err)
	}

	key, err := newHandshakeKey()
	if err != nil {
		return nil, domain.NewTransportError("native.ConnectWS", err)
	}

	// The request context would cancel the upgraded stream, so the upgrade is
	// detached from ctx once the handshake completes.
	hsCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	req, err := http.NewRequestWithContext(hsCtx, http.MethodGet, target, nil)
	if err != nil {
		cancel()
		return nil, domain.NewTransportError("native.ConnectWS", err)
	}
	req.Header.Set("Connection", "Upgrade")
	req.Header.Set("Upgrade", "websocket")
	req.Header.Set("Sec-WebSocket-Version", "13")
	req.Header.Set("Sec-WebSocket-Key", key)

	resp, err := t.client.Do(req)
	if err != nil {
		cancel()
		return nil, domain.NewTransportError("native.ConnectWS", err)
	}

	if resp.StatusCode != http.StatusSwitchingProtocols {
		resp.Body.Close()
		cancel()
		t.logger.Debug("websocket upgrade rejected", "url", req.URL.Redacted(), "status", resp.StatusCode)
		return nil, domain.NewStatusError(resp.StatusCode)
	}

	rwc, ok := resp.Body.(io.ReadWriteCloser)
	if !ok {
		resp.Body.Close()
		cancel()
		return nil, domain.NewTransportError("native.ConnectWS", errors.New("upgraded body is not writable"))
	}

	if !stop() {
		// ctx was cancelled while the 101 was in flight.
		rwc.Close()
		cancel()
		return nil, domain.NewTransportError("native.ConnectWS", ctx.Err())
	}

	t.logger.Debug("websocket upgraded", "url", req.URL.Redacted())
	return newStream(rwc, cancel, t.logger), nil
}

// upgradeURL maps ws and wss onto the schemes net/http dials.
func upgradeURL(uri string) (string, error) {
	u, err := url.Parse(uri)
	if err != nil {
		return "", fmt.Errorf("parse url: %w", err)
	}
	switch u.Scheme {
	case "ws":
		u.Scheme = "http"
	case "wss":
		u.Scheme = "https"
	case "http", "https":
	default:
		return "", fmt.Errorf("unsupported websocket scheme %q", u.Scheme)
	}
	return u.String(), nil
}

func newHandshakeKey() (string, error) {
	var p [16]byte
	if _, err := rand.Read(p[:]); err != nil {
		return "", fmt.Errorf("generate handshake key: %w", err)
	}
	return base64.StdEncoding.EncodeToString(p[:]), nil
}

// stream frames a client-side websocket over an upgraded HTTP body.
// Recv has a single consumer; Send and Close may be called concurrently.
type stream struct {
	rwc    io.ReadWriteCloser
	rd     *wsutil.Reader
	cancel context.CancelFunc
	logger *slog.Logger

	wmu   sync.Mutex // serializes whole frames onto rwc
	state atomic.Int32
	once  sync.Once

	ended bool // terminal event delivered; owned by the Recv caller
}

func newStream(rwc io.ReadWriteCloser, cancel context.CancelFunc, log *slog.Logger) *stream {
	s := &stream{rwc: rwc, cancel: cancel, logger: log}
	s.rd = &wsutil.Reader{
		Source:    bufio.NewReader(rwc),
		State:     ws.StateClientSide,
		CheckUTF8: true,
	}
	s.rd.OnIntermediate = s.handleControl
	s.state.Store(int32(domain.WsOpen))
	return s
}

func (s *stream) State() domain.WsState { return domain.WsState(s.state.Load()) }

// Recv implements domain.WsStream. Cancelling ctx abandons the stream.
func (s *stream) Recv(ctx context.Context) (domain.Message, error) {
	if s.ended || s.State() == domain.WsClosed {
		s.ended = true
		return domain.Message{}, io.EOF
	}

	stop := context.AfterFunc(ctx, func() { s.release(false) })
	defer stop()

	msg, err := s.readMessage()
	if err == nil {
		return msg, nil
	}

	locallyClosed := s.State() == domain.WsClosed
	s.ended = true
	s.release(false)

	var ce *domain.Error
	switch {
	case errors.As(err, &ce):
		return domain.Message{}, err
	case ctx.Err() != nil:
		return domain.Message{}, domain.NewTransportError("native.Recv", ctx.Err())
	case locallyClosed:
		return domain.Message{}, io.EOF
	default:
		return domain.Message{}, domain.NewTransportError("native.Recv", err)
	}
}

func (s *stream) readMessage() (domain.Message, error) {
	for {
		hdr, err := s.rd.NextFrame()
		if err != nil {
			return domain.Message{}, err
		}

		if hdr.OpCode.IsControl() {
			if err := s.handleControl(hdr, s.rd); err != nil {
				return domain.Message{}, err
			}
			continue
		}

		data, err := io.ReadAll(s.rd)
		if err != nil {
			return domain.Message{}, err
		}

		typ := domain.MessageBinary
		if hdr.OpCode == ws.OpText {
			typ = domain.MessageText
		}
		return domain.Message{Type: typ, Data: data}, nil
	}
}

// handleControl answers pings and the close handshake. A close frame ends
// the stream with the peer's code and reason.
func (s *stream) handleControl(hdr ws.Header, r io.Reader) error {
	payload, err := io.ReadAll(r)
	if err != nil {
		return err
	}

	switch hdr.OpCode {
	case ws.OpPing:
		return s.writeFrame(ws.NewPongFrame(payload))
	case ws.OpClose:
		code, reason := ws.ParseCloseFrameData(payload)
		var reply []byte
		if code == 0 {
			code = ws.StatusNoStatusRcvd
		} else {
			reply = ws.NewCloseFrameBody(code, "")
		}
		s.state.Store(int32(domain.WsClosed))
		if werr := s.writeFrame(ws.NewCloseFrame(reply)); werr != nil {
			s.logger.Debug("close reply failed", "error", werr)
		}
		return domain.NewClosedError("native.Recv", int(code), reason)
	}
	return nil
}

// Send implements domain.WsStream.
func (s *stream) Send(ctx context.Context, msg domain.Message) error {
	if s.State() != domain.WsOpen {
		return domain.NewSendError("native.Send", domain.ErrNotOpen)
	}
	if err := ctx.Err(); err != nil {
		return domain.NewSendError("native.Send", err)
	}

	var f ws.Frame
	switch msg.Type {
	case domain.MessageText:
		f = ws.NewTextFrame(msg.Data)
	case domain.MessageBinary:
		f = ws.NewBinaryFrame(msg.Data)
	default:
		return domain.NewSendError("native.Send", fmt.Errorf("unknown message type %d", msg.Type))
	}

	if err := s.writeFrame(f); err != nil {
		return domain.NewSendError("native.Send", err)
	}
	return nil
}

// writeFrame masks f (copying the payload) and writes it as one unit.
func (s *stream) writeFrame(f ws.Frame) error {
	s.wmu.Lock()
	defer s.wmu.Unlock()
	return ws.WriteFrame(s.rwc, ws.MaskFrame(f))
}

// Close implements domain.WsStream.
func (s *stream) Close() error {
	return s.release(true)
}

// release tears the connection down exactly once. With handshake set and
// the stream still open, a normal-closure frame is sent first.
func (s *stream) release(handshake bool) error {
	var err error
	s.once.Do(func() {
		wasOpen := s.state.Swap(int32(domain.WsClosed)) == int32(domain.WsOpen)
		if handshake && wasOpen {
			if werr := s.writeFrame(ws.NewCloseFrame(ws.NewCloseFrameBody(ws.StatusNormalClosure, ""))); werr != nil {
				s.logger.Debug("close frame failed", "error", werr)
			}
		}
		err = s.rwc.Close()
		s.cancel()
	})
	return err
}

var _ domain.WsStream = (*stream)(nil)
