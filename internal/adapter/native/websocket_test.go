package native

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"nhooyr.io/websocket"

	"speedrun-api/internal/domain"
	"speedrun-api/internal/infra/config"
)

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func echoServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		defer c.CloseNow()
		for {
			typ, data, err := c.Read(r.Context())
			if err != nil {
				return
			}
			if err := c.Write(r.Context(), typ, data); err != nil {
				return
			}
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func dial(t *testing.T, uri string) domain.WsStream {
	t.Helper()
	tr := newTestTransport(t, config.TLSConfig{})
	s, err := tr.ConnectWS(context.Background(), uri)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestConnectWSEchoesTextAndBinary(t *testing.T) {
	srv := echoServer(t)
	s := dial(t, wsURL(srv))
	assert.Equal(t, domain.WsOpen, s.State())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	require.NoError(t, s.Send(ctx, domain.TextMessage("ping")))
	msg, err := s.Recv(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.MessageText, msg.Type)
	assert.Equal(t, "ping", msg.Text())

	payload := []byte{0x00, 0x01, 0xfe}
	require.NoError(t, s.Send(ctx, domain.BinaryMessage(payload)))
	msg, err = s.Recv(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.MessageBinary, msg.Type)
	assert.Equal(t, payload, msg.Data)
	// The caller's payload is not masked in place.
	assert.Equal(t, []byte{0x00, 0x01, 0xfe}, payload)
}

func TestConnectWSAcceptsHTTPScheme(t *testing.T) {
	srv := echoServer(t)
	s := dial(t, srv.URL)
	assert.Equal(t, domain.WsOpen, s.State())
}

func TestConnectWSRejectedUpgradeIsStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	tr := newTestTransport(t, config.TLSConfig{})
	_, err := tr.ConnectWS(context.Background(), wsURL(srv))
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrStatus)
	status, ok := domain.StatusOf(err)
	assert.True(t, ok)
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, "HTTP Status Code: Forbidden", err.Error())
}

func TestConnectWSOKIsNotAnUpgrade(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("plain page"))
	}))
	defer srv.Close()

	tr := newTestTransport(t, config.TLSConfig{})
	_, err := tr.ConnectWS(context.Background(), wsURL(srv))
	status, ok := domain.StatusOf(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusOK, status)
}

func TestConnectWSBadScheme(t *testing.T) {
	tr := newTestTransport(t, config.TLSConfig{})
	_, err := tr.ConnectWS(context.Background(), "ftp://example.com/socket")
	assert.ErrorIs(t, err, domain.ErrTransport)
}

func TestPeerCloseDeliveredOnce(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		c.Write(r.Context(), websocket.MessageText, []byte("hello"))
		c.Close(websocket.StatusCode(4000), "bye")
	}))
	defer srv.Close()

	s := dial(t, wsURL(srv))
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	msg, err := s.Recv(ctx)
	require.NoError(t, err)
	assert.Equal(t, "hello", msg.Text())

	_, err = s.Recv(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrClosed)
	var ce *domain.CloseError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, 4000, ce.Code)
	assert.Equal(t, "bye", ce.Reason)
	assert.Equal(t, domain.WsClosed, s.State())

	_, err = s.Recv(ctx)
	assert.ErrorIs(t, err, io.EOF)
	_, err = s.Recv(ctx)
	assert.ErrorIs(t, err, io.EOF)

	err = s.Send(ctx, domain.TextMessage("late"))
	assert.ErrorIs(t, err, domain.ErrSend)
	assert.ErrorIs(t, err, domain.ErrNotOpen)
	assert.NoError(t, s.Close())
}

func TestCloseIsIdempotent(t *testing.T) {
	srv := echoServer(t)
	s := dial(t, wsURL(srv))

	require.NoError(t, s.Close())
	assert.NoError(t, s.Close())
	assert.Equal(t, domain.WsClosed, s.State())

	_, err := s.Recv(context.Background())
	assert.ErrorIs(t, err, io.EOF)
	assert.ErrorIs(t, s.Send(context.Background(), domain.TextMessage("x")), domain.ErrNotOpen)
}

func TestRecvContextCancelAbandonsStream(t *testing.T) {
	srv := echoServer(t)
	s := dial(t, wsURL(srv))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := s.Recv(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrTransport)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, domain.WsClosed, s.State())

	_, err = s.Recv(context.Background())
	assert.ErrorIs(t, err, io.EOF)
}

func TestConnectWSCancelledContext(t *testing.T) {
	srv := echoServer(t)
	tr := newTestTransport(t, config.TLSConfig{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := tr.ConnectWS(ctx, wsURL(srv))
	assert.ErrorIs(t, err, domain.ErrTransport)
}

func TestStreamOutlivesHandshakeContext(t *testing.T) {
	srv := echoServer(t)
	tr := newTestTransport(t, config.TLSConfig{})

	hsCtx, cancel := context.WithCancel(context.Background())
	s, err := tr.ConnectWS(hsCtx, wsURL(srv))
	require.NoError(t, err)
	defer s.Close()
	cancel()

	ctx, done := context.WithTimeout(context.Background(), 5*time.Second)
	defer done()
	require.NoError(t, s.Send(ctx, domain.TextMessage("still here")))
	msg, err := s.Recv(ctx)
	require.NoError(t, err)
	assert.Equal(t, "still here", msg.Text())
}

func TestUpgradeURL(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "ws://host/path?q=1", want: "http://host/path?q=1"},
		{in: "wss://host:8443/x", want: "https://host:8443/x"},
		{in: "https://host/", want: "https://host/"},
		{in: "gopher://host", wantErr: true},
		{in: "://", wantErr: true},
	}
	for _, tt := range tests {
		got, err := upgradeURL(tt.in)
		if tt.wantErr {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got)
	}
}
