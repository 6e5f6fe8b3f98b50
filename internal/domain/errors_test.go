package domain

import (
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusErrorFormat(t *testing.T) {
	tests := []struct {
		status int
		want   string
	}{
		{404, "HTTP Status Code: Not Found"},
		{503, "HTTP Status Code: Service Unavailable"},
		{599, "HTTP Status Code: 599"},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.status), func(t *testing.T) {
			assert.Equal(t, tt.want, NewStatusError(tt.status).Error())
		})
	}
}

func TestAPIErrorMessageVerbatim(t *testing.T) {
	err := NewAPIError(400, "Invalid game ID.")
	assert.Equal(t, "Invalid game ID.", err.Error())
	assert.ErrorIs(t, err, ErrAPI)
	assert.NotErrorIs(t, err, ErrStatus)
}

func TestErrorMatchesKindAndCause(t *testing.T) {
	err := NewTransportError("native.Do", io.ErrUnexpectedEOF)
	assert.ErrorIs(t, err, ErrTransport)
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
	assert.Equal(t, "native.Do: transport failure: unexpected EOF", err.Error())

	wrapped := fmt.Errorf("get runs: %w", err)
	var e *Error
	require.True(t, errors.As(wrapped, &e))
	assert.Equal(t, "native.Do", e.Op)
}

func TestSendErrorWrapsUsageCause(t *testing.T) {
	err := NewSendError("embedded.Send", ErrBinaryUnsupported)
	assert.ErrorIs(t, err, ErrSend)
	assert.ErrorIs(t, err, ErrBinaryUnsupported)
	assert.True(t, IsUsageError(err))
	assert.False(t, IsUsageError(NewTransportError("x", io.EOF)))
}

func TestForbiddenHeaderMessage(t *testing.T) {
	err := NewForbiddenHeaderError("embedded.Do", "Cookie", nil)
	assert.Equal(t, "embedded.Do: forbidden header: Cookie", err.Error())
}

func TestClosedErrorCarriesCloseFrame(t *testing.T) {
	err := NewClosedError("ws", 1000, "bye")
	var ce *CloseError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, 1000, ce.Code)
	assert.Equal(t, "bye", ce.Reason)
	assert.ErrorIs(t, err, ErrClosed)
}

func TestStatusOf(t *testing.T) {
	status, ok := StatusOf(fmt.Errorf("wrap: %w", NewStatusError(429)))
	assert.True(t, ok)
	assert.Equal(t, 429, status)

	status, ok = StatusOf(NewAPIError(401, "denied"))
	assert.True(t, ok)
	assert.Equal(t, 401, status)

	_, ok = StatusOf(NewJSONError("x", io.EOF))
	assert.False(t, ok)
}

func TestCodeOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorCode
	}{
		{"nil", nil, CodeUnknown},
		{"plain", errors.New("boom"), CodeUnknown},
		{"status", NewStatusError(500), CodeStatus},
		{"api", NewAPIError(404, "nope"), CodeAPI},
		{"transport", NewTransportError("op", io.EOF), CodeTransport},
		{"json", NewJSONError("op", io.EOF), CodeJSON},
		{"no window", NewNoWindowError("op"), CodeNoWindow},
		{"forbidden", NewForbiddenHeaderError("op", "Host", nil), CodeForbiddenHeader},
		{"send", NewSendError("op", ErrNotOpen), CodeSend},
		{"closed", NewClosedError("op", 1001, ""), CodeClosed},
		{"bare sentinel", fmt.Errorf("ctx: %w", ErrJSON), CodeJSON},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CodeOf(tt.err))
		})
	}
}
