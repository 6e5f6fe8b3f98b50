package domain

import (
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type trackingCloser struct {
	io.Reader
	closed int
}

func (c *trackingCloser) Close() error {
	c.closed++
	return nil
}

func TestBodyKinds(t *testing.T) {
	assert.Equal(t, BodyEmpty, EmptyBody().Kind())
	assert.Equal(t, BodyEmpty, NewBody(nil).Kind())
	assert.Equal(t, BodyOwned, NewBody([]byte{}).Kind())
	assert.Equal(t, BodyHostStream, StreamBody(io.NopCloser(strings.NewReader("x"))).Kind())

	var nilBody *Body
	assert.Equal(t, BodyEmpty, nilBody.Kind())
	data, err := nilBody.Bytes()
	require.NoError(t, err)
	assert.Empty(t, data)
}

func TestOwnedBodyNotRewindable(t *testing.T) {
	b := NewBody([]byte("hello"))
	assert.Equal(t, int64(5), b.Len())

	first, err := b.Bytes()
	require.NoError(t, err)
	assert.Equal(t, "hello", string(first))

	second, err := b.Bytes()
	require.NoError(t, err)
	assert.Empty(t, second)

	rest, err := io.ReadAll(b.Reader())
	require.NoError(t, err)
	assert.Empty(t, rest)
}

func TestStreamBodyDrainsAndCloses(t *testing.T) {
	rc := &trackingCloser{Reader: strings.NewReader("streamed")}
	b := StreamBody(rc)
	assert.Equal(t, int64(-1), b.Len())

	data, err := b.Bytes()
	require.NoError(t, err)
	assert.Equal(t, "streamed", string(data))
	assert.Equal(t, 1, rc.closed)

	again, err := b.Bytes()
	require.NoError(t, err)
	assert.Empty(t, again)

	require.NoError(t, b.Close())
	assert.Equal(t, 1, rc.closed, "drained stream must not be closed twice")
}

func TestStreamBodyReaderThenClose(t *testing.T) {
	rc := &trackingCloser{Reader: strings.NewReader("abc")}
	b := StreamBody(rc)

	data, err := io.ReadAll(b.Reader())
	require.NoError(t, err)
	assert.Equal(t, "abc", string(data))

	require.NoError(t, b.Close())
	require.NoError(t, b.Close())
	assert.Equal(t, 1, rc.closed)
}

func TestPeekDoesNotConsume(t *testing.T) {
	b := NewBody([]byte(`{"a":1}`))
	p, ok := b.Peek()
	require.True(t, ok)
	assert.Equal(t, `{"a":1}`, string(p))

	data, err := b.Bytes()
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, string(data))

	_, ok = b.Peek()
	assert.False(t, ok)
}

func TestNewRequestDefaults(t *testing.T) {
	req := NewRequest("", "https://example.com", nil)
	assert.Equal(t, "GET", req.Method)
	assert.NotNil(t, req.Header)
	assert.Equal(t, BodyEmpty, req.Body.Kind())
}

func TestResponseSuccess(t *testing.T) {
	for status, want := range map[int]bool{199: false, 200: true, 204: true, 299: true, 300: false, 404: false} {
		assert.Equal(t, want, (&Response{StatusCode: status}).Success(), "status %d", status)
	}
}
