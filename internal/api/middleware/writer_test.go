package middleware

import (
	"bufio"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type hijackableRecorder struct {
	*httptest.ResponseRecorder
	hijacked bool
}

func (h *hijackableRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h.hijacked = true
	return nil, nil, nil
}

func TestStatusRecorder_Hijack(t *testing.T) {
	inner := &hijackableRecorder{ResponseRecorder: httptest.NewRecorder()}
	rec := newStatusRecorder(inner)

	_, _, err := rec.Hijack()

	require.NoError(t, err)
	assert.True(t, inner.hijacked)
	assert.Equal(t, http.StatusSwitchingProtocols, rec.status)
}

func TestStatusRecorder_HijackUnsupported(t *testing.T) {
	rec := newStatusRecorder(httptest.NewRecorder())

	_, _, err := rec.Hijack()

	assert.Error(t, err)
}

func TestStatusRecorder_CountsBytes(t *testing.T) {
	inner := httptest.NewRecorder()
	rec := newStatusRecorder(inner)

	_, _ = rec.Write([]byte("hello"))
	rec.Flush()

	assert.Equal(t, int64(5), rec.written)
	assert.Equal(t, http.StatusOK, rec.status)
	assert.True(t, inner.Flushed)
	assert.Equal(t, inner, rec.Unwrap())
}
