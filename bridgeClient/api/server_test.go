package api

import (
	"fmt"
	"net"
	"net/http"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func freePort(t *testing.T) int {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()
	return ln.Addr().(*net.TCPAddr).Port
}

func TestServerLifecycle(t *testing.T) {
	port := freePort(t)
	s := NewServer(zerolog.New(zerolog.NewTestWriter(t)), port, Deps{})

	require.NoError(t, s.Start())
	defer s.Stop()

	resp, err := http.Get(fmt.Sprintf("http://127.0.0.1:%d/health", port))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	t.Run("port already bound", func(t *testing.T) {
		other := NewServer(zerolog.Nop(), port, Deps{})
		err := other.Start()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to bind")
	})

	require.NoError(t, s.Stop())
}

func TestStopWithoutStart(t *testing.T) {
	s := NewServer(zerolog.Nop(), 0, Deps{})
	assert.NoError(t, s.Stop())
}
