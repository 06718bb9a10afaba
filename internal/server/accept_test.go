package server

import (
	"context"
	"errors"
	"net"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type temporaryError struct{}

func (temporaryError) Error() string   { return "accept: too many open files" }
func (temporaryError) Timeout() bool   { return false }
func (temporaryError) Temporary() bool { return true }

// failingListener fails the first n Accept calls, then delegates.
type failingListener struct {
	net.Listener
	failures atomic.Int32
}

func (l *failingListener) Accept() (net.Conn, error) {
	if l.failures.Add(-1) >= 0 {
		return nil, temporaryError{}
	}
	return l.Listener.Accept()
}

func TestServeRetriesTransientAcceptErrors(t *testing.T) {
	inner, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	ln := &failingListener{Listener: inner}
	ln.failures.Store(2)

	s := newTestServer(*NewConfig())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	served := make(chan error, 1)
	go func() {
		served <- s.Serve(ctx, ln)
	}()

	conn, err := net.Dial("tcp", inner.Addr().String())
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool {
		return s.registry.Len() == 1
	}, 2*time.Second, 5*time.Millisecond)
	require.Less(t, ln.failures.Load(), int32(0))

	cancel()
	select {
	case err := <-served:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}
	require.NoError(t, s.Shutdown(2*time.Second))
}

func TestNextAcceptDelay(t *testing.T) {
	var delay time.Duration
	want := []time.Duration{
		5 * time.Millisecond,
		10 * time.Millisecond,
		20 * time.Millisecond,
	}
	for _, w := range want {
		delay = nextAcceptDelay(delay)
		require.Equal(t, w, delay)
	}
	require.Equal(t, maxAcceptDelay, nextAcceptDelay(800*time.Millisecond))
	require.Equal(t, maxAcceptDelay, nextAcceptDelay(maxAcceptDelay))
}

func TestServeListenerClosedExternally(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	s := newTestServer(*NewConfig())
	served := make(chan error, 1)
	go func() {
		served <- s.Serve(context.Background(), ln)
	}()

	require.Eventually(t, func() bool {
		s.mu.Lock()
		defer s.mu.Unlock()
		return len(s.listeners) == 1
	}, 2*time.Second, 5*time.Millisecond)
	require.NoError(t, ln.Close())

	select {
	case err := <-served:
		require.ErrorIs(t, err, net.ErrClosed)
		require.False(t, errors.Is(err, ErrServerClosed))
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not return after the listener closed")
	}
}
