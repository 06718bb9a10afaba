package server

import (
	"bytes"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/Tyrowin/linerelay/internal/mocks"
)

func newTestServer(cfg Config) *Server {
	return NewServer(cfg, logs.GetLoggerFromLevel(slog.LevelDebug))
}

func waitHandlers(t *testing.T, s *Server) {
	t.Helper()
	done := make(chan struct{})
	go func() {
		s.handlers.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("handlers did not finish")
	}
}

// TestHandleBroadcastsThenUnregisters verifies the handler forwards every
// line and removes its peer exactly once when the stream ends.
func TestHandleBroadcastsThenUnregisters(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	s := newTestServer(*NewConfig())

	listener := mocks.NewMockStream(ctrl)
	s.registry.Register(NewPeer("listener", TransportTCP, listener))

	stream := mocks.NewMockStream(ctrl)
	gomock.InOrder(
		stream.EXPECT().ReadLine().Return("first", nil),
		stream.EXPECT().ReadLine().Return("second", nil),
		stream.EXPECT().ReadLine().Return("", io.EOF),
		stream.EXPECT().Close().Return(nil).Times(1),
	)
	gomock.InOrder(
		listener.EXPECT().WriteFrame([]byte("[speaker]:first\n")).Return(nil),
		listener.EXPECT().WriteFrame([]byte("[speaker]:second\n")).Return(nil),
	)

	peer := NewPeer("speaker", TransportTCP, stream)
	s.attach(peer)
	waitHandlers(t, s)

	req.Equal(1, s.registry.Len())
	req.NotContains(s.registry.Snapshot(), peer)
	req.False(s.registry.Unregister(peer))
}

// TestHandleRateLimit verifies lines over the burst are discarded when rate
// limiting is enabled.
func TestHandleRateLimit(t *testing.T) {
	ctrl := gomock.NewController(t)
	cfg := *NewConfig()
	cfg.RateLimitBurst = 2
	cfg.RateLimitRefill = time.Hour
	s := newTestServer(cfg)

	listener := mocks.NewMockStream(ctrl)
	s.registry.Register(NewPeer("listener", TransportTCP, listener))
	listener.EXPECT().WriteFrame(gomock.Any()).Return(nil).Times(2)

	stream := mocks.NewMockStream(ctrl)
	gomock.InOrder(
		stream.EXPECT().ReadLine().Return("1", nil),
		stream.EXPECT().ReadLine().Return("2", nil),
		stream.EXPECT().ReadLine().Return("3", nil),
		stream.EXPECT().ReadLine().Return("", io.EOF),
	)
	stream.EXPECT().Close().Return(nil)

	s.attach(NewPeer("speaker", TransportTCP, stream))
	waitHandlers(t, s)
}

// TestAttachAfterShutdown verifies a peer arriving during shutdown is closed
// without being registered.
func TestAttachAfterShutdown(t *testing.T) {
	ctrl := gomock.NewController(t)
	s := newTestServer(*NewConfig())
	require.NoError(t, s.Shutdown(time.Second))

	stream := mocks.NewMockStream(ctrl)
	stream.EXPECT().Close().Return(nil)

	s.attach(NewPeer("late", TransportTCP, stream))
	require.Equal(t, 0, s.registry.Len())
}

// TestHandleLogsRelayedMessages verifies relayed lines show up at the
// default INFO level.
func TestHandleLogsRelayedMessages(t *testing.T) {
	ctrl := gomock.NewController(t)
	var buf bytes.Buffer
	log := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo}))
	s := NewServer(*NewConfig(), log)

	stream := mocks.NewMockStream(ctrl)
	gomock.InOrder(
		stream.EXPECT().ReadLine().Return("hello relay", nil),
		stream.EXPECT().ReadLine().Return("", io.EOF),
	)
	stream.EXPECT().Close().Return(nil)

	s.attach(NewPeer("speaker", TransportTCP, stream))
	waitHandlers(t, s)

	require.Contains(t, buf.String(), "Received message")
	require.Contains(t, buf.String(), "hello relay")
}

func TestRateLimiterDisabled(t *testing.T) {
	limiter := newRateLimiter(RateLimitConfig{})
	require.Nil(t, limiter)
	for i := 0; i < 100; i++ {
		require.True(t, limiter.allow())
	}
}

func TestRateLimiterRefills(t *testing.T) {
	limiter := newRateLimiter(RateLimitConfig{Burst: 1, RefillInterval: 20 * time.Millisecond})
	require.True(t, limiter.allow())
	require.False(t, limiter.allow())
	require.Eventually(t, limiter.allow, time.Second, 5*time.Millisecond)
}
