package server

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Transport names reported in logs and health output.
const (
	TransportTCP       = "tcp"
	TransportWebSocket = "websocket"
)

// Peer is one connected participant. Its identity is the remote address
// observed at accept time and never changes. The read side of its stream
// belongs to the peer's handler; the write side may be used by any
// broadcasting goroutine, one at a time.
type Peer struct {
	ID          string
	Session     uuid.UUID
	Transport   string
	ConnectedAt time.Time

	stream    Stream
	writeMu   sync.Mutex
	closeOnce sync.Once
	closeErr  error
}

// NewPeer wraps a stream accepted from addr.
func NewPeer(addr, transport string, stream Stream) *Peer {
	return &Peer{
		ID:          addr,
		Session:     uuid.New(),
		Transport:   transport,
		ConnectedAt: time.Now().UTC(),
		stream:      stream,
	}
}

// Write sends one frame to the peer. Concurrent writers are serialized so
// frames never interleave on the wire.
func (p *Peer) Write(frame []byte) error {
	p.writeMu.Lock()
	defer p.writeMu.Unlock()
	return p.stream.WriteFrame(frame)
}

func (p *Peer) readLine() (string, error) {
	return p.stream.ReadLine()
}

// Close closes the underlying stream. Only the first call has an effect.
func (p *Peer) Close() error {
	p.closeOnce.Do(func() {
		p.closeErr = p.stream.Close()
	})
	return p.closeErr
}

// LogValue implements slog.LogValuer.
func (p *Peer) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("addr", p.ID),
		slog.String("session", p.Session.String()),
		slog.String("transport", p.Transport),
	)
}
