package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Tyrowin/linerelay/internal/logging"
)

const (
	minAcceptDelay = 5 * time.Millisecond
	maxAcceptDelay = time.Second
)

// Server accepts peers, keeps them in a Registry and relays their messages.
type Server struct {
	cfg         Config
	log         *slog.Logger
	registry    *Registry
	broadcaster *Broadcaster
	upgrader    websocket.Upgrader

	mu        sync.Mutex
	listeners map[net.Listener]struct{}
	closed    bool
	handlers  sync.WaitGroup
}

// NewServer creates a relay for cfg. Invalid settings fall back to defaults.
func NewServer(cfg Config, log *slog.Logger) *Server {
	cfg = sanitizeConfig(cfg)
	log = logging.OrDefault(log)
	registry := NewRegistry()
	origins := newOriginPolicy(cfg.AllowedOrigins, log)

	return &Server{
		cfg:         cfg,
		log:         log,
		registry:    registry,
		broadcaster: NewBroadcaster(registry, log),
		upgrader:    newUpgrader(origins, log),
		listeners:   make(map[net.Listener]struct{}),
	}
}

// Registry exposes the peer registry.
func (s *Server) Registry() *Registry {
	return s.registry
}

// ListenAndServe binds cfg.ListenAddr and serves it until ctx is done or
// Shutdown is called. A bind failure is returned as is.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.ListenAddr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.cfg.ListenAddr, err)
	}
	s.log.Info("Relay listening", "address", ln.Addr().String())
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln and hands each one to its own handler
// goroutine. Transient accept errors are logged and retried with a growing
// delay. Serve returns nil once ctx is done or the server is shut down, and
// ErrServerClosed if it is called after Shutdown. A listener closed by anyone
// else yields an error wrapping net.ErrClosed.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	if !s.trackListener(ln) {
		_ = ln.Close()
		return ErrServerClosed
	}
	defer s.untrackListener(ln)

	stop := context.AfterFunc(ctx, func() {
		_ = ln.Close()
	})
	defer stop()

	var delay time.Duration
	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil || s.shuttingDown() {
				return nil
			}
			if errors.Is(err, net.ErrClosed) {
				return fmt.Errorf("accept: %w", err)
			}

			delay = nextAcceptDelay(delay)
			s.log.Warn("Accept error; retrying", "error", err, "delay", delay)
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return nil
			}
			continue
		}
		delay = 0

		addr := conn.RemoteAddr().String()
		s.attach(NewPeer(addr, TransportTCP, newTCPStream(conn, s.cfg.MaxMessageSize, s.cfg.WriteTimeout)))
	}
}

func nextAcceptDelay(delay time.Duration) time.Duration {
	if delay == 0 {
		return minAcceptDelay
	}
	return min(delay*2, maxAcceptDelay)
}

// attach registers peer and starts its handler without waiting for it.
func (s *Server) attach(peer *Peer) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		_ = peer.Close()
		return
	}
	s.registry.Register(peer)
	s.handlers.Add(1)
	s.mu.Unlock()

	s.log.Info("Peer registered", "peer", peer, "peers", s.registry.Len())

	go func() {
		defer s.handlers.Done()
		s.handle(peer)
	}()
}

func (s *Server) trackListener(ln net.Listener) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	s.listeners[ln] = struct{}{}
	return true
}

func (s *Server) untrackListener(ln net.Listener) {
	s.mu.Lock()
	delete(s.listeners, ln)
	s.mu.Unlock()
}

func (s *Server) shuttingDown() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Shutdown stops accepting, closes every peer and waits for the handlers to
// finish. It returns context.DeadlineExceeded if they are still running after
// timeout.
func (s *Server) Shutdown(timeout time.Duration) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	for ln := range s.listeners {
		if err := ln.Close(); err != nil && !isExpectedCloseError(err) {
			s.log.Warn("Error closing listener", "error", err)
		}
	}
	s.mu.Unlock()

	peers := s.registry.Snapshot()
	s.log.Info("Shutting down relay", "peers", len(peers))
	for _, peer := range peers {
		if err := peer.Close(); err != nil && !isExpectedCloseError(err) {
			s.log.Warn("Error closing peer", "peer", peer, "error", err)
		}
	}

	done := make(chan struct{})
	go func() {
		s.handlers.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.log.Info("Relay shutdown completed")
		return nil
	case <-time.After(timeout):
		s.log.Warn("Relay shutdown timeout reached, some handlers may still be running")
		return context.DeadlineExceeded
	}
}
