package server

import (
	"bufio"
	"errors"
	"io"

	"github.com/gorilla/websocket"
)

// handle runs the read loop of one peer until its stream fails, then removes
// the peer from the registry and closes it. There is no retry: a closed peer
// has to reconnect to rejoin.
func (s *Server) handle(peer *Peer) {
	defer func() {
		if s.registry.Unregister(peer) {
			s.log.Info("Peer unregistered", "peer", peer, "peers", s.registry.Len())
		}
		if err := peer.Close(); err != nil && !isExpectedCloseError(err) {
			s.log.Warn("Error closing peer", "peer", peer, "error", err)
		}
	}()

	limiter := newRateLimiter(s.cfg.RateLimit())

	for {
		line, err := peer.readLine()
		if err != nil {
			s.logReadError(peer, err)
			return
		}

		if !limiter.allow() {
			s.log.Warn("Rate limit exceeded; discarding message",
				"peer", peer,
				"burst", s.cfg.RateLimitBurst,
				"interval", s.cfg.RateLimitRefill)
			continue
		}

		s.log.Info("Received message", "peer", peer, "message", line)
		report := s.broadcaster.Broadcast(peer, line)
		s.log.Debug("Broadcast done",
			"peer", peer,
			"targets", report.Targets,
			"delivered", report.Delivered,
			"failed", report.Failed)
	}
}

// logReadError logs why a read loop ended.
func (s *Server) logReadError(peer *Peer, err error) {
	switch {
	case errors.Is(err, io.EOF):
		s.log.Info("Peer disconnected", "peer", peer)
	case errors.Is(err, bufio.ErrTooLong), errors.Is(err, websocket.ErrReadLimit):
		s.log.Warn("Message exceeded maximum size", "peer", peer, "max", s.cfg.MaxMessageSize)
	case websocket.IsCloseError(err,
		websocket.CloseNormalClosure,
		websocket.CloseGoingAway,
		websocket.CloseNoStatusReceived):
		s.log.Info("Peer disconnected", "peer", peer, "reason", err)
	case isExpectedCloseError(err):
		s.log.Info("Peer connection closed", "peer", peer, "reason", err)
	default:
		s.log.Warn("Read error", "peer", peer, "error", err)
	}
}
