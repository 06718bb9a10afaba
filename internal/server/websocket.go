package server

import (
	"bytes"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Tyrowin/linerelay/internal/protocol"
)

func newUpgrader(origins originPolicy, log *slog.Logger) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if origins.allows(r) {
				return true
			}
			log.Warn("Blocked WebSocket connection from disallowed origin", "origin", r.Header.Get("Origin"))
			return false
		},
	}
}

// wsStream adapts a WebSocket connection to the line protocol: one text
// message in is one line, one broadcast frame out is one text message.
type wsStream struct {
	conn         *websocket.Conn
	writeTimeout time.Duration
}

func newWSStream(conn *websocket.Conn, maxMessageSize int64, writeTimeout time.Duration) *wsStream {
	conn.SetReadLimit(maxMessageSize)
	return &wsStream{conn: conn, writeTimeout: writeTimeout}
}

func (s *wsStream) ReadLine() (string, error) {
	for {
		messageType, data, err := s.conn.ReadMessage()
		if err != nil {
			return "", err
		}
		if messageType != websocket.TextMessage {
			continue
		}
		return protocol.TrimTerminator(string(data)), nil
	}
}

func (s *wsStream) WriteFrame(frame []byte) error {
	if err := s.conn.SetWriteDeadline(time.Now().Add(s.writeTimeout)); err != nil {
		return err
	}
	return s.conn.WriteMessage(websocket.TextMessage, bytes.TrimSuffix(frame, []byte{protocol.Terminator}))
}

func (s *wsStream) Close() error {
	return s.conn.Close()
}

// WebSocketHandler upgrades the request and attaches the connection as a
// peer sharing the TCP peers' registry.
func (s *Server) WebSocketHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed. WebSocket endpoint only accepts GET requests.", http.StatusMethodNotAllowed)
		return
	}
	if s.shuttingDown() {
		http.Error(w, "Relay is shutting down.", http.StatusServiceUnavailable)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("WebSocket upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}

	s.attach(NewPeer(r.RemoteAddr, TransportWebSocket, newWSStream(conn, s.cfg.MaxMessageSize, s.cfg.WriteTimeout)))
}
