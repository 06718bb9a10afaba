// Package testhelpers provides utilities shared by the relay's server and
// client tests: loopback listeners, line-oriented TCP peers, WebSocket
// dialing and a goroutine-safe output buffer.
package testhelpers

import (
	"bufio"
	"bytes"
	"net"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

// TestOrigin is the Origin header sent by ConnectWebSocket.
const TestOrigin = "http://localhost:8081"

// Listen opens a loopback TCP listener on an ephemeral port.
func Listen(t *testing.T) net.Listener {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Failed to listen: %v", err)
	}
	t.Cleanup(func() { _ = ln.Close() })
	return ln
}

// LinePeer is a raw TCP participant speaking the line protocol.
type LinePeer struct {
	Conn   net.Conn
	reader *bufio.Reader
}

// DialPeer connects a LinePeer to addr and closes it when the test ends.
func DialPeer(t *testing.T, addr string) *LinePeer {
	t.Helper()
	conn, err := net.DialTimeout("tcp", addr, 5*time.Second)
	if err != nil {
		t.Fatalf("Failed to dial %s: %v", addr, err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return &LinePeer{Conn: conn, reader: bufio.NewReader(conn)}
}

// Addr is the peer's address as the server sees it.
func (p *LinePeer) Addr() string {
	return p.Conn.LocalAddr().String()
}

// Send writes text followed by a newline.
func (p *LinePeer) Send(t *testing.T, text string) {
	t.Helper()
	if _, err := p.Conn.Write([]byte(text + "\n")); err != nil {
		t.Fatalf("Failed to send %q: %v", text, err)
	}
}

// ReadLine reads one line, terminator included, waiting at most timeout.
func (p *LinePeer) ReadLine(timeout time.Duration) (string, error) {
	if err := p.Conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
		return "", err
	}
	return p.reader.ReadString('\n')
}

// Expect fails the test unless the next line equals want.
func (p *LinePeer) Expect(t *testing.T, want string) {
	t.Helper()
	got, err := p.ReadLine(2 * time.Second)
	if err != nil {
		t.Fatalf("Expected %q, got error: %v", want, err)
	}
	if got != want {
		t.Fatalf("Expected %q, got %q", want, got)
	}
}

// ExpectNothing fails the test if a line arrives within wait.
func (p *LinePeer) ExpectNothing(t *testing.T, wait time.Duration) {
	t.Helper()
	line, err := p.ReadLine(wait)
	if err == nil {
		t.Fatalf("Expected no message, got %q", line)
	}
	if ne, ok := err.(net.Error); !ok || !ne.Timeout() {
		t.Fatalf("Expected read timeout, got: %v", err)
	}
}

// ConnectWebSocket creates a WebSocket connection to the specified URL.
// It returns the connection or an error if connection fails.
func ConnectWebSocket(url string) (*websocket.Conn, error) {
	dialer := websocket.Dialer{
		HandshakeTimeout: 5 * time.Second,
	}

	headers := http.Header{}
	headers.Set("Origin", TestOrigin)

	conn, resp, err := dialer.Dial(url, headers)
	if resp != nil {
		_ = resp.Body.Close()
	}
	return conn, err
}

// WebSocketURL turns an httptest server URL into its /ws endpoint.
func WebSocketURL(serverURL string) string {
	return "ws" + strings.TrimPrefix(serverURL, "http") + "/ws"
}

// SafeBuffer is a bytes.Buffer safe for concurrent use.
type SafeBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *SafeBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *SafeBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}
