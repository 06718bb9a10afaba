package client

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gookit/color"

	"github.com/Tyrowin/linerelay/internal/logging"
	"github.com/Tyrowin/linerelay/internal/protocol"
)

const prompt = "> "

// Client is one operator session against a relay server.
type Client struct {
	conn net.Conn
	cfg  Config
	log  *slog.Logger

	disconnected chan struct{}
	signalOnce   sync.Once
	quitting     atomic.Bool
}

// Dial connects to cfg.ServerAddress. Failing to connect is fatal for the
// session and returned to the caller.
func Dial(ctx context.Context, cfg Config, log *slog.Logger) (*Client, error) {
	cfg = sanitizeConfig(cfg)
	dialer := net.Dialer{Timeout: cfg.DialTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", cfg.ServerAddress)
	if err != nil {
		return nil, fmt.Errorf("connect to %s: %w", cfg.ServerAddress, err)
	}
	return New(conn, cfg, log), nil
}

// New wraps an established connection.
func New(conn net.Conn, cfg Config, log *slog.Logger) *Client {
	return &Client{
		conn:         conn,
		cfg:          sanitizeConfig(cfg),
		log:          logging.OrDefault(log),
		disconnected: make(chan struct{}),
	}
}

// Addr is the local address of the connection, which the server uses as this
// client's identity.
func (c *Client) Addr() string {
	return c.conn.LocalAddr().String()
}

// Disconnected is closed once the receive path has seen the server go away.
func (c *Client) Disconnected() <-chan struct{} {
	return c.disconnected
}

// Run sends every non-blank line of in to the server while rendering server
// broadcasts to out. It returns when in is exhausted, a write fails, the
// server disconnects (noticed before the next input line) or ctx is done, and
// always waits for the receive path first. On cancellation a send path still
// blocked reading in is left behind.
func (c *Client) Run(ctx context.Context, in io.Reader, out io.Writer) error {
	w := &syncWriter{w: out}

	stop := context.AfterFunc(ctx, func() {
		c.quitting.Store(true)
		_ = c.conn.Close()
	})
	defer stop()

	fmt.Fprintln(w, color.FgGreen.Sprintf("[client] Connected to %s", c.conn.RemoteAddr()))
	fmt.Fprintln(w, "[client] Type a message and press Enter to send. Ctrl+C to quit.")

	received := make(chan error, 1)
	go func() {
		received <- c.receive(w)
	}()

	sent := make(chan error, 1)
	go func() {
		sent <- c.send(in, w)
	}()

	var sendErr error
	select {
	case sendErr = <-sent:
	case <-ctx.Done():
	}

	c.notice(w, "Disconnecting...")
	c.closeWrite()
	recvErr := <-received
	if err := c.conn.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
		c.log.Debug("Error closing connection", "error", err)
	}

	switch {
	case ctx.Err() != nil:
		return nil
	case sendErr != nil:
		return sendErr
	case errors.Is(recvErr, ErrReadTimeout), errors.Is(recvErr, ErrServerDisconnected):
		return nil
	default:
		return recvErr
	}
}

// receive renders server lines until timeout, disconnect or error.
func (c *Client) receive(w io.Writer) error {
	reader := bufio.NewReader(c.conn)
	for {
		if c.cfg.ReadTimeout > 0 {
			if err := c.conn.SetReadDeadline(time.Now().Add(c.cfg.ReadTimeout)); err != nil {
				return c.receiveFailed(w, err)
			}
		}

		line, err := reader.ReadString(protocol.Terminator)
		if line != "" && (err == nil || errors.Is(err, io.EOF)) {
			c.render(w, line)
		}
		if err != nil {
			return c.receiveFailed(w, err)
		}
	}
}

func (c *Client) receiveFailed(w io.Writer, err error) error {
	if c.quitting.Load() {
		return nil
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		c.notice(w, "Read timeout (no data for %s)", c.cfg.ReadTimeout)
		c.log.Warn("Receive path timed out", "timeout", c.cfg.ReadTimeout)
		return ErrReadTimeout
	}

	c.signalDisconnect()
	if errors.Is(err, io.EOF) {
		c.notice(w, "Server disconnected.")
		c.log.Info("Server closed the connection")
		return ErrServerDisconnected
	}

	c.notice(w, "Read error: %v", err)
	c.notice(w, "Server disconnected.")
	c.log.Warn("Receive path failed", "error", err)
	return fmt.Errorf("read from server: %w", err)
}

// send forwards operator input line by line. The disconnect signal is only
// checked between lines, so a disconnect is acted on at the next input.
func (c *Client) send(in io.Reader, w io.Writer) error {
	_, _ = io.WriteString(w, prompt)

	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		select {
		case <-c.disconnected:
			c.notice(w, "Exiting due to server disconnect.")
			return nil
		default:
		}

		text := scanner.Text()
		if protocol.IsBlank(text) {
			_, _ = io.WriteString(w, prompt)
			continue
		}

		if _, err := c.conn.Write(protocol.FormatOutbound(text)); err != nil {
			if c.quitting.Load() {
				return nil
			}
			c.notice(w, "Send error: %v", err)
			c.log.Warn("Send path failed", "error", err)
			return fmt.Errorf("send to server: %w", err)
		}
		_, _ = io.WriteString(w, prompt)
	}

	if err := scanner.Err(); err != nil {
		c.log.Warn("Reading operator input failed", "error", err)
		return fmt.Errorf("read input: %w", err)
	}
	return nil
}

func (c *Client) signalDisconnect() {
	c.signalOnce.Do(func() {
		close(c.disconnected)
	})
}

// closeWrite tells the server we are done so it closes its side, which in
// turn ends the receive path.
func (c *Client) closeWrite() {
	c.quitting.Store(true)
	if hc, ok := c.conn.(interface{ CloseWrite() error }); ok {
		if err := hc.CloseWrite(); err == nil {
			return
		}
	}
	_ = c.conn.Close()
}

func (c *Client) render(w io.Writer, line string) {
	line = protocol.TrimTerminator(line)
	if sender, message, ok := protocol.ParseBroadcast(line); ok {
		fmt.Fprintf(w, "\r%s:%s\n%s", color.FgCyan.Sprintf("[%s]", sender), message, prompt)
		return
	}
	fmt.Fprintf(w, "\r%s\n%s", line, prompt)
}

func (c *Client) notice(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, "\n%s\n", color.FgYellow.Sprintf("[client] "+format, args...))
}

// syncWriter lets both paths render to the same terminal.
type syncWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *syncWriter) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(p)
}
