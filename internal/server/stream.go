package server

//go:generate mockgen -source=stream.go -destination=../mocks/mock_stream.go -package=mocks

import (
	"bufio"
	"io"
	"net"
	"time"
)

// Stream is the transport behind a Peer. ReadLine is only ever called by the
// peer's own handler goroutine; WriteFrame calls are serialized by the Peer.
type Stream interface {
	// ReadLine blocks until a complete message arrives and returns it without
	// its terminator. io.EOF signals an orderly disconnect.
	ReadLine() (string, error)
	// WriteFrame writes one framed broadcast.
	WriteFrame(frame []byte) error
	Close() error
}

// tcpStream reads newline-delimited messages from a raw TCP connection.
type tcpStream struct {
	conn           net.Conn
	scanner        *bufio.Scanner
	maxMessageSize int
	writeTimeout   time.Duration
}

func newTCPStream(conn net.Conn, maxMessageSize int64, writeTimeout time.Duration) *tcpStream {
	scanner := bufio.NewScanner(conn)
	// room for the "\r\n" terminator on top of the payload
	limit := int(maxMessageSize) + 2
	scanner.Buffer(make([]byte, 0, min(limit, 4096)), limit)
	return &tcpStream{
		conn:           conn,
		scanner:        scanner,
		maxMessageSize: int(maxMessageSize),
		writeTimeout:   writeTimeout,
	}
}

func (s *tcpStream) ReadLine() (string, error) {
	if s.scanner.Scan() {
		line := s.scanner.Text()
		// the buffer leaves room for "\r\n", so a line ending in a bare
		// "\n" can still be one byte over
		if len(line) > s.maxMessageSize {
			return "", bufio.ErrTooLong
		}
		return line, nil
	}
	if err := s.scanner.Err(); err != nil {
		return "", err
	}
	return "", io.EOF
}

func (s *tcpStream) WriteFrame(frame []byte) error {
	if s.writeTimeout > 0 {
		if err := s.conn.SetWriteDeadline(time.Now().Add(s.writeTimeout)); err != nil {
			return err
		}
	}
	_, err := s.conn.Write(frame)
	return err
}

func (s *tcpStream) Close() error {
	return s.conn.Close()
}
