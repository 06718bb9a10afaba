package client

import "errors"

var (
	// ErrReadTimeout ends the receive path when the server stays silent for
	// longer than Config.ReadTimeout.
	ErrReadTimeout = errors.New("client: no data from server within read timeout")
	// ErrServerDisconnected ends the receive path when the server closes the
	// connection.
	ErrServerDisconnected = errors.New("client: server disconnected")
)
