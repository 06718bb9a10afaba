// Package client implements the terminal side of the line relay.
//
// A Client runs two paths over one TCP connection. The receive path only
// reads: it renders every broadcast and ends on timeout, disconnect or error.
// The send path only writes: it forwards each non-blank line of operator
// input. Because neither path touches the other's direction, the connection
// needs no lock. When the receive path sees the server go away it closes a
// one-shot channel that the send path checks before handling its next line.
package client
