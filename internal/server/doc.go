// Package server implements the line relay: a TCP accept loop that registers
// every connection as a Peer, one handler goroutine per Peer reading
// newline-delimited messages, and a Broadcaster that fans each message out to
// every other registered Peer.
//
// The Registry is the only structure shared by all goroutines. Its lock is
// held for bookkeeping only; network writes happen outside it, serialized per
// Peer. An optional WebSocket gateway attaches browser peers to the same
// Registry.
package server
