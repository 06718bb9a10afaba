// Package protocol defines the line framing shared by the relay server and
// its terminal client.
//
// Every logical message is one line terminated by '\n'. There is no length
// prefix and no envelope. Broadcast frames carry the sender address as
// "[<address>]:<message>\n"; client frames are the raw operator text plus
// the terminator.
package protocol
