package protocol

import (
	"strings"
)

// Terminator delimits messages on the byte stream.
const Terminator = '\n'

var terminatorReplacer = strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ")

// Sanitize collapses embedded line terminators into single spaces so the
// message cannot be split into several frames on the wire.
func Sanitize(message string) string {
	if !strings.ContainsAny(message, "\r\n") {
		return message
	}
	return terminatorReplacer.Replace(message)
}

// TrimTerminator strips a trailing "\n" or "\r\n" from a received line.
func TrimTerminator(line string) string {
	line = strings.TrimSuffix(line, "\n")
	return strings.TrimSuffix(line, "\r")
}

// FormatBroadcast builds the frame the server writes to every recipient.
func FormatBroadcast(sender, message string) []byte {
	message = Sanitize(message)
	b := make([]byte, 0, len(sender)+len(message)+4)
	b = append(b, '[')
	b = append(b, sender...)
	b = append(b, ']', ':')
	b = append(b, message...)
	return append(b, Terminator)
}

// FormatOutbound frames operator input for the server.
func FormatOutbound(message string) []byte {
	message = Sanitize(message)
	b := make([]byte, 0, len(message)+1)
	b = append(b, message...)
	return append(b, Terminator)
}

// ParseBroadcast splits a received broadcast frame into its sender and body.
// ok is false when the line is not in broadcast form.
func ParseBroadcast(line string) (sender, message string, ok bool) {
	line = TrimTerminator(line)
	if !strings.HasPrefix(line, "[") {
		return "", line, false
	}
	// IPv6 senders carry their own brackets: "[[::1]:4000]:msg".
	from := 1
	if strings.HasPrefix(line, "[[") {
		from = strings.IndexByte(line, ']') + 1
	}
	end := strings.Index(line[from:], "]:")
	if end < 0 {
		return "", line, false
	}
	end += from
	return line[1:end], line[end+2:], true
}

// IsBlank reports whether operator input carries nothing worth sending.
func IsBlank(input string) bool {
	return strings.TrimSpace(input) == ""
}
