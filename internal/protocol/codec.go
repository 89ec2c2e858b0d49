package protocol

import (
	"strings"
	"unicode/utf8"
)

// Encode serializes a text payload for DataChannel transmission.
func Encode(msg string) []byte {
	return []byte(msg)
}

// DecodeText interprets a received payload as text. Invalid UTF-8
// sequences are replaced with U+FFFD rather than rejected, so a corrupt
// datagram never ends the read loop.
func DecodeText(data []byte) string {
	if utf8.Valid(data) {
		return string(data)
	}
	return strings.ToValidUTF8(string(data), "�")
}

// IsPong reports whether data is the server's keepalive answer.
func IsPong(data []byte) bool {
	return string(data) == Pong
}
