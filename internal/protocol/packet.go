// Package protocol defines the keepalive payloads exchanged over the DataChannel.
package protocol

// Keepalive payloads. The client sends Ping; the server answers each Ping
// with Pong. Both travel as plain text.
const (
	Ping = "PING"
	Pong = "PONG"
)

// DataChannelLabel is the label of the single keepalive channel.
const DataChannelLabel = "data"
