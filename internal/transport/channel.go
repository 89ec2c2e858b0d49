package transport

import (
	"sync"

	"github.com/pion/datachannel"
)

// maxReadBuffer caps the per-read buffer when the peer advertises a very
// large (or unlimited) SCTP message size.
const maxReadBuffer = 1 << 20

// Channel is a detached DataChannel: message-oriented, blocking Read and
// Write, no callbacks. It is safe for one reader and one writer to use it
// concurrently. Close is idempotent.
type Channel struct {
	raw            datachannel.ReadWriteCloser
	label          string
	maxMessageSize int

	closeOnce sync.Once
	closeErr  error
}

func newChannel(raw datachannel.ReadWriteCloser, label string, maxMessageSize int) *Channel {
	return &Channel{
		raw:            raw,
		label:          label,
		maxMessageSize: maxMessageSize,
	}
}

// Read blocks until one message arrives and copies it into p. It returns
// io.EOF once the channel has been closed by either side.
func (c *Channel) Read(p []byte) (int, error) {
	return c.raw.Read(p)
}

// Write sends p as a single binary message.
func (c *Channel) Write(p []byte) (int, error) {
	return c.raw.Write(p)
}

// Close closes the underlying stream; blocked reads return.
func (c *Channel) Close() error {
	c.closeOnce.Do(func() {
		c.closeErr = c.raw.Close()
	})
	return c.closeErr
}

// Label returns the DataChannel label.
func (c *Channel) Label() string { return c.label }

// MaxMessageSize is the buffer size a reader needs to hold any single message.
func (c *Channel) MaxMessageSize() int { return c.maxMessageSize }
