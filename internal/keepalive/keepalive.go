// Package keepalive runs the PING loop over an opened DataChannel and logs
// every message the peer sends back.
package keepalive

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/1ureka/rtcping/internal/config"
	"github.com/1ureka/rtcping/internal/peeraddr"
	"github.com/1ureka/rtcping/internal/protocol"
	"github.com/1ureka/rtcping/internal/util"
)

// Conn is the blocking message stream the loop runs over.
// *transport.Channel implements it.
type Conn interface {
	Read(p []byte) (int, error)
	Write(p []byte) (int, error)
	Close() error
	MaxMessageSize() int
}

// Options configures Run.
type Options struct {
	// Interval between PING messages. Non-positive means config.DefaultKeepaliveInterval.
	Interval time.Duration
}

// Run starts the read and write tasks and blocks until both have ended.
//
// The write task sends a PING every Interval and stops at the first failed
// send. The read task logs each received message and stops when the
// channel closes or a read fails. A task ending does not end its sibling.
// Cancelling ctx stops the write task and closes conn so a blocked read
// returns.
func Run(ctx context.Context, conn Conn, cell *peeraddr.Cell, opts Options) {
	interval := opts.Interval
	if interval <= 0 {
		interval = config.DefaultKeepaliveInterval
	}

	stop := context.AfterFunc(ctx, func() {
		if err := conn.Close(); err != nil {
			util.LogDebug("close after cancel: %v", err)
		}
	})
	defer stop()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		readLoop(conn, cell)
	}()
	go func() {
		defer wg.Done()
		writeLoop(ctx, conn, cell, interval)
	}()
	wg.Wait()
}

// readLoop logs every message until the channel ends.
func readLoop(conn Conn, cell *peeraddr.Cell) {
	size := conn.MaxMessageSize()
	if size <= 0 {
		size = config.DefaultMessageSize
	}
	buf := make([]byte, size)

	for {
		n, err := conn.Read(buf)
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrClosedPipe) {
				util.LogInfo("DataChannel closed, read task done")
			} else {
				util.LogWarning("read failed, read task done: %v", err)
			}
			return
		}

		util.Stats.AddRecv(n)
		util.LogInfo("recv [%s] %s", cell.Get(), protocol.DecodeText(buf[:n]))
	}
}

// writeLoop sends a PING on every tick and gives up after the first failure.
func writeLoop(ctx context.Context, conn Conn, cell *peeraddr.Cell, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	ping := protocol.Encode(protocol.Ping)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		if _, err := conn.Write(ping); err != nil {
			util.LogWarning("send failed, write task done: %v", err)
			return
		}
		util.Stats.AddSent(len(ping))
		util.LogInfo("send [%s] %s", cell.Get(), protocol.Ping)
	}
}
