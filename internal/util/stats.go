package util

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/pterm/pterm"
)

// ──────────────────────────────────────────────────────────────────────────────
// Global stats singleton
// ──────────────────────────────────────────────────────────────────────────────

// Stats is the process-wide keepalive traffic counter.
var Stats = &stats{}

type stats struct {
	MessagesSent atomic.Int64 // cumulative keepalive messages written to the DataChannel
	MessagesRecv atomic.Int64 // cumulative messages read from the DataChannel
	BytesSent    atomic.Int64 // cumulative bytes written to the DataChannel
	BytesRecv    atomic.Int64 // cumulative bytes read from the DataChannel
}

func (s *stats) AddSent(n int) { s.MessagesSent.Add(1); s.BytesSent.Add(int64(n)) }
func (s *stats) AddRecv(n int) { s.MessagesRecv.Add(1); s.BytesRecv.Add(int64(n)) }

// snapshot is a point-in-time copy of the counters.
type snapshot struct {
	msgSent, msgRecv, bytesSent, bytesRecv int64
}

func (s *stats) snapshot() snapshot {
	return snapshot{
		msgSent:   s.MessagesSent.Load(),
		msgRecv:   s.MessagesRecv.Load(),
		bytesSent: s.BytesSent.Load(),
		bytesRecv: s.BytesRecv.Load(),
	}
}

// ──────────────────────────────────────────────────────────────────────────────
// Periodic reporter
// ──────────────────────────────────────────────────────────────────────────────

// StartStatsReporter launches a goroutine that logs keepalive statistics
// every interval, skipping intervals without traffic. It stops when ctx is
// cancelled. A non-positive interval disables the reporter.
func StartStatsReporter(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		prev := Stats.snapshot()
		for {
			select {
			case <-ticker.C:
				cur := Stats.snapshot()
				sent := cur.msgSent - prev.msgSent
				recv := cur.msgRecv - prev.msgRecv

				if sent > 0 || recv > 0 {
					secs := interval.Seconds()
					pterm.DefaultLogger.Info(formatStats(
						float64(cur.bytesSent-prev.bytesSent)/secs,
						float64(cur.bytesRecv-prev.bytesRecv)/secs,
						sent,
						recv,
					))
				}

				prev = cur

			case <-ctx.Done():
				return
			}
		}
	}()
}

// byteUnits defines the units for formatting byte counts in a human-readable way.
var byteUnits = []string{"B", "KiB", "MiB", "GiB", "TiB", "PiB"}

// formatBytes formats a byte count into a human-readable string with fixed width (exactly 8 chars)
// for example: "99.0   B", " 1.5 KiB", " 0.1 MiB", "98.9 GiB", etc.
func formatBytes(b float64) string {
	unitIdx := 0

	// to prevent "100.0 KiB", which is 9 chars
	for b > 99 && unitIdx < 5 {
		b /= 1024
		unitIdx++
	}

	return fmt.Sprintf("%4.1f %3s", b, byteUnits[unitIdx])
}

// formatStats returns a formatted string of the current stats for display in the logger.
func formatStats(outS, inS float64, sent, recv int64) string {
	return fmt.Sprintf("Out: %s/s | In: %s/s | Msg: %2d↑ %2d↓",
		formatBytes(outS),
		formatBytes(inS),
		sent,
		recv,
	)
}
