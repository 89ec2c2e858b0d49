// Package app contains the top-level orchestration of the keepalive client.
package app

import (
	"context"
	"fmt"

	"github.com/1ureka/rtcping/internal/config"
	"github.com/1ureka/rtcping/internal/keepalive"
	"github.com/1ureka/rtcping/internal/peeraddr"
	"github.com/1ureka/rtcping/internal/signaling"
	"github.com/1ureka/rtcping/internal/transport"
	"github.com/1ureka/rtcping/internal/util"
)

// RunClient orchestrates the full client lifecycle:
//  1. Post the offer to the signaling endpoint and apply the response
//  2. Wait for the DataChannel to open and detach it
//  3. Start the stats reporter
//  4. Run the keepalive loop until ctx is cancelled or the peer goes away
//
// Errors during 1 and 2 are returned; once the loop runs, RunClient returns
// nil when it ends.
func RunClient(ctx context.Context, cfg config.Config) error {
	return run(ctx, cfg, transport.OptionsFromConfig(cfg))
}

func run(ctx context.Context, cfg config.Config, opts transport.Options) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	// ── 1. Signaling ───────────────────────────────────────────────────
	cell := peeraddr.NewCell()
	tr, err := signaling.Establish(ctx, cfg, cell, opts)
	if err != nil {
		return fmt.Errorf("failed to establish DataChannel: %w", err)
	}
	defer tr.Close()

	// ── 2. Detach ──────────────────────────────────────────────────────
	ch, err := tr.Open(ctx)
	if err != nil {
		return fmt.Errorf("failed to open DataChannel: %w", err)
	}
	defer ch.Close()

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() {
		select {
		case <-tr.Done():
			if ctx.Err() == nil {
				util.LogWarning("peer connection ended (%s)", tr.ConnectionState())
			}
			cancel()
		case <-runCtx.Done():
		}
	}()

	// ── 3. Stats ───────────────────────────────────────────────────────
	util.StartStatsReporter(runCtx, cfg.StatsInterval)

	// ── 4. Keepalive ───────────────────────────────────────────────────
	util.LogSuccess("DataChannel '%s' ready, remote %s, PING every %s",
		ch.Label(), cell.Get(), cfg.KeepaliveInterval)

	keepalive.Run(runCtx, ch, cell.Clone(), keepalive.Options{Interval: cfg.KeepaliveInterval})

	util.LogInfo("keepalive stopped")
	return nil
}
