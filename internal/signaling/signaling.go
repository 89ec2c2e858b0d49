package signaling

import (
	"context"
	"fmt"

	"github.com/1ureka/rtcping/internal/config"
	"github.com/1ureka/rtcping/internal/peeraddr"
	"github.com/1ureka/rtcping/internal/transport"
	"github.com/1ureka/rtcping/internal/util"
)

// Establish executes the full client-side signaling flow:
//  1. Create a Transport (PeerConnection + keepalive DataChannel)
//  2. Post the offer to cfg.SignalingURL
//  3. Apply the returned answer and candidate, feeding cell
//  4. Wait for the DataChannel to open
//  5. Return the ready Transport
//
// Any failure closes the Transport and is returned; there is no retry.
func Establish(ctx context.Context, cfg config.Config, cell *peeraddr.Cell, opts transport.Options) (*transport.Transport, error) {
	poster, err := NewPoster(cfg.SignalingURL, cfg.RequestTimeout)
	if err != nil {
		return nil, err
	}

	tr, err := transport.New(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to create Transport: %w", err)
	}

	util.LogInfo("signaling via %s", cfg.SignalingURL)
	ex := &Exchange{
		Peer:          tr,
		Poster:        poster,
		Cell:          cell,
		GatherTimeout: cfg.GatherTimeout,
	}
	if err := ex.Run(ctx); err != nil {
		tr.Close()
		return nil, err
	}

	select {
	case <-tr.Ready():
		util.LogInfo("WebRTC DataChannel established")
		return tr, nil

	case <-tr.Done():
		tr.Close()
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, transport.ErrPeerFailed

	case <-ctx.Done():
		tr.Close()
		return nil, ctx.Err()
	}
}
