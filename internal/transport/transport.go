package transport

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/pion/webrtc/v4"

	"github.com/1ureka/rtcping/internal/util"
)

// ErrPeerFailed is returned by Open when the PeerConnection fails or closes
// before the DataChannel opens.
var ErrPeerFailed = errors.New("peer connection failed before the DataChannel opened")

// Transport wraps a single PeerConnection + DataChannel pair during setup.
// It exposes the signaling surface (CreateOffer / SetRemoteDescription / …)
// and the callback-driven open gate; Open hands the opened channel over as
// a detached *Channel, after which only blocking Read/Write remain.
//
// Its lifecycle is governed by the DataChannel state and the context passed
// at construction time. The PeerConnection state is recorded and ends the
// Transport once it reaches Failed or Closed.
type Transport struct {
	pc *webrtc.PeerConnection
	dc *webrtc.DataChannel

	openSignal chan struct{}
	dcErr      chan error
	fallback   int

	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.RWMutex
	pcState webrtc.PeerConnectionState
}

// New creates a Transport backed by a new PeerConnection and the keepalive
// DataChannel. The caller should perform signaling via the exposed methods
// and then call Open.
func New(ctx context.Context, opts Options) (*Transport, error) {
	pc, err := newPeerConnection(newAPI(opts), opts.STUNServers)
	if err != nil {
		return nil, fmt.Errorf("failed to create PeerConnection: %w", err)
	}

	dc, err := newDataChannel(pc)
	if err != nil {
		pc.Close()
		return nil, fmt.Errorf("failed to create DataChannel: %w", err)
	}

	tCtx, tCancel := context.WithCancel(ctx)

	t := &Transport{
		pc:         pc,
		dc:         dc,
		openSignal: make(chan struct{}),
		dcErr:      make(chan error, 1),
		fallback:   opts.FallbackMessageSize,
		ctx:        tCtx,
		cancel:     tCancel,
		pcState:    webrtc.PeerConnectionStateNew,
	}

	// DC open gate.
	var openOnce sync.Once
	dc.OnOpen(func() {
		id := -1
		if dc.ID() != nil {
			id = int(*dc.ID())
		}
		util.LogInfo("DataChannel '%s'-'%d' open", dc.Label(), id)
		openOnce.Do(func() { close(t.openSignal) })
	})

	dc.OnError(func(err error) {
		util.LogWarning("DataChannel error: %v", err)
		select {
		case t.dcErr <- err:
		default:
		}
	})

	// DC close → cancel transport context.
	dc.OnClose(func() {
		util.LogDebug("DataChannel closed")
		tCancel()
	})

	// A detached DataChannel never reports OnClose; the association ending
	// (remote abort or DTLS close) is the signal that the peer went away.
	pc.SCTP().OnClose(func(err error) {
		if err != nil {
			util.LogDebug("SCTP association closed: %v", err)
		} else {
			util.LogDebug("SCTP association closed")
		}
		tCancel()
	})

	pc.OnICECandidate(func(c *webrtc.ICECandidate) {
		if c == nil {
			util.LogDebug("all local candidates gathered")
			return
		}
		util.LogDebug("gathered local ICE candidate %s:%d (%s)", c.Address, c.Port, c.Typ)
	})

	pc.OnConnectionStateChange(func(state webrtc.PeerConnectionState) {
		util.LogDebug("PeerConnection state: %s", state.String())
		t.mu.Lock()
		t.pcState = state
		t.mu.Unlock()

		switch state {
		case webrtc.PeerConnectionStateFailed, webrtc.PeerConnectionStateClosed:
			tCancel()
		}
	})

	return t, nil
}

// ---------------------------------------------------------------------------
// Lifecycle
// ---------------------------------------------------------------------------

// Ready returns a channel that is closed when the DataChannel is open.
func (t *Transport) Ready() <-chan struct{} {
	return t.openSignal
}

// Done returns a channel that is closed when the Transport is shut down
// (DataChannel or SCTP association closed, PeerConnection failed/closed, or
// parent context cancelled).
func (t *Transport) Done() <-chan struct{} {
	return t.ctx.Done()
}

// Close shuts down the DataChannel and PeerConnection.
func (t *Transport) Close() error {
	t.cancel()
	return errors.Join(t.dc.Close(), t.pc.Close())
}

// ConnectionState returns the last observed PeerConnection state.
func (t *Transport) ConnectionState() webrtc.PeerConnectionState {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.pcState
}

// Open blocks until the DataChannel opens, then detaches it and returns the
// blocking handle. It fails if the channel reports an error, the
// PeerConnection fails, or ctx is cancelled first.
func (t *Transport) Open(ctx context.Context) (*Channel, error) {
	select {
	case <-t.openSignal:
	case err := <-t.dcErr:
		return nil, fmt.Errorf("DataChannel error before open: %w", err)
	case <-t.ctx.Done():
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, ErrPeerFailed
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	raw, err := t.dc.Detach()
	if err != nil {
		return nil, fmt.Errorf("failed to detach DataChannel: %w", err)
	}

	return newChannel(raw, t.dc.Label(), t.maxMessageSize()), nil
}

// maxMessageSize returns the SCTP-negotiated maximum message size, falling
// back to the configured size when the association reports none.
func (t *Transport) maxMessageSize() int {
	size := 0
	if sctp := t.pc.SCTP(); sctp != nil {
		size = int(sctp.GetCapabilities().MaxMessageSize)
	}
	if size <= 0 {
		size = t.fallback
	}
	return min(size, maxReadBuffer)
}

// ---------------------------------------------------------------------------
// Signaling
// ---------------------------------------------------------------------------

// CreateOffer generates an SDP offer.
func (t *Transport) CreateOffer() (webrtc.SessionDescription, error) {
	return t.pc.CreateOffer(nil)
}

// SetLocalDescription applies the local SDP.
func (t *Transport) SetLocalDescription(sdp webrtc.SessionDescription) error {
	return t.pc.SetLocalDescription(sdp)
}

// LocalDescription returns the applied local SDP, including any candidates
// gathered so far.
func (t *Transport) LocalDescription() *webrtc.SessionDescription {
	return t.pc.LocalDescription()
}

// GatheringComplete returns a channel closed when ICE gathering finishes.
// Call it before SetLocalDescription so the completion is not missed.
func (t *Transport) GatheringComplete() <-chan struct{} {
	return webrtc.GatheringCompletePromise(t.pc)
}

// SetRemoteDescription applies the remote SDP.
func (t *Transport) SetRemoteDescription(sdp webrtc.SessionDescription) error {
	return t.pc.SetRemoteDescription(sdp)
}

// AddICECandidate adds a remote ICE candidate received through signaling.
func (t *Transport) AddICECandidate(candidate webrtc.ICECandidateInit) error {
	return t.pc.AddICECandidate(candidate)
}
