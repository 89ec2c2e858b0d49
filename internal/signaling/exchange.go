package signaling

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/pion/sdp/v3"
	"github.com/pion/webrtc/v4"

	"github.com/1ureka/rtcping/internal/peeraddr"
	"github.com/1ureka/rtcping/internal/util"
)

// ErrNoApplicationMedia is returned when a session description carries no
// "application" media section, i.e. no DataChannel can be negotiated.
var ErrNoApplicationMedia = errors.New("session description has no application media section")

// State is the position of an Exchange in the signaling sequence.
type State int

const (
	StateCreatingOffer State = iota
	StateAwaitingResponse
	StateApplyingRemoteDescription
	StateApplyingCandidate
	StateReady
	StateAborted
)

func (s State) String() string {
	switch s {
	case StateCreatingOffer:
		return "creating-offer"
	case StateAwaitingResponse:
		return "awaiting-response"
	case StateApplyingRemoteDescription:
		return "applying-remote-description"
	case StateApplyingCandidate:
		return "applying-candidate"
	case StateReady:
		return "ready"
	case StateAborted:
		return "aborted"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Error reports the step an Exchange was in when it aborted.
type Error struct {
	State State
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("signaling aborted while %s: %v", e.State, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Peer is the local WebRTC surface an Exchange drives. *transport.Transport
// implements it.
type Peer interface {
	CreateOffer() (webrtc.SessionDescription, error)
	SetLocalDescription(webrtc.SessionDescription) error
	LocalDescription() *webrtc.SessionDescription
	GatheringComplete() <-chan struct{}
	SetRemoteDescription(webrtc.SessionDescription) error
	AddICECandidate(webrtc.ICECandidateInit) error
}

// Poster delivers the offer SDP to the signaling endpoint and returns the
// raw response body.
type Poster interface {
	Post(ctx context.Context, offer string) ([]byte, error)
}

// Exchange performs one offer/answer round trip. It is single-use.
type Exchange struct {
	Peer   Peer
	Poster Poster

	// Cell receives the remote address parsed from the server's candidate.
	// It may be nil.
	Cell *peeraddr.Cell

	// GatherTimeout bounds how long local ICE gathering may run before the
	// offer is posted. Zero posts immediately after SetLocalDescription.
	GatherTimeout time.Duration

	// OnStateChange, if set, is called on every transition.
	OnStateChange func(State)
}

// Run executes the exchange. Every failure is fatal and returned as *Error;
// on success the remote description and candidate have been applied and
// the DataChannel opens asynchronously.
func (e *Exchange) Run(ctx context.Context) error {
	state := StateCreatingOffer
	e.transition(state)

	abort := func(err error) error {
		e.transition(StateAborted)
		return &Error{State: state, Err: err}
	}

	offer, err := e.createOffer(ctx)
	if err != nil {
		return abort(err)
	}

	state = StateAwaitingResponse
	e.transition(state)
	body, err := e.Poster.Post(ctx, offer)
	if err != nil {
		return abort(err)
	}
	resp, err := DecodeResponse(body)
	if err != nil {
		return abort(err)
	}

	state = StateApplyingRemoteDescription
	e.transition(state)
	if err := validateSDP(resp.Answer.SDP); err != nil {
		return abort(err)
	}
	if err := e.Peer.SetRemoteDescription(resp.Answer.SessionDescription()); err != nil {
		return abort(fmt.Errorf("failed to set remote description: %w", err))
	}

	state = StateApplyingCandidate
	e.transition(state)
	if e.Cell != nil {
		if e.Cell.SetFromCandidate(resp.Candidate.Candidate) {
			util.LogDebug("remote address resolved: %s", e.Cell.Get())
		} else {
			util.LogDebug("no address taken from candidate %q", resp.Candidate.Candidate)
		}
	}
	if err := e.Peer.AddICECandidate(resp.Candidate.ICECandidateInit()); err != nil {
		return abort(fmt.Errorf("failed to add ICE candidate: %w", err))
	}

	e.transition(StateReady)
	return nil
}

// createOffer creates and applies the local offer, then waits for gathering
// to finish (bounded by GatherTimeout) so the posted SDP carries as many
// local candidates as were found.
func (e *Exchange) createOffer(ctx context.Context) (string, error) {
	offer, err := e.Peer.CreateOffer()
	if err != nil {
		return "", fmt.Errorf("failed to create offer: %w", err)
	}

	gathered := e.Peer.GatheringComplete()
	if err := e.Peer.SetLocalDescription(offer); err != nil {
		return "", fmt.Errorf("failed to set local description: %w", err)
	}

	if e.GatherTimeout > 0 {
		timer := time.NewTimer(e.GatherTimeout)
		defer timer.Stop()
		select {
		case <-gathered:
		case <-timer.C:
			util.LogDebug("ICE gathering still running after %s, posting offer", e.GatherTimeout)
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}

	local := e.Peer.LocalDescription()
	if local == nil {
		return "", errors.New("local description is not set")
	}
	if err := validateSDP(local.SDP); err != nil {
		return "", err
	}
	return local.SDP, nil
}

func (e *Exchange) transition(s State) {
	util.LogDebug("signaling: %s", s)
	if e.OnStateChange != nil {
		e.OnStateChange(s)
	}
}

// validateSDP checks that raw parses as SDP and offers an application
// (DataChannel) media section.
func validateSDP(raw string) error {
	var desc sdp.SessionDescription
	if err := desc.UnmarshalString(raw); err != nil {
		return fmt.Errorf("invalid session description: %w", err)
	}
	for _, m := range desc.MediaDescriptions {
		if m.MediaName.Media == "application" {
			return nil
		}
	}
	return ErrNoApplicationMedia
}
