package testpeer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/pion/ice/v4"
	piontransport "github.com/pion/transport/v3"
	"github.com/pion/webrtc/v4"

	"github.com/1ureka/rtcping/internal/protocol"
	"github.com/1ureka/rtcping/internal/signaling"
	"github.com/1ureka/rtcping/internal/util"
)

// Answerer plays the server side: it answers offers and replies PONG to
// every PING received on the keepalive DataChannel.
type Answerer struct {
	api *webrtc.API

	mu  sync.Mutex
	pcs []*webrtc.PeerConnection

	pings atomic.Int64
}

// NewAnswerer returns an Answerer whose PeerConnections use n.
func NewAnswerer(n piontransport.Net) *Answerer {
	se := webrtc.SettingEngine{LoggerFactory: util.PionLoggerFactory{}}
	se.SetICEMulticastDNSMode(ice.MulticastDNSModeDisabled)
	if n != nil {
		se.SetNet(n)
	}
	return &Answerer{api: webrtc.NewAPI(webrtc.WithSettingEngine(se))}
}

// Pings returns how many PING messages have been received.
func (a *Answerer) Pings() int64 { return a.pings.Load() }

// Answer applies offerSDP, gathers candidates and returns the answer with
// the first local candidate.
func (a *Answerer) Answer(ctx context.Context, offerSDP string) (signaling.Response, error) {
	pc, err := a.api.NewPeerConnection(webrtc.Configuration{})
	if err != nil {
		return signaling.Response{}, fmt.Errorf("new peer connection: %w", err)
	}
	a.mu.Lock()
	a.pcs = append(a.pcs, pc)
	a.mu.Unlock()

	var (
		candMu sync.Mutex
		first  *webrtc.ICECandidateInit
	)
	pc.OnICECandidate(func(c *webrtc.ICECandidate) {
		if c == nil {
			return
		}
		candMu.Lock()
		defer candMu.Unlock()
		if first == nil {
			init := c.ToJSON()
			first = &init
		}
	})

	pc.OnDataChannel(func(dc *webrtc.DataChannel) {
		dc.OnMessage(func(msg webrtc.DataChannelMessage) {
			if string(msg.Data) != protocol.Ping {
				return
			}
			a.pings.Add(1)
			if err := dc.SendText(protocol.Pong); err != nil {
				util.LogDebug("testpeer: send PONG: %v", err)
			}
		})
	})

	offer := webrtc.SessionDescription{Type: webrtc.SDPTypeOffer, SDP: offerSDP}
	if err := pc.SetRemoteDescription(offer); err != nil {
		return signaling.Response{}, fmt.Errorf("set remote description: %w", err)
	}
	answer, err := pc.CreateAnswer(nil)
	if err != nil {
		return signaling.Response{}, fmt.Errorf("create answer: %w", err)
	}
	gathered := webrtc.GatheringCompletePromise(pc)
	if err := pc.SetLocalDescription(answer); err != nil {
		return signaling.Response{}, fmt.Errorf("set local description: %w", err)
	}

	select {
	case <-gathered:
	case <-ctx.Done():
		return signaling.Response{}, ctx.Err()
	}

	candMu.Lock()
	defer candMu.Unlock()
	if first == nil {
		return signaling.Response{}, errors.New("no local candidate gathered")
	}

	resp := signaling.Response{
		Answer: signaling.Answer{
			SDP:  pc.LocalDescription().SDP,
			Type: webrtc.SDPTypeAnswer.String(),
		},
		Candidate: signaling.Candidate{Candidate: first.Candidate},
	}
	if first.SDPMid != nil {
		resp.Candidate.SDPMid = *first.SDPMid
	}
	if first.SDPMLineIndex != nil {
		resp.Candidate.SDPMLineIndex = *first.SDPMLineIndex
	}
	return resp, nil
}

// Close closes every PeerConnection the Answerer created.
func (a *Answerer) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	var errs []error
	for _, pc := range a.pcs {
		errs = append(errs, pc.Close())
	}
	a.pcs = nil
	return errors.Join(errs...)
}
