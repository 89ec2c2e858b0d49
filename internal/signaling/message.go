// Package signaling bootstraps the keepalive DataChannel through a single
// HTTP (or WebSocket) request/response: the local offer goes out, the
// server's answer and one ICE candidate come back.
package signaling

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/pion/webrtc/v4"
)

var (
	// ErrMissingField is wrapped by DecodeResponse when a required field is absent or null.
	ErrMissingField = errors.New("missing required field")

	// ErrInvalidSDPType is wrapped by DecodeResponse when answer.type is not "offer" or "answer".
	ErrInvalidSDPType = errors.New("invalid sdp type")
)

// Answer is the server's session description.
type Answer struct {
	SDP  string `json:"sdp"`
	Type string `json:"type"` // "offer" or "answer"
}

// Candidate is the server's ICE candidate.
type Candidate struct {
	Candidate     string `json:"candidate"`
	SDPMLineIndex uint16 `json:"sdpMLineIndex"`
	SDPMid        string `json:"sdpMid"`
}

// Response is the full signaling response body.
type Response struct {
	Answer    Answer    `json:"answer"`
	Candidate Candidate `json:"candidate"`
}

// SessionDescription converts the answer into pion's representation.
func (a Answer) SessionDescription() webrtc.SessionDescription {
	return webrtc.SessionDescription{
		Type: webrtc.NewSDPType(a.Type),
		SDP:  a.SDP,
	}
}

// ICECandidateInit converts the candidate into pion's representation.
func (c Candidate) ICECandidateInit() webrtc.ICECandidateInit {
	mid := c.SDPMid
	index := c.SDPMLineIndex
	return webrtc.ICECandidateInit{
		Candidate:     c.Candidate,
		SDPMid:        &mid,
		SDPMLineIndex: &index,
	}
}

// wire* mirror the public types with pointer fields so absent and null
// values can be told apart from zero values.
type wireResponse struct {
	Answer    *wireAnswer    `json:"answer"`
	Candidate *wireCandidate `json:"candidate"`
}

type wireAnswer struct {
	SDP  *string `json:"sdp"`
	Type *string `json:"type"`
}

type wireCandidate struct {
	Candidate     *string `json:"candidate"`
	SDPMLineIndex *uint16 `json:"sdpMLineIndex"`
	SDPMid        *string `json:"sdpMid"`
}

// DecodeResponse parses a signaling response body. Every field of Response
// is required; a missing, null, or mistyped field is an error. Unknown
// fields are ignored.
func DecodeResponse(body []byte) (Response, error) {
	var w wireResponse
	dec := json.NewDecoder(bytes.NewReader(body))
	if err := dec.Decode(&w); err != nil {
		return Response{}, fmt.Errorf("invalid signaling response: %w", err)
	}
	if err := expectEOF(dec); err != nil {
		return Response{}, err
	}

	if w.Answer == nil {
		return Response{}, fmt.Errorf("%w: answer", ErrMissingField)
	}
	if w.Answer.SDP == nil {
		return Response{}, fmt.Errorf("%w: answer.sdp", ErrMissingField)
	}
	if w.Answer.Type == nil {
		return Response{}, fmt.Errorf("%w: answer.type", ErrMissingField)
	}
	if w.Candidate == nil {
		return Response{}, fmt.Errorf("%w: candidate", ErrMissingField)
	}
	if w.Candidate.Candidate == nil {
		return Response{}, fmt.Errorf("%w: candidate.candidate", ErrMissingField)
	}
	if w.Candidate.SDPMLineIndex == nil {
		return Response{}, fmt.Errorf("%w: candidate.sdpMLineIndex", ErrMissingField)
	}
	if w.Candidate.SDPMid == nil {
		return Response{}, fmt.Errorf("%w: candidate.sdpMid", ErrMissingField)
	}

	switch webrtc.NewSDPType(*w.Answer.Type) {
	case webrtc.SDPTypeOffer, webrtc.SDPTypeAnswer:
	default:
		return Response{}, fmt.Errorf("%w: %q", ErrInvalidSDPType, *w.Answer.Type)
	}

	return Response{
		Answer: Answer{
			SDP:  *w.Answer.SDP,
			Type: *w.Answer.Type,
		},
		Candidate: Candidate{
			Candidate:     *w.Candidate.Candidate,
			SDPMLineIndex: *w.Candidate.SDPMLineIndex,
			SDPMid:        *w.Candidate.SDPMid,
		},
	}, nil
}

func expectEOF(dec *json.Decoder) error {
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return errors.New("invalid signaling response: unexpected trailing data")
	}
	return nil
}
