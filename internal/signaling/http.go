package signaling

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// ErrUnexpectedStatus is wrapped when the signaling endpoint answers with a
// non-2xx status.
var ErrUnexpectedStatus = errors.New("unexpected signaling response status")

// maxResponseSize bounds how much of a signaling response is read.
const maxResponseSize = 1 << 20

// NewPoster returns the Poster matching the endpoint's scheme: a plain HTTP
// POST for http/https, a single text message exchange for ws/wss.
func NewPoster(endpoint string, timeout time.Duration) (Poster, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid signaling URL: %w", err)
	}
	switch u.Scheme {
	case "http", "https":
		return &httpPoster{
			endpoint: endpoint,
			client:   &http.Client{Timeout: timeout},
		}, nil
	case "ws", "wss":
		return &wsPoster{endpoint: endpoint, timeout: timeout}, nil
	default:
		return nil, fmt.Errorf("unsupported signaling URL scheme %q", u.Scheme)
	}
}

type httpPoster struct {
	endpoint string
	client   *http.Client
}

// Post sends the offer as the raw request body and returns the response body.
func (p *httpPoster) Post(ctx context.Context, offer string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewBufferString(offer))
	if err != nil {
		return nil, fmt.Errorf("failed to build signaling request: %w", err)
	}
	req.ContentLength = int64(len(offer))
	req.Header.Set("Content-Type", "application/sdp")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("signaling request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("failed to read signaling response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: %d: %s", ErrUnexpectedStatus, resp.StatusCode, bytes.TrimSpace(body))
	}
	return body, nil
}
