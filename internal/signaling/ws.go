package signaling

import (
	"context"
	"fmt"
	"time"

	"github.com/gorilla/websocket"

	"github.com/1ureka/rtcping/internal/util"
)

// wsPoster carries the offer/response round trip over a WebSocket: one text
// message out, one text message back, then the connection is closed.
type wsPoster struct {
	endpoint string
	timeout  time.Duration
}

func (p *wsPoster) Post(ctx context.Context, offer string) ([]byte, error) {
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, p.endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to WS server: %w", err)
	}
	defer conn.Close()

	// Unblock the read below if ctx ends first.
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	if deadline, ok := ctx.Deadline(); ok {
		if err := conn.SetWriteDeadline(deadline); err != nil {
			return nil, fmt.Errorf("failed to set WS write deadline: %w", err)
		}
		if err := conn.SetReadDeadline(deadline); err != nil {
			return nil, fmt.Errorf("failed to set WS read deadline: %w", err)
		}
	}

	if err := conn.WriteMessage(websocket.TextMessage, []byte(offer)); err != nil {
		return nil, fmt.Errorf("failed to send offer: %w", err)
	}

	conn.SetReadLimit(maxResponseSize)
	msgType, body, err := conn.ReadMessage()
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("failed to read signaling response: %w", err)
	}
	if msgType != websocket.TextMessage {
		return nil, fmt.Errorf("unexpected WS message type %d", msgType)
	}

	if err := conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")); err != nil {
		util.LogDebug("WS close frame not sent: %v", err)
	}
	return body, nil
}
