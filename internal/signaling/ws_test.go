package signaling

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

var testUpgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestWSPosterRoundTrip(t *testing.T) {
	want := responseBody(t, nil)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := testUpgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		defer conn.Close()

		msgType, offer, err := conn.ReadMessage()
		if err != nil {
			t.Errorf("read offer: %v", err)
			return
		}
		if msgType != websocket.TextMessage || string(offer) != testSDP {
			t.Errorf("offer = (%d, %q)", msgType, offer)
		}
		conn.WriteMessage(websocket.TextMessage, want)
	}))
	defer srv.Close()

	poster, err := NewPoster(wsURL(srv), time.Second)
	if err != nil {
		t.Fatalf("NewPoster: %v", err)
	}
	got, err := poster.Post(context.Background(), testSDP)
	if err != nil {
		t.Fatalf("Post: %v", err)
	}
	if string(got) != string(want) {
		t.Errorf("body = %s, want %s", got, want)
	}
}

func TestWSPosterServerCloses(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := testUpgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		conn.ReadMessage()
		conn.Close()
	}))
	defer srv.Close()

	poster, _ := NewPoster(wsURL(srv), time.Second)
	if _, err := poster.Post(context.Background(), testSDP); err == nil {
		t.Fatal("expected an error when the server closes without replying")
	}
}

func TestWSPosterTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := testUpgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		<-release
	}))
	defer srv.Close()
	defer close(release)

	poster, _ := NewPoster(wsURL(srv), 50*time.Millisecond)
	start := time.Now()
	if _, err := poster.Post(context.Background(), testSDP); err == nil {
		t.Fatal("expected a timeout error")
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("Post took %s", elapsed)
	}
}

// TestWSPosterSendsCloseFrame verifies the poster ends the session with a
// normal closure once the response has been read.
func TestWSPosterSendsCloseFrame(t *testing.T) {
	closeErr := make(chan error, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := testUpgrader.Upgrade(w, r, nil)
		if err != nil {
			closeErr <- err
			return
		}
		defer conn.Close()

		if _, _, err := conn.ReadMessage(); err != nil {
			closeErr <- err
			return
		}
		conn.WriteMessage(websocket.TextMessage, []byte("{}"))

		_, _, err = conn.ReadMessage()
		closeErr <- err
	}))
	defer srv.Close()

	poster, _ := NewPoster(wsURL(srv), time.Second)
	if _, err := poster.Post(context.Background(), testSDP); err != nil {
		t.Fatalf("Post: %v", err)
	}

	select {
	case err := <-closeErr:
		if !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
			t.Errorf("server saw %v, want a normal closure", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("server never saw the close frame")
	}
}
