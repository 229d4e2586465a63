package channel

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/mmynk/splitsync/internal/wire"
)

// echoServer accepts connections carrying the expected bearer token and
// echoes every frame back.
func echoServer(t *testing.T, token string) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer "+token {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			var f wire.Frame
			if err := conn.ReadJSON(&f); err != nil {
				return
			}
			if err := conn.WriteJSON(f); err != nil {
				return
			}
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestWebSocketDialer_RejectedHandshake(t *testing.T) {
	srv := echoServer(t, "good")
	d := &WebSocketDialer{URL: wsURL(srv)}

	_, err := d.Dial(context.Background(), "bad")
	if !errors.Is(err, ErrHandshakeRejected) {
		t.Fatalf("error = %v, want ErrHandshakeRejected", err)
	}
}

func TestWebSocketTransport_RoundTrip(t *testing.T) {
	srv := echoServer(t, "good")
	d := &WebSocketDialer{URL: wsURL(srv)}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	tr, err := d.Dial(ctx, "good")
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	defer tr.Close()

	frame, err := wire.NewFrame(wire.EventJoinGroup, "g1")
	if err != nil {
		t.Fatalf("NewFrame failed: %v", err)
	}
	if err := tr.Send(ctx, frame); err != nil {
		t.Fatalf("Send failed: %v", err)
	}

	select {
	case got := <-tr.Frames():
		if got.Event != wire.EventJoinGroup || string(got.Data) != `"g1"` {
			t.Errorf("echo = %+v", got)
		}
	case <-ctx.Done():
		t.Fatal("timed out waiting for echo")
	}

	if err := tr.Close(); err != nil {
		t.Errorf("Close failed: %v", err)
	}
	if err := tr.Close(); err != nil {
		t.Errorf("second Close failed: %v", err)
	}
	if err := tr.Send(ctx, frame); !errors.Is(err, ErrNotConnected) {
		t.Errorf("Send after Close = %v, want ErrNotConnected", err)
	}
}

func TestWebSocketTransport_ServerDrop(t *testing.T) {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		conn.Close()
	}))
	defer srv.Close()

	tr, err := (&WebSocketDialer{URL: wsURL(srv)}).Dial(context.Background(), "any")
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	defer tr.Close()

	select {
	case _, ok := <-tr.Frames():
		if ok {
			t.Fatal("expected frames channel to close")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for drop")
	}
	if tr.Err() == nil {
		t.Error("expected a drop error")
	}
}
