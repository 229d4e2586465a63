package channel

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/mmynk/splitsync/internal/wire"
)

const closeWriteTimeout = time.Second

// WebSocketDialer dials the backend channel over WebSocket, attaching the
// credential as a bearer Authorization header.
type WebSocketDialer struct {
	// URL is the channel endpoint, e.g. ws://localhost:3000/ws.
	URL string

	// Dialer defaults to websocket.DefaultDialer.
	Dialer *websocket.Dialer
}

// Dial opens a transport. A 401 or 403 handshake response is reported as
// ErrHandshakeRejected.
func (d *WebSocketDialer) Dial(ctx context.Context, token string) (Transport, error) {
	dialer := d.Dialer
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}

	header := http.Header{}
	header.Set("Authorization", "Bearer "+token)

	conn, resp, err := dialer.DialContext(ctx, d.URL, header)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		if resp != nil && (resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden) {
			return nil, fmt.Errorf("%w: %s", ErrHandshakeRejected, resp.Status)
		}
		return nil, fmt.Errorf("failed to dial %s: %w", d.URL, err)
	}

	return NewWebSocketTransport(conn), nil
}

// WebSocketTransport adapts a gorilla connection to Transport.
type WebSocketTransport struct {
	conn   *websocket.Conn
	frames chan wire.Frame
	closed chan struct{}

	writeMu   sync.Mutex
	closeOnce sync.Once

	errMu sync.Mutex
	err   error
}

// NewWebSocketTransport starts reading from conn.
func NewWebSocketTransport(conn *websocket.Conn) *WebSocketTransport {
	t := &WebSocketTransport{
		conn:   conn,
		frames: make(chan wire.Frame, 16),
		closed: make(chan struct{}),
	}
	go t.readLoop()
	return t
}

func (t *WebSocketTransport) readLoop() {
	defer close(t.frames)
	for {
		var f wire.Frame
		if err := t.conn.ReadJSON(&f); err != nil {
			select {
			case <-t.closed:
			default:
				t.setErr(err)
			}
			return
		}
		select {
		case t.frames <- f:
		case <-t.closed:
			return
		}
	}
}

func (t *WebSocketTransport) setErr(err error) {
	t.errMu.Lock()
	defer t.errMu.Unlock()
	if t.err == nil {
		t.err = err
	}
}

// Send writes one frame as a JSON text message.
func (t *WebSocketTransport) Send(ctx context.Context, f wire.Frame) error {
	t.writeMu.Lock()
	defer t.writeMu.Unlock()

	select {
	case <-t.closed:
		return ErrNotConnected
	default:
	}

	// A zero deadline means no timeout.
	deadline, _ := ctx.Deadline()
	if err := t.conn.SetWriteDeadline(deadline); err != nil {
		return err
	}
	if err := t.conn.WriteJSON(f); err != nil {
		return fmt.Errorf("failed to send %s: %w", f.Event, err)
	}
	return nil
}

func (t *WebSocketTransport) Frames() <-chan wire.Frame { return t.frames }

func (t *WebSocketTransport) Err() error {
	t.errMu.Lock()
	defer t.errMu.Unlock()
	return t.err
}

// Close sends a normal close frame and closes the connection.
func (t *WebSocketTransport) Close() error {
	var err error
	t.closeOnce.Do(func() {
		close(t.closed)
		// Best effort: the peer may already be gone.
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		_ = t.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(closeWriteTimeout))
		err = t.conn.Close()
	})
	return err
}
