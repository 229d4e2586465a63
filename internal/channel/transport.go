package channel

import (
	"context"
	"errors"

	"github.com/mmynk/splitsync/internal/wire"
)

var (
	// ErrHandshakeRejected means the server refused the credential.
	ErrHandshakeRejected = errors.New("channel handshake rejected")
	// ErrNotConnected is returned by Emit when no transport is open.
	ErrNotConnected = errors.New("channel not connected")
)

// Transport is one live bidirectional connection to the backend.
type Transport interface {
	// Send writes one frame.
	Send(ctx context.Context, f wire.Frame) error

	// Frames delivers inbound frames in arrival order. The channel is closed
	// when the connection ends for any reason.
	Frames() <-chan wire.Frame

	// Err reports why Frames was closed. It is nil after a local Close.
	Err() error

	// Close tears the connection down. It is safe to call more than once.
	Close() error
}

// Dialer opens transports authenticated with a credential token.
type Dialer interface {
	Dial(ctx context.Context, token string) (Transport, error)
}

// DialerFunc adapts a function to the Dialer interface.
type DialerFunc func(ctx context.Context, token string) (Transport, error)

func (f DialerFunc) Dial(ctx context.Context, token string) (Transport, error) {
	return f(ctx, token)
}
