// Package channel keeps a client connected to the backend's real-time event
// channel. A Manager owns the single live transport, remembers which group
// rooms the client wants to observe and which listeners are registered, and
// replays both on every (re)connect.
package channel

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/mmynk/splitsync/internal/auth"
	"github.com/mmynk/splitsync/internal/metrics"
	"github.com/mmynk/splitsync/internal/wire"
)

// State is the connection state of a Manager.
type State int

const (
	Disconnected State = iota
	Connecting
	Connected
	Reconnecting
)

func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	case Reconnecting:
		return "reconnecting"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

const (
	DefaultMaxAttempts = 5
	DefaultDialTimeout = 10 * time.Second
)

// Backoff is an exponential delay with a cap between reconnect attempts.
type Backoff struct {
	Initial time.Duration
	Max     time.Duration
}

var errTransportClosed = errors.New("transport closed")

// DefaultBackoff waits 1s, 2s, 4s, then 5s between attempts.
var DefaultBackoff = Backoff{Initial: time.Second, Max: 5 * time.Second}

// Delay returns the wait before the given attempt (starting at 1).
func (b Backoff) Delay(attempt int) time.Duration {
	d := b.Initial
	for i := 1; i < attempt && d < b.Max; i++ {
		d *= 2
	}
	if b.Max > 0 && d > b.Max {
		d = b.Max
	}
	return d
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) { m.logger = logger }
}

// WithMaxAttempts sets how many consecutive failures are tolerated before the
// Manager gives up and stays Disconnected.
func WithMaxAttempts(n int) Option {
	return func(m *Manager) { m.maxAttempts = n }
}

// WithBackoff sets the delay policy between reconnect attempts.
func WithBackoff(b Backoff) Option {
	return func(m *Manager) { m.backoff = b }
}

// WithDialTimeout bounds each background reconnect dial.
func WithDialTimeout(d time.Duration) Option {
	return func(m *Manager) { m.dialTimeout = d }
}

// WithStateHook registers a function called on every state change. It runs
// while the Manager is locked and must not call back into the Manager.
func WithStateHook(hook func(State)) Option {
	return func(m *Manager) { m.onState = hook }
}

// Manager owns the connection lifecycle: connect, bounded reconnect and
// teardown, plus room membership and listener registrations.
type Manager struct {
	dialer      Dialer
	tokens      auth.TokenSource
	logger      *slog.Logger
	maxAttempts int
	backoff     Backoff
	dialTimeout time.Duration
	onState     func(State)

	mu         sync.Mutex
	state      State
	transport  Transport
	dialing    bool
	attempts   int
	generation uint64
	retry      *time.Timer
	rooms      rooms
	listeners  listeners
}

// NewManager creates a disconnected Manager.
func NewManager(dialer Dialer, tokens auth.TokenSource, opts ...Option) *Manager {
	m := &Manager{
		dialer:      dialer,
		tokens:      tokens,
		logger:      slog.Default(),
		maxAttempts: DefaultMaxAttempts,
		backoff:     DefaultBackoff,
		dialTimeout: DefaultDialTimeout,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// State returns the current connection state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// IsConnected reports whether a transport is open.
func (m *Manager) IsConnected() bool {
	return m.State() == Connected
}

// Rooms returns the tracked group IDs in join order.
func (m *Manager) Rooms() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rooms.list()
}

// Connect opens the channel. It is a no-op when already connected or while a
// dial is in flight. Without a credential (or with one that has expired) the
// Manager stays Disconnected and Connect returns nil. A failed dial counts
// towards the retry budget and schedules a background retry; its error is
// returned.
func (m *Manager) Connect(ctx context.Context) error {
	m.mu.Lock()
	if m.state == Connected || m.dialing {
		m.mu.Unlock()
		return nil
	}
	m.mu.Unlock()
	return m.dial(ctx)
}

func (m *Manager) dial(ctx context.Context) error {
	token, err := m.tokens.Token(ctx)
	if err != nil {
		return fmt.Errorf("failed to read credential: %w", err)
	}
	if token == "" || tokenExpired(token) {
		m.logger.Debug("No auth token found, skipping channel connection")
		m.mu.Lock()
		m.stopRetryLocked()
		m.setStateLocked(Disconnected)
		m.mu.Unlock()
		return nil
	}

	m.mu.Lock()
	if m.dialing || (m.state == Connected && m.transport != nil) {
		// Another Connect won while the credential was being read.
		m.mu.Unlock()
		return nil
	}
	m.stopRetryLocked()
	stale := m.transport
	m.transport = nil
	m.generation++
	gen := m.generation
	m.dialing = true
	if m.state != Reconnecting {
		m.setStateLocked(Connecting)
	}
	m.mu.Unlock()

	if stale != nil {
		stale.Close()
	}

	t, err := m.dialer.Dial(ctx, token)

	m.mu.Lock()
	m.dialing = false
	if gen != m.generation {
		// Disconnect ran while dialing.
		m.mu.Unlock()
		if t != nil {
			t.Close()
		}
		return nil
	}
	if err != nil {
		m.failLocked(err)
		m.mu.Unlock()
		return fmt.Errorf("failed to connect channel: %w", err)
	}

	m.transport = t
	m.attempts = 0
	m.setStateLocked(Connected)
	rooms := m.rooms.list()
	armed := m.listeners.count()
	m.mu.Unlock()

	m.logger.Info("Socket connected", "rooms", len(rooms), "listeners", armed)
	for _, id := range rooms {
		if err := sendRoom(ctx, t, wire.EventJoinGroup, id); err != nil {
			m.logger.Warn("Failed to rejoin room", "group_id", id, "error", err)
		}
	}

	go m.pump(t, gen)
	return nil
}

// failLocked records one failed attempt and either schedules a retry or gives up.
func (m *Manager) failLocked(err error) {
	m.attempts++
	metrics.ChannelConnectFailures.Inc()
	m.logger.Warn("Socket connection error", "attempt", m.attempts, "max_attempts", m.maxAttempts, "error", err)

	if m.attempts >= m.maxAttempts {
		m.logger.Warn("Max reconnect attempts reached, giving up")
		metrics.ChannelGiveUps.Inc()
		m.attempts = 0
		m.setStateLocked(Disconnected)
		return
	}

	m.setStateLocked(Reconnecting)
	gen := m.generation
	delay := m.backoff.Delay(m.attempts)
	m.retry = time.AfterFunc(delay, func() { m.reconnect(gen) })
}

func (m *Manager) reconnect(gen uint64) {
	m.mu.Lock()
	if gen != m.generation || m.state != Reconnecting {
		m.mu.Unlock()
		return
	}
	m.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), m.dialTimeout)
	defer cancel()
	// Failures are logged and rescheduled inside dial.
	_ = m.dial(ctx)
}

// pump delivers inbound frames until the transport ends, then treats an
// unexpected end as a connectivity failure.
func (m *Manager) pump(t Transport, gen uint64) {
	for f := range t.Frames() {
		m.dispatch(f)
	}

	m.mu.Lock()
	if gen != m.generation || m.transport != t {
		m.mu.Unlock()
		return
	}
	m.transport = nil
	reason := t.Err()
	m.logger.Info("Socket disconnected", "reason", reason)
	if reason == nil {
		reason = errTransportClosed
	}
	m.failLocked(reason)
	m.mu.Unlock()
	t.Close()
}

func (m *Manager) dispatch(f wire.Frame) {
	metrics.ChannelEventsReceived.WithLabelValues(f.Event).Inc()

	m.mu.Lock()
	callbacks := m.listeners.snapshot(f.Event)
	m.mu.Unlock()
	if len(callbacks) == 0 {
		return
	}

	event, err := Decode(f)
	if err != nil {
		m.logger.Warn("Dropping undecodable event", "event", f.Event, "error", err)
		return
	}
	for _, fn := range callbacks {
		fn(event)
	}
}

// Disconnect tears the transport down and forgets all rooms and listeners.
// A later Connect starts clean.
func (m *Manager) Disconnect() {
	m.mu.Lock()
	m.generation++
	m.stopRetryLocked()
	t := m.transport
	m.transport = nil
	m.dialing = false
	m.attempts = 0
	m.rooms.reset()
	m.listeners.reset()
	m.setStateLocked(Disconnected)
	m.mu.Unlock()

	if t != nil {
		t.Close()
	}
}

// JoinGroup records interest in a group room. When connected the join is
// sent immediately; otherwise it is sent on the next successful connect.
// Joining a room twice is a no-op.
func (m *Manager) JoinGroup(ctx context.Context, groupID string) error {
	m.mu.Lock()
	added := m.rooms.add(groupID)
	t := m.connectedLocked()
	m.mu.Unlock()

	if !added || t == nil {
		return nil
	}
	return sendRoom(ctx, t, wire.EventJoinGroup, groupID)
}

// LeaveGroup forgets a group room, sending leave-group when connected.
func (m *Manager) LeaveGroup(ctx context.Context, groupID string) error {
	m.mu.Lock()
	removed := m.rooms.remove(groupID)
	t := m.connectedLocked()
	m.mu.Unlock()

	if !removed || t == nil {
		return nil
	}
	return sendRoom(ctx, t, wire.EventLeaveGroup, groupID)
}

// On registers fn for the named event. Registrations survive reconnects and
// may be made before the first Connect.
func (m *Manager) On(event string, fn Listener) ListenerID {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.listeners.add(event, fn)
}

// Off removes the listener with the given id, or every listener of event
// when id is zero.
func (m *Manager) Off(event string, id ListenerID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listeners.remove(event, id)
}

// Emit sends an arbitrary event. It returns ErrNotConnected when no transport
// is open; nothing is buffered.
func (m *Manager) Emit(ctx context.Context, event string, data any) error {
	m.mu.Lock()
	t := m.connectedLocked()
	m.mu.Unlock()

	if t == nil {
		return ErrNotConnected
	}
	f, err := wire.NewFrame(event, data)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", event, err)
	}
	return t.Send(ctx, f)
}

func (m *Manager) connectedLocked() Transport {
	if m.state != Connected {
		return nil
	}
	return m.transport
}

func (m *Manager) stopRetryLocked() {
	if m.retry != nil {
		m.retry.Stop()
		m.retry = nil
	}
}

func (m *Manager) setStateLocked(s State) {
	if m.state == s {
		return
	}
	m.logger.Debug("Channel state changed", "from", m.state, "to", s)
	m.state = s
	if m.onState != nil {
		m.onState(s)
	}
}

func sendRoom(ctx context.Context, t Transport, event, groupID string) error {
	f, err := wire.NewFrame(event, groupID)
	if err != nil {
		return err
	}
	return t.Send(ctx, f)
}

func tokenExpired(token string) bool {
	claims, err := auth.Inspect(token)
	if err != nil {
		// Opaque credentials are passed through; the server decides.
		return false
	}
	return claims.Expired(time.Now())
}
