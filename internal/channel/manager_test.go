package channel

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/mmynk/splitsync/internal/auth"
	"github.com/mmynk/splitsync/internal/models"
	"github.com/mmynk/splitsync/internal/wire"
)

// fakeTransport records sent frames and lets tests push inbound frames or
// simulate a drop.
type fakeTransport struct {
	frames chan wire.Frame

	mu     sync.Mutex
	sent   []wire.Frame
	err    error
	closed bool
	once   sync.Once
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{frames: make(chan wire.Frame, 16)}
}

func (f *fakeTransport) Send(_ context.Context, frame wire.Frame) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return ErrNotConnected
	}
	f.sent = append(f.sent, frame)
	return nil
}

func (f *fakeTransport) Frames() <-chan wire.Frame { return f.frames }

func (f *fakeTransport) Err() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.err
}

func (f *fakeTransport) Close() error {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
	f.once.Do(func() { close(f.frames) })
	return nil
}

// drop simulates the server going away.
func (f *fakeTransport) drop(err error) {
	f.mu.Lock()
	f.err = err
	f.mu.Unlock()
	f.once.Do(func() { close(f.frames) })
}

func (f *fakeTransport) sentFrames() []wire.Frame {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]wire.Frame, len(f.sent))
	copy(out, f.sent)
	return out
}

func (f *fakeTransport) isClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

// fakeDialer hands out fake transports, or fails when fail is set.
type fakeDialer struct {
	fail   atomic.Bool
	calls  atomic.Int32
	dialed chan *fakeTransport
	tokens chan string
}

func newFakeDialer() *fakeDialer {
	return &fakeDialer{dialed: make(chan *fakeTransport, 16), tokens: make(chan string, 16)}
}

func (d *fakeDialer) Dial(_ context.Context, token string) (Transport, error) {
	d.calls.Add(1)
	select {
	case d.tokens <- token:
	default:
	}
	if d.fail.Load() {
		return nil, ErrHandshakeRejected
	}
	t := newFakeTransport()
	d.dialed <- t
	return t, nil
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestManager(t *testing.T, dialer Dialer, token string, opts ...Option) *Manager {
	t.Helper()
	tokens := &auth.MemoryTokenStore{}
	if err := tokens.SetToken(context.Background(), token); err != nil {
		t.Fatalf("SetToken failed: %v", err)
	}
	opts = append([]Option{
		WithLogger(quietLogger()),
		WithBackoff(Backoff{Initial: time.Millisecond, Max: 5 * time.Millisecond}),
	}, opts...)
	m := NewManager(dialer, tokens, opts...)
	t.Cleanup(m.Disconnect)
	return m
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func nextTransport(t *testing.T, d *fakeDialer) *fakeTransport {
	t.Helper()
	select {
	case tr := <-d.dialed:
		return tr
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for dial")
		return nil
	}
}

func joinsFor(frames []wire.Frame, groupID string) int {
	n := 0
	for _, f := range frames {
		if f.Event == wire.EventJoinGroup && string(f.Data) == `"`+groupID+`"` {
			n++
		}
	}
	return n
}

func TestManager_ConnectWithoutToken(t *testing.T) {
	dialer := newFakeDialer()
	m := newTestManager(t, dialer, "")

	if err := m.Connect(context.Background()); err != nil {
		t.Fatalf("Connect returned error: %v", err)
	}
	if got := m.State(); got != Disconnected {
		t.Errorf("state = %s, want disconnected", got)
	}
	if calls := dialer.calls.Load(); calls != 0 {
		t.Errorf("dialer called %d times, want 0", calls)
	}
}

func TestManager_ConnectIsIdempotent(t *testing.T) {
	dialer := newFakeDialer()
	m := newTestManager(t, dialer, "token-1")

	ctx := context.Background()
	if err := m.Connect(ctx); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	if err := m.Connect(ctx); err != nil {
		t.Fatalf("second Connect failed: %v", err)
	}

	if calls := dialer.calls.Load(); calls != 1 {
		t.Errorf("dialer called %d times, want 1", calls)
	}
	if token := <-dialer.tokens; token != "token-1" {
		t.Errorf("dialed with token %q, want token-1", token)
	}
	if !m.IsConnected() {
		t.Errorf("state = %s, want connected", m.State())
	}
}

// gatedTokens holds its first Token call until release is closed.
type gatedTokens struct {
	token   string
	entered chan struct{}
	release chan struct{}
	calls   atomic.Int32
}

func (g *gatedTokens) Token(context.Context) (string, error) {
	if g.calls.Add(1) == 1 {
		close(g.entered)
		<-g.release
	}
	return g.token, nil
}

func TestManager_OverlappingConnectKeepsLiveTransport(t *testing.T) {
	dialer := newFakeDialer()
	tokens := &gatedTokens{token: "token", entered: make(chan struct{}), release: make(chan struct{})}
	m := NewManager(dialer, tokens, WithLogger(quietLogger()))
	t.Cleanup(m.Disconnect)
	ctx := context.Background()

	if err := m.JoinGroup(ctx, "g1"); err != nil {
		t.Fatalf("JoinGroup failed: %v", err)
	}

	slow := make(chan error, 1)
	go func() { slow <- m.Connect(ctx) }()
	<-tokens.entered

	if err := m.Connect(ctx); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	live := nextTransport(t, dialer)

	close(tokens.release)
	if err := <-slow; err != nil {
		t.Fatalf("overlapping Connect failed: %v", err)
	}

	if calls := dialer.calls.Load(); calls != 1 {
		t.Errorf("dialer called %d times, want 1", calls)
	}
	if live.isClosed() {
		t.Error("live transport was closed")
	}
	if n := joinsFor(live.sentFrames(), "g1"); n != 1 {
		t.Errorf("%d joins for g1, want 1", n)
	}
	if !m.IsConnected() {
		t.Errorf("state = %s, want connected", m.State())
	}
}

func TestManager_ReconnectReplaysMembership(t *testing.T) {
	dialer := newFakeDialer()
	m := newTestManager(t, dialer, "token")
	ctx := context.Background()

	// Joined before the transport exists.
	if err := m.JoinGroup(ctx, "g1"); err != nil {
		t.Fatalf("JoinGroup failed: %v", err)
	}
	if err := m.Connect(ctx); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}

	first := nextTransport(t, dialer)
	if n := joinsFor(first.sentFrames(), "g1"); n != 1 {
		t.Fatalf("first transport: %d joins for g1, want 1", n)
	}

	first.drop(errors.New("connection reset"))

	second := nextTransport(t, dialer)
	waitFor(t, "reconnect", func() bool { return m.IsConnected() && len(second.sentFrames()) > 0 })

	if n := joinsFor(second.sentFrames(), "g1"); n != 1 {
		t.Errorf("second transport: %d joins for g1, want exactly 1", n)
	}
	if n := len(first.sentFrames()); n != 1 {
		t.Errorf("stale transport got %d frames, want 1", n)
	}
	if rooms := m.Rooms(); len(rooms) != 1 || rooms[0] != "g1" {
		t.Errorf("rooms = %v, want [g1]", rooms)
	}
}

func TestManager_BoundedRetry(t *testing.T) {
	dialer := newFakeDialer()
	dialer.fail.Store(true)

	states := make(chan State, 64)
	m := newTestManager(t, dialer, "token", WithStateHook(func(s State) {
		select {
		case states <- s:
		default:
		}
	}))

	err := m.Connect(context.Background())
	if !errors.Is(err, ErrHandshakeRejected) {
		t.Fatalf("Connect error = %v, want ErrHandshakeRejected", err)
	}

	waitFor(t, "give up", func() bool {
		return dialer.calls.Load() == DefaultMaxAttempts && m.State() == Disconnected
	})

	// No further attempts once the budget is spent.
	time.Sleep(50 * time.Millisecond)
	if calls := dialer.calls.Load(); calls != DefaultMaxAttempts {
		t.Errorf("dialer called %d times, want %d", calls, DefaultMaxAttempts)
	}
	if got := m.State(); got != Disconnected {
		t.Errorf("state = %s, want disconnected", got)
	}

	var sawReconnecting bool
	for len(states) > 0 {
		if <-states == Reconnecting {
			sawReconnecting = true
		}
	}
	if !sawReconnecting {
		t.Error("expected to pass through reconnecting")
	}
}

func TestManager_RetrySucceedsAndResetsAttempts(t *testing.T) {
	dialer := newFakeDialer()
	dialer.fail.Store(true)
	m := newTestManager(t, dialer, "token",
		WithBackoff(Backoff{Initial: 20 * time.Millisecond, Max: 20 * time.Millisecond}))

	if err := m.Connect(context.Background()); err == nil {
		t.Fatal("expected first Connect to fail")
	}
	waitFor(t, "two failures", func() bool { return dialer.calls.Load() >= 2 })
	dialer.fail.Store(false)

	tr := nextTransport(t, dialer)
	waitFor(t, "connected", m.IsConnected)

	m.mu.Lock()
	attempts := m.attempts
	m.mu.Unlock()
	if attempts != 0 {
		t.Errorf("attempts = %d after successful connect, want 0", attempts)
	}

	// A later drop gets a full budget again.
	dialer.fail.Store(true)
	before := dialer.calls.Load()
	tr.drop(errors.New("gone"))
	waitFor(t, "give up after drop", func() bool {
		return dialer.calls.Load()-before == DefaultMaxAttempts-1 && m.State() == Disconnected
	})
}

func TestManager_ListenersReceiveTypedEvents(t *testing.T) {
	dialer := newFakeDialer()
	m := newTestManager(t, dialer, "token")

	received := make(chan Event, 4)
	m.On(wire.EventExpenseAdded, func(e Event) { received <- e })
	m.On(wire.EventExpenseDeleted, func(e Event) { received <- e })

	if err := m.Connect(context.Background()); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	tr := nextTransport(t, dialer)

	added, err := Encode(ExpenseAdded{Expense: models.Expense{
		ID: "e1", GroupID: "g1", Amount: 9000, PaidBy: "A", SplitKind: models.SplitEqual,
		Splits: []models.Split{{MemberID: "A", Amount: 9000}},
	}})
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	deleted, err := Encode(ExpenseDeleted{ID: "e1"})
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	tr.frames <- added
	tr.frames <- wire.Frame{Event: "typing", Data: []byte(`{}`)}
	tr.frames <- deleted

	select {
	case e := <-received:
		got, ok := e.(ExpenseAdded)
		if !ok {
			t.Fatalf("got %T, want ExpenseAdded", e)
		}
		if got.Expense.ID != "e1" || got.Expense.Amount != 9000 {
			t.Errorf("unexpected expense: %+v", got.Expense)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for expense-added")
	}

	select {
	case e := <-received:
		if _, ok := e.(ExpenseDeleted); !ok {
			t.Fatalf("got %T, want ExpenseDeleted (order must be preserved)", e)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for expense-deleted")
	}
}

func TestManager_Off(t *testing.T) {
	dialer := newFakeDialer()
	m := newTestManager(t, dialer, "token")

	var first, second atomic.Int32
	id := m.On(wire.EventExpenseDeleted, func(Event) { first.Add(1) })
	m.On(wire.EventExpenseDeleted, func(Event) { second.Add(1) })

	if err := m.Connect(context.Background()); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	tr := nextTransport(t, dialer)
	frame, _ := Encode(ExpenseDeleted{ID: "e1"})

	m.Off(wire.EventExpenseDeleted, id)
	tr.frames <- frame
	waitFor(t, "second listener", func() bool { return second.Load() == 1 })
	if first.Load() != 0 {
		t.Errorf("removed listener called %d times", first.Load())
	}

	m.Off(wire.EventExpenseDeleted, 0)
	tr.frames <- frame
	// Push a sentinel through a fresh listener to know the frame was processed.
	done := make(chan struct{})
	m.On(wire.EventSettlementDeleted, func(Event) { close(done) })
	sentinel, _ := Encode(SettlementDeleted{ID: "s1"})
	tr.frames <- sentinel
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for sentinel")
	}
	if second.Load() != 1 {
		t.Errorf("listener called %d times after Off(all), want 1", second.Load())
	}
}

func TestManager_JoinLeaveWhileConnected(t *testing.T) {
	dialer := newFakeDialer()
	m := newTestManager(t, dialer, "token")
	ctx := context.Background()

	if err := m.Connect(ctx); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	tr := nextTransport(t, dialer)

	m.JoinGroup(ctx, "g1")
	m.JoinGroup(ctx, "g1")
	m.LeaveGroup(ctx, "g1")
	m.LeaveGroup(ctx, "g1")

	frames := tr.sentFrames()
	if len(frames) != 2 {
		t.Fatalf("sent %d frames, want 2: %+v", len(frames), frames)
	}
	if frames[0].Event != wire.EventJoinGroup || frames[1].Event != wire.EventLeaveGroup {
		t.Errorf("unexpected frames: %+v", frames)
	}
	if rooms := m.Rooms(); len(rooms) != 0 {
		t.Errorf("rooms = %v, want none", rooms)
	}
}

func TestManager_DisconnectResets(t *testing.T) {
	dialer := newFakeDialer()
	m := newTestManager(t, dialer, "token")
	ctx := context.Background()

	m.JoinGroup(ctx, "g1")
	m.On(wire.EventExpenseAdded, func(Event) {})
	if err := m.Connect(ctx); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	tr := nextTransport(t, dialer)

	m.Disconnect()

	if !tr.isClosed() {
		t.Error("transport not closed")
	}
	if m.State() != Disconnected {
		t.Errorf("state = %s, want disconnected", m.State())
	}
	if rooms := m.Rooms(); len(rooms) != 0 {
		t.Errorf("rooms = %v, want none", rooms)
	}
	m.mu.Lock()
	n := m.listeners.count()
	m.mu.Unlock()
	if n != 0 {
		t.Errorf("%d listeners left, want 0", n)
	}

	// A fresh connect starts clean: no joins replayed.
	if err := m.Connect(ctx); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	again := nextTransport(t, dialer)
	if frames := again.sentFrames(); len(frames) != 0 {
		t.Errorf("replayed %d frames after Disconnect, want 0", len(frames))
	}
}

func TestManager_EmitRequiresConnection(t *testing.T) {
	m := newTestManager(t, newFakeDialer(), "token")
	if err := m.Emit(context.Background(), "ping", nil); !errors.Is(err, ErrNotConnected) {
		t.Errorf("Emit error = %v, want ErrNotConnected", err)
	}
}

func TestBackoffDelay(t *testing.T) {
	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{attempt: 1, want: time.Second},
		{attempt: 2, want: 2 * time.Second},
		{attempt: 3, want: 4 * time.Second},
		{attempt: 4, want: 5 * time.Second},
		{attempt: 10, want: 5 * time.Second},
	}

	for _, tt := range tests {
		if got := DefaultBackoff.Delay(tt.attempt); got != tt.want {
			t.Errorf("Delay(%d) = %s, want %s", tt.attempt, got, tt.want)
		}
	}
}
