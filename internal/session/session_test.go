package session

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/mmynk/splitsync/internal/api"
	"github.com/mmynk/splitsync/internal/auth"
	"github.com/mmynk/splitsync/internal/channel"
	"github.com/mmynk/splitsync/internal/models"
	"github.com/mmynk/splitsync/internal/wire"
)

type fakeBackend struct {
	token      string
	groupCalls atomic.Int32
	groupDelay time.Duration
}

func (b *fakeBackend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var resp any
	switch r.URL.Path {
	case "/api/auth/login":
		resp = wire.AuthResponse{Token: b.token, User: wire.Member{ID: "u1", Name: "Alice"}}
	case "/api/groups":
		b.groupCalls.Add(1)
		time.Sleep(b.groupDelay)
		resp = wire.GroupsResponse{Groups: []wire.Group{{
			ID: "g1", Name: "Trip", Currency: "USD",
			Members: []wire.Member{{ID: "u1", Name: "Alice"}, {ID: "u2", Name: "Bob"}},
		}}}
	case "/api/expenses/group/g1":
		resp = wire.ExpensesResponse{Expenses: []wire.Expense{}}
	case "/api/settlements/group/g1":
		resp = wire.SettlementsResponse{Settlements: []wire.Settlement{}}
	case "/api/friends":
		resp = wire.FriendsResponse{Friends: []wire.Friend{}}
	case "/api/friend-requests":
		resp = wire.FriendRequestsResponse{}
	default:
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(wire.ErrorResponse{Error: "not found"})
		return
	}
	json.NewEncoder(w).Encode(resp)
}

func waitFor(t *testing.T, what string, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestSession_PollsAfterChannelGivesUp(t *testing.T) {
	jwt := auth.NewJWTManager("test-secret", time.Hour)
	token, err := jwt.Issue(models.Member{ID: "u1", Email: "alice@example.com"})
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	backend := &fakeBackend{token: token}
	srv := httptest.NewServer(backend)
	defer srv.Close()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	client := api.NewClient(srv.URL+"/api", &auth.MemoryTokenStore{}, api.WithLogger(logger))

	var dials atomic.Int32
	dialer := channel.DialerFunc(func(context.Context, string) (channel.Transport, error) {
		dials.Add(1)
		return nil, channel.ErrHandshakeRejected
	})

	s := New(client, dialer,
		WithLogger(logger),
		WithPollInterval(time.Second),
		WithChannelOptions(channel.WithBackoff(channel.Backoff{Initial: time.Millisecond, Max: time.Millisecond})),
	)
	defer s.Close()

	ctx := context.Background()
	user, err := s.SignIn(ctx, "alice@example.com", "secret123")
	if err != nil {
		t.Fatalf("SignIn failed: %v", err)
	}
	if user.ID != "u1" {
		t.Errorf("user = %+v", user)
	}
	if id, err := s.UserID(ctx); err != nil || id != "u1" {
		t.Errorf("UserID = %q, %v", id, err)
	}

	if groups := s.Store().Groups(); len(groups) != 1 {
		t.Fatalf("got %d groups after sign-in, want 1", len(groups))
	}
	if rooms := s.Channel().Rooms(); len(rooms) != 1 || rooms[0] != "g1" {
		t.Errorf("rooms = %v, want [g1]", rooms)
	}

	waitFor(t, "polling", 2*time.Second, s.Polling)
	if n := dials.Load(); n != channel.DefaultMaxAttempts {
		t.Errorf("dialed %d times before polling, want %d", n, channel.DefaultMaxAttempts)
	}

	calls := backend.groupCalls.Load()
	waitFor(t, "a polled reload", 3*time.Second, func() bool { return backend.groupCalls.Load() > calls })

	if err := s.SignOut(ctx); err != nil {
		t.Fatalf("SignOut failed: %v", err)
	}
	if s.Polling() {
		t.Error("still polling after sign-out")
	}
	if groups := s.Store().Groups(); len(groups) != 0 {
		t.Errorf("cache not cleared: %d groups", len(groups))
	}
	if rooms := s.Channel().Rooms(); len(rooms) != 0 {
		t.Errorf("rooms not cleared: %v", rooms)
	}
	if _, err := s.UserID(ctx); err != ErrNotSignedIn {
		t.Errorf("UserID after sign-out = %v, want ErrNotSignedIn", err)
	}
}

func TestSession_ResumeWithoutToken(t *testing.T) {
	client := api.NewClient("http://127.0.0.1:0/api", &auth.MemoryTokenStore{})
	s := New(client, channel.DialerFunc(func(context.Context, string) (channel.Transport, error) {
		t.Fatal("should not dial")
		return nil, nil
	}))

	if err := s.Resume(context.Background()); err != ErrNotSignedIn {
		t.Errorf("Resume = %v, want ErrNotSignedIn", err)
	}
}

func TestSession_ConcurrentResumeStartsOnce(t *testing.T) {
	jwt := auth.NewJWTManager("test-secret", time.Hour)
	token, err := jwt.Issue(models.Member{ID: "u1", Email: "alice@example.com"})
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	backend := &fakeBackend{token: token, groupDelay: 50 * time.Millisecond}
	srv := httptest.NewServer(backend)
	defer srv.Close()

	ctx := context.Background()
	tokens := &auth.MemoryTokenStore{}
	if err := tokens.SetToken(ctx, token); err != nil {
		t.Fatalf("SetToken failed: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	client := api.NewClient(srv.URL+"/api", tokens, api.WithLogger(logger))
	dialer := channel.DialerFunc(func(context.Context, string) (channel.Transport, error) {
		return nil, channel.ErrHandshakeRejected
	})
	s := New(client, dialer, WithLogger(logger), WithPollInterval(time.Hour))
	defer s.Close()

	var wg sync.WaitGroup
	errs := make(chan error, 5)
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- s.Resume(ctx)
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			t.Errorf("Resume failed: %v", err)
		}
	}
	if n := backend.groupCalls.Load(); n != 1 {
		t.Errorf("ledger loaded %d times, want 1", n)
	}

	// A start that fails to load must not leave the session claimed.
	s.Close()
	srv.Close()
	if err := s.Resume(ctx); err == nil {
		t.Fatal("Resume succeeded against a closed backend")
	}
	s.mu.Lock()
	claimed := s.active || s.starting
	s.mu.Unlock()
	if claimed {
		t.Error("failed start left the session claimed")
	}
}
