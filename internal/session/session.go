// Package session wires the REST client, the event channel and the ledger
// cache together behind a sign-in/sign-out lifecycle. When the channel gives
// up reconnecting, the session keeps the ledger fresh by polling.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/mmynk/splitsync/internal/api"
	"github.com/mmynk/splitsync/internal/auth"
	"github.com/mmynk/splitsync/internal/channel"
	"github.com/mmynk/splitsync/internal/ledger"
	"github.com/mmynk/splitsync/internal/models"
)

var ErrNotSignedIn = errors.New("not signed in")

// Option configures a Session.
type Option func(*Session)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Session) { s.logger = logger }
}

// WithPollInterval sets the reload period used while the channel is down.
func WithPollInterval(d time.Duration) Option {
	return func(s *Session) { s.pollInterval = d }
}

// WithChannelOptions passes options through to the channel Manager.
func WithChannelOptions(opts ...channel.Option) Option {
	return func(s *Session) { s.channelOpts = append(s.channelOpts, opts...) }
}

// Session owns one API client, one channel Manager and one ledger Store.
type Session struct {
	client       *api.Client
	manager      *channel.Manager
	store        *ledger.Store
	logger       *slog.Logger
	pollInterval time.Duration
	channelOpts  []channel.Option

	// states receives Manager state changes. The hook that feeds it runs
	// under the Manager lock, so it only ever does a non-blocking send.
	states  chan channel.State
	changes chan struct{}

	mu          sync.Mutex
	active      bool
	starting    bool
	cancel      context.CancelFunc
	done        chan struct{}
	unsubscribe func()
	poller      *cron.Cron
	pollEntry   cron.EntryID
	polling     bool
}

// New creates a signed-out session.
func New(client *api.Client, dialer channel.Dialer, opts ...Option) *Session {
	s := &Session{
		client:       client,
		logger:       slog.Default(),
		pollInterval: 30 * time.Second,
		states:       make(chan channel.State, 16),
		changes:      make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(s)
	}

	channelOpts := append([]channel.Option{
		channel.WithLogger(s.logger),
		channel.WithStateHook(s.onState),
	}, s.channelOpts...)
	s.manager = channel.NewManager(dialer, client.Tokens(), channelOpts...)
	s.store = ledger.NewStore(client, ledger.WithLogger(s.logger))
	return s
}

// Store returns the ledger cache.
func (s *Session) Store() *ledger.Store { return s.store }

// Channel returns the channel Manager.
func (s *Session) Channel() *channel.Manager { return s.manager }

// Client returns the REST client.
func (s *Session) Client() *api.Client { return s.client }

// Changes is signalled (coalesced) whenever the ledger cache changes while
// signed in.
func (s *Session) Changes() <-chan struct{} { return s.changes }

// UserID returns the signed-in user's ID from the stored credential.
func (s *Session) UserID(ctx context.Context) (string, error) {
	token, err := s.client.Tokens().Token(ctx)
	if err != nil {
		return "", err
	}
	if token == "" {
		return "", ErrNotSignedIn
	}
	claims, err := auth.Inspect(token)
	if err != nil {
		return "", err
	}
	if claims.Expired(time.Now()) {
		return "", ErrNotSignedIn
	}
	return claims.UserID, nil
}

// SignIn logs in and starts the session.
func (s *Session) SignIn(ctx context.Context, email, password string) (models.Member, error) {
	user, err := s.client.Login(ctx, email, password)
	if err != nil {
		return models.Member{}, err
	}
	if err := s.start(ctx); err != nil {
		return models.Member{}, err
	}
	return user, nil
}

// Register creates an account and starts the session.
func (s *Session) Register(ctx context.Context, email, password, name string) (models.Member, error) {
	user, err := s.client.Register(ctx, email, password, name)
	if err != nil {
		return models.Member{}, err
	}
	if err := s.start(ctx); err != nil {
		return models.Member{}, err
	}
	return user, nil
}

// Resume starts the session with a previously stored credential.
func (s *Session) Resume(ctx context.Context) error {
	if _, err := s.UserID(ctx); err != nil {
		return err
	}
	return s.start(ctx)
}

func (s *Session) start(ctx context.Context) error {
	s.mu.Lock()
	if s.active || s.starting {
		s.mu.Unlock()
		return nil
	}
	s.starting = true
	s.mu.Unlock()

	if err := s.store.Reload(ctx); err != nil {
		s.mu.Lock()
		s.starting = false
		s.mu.Unlock()
		return fmt.Errorf("failed to load ledger: %w", err)
	}

	runCtx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	poller := cron.New()

	s.mu.Lock()
	s.starting = false
	s.active = true
	s.cancel = cancel
	s.done = done
	s.poller = poller
	s.unsubscribe = s.store.Subscribe(s.manager)
	s.mu.Unlock()

	poller.Start()
	go s.run(runCtx, done)

	s.joinRooms(ctx)
	if err := s.manager.Connect(ctx); err != nil {
		// The Manager retries in the background and polling covers a give-up.
		s.logger.Warn("Channel connect failed", "error", err)
	}
	s.logger.Info("Session started", "groups", len(s.store.Groups()))
	return nil
}

// SignOut tears the session down: the channel is disconnected, the cache
// cleared and the credential forgotten. In-flight REST calls are not
// cancelled.
func (s *Session) SignOut(ctx context.Context) error {
	s.stop()
	s.store.Clear()

	if err := s.client.Logout(ctx); err != nil {
		return fmt.Errorf("failed to clear credential: %w", err)
	}
	s.logger.Info("Signed out")
	return nil
}

// Close stops background work and disconnects without forgetting the
// credential.
func (s *Session) Close() {
	s.stop()
}

func (s *Session) stop() {
	s.mu.Lock()
	cancel, done, poller, unsubscribe := s.cancel, s.done, s.poller, s.unsubscribe
	s.active = false
	s.cancel = nil
	s.done = nil
	s.poller = nil
	s.unsubscribe = nil
	s.polling = false
	s.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
	if poller != nil {
		<-poller.Stop().Done()
	}
	if unsubscribe != nil {
		unsubscribe()
	}
	s.manager.Disconnect()
}

// Polling reports whether the session is currently reloading on a timer.
func (s *Session) Polling() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.polling
}

func (s *Session) onState(state channel.State) {
	select {
	case s.states <- state:
	default:
		// Only the latest transitions matter; run re-reads Manager state.
	}
}

func (s *Session) run(ctx context.Context, done chan struct{}) {
	defer close(done)
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.states:
			s.syncPolling()
		case <-s.store.Changes():
			s.joinRooms(ctx)
			select {
			case s.changes <- struct{}{}:
			default:
			}
		}
	}
}

// syncPolling starts polling once the Manager has given up and stops it when
// the channel is back.
func (s *Session) syncPolling() {
	state := s.manager.State()

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.active || s.poller == nil {
		return
	}

	switch {
	case state == channel.Disconnected && !s.polling:
		id, err := s.poller.AddFunc(fmt.Sprintf("@every %s", s.pollInterval), s.poll)
		if err != nil {
			s.logger.Error("Failed to schedule polling", "error", err)
			return
		}
		s.pollEntry = id
		s.polling = true
		s.logger.Info("Channel unavailable, polling for changes", "interval", s.pollInterval)

	case state == channel.Connected && s.polling:
		s.poller.Remove(s.pollEntry)
		s.polling = false
		s.logger.Info("Channel restored, polling stopped")
	}
}

// poll reloads the ledger and gives the channel another chance.
func (s *Session) poll() {
	ctx, cancel := context.WithTimeout(context.Background(), s.pollInterval)
	defer cancel()

	if err := s.store.Reload(ctx); err != nil {
		return
	}
	if err := s.manager.Connect(ctx); err != nil {
		s.logger.Debug("Channel still unavailable", "error", err)
	}
}

// joinRooms makes sure every cached group has a room; joins are idempotent.
func (s *Session) joinRooms(ctx context.Context) {
	for _, g := range s.store.Groups() {
		if err := s.manager.JoinGroup(ctx, g.ID); err != nil {
			s.logger.Warn("Failed to join group room", "group_id", g.ID, "error", err)
		}
	}
}
