// Package ledger holds the client's cached view of groups, expenses,
// settlements and social state, keeps it current from channel events, and
// derives balances and simplified debts on demand.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/mmynk/splitsync/internal/calculator"
	"github.com/mmynk/splitsync/internal/models"
)

var (
	ErrUnknownGroup  = errors.New("group not found")
	ErrUnknownMember = errors.New("not a member of the group")
)

// Backend is the subset of the REST client the Store needs.
type Backend interface {
	Groups(ctx context.Context) ([]models.Group, error)
	GroupExpenses(ctx context.Context, groupID string) ([]models.Expense, error)
	GroupSettlements(ctx context.Context, groupID string) ([]models.Settlement, error)
	Friends(ctx context.Context) ([]models.Friend, error)
	FriendRequests(ctx context.Context) (received, sent []models.FriendRequest, err error)
	CreateExpense(ctx context.Context, e models.Expense) (models.Expense, error)
	DeleteExpense(ctx context.Context, id string) error
	CreateSettlement(ctx context.Context, s models.Settlement) (models.Settlement, error)
	DeleteSettlement(ctx context.Context, id string) error
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) { s.logger = logger }
}

// WithClock overrides the time source used for LastUpdated.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithReloadTimeout bounds reloads triggered by events.
func WithReloadTimeout(d time.Duration) Option {
	return func(s *Store) { s.reloadTimeout = d }
}

// Store is the cached ledger. All methods are safe for concurrent use.
type Store struct {
	backend       Backend
	logger        *slog.Logger
	now           func() time.Time
	reloadTimeout time.Duration

	mu          sync.Mutex
	groups      []models.Group
	expenses    []models.Expense
	settlements []models.Settlement
	friends     []models.Friend
	received    []models.FriendRequest
	sent        []models.FriendRequest
	lastUpdated time.Time

	// Event-triggered reloads are coalesced: at most one runs, and one more
	// is queued if requested meanwhile.
	reloading     bool
	reloadPending bool

	changes chan struct{}
}

// NewStore creates an empty Store backed by backend.
func NewStore(backend Backend, opts ...Option) *Store {
	s := &Store{
		backend:       backend,
		logger:        slog.Default(),
		now:           time.Now,
		reloadTimeout: 30 * time.Second,
		changes:       make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Changes is signalled (coalesced) after every change to the cache.
func (s *Store) Changes() <-chan struct{} {
	return s.changes
}

// LastUpdated returns the time of the latest change. Successive changes
// always carry strictly increasing stamps.
func (s *Store) LastUpdated() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastUpdated
}

func (s *Store) touchLocked() {
	now := s.now()
	if !now.After(s.lastUpdated) {
		now = s.lastUpdated.Add(time.Nanosecond)
	}
	s.lastUpdated = now
	select {
	case s.changes <- struct{}{}:
	default:
	}
}

// Reload replaces the whole cache with the backend's state. On error the
// cache is left unchanged.
func (s *Store) Reload(ctx context.Context) error {
	groups, err := s.backend.Groups(ctx)
	if err != nil {
		return s.reloadFailed(fmt.Errorf("failed to load groups: %w", err))
	}

	var expenses []models.Expense
	var settlements []models.Settlement
	for _, g := range groups {
		ge, err := s.backend.GroupExpenses(ctx, g.ID)
		if err != nil {
			return s.reloadFailed(fmt.Errorf("failed to load expenses of group %s: %w", g.ID, err))
		}
		gs, err := s.backend.GroupSettlements(ctx, g.ID)
		if err != nil {
			return s.reloadFailed(fmt.Errorf("failed to load settlements of group %s: %w", g.ID, err))
		}
		expenses = append(expenses, ge...)
		settlements = append(settlements, gs...)
	}

	friends, err := s.backend.Friends(ctx)
	if err != nil {
		return s.reloadFailed(fmt.Errorf("failed to load friends: %w", err))
	}
	received, sent, err := s.backend.FriendRequests(ctx)
	if err != nil {
		return s.reloadFailed(fmt.Errorf("failed to load friend requests: %w", err))
	}

	s.mu.Lock()
	s.groups = groups
	s.expenses = expenses
	s.settlements = settlements
	s.friends = friends
	s.received = received
	s.sent = sent
	s.touchLocked()
	s.mu.Unlock()

	recordReload("ok")
	s.logger.Info("Ledger reloaded", "groups", len(groups), "expenses", len(expenses), "settlements", len(settlements))
	return nil
}

func (s *Store) reloadFailed(err error) error {
	recordReload("error")
	s.logger.Error("Reload failed", "error", err)
	return err
}

// requestReload runs Reload in the background, coalescing concurrent requests.
func (s *Store) requestReload() {
	s.mu.Lock()
	if s.reloading {
		s.reloadPending = true
		s.mu.Unlock()
		return
	}
	s.reloading = true
	s.mu.Unlock()

	go func() {
		for {
			ctx, cancel := context.WithTimeout(context.Background(), s.reloadTimeout)
			// Failures are logged by Reload; the next event or poll retries.
			_ = s.Reload(ctx)
			cancel()

			s.mu.Lock()
			if !s.reloadPending {
				s.reloading = false
				s.mu.Unlock()
				return
			}
			s.reloadPending = false
			s.mu.Unlock()
		}
	}()
}

// Clear drops all cached state, e.g. on sign-out.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.groups = nil
	s.expenses = nil
	s.settlements = nil
	s.friends = nil
	s.received = nil
	s.sent = nil
	s.touchLocked()
}

// Groups returns the cached groups.
func (s *Store) Groups() []models.Group {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Group, len(s.groups))
	copy(out, s.groups)
	return out
}

// Group returns one cached group.
func (s *Store) Group(id string) (models.Group, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g := s.groupLocked(id)
	if g == nil {
		return models.Group{}, false
	}
	return *g, true
}

func (s *Store) groupLocked(id string) *models.Group {
	for i := range s.groups {
		if s.groups[i].ID == id {
			return &s.groups[i]
		}
	}
	return nil
}

// Expenses returns the cached expenses of a group in arrival order.
func (s *Store) Expenses(groupID string) []models.Expense {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.expensesLocked(groupID)
}

func (s *Store) expensesLocked(groupID string) []models.Expense {
	var out []models.Expense
	for _, e := range s.expenses {
		if e.GroupID == groupID {
			out = append(out, e)
		}
	}
	return out
}

// Settlements returns the cached settlements of a group in arrival order.
func (s *Store) Settlements(groupID string) []models.Settlement {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.settlementsLocked(groupID)
}

func (s *Store) settlementsLocked(groupID string) []models.Settlement {
	var out []models.Settlement
	for _, st := range s.settlements {
		if st.GroupID == groupID {
			out = append(out, st)
		}
	}
	return out
}

// Friends returns the cached friends list.
func (s *Store) Friends() []models.Friend {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Friend, len(s.friends))
	copy(out, s.friends)
	return out
}

// FriendRequests returns cached pending requests received and sent.
func (s *Store) FriendRequests() (received, sent []models.FriendRequest) {
	s.mu.Lock()
	defer s.mu.Unlock()
	received = make([]models.FriendRequest, len(s.received))
	copy(received, s.received)
	sent = make([]models.FriendRequest, len(s.sent))
	copy(sent, s.sent)
	return received, sent
}

// Balances derives the net balance of every member of a group from the
// cached expenses and settlements.
func (s *Store) Balances(groupID string) []models.Balance {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.balancesLocked(groupID)
}

func (s *Store) balancesLocked(groupID string) []models.Balance {
	var members []models.Member
	if g := s.groupLocked(groupID); g != nil {
		members = g.Members
	}
	return calculator.ComputeBalances(s.expensesLocked(groupID), members, s.settlementsLocked(groupID))
}

// SimplifiedDebts derives the greedy transfer list that settles a group.
func (s *Store) SimplifiedDebts(groupID string) []models.SimplifiedDebt {
	s.mu.Lock()
	defer s.mu.Unlock()
	return calculator.SimplifyDebts(s.balancesLocked(groupID))
}
