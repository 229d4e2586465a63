package ledger

import (
	"github.com/mmynk/splitsync/internal/channel"
	"github.com/mmynk/splitsync/internal/metrics"
	"github.com/mmynk/splitsync/internal/models"
)

// Outcome is what Apply did with an event.
type Outcome string

const (
	Applied     Outcome = "applied"
	Duplicate   Outcome = "duplicate"
	Missing     Outcome = "missing"
	NeedsReload Outcome = "reload"
)

// Apply folds one channel event into the cache. Adds are idempotent by id
// and deletes of unknown ids are no-ops. Events the cache cannot absorb
// (a record for a group it does not know, an accepted friend request) return
// NeedsReload; Apply itself never calls the backend.
func (s *Store) Apply(e channel.Event) Outcome {
	s.mu.Lock()
	defer s.mu.Unlock()

	outcome := s.applyLocked(e)
	if outcome == Applied {
		s.touchLocked()
	}
	metrics.LedgerEventsApplied.WithLabelValues(e.Name(), string(outcome)).Inc()
	return outcome
}

func (s *Store) applyLocked(e channel.Event) Outcome {
	switch e := e.(type) {
	case channel.ExpenseAdded:
		if s.groupLocked(e.Expense.GroupID) == nil {
			return NeedsReload
		}
		for _, x := range s.expenses {
			if x.ID == e.Expense.ID {
				return Duplicate
			}
		}
		s.expenses = append(s.expenses, e.Expense)
		return Applied

	case channel.ExpenseDeleted:
		var ok bool
		s.expenses, ok = removeByID(s.expenses, e.ID, func(x models.Expense) string { return x.ID })
		if !ok {
			return Missing
		}
		return Applied

	case channel.SettlementAdded:
		if s.groupLocked(e.Settlement.GroupID) == nil {
			return NeedsReload
		}
		for _, x := range s.settlements {
			if x.ID == e.Settlement.ID {
				return Duplicate
			}
		}
		s.settlements = append(s.settlements, e.Settlement)
		return Applied

	case channel.SettlementDeleted:
		var ok bool
		s.settlements, ok = removeByID(s.settlements, e.ID, func(x models.Settlement) string { return x.ID })
		if !ok {
			return Missing
		}
		return Applied

	case channel.FriendRequestReceived:
		for _, r := range s.received {
			if r.ID == e.Request.ID {
				return Duplicate
			}
		}
		s.received = append(s.received, e.Request)
		return Applied

	case channel.FriendRequestAccepted:
		var fromSent, fromReceived bool
		s.sent, fromSent = removeByID(s.sent, e.RequestID, func(r models.FriendRequest) string { return r.ID })
		s.received, fromReceived = removeByID(s.received, e.RequestID, func(r models.FriendRequest) string { return r.ID })
		if fromSent || fromReceived {
			s.touchLocked()
		}
		// The new friend entry is only known to the backend.
		return NeedsReload

	default:
		return Missing
	}
}

// removeByID returns items without the element whose id matches, and whether
// one was found. The input slice is not modified.
func removeByID[T any](items []T, id string, idOf func(T) string) ([]T, bool) {
	for i, x := range items {
		if idOf(x) == id {
			out := make([]T, 0, len(items)-1)
			out = append(out, items[:i]...)
			return append(out, items[i+1:]...), true
		}
	}
	return items, false
}

func recordReload(result string) {
	metrics.LedgerReloads.WithLabelValues(result).Inc()
}
