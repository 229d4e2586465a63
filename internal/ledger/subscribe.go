package ledger

import (
	"github.com/mmynk/splitsync/internal/channel"
	"github.com/mmynk/splitsync/internal/wire"
)

// EventSource is where the Store receives events from; *channel.Manager
// implements it.
type EventSource interface {
	On(event string, fn channel.Listener) channel.ListenerID
	Off(event string, id channel.ListenerID)
}

var ledgerEvents = []string{
	wire.EventExpenseAdded,
	wire.EventExpenseDeleted,
	wire.EventSettlementAdded,
	wire.EventSettlementDeleted,
	wire.EventFriendRequestReceived,
	wire.EventFriendRequestAccepted,
}

// Subscribe registers the Store on every ledger event of src. Events that
// need a reload trigger one in the background. The returned function
// removes exactly the registrations made here.
func (s *Store) Subscribe(src EventSource) (unsubscribe func()) {
	ids := make(map[string]channel.ListenerID, len(ledgerEvents))
	for _, name := range ledgerEvents {
		ids[name] = src.On(name, s.handle)
	}
	return func() {
		for name, id := range ids {
			src.Off(name, id)
		}
	}
}

func (s *Store) handle(e channel.Event) {
	switch s.Apply(e) {
	case NeedsReload:
		s.logger.Info("Reloading ledger", "event", e.Name())
		s.requestReload()
	case Duplicate, Missing:
		s.logger.Debug("Event had no effect", "event", e.Name())
	}
}
