package channel

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mmynk/splitsync/internal/models"
	"github.com/mmynk/splitsync/internal/wire"
)

// ErrUnknownEvent is returned by Decode for event names the client does not model.
var ErrUnknownEvent = errors.New("unknown event")

// Event is an inbound channel event. The set of implementations is closed:
// ExpenseAdded, ExpenseDeleted, SettlementAdded, SettlementDeleted,
// FriendRequestReceived and FriendRequestAccepted.
type Event interface {
	// Name returns the wire event name.
	Name() string
	isEvent()
}

type ExpenseAdded struct {
	Expense models.Expense
}

type ExpenseDeleted struct {
	ID      string
	GroupID string
}

type SettlementAdded struct {
	Settlement models.Settlement
}

type SettlementDeleted struct {
	ID      string
	GroupID string
}

type FriendRequestReceived struct {
	Request models.FriendRequest
}

type FriendRequestAccepted struct {
	RequestID string
}

func (ExpenseAdded) Name() string          { return wire.EventExpenseAdded }
func (ExpenseDeleted) Name() string        { return wire.EventExpenseDeleted }
func (SettlementAdded) Name() string       { return wire.EventSettlementAdded }
func (SettlementDeleted) Name() string     { return wire.EventSettlementDeleted }
func (FriendRequestReceived) Name() string { return wire.EventFriendRequestReceived }
func (FriendRequestAccepted) Name() string { return wire.EventFriendRequestAccepted }

func (ExpenseAdded) isEvent()          {}
func (ExpenseDeleted) isEvent()        {}
func (SettlementAdded) isEvent()       {}
func (SettlementDeleted) isEvent()     {}
func (FriendRequestReceived) isEvent() {}
func (FriendRequestAccepted) isEvent() {}

// Decode parses an inbound frame into a typed event.
func Decode(f wire.Frame) (Event, error) {
	switch f.Event {
	case wire.EventExpenseAdded:
		var p wire.ExpenseAddedPayload
		if err := unmarshal(f, &p); err != nil {
			return nil, err
		}
		expense, err := p.Expense.ToModel()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", f.Event, err)
		}
		return ExpenseAdded{Expense: expense}, nil

	case wire.EventExpenseDeleted:
		var p wire.DeletedPayload
		if err := unmarshal(f, &p); err != nil {
			return nil, err
		}
		return ExpenseDeleted{ID: p.ID, GroupID: p.GroupID}, nil

	case wire.EventSettlementAdded:
		var p wire.SettlementAddedPayload
		if err := unmarshal(f, &p); err != nil {
			return nil, err
		}
		settlement, err := p.Settlement.ToModel()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", f.Event, err)
		}
		return SettlementAdded{Settlement: settlement}, nil

	case wire.EventSettlementDeleted:
		var p wire.DeletedPayload
		if err := unmarshal(f, &p); err != nil {
			return nil, err
		}
		return SettlementDeleted{ID: p.ID, GroupID: p.GroupID}, nil

	case wire.EventFriendRequestReceived:
		var p wire.FriendRequestReceivedPayload
		if err := unmarshal(f, &p); err != nil {
			return nil, err
		}
		return FriendRequestReceived{Request: p.Request.ToModel()}, nil

	case wire.EventFriendRequestAccepted:
		var p wire.FriendRequestAcceptedPayload
		if err := unmarshal(f, &p); err != nil {
			return nil, err
		}
		return FriendRequestAccepted{RequestID: p.RequestID}, nil

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEvent, f.Event)
	}
}

func unmarshal(f wire.Frame, v any) error {
	if err := json.Unmarshal(f.Data, v); err != nil {
		return fmt.Errorf("failed to decode %s payload: %w", f.Event, err)
	}
	return nil
}

// Encode builds the frame for an event. The backend uses it to fan events out.
func Encode(e Event) (wire.Frame, error) {
	var payload any
	switch e := e.(type) {
	case ExpenseAdded:
		payload = wire.ExpenseAddedPayload{Expense: wire.FromExpense(e.Expense)}
	case ExpenseDeleted:
		payload = wire.DeletedPayload{ID: e.ID, GroupID: e.GroupID}
	case SettlementAdded:
		payload = wire.SettlementAddedPayload{Settlement: wire.FromSettlement(e.Settlement)}
	case SettlementDeleted:
		payload = wire.DeletedPayload{ID: e.ID, GroupID: e.GroupID}
	case FriendRequestReceived:
		payload = wire.FriendRequestReceivedPayload{Request: fromFriendRequest(e.Request)}
	case FriendRequestAccepted:
		payload = wire.FriendRequestAcceptedPayload{RequestID: e.RequestID}
	default:
		return wire.Frame{}, fmt.Errorf("%w: %T", ErrUnknownEvent, e)
	}
	return wire.NewFrame(e.Name(), payload)
}

func fromFriendRequest(r models.FriendRequest) wire.FriendRequest {
	return wire.FriendRequest{
		ID:           r.ID,
		FromUserID:   r.FromUser,
		ToUserID:     r.ToUser,
		FromUsername: r.FromUsername,
		FromAvatar:   r.FromAvatar,
		ToUsername:   r.ToUsername,
		ToAvatar:     r.ToAvatar,
		Status:       string(r.Status),
		CreatedAt:    r.CreatedAt,
	}
}
