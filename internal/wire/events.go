package wire

import "encoding/json"

// Channel event names.
const (
	EventJoinGroup             = "join-group"
	EventLeaveGroup            = "leave-group"
	EventExpenseAdded          = "expense-added"
	EventExpenseDeleted        = "expense-deleted"
	EventSettlementAdded       = "settlement-added"
	EventSettlementDeleted     = "settlement-deleted"
	EventFriendRequestReceived = "friend-request-received"
	EventFriendRequestAccepted = "friend-request-accepted"
)

// Frame is one message on the channel in either direction.
type Frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// NewFrame encodes data as the frame payload.
func NewFrame(event string, data any) (Frame, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return Frame{}, err
	}
	return Frame{Event: event, Data: raw}, nil
}

type ExpenseAddedPayload struct {
	Expense Expense `json:"expense"`
}

type SettlementAddedPayload struct {
	Settlement Settlement `json:"settlement"`
}

// DeletedPayload is shared by expense-deleted and settlement-deleted.
type DeletedPayload struct {
	ID      string `json:"id"`
	GroupID string `json:"group_id,omitempty"`
}

type FriendRequestReceivedPayload struct {
	Request FriendRequest `json:"request"`
}

type FriendRequestAcceptedPayload struct {
	RequestID string `json:"requestId"`
}
