package channel

import (
	"errors"
	"testing"

	"github.com/mmynk/splitsync/internal/models"
	"github.com/mmynk/splitsync/internal/wire"
)

func TestDecode(t *testing.T) {
	tests := []struct {
		name    string
		frame   wire.Frame
		want    Event
		wantErr bool
	}{
		{
			name: "expense added with string amounts",
			frame: wire.Frame{Event: wire.EventExpenseAdded, Data: []byte(`{"expense":{
				"id":"e1","group_id":"g1","description":"Dinner","amount":"90.00","currency":"USD",
				"paid_by":"A","split_type":"equal",
				"splits":[{"user_id":"A","amount":"30.00"},{"user_id":"B","amount":30},{"user_id":"C","amount":"30"}]}}`)},
			want: ExpenseAdded{Expense: models.Expense{
				ID: "e1", GroupID: "g1", Description: "Dinner", Amount: 9000, Currency: "USD",
				PaidBy: "A", SplitKind: models.SplitEqual,
				Splits: []models.Split{{MemberID: "A", Amount: 3000}, {MemberID: "B", Amount: 3000}, {MemberID: "C", Amount: 3000}},
			}},
		},
		{
			name:  "expense deleted",
			frame: wire.Frame{Event: wire.EventExpenseDeleted, Data: []byte(`{"id":"e1"}`)},
			want:  ExpenseDeleted{ID: "e1"},
		},
		{
			name: "settlement added",
			frame: wire.Frame{Event: wire.EventSettlementAdded, Data: []byte(`{"settlement":{
				"id":"s1","group_id":"g1","from_user":"B","to_user":"A","amount":"30.00","currency":"USD"}}`)},
			want: SettlementAdded{Settlement: models.Settlement{
				ID: "s1", GroupID: "g1", From: "B", To: "A", Amount: 3000, Currency: "USD",
			}},
		},
		{
			name:  "settlement deleted",
			frame: wire.Frame{Event: wire.EventSettlementDeleted, Data: []byte(`{"id":"s1","group_id":"g1"}`)},
			want:  SettlementDeleted{ID: "s1", GroupID: "g1"},
		},
		{
			name:  "friend request accepted",
			frame: wire.Frame{Event: wire.EventFriendRequestAccepted, Data: []byte(`{"requestId":"r1"}`)},
			want:  FriendRequestAccepted{RequestID: "r1"},
		},
		{
			name:    "expense without id",
			frame:   wire.Frame{Event: wire.EventExpenseAdded, Data: []byte(`{"expense":{"amount":"1.00"}}`)},
			wantErr: true,
		},
		{
			name:    "malformed payload",
			frame:   wire.Frame{Event: wire.EventExpenseDeleted, Data: []byte(`[1,2]`)},
			wantErr: true,
		},
		{
			name:    "unknown event",
			frame:   wire.Frame{Event: "typing", Data: []byte(`{}`)},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Decode(tt.frame)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %#v", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("Decode failed: %v", err)
			}
			assertEventEqual(t, got, tt.want)
		})
	}
}

func TestDecodeUnknownEvent(t *testing.T) {
	_, err := Decode(wire.Frame{Event: "typing"})
	if !errors.Is(err, ErrUnknownEvent) {
		t.Errorf("error = %v, want ErrUnknownEvent", err)
	}
}

func TestEncodeFriendRequestReceived(t *testing.T) {
	in := FriendRequestReceived{Request: models.FriendRequest{
		ID: "r1", FromUser: "u1", ToUser: "u2", Status: models.FriendRequestPending, FromUsername: "Alice",
	}}
	frame, err := Encode(in)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	if frame.Event != wire.EventFriendRequestReceived {
		t.Errorf("event = %q", frame.Event)
	}

	out, err := Decode(frame)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	got, ok := out.(FriendRequestReceived)
	if !ok {
		t.Fatalf("got %T", out)
	}
	if got.Request.ID != "r1" || got.Request.FromUser != "u1" || got.Request.FromUsername != "Alice" {
		t.Errorf("unexpected request: %+v", got.Request)
	}
}

func assertEventEqual(t *testing.T, got, want Event) {
	t.Helper()
	if got.Name() != want.Name() {
		t.Fatalf("event = %s, want %s", got.Name(), want.Name())
	}
	switch w := want.(type) {
	case ExpenseAdded:
		g := got.(ExpenseAdded)
		if g.Expense.ID != w.Expense.ID || g.Expense.Amount != w.Expense.Amount ||
			g.Expense.PaidBy != w.Expense.PaidBy || g.Expense.SplitKind != w.Expense.SplitKind {
			t.Errorf("expense = %+v, want %+v", g.Expense, w.Expense)
		}
		if len(g.Expense.Splits) != len(w.Expense.Splits) {
			t.Fatalf("got %d splits, want %d", len(g.Expense.Splits), len(w.Expense.Splits))
		}
		for i := range w.Expense.Splits {
			if g.Expense.Splits[i].MemberID != w.Expense.Splits[i].MemberID || g.Expense.Splits[i].Amount != w.Expense.Splits[i].Amount {
				t.Errorf("split %d = %+v, want %+v", i, g.Expense.Splits[i], w.Expense.Splits[i])
			}
		}
	case SettlementAdded:
		if g := got.(SettlementAdded); g.Settlement != w.Settlement {
			t.Errorf("settlement = %+v, want %+v", g.Settlement, w.Settlement)
		}
	default:
		if got != want {
			t.Errorf("event = %#v, want %#v", got, want)
		}
	}
}
