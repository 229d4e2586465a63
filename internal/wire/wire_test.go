package wire

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/mmynk/splitsync/internal/models"
)

func TestExpenseToModel(t *testing.T) {
	// Postgres numeric columns arrive as strings, client-built bodies as numbers.
	raw := `{
		"id": "e1",
		"group_id": "g1",
		"description": "Dinner",
		"amount": "90.00",
		"currency": "USD",
		"paid_by": "A",
		"split_type": "equal",
		"category": "food",
		"date": "2024-05-01",
		"splits": [
			{"user_id": "A", "amount": 30},
			{"user_id": "B", "amount": "30.00"},
			{"user_id": "C", "amount": 30.004}
		]
	}`

	var e Expense
	if err := json.Unmarshal([]byte(raw), &e); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}

	got, err := e.ToModel()
	if err != nil {
		t.Fatalf("ToModel failed: %v", err)
	}

	if got.Amount != 9000 {
		t.Errorf("amount = %s, want 90.00", got.Amount)
	}
	if got.SplitKind != models.SplitEqual {
		t.Errorf("split kind = %s, want equal", got.SplitKind)
	}
	if got.Category != models.CategoryFood {
		t.Errorf("category = %s, want food", got.Category)
	}
	if len(got.Splits) != 3 {
		t.Fatalf("splits = %d, want 3", len(got.Splits))
	}
	for _, s := range got.Splits {
		if s.Amount != 3000 {
			t.Errorf("%s split = %s, want 30.00", s.MemberID, s.Amount)
		}
	}
}

func TestExpenseToModel_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		expense Expense
	}{
		{name: "missing id", expense: Expense{SplitType: "equal"}},
		{name: "unknown split type", expense: Expense{ID: "e1", SplitType: "shares"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := tt.expense.ToModel(); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestSettlementRoundTrip(t *testing.T) {
	in := models.Settlement{ID: "s1", GroupID: "g1", From: "A", To: "B", Amount: 3050, Currency: "EUR"}

	data, err := json.Marshal(FromSettlement(in))
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	var decoded Settlement
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	out, err := decoded.ToModel()
	if err != nil {
		t.Fatalf("ToModel failed: %v", err)
	}
	if out != in {
		t.Errorf("got %+v, want %+v", out, in)
	}
}

func TestSettlementToModel_MissingID(t *testing.T) {
	_, err := Settlement{}.ToModel()
	if !errors.Is(err, ErrMissingID) {
		t.Errorf("error = %v, want ErrMissingID", err)
	}
}

func TestFriendToModel(t *testing.T) {
	f := Friend{ID: "f1", Name: "Bob", AvatarURL: "manual.png", LinkedUserAvatar: "linked.png"}
	got := f.ToModel()
	if got.FriendID != "f1" {
		t.Errorf("friend id = %s, want fallback to id", got.FriendID)
	}
	if got.Avatar != "linked.png" {
		t.Errorf("avatar = %s, want linked.png", got.Avatar)
	}
}
