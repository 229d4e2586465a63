package calculator

import (
	"reflect"
	"testing"

	"github.com/mmynk/splitsync/internal/models"
)

func TestSimplifyDebts(t *testing.T) {
	tests := []struct {
		name     string
		balances []models.Balance
		want     []models.SimplifiedDebt
	}{
		{
			name:     "two members",
			balances: []models.Balance{{MemberID: "A", Amount: -3000}, {MemberID: "B", Amount: 3000}},
			want:     []models.SimplifiedDebt{{From: "A", To: "B", Amount: 3000}},
		},
		{
			name: "three-party chain pays the single creditor",
			balances: []models.Balance{
				{MemberID: "A", Amount: 6000},
				{MemberID: "B", Amount: -3000},
				{MemberID: "C", Amount: -3000},
			},
			want: []models.SimplifiedDebt{
				{From: "B", To: "A", Amount: 3000},
				{From: "C", To: "A", Amount: 3000},
			},
		},
		{
			name: "largest debtor pays largest creditor first",
			balances: []models.Balance{
				{MemberID: "A", Amount: 1000},
				{MemberID: "B", Amount: 5000},
				{MemberID: "C", Amount: -2000},
				{MemberID: "D", Amount: -4000},
			},
			want: []models.SimplifiedDebt{
				{From: "D", To: "B", Amount: 4000},
				{From: "C", To: "B", Amount: 1000},
				{From: "C", To: "A", Amount: 1000},
			},
		},
		{
			name: "ties keep input order",
			balances: []models.Balance{
				{MemberID: "X", Amount: -1000},
				{MemberID: "A", Amount: 1000},
				{MemberID: "Y", Amount: -1000},
				{MemberID: "B", Amount: 1000},
			},
			want: []models.SimplifiedDebt{
				{From: "X", To: "A", Amount: 1000},
				{From: "Y", To: "B", Amount: 1000},
			},
		},
		{
			name: "balances within one cent are settled",
			balances: []models.Balance{
				{MemberID: "A", Amount: 1},
				{MemberID: "B", Amount: -1},
				{MemberID: "C", Amount: 0},
			},
			want: nil,
		},
		{
			name:     "empty input",
			balances: nil,
			want:     nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SimplifyDebts(tt.balances)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("SimplifyDebts() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestSimplifyDebts_DoesNotMutateInput(t *testing.T) {
	balances := []models.Balance{{MemberID: "A", Amount: -3000}, {MemberID: "B", Amount: 3000}}
	SimplifyDebts(balances)
	if balances[0].Amount != -3000 || balances[1].Amount != 3000 {
		t.Errorf("input mutated: %+v", balances)
	}
}

func TestSimplifyDebts_MovesAllCredit(t *testing.T) {
	balances := []models.Balance{
		{MemberID: "A", Amount: 4567},
		{MemberID: "B", Amount: -1234},
		{MemberID: "C", Amount: 789},
		{MemberID: "D", Amount: -2222},
		{MemberID: "E", Amount: -1900},
	}

	var credit models.Amount
	for _, b := range balances {
		if b.Amount > SettleTolerance {
			credit += b.Amount
		}
	}

	var moved models.Amount
	for _, d := range SimplifyDebts(balances) {
		if d.Amount <= 0 {
			t.Errorf("non-positive transfer: %+v", d)
		}
		if d.From == d.To {
			t.Errorf("self transfer: %+v", d)
		}
		moved += d.Amount
	}

	if moved != credit {
		t.Errorf("moved %s, want %s", moved, credit)
	}
}

func TestSettlementClosesDebt(t *testing.T) {
	group := members("A", "B")
	expenses := []models.Expense{{
		PaidBy: "B",
		Amount: 6000,
		Splits: []models.Split{{MemberID: "A", Amount: 3000}, {MemberID: "B", Amount: 3000}},
	}}

	debts := SimplifyDebts(ComputeBalances(expenses, group, nil))
	want := []models.SimplifiedDebt{{From: "A", To: "B", Amount: 3000}}
	if !reflect.DeepEqual(debts, want) {
		t.Fatalf("before settlement: got %+v, want %+v", debts, want)
	}

	settlements := []models.Settlement{{From: debts[0].From, To: debts[0].To, Amount: debts[0].Amount}}
	balances := ComputeBalances(expenses, group, settlements)
	for _, b := range balances {
		if b.Amount.Abs() > SettleTolerance {
			t.Errorf("%s still has balance %s", b.MemberID, b.Amount)
		}
	}
	if debts := SimplifyDebts(balances); len(debts) != 0 {
		t.Errorf("after settlement: got %+v, want none", debts)
	}
}
