package calculator

import "github.com/mmynk/splitsync/internal/models"

// ComputeBalances folds expenses and settlements into a net balance per member.
//
// Algorithm:
// - Every member starts at zero, so members without activity still get an entry
// - For each expense: payer is credited the full amount, each split member is debited their share
// - For each settlement: From is credited (they paid off debt), To is debited (they received payment)
//
// The result is an exact integer sum, so balances always add up to zero.
// Member IDs referenced by splits or settlements but missing from members are
// accumulated into their own entry after the known members, in first-seen order.
func ComputeBalances(expenses []models.Expense, members []models.Member, settlements []models.Settlement) []models.Balance {
	b := newBalanceSheet(len(members))
	for _, m := range members {
		b.add(m.ID, 0)
	}

	for _, e := range expenses {
		b.add(e.PaidBy, e.Amount)
		for _, s := range e.Splits {
			b.add(s.MemberID, -s.Amount)
		}
	}

	for _, s := range settlements {
		b.add(s.From, s.Amount)
		b.add(s.To, -s.Amount)
	}

	return b.balances()
}

// balanceSheet accumulates amounts per member while remembering insertion order.
type balanceSheet struct {
	order  []string
	totals map[string]models.Amount
}

func newBalanceSheet(size int) *balanceSheet {
	return &balanceSheet{
		order:  make([]string, 0, size),
		totals: make(map[string]models.Amount, size),
	}
}

func (b *balanceSheet) add(memberID string, amount models.Amount) {
	if _, exists := b.totals[memberID]; !exists {
		b.order = append(b.order, memberID)
	}
	b.totals[memberID] += amount
}

func (b *balanceSheet) balances() []models.Balance {
	out := make([]models.Balance, len(b.order))
	for i, id := range b.order {
		out[i] = models.Balance{MemberID: id, Amount: b.totals[id]}
	}
	return out
}

// Total returns the sum of all balances. It is zero for balances produced by
// ComputeBalances.
func Total(balances []models.Balance) models.Amount {
	var total models.Amount
	for _, b := range balances {
		total += b.Amount
	}
	return total
}
