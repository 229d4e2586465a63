package calculator

import (
	"sort"

	"github.com/mmynk/splitsync/internal/models"
)

// SettleTolerance is the magnitude under which a balance or a transfer is
// treated as settled.
const SettleTolerance = models.Cent

// SimplifyDebts turns net balances into a short list of transfers that would
// zero out the group.
//
// Greedy matching: creditors sorted by largest credit, debtors by largest debt,
// walked with two cursors. Each step moves min(credit, debt) from the current
// debtor to the current creditor and advances whichever side is settled.
// Ties keep input order. This is not a minimum-transfer solver; the pairings
// are deterministic for a given input.
func SimplifyDebts(balances []models.Balance) []models.SimplifiedDebt {
	var creditors, debtors []models.Balance
	for _, b := range balances {
		if b.Amount > SettleTolerance {
			creditors = append(creditors, b)
		} else if b.Amount < -SettleTolerance {
			debtors = append(debtors, b)
		}
	}

	sort.SliceStable(creditors, func(i, j int) bool { return creditors[i].Amount > creditors[j].Amount })
	sort.SliceStable(debtors, func(i, j int) bool { return debtors[i].Amount < debtors[j].Amount })

	var debts []models.SimplifiedDebt
	i, j := 0, 0
	for i < len(creditors) && j < len(debtors) {
		creditor := &creditors[i]
		debtor := &debtors[j]

		amount := creditor.Amount
		if owed := debtor.Amount.Abs(); owed < amount {
			amount = owed
		}

		if amount > SettleTolerance {
			debts = append(debts, models.SimplifiedDebt{
				From:   debtor.MemberID,
				To:     creditor.MemberID,
				Amount: amount,
			})
		}

		creditor.Amount -= amount
		debtor.Amount += amount

		if creditor.Amount < SettleTolerance {
			i++
		}
		if debtor.Amount > -SettleTolerance {
			j++
		}
	}

	return debts
}
