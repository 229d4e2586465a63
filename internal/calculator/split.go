package calculator

import (
	"errors"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/mmynk/splitsync/internal/models"
)

var (
	ErrNoParticipants    = errors.New("must have at least one participant")
	ErrNonPositiveAmount = errors.New("amount must be greater than zero")
	ErrDuplicateMember   = errors.New("member appears more than once in splits")
	ErrInvalidPercentage = errors.New("percentages must be between 0 and 100 and add up to 100")
	ErrSplitMismatch     = errors.New("split amounts do not add up to the expense total")
)

// Share is a caller-provided share for percentage or exact splits.
type Share struct {
	MemberID   string
	Amount     models.Amount
	Percentage float64
}

// CalculateSplits builds the split records of an expense.
//
// Equal splits divide amount among members; leftover hundredths go to the
// first members so the splits add up exactly. Percentage splits use each
// share's Percentage; leftover hundredths go to the largest rounded-off
// fractions so no share is pushed below zero.
// Exact splits use each share's Amount as given and are validated.
func CalculateSplits(amount models.Amount, kind models.SplitKind, members []string, shares []Share) ([]models.Split, error) {
	if amount <= 0 {
		return nil, ErrNonPositiveAmount
	}

	var splits []models.Split
	switch kind {
	case models.SplitEqual:
		if len(members) == 0 {
			return nil, ErrNoParticipants
		}
		n := models.Amount(len(members))
		per, rem := amount/n, amount%n
		splits = make([]models.Split, len(members))
		for i, id := range members {
			share := per
			if models.Amount(i) < rem {
				share += models.Cent
			}
			splits[i] = models.Split{MemberID: id, Amount: share}
		}

	case models.SplitPercentage:
		if len(shares) == 0 {
			return nil, ErrNoParticipants
		}
		sum := decimal.Zero
		for _, sh := range shares {
			if sh.Percentage < 0 || sh.Percentage > 100 {
				return nil, ErrInvalidPercentage
			}
			sum = sum.Add(decimal.NewFromFloat(sh.Percentage))
		}
		if !sum.Sub(decimal.NewFromInt(100)).Abs().LessThanOrEqual(decimal.New(1, -2)) {
			return nil, ErrInvalidPercentage
		}
		splits = allocatePercentages(amount, shares, sum)

	case models.SplitExact:
		if len(shares) == 0 {
			return nil, ErrNoParticipants
		}
		splits = make([]models.Split, len(shares))
		for i, s := range shares {
			splits[i] = models.Split{MemberID: s.MemberID, Amount: s.Amount}
		}

	default:
		return nil, fmt.Errorf("unknown split kind: %q", kind)
	}

	if err := ValidateSplits(amount, splits); err != nil {
		return nil, err
	}
	return splits, nil
}

// allocatePercentages splits amount in proportion to the percentages. Every
// share is rounded down, then the leftover hundredths are handed out one each
// to the shares with the largest fractions; earlier shares win ties.
func allocatePercentages(amount models.Amount, shares []Share, total decimal.Decimal) []models.Split {
	splits := make([]models.Split, len(shares))
	fractions := make([]decimal.Decimal, len(shares))
	order := make([]int, len(shares))
	var allocated models.Amount
	for i, sh := range shares {
		exact := decimal.NewFromInt(int64(amount)).Mul(decimal.NewFromFloat(sh.Percentage)).Div(total)
		floor := exact.Floor()
		fractions[i] = exact.Sub(floor)
		p := sh.Percentage
		splits[i] = models.Split{MemberID: sh.MemberID, Amount: models.Amount(floor.IntPart()), Percentage: &p}
		allocated += splits[i].Amount
		order[i] = i
	}

	sort.SliceStable(order, func(a, b int) bool {
		return fractions[order[a]].GreaterThan(fractions[order[b]])
	})
	for i := 0; allocated < amount; i++ {
		splits[order[i%len(order)]].Amount += models.Cent
		allocated += models.Cent
	}
	return splits
}

// ValidateSplits checks that member IDs are unique, no share is negative and
// the shares add up to amount within one Cent.
func ValidateSplits(amount models.Amount, splits []models.Split) error {
	if len(splits) == 0 {
		return ErrNoParticipants
	}
	seen := make(map[string]struct{}, len(splits))
	var total models.Amount
	for _, s := range splits {
		if _, dup := seen[s.MemberID]; dup {
			return fmt.Errorf("%w: %s", ErrDuplicateMember, s.MemberID)
		}
		seen[s.MemberID] = struct{}{}
		if s.Amount < 0 {
			return fmt.Errorf("%w: negative share for %s", ErrSplitMismatch, s.MemberID)
		}
		total += s.Amount
	}
	if (total - amount).Abs() > SettleTolerance {
		return fmt.Errorf("%w: splits total %s, expense %s", ErrSplitMismatch, total, amount)
	}
	return nil
}
