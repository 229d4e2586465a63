package models

import "fmt"

// SplitKind describes how an expense amount was divided.
type SplitKind string

const (
	SplitEqual      SplitKind = "equal"
	SplitPercentage SplitKind = "percentage"
	SplitExact      SplitKind = "exact"
)

// ParseSplitKind validates a split kind coming from the wire.
// An empty string defaults to SplitEqual.
func ParseSplitKind(s string) (SplitKind, error) {
	switch SplitKind(s) {
	case "":
		return SplitEqual, nil
	case SplitEqual, SplitPercentage, SplitExact:
		return SplitKind(s), nil
	default:
		return "", fmt.Errorf("unknown split kind: %q", s)
	}
}

// Category tags an expense for display.
type Category string

const (
	CategoryFood          Category = "food"
	CategoryTransport     Category = "transport"
	CategoryAccommodation Category = "accommodation"
	CategoryEntertainment Category = "entertainment"
	CategoryShopping      Category = "shopping"
	CategoryUtilities     Category = "utilities"
	CategoryOther         Category = "other"
)

// Expense is a payment made by one member on behalf of the group.
// The sum of Splits equals Amount within one Cent; the producer enforces it.
type Expense struct {
	ID          string
	GroupID     string
	Description string
	Amount      Amount
	Currency    string

	// PaidBy is the member ID of the payer.
	PaidBy string

	SplitKind SplitKind

	// Splits are the per-member shares, one per participating member.
	Splits []Split

	Category Category

	// Date is the day the expense occurred (YYYY-MM-DD).
	Date string

	// CreatedAt is the RFC 3339 timestamp when the expense was recorded.
	CreatedAt string

	Notes string
}

// Split is a single member's share of one expense.
type Split struct {
	MemberID string
	Amount   Amount

	// Percentage is set for percentage splits only.
	Percentage *float64
}

// SplitTotal returns the sum of all split amounts.
func (e *Expense) SplitTotal() Amount {
	var total Amount
	for _, s := range e.Splits {
		total += s.Amount
	}
	return total
}
