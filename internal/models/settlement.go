package models

// Settlement represents a payment between group members to clear debts.
type Settlement struct {
	// ID is the unique identifier for the settlement (UUID format).
	ID string

	// GroupID is the group this settlement belongs to.
	GroupID string

	// From is the member who paid (debtor settling up).
	From string

	// To is the member who received payment (creditor being paid).
	To string

	Amount   Amount
	Currency string

	// Date is the day the payment happened (YYYY-MM-DD).
	Date string

	// CreatedAt is the RFC 3339 timestamp when the settlement was recorded.
	CreatedAt string

	Notes string
}
