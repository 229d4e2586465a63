package models

// Balance is a member's net position across a group's history.
// Positive means the group owes the member; negative means the member owes.
type Balance struct {
	MemberID string
	Amount   Amount
}

// SimplifiedDebt is one suggested transfer: From should pay To.
type SimplifiedDebt struct {
	From   string
	To     string
	Amount Amount
}
