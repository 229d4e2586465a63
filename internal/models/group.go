package models

// Group is a set of members who share expenses.
// Expenses and settlements reference a group by ID; the group does not
// contain them.
type Group struct {
	// ID is the unique identifier for the group (UUID format).
	ID string

	// Name is the display name of the group (e.g., "Roommates", "Trip").
	Name string

	Description string

	// Members is the list of participants, in the order the backend returns them.
	Members []Member

	// Currency is the default ISO currency code of the group.
	Currency string

	// InviteCode lets other users join the group. Owned by the backend.
	InviteCode string

	CreatedAt string
	UpdatedAt string
}

// HasMember reports whether the member ID belongs to the group.
func (g *Group) HasMember(memberID string) bool {
	for _, m := range g.Members {
		if m.ID == memberID {
			return true
		}
	}
	return false
}
