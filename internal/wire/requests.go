package wire

// Request and response bodies of the REST surface.

type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type AuthResponse struct {
	Token string `json:"token"`
	User  Member `json:"user"`
}

type CreateGroupRequest struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Currency    string `json:"currency"`
	ImageURL    string `json:"image_url,omitempty"`
}

type JoinGroupRequest struct {
	InviteCode string `json:"invite_code"`
}

type GroupResponse struct {
	Group Group `json:"group"`
}

type GroupsResponse struct {
	Groups []Group `json:"groups"`
}

type CreateExpenseRequest struct {
	GroupID     string  `json:"group_id"`
	Description string  `json:"description"`
	Amount      Decimal `json:"amount"`
	Currency    string  `json:"currency"`
	PaidBy      string  `json:"paid_by,omitempty"`
	SplitType   string  `json:"split_type"`
	Category    string  `json:"category,omitempty"`
	Date        string  `json:"date,omitempty"`
	Notes       string  `json:"notes,omitempty"`
	Splits      []Split `json:"splits"`
}

type ExpenseResponse struct {
	Expense Expense `json:"expense"`
}

type ExpensesResponse struct {
	Expenses []Expense `json:"expenses"`
}

type CreateSettlementRequest struct {
	GroupID  string  `json:"group_id"`
	FromUser string  `json:"from_user,omitempty"`
	ToUser   string  `json:"to_user"`
	Amount   Decimal `json:"amount"`
	Currency string  `json:"currency"`
	Date     string  `json:"date,omitempty"`
	Notes    string  `json:"notes,omitempty"`
}

type SettlementResponse struct {
	Settlement Settlement `json:"settlement"`
}

type SettlementsResponse struct {
	Settlements []Settlement `json:"settlements"`
}

type FriendsResponse struct {
	Friends []Friend `json:"friends"`
}

type FriendRequestsResponse struct {
	Received []FriendRequest `json:"received"`
	Sent     []FriendRequest `json:"sent"`
}

type SendFriendRequestRequest struct {
	ToUserID string `json:"to_user_id"`
}

type FriendRequestResponse struct {
	Request FriendRequest `json:"request"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error string `json:"error"`
}
