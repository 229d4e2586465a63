// Package wire holds the JSON shapes exchanged with the backend and converts
// them to and from the internal models.
//
// Backend conventions (snake_case ids, decimals that may arrive as strings)
// stop here: nothing outside this package sees them.
package wire

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/mmynk/splitsync/internal/models"
)

var ErrMissingID = errors.New("record has no id")

// Decimal accepts both JSON numbers and quoted decimal strings ("90.00").
type Decimal struct {
	decimal.Decimal
}

// NewDecimal converts an Amount for encoding.
func NewDecimal(a models.Amount) Decimal {
	return Decimal{a.Decimal()}
}

// Amount rounds the decimal to hundredths.
func (d Decimal) Amount() models.Amount {
	return models.AmountFromDecimal(d.Decimal)
}

// Member is a group member or user profile.
type Member struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email,omitempty"`
	AvatarURL string `json:"avatar_url,omitempty"`
}

// Group is the backend representation of a group.
type Group struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	ImageURL    string   `json:"image_url,omitempty"`
	Members     []Member `json:"members,omitempty"`
	Currency    string   `json:"currency"`
	InviteCode  string   `json:"invite_code,omitempty"`
	CreatedAt   string   `json:"created_at,omitempty"`
	UpdatedAt   string   `json:"updated_at,omitempty"`
}

// Split is one member's share of an expense.
type Split struct {
	UserID     string   `json:"user_id"`
	Amount     Decimal  `json:"amount"`
	Percentage *float64 `json:"percentage,omitempty"`
}

// Expense is the backend representation of an expense with nested splits.
type Expense struct {
	ID          string  `json:"id"`
	GroupID     string  `json:"group_id"`
	Description string  `json:"description"`
	Amount      Decimal `json:"amount"`
	Currency    string  `json:"currency"`
	PaidBy      string  `json:"paid_by"`
	SplitType   string  `json:"split_type"`
	Category    string  `json:"category,omitempty"`
	Date        string  `json:"date,omitempty"`
	CreatedAt   string  `json:"created_at,omitempty"`
	Notes       string  `json:"notes,omitempty"`
	Splits      []Split `json:"splits"`
}

// Settlement is the backend representation of a settlement.
type Settlement struct {
	ID        string  `json:"id"`
	GroupID   string  `json:"group_id"`
	FromUser  string  `json:"from_user"`
	ToUser    string  `json:"to_user"`
	Amount    Decimal `json:"amount"`
	Currency  string  `json:"currency"`
	Date      string  `json:"date,omitempty"`
	CreatedAt string  `json:"created_at,omitempty"`
	Notes     string  `json:"notes,omitempty"`
}

// Friend is an entry of the friends list.
type Friend struct {
	ID               string `json:"id"`
	FriendUserID     string `json:"friend_user_id,omitempty"`
	Name             string `json:"name"`
	Email            string `json:"email,omitempty"`
	AvatarURL        string `json:"avatar_url,omitempty"`
	LinkedUserAvatar string `json:"linked_user_avatar,omitempty"`
	AddedAt          string `json:"added_at,omitempty"`
}

// FriendRequest is a friend request in either direction.
type FriendRequest struct {
	ID           string `json:"id"`
	FromUserID   string `json:"from_user_id"`
	ToUserID     string `json:"to_user_id"`
	FromUsername string `json:"from_username,omitempty"`
	FromAvatar   string `json:"from_avatar,omitempty"`
	ToUsername   string `json:"to_username,omitempty"`
	ToAvatar     string `json:"to_avatar,omitempty"`
	Status       string `json:"status,omitempty"`
	CreatedAt    string `json:"created_at,omitempty"`
}

// ToModel converts a wire member.
func (m Member) ToModel() models.Member {
	return models.Member{ID: m.ID, Name: m.Name, Email: m.Email, AvatarURL: m.AvatarURL}
}

// FromMember converts a model member.
func FromMember(m models.Member) Member {
	return Member{ID: m.ID, Name: m.Name, Email: m.Email, AvatarURL: m.AvatarURL}
}

// ToModel validates and converts a wire group.
func (g Group) ToModel() (models.Group, error) {
	if g.ID == "" {
		return models.Group{}, fmt.Errorf("group: %w", ErrMissingID)
	}
	members := make([]models.Member, len(g.Members))
	for i, m := range g.Members {
		members[i] = m.ToModel()
	}
	return models.Group{
		ID:          g.ID,
		Name:        g.Name,
		Description: g.Description,
		Members:     members,
		Currency:    g.Currency,
		InviteCode:  g.InviteCode,
		CreatedAt:   g.CreatedAt,
		UpdatedAt:   g.UpdatedAt,
	}, nil
}

// FromGroup converts a model group.
func FromGroup(g models.Group) Group {
	members := make([]Member, len(g.Members))
	for i, m := range g.Members {
		members[i] = FromMember(m)
	}
	return Group{
		ID:          g.ID,
		Name:        g.Name,
		Description: g.Description,
		Members:     members,
		Currency:    g.Currency,
		InviteCode:  g.InviteCode,
		CreatedAt:   g.CreatedAt,
		UpdatedAt:   g.UpdatedAt,
	}
}

// ToModel validates and converts a wire expense.
func (e Expense) ToModel() (models.Expense, error) {
	if e.ID == "" {
		return models.Expense{}, fmt.Errorf("expense: %w", ErrMissingID)
	}
	kind, err := models.ParseSplitKind(e.SplitType)
	if err != nil {
		return models.Expense{}, fmt.Errorf("expense %s: %w", e.ID, err)
	}
	splits := make([]models.Split, len(e.Splits))
	for i, s := range e.Splits {
		splits[i] = models.Split{MemberID: s.UserID, Amount: s.Amount.Amount(), Percentage: s.Percentage}
	}
	return models.Expense{
		ID:          e.ID,
		GroupID:     e.GroupID,
		Description: e.Description,
		Amount:      e.Amount.Amount(),
		Currency:    e.Currency,
		PaidBy:      e.PaidBy,
		SplitKind:   kind,
		Splits:      splits,
		Category:    models.Category(e.Category),
		Date:        e.Date,
		CreatedAt:   e.CreatedAt,
		Notes:       e.Notes,
	}, nil
}

// FromExpense converts a model expense.
func FromExpense(e models.Expense) Expense {
	splits := make([]Split, len(e.Splits))
	for i, s := range e.Splits {
		splits[i] = Split{UserID: s.MemberID, Amount: NewDecimal(s.Amount), Percentage: s.Percentage}
	}
	return Expense{
		ID:          e.ID,
		GroupID:     e.GroupID,
		Description: e.Description,
		Amount:      NewDecimal(e.Amount),
		Currency:    e.Currency,
		PaidBy:      e.PaidBy,
		SplitType:   string(e.SplitKind),
		Category:    string(e.Category),
		Date:        e.Date,
		CreatedAt:   e.CreatedAt,
		Notes:       e.Notes,
		Splits:      splits,
	}
}

// ToModel validates and converts a wire settlement.
func (s Settlement) ToModel() (models.Settlement, error) {
	if s.ID == "" {
		return models.Settlement{}, fmt.Errorf("settlement: %w", ErrMissingID)
	}
	return models.Settlement{
		ID:        s.ID,
		GroupID:   s.GroupID,
		From:      s.FromUser,
		To:        s.ToUser,
		Amount:    s.Amount.Amount(),
		Currency:  s.Currency,
		Date:      s.Date,
		CreatedAt: s.CreatedAt,
		Notes:     s.Notes,
	}, nil
}

// FromSettlement converts a model settlement.
func FromSettlement(s models.Settlement) Settlement {
	return Settlement{
		ID:        s.ID,
		GroupID:   s.GroupID,
		FromUser:  s.From,
		ToUser:    s.To,
		Amount:    NewDecimal(s.Amount),
		Currency:  s.Currency,
		Date:      s.Date,
		CreatedAt: s.CreatedAt,
		Notes:     s.Notes,
	}
}

// ToModel converts a wire friend. The linked user's avatar wins over the
// manually entered one.
func (f Friend) ToModel() models.Friend {
	friendID := f.FriendUserID
	if friendID == "" {
		friendID = f.ID
	}
	avatar := f.LinkedUserAvatar
	if avatar == "" {
		avatar = f.AvatarURL
	}
	return models.Friend{
		ID:       f.ID,
		FriendID: friendID,
		Name:     f.Name,
		Email:    f.Email,
		Avatar:   avatar,
		AddedAt:  f.AddedAt,
	}
}

// ToModel converts a wire friend request.
func (r FriendRequest) ToModel() models.FriendRequest {
	status := models.FriendRequestStatus(r.Status)
	if status == "" {
		status = models.FriendRequestPending
	}
	return models.FriendRequest{
		ID:           r.ID,
		FromUser:     r.FromUserID,
		ToUser:       r.ToUserID,
		Status:       status,
		CreatedAt:    r.CreatedAt,
		FromUsername: r.FromUsername,
		FromAvatar:   r.FromAvatar,
		ToUsername:   r.ToUsername,
		ToAvatar:     r.ToAvatar,
	}
}
