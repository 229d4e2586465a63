// Package storage provides abstractions for the backend's persistent data.
package storage

import (
	"context"
	"errors"

	"github.com/mmynk/splitsync/internal/models"
)

var (
	// ErrNotFound is returned when a record does not exist.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists is returned when a unique value is taken.
	ErrAlreadyExists = errors.New("already exists")
)

// Store is everything the backend persists.
// This abstraction allows swapping storage backends (SQLite, PostgreSQL, etc.)
// without changing the handlers.
type Store interface {
	UserStore
	GroupStore
	ExpenseStore
	SettlementStore
	FriendStore

	// Close releases any resources held by the store.
	Close() error
}

type UserStore interface {
	// CreateUser returns ErrAlreadyExists when the email is taken.
	CreateUser(ctx context.Context, user *models.User) error

	// GetUserByEmail returns nil and no error when the user does not exist.
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)

	// GetUserByID returns nil and no error when the user does not exist.
	GetUserByID(ctx context.Context, id string) (*models.User, error)
}

type GroupStore interface {
	// CreateGroup persists a group with ownerID as its first member.
	// ID, InviteCode and timestamps are populated by the store.
	CreateGroup(ctx context.Context, group *models.Group, ownerID string) error

	// GetGroup returns the group with its members, or ErrNotFound.
	GetGroup(ctx context.Context, groupID string) (*models.Group, error)

	// GetGroupByInviteCode returns the group owning code, or ErrNotFound.
	GetGroupByInviteCode(ctx context.Context, code string) (*models.Group, error)

	// ListGroupsByUser returns the groups userID belongs to, newest first.
	ListGroupsByUser(ctx context.Context, userID string) ([]*models.Group, error)

	// AddGroupMember adds userID to the group. Adding an existing member is a no-op.
	AddGroupMember(ctx context.Context, groupID, userID string) error

	IsGroupMember(ctx context.Context, groupID, userID string) (bool, error)
}

type ExpenseStore interface {
	// CreateExpense persists an expense and its splits; ID and CreatedAt are
	// populated by the store.
	CreateExpense(ctx context.Context, expense *models.Expense) error

	// GetExpense returns the expense with its splits, or ErrNotFound.
	GetExpense(ctx context.Context, expenseID string) (*models.Expense, error)

	// ListExpensesByGroup returns a group's expenses in creation order.
	ListExpensesByGroup(ctx context.Context, groupID string) ([]*models.Expense, error)

	// DeleteExpense removes an expense and its splits, or returns ErrNotFound.
	DeleteExpense(ctx context.Context, expenseID string) error
}

type SettlementStore interface {
	CreateSettlement(ctx context.Context, settlement *models.Settlement) error
	GetSettlement(ctx context.Context, settlementID string) (*models.Settlement, error)
	ListSettlementsByGroup(ctx context.Context, groupID string) ([]*models.Settlement, error)
	DeleteSettlement(ctx context.Context, settlementID string) error
}

type FriendStore interface {
	// CreateFriendRequest returns ErrAlreadyExists when a pending request
	// between the two users exists in either direction, or they are friends.
	CreateFriendRequest(ctx context.Context, req *models.FriendRequest) error

	GetFriendRequest(ctx context.Context, requestID string) (*models.FriendRequest, error)

	// ListFriendRequests returns the pending requests received and sent by userID.
	ListFriendRequests(ctx context.Context, userID string) (received, sent []*models.FriendRequest, err error)

	// AcceptFriendRequest marks the request accepted and links both users.
	AcceptFriendRequest(ctx context.Context, requestID string) error

	ListFriends(ctx context.Context, userID string) ([]*models.Friend, error)
}
