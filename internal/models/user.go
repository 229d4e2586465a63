package models

import (
	"time"

	"github.com/google/uuid"
)

// Member is a participant of a group as seen by clients.
// Members are immutable once fetched and refreshed wholesale on reload.
type Member struct {
	ID        string
	Name      string
	Email     string
	AvatarURL string
}

// User represents a registered account on the backend.
type User struct {
	// ID is the unique identifier for the user (UUID format).
	ID string

	// Email is the user's email address (unique), used for login.
	Email string

	// DisplayName is the name shown to other group members.
	DisplayName string

	// PasswordHash is the bcrypt hash of the user's password.
	PasswordHash string

	// AvatarURL is an optional profile picture reference.
	AvatarURL string

	CreatedAt int64
	UpdatedAt int64
}

// NewUser creates a user with a fresh ID and timestamps.
func NewUser(email, displayName, passwordHash string) *User {
	now := time.Now().Unix()
	return &User{
		ID:           uuid.New().String(),
		Email:        email,
		DisplayName:  displayName,
		PasswordHash: passwordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// Member returns the public view of the user.
func (u *User) Member() Member {
	return Member{ID: u.ID, Name: u.DisplayName, Email: u.Email, AvatarURL: u.AvatarURL}
}

// Friend is an entry of the signed-in user's friends list.
type Friend struct {
	ID       string
	FriendID string
	Name     string
	Email    string
	Avatar   string
	AddedAt  string
}

// FriendRequestStatus is the lifecycle state of a friend request.
type FriendRequestStatus string

const (
	FriendRequestPending  FriendRequestStatus = "pending"
	FriendRequestAccepted FriendRequestStatus = "accepted"
	FriendRequestRejected FriendRequestStatus = "rejected"
)

// FriendRequest is a pending or resolved invitation between two users.
type FriendRequest struct {
	ID           string
	FromUser     string
	ToUser       string
	Status       FriendRequestStatus
	CreatedAt    string
	FromUsername string
	FromAvatar   string
	ToUsername   string
	ToAvatar     string
}
