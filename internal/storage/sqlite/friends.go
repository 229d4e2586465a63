package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/mmynk/splitsync/internal/models"
	"github.com/mmynk/splitsync/internal/storage"
)

const friendRequestQuery = `
	SELECT r.id, r.from_user_id, r.to_user_id, r.status, r.created_at,
	       f.display_name, f.avatar_url, t.display_name, t.avatar_url
	FROM friend_requests r
	JOIN users f ON f.id = r.from_user_id
	JOIN users t ON t.id = r.to_user_id`

// CreateFriendRequest persists a pending request unless one already links the users.
func (s *SQLiteStore) CreateFriendRequest(ctx context.Context, req *models.FriendRequest) error {
	if req.ID == "" {
		req.ID = uuid.New().String()
	}
	if req.CreatedAt == "" {
		req.CreatedAt = now()
	}
	req.Status = models.FriendRequestPending

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var exists int
	err = tx.QueryRowContext(ctx,
		`SELECT 1 FROM friend_requests
		 WHERE status = ? AND ((from_user_id = ? AND to_user_id = ?) OR (from_user_id = ? AND to_user_id = ?))
		 UNION
		 SELECT 1 FROM friends WHERE user_id = ? AND friend_user_id = ?`,
		string(models.FriendRequestPending), req.FromUser, req.ToUser, req.ToUser, req.FromUser,
		req.FromUser, req.ToUser,
	).Scan(&exists)
	if err == nil {
		return fmt.Errorf("friend request: %w", storage.ErrAlreadyExists)
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("failed to check friend request: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		"INSERT INTO friend_requests (id, from_user_id, to_user_id, status, created_at) VALUES (?, ?, ?, ?, ?)",
		req.ID, req.FromUser, req.ToUser, string(req.Status), req.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert friend request: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	stored, err := s.GetFriendRequest(ctx, req.ID)
	if err != nil {
		return err
	}
	*req = *stored
	return nil
}

// GetFriendRequest retrieves a request with both users' display data.
func (s *SQLiteStore) GetFriendRequest(ctx context.Context, requestID string) (*models.FriendRequest, error) {
	req, err := scanFriendRequest(s.db.QueryRowContext(ctx, friendRequestQuery+` WHERE r.id = ?`, requestID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("friend request %s: %w", requestID, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get friend request: %w", err)
	}
	return req, nil
}

// ListFriendRequests returns the pending requests received and sent by a user.
func (s *SQLiteStore) ListFriendRequests(ctx context.Context, userID string) (received, sent []*models.FriendRequest, err error) {
	received, err = s.listFriendRequests(ctx, "r.to_user_id", userID)
	if err != nil {
		return nil, nil, err
	}
	sent, err = s.listFriendRequests(ctx, "r.from_user_id", userID)
	if err != nil {
		return nil, nil, err
	}
	return received, sent, nil
}

func (s *SQLiteStore) listFriendRequests(ctx context.Context, column, userID string) ([]*models.FriendRequest, error) {
	rows, err := s.db.QueryContext(ctx,
		friendRequestQuery+` WHERE `+column+` = ? AND r.status = ? ORDER BY r.rowid DESC`,
		userID, string(models.FriendRequestPending),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list friend requests: %w", err)
	}
	defer rows.Close()

	var requests []*models.FriendRequest
	for rows.Next() {
		req, err := scanFriendRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan friend request: %w", err)
		}
		requests = append(requests, req)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate friend requests: %w", err)
	}
	return requests, nil
}

// AcceptFriendRequest marks a pending request accepted and records the
// friendship in both directions.
func (s *SQLiteStore) AcceptFriendRequest(ctx context.Context, requestID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var from, to, status string
	err = tx.QueryRowContext(ctx,
		"SELECT from_user_id, to_user_id, status FROM friend_requests WHERE id = ?",
		requestID,
	).Scan(&from, &to, &status)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("friend request %s: %w", requestID, storage.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to get friend request: %w", err)
	}
	if models.FriendRequestStatus(status) != models.FriendRequestPending {
		return fmt.Errorf("friend request %s is %s: %w", requestID, status, storage.ErrAlreadyExists)
	}

	if _, err := tx.ExecContext(ctx,
		"UPDATE friend_requests SET status = ? WHERE id = ?",
		string(models.FriendRequestAccepted), requestID,
	); err != nil {
		return fmt.Errorf("failed to update friend request: %w", err)
	}

	ts := now()
	for _, pair := range [][2]string{{from, to}, {to, from}} {
		if _, err := tx.ExecContext(ctx,
			"INSERT OR IGNORE INTO friends (id, user_id, friend_user_id, added_at) VALUES (?, ?, ?, ?)",
			uuid.New().String(), pair[0], pair[1], ts,
		); err != nil {
			return fmt.Errorf("failed to insert friend: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// ListFriends returns a user's friends, most recent first.
func (s *SQLiteStore) ListFriends(ctx context.Context, userID string) ([]*models.Friend, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT f.id, f.friend_user_id, u.display_name, u.email, u.avatar_url, f.added_at
		 FROM friends f
		 JOIN users u ON u.id = f.friend_user_id
		 WHERE f.user_id = ?
		 ORDER BY f.rowid DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list friends: %w", err)
	}
	defer rows.Close()

	var friends []*models.Friend
	for rows.Next() {
		friend := &models.Friend{}
		if err := rows.Scan(&friend.ID, &friend.FriendID, &friend.Name, &friend.Email, &friend.Avatar, &friend.AddedAt); err != nil {
			return nil, fmt.Errorf("failed to scan friend: %w", err)
		}
		friends = append(friends, friend)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate friends: %w", err)
	}
	return friends, nil
}

func scanFriendRequest(row scanner) (*models.FriendRequest, error) {
	req := &models.FriendRequest{}
	var status string
	err := row.Scan(&req.ID, &req.FromUser, &req.ToUser, &status, &req.CreatedAt,
		&req.FromUsername, &req.FromAvatar, &req.ToUsername, &req.ToAvatar)
	if err != nil {
		return nil, err
	}
	req.Status = models.FriendRequestStatus(status)
	return req, nil
}
