package server

import (
	"errors"
	"net/http"

	"connectrpc.com/connect"

	"github.com/mmynk/splitsync/internal/channel"
	"github.com/mmynk/splitsync/internal/middleware"
	"github.com/mmynk/splitsync/internal/models"
	"github.com/mmynk/splitsync/internal/wire"
)

func (s *Server) handleListFriends(w http.ResponseWriter, r *http.Request) {
	friends, err := s.store.ListFriends(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		writeError(w, storageError(err))
		return
	}
	resp := wire.FriendsResponse{Friends: make([]wire.Friend, len(friends))}
	for i, f := range friends {
		resp.Friends[i] = wire.Friend{
			ID:           f.ID,
			FriendUserID: f.FriendID,
			Name:         f.Name,
			Email:        f.Email,
			AvatarURL:    f.Avatar,
			AddedAt:      f.AddedAt,
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleListFriendRequests(w http.ResponseWriter, r *http.Request) {
	received, sent, err := s.store.ListFriendRequests(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		writeError(w, storageError(err))
		return
	}
	resp := wire.FriendRequestsResponse{
		Received: make([]wire.FriendRequest, len(received)),
		Sent:     make([]wire.FriendRequest, len(sent)),
	}
	for i, req := range received {
		resp.Received[i] = fromFriendRequest(*req)
	}
	for i, req := range sent {
		resp.Sent[i] = fromFriendRequest(*req)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSendFriendRequest(w http.ResponseWriter, r *http.Request) {
	var body wire.SendFriendRequestRequest
	if err := decode(r, &body); err != nil {
		writeError(w, err)
		return
	}
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)
	s.logger.Info("SendFriendRequest request received", "user_id", userID, "to_user_id", body.ToUserID)

	if body.ToUserID == "" || body.ToUserID == userID {
		writeError(w, connect.NewError(connect.CodeInvalidArgument, errors.New("invalid recipient")))
		return
	}
	to, err := s.store.GetUserByID(ctx, body.ToUserID)
	if err != nil {
		writeError(w, storageError(err))
		return
	}
	if to == nil {
		writeError(w, connect.NewError(connect.CodeNotFound, errMissingUser))
		return
	}

	req := &models.FriendRequest{FromUser: userID, ToUser: to.ID}
	if err := s.store.CreateFriendRequest(ctx, req); err != nil {
		writeError(w, storageError(err))
		return
	}

	s.publish(ctx, UserRoom(req.ToUser), channel.FriendRequestReceived{Request: *req})
	writeJSON(w, http.StatusCreated, wire.FriendRequestResponse{Request: fromFriendRequest(*req)})
}

func (s *Server) handleAcceptFriendRequest(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)
	requestID := r.PathValue("id")
	s.logger.Info("AcceptFriendRequest request received", "user_id", userID, "request_id", requestID)

	req, err := s.store.GetFriendRequest(ctx, requestID)
	if err != nil {
		writeError(w, storageError(err))
		return
	}
	if req.ToUser != userID {
		writeError(w, connect.NewError(connect.CodePermissionDenied, errors.New("only the recipient can accept a friend request")))
		return
	}
	if err := s.store.AcceptFriendRequest(ctx, requestID); err != nil {
		writeError(w, storageError(err))
		return
	}

	accepted := channel.FriendRequestAccepted{RequestID: req.ID}
	s.publish(ctx, UserRoom(req.FromUser), accepted)
	s.publish(ctx, UserRoom(req.ToUser), accepted)
	writeJSON(w, http.StatusOK, wire.MessageResponse{Message: "Friend request accepted"})
}

func fromFriendRequest(r models.FriendRequest) wire.FriendRequest {
	return wire.FriendRequest{
		ID:           r.ID,
		FromUserID:   r.FromUser,
		ToUserID:     r.ToUser,
		FromUsername: r.FromUsername,
		FromAvatar:   r.FromAvatar,
		ToUsername:   r.ToUsername,
		ToAvatar:     r.ToAvatar,
		Status:       string(r.Status),
		CreatedAt:    r.CreatedAt,
	}
}
