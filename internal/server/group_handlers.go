package server

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"connectrpc.com/connect"

	"github.com/mmynk/splitsync/internal/middleware"
	"github.com/mmynk/splitsync/internal/models"
	"github.com/mmynk/splitsync/internal/wire"
)

func (s *Server) handleListGroups(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	s.logger.Debug("ListGroups request received", "user_id", userID)

	groups, err := s.store.ListGroupsByUser(r.Context(), userID)
	if err != nil {
		writeError(w, storageError(err))
		return
	}

	resp := wire.GroupsResponse{Groups: make([]wire.Group, len(groups))}
	for i, g := range groups {
		resp.Groups[i] = wire.FromGroup(*g)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetGroup(w http.ResponseWriter, r *http.Request) {
	groupID := r.PathValue("id")
	if err := s.requireMember(r.Context(), groupID); err != nil {
		writeError(w, err)
		return
	}

	group, err := s.store.GetGroup(r.Context(), groupID)
	if err != nil {
		writeError(w, storageError(err))
		return
	}
	writeJSON(w, http.StatusOK, wire.GroupResponse{Group: wire.FromGroup(*group)})
}

func (s *Server) handleCreateGroup(w http.ResponseWriter, r *http.Request) {
	var req wire.CreateGroupRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	userID := middleware.GetUserID(r.Context())
	s.logger.Info("CreateGroup request received", "user_id", userID, "name", req.Name)

	name := strings.TrimSpace(req.Name)
	if name == "" {
		writeError(w, connect.NewError(connect.CodeInvalidArgument, errors.New("group name is required")))
		return
	}
	currency := strings.ToUpper(strings.TrimSpace(req.Currency))
	if currency == "" {
		currency = "USD"
	}

	group := &models.Group{Name: name, Description: req.Description, Currency: currency}
	if err := s.store.CreateGroup(r.Context(), group, userID); err != nil {
		writeError(w, storageError(err))
		return
	}

	s.logger.Info("Group created", "group_id", group.ID, "user_id", userID)
	writeJSON(w, http.StatusCreated, wire.GroupResponse{Group: wire.FromGroup(*group)})
}

func (s *Server) handleJoinGroup(w http.ResponseWriter, r *http.Request) {
	var req wire.JoinGroupRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	userID := middleware.GetUserID(r.Context())
	s.logger.Info("JoinGroup request received", "user_id", userID)

	if strings.TrimSpace(req.InviteCode) == "" {
		writeError(w, connect.NewError(connect.CodeInvalidArgument, errors.New("invite code is required")))
		return
	}

	group, err := s.store.GetGroupByInviteCode(r.Context(), req.InviteCode)
	if err != nil {
		writeError(w, storageError(err))
		return
	}
	if err := s.store.AddGroupMember(r.Context(), group.ID, userID); err != nil {
		writeError(w, storageError(err))
		return
	}

	group, err = s.store.GetGroup(r.Context(), group.ID)
	if err != nil {
		writeError(w, storageError(err))
		return
	}
	s.logger.Info("User joined group", "group_id", group.ID, "user_id", userID)
	writeJSON(w, http.StatusOK, wire.GroupResponse{Group: wire.FromGroup(*group)})
}

// requireMember fails unless the caller belongs to the group. Unknown groups
// are reported as not found.
func (s *Server) requireMember(ctx context.Context, groupID string) error {
	if _, err := s.store.GetGroup(ctx, groupID); err != nil {
		return storageError(err)
	}
	ok, err := s.store.IsGroupMember(ctx, groupID, middleware.GetUserID(ctx))
	if err != nil {
		return storageError(err)
	}
	if !ok {
		return connect.NewError(connect.CodePermissionDenied, errNotMember)
	}
	return nil
}
