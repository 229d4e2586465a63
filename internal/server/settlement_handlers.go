package server

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"connectrpc.com/connect"

	"github.com/mmynk/splitsync/internal/calculator"
	"github.com/mmynk/splitsync/internal/channel"
	"github.com/mmynk/splitsync/internal/middleware"
	"github.com/mmynk/splitsync/internal/models"
	"github.com/mmynk/splitsync/internal/wire"
)

func (s *Server) handleCreateSettlement(w http.ResponseWriter, r *http.Request) {
	var req wire.CreateSettlementRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)
	s.logger.Info("CreateSettlement request received", "user_id", userID, "group_id", req.GroupID)

	if err := s.requireMember(ctx, req.GroupID); err != nil {
		writeError(w, err)
		return
	}
	group, err := s.store.GetGroup(ctx, req.GroupID)
	if err != nil {
		writeError(w, storageError(err))
		return
	}

	settlement, err := buildSettlement(req, group, userID)
	if err != nil {
		writeError(w, connect.NewError(connect.CodeInvalidArgument, err))
		return
	}
	if err := s.store.CreateSettlement(ctx, &settlement); err != nil {
		writeError(w, storageError(err))
		return
	}

	s.logger.Info("Settlement created", "settlement_id", settlement.ID, "group_id", settlement.GroupID, "amount", settlement.Amount.String())
	s.publish(ctx, GroupRoom(settlement.GroupID), channel.SettlementAdded{Settlement: settlement})
	writeJSON(w, http.StatusCreated, wire.SettlementResponse{Settlement: wire.FromSettlement(settlement)})
}

// buildSettlement validates a create request. The payer defaults to the caller.
func buildSettlement(req wire.CreateSettlementRequest, group *models.Group, userID string) (models.Settlement, error) {
	amount := req.Amount.Amount()
	if amount <= 0 {
		return models.Settlement{}, calculator.ErrNonPositiveAmount
	}
	from := req.FromUser
	if from == "" {
		from = userID
	}
	if req.ToUser == "" {
		return models.Settlement{}, errors.New("to_user is required")
	}
	if from == req.ToUser {
		return models.Settlement{}, errors.New("cannot settle with yourself")
	}
	for _, id := range []string{from, req.ToUser} {
		if !group.HasMember(id) {
			return models.Settlement{}, fmt.Errorf("%s is %w", id, errNotMember)
		}
	}

	currency := strings.ToUpper(strings.TrimSpace(req.Currency))
	if currency == "" {
		currency = group.Currency
	}
	return models.Settlement{
		GroupID:  group.ID,
		From:     from,
		To:       req.ToUser,
		Amount:   amount,
		Currency: currency,
		Date:     req.Date,
		Notes:    req.Notes,
	}, nil
}

func (s *Server) handleListSettlements(w http.ResponseWriter, r *http.Request) {
	groupID := r.PathValue("groupId")
	if err := s.requireMember(r.Context(), groupID); err != nil {
		writeError(w, err)
		return
	}

	settlements, err := s.store.ListSettlementsByGroup(r.Context(), groupID)
	if err != nil {
		writeError(w, storageError(err))
		return
	}
	resp := wire.SettlementsResponse{Settlements: make([]wire.Settlement, len(settlements))}
	for i, st := range settlements {
		resp.Settlements[i] = wire.FromSettlement(*st)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleDeleteSettlement(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	settlementID := r.PathValue("id")
	s.logger.Info("DeleteSettlement request received", "user_id", middleware.GetUserID(ctx), "settlement_id", settlementID)

	settlement, err := s.store.GetSettlement(ctx, settlementID)
	if err != nil {
		writeError(w, storageError(err))
		return
	}
	if err := s.requireMember(ctx, settlement.GroupID); err != nil {
		writeError(w, err)
		return
	}
	if err := s.store.DeleteSettlement(ctx, settlementID); err != nil {
		writeError(w, storageError(err))
		return
	}

	s.publish(ctx, GroupRoom(settlement.GroupID), channel.SettlementDeleted{ID: settlement.ID, GroupID: settlement.GroupID})
	writeJSON(w, http.StatusOK, wire.MessageResponse{Message: "Settlement deleted"})
}
