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

func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	var req wire.CreateExpenseRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)
	s.logger.Info("CreateExpense request received", "user_id", userID, "group_id", req.GroupID)

	if err := s.requireMember(ctx, req.GroupID); err != nil {
		writeError(w, err)
		return
	}
	group, err := s.store.GetGroup(ctx, req.GroupID)
	if err != nil {
		writeError(w, storageError(err))
		return
	}

	expense, err := buildExpense(req, group, userID)
	if err != nil {
		writeError(w, connect.NewError(connect.CodeInvalidArgument, err))
		return
	}

	if err := s.store.CreateExpense(ctx, &expense); err != nil {
		writeError(w, storageError(err))
		return
	}

	s.logger.Info("Expense created", "expense_id", expense.ID, "group_id", expense.GroupID, "amount", expense.Amount.String())
	s.publish(ctx, GroupRoom(expense.GroupID), channel.ExpenseAdded{Expense: expense})
	writeJSON(w, http.StatusCreated, wire.ExpenseResponse{Expense: wire.FromExpense(expense)})
}

// buildExpense validates a create request against the group. A request
// without splits is divided equally among all members.
func buildExpense(req wire.CreateExpenseRequest, group *models.Group, userID string) (models.Expense, error) {
	amount := req.Amount.Amount()
	if amount <= 0 {
		return models.Expense{}, calculator.ErrNonPositiveAmount
	}
	if strings.TrimSpace(req.Description) == "" {
		return models.Expense{}, errors.New("description is required")
	}
	kind, err := models.ParseSplitKind(req.SplitType)
	if err != nil {
		return models.Expense{}, err
	}

	paidBy := req.PaidBy
	if paidBy == "" {
		paidBy = userID
	}
	if !group.HasMember(paidBy) {
		return models.Expense{}, fmt.Errorf("payer %s is %w", paidBy, errNotMember)
	}

	var splits []models.Split
	if len(req.Splits) == 0 {
		if kind != models.SplitEqual {
			return models.Expense{}, calculator.ErrNoParticipants
		}
		ids := make([]string, len(group.Members))
		for i, m := range group.Members {
			ids[i] = m.ID
		}
		splits, err = calculator.CalculateSplits(amount, models.SplitEqual, ids, nil)
		if err != nil {
			return models.Expense{}, err
		}
	} else {
		splits = make([]models.Split, len(req.Splits))
		for i, sp := range req.Splits {
			if !group.HasMember(sp.UserID) {
				return models.Expense{}, fmt.Errorf("split member %s is %w", sp.UserID, errNotMember)
			}
			splits[i] = models.Split{MemberID: sp.UserID, Amount: sp.Amount.Amount(), Percentage: sp.Percentage}
		}
		if err := calculator.ValidateSplits(amount, splits); err != nil {
			return models.Expense{}, err
		}
	}

	currency := strings.ToUpper(strings.TrimSpace(req.Currency))
	if currency == "" {
		currency = group.Currency
	}
	category := models.Category(req.Category)
	if category == "" {
		category = models.CategoryOther
	}

	return models.Expense{
		GroupID:     group.ID,
		Description: strings.TrimSpace(req.Description),
		Amount:      amount,
		Currency:    currency,
		PaidBy:      paidBy,
		SplitKind:   kind,
		Splits:      splits,
		Category:    category,
		Date:        req.Date,
		Notes:       req.Notes,
	}, nil
}

func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	groupID := r.PathValue("groupId")
	if err := s.requireMember(r.Context(), groupID); err != nil {
		writeError(w, err)
		return
	}

	expenses, err := s.store.ListExpensesByGroup(r.Context(), groupID)
	if err != nil {
		writeError(w, storageError(err))
		return
	}
	resp := wire.ExpensesResponse{Expenses: make([]wire.Expense, len(expenses))}
	for i, e := range expenses {
		resp.Expenses[i] = wire.FromExpense(*e)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	expenseID := r.PathValue("id")
	s.logger.Info("DeleteExpense request received", "user_id", middleware.GetUserID(ctx), "expense_id", expenseID)

	expense, err := s.store.GetExpense(ctx, expenseID)
	if err != nil {
		writeError(w, storageError(err))
		return
	}
	if err := s.requireMember(ctx, expense.GroupID); err != nil {
		writeError(w, err)
		return
	}
	if err := s.store.DeleteExpense(ctx, expenseID); err != nil {
		writeError(w, storageError(err))
		return
	}

	s.publish(ctx, GroupRoom(expense.GroupID), channel.ExpenseDeleted{ID: expense.ID, GroupID: expense.GroupID})
	writeJSON(w, http.StatusOK, wire.MessageResponse{Message: "Expense deleted"})
}
