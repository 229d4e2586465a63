package ledger

import (
	"context"
	"fmt"

	"github.com/mmynk/splitsync/internal/calculator"
	"github.com/mmynk/splitsync/internal/models"
)

// AddExpense validates e against the cached group and submits it. The cache
// is not touched: the stored expense arrives as an expense-added event (or
// with the next reload). Validation failures are returned before any call
// is made.
func (s *Store) AddExpense(ctx context.Context, e models.Expense) (models.Expense, error) {
	if e.Amount <= 0 {
		return models.Expense{}, calculator.ErrNonPositiveAmount
	}
	if err := calculator.ValidateSplits(e.Amount, e.Splits); err != nil {
		return models.Expense{}, err
	}

	s.mu.Lock()
	g := s.groupLocked(e.GroupID)
	var group models.Group
	if g != nil {
		group = *g
	}
	s.mu.Unlock()

	if g == nil {
		return models.Expense{}, fmt.Errorf("%w: %s", ErrUnknownGroup, e.GroupID)
	}
	if e.PaidBy != "" && !group.HasMember(e.PaidBy) {
		return models.Expense{}, fmt.Errorf("%w: payer %s", ErrUnknownMember, e.PaidBy)
	}
	for _, sp := range e.Splits {
		if !group.HasMember(sp.MemberID) {
			return models.Expense{}, fmt.Errorf("%w: %s", ErrUnknownMember, sp.MemberID)
		}
	}
	if e.Currency == "" {
		e.Currency = group.Currency
	}

	created, err := s.backend.CreateExpense(ctx, e)
	if err != nil {
		return models.Expense{}, fmt.Errorf("failed to create expense: %w", err)
	}
	s.logger.Info("Expense submitted", "expense_id", created.ID, "group_id", created.GroupID, "amount", created.Amount.String())
	return created, nil
}

// DeleteExpense asks the backend to remove an expense. The cache follows on
// the expense-deleted event.
func (s *Store) DeleteExpense(ctx context.Context, id string) error {
	if err := s.backend.DeleteExpense(ctx, id); err != nil {
		return fmt.Errorf("failed to delete expense: %w", err)
	}
	return nil
}

// AddSettlement submits a payment from one member to another.
func (s *Store) AddSettlement(ctx context.Context, st models.Settlement) (models.Settlement, error) {
	if st.Amount <= 0 {
		return models.Settlement{}, calculator.ErrNonPositiveAmount
	}

	s.mu.Lock()
	g := s.groupLocked(st.GroupID)
	var group models.Group
	if g != nil {
		group = *g
	}
	s.mu.Unlock()

	if g == nil {
		return models.Settlement{}, fmt.Errorf("%w: %s", ErrUnknownGroup, st.GroupID)
	}
	if !group.HasMember(st.To) {
		return models.Settlement{}, fmt.Errorf("%w: %s", ErrUnknownMember, st.To)
	}
	if st.From != "" && !group.HasMember(st.From) {
		return models.Settlement{}, fmt.Errorf("%w: %s", ErrUnknownMember, st.From)
	}
	if st.Currency == "" {
		st.Currency = group.Currency
	}

	created, err := s.backend.CreateSettlement(ctx, st)
	if err != nil {
		return models.Settlement{}, fmt.Errorf("failed to create settlement: %w", err)
	}
	s.logger.Info("Settlement submitted", "settlement_id", created.ID, "group_id", created.GroupID, "amount", created.Amount.String())
	return created, nil
}

// DeleteSettlement asks the backend to remove a settlement.
func (s *Store) DeleteSettlement(ctx context.Context, id string) error {
	if err := s.backend.DeleteSettlement(ctx, id); err != nil {
		return fmt.Errorf("failed to delete settlement: %w", err)
	}
	return nil
}
