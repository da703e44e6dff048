package service

import (
	"context"
	"errors"
	"math"
	"strings"

	"expense-ledger/internal/models"
	"expense-ledger/internal/storage"
)

// ExpenseService implements the user-scoped expense ledger. Every operation
// takes the authenticated user id resolved by the transport layer; a user id
// supplied by the client is never trusted.
type ExpenseService struct {
	store storage.Store
}

// NewExpenseService creates an ExpenseService.
func NewExpenseService(store storage.Store) *ExpenseService {
	return &ExpenseService{store: store}
}

// List returns every expense owned by userID. An empty ledger yields an
// empty, non-nil slice.
func (s *ExpenseService) List(ctx context.Context, userID int64) ([]models.Expense, error) {
	expenses, err := s.store.ListExpenses(ctx, userID)
	if err != nil {
		return nil, err
	}
	if expenses == nil {
		expenses = []models.Expense{}
	}
	return expenses, nil
}

// Add validates and persists a new expense owned by userID.
func (s *ExpenseService) Add(ctx context.Context, userID int64, description string, amount float64) (*models.Expense, error) {
	if strings.TrimSpace(description) == "" {
		return nil, invalid("description is required")
	}
	if math.IsNaN(amount) || math.IsInf(amount, 0) {
		return nil, invalid("amount must be a number")
	}
	if amount <= 0 {
		return nil, invalid("amount must be greater than zero")
	}
	return s.store.CreateExpense(ctx, userID, description, amount)
}

// Delete removes the expense with expenseID if it is owned by userID. The
// ownership check and the deletion are one atomic statement, and a missing
// row is indistinguishable from one owned by somebody else.
func (s *ExpenseService) Delete(ctx context.Context, userID, expenseID int64) error {
	if err := s.store.DeleteExpense(ctx, userID, expenseID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return ErrExpenseNotFound
		}
		return err
	}
	return nil
}

// Summary returns the total amount and count of the user's expenses.
func (s *ExpenseService) Summary(ctx context.Context, userID int64) (*storage.Summary, error) {
	return s.store.ExpenseSummary(ctx, userID)
}
