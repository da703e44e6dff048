// Package storage defines the persistence boundary of the application.
// Engine-specific adapters live in subpackages; the rest of the code only
// ever sees the Store interface and the sentinel errors below.
package storage

import (
	"context"
	"errors"
	"time"

	"expense-ledger/internal/models"
)

var (
	// ErrNotFound is returned when a requested row does not exist, or when
	// a mutation matched zero rows.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateEmail is returned when the unique constraint on
	// users.email is violated.
	ErrDuplicateEmail = errors.New("email already exists")
)

// Summary aggregates a user's ledger.
type Summary struct {
	Total float64 `json:"total"`
	Count int     `json:"count"`
}

// Store is implemented by each database adapter. Every query is
// parameterized, and every mutation is a single atomic statement. Expense
// reads and deletes always carry the owning user id in the predicate.
type Store interface {
	CreateUser(ctx context.Context, name, email, passwordHash string) (*models.User, error)
	GetUserByID(ctx context.Context, id int64) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)

	CreateExpense(ctx context.Context, userID int64, description string, amount float64) (*models.Expense, error)
	ListExpenses(ctx context.Context, userID int64) ([]models.Expense, error)
	DeleteExpense(ctx context.Context, userID, expenseID int64) error
	ExpenseSummary(ctx context.Context, userID int64) (*Summary, error)

	CreateSession(ctx context.Context, token string, userID int64, expiresAt time.Time) error
	ResolveSession(ctx context.Context, token string) (*models.Session, error)
	RenewSession(ctx context.Context, token string, expiresAt time.Time) error
	DeleteSession(ctx context.Context, token string) error
	DeleteExpiredSessions(ctx context.Context) error

	Close() error
}
