package service_test

import (
	"context"
	"math"
	"testing"
	"time"

	"expense-ledger/internal/models"
	"expense-ledger/internal/service"
	"expense-ledger/internal/storage/sqlite"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type expenseFixture struct {
	expenses *service.ExpenseService
	alice    *models.User
	bob      *models.User
}

func newExpenseFixture(t *testing.T) *expenseFixture {
	t.Helper()
	store, err := sqlite.Open(":memory:")
	require.NoError(t, err, "failed to create test database")
	t.Cleanup(func() { store.Close() })

	ctx := context.Background()
	alice, err := store.CreateUser(ctx, "Alice", "alice@example.com", "hash")
	require.NoError(t, err)
	bob, err := store.CreateUser(ctx, "Bob", "bob@example.com", "hash")
	require.NoError(t, err)

	return &expenseFixture{
		expenses: service.NewExpenseService(store),
		alice:    alice,
		bob:      bob,
	}
}

func TestAddValidation(t *testing.T) {
	fx := newExpenseFixture(t)
	ctx := context.Background()

	tests := []struct {
		name        string
		description string
		amount      float64
		wantMsg     string
	}{
		{"empty description", "", 10, "description is required"},
		{"blank description", "   ", 10, "description is required"},
		{"zero amount", "Lunch", 0, "amount must be greater than zero"},
		{"negative amount", "Lunch", -5, "amount must be greater than zero"},
		{"NaN amount", "Lunch", math.NaN(), "amount must be a number"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := fx.expenses.Add(ctx, fx.alice.ID, tt.description, tt.amount)
			var verr *service.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.wantMsg, verr.Message)

			// Validation failures never reach persistence
			expenses, err := fx.expenses.List(ctx, fx.alice.ID)
			require.NoError(t, err)
			assert.Empty(t, expenses)
		})
	}
}

func TestAddAndList(t *testing.T) {
	fx := newExpenseFixture(t)
	ctx := context.Background()

	created, err := fx.expenses.Add(ctx, fx.alice.ID, "Lunch", 25.50)
	require.NoError(t, err)
	assert.NotZero(t, created.ID)
	assert.WithinDuration(t, time.Now(), created.CreatedAt, 5*time.Second)

	expenses, err := fx.expenses.List(ctx, fx.alice.ID)
	require.NoError(t, err)
	require.Len(t, expenses, 1)
	assert.Equal(t, "Lunch", expenses[0].Description)
	assert.Equal(t, 25.50, expenses[0].Amount)
	assert.Equal(t, fx.alice.ID, expenses[0].UserID)
}

func TestListEmptyIsNotNil(t *testing.T) {
	fx := newExpenseFixture(t)

	expenses, err := fx.expenses.List(context.Background(), fx.alice.ID)
	require.NoError(t, err)
	assert.NotNil(t, expenses, "an empty ledger is a valid, non-error result")
	assert.Empty(t, expenses)
}

func TestListIsolation(t *testing.T) {
	fx := newExpenseFixture(t)
	ctx := context.Background()

	_, err := fx.expenses.Add(ctx, fx.alice.ID, "Groceries", 42)
	require.NoError(t, err)
	_, err = fx.expenses.Add(ctx, fx.bob.ID, "Cinema", 15)
	require.NoError(t, err)

	aliceExpenses, err := fx.expenses.List(ctx, fx.alice.ID)
	require.NoError(t, err)
	require.Len(t, aliceExpenses, 1)
	assert.Equal(t, "Groceries", aliceExpenses[0].Description)

	bobExpenses, err := fx.expenses.List(ctx, fx.bob.ID)
	require.NoError(t, err)
	require.Len(t, bobExpenses, 1)
	assert.Equal(t, "Cinema", bobExpenses[0].Description)
}

func TestDelete(t *testing.T) {
	fx := newExpenseFixture(t)
	ctx := context.Background()

	created, err := fx.expenses.Add(ctx, fx.alice.ID, "Lunch", 25.50)
	require.NoError(t, err)

	require.NoError(t, fx.expenses.Delete(ctx, fx.alice.ID, created.ID))

	expenses, err := fx.expenses.List(ctx, fx.alice.ID)
	require.NoError(t, err)
	assert.Empty(t, expenses)

	err = fx.expenses.Delete(ctx, fx.alice.ID, created.ID)
	assert.ErrorIs(t, err, service.ErrExpenseNotFound)
}

func TestDeleteOtherUsersExpense(t *testing.T) {
	fx := newExpenseFixture(t)
	ctx := context.Background()

	created, err := fx.expenses.Add(ctx, fx.alice.ID, "Lunch", 25.50)
	require.NoError(t, err)

	notMine := fx.expenses.Delete(ctx, fx.bob.ID, created.ID)
	missing := fx.expenses.Delete(ctx, fx.bob.ID, 999999)

	// "not yours" and "does not exist" must be indistinguishable
	assert.ErrorIs(t, notMine, service.ErrExpenseNotFound)
	assert.ErrorIs(t, missing, service.ErrExpenseNotFound)

	// Alice still owns her expense
	expenses, err := fx.expenses.List(ctx, fx.alice.ID)
	require.NoError(t, err)
	assert.Len(t, expenses, 1)
}

func TestSummary(t *testing.T) {
	fx := newExpenseFixture(t)
	ctx := context.Background()

	for _, amount := range []float64{10, 20, 12.50} {
		_, err := fx.expenses.Add(ctx, fx.alice.ID, "Item", amount)
		require.NoError(t, err)
	}
	_, err := fx.expenses.Add(ctx, fx.bob.ID, "Cinema", 100)
	require.NoError(t, err)

	sum, err := fx.expenses.Summary(ctx, fx.alice.ID)
	require.NoError(t, err)
	assert.InDelta(t, 42.50, sum.Total, 0.0001)
	assert.Equal(t, 3, sum.Count)
}
