package service_test

import (
	"context"
	"testing"
	"time"

	"expense-ledger/internal/service"
	"expense-ledger/internal/storage/sqlite"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAuthService(t *testing.T, sessionDuration time.Duration) *service.AuthService {
	t.Helper()
	store, err := sqlite.Open(":memory:")
	require.NoError(t, err, "failed to create test database")
	t.Cleanup(func() { store.Close() })
	return service.NewAuthService(store, sessionDuration)
}

func TestRegisterAndLogin(t *testing.T) {
	svc := newAuthService(t, time.Hour)
	ctx := context.Background()

	user, token, err := svc.Register(ctx, "Alice", "alice@example.com", "secret123")
	require.NoError(t, err)
	assert.Equal(t, "Alice", user.Name)
	assert.NotEmpty(t, token, "registration implies login")
	assert.NotEqual(t, "secret123", user.PasswordHash, "raw password must never be stored")

	// The registration session is immediately usable
	sess, _, err := svc.ResolveSession(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, sess.UserID)

	// And the same credentials log in again
	loggedIn, loginToken, err := svc.Login(ctx, "alice@example.com", "secret123")
	require.NoError(t, err)
	assert.Equal(t, user.ID, loggedIn.ID)
	assert.NotEqual(t, token, loginToken, "each login issues a fresh token")
}

func TestRegisterValidation(t *testing.T) {
	svc := newAuthService(t, time.Hour)
	ctx := context.Background()

	tests := []struct {
		name     string
		userName string
		email    string
		password string
	}{
		{"empty name", "", "a@example.com", "pw"},
		{"blank name", "   ", "a@example.com", "pw"},
		{"empty email", "Alice", "", "pw"},
		{"empty password", "Alice", "a@example.com", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := svc.Register(ctx, tt.userName, tt.email, tt.password)
			var verr *service.ValidationError
			assert.ErrorAs(t, err, &verr)
		})
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	svc := newAuthService(t, time.Hour)
	ctx := context.Background()

	_, firstToken, err := svc.Register(ctx, "Alice", "alice@example.com", "secret123")
	require.NoError(t, err)

	_, _, err = svc.Register(ctx, "Impostor", "alice@example.com", "other")
	assert.ErrorIs(t, err, service.ErrEmailTaken)

	// The failed registration must not disturb the first session
	_, _, err = svc.ResolveSession(ctx, firstToken)
	assert.NoError(t, err)
}

func TestLoginGenericFailure(t *testing.T) {
	svc := newAuthService(t, time.Hour)
	ctx := context.Background()

	_, _, err := svc.Register(ctx, "Alice", "alice@example.com", "secret123")
	require.NoError(t, err)

	_, _, wrongPassword := svc.Login(ctx, "alice@example.com", "not-the-password")
	_, _, unknownEmail := svc.Login(ctx, "nobody@example.com", "secret123")

	// Both failure modes must be indistinguishable to the caller
	assert.ErrorIs(t, wrongPassword, service.ErrInvalidCredentials)
	assert.ErrorIs(t, unknownEmail, service.ErrInvalidCredentials)
	assert.Equal(t, wrongPassword.Error(), unknownEmail.Error())
}

func TestLoginValidation(t *testing.T) {
	svc := newAuthService(t, time.Hour)
	ctx := context.Background()

	_, _, err := svc.Login(ctx, "", "pw")
	var verr *service.ValidationError
	assert.ErrorAs(t, err, &verr)

	_, _, err = svc.Login(ctx, "a@example.com", "")
	assert.ErrorAs(t, err, &verr)
}

func TestLogoutIdempotent(t *testing.T) {
	svc := newAuthService(t, time.Hour)
	ctx := context.Background()

	_, token, err := svc.Register(ctx, "Alice", "alice@example.com", "secret123")
	require.NoError(t, err)

	require.NoError(t, svc.Logout(ctx, token))

	_, _, err = svc.ResolveSession(ctx, token)
	assert.ErrorIs(t, err, service.ErrNotAuthenticated, "a destroyed session must never authorize again")

	// Logging out again, or with no token at all, still succeeds
	assert.NoError(t, svc.Logout(ctx, token))
	assert.NoError(t, svc.Logout(ctx, ""))
}

func TestResolveSessionUnknown(t *testing.T) {
	svc := newAuthService(t, time.Hour)
	ctx := context.Background()

	_, _, err := svc.ResolveSession(ctx, "")
	assert.ErrorIs(t, err, service.ErrNotAuthenticated)

	_, _, err = svc.ResolveSession(ctx, "bogus-token")
	assert.ErrorIs(t, err, service.ErrNotAuthenticated)
}

func TestResolveSessionRenewal(t *testing.T) {
	svc := newAuthService(t, 300*time.Millisecond)
	ctx := context.Background()

	_, token, err := svc.Register(ctx, "Alice", "alice@example.com", "secret123")
	require.NoError(t, err)

	// Fresh session, still in the first half of its lifetime
	first, renewed, err := svc.ResolveSession(ctx, token)
	require.NoError(t, err)
	assert.False(t, renewed)

	// Past the halfway point the session gets a new expiry
	time.Sleep(200 * time.Millisecond)
	second, renewed, err := svc.ResolveSession(ctx, token)
	require.NoError(t, err)
	assert.True(t, renewed)
	assert.True(t, second.ExpiresAt.After(first.ExpiresAt))
}

func TestResolveSessionExpired(t *testing.T) {
	svc := newAuthService(t, 50*time.Millisecond)
	ctx := context.Background()

	_, token, err := svc.Register(ctx, "Alice", "alice@example.com", "secret123")
	require.NoError(t, err)

	time.Sleep(80 * time.Millisecond)

	_, _, err = svc.ResolveSession(ctx, token)
	assert.ErrorIs(t, err, service.ErrNotAuthenticated)
}
