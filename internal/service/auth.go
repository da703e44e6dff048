package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"expense-ledger/internal/auth"
	"expense-ledger/internal/models"
	"expense-ledger/internal/storage"
)

// AuthService handles registration, login, logout and session resolution.
type AuthService struct {
	store           storage.Store
	sessionDuration time.Duration
}

// NewAuthService creates an AuthService. sessionDuration controls how long
// issued sessions live.
func NewAuthService(store storage.Store, sessionDuration time.Duration) *AuthService {
	return &AuthService{store: store, sessionDuration: sessionDuration}
}

// SessionDuration returns the configured session lifetime.
func (s *AuthService) SessionDuration() time.Duration {
	return s.sessionDuration
}

// Register creates a new user and logs them in, returning the user and a
// fresh session token. The raw password is hashed immediately and never
// stored or logged.
func (s *AuthService) Register(ctx context.Context, name, email, password string) (*models.User, string, error) {
	name = strings.TrimSpace(name)
	email = strings.TrimSpace(email)
	switch {
	case name == "":
		return nil, "", invalid("name is required")
	case email == "":
		return nil, "", invalid("email is required")
	case password == "":
		return nil, "", invalid("password is required")
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, "", fmt.Errorf("hash password: %w", err)
	}

	user, err := s.store.CreateUser(ctx, name, email, hash)
	if err != nil {
		if errors.Is(err, storage.ErrDuplicateEmail) {
			return nil, "", ErrEmailTaken
		}
		return nil, "", fmt.Errorf("create user: %w", err)
	}

	token, err := s.createSession(ctx, user.ID)
	if err != nil {
		return nil, "", err
	}
	return user, token, nil
}

// Login verifies credentials and returns the user and a fresh session token.
// Unknown email and wrong password both fail with ErrInvalidCredentials.
func (s *AuthService) Login(ctx context.Context, email, password string) (*models.User, string, error) {
	email = strings.TrimSpace(email)
	switch {
	case email == "":
		return nil, "", invalid("email is required")
	case password == "":
		return nil, "", invalid("password is required")
	}

	user, err := s.store.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, "", ErrInvalidCredentials
		}
		return nil, "", fmt.Errorf("look up user: %w", err)
	}

	if !auth.CheckPassword(password, user.PasswordHash) {
		return nil, "", ErrInvalidCredentials
	}

	token, err := s.createSession(ctx, user.ID)
	if err != nil {
		return nil, "", err
	}
	return user, token, nil
}

// Logout destroys the session for token. It is idempotent: an empty or
// unknown token is not an error.
func (s *AuthService) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	return s.store.DeleteSession(ctx, token)
}

// ResolveSession validates a session token and returns the bound session.
// Sessions past the halfway point of their lifetime are renewed; renewed
// reports whether that happened so the transport can reissue its cookie.
// Absent, unknown and expired tokens all fail with ErrNotAuthenticated.
func (s *AuthService) ResolveSession(ctx context.Context, token string) (sess *models.Session, renewed bool, err error) {
	if token == "" {
		return nil, false, ErrNotAuthenticated
	}

	sess, err = s.store.ResolveSession(ctx, token)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, false, ErrNotAuthenticated
		}
		return nil, false, fmt.Errorf("resolve session: %w", err)
	}

	if time.Until(sess.ExpiresAt) < s.sessionDuration/2 {
		newExpiry := time.Now().Add(s.sessionDuration)
		// A failed renewal is not fatal; the current session is still valid.
		if err := s.store.RenewSession(ctx, token, newExpiry); err == nil {
			sess.ExpiresAt = newExpiry
			renewed = true
		}
	}

	return sess, renewed, nil
}

// GetUser returns the user with the given id.
func (s *AuthService) GetUser(ctx context.Context, id int64) (*models.User, error) {
	return s.store.GetUserByID(ctx, id)
}

func (s *AuthService) createSession(ctx context.Context, userID int64) (string, error) {
	token, err := auth.GenerateSessionToken()
	if err != nil {
		return "", fmt.Errorf("generate session token: %w", err)
	}
	if err := s.store.CreateSession(ctx, token, userID, time.Now().Add(s.sessionDuration)); err != nil {
		return "", fmt.Errorf("create session: %w", err)
	}
	return token, nil
}
