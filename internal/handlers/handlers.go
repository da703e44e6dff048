// Package handlers maps the HTTP surface onto the auth and expense services.
// Success responses are {"success":true} (or a JSON payload), error responses
// are {"error":"<message>"} with the mapped status code. Internal details are
// logged and never reach a response body.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"expense-ledger/internal/service"

	"github.com/go-chi/chi/v5"
)

// Context key type to avoid collisions.
type contextKey string

const (
	// userIDKey is the context key for the authenticated user id.
	userIDKey contextKey = "userID"
	// SessionCookieName is the name of the session cookie.
	SessionCookieName = "session"
)

// Handlers holds dependencies for HTTP handlers.
type Handlers struct {
	auth         *service.AuthService
	expenses     *service.ExpenseService
	secureCookie bool
}

// New creates a new Handlers instance.
func New(auth *service.AuthService, expenses *service.ExpenseService, secureCookie bool) *Handlers {
	return &Handlers{auth: auth, expenses: expenses, secureCookie: secureCookie}
}

// UserIDFromContext retrieves the authenticated user id placed into the
// request context by RequireAuth.
func UserIDFromContext(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(userIDKey).(int64)
	return id, ok
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("encode response: %v", err)
	}
}

func respondSuccess(w http.ResponseWriter, status int) {
	respondJSON(w, status, map[string]bool{"success": true})
}

func respondError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, map[string]string{"error": msg})
}

// respondServiceError translates a service error into a status code and a
// caller-safe message. Anything unrecognized is logged and surfaced as a
// generic 500.
func respondServiceError(w http.ResponseWriter, op string, err error) {
	var verr *service.ValidationError
	switch {
	case errors.As(err, &verr):
		respondError(w, http.StatusBadRequest, verr.Message)
	case errors.Is(err, service.ErrInvalidCredentials):
		respondError(w, http.StatusUnauthorized, service.ErrInvalidCredentials.Error())
	case errors.Is(err, service.ErrNotAuthenticated):
		respondError(w, http.StatusUnauthorized, service.ErrNotAuthenticated.Error())
	case errors.Is(err, service.ErrEmailTaken):
		respondError(w, http.StatusConflict, service.ErrEmailTaken.Error())
	case errors.Is(err, service.ErrExpenseNotFound):
		respondError(w, http.StatusNotFound, service.ErrExpenseNotFound.Error())
	default:
		log.Printf("%s error: %v", op, err)
		respondError(w, http.StatusInternalServerError, "internal server error")
	}
}

func (h *Handlers) setSessionCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(h.auth.SessionDuration().Seconds()),
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *Handlers) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
}

// RequireAuth rejects any request without a valid session and injects the
// bound user id into the request context. Handlers behind it never see or
// trust a client-supplied user id. Sessions renewed by the service get their
// cookie reissued so the browser expiry tracks the server one.
func (h *Handlers) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(SessionCookieName)
		if err != nil || cookie.Value == "" {
			respondError(w, http.StatusUnauthorized, service.ErrNotAuthenticated.Error())
			return
		}

		sess, renewed, err := h.auth.ResolveSession(r.Context(), cookie.Value)
		if err != nil {
			if errors.Is(err, service.ErrNotAuthenticated) {
				h.clearSessionCookie(w)
				respondError(w, http.StatusUnauthorized, service.ErrNotAuthenticated.Error())
				return
			}
			respondServiceError(w, "RequireAuth", err)
			return
		}
		if renewed {
			h.setSessionCookie(w, cookie.Value)
		}

		ctx := context.WithValue(r.Context(), userIDKey, sess.UserID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Register creates an account and logs it in immediately.
func (h *Handlers) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	_, token, err := h.auth.Register(r.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		respondServiceError(w, "Register", err)
		return
	}

	h.setSessionCookie(w, token)
	respondSuccess(w, http.StatusOK)
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login verifies credentials and establishes a session.
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	_, token, err := h.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		respondServiceError(w, "Login", err)
		return
	}

	h.setSessionCookie(w, token)
	respondSuccess(w, http.StatusOK)
}

// Logout destroys the current session. It always succeeds, even with no
// session to destroy.
func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(SessionCookieName); err == nil {
		if err := h.auth.Logout(r.Context(), cookie.Value); err != nil {
			log.Printf("Logout error: %v", err)
		}
	}
	h.clearSessionCookie(w)
	respondSuccess(w, http.StatusOK)
}

// Me returns the authenticated user.
func (h *Handlers) Me(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, service.ErrNotAuthenticated.Error())
		return
	}

	user, err := h.auth.GetUser(r.Context(), userID)
	if err != nil {
		respondServiceError(w, "Me", err)
		return
	}
	respondJSON(w, http.StatusOK, user)
}

// ListExpenses returns the authenticated user's expenses as a JSON array.
func (h *Handlers) ListExpenses(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserIDFromContext(r.Context())
	expenses, err := h.expenses.List(r.Context(), userID)
	if err != nil {
		respondServiceError(w, "ListExpenses", err)
		return
	}
	respondJSON(w, http.StatusOK, expenses)
}

type addExpenseRequest struct {
	Description string      `json:"description"`
	Amount      json.Number `json:"amount"`
}

// AddExpense creates a new expense owned by the authenticated user. The
// amount must decode as a JSON number before the positivity check runs, so a
// non-numeric amount reports a different message than a non-positive one.
func (h *Handlers) AddExpense(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserIDFromContext(r.Context())

	var req addExpenseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) && typeErr.Field == "amount" {
			respondError(w, http.StatusBadRequest, "amount must be a number")
			return
		}
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	amount, err := req.Amount.Float64()
	if err != nil {
		respondError(w, http.StatusBadRequest, "amount must be a number")
		return
	}

	if _, err := h.expenses.Add(r.Context(), userID, req.Description, amount); err != nil {
		respondServiceError(w, "AddExpense", err)
		return
	}
	respondSuccess(w, http.StatusCreated)
}

// DeleteExpense removes one of the authenticated user's expenses. An id that
// exists but belongs to another user is reported exactly like one that does
// not exist at all.
func (h *Handlers) DeleteExpense(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserIDFromContext(r.Context())

	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id < 1 {
		respondError(w, http.StatusBadRequest, "invalid id")
		return
	}

	if err := h.expenses.Delete(r.Context(), userID, id); err != nil {
		respondServiceError(w, "DeleteExpense", err)
		return
	}
	respondSuccess(w, http.StatusOK)
}

// ExpenseSummary returns the total and count of the authenticated user's
// expenses.
func (h *Handlers) ExpenseSummary(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserIDFromContext(r.Context())
	sum, err := h.expenses.Summary(r.Context(), userID)
	if err != nil {
		respondServiceError(w, "ExpenseSummary", err)
		return
	}
	respondJSON(w, http.StatusOK, sum)
}
