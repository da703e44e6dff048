// Package postgres implements storage.Store on top of PostgreSQL via the
// pgx database/sql driver.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"expense-ledger/internal/models"
	"expense-ledger/internal/storage"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
)

// uniqueViolation is the PostgreSQL error code for unique-constraint failures.
const uniqueViolation = "23505"

// Store wraps a sql.DB connection to a PostgreSQL database.
type Store struct {
	conn *sql.DB
}

var _ storage.Store = (*Store)(nil)

// Open connects to the database at databaseURL and runs migrations.
func Open(databaseURL string) (*Store, error) {
	conn, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, err
	}

	if err := conn.Ping(); err != nil {
		return nil, err
	}

	s := &Store{conn: conn}
	if err := s.migrate(); err != nil {
		return nil, err
	}

	return s, nil
}

func (s *Store) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id BIGSERIAL PRIMARY KEY,
			name TEXT NOT NULL,
			email TEXT UNIQUE NOT NULL,
			password_hash TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS expenses (
			id BIGSERIAL PRIMARY KEY,
			description TEXT NOT NULL,
			amount DOUBLE PRECISION NOT NULL,
			user_id BIGINT NOT NULL REFERENCES users(id),
			created_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS sessions (
			token TEXT PRIMARY KEY,
			user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			expires_at TIMESTAMPTZ NOT NULL
		)`,
	}

	for _, m := range migrations {
		if _, err := s.conn.Exec(m); err != nil {
			return err
		}
	}

	return nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.conn.Close()
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

// CreateUser inserts a new user and returns the stored row.
func (s *Store) CreateUser(ctx context.Context, name, email, passwordHash string) (*models.User, error) {
	u := models.User{Name: name, Email: email, PasswordHash: passwordHash}
	err := s.conn.QueryRowContext(ctx,
		"INSERT INTO users (name, email, password_hash) VALUES ($1, $2, $3) RETURNING id, created_at",
		name, email, passwordHash,
	).Scan(&u.ID, &u.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, storage.ErrDuplicateEmail
		}
		return nil, err
	}
	return &u, nil
}

// GetUserByID retrieves a user by id.
func (s *Store) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	row := s.conn.QueryRowContext(ctx,
		"SELECT id, name, email, password_hash, created_at FROM users WHERE id = $1",
		id,
	)
	return scanUser(row)
}

// GetUserByEmail retrieves a user by email. Emails compare case-sensitively,
// exactly as stored.
func (s *Store) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	row := s.conn.QueryRowContext(ctx,
		"SELECT id, name, email, password_hash, created_at FROM users WHERE email = $1",
		email,
	)
	return scanUser(row)
}

func scanUser(row *sql.Row) (*models.User, error) {
	var u models.User
	if err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

// CreateExpense inserts a new expense owned by userID with a server-assigned
// creation timestamp.
func (s *Store) CreateExpense(ctx context.Context, userID int64, description string, amount float64) (*models.Expense, error) {
	e := models.Expense{Description: description, Amount: amount, UserID: userID, CreatedAt: time.Now().UTC()}
	err := s.conn.QueryRowContext(ctx,
		"INSERT INTO expenses (description, amount, user_id, created_at) VALUES ($1, $2, $3, $4) RETURNING id",
		description, amount, userID, e.CreatedAt,
	).Scan(&e.ID)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// ListExpenses returns every expense owned by userID, newest first.
func (s *Store) ListExpenses(ctx context.Context, userID int64) ([]models.Expense, error) {
	rows, err := s.conn.QueryContext(ctx,
		"SELECT id, description, amount, user_id, created_at FROM expenses WHERE user_id = $1 ORDER BY created_at DESC, id DESC",
		userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var expenses []models.Expense
	for rows.Next() {
		var e models.Expense
		if err := rows.Scan(&e.ID, &e.Description, &e.Amount, &e.UserID, &e.CreatedAt); err != nil {
			return nil, err
		}
		expenses = append(expenses, e)
	}

	return expenses, rows.Err()
}

// DeleteExpense removes the expense matching both expenseID and userID in a
// single statement. Zero affected rows reports storage.ErrNotFound.
func (s *Store) DeleteExpense(ctx context.Context, userID, expenseID int64) error {
	result, err := s.conn.ExecContext(ctx,
		"DELETE FROM expenses WHERE id = $1 AND user_id = $2",
		expenseID, userID,
	)
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// ExpenseSummary returns the total amount and row count of a user's ledger.
func (s *Store) ExpenseSummary(ctx context.Context, userID int64) (*storage.Summary, error) {
	var sum storage.Summary
	err := s.conn.QueryRowContext(ctx,
		"SELECT COALESCE(SUM(amount), 0), COUNT(*) FROM expenses WHERE user_id = $1",
		userID,
	).Scan(&sum.Total, &sum.Count)
	if err != nil {
		return nil, err
	}
	return &sum, nil
}

// CreateSession stores a new session token for a user.
func (s *Store) CreateSession(ctx context.Context, token string, userID int64, expiresAt time.Time) error {
	_, err := s.conn.ExecContext(ctx,
		"INSERT INTO sessions (token, user_id, expires_at) VALUES ($1, $2, $3)",
		token, userID, expiresAt.UTC(),
	)
	return err
}

// ResolveSession returns the session for token. Unknown and expired tokens
// both report storage.ErrNotFound.
func (s *Store) ResolveSession(ctx context.Context, token string) (*models.Session, error) {
	row := s.conn.QueryRowContext(ctx,
		"SELECT token, user_id, expires_at FROM sessions WHERE token = $1",
		token,
	)

	var sess models.Session
	if err := row.Scan(&sess.Token, &sess.UserID, &sess.ExpiresAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, err
	}
	if !sess.ExpiresAt.After(time.Now()) {
		return nil, storage.ErrNotFound
	}
	return &sess, nil
}

// RenewSession extends a session's expiry.
func (s *Store) RenewSession(ctx context.Context, token string, expiresAt time.Time) error {
	_, err := s.conn.ExecContext(ctx,
		"UPDATE sessions SET expires_at = $1 WHERE token = $2",
		expiresAt.UTC(), token,
	)
	return err
}

// DeleteSession removes a session by token. Deleting an unknown token is not
// an error.
func (s *Store) DeleteSession(ctx context.Context, token string) error {
	_, err := s.conn.ExecContext(ctx, "DELETE FROM sessions WHERE token = $1", token)
	return err
}

// DeleteExpiredSessions purges every session past its expiry.
func (s *Store) DeleteExpiredSessions(ctx context.Context) error {
	_, err := s.conn.ExecContext(ctx, "DELETE FROM sessions WHERE expires_at <= now()")
	return err
}
