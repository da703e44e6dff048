// Package sqlite implements storage.Store on top of modernc.org/sqlite.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"expense-ledger/internal/models"
	"expense-ledger/internal/storage"

	sqlite3 "modernc.org/sqlite"
	sqlitelib "modernc.org/sqlite/lib"
)

// Store wraps a sql.DB connection to a sqlite database.
type Store struct {
	conn *sql.DB
}

var _ storage.Store = (*Store)(nil)

// Open opens (or creates) a sqlite database and runs migrations.
func Open(path string) (*Store, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	// An in-memory sqlite database exists per connection, so the pool must
	// not grow past one.
	if path == ":memory:" {
		conn.SetMaxOpenConns(1)
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
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL,
			email TEXT UNIQUE NOT NULL,
			password_hash TEXT NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS expenses (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			description TEXT NOT NULL,
			amount REAL NOT NULL,
			user_id INTEGER NOT NULL,
			created_at DATETIME NOT NULL,
			FOREIGN KEY (user_id) REFERENCES users(id)
		)`,
		`CREATE TABLE IF NOT EXISTS sessions (
			token TEXT PRIMARY KEY,
			user_id INTEGER NOT NULL,
			expires_at DATETIME NOT NULL,
			FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
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
	var serr *sqlite3.Error
	return errors.As(err, &serr) && serr.Code() == sqlitelib.SQLITE_CONSTRAINT_UNIQUE
}

// CreateUser inserts a new user and returns the stored row.
func (s *Store) CreateUser(ctx context.Context, name, email, passwordHash string) (*models.User, error) {
	result, err := s.conn.ExecContext(ctx,
		"INSERT INTO users (name, email, password_hash) VALUES (?, ?, ?)",
		name, email, passwordHash,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, storage.ErrDuplicateEmail
		}
		return nil, err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, err
	}

	return s.GetUserByID(ctx, id)
}

// GetUserByID retrieves a user by id.
func (s *Store) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	row := s.conn.QueryRowContext(ctx,
		"SELECT id, name, email, password_hash, created_at FROM users WHERE id = ?",
		id,
	)
	return scanUser(row)
}

// GetUserByEmail retrieves a user by email. Emails compare case-sensitively,
// exactly as stored.
func (s *Store) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	row := s.conn.QueryRowContext(ctx,
		"SELECT id, name, email, password_hash, created_at FROM users WHERE email = ?",
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
	now := time.Now().UTC()
	result, err := s.conn.ExecContext(ctx,
		"INSERT INTO expenses (description, amount, user_id, created_at) VALUES (?, ?, ?, ?)",
		description, amount, userID, now,
	)
	if err != nil {
		return nil, err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, err
	}

	return &models.Expense{
		ID:          id,
		Description: description,
		Amount:      amount,
		UserID:      userID,
		CreatedAt:   now,
	}, nil
}

// ListExpenses returns every expense owned by userID, newest first.
func (s *Store) ListExpenses(ctx context.Context, userID int64) ([]models.Expense, error) {
	rows, err := s.conn.QueryContext(ctx,
		"SELECT id, description, amount, user_id, created_at FROM expenses WHERE user_id = ? ORDER BY created_at DESC, id DESC",
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
// single statement. Zero affected rows means the expense does not exist or
// belongs to another user; both report storage.ErrNotFound.
func (s *Store) DeleteExpense(ctx context.Context, userID, expenseID int64) error {
	result, err := s.conn.ExecContext(ctx,
		"DELETE FROM expenses WHERE id = ? AND user_id = ?",
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
		"SELECT COALESCE(SUM(amount), 0), COUNT(*) FROM expenses WHERE user_id = ?",
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
		"INSERT INTO sessions (token, user_id, expires_at) VALUES (?, ?, ?)",
		token, userID, expiresAt.UTC(),
	)
	return err
}

// ResolveSession returns the session for token. Unknown and expired tokens
// both report storage.ErrNotFound.
func (s *Store) ResolveSession(ctx context.Context, token string) (*models.Session, error) {
	row := s.conn.QueryRowContext(ctx,
		"SELECT token, user_id, expires_at FROM sessions WHERE token = ?",
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
		"UPDATE sessions SET expires_at = ? WHERE token = ?",
		expiresAt.UTC(), token,
	)
	return err
}

// DeleteSession removes a session by token. Deleting an unknown token is not
// an error.
func (s *Store) DeleteSession(ctx context.Context, token string) error {
	_, err := s.conn.ExecContext(ctx, "DELETE FROM sessions WHERE token = ?", token)
	return err
}

// DeleteExpiredSessions purges every session past its expiry.
func (s *Store) DeleteExpiredSessions(ctx context.Context) error {
	_, err := s.conn.ExecContext(ctx, "DELETE FROM sessions WHERE expires_at <= ?", time.Now().UTC())
	return err
}
