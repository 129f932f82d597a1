package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/axio-app/axio-be/internal/models"
	"github.com/google/uuid"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

var (
	// ErrNotFound is returned when no user matches the lookup.
	ErrNotFound = errors.New("user not found")
	// ErrDuplicateEmail is returned when a create violates the email
	// uniqueness constraint.
	ErrDuplicateEmail = errors.New("email already registered")
)

// UserStore defines the persistence interface for user accounts.
type UserStore interface {
	ByEmail(ctx context.Context, email string) (models.User, error)
	ByID(ctx context.Context, id string) (models.User, error)
	Create(ctx context.Context, email, passwordHash string) (models.User, error)
}

// SQLiteUserStore implements UserStore on top of a SQLite database.
type SQLiteUserStore struct {
	db *sql.DB
}

// NewSQLiteUserStore creates a new SQLiteUserStore.
func NewSQLiteUserStore(db *sql.DB) *SQLiteUserStore {
	return &SQLiteUserStore{db: db}
}

// ByEmail retrieves a user by email, including the password hash so the
// caller can verify credentials. The hash must not travel past the service
// layer.
func (s *SQLiteUserStore) ByEmail(ctx context.Context, email string) (models.User, error) {
	var user models.User
	row := s.db.QueryRowContext(ctx,
		"SELECT id, email, password_hash, created_at FROM users WHERE email = ?", email)
	err := row.Scan(&user.ID, &user.Email, &user.PasswordHash, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.User{}, ErrNotFound
		}
		return models.User{}, err
	}
	return user, nil
}

// ByID retrieves a user by ID without the password hash.
func (s *SQLiteUserStore) ByID(ctx context.Context, id string) (models.User, error) {
	var user models.User
	row := s.db.QueryRowContext(ctx,
		"SELECT id, email, created_at FROM users WHERE id = ?", id)
	err := row.Scan(&user.ID, &user.Email, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.User{}, ErrNotFound
		}
		return models.User{}, err
	}
	return user, nil
}

// Create inserts a new user record. A unique-constraint violation on email is
// mapped to ErrDuplicateEmail, which is what makes a lost race on the
// service's pre-check safe.
func (s *SQLiteUserStore) Create(ctx context.Context, email, passwordHash string) (models.User, error) {
	user := models.User{
		ID:           uuid.New().String(),
		Email:        email,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now().UTC(),
	}

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO users(id, email, password_hash, created_at) VALUES(?, ?, ?, ?)",
		user.ID, user.Email, user.PasswordHash, user.CreatedAt)
	if err != nil {
		var serr *sqlite.Error
		if errors.As(err, &serr) && serr.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE {
			return models.User{}, ErrDuplicateEmail
		}
		return models.User{}, err
	}
	return user, nil
}
