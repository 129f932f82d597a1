package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/axio-app/axio-be/internal/auth"
	"github.com/axio-app/axio-be/internal/models"
	"github.com/axio-app/axio-be/internal/store"
)

var (
	// ErrEmailTaken is returned by Register when the email is already in use.
	ErrEmailTaken = errors.New("a user with this email already exists")
	// ErrInvalidCredentials is returned by Authenticate for both an unknown
	// email and a wrong password, so callers cannot tell the two apart.
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// UserService provides registration, authentication and profile retrieval on
// top of the user store, password hasher and token service.
type UserService struct {
	users  store.UserStore
	hasher *auth.PasswordHasher
	tokens *auth.TokenService
}

// NewUserService creates a new UserService.
func NewUserService(users store.UserStore, hasher *auth.PasswordHasher, tokens *auth.TokenService) *UserService {
	return &UserService{users: users, hasher: hasher, tokens: tokens}
}

// NormalizeEmail lowercases and trims an email address so lookups and the
// uniqueness constraint are case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register creates a new account and returns the user together with a fresh
// bearer token. The pre-check on email is only a fast path: a concurrent
// duplicate that slips past it is caught by the store's uniqueness
// constraint.
func (s *UserService) Register(ctx context.Context, email, password string) (models.User, string, error) {
	email = NormalizeEmail(email)

	_, err := s.users.ByEmail(ctx, email)
	if err == nil {
		return models.User{}, "", ErrEmailTaken
	}
	if !errors.Is(err, store.ErrNotFound) {
		return models.User{}, "", fmt.Errorf("look up email: %w", err)
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return models.User{}, "", fmt.Errorf("hash password: %w", err)
	}

	user, err := s.users.Create(ctx, email, hash)
	if err != nil {
		if errors.Is(err, store.ErrDuplicateEmail) {
			return models.User{}, "", ErrEmailTaken
		}
		return models.User{}, "", fmt.Errorf("create user: %w", err)
	}

	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		return models.User{}, "", fmt.Errorf("issue token: %w", err)
	}

	user.PasswordHash = ""
	return user, token, nil
}

// Authenticate verifies a user's credentials and returns the user together
// with a fresh bearer token.
func (s *UserService) Authenticate(ctx context.Context, email, password string) (models.User, string, error) {
	email = NormalizeEmail(email)

	user, err := s.users.ByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return models.User{}, "", ErrInvalidCredentials
		}
		return models.User{}, "", fmt.Errorf("look up email: %w", err)
	}

	ok, err := s.hasher.Verify(password, user.PasswordHash)
	if err != nil {
		return models.User{}, "", fmt.Errorf("verify password: %w", err)
	}
	if !ok {
		return models.User{}, "", ErrInvalidCredentials
	}

	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		return models.User{}, "", fmt.Errorf("issue token: %w", err)
	}

	user.PasswordHash = ""
	return user, token, nil
}

// Profile retrieves the profile of the user with the given ID.
func (s *UserService) Profile(ctx context.Context, id string) (models.User, error) {
	return s.users.ByID(ctx, id)
}
