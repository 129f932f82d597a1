package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/axio-app/axio-be/internal/models"
	"github.com/axio-app/axio-be/internal/store"
	"github.com/stretchr/testify/require"
)

// stubStore implements store.UserStore for middleware tests.
type stubStore struct {
	users map[string]models.User
	err   error
}

func (s *stubStore) ByEmail(_ context.Context, email string) (models.User, error) {
	for _, u := range s.users {
		if u.Email == email {
			return u, nil
		}
	}
	return models.User{}, store.ErrNotFound
}

func (s *stubStore) ByID(_ context.Context, id string) (models.User, error) {
	if s.err != nil {
		return models.User{}, s.err
	}
	u, ok := s.users[id]
	if !ok {
		return models.User{}, store.ErrNotFound
	}
	return u, nil
}

func (s *stubStore) Create(_ context.Context, email, passwordHash string) (models.User, error) {
	panic("not used in middleware tests")
}

type envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func runProtected(t *testing.T, a *Authenticator, authHeader string) (*httptest.ResponseRecorder, *Identity) {
	t.Helper()

	var seen *Identity
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if identity, ok := IdentityFrom(r.Context()); ok {
			seen = &identity
		}
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/api/auth/profile", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	rr := httptest.NewRecorder()
	a.Middleware(next).ServeHTTP(rr, req)
	return rr, seen
}

func decodeEnvelope(t *testing.T, rr *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &env))
	return env
}

func TestMiddleware_MissingHeader(t *testing.T) {
	t.Parallel()

	tokens := NewTokenService([]byte("secret"), time.Hour)
	a := NewAuthenticator(tokens, &stubStore{})

	rr, seen := runProtected(t, a, "")
	require.Equal(t, http.StatusUnauthorized, rr.Code)
	require.Nil(t, seen)

	env := decodeEnvelope(t, rr)
	require.False(t, env.Success)
	require.Equal(t, "Authentication required. Please log in.", env.Message)
}

func TestMiddleware_WrongScheme(t *testing.T) {
	t.Parallel()

	tokens := NewTokenService([]byte("secret"), time.Hour)
	a := NewAuthenticator(tokens, &stubStore{})

	tok, err := tokens.Issue("u1")
	require.NoError(t, err)

	rr, _ := runProtected(t, a, "Token "+tok)
	require.Equal(t, http.StatusUnauthorized, rr.Code)
	require.Equal(t, "Authentication required. Please log in.", decodeEnvelope(t, rr).Message)
}

func TestMiddleware_ExpiredToken(t *testing.T) {
	t.Parallel()

	secret := []byte("secret")
	expired := NewTokenService(secret, -1*time.Second)
	tokens := NewTokenService(secret, time.Hour)
	a := NewAuthenticator(tokens, &stubStore{})

	tok, err := expired.Issue("u1")
	require.NoError(t, err)

	rr, _ := runProtected(t, a, "Bearer "+tok)
	require.Equal(t, http.StatusUnauthorized, rr.Code)
	require.Equal(t, "Session expired. Please log in again.", decodeEnvelope(t, rr).Message)
}

func TestMiddleware_MalformedToken(t *testing.T) {
	t.Parallel()

	tokens := NewTokenService([]byte("secret"), time.Hour)
	a := NewAuthenticator(tokens, &stubStore{})

	rr, _ := runProtected(t, a, "Bearer not.a.jwt")
	require.Equal(t, http.StatusUnauthorized, rr.Code)
	require.Equal(t, "Invalid token. Please log in again.", decodeEnvelope(t, rr).Message)
}

func TestMiddleware_AccountGone(t *testing.T) {
	t.Parallel()

	tokens := NewTokenService([]byte("secret"), time.Hour)
	// The store has no user for this ID: the account was deleted after the
	// token was issued.
	a := NewAuthenticator(tokens, &stubStore{users: map[string]models.User{}})

	tok, err := tokens.Issue("deleted-user")
	require.NoError(t, err)

	rr, seen := runProtected(t, a, "Bearer "+tok)
	require.Equal(t, http.StatusUnauthorized, rr.Code)
	require.Nil(t, seen)
	require.Equal(t, "The account associated with this token no longer exists.", decodeEnvelope(t, rr).Message)
}

func TestMiddleware_StoreFailure(t *testing.T) {
	t.Parallel()

	tokens := NewTokenService([]byte("secret"), time.Hour)
	a := NewAuthenticator(tokens, &stubStore{err: errors.New("disk on fire")})

	tok, err := tokens.Issue("u1")
	require.NoError(t, err)

	rr, _ := runProtected(t, a, "Bearer "+tok)
	require.Equal(t, http.StatusInternalServerError, rr.Code)

	// Internal detail must not leak to the caller.
	env := decodeEnvelope(t, rr)
	require.NotContains(t, env.Message, "disk on fire")
}

func TestMiddleware_Verified(t *testing.T) {
	t.Parallel()

	tokens := NewTokenService([]byte("secret"), time.Hour)
	created := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	st := &stubStore{users: map[string]models.User{
		"u1": {ID: "u1", Email: "a@b.com", PasswordHash: "hash", CreatedAt: created},
	}}
	a := NewAuthenticator(tokens, st)

	tok, err := tokens.Issue("u1")
	require.NoError(t, err)

	rr, seen := runProtected(t, a, "Bearer "+tok)
	require.Equal(t, http.StatusOK, rr.Code)
	require.NotNil(t, seen)
	require.Equal(t, "u1", seen.ID)
	require.Equal(t, "a@b.com", seen.Email)
	require.Equal(t, created, seen.CreatedAt)
}

func TestAuthorize_DefaultPassThrough(t *testing.T) {
	t.Parallel()

	tokens := NewTokenService([]byte("secret"), time.Hour)
	a := NewAuthenticator(tokens, &stubStore{})

	called := false
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	ctx := context.WithValue(req.Context(), identityKey, Identity{ID: "u1"})
	rr := httptest.NewRecorder()
	a.Authorize("admin")(next).ServeHTTP(rr, req.WithContext(ctx))

	require.True(t, called)
}

func TestAuthorize_DeniedByChecker(t *testing.T) {
	t.Parallel()

	tokens := NewTokenService([]byte("secret"), time.Hour)
	deny := func(Identity, []string) bool { return false }
	a := NewAuthenticator(tokens, &stubStore{}, WithCapabilityChecker(deny))

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run when authorization is denied")
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	ctx := context.WithValue(req.Context(), identityKey, Identity{ID: "u1"})
	rr := httptest.NewRecorder()
	a.Authorize("admin")(next).ServeHTTP(rr, req.WithContext(ctx))

	require.Equal(t, http.StatusForbidden, rr.Code)
}
