package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/axio-app/axio-be/internal/api/respond"
	"github.com/axio-app/axio-be/internal/store"
	"github.com/rs/zerolog/log"
)

const bearerPrefix = "Bearer "

// Identity is the authenticated caller attached to the request context. It
// never carries the password hash.
type Identity struct {
	ID        string
	Email     string
	CreatedAt time.Time
}

// CapabilityChecker decides whether an identity holds the required
// capabilities. The default checker allows everything; a real capability set
// can be plugged in without touching the middleware flow.
type CapabilityChecker func(identity Identity, required []string) bool

type contextKey string

const identityKey = contextKey("identity")

// Authenticator gates protected routes: it extracts the bearer token,
// verifies it, and re-resolves the user against the store on every request so
// account deletion takes effect immediately.
type Authenticator struct {
	tokens *TokenService
	users  store.UserStore
	check  CapabilityChecker
}

// AuthenticatorOption configures an Authenticator.
type AuthenticatorOption func(*Authenticator)

// WithCapabilityChecker replaces the default allow-all capability checker.
func WithCapabilityChecker(check CapabilityChecker) AuthenticatorOption {
	return func(a *Authenticator) {
		if check != nil {
			a.check = check
		}
	}
}

// NewAuthenticator creates an Authenticator over the given token service and
// user store.
func NewAuthenticator(tokens *TokenService, users store.UserStore, opts ...AuthenticatorOption) *Authenticator {
	a := &Authenticator{
		tokens: tokens,
		users:  users,
		check:  func(Identity, []string) bool { return true },
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Middleware returns the authentication gate for protected routes. Each
// rejection branch has a distinct, stable message:
//
//	no bearer token      -> 401 authentication required
//	expired token        -> 401 session expired
//	invalid token        -> 401 invalid token
//	account deleted      -> 401 account no longer exists
//	anything unexpected  -> 500 generic, detail logged server-side
func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if !strings.HasPrefix(authHeader, bearerPrefix) {
			respond.Error(w, http.StatusUnauthorized, "Authentication required. Please log in.")
			return
		}

		tokenStr := strings.TrimPrefix(authHeader, bearerPrefix)
		userID, err := a.tokens.Verify(tokenStr)
		if err != nil {
			if errors.Is(err, ErrTokenExpired) {
				respond.Error(w, http.StatusUnauthorized, "Session expired. Please log in again.")
				return
			}
			respond.Error(w, http.StatusUnauthorized, "Invalid token. Please log in again.")
			return
		}

		// A structurally valid token is not enough: the account may have
		// been deleted after the token was issued.
		user, err := a.users.ByID(r.Context(), userID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				respond.Error(w, http.StatusUnauthorized, "The account associated with this token no longer exists.")
				return
			}
			log.Error().Err(err).Str("user_id", userID).Msg("Failed to resolve authenticated user")
			respond.Error(w, http.StatusInternalServerError, "An unexpected error occurred during authentication.")
			return
		}

		identity := Identity{ID: user.ID, Email: user.Email, CreatedAt: user.CreatedAt}
		ctx := context.WithValue(r.Context(), identityKey, identity)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Authorize returns a middleware enforcing the given capabilities against the
// configured CapabilityChecker. It must run after Middleware. With the
// default checker it is a pass-through.
func (a *Authenticator) Authorize(capabilities ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, ok := IdentityFrom(r.Context())
			if !ok || !a.check(identity, capabilities) {
				respond.Error(w, http.StatusForbidden, "You do not have permission to access this resource.")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// IdentityFrom extracts the authenticated identity from a request context.
func IdentityFrom(ctx context.Context) (Identity, bool) {
	identity, ok := ctx.Value(identityKey).(Identity)
	return identity, ok
}
