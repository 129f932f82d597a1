package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrTokenExpired is returned by Verify when the token is past its expiry.
	ErrTokenExpired = errors.New("token expired")
	// ErrTokenMalformed is returned by Verify for any other failure: bad
	// signature, wrong algorithm, or a structurally invalid token.
	ErrTokenMalformed = errors.New("token malformed")
)

// Claims defines the JWT claims structure. The user ID is the sole identity
// claim.
type Claims struct {
	UserID string `json:"userId"`
	jwt.RegisteredClaims
}

// TokenService issues and verifies signed bearer tokens. The signing secret
// and token lifetime are fixed at construction; the secret is never rotated
// within a process lifetime.
type TokenService struct {
	secret   []byte
	lifetime time.Duration
}

// NewTokenService creates a TokenService with the given signing secret and
// token lifetime.
func NewTokenService(secret []byte, lifetime time.Duration) *TokenService {
	return &TokenService{secret: secret, lifetime: lifetime}
}

// Issue creates a new signed token for the given user ID.
func (s *TokenService) Issue(userID string) (string, error) {
	now := time.Now()
	claims := &Claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.lifetime)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// Verify parses and validates a token string and returns the user ID it was
// issued for. Failures collapse to the closed set {ErrTokenExpired,
// ErrTokenMalformed}; whether that user still exists is the caller's concern.
func (s *TokenService) Verify(tokenStr string) (string, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", ErrTokenExpired
		}
		return "", ErrTokenMalformed
	}
	if !token.Valid || claims.UserID == "" {
		return "", ErrTokenMalformed
	}
	return claims.UserID, nil
}
