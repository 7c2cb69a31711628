package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

var ErrUnauthorized = errors.New("unauthorized")

type contextKey int

const userIDKey contextKey = iota

// Claims are the Supabase access token claims the API reads. The user id is
// the registered "sub" claim.
type Claims struct {
	Email string `json:"email,omitempty"`
	Role  string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// Authenticator verifies HS256 access tokens signed with the project secret.
type Authenticator struct {
	secret []byte
	parser *jwt.Parser
}

// NewAuthenticator creates an Authenticator. An empty audience disables the aud check.
func NewAuthenticator(secret, audience string) *Authenticator {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if audience != "" {
		opts = append(opts, jwt.WithAudience(audience))
	}
	return &Authenticator{secret: []byte(secret), parser: jwt.NewParser(opts...)}
}

// Verify parses and validates a raw token.
func (a *Authenticator) Verify(raw string) (*Claims, error) {
	claims := &Claims{}
	_, err := a.parser.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return a.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnauthorized, err)
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: token has no subject", ErrUnauthorized)
	}
	return claims, nil
}

// Middleware rejects requests without a valid bearer token and stores the
// user id in the request context.
func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") || token == "" {
			writeError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}

		claims, err := a.Verify(strings.TrimSpace(token))
		if err != nil {
			slog.Debug("token rejected", "path", r.URL.Path, "error", err)
			writeError(w, http.StatusUnauthorized, "invalid token")
			return
		}

		next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), claims.Subject)))
	})
}

// WithUserID returns a context carrying the authenticated user id.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// UserID returns the authenticated user id, or "" outside authenticated routes.
func UserID(ctx context.Context) string {
	id, _ := ctx.Value(userIDKey).(string)
	return id
}
