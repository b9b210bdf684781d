// Package auth resolves the authenticated user for a request. Identity
// itself lives outside this service (the web app's session layer); this
// package only maps an opaque bearer token to an opaque user ID and
// carries it on the request context.
package auth

import (
	"context"
	"net/http"
	"strings"
)

type ctxKey struct{}

// Resolver maps an opaque bearer token to a user ID.
type Resolver interface {
	Resolve(token string) (userID string, ok bool)
}

// StaticTokens is a token→userID table, loaded from configuration.
type StaticTokens map[string]string

func (m StaticTokens) Resolve(token string) (string, bool) {
	userID, ok := m[token]
	return userID, ok
}

// Middleware extracts the caller's identity and injects it into the
// request context. With allowDevHeader set, an X-User-ID header is
// accepted in place of a token (local development only). Requests
// without identity pass through; handlers reject them per-route.
func Middleware(resolver Resolver, allowDevHeader bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if token, ok := bearerToken(r); ok && resolver != nil {
				if userID, ok := resolver.Resolve(token); ok {
					r = r.WithContext(WithUserID(r.Context(), userID))
					next.ServeHTTP(w, r)
					return
				}
			}
			if allowDevHeader {
				if userID := r.Header.Get("X-User-ID"); userID != "" {
					r = r.WithContext(WithUserID(r.Context(), userID))
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(h, prefix) {
		return "", false
	}
	token := strings.TrimSpace(h[len(prefix):])
	return token, token != ""
}

// WithUserID returns a context carrying the authenticated user ID.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, ctxKey{}, userID)
}

// UserID returns the authenticated user ID from the context.
func UserID(ctx context.Context) (string, bool) {
	userID, ok := ctx.Value(ctxKey{}).(string)
	return userID, ok && userID != ""
}
