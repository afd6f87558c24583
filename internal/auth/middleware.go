// ABOUTME: API key middleware for the mock admin API.
// ABOUTME: Checks X-API-KEY and records the caller identity in the request context.

package auth

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"

	apierrors "github.com/2389/basiclist/internal/errors"
)

type contextKey string

const userContextKey contextKey = "user"

// Header names read by the middleware.
const (
	APIKeyHeader = "X-API-KEY"
	UserHeader   = "X-API-USER"
)

const anonymous = "anonymous"

// Middleware rejects requests whose X-API-KEY does not match apiKey. An empty
// apiKey disables the check. The caller is taken from X-API-USER when present.
func Middleware(apiKey string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if apiKey != "" && !validKey(r.Header.Get(APIKeyHeader), apiKey) {
				apierrors.WriteError(w, http.StatusUnauthorized, apierrors.ErrUnauthorized, "invalid or missing API key")
				return
			}
			user := extractUser(r.Header.Get(UserHeader), apiKey != "")
			ctx := context.WithValue(r.Context(), userContextKey, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// UserFromContext returns the caller recorded by Middleware.
func UserFromContext(ctx context.Context) string {
	user, ok := ctx.Value(userContextKey).(string)
	if !ok || user == "" {
		return anonymous
	}
	return user
}

func validKey(got, want string) bool {
	return subtle.ConstantTimeCompare([]byte(strings.TrimSpace(got)), []byte(want)) == 1
}

func extractUser(header string, keyed bool) string {
	if user := strings.TrimSpace(header); user != "" {
		return user
	}
	if keyed {
		return "api-key"
	}
	return anonymous
}
