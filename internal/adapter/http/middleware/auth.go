package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/iho/pocketledger/internal/infrastructure/auth"
)

// ContextKey is the type for context keys
type ContextKey string

const (
	// UserIDContextKey is the context key for the calling user's id.
	UserIDContextKey ContextKey = "user_id"

	// UserIDHeader identifies the caller when token auth is disabled.
	UserIDHeader = "X-User-ID"
)

// Identity resolves the calling user. With a JWT manager the user id comes
// from a bearer token; without one it is read from the X-User-ID header.
// Requests without a user are rejected with 401.
func Identity(jwtManager *auth.JWTManager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var userID string

			if jwtManager != nil {
				authHeader := r.Header.Get("Authorization")
				if authHeader == "" {
					unauthorized(w, "missing authorization header")
					return
				}

				parts := strings.SplitN(authHeader, " ", 2)
				if len(parts) != 2 || parts[0] != "Bearer" {
					unauthorized(w, "invalid authorization header format")
					return
				}

				claims, err := jwtManager.Verify(parts[1])
				if err != nil {
					unauthorized(w, "invalid or expired token")
					return
				}

				userID = claims.UserID
			} else {
				userID = strings.TrimSpace(r.Header.Get(UserIDHeader))
				if userID == "" {
					unauthorized(w, "missing "+UserIDHeader+" header")
					return
				}
			}

			next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), userID)))
		})
	}
}

// WithUserID returns a copy of ctx carrying userID.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, UserIDContextKey, userID)
}

// UserIDFromContext extracts the calling user's id from context.
func UserIDFromContext(ctx context.Context) (string, bool) {
	userID, ok := ctx.Value(UserIDContextKey).(string)
	return userID, ok && userID != ""
}

func unauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
