package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/pilahub/queue-backend/internal/auth"
)

// contextKey is a custom type for context keys to avoid collisions.
type contextKey string

// AdminClaimsKey is the key used to store admin session claims in the request context.
const AdminClaimsKey contextKey = "adminClaims"

// JWTMiddleware validates the session token from the Authorization header.
// Admin endpoints sit behind it; the queue join code never grants access here.
func JWTMiddleware(tm *auth.TokenManager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				http.Error(w, "Authorization header is required", http.StatusUnauthorized)
				return
			}

			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || parts[0] != "Bearer" {
				http.Error(w, "Authorization header format must be Bearer {token}", http.StatusUnauthorized)
				return
			}

			tokenString := parts[1]
			claims, err := tm.ValidateToken(tokenString)
			if err != nil {
				http.Error(w, "Invalid or expired token", http.StatusUnauthorized)
				return
			}

			// Add the claims to the context for downstream handlers to use.
			ctx := context.WithValue(r.Context(), AdminClaimsKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
