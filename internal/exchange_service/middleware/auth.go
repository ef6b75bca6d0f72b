package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// ContextKey is a custom type for context keys to avoid collisions.
type ContextKey string

const (
	AuthenticatedPersonContextKey = ContextKey("authenticatedPerson")
)

// AuthenticatedPerson is the identity the external identity layer vouched for.
type AuthenticatedPerson struct {
	PersonID uuid.UUID
	Email    string
}

// PersonFromContext extracts the authenticated person placed by AuthMiddleware.
func PersonFromContext(ctx context.Context) (AuthenticatedPerson, bool) {
	person, ok := ctx.Value(AuthenticatedPersonContextKey).(AuthenticatedPerson)
	return person, ok
}

// AuthMiddleware validates a Bearer JWT (HS256) issued by the identity service
// and injects the person identity into the request context. The subject claim
// carries the person UUID; an optional email claim rides along for logging.
func AuthMiddleware(jwtSecret string, logger *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				logger.WarnContext(r.Context(), "Authorization header missing")
				http.Error(w, "Authorization header required", http.StatusUnauthorized)
				return
			}

			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || parts[0] != "Bearer" {
				logger.WarnContext(r.Context(), "Invalid Authorization header format")
				http.Error(w, "Invalid Authorization header format", http.StatusUnauthorized)
				return
			}

			claims := jwt.MapClaims{}
			token, err := jwt.ParseWithClaims(parts[1], claims, func(t *jwt.Token) (interface{}, error) {
				if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
				}
				return []byte(jwtSecret), nil
			})
			if err != nil || !token.Valid {
				logger.WarnContext(r.Context(), "Token validation failed", "error", err)
				http.Error(w, "Invalid or expired token", http.StatusUnauthorized)
				return
			}

			subject, err := claims.GetSubject()
			if err != nil {
				logger.WarnContext(r.Context(), "Token missing subject claim", "error", err)
				http.Error(w, "Invalid or expired token", http.StatusUnauthorized)
				return
			}
			personID, err := uuid.Parse(subject)
			if err != nil {
				logger.WarnContext(r.Context(), "Token subject is not a person ID", "subject", subject)
				http.Error(w, "Invalid or expired token", http.StatusUnauthorized)
				return
			}

			email, _ := claims["email"].(string)

			authPerson := AuthenticatedPerson{PersonID: personID, Email: email}
			ctx := context.WithValue(r.Context(), AuthenticatedPersonContextKey, authPerson)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
