package middleware

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"society-billing/internal/auth"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
)

type contextKey string

const ClaimsKey contextKey = "claims"

// TokenValidator is satisfied by *auth.JWTManager
type TokenValidator interface {
	ValidateToken(token string) (*auth.Claims, error)
}

type AuthMiddleware struct {
	tokens TokenValidator
}

func NewAuthMiddleware(tokens TokenValidator) *AuthMiddleware {
	return &AuthMiddleware{tokens: tokens}
}

// Authenticate validates the bearer token and stores its claims on the request
func (m *AuthMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			writeError(w, http.StatusUnauthorized, "Authorization header required")
			return
		}

		// Extract token from "Bearer <token>"
		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			writeError(w, http.StatusUnauthorized, "Invalid authorization format")
			return
		}

		claims, err := m.tokens.ValidateToken(parts[1])
		if err != nil {
			writeError(w, http.StatusUnauthorized, "Invalid or expired token")
			return
		}

		zerolog.Ctx(r.Context()).UpdateContext(func(c zerolog.Context) zerolog.Context {
			return c.Int64("user_id", claims.UserID).Int64("society_id", claims.SocietyID)
		})

		ctx := context.WithValue(r.Context(), ClaimsKey, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireCapability rejects requests whose token lacks the capability or is
// scoped to a different society than the {societyID} route variable.
// Must run after Authenticate.
func (m *AuthMiddleware) RequireCapability(capability string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := GetClaimsFromContext(r.Context())
			if !ok {
				writeError(w, http.StatusUnauthorized, "Authentication required")
				return
			}

			if raw, ok := mux.Vars(r)["societyID"]; ok {
				societyID, err := strconv.ParseInt(raw, 10, 64)
				if err != nil || societyID != claims.SocietyID {
					writeError(w, http.StatusForbidden, "Forbidden: token is not valid for this society")
					return
				}
			}

			if !claims.Can(capability) {
				writeError(w, http.StatusForbidden, "Forbidden: missing capability "+capability)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// GetClaimsFromContext extracts the token claims from request context
func GetClaimsFromContext(ctx context.Context) (*auth.Claims, bool) {
	claims, ok := ctx.Value(ClaimsKey).(*auth.Claims)
	return claims, ok
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write([]byte(`{"error":"` + message + `"}`))
}
