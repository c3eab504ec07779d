package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/Pabi691/custom-clothology/handlers/auth"
	"github.com/Pabi691/custom-clothology/session"
	"github.com/go-chi/render"
)

type contextKey string

const (
	ClaimsContextKey  = contextKey("claims")
	SessionContextKey = contextKey("session")
)

// AuthSession resolves the session JWT, from the Authorization header or the
// session cookie, to a live session. Every authenticated request counts as
// activity on the session.
func AuthSession(gate *auth.Gate, registry *session.Registry) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString, err := bearer(r)
			if err != nil {
				render.Status(r, http.StatusUnauthorized)
				render.JSON(w, r, map[string]string{"error": err.Error(), "login": gate.LoginURL()})
				return
			}

			claims, err := gate.ParseJWT(tokenString)
			if err != nil {
				render.Status(r, http.StatusUnauthorized)
				render.JSON(w, r, map[string]string{"error": "Invalid token", "login": gate.LoginURL()})
				return
			}

			s, err := registry.Get(claims.Subject)
			if err != nil {
				render.Status(r, http.StatusUnauthorized)
				render.JSON(w, r, map[string]string{"error": "Session expired", "login": gate.LoginURL()})
				return
			}

			ctx := context.WithValue(r.Context(), ClaimsContextKey, claims)
			ctx = context.WithValue(ctx, SessionContextKey, s)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// SessionFrom returns the session attached by AuthSession.
func SessionFrom(ctx context.Context) (*session.Session, bool) {
	s, ok := ctx.Value(SessionContextKey).(*session.Session)
	return s, ok
}

// WithSession attaches s to ctx.
func WithSession(ctx context.Context, s *session.Session) context.Context {
	return context.WithValue(ctx, SessionContextKey, s)
}

func bearer(r *http.Request) (string, error) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		if c, err := r.Cookie(auth.CookieName); err == nil && c.Value != "" {
			return c.Value, nil
		}
		return "", errors.New("Authorization header is required")
	}

	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
		return "", errors.New("Authorization header format must be Bearer {token}")
	}
	return parts[1], nil
}
