package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/hugh/clubhub/internal/auth"
)

type contextKey string

const (
	SessionKey      contextKey = "session"
	SessionTokenKey contextKey = "session_token"
)

// Session resolves the session token from the Authorization header or the
// session cookie and stores the enriched view in the request context.
// Requests without a valid session pass through anonymously.
func Session(resolver auth.SessionResolver, cookieName string, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := SessionToken(r, cookieName)
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}

			view, err := resolver.Session(r.Context(), token)
			switch {
			case err == nil:
				r = r.WithContext(WithSession(r.Context(), view, token))
			case errors.Is(err, auth.ErrSessionNotFound), errors.Is(err, auth.ErrSessionExpired):
				// anonymous
			default:
				logger.Warn("session lookup failed", "error", err)
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RequireSession rejects anonymous requests: 401 for API calls, a redirect
// to the login page for browser navigation.
func RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if GetSession(r.Context()) == nil {
			handleUnauthorized(w, r)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// SessionToken returns the bearer token if present, else the session cookie.
func SessionToken(r *http.Request, cookieName string) string {
	authHeader := r.Header.Get("Authorization")
	if strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
	}
	if cookie, err := r.Cookie(cookieName); err == nil {
		return cookie.Value
	}
	return ""
}

// handleUnauthorized returns appropriate response based on request type
func handleUnauthorized(w http.ResponseWriter, r *http.Request) {
	// Check if this is a web page request (not API)
	accept := r.Header.Get("Accept")
	isWebRequest := strings.Contains(accept, "text/html") && !strings.HasPrefix(r.URL.Path, "/api/")

	if isWebRequest {
		http.Redirect(w, r, "/login?redirect="+r.URL.RequestURI(), http.StatusFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": "Unauthorized"})
}

func WithSession(ctx context.Context, view *auth.SessionView, token string) context.Context {
	ctx = context.WithValue(ctx, SessionKey, view)
	return context.WithValue(ctx, SessionTokenKey, token)
}

// Helper functions to extract values from context
func GetSession(ctx context.Context) *auth.SessionView {
	if v, ok := ctx.Value(SessionKey).(*auth.SessionView); ok {
		return v
	}
	return nil
}

func GetSessionToken(ctx context.Context) string {
	if token, ok := ctx.Value(SessionTokenKey).(string); ok {
		return token
	}
	return ""
}

func GetUserID(ctx context.Context) uuid.UUID {
	if v := GetSession(ctx); v != nil {
		return v.UserID
	}
	return uuid.Nil
}
