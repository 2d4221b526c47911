package middleware

import (
	"crypto/subtle"
	"net/http"
	"sync"
	"time"

	"github.com/hugh/clubhub/pkg/crypto"
)

const (
	csrfTokenLength = 32
	csrfCookieName  = "csrf_token"
	csrfHeaderName  = "X-CSRF-Token"
	csrfFormField   = "csrf_token"
	csrfTokenExpiry = 24 * time.Hour
)

// CSRFToken represents a CSRF token with expiry
type CSRFToken struct {
	Token     string
	ExpiresAt time.Time
}

// CSRFStore stores CSRF tokens per login session (in-memory for simplicity)
type CSRFStore struct {
	cookieName string
	tokens     map[string]CSRFToken
	mu         sync.RWMutex
	done       chan struct{}
	closeOnce  sync.Once
}

// NewCSRFStore creates a new CSRF token store keyed on the session cookie
func NewCSRFStore(sessionCookie string) *CSRFStore {
	store := &CSRFStore{
		cookieName: sessionCookie,
		tokens:     make(map[string]CSRFToken),
		done:       make(chan struct{}),
	}

	// Start cleanup goroutine
	go store.cleanup()

	return store
}

// cleanup removes expired tokens periodically
func (s *CSRFStore) cleanup() {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
		}
		s.mu.Lock()
		now := time.Now()
		for sessionID, token := range s.tokens {
			if now.After(token.ExpiresAt) {
				delete(s.tokens, sessionID)
			}
		}
		s.mu.Unlock()
	}
}

// Close stops the cleanup goroutine.
func (s *CSRFStore) Close() {
	s.closeOnce.Do(func() { close(s.done) })
}

// GetOrCreate returns an existing token or creates a new one
func (s *CSRFStore) GetOrCreate(sessionID string) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Check for existing valid token
	if token, exists := s.tokens[sessionID]; exists {
		if time.Now().Before(token.ExpiresAt) {
			return token.Token
		}
	}

	// Generate new token
	token, err := crypto.NewToken(csrfTokenLength)
	if err != nil {
		// Fallback to less secure but functional token
		token = crypto.HashToken(time.Now().String())
	}

	s.tokens[sessionID] = CSRFToken{
		Token:     token,
		ExpiresAt: time.Now().Add(csrfTokenExpiry),
	}

	return token
}

// Validate checks if the provided token is valid for the session
func (s *CSRFStore) Validate(sessionID, providedToken string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	token, exists := s.tokens[sessionID]
	if !exists {
		return false
	}

	if time.Now().After(token.ExpiresAt) {
		return false
	}

	// Constant-time comparison to prevent timing attacks
	return subtle.ConstantTimeCompare([]byte(token.Token), []byte(providedToken)) == 1
}

// CSRF returns a middleware that protects against CSRF attacks
// This is for cookie-based sessions (browser pages and fetches)
// API requests using Bearer tokens in headers are not vulnerable to CSRF
func CSRF(store *CSRFStore) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Skip CSRF check for safe methods
			if r.Method == http.MethodGet ||
				r.Method == http.MethodHead ||
				r.Method == http.MethodOptions ||
				r.Method == http.MethodTrace {
				// For GET requests, ensure CSRF token is set in cookie
				ensureCSRFCookie(w, r, store)
				next.ServeHTTP(w, r)
				return
			}

			// Skip CSRF check if using Bearer token (API requests)
			if authHeader := r.Header.Get("Authorization"); authHeader != "" {
				next.ServeHTTP(w, r)
				return
			}

			// For cookie-based auth, validate CSRF token
			sessionID := store.sessionID(r)
			if sessionID == "" {
				http.Error(w, "Session required", http.StatusForbidden)
				return
			}

			// Get CSRF token from header or form
			csrfToken := r.Header.Get(csrfHeaderName)
			if csrfToken == "" {
				csrfToken = r.FormValue(csrfFormField)
			}

			if csrfToken == "" {
				http.Error(w, "CSRF token missing", http.StatusForbidden)
				return
			}

			if !store.Validate(sessionID, csrfToken) {
				http.Error(w, "Invalid CSRF token", http.StatusForbidden)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// ensureCSRFCookie sets the CSRF token cookie if not present
func ensureCSRFCookie(w http.ResponseWriter, r *http.Request, store *CSRFStore) {
	sessionID := store.sessionID(r)
	if sessionID == "" {
		return
	}

	// Check if cookie already exists
	if _, err := r.Cookie(csrfCookieName); err == nil {
		return
	}

	// Generate and set CSRF token cookie
	token := store.GetOrCreate(sessionID)
	http.SetCookie(w, &http.Cookie{
		Name:     csrfCookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: false, // JavaScript needs to read this
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteStrictMode,
		MaxAge:   int(csrfTokenExpiry.Seconds()),
	})
}

// sessionID derives the CSRF key from the session cookie. The raw session
// token is never kept in memory.
func (s *CSRFStore) sessionID(r *http.Request) string {
	if cookie, err := r.Cookie(s.cookieName); err == nil && cookie.Value != "" {
		return crypto.HashToken(cookie.Value)
	}
	return ""
}

// GetCSRFToken helper to get CSRF token for templates
func GetCSRFToken(r *http.Request, store *CSRFStore) string {
	sessionID := store.sessionID(r)
	if sessionID == "" {
		return ""
	}
	return store.GetOrCreate(sessionID)
}
