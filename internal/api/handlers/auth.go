package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hugh/clubhub/internal/api/dto"
	"github.com/hugh/clubhub/internal/api/middleware"
	"github.com/hugh/clubhub/internal/auth"
)

const (
	nonceCookieName = "clubhub_oauth_nonce"
	defaultProvider = "github"
)

// CookieSettings describes the session cookie.
type CookieSettings struct {
	Name   string
	Secure bool
	TTL    time.Duration
}

type AuthHandler struct {
	authService *auth.Service
	state       *auth.StateService
	providers   map[string]auth.Provider
	cookie      CookieSettings
	logger      *slog.Logger
}

func NewAuthHandler(authService *auth.Service, state *auth.StateService, providers map[string]auth.Provider, cookie CookieSettings, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		state:       state,
		providers:   providers,
		cookie:      cookie,
		logger:      logger.With("handler", "auth"),
	}
}

// SignIn starts the OAuth flow. The state parameter is signed and carries
// the post-login redirect; its nonce is pinned to this browser by cookie.
func (h *AuthHandler) SignIn(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("provider")
	if name == "" {
		name = defaultProvider
	}
	provider, ok := h.providers[name]
	if !ok {
		writeError(w, http.StatusNotFound, "Unknown provider")
		return
	}

	state, nonce, err := h.state.Issue(r.URL.Query().Get("redirect"))
	if err != nil {
		h.logger.Error("issuing oauth state failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Sign-in failed")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     nonceCookieName,
		Value:    nonce,
		Path:     "/auth/callback",
		HttpOnly: true,
		Secure:   h.cookie.Secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(h.state.Expiry().Seconds()),
	})

	http.Redirect(w, r, provider.AuthCodeURL(state), http.StatusFound)
}

// Callback completes the OAuth flow and opens a session.
func (h *AuthHandler) Callback(w http.ResponseWriter, r *http.Request) {
	provider, ok := h.providers[chi.URLParam(r, "provider")]
	if !ok {
		writeError(w, http.StatusNotFound, "Unknown provider")
		return
	}

	q := r.URL.Query()
	if e := q.Get("error"); e != "" {
		h.logger.Info("provider denied sign-in", "provider", provider.Name(), "error", e)
		loginError(w, r, "access_denied")
		return
	}

	var nonce string
	if c, err := r.Cookie(nonceCookieName); err == nil {
		nonce = c.Value
	}
	clearCookie(w, nonceCookieName, "/auth/callback")

	redirect, err := h.state.Verify(q.Get("state"), nonce)
	if err != nil {
		h.logger.Info("rejected oauth state", "provider", provider.Name(), "error", err)
		writeError(w, http.StatusBadRequest, "Invalid or expired sign-in attempt")
		return
	}

	code := q.Get("code")
	if code == "" {
		writeError(w, http.StatusBadRequest, "Missing authorization code")
		return
	}

	identity, err := provider.Exchange(r.Context(), code)
	if err != nil {
		h.logger.Warn("oauth exchange failed", "provider", provider.Name(), "error", err)
		if errors.Is(err, auth.ErrNoVerifiedEmail) {
			loginError(w, r, "missing_email")
			return
		}
		writeError(w, http.StatusBadGateway, "Sign-in with provider failed")
		return
	}

	_, token, err := h.authService.Authenticate(r.Context(), *identity)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrEmailTaken):
			loginError(w, r, "account_conflict")
		case errors.Is(err, auth.ErrMissingEmail):
			loginError(w, r, "missing_email")
		default:
			h.logger.Error("sign-in failed", "provider", provider.Name(), "error", err)
			writeError(w, http.StatusInternalServerError, "Sign-in failed")
		}
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     h.cookie.Name,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   h.cookie.Secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(h.cookie.TTL.Seconds()),
	})

	http.Redirect(w, r, redirect, http.StatusFound)
}

// SignOut deletes the current session and clears the cookie.
func (h *AuthHandler) SignOut(w http.ResponseWriter, r *http.Request) {
	token := middleware.GetSessionToken(r.Context())
	if token == "" {
		token = middleware.SessionToken(r, h.cookie.Name)
	}

	if err := h.authService.SignOut(r.Context(), token); err != nil {
		h.logger.Error("sign-out failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Sign-out failed")
		return
	}

	clearCookie(w, h.cookie.Name, "/")

	if wantsHTML(r) {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	writeJSON(w, http.StatusOK, dto.SuccessResponse{Message: "Signed out"})
}

// Session returns the enriched session of the caller.
func (h *AuthHandler) Session(w http.ResponseWriter, r *http.Request) {
	view := middleware.GetSession(r.Context())
	if view == nil {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	writeJSON(w, http.StatusOK, dto.SessionResponse{User: view, Expires: view.Expires})
}

func clearCookie(w http.ResponseWriter, name, path string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     path,
		HttpOnly: true,
		MaxAge:   -1,
	})
}

func loginError(w http.ResponseWriter, r *http.Request, code string) {
	http.Redirect(w, r, "/login?error="+url.QueryEscape(code), http.StatusFound)
}

func wantsHTML(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "text/html")
}
