package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"sort"

	"github.com/hugh/clubhub/internal/api/dto"
	"github.com/hugh/clubhub/internal/api/middleware"
	"github.com/hugh/clubhub/internal/auth"
	"github.com/hugh/clubhub/internal/directory"
	"github.com/hugh/clubhub/internal/web"
)

// PageHandler serves the server-rendered pages.
type PageHandler struct {
	directory   *directory.Service
	authService *auth.Service
	templates   *web.Templates
	csrf        *middleware.CSRFStore
	providers   []string
	logger      *slog.Logger
}

func NewPageHandler(dir *directory.Service, authService *auth.Service, templates *web.Templates, csrf *middleware.CSRFStore, providers map[string]auth.Provider, logger *slog.Logger) *PageHandler {
	names := make([]string, 0, len(providers))
	for name := range providers {
		names = append(names, name)
	}
	sort.Strings(names)

	return &PageHandler{
		directory:   dir,
		authService: authService,
		templates:   templates,
		csrf:        csrf,
		providers:   names,
		logger:      logger.With("handler", "pages"),
	}
}

func (h *PageHandler) Index(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("query")

	orgs, err := h.directory.ListOrganizations(r.Context(), query)
	if err != nil {
		h.logger.Error("listing organizations failed", "error", err)
		http.Error(w, "Failed to load organizations", http.StatusInternalServerError)
		return
	}

	data := h.page(r)
	data.Query = query
	data.Organizations = dto.NewOrganizationDTOs(orgs)
	h.render(w, "index.html", data)
}

func (h *PageHandler) Organization(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		http.NotFound(w, r)
		return
	}

	org, err := h.directory.GetOrganization(r.Context(), id)
	if err != nil {
		if errors.Is(err, directory.ErrOrganizationNotFound) {
			http.NotFound(w, r)
			return
		}
		h.logger.Error("loading organization failed", "organization_id", id, "error", err)
		http.Error(w, "Failed to load organization", http.StatusInternalServerError)
		return
	}

	data := h.page(r)
	o := dto.NewOrganizationDTO(org)
	data.Organization = &o
	data.IsMember = data.Session.IsMember(org.ID)
	h.render(w, "organization.html", data)
}

// Profile requires a session.
func (h *PageHandler) Profile(w http.ResponseWriter, r *http.Request) {
	data := h.page(r)

	user, err := h.authService.GetUserProfile(r.Context(), data.Session.UserID)
	if err != nil {
		if errors.Is(err, auth.ErrUserNotFound) {
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		h.logger.Error("loading profile failed", "user_id", data.Session.UserID, "error", err)
		http.Error(w, "Failed to load profile", http.StatusInternalServerError)
		return
	}

	profile := dto.NewUserDTO(user)
	data.Profile = &profile
	h.render(w, "profile.html", data)
}

func (h *PageHandler) About(w http.ResponseWriter, r *http.Request) {
	h.render(w, "about.html", h.page(r))
}

func (h *PageHandler) Login(w http.ResponseWriter, r *http.Request) {
	data := h.page(r)
	data.Providers = h.providers
	data.Redirect = auth.SafeRedirect(r.URL.Query().Get("redirect"))
	data.Error = r.URL.Query().Get("error")
	h.render(w, "login.html", data)
}

func (h *PageHandler) page(r *http.Request) web.PageData {
	data := web.PageData{Session: middleware.GetSession(r.Context())}
	if h.csrf != nil {
		data.CSRFToken = middleware.GetCSRFToken(r, h.csrf)
	}
	return data
}

func (h *PageHandler) render(w http.ResponseWriter, name string, data web.PageData) {
	if h.templates == nil {
		http.Error(w, "Templates not loaded", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := h.templates.Render(w, name, data); err != nil {
		h.logger.Error("rendering page failed", "page", name, "error", err)
		http.Error(w, "Failed to render page", http.StatusInternalServerError)
	}
}
