package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/hugh/clubhub/internal/api/dto"
	"github.com/hugh/clubhub/internal/api/middleware"
	"github.com/hugh/clubhub/internal/directory"
)

type OrganizationHandler struct {
	directory *directory.Service
	logger    *slog.Logger
}

func NewOrganizationHandler(dir *directory.Service, logger *slog.Logger) *OrganizationHandler {
	return &OrganizationHandler{
		directory: dir,
		logger:    logger.With("handler", "organizations"),
	}
}

// List searches organizations. The query is matched literally.
func (h *OrganizationHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	params := dto.PaginationParams{}
	params.Page, _ = strconv.Atoi(q.Get("page"))
	params.PerPage, _ = strconv.Atoi(q.Get("per_page"))
	params.Normalize()

	page, err := h.directory.ListOrganizationsPage(r.Context(), directory.ListParams{
		Query:   q.Get("query"),
		Page:    params.Page,
		PerPage: params.PerPage,
	})
	if err != nil {
		h.logger.Error("listing organizations failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to list organizations")
		return
	}

	writeJSON(w, http.StatusOK, dto.PaginatedResponse{
		Data:       dto.NewOrganizationDTOs(page.Items),
		Total:      page.Total,
		Page:       params.Page,
		PerPage:    params.PerPage,
		TotalPages: params.TotalPages(page.Total),
	})
}

func (h *OrganizationHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid organization ID")
		return
	}

	org, err := h.directory.GetOrganization(r.Context(), id)
	if err != nil {
		if errors.Is(err, directory.ErrOrganizationNotFound) {
			writeError(w, http.StatusNotFound, "Organization not found")
			return
		}
		h.logger.Error("loading organization failed", "organization_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to load organization")
		return
	}

	writeJSON(w, http.StatusOK, dto.NewOrganizationDTO(org))
}

// Join adds the caller to the organization. The body is optional.
func (h *OrganizationHandler) Join(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid organization ID")
		return
	}

	var req dto.JoinRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if errs := req.Validate(); len(errs) > 0 {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Validation failed", Details: errs})
		return
	}

	userID := middleware.GetUserID(r.Context())
	m, err := h.directory.AddMember(r.Context(), userID, id, req.Role)
	if err != nil {
		switch {
		case errors.Is(err, directory.ErrMembershipExists):
			writeError(w, http.StatusConflict, "Already a member")
		case errors.Is(err, directory.ErrOrganizationNotFound):
			writeError(w, http.StatusNotFound, "Organization not found")
		case errors.Is(err, directory.ErrUserNotFound):
			writeError(w, http.StatusUnauthorized, "Unauthorized")
		case errors.Is(err, directory.ErrInvalidRole):
			writeError(w, http.StatusBadRequest, "Invalid role")
		default:
			h.logger.Error("joining organization failed", "organization_id", id, "user_id", userID, "error", err)
			writeError(w, http.StatusInternalServerError, "Failed to join organization")
		}
		return
	}

	writeJSON(w, http.StatusCreated, dto.MembershipDTO{
		OrganizationID: m.OrganizationID.String(),
		Role:           m.Role,
		JoinedAt:       m.CreatedAt,
	})
}

// Leave removes the caller from the organization.
func (h *OrganizationHandler) Leave(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid organization ID")
		return
	}

	userID := middleware.GetUserID(r.Context())
	if err := h.directory.RemoveMember(r.Context(), userID, id); err != nil {
		if errors.Is(err, directory.ErrMembershipNotFound) {
			writeError(w, http.StatusNotFound, "Not a member")
			return
		}
		h.logger.Error("leaving organization failed", "organization_id", id, "user_id", userID, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to leave organization")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
