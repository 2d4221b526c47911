package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/hugh/clubhub/internal/api/dto"
	"github.com/hugh/clubhub/internal/auth"
)

type UserHandler struct {
	authService *auth.Service
	logger      *slog.Logger
}

func NewUserHandler(authService *auth.Service, logger *slog.Logger) *UserHandler {
	return &UserHandler{authService: authService, logger: logger.With("handler", "users")}
}

// Get returns the public profile of a user. Email is never included.
func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid user ID")
		return
	}

	user, err := h.authService.GetUserProfile(r.Context(), id)
	if err != nil {
		if errors.Is(err, auth.ErrUserNotFound) {
			writeError(w, http.StatusNotFound, "User not found")
			return
		}
		h.logger.Error("loading user failed", "user_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to load user")
		return
	}

	writeJSON(w, http.StatusOK, dto.NewUserDTO(user))
}
