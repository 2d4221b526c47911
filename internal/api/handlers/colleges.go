package handlers

import (
	"log/slog"
	"net/http"

	"github.com/hugh/clubhub/internal/api/dto"
	"github.com/hugh/clubhub/internal/directory"
)

type CollegeHandler struct {
	directory *directory.Service
	logger    *slog.Logger
}

func NewCollegeHandler(dir *directory.Service, logger *slog.Logger) *CollegeHandler {
	return &CollegeHandler{directory: dir, logger: logger.With("handler", "colleges")}
}

func (h *CollegeHandler) List(w http.ResponseWriter, r *http.Request) {
	colleges, err := h.directory.ListColleges(r.Context())
	if err != nil {
		h.logger.Error("listing colleges failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to list colleges")
		return
	}

	out := make([]dto.CollegeDTO, len(colleges))
	for i := range colleges {
		out[i] = dto.NewCollegeDTO(&colleges[i])
	}
	writeJSON(w, http.StatusOK, out)
}
