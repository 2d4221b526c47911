package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/hugh/clubhub/internal/api/dto"
	"github.com/hugh/clubhub/internal/api/validation"
)

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, dto.ErrorResponse{Error: msg})
}

// pathID parses the {id} route parameter. Only the canonical
// hyphenated form is accepted.
func pathID(r *http.Request) (uuid.UUID, bool) {
	raw := chi.URLParam(r, "id")
	if !validation.IsValidUUID(raw) {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}
