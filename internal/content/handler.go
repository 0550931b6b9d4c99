package content

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/fjstoneservices/site-api/internal/http/middleware"
	"github.com/fjstoneservices/site-api/pkg/logging"
)

const maxBodyBytes = 256 << 10

// Handler serves the staff content endpoint.
type Handler struct {
	service *Service
	logger  *logging.Logger
}

// NewHandler creates a content handler. Authentication is left to the
// router's admin middleware.
func NewHandler(service *Service, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{service: service, logger: logger}
}

// Update handles POST /api/admin/content/update
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	var req UpdateBlockRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "Invalid request"})
		return
	}

	block, err := h.service.Update(r.Context(), req)
	if err != nil {
		var verr *ValidationError
		if errors.As(err, &verr) {
			writeJSON(w, http.StatusBadRequest, map[string]any{"error": "Invalid request", "details": verr.Fields})
			return
		}
		actor := ""
		if claims, ok := middleware.AdminClaimsFromContext(r.Context()); ok {
			actor = claims.Identity()
		}
		h.logger.Error("content: update failed", "error", err, "key", req.Key, "actor", actor)
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": "Failed to update content"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"success": true, "block": block})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
