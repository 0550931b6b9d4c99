package leads

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"

	"github.com/fjstoneservices/site-api/pkg/logging"
)

// MaxNotesLength caps staff notes.
const MaxNotesLength = 5000

// ObjectStore is the part of the attachment store the admin handler needs.
type ObjectStore interface {
	SignedURL(ctx context.Context, objectPath string, ttl time.Duration) (string, error)
	Delete(ctx context.Context, objectPath string) error
}

// Handler handles staff HTTP requests for quote leads
type Handler struct {
	repo    StaffRepository
	store   ObjectStore
	linkTTL time.Duration
	logger  *logging.Logger
}

// NewHandler creates a new leads admin handler
func NewHandler(repo StaffRepository, store ObjectStore, linkTTL time.Duration, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	if linkTTL <= 0 {
		linkTTL = time.Hour
	}
	return &Handler{repo: repo, store: store, linkTTL: linkTTL, logger: logger}
}

// ListLeadsResponse is the response for listing leads
type ListLeadsResponse struct {
	Leads  []*Lead `json:"leads"`
	Count  int     `json:"count"`
	Offset int     `json:"offset"`
	Limit  int     `json:"limit"`
}

// AttachmentView is an attachment with a freshly signed link.
type AttachmentView struct {
	Attachment
	URL *string `json:"url"`
}

// LeadDetailResponse is the response for a single lead
type LeadDetailResponse struct {
	*Lead
	Attachments []AttachmentView `json:"attachments"`
}

// ListLeads handles GET /api/admin/quotes
func (h *Handler) ListLeads(w http.ResponseWriter, r *http.Request) {
	filter := ListFilter{Limit: 50}

	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if limit, err := strconv.Atoi(limitStr); err == nil && limit > 0 && limit <= 100 {
			filter.Limit = limit
		}
	}
	if offsetStr := r.URL.Query().Get("offset"); offsetStr != "" {
		if offset, err := strconv.Atoi(offsetStr); err == nil && offset >= 0 {
			filter.Offset = offset
		}
	}
	if raw := r.URL.Query().Get("status"); raw != "" {
		status, err := ParseStatus(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid status")
			return
		}
		filter.Status = status
	}

	leads, err := h.repo.List(r.Context(), filter)
	if err != nil {
		h.logger.Error("failed to list leads", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list leads")
		return
	}

	writeJSON(w, http.StatusOK, ListLeadsResponse{
		Leads:  leads,
		Count:  len(leads),
		Offset: filter.Offset,
		Limit:  filter.Limit,
	})
}

// GetLead handles GET /api/admin/quotes/{id}
func (h *Handler) GetLead(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	lead, err := h.repo.Get(r.Context(), id)
	if err != nil {
		h.writeRepoError(w, "failed to load lead", id, err)
		return
	}

	views := make([]AttachmentView, 0, len(lead.Attachments))
	for _, att := range lead.Attachments {
		view := AttachmentView{Attachment: att}
		if h.store != nil {
			link, err := h.store.SignedURL(r.Context(), att.StoragePath, h.linkTTL)
			if err != nil {
				h.logger.Warn("failed to sign attachment link", "error", err, "lead_id", id, "attachment_id", att.ID)
			} else {
				view.URL = &link
			}
		}
		views = append(views, view)
	}
	writeJSON(w, http.StatusOK, LeadDetailResponse{Lead: lead, Attachments: views})
}

// UpdateLead handles PATCH /api/admin/quotes/{id}
func (h *Handler) UpdateLead(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var body struct {
		Status *string `json:"status"`
		Notes  *string `json:"notes"`
	}
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 64<<10)).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	var req UpdateLeadRequest
	if body.Status != nil {
		status, err := ParseStatus(*body.Status)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid status")
			return
		}
		req.Status = &status
	}
	if body.Notes != nil {
		if utf8.RuneCountInString(*body.Notes) > MaxNotesLength {
			writeError(w, http.StatusBadRequest, "notes must be 5000 characters or less")
			return
		}
		req.Notes = body.Notes
	}

	lead, err := h.repo.Update(r.Context(), id, req)
	if err != nil {
		h.writeRepoError(w, "failed to update lead", id, err)
		return
	}
	h.logger.Info("lead updated", "lead_id", id, "status", lead.Status)
	writeJSON(w, http.StatusOK, lead)
}

// DeleteLead handles DELETE /api/admin/quotes/{id}. Stored objects are removed
// after the rows; failures there only leave orphans behind.
func (h *Handler) DeleteLead(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	paths, err := h.repo.Delete(r.Context(), id)
	if err != nil {
		h.writeRepoError(w, "failed to delete lead", id, err)
		return
	}

	removed := 0
	if h.store != nil {
		for _, p := range paths {
			if err := h.store.Delete(r.Context(), p); err != nil {
				h.logger.Warn("failed to delete attachment object", "error", err, "lead_id", id, "path", p)
				continue
			}
			removed++
		}
	}
	h.logger.Info("lead deleted", "lead_id", id, "objects", len(paths), "objects_removed", removed)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) writeRepoError(w http.ResponseWriter, msg, id string, err error) {
	switch {
	case errors.Is(err, ErrLeadNotFound):
		writeError(w, http.StatusNotFound, "lead not found")
	case errors.Is(err, ErrInvalidStatus):
		writeError(w, http.StatusBadRequest, "invalid status")
	case errors.Is(err, ErrEmptyUpdate):
		writeError(w, http.StatusBadRequest, "nothing to update")
	default:
		h.logger.Error(msg, "error", err, "lead_id", id)
		writeError(w, http.StatusInternalServerError, msg)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
