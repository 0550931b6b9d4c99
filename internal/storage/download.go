package storage

import (
	"errors"
	"io"
	"mime"
	"net/http"
	"path"

	"github.com/go-chi/chi/v5"

	"github.com/fjstoneservices/site-api/pkg/logging"
)

// DownloadHandler serves GET /files/{token} for stores that sign their own links.
type DownloadHandler struct {
	store  Opener
	signer *Signer
	logger *logging.Logger
}

// NewDownloadHandler creates the signed download handler.
func NewDownloadHandler(store Opener, signer *Signer, logger *logging.Logger) *DownloadHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &DownloadHandler{store: store, signer: signer, logger: logger}
}

func (h *DownloadHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")
	objectPath, _, err := h.signer.Parse(token)
	if err != nil {
		status := http.StatusForbidden
		if errors.Is(err, ErrTokenExpired) {
			status = http.StatusGone
		}
		http.Error(w, http.StatusText(status), status)
		return
	}

	body, err := h.store.Open(r.Context(), objectPath)
	if err != nil {
		if errors.Is(err, ErrObjectNotFound) {
			http.NotFound(w, r)
			return
		}
		h.logger.Error("failed to open object", "error", err, "path", objectPath)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	defer body.Close()

	contentType := mime.TypeByExtension(path.Ext(objectPath))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", "private, no-store")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, body); err != nil {
		h.logger.Warn("download interrupted", "error", err, "path", objectPath)
	}
}
