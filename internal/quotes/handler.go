package quotes

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net"
	"net/http"
	"strings"

	"github.com/fjstoneservices/site-api/internal/ratelimit"
	"github.com/fjstoneservices/site-api/pkg/logging"
)

// multipartMemory is how much of a multipart body is kept in memory before
// spilling file parts to disk.
const multipartMemory = 32 << 20

// Submitter runs a submission. Admit is the rate check alone.
type Submitter interface {
	Admit(ctx context.Context, clientKey string) (Outcome, bool)
	Submit(ctx context.Context, req Request) Outcome
}

// Handler exposes the public quote form endpoint.
type Handler struct {
	service   Submitter
	clientKey func(*http.Request) string
	maxBody   int64
	logger    *logging.Logger
}

// NewHandler creates the handler. maxBody caps the whole request body.
func NewHandler(service Submitter, clientKey func(*http.Request) string, maxBody int64, logger *logging.Logger) *Handler {
	if service == nil {
		panic("quotes: service required")
	}
	if clientKey == nil {
		clientKey = ratelimit.ClientKey
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{
		service:   service,
		clientKey: clientKey,
		maxBody:   maxBody,
		logger:    logger,
	}
}

// MaxBodyFor sizes the request cap from the file policy plus room for fields.
func MaxBodyFor(policy FilePolicy) int64 {
	return int64(policy.MaxFiles)*policy.MaxBytes + 1<<20
}

// Submit handles POST /api/quotes. Throttled clients are turned away
// before the body is parsed.
func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	key := h.clientKey(r)
	if out, ok := h.service.Admit(r.Context(), key); !ok {
		writeJSON(w, statusFor(out), out.Result)
		return
	}

	if h.maxBody > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxBody)
	}

	files, err := h.parse(r)
	if r.MultipartForm != nil {
		defer r.MultipartForm.RemoveAll()
	}
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusBadRequest, Result{
				Error:       MsgTooLarge,
				FieldErrors: map[string]string{FieldFiles: MsgTooLarge},
			})
			return
		}
		h.logger.Warn("quotes: failed to parse submission", "error", err)
		writeJSON(w, http.StatusBadRequest, Result{Error: MsgBadRequest})
		return
	}

	out := h.service.Submit(r.Context(), Request{
		Form: FormInput{
			Name:             r.PostFormValue(FieldName),
			Phone:            r.PostFormValue(FieldPhone),
			Email:            r.PostFormValue(FieldEmail),
			ServiceType:      r.PostFormValue(FieldServiceType),
			Location:         r.PostFormValue(FieldLocation),
			Description:      r.PostFormValue(FieldDescription),
			PreferredContact: r.PostFormValue(FieldPreferredContact),
		},
		Honeypot:  r.PostFormValue(HoneypotField),
		Files:     files,
		ClientKey: key,
		SourceIP:  sourceIP(r, key),
		UserAgent: r.UserAgent(),
		Admitted:  true,
	})

	writeJSON(w, statusFor(out), out.Result)
}

func (h *Handler) parse(r *http.Request) ([]FileInput, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != "multipart/form-data" {
		return nil, r.ParseForm()
	}
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		return nil, err
	}

	var files []FileInput
	for _, fh := range r.MultipartForm.File[FieldFiles] {
		files = append(files, FileInput{
			Filename:    fh.Filename,
			ContentType: fh.Header.Get("Content-Type"),
			Size:        fh.Size,
			Open: func() (io.ReadCloser, error) {
				return fh.Open()
			},
		})
	}
	return files, nil
}

func statusFor(out Outcome) int {
	switch {
	case out.RateLimited:
		return http.StatusTooManyRequests
	case out.Stage == StageFailed:
		return http.StatusInternalServerError
	case !out.Result.Success:
		return http.StatusBadRequest
	default:
		return http.StatusOK
	}
}

// sourceIP prefers the forwarded client address and falls back to the peer.
func sourceIP(r *http.Request, key string) string {
	if key != "" && key != ratelimit.UnknownKey {
		return key
	}
	host, _, err := net.SplitHostPort(strings.TrimSpace(r.RemoteAddr))
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
