// Package quotes implements the public quote intake pipeline: validation,
// abuse checks, lead persistence, photo storage and staff notification.
package quotes

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"

	"github.com/fjstoneservices/site-api/internal/leads"
	"github.com/fjstoneservices/site-api/internal/notify"
	"github.com/fjstoneservices/site-api/internal/observability/metrics"
	"github.com/fjstoneservices/site-api/internal/storage"
	"github.com/fjstoneservices/site-api/pkg/logging"
)

var tracer = otel.Tracer("site.internal.quotes")

// Stage is a state of the submission state machine.
type Stage string

const (
	StageReceived       Stage = "RECEIVED"
	StageRateChecked    Stage = "RATE_CHECKED"
	StageAbuseChecked   Stage = "ABUSE_CHECKED"
	StageValidated      Stage = "VALIDATED"
	StagePersisted      Stage = "PERSISTED"
	StageFilesProcessed Stage = "FILES_PROCESSED"
	StageNotified       Stage = "NOTIFIED"
	StageDone           Stage = "DONE"
	StageRejected       Stage = "REJECTED"
	StageFailed         Stage = "FAILED"
)

// RateLimiter gates submissions per client key.
type RateLimiter interface {
	Allow(ctx context.Context, key string) bool
}

// Notifier delivers the staff email.
type Notifier interface {
	Send(ctx context.Context, data notify.QuoteEmail) error
}

// Request is one submission as received from the transport.
type Request struct {
	Form      FormInput
	Honeypot  string
	Files     []FileInput
	ClientKey string
	SourceIP  string
	UserAgent string
	// Admitted marks a request that already passed Admit so the rate
	// budget is charged once.
	Admitted bool
}

// Result is what the client sees.
type Result struct {
	Success     bool              `json:"success"`
	Error       string            `json:"error,omitempty"`
	FieldErrors map[string]string `json:"fieldErrors,omitempty"`
	RequestID   string            `json:"requestId,omitempty"`
}

// StoredAttachment reports what happened to one uploaded file.
type StoredAttachment struct {
	OriginalName string
	StoragePath  string
	ContentType  string
	SizeBytes    int64
	Uploaded     bool
	Recorded     bool
	URL          *string
}

// Outcome is the full internal result of Submit. Only Result is returned to
// the client.
type Outcome struct {
	Result      Result
	Stage       Stage
	RateLimited bool
	Honeypot    bool
	Attachments []StoredAttachment
	Notified    bool
}

func (o Outcome) label() string {
	switch {
	case o.RateLimited:
		return "rate_limited"
	case o.Honeypot:
		return "honeypot"
	case o.Stage == StageFailed:
		return "failed"
	case o.Stage == StageRejected:
		return "rejected"
	default:
		return "success"
	}
}

// Config tunes the pipeline.
type Config struct {
	FilePolicy        FilePolicy
	LinkTTL           time.Duration
	DBTimeout         time.Duration
	StorageTimeout    time.Duration
	EmailTimeout      time.Duration
	UploadConcurrency int
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		FilePolicy:        DefaultFilePolicy(),
		LinkTTL:           24 * time.Hour,
		DBTimeout:         5 * time.Second,
		StorageTimeout:    15 * time.Second,
		EmailTimeout:      10 * time.Second,
		UploadConcurrency: 3,
	}
}

// Service orchestrates a submission. Everything before the lead insert fails
// closed, everything after it fails open.
type Service struct {
	repo     leads.Repository
	store    storage.ObjectStore
	limiter  RateLimiter
	notifier Notifier
	cfg      Config
	metrics  *metrics.QuoteMetrics
	logger   *logging.Logger
	now      func() time.Time
}

// NewService wires the pipeline. A nil limiter disables rate limiting and a
// nil notifier disables email.
func NewService(repo leads.Repository, store storage.ObjectStore, limiter RateLimiter, notifier Notifier, cfg Config, m *metrics.QuoteMetrics, logger *logging.Logger) *Service {
	if repo == nil {
		panic("quotes: lead repository required")
	}
	if store == nil {
		panic("quotes: object store required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	defaults := DefaultConfig()
	if cfg.FilePolicy.MaxFiles <= 0 || cfg.FilePolicy.MaxBytes <= 0 || len(cfg.FilePolicy.AllowedTypes) == 0 {
		cfg.FilePolicy = defaults.FilePolicy
	}
	if cfg.LinkTTL <= 0 {
		cfg.LinkTTL = defaults.LinkTTL
	}
	if cfg.DBTimeout <= 0 {
		cfg.DBTimeout = defaults.DBTimeout
	}
	if cfg.StorageTimeout <= 0 {
		cfg.StorageTimeout = defaults.StorageTimeout
	}
	if cfg.EmailTimeout <= 0 {
		cfg.EmailTimeout = defaults.EmailTimeout
	}
	if cfg.UploadConcurrency <= 0 {
		cfg.UploadConcurrency = defaults.UploadConcurrency
	}
	return &Service{
		repo:     repo,
		store:    store,
		limiter:  limiter,
		notifier: notifier,
		cfg:      cfg,
		metrics:  m,
		logger:   logger,
		now:      time.Now,
	}
}

// Submit runs one submission to completion. Caller cancellation is ignored
// once the request is received; each network step has its own timeout.
func (s *Service) Submit(ctx context.Context, req Request) Outcome {
	start := s.now()
	ctx = context.WithoutCancel(ctx)
	ctx, span := tracer.Start(ctx, "quotes.submit")
	defer span.End()

	out := s.submit(ctx, req)

	span.SetAttributes(
		attribute.String("quotes.stage", string(out.Stage)),
		attribute.String("quotes.outcome", out.label()),
		attribute.Int("quotes.attachments", len(out.Attachments)),
	)
	if out.Stage == StageFailed {
		span.SetStatus(codes.Error, "lead insert failed")
	}
	s.metrics.ObserveSubmission(out.label(), s.now().Sub(start).Seconds())
	return out
}

// Admit runs only the rate check. The transport calls it before reading
// the body; a false return carries the final rejected Outcome.
func (s *Service) Admit(ctx context.Context, clientKey string) (Outcome, bool) {
	start := s.now()
	out, ok := s.admit(ctx, clientKey)
	if !ok {
		s.metrics.ObserveSubmission(out.label(), s.now().Sub(start).Seconds())
	}
	return out, ok
}

func (s *Service) admit(ctx context.Context, clientKey string) (Outcome, bool) {
	if s.limiter == nil || s.limiter.Allow(ctx, clientKey) {
		return Outcome{Stage: StageRateChecked}, true
	}
	s.metrics.ObserveRateLimited()
	s.logger.Warn("quotes: rate limited", "client", clientKey, "stage", StageReceived)
	return Outcome{
		Stage:       StageRejected,
		RateLimited: true,
		Result:      Result{Success: false, Error: MsgRateLimited},
	}, false
}

func (s *Service) submit(ctx context.Context, req Request) Outcome {
	log := s.logger.With("client", req.ClientKey)

	if !req.Admitted {
		if out, ok := s.admit(ctx, req.ClientKey); !ok {
			return out
		}
	}
	stage := StageRateChecked

	if IsHoneypotTripped(req.Honeypot) {
		log.Info("quotes: honeypot tripped, discarding submission", "stage", stage)
		return Outcome{
			Stage:    StageRejected,
			Honeypot: true,
			Result:   Result{Success: true},
		}
	}
	stage = StageAbuseChecked

	sub, verr := ValidateForm(req.Form)
	files, ferr := ValidateFiles(req.Files, s.cfg.FilePolicy)
	if ferr != nil {
		if verr == nil {
			verr = &ValidationError{}
		}
		verr.add(FieldFiles, ferr.Error())
		verr = verr.finalize()
	}
	if verr != nil {
		log.Info("quotes: validation failed", "stage", stage, "fields", len(verr.Fields))
		return Outcome{
			Stage:  StageRejected,
			Result: Result{Success: false, Error: verr.Message, FieldErrors: verr.Fields},
		}
	}
	if !sub.KnownService {
		log.Debug("quotes: service type outside known categories", "service_type", sub.ServiceType)
	}
	stage = StageValidated

	lead, err := s.persist(ctx, sub, req)
	if err != nil {
		log.Error("quotes: failed to insert lead", "error", err, "stage", stage)
		return Outcome{
			Stage:  StageFailed,
			Result: Result{Success: false, Error: MsgSubmitFailed},
		}
	}
	log = log.With("lead_id", lead.ID)
	out := Outcome{
		Stage:  StagePersisted,
		Result: Result{Success: true, RequestID: lead.ID},
	}

	// Past this point nothing changes the result.
	out.Attachments = s.storeFiles(ctx, lead.ID, files, log)
	s.signLinks(ctx, out.Attachments, log)
	out.Stage = StageFilesProcessed

	out.Notified = s.notify(ctx, lead, sub, out.Attachments, log)
	out.Stage = StageNotified

	log.Info("quotes: submission complete", "files", len(files), "notified", out.Notified)
	out.Stage = StageDone
	return out
}

func (s *Service) persist(ctx context.Context, sub *Submission, req Request) (*leads.Lead, error) {
	ctx, span := tracer.Start(ctx, "quotes.persist")
	defer span.End()
	ctx, cancel := context.WithTimeout(ctx, s.cfg.DBTimeout)
	defer cancel()

	lead, err := s.repo.Create(ctx, &leads.CreateLeadRequest{
		Name:             sub.Name,
		Phone:            sub.Phone,
		Email:            sub.Email,
		ServiceType:      sub.ServiceType,
		Location:         sub.Location,
		Description:      sub.Description,
		PreferredContact: string(sub.PreferredContact),
		SourceIP:         req.SourceIP,
		UserAgent:        req.UserAgent,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "insert failed")
		return nil, err
	}
	span.SetAttributes(attribute.String("quotes.lead_id", lead.ID))
	return lead, nil
}

// storeFiles uploads and records each file. Uploads run concurrently and are
// all joined before returning; results keep the input order.
func (s *Service) storeFiles(ctx context.Context, leadID string, files []FileInput, log *logging.Logger) []StoredAttachment {
	if len(files) == 0 {
		return nil
	}
	results := make([]StoredAttachment, len(files))
	var g errgroup.Group
	g.SetLimit(s.cfg.UploadConcurrency)
	for i, f := range files {
		g.Go(func() error {
			results[i] = s.storeFile(ctx, leadID, f, log)
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func (s *Service) storeFile(ctx context.Context, leadID string, f FileInput, log *logging.Logger) StoredAttachment {
	contentType := normalizeContentType(f.ContentType)
	att := StoredAttachment{
		OriginalName: f.Filename,
		ContentType:  contentType,
		SizeBytes:    f.Size,
		StoragePath:  BuildStoragePath(leadID, SanitizeExtension(f.Filename, contentType), s.now(), newPathToken()),
	}

	ctx, span := tracer.Start(ctx, "quotes.upload")
	defer span.End()
	span.SetAttributes(attribute.String("quotes.storage_path", att.StoragePath))

	if err := s.upload(ctx, f, att); err != nil {
		span.RecordError(err)
		s.metrics.ObserveAttachment("upload_failed")
		log.Warn("quotes: attachment upload failed, skipping file", "error", err, "file", f.Filename)
		return att
	}
	att.Uploaded = true

	dbCtx, cancel := context.WithTimeout(ctx, s.cfg.DBTimeout)
	defer cancel()
	if _, err := s.repo.CreateAttachment(dbCtx, &leads.CreateAttachmentRequest{
		LeadID:       leadID,
		StoragePath:  att.StoragePath,
		OriginalName: f.Filename,
		MimeType:     contentType,
		SizeBytes:    f.Size,
	}); err != nil {
		span.RecordError(err)
		s.metrics.ObserveAttachment("record_failed")
		log.Error("quotes: attachment record failed, object left in storage", "error", err, "storage_path", att.StoragePath)
		return att
	}
	att.Recorded = true
	s.metrics.ObserveAttachment("stored")
	return att
}

func (s *Service) upload(ctx context.Context, f FileInput, att StoredAttachment) error {
	if f.Open == nil {
		return errors.New("quotes: file has no content")
	}
	body, err := f.Open()
	if err != nil {
		return err
	}
	defer body.Close()

	ctx, cancel := context.WithTimeout(ctx, s.cfg.StorageTimeout)
	defer cancel()
	return s.store.Put(ctx, storage.PutObjectInput{
		Path:        att.StoragePath,
		Body:        body,
		Size:        att.SizeBytes,
		ContentType: att.ContentType,
	})
}

// signLinks issues a time-limited link per recorded attachment. A failed
// signature leaves URL nil.
func (s *Service) signLinks(ctx context.Context, atts []StoredAttachment, log *logging.Logger) {
	for i := range atts {
		if !atts[i].Recorded {
			continue
		}
		signCtx, cancel := context.WithTimeout(ctx, s.cfg.StorageTimeout)
		url, err := s.store.SignedURL(signCtx, atts[i].StoragePath, s.cfg.LinkTTL)
		cancel()
		if err != nil {
			s.metrics.ObserveAttachment("sign_failed")
			log.Warn("quotes: signed url failed", "error", err, "storage_path", atts[i].StoragePath)
			continue
		}
		atts[i].URL = &url
	}
}

func (s *Service) notify(ctx context.Context, lead *leads.Lead, sub *Submission, atts []StoredAttachment, log *logging.Logger) bool {
	if s.notifier == nil {
		s.metrics.ObserveNotification("disabled")
		return false
	}
	ctx, span := tracer.Start(ctx, "quotes.notify")
	defer span.End()

	var links []notify.PhotoLink
	for _, att := range atts {
		if !att.Recorded {
			continue
		}
		links = append(links, notify.PhotoLink{Name: att.OriginalName, URL: att.URL})
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.EmailTimeout)
	defer cancel()
	err := s.notifier.Send(ctx, notify.QuoteEmail{
		RequestID:        lead.ID,
		Name:             sub.Name,
		Phone:            sub.Phone,
		PhoneDisplay:     FormatPhoneForDisplay(sub.Phone),
		Email:            sub.Email,
		ServiceType:      sub.ServiceType,
		Location:         sub.Location,
		Description:      sub.Description,
		PreferredContact: string(sub.PreferredContact),
		FileCount:        len(links),
		SubmittedAt:      lead.CreatedAt,
		PhotoLinks:       links,
	})
	switch {
	case errors.Is(err, notify.ErrEmailDisabled):
		s.metrics.ObserveNotification("disabled")
		return false
	case err != nil:
		span.RecordError(err)
		s.metrics.ObserveNotification("failed")
		log.Error("quotes: notification failed, lead is stored", "error", err)
		return false
	}
	s.metrics.ObserveNotification("sent")
	return true
}
