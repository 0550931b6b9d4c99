package leads

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fjstoneservices/site-api/pkg/logging"
)

const leadsTable = "quote_requests"

type pgxQuerier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresRepository writes leads with the service credential. The quote
// tables are otherwise staff-only, so this pool must never be handed to
// read paths.
type PostgresRepository struct {
	pool   pgxQuerier
	logger *logging.Logger

	mu   sync.RWMutex
	caps Capabilities
}

// NewPostgresRepository initializes a repo backed by pgxpool.
func NewPostgresRepository(pool *pgxpool.Pool, logger *logging.Logger) *PostgresRepository {
	if pool == nil {
		panic("leads: pgx pool required")
	}
	return newPostgresRepositoryWithExec(pool, logger)
}

func newPostgresRepositoryWithExec(exec pgxQuerier, logger *logging.Logger) *PostgresRepository {
	if exec == nil {
		panic("leads: exec required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &PostgresRepository{pool: exec, logger: logger, caps: AllCapabilities()}
}

// DetectCapabilities inspects the live schema once and records which
// optional columns Create may write. Call it before serving traffic.
func (r *PostgresRepository) DetectCapabilities(ctx context.Context) (Capabilities, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT column_name
		FROM information_schema.columns
		WHERE table_schema = current_schema() AND table_name = $1
	`, leadsTable)
	if err != nil {
		return Capabilities{}, fmt.Errorf("leads: detect columns: %w", err)
	}
	defer rows.Close()

	var caps Capabilities
	for rows.Next() {
		var column string
		if err := rows.Scan(&column); err != nil {
			return Capabilities{}, fmt.Errorf("leads: scan column: %w", err)
		}
		switch column {
		case "preferred_contact":
			caps.PreferredContact = true
		case "source_ip":
			caps.SourceIP = true
		case "user_agent":
			caps.UserAgent = true
		}
	}
	if err := rows.Err(); err != nil {
		return Capabilities{}, fmt.Errorf("leads: detect columns: %w", err)
	}

	r.mu.Lock()
	r.caps = caps
	r.mu.Unlock()

	r.logger.Info("lead schema capabilities detected",
		"preferred_contact", caps.PreferredContact,
		"source_ip", caps.SourceIP,
		"user_agent", caps.UserAgent,
	)
	return caps, nil
}

// Capabilities returns the detected column set.
func (r *PostgresRepository) Capabilities() Capabilities {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.caps
}

// Create inserts a new row with status NEW.
func (r *PostgresRepository) Create(ctx context.Context, req *CreateLeadRequest) (*Lead, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	caps := r.Capabilities()

	id := uuid.New().String()
	columns := []string{"id", "name", "phone", "email", "service_type", "location", "description", "status"}
	args := []any{id, req.Name, req.Phone, req.Email, req.ServiceType, nullIfEmpty(req.Location), req.Description, string(StatusNew)}

	lead := &Lead{
		ID:          id,
		Name:        req.Name,
		Phone:       req.Phone,
		Email:       req.Email,
		ServiceType: req.ServiceType,
		Location:    req.Location,
		Description: req.Description,
		Status:      StatusNew,
	}
	if caps.PreferredContact {
		columns = append(columns, "preferred_contact")
		args = append(args, nullIfEmpty(req.PreferredContact))
		lead.PreferredContact = req.PreferredContact
	}
	if caps.SourceIP {
		columns = append(columns, "source_ip")
		args = append(args, nullIfEmpty(req.SourceIP))
		lead.SourceIP = req.SourceIP
	}
	if caps.UserAgent {
		ua := truncateRunes(req.UserAgent, MaxUserAgentLength)
		columns = append(columns, "user_agent")
		args = append(args, nullIfEmpty(ua))
		lead.UserAgent = ua
	}

	placeholders := make([]string, len(columns))
	for i := range columns {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}
	query := fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s) RETURNING created_at",
		leadsTable, strings.Join(columns, ", "), strings.Join(placeholders, ", "),
	)

	var createdAt time.Time
	if err := r.pool.QueryRow(ctx, query, args...).Scan(&createdAt); err != nil {
		return nil, fmt.Errorf("leads: insert failed: %w", err)
	}
	lead.CreatedAt = createdAt
	return lead, nil
}

// CreateAttachment inserts one attachment row.
func (r *PostgresRepository) CreateAttachment(ctx context.Context, req *CreateAttachmentRequest) (*Attachment, error) {
	id := uuid.New().String()
	query := `
		INSERT INTO quote_request_files (id, quote_request_id, storage_path, original_name, mime_type, size_bytes)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at
	`
	var createdAt time.Time
	if err := r.pool.QueryRow(ctx, query,
		id,
		req.LeadID,
		req.StoragePath,
		req.OriginalName,
		req.MimeType,
		req.SizeBytes,
	).Scan(&createdAt); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			switch pgErr.Code {
			case "23503":
				return nil, ErrLeadNotFound
			case "23505":
				return nil, ErrDuplicateStoragePath
			}
		}
		return nil, fmt.Errorf("leads: insert attachment failed: %w", err)
	}
	return &Attachment{
		ID:           id,
		LeadID:       req.LeadID,
		StoragePath:  req.StoragePath,
		OriginalName: req.OriginalName,
		MimeType:     req.MimeType,
		SizeBytes:    req.SizeBytes,
		CreatedAt:    createdAt,
	}, nil
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
