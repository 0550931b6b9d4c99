package leads

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// SQLStaffRepository serves the admin area over the low-privilege staff
// credential.
type SQLStaffRepository struct {
	db   *sqlx.DB
	caps Capabilities
}

// NewSQLStaffRepository constructs the repository. caps should come from
// PostgresRepository.DetectCapabilities so both paths agree on the schema.
func NewSQLStaffRepository(db *sqlx.DB, caps Capabilities) *SQLStaffRepository {
	if db == nil {
		panic("leads: sqlx db required")
	}
	return &SQLStaffRepository{db: db, caps: caps}
}

type leadRow struct {
	ID               string         `db:"id"`
	Name             string         `db:"name"`
	Phone            string         `db:"phone"`
	Email            string         `db:"email"`
	ServiceType      string         `db:"service_type"`
	Location         sql.NullString `db:"location"`
	Description      string         `db:"description"`
	PreferredContact sql.NullString `db:"preferred_contact"`
	SourceIP         sql.NullString `db:"source_ip"`
	UserAgent        sql.NullString `db:"user_agent"`
	Status           string         `db:"status"`
	Notes            sql.NullString `db:"notes"`
	CreatedAt        time.Time      `db:"created_at"`
}

func (row leadRow) toLead() *Lead {
	lead := &Lead{
		ID:               row.ID,
		Name:             row.Name,
		Phone:            row.Phone,
		Email:            row.Email,
		ServiceType:      row.ServiceType,
		Location:         row.Location.String,
		Description:      row.Description,
		PreferredContact: row.PreferredContact.String,
		SourceIP:         row.SourceIP.String,
		UserAgent:        row.UserAgent.String,
		Status:           Status(row.Status),
		CreatedAt:        row.CreatedAt,
	}
	if row.Notes.Valid {
		notes := row.Notes.String
		lead.Notes = &notes
	}
	return lead
}

type attachmentRow struct {
	ID           string    `db:"id"`
	LeadID       string    `db:"quote_request_id"`
	StoragePath  string    `db:"storage_path"`
	OriginalName string    `db:"original_name"`
	MimeType     string    `db:"mime_type"`
	SizeBytes    int64     `db:"size_bytes"`
	CreatedAt    time.Time `db:"created_at"`
}

func (r *SQLStaffRepository) selectColumns() string {
	optional := func(present bool, column string) string {
		if present {
			return column
		}
		return "NULL AS " + column
	}
	return strings.Join([]string{
		"id", "name", "phone", "email", "service_type", "location", "description",
		optional(r.caps.PreferredContact, "preferred_contact"),
		optional(r.caps.SourceIP, "source_ip"),
		optional(r.caps.UserAgent, "user_agent"),
		"status", "notes", "created_at",
	}, ", ")
}

// List returns leads newest first.
func (r *SQLStaffRepository) List(ctx context.Context, filter ListFilter) ([]*Lead, error) {
	var (
		where []string
		args  []any
	)
	if filter.Status != "" {
		if !filter.Status.Valid() {
			return nil, ErrInvalidStatus
		}
		args = append(args, string(filter.Status))
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}

	query := "SELECT " + r.selectColumns() + " FROM quote_requests"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at DESC"
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	var rows []leadRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("leads: list failed: %w", err)
	}
	out := make([]*Lead, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toLead())
	}
	return out, nil
}

// Get returns one lead with its attachments.
func (r *SQLStaffRepository) Get(ctx context.Context, id string) (*Lead, error) {
	var row leadRow
	query := "SELECT " + r.selectColumns() + " FROM quote_requests WHERE id = $1"
	if err := r.db.GetContext(ctx, &row, query, id); err != nil {
		return nil, mapStaffError("select", err)
	}
	lead := row.toLead()

	var atts []attachmentRow
	const attQuery = `SELECT id, quote_request_id, storage_path, original_name, mime_type, size_bytes, created_at
		FROM quote_request_files WHERE quote_request_id = $1 ORDER BY created_at`
	if err := r.db.SelectContext(ctx, &atts, attQuery, id); err != nil {
		return nil, fmt.Errorf("leads: select attachments failed: %w", err)
	}
	for _, a := range atts {
		lead.Attachments = append(lead.Attachments, Attachment(a))
	}
	return lead, nil
}

// Update changes status and/or notes.
func (r *SQLStaffRepository) Update(ctx context.Context, id string, req UpdateLeadRequest) (*Lead, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	var (
		sets []string
		args []any
	)
	if req.Status != nil {
		args = append(args, string(*req.Status))
		sets = append(sets, fmt.Sprintf("status = $%d", len(args)))
	}
	if req.Notes != nil {
		args = append(args, *req.Notes)
		sets = append(sets, fmt.Sprintf("notes = $%d", len(args)))
	}
	args = append(args, id)
	query := fmt.Sprintf("UPDATE quote_requests SET %s WHERE id = $%d", strings.Join(sets, ", "), len(args))

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, mapStaffError("update", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return nil, ErrLeadNotFound
	}
	return r.Get(ctx, id)
}

// Delete removes the lead. Attachment rows go with it through the foreign
// key cascade; their storage paths are read first so the caller can remove
// the objects.
func (r *SQLStaffRepository) Delete(ctx context.Context, id string) ([]string, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("leads: begin delete: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	var paths []string
	if err := tx.SelectContext(ctx, &paths, `SELECT storage_path FROM quote_request_files WHERE quote_request_id = $1`, id); err != nil {
		return nil, mapStaffError("select paths", err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM quote_requests WHERE id = $1`, id)
	if err != nil {
		return nil, mapStaffError("delete", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return nil, ErrLeadNotFound
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("leads: commit delete: %w", err)
	}
	return paths, nil
}

func mapStaffError(action string, err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrLeadNotFound
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case "22P02": // invalid_text_representation, e.g. a malformed uuid
			return ErrLeadNotFound
		case "23514": // check_violation on status
			return ErrInvalidStatus
		}
	}
	return fmt.Errorf("leads: %s failed: %w", action, err)
}
