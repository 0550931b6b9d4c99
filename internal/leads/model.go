package leads

import (
	"strings"
	"time"
	"unicode/utf8"
)

// Status is the staff workflow state of a quote request.
type Status string

const (
	StatusNew       Status = "NEW"
	StatusContacted Status = "CONTACTED"
	StatusScheduled Status = "SCHEDULED"
	StatusWon       Status = "WON"
	StatusLost      Status = "LOST"
)

// Statuses lists every workflow status. Any status may move to any other.
var Statuses = []Status{StatusNew, StatusContacted, StatusScheduled, StatusWon, StatusLost}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	for _, known := range Statuses {
		if s == known {
			return true
		}
	}
	return false
}

// ParseStatus normalizes case and validates.
func ParseStatus(raw string) (Status, error) {
	s := Status(strings.ToUpper(strings.TrimSpace(raw)))
	if !s.Valid() {
		return "", ErrInvalidStatus
	}
	return s, nil
}

// MaxUserAgentLength caps the stored user agent.
const MaxUserAgentLength = 500

// Lead represents a quote request submitted from the public site
type Lead struct {
	ID               string       `json:"id"`
	Name             string       `json:"name"`
	Phone            string       `json:"phone"`
	Email            string       `json:"email"`
	ServiceType      string       `json:"service_type"`
	Location         string       `json:"location,omitempty"`
	Description      string       `json:"description"`
	PreferredContact string       `json:"preferred_contact,omitempty"`
	SourceIP         string       `json:"source_ip,omitempty"`
	UserAgent        string       `json:"user_agent,omitempty"`
	Status           Status       `json:"status"`
	Notes            *string      `json:"notes"`
	CreatedAt        time.Time    `json:"created_at"`
	Attachments      []Attachment `json:"attachments,omitempty"`
}

// Attachment is a stored photo that belongs to exactly one lead.
type Attachment struct {
	ID           string    `json:"id"`
	LeadID       string    `json:"lead_id"`
	StoragePath  string    `json:"storage_path"`
	OriginalName string    `json:"original_name"`
	MimeType     string    `json:"mime_type"`
	SizeBytes    int64     `json:"size_bytes"`
	CreatedAt    time.Time `json:"created_at"`
}

// CreateLeadRequest carries already-normalized submission fields
type CreateLeadRequest struct {
	Name             string
	Phone            string
	Email            string
	ServiceType      string
	Location         string
	Description      string
	PreferredContact string
	SourceIP         string
	UserAgent        string
}

// Validate checks the fields the database cannot live without
func (r *CreateLeadRequest) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return ErrInvalidName
	}
	if r.Phone == "" || r.Email == "" {
		return ErrMissingContact
	}
	if strings.TrimSpace(r.Description) == "" {
		return ErrMissingDescription
	}
	return nil
}

// CreateAttachmentRequest records one uploaded object.
type CreateAttachmentRequest struct {
	LeadID       string
	StoragePath  string
	OriginalName string
	MimeType     string
	SizeBytes    int64
}

// UpdateLeadRequest is a staff edit. Nil fields are left untouched.
type UpdateLeadRequest struct {
	Status *Status `json:"status,omitempty"`
	Notes  *string `json:"notes,omitempty"`
}

// Validate rejects empty updates and unknown statuses.
func (r UpdateLeadRequest) Validate() error {
	if r.Status == nil && r.Notes == nil {
		return ErrEmptyUpdate
	}
	if r.Status != nil && !r.Status.Valid() {
		return ErrInvalidStatus
	}
	return nil
}

// ListFilter narrows the staff lead list.
type ListFilter struct {
	Status Status
	Limit  int
	Offset int
}

// truncateRunes cuts s to at most n runes without splitting a character.
func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n])
}
