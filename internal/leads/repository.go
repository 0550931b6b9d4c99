package leads

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Repository is the service-credential write path used by public intake.
type Repository interface {
	Create(ctx context.Context, req *CreateLeadRequest) (*Lead, error)
	CreateAttachment(ctx context.Context, req *CreateAttachmentRequest) (*Attachment, error)
}

// StaffRepository is the staff-credential read/update path.
type StaffRepository interface {
	List(ctx context.Context, filter ListFilter) ([]*Lead, error)
	Get(ctx context.Context, id string) (*Lead, error)
	Update(ctx context.Context, id string, req UpdateLeadRequest) (*Lead, error)
	// Delete removes the lead and its attachment rows and returns the
	// storage paths that belonged to it.
	Delete(ctx context.Context, id string) ([]string, error)
}

// Capabilities records which optional quote_requests columns exist.
type Capabilities struct {
	PreferredContact bool
	SourceIP         bool
	UserAgent        bool
}

// AllCapabilities assumes the current schema.
func AllCapabilities() Capabilities {
	return Capabilities{PreferredContact: true, SourceIP: true, UserAgent: true}
}

// InMemoryRepository implements Repository and StaffRepository with maps.
type InMemoryRepository struct {
	mu          sync.RWMutex
	leads       map[string]*Lead
	attachments map[string][]Attachment
}

// NewInMemoryRepository creates a new in-memory repository
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		leads:       make(map[string]*Lead),
		attachments: make(map[string][]Attachment),
	}
}

// Create creates a new lead in memory with status NEW
func (r *InMemoryRepository) Create(ctx context.Context, req *CreateLeadRequest) (*Lead, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	lead := &Lead{
		ID:               uuid.New().String(),
		Name:             req.Name,
		Phone:            req.Phone,
		Email:            req.Email,
		ServiceType:      req.ServiceType,
		Location:         req.Location,
		Description:      req.Description,
		PreferredContact: req.PreferredContact,
		SourceIP:         req.SourceIP,
		UserAgent:        truncateRunes(req.UserAgent, MaxUserAgentLength),
		Status:           StatusNew,
		CreatedAt:        time.Now().UTC(),
	}

	r.mu.Lock()
	r.leads[lead.ID] = lead
	r.mu.Unlock()

	copied := *lead
	return &copied, nil
}

// CreateAttachment records an attachment for an existing lead
func (r *InMemoryRepository) CreateAttachment(ctx context.Context, req *CreateAttachmentRequest) (*Attachment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.leads[req.LeadID]; !ok {
		return nil, ErrLeadNotFound
	}
	for _, existing := range r.attachments[req.LeadID] {
		if existing.StoragePath == req.StoragePath {
			return nil, ErrDuplicateStoragePath
		}
	}
	att := Attachment{
		ID:           uuid.New().String(),
		LeadID:       req.LeadID,
		StoragePath:  req.StoragePath,
		OriginalName: req.OriginalName,
		MimeType:     req.MimeType,
		SizeBytes:    req.SizeBytes,
		CreatedAt:    time.Now().UTC(),
	}
	r.attachments[req.LeadID] = append(r.attachments[req.LeadID], att)
	return &att, nil
}

// List returns leads newest first
func (r *InMemoryRepository) List(ctx context.Context, filter ListFilter) ([]*Lead, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Lead, 0, len(r.leads))
	for _, lead := range r.leads {
		if filter.Status != "" && lead.Status != filter.Status {
			continue
		}
		copied := *lead
		out = append(out, &copied)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })

	if filter.Offset > 0 {
		if filter.Offset >= len(out) {
			return []*Lead{}, nil
		}
		out = out[filter.Offset:]
	}
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

// Get retrieves a lead by ID together with its attachments
func (r *InMemoryRepository) Get(ctx context.Context, id string) (*Lead, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	lead, ok := r.leads[id]
	if !ok {
		return nil, ErrLeadNotFound
	}
	copied := *lead
	copied.Attachments = append([]Attachment(nil), r.attachments[id]...)
	return &copied, nil
}

// Update applies a staff edit
func (r *InMemoryRepository) Update(ctx context.Context, id string, req UpdateLeadRequest) (*Lead, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	lead, ok := r.leads[id]
	if !ok {
		r.mu.Unlock()
		return nil, ErrLeadNotFound
	}
	if req.Status != nil {
		lead.Status = *req.Status
	}
	if req.Notes != nil {
		notes := *req.Notes
		lead.Notes = &notes
	}
	r.mu.Unlock()
	return r.Get(ctx, id)
}

// Delete removes the lead and cascades to its attachments
func (r *InMemoryRepository) Delete(ctx context.Context, id string) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.leads[id]; !ok {
		return nil, ErrLeadNotFound
	}
	var paths []string
	for _, att := range r.attachments[id] {
		paths = append(paths, att.StoragePath)
	}
	delete(r.leads, id)
	delete(r.attachments, id)
	return paths, nil
}

// Count returns the number of stored leads.
func (r *InMemoryRepository) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.leads)
}

// AttachmentCount returns the number of stored attachments across leads.
func (r *InMemoryRepository) AttachmentCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for _, atts := range r.attachments {
		n += len(atts)
	}
	return n
}
