package content

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"

	"github.com/fjstoneservices/site-api/pkg/logging"
)

// ErrInvalidBlock wraps payload validation failures.
var ErrInvalidBlock = errors.New("content: invalid block")

// FieldError names one failed validation rule.
type FieldError struct {
	Field string `json:"field"`
	Rule  string `json:"rule"`
}

// ValidationError lists every failed rule in the payload.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("content: invalid block (%d field errors)", len(e.Fields))
}

func (e *ValidationError) Unwrap() error { return ErrInvalidBlock }

// Store persists content blocks.
type Store interface {
	Upsert(ctx context.Context, key, page string, blockType BlockType, value BlockValue) (*Block, error)
}

// Service validates and sanitizes staff edits before storing them.
type Service struct {
	store    Store
	validate *validator.Validate
	policy   *bluemonday.Policy
	logger   *logging.Logger
}

// NewService creates a content service.
func NewService(store Store, validate *validator.Validate, logger *logging.Logger) *Service {
	if store == nil {
		panic("content: store required")
	}
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{
		store:    store,
		validate: validate,
		policy:   bluemonday.UGCPolicy(),
		logger:   logger,
	}
}

// Update validates req, sanitizes rich text and upserts the block by key.
// Plain text is stored as entered and escaped when rendered.
func (s *Service) Update(ctx context.Context, req UpdateBlockRequest) (*Block, error) {
	if err := s.validate.StructCtx(ctx, req); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			out := &ValidationError{}
			for _, fe := range verrs {
				out.Fields = append(out.Fields, FieldError{Field: fe.Namespace(), Rule: fe.Tag()})
			}
			return nil, out
		}
		return nil, fmt.Errorf("content: validate: %w", err)
	}

	value := req.Value
	if value.HTML != "" {
		value.HTML = s.policy.Sanitize(value.HTML)
	}

	block, err := s.store.Upsert(ctx, req.Key, PageForKey(req.Key), req.BlockType, value)
	if err != nil {
		return nil, fmt.Errorf("content: upsert %s: %w", req.Key, err)
	}
	s.logger.Info("content: block updated", "key", block.Key, "page", block.Page, "block_type", block.BlockType)
	return block, nil
}
