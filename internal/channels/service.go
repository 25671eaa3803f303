package channels

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/feedbackhub/feedbackhub/internal/shared"
)

const maxFields = 32

// RepositoryPort defines data access methods for channels.
type RepositoryPort interface {
	ListChannels(ctx context.Context, projectID int64) ([]Channel, error)
	GetChannel(ctx context.Context, projectID, id int64) (Channel, error)
	CreateChannel(ctx context.Context, ch Channel) (Channel, error)
	UpdateChannel(ctx context.Context, ch Channel) (Channel, error)
	DeleteChannel(ctx context.Context, projectID, id int64) error
}

// Service handles channel schema business logic.
type Service struct {
	repo RepositoryPort
}

// NewService builds Service instance.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

// ListChannels returns the project's channels.
func (s *Service) ListChannels(ctx context.Context, projectID int64) ([]Channel, error) {
	return s.repo.ListChannels(ctx, projectID)
}

// GetChannel returns a single channel.
func (s *Service) GetChannel(ctx context.Context, projectID, id int64) (Channel, error) {
	return s.repo.GetChannel(ctx, projectID, id)
}

// CreateChannel validates the field schema and persists the channel.
func (s *Service) CreateChannel(ctx context.Context, projectID int64, name, description string, fields []FieldDef) (Channel, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Channel{}, fmt.Errorf("channel name required: %w", shared.ErrValidation)
	}
	normalized, err := normalizeFields(fields)
	if err != nil {
		return Channel{}, err
	}
	return s.repo.CreateChannel(ctx, Channel{
		ProjectID:   projectID,
		Name:        name,
		Description: strings.TrimSpace(description),
		Fields:      normalized,
	})
}

// UpdateChannel replaces the channel's schema. Existing feedback entries keep
// the values they were submitted with; only new submissions are validated
// against the updated schema.
func (s *Service) UpdateChannel(ctx context.Context, projectID, id int64, name, description string, fields []FieldDef) (Channel, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Channel{}, fmt.Errorf("channel name required: %w", shared.ErrValidation)
	}
	normalized, err := normalizeFields(fields)
	if err != nil {
		return Channel{}, err
	}
	return s.repo.UpdateChannel(ctx, Channel{
		ID:          id,
		ProjectID:   projectID,
		Name:        name,
		Description: strings.TrimSpace(description),
		Fields:      normalized,
	})
}

// DeleteChannel removes the channel if nothing references it.
func (s *Service) DeleteChannel(ctx context.Context, projectID, id int64) error {
	return s.repo.DeleteChannel(ctx, projectID, id)
}

// normalizeFields trims keys, lowercases them, and rejects invalid schemas.
func normalizeFields(fields []FieldDef) ([]FieldDef, error) {
	if len(fields) > maxFields {
		return nil, fmt.Errorf("at most %d fields per channel: %w", maxFields, shared.ErrValidation)
	}
	seen := make(map[string]struct{}, len(fields))
	out := make([]FieldDef, 0, len(fields))
	for _, f := range fields {
		f.Key = strings.ToLower(strings.TrimSpace(f.Key))
		f.Label = strings.TrimSpace(f.Label)
		if f.Key == "" {
			return nil, fmt.Errorf("field key required: %w", shared.ErrValidation)
		}
		if _, dup := seen[f.Key]; dup {
			return nil, fmt.Errorf("duplicate field key %q: %w", f.Key, shared.ErrValidation)
		}
		seen[f.Key] = struct{}{}
		if !validFieldType(f.Type) {
			return nil, fmt.Errorf("unknown field type %q: %w", f.Type, shared.ErrValidation)
		}
		if f.Type == FieldSelect && len(f.Options) == 0 {
			return nil, fmt.Errorf("select field %q needs options: %w", f.Key, shared.ErrValidation)
		}
		if f.Type != FieldSelect && len(f.Options) > 0 {
			return nil, fmt.Errorf("field %q does not take options: %w", f.Key, shared.ErrValidation)
		}
		if f.Label == "" {
			f.Label = f.Key
		}
		out = append(out, f)
	}
	return out, nil
}

// ValidatePayload checks a submitted field map against the channel schema.
// Unknown keys are rejected; required fields must be present and non-empty.
func ValidatePayload(fields []FieldDef, payload map[string]any) error {
	defs := make(map[string]FieldDef, len(fields))
	for _, f := range fields {
		defs[f.Key] = f
	}
	for key := range payload {
		if _, ok := defs[key]; !ok {
			return fmt.Errorf("unknown field %q: %w", key, shared.ErrValidation)
		}
	}
	for _, f := range fields {
		value, present := payload[f.Key]
		if !present || value == nil {
			if f.Required {
				return fmt.Errorf("field %q required: %w", f.Key, shared.ErrValidation)
			}
			continue
		}
		if err := validateValue(f, value); err != nil {
			return err
		}
	}
	return nil
}

func validateValue(f FieldDef, value any) error {
	switch f.Type {
	case FieldText, FieldKeyword:
		s, ok := value.(string)
		if !ok {
			return fmt.Errorf("field %q must be a string: %w", f.Key, shared.ErrValidation)
		}
		if f.Required && strings.TrimSpace(s) == "" {
			return fmt.Errorf("field %q required: %w", f.Key, shared.ErrValidation)
		}
	case FieldNumber:
		switch v := value.(type) {
		case float64:
		case int, int64:
		case string:
			if _, err := strconv.ParseFloat(v, 64); err != nil {
				return fmt.Errorf("field %q must be a number: %w", f.Key, shared.ErrValidation)
			}
		default:
			return fmt.Errorf("field %q must be a number: %w", f.Key, shared.ErrValidation)
		}
	case FieldDate:
		s, ok := value.(string)
		if !ok {
			return fmt.Errorf("field %q must be a date string: %w", f.Key, shared.ErrValidation)
		}
		if _, err := time.Parse(time.RFC3339, s); err != nil {
			if _, err := time.Parse("2006-01-02", s); err != nil {
				return fmt.Errorf("field %q must be an RFC 3339 date: %w", f.Key, shared.ErrValidation)
			}
		}
	case FieldSelect:
		s, ok := value.(string)
		if !ok {
			return fmt.Errorf("field %q must be a string: %w", f.Key, shared.ErrValidation)
		}
		for _, opt := range f.Options {
			if s == opt {
				return nil
			}
		}
		return fmt.Errorf("field %q must be one of its options: %w", f.Key, shared.ErrValidation)
	}
	return nil
}
