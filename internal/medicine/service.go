package medicine

import (
	"context"
	"errors"

	"github.com/rs/zerolog"
)

// Store is the persistence contract the Service depends on.
type Store interface {
	Create(ctx context.Context, f Fields) (*Medicine, error)
	Update(ctx context.Context, id int64, f Fields) (*Medicine, error)
	GetByID(ctx context.Context, id int64) (*Medicine, error)
	List(ctx context.Context, query string) ([]Medicine, error)
	Delete(ctx context.Context, id int64) error
}

var _ Store = (*Repository)(nil)

// Service exposes catalog operations. Fields pass through unmodified.
type Service struct {
	repo Store
	log  zerolog.Logger
}

// NewService creates a new medicine Service.
func NewService(repo Store, log zerolog.Logger) *Service {
	return &Service{
		repo: repo,
		log:  log.With().Str("component", "medicine-service").Logger(),
	}
}

// Create adds a medicine to the catalog.
func (s *Service) Create(ctx context.Context, f Fields) (*Medicine, error) {
	m, err := s.repo.Create(ctx, f)
	if err != nil {
		return nil, err
	}
	s.log.Info().Int64("medicine_id", m.ID).Msg("medicine created")
	return m, nil
}

// Update replaces all fields of the medicine with id.
func (s *Service) Update(ctx context.Context, id int64, f Fields) (*Medicine, error) {
	m, err := s.repo.Update(ctx, id, f)
	if err != nil {
		return nil, err
	}
	s.log.Info().Int64("medicine_id", m.ID).Msg("medicine updated")
	return m, nil
}

// GetByID returns the medicine with id.
func (s *Service) GetByID(ctx context.Context, id int64) (*Medicine, error) {
	return s.repo.GetByID(ctx, id)
}

// List returns all medicines, optionally filtered by a search term.
func (s *Service) List(ctx context.Context, query string) ([]Medicine, error) {
	return s.repo.List(ctx, query)
}

// Delete removes the medicine with id; a missing id is a no-op.
func (s *Service) Delete(ctx context.Context, id int64) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.log.Info().Int64("medicine_id", id).Msg("medicine deleted")
	return nil
}

// IsNotFound returns true when the error indicates a medicine was not found.
func (s *Service) IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
