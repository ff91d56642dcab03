// Package service implements underwriter roster management.
package service

import (
	"context"
	"strings"

	"uw_workbench_backend/internal/underwriters/domain"
	"uw_workbench_backend/internal/underwriters/repository"
	"uw_workbench_backend/internal/underwriters/transport"
	"uw_workbench_backend/platform/apperr"
	"uw_workbench_backend/platform/logger"
)

// Service manages the underwriter roster.
type Service struct {
	repo repository.Repository
	log  *logger.Logger
}

// New creates a new underwriter roster service.
func New(repo repository.Repository, log *logger.Logger) *Service {
	return &Service{repo: repo, log: log}
}

// List returns the full roster.
func (s *Service) List(ctx context.Context) ([]domain.Underwriter, error) {
	return s.repo.List(ctx)
}

// ListAvailable returns underwriters currently accepting work.
func (s *Service) ListAvailable(ctx context.Context) ([]domain.Underwriter, error) {
	return s.repo.ListAvailable(ctx)
}

// GetByID returns a single roster entry.
func (s *Service) GetByID(ctx context.Context, id string) (domain.Underwriter, error) {
	return s.repo.GetByID(ctx, id)
}

// Create adds an underwriter. Specializations are normalized to lowercase so
// they compare cleanly against extracted industry values.
func (s *Service) Create(ctx context.Context, req transport.CreateUnderwriterRequest) (domain.Underwriter, error) {
	tier := domain.Tier(strings.ToLower(strings.TrimSpace(req.Tier)))
	if !tier.Valid() {
		return domain.Underwriter{}, apperr.Validation("tier must be junior, standard, or senior")
	}
	if req.MaxCapacity < 1 {
		return domain.Underwriter{}, apperr.Validation("max capacity must be at least 1")
	}

	specs := make([]string, 0, len(req.Specializations))
	for _, spec := range req.Specializations {
		spec = strings.ToLower(strings.TrimSpace(spec))
		if spec != "" {
			specs = append(specs, spec)
		}
	}

	uw, err := s.repo.Create(ctx, repository.CreateParams{
		ID:              strings.TrimSpace(req.ID),
		Name:            strings.TrimSpace(req.Name),
		Email:           strings.ToLower(strings.TrimSpace(req.Email)),
		Tier:            tier,
		Specializations: specs,
		MaxCapacity:     req.MaxCapacity,
	})
	if err != nil {
		return domain.Underwriter{}, err
	}

	s.log.Info("underwriter added to roster", "underwriter_id", uw.ID, "tier", uw.Tier)
	return uw, nil
}

// SetAvailability toggles whether an underwriter receives new assignments.
// Existing assignments are untouched.
func (s *Service) SetAvailability(ctx context.Context, id string, available bool) (domain.Underwriter, error) {
	uw, err := s.repo.SetAvailability(ctx, id, available)
	if err != nil {
		return domain.Underwriter{}, err
	}

	s.log.Info("underwriter availability changed", "underwriter_id", id, "available", available)
	return uw, nil
}
