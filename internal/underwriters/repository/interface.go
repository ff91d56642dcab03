package repository

import (
	"context"

	"uw_workbench_backend/internal/underwriters/domain"
)

// CreateParams contains parameters for adding an underwriter to the roster.
type CreateParams struct {
	ID              string
	Name            string
	Email           string
	Tier            domain.Tier
	Specializations []string
	MaxCapacity     int
}

// Reader provides read operations for the underwriter roster.
type Reader interface {
	GetByID(ctx context.Context, id string) (domain.Underwriter, error)
	List(ctx context.Context) ([]domain.Underwriter, error)
	ListAvailable(ctx context.Context) ([]domain.Underwriter, error)
}

// Writer provides write operations for the underwriter roster. ClaimCapacity
// and ReleaseCapacity adjust workload atomically so concurrent assignments
// can never push an underwriter past MaxCapacity.
type Writer interface {
	Create(ctx context.Context, params CreateParams) (domain.Underwriter, error)
	SetAvailability(ctx context.Context, id string, available bool) (domain.Underwriter, error)
	ClaimCapacity(ctx context.Context, id string) (bool, error)
	ReleaseCapacity(ctx context.Context, id string) error
}

// Repository combines all underwriter roster operations.
type Repository interface {
	Reader
	Writer
}
