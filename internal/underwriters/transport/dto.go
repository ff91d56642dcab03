// Package transport defines the HTTP request and response shapes for the
// underwriter roster endpoints.
package transport

// CreateUnderwriterRequest adds an underwriter to the roster.
type CreateUnderwriterRequest struct {
	ID              string   `json:"id" validate:"required,min=2,max=64"`
	Name            string   `json:"name" validate:"required,min=2,max=200"`
	Email           string   `json:"email" validate:"required,email"`
	Tier            string   `json:"tier" validate:"required"`
	Specializations []string `json:"specializations"`
	MaxCapacity     int      `json:"maxCapacity" validate:"required,min=1,max=100"`
}

// SetAvailabilityRequest toggles whether an underwriter receives new work.
type SetAvailabilityRequest struct {
	IsAvailable *bool `json:"isAvailable" validate:"required"`
}
