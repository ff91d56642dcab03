// Package transport defines request and response DTOs for the submissions
// HTTP surface.
package transport

import (
	"github.com/google/uuid"

	"uw_workbench_backend/internal/submissions/domain"
)

// IntakeEmailRequest is one inbound broker email. Sent as JSON or as
// multipart form data when attachments are included.
type IntakeEmailRequest struct {
	Subject      string `json:"subject" form:"subject" validate:"required,max=500"`
	SenderEmail  string `json:"senderEmail" form:"senderEmail" validate:"required,email"`
	BodyText     string `json:"bodyText" form:"bodyText" validate:"required,max=100000"`
	ContactPhone string `json:"contactPhone" form:"contactPhone" validate:"omitempty,max=32"`
}

// IntakeResponse acknowledges receipt before any processing happens.
type IntakeResponse struct {
	SubmissionRef uuid.UUID `json:"submissionRef"`
	Status        string    `json:"status"`
}

// ListSubmissionsRequest filters the submission listing.
type ListSubmissionsRequest struct {
	Status            string `form:"status"`
	NeedsManualReview *bool  `form:"needsManualReview"`
	Limit             int    `form:"limit"`
	Offset            int    `form:"offset"`
}

// TransitionRequest moves the submission envelope.
type TransitionRequest struct {
	Status string `json:"status" validate:"required,max=50"`
	Actor  string `json:"actor" validate:"required,max=200"`
}

// ListResponse wraps a submission page with its total count.
type ListResponse struct {
	Items []domain.Submission `json:"items"`
	Total int                 `json:"total"`
}
