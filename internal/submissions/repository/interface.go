package repository

import (
	"context"

	"github.com/google/uuid"

	"uw_workbench_backend/internal/fields"
	"uw_workbench_backend/internal/submissions/domain"
)

// CreateParams contains parameters for persisting an inbound submission.
type CreateParams struct {
	SubmissionRef  uuid.UUID
	Subject        string
	SenderEmail    string
	BodyText       string
	ContactPhone   *string
	AttachmentKeys []string
}

// ListParams filters and pages the submission listing.
type ListParams struct {
	Status            string
	NeedsManualReview *bool
	Limit             int
	Offset            int
}

// ExtractionResult is the atomically applied outcome of one extraction run:
// either everything lands (fields, status, confidence, review flag) or
// nothing does.
type ExtractionResult struct {
	SubmissionID      int64
	Fields            fields.Map
	Status            string
	Confidence        float64
	NeedsManualReview bool
}

// Reader provides read operations on submissions.
type Reader interface {
	GetByID(ctx context.Context, id int64) (domain.Submission, error)
	GetByRef(ctx context.Context, ref uuid.UUID) (domain.Submission, error)
	GetByWorkItem(ctx context.Context, workItemID uuid.UUID) (domain.Submission, error)
	List(ctx context.Context, params ListParams) ([]domain.Submission, int, error)
}

// Writer provides write operations on submissions. SetStatus is guarded by
// the expected current status so racing envelope transitions cannot both
// win.
type Writer interface {
	Create(ctx context.Context, params CreateParams) (domain.Submission, error)
	SetExtractionResult(ctx context.Context, result ExtractionResult) (domain.Submission, error)
	SetStatus(ctx context.Context, id int64, fromStatus, toStatus string) (domain.Submission, bool, error)
	LinkWorkItem(ctx context.Context, id int64, workItemID uuid.UUID) error
}

// Repository combines all submission persistence operations.
type Repository interface {
	Reader
	Writer
}
