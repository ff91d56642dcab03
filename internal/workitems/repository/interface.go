package repository

import (
	"context"

	"github.com/google/uuid"

	"uw_workbench_backend/internal/fields"
	"uw_workbench_backend/internal/workitems/domain"
)

// CreateParams contains everything needed to open a work item from a
// validated submission. The creation history entry is written in the same
// transaction as the item itself.
type CreateParams struct {
	SubmissionID     int64
	SubmissionRef    uuid.UUID
	InsuredName      string
	Industry         string
	PolicyType       string
	CoverageAmount   *float64
	ExtractedFields  fields.Map
	Status           string
	Priority         string
	RiskScore        *float64
	ValidationStatus string
	MissingFields    []string
	RejectionReasons []string
	Actor            string
}

// ListParams filters and pages the work item listing.
type ListParams struct {
	Status        string
	Priority      string
	UnderwriterID string
	Limit         int
	Offset        int
}

// TransitionParams describes one status change attempt. Version is the
// optimistic lock: the update applies only if the stored version still
// matches, and the history entry rides in the same transaction.
type TransitionParams struct {
	ID         uuid.UUID
	Version    int
	FromStatus string
	ToStatus   string
	Actor      string
	Reason     string
}

// AssignParams records an underwriter assignment.
type AssignParams struct {
	ID            uuid.UUID
	Version       int
	UnderwriterID string
	Actor         string
}

// AssessmentParams stores one immutable scoring snapshot and refreshes the
// work item's current score and priority in the same transaction.
type AssessmentParams struct {
	WorkItemID      uuid.UUID
	OverallScore    float64
	Categories      map[string]float64
	Priority        string
	Factors         []domain.RiskFactor
	Recommendations []string
	Confidence      float64
	Actor           string
}

// Reader provides read operations on work items.
type Reader interface {
	GetByID(ctx context.Context, id uuid.UUID) (domain.WorkItem, error)
	List(ctx context.Context, params ListParams) ([]domain.WorkItem, int, error)
	History(ctx context.Context, id uuid.UUID) ([]domain.HistoryEntry, error)
	Assessments(ctx context.Context, id uuid.UUID) ([]domain.RiskAssessment, error)
}

// Writer provides write operations on work items. All writes that change a
// work item also append a history entry atomically.
type Writer interface {
	Create(ctx context.Context, params CreateParams) (domain.WorkItem, error)
	Transition(ctx context.Context, params TransitionParams) (domain.WorkItem, bool, error)
	Assign(ctx context.Context, params AssignParams) (domain.WorkItem, bool, error)
	AddAssessment(ctx context.Context, params AssessmentParams) (domain.RiskAssessment, error)
	AddComment(ctx context.Context, id uuid.UUID, actor, text string) error
}

// Repository combines all work item persistence operations.
type Repository interface {
	Reader
	Writer
}
