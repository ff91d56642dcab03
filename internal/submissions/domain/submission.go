// Package domain holds the submission envelope types. A submission is the
// inbound email record; the underwriting work derived from it lives in the
// workitems context.
package domain

import (
	"github.com/google/uuid"

	"uw_workbench_backend/internal/fields"
)

// Submission statuses. The envelope machine is coarser than the work item
// machine; transitions are governed by the configured table.
const (
	StatusNew       = "new"
	StatusIntake    = "intake"
	StatusInReview  = "in_review"
	StatusAssigned  = "assigned"
	StatusQuoted    = "quoted"
	StatusBound     = "bound"
	StatusDeclined  = "declined"
	StatusWithdrawn = "withdrawn"
	StatusCompleted = "completed"
)

// Extraction statuses.
const (
	ExtractionPending   = "pending"
	ExtractionCompleted = "completed"
	ExtractionFallback  = "fallback_mode"
)

// Submission is one inbound email-derived record. SubmissionRef is assigned
// at creation and never changes; status only moves through the envelope
// state machine. Submissions are never physically deleted.
type Submission struct {
	ID                   int64      `json:"id"`
	SubmissionRef        uuid.UUID  `json:"submissionRef"`
	Subject              string     `json:"subject"`
	SenderEmail          string     `json:"senderEmail"`
	BodyText             string     `json:"bodyText"`
	ContactPhone         *string    `json:"contactPhone,omitempty"`
	ExtractedFields      fields.Map `json:"extractedFields"`
	ExtractionStatus     string     `json:"extractionStatus"`
	ExtractionConfidence float64    `json:"extractionConfidence"`
	NeedsManualReview    bool       `json:"needsManualReview"`
	Status               string     `json:"status"`
	AttachmentKeys       []string   `json:"attachmentKeys,omitempty"`
	WorkItemID           *uuid.UUID `json:"workItemId,omitempty"`
	CreatedAt            string     `json:"createdAt"`
	UpdatedAt            string     `json:"updatedAt"`
}

// Terminal reports whether the envelope can no longer move.
func (s Submission) Terminal() bool {
	return s.Status == StatusDeclined || s.Status == StatusWithdrawn || s.Status == StatusCompleted
}
