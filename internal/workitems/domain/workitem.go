// Package domain holds the work item types that flow through the
// underwriting workbench: the work item itself, its immutable history, and
// the risk assessment snapshots attached to it.
package domain

import (
	"github.com/google/uuid"

	"uw_workbench_backend/internal/fields"
)

// Work item statuses. Transitions between them are governed by the
// configured transition table; rejected and policy_issued are terminal.
const (
	StatusPending      = "pending"
	StatusInReview     = "in_review"
	StatusPendingInfo  = "pending_info"
	StatusQuoteReady   = "quote_ready"
	StatusApproved     = "approved"
	StatusRejected     = "rejected"
	StatusPolicyIssued = "policy_issued"
)

// Priorities assigned from the overall risk score.
const (
	PriorityLow      = "low"
	PriorityModerate = "moderate"
	PriorityMedium   = "medium"
	PriorityHigh     = "high"
	PriorityCritical = "critical"
)

// Validation verdicts for an extracted submission.
const (
	ValidationComplete   = "complete"
	ValidationIncomplete = "incomplete"
	ValidationRejected   = "rejected"
)

// WorkItem is the underwriter-facing unit of work created from a validated
// submission. Version guards concurrent transitions with optimistic locking.
type WorkItem struct {
	ID                    uuid.UUID  `json:"id"`
	SubmissionID          int64      `json:"submissionId"`
	SubmissionRef         uuid.UUID  `json:"submissionRef"`
	InsuredName           string     `json:"insuredName"`
	Industry              string     `json:"industry"`
	PolicyType            string     `json:"policyType"`
	CoverageAmount        *float64   `json:"coverageAmount"`
	ExtractedFields       fields.Map `json:"extractedFields"`
	Status                string     `json:"status"`
	Priority              string     `json:"priority"`
	RiskScore             *float64   `json:"riskScore"`
	ValidationStatus      string     `json:"validationStatus"`
	MissingFields         []string   `json:"missingFields,omitempty"`
	RejectionReasons      []string   `json:"rejectionReasons,omitempty"`
	AssignedUnderwriterID *string    `json:"assignedUnderwriterId"`
	Version               int        `json:"version"`
	CreatedAt             string     `json:"createdAt"`
	UpdatedAt             string     `json:"updatedAt"`
}

// Terminal reports whether the item can no longer transition.
func (w WorkItem) Terminal() bool {
	return w.Status == StatusRejected || w.Status == StatusPolicyIssued
}

// History action kinds.
const (
	HistoryCreated       = "created"
	HistoryStatusChanged = "status_changed"
	HistoryAssigned      = "assigned"
	HistoryRiskAssessed  = "risk_assessed"
	HistoryCommented     = "commented"
)

// HistoryEntry records one audit event on a work item. Entries are
// append-only and numbered per work item starting at 1; the creation entry
// has FromStatus "".
type HistoryEntry struct {
	WorkItemID uuid.UUID `json:"workItemId"`
	Seq        int       `json:"seq"`
	Action     string    `json:"action"`
	FromStatus string    `json:"fromStatus,omitempty"`
	ToStatus   string    `json:"toStatus,omitempty"`
	Actor      string    `json:"actor"`
	Reason     string    `json:"reason,omitempty"`
	CreatedAt  string    `json:"createdAt"`
}

// RiskFactor is a named contribution to the overall score that was large
// enough to surface to the underwriter.
type RiskFactor struct {
	Name       string  `json:"name"`
	Impact     float64 `json:"impact"`
	Mitigation string  `json:"mitigation,omitempty"`
}

// RiskAssessment is an immutable scoring snapshot. Re-scoring a work item
// appends a new assessment; earlier ones are never modified.
type RiskAssessment struct {
	ID              uuid.UUID          `json:"id"`
	WorkItemID      uuid.UUID          `json:"workItemId"`
	OverallScore    float64            `json:"overallScore"`
	Categories      map[string]float64 `json:"categories"`
	Priority        string             `json:"priority"`
	Factors         []RiskFactor       `json:"factors"`
	Recommendations []string           `json:"recommendations"`
	Confidence      float64            `json:"confidence"`
	CreatedAt       string             `json:"createdAt"`
}
