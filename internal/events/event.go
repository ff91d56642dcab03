// Package events provides domain event definitions for decoupled,
// event-driven communication between modules.
// Infrastructure (Bus, Handler) is in platform/events.
package events

import (
	"uw_workbench_backend/platform/events"

	"github.com/google/uuid"
)

// Re-export platform types for convenience
type (
	Event       = events.Event
	Bus         = events.Bus
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	BaseEvent   = events.BaseEvent
)

// Re-export platform functions
var NewBaseEvent = events.NewBaseEvent

// =============================================================================
// Submissions Domain Events
// =============================================================================

// SubmissionReceived is published when an inbound email submission has been
// persisted and queued for processing.
type SubmissionReceived struct {
	BaseEvent
	SubmissionID  int64     `json:"submissionId"`
	SubmissionRef uuid.UUID `json:"submissionRef"`
	SenderEmail   string    `json:"senderEmail"`
	Subject       string    `json:"subject"`
}

func (e SubmissionReceived) EventName() string { return "submissions.submission.received" }

// SubmissionRejected is published when a submission fails validation and is
// declined without creating a work item.
type SubmissionRejected struct {
	BaseEvent
	SubmissionID  int64     `json:"submissionId"`
	SubmissionRef uuid.UUID `json:"submissionRef"`
	SenderEmail   string    `json:"senderEmail"`
	CompanyName   string    `json:"companyName"`
	Reasons       []string  `json:"reasons"`
}

func (e SubmissionRejected) EventName() string { return "submissions.submission.rejected" }

// ExtractionCompleted is published when the field extraction service has
// returned a result (including fallback results) for a submission.
type ExtractionCompleted struct {
	BaseEvent
	SubmissionID      int64     `json:"submissionId"`
	SubmissionRef     uuid.UUID `json:"submissionRef"`
	FallbackMode      bool      `json:"fallbackMode"`
	NeedsManualReview bool      `json:"needsManualReview"`
}

func (e ExtractionCompleted) EventName() string { return "submissions.extraction.completed" }

// =============================================================================
// Work Items Domain Events
// =============================================================================

// WorkItemCreated is published when a validated submission produces a work item.
type WorkItemCreated struct {
	BaseEvent
	WorkItemID    uuid.UUID `json:"workItemId"`
	SubmissionID  int64     `json:"submissionId"`
	SubmissionRef uuid.UUID `json:"submissionRef"`
	CompanyName   string    `json:"companyName"`
	Priority      string    `json:"priority"`
	RiskScore     float64   `json:"riskScore"`
}

func (e WorkItemCreated) EventName() string { return "workitems.item.created" }

// WorkItemAssigned is published when a work item is assigned to an underwriter.
type WorkItemAssigned struct {
	BaseEvent
	WorkItemID       uuid.UUID `json:"workItemId"`
	UnderwriterID    string    `json:"underwriterId"`
	UnderwriterEmail string    `json:"underwriterEmail"`
	UnderwriterName  string    `json:"underwriterName"`
	CompanyName      string    `json:"companyName"`
	Industry         string    `json:"industry"`
	Priority         string    `json:"priority"`
	RiskScore        float64   `json:"riskScore"`
	CoverageAmount   float64   `json:"coverageAmount"`
}

func (e WorkItemAssigned) EventName() string { return "workitems.item.assigned" }

// WorkItemStatusChanged is published on every successful workflow transition.
type WorkItemStatusChanged struct {
	BaseEvent
	WorkItemID uuid.UUID `json:"workItemId"`
	FromStatus string    `json:"fromStatus"`
	ToStatus   string    `json:"toStatus"`
	Actor      string    `json:"actor"`
	Reason     string    `json:"reason,omitempty"`
}

func (e WorkItemStatusChanged) EventName() string { return "workitems.item.status_changed" }

// InfoRequested is published when an underwriter asks the broker for more
// information on a work item.
type InfoRequested struct {
	BaseEvent
	WorkItemID    uuid.UUID `json:"workItemId"`
	SubmissionRef uuid.UUID `json:"submissionRef"`
	BrokerEmail   string    `json:"brokerEmail"`
	CompanyName   string    `json:"companyName"`
	MissingFields []string  `json:"missingFields"`
	RequestedBy   string    `json:"requestedBy"`
}

func (e InfoRequested) EventName() string { return "workitems.item.info_requested" }

// =============================================================================
// Notification Domain Events
// =============================================================================

// NotificationOutboxDue is published by the scheduler when an outbox entry
// is ready for delivery.
type NotificationOutboxDue struct {
	BaseEvent
	OutboxID uuid.UUID `json:"outboxId"`
}

func (e NotificationOutboxDue) EventName() string { return "notification.outbox.due" }
