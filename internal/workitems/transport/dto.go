// Package transport defines the HTTP request and response shapes for the
// work item endpoints.
package transport

import "uw_workbench_backend/internal/fields"

// ListWorkItemsRequest filters and pages the work item listing.
type ListWorkItemsRequest struct {
	Status        string `form:"status"`
	Priority      string `form:"priority"`
	UnderwriterID string `form:"underwriterId"`
	Limit         int    `form:"limit"`
	Offset        int    `form:"offset"`
}

// TransitionRequest asks for one status change.
type TransitionRequest struct {
	Status string `json:"status" validate:"required"`
	Actor  string `json:"actor" validate:"required,min=2,max=200"`
	Reason string `json:"reason" validate:"max=2000"`
}

// AssignRequest places the work item with a specific underwriter.
type AssignRequest struct {
	UnderwriterID string `json:"underwriterId" validate:"required"`
	Actor         string `json:"actor" validate:"required,min=2,max=200"`
}

// CommentRequest appends a note to the audit trail.
type CommentRequest struct {
	Actor string `json:"actor" validate:"required,min=2,max=200"`
	Text  string `json:"text" validate:"required,min=1,max=5000"`
}

// ValidateRequest runs the validation engine over arbitrary fields.
type ValidateRequest struct {
	Fields      fields.Map `json:"fields" validate:"required"`
	SenderEmail string     `json:"senderEmail" validate:"omitempty,email"`
}

// ScoreRequest runs the risk engine over arbitrary fields.
type ScoreRequest struct {
	Fields fields.Map `json:"fields" validate:"required"`
}

// ListResponse wraps a page of work items.
type ListResponse struct {
	Items interface{} `json:"items"`
	Total int         `json:"total"`
}
