package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"uw_workbench_backend/internal/workitems/repository"
	"uw_workbench_backend/internal/workitems/service"
	"uw_workbench_backend/internal/workitems/transport"
	"uw_workbench_backend/platform/httpkit"
	"uw_workbench_backend/platform/validator"
)

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
	msgInvalidID        = "invalid work item ID"
)

// Handler handles HTTP requests for work items.
type Handler struct {
	svc *service.Service
	val *validator.Validator
}

// New creates a new work item handler.
func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

// List retrieves work items with optional filters.
// GET /api/v1/work-items
func (h *Handler) List(c *gin.Context) {
	var req transport.ListWorkItemsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	items, total, err := h.svc.List(c.Request.Context(), repository.ListParams{
		Status:        req.Status,
		Priority:      req.Priority,
		UnderwriterID: req.UnderwriterID,
		Limit:         req.Limit,
		Offset:        req.Offset,
	})
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.ListResponse{Items: items, Total: total})
}

// GetByID retrieves one work item.
// GET /api/v1/work-items/:id
func (h *Handler) GetByID(c *gin.Context) {
	id, ok := h.itemID(c)
	if !ok {
		return
	}

	result, err := h.svc.GetByID(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// History retrieves the ordered audit trail.
// GET /api/v1/work-items/:id/history
func (h *Handler) History(c *gin.Context) {
	id, ok := h.itemID(c)
	if !ok {
		return
	}

	result, err := h.svc.History(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// Transition requests a status change.
// POST /api/v1/work-items/:id/transition
func (h *Handler) Transition(c *gin.Context) {
	id, ok := h.itemID(c)
	if !ok {
		return
	}

	var req transport.TransitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	result, err := h.svc.Transition(c.Request.Context(), id, req.Status, req.Actor, req.Reason)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// AllowedTransitions lists the legal successors of the current status.
// GET /api/v1/work-items/:id/transitions
func (h *Handler) AllowedTransitions(c *gin.Context) {
	id, ok := h.itemID(c)
	if !ok {
		return
	}

	result, err := h.svc.AllowedTransitions(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, gin.H{"allowed": result})
}

// Recommendations ranks available underwriters for the work item.
// GET /api/v1/work-items/:id/recommendations
func (h *Handler) Recommendations(c *gin.Context) {
	id, ok := h.itemID(c)
	if !ok {
		return
	}

	result, err := h.svc.Recommend(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, gin.H{"candidates": result, "escalate": len(result) == 0})
}

// Assign places the work item with an underwriter.
// POST /api/v1/work-items/:id/assign
func (h *Handler) Assign(c *gin.Context) {
	id, ok := h.itemID(c)
	if !ok {
		return
	}

	var req transport.AssignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	result, err := h.svc.Assign(c.Request.Context(), id, req.UnderwriterID, req.Actor)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// Assessments lists the scoring snapshots, newest first.
// GET /api/v1/work-items/:id/assessments
func (h *Handler) Assessments(c *gin.Context) {
	id, ok := h.itemID(c)
	if !ok {
		return
	}

	result, err := h.svc.Assessments(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// Assess re-scores the work item from its stored fields.
// POST /api/v1/work-items/:id/assessments
func (h *Handler) Assess(c *gin.Context) {
	id, ok := h.itemID(c)
	if !ok {
		return
	}

	actor := c.Query("actor")
	if actor == "" {
		actor = service.SystemActor
	}

	result, err := h.svc.Assess(c.Request.Context(), id, actor)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.JSON(c, http.StatusCreated, result)
}

// Comment appends a note to the audit trail.
// POST /api/v1/work-items/:id/comments
func (h *Handler) Comment(c *gin.Context) {
	id, ok := h.itemID(c)
	if !ok {
		return
	}

	var req transport.CommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	if err := h.svc.Comment(c.Request.Context(), id, req.Actor, req.Text); httpkit.HandleError(c, err) {
		return
	}
	httpkit.JSON(c, http.StatusCreated, gin.H{"status": "recorded"})
}

// Validate runs the validation engine statelessly over submitted fields.
// POST /api/v1/validation/check
func (h *Handler) Validate(c *gin.Context) {
	var req transport.ValidateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	httpkit.OK(c, h.svc.ValidateFields(req.Fields, req.SenderEmail))
}

// Score runs the risk engine statelessly over submitted fields.
// POST /api/v1/risk/score
func (h *Handler) Score(c *gin.Context) {
	var req transport.ScoreRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	httpkit.OK(c, h.svc.ScoreFields(req.Fields))
}

func (h *Handler) itemID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidID, nil)
		return uuid.Nil, false
	}
	return id, true
}
