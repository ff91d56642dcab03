package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"uw_workbench_backend/internal/underwriters/service"
	"uw_workbench_backend/internal/underwriters/transport"
	"uw_workbench_backend/platform/httpkit"
	"uw_workbench_backend/platform/validator"
)

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
)

// Handler handles HTTP requests for the underwriter roster.
type Handler struct {
	svc *service.Service
	val *validator.Validator
}

// New creates a new underwriter roster handler.
func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

// List retrieves the full roster.
// GET /api/v1/underwriters
func (h *Handler) List(c *gin.Context) {
	result, err := h.svc.List(c.Request.Context())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// GetByID retrieves a single roster entry.
// GET /api/v1/underwriters/:id
func (h *Handler) GetByID(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		httpkit.Error(c, http.StatusBadRequest, "underwriter ID is required", nil)
		return
	}

	result, err := h.svc.GetByID(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// Create adds an underwriter to the roster.
// POST /api/v1/underwriters
func (h *Handler) Create(c *gin.Context) {
	var req transport.CreateUnderwriterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	result, err := h.svc.Create(c.Request.Context(), req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.JSON(c, http.StatusCreated, result)
}

// SetAvailability toggles whether an underwriter receives new assignments.
// PATCH /api/v1/underwriters/:id/availability
func (h *Handler) SetAvailability(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		httpkit.Error(c, http.StatusBadRequest, "underwriter ID is required", nil)
		return
	}

	var req transport.SetAvailabilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	result, err := h.svc.SetAvailability(c.Request.Context(), id, *req.IsAvailable)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}
