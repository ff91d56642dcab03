package handler

import (
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"uw_workbench_backend/internal/submissions/repository"
	"uw_workbench_backend/internal/submissions/service"
	"uw_workbench_backend/internal/submissions/transport"
	"uw_workbench_backend/platform/httpkit"
	"uw_workbench_backend/platform/validator"
)

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
	msgInvalidRef       = "invalid submission reference"
)

// Handler handles HTTP requests for submissions.
type Handler struct {
	svc *service.Service
	val *validator.Validator
}

// New creates a new submission handler.
func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

// Intake accepts one inbound broker email, as JSON or multipart form data
// with attachments, and returns 202 with the submission reference.
// POST /api/v1/intake/email
func (h *Handler) Intake(c *gin.Context) {
	var req transport.IntakeEmailRequest
	var files []*multipart.FileHeader

	if strings.HasPrefix(c.ContentType(), "multipart/form-data") {
		if err := c.ShouldBind(&req); err != nil {
			httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
			return
		}
		form, err := c.MultipartForm()
		if err != nil {
			httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
			return
		}
		files = form.File["attachments"]
	} else {
		if err := c.ShouldBindJSON(&req); err != nil {
			httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
			return
		}
	}

	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	attachments := make([]service.Attachment, 0, len(files))
	opened := make([]multipart.File, 0, len(files))
	defer func() {
		for _, f := range opened {
			_ = f.Close()
		}
	}()
	for _, fh := range files {
		f, err := fh.Open()
		if err != nil {
			httpkit.Error(c, http.StatusBadRequest, "failed to read attachment", nil)
			return
		}
		opened = append(opened, f)
		attachments = append(attachments, service.Attachment{
			FileName:    fh.Filename,
			ContentType: fh.Header.Get("Content-Type"),
			Size:        fh.Size,
			Reader:      f,
		})
	}

	sub, err := h.svc.Intake(c.Request.Context(), service.IntakeInput{
		Subject:      req.Subject,
		SenderEmail:  req.SenderEmail,
		BodyText:     req.BodyText,
		ContactPhone: req.ContactPhone,
		Attachments:  attachments,
	})
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.Accepted(c, transport.IntakeResponse{
		SubmissionRef: sub.SubmissionRef,
		Status:        sub.Status,
	})
}

// List retrieves submissions with optional filters.
// GET /api/v1/submissions
func (h *Handler) List(c *gin.Context) {
	var req transport.ListSubmissionsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	items, total, err := h.svc.List(c.Request.Context(), repository.ListParams{
		Status:            req.Status,
		NeedsManualReview: req.NeedsManualReview,
		Limit:             req.Limit,
		Offset:            req.Offset,
	})
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.ListResponse{Items: items, Total: total})
}

// GetByRef retrieves one submission.
// GET /api/v1/submissions/:ref
func (h *Handler) GetByRef(c *gin.Context) {
	ref, ok := h.submissionRef(c)
	if !ok {
		return
	}

	result, err := h.svc.GetByRef(c.Request.Context(), ref)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// AllowedTransitions lists the legal successors of the envelope status.
// GET /api/v1/submissions/:ref/transitions
func (h *Handler) AllowedTransitions(c *gin.Context) {
	ref, ok := h.submissionRef(c)
	if !ok {
		return
	}

	result, err := h.svc.AllowedTransitions(c.Request.Context(), ref)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, gin.H{"allowed": result})
}

// Transition moves the submission envelope.
// POST /api/v1/submissions/:ref/transition
func (h *Handler) Transition(c *gin.Context) {
	ref, ok := h.submissionRef(c)
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

	result, err := h.svc.Transition(c.Request.Context(), ref, req.Status, req.Actor)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

func (h *Handler) submissionRef(c *gin.Context) (uuid.UUID, bool) {
	ref, err := uuid.Parse(c.Param("ref"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRef, nil)
		return uuid.Nil, false
	}
	return ref, true
}
