// Package workitems provides the underwriting work item bounded context:
// the validation, risk scoring, and assignment engines, the workflow state
// machine with its immutable audit history, and the HTTP surface that
// exposes them.
package workitems

import (
	"github.com/jackc/pgx/v5/pgxpool"

	"uw_workbench_backend/internal/events"
	apphttp "uw_workbench_backend/internal/http"
	"uw_workbench_backend/internal/rules"
	uwrepo "uw_workbench_backend/internal/underwriters/repository"
	"uw_workbench_backend/internal/workitems/handler"
	"uw_workbench_backend/internal/workitems/repository"
	"uw_workbench_backend/internal/workitems/service"
	"uw_workbench_backend/platform/logger"
	"uw_workbench_backend/platform/validator"
)

// Module is the work items bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
	repo    repository.Repository
}

// NewModule creates and initializes the work items module.
func NewModule(pool *pgxpool.Pool, uwRepo uwrepo.Repository, cfg *rules.Config, bus events.Bus, val *validator.Validator, log *logger.Logger) *Module {
	repo := repository.New(pool)
	svc := service.New(repo, uwRepo, cfg, bus, log)
	h := handler.New(svc, val)

	return &Module{
		handler: h,
		service: svc,
		repo:    repo,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "workitems"
}

// Service returns the service layer for the submission pipeline.
func (m *Module) Service() *service.Service {
	return m.service
}

// RegisterRoutes mounts work item routes.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	group := ctx.V1.Group("/work-items")
	group.GET("", m.handler.List)
	group.GET("/:id", m.handler.GetByID)
	group.GET("/:id/history", m.handler.History)
	group.GET("/:id/transitions", m.handler.AllowedTransitions)
	group.POST("/:id/transition", m.handler.Transition)
	group.GET("/:id/recommendations", m.handler.Recommendations)
	group.POST("/:id/assign", m.handler.Assign)
	group.GET("/:id/assessments", m.handler.Assessments)
	group.POST("/:id/assessments", m.handler.Assess)
	group.POST("/:id/comments", m.handler.Comment)

	// Stateless engine endpoints for the API layer and tooling.
	ctx.V1.POST("/validation/check", m.handler.Validate)
	ctx.V1.POST("/risk/score", m.handler.Score)
}

// Compile-time check that Module implements http.Module.
var _ apphttp.Module = (*Module)(nil)
