// Package underwriters provides the underwriter roster bounded context.
// The roster tracks tier, specializations, capacity, and availability for
// every underwriter the assignment engine can recommend.
package underwriters

import (
	"github.com/jackc/pgx/v5/pgxpool"

	apphttp "uw_workbench_backend/internal/http"
	"uw_workbench_backend/internal/underwriters/handler"
	"uw_workbench_backend/internal/underwriters/repository"
	"uw_workbench_backend/internal/underwriters/service"
	"uw_workbench_backend/platform/logger"
	"uw_workbench_backend/platform/validator"
)

// Module is the underwriter roster module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
	repo    repository.Repository
}

// NewModule creates and initializes the underwriters module.
func NewModule(pool *pgxpool.Pool, val *validator.Validator, log *logger.Logger) *Module {
	repo := repository.New(pool)
	svc := service.New(repo, log)
	h := handler.New(svc, val)

	return &Module{
		handler: h,
		service: svc,
		repo:    repo,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "underwriters"
}

// Service returns the service layer for use by other modules.
func (m *Module) Service() *service.Service {
	return m.service
}

// Repository returns the roster repository for the assignment pipeline.
func (m *Module) Repository() repository.Repository {
	return m.repo
}

// RegisterRoutes mounts underwriter roster routes.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	group := ctx.V1.Group("/underwriters")
	group.GET("", m.handler.List)
	group.POST("", m.handler.Create)
	group.GET("/:id", m.handler.GetByID)
	group.PATCH("/:id/availability", m.handler.SetAvailability)
}

// Compile-time check that Module implements http.Module.
var _ apphttp.Module = (*Module)(nil)
