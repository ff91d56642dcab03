// Package submissions provides the submission bounded context: email
// intake, attachment storage, the extraction pipeline, and the envelope
// state machine.
package submissions

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"uw_workbench_backend/internal/adapters/storage"
	"uw_workbench_backend/internal/events"
	extraction "uw_workbench_backend/internal/extraction/client"
	apphttp "uw_workbench_backend/internal/http"
	"uw_workbench_backend/internal/rules"
	"uw_workbench_backend/internal/scheduler"
	"uw_workbench_backend/internal/submissions/handler"
	"uw_workbench_backend/internal/submissions/repository"
	"uw_workbench_backend/internal/submissions/service"
	wisvc "uw_workbench_backend/internal/workitems/service"
	"uw_workbench_backend/platform/logger"
	"uw_workbench_backend/platform/validator"
)

// Module is the submissions bounded context module implementing http.Module.
type Module struct {
	handler   *handler.Handler
	service   *service.Service
	processor *service.Processor
	repo      repository.Repository
	log       *logger.Logger
}

// Deps collects the module's external dependencies. Storage may be nil
// when MinIO is not configured.
type Deps struct {
	Pool      *pgxpool.Pool
	Scheduler scheduler.ExtractionScheduler
	Storage   storage.Service
	Bucket    string
	Extractor *extraction.Client
	WorkItems *wisvc.Service
	Config    *rules.Config
	Bus       events.Bus
	Validator *validator.Validator
	Logger    *logger.Logger
}

// NewModule creates and initializes the submissions module.
func NewModule(deps Deps) *Module {
	repo := repository.New(deps.Pool)
	svc := service.New(repo, deps.Scheduler, deps.Storage, deps.Bucket,
		deps.Config.Transitions.Submission, deps.Bus, deps.Logger)
	proc := service.NewProcessor(repo, deps.Extractor, deps.WorkItems, deps.Bus, deps.Logger)
	h := handler.New(svc, deps.Validator)

	return &Module{
		handler:   h,
		service:   svc,
		processor: proc,
		repo:      repo,
		log:       deps.Logger,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "submissions"
}

// Processor returns the pipeline processor for the scheduler worker.
func (m *Module) Processor() *service.Processor {
	return m.processor
}

// RegisterHandlers subscribes the module to work item events so manual
// pending_info moves reach the broker.
func (m *Module) RegisterHandlers(bus *events.InMemoryBus) {
	bus.Subscribe(events.WorkItemStatusChanged{}.EventName(), m)
}

// Handle routes events to the processor.
func (m *Module) Handle(ctx context.Context, event events.Event) error {
	switch e := event.(type) {
	case events.WorkItemStatusChanged:
		return m.processor.HandleStatusChanged(ctx, e)
	default:
		return nil
	}
}

// RegisterRoutes mounts submission routes. The public intake webhook gets
// the stricter rate limit.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	intake := ctx.V1.Group("/intake")
	intake.Use(ctx.IntakeRateLimiter.RateLimit())
	intake.POST("/email", m.handler.Intake)

	group := ctx.V1.Group("/submissions")
	group.GET("", m.handler.List)
	group.GET("/:ref", m.handler.GetByRef)
	group.GET("/:ref/transitions", m.handler.AllowedTransitions)
	group.POST("/:ref/transition", m.handler.Transition)
}

// Compile-time check that Module implements http.Module.
var _ apphttp.Module = (*Module)(nil)
