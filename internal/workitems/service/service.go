// Package service orchestrates the work item lifecycle: creation from
// validated submissions, workflow transitions with audit history, risk
// assessment snapshots, and underwriter assignment.
package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"uw_workbench_backend/internal/events"
	"uw_workbench_backend/internal/fields"
	"uw_workbench_backend/internal/rules"
	uwrepo "uw_workbench_backend/internal/underwriters/repository"
	"uw_workbench_backend/internal/workitems/domain"
	"uw_workbench_backend/internal/workitems/engine"
	"uw_workbench_backend/internal/workitems/repository"
	"uw_workbench_backend/platform/apperr"
	"uw_workbench_backend/platform/logger"
)

// SystemActor marks automated pipeline actions in the audit trail.
const SystemActor = "system"

// Service coordinates work items, the decision engines, and the roster.
type Service struct {
	repo      repository.Repository
	uwRepo    uwrepo.Repository
	validator *engine.Validator
	scorer    *engine.Scorer
	assigner  *engine.Assigner
	workflow  *engine.Workflow
	bus       events.Bus
	log       *logger.Logger
}

// New creates the work item service with all decision engines built from
// the loaded business configuration.
func New(repo repository.Repository, uwRepo uwrepo.Repository, cfg *rules.Config, bus events.Bus, log *logger.Logger) *Service {
	return &Service{
		repo:      repo,
		uwRepo:    uwRepo,
		validator: engine.NewValidator(cfg.Validation),
		scorer:    engine.NewScorer(cfg.Risk),
		assigner:  engine.NewAssigner(cfg.Assignment),
		workflow:  engine.NewWorkflow(cfg.Transitions.WorkItem),
		bus:       bus,
		log:       log,
	}
}

// CreateInput carries a validated submission into a new work item.
type CreateInput struct {
	SubmissionID    int64
	SubmissionRef   uuid.UUID
	ExtractedFields fields.Map
	Validation      engine.ValidationResult
	Assessment      *engine.RiskAssessment
	Actor           string
}

// Create opens a work item from a processed submission. Rejected
// submissions produce a work item already in the rejected state so the
// decision and its reasons stay auditable.
func (s *Service) Create(ctx context.Context, input CreateInput) (domain.WorkItem, error) {
	m := input.ExtractedFields
	status := domain.StatusPending
	if input.Validation.Status == domain.ValidationRejected {
		status = domain.StatusRejected
	}

	params := repository.CreateParams{
		SubmissionID:     input.SubmissionID,
		SubmissionRef:    input.SubmissionRef,
		InsuredName:      m.Display("insured_name"),
		Industry:         m.Display("industry"),
		PolicyType:       m.Display("policy_type"),
		ExtractedFields:  m,
		Status:           status,
		Priority:         domain.PriorityModerate,
		ValidationStatus: input.Validation.Status,
		MissingFields:    input.Validation.MissingFields,
		RejectionReasons: input.Validation.RejectionReasons,
		Actor:            input.Actor,
	}
	if amount, ok := m.Money("coverage_amount"); ok {
		params.CoverageAmount = &amount
	}
	if input.Assessment != nil {
		score := input.Assessment.OverallScore
		params.RiskScore = &score
		params.Priority = input.Assessment.Priority
	}

	item, err := s.repo.Create(ctx, params)
	if err != nil {
		return domain.WorkItem{}, err
	}

	if input.Assessment != nil {
		if _, err := s.repo.AddAssessment(ctx, assessmentParams(item.ID, *input.Assessment, input.Actor)); err != nil {
			return domain.WorkItem{}, err
		}
	}

	riskScore := 0.0
	if params.RiskScore != nil {
		riskScore = *params.RiskScore
	}
	s.bus.Publish(ctx, events.WorkItemCreated{
		BaseEvent:     events.NewBaseEvent(),
		WorkItemID:    item.ID,
		SubmissionID:  item.SubmissionID,
		SubmissionRef: item.SubmissionRef,
		CompanyName:   item.InsuredName,
		Priority:      item.Priority,
		RiskScore:     riskScore,
	})

	s.log.Info("work item created",
		"work_item_id", item.ID, "submission_ref", item.SubmissionRef,
		"status", item.Status, "priority", item.Priority)
	return item, nil
}

// GetByID returns one work item.
func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (domain.WorkItem, error) {
	return s.repo.GetByID(ctx, id)
}

// List returns filtered work items and the total match count.
func (s *Service) List(ctx context.Context, params repository.ListParams) ([]domain.WorkItem, int, error) {
	return s.repo.List(ctx, params)
}

// History returns the ordered audit trail.
func (s *Service) History(ctx context.Context, id uuid.UUID) ([]domain.HistoryEntry, error) {
	if _, err := s.repo.GetByID(ctx, id); err != nil {
		return nil, err
	}
	return s.repo.History(ctx, id)
}

// Assessments returns every scoring snapshot, newest first.
func (s *Service) Assessments(ctx context.Context, id uuid.UUID) ([]domain.RiskAssessment, error) {
	if _, err := s.repo.GetByID(ctx, id); err != nil {
		return nil, err
	}
	return s.repo.Assessments(ctx, id)
}

// ValidateFields runs the validation engine without touching any state.
func (s *Service) ValidateFields(m fields.Map, senderEmail string) engine.ValidationResult {
	return s.validator.Validate(m, senderEmail)
}

// ScoreFields runs the risk engine without touching any state.
func (s *Service) ScoreFields(m fields.Map) engine.RiskAssessment {
	return s.scorer.Score(m)
}

// Transition moves a work item to a new status. Legality is checked against
// the transition table; the persisted update is version-guarded so racing
// transitions cannot both win. Notification of the change is event-driven
// and never blocks or rolls back the transition itself.
func (s *Service) Transition(ctx context.Context, id uuid.UUID, toStatus, actor, reason string) (domain.WorkItem, error) {
	if toStatus == domain.StatusRejected && reason == "" {
		return domain.WorkItem{}, apperr.Validation("rejecting a work item requires a reason")
	}

	item, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return domain.WorkItem{}, err
	}

	if err := s.workflow.Validate(item.Status, toStatus); err != nil {
		s.log.Warn("illegal work item transition",
			"work_item_id", id, "from", item.Status, "to", toStatus, "actor", actor)
		var terr *engine.TransitionError
		if errors.As(err, &terr) {
			return domain.WorkItem{}, apperr.Unprocessable(terr.Error())
		}
		return domain.WorkItem{}, apperr.Unprocessable(err.Error())
	}

	updated, ok, err := s.repo.Transition(ctx, repository.TransitionParams{
		ID:         id,
		Version:    item.Version,
		FromStatus: item.Status,
		ToStatus:   toStatus,
		Actor:      actor,
		Reason:     reason,
	})
	if err != nil {
		return domain.WorkItem{}, err
	}
	if !ok {
		// Lost the race or the item vanished; re-read to tell which.
		if _, err := s.repo.GetByID(ctx, id); err != nil {
			return domain.WorkItem{}, err
		}
		return domain.WorkItem{}, apperr.Conflict("work item was modified concurrently; re-fetch and retry")
	}

	if s.workflow.Terminal(toStatus) && updated.AssignedUnderwriterID != nil {
		if err := s.uwRepo.ReleaseCapacity(ctx, *updated.AssignedUnderwriterID); err != nil {
			s.log.Error("release underwriter capacity", "underwriter_id", *updated.AssignedUnderwriterID, "error", err)
		}
	}

	s.bus.Publish(ctx, events.WorkItemStatusChanged{
		BaseEvent:  events.NewBaseEvent(),
		WorkItemID: updated.ID,
		FromStatus: item.Status,
		ToStatus:   toStatus,
		Actor:      actor,
		Reason:     reason,
	})

	s.log.WorkflowTransition(updated.ID.String(), item.Status, toStatus, actor)
	return updated, nil
}

// AllowedTransitions returns the legal successors of the item's current status.
func (s *Service) AllowedTransitions(ctx context.Context, id uuid.UUID) ([]string, error) {
	item, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.workflow.Allowed(item.Status), nil
}

// Recommend ranks available underwriters for a work item. An empty list
// means the item cannot be placed and needs escalation.
func (s *Service) Recommend(ctx context.Context, id uuid.UUID) ([]engine.Candidate, error) {
	item, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	roster, err := s.uwRepo.ListAvailable(ctx)
	if err != nil {
		return nil, err
	}

	return s.assigner.Recommend(assignmentRequest(item), roster), nil
}

// Assign places a work item with an underwriter. The tier gate always
// applies, even for manual overrides; the capacity slot is claimed with an
// atomic guarded update so two racing assignments cannot both land on a
// nearly full underwriter.
func (s *Service) Assign(ctx context.Context, id uuid.UUID, underwriterID, actor string) (domain.WorkItem, error) {
	item, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return domain.WorkItem{}, err
	}
	if item.Terminal() {
		return domain.WorkItem{}, apperr.Unprocessable(fmt.Sprintf("cannot assign a work item in terminal status %q", item.Status))
	}

	uw, err := s.uwRepo.GetByID(ctx, underwriterID)
	if err != nil {
		return domain.WorkItem{}, err
	}

	required := s.assigner.RequiredTier(assignmentRequest(item))
	if !uw.Tier.CanHandle(required) {
		return domain.WorkItem{}, apperr.Validation(fmt.Sprintf("underwriter tier %s is below the required %s tier", uw.Tier, required))
	}

	claimed, err := s.uwRepo.ClaimCapacity(ctx, underwriterID)
	if err != nil {
		return domain.WorkItem{}, err
	}
	if !claimed {
		return domain.WorkItem{}, apperr.Conflict(fmt.Sprintf("underwriter %s is at capacity", underwriterID))
	}

	previous := item.AssignedUnderwriterID
	updated, ok, err := s.repo.Assign(ctx, repository.AssignParams{
		ID:            id,
		Version:       item.Version,
		UnderwriterID: underwriterID,
		Actor:         actor,
	})
	if err != nil || !ok {
		// The claim must not leak when the assignment itself did not land.
		if releaseErr := s.uwRepo.ReleaseCapacity(ctx, underwriterID); releaseErr != nil {
			s.log.Error("release claimed capacity", "underwriter_id", underwriterID, "error", releaseErr)
		}
		if err != nil {
			return domain.WorkItem{}, err
		}
		return domain.WorkItem{}, apperr.Conflict("work item was modified concurrently; re-fetch and retry")
	}

	if previous != nil && *previous != underwriterID {
		if err := s.uwRepo.ReleaseCapacity(ctx, *previous); err != nil {
			s.log.Error("release previous assignee capacity", "underwriter_id", *previous, "error", err)
		}
	}

	riskScore := 0.0
	if updated.RiskScore != nil {
		riskScore = *updated.RiskScore
	}
	coverage := 0.0
	if updated.CoverageAmount != nil {
		coverage = *updated.CoverageAmount
	}
	s.bus.Publish(ctx, events.WorkItemAssigned{
		BaseEvent:        events.NewBaseEvent(),
		WorkItemID:       updated.ID,
		UnderwriterID:    uw.ID,
		UnderwriterEmail: uw.Email,
		UnderwriterName:  uw.Name,
		CompanyName:      updated.InsuredName,
		Industry:         updated.Industry,
		Priority:         updated.Priority,
		RiskScore:        riskScore,
		CoverageAmount:   coverage,
	})

	s.log.Info("work item assigned",
		"work_item_id", updated.ID, "underwriter_id", uw.ID, "actor", actor)
	return updated, nil
}

// Assess re-scores a work item from its stored fields and appends an
// immutable assessment snapshot.
func (s *Service) Assess(ctx context.Context, id uuid.UUID, actor string) (domain.RiskAssessment, error) {
	item, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return domain.RiskAssessment{}, err
	}

	result := s.scorer.Score(item.ExtractedFields)
	assessment, err := s.repo.AddAssessment(ctx, assessmentParams(item.ID, result, actor))
	if err != nil {
		return domain.RiskAssessment{}, err
	}

	s.log.Info("work item assessed",
		"work_item_id", id, "score", result.OverallScore, "priority", result.Priority)
	return assessment, nil
}

// Comment appends a free-text note to the audit trail.
func (s *Service) Comment(ctx context.Context, id uuid.UUID, actor, text string) error {
	return s.repo.AddComment(ctx, id, actor, text)
}

func assignmentRequest(item domain.WorkItem) engine.AssignmentRequest {
	req := engine.AssignmentRequest{Industry: item.Industry}
	if item.CoverageAmount != nil {
		req.CoverageAmount = *item.CoverageAmount
	}
	return req
}

func assessmentParams(workItemID uuid.UUID, result engine.RiskAssessment, actor string) repository.AssessmentParams {
	return repository.AssessmentParams{
		WorkItemID:      workItemID,
		OverallScore:    result.OverallScore,
		Categories:      result.Categories,
		Priority:        result.Priority,
		Factors:         result.Factors,
		Recommendations: result.Recommendations,
		Confidence:      result.Confidence,
		Actor:           actor,
	}
}
