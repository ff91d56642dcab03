package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"uw_workbench_backend/internal/events"
	extraction "uw_workbench_backend/internal/extraction/client"
	"uw_workbench_backend/internal/fields"
	"uw_workbench_backend/internal/submissions/domain"
	"uw_workbench_backend/internal/submissions/repository"
	widomain "uw_workbench_backend/internal/workitems/domain"
	"uw_workbench_backend/internal/workitems/engine"
	wisvc "uw_workbench_backend/internal/workitems/service"
	"uw_workbench_backend/platform/logger"
)

// lowConfidenceThreshold flags extractions for manual review even when the
// service answered.
const lowConfidenceThreshold = 0.5

// Extractor is the extraction service client surface the processor uses.
type Extractor interface {
	Extract(ctx context.Context, req extraction.ExtractRequest) (extraction.ExtractResult, error)
}

// WorkItems is the work item service surface the processor uses.
// Satisfied by *workitems/service.Service.
type WorkItems interface {
	ValidateFields(m fields.Map, senderEmail string) engine.ValidationResult
	ScoreFields(m fields.Map) engine.RiskAssessment
	Create(ctx context.Context, input wisvc.CreateInput) (widomain.WorkItem, error)
	GetByID(ctx context.Context, id uuid.UUID) (widomain.WorkItem, error)
	Recommend(ctx context.Context, id uuid.UUID) ([]engine.Candidate, error)
	Assign(ctx context.Context, id uuid.UUID, underwriterID, actor string) (widomain.WorkItem, error)
}

// Processor runs the extraction and triage pipeline for queued submissions.
// It is invoked by the scheduler worker and is safe to re-run: each step is
// guarded so a replayed task skips what already happened.
type Processor struct {
	repo      repository.Repository
	extractor Extractor
	workItems WorkItems
	bus       events.Bus
	log       *logger.Logger
}

// NewProcessor creates the submission pipeline processor.
func NewProcessor(
	repo repository.Repository,
	extractor Extractor,
	workItems WorkItems,
	bus events.Bus,
	log *logger.Logger,
) *Processor {
	return &Processor{
		repo:      repo,
		extractor: extractor,
		workItems: workItems,
		bus:       bus,
		log:       log,
	}
}

// Process runs the full pipeline for one submission: extraction, field
// validation, risk scoring, work item creation, and auto-assignment.
func (p *Processor) Process(ctx context.Context, submissionID int64) error {
	sub, err := p.repo.GetByID(ctx, submissionID)
	if err != nil {
		return err
	}

	// A replayed task for a submission that already produced a work item
	// or left the intake stage has nothing to do.
	if sub.WorkItemID != nil || sub.Terminal() {
		return nil
	}

	if sub.Status == domain.StatusNew {
		moved, ok, err := p.repo.SetStatus(ctx, sub.ID, domain.StatusNew, domain.StatusIntake)
		if err != nil {
			return err
		}
		if ok {
			sub = moved
		} else {
			sub, err = p.repo.GetByID(ctx, submissionID)
			if err != nil {
				return err
			}
		}
	}
	if sub.Status != domain.StatusIntake {
		p.log.Warn("submission not in intake stage, skipping pipeline",
			"submission_id", sub.ID, "status", sub.Status)
		return nil
	}

	sub, err = p.extract(ctx, sub)
	if err != nil {
		return err
	}

	validation := p.workItems.ValidateFields(sub.ExtractedFields, sub.SenderEmail)

	var assessment *engine.RiskAssessment
	if validation.Status != widomain.ValidationRejected {
		scored := p.workItems.ScoreFields(sub.ExtractedFields)
		assessment = &scored
	}

	item, err := p.workItems.Create(ctx, wisvc.CreateInput{
		SubmissionID:    sub.ID,
		SubmissionRef:   sub.SubmissionRef,
		ExtractedFields: sub.ExtractedFields,
		Validation:      validation,
		Assessment:      assessment,
		Actor:           wisvc.SystemActor,
	})
	if err != nil {
		return fmt.Errorf("create work item: %w", err)
	}

	if err := p.repo.LinkWorkItem(ctx, sub.ID, item.ID); err != nil {
		return err
	}

	switch validation.Status {
	case widomain.ValidationRejected:
		return p.decline(ctx, sub, validation.RejectionReasons)
	case widomain.ValidationIncomplete:
		if err := p.moveEnvelope(ctx, sub.ID, domain.StatusIntake, domain.StatusInReview); err != nil {
			return err
		}
		p.bus.Publish(ctx, events.InfoRequested{
			BaseEvent:     events.NewBaseEvent(),
			WorkItemID:    item.ID,
			SubmissionRef: sub.SubmissionRef,
			BrokerEmail:   sub.SenderEmail,
			CompanyName:   item.InsuredName,
			MissingFields: validation.MissingFields,
			RequestedBy:   wisvc.SystemActor,
		})
		p.log.Info("submission incomplete, information requested",
			"submission_id", sub.ID, "missing", strings.Join(validation.MissingFields, ","))
		return nil
	default:
		if err := p.moveEnvelope(ctx, sub.ID, domain.StatusIntake, domain.StatusInReview); err != nil {
			return err
		}
		return p.autoAssign(ctx, sub, item)
	}
}

// extract calls the extraction service and applies the result atomically.
// Every failure path degrades to the fallback result; the pipeline never
// aborts because the extraction service is down.
func (p *Processor) extract(ctx context.Context, sub domain.Submission) (domain.Submission, error) {
	if sub.ExtractionStatus != domain.ExtractionPending {
		return sub, nil
	}

	result, err := p.extractor.Extract(ctx, extraction.ExtractRequest{
		Text:        sub.BodyText,
		Subject:     sub.Subject,
		SenderEmail: sub.SenderEmail,
	})
	if err != nil {
		p.log.ExtractionEvent(sub.SubmissionRef.String(), extraction.StatusFallbackMode, 0, err)
		result = extraction.FallbackResult()
	}

	needsReview := result.Status == extraction.StatusFallbackMode ||
		result.Confidence < lowConfidenceThreshold

	updated, err := p.repo.SetExtractionResult(ctx, repository.ExtractionResult{
		SubmissionID:      sub.ID,
		Fields:            result.Fields,
		Status:            result.Status,
		Confidence:        result.Confidence,
		NeedsManualReview: needsReview,
	})
	if err != nil {
		return domain.Submission{}, fmt.Errorf("apply extraction result: %w", err)
	}

	p.bus.Publish(ctx, events.ExtractionCompleted{
		BaseEvent:         events.NewBaseEvent(),
		SubmissionID:      updated.ID,
		SubmissionRef:     updated.SubmissionRef,
		FallbackMode:      result.Status == extraction.StatusFallbackMode,
		NeedsManualReview: needsReview,
	})
	return updated, nil
}

func (p *Processor) decline(ctx context.Context, sub domain.Submission, reasons []string) error {
	if err := p.moveEnvelope(ctx, sub.ID, domain.StatusIntake, domain.StatusDeclined); err != nil {
		return err
	}

	companyName := sub.ExtractedFields.Display("insured_name")
	p.bus.Publish(ctx, events.SubmissionRejected{
		BaseEvent:     events.NewBaseEvent(),
		SubmissionID:  sub.ID,
		SubmissionRef: sub.SubmissionRef,
		SenderEmail:   sub.SenderEmail,
		CompanyName:   companyName,
		Reasons:       reasons,
	})

	p.log.Info("submission declined",
		"submission_id", sub.ID, "reasons", strings.Join(reasons, "; "))
	return nil
}

// autoAssign tries the ranked recommendations in order. Losing a capacity
// race to a concurrent assignment just moves on to the next candidate; an
// empty list leaves the item unassigned for manual escalation.
func (p *Processor) autoAssign(ctx context.Context, sub domain.Submission, item widomain.WorkItem) error {
	candidates, err := p.workItems.Recommend(ctx, item.ID)
	if err != nil {
		p.log.Warn("recommendation failed, leaving work item unassigned",
			"work_item_id", item.ID, "error", err)
		return nil
	}
	if len(candidates) == 0 {
		p.log.Warn("no eligible underwriters, work item needs escalation",
			"work_item_id", item.ID)
		return nil
	}

	for _, candidate := range candidates {
		_, err := p.workItems.Assign(ctx, item.ID, candidate.Underwriter.ID, wisvc.SystemActor)
		if err != nil {
			p.log.Warn("auto-assignment attempt failed",
				"work_item_id", item.ID, "underwriter_id", candidate.Underwriter.ID, "error", err)
			continue
		}
		return p.moveEnvelope(ctx, sub.ID, domain.StatusInReview, domain.StatusAssigned)
	}

	p.log.Warn("all assignment candidates failed, work item needs escalation",
		"work_item_id", item.ID)
	return nil
}

// HandleStatusChanged bridges manual work item moves back to the broker:
// when an underwriter parks an item as pending_info, the broker gets an
// information request email for the still-missing fields.
func (p *Processor) HandleStatusChanged(ctx context.Context, e events.WorkItemStatusChanged) error {
	if e.ToStatus != widomain.StatusPendingInfo {
		return nil
	}

	sub, err := p.repo.GetByWorkItem(ctx, e.WorkItemID)
	if err != nil {
		p.log.Warn("no submission found for work item, skipping info request",
			"work_item_id", e.WorkItemID, "error", err)
		return nil
	}

	item, err := p.workItems.GetByID(ctx, e.WorkItemID)
	if err != nil {
		return err
	}

	p.bus.Publish(ctx, events.InfoRequested{
		BaseEvent:     events.NewBaseEvent(),
		WorkItemID:    item.ID,
		SubmissionRef: sub.SubmissionRef,
		BrokerEmail:   sub.SenderEmail,
		CompanyName:   item.InsuredName,
		MissingFields: item.MissingFields,
		RequestedBy:   e.Actor,
	})
	return nil
}

func (p *Processor) moveEnvelope(ctx context.Context, id int64, from, to string) error {
	_, ok, err := p.repo.SetStatus(ctx, id, from, to)
	if err != nil {
		return err
	}
	if !ok {
		p.log.Warn("envelope transition lost a race, leaving as is",
			"submission_id", id, "from", from, "to", to)
	}
	return nil
}
