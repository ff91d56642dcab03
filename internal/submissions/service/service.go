// Package service handles the submission envelope: intake of inbound
// broker emails, attachment storage, and the envelope state machine. The
// extraction and triage pipeline itself runs in processing.go on the
// background worker.
package service

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"uw_workbench_backend/internal/adapters/storage"
	"uw_workbench_backend/internal/events"
	"uw_workbench_backend/internal/scheduler"
	"uw_workbench_backend/internal/submissions/domain"
	"uw_workbench_backend/internal/submissions/repository"
	"uw_workbench_backend/internal/workitems/engine"
	"uw_workbench_backend/platform/apperr"
	"uw_workbench_backend/platform/logger"
	"uw_workbench_backend/platform/phone"
	"uw_workbench_backend/platform/sanitize"
)

// Service manages submission envelopes.
type Service struct {
	repo     repository.Repository
	sched    scheduler.ExtractionScheduler
	storage  storage.Service
	bucket   string
	workflow *engine.Workflow
	bus      events.Bus
	log      *logger.Logger
}

// New creates the submission service. storageSvc may be nil when MinIO is
// not configured; attachments are then rejected.
func New(
	repo repository.Repository,
	sched scheduler.ExtractionScheduler,
	storageSvc storage.Service,
	bucket string,
	transitions map[string][]string,
	bus events.Bus,
	log *logger.Logger,
) *Service {
	return &Service{
		repo:     repo,
		sched:    sched,
		storage:  storageSvc,
		bucket:   bucket,
		workflow: engine.NewWorkflow(transitions),
		bus:      bus,
		log:      log,
	}
}

// Attachment is one uploaded file accompanying an intake request.
type Attachment struct {
	FileName    string
	ContentType string
	Size        int64
	Reader      io.Reader
}

// IntakeInput carries one inbound submission email.
type IntakeInput struct {
	Subject      string
	SenderEmail  string
	BodyText     string
	ContactPhone string
	Attachments  []Attachment
}

// Intake persists the submission and queues it for background extraction.
// The caller gets the immutable submission reference back immediately; all
// heavy work happens on the worker.
func (s *Service) Intake(ctx context.Context, input IntakeInput) (domain.Submission, error) {
	ref := uuid.New()

	var contactPhone *string
	if input.ContactPhone != "" {
		normalized := phone.NormalizeE164(input.ContactPhone)
		if normalized != "" {
			contactPhone = &normalized
		}
	}

	attachmentKeys, err := s.storeAttachments(ctx, ref, input.Attachments)
	if err != nil {
		return domain.Submission{}, err
	}

	sub, err := s.repo.Create(ctx, repository.CreateParams{
		SubmissionRef:  ref,
		Subject:        sanitize.Text(input.Subject),
		SenderEmail:    input.SenderEmail,
		BodyText:       sanitize.StripHTML(input.BodyText),
		ContactPhone:   contactPhone,
		AttachmentKeys: attachmentKeys,
	})
	if err != nil {
		return domain.Submission{}, err
	}

	if s.sched == nil {
		s.log.Warn("scheduler not configured, submission stays queued", "submission_id", sub.ID)
	} else if err := s.sched.ScheduleSubmissionExtract(ctx, scheduler.SubmissionExtractPayload{
		SubmissionID: sub.ID,
	}); err != nil {
		// The row is persisted; a stuck submission is recoverable by
		// re-enqueueing, a lost one is not.
		s.log.Error("failed to enqueue extraction", "submission_id", sub.ID, "error", err)
	}

	s.bus.Publish(ctx, events.SubmissionReceived{
		BaseEvent:     events.NewBaseEvent(),
		SubmissionID:  sub.ID,
		SubmissionRef: sub.SubmissionRef,
		SenderEmail:   sub.SenderEmail,
		Subject:       sub.Subject,
	})

	s.log.Info("submission received",
		"submission_id", sub.ID, "submission_ref", sub.SubmissionRef,
		"attachments", len(attachmentKeys))
	return sub, nil
}

func (s *Service) storeAttachments(ctx context.Context, ref uuid.UUID, attachments []Attachment) ([]string, error) {
	if len(attachments) == 0 {
		return nil, nil
	}
	if s.storage == nil {
		return nil, apperr.Unprocessable("attachment storage is not configured")
	}

	for _, att := range attachments {
		if err := s.storage.ValidateContentType(att.ContentType); err != nil {
			return nil, apperr.Validation(err.Error())
		}
		if err := s.storage.ValidateFileSize(att.Size); err != nil {
			return nil, apperr.Validation(err.Error())
		}
	}

	keys := make([]string, len(attachments))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for i, att := range attachments {
		g.Go(func() error {
			key, err := s.storage.UploadFile(gctx, s.bucket, ref.String(), att.FileName, att.ContentType, att.Reader, att.Size)
			if err != nil {
				return fmt.Errorf("store attachment %s: %w", att.FileName, err)
			}
			keys[i] = key
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return keys, nil
}

// GetByRef returns a submission by its public reference.
func (s *Service) GetByRef(ctx context.Context, ref uuid.UUID) (domain.Submission, error) {
	return s.repo.GetByRef(ctx, ref)
}

// List returns submissions matching the filters.
func (s *Service) List(ctx context.Context, params repository.ListParams) ([]domain.Submission, int, error) {
	return s.repo.List(ctx, params)
}

// AllowedTransitions returns the envelope statuses reachable from the
// submission's current status.
func (s *Service) AllowedTransitions(ctx context.Context, ref uuid.UUID) ([]string, error) {
	sub, err := s.repo.GetByRef(ctx, ref)
	if err != nil {
		return nil, err
	}
	return s.workflow.Allowed(sub.Status), nil
}

// Transition moves the submission envelope manually, for example when an
// underwriter declines or a broker withdraws.
func (s *Service) Transition(ctx context.Context, ref uuid.UUID, toStatus, actor string) (domain.Submission, error) {
	sub, err := s.repo.GetByRef(ctx, ref)
	if err != nil {
		return domain.Submission{}, err
	}

	if err := s.workflow.Validate(sub.Status, toStatus); err != nil {
		var terr *engine.TransitionError
		if errors.As(err, &terr) {
			return domain.Submission{}, apperr.Unprocessable(terr.Error())
		}
		return domain.Submission{}, err
	}

	updated, ok, err := s.repo.SetStatus(ctx, sub.ID, sub.Status, toStatus)
	if err != nil {
		return domain.Submission{}, err
	}
	if !ok {
		return domain.Submission{}, apperr.Conflict("submission was modified concurrently")
	}

	s.log.WorkflowTransition(updated.SubmissionRef.String(), sub.Status, toStatus, actor)
	return updated, nil
}
