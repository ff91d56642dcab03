package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"uw_workbench_backend/internal/fields"
	"uw_workbench_backend/internal/submissions/domain"
	"uw_workbench_backend/platform/apperr"
)

const submissionNotFoundMessage = "submission not found"

// Repo implements the Repository interface with PostgreSQL.
type Repo struct {
	pool *pgxpool.Pool
}

// New creates a new submission repository.
func New(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

// Compile-time check that Repo implements Repository.
var _ Repository = (*Repo)(nil)

const submissionColumns = `id, submission_ref, subject, sender_email, body_text, contact_phone,
	extracted_fields, extraction_status, extraction_confidence, needs_manual_review,
	status, attachment_keys, work_item_id, created_at, updated_at`

// GetByID retrieves a submission by its numeric ID.
func (r *Repo) GetByID(ctx context.Context, id int64) (domain.Submission, error) {
	query := `SELECT ` + submissionColumns + ` FROM submissions WHERE id = $1`
	return r.one(ctx, query, id)
}

// GetByRef retrieves a submission by its immutable reference.
func (r *Repo) GetByRef(ctx context.Context, ref uuid.UUID) (domain.Submission, error) {
	query := `SELECT ` + submissionColumns + ` FROM submissions WHERE submission_ref = $1`
	return r.one(ctx, query, ref)
}

// GetByWorkItem retrieves the submission a work item was derived from.
func (r *Repo) GetByWorkItem(ctx context.Context, workItemID uuid.UUID) (domain.Submission, error) {
	query := `SELECT ` + submissionColumns + ` FROM submissions WHERE work_item_id = $1`
	return r.one(ctx, query, workItemID)
}

func (r *Repo) one(ctx context.Context, query string, arg interface{}) (domain.Submission, error) {
	sub, err := scanSubmission(r.pool.QueryRow(ctx, query, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Submission{}, apperr.NotFound(submissionNotFoundMessage)
		}
		return domain.Submission{}, fmt.Errorf("get submission: %w", err)
	}
	return sub, nil
}

// List retrieves submissions with optional filters, newest first.
func (r *Repo) List(ctx context.Context, params ListParams) ([]domain.Submission, int, error) {
	var statusParam, reviewParam interface{}
	if params.Status != "" {
		statusParam = params.Status
	}
	if params.NeedsManualReview != nil {
		reviewParam = *params.NeedsManualReview
	}

	limit := params.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	countQuery := `
		SELECT COUNT(*)
		FROM submissions
		WHERE ($1::text IS NULL OR status = $1)
			AND ($2::boolean IS NULL OR needs_manual_review = $2)`

	var total int
	if err := r.pool.QueryRow(ctx, countQuery, statusParam, reviewParam).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count submissions: %w", err)
	}

	query := `
		SELECT ` + submissionColumns + `
		FROM submissions
		WHERE ($1::text IS NULL OR status = $1)
			AND ($2::boolean IS NULL OR needs_manual_review = $2)
		ORDER BY created_at DESC, id DESC
		LIMIT $3 OFFSET $4`

	rows, err := r.pool.Query(ctx, query, statusParam, reviewParam, limit, params.Offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list submissions: %w", err)
	}
	defer rows.Close()

	items := make([]domain.Submission, 0)
	for rows.Next() {
		sub, err := scanSubmission(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan submission: %w", err)
		}
		items = append(items, sub)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate submissions: %w", err)
	}
	return items, total, nil
}

// Create persists an inbound submission in the new status with extraction
// pending.
func (r *Repo) Create(ctx context.Context, params CreateParams) (domain.Submission, error) {
	query := `
		INSERT INTO submissions (submission_ref, subject, sender_email, body_text, contact_phone, attachment_keys)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING ` + submissionColumns

	sub, err := scanSubmission(r.pool.QueryRow(ctx, query,
		params.SubmissionRef, params.Subject, params.SenderEmail, params.BodyText,
		params.ContactPhone, params.AttachmentKeys,
	))
	if err != nil {
		return domain.Submission{}, fmt.Errorf("create submission: %w", err)
	}
	return sub, nil
}

// SetExtractionResult applies the extraction outcome in a single UPDATE so a
// cancelled processing run can never leave the fields half-written.
func (r *Repo) SetExtractionResult(ctx context.Context, result ExtractionResult) (domain.Submission, error) {
	fieldsJSON, err := result.Fields.ToJSON()
	if err != nil {
		return domain.Submission{}, fmt.Errorf("encode extracted fields: %w", err)
	}

	query := `
		UPDATE submissions
		SET extracted_fields = $2, extraction_status = $3, extraction_confidence = $4,
			needs_manual_review = $5, updated_at = now()
		WHERE id = $1
		RETURNING ` + submissionColumns

	sub, err := scanSubmission(r.pool.QueryRow(ctx, query,
		result.SubmissionID, fieldsJSON, result.Status, result.Confidence, result.NeedsManualReview,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Submission{}, apperr.NotFound(submissionNotFoundMessage)
		}
		return domain.Submission{}, fmt.Errorf("set extraction result: %w", err)
	}
	return sub, nil
}

// SetStatus moves the envelope when it is still in the expected status. The
// second return is false when another writer got there first.
func (r *Repo) SetStatus(ctx context.Context, id int64, fromStatus, toStatus string) (domain.Submission, bool, error) {
	query := `
		UPDATE submissions
		SET status = $3, updated_at = now()
		WHERE id = $1 AND status = $2
		RETURNING ` + submissionColumns

	sub, err := scanSubmission(r.pool.QueryRow(ctx, query, id, fromStatus, toStatus))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Submission{}, false, nil
		}
		return domain.Submission{}, false, fmt.Errorf("set submission status: %w", err)
	}
	return sub, true, nil
}

// LinkWorkItem records the derived work item on the envelope.
func (r *Repo) LinkWorkItem(ctx context.Context, id int64, workItemID uuid.UUID) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE submissions SET work_item_id = $2, updated_at = now() WHERE id = $1`, id, workItemID)
	if err != nil {
		return fmt.Errorf("link work item: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound(submissionNotFoundMessage)
	}
	return nil
}

func scanSubmission(row pgx.Row) (domain.Submission, error) {
	var sub domain.Submission
	var fieldsRaw []byte
	var createdAt, updatedAt time.Time

	err := row.Scan(
		&sub.ID, &sub.SubmissionRef, &sub.Subject, &sub.SenderEmail, &sub.BodyText, &sub.ContactPhone,
		&fieldsRaw, &sub.ExtractionStatus, &sub.ExtractionConfidence, &sub.NeedsManualReview,
		&sub.Status, &sub.AttachmentKeys, &sub.WorkItemID, &createdAt, &updatedAt,
	)
	if err != nil {
		return domain.Submission{}, err
	}

	extracted, err := fields.FromJSON(fieldsRaw)
	if err != nil {
		return domain.Submission{}, fmt.Errorf("decode extracted fields: %w", err)
	}
	sub.ExtractedFields = extracted
	sub.CreatedAt = createdAt.Format(time.RFC3339)
	sub.UpdatedAt = updatedAt.Format(time.RFC3339)
	return sub, nil
}
