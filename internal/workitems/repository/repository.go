package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"uw_workbench_backend/internal/fields"
	"uw_workbench_backend/internal/workitems/domain"
	"uw_workbench_backend/platform/apperr"
)

const workItemNotFoundMessage = "work item not found"

// Repo implements the Repository interface with PostgreSQL.
type Repo struct {
	pool *pgxpool.Pool
}

// New creates a new work item repository.
func New(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

// Compile-time check that Repo implements Repository.
var _ Repository = (*Repo)(nil)

const workItemColumns = `id, submission_id, submission_ref, insured_name, industry, policy_type,
	coverage_amount, extracted_fields, status, priority, risk_score, validation_status,
	missing_fields, rejection_reasons, assigned_underwriter_id, version, created_at, updated_at`

// GetByID retrieves a work item.
func (r *Repo) GetByID(ctx context.Context, id uuid.UUID) (domain.WorkItem, error) {
	query := `SELECT ` + workItemColumns + ` FROM work_items WHERE id = $1`

	item, err := scanWorkItem(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.WorkItem{}, apperr.NotFound(workItemNotFoundMessage)
		}
		return domain.WorkItem{}, fmt.Errorf("get work item: %w", err)
	}
	return item, nil
}

// List retrieves work items with optional status, priority, and assignee
// filters, newest first.
func (r *Repo) List(ctx context.Context, params ListParams) ([]domain.WorkItem, int, error) {
	var statusParam, priorityParam, underwriterParam interface{}
	if params.Status != "" {
		statusParam = params.Status
	}
	if params.Priority != "" {
		priorityParam = params.Priority
	}
	if params.UnderwriterID != "" {
		underwriterParam = params.UnderwriterID
	}

	limit := params.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	countQuery := `
		SELECT COUNT(*)
		FROM work_items
		WHERE ($1::text IS NULL OR status = $1)
			AND ($2::text IS NULL OR priority = $2)
			AND ($3::text IS NULL OR assigned_underwriter_id = $3)`

	var total int
	if err := r.pool.QueryRow(ctx, countQuery, statusParam, priorityParam, underwriterParam).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count work items: %w", err)
	}

	query := `
		SELECT ` + workItemColumns + `
		FROM work_items
		WHERE ($1::text IS NULL OR status = $1)
			AND ($2::text IS NULL OR priority = $2)
			AND ($3::text IS NULL OR assigned_underwriter_id = $3)
		ORDER BY created_at DESC, id DESC
		LIMIT $4 OFFSET $5`

	rows, err := r.pool.Query(ctx, query, statusParam, priorityParam, underwriterParam, limit, params.Offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list work items: %w", err)
	}
	defer rows.Close()

	items := make([]domain.WorkItem, 0)
	for rows.Next() {
		item, err := scanWorkItem(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan work item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate work items: %w", err)
	}
	return items, total, nil
}

// History returns the audit trail of a work item in sequence order.
func (r *Repo) History(ctx context.Context, id uuid.UUID) ([]domain.HistoryEntry, error) {
	query := `
		SELECT work_item_id, seq, action, from_status, to_status, actor, reason, created_at
		FROM work_item_history
		WHERE work_item_id = $1
		ORDER BY seq ASC`

	rows, err := r.pool.Query(ctx, query, id)
	if err != nil {
		return nil, fmt.Errorf("get work item history: %w", err)
	}
	defer rows.Close()

	entries := make([]domain.HistoryEntry, 0)
	for rows.Next() {
		var entry domain.HistoryEntry
		var createdAt time.Time
		if err := rows.Scan(&entry.WorkItemID, &entry.Seq, &entry.Action,
			&entry.FromStatus, &entry.ToStatus, &entry.Actor, &entry.Reason, &createdAt); err != nil {
			return nil, fmt.Errorf("scan history entry: %w", err)
		}
		entry.CreatedAt = createdAt.Format(time.RFC3339)
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate history: %w", err)
	}
	return entries, nil
}

// Assessments returns all scoring snapshots of a work item, newest first.
func (r *Repo) Assessments(ctx context.Context, id uuid.UUID) ([]domain.RiskAssessment, error) {
	query := `
		SELECT id, work_item_id, overall_score, categories, priority, factors, recommendations, confidence, created_at
		FROM risk_assessments
		WHERE work_item_id = $1
		ORDER BY created_at DESC, id DESC`

	rows, err := r.pool.Query(ctx, query, id)
	if err != nil {
		return nil, fmt.Errorf("list risk assessments: %w", err)
	}
	defer rows.Close()

	assessments := make([]domain.RiskAssessment, 0)
	for rows.Next() {
		var a domain.RiskAssessment
		var categoriesRaw, factorsRaw []byte
		var createdAt time.Time
		if err := rows.Scan(&a.ID, &a.WorkItemID, &a.OverallScore, &categoriesRaw,
			&a.Priority, &factorsRaw, &a.Recommendations, &a.Confidence, &createdAt); err != nil {
			return nil, fmt.Errorf("scan risk assessment: %w", err)
		}
		if err := json.Unmarshal(categoriesRaw, &a.Categories); err != nil {
			return nil, fmt.Errorf("decode assessment categories: %w", err)
		}
		if len(factorsRaw) > 0 {
			if err := json.Unmarshal(factorsRaw, &a.Factors); err != nil {
				return nil, fmt.Errorf("decode assessment factors: %w", err)
			}
		}
		a.CreatedAt = createdAt.Format(time.RFC3339)
		assessments = append(assessments, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate risk assessments: %w", err)
	}
	return assessments, nil
}

// Create opens a work item and writes the creation history entry in one
// transaction.
func (r *Repo) Create(ctx context.Context, params CreateParams) (domain.WorkItem, error) {
	fieldsJSON, err := params.ExtractedFields.ToJSON()
	if err != nil {
		return domain.WorkItem{}, fmt.Errorf("encode extracted fields: %w", err)
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return domain.WorkItem{}, fmt.Errorf("begin create work item: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO work_items (submission_id, submission_ref, insured_name, industry, policy_type,
			coverage_amount, extracted_fields, status, priority, risk_score, validation_status,
			missing_fields, rejection_reasons)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING ` + workItemColumns

	item, err := scanWorkItem(tx.QueryRow(ctx, query,
		params.SubmissionID, params.SubmissionRef, params.InsuredName, params.Industry, params.PolicyType,
		params.CoverageAmount, fieldsJSON, params.Status, params.Priority, params.RiskScore,
		params.ValidationStatus, params.MissingFields, params.RejectionReasons,
	))
	if err != nil {
		return domain.WorkItem{}, fmt.Errorf("create work item: %w", err)
	}

	if err := appendHistory(ctx, tx, item.ID, domain.HistoryCreated, "", params.Status, params.Actor, ""); err != nil {
		return domain.WorkItem{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return domain.WorkItem{}, fmt.Errorf("commit create work item: %w", err)
	}
	return item, nil
}

// Transition applies a version-guarded status change and appends the
// matching history entry atomically. The second return is false when the
// stored version no longer matches (or the item does not exist); the caller
// re-reads to tell those cases apart.
func (r *Repo) Transition(ctx context.Context, params TransitionParams) (domain.WorkItem, bool, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return domain.WorkItem{}, false, fmt.Errorf("begin transition: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		UPDATE work_items
		SET status = $3, version = version + 1, updated_at = now()
		WHERE id = $1 AND version = $2
		RETURNING ` + workItemColumns

	item, err := scanWorkItem(tx.QueryRow(ctx, query, params.ID, params.Version, params.ToStatus))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.WorkItem{}, false, nil
		}
		return domain.WorkItem{}, false, fmt.Errorf("transition work item: %w", err)
	}

	if err := appendHistory(ctx, tx, item.ID, domain.HistoryStatusChanged,
		params.FromStatus, params.ToStatus, params.Actor, params.Reason); err != nil {
		return domain.WorkItem{}, false, err
	}

	if err := tx.Commit(ctx); err != nil {
		return domain.WorkItem{}, false, fmt.Errorf("commit transition: %w", err)
	}
	return item, true, nil
}

// Assign records the underwriter on a version-guarded update with its
// history entry.
func (r *Repo) Assign(ctx context.Context, params AssignParams) (domain.WorkItem, bool, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return domain.WorkItem{}, false, fmt.Errorf("begin assign: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		UPDATE work_items
		SET assigned_underwriter_id = $3, version = version + 1, updated_at = now()
		WHERE id = $1 AND version = $2
		RETURNING ` + workItemColumns

	item, err := scanWorkItem(tx.QueryRow(ctx, query, params.ID, params.Version, params.UnderwriterID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.WorkItem{}, false, nil
		}
		return domain.WorkItem{}, false, fmt.Errorf("assign work item: %w", err)
	}

	reason := fmt.Sprintf("assigned to %s", params.UnderwriterID)
	if err := appendHistory(ctx, tx, item.ID, domain.HistoryAssigned, "", "", params.Actor, reason); err != nil {
		return domain.WorkItem{}, false, err
	}

	if err := tx.Commit(ctx); err != nil {
		return domain.WorkItem{}, false, fmt.Errorf("commit assign: %w", err)
	}
	return item, true, nil
}

// AddAssessment stores an immutable scoring snapshot, refreshes the work
// item's current score and priority, and appends the audit entry, all in
// one transaction.
func (r *Repo) AddAssessment(ctx context.Context, params AssessmentParams) (domain.RiskAssessment, error) {
	categoriesJSON, err := json.Marshal(params.Categories)
	if err != nil {
		return domain.RiskAssessment{}, fmt.Errorf("encode assessment categories: %w", err)
	}
	factorsJSON, err := json.Marshal(params.Factors)
	if err != nil {
		return domain.RiskAssessment{}, fmt.Errorf("encode assessment factors: %w", err)
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return domain.RiskAssessment{}, fmt.Errorf("begin add assessment: %w", err)
	}
	defer tx.Rollback(ctx)

	// Lock the item row first so the history sequence cannot race.
	updateQuery := `
		UPDATE work_items
		SET risk_score = $2, priority = $3, updated_at = now()
		WHERE id = $1`
	tag, err := tx.Exec(ctx, updateQuery, params.WorkItemID, params.OverallScore, params.Priority)
	if err != nil {
		return domain.RiskAssessment{}, fmt.Errorf("refresh work item score: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.RiskAssessment{}, apperr.NotFound(workItemNotFoundMessage)
	}

	insertQuery := `
		INSERT INTO risk_assessments (work_item_id, overall_score, categories, priority, factors, recommendations, confidence, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at`

	assessment := domain.RiskAssessment{
		WorkItemID:      params.WorkItemID,
		OverallScore:    params.OverallScore,
		Categories:      params.Categories,
		Priority:        params.Priority,
		Factors:         params.Factors,
		Recommendations: params.Recommendations,
		Confidence:      params.Confidence,
	}
	var createdAt time.Time
	err = tx.QueryRow(ctx, insertQuery, params.WorkItemID, params.OverallScore, categoriesJSON,
		params.Priority, factorsJSON, params.Recommendations, params.Confidence, params.Actor,
	).Scan(&assessment.ID, &createdAt)
	if err != nil {
		return domain.RiskAssessment{}, fmt.Errorf("insert risk assessment: %w", err)
	}
	assessment.CreatedAt = createdAt.Format(time.RFC3339)

	reason := fmt.Sprintf("risk score %.1f (%s)", params.OverallScore, params.Priority)
	if err := appendHistory(ctx, tx, params.WorkItemID, domain.HistoryRiskAssessed, "", "", params.Actor, reason); err != nil {
		return domain.RiskAssessment{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return domain.RiskAssessment{}, fmt.Errorf("commit add assessment: %w", err)
	}
	return assessment, nil
}

// AddComment appends a free-text audit entry.
func (r *Repo) AddComment(ctx context.Context, id uuid.UUID, actor, text string) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin add comment: %w", err)
	}
	defer tx.Rollback(ctx)

	// Lock the item row to serialize the history sequence.
	var found uuid.UUID
	err = tx.QueryRow(ctx, `SELECT id FROM work_items WHERE id = $1 FOR UPDATE`, id).Scan(&found)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperr.NotFound(workItemNotFoundMessage)
		}
		return fmt.Errorf("lock work item: %w", err)
	}

	if err := appendHistory(ctx, tx, id, domain.HistoryCommented, "", "", actor, text); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit add comment: %w", err)
	}
	return nil
}

// appendHistory writes the next numbered audit entry. Callers must hold the
// work item's row lock in the same transaction so the sequence stays gapless
// under concurrent writers.
func appendHistory(ctx context.Context, tx pgx.Tx, workItemID uuid.UUID, action, from, to, actor, reason string) error {
	query := `
		INSERT INTO work_item_history (work_item_id, seq, action, from_status, to_status, actor, reason)
		SELECT $1, COALESCE(MAX(seq), 0) + 1, $2, $3, $4, $5, $6
		FROM work_item_history
		WHERE work_item_id = $1`

	if _, err := tx.Exec(ctx, query, workItemID, action, from, to, actor, reason); err != nil {
		return fmt.Errorf("append history entry: %w", err)
	}
	return nil
}

func scanWorkItem(row pgx.Row) (domain.WorkItem, error) {
	var item domain.WorkItem
	var fieldsRaw []byte
	var createdAt, updatedAt time.Time

	err := row.Scan(
		&item.ID, &item.SubmissionID, &item.SubmissionRef, &item.InsuredName, &item.Industry,
		&item.PolicyType, &item.CoverageAmount, &fieldsRaw, &item.Status, &item.Priority,
		&item.RiskScore, &item.ValidationStatus, &item.MissingFields, &item.RejectionReasons,
		&item.AssignedUnderwriterID, &item.Version, &createdAt, &updatedAt,
	)
	if err != nil {
		return domain.WorkItem{}, err
	}

	extracted, err := fields.FromJSON(fieldsRaw)
	if err != nil {
		return domain.WorkItem{}, fmt.Errorf("decode extracted fields: %w", err)
	}
	item.ExtractedFields = extracted
	item.CreatedAt = createdAt.Format(time.RFC3339)
	item.UpdatedAt = updatedAt.Format(time.RFC3339)
	return item, nil
}
