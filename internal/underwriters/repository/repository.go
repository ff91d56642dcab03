package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"uw_workbench_backend/internal/underwriters/domain"
	"uw_workbench_backend/platform/apperr"
)

const underwriterNotFoundMessage = "underwriter not found"

// Repo implements the Repository interface with PostgreSQL.
type Repo struct {
	pool *pgxpool.Pool
}

// New creates a new underwriter roster repository.
func New(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

// Compile-time check that Repo implements Repository.
var _ Repository = (*Repo)(nil)

const underwriterColumns = `id, name, email, tier, specializations, max_capacity, current_workload, is_available, created_at, updated_at`

// GetByID retrieves an underwriter by its roster ID.
func (r *Repo) GetByID(ctx context.Context, id string) (domain.Underwriter, error) {
	query := `
		SELECT ` + underwriterColumns + `
		FROM underwriters
		WHERE id = $1`

	uw, err := scanUnderwriter(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Underwriter{}, apperr.NotFound(underwriterNotFoundMessage)
		}
		return domain.Underwriter{}, fmt.Errorf("get underwriter by id: %w", err)
	}
	return uw, nil
}

// List retrieves the full roster ordered by ID.
func (r *Repo) List(ctx context.Context) ([]domain.Underwriter, error) {
	query := `
		SELECT ` + underwriterColumns + `
		FROM underwriters
		ORDER BY id ASC`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list underwriters: %w", err)
	}
	defer rows.Close()

	return scanUnderwriters(rows)
}

// ListAvailable retrieves underwriters marked available, ordered by ID.
// At-capacity underwriters are included here; the assignment engine applies
// the capacity gate when ranking.
func (r *Repo) ListAvailable(ctx context.Context) ([]domain.Underwriter, error) {
	query := `
		SELECT ` + underwriterColumns + `
		FROM underwriters
		WHERE is_available = true
		ORDER BY id ASC`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list available underwriters: %w", err)
	}
	defer rows.Close()

	return scanUnderwriters(rows)
}

// Create adds an underwriter to the roster.
func (r *Repo) Create(ctx context.Context, params CreateParams) (domain.Underwriter, error) {
	query := `
		INSERT INTO underwriters (id, name, email, tier, specializations, max_capacity)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING ` + underwriterColumns

	uw, err := scanUnderwriter(r.pool.QueryRow(ctx, query,
		params.ID, params.Name, params.Email, string(params.Tier), params.Specializations, params.MaxCapacity,
	))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return domain.Underwriter{}, apperr.Conflict("underwriter already exists")
		}
		return domain.Underwriter{}, fmt.Errorf("create underwriter: %w", err)
	}
	return uw, nil
}

// SetAvailability toggles whether an underwriter can receive new work.
func (r *Repo) SetAvailability(ctx context.Context, id string, available bool) (domain.Underwriter, error) {
	query := `
		UPDATE underwriters
		SET is_available = $2, updated_at = now()
		WHERE id = $1
		RETURNING ` + underwriterColumns

	uw, err := scanUnderwriter(r.pool.QueryRow(ctx, query, id, available))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Underwriter{}, apperr.NotFound(underwriterNotFoundMessage)
		}
		return domain.Underwriter{}, fmt.Errorf("set underwriter availability: %w", err)
	}
	return uw, nil
}

// ClaimCapacity increments the workload only when there is headroom. The
// guarded UPDATE makes the claim atomic under concurrent assignment; a false
// return means the underwriter filled up between recommendation and claim.
func (r *Repo) ClaimCapacity(ctx context.Context, id string) (bool, error) {
	query := `
		UPDATE underwriters
		SET current_workload = current_workload + 1, updated_at = now()
		WHERE id = $1 AND current_workload < max_capacity`

	tag, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return false, fmt.Errorf("claim underwriter capacity: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// ReleaseCapacity decrements the workload, never below zero.
func (r *Repo) ReleaseCapacity(ctx context.Context, id string) error {
	query := `
		UPDATE underwriters
		SET current_workload = GREATEST(current_workload - 1, 0), updated_at = now()
		WHERE id = $1`

	tag, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("release underwriter capacity: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound(underwriterNotFoundMessage)
	}
	return nil
}

func scanUnderwriter(row pgx.Row) (domain.Underwriter, error) {
	var uw domain.Underwriter
	var tier string
	var createdAt, updatedAt time.Time

	err := row.Scan(
		&uw.ID, &uw.Name, &uw.Email, &tier, &uw.Specializations,
		&uw.MaxCapacity, &uw.CurrentWorkload, &uw.IsAvailable, &createdAt, &updatedAt,
	)
	if err != nil {
		return domain.Underwriter{}, err
	}

	uw.Tier = domain.Tier(tier)
	uw.CreatedAt = createdAt.Format(time.RFC3339)
	uw.UpdatedAt = updatedAt.Format(time.RFC3339)
	return uw, nil
}

func scanUnderwriters(rows pgx.Rows) ([]domain.Underwriter, error) {
	items := make([]domain.Underwriter, 0)
	for rows.Next() {
		uw, err := scanUnderwriter(rows)
		if err != nil {
			return nil, fmt.Errorf("scan underwriter: %w", err)
		}
		items = append(items, uw)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate underwriters: %w", err)
	}
	return items, nil
}
