package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/activity-service/internal/domain"
)

// ActivityFilter captures public search parameters. StartDate matches any
// activity starting within that calendar day.
type ActivityFilter struct {
	Name       *string
	Campus     *string
	Category   *domain.ActivityCategory
	Visibility *bool
	AuthorID   *string
	StartDate  *time.Time
	Limit      int
	Offset     int
}

// Empty reports whether no filter or paging is applied; the unfiltered
// public feed is the only cacheable listing.
func (f ActivityFilter) Empty() bool {
	return f.Name == nil && f.Campus == nil && f.Category == nil &&
		f.Visibility == nil && f.AuthorID == nil && f.StartDate == nil &&
		f.Limit == 0 && f.Offset == 0
}

// ActivityRepository encapsulates activity persistence.
type ActivityRepository interface {
	Create(ctx context.Context, activity *domain.Activity) error
	Update(ctx context.Context, activity *domain.Activity) error
	Delete(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (*domain.Activity, error)
	ListWithFilter(ctx context.Context, filter ActivityFilter) ([]domain.Activity, error)
}

type activityRepository struct {
	pool *pgxpool.Pool
}

// NewActivityRepository instantiates repository.
func NewActivityRepository(pool *pgxpool.Pool) ActivityRepository {
	return &activityRepository{pool: pool}
}

const activityColumns = `id, name, description, campus, category, visibility, author_id, start_date, student_count, created_at, updated_at`

func (r *activityRepository) Create(ctx context.Context, activity *domain.Activity) error {
	const query = `
        INSERT INTO activities (name, description, campus, category, visibility, author_id, start_date, student_count)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
        RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		activity.Name,
		activity.Description,
		activity.Campus,
		activity.Category,
		activity.Visibility,
		activity.AuthorID,
		activity.StartDate,
		activity.StudentCount,
	).Scan(&activity.ID, &activity.CreatedAt, &activity.UpdatedAt)
}

func (r *activityRepository) Update(ctx context.Context, activity *domain.Activity) error {
	const query = `
        UPDATE activities SET name=$1, description=$2, campus=$3, category=$4, visibility=$5,
            start_date=$6, student_count=$7, updated_at=NOW()
        WHERE id=$8`
	cmd, err := r.pool.Exec(ctx, query,
		activity.Name,
		activity.Description,
		activity.Campus,
		activity.Category,
		activity.Visibility,
		activity.StartDate,
		activity.StudentCount,
		activity.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *activityRepository) Delete(ctx context.Context, id string) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM activities WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *activityRepository) GetByID(ctx context.Context, id string) (*domain.Activity, error) {
	var activity domain.Activity
	if err := r.pool.QueryRow(ctx, `SELECT `+activityColumns+` FROM activities WHERE id=$1`, id).Scan(
		&activity.ID,
		&activity.Name,
		&activity.Description,
		&activity.Campus,
		&activity.Category,
		&activity.Visibility,
		&activity.AuthorID,
		&activity.StartDate,
		&activity.StudentCount,
		&activity.CreatedAt,
		&activity.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &activity, nil
}

func (r *activityRepository) ListWithFilter(ctx context.Context, filter ActivityFilter) ([]domain.Activity, error) {
	base := `SELECT ` + activityColumns + ` FROM activities`
	clauses := []string{"1=1"}
	args := []any{}

	if filter.Name != nil && strings.TrimSpace(*filter.Name) != "" {
		args = append(args, "%"+strings.ToLower(strings.TrimSpace(*filter.Name))+"%")
		clauses = append(clauses, fmt.Sprintf("LOWER(name) LIKE $%d", len(args)))
	}
	if filter.Campus != nil {
		args = append(args, *filter.Campus)
		clauses = append(clauses, fmt.Sprintf("campus=$%d", len(args)))
	}
	if filter.Category != nil {
		args = append(args, *filter.Category)
		clauses = append(clauses, fmt.Sprintf("category=$%d", len(args)))
	}
	if filter.Visibility != nil {
		args = append(args, *filter.Visibility)
		clauses = append(clauses, fmt.Sprintf("visibility=$%d", len(args)))
	}
	if filter.AuthorID != nil {
		args = append(args, *filter.AuthorID)
		clauses = append(clauses, fmt.Sprintf("author_id=$%d", len(args)))
	}
	if filter.StartDate != nil {
		dayStart := filter.StartDate.Truncate(24 * time.Hour)
		dayEnd := dayStart.Add(24*time.Hour - time.Nanosecond)
		args = append(args, dayStart)
		clauses = append(clauses, fmt.Sprintf("start_date >= $%d", len(args)))
		args = append(args, dayEnd)
		clauses = append(clauses, fmt.Sprintf("start_date <= $%d", len(args)))
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := fmt.Sprintf(`%s WHERE %s ORDER BY created_at DESC LIMIT %d OFFSET %d`,
		base, strings.Join(clauses, " AND "), limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanActivities(rows)
}

func scanActivities(rows pgx.Rows) ([]domain.Activity, error) {
	var result []domain.Activity
	for rows.Next() {
		var activity domain.Activity
		if err := rows.Scan(
			&activity.ID,
			&activity.Name,
			&activity.Description,
			&activity.Campus,
			&activity.Category,
			&activity.Visibility,
			&activity.AuthorID,
			&activity.StartDate,
			&activity.StudentCount,
			&activity.CreatedAt,
			&activity.UpdatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, activity)
	}
	return result, rows.Err()
}
