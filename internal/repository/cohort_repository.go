package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/activity-service/internal/domain"
)

// CohortRepository defines persistence access for cohorts and their member
// lists. AddMember and RemoveMember are idempotent so the membership sync
// step can be re-run safely after a partial failure.
type CohortRepository interface {
	Create(ctx context.Context, cohort *domain.Cohort) error
	GetByID(ctx context.Context, id string) (*domain.Cohort, error)
	List(ctx context.Context) ([]domain.Cohort, error)
	AddMember(ctx context.Context, cohortID, userID string) error
	RemoveMember(ctx context.Context, cohortID, userID string) error
}

type cohortRepository struct {
	pool *pgxpool.Pool
}

// NewCohortRepository returns a Postgres-backed implementation.
func NewCohortRepository(pool *pgxpool.Pool) CohortRepository {
	return &cohortRepository{pool: pool}
}

func (r *cohortRepository) Create(ctx context.Context, cohort *domain.Cohort) error {
	const query = `
        INSERT INTO cohorts (name)
        VALUES ($1)
        RETURNING id, created_at, updated_at`

	return r.pool.QueryRow(ctx, query, cohort.Name).
		Scan(&cohort.ID, &cohort.CreatedAt, &cohort.UpdatedAt)
}

func (r *cohortRepository) GetByID(ctx context.Context, id string) (*domain.Cohort, error) {
	const query = `SELECT id, name, created_at, updated_at FROM cohorts WHERE id=$1`

	var cohort domain.Cohort
	if err := r.pool.QueryRow(ctx, query, id).Scan(
		&cohort.ID,
		&cohort.Name,
		&cohort.CreatedAt,
		&cohort.UpdatedAt,
	); err != nil {
		return nil, err
	}

	members, err := r.listMembers(ctx, id)
	if err != nil {
		return nil, err
	}
	cohort.MemberIDs = members
	return &cohort, nil
}

func (r *cohortRepository) List(ctx context.Context) ([]domain.Cohort, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name, created_at, updated_at FROM cohorts ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Cohort
	for rows.Next() {
		var cohort domain.Cohort
		if err := rows.Scan(&cohort.ID, &cohort.Name, &cohort.CreatedAt, &cohort.UpdatedAt); err != nil {
			return nil, err
		}
		result = append(result, cohort)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range result {
		members, err := r.listMembers(ctx, result[i].ID)
		if err != nil {
			return nil, err
		}
		result[i].MemberIDs = members
	}
	return result, nil
}

func (r *cohortRepository) AddMember(ctx context.Context, cohortID, userID string) error {
	const query = `
        INSERT INTO cohort_members (cohort_id, user_id)
        VALUES ($1, $2)
        ON CONFLICT (cohort_id, user_id) DO NOTHING`
	_, err := r.pool.Exec(ctx, query, cohortID, userID)
	return err
}

func (r *cohortRepository) RemoveMember(ctx context.Context, cohortID, userID string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM cohort_members WHERE cohort_id=$1 AND user_id=$2`, cohortID, userID)
	return err
}

func (r *cohortRepository) listMembers(ctx context.Context, cohortID string) ([]string, error) {
	rows, err := r.pool.Query(ctx, `SELECT user_id FROM cohort_members WHERE cohort_id=$1`, cohortID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var members []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		members = append(members, id)
	}
	return members, rows.Err()
}
