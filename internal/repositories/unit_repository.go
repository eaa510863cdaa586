package repositories

import (
	"context"

	"github.com/KevinWolf254/Qwangu-pms-sub002/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
)

type UnitRepository interface {
	Create(ctx context.Context, u *models.Unit) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Unit, error)

	// GetByIDAndStatus returns nil when the unit is missing or its status
	// is not one of statuses.
	GetByIDAndStatus(ctx context.Context, id uuid.UUID, statuses ...models.UnitStatus) (*models.Unit, error)

	// TransitionStatus moves the unit from one status to another and
	// reports false when the unit was no longer in `from`.
	TransitionStatus(ctx context.Context, id uuid.UUID, from, to models.UnitStatus) (bool, error)

	UpdateIfVersion(ctx context.Context, u *models.Unit, expected int64) (pgconn.CommandTag, error)
	UpdateWithRetry(ctx context.Context, id uuid.UUID, mutate func(*models.Unit) error) error
}

type unitRepo struct {
	versionedRepo[*models.Unit]
	db DB
}

func NewUnitRepository(db DB) UnitRepository {
	r := &unitRepo{db: db}
	r.versionedRepo = newVersionedRepo(db, baseSelectUnit()+" WHERE id=$1", r.scanUnit)
	return r
}

func (r *unitRepo) Create(ctx context.Context, u *models.Unit) error {
	return r.db.QueryRow(ctx, `
		INSERT INTO units (
			id, unit_number, status, currency,
			rent_per_month, security_per_month, garbage_per_month,
			created_at, updated_at, row_version
		) VALUES ($1,$2,$3,$4,$5,$6,$7, NOW(), NOW(), 1)
		RETURNING created_at, updated_at, row_version
	`, u.ID, u.Number, u.Status, u.Currency,
		u.RentPerMonth, u.SecurityPerMonth, u.GarbagePerMonth,
	).Scan(&u.CreatedAt, &u.UpdatedAt, &u.RowVersion)
}

func (r *unitRepo) GetByIDAndStatus(ctx context.Context, id uuid.UUID, statuses ...models.UnitStatus) (*models.Unit, error) {
	row := r.db.QueryRow(ctx, baseSelectUnit()+" WHERE id=$1 AND status = ANY($2)", id, unitStatusStrings(statuses))
	return r.scanUnit(row)
}

func (r *unitRepo) TransitionStatus(ctx context.Context, id uuid.UUID, from, to models.UnitStatus) (bool, error) {
	tag, err := r.db.Exec(ctx, `
		UPDATE units
		SET status=$3, updated_at=NOW(), row_version=row_version+1
		WHERE id=$1 AND status=$2
	`, id, from, to)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *unitRepo) UpdateIfVersion(ctx context.Context, u *models.Unit, expected int64) (pgconn.CommandTag, error) {
	return r.db.Exec(ctx, `
		UPDATE units
		SET unit_number=$1, currency=$2,
			rent_per_month=$3, security_per_month=$4, garbage_per_month=$5,
			updated_at=NOW(), row_version=row_version+1
		WHERE id=$6 AND row_version=$7
	`, u.Number, u.Currency, u.RentPerMonth, u.SecurityPerMonth, u.GarbagePerMonth, u.ID, expected)
}

func (r *unitRepo) UpdateWithRetry(ctx context.Context, id uuid.UUID, mutate func(*models.Unit) error) error {
	return r.updateWithRetry(ctx, id, mutate, r.UpdateIfVersion)
}

func baseSelectUnit() string {
	return `
		SELECT id, unit_number, status, currency,
			rent_per_month, security_per_month, garbage_per_month,
			created_at, updated_at, row_version
		FROM units`
}

func (r *unitRepo) scanUnit(row pgx.Row) (*models.Unit, error) {
	var u models.Unit
	if err := row.Scan(
		&u.ID, &u.Number, &u.Status, &u.Currency,
		&u.RentPerMonth, &u.SecurityPerMonth, &u.GarbagePerMonth,
		&u.CreatedAt, &u.UpdatedAt, &u.RowVersion,
	); err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &u, nil
}

func unitStatusStrings(statuses []models.UnitStatus) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}
