package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/KevinWolf254/Qwangu-pms-sub002/internal/models"
	"github.com/KevinWolf254/Qwangu-pms-sub002/internal/utils"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
)

type OccupationRepository interface {
	Create(ctx context.Context, o *models.Occupation) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Occupation, error)
	GetByNumber(ctx context.Context, number string) (*models.Occupation, error)

	// ListByStartDateAndStatuses pages newest first, id descending on ties.
	ListByStartDateAndStatuses(ctx context.Context, startDate time.Time, statuses []models.OccupationStatus, page TimePage) ([]*models.Occupation, error)

	// ListByStatuses pages through occupations by id.
	ListByStatuses(ctx context.Context, statuses []models.OccupationStatus, page Page) ([]*models.Occupation, error)

	// TransitionStatus is conditional on the current status. endDate is
	// only written when non-nil.
	TransitionStatus(ctx context.Context, id uuid.UUID, from, to models.OccupationStatus, endDate *time.Time) (bool, error)

	// LockOccupation serializes ledger and numbering writes for one
	// occupation until the surrounding transaction ends.
	LockOccupation(ctx context.Context, id uuid.UUID) error
}

type occupationRepo struct {
	versionedRepo[*models.Occupation]
	db DB
}

func NewOccupationRepository(db DB) OccupationRepository {
	r := &occupationRepo{db: db}
	r.versionedRepo = newVersionedRepo(db, baseSelectOccupation()+" WHERE id=$1", r.scanOccupation)
	return r
}

func (r *occupationRepo) Create(ctx context.Context, o *models.Occupation) error {
	return r.db.QueryRow(ctx, `
		INSERT INTO occupations (
			id, number, status, start_date, end_date, tenant_id, unit_id,
			created_at, updated_at, row_version
		) VALUES ($1,$2,$3,$4,$5,$6,$7, NOW(), NOW(), 1)
		RETURNING created_at, updated_at, row_version
	`, o.ID, o.Number, o.Status, o.StartDate, o.EndDate, o.TenantID, o.UnitID,
	).Scan(&o.CreatedAt, &o.UpdatedAt, &o.RowVersion)
}

func (r *occupationRepo) GetByNumber(ctx context.Context, number string) (*models.Occupation, error) {
	return r.scanOccupation(r.db.QueryRow(ctx, baseSelectOccupation()+" WHERE number=$1", number))
}

func (r *occupationRepo) ListByStartDateAndStatuses(
	ctx context.Context,
	startDate time.Time,
	statuses []models.OccupationStatus,
	page TimePage,
) ([]*models.Occupation, error) {
	sql := baseSelectOccupation() + " WHERE start_date=$1 AND status = ANY($2)"
	args := []any{startDate, occupationStatusStrings(statuses)}
	if page.After != nil {
		sql += " AND (created_at, id) < ($3, $4)"
		args = append(args, page.After.CreatedAt, page.After.ID)
	}
	sql += fmt.Sprintf(" ORDER BY created_at DESC, id DESC LIMIT %d", page.Limit)

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return r.scanOccupations(rows)
}

func (r *occupationRepo) ListByStatuses(
	ctx context.Context,
	statuses []models.OccupationStatus,
	page Page,
) ([]*models.Occupation, error) {
	sql := baseSelectOccupation() + " WHERE status = ANY($1)"
	args := []any{occupationStatusStrings(statuses)}
	if page.After != nil {
		sql += " AND id > $2"
		args = append(args, *page.After)
	}
	sql += fmt.Sprintf(" ORDER BY id ASC LIMIT %d", page.Limit)

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return r.scanOccupations(rows)
}

func (r *occupationRepo) TransitionStatus(
	ctx context.Context,
	id uuid.UUID,
	from, to models.OccupationStatus,
	endDate *time.Time,
) (bool, error) {
	tag, err := r.db.Exec(ctx, `
		UPDATE occupations
		SET status=$3, end_date=COALESCE($4, end_date), updated_at=NOW(), row_version=row_version+1
		WHERE id=$1 AND status=$2
	`, id, from, to, endDate)
	if err != nil {
		if isUniqueViolation(err) {
			return false, fmt.Errorf("%w: unit already has a current occupation", utils.ErrConflict)
		}
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *occupationRepo) LockOccupation(ctx context.Context, id uuid.UUID) error {
	_, err := r.db.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`, id.String())
	return err
}

func baseSelectOccupation() string {
	return `
		SELECT id, number, status, start_date, end_date, tenant_id, unit_id,
			created_at, updated_at, row_version
		FROM occupations`
}

func (r *occupationRepo) scanOccupation(row pgx.Row) (*models.Occupation, error) {
	var o models.Occupation
	if err := row.Scan(
		&o.ID, &o.Number, &o.Status, &o.StartDate, &o.EndDate, &o.TenantID, &o.UnitID,
		&o.CreatedAt, &o.UpdatedAt, &o.RowVersion,
	); err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &o, nil
}

func (r *occupationRepo) scanOccupations(rows pgx.Rows) ([]*models.Occupation, error) {
	var out []*models.Occupation
	for rows.Next() {
		o, err := r.scanOccupation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func occupationStatusStrings(statuses []models.OccupationStatus) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}
