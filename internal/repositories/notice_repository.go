package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/KevinWolf254/Qwangu-pms-sub002/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
)

type NoticeRepository interface {
	Create(ctx context.Context, n *models.Notice) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Notice, error)
	// ListActiveByVacatingDate pages newest first, id descending on ties.
	ListActiveByVacatingDate(ctx context.Context, vacatingDate time.Time, page TimePage) ([]*models.Notice, error)
	ExistsActiveForOccupation(ctx context.Context, occupationID uuid.UUID) (bool, error)

	// Deactivate flips is_active to false and reports false when the
	// notice was already inactive.
	Deactivate(ctx context.Context, id uuid.UUID) (bool, error)
}

type noticeRepo struct {
	db DB
}

func NewNoticeRepository(db DB) NoticeRepository {
	return &noticeRepo{db: db}
}

func (r *noticeRepo) Create(ctx context.Context, n *models.Notice) error {
	return r.db.QueryRow(ctx, `
		INSERT INTO notices (
			id, is_active, notification_date, vacating_date, occupation_id,
			created_at, updated_at, row_version
		) VALUES ($1,$2,$3,$4,$5, NOW(), NOW(), 1)
		RETURNING created_at, updated_at, row_version
	`, n.ID, n.IsActive, n.NotificationDate, n.VacatingDate, n.OccupationID,
	).Scan(&n.CreatedAt, &n.UpdatedAt, &n.RowVersion)
}

func (r *noticeRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Notice, error) {
	return scanNotice(r.db.QueryRow(ctx, baseSelectNotice()+" WHERE id=$1", id))
}

func (r *noticeRepo) ListActiveByVacatingDate(ctx context.Context, vacatingDate time.Time, page TimePage) ([]*models.Notice, error) {
	sql := baseSelectNotice() + " WHERE is_active AND vacating_date=$1"
	args := []any{vacatingDate}
	if page.After != nil {
		sql += " AND (created_at, id) < ($2, $3)"
		args = append(args, page.After.CreatedAt, page.After.ID)
	}
	sql += fmt.Sprintf(" ORDER BY created_at DESC, id DESC LIMIT %d", page.Limit)

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*models.Notice
	for rows.Next() {
		n, err := scanNotice(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

func (r *noticeRepo) ExistsActiveForOccupation(ctx context.Context, occupationID uuid.UUID) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM notices WHERE occupation_id=$1 AND is_active)
	`, occupationID).Scan(&exists)
	return exists, err
}

func (r *noticeRepo) Deactivate(ctx context.Context, id uuid.UUID) (bool, error) {
	tag, err := r.db.Exec(ctx, `
		UPDATE notices
		SET is_active=FALSE, updated_at=NOW(), row_version=row_version+1
		WHERE id=$1 AND is_active
	`, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func baseSelectNotice() string {
	return `
		SELECT id, is_active, notification_date, vacating_date, occupation_id,
			created_at, updated_at, row_version
		FROM notices`
}

func scanNotice(row pgx.Row) (*models.Notice, error) {
	var n models.Notice
	if err := row.Scan(
		&n.ID, &n.IsActive, &n.NotificationDate, &n.VacatingDate, &n.OccupationID,
		&n.CreatedAt, &n.UpdatedAt, &n.RowVersion,
	); err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &n, nil
}
