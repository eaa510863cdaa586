package repositories

import (
	"context"

	"github.com/KevinWolf254/Qwangu-pms-sub002/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
)

type NotificationRepository interface {
	Create(ctx context.Context, n *models.Notification) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Notification, error)

	// ListByStatus returns at most limit notifications, oldest first.
	ListByStatus(ctx context.Context, status models.NotificationStatus, limit int) ([]*models.Notification, error)

	UpdateIfVersion(ctx context.Context, n *models.Notification, expected int64) (pgconn.CommandTag, error)
	UpdateWithRetry(ctx context.Context, id uuid.UUID, mutate func(*models.Notification) error) error
}

type notificationRepo struct {
	versionedRepo[*models.Notification]
	db DB
}

func NewNotificationRepository(db DB) NotificationRepository {
	r := &notificationRepo{db: db}
	r.versionedRepo = newVersionedRepo(db, baseSelectNotification()+" WHERE id=$1", scanNotification)
	return r
}

func (r *notificationRepo) Create(ctx context.Context, n *models.Notification) error {
	return r.db.QueryRow(ctx, `
		INSERT INTO notifications (
			id, channel, recipient, subject, template, message, data,
			status, attempts, last_error, sent_at,
			created_at, updated_at, row_version
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11, NOW(), NOW(), 1)
		RETURNING created_at, updated_at, row_version
	`, n.ID, n.Channel, n.To, n.Subject, n.Template, n.Message, n.Data,
		n.Status, n.Attempts, n.LastError, n.SentAt,
	).Scan(&n.CreatedAt, &n.UpdatedAt, &n.RowVersion)
}

func (r *notificationRepo) ListByStatus(ctx context.Context, status models.NotificationStatus, limit int) ([]*models.Notification, error) {
	rows, err := r.db.Query(ctx, baseSelectNotification()+`
		WHERE status=$1
		ORDER BY created_at ASC, id ASC
		LIMIT $2
	`, status, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*models.Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

func (r *notificationRepo) UpdateIfVersion(ctx context.Context, n *models.Notification, expected int64) (pgconn.CommandTag, error) {
	return r.db.Exec(ctx, `
		UPDATE notifications
		SET status=$1, attempts=$2, last_error=$3, sent_at=$4,
			updated_at=NOW(), row_version=row_version+1
		WHERE id=$5 AND row_version=$6
	`, n.Status, n.Attempts, n.LastError, n.SentAt, n.ID, expected)
}

func (r *notificationRepo) UpdateWithRetry(ctx context.Context, id uuid.UUID, mutate func(*models.Notification) error) error {
	return r.updateWithRetry(ctx, id, mutate, r.UpdateIfVersion)
}

func baseSelectNotification() string {
	return `
		SELECT id, channel, recipient, subject, template, message, data,
			status, attempts, last_error, sent_at,
			created_at, updated_at, row_version
		FROM notifications`
}

func scanNotification(row pgx.Row) (*models.Notification, error) {
	var n models.Notification
	if err := row.Scan(
		&n.ID, &n.Channel, &n.To, &n.Subject, &n.Template, &n.Message, &n.Data,
		&n.Status, &n.Attempts, &n.LastError, &n.SentAt,
		&n.CreatedAt, &n.UpdatedAt, &n.RowVersion,
	); err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &n, nil
}
