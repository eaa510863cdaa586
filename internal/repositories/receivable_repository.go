package repositories

import (
	"context"
	"time"

	"github.com/KevinWolf254/Qwangu-pms-sub002/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
)

type ReceivableRepository interface {
	// CreateIfNotExists inserts unless a receivable already exists for the
	// same (occupation, period, type), and reports whether it inserted.
	CreateIfNotExists(ctx context.Context, rec *models.Receivable) (bool, error)
	GetByKey(ctx context.Context, occupationID uuid.UUID, recType models.ReceivableType, period time.Time) (*models.Receivable, error)
	ListByOccupationID(ctx context.Context, occupationID uuid.UUID) ([]*models.Receivable, error)
}

type receivableRepo struct {
	db DB
}

func NewReceivableRepository(db DB) ReceivableRepository {
	return &receivableRepo{db: db}
}

func (r *receivableRepo) CreateIfNotExists(ctx context.Context, rec *models.Receivable) (bool, error) {
	err := r.db.QueryRow(ctx, `
		INSERT INTO receivables (
			id, occupation_id, type, period,
			rent_amount, security_amount, garbage_amount, other_amounts, created_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8, NOW())
		ON CONFLICT (occupation_id, period, type) DO NOTHING
		RETURNING created_at
	`, rec.ID, rec.OccupationID, rec.Type, rec.Period,
		rec.RentAmount, rec.SecurityAmount, rec.GarbageAmount, rec.OtherAmounts,
	).Scan(&rec.CreatedAt)
	if err == pgx.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (r *receivableRepo) GetByKey(
	ctx context.Context,
	occupationID uuid.UUID,
	recType models.ReceivableType,
	period time.Time,
) (*models.Receivable, error) {
	row := r.db.QueryRow(ctx, baseSelectReceivable()+`
		WHERE occupation_id=$1 AND type=$2 AND period=$3
	`, occupationID, recType, period)
	return scanReceivable(row)
}

func (r *receivableRepo) ListByOccupationID(ctx context.Context, occupationID uuid.UUID) ([]*models.Receivable, error) {
	rows, err := r.db.Query(ctx, baseSelectReceivable()+`
		WHERE occupation_id=$1 ORDER BY period ASC, type ASC
	`, occupationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*models.Receivable
	for rows.Next() {
		rec, err := scanReceivable(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func baseSelectReceivable() string {
	return `
		SELECT id, occupation_id, type, period,
			rent_amount, security_amount, garbage_amount, other_amounts, created_at
		FROM receivables`
}

func scanReceivable(row pgx.Row) (*models.Receivable, error) {
	var rec models.Receivable
	if err := row.Scan(
		&rec.ID, &rec.OccupationID, &rec.Type, &rec.Period,
		&rec.RentAmount, &rec.SecurityAmount, &rec.GarbageAmount, &rec.OtherAmounts, &rec.CreatedAt,
	); err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &rec, nil
}
