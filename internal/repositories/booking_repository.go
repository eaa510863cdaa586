package repositories

import (
	"context"

	"github.com/KevinWolf254/Qwangu-pms-sub002/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
)

type BookingRepository interface {
	Create(ctx context.Context, b *models.Booking) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Booking, error)
	ListByUnitID(ctx context.Context, unitID uuid.UUID) ([]*models.Booking, error)
	Delete(ctx context.Context, id uuid.UUID) (bool, error)
}

type bookingRepo struct {
	db DB
}

func NewBookingRepository(db DB) BookingRepository {
	return &bookingRepo{db: db}
}

func (r *bookingRepo) Create(ctx context.Context, b *models.Booking) error {
	return r.db.QueryRow(ctx, `
		INSERT INTO bookings (id, unit_id, occupation_id, payment_id, reserved_from, created_at)
		VALUES ($1,$2,$3,$4,$5, NOW())
		RETURNING created_at
	`, b.ID, b.UnitID, b.OccupationID, b.PaymentID, b.ReservedFrom).Scan(&b.CreatedAt)
}

func (r *bookingRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Booking, error) {
	return scanBooking(r.db.QueryRow(ctx, baseSelectBooking()+" WHERE id=$1", id))
}

func (r *bookingRepo) ListByUnitID(ctx context.Context, unitID uuid.UUID) ([]*models.Booking, error) {
	rows, err := r.db.Query(ctx, baseSelectBooking()+" WHERE unit_id=$1 ORDER BY created_at DESC, id DESC", unitID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*models.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (r *bookingRepo) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM bookings WHERE id=$1`, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func baseSelectBooking() string {
	return `SELECT id, unit_id, occupation_id, payment_id, reserved_from, created_at FROM bookings`
}

func scanBooking(row pgx.Row) (*models.Booking, error) {
	var b models.Booking
	if err := row.Scan(&b.ID, &b.UnitID, &b.OccupationID, &b.PaymentID, &b.ReservedFrom, &b.CreatedAt); err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &b, nil
}
