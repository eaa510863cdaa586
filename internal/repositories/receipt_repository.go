package repositories

import (
	"context"
	"fmt"

	"github.com/KevinWolf254/Qwangu-pms-sub002/internal/models"
	"github.com/KevinWolf254/Qwangu-pms-sub002/internal/utils"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
)

type ReceiptRepository interface {
	// Create rejects a second receipt for the same payment or number with
	// utils.ErrConflict.
	Create(ctx context.Context, rc *models.Receipt) error
	GetByPaymentID(ctx context.Context, paymentID uuid.UUID) (*models.Receipt, error)
	GetLatestByOccupationID(ctx context.Context, occupationID uuid.UUID) (*models.Receipt, error)
}

type receiptRepo struct {
	db DB
}

func NewReceiptRepository(db DB) ReceiptRepository {
	return &receiptRepo{db: db}
}

func (r *receiptRepo) Create(ctx context.Context, rc *models.Receipt) error {
	err := r.db.QueryRow(ctx, `
		INSERT INTO receipts (id, number, occupation_id, payment_id, created_at)
		VALUES ($1,$2,$3,$4, NOW())
		RETURNING created_at
	`, rc.ID, rc.Number, rc.OccupationID, rc.PaymentID).Scan(&rc.CreatedAt)
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: receipt for payment %s", utils.ErrConflict, rc.PaymentID)
	}
	return err
}

func (r *receiptRepo) GetByPaymentID(ctx context.Context, paymentID uuid.UUID) (*models.Receipt, error) {
	return scanReceipt(r.db.QueryRow(ctx, baseSelectReceipt()+" WHERE payment_id=$1", paymentID))
}

func (r *receiptRepo) GetLatestByOccupationID(ctx context.Context, occupationID uuid.UUID) (*models.Receipt, error) {
	return scanReceipt(r.db.QueryRow(ctx, baseSelectReceipt()+`
		WHERE occupation_id=$1
		ORDER BY created_at DESC, length(number) DESC, number DESC
		LIMIT 1
	`, occupationID))
}

func baseSelectReceipt() string {
	return `SELECT id, number, occupation_id, payment_id, created_at FROM receipts`
}

func scanReceipt(row pgx.Row) (*models.Receipt, error) {
	var rc models.Receipt
	if err := row.Scan(&rc.ID, &rc.Number, &rc.OccupationID, &rc.PaymentID, &rc.CreatedAt); err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &rc, nil
}
