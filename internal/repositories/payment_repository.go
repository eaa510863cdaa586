package repositories

import (
	"context"
	"fmt"

	"github.com/KevinWolf254/Qwangu-pms-sub002/internal/models"
	"github.com/KevinWolf254/Qwangu-pms-sub002/internal/utils"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
)

type PaymentRepository interface {
	Create(ctx context.Context, p *models.Payment) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Payment, error)

	// ListByStatusAndType pages through payments oldest first, id ascending
	// on ties.
	ListByStatusAndType(ctx context.Context, status models.PaymentStatus, pType models.PaymentType, page TimePage) ([]*models.Payment, error)

	// MarkClaimed moves UNCLAIMED to CLAIMED and reports false when the
	// payment was already claimed.
	MarkClaimed(ctx context.Context, id uuid.UUID) (bool, error)
}

type paymentRepo struct {
	db DB
}

func NewPaymentRepository(db DB) PaymentRepository {
	return &paymentRepo{db: db}
}

func (r *paymentRepo) Create(ctx context.Context, p *models.Payment) error {
	err := r.db.QueryRow(ctx, `
		INSERT INTO payments (
			id, status, type, transaction_id, reference_number, currency, amount, mobile_number,
			created_at, updated_at, row_version
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8, NOW(), NOW(), 1)
		RETURNING created_at, updated_at, row_version
	`, p.ID, p.Status, p.Type, p.TransactionID, p.ReferenceNumber, p.Currency, p.Amount, p.MobileNumber,
	).Scan(&p.CreatedAt, &p.UpdatedAt, &p.RowVersion)
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: payment transaction %s", utils.ErrConflict, p.TransactionID)
	}
	return err
}

func (r *paymentRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Payment, error) {
	return scanPayment(r.db.QueryRow(ctx, baseSelectPayment()+" WHERE id=$1", id))
}

func (r *paymentRepo) ListByStatusAndType(
	ctx context.Context,
	status models.PaymentStatus,
	pType models.PaymentType,
	page TimePage,
) ([]*models.Payment, error) {
	sql := baseSelectPayment() + " WHERE status=$1 AND type=$2"
	args := []any{status, pType}
	if page.After != nil {
		sql += " AND (created_at, id) > ($3, $4)"
		args = append(args, page.After.CreatedAt, page.After.ID)
	}
	sql += fmt.Sprintf(" ORDER BY created_at ASC, id ASC LIMIT %d", page.Limit)

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*models.Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *paymentRepo) MarkClaimed(ctx context.Context, id uuid.UUID) (bool, error) {
	tag, err := r.db.Exec(ctx, `
		UPDATE payments
		SET status=$2, updated_at=NOW(), row_version=row_version+1
		WHERE id=$1 AND status=$3
	`, id, models.PaymentStatusClaimed, models.PaymentStatusUnclaimed)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func baseSelectPayment() string {
	return `
		SELECT id, status, type, transaction_id, reference_number, currency, amount, mobile_number,
			created_at, updated_at, row_version
		FROM payments`
}

func scanPayment(row pgx.Row) (*models.Payment, error) {
	var p models.Payment
	if err := row.Scan(
		&p.ID, &p.Status, &p.Type, &p.TransactionID, &p.ReferenceNumber, &p.Currency, &p.Amount, &p.MobileNumber,
		&p.CreatedAt, &p.UpdatedAt, &p.RowVersion,
	); err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &p, nil
}

type MpesaPaymentRepository interface {
	Create(ctx context.Context, m *models.MpesaPayment) error
	GetByTransactionID(ctx context.Context, transactionID string) (*models.MpesaPayment, error)
}

type mpesaPaymentRepo struct {
	db DB
}

func NewMpesaPaymentRepository(db DB) MpesaPaymentRepository {
	return &mpesaPaymentRepo{db: db}
}

func (r *mpesaPaymentRepo) Create(ctx context.Context, m *models.MpesaPayment) error {
	return r.db.QueryRow(ctx, `
		INSERT INTO mpesa_payments (id, transaction_id, mobile_number, amount, processed, created_at)
		VALUES ($1,$2,$3,$4,$5, NOW())
		RETURNING created_at
	`, m.ID, m.TransactionID, m.MobileNumber, m.Amount, m.Processed).Scan(&m.CreatedAt)
}

func (r *mpesaPaymentRepo) GetByTransactionID(ctx context.Context, transactionID string) (*models.MpesaPayment, error) {
	var m models.MpesaPayment
	err := r.db.QueryRow(ctx, `
		SELECT id, transaction_id, mobile_number, amount, processed, created_at
		FROM mpesa_payments WHERE transaction_id=$1
	`, transactionID).Scan(&m.ID, &m.TransactionID, &m.MobileNumber, &m.Amount, &m.Processed, &m.CreatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &m, nil
}
