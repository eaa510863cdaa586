package repositories

import (
	"context"
	"fmt"

	"github.com/KevinWolf254/Qwangu-pms-sub002/internal/models"
	"github.com/KevinWolf254/Qwangu-pms-sub002/internal/utils"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
)

type InvoiceRepository interface {
	// CreateIfNotExists skips when an invoice of the same type already
	// covers the same start date for the occupation. A clashing number is
	// reported as utils.ErrConflict.
	CreateIfNotExists(ctx context.Context, inv *models.Invoice) (bool, error)
	GetLatestByOccupationID(ctx context.Context, occupationID uuid.UUID) (*models.Invoice, error)
	ListByOccupationID(ctx context.Context, occupationID uuid.UUID) ([]*models.Invoice, error)
}

type invoiceRepo struct {
	db DB
}

func NewInvoiceRepository(db DB) InvoiceRepository {
	return &invoiceRepo{db: db}
}

func (r *invoiceRepo) CreateIfNotExists(ctx context.Context, inv *models.Invoice) (bool, error) {
	err := r.db.QueryRow(ctx, `
		INSERT INTO invoices (
			id, number, type, start_date, end_date, currency,
			rent_amount, security_amount, garbage_amount, other_amounts,
			occupation_id, created_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11, NOW())
		ON CONFLICT (occupation_id, type, start_date) DO NOTHING
		RETURNING created_at
	`, inv.ID, inv.Number, inv.Type, inv.StartDate, inv.EndDate, inv.Currency,
		inv.RentAmount, inv.SecurityAmount, inv.GarbageAmount, inv.OtherAmounts,
		inv.OccupationID,
	).Scan(&inv.CreatedAt)
	switch {
	case err == pgx.ErrNoRows:
		return false, nil
	case isUniqueViolation(err):
		return false, fmt.Errorf("%w: invoice number %s", utils.ErrConflict, inv.Number)
	case err != nil:
		return false, err
	}
	return true, nil
}

func (r *invoiceRepo) GetLatestByOccupationID(ctx context.Context, occupationID uuid.UUID) (*models.Invoice, error) {
	row := r.db.QueryRow(ctx, baseSelectInvoice()+`
		WHERE occupation_id=$1
		ORDER BY created_at DESC, number DESC
		LIMIT 1
	`, occupationID)
	return scanInvoice(row)
}

func (r *invoiceRepo) ListByOccupationID(ctx context.Context, occupationID uuid.UUID) ([]*models.Invoice, error) {
	rows, err := r.db.Query(ctx, baseSelectInvoice()+`
		WHERE occupation_id=$1 ORDER BY number ASC
	`, occupationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*models.Invoice
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, inv)
	}
	return out, rows.Err()
}

func baseSelectInvoice() string {
	return `
		SELECT id, number, type, start_date, end_date, currency,
			rent_amount, security_amount, garbage_amount, other_amounts,
			occupation_id, created_at
		FROM invoices`
}

func scanInvoice(row pgx.Row) (*models.Invoice, error) {
	var inv models.Invoice
	if err := row.Scan(
		&inv.ID, &inv.Number, &inv.Type, &inv.StartDate, &inv.EndDate, &inv.Currency,
		&inv.RentAmount, &inv.SecurityAmount, &inv.GarbageAmount, &inv.OtherAmounts,
		&inv.OccupationID, &inv.CreatedAt,
	); err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &inv, nil
}
