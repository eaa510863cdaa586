package repositories

import (
	"context"
	"fmt"

	"github.com/KevinWolf254/Qwangu-pms-sub002/internal/models"
	"github.com/KevinWolf254/Qwangu-pms-sub002/internal/utils"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
)

type OccupationTransactionRepository interface {
	// Create appends to the occupation's chain. A sequence that is already
	// taken yields utils.ErrLedgerChainConflict.
	Create(ctx context.Context, t *models.OccupationTransaction) error

	// GetLatestByOccupationID returns the chain tail, or nil for an empty chain.
	GetLatestByOccupationID(ctx context.Context, occupationID uuid.UUID) (*models.OccupationTransaction, error)
	ListByOccupationID(ctx context.Context, occupationID uuid.UUID) ([]*models.OccupationTransaction, error)
}

type occupationTransactionRepo struct {
	db DB
}

func NewOccupationTransactionRepository(db DB) OccupationTransactionRepository {
	return &occupationTransactionRepo{db: db}
}

func (r *occupationTransactionRepo) Create(ctx context.Context, t *models.OccupationTransaction) error {
	err := r.db.QueryRow(ctx, `
		INSERT INTO occupation_transactions (
			id, occupation_id, sequence, type, amount, total_amount_carried_forward,
			receivable_id, payment_id, previous_transaction_id, created_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9, NOW())
		RETURNING created_at
	`, t.ID, t.OccupationID, t.Sequence, t.Type, t.Amount, t.TotalAmountCarriedForward,
		t.ReceivableID, t.PaymentID, t.PreviousTransactionID,
	).Scan(&t.CreatedAt)
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: occupation %s sequence %d", utils.ErrLedgerChainConflict, t.OccupationID, t.Sequence)
	}
	return err
}

func (r *occupationTransactionRepo) GetLatestByOccupationID(ctx context.Context, occupationID uuid.UUID) (*models.OccupationTransaction, error) {
	row := r.db.QueryRow(ctx, baseSelectOccupationTransaction()+`
		WHERE occupation_id=$1
		ORDER BY sequence DESC, created_at DESC, id DESC
		LIMIT 1
	`, occupationID)
	return scanOccupationTransaction(row)
}

func (r *occupationTransactionRepo) ListByOccupationID(ctx context.Context, occupationID uuid.UUID) ([]*models.OccupationTransaction, error) {
	rows, err := r.db.Query(ctx, baseSelectOccupationTransaction()+`
		WHERE occupation_id=$1 ORDER BY sequence ASC
	`, occupationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*models.OccupationTransaction
	for rows.Next() {
		t, err := scanOccupationTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func baseSelectOccupationTransaction() string {
	return `
		SELECT id, occupation_id, sequence, type, amount, total_amount_carried_forward,
			receivable_id, payment_id, previous_transaction_id, created_at
		FROM occupation_transactions`
}

func scanOccupationTransaction(row pgx.Row) (*models.OccupationTransaction, error) {
	var t models.OccupationTransaction
	if err := row.Scan(
		&t.ID, &t.OccupationID, &t.Sequence, &t.Type, &t.Amount, &t.TotalAmountCarriedForward,
		&t.ReceivableID, &t.PaymentID, &t.PreviousTransactionID, &t.CreatedAt,
	); err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &t, nil
}
