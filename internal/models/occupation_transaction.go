package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type TransactionType string

const (
	TransactionTypeDebit  TransactionType = "DEBIT"
	TransactionTypeCredit TransactionType = "CREDIT"
)

// OccupationTransaction is one append-only ledger entry. Entries for an
// occupation form a chain by Sequence; TotalAmountCarriedForward is the
// running balance after this entry.
type OccupationTransaction struct {
	ID                        uuid.UUID       `json:"id"`
	OccupationID              uuid.UUID       `json:"occupation_id"`
	Sequence                  int64           `json:"sequence"`
	Type                      TransactionType `json:"type"`
	Amount                    decimal.Decimal `json:"amount"`
	TotalAmountCarriedForward decimal.Decimal `json:"total_amount_carried_forward"`
	ReceivableID              *uuid.UUID      `json:"receivable_id,omitempty"`
	PaymentID                 *uuid.UUID      `json:"payment_id,omitempty"`
	PreviousTransactionID     *uuid.UUID      `json:"previous_transaction_id,omitempty"`
	CreatedAt                 time.Time       `json:"created_at"`
}

// NextTransaction chains an entry after previous, which may be nil for the
// first entry of an occupation.
func NextTransaction(
	previous *OccupationTransaction,
	occupationID uuid.UUID,
	txType TransactionType,
	amount decimal.Decimal,
) *OccupationTransaction {
	t := &OccupationTransaction{
		ID:           uuid.New(),
		OccupationID: occupationID,
		Sequence:     1,
		Type:         txType,
		Amount:       amount,
	}
	carried := decimal.Zero
	if previous != nil {
		carried = previous.TotalAmountCarriedForward
		t.Sequence = previous.Sequence + 1
		prevID := previous.ID
		t.PreviousTransactionID = &prevID
	}
	switch txType {
	case TransactionTypeCredit:
		t.TotalAmountCarriedForward = carried.Sub(amount)
	default:
		t.TotalAmountCarriedForward = carried.Add(amount)
	}
	return t
}
