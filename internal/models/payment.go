package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type PaymentStatus string

const (
	PaymentStatusUnclaimed PaymentStatus = "UNCLAIMED"
	PaymentStatusClaimed   PaymentStatus = "CLAIMED"
)

type PaymentType string

const (
	PaymentTypeMobile PaymentType = "MOBILE"
	PaymentTypeCard   PaymentType = "CARD"
)

// Payment is an incoming payment persisted by the gateway ingest.
// ReferenceNumber is the occupation number the payer quoted.
type Payment struct {
	Versioned
	ID              uuid.UUID       `json:"id"`
	Status          PaymentStatus   `json:"status"`
	Type            PaymentType     `json:"type"`
	TransactionID   string          `json:"transaction_id"`
	ReferenceNumber string          `json:"reference_number"`
	Currency        string          `json:"currency"`
	Amount          decimal.Decimal `json:"amount"`
	MobileNumber    *string         `json:"mobile_number,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

func NewMobilePayment(transactionID, referenceNumber, currency string, amount decimal.Decimal) *Payment {
	return &Payment{
		ID:              uuid.New(),
		Status:          PaymentStatusUnclaimed,
		Type:            PaymentTypeMobile,
		TransactionID:   transactionID,
		ReferenceNumber: referenceNumber,
		Currency:        currency,
		Amount:          amount,
	}
}

// MpesaPayment is the raw gateway record. It is only read.
type MpesaPayment struct {
	ID            uuid.UUID       `json:"id"`
	TransactionID string          `json:"transaction_id"`
	MobileNumber  string          `json:"mobile_number"`
	Amount        decimal.Decimal `json:"amount"`
	Processed     bool            `json:"processed"`
	CreatedAt     time.Time       `json:"created_at"`
}
