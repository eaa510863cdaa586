package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type ReceivableType string

const (
	ReceivableTypeRent    ReceivableType = "RENT"
	ReceivableTypePenalty ReceivableType = "PENALTY"
	ReceivableTypeBooking ReceivableType = "BOOKING"
)

const OtherAmountPenalty = "PENALTY"

// Receivable is one billed charge for an occupation and period. There is at
// most one per (occupation, period, type) and it never changes after insert.
type Receivable struct {
	ID             uuid.UUID                  `json:"id"`
	OccupationID   uuid.UUID                  `json:"occupation_id"`
	Type           ReceivableType             `json:"type"`
	Period         time.Time                  `json:"period"`
	RentAmount     decimal.Decimal            `json:"rent_amount"`
	SecurityAmount decimal.Decimal            `json:"security_amount"`
	GarbageAmount  decimal.Decimal            `json:"garbage_amount"`
	OtherAmounts   map[string]decimal.Decimal `json:"other_amounts,omitempty"`
	CreatedAt      time.Time                  `json:"created_at"`
}

func NewRentReceivable(occupationID uuid.UUID, period time.Time, unit *Unit) *Receivable {
	return &Receivable{
		ID:             uuid.New(),
		OccupationID:   occupationID,
		Type:           ReceivableTypeRent,
		Period:         period,
		RentAmount:     unit.RentPerMonth,
		SecurityAmount: unit.SecurityPerMonth,
		GarbageAmount:  unit.GarbagePerMonth,
		OtherAmounts:   map[string]decimal.Decimal{},
	}
}

func NewPenaltyReceivable(occupationID uuid.UUID, period time.Time, penalty decimal.Decimal) *Receivable {
	return &Receivable{
		ID:             uuid.New(),
		OccupationID:   occupationID,
		Type:           ReceivableTypePenalty,
		Period:         period,
		RentAmount:     decimal.Zero,
		SecurityAmount: decimal.Zero,
		GarbageAmount:  decimal.Zero,
		OtherAmounts:   map[string]decimal.Decimal{OtherAmountPenalty: penalty},
	}
}

// Total is the full charge: rent, security, garbage and every other amount.
func (r *Receivable) Total() decimal.Decimal {
	total := r.RentAmount.Add(r.SecurityAmount).Add(r.GarbageAmount)
	for _, v := range r.OtherAmounts {
		total = total.Add(v)
	}
	return total
}

// PenaltyFor returns ceil(rent * percentage / 100).
func PenaltyFor(rent decimal.Decimal, percentage int) decimal.Decimal {
	return rent.Mul(decimal.NewFromInt(int64(percentage))).Div(decimal.NewFromInt(100)).Ceil()
}
