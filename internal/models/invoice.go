package models

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type InvoiceType string

const (
	InvoiceTypeRent        InvoiceType = "RENT"
	InvoiceTypeRentAdvance InvoiceType = "RENT_ADVANCE"
	InvoiceTypePenalty     InvoiceType = "PENALTY"
)

const invoiceSequenceWidth = 6

// Invoice is the billing document sent to the tenant for a period. Number is
// "<occupation number>-<sequence>" and increases per occupation.
type Invoice struct {
	ID             uuid.UUID                  `json:"id"`
	Number         string                     `json:"number"`
	Type           InvoiceType                `json:"type"`
	StartDate      time.Time                  `json:"start_date"`
	EndDate        time.Time                  `json:"end_date"`
	Currency       string                     `json:"currency"`
	RentAmount     decimal.Decimal            `json:"rent_amount"`
	SecurityAmount decimal.Decimal            `json:"security_amount"`
	GarbageAmount  decimal.Decimal            `json:"garbage_amount"`
	OtherAmounts   map[string]decimal.Decimal `json:"other_amounts,omitempty"`
	OccupationID   uuid.UUID                  `json:"occupation_id"`
	CreatedAt      time.Time                  `json:"created_at"`
}

func (i *Invoice) Total() decimal.Decimal {
	total := i.RentAmount.Add(i.SecurityAmount).Add(i.GarbageAmount)
	for _, v := range i.OtherAmounts {
		total = total.Add(v)
	}
	return total
}

// NewRentInvoice prorates the unit's monthly amounts over [start, end].
func NewRentInvoice(number string, occupationID uuid.UUID, unit *Unit, start, end time.Time) *Invoice {
	days := int(end.Sub(start).Hours()/24) + 1
	daysInMonth := time.Date(start.Year(), start.Month()+1, 0, 0, 0, 0, 0, time.UTC).Day()
	return &Invoice{
		ID:             uuid.New(),
		Number:         number,
		Type:           InvoiceTypeRent,
		StartDate:      start,
		EndDate:        end,
		Currency:       unit.Currency,
		RentAmount:     prorate(unit.RentPerMonth, days, daysInMonth),
		SecurityAmount: prorate(unit.SecurityPerMonth, days, daysInMonth),
		GarbageAmount:  prorate(unit.GarbagePerMonth, days, daysInMonth),
		OtherAmounts:   map[string]decimal.Decimal{},
		OccupationID:   occupationID,
	}
}

func prorate(monthly decimal.Decimal, days, daysInMonth int) decimal.Decimal {
	if days >= daysInMonth {
		return monthly
	}
	return monthly.Mul(decimal.NewFromInt(int64(days))).Div(decimal.NewFromInt(int64(daysInMonth))).Ceil()
}

// NextInvoiceNumber increments the fixed-width suffix of previous. Without a
// previous invoice the sequence starts at 1 under the occupation number.
func NextInvoiceNumber(previous *Invoice, occupationNumber string) (string, error) {
	if previous == nil {
		return formatInvoiceNumber(occupationNumber, 1), nil
	}
	idx := strings.LastIndex(previous.Number, "-")
	if idx < 0 || len(previous.Number)-idx-1 != invoiceSequenceWidth {
		return "", fmt.Errorf("invoice number %q has no %d digit suffix", previous.Number, invoiceSequenceWidth)
	}
	seq, err := strconv.Atoi(previous.Number[idx+1:])
	if err != nil {
		return "", fmt.Errorf("invoice number %q: %w", previous.Number, err)
	}
	return formatInvoiceNumber(previous.Number[:idx], seq+1), nil
}

func formatInvoiceNumber(prefix string, seq int) string {
	return fmt.Sprintf("%s-%0*d", prefix, invoiceSequenceWidth, seq)
}
