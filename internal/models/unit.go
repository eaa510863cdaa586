package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type UnitStatus string

const (
	UnitStatusVacant   UnitStatus = "VACANT"
	UnitStatusBooked   UnitStatus = "BOOKED"
	UnitStatusOccupied UnitStatus = "OCCUPIED"
)

// Unit is a rentable house. Status only changes through the occupancy service.
type Unit struct {
	Versioned
	ID               uuid.UUID       `json:"id"`
	Number           string          `json:"number"`
	Status           UnitStatus      `json:"status"`
	Currency         string          `json:"currency"`
	RentPerMonth     decimal.Decimal `json:"rent_per_month"`
	SecurityPerMonth decimal.Decimal `json:"security_per_month"`
	GarbagePerMonth  decimal.Decimal `json:"garbage_per_month"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

func (u *Unit) GetID() string {
	return u.ID.String()
}

// MonthlyCharge is the sum billed for one full month.
func (u *Unit) MonthlyCharge() decimal.Decimal {
	return u.RentPerMonth.Add(u.SecurityPerMonth).Add(u.GarbagePerMonth)
}
