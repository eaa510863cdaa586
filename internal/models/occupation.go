package models

import (
	"time"

	"github.com/google/uuid"
)

type OccupationStatus string

const (
	OccupationStatusBooked            OccupationStatus = "BOOKED"
	OccupationStatusPendingOccupation OccupationStatus = "PENDING_OCCUPATION"
	OccupationStatusCurrent           OccupationStatus = "CURRENT"
	OccupationStatusPrevious          OccupationStatus = "PREVIOUS"
)

// Occupation ties a tenant to a unit. Number is the reference payers quote
// when paying by mobile money.
type Occupation struct {
	Versioned
	ID        uuid.UUID        `json:"id"`
	Number    string           `json:"number"`
	Status    OccupationStatus `json:"status"`
	StartDate time.Time        `json:"start_date"`
	EndDate   *time.Time       `json:"end_date,omitempty"`
	TenantID  uuid.UUID        `json:"tenant_id"`
	UnitID    uuid.UUID        `json:"unit_id"`
	CreatedAt time.Time        `json:"created_at"`
	UpdatedAt time.Time        `json:"updated_at"`
}

func (o *Occupation) GetID() string {
	return o.ID.String()
}

// BillableOccupationStatuses are the statuses the period billing run charges.
var BillableOccupationStatuses = []OccupationStatus{
	OccupationStatusCurrent,
	OccupationStatusBooked,
}

// PromotableOccupationStatuses may move to CURRENT once their start date arrives.
var PromotableOccupationStatuses = []OccupationStatus{
	OccupationStatusPendingOccupation,
	OccupationStatusBooked,
}
