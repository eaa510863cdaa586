package models

import (
	"time"

	"github.com/google/uuid"
)

// Booking reserves a vacant unit ahead of an occupation. Only the occupation
// it names may later move into the BOOKED unit.
type Booking struct {
	ID           uuid.UUID  `json:"id"`
	UnitID       uuid.UUID  `json:"unit_id"`
	OccupationID *uuid.UUID `json:"occupation_id,omitempty"`
	PaymentID    *uuid.UUID `json:"payment_id,omitempty"`
	ReservedFrom time.Time  `json:"reserved_from"`
	CreatedAt    time.Time  `json:"created_at"`
}

func NewBooking(unitID uuid.UUID, occupationID, paymentID *uuid.UUID, reservedFrom time.Time) *Booking {
	return &Booking{
		ID:           uuid.New(),
		UnitID:       unitID,
		OccupationID: occupationID,
		PaymentID:    paymentID,
		ReservedFrom: reservedFrom,
	}
}

// Holds reports whether the booking reserves its unit for occupationID.
func (b *Booking) Holds(occupationID uuid.UUID) bool {
	return b.OccupationID != nil && *b.OccupationID == occupationID
}
