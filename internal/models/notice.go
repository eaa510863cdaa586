package models

import (
	"time"

	"github.com/google/uuid"
)

// Notice is a tenant's declaration to vacate. IsActive goes false once, when
// the vacate transition runs.
type Notice struct {
	Versioned
	ID               uuid.UUID `json:"id"`
	IsActive         bool      `json:"is_active"`
	NotificationDate time.Time `json:"notification_date"`
	VacatingDate     time.Time `json:"vacating_date"`
	OccupationID     uuid.UUID `json:"occupation_id"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

func NewNotice(occupationID uuid.UUID, notificationDate, vacatingDate time.Time) *Notice {
	return &Notice{
		ID:               uuid.New(),
		IsActive:         true,
		NotificationDate: notificationDate,
		VacatingDate:     vacatingDate,
		OccupationID:     occupationID,
	}
}
