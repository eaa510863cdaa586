package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

type Tenant struct {
	ID           uuid.UUID `json:"id"`
	FirstName    string    `json:"first_name"`
	Surname      string    `json:"surname"`
	EmailAddress string    `json:"email_address"`
	MobileNumber string    `json:"mobile_number"`
	CreatedAt    time.Time `json:"created_at"`
}

func (t *Tenant) FullName() string {
	return strings.TrimSpace(t.FirstName + " " + t.Surname)
}
