package models

import (
	"time"

	"github.com/google/uuid"
)

type NotificationChannel string

const (
	NotificationChannelEmail NotificationChannel = "EMAIL"
	NotificationChannelSMS   NotificationChannel = "SMS"
)

type NotificationStatus string

const (
	NotificationStatusPending NotificationStatus = "PENDING"
	NotificationStatusSent    NotificationStatus = "SENT"
	NotificationStatusFailed  NotificationStatus = "FAILED"
)

// Notification is a queued email or SMS. The dispatch job delivers it and
// records SENT or FAILED; failed ones are not retried.
type Notification struct {
	Versioned
	ID        uuid.UUID           `json:"id"`
	Channel   NotificationChannel `json:"channel"`
	To        string              `json:"to"`
	Subject   string              `json:"subject,omitempty"`
	Template  string              `json:"template,omitempty"`
	Message   string              `json:"message,omitempty"`
	Data      map[string]string   `json:"data,omitempty"`
	Status    NotificationStatus  `json:"status"`
	Attempts  int                 `json:"attempts"`
	LastError *string             `json:"last_error,omitempty"`
	SentAt    *time.Time          `json:"sent_at,omitempty"`
	CreatedAt time.Time           `json:"created_at"`
	UpdatedAt time.Time           `json:"updated_at"`
}

func (n *Notification) GetID() string {
	return n.ID.String()
}

func NewEmailNotification(to, subject, template, message string, data map[string]string) *Notification {
	return newNotification(NotificationChannelEmail, to, subject, template, message, data)
}

func NewSMSNotification(to, message string) *Notification {
	return newNotification(NotificationChannelSMS, to, "", "", message, nil)
}

func newNotification(
	channel NotificationChannel,
	to, subject, template, message string,
	data map[string]string,
) *Notification {
	if data == nil {
		data = map[string]string{}
	}
	return &Notification{
		ID:       uuid.New(),
		Channel:  channel,
		To:       to,
		Subject:  subject,
		Template: template,
		Message:  message,
		Data:     data,
		Status:   NotificationStatusPending,
	}
}
