package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// EmailStatus represents the delivery state of an outbound email
type EmailStatus string

const (
	EmailStatusPending EmailStatus = "pending"
	EmailStatusSending EmailStatus = "sending"
	EmailStatusSent    EmailStatus = "sent"
	EmailStatusFailed  EmailStatus = "failed"
)

// Email is an outbox row. The database row is the source of truth; queues
// only carry it (or its ID) to the mail worker.
type Email struct {
	ID        uuid.UUID   `gorm:"type:text;primary_key" json:"id"`
	To        string      `gorm:"not null" json:"to"`
	Subject   string      `gorm:"not null" json:"subject"`
	Body      string      `gorm:"type:text" json:"body"`
	Status    EmailStatus `gorm:"not null;index;default:pending" json:"status"`
	Attempts  int         `gorm:"not null;default:0" json:"attempts"`
	Error     string      `gorm:"type:text" json:"error,omitempty"`
	SentAt    *time.Time  `json:"sent_at,omitempty"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// BeforeCreate hook to generate UUID
func (e *Email) BeforeCreate(tx *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}
