package models

import (
	"time"

	"github.com/google/uuid"
)

// AuditLog represents a record of user actions
type AuditLog struct {
	ID          uint      `gorm:"primarykey" json:"id"`
	UserID      uuid.UUID `gorm:"type:text;index" json:"user_id"`
	Action      string    `gorm:"not null;index" json:"action"` // e.g., "like_post", "delete_post"
	Resource    string    `gorm:"not null" json:"resource"`     // e.g., "post:ab12cd34"
	DetailsJSON string    `gorm:"type:text" json:"details_json"`
	Timestamp   time.Time `gorm:"not null;index" json:"timestamp"`
}
