package audit

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/qworpa/qworpa/internal/models"
	"gorm.io/gorm"
)

// LogAction records an audit log entry
func LogAction(ctx context.Context, db *gorm.DB, userID uuid.UUID, action, resource string, details any) error {
	detailsJSON, err := json.Marshal(details)
	if err != nil {
		detailsJSON = []byte("{}")
	}

	entry := models.AuditLog{
		UserID:      userID,
		Action:      action,
		Resource:    resource,
		DetailsJSON: string(detailsJSON),
		Timestamp:   time.Now().UTC(),
	}

	return db.WithContext(ctx).Create(&entry).Error
}

// Record writes an audit entry and logs a failed write instead of returning
// it. The audit trail never fails the request it describes.
func Record(ctx context.Context, db *gorm.DB, userID uuid.UUID, action, resource string, details any) {
	if err := LogAction(ctx, db, userID, action, resource, details); err != nil {
		slog.Warn("Failed to write audit log", "action", action, "resource", resource, "error", err)
	}
}

// PostResource formats the resource string for a post.
func PostResource(urlHex string) string {
	return "post:" + urlHex
}

// Audit action constants
const (
	ActionSignUp       = "sign_up"
	ActionSignIn       = "sign_in"
	ActionSignInFailed = "sign_in_failed"
	ActionCreatePost   = "create_post"
	ActionDeletePost   = "delete_post"
	ActionLikePost     = "like_post"
	ActionUnlikePost   = "unlike_post"
)
