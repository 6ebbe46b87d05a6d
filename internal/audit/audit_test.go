package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/qworpa/qworpa/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupAuditTest(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "audit.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(&models.AuditLog{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func captureLog(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, nil)))
	t.Cleanup(func() { slog.SetDefault(prev) })
	return &buf
}

func TestRecord(t *testing.T) {
	db := setupAuditTest(t)
	buf := captureLog(t)
	userID := uuid.New()

	Record(context.Background(), db, userID, ActionCreatePost, PostResource("ab12"), map[string]any{"title": "Hello"})

	var entry models.AuditLog
	if err := db.First(&entry).Error; err != nil {
		t.Fatalf("audit entry missing: %v", err)
	}
	if entry.UserID != userID || entry.Action != ActionCreatePost || entry.Resource != "post:ab12" {
		t.Errorf("unexpected entry: %+v", entry)
	}
	var details map[string]any
	if err := json.Unmarshal([]byte(entry.DetailsJSON), &details); err != nil || details["title"] != "Hello" {
		t.Errorf("details = %q", entry.DetailsJSON)
	}
	if buf.Len() != 0 {
		t.Errorf("unexpected log output: %q", buf.String())
	}
}

func TestRecord_LogsWriteFailure(t *testing.T) {
	db := setupAuditTest(t)
	if err := db.Migrator().DropTable(&models.AuditLog{}); err != nil {
		t.Fatalf("drop audit_logs: %v", err)
	}
	buf := captureLog(t)

	Record(context.Background(), db, uuid.New(), ActionDeletePost, PostResource("ab12"), nil)

	out := buf.String()
	if !strings.Contains(out, "Failed to write audit log") || !strings.Contains(out, "action=delete_post") {
		t.Errorf("expected audit warning, got %q", out)
	}
	if err := LogAction(context.Background(), db, uuid.New(), ActionDeletePost, PostResource("ab12"), nil); err == nil {
		t.Error("LogAction should report the failed write")
	}
}
