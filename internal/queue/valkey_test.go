package queue

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/qworpa/qworpa/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func TestNewValkeyQueue_RequiresDB(t *testing.T) {
	if _, err := NewValkeyQueue("localhost:6379", nil); err == nil {
		t.Fatal("expected error without database")
	}
}

// Runs against a real server when QW_TEST_VALKEY_ADDR is set.
func TestValkeyQueue_RoundTrip(t *testing.T) {
	addr := os.Getenv("QW_TEST_VALKEY_ADDR")
	if addr == "" {
		t.Skip("QW_TEST_VALKEY_ADDR not set, skipping valkey test")
	}

	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(&models.Email{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	q, err := NewValkeyQueue(addr, db)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer q.Close()
	q.key = DefaultValkeyKey + ":test:" + time.Now().Format("150405.000000")

	email := models.Email{To: "a@example.com", Subject: "hi", Status: models.EmailStatusPending}
	if err := db.Create(&email).Error; err != nil {
		t.Fatalf("create: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := q.Enqueue(ctx, &email); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	got, err := q.Dequeue(ctx)
	if err != nil {
		t.Fatalf("dequeue: %v", err)
	}
	if got == nil || got.ID != email.ID || got.To != email.To {
		t.Errorf("dequeued %+v, want %+v", got, email)
	}
}
