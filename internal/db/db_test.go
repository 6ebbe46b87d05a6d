package db

import (
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/qworpa/qworpa/internal/config"
	"github.com/qworpa/qworpa/internal/models"
	"github.com/qworpa/qworpa/internal/rbac"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	database, err := New(config.DatabaseConfig{
		Driver: "sqlite",
		DSN:    filepath.Join(t.TempDir(), "test.db"),
	})
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	if err := Migrate(database); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	if err := rbac.InitEnforcer(database, slog.Default()); err != nil {
		t.Fatalf("failed to init rbac: %v", err)
	}
	return database
}

func TestNew_UnsupportedDriver(t *testing.T) {
	if _, err := New(config.DatabaseConfig{Driver: "mysql"}); err == nil {
		t.Fatal("expected error for unsupported driver")
	}
}

func TestMigrate_CreatesTables(t *testing.T) {
	database := setupTestDB(t)

	for _, model := range []any{&models.User{}, &models.Post{}, &models.PostLike{}, &models.Email{}, &models.AuditLog{}} {
		if !database.Migrator().HasTable(model) {
			t.Errorf("table for %T not created", model)
		}
	}
}

func TestCreateDefaultAdmin_SkipsWithoutCredentials(t *testing.T) {
	database := setupTestDB(t)

	if err := CreateDefaultAdmin(database, config.AdminConfig{Username: "admin"}); err != nil {
		t.Fatalf("CreateDefaultAdmin failed: %v", err)
	}

	var count int64
	database.Model(&models.User{}).Count(&count)
	if count != 0 {
		t.Errorf("expected no users, got %d", count)
	}
}

func TestCreateDefaultAdmin_CreatesAdmin(t *testing.T) {
	database := setupTestDB(t)

	err := CreateDefaultAdmin(database, config.AdminConfig{Username: "admin", Password: "correct-horse"})
	if err != nil {
		t.Fatalf("CreateDefaultAdmin failed: %v", err)
	}

	var user models.User
	if err := database.Where("username = ?", "admin").First(&user).Error; err != nil {
		t.Fatalf("admin not created: %v", err)
	}
	if user.Email != "admin@qworpa.local" {
		t.Errorf("email = %q", user.Email)
	}
	if user.PasswordHash == "correct-horse" {
		t.Error("password stored in plain text")
	}

	isAdmin, err := rbac.IsAdmin(user.ID)
	if err != nil {
		t.Fatalf("IsAdmin: %v", err)
	}
	if !isAdmin {
		t.Error("expected user to be admin")
	}

	// Second call is a no-op because users exist.
	if err := CreateDefaultAdmin(database, config.AdminConfig{Username: "other", Password: "x"}); err != nil {
		t.Fatalf("second call failed: %v", err)
	}
	var count int64
	database.Model(&models.User{}).Count(&count)
	if count != 1 {
		t.Errorf("expected 1 user, got %d", count)
	}
}
