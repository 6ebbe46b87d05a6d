package db

import (
	"fmt"
	"log/slog"

	"github.com/qworpa/qworpa/internal/config"
	"github.com/qworpa/qworpa/internal/models"
	"github.com/qworpa/qworpa/internal/rbac"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// CreateDefaultAdmin creates the bootstrap admin account when credentials are
// configured and the user table is empty. RBAC must already be initialized.
func CreateDefaultAdmin(db *gorm.DB, cfg config.AdminConfig) error {
	if cfg.Username == "" || cfg.Password == "" {
		slog.Info("No ADMIN_USERNAME or ADMIN_PASSWORD set, skipping default admin creation")
		return nil
	}

	var count int64
	if err := db.Model(&models.User{}).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to count users: %w", err)
	}
	if count > 0 {
		slog.Info("Users already exist, skipping default admin creation")
		return nil
	}

	user, err := CreateAdmin(db, cfg.Username, cfg.Email, cfg.Password)
	if err != nil {
		return err
	}

	slog.Info("Default admin user created", "username", user.Username, "email", user.Email)
	return nil
}

// CreateAdmin creates a user and grants it the admin role.
func CreateAdmin(db *gorm.DB, username, email, password string) (*models.User, error) {
	if email == "" {
		email = fmt.Sprintf("%s@%s.local", username, config.ProjectName)
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := models.User{
		Username:     username,
		Email:        email,
		PasswordHash: string(hashedPassword),
		IsActive:     true,
	}
	if err := db.Create(&user).Error; err != nil {
		return nil, fmt.Errorf("failed to create admin user: %w", err)
	}

	if err := rbac.MakeAdmin(user.ID); err != nil {
		return nil, fmt.Errorf("failed to grant admin role: %w", err)
	}
	return &user, nil
}
