package service

import (
	"context"
	"fmt"
	"log/slog"
	"net/mail"
	"regexp"
	"strings"
	"unicode"

	"github.com/qworpa/qworpa/internal/audit"
	"github.com/qworpa/qworpa/internal/auth"
	"github.com/qworpa/qworpa/internal/config"
	"github.com/qworpa/qworpa/internal/models"
	"github.com/qworpa/qworpa/internal/queue"
	"gorm.io/gorm"
)

const minPasswordLength = 8

var usernamePattern = regexp.MustCompile(`^[\w.@+-]{3,150}$`)

// commonPasswords is a short deny-list of the most frequently used passwords.
var commonPasswords = map[string]bool{
	"password": true, "password1": true, "12345678": true, "123456789": true,
	"qwertyui": true, "qwerty123": true, "iloveyou": true, "sunshine": true,
	"princess": true, "football": true, "baseball": true, "welcome1": true,
	"abc12345": true, "letmein1": true, "trustno1": true, "superman": true,
	"11111111": true, "00000000": true, "passw0rd": true, "starwars": true,
}

// AccountService contains the business logic for user registration.
type AccountService struct {
	db         *gorm.DB
	queue      queue.Queue
	projectURL string
}

// NewAccountService creates a new AccountService. Welcome emails link to projectURL.
func NewAccountService(db *gorm.DB, q queue.Queue, projectURL string) *AccountService {
	return &AccountService{db: db, queue: q, projectURL: projectURL}
}

// SignUp validates and creates an account, then queues a welcome email.
func (s *AccountService) SignUp(ctx context.Context, req SignUpRequest) (*models.User, error) {
	username := strings.TrimSpace(req.Username)
	email := strings.ToLower(strings.TrimSpace(req.Email))

	if !usernamePattern.MatchString(username) {
		return nil, &ValidationError{Message: "username must be 3-150 characters: letters, digits and @/./+/-/_ only"}
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return nil, &ValidationError{Message: "enter a valid email address"}
	}
	if err := ValidatePassword(req.Password, username, email); err != nil {
		return nil, err
	}

	var count int64
	if err := s.db.WithContext(ctx).Model(&models.User{}).
		Where("username = ? OR email = ?", username, email).
		Count(&count).Error; err != nil {
		return nil, fmt.Errorf("check existing users: %w", err)
	}
	if count > 0 {
		return nil, &ConflictError{Message: "an account with this username or email already exists"}
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	user := models.User{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		IsActive:     true,
	}
	welcome := s.welcomeEmail(&user)
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&user).Error; err != nil {
			return fmt.Errorf("create user: %w", err)
		}
		if err := tx.Create(welcome).Error; err != nil {
			return fmt.Errorf("create welcome email: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	audit.Record(ctx, s.db, user.ID, audit.ActionSignUp, "user:"+user.ID.String(), map[string]any{
		"username": user.Username,
	})

	// The pending row is picked up by the worker's startup scan if this fails.
	if err := s.queue.Enqueue(ctx, welcome); err != nil {
		slog.Warn("Failed to enqueue welcome email", "user_id", user.ID, "email_id", welcome.ID, "error", err)
	}
	return &user, nil
}

func (s *AccountService) welcomeEmail(user *models.User) *models.Email {
	return &models.Email{
		To:      user.Email,
		Subject: fmt.Sprintf("Welcome to %s", config.ProjectName),
		Body: fmt.Sprintf("Hi %s,\n\nYour %s account is ready. Sign in at %s/sign-in/\n",
			user.Username, config.ProjectName, strings.TrimSuffix(s.projectURL, "/")),
		Status: models.EmailStatusPending,
	}
}

// ValidatePassword applies the password rules: minimum length, not purely
// numeric, not a common password, and not derived from the username or email.
func ValidatePassword(password, username, email string) error {
	if len([]rune(password)) < minPasswordLength {
		return &ValidationError{Message: fmt.Sprintf("password must contain at least %d characters", minPasswordLength)}
	}
	if strings.IndexFunc(password, func(r rune) bool { return !unicode.IsDigit(r) }) == -1 {
		return &ValidationError{Message: "password cannot be entirely numeric"}
	}
	lower := strings.ToLower(password)
	if commonPasswords[lower] {
		return &ValidationError{Message: "password is too common"}
	}
	localPart, _, _ := strings.Cut(strings.ToLower(email), "@")
	for _, attr := range []string{strings.ToLower(username), localPart} {
		if len(attr) >= 3 && (strings.Contains(lower, attr) || strings.Contains(attr, lower)) {
			return &ValidationError{Message: "password is too similar to your account details"}
		}
	}
	return nil
}
