package auth

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/qworpa/qworpa/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupAuthTest(t *testing.T) (*Authenticator, *gorm.DB, *models.User) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "auth.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(&models.User{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	hash, err := HashPassword("correct-horse")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	user := &models.User{Username: "alice", Email: "alice@example.com", PasswordHash: hash, IsActive: true}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}

	return NewAuthenticator(db, "test-key"), db, user
}

func TestLogin(t *testing.T) {
	a, _, user := setupAuthTest(t)

	tests := []struct {
		name     string
		username string
		password string
		wantErr  error
	}{
		{"by username", "alice", "correct-horse", nil},
		{"by email", "Alice@Example.com", "correct-horse", nil},
		{"wrong password", "alice", "wrong", ErrInvalidCredentials},
		{"unknown user", "bob", "correct-horse", ErrInvalidCredentials},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := a.Login(context.Background(), tt.username, tt.password)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("login failed: %v", err)
			}
			if resp.User.ID != user.ID {
				t.Errorf("logged in as %s, want %s", resp.User.ID, user.ID)
			}
			claims, err := a.ValidateToken(resp.Token)
			if err != nil {
				t.Fatalf("token invalid: %v", err)
			}
			if claims.UserID != user.ID.String() || claims.Username != "alice" {
				t.Errorf("unexpected claims: %+v", claims)
			}
		})
	}
}

func TestLogin_InactiveUser(t *testing.T) {
	a, db, user := setupAuthTest(t)
	db.Model(user).UpdateColumn("is_active", false)

	if _, err := a.Login(context.Background(), "alice", "correct-horse"); !errors.Is(err, ErrInactiveUser) {
		t.Fatalf("expected ErrInactiveUser, got %v", err)
	}
}

func TestLogin_LastLoginFailureIsLogged(t *testing.T) {
	a, db, _ := setupAuthTest(t)
	err := db.Callback().Update().Before("gorm:update").Register("test:fail_updates", func(tx *gorm.DB) {
		tx.AddError(errors.New("disk full"))
	})
	if err != nil {
		t.Fatalf("register callback: %v", err)
	}

	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, nil)))
	t.Cleanup(func() { slog.SetDefault(prev) })

	resp, err := a.Login(context.Background(), "alice", "correct-horse")
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if resp.Token == "" {
		t.Error("expected a token")
	}
	if !strings.Contains(buf.String(), "Failed to record last login") || !strings.Contains(buf.String(), "disk full") {
		t.Errorf("expected warning in log, got %q", buf.String())
	}
}

func TestValidateToken_Expired(t *testing.T) {
	a, _, user := setupAuthTest(t)

	issued := time.Now().Add(-48 * time.Hour)
	a.now = func() time.Time { return issued }
	token, err := a.IssueToken(user)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	a.now = time.Now
	if _, err := a.ValidateToken(token); err == nil {
		t.Fatal("expected expired token to be rejected")
	}
}

func TestValidateToken_WrongKey(t *testing.T) {
	a, db, user := setupAuthTest(t)

	token, err := NewAuthenticator(db, "other-key").IssueToken(user)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := a.ValidateToken(token); err == nil {
		t.Fatal("expected token signed with another key to be rejected")
	}
}

func TestRequire(t *testing.T) {
	gin.SetMode(gin.TestMode)
	a, _, user := setupAuthTest(t)

	token, err := a.IssueToken(user)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	handler := a.Require(func(c *gin.Context) {
		u, err := GetUserFromContext(c)
		if err != nil {
			t.Errorf("GetUserFromContext: %v", err)
		}
		c.String(http.StatusOK, u.Username)
	})

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"valid token", "Bearer " + token, http.StatusOK},
		{"missing header", "", http.StatusUnauthorized},
		{"wrong scheme", "Token " + token, http.StatusUnauthorized},
		{"garbage token", "Bearer nope", http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest(http.MethodPost, "/", nil)
			if tt.header != "" {
				c.Request.Header.Set("Authorization", tt.header)
			}

			handler(c)

			if w.Code != tt.want {
				t.Errorf("status = %d, want %d", w.Code, tt.want)
			}
			if tt.want == http.StatusOK && w.Body.String() != "alice" {
				t.Errorf("body = %q", w.Body.String())
			}
		})
	}
}

func TestVerifyPassword(t *testing.T) {
	hash, err := HashPassword("secret-pass")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if !VerifyPassword(hash, "secret-pass") {
		t.Error("expected password to verify")
	}
	if VerifyPassword(hash, "other") {
		t.Error("expected wrong password to fail")
	}
}
