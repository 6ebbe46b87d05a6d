package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/qworpa/qworpa/internal/audit"
	"github.com/qworpa/qworpa/internal/auth"
	"github.com/qworpa/qworpa/internal/service"
	"gorm.io/gorm"
)

// AccountHandler serves the sign-up and sign-in endpoints.
type AccountHandler struct {
	svc     *service.AccountService
	auth    *auth.Authenticator
	captcha auth.CaptchaVerifier
	db      *gorm.DB
}

// NewAccountHandler creates a new AccountHandler
func NewAccountHandler(svc *service.AccountService, authenticator *auth.Authenticator, captcha auth.CaptchaVerifier, db *gorm.DB) *AccountHandler {
	return &AccountHandler{svc: svc, auth: authenticator, captcha: captcha, db: db}
}

// SignUpRequest is the sign-up form body.
type SignUpRequest struct {
	Username     string `json:"username" binding:"required"`
	Email        string `json:"email" binding:"required"`
	Password     string `json:"password" binding:"required"`
	CaptchaToken string `json:"captcha_token"`
}

// SignUp registers a new account and returns it with 201.
func (h *AccountHandler) SignUp(c *gin.Context) {
	var req SignUpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}
	if !h.verifyCaptcha(c, req.CaptchaToken) {
		return
	}

	user, err := h.svc.SignUp(c.Request.Context(), service.SignUpRequest{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, user)
}

// SignIn exchanges credentials for a token.
func (h *AccountHandler) SignIn(c *gin.Context) {
	var req auth.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}
	if !h.verifyCaptcha(c, req.CaptchaToken) {
		return
	}

	ctx := c.Request.Context()
	resp, err := h.auth.Login(ctx, req.Username, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrInvalidCredentials):
			audit.Record(ctx, h.db, uuid.Nil, audit.ActionSignInFailed, "user:"+req.Username, map[string]any{
				"ip": c.ClientIP(),
			})
			c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "invalid credentials"})
		case errors.Is(err, auth.ErrInactiveUser):
			c.JSON(http.StatusForbidden, ErrorResponse{Error: "account is inactive"})
		default:
			slog.Error("Sign-in failed", "error", err)
			c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Internal server error"})
		}
		return
	}

	audit.Record(ctx, h.db, resp.User.ID, audit.ActionSignIn, "user:"+resp.User.ID.String(), map[string]any{
		"ip": c.ClientIP(),
	})
	c.JSON(http.StatusOK, resp)
}

func (h *AccountHandler) verifyCaptcha(c *gin.Context, token string) bool {
	if err := h.captcha.Verify(c.Request.Context(), token, c.ClientIP()); err != nil {
		if errors.Is(err, auth.ErrCaptchaFailed) {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "captcha verification failed"})
		} else {
			slog.Error("Captcha verification error", "error", err)
			c.JSON(http.StatusBadGateway, ErrorResponse{Error: "captcha service unavailable"})
		}
		return false
	}
	return true
}
