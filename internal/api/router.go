package api

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/qworpa/qworpa/internal/api/handlers"
	"github.com/qworpa/qworpa/internal/api/middleware"
	"github.com/qworpa/qworpa/internal/auth"
	"github.com/qworpa/qworpa/internal/config"
	"github.com/qworpa/qworpa/internal/queue"
	"github.com/qworpa/qworpa/internal/routing"
	"github.com/qworpa/qworpa/internal/service"
	"gorm.io/gorm"
)

// DefaultMiddleware is the chain order, outermost first. Hosts are checked
// before the HTTPS redirect.
var DefaultMiddleware = []string{
	"recovery",
	"logging",
	"allowed_hosts",
	"security",
	"locale",
	"cors",
	"rate_limit",
}

// Deps holds optional collaborators for NewRouter. Nil fields are built
// from the config.
type Deps struct {
	Captcha auth.CaptchaVerifier
	Limiter *middleware.RateLimiter
}

// NewRouter creates and configures the Gin router
func NewRouter(cfg *config.Config, db *gorm.DB, q queue.Queue, deps Deps) (*gin.Engine, *routing.Table, error) {
	if cfg.Server.Mode == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	if deps.Captcha == nil {
		deps.Captcha = auth.NewRecaptchaVerifier(cfg.Recaptcha.PrivateKey)
	}
	if deps.Limiter == nil {
		deps.Limiter = middleware.NewRateLimiter(cfg.RateLimit.Rate, cfg.RateLimit.Burst)
	}

	router := gin.New()

	chain := map[string]gin.HandlerFunc{
		"recovery":      gin.Recovery(),
		"logging":       middleware.Logging(),
		"allowed_hosts": middleware.AllowedHosts(cfg.AllowedHosts),
		"security":      middleware.Security(cfg.Security),
		"locale":        middleware.Locale(cfg.I18n),
		"cors":          middleware.CORS(cfg.CORS.AllowedOrigins),
		"rate_limit":    deps.Limiter.Middleware(),
	}
	order := cfg.Middleware
	if len(order) == 0 {
		order = DefaultMiddleware
	}
	for _, name := range order {
		mw, ok := chain[name]
		if !ok {
			return nil, nil, fmt.Errorf("unknown middleware %q", name)
		}
		router.Use(mw)
	}

	authenticator := auth.NewAuthenticator(db, cfg.Auth.JWTAuthKey)
	if cfg.Auth.TokenDuration > 0 {
		authenticator.SetTokenDuration(cfg.Auth.TokenDuration)
	}

	// The table is created before the handlers so post handlers can reverse
	// routes registered after them.
	table := routing.NewTable(Prefix)
	err := URLPatterns(table, Handlers{
		Health:   handlers.NewHealthHandler(db),
		Accounts: handlers.NewAccountHandler(service.NewAccountService(db, q, cfg.ProjectURL), authenticator, deps.Captcha, db),
		Posts:    handlers.NewPostHandler(service.NewPostService(db), table),
		Auth:     authenticator,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to register routes: %w", err)
	}

	router.Any("/api/*path", table.Dispatch())
	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, handlers.ErrorResponse{Error: "not found"})
	})

	slog.Info("API router initialized", "mode", cfg.Server.Mode, "routes", len(table.Routes()))
	return router, table, nil
}
