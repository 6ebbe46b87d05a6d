package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// ProjectName is used for database defaults, token issuer and mail subjects.
const ProjectName = "qworpa"

// Mail transports selected by Debug.
const (
	EmailBackendSMTP    = "smtp"
	EmailBackendConsole = "console"
)

// Config holds all application configuration. It is built once by Load and
// must be treated as read-only afterwards.
type Config struct {
	ProjectName  string
	ProjectURL   string
	SecretKey    string
	Debug        bool
	AllowedHosts []string

	Server    ServerConfig
	Database  DatabaseConfig
	Auth      AuthConfig
	Recaptcha RecaptchaConfig
	CORS      CORSConfig
	Security  SecurityConfig
	Email     EmailConfig
	Queue     QueueConfig
	Log       LogConfig
	RateLimit RateLimitConfig
	I18n      I18nConfig
	Admin     AdminConfig

	TinyMCEAPIKey string

	// Features lists the enabled application features, in startup order.
	Features []string
	// Middleware lists the HTTP middleware chain, outermost first.
	Middleware []string
	// MessageTags maps message levels to the CSS class the UI renders.
	MessageTags map[string]string
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port int
	Mode string // "development" or "production"
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Driver          string // "postgres" or "sqlite"
	DSN             string
	Name            string
	User            string
	Password        string
	Host            string
	Port            string
	MaxIdleConns    int
	MaxOpenConns    int
	ConnMaxLifetime int // minutes
	LogLevel        string
}

// AuthConfig holds authentication configuration
type AuthConfig struct {
	JWTAuthKey       string
	TokenDuration    time.Duration
	LoginRedirectURL string
}

// RecaptchaConfig holds the reCAPTCHA site and secret keys.
type RecaptchaConfig struct {
	PublicKey  string
	PrivateKey string
}

// CORSConfig holds the origins allowed to make cross-site requests.
type CORSConfig struct {
	AllowedOrigins []string
}

// SecurityConfig holds transport security settings derived from Debug.
type SecurityConfig struct {
	SSLRedirect bool
	// ProxySSLHeader and ProxySSLValue identify requests that reached a TLS
	// terminating proxy over HTTPS.
	ProxySSLHeader string
	ProxySSLValue  string
}

// EmailConfig holds outgoing mail configuration
type EmailConfig struct {
	Backend      string
	DefaultFrom  string
	HostUser     string
	HostPassword string
	Host         string
	Port         int
	UseTLS       bool
}

// QueueConfig holds mail outbox queue configuration
type QueueConfig struct {
	Type       string // "memory" or "valkey"
	ValkeyAddr string
}

// LogConfig holds logging configuration
type LogConfig struct {
	Format string // "json" or "text"
	Level  string // "debug", "info", "warn", "error"
}

// RateLimitConfig holds per-client API rate limits.
type RateLimitConfig struct {
	Rate  float64 // requests per second
	Burst int
}

// Language is a supported UI language.
type Language struct {
	Code string
	Name string
}

// I18nConfig holds internationalization settings
type I18nConfig struct {
	LanguageCode string
	TimeZone     string
	Languages    []Language
}

// AdminConfig holds the optional bootstrap admin account.
type AdminConfig struct {
	Username string
	Password string
	Email    string
}

// MissingError reports required settings that were not provided.
type MissingError struct {
	Keys []string
}

func (e *MissingError) Error() string {
	return "missing required configuration: " + strings.Join(e.Keys, ", ")
}

// setting binds a config key to the environment variable that feeds it.
type setting struct {
	key      string
	env      string
	required bool
}

var settings = []setting{
	{key: "secret_key", env: "QW_SECRET_KEY", required: true},
	{key: "debug", env: "QW_DEBUG"},
	{key: "allowed_hosts", env: "QW_ALLOWED_HOSTS", required: true},
	{key: "project_url", env: "QW_PROJECT_URL", required: true},
	{key: "tinymce_api_key", env: "TINYMCE_API_KEY", required: true},

	{key: "server.port", env: "QW_PORT"},
	{key: "server.mode", env: "QW_MODE"},

	{key: "database.driver", env: "QW_DB_DRIVER"},
	{key: "database.dsn", env: "QW_DB_DSN"},
	{key: "database.name", env: "BF_PSQL_NAME"},
	{key: "database.user", env: "BF_PSQL_USER"},
	{key: "database.password", env: "BF_PSQL_PASSWORD", required: true},
	{key: "database.host", env: "BF_PSQL_HOST", required: true},
	{key: "database.port", env: "BF_PSQL_PORT"},
	{key: "database.log_level", env: "QW_DB_LOG_LEVEL"},

	{key: "recaptcha.public_key", env: "RECAPTCHA_PUBLIC_KEY", required: true},
	{key: "recaptcha.private_key", env: "RECAPTCHA_PRIVATE_KEY", required: true},

	{key: "auth.jwt_auth_key", env: "QW_JWT_AUTH_KEY", required: true},
	{key: "cors.allowed_origins", env: "QW_CORS_ALLOWED_ORIGINS", required: true},

	{key: "email.default_from", env: "DEFAULT_FROM_EMAIL", required: true},
	{key: "email.host_user", env: "EMAIL_HOST_USER", required: true},
	{key: "email.host_password", env: "EMAIL_HOST_PASSWORD", required: true},
	{key: "email.host", env: "EMAIL_HOST", required: true},
	{key: "email.port", env: "EMAIL_PORT"},

	{key: "queue.type", env: "QW_QUEUE_TYPE"},
	{key: "queue.valkey_addr", env: "QW_VALKEY_ADDR"},

	{key: "log.format", env: "QW_LOG_FORMAT"},
	{key: "log.level", env: "QW_LOG_LEVEL"},

	{key: "rate_limit.rate", env: "QW_RATE_LIMIT"},
	{key: "rate_limit.burst", env: "QW_RATE_BURST"},

	{key: "admin.username", env: "ADMIN_USERNAME"},
	{key: "admin.password", env: "ADMIN_PASSWORD"},
	{key: "admin.email", env: "ADMIN_EMAIL"},
}

// Load reads configuration from an optional qworpa.yaml file and the
// environment (environment wins). It fails if any required setting is
// absent or a typed value does not parse.
func Load() (*Config, error) {
	v := viper.New()

	v.SetDefault("debug", false)
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.mode", "production")
	v.SetDefault("database.driver", "postgres")
	v.SetDefault("database.name", ProjectName)
	v.SetDefault("database.user", ProjectName)
	v.SetDefault("database.port", "5432")
	v.SetDefault("database.max_idle_conns", 10)
	v.SetDefault("database.max_open_conns", 100)
	v.SetDefault("database.conn_max_lifetime", 60)
	v.SetDefault("email.port", 587)
	v.SetDefault("queue.type", "memory")
	v.SetDefault("queue.valkey_addr", "localhost:6379")
	v.SetDefault("log.format", "text")
	v.SetDefault("log.level", "info")
	v.SetDefault("rate_limit.rate", 5.0)
	v.SetDefault("rate_limit.burst", 20)

	v.SetConfigName(ProjectName)
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("/etc/qworpa/")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	for _, s := range settings {
		if err := v.BindEnv(s.key, s.env); err != nil {
			return nil, fmt.Errorf("error binding %s: %w", s.env, err)
		}
	}

	return fromViper(v)
}

func fromViper(v *viper.Viper) (*Config, error) {
	driver := strings.ToLower(v.GetString("database.driver"))

	var missing []string
	for _, s := range settings {
		if !s.required {
			continue
		}
		// A local SQLite database has no credentials.
		if driver == "sqlite" && strings.HasPrefix(s.key, "database.") {
			continue
		}
		if isEmpty(v.Get(s.key)) {
			missing = append(missing, s.env)
		}
	}
	if len(missing) > 0 {
		return nil, &MissingError{Keys: missing}
	}

	var p parser
	debug := p.boolean(v, "debug", "QW_DEBUG")
	emailPort := p.integer(v, "email.port", "EMAIL_PORT")
	serverPort := p.integer(v, "server.port", "QW_PORT")
	rateLimit := p.float(v, "rate_limit.rate", "QW_RATE_LIMIT")
	rateBurst := p.integer(v, "rate_limit.burst", "QW_RATE_BURST")
	if p.err != nil {
		return nil, p.err
	}

	cfg := &Config{
		ProjectName:   ProjectName,
		ProjectURL:    v.GetString("project_url"),
		SecretKey:     v.GetString("secret_key"),
		Debug:         debug,
		AllowedHosts:  stringList(v, "allowed_hosts"),
		TinyMCEAPIKey: v.GetString("tinymce_api_key"),
		Server: ServerConfig{
			Port: serverPort,
			Mode: v.GetString("server.mode"),
		},
		Database: DatabaseConfig{
			Driver:          driver,
			DSN:             v.GetString("database.dsn"),
			Name:            v.GetString("database.name"),
			User:            v.GetString("database.user"),
			Password:        v.GetString("database.password"),
			Host:            v.GetString("database.host"),
			Port:            v.GetString("database.port"),
			MaxIdleConns:    v.GetInt("database.max_idle_conns"),
			MaxOpenConns:    v.GetInt("database.max_open_conns"),
			ConnMaxLifetime: v.GetInt("database.conn_max_lifetime"),
			LogLevel:        v.GetString("database.log_level"),
		},
		Auth: AuthConfig{
			JWTAuthKey:       v.GetString("auth.jwt_auth_key"),
			TokenDuration:    24 * time.Hour,
			LoginRedirectURL: "/sign-in/",
		},
		Recaptcha: RecaptchaConfig{
			PublicKey:  v.GetString("recaptcha.public_key"),
			PrivateKey: v.GetString("recaptcha.private_key"),
		},
		CORS: CORSConfig{
			AllowedOrigins: stringList(v, "cors.allowed_origins"),
		},
		Email: EmailConfig{
			Backend:      EmailBackendSMTP,
			DefaultFrom:  v.GetString("email.default_from"),
			HostUser:     v.GetString("email.host_user"),
			HostPassword: v.GetString("email.host_password"),
			Host:         v.GetString("email.host"),
			Port:         emailPort,
			UseTLS:       true,
		},
		Queue: QueueConfig{
			Type:       v.GetString("queue.type"),
			ValkeyAddr: v.GetString("queue.valkey_addr"),
		},
		Log: LogConfig{
			Format: v.GetString("log.format"),
			Level:  v.GetString("log.level"),
		},
		RateLimit: RateLimitConfig{
			Rate:  rateLimit,
			Burst: rateBurst,
		},
		I18n: I18nConfig{
			LanguageCode: "en-us",
			TimeZone:     "UTC",
			Languages:    []Language{{Code: "en", Name: "English"}},
		},
		Admin: AdminConfig{
			Username: v.GetString("admin.username"),
			Password: v.GetString("admin.password"),
			Email:    v.GetString("admin.email"),
		},
		Features: []string{
			"captcha",
			"cors",
			"accounts",
			"api",
			"authentications",
			"blogs",
		},
		Middleware: []string{
			"recovery",
			"logging",
			"allowed_hosts",
			"security",
			"locale",
			"cors",
			"rate_limit",
		},
		MessageTags: map[string]string{"error": "danger"},
	}

	if cfg.Debug {
		cfg.Email.Backend = EmailBackendConsole
		cfg.Server.Mode = "development"
	} else {
		cfg.Security = SecurityConfig{
			SSLRedirect:    true,
			ProxySSLHeader: "X-Forwarded-Proto",
			ProxySSLValue:  "https",
		}
	}

	if cfg.Database.Driver == "postgres" && cfg.Database.DSN == "" {
		cfg.Database.DSN = cfg.Database.PostgresDSN()
	}

	return cfg, nil
}

// PostgresDSN builds a postgres:// connection URL from the discrete settings.
func (d DatabaseConfig) PostgresDSN() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(d.User, d.Password),
		Host:   net.JoinHostPort(d.Host, d.Port),
		Path:   "/" + d.Name,
	}
	return u.String()
}

// parser collects the first cast error so every typed setting can be read
// in sequence before checking.
type parser struct {
	err error
}

func (p *parser) fail(env string, raw any, kind string) {
	if p.err == nil {
		p.err = fmt.Errorf("invalid %s value for %s: %v", kind, env, raw)
	}
}

func (p *parser) boolean(v *viper.Viper, key, env string) bool {
	switch raw := v.Get(key).(type) {
	case bool:
		return raw
	case int:
		return raw != 0
	case string:
		return parseBool(raw)
	case nil:
		return false
	default:
		p.fail(env, raw, "boolean")
		return false
	}
}

func (p *parser) integer(v *viper.Viper, key, env string) int {
	switch raw := v.Get(key).(type) {
	case int:
		return raw
	case int64:
		return int(raw)
	case float64:
		return int(raw)
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(raw))
		if err != nil {
			p.fail(env, raw, "integer")
		}
		return n
	default:
		p.fail(env, raw, "integer")
		return 0
	}
}

func (p *parser) float(v *viper.Viper, key, env string) float64 {
	switch raw := v.Get(key).(type) {
	case float64:
		return raw
	case int:
		return float64(raw)
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil {
			p.fail(env, raw, "number")
		}
		return f
	default:
		p.fail(env, raw, "number")
		return 0
	}
}

// parseBool accepts the usual truthy spellings and any non-zero integer;
// anything else is false.
func parseBool(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	switch s {
	case "true", "on", "ok", "y", "yes":
		return true
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n != 0
	}
	return false
}

// stringList reads a comma-separated env value or a YAML list.
func stringList(v *viper.Viper, key string) []string {
	raw, ok := v.Get(key).(string)
	if !ok {
		return v.GetStringSlice(key)
	}
	var out []string
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func isEmpty(value any) bool {
	switch x := value.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(x) == ""
	case []any:
		return len(x) == 0
	case []string:
		return len(x) == 0
	}
	return false
}
