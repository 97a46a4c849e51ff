package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

// Notification drivers.
const (
	NotifyDriverLog  = "log"
	NotifyDriverSMTP = "smtp"
	NotifyDriverAMQP = "amqp"
)

// Config holds application configuration.
type Config struct {
	// Server
	ServerAddr string
	ServerPort int
	// TrustProxyHeaders takes the client address from X-Forwarded-For and friends.
	// Only enable it behind a proxy that overwrites those headers.
	TrustProxyHeaders bool

	// Database
	DatabaseURLOverride string
	DBHost              string
	DBPort              int
	DBUser              string
	DBPassword          string
	DBName              string
	DBSSLMode           string
	DBMaxOpenConns      int
	DBMaxIdleConns      int
	DBConnMaxLifetime   time.Duration

	// Site
	SiteURL                string
	SiteName               string
	ContactTokenTTL        time.Duration
	NewsletterTokenTTL     time.Duration
	ContactConfirmedURL    string
	NewsletterConfirmedURL string
	NotificationTimeout    time.Duration

	// Email
	EmailFrom      string
	EmailFromName  string
	ContactToEmail string
	NotifyDriver   string
	SMTP           SMTPConfig
	AMQPURL        string
	AMQPQueue      string

	// Newsletter
	NewsletterSource         string
	NewsletterIssuePath      string
	NewsletterWelcomeSubject string

	MetricsEnabled bool
	// WorkerMetricsAddr is where the mail worker serves /metrics.
	WorkerMetricsAddr string
	LogLevel          string

	RateLimit       RateLimitConfig
	SecurityHeaders SecurityHeadersConfig
	Validation      ValidationConfig
}

// SMTPConfig holds SMTP server settings.
type SMTPConfig struct {
	Host     string
	Port     int
	User     string
	Password string
}

// RateLimitConfig holds per-IP limits for the intake and redemption endpoints.
type RateLimitConfig struct {
	Enabled                 bool
	IntakeRequestsPerWindow int
	IntakeWindowMinutes     int
	RedeemRequestsPerWindow int
	RedeemWindowMinutes     int
}

// SecurityHeadersConfig holds the response security headers.
type SecurityHeadersConfig struct {
	Enabled            bool
	CSP                string
	HSTSMaxAge         int
	FrameOptions       string
	ContentTypeOptions string
	XSSProtection      string
	ReferrerPolicy     string
	PermissionsPolicy  string
}

// ValidationConfig holds input limits.
type ValidationConfig struct {
	MinMessageLength   int
	MaxRequestBodySize int64
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		// Server defaults
		ServerAddr: getEnv("SERVER_ADDR", "0.0.0.0"),
		ServerPort: getEnvInt("SERVER_PORT", 8080),

		TrustProxyHeaders: getEnvBool("TRUST_PROXY_HEADERS", false),

		// Database defaults (DATABASE_URL wins when set)
		DatabaseURLOverride: getEnv("DATABASE_URL", ""),
		DBHost:              getEnv("DB_HOST", "localhost"),
		DBPort:              getEnvInt("DB_PORT", 5432),
		DBUser:              getEnv("DB_USER", "postgres"),
		DBPassword:          getEnv("DB_PASSWORD", "postgres"),
		DBName:              getEnv("DB_NAME", "leadverify"),
		DBSSLMode:           getEnv("DB_SSLMODE", "disable"),
		DBMaxOpenConns:      getEnvInt("DB_MAX_OPEN_CONNS", 10),
		DBMaxIdleConns:      getEnvInt("DB_MAX_IDLE_CONNS", 5),
		DBConnMaxLifetime:   getEnvDuration("DB_CONN_MAX_LIFETIME", 30*time.Minute),

		SiteURL:                strings.TrimRight(getEnv("SITE_URL", ""), "/"),
		SiteName:               getEnv("SITE_NAME", "Three Eagles Forge"),
		ContactTokenTTL:        getEnvDuration("CONTACT_TOKEN_TTL", 24*time.Hour),
		NewsletterTokenTTL:     getEnvDuration("NEWSLETTER_TOKEN_TTL", 60*time.Minute),
		ContactConfirmedURL:    getEnv("CONTACT_CONFIRMED_URL", "/contact?confirmed=1"),
		NewsletterConfirmedURL: getEnv("NEWSLETTER_CONFIRMED_URL", "/newsletter?confirmed=1"),
		NotificationTimeout:    getEnvDuration("NOTIFICATION_TIMEOUT", 15*time.Second),

		EmailFrom:      getEnv("EMAIL_FROM", ""),
		EmailFromName:  getEnv("EMAIL_FROM_NAME", ""),
		ContactToEmail: getEnv("CONTACT_TO_EMAIL", ""),
		NotifyDriver:   strings.ToLower(getEnv("NOTIFY_DRIVER", NotifyDriverLog)),
		SMTP: SMTPConfig{
			Host:     getEnv("SMTP_HOST", ""),
			Port:     getEnvInt("SMTP_PORT", 587),
			User:     getEnv("SMTP_USER", ""),
			Password: getEnv("SMTP_PASSWORD", ""),
		},
		AMQPURL:   getEnv("AMQP_URL", ""),
		AMQPQueue: getEnv("AMQP_QUEUE", "outbound_email"),

		NewsletterSource:         getEnv("NEWSLETTER_SOURCE", "DDE Newsletter"),
		NewsletterIssuePath:      getEnv("NEWSLETTER_ISSUE_PATH", "data/dde/latest/issue.html"),
		NewsletterWelcomeSubject: getEnv("NEWSLETTER_WELCOME_SUBJECT", "Welcome to the newsletter"),

		MetricsEnabled:    getEnvBool("METRICS_ENABLED", true),
		WorkerMetricsAddr: getEnv("WORKER_METRICS_ADDR", ":9091"),
		LogLevel:          getEnv("LOG_LEVEL", "info"),

		RateLimit: RateLimitConfig{
			Enabled:                 getEnvBool("RATE_LIMIT_ENABLED", true),
			IntakeRequestsPerWindow: getEnvInt("INTAKE_REQUESTS_PER_WINDOW", 5),
			IntakeWindowMinutes:     getEnvInt("INTAKE_WINDOW_MINUTES", 10),
			RedeemRequestsPerWindow: getEnvInt("REDEEM_REQUESTS_PER_WINDOW", 20),
			RedeemWindowMinutes:     getEnvInt("REDEEM_WINDOW_MINUTES", 10),
		},

		SecurityHeaders: SecurityHeadersConfig{
			Enabled:            getEnvBool("SECURITY_HEADERS_ENABLED", true),
			CSP:                getEnv("SECURITY_CSP", "default-src 'none'; frame-ancestors 'none'"),
			HSTSMaxAge:         getEnvInt("SECURITY_HSTS_MAX_AGE", 31536000),
			FrameOptions:       getEnv("SECURITY_FRAME_OPTIONS", "DENY"),
			ContentTypeOptions: getEnv("SECURITY_CONTENT_TYPE_OPTIONS", "nosniff"),
			XSSProtection:      getEnv("SECURITY_XSS_PROTECTION", "0"),
			ReferrerPolicy:     getEnv("SECURITY_REFERRER_POLICY", "no-referrer"),
			PermissionsPolicy:  getEnv("SECURITY_PERMISSIONS_POLICY", "geolocation=(), camera=(), microphone=()"),
		},

		Validation: ValidationConfig{
			MinMessageLength:   getEnvInt("MIN_MESSAGE_LENGTH", 5),
			MaxRequestBodySize: int64(getEnvInt("MAX_REQUEST_BODY_SIZE", 65536)),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.ContactTokenTTL <= 0 {
		return fmt.Errorf("CONTACT_TOKEN_TTL must be positive")
	}
	if c.NewsletterTokenTTL <= 0 {
		return fmt.Errorf("NEWSLETTER_TOKEN_TTL must be positive")
	}
	if c.Validation.MaxRequestBodySize <= 0 {
		return fmt.Errorf("MAX_REQUEST_BODY_SIZE must be positive")
	}

	switch c.NotifyDriver {
	case NotifyDriverLog:
	case NotifyDriverSMTP:
		if c.SMTP.Host == "" {
			return fmt.Errorf("SMTP_HOST is required when NOTIFY_DRIVER=smtp")
		}
	case NotifyDriverAMQP:
		if c.AMQPURL == "" {
			return fmt.Errorf("AMQP_URL is required when NOTIFY_DRIVER=amqp")
		}
	default:
		return fmt.Errorf("unknown NOTIFY_DRIVER %q (want log, smtp or amqp)", c.NotifyDriver)
	}

	// Links in real email must not depend on request headers.
	if c.NotifyDriver != NotifyDriverLog && c.SiteURL == "" {
		return fmt.Errorf("SITE_URL is required when NOTIFY_DRIVER=%s", c.NotifyDriver)
	}
	if c.SiteURL != "" {
		u, err := url.Parse(c.SiteURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("SITE_URL must be an absolute http(s) URL, got %q", c.SiteURL)
		}
	}

	return nil
}

// DatabaseURL returns DATABASE_URL, or a postgres URL built from the DB_* settings.
func (c *Config) DatabaseURL() string {
	if c.DatabaseURLOverride != "" {
		return c.DatabaseURLOverride
	}

	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.DBUser, c.DBPassword),
		Host:     fmt.Sprintf("%s:%d", c.DBHost, c.DBPort),
		Path:     "/" + c.DBName,
		RawQuery: url.Values{"sslmode": {c.DBSSLMode}}.Encode(),
	}
	return u.String()
}

// HasSMTP returns true if an SMTP server is configured.
func (c *Config) HasSMTP() bool {
	return c.SMTP.Host != ""
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
