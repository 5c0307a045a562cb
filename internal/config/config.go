package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all runtime configuration loaded from environment variables.
type Config struct {
	AppPort string
	AppEnv  string

	StoreDriver    string // "dynamo" | "memory"
	AWSRegion      string
	AWSEndpointURL string // empty in prod, set to LocalStack URL in dev
	AWSAccessKeyID string
	AWSSecretKey   string
	DynamoTables   DynamoTables

	SessionSecret     string
	SessionTTL        time.Duration
	SessionCookieName string
	CookieDomain      string
	CookieSameSite    string

	ClientURL              string // externally reachable base URL for reset links
	VerificationCodeDigits int
	BcryptCost             int
	UniformForgotPassword  bool

	NotifierDriver     string // "smtp" | "sns" | "log"
	NotifierTimeout    time.Duration
	NotifierRatePerSec float64
	NotifierBurst      int
	SMTPHost           string
	SMTPPort           string
	SMTPFrom           string
	SMTPUsername       string
	SMTPPassword       string
	SNSRegion          string
	SNSTopicARN        string
	TemplateBucket     string // optional S3 bucket overriding built-in templates
	TemplatePrefix     string

	AllowedOrigins []string // CORS allowed origins
	MetricsEnabled bool
}

// DynamoTables holds the DynamoDB table name for each entity.
type DynamoTables struct {
	Accounts string
}

// Load reads all configuration from environment variables.
func Load() *Config {
	return &Config{
		AppPort: getEnv("APP_PORT", "5000"),
		AppEnv:  getEnv("APP_ENV", "development"),

		StoreDriver:    getEnv("STORE_DRIVER", "dynamo"),
		AWSRegion:      getEnv("AWS_REGION", "us-east-1"),
		AWSEndpointURL: getEnv("AWS_ENDPOINT_URL", ""),
		AWSAccessKeyID: getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretKey:   getEnv("AWS_SECRET_ACCESS_KEY", ""),
		DynamoTables: DynamoTables{
			Accounts: getEnv("DYNAMO_TABLE_ACCOUNTS", "accounts"),
		},

		SessionSecret:     getEnv("SESSION_SECRET", ""),
		SessionTTL:        getEnvDuration("SESSION_TTL", 7*24*time.Hour),
		SessionCookieName: getEnv("SESSION_COOKIE_NAME", "token"),
		CookieDomain:      getEnv("COOKIE_DOMAIN", ""),
		CookieSameSite:    getEnv("COOKIE_SAMESITE", "strict"),

		ClientURL:              strings.TrimRight(getEnv("CLIENT_URL", "http://localhost:5173"), "/"),
		VerificationCodeDigits: getEnvInt("VERIFICATION_CODE_DIGITS", 6),
		BcryptCost:             getEnvInt("BCRYPT_COST", 10),
		UniformForgotPassword:  getEnvBool("UNIFORM_FORGOT_PASSWORD", false),

		NotifierDriver:     getEnv("NOTIFIER_DRIVER", "log"),
		NotifierTimeout:    getEnvDuration("NOTIFIER_TIMEOUT", 30*time.Second),
		NotifierRatePerSec: getEnvFloat("NOTIFIER_RATE_PER_SECOND", 10),
		NotifierBurst:      getEnvInt("NOTIFIER_BURST", 20),
		SMTPHost:           getEnv("SMTP_HOST", "localhost"),
		SMTPPort:           getEnv("SMTP_PORT", "1025"),
		SMTPFrom:           getEnv("SMTP_FROM", "noreply@example.com"),
		SMTPUsername:       getEnv("SMTP_USERNAME", ""),
		SMTPPassword:       getEnv("SMTP_PASSWORD", ""),
		SNSRegion:          getEnv("SNS_REGION", "us-east-1"),
		SNSTopicARN:        getEnv("SNS_TOPIC_ARN", ""),
		TemplateBucket:     getEnv("TEMPLATE_BUCKET", ""),
		TemplatePrefix:     getEnv("TEMPLATE_PREFIX", "templates/"),

		AllowedOrigins: strings.Split(getEnv("ALLOWED_ORIGINS", "http://localhost:5173"), ","),
		MetricsEnabled: getEnvBool("METRICS_ENABLED", true),
	}
}

// IsProduction reports whether the app runs with production defaults
// (secure cookies, JSON logs, mandatory secrets).
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// SecureCookies reports whether session cookies carry the Secure flag.
func (c *Config) SecureCookies() bool {
	return c.AppEnv != "development"
}

// Validate rejects configurations the server cannot run with.
func (c *Config) Validate() error {
	var errs []error
	switch c.StoreDriver {
	case "dynamo", "memory":
	default:
		errs = append(errs, fmt.Errorf("STORE_DRIVER must be dynamo or memory, got %q", c.StoreDriver))
	}
	switch c.NotifierDriver {
	case "smtp", "log":
	case "sns":
		if c.SNSTopicARN == "" {
			errs = append(errs, errors.New("SNS_TOPIC_ARN is required when NOTIFIER_DRIVER=sns"))
		}
	default:
		errs = append(errs, fmt.Errorf("NOTIFIER_DRIVER must be smtp, sns or log, got %q", c.NotifierDriver))
	}
	switch strings.ToLower(c.CookieSameSite) {
	case "strict", "lax":
	case "none":
		if !c.SecureCookies() {
			errs = append(errs, errors.New("COOKIE_SAMESITE=none requires secure cookies (APP_ENV other than development)"))
		}
	default:
		errs = append(errs, fmt.Errorf("COOKIE_SAMESITE must be strict, lax or none, got %q", c.CookieSameSite))
	}
	if c.SessionSecret == "" && c.IsProduction() {
		errs = append(errs, errors.New("SESSION_SECRET is required in production"))
	}
	if c.VerificationCodeDigits < 6 {
		errs = append(errs, fmt.Errorf("VERIFICATION_CODE_DIGITS must be at least 6, got %d", c.VerificationCodeDigits))
	}
	if c.SessionTTL <= 0 {
		errs = append(errs, errors.New("SESSION_TTL must be positive"))
	}
	if c.NotifierTimeout <= 0 {
		errs = append(errs, errors.New("NOTIFIER_TIMEOUT must be positive"))
	}
	return errors.Join(errs...)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
