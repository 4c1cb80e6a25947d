package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds application configuration.
type Config struct {
	AppName     string
	AppVersion  string
	Mode        string
	Environment string

	AuthJWTSecret string

	OTLPEndpoint string

	Cloud CloudConfig

	DBType            string
	DBHost            string
	DBPort            string
	DBName            string
	DBUser            string
	DBPassword        string
	DBSSLMode         string
	DBMaxIdleConn     int
	DBMaxOpenConn     int
	DBConnMaxLifetime int
	DBConnMaxIdleTime int

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	LLMAPIBase string
	LLMAPIKey  string
	LLMModel   string

	BillingAPIBase       string
	BillingSecretKey     string
	BillingWebhookSecret string
	BillingParentPriceID string
	BillingChildPriceID  string

	// CredentialsKey seals PMS integration credentials at rest.
	// Hex or raw, 32 bytes after decoding.
	CredentialsKey string

	DefaultTrialDays int
	AIDailyCap       int

	// SeedDemo populates a demo owner with sample properties on startup.
	// OSS mode only.
	SeedDemo bool
}

type CloudConfig struct {
	OrganizationID   string
	OrganizationName string
	Metrics          CloudMetricsConfig
}

type CloudMetricsConfig struct {
	Enabled   bool
	Exporter  string
	Endpoint  string
	AuthToken string
}

const (
	ModeOSS   = "oss"
	ModeCloud = "cloud"
)

// Load loads configuration from environment variables and .env file.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		AppName:     getenv("APP_SERVICE", "nightly"),
		AppVersion:  getenv("APP_VERSION", "0.1.0"),
		Mode:        normalizeMode(getenv("APP_MODE", ModeOSS)),
		Environment: getenv("ENVIRONMENT", "development"),

		AuthJWTSecret: strings.TrimSpace(getenv("AUTH_JWT_SECRET", "")),

		OTLPEndpoint: getenv("OTLP_ENDPOINT", "localhost:4317"),
		Cloud: CloudConfig{
			OrganizationID:   strings.TrimSpace(getenv("CLOUD_ORGANIZATION_ID", "")),
			OrganizationName: getenv("CLOUD_ORGANIZATION_NAME", ""),
			Metrics: CloudMetricsConfig{
				Enabled:   getenvBool("CLOUD_METRICS_ENABLED", true),
				Exporter:  strings.ToLower(getenv("CLOUD_METRICS_EXPORTER", "")),
				Endpoint:  strings.TrimSpace(getenv("CLOUD_METRICS_ENDPOINT", "")),
				AuthToken: strings.TrimSpace(getenv("CLOUD_METRICS_AUTH_TOKEN", "")),
			},
		},

		DBType:            getenv("DATABASE_TYPE", "postgres"),
		DBHost:            getenv("DATABASE_HOST", "localhost"),
		DBPort:            getenv("DATABASE_PORT", "5432"),
		DBName:            getenv("DATABASE_NAME", "nightly"),
		DBUser:            getenv("DATABASE_USER", "postgres"),
		DBPassword:        getenv("DATABASE_PASSWORD", "postgres"),
		DBSSLMode:         getenv("DATABASE_SSLMODE", "disable"),
		DBMaxIdleConn:     getenvInt("DATABASE_MAX_IDLE_CONN", 5),
		DBMaxOpenConn:     getenvInt("DATABASE_MAX_OPEN_CONN", 25),
		DBConnMaxLifetime: getenvInt("DATABASE_CONN_MAX_LIFETIME", 1800),
		DBConnMaxIdleTime: getenvInt("DATABASE_CONN_MAX_IDLE_TIME", 300),

		RedisAddr:     getenv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getenv("REDIS_PASSWORD", ""),
		RedisDB:       getenvInt("REDIS_DB", 0),

		LLMAPIBase: getenv("LLM_API_BASE", "https://api.openai.com"),
		LLMAPIKey:  strings.TrimSpace(getenv("LLM_API_KEY", "")),
		LLMModel:   getenv("LLM_MODEL", "gpt-4o-mini"),

		BillingAPIBase:       getenv("BILLING_API_BASE", "https://api.stripe.com"),
		BillingSecretKey:     strings.TrimSpace(getenv("BILLING_SECRET_KEY", "")),
		BillingWebhookSecret: strings.TrimSpace(getenv("BILLING_WEBHOOK_SECRET", "")),
		BillingParentPriceID: strings.TrimSpace(getenv("BILLING_PARENT_PRICE_ID", "")),
		BillingChildPriceID:  strings.TrimSpace(getenv("BILLING_CHILD_PRICE_ID", "")),

		CredentialsKey: strings.TrimSpace(getenv("CREDENTIALS_KEY", "")),

		DefaultTrialDays: getenvInt("DEFAULT_TRIAL_DAYS", 30),
		AIDailyCap:       getenvInt("AI_DAILY_CAP", 10),

		SeedDemo: getenvBool("SEED_DEMO_DATA", false),
	}
}

func (c Config) IsCloud() bool {
	return c.Mode == ModeCloud
}

func normalizeMode(raw string) string {
	if strings.ToLower(strings.TrimSpace(raw)) == ModeCloud {
		return ModeCloud
	}
	return ModeOSS
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvBool(key string, def bool) bool {
	value := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	if value == "" {
		return def
	}
	switch value {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	default:
		return def
	}
}

func getenvInt(key string, def int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return def
	}
	return parsed
}
