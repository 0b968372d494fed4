package config

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// DevFallbackSecret is the last resort of the refresh fingerprint key chain,
// keeping development runnable without a dedicated hash secret. It never
// backs the access-token signing secret, and validation refuses a production
// profile that resolves to it.
const DevFallbackSecret = "inkwell-dev-secret-do-not-use-in-prod"

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	AppEnv   string
	HTTPAddr string

	DBDriver    string
	DatabaseDSN string

	JWTIssuer         string
	JWTAudience       string
	JWTSecret         string
	RefreshHashSecret string
	AccessTokenTTL    time.Duration
	RefreshTokenTTL   time.Duration
	CookieSecure      bool

	RedisAddr        string
	APIRateLimitRPM  int
	AuthRateLimitRPM int

	OTELServiceName           string
	OTELEnvironment           string
	OTELExporterOTLPEndpoint  string
	OTELExporterOTLPInsecure  bool
	OTELMetricsEnabled        bool
	OTELTracesEnabled         bool
	OTELLogsEnabled           bool
	OTELMetricsExportInterval time.Duration
	EnableOTelHTTP            bool
}

func Load() (*Config, error) {
	cfg := &Config{
		AppEnv:   strings.ToLower(getEnv("APP_ENV", EnvDevelopment)),
		HTTPAddr: getEnv("HTTP_ADDR", ":8080"),

		DBDriver:    getEnv("DB_DRIVER", "sqlite"),
		DatabaseDSN: getEnv("DATABASE_DSN", "file:inkwell.db?cache=shared"),

		JWTIssuer:    getEnv("JWT_ISSUER", "inkwell-server"),
		JWTAudience:  getEnv("JWT_AUDIENCE", "inkwell-web"),
		JWTSecret:    os.Getenv("JWT_SECRET"),
		CookieSecure: getEnvBool("COOKIE_SECURE", false),

		RedisAddr: os.Getenv("REDIS_ADDR"),

		OTELServiceName:          getEnv("OTEL_SERVICE_NAME", "inkwell-server"),
		OTELExporterOTLPEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
		OTELExporterOTLPInsecure: getEnvBool("OTEL_EXPORTER_OTLP_INSECURE", true),
		OTELMetricsEnabled:       getEnvBool("OTEL_METRICS_ENABLED", false),
		OTELTracesEnabled:        getEnvBool("OTEL_TRACES_ENABLED", false),
		OTELLogsEnabled:          getEnvBool("OTEL_LOGS_ENABLED", false),
		EnableOTelHTTP:           getEnvBool("OTEL_HTTP_ENABLED", false),
	}
	cfg.OTELEnvironment = getEnv("OTEL_ENVIRONMENT", cfg.AppEnv)

	var err error
	if cfg.AccessTokenTTL, err = getEnvDuration("ACCESS_TOKEN_TTL", 15*time.Minute); err != nil {
		return nil, err
	}
	if cfg.RefreshTokenTTL, err = getEnvDuration("REFRESH_TOKEN_TTL", 7*24*time.Hour); err != nil {
		return nil, err
	}
	if cfg.OTELMetricsExportInterval, err = getEnvDuration("OTEL_METRICS_EXPORT_INTERVAL", 15*time.Second); err != nil {
		return nil, err
	}
	if cfg.APIRateLimitRPM, err = getEnvInt("API_RATE_LIMIT_RPM", 300); err != nil {
		return nil, err
	}
	if cfg.AuthRateLimitRPM, err = getEnvInt("AUTH_RATE_LIMIT_RPM", 30); err != nil {
		return nil, err
	}

	cfg.RefreshHashSecret = ResolveRefreshHashSecret(cfg.AppEnv, os.Getenv("REFRESH_HASH_SECRET"), cfg.JWTSecret)

	if err := cfg.Validate(); err != nil {
		recordConfigValidationEvent(context.Background(), cfg.AppEnv, "failure", classifyConfigLoadError(err))
		return nil, err
	}
	recordConfigValidationEvent(context.Background(), cfg.AppEnv, "success", "none")
	return cfg, nil
}

// Validate fails closed: the signing secret is mandatory in every profile,
// and a production profile must never run with the development fallback.
func (c *Config) Validate() error {
	if c.AppEnv != EnvDevelopment && c.AppEnv != EnvProduction {
		return fmt.Errorf("validate config: unknown APP_ENV %q", c.AppEnv)
	}
	if c.JWTSecret == "" {
		return fmt.Errorf("validate config: JWT_SECRET is required")
	}
	if c.AppEnv == EnvProduction {
		if c.JWTSecret == DevFallbackSecret {
			return fmt.Errorf("validate config: JWT_SECRET must not be the development default in production")
		}
		if c.RefreshHashSecret == DevFallbackSecret {
			return fmt.Errorf("validate config: refresh hash secret resolved to the development default in production")
		}
	}
	if c.AccessTokenTTL <= 0 || c.RefreshTokenTTL <= 0 {
		return fmt.Errorf("validate config: token TTLs must be positive")
	}
	return nil
}

func (c *Config) IsProduction() bool { return c.AppEnv == EnvProduction }

// ResolveRefreshHashSecret implements the fingerprint key fallback chain:
// REFRESH_HASH_SECRET, then the access-token signing secret, then the fixed
// development default. Fallback selections are logged loudly; Validate
// rejects the development default under a production profile.
func ResolveRefreshHashSecret(appEnv, refreshHashSecret, jwtSecret string) string {
	switch {
	case refreshHashSecret != "":
		return refreshHashSecret
	case jwtSecret != "" && jwtSecret != DevFallbackSecret:
		slog.Warn("REFRESH_HASH_SECRET not set, falling back to JWT_SECRET for refresh fingerprints",
			"app_env", appEnv)
		return jwtSecret
	default:
		slog.Warn("no refresh hash secret configured, falling back to the fixed development default",
			"app_env", appEnv)
		return DevFallbackSecret
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

func getEnvInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	return n, nil
}

func getEnvDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	return d, nil
}
