// Package config loads the service configuration from environment variables.
// Defaults suit a single-node SQLite install; constraints are declared as
// validator tags on the structs and checked once at startup.
package config

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// CORSConfig defines Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS"`
}

// SecurityConfig defines security-related settings such as HSTS.
type SecurityConfig struct {
	EnableHSTS bool          `env:"ENABLE_HSTS"`
	HSTSMaxAge time.Duration `env:"HSTS_MAX_AGE" validate:"gte=0s"`
}

// OTELConfig defines OpenTelemetry observability settings.
type OTELConfig struct {
	Enabled     bool    `env:"OTEL_ENABLED"`
	Endpoint    string  `env:"OTEL_EXPORTER_OTLP_ENDPOINT"` // e.g. "otel:4317"
	Insecure    bool    `env:"OTEL_EXPORTER_OTLP_INSECURE"` // true if no TLS
	ServiceName string  `env:"OTEL_SERVICE_NAME" validate:"required"`
	SampleRatio float64 `env:"OTEL_TRACES_SAMPLER_ARG" validate:"gte=0,lte=1"`
}

// Storage backends selectable with DB_DRIVER.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverJSON     = "json"
)

// WebhookConfig defines outbound event delivery.
type WebhookConfig struct {
	BaseURL    string        `env:"WEBHOOK_BASE_URL" validate:"omitempty,http_url"` // empty disables delivery
	Timeout    time.Duration `env:"WEBHOOK_TIMEOUT" validate:"gt=0s"`               // per attempt
	MaxRetries int           `env:"WEBHOOK_MAX_RETRIES" validate:"gte=0"`           // after the first attempt
}

// AnalyticsConfig locates the engine configuration and schedules the watchdog.
// Schedules are cron specs; "off" and friends normalize to "" (disabled).
type AnalyticsConfig struct {
	ConfigPath        string `env:"ANALYTICS_CONFIG_PATH"` // YAML; empty uses defaults
	Timezone          string `env:"ANALYTICS_TIMEZONE"`    // overrides the file's timezone
	SLAWatchSchedule  string `env:"SLA_WATCH_SCHEDULE"`
	IdemPurgeSchedule string `env:"IDEMPOTENCY_PURGE_SCHEDULE"`
}

// Config holds all configuration values for the application. The env tag
// names the variable a field is read from and is what validation errors
// report.
type Config struct {
	// Server
	Port              string        `env:"PORT" validate:"required"`
	ReadTimeout       time.Duration `env:"READ_TIMEOUT" validate:"gt=0s"`
	ReadHeaderTimeout time.Duration `env:"READ_HEADER_TIMEOUT" validate:"gt=0s"`
	WriteTimeout      time.Duration `env:"WRITE_TIMEOUT" validate:"gt=0s"`
	IdleTimeout       time.Duration `env:"IDLE_TIMEOUT" validate:"gt=0s"`
	MaxHeaderBytes    int           `env:"MAX_HEADER_BYTES" validate:"gt=0"`
	GinMode           string        `env:"GIN_MODE"` // debug|release|test

	// Logging / Docs
	LogLevel       string `env:"LOG_LEVEL" validate:"oneof=debug info warn error fatal panic"`
	LogPretty      bool   `env:"LOG_PRETTY"`
	SwaggerEnabled bool   `env:"SWAGGER_ENABLED"`
	APIBasePath    string `env:"API_BASE_PATH"`
	GzipEnabled    bool   `env:"GZIP_ENABLED"`

	// Storage
	DBDriver    string `env:"DB_DRIVER" validate:"oneof=sqlite postgres json"`
	DBPath      string `env:"DB_PATH" validate:"required_if=DBDriver sqlite"`
	DatabaseURL string `env:"DATABASE_URL" validate:"required_if=DBDriver postgres"`
	DataDir     string `env:"DATA_DIR" validate:"required_if=DBDriver json"`

	// X-Admin-Key value; empty leaves admin routes open.
	AdminAPIKey string `env:"ADMIN_API_KEY"`

	MaxFeedbackRunes int `env:"MAX_FEEDBACK_RUNES" validate:"gte=1"`

	Analytics AnalyticsConfig
	Webhook   WebhookConfig

	// Rate limiting
	RateRPS   float64 `env:"RATE_RPS" validate:"gte=0"`
	RateBurst int     `env:"RATE_BURST" validate:"gte=1"`

	// Web protection
	CORS     CORSConfig
	Security SecurityConfig

	// How long a stored Idempotency-Key answers replays.
	IdempotencyTTL time.Duration `env:"IDEMPOTENCY_TTL" validate:"gt=0s"`

	OTEL OTELConfig
}

// MustLoad loads the configuration and panics if validation fails.
func MustLoad() Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// Load reads configuration from environment variables, applies defaults,
// normalizes values and validates the result. Every violation is reported,
// joined into one error.
func Load() (Config, error) {
	cfg := Config{
		Port:              strings.TrimSpace(getenv("PORT", "8080")),
		ReadTimeout:       getdur("READ_TIMEOUT", 15*time.Second),
		ReadHeaderTimeout: getdur("READ_HEADER_TIMEOUT", 10*time.Second),
		WriteTimeout:      getdur("WRITE_TIMEOUT", 20*time.Second),
		IdleTimeout:       getdur("IDLE_TIMEOUT", 60*time.Second),
		MaxHeaderBytes:    getint("MAX_HEADER_BYTES", 1<<20),
		GinMode:           normalizeGinMode(getenv("GIN_MODE", "release")),

		LogLevel:       normalizeLogLevel(getenv("LOG_LEVEL", "info")),
		LogPretty:      getbool("LOG_PRETTY", false),
		SwaggerEnabled: getbool("SWAGGER_ENABLED", false),
		APIBasePath:    normalizeBasePath(getenv("API_BASE_PATH", "/api/v1")),
		GzipEnabled:    getbool("GZIP_ENABLED", true),

		DBDriver:    strings.ToLower(strings.TrimSpace(getenv("DB_DRIVER", DriverSQLite))),
		DBPath:      strings.TrimSpace(getenv("DB_PATH", "feedback.db")),
		DatabaseURL: strings.TrimSpace(os.Getenv("DATABASE_URL")),
		DataDir:     strings.TrimSpace(getenv("DATA_DIR", "data")),

		AdminAPIKey: os.Getenv("ADMIN_API_KEY"),

		MaxFeedbackRunes: getint("MAX_FEEDBACK_RUNES", 5000),

		Analytics: AnalyticsConfig{
			ConfigPath:        getenv("ANALYTICS_CONFIG_PATH", ""),
			Timezone:          getenv("ANALYTICS_TIMEZONE", ""),
			SLAWatchSchedule:  scheduleOrOff(getenv("SLA_WATCH_SCHEDULE", "@every 15m")),
			IdemPurgeSchedule: scheduleOrOff(getenv("IDEMPOTENCY_PURGE_SCHEDULE", "@hourly")),
		},

		Webhook: WebhookConfig{
			BaseURL:    strings.TrimSpace(os.Getenv("WEBHOOK_BASE_URL")),
			Timeout:    getdur("WEBHOOK_TIMEOUT", 15*time.Second),
			MaxRetries: getint("WEBHOOK_MAX_RETRIES", 3),
		},

		RateRPS:   getfloat("RATE_RPS", 5.0),
		RateBurst: getint("RATE_BURST", 10),

		CORS: CORSConfig{
			AllowedOrigins: splitCSV(getenv("CORS_ALLOWED_ORIGINS", "")),
		},
		Security: SecurityConfig{
			EnableHSTS: getbool("ENABLE_HSTS", false),
			HSTSMaxAge: getdur("HSTS_MAX_AGE", 180*24*time.Hour),
		},

		IdempotencyTTL: getdur("IDEMPOTENCY_TTL", 24*time.Hour),

		OTEL: OTELConfig{
			Enabled:     getbool("OTEL_ENABLED", false),
			Endpoint:    getenv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			Insecure:    getbool("OTEL_EXPORTER_OTLP_INSECURE", true),
			ServiceName: getenv("OTEL_SERVICE_NAME", "citizen-feedback"),
			SampleRatio: getfloat("OTEL_TRACES_SAMPLER_ARG", 1.0),
		},
	}
	return cfg, cfg.Validate()
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		if name := f.Tag.Get("env"); name != "" {
			return name
		}
		return f.Name
	})
	return v
}

// Validate checks field constraints and reports violations by variable name,
// e.g. "WEBHOOK_TIMEOUT must be > 0s".
func (c Config) Validate() error {
	err := validate.Struct(c)
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]error, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, errors.New(describe(fe)))
	}
	return errors.Join(msgs...)
}

func describe(fe validator.FieldError) string {
	name := fe.Field()
	switch fe.Tag() {
	case "required", "required_if":
		if dep := strings.Fields(fe.Param()); len(dep) == 2 {
			return fmt.Sprintf("%s must not be empty when DB_DRIVER=%s", name, dep[1])
		}
		return name + " must not be empty"
	case "gt":
		return fmt.Sprintf("%s must be > %s", name, fe.Param())
	case "gte":
		return fmt.Sprintf("%s must be >= %s", name, fe.Param())
	case "lte":
		return fmt.Sprintf("%s must be <= %s", name, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", name, strings.ReplaceAll(fe.Param(), " ", ", "))
	case "http_url":
		return name + " must be an http(s) URL"
	default:
		return fmt.Sprintf("%s is invalid (%s)", name, fe.Tag())
	}
}

// ---- helpers ----

func getenv(k, def string) string {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		return v
	}
	return def
}

func getfloat(k string, def float64) float64 {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getint(k string, def int) int {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getbool(k string, def bool) bool {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "true", "yes", "y", "on":
			return true
		case "0", "false", "no", "n", "off":
			return false
		}
	}
	return def
}

func getdur(k string, def time.Duration) time.Duration {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		t := strings.TrimSpace(p)
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}

func normalizeLogLevel(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "warning" {
		return "warn"
	}
	return s
}

// normalizeGinMode maps anything unknown to release.
func normalizeGinMode(s string) string {
	switch s = strings.ToLower(strings.TrimSpace(s)); s {
	case "debug", "release", "test":
		return s
	}
	return "release"
}

// scheduleOrOff maps "off"/"none"/"disabled" to the empty (disabled) schedule.
func scheduleOrOff(s string) string {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "off", "none", "disabled", "false", "0":
		return ""
	}
	return strings.TrimSpace(s)
}

// normalizeBasePath ensures leading '/' and strips trailing '/' (except root).
func normalizeBasePath(p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return "/"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	if len(p) > 1 && strings.HasSuffix(p, "/") {
		p = strings.TrimRight(p, "/")
	}
	return p
}
