package config

import (
	"errors"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

type Config struct {
	HTTPPort    string
	DatabaseDSN string
	JWTSecret   string
	CORSOrigins string

	// Apps Script web app fronting the spreadsheet
	ScriptURL      string
	FMSSheet       string
	LoginSheet     string
	ComplaintSheet string
	FeedbackSheet  string
	OrdersSheet    string
	LayoutFile     string

	BackendURL string

	OracleUser     string
	OraclePassword string
	OracleConnStr  string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	MinIOEndpoint  string
	MinIOAccessKey string
	MinIOSecretKey string
	MinIOBucket    string
	MinIOUseSSL    bool

	RefreshInterval time.Duration

	LogLevel  string
	LogFormat string
}

const (
	defaultDSN         = "host=localhost user=postgres password=postgres dbname=o2d port=5432 sslmode=disable"
	defaultCORSOrigins = "http://localhost:3000"
)

var (
	ErrMissingJWTSecret = errors.New("JWT_SECRET is not set")
	ErrShortJWTSecret   = errors.New("JWT_SECRET must be at least 32 characters")
	ErrMissingScriptURL = errors.New("SCRIPT_URL is not set")
)

// Load reads the environment. A .env file in the working directory is
// applied first; variables already set in the process win.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		HTTPPort:    getEnv("HTTP_PORT", "8080"),
		DatabaseDSN: getEnv("DATABASE_DSN", defaultDSN),
		JWTSecret:   getEnv("JWT_SECRET", ""),
		CORSOrigins: getEnv("CORS_ALLOWED_ORIGINS", defaultCORSOrigins),

		ScriptURL:      getEnv("SCRIPT_URL", ""),
		FMSSheet:       getEnv("FMS_SHEET", "FMS"),
		LoginSheet:     getEnv("LOGIN_SHEET", "Login"),
		ComplaintSheet: getEnv("COMPLAINT_SHEET", "Complaint-Form"),
		FeedbackSheet:  getEnv("FEEDBACK_SHEET", "Form Responses 1"),
		OrdersSheet:    getEnv("ORDERS_SHEET", "ImporterSheet"),
		LayoutFile:     getEnv("LAYOUT_FILE", ""),

		BackendURL: getEnv("BACKEND_URL", ""),

		OracleUser:     getEnv("ORACLE_USER", ""),
		OraclePassword: getEnv("ORACLE_PASSWORD", ""),
		OracleConnStr:  getEnv("ORACLE_CONNECTION_STRING", ""),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		MinIOEndpoint:  getEnv("MINIO_ENDPOINT", ""),
		MinIOAccessKey: getEnv("MINIO_ACCESS_KEY", ""),
		MinIOSecretKey: getEnv("MINIO_SECRET_KEY", ""),
		MinIOBucket:    getEnv("MINIO_BUCKET", "o2d-reports"),
		MinIOUseSSL:    getEnvBool("MINIO_USE_SSL", false),

		RefreshInterval: getEnvDuration("REFRESH_INTERVAL", 5*time.Minute),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "console"),
	}
}

// ValidateServer checks what the HTTP server cannot start without and
// warns about defaults that are unsafe in production.
func (c *Config) ValidateServer(log *zap.Logger) error {
	if c.JWTSecret == "" {
		return ErrMissingJWTSecret
	}
	if len(c.JWTSecret) < 32 {
		return ErrShortJWTSecret
	}
	if c.ScriptURL == "" {
		return ErrMissingScriptURL
	}
	if c.DatabaseDSN == defaultDSN {
		log.Warn("DATABASE_DSN uses the default local DSN, set your own for production")
	}
	if c.CORSOrigins == defaultCORSOrigins {
		log.Warn("CORS_ALLOWED_ORIGINS uses the default, set your own domain for production")
	}
	if c.BackendURL == "" {
		log.Warn("BACKEND_URL not set, invoice and payment endpoints are disabled")
	}
	if !c.OracleEnabled() {
		log.Warn("Oracle connection not configured, gate pass endpoint is disabled")
	}
	return nil
}

func (c *Config) OracleEnabled() bool {
	return c.OracleUser != "" && c.OracleConnStr != ""
}

func (c *Config) RedisEnabled() bool {
	return c.RedisAddr != ""
}

func (c *Config) MinIOEnabled() bool {
	return c.MinIOEndpoint != "" && c.MinIOAccessKey != "" && c.MinIOSecretKey != ""
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			return d
		}
	}
	return def
}
