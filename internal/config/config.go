package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// DatabaseConfig holds PostgreSQL database connection settings.
// An empty Host disables the database; document metadata is then kept in memory.
type DatabaseConfig struct {
	Host               string
	Port               string
	User               string
	Password           string
	Name               string
	SSLMode            string
	MaxOpenConns       int
	MaxIdleConns       int
	ConnMaxLifetimeSec int
}

// Enabled reports whether a database host was configured.
func (c DatabaseConfig) Enabled() bool {
	return c.Host != ""
}

// MinIOConfig holds object storage settings for MinIO.
type MinIOConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// HTTPConfig holds listener limits. Write and idle timeouts bound every response,
// so a stalled download cannot keep a connection open forever.
type HTTPConfig struct {
	ReadTimeoutSec  int
	WriteTimeoutSec int
	IdleTimeoutSec  int
	BodyLimitBytes  int
}

// DocumentsConfig describes where stored documents live.
type DocumentsConfig struct {
	// Driver selects the storage backend: "local" (default) or "minio".
	Driver string
	// Root is the document root directory for the local driver.
	Root          string
	MaxUploadSize int64
}

// CORSConfig holds the cross-origin policy applied to the API.
type CORSConfig struct {
	AllowOrigins     []string
	AllowCredentials bool
}

// RealtimeConfig holds the WebSocket notifier listener settings.
type RealtimeConfig struct {
	Port string
}

// AppConfig is the centralized configuration struct for the application.
// It is populated from environment variables. Sensitive values are not hardcoded.
type AppConfig struct {
	Env         string
	AppHost     string
	Port        string
	LogTimezone string
	FrontendDir string
	HTTP        HTTPConfig
	Documents   DocumentsConfig
	CORS        CORSConfig
	Realtime    RealtimeConfig
	Database    DatabaseConfig
	MinIO       MinIOConfig
}

// IsProduction reports whether the prebuilt frontend bundle should be served.
func (c *AppConfig) IsProduction() bool {
	return c.Env == "production"
}

// Location returns the time zone used for log timestamps, falling back to UTC.
func (c *AppConfig) Location() *time.Location {
	if c.LogTimezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(c.LogTimezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Load reads configuration from environment variables.
// A .env file can be auto-loaded by importing: _ "github.com/joho/godotenv/autoload"
// This function does not require a .env file; real environment variables take precedence.
func Load() *AppConfig {
	return &AppConfig{
		Env:         getEnv("APP_ENV", "development"),
		AppHost:     getEnv("APP_HOST", "localhost:5001"),
		Port:        getEnv("PORT", "5001"),
		LogTimezone: getEnv("TZ_LOG", "UTC"),
		FrontendDir: getEnv("FRONTEND_DIR", "../frontend/dist"),
		HTTP: HTTPConfig{
			ReadTimeoutSec:  getEnvInt("HTTP_READ_TIMEOUT_SEC", 30),
			WriteTimeoutSec: getEnvInt("HTTP_WRITE_TIMEOUT_SEC", 120),
			IdleTimeoutSec:  getEnvInt("HTTP_IDLE_TIMEOUT_SEC", 60),
			BodyLimitBytes:  getEnvInt("BODY_LIMIT_BYTES", 50<<20),
		},
		Documents: DocumentsConfig{
			Driver:        getEnv("DOCUMENTS_DRIVER", "local"),
			Root:          getEnv("DOCUMENTS_ROOT", "uploads"),
			MaxUploadSize: getEnvInt64("MAX_UPLOAD_SIZE", 50<<20),
		},
		CORS: CORSConfig{
			AllowOrigins:     getEnvList("CORS_ALLOW_ORIGINS", []string{"http://localhost:5173"}),
			AllowCredentials: getEnvBool("CORS_ALLOW_CREDENTIALS", true),
		},
		Realtime: RealtimeConfig{
			Port: getEnv("REALTIME_PORT", "5002"),
		},
		Database: DatabaseConfig{
			Host:               getEnv("DB_HOST", ""),
			Port:               getEnv("DB_PORT", "5432"),
			User:               getEnv("DB_USER", ""),
			Password:           getEnv("DB_PASSWORD", ""),
			Name:               getEnv("DB_NAME", ""),
			SSLMode:            getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns:       getEnvInt("DB_MAX_OPEN_CONNS", 10),
			MaxIdleConns:       getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetimeSec: getEnvInt("DB_CONN_MAX_LIFETIME_SEC", 300),
		},
		MinIO: MinIOConfig{
			Endpoint:  getEnv("MINIO_ENDPOINT", ""),
			AccessKey: getEnv("MINIO_ACCESS_KEY", ""),
			SecretKey: getEnv("MINIO_SECRET_KEY", ""),
			Bucket:    getEnv("MINIO_BUCKET", ""),
			UseSSL:    getEnvBool("MINIO_USE_SSL", false),
		},
	}
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		i, err := strconv.Atoi(v)
		if err == nil {
			return i
		}
	}
	return def
}

func getEnvInt64(key string, def int64) int64 {
	if v := os.Getenv(key); v != "" {
		i, err := strconv.ParseInt(v, 10, 64)
		if err == nil {
			return i
		}
	}
	return def
}

// getEnvList splits a comma-separated value, dropping empty items.
func getEnvList(key string, def []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	if len(out) == 0 {
		return def
	}
	return out
}
