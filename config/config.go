package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration loaded from environment.
type Config struct {
	Server   ServerConfig
	Session  SessionConfig
	Store    StoreConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Embed    EmbedConfig
	Snapshot SnapshotConfig
	AWS      AWSConfig
	MinIO    MinIOConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port               string
	BaseURL            string // public origin used in embed snippets and the widget script
	ReadTimeout        int
	WriteTimeout       int
	CORSAllowedOrigins string // comma-separated, or "*" for all
	Theme              string // light, dark or warm
	RateLimitAuth      string // ulule limiter format, e.g. "20-M"; empty disables
	TrustedProxies     []string // CIDRs or IPs allowed to set X-Forwarded-For; empty trusts none
}

// SessionConfig holds session token settings.
type SessionConfig struct {
	Secret       string
	TTLHours     int
	CookieSecure bool
}

// StoreConfig selects the document store backend.
type StoreConfig struct {
	Driver   string // file or postgres
	DataPath string // JSON document path for the file driver
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	URL      string // if set, used as-is
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// RedisConfig holds Redis connection settings. Empty Addr disables Redis-backed features.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// EmbedConfig holds oEmbed lookup settings.
type EmbedConfig struct {
	TimeoutSec  int
	CacheTTLMin int
}

// SnapshotConfig selects where document snapshots are uploaded. Empty Backend disables snapshots.
type SnapshotConfig struct {
	Backend string // s3 or minio
	Prefix  string
}

// AWSConfig holds AWS credentials and the snapshot bucket.
type AWSConfig struct {
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	SnapshotBucket  string
	S3Endpoint      string // optional, for S3-compatible services
}

// MinIOConfig holds MinIO connection settings for snapshots.
type MinIOConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
	Region    string
}

// DSN returns the PostgreSQL connection string.
// If DatabaseConfig.URL is set (DATABASE_URL env), it is used as-is; otherwise built from components.
func (c DatabaseConfig) DSN() string {
	if c.URL != "" {
		return c.URL
	}
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.DBName, c.SSLMode,
	)
}

// TTL returns the session lifetime.
func (c SessionConfig) TTL() time.Duration {
	return time.Duration(c.TTLHours) * time.Hour
}

// Timeout returns the per-lookup deadline for provider calls.
func (c EmbedConfig) Timeout() time.Duration {
	if c.TimeoutSec <= 0 {
		return 5 * time.Second
	}
	return time.Duration(c.TimeoutSec) * time.Second
}

// CacheTTL returns how long successful resolutions are memoized.
func (c EmbedConfig) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLMin) * time.Minute
}

// Load reads configuration from environment, with optional .env file.
func Load() (*Config, error) {
	_ = godotenv.Load()      // .env
	_ = godotenv.Load("env") // env (no leading dot)

	port := getEnv("PORT", "3001")
	cfg := &Config{
		Server: ServerConfig{
			Port:               port,
			BaseURL:            strings.TrimRight(getEnv("APP_BASE_URL", "http://localhost:"+port), "/"),
			ReadTimeout:        getEnvInt("READ_TIMEOUT_SEC", 30),
			WriteTimeout:       getEnvInt("WRITE_TIMEOUT_SEC", 30),
			CORSAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "*"),
			Theme:              getEnv("THEME", "light"),
			RateLimitAuth:      getEnv("RATE_LIMIT_AUTH", "20-M"),
			TrustedProxies:     SplitTrim(getEnv("TRUSTED_PROXIES", ""), ","),
		},
		Session: SessionConfig{
			Secret:       getEnv("JWT_SECRET", "dev-only-secret-change-me"),
			TTLHours:     getEnvInt("SESSION_TTL_HOURS", 30*24),
			CookieSecure: getEnvBool("COOKIE_SECURE", false),
		},
		Store: StoreConfig{
			Driver:   strings.ToLower(getEnv("STORE_DRIVER", "file")),
			DataPath: getEnv("DATA_PATH", "data/db.json"),
		},
		Database: DatabaseConfig{
			URL:      getEnv("DATABASE_URL", ""),
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "feedr"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		Embed: EmbedConfig{
			TimeoutSec:  getEnvInt("EMBED_TIMEOUT_SEC", 5),
			CacheTTLMin: getEnvInt("EMBED_CACHE_TTL_MIN", 24*60),
		},
		Snapshot: SnapshotConfig{
			Backend: strings.ToLower(getEnv("SNAPSHOT_BACKEND", "")),
			Prefix:  getEnv("SNAPSHOT_PREFIX", "snapshots"),
		},
		AWS: AWSConfig{
			Region:          getEnv("AWS_REGION", "eu-west-1"),
			AccessKeyID:     getEnv("AWS_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("AWS_SECRET_ACCESS_KEY", ""),
			SnapshotBucket:  getEnv("AWS_S3_SNAPSHOT_BUCKET", "feedr-snapshots"),
			S3Endpoint:      getEnv("AWS_S3_ENDPOINT", ""),
		},
		MinIO: MinIOConfig{
			Endpoint:  getEnv("MINIO_ENDPOINT", "localhost:9000"),
			AccessKey: getEnv("MINIO_ACCESS_KEY", ""),
			SecretKey: getEnv("MINIO_SECRET_KEY", ""),
			Bucket:    getEnv("MINIO_BUCKET", "feedr-snapshots"),
			UseSSL:    getEnvBool("MINIO_USE_SSL", false),
			Region:    getEnv("MINIO_REGION", "us-east-1"),
		},
	}

	switch cfg.Store.Driver {
	case "file", "postgres":
	default:
		return nil, fmt.Errorf("unknown STORE_DRIVER %q", cfg.Store.Driver)
	}
	switch cfg.Snapshot.Backend {
	case "", "s3", "minio":
	default:
		return nil, fmt.Errorf("unknown SNAPSHOT_BACKEND %q", cfg.Snapshot.Backend)
	}
	if cfg.Session.TTLHours <= 0 {
		cfg.Session.TTLHours = 30 * 24
	}
	return cfg, nil
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
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

// SplitTrim splits s on sep and drops empty, whitespace-only parts.
func SplitTrim(s, sep string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, v := range strings.Split(s, sep) {
		if t := strings.TrimSpace(v); t != "" {
			out = append(out, t)
		}
	}
	return out
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
