package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	AppName              = "statusboard"
	DefaultCheckInterval = 60
	DefaultTimeout       = 10
	DefaultRetentionDays = 95
	DefaultHistoryDays   = 90
	MaxHistoryDays       = 365
)

type Config struct {
	Server    ServerConfig
	Probe     ProbeConfig
	Uptime    UptimeConfig
	Incidents IncidentsConfig
	Checker   CheckerConfig
	LogLevel  string
}

type ServerConfig struct {
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
	RateLimit       int
	TrustProxy      bool
}

type ProbeConfig struct {
	Timeout   time.Duration
	UserAgent string
}

// UptimeConfig selects the durable counter backend. Backend "none" keeps the
// store in synthetic mode.
type UptimeConfig struct {
	Backend       string
	DatabasePath  string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RetentionDays int
}

// SQLitePath returns UPTIME_DB_PATH, or the default file under the user
// config directory when it is unset.
func (u UptimeConfig) SQLitePath() (string, error) {
	if u.DatabasePath != "" {
		return u.DatabasePath, nil
	}
	path, err := GetDatabasePath()
	if err != nil {
		return "", fmt.Errorf("failed to resolve database path: %w", err)
	}
	return path, nil
}

type IncidentsConfig struct {
	Source string
	Dir    string
	S3     S3Config
}

type S3Config struct {
	Bucket          string
	Prefix          string
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	UsePathStyle    bool
}

type CheckerConfig struct {
	Enabled  bool
	Interval time.Duration
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	interval, err := time.ParseDuration(getEnv("CHECK_INTERVAL", fmt.Sprintf("%ds", DefaultCheckInterval)))
	if err != nil {
		return nil, fmt.Errorf("invalid CHECK_INTERVAL: %w", err)
	}

	timeout, err := time.ParseDuration(getEnv("PROBE_TIMEOUT", fmt.Sprintf("%ds", DefaultTimeout)))
	if err != nil {
		return nil, fmt.Errorf("invalid PROBE_TIMEOUT: %w", err)
	}

	retention, err := strconv.Atoi(getEnv("UPTIME_RETENTION_DAYS", strconv.Itoa(DefaultRetentionDays)))
	if err != nil {
		return nil, fmt.Errorf("invalid UPTIME_RETENTION_DAYS: %w", err)
	}
	if retention < DefaultRetentionDays {
		retention = DefaultRetentionDays
	}

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	rateLimit, err := strconv.Atoi(getEnv("RATE_LIMIT_PER_MINUTE", "120"))
	if err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT_PER_MINUTE: %w", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:            getEnv("SERVER_PORT", "8080"),
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    30 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 15 * time.Second,
			RateLimit:       rateLimit,
			TrustProxy:      getEnvBool("TRUST_PROXY", false),
		},
		Probe: ProbeConfig{
			Timeout:   timeout,
			UserAgent: getEnv("PROBE_USER_AGENT", "statusboard/1.0"),
		},
		Uptime: UptimeConfig{
			Backend:       strings.ToLower(getEnv("UPTIME_BACKEND", "sqlite")),
			DatabasePath:  os.Getenv("UPTIME_DB_PATH"),
			RedisAddr:     getEnv("REDIS_ADDR", ""),
			RedisPassword: getEnv("REDIS_PASSWORD", ""),
			RedisDB:       redisDB,
			RetentionDays: retention,
		},
		Incidents: IncidentsConfig{
			Source: strings.ToLower(getEnv("INCIDENTS_SOURCE", "dir")),
			Dir:    getEnv("INCIDENTS_DIR", "incidents"),
			S3: S3Config{
				Bucket:          getEnv("INCIDENTS_S3_BUCKET", ""),
				Prefix:          getEnv("INCIDENTS_S3_PREFIX", "incidents/"),
				Region:          getEnv("INCIDENTS_S3_REGION", "us-east-1"),
				Endpoint:        getEnv("INCIDENTS_S3_ENDPOINT", ""),
				AccessKeyID:     getEnv("INCIDENTS_S3_ACCESS_KEY_ID", ""),
				SecretAccessKey: getEnv("INCIDENTS_S3_SECRET_ACCESS_KEY", ""),
				UsePathStyle:    getEnvBool("INCIDENTS_S3_USE_PATH_STYLE", false),
			},
		},
		Checker: CheckerConfig{
			Enabled:  getEnvBool("CHECKER_ENABLED", true),
			Interval: interval,
		},
		LogLevel: getEnv("LOG_LEVEL", "info"),
	}

	switch cfg.Uptime.Backend {
	case "sqlite", "redis", "none":
	default:
		return nil, fmt.Errorf("unsupported UPTIME_BACKEND: %s", cfg.Uptime.Backend)
	}

	switch cfg.Incidents.Source {
	case "dir", "s3":
	default:
		return nil, fmt.Errorf("unsupported INCIDENTS_SOURCE: %s", cfg.Incidents.Source)
	}

	return cfg, nil
}

// ServiceURL returns the health URL override for a service id, read from
// SERVICE_<ID>_URL, or fallback when unset.
func ServiceURL(id, fallback string) string {
	key := "SERVICE_" + strings.ToUpper(strings.ReplaceAll(id, "-", "_")) + "_URL"
	return getEnv(key, fallback)
}

func GetConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}

	configDir := filepath.Join(home, ".config", AppName)
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return "", err
	}

	return configDir, nil
}

func GetDatabasePath() (string, error) {
	configDir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, AppName+".db"), nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}

	return parsed
}
