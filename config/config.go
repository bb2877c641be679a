package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Storage drivers understood by storage.Open.
const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverRedis    = "redis"
)

// Badge scoping modes.
const (
	ScopePerUser = "user"
	ScopeGlobal  = "global"
)

// BadgeScopeFromEnv reads BADGE_SCOPE, defaulting to per-user scopes.
func BadgeScopeFromEnv() string {
	return strings.ToLower(getEnv("BADGE_SCOPE", ScopePerUser))
}

type Config struct {
	Port           string
	Env            string
	AllowedOrigins []string

	// Storage
	StorageDriver     string
	DatabaseURL       string
	RedisAddr         string
	StorageQuotaBytes int

	// Badges
	Catalog              string // "campus", "mirai" or a path to a YAML file
	BadgeScope           string
	BadgeReconcile       bool
	ResetOnCatalogChange bool

	// Auth
	InitialPoints int
	AdminToken    string

	// Exports (R2 / S3)
	ExportInterval      time.Duration
	ExportDir           string // local fallback when R2 is not configured
	CloudflareAccountID string
	R2AccessKeyID       string
	R2AccessKeySecret   string
	R2BucketName        string
	CDNBaseURL          string
}

// R2Enabled reports whether enough R2 settings are present to upload exports.
func (c *Config) R2Enabled() bool {
	return c.CloudflareAccountID != "" && c.R2AccessKeyID != "" &&
		c.R2AccessKeySecret != "" && c.R2BucketName != ""
}

// LoadDotEnv reads .env into the process environment if the file exists.
// It returns false when no file was found.
func LoadDotEnv(files ...string) bool {
	return godotenv.Load(files...) == nil
}

// Load reads the configuration from the environment.
func Load() (*Config, error) {
	cfg := &Config{
		Port:                 getEnv("PORT", "5200"),
		Env:                  getEnv("APP_ENV", "development"),
		AllowedOrigins:       splitList(getEnv("ALLOWED_ORIGINS", "http://localhost:3000")),
		StorageDriver:        strings.ToLower(getEnv("STORAGE_DRIVER", DriverMemory)),
		DatabaseURL:          os.Getenv("DATABASE_URL"),
		RedisAddr:            getEnv("REDIS_ADDR", "localhost:6379"),
		Catalog:              getEnv("CATALOG", "campus"),
		BadgeScope:           BadgeScopeFromEnv(),
		AdminToken:           os.Getenv("ADMIN_TOKEN"),
		CloudflareAccountID:  os.Getenv("CLOUDFLARE_ACCOUNT_ID"),
		R2AccessKeyID:        os.Getenv("R2_ACCESS_KEY_ID"),
		R2AccessKeySecret:    os.Getenv("R2_ACCESS_KEY_SECRET"),
		R2BucketName:         os.Getenv("R2_BUCKET_NAME"),
		CDNBaseURL:           os.Getenv("CDN_BASE_URL"),
		ExportDir:            os.Getenv("EXPORT_DIR"),
	}

	var err error
	if cfg.StorageQuotaBytes, err = getInt("STORAGE_QUOTA_BYTES", 0); err != nil {
		return nil, err
	}
	if cfg.InitialPoints, err = getInt("INITIAL_POINTS", 125); err != nil {
		return nil, err
	}
	if cfg.BadgeReconcile, err = getBool("BADGE_RECONCILE", false); err != nil {
		return nil, err
	}
	if cfg.ResetOnCatalogChange, err = getBool("RESET_ON_CATALOG_CHANGE", false); err != nil {
		return nil, err
	}
	if cfg.ExportInterval, err = getDuration("EXPORT_INTERVAL", time.Hour); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the values that have a closed set of options.
func (c *Config) Validate() error {
	switch c.StorageDriver {
	case DriverMemory, DriverSQLite, DriverRedis:
	case DriverPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required for the postgres storage driver")
		}
	default:
		return fmt.Errorf("unknown STORAGE_DRIVER %q", c.StorageDriver)
	}

	switch c.BadgeScope {
	case ScopePerUser, ScopeGlobal:
	default:
		return fmt.Errorf("unknown BADGE_SCOPE %q: must be %q or %q", c.BadgeScope, ScopePerUser, ScopeGlobal)
	}

	if c.InitialPoints < 0 {
		return fmt.Errorf("INITIAL_POINTS must not be negative")
	}
	if c.StorageQuotaBytes < 0 {
		return fmt.Errorf("STORAGE_QUOTA_BYTES must not be negative")
	}
	if c.ExportInterval <= 0 {
		return fmt.Errorf("EXPORT_INTERVAL must be positive")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	return n, nil
}

func getBool(key string, fallback bool) (bool, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	return b, nil
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	return d, nil
}

// splitList splits a comma-separated value and trims every element.
func splitList(v string) []string {
	var out []string
	for _, item := range strings.Split(v, ",") {
		item = strings.TrimSpace(item)
		if item != "" {
			out = append(out, item)
		}
	}
	return out
}
