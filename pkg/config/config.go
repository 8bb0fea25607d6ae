package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DevJWTSecret is used when JWT_SECRET is unset. Development only.
const DevJWTSecret = "dev-insecure-secret-change"

type Config struct {
	// Server
	ServerAddr   string        `yaml:"server_addr"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	LogLevel     string        `yaml:"log_level"`

	// Record store
	DBDSN            string `yaml:"db_dsn"`
	RemoteServiceDSN string `yaml:"remote_service_dsn"`
	DBAutoMigrate    bool   `yaml:"db_auto_migrate"`

	// Auth
	JWTSecret         string `yaml:"jwt_secret"`
	AdminUsername     string `yaml:"admin_username"`
	AdminPasswordHash string `yaml:"admin_password_hash"`

	// Local mirror and events
	MirrorDriver  string `yaml:"mirror_driver"`
	MirrorPath    string `yaml:"mirror_path"`
	RedisAddr     string `yaml:"redis_addr"`
	RedisPassword string `yaml:"redis_password"`
	RedisDB       int    `yaml:"redis_db"`
	EventsDriver  string `yaml:"events_driver"`
	EventsChannel string `yaml:"events_channel"`

	// Uploads
	UploadBase     string `yaml:"upload_base"`
	ObjectStore    string `yaml:"object_store"`
	MinioEndpoint  string `yaml:"minio_endpoint"`
	MinioAccessKey string `yaml:"minio_access_key"`
	MinioSecretKey string `yaml:"minio_secret_key"`
	MinioBucket    string `yaml:"minio_bucket"`
	MinioUseSSL    bool   `yaml:"minio_use_ssl"`
	OCREnabled     bool   `yaml:"ocr_enabled"`

	// Public forms
	ContactEmail   string        `yaml:"contact_email"`
	RateLimitRPS   float64       `yaml:"rate_limit_rps"`
	RateLimitBurst int           `yaml:"rate_limit_burst"`
	VisitWindow    time.Duration `yaml:"visit_window"`
}

func defaults() *Config {
	return &Config{
		ServerAddr:     ":8081",
		ReadTimeout:    15 * time.Second,
		WriteTimeout:   30 * time.Second,
		LogLevel:       "info",
		DBAutoMigrate:  true,
		AdminUsername:  "admin",
		MirrorDriver:   "sqlite",
		MirrorPath:     "data/mirror.db",
		RedisAddr:      "localhost:6379",
		EventsDriver:   "memory",
		EventsChannel:  "desaweb:events",
		UploadBase:     "uploads",
		ObjectStore:    "local",
		MinioBucket:    "uploads",
		ContactEmail:   "info@karangampel.desa.id",
		RateLimitRPS:   1,
		RateLimitBurst: 5,
		VisitWindow:    30 * time.Minute,
	}
}

// Load builds the configuration from defaults, then the YAML file named by
// CONFIG_FILE if set, then environment variables.
func Load() (*Config, error) {
	cfg := defaults()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}
	cfg.applyEnv()
	if cfg.JWTSecret == "" {
		cfg.JWTSecret = DevJWTSecret
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(b, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.ServerAddr = getEnv("SERVER_ADDR", c.ServerAddr)
	c.ReadTimeout = getDuration("READ_TIMEOUT", c.ReadTimeout)
	c.WriteTimeout = getDuration("WRITE_TIMEOUT", c.WriteTimeout)
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)

	c.DBDSN = getEnv("DB_DSN", c.DBDSN)
	c.RemoteServiceDSN = getEnv("REMOTE_SERVICE_DSN", c.RemoteServiceDSN)
	c.DBAutoMigrate = getBoolEnv("DB_AUTO_MIGRATE", c.DBAutoMigrate)

	c.JWTSecret = getEnv("JWT_SECRET", c.JWTSecret)
	c.AdminUsername = getEnv("ADMIN_USERNAME", c.AdminUsername)
	c.AdminPasswordHash = getEnv("ADMIN_PASSWORD_HASH", c.AdminPasswordHash)

	c.MirrorDriver = strings.ToLower(getEnv("MIRROR_DRIVER", c.MirrorDriver))
	c.MirrorPath = getEnv("MIRROR_PATH", c.MirrorPath)
	c.RedisAddr = getEnv("REDIS_ADDR", c.RedisAddr)
	c.RedisPassword = getEnv("REDIS_PASSWORD", c.RedisPassword)
	c.RedisDB = getIntEnv("REDIS_DB", c.RedisDB)
	c.EventsDriver = strings.ToLower(getEnv("EVENTS_DRIVER", c.EventsDriver))
	c.EventsChannel = getEnv("EVENTS_CHANNEL", c.EventsChannel)

	c.UploadBase = getEnv("UPLOAD_BASE", c.UploadBase)
	c.ObjectStore = strings.ToLower(getEnv("OBJECT_STORE", c.ObjectStore))
	c.MinioEndpoint = getEnv("MINIO_ENDPOINT", c.MinioEndpoint)
	c.MinioAccessKey = getEnv("MINIO_ACCESS_KEY", c.MinioAccessKey)
	c.MinioSecretKey = getEnv("MINIO_SECRET_KEY", c.MinioSecretKey)
	c.MinioBucket = getEnv("MINIO_BUCKET", c.MinioBucket)
	c.MinioUseSSL = getBoolEnv("MINIO_USE_SSL", c.MinioUseSSL)
	c.OCREnabled = getBoolEnv("OCR_ENABLED", c.OCREnabled)

	c.ContactEmail = getEnv("CONTACT_EMAIL", c.ContactEmail)
	c.RateLimitRPS = getFloatEnv("RATE_LIMIT_RPS", c.RateLimitRPS)
	c.RateLimitBurst = getIntEnv("RATE_LIMIT_BURST", c.RateLimitBurst)
	c.VisitWindow = getDuration("VISIT_WINDOW", c.VisitWindow)
}

func (c *Config) Validate() error {
	switch c.MirrorDriver {
	case "memory", "sqlite", "redis":
	default:
		return fmt.Errorf("MIRROR_DRIVER must be memory, sqlite or redis, got %q", c.MirrorDriver)
	}
	switch c.EventsDriver {
	case "memory", "redis":
	default:
		return fmt.Errorf("EVENTS_DRIVER must be memory or redis, got %q", c.EventsDriver)
	}
	switch c.ObjectStore {
	case "local", "none":
	case "minio":
		if c.MinioEndpoint == "" {
			return fmt.Errorf("OBJECT_STORE=minio needs MINIO_ENDPOINT")
		}
	default:
		return fmt.Errorf("OBJECT_STORE must be local, minio or none, got %q", c.ObjectStore)
	}
	if c.MirrorDriver == "sqlite" && c.MirrorPath == "" {
		return fmt.Errorf("MIRROR_DRIVER=sqlite needs MIRROR_PATH")
	}
	return nil
}

// HasRecordStore reports whether a record store DSN is configured.
func (c *Config) HasRecordStore() bool { return c.DBDSN != "" }

// DeletionDSN is the DSN of the privileged deletion client.
func (c *Config) DeletionDSN() string {
	if c.RemoteServiceDSN != "" {
		return c.RemoteServiceDSN
	}
	return c.DBDSN
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

// getBoolEnv accepts the forms DB_AUTO_MIGRATE always accepted: false/0/no
// switch off, true/1/yes switch on.
func getBoolEnv(key string, defaultValue bool) bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(key))) {
	case "false", "0", "no":
		return false
	case "true", "1", "yes":
		return true
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
