package config

import (
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/templui/amenitymap/internal/model"
)

type Config struct {
	// Application
	AppName string
	AppEnv  string
	AppURL  string
	Port    string

	// Database (optional driver switch via ENV, default: sqlite)
	DBDriver     string
	DBConnection string

	// Observability (optional)
	SentryDSN string

	// Storage: "s3" (Cloudflare R2, MinIO, AWS S3, etc.) or "memory" for local development
	StorageDriver      string
	S3Region           string
	S3Bucket           string
	S3AccessKey        string
	S3SecretKey        string
	S3Endpoint         string // Optional: for S3-compatible services (R2, MinIO, ...)
	S3PublicURL        string // Public base the images are served from (CDN / r2.dev)
	S3AutoCreateBucket bool

	// Images
	ImagePresignExpiry time.Duration
	ImageMaxPerAmenity int
	ImageOrphanMaxAge  time.Duration

	// Region amenities may be placed in
	RegionMinLat float64
	RegionMaxLat float64
	RegionMinLng float64
	RegionMaxLng float64

	// Rate limiting for write endpoints
	RateLimitPerMinute int
	RateLimitBurst     int
}

func Load() *Config {
	// Load .env file if it exists
	err := godotenv.Load()
	if err != nil {
		slog.Info("no .env file found, using environment variables")
	}

	cfg := &Config{
		// Application
		AppName: envString("APP_NAME", "Amenity Map"),
		AppEnv:  envRequired("APP_ENV"), // Required: 'development' or 'production'
		AppURL:  envString("APP_URL", "http://localhost:8090"),
		Port:    envString("PORT", "8090"),

		// Database
		DBDriver:     envString("DB_DRIVER", "sqlite"),
		DBConnection: envString("DB_CONNECTION", "./data/amenities.db?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"),

		// Observability
		SentryDSN: envString("SENTRY_DSN", ""),

		// Storage
		StorageDriver:      envString("STORAGE_DRIVER", "s3"),
		S3Region:           envString("S3_REGION", "auto"), // R2 uses "auto"
		S3Bucket:           envString("S3_BUCKET", ""),
		S3AccessKey:        envString("S3_ACCESS_KEY", ""),
		S3SecretKey:        envString("S3_SECRET_KEY", ""),
		S3Endpoint:         envString("S3_ENDPOINT", ""),
		S3PublicURL:        envString("S3_PUBLIC_URL", ""),
		S3AutoCreateBucket: envBool("S3_AUTO_CREATE_BUCKET", envString("APP_ENV", "development") == "development"),

		// Images
		ImagePresignExpiry: envDuration("IMAGE_PRESIGN_EXPIRY", 5*time.Minute),
		ImageMaxPerAmenity: envInt("IMAGE_MAX_PER_AMENITY", 3),
		ImageOrphanMaxAge:  envDuration("IMAGE_ORPHAN_MAX_AGE", 24*time.Hour),

		// Region (default: Singapore)
		RegionMinLat: envFloat("REGION_MIN_LAT", 1.15),
		RegionMaxLat: envFloat("REGION_MAX_LAT", 1.5),
		RegionMinLng: envFloat("REGION_MIN_LNG", 103.6),
		RegionMaxLng: envFloat("REGION_MAX_LNG", 104.1),

		// Rate limiting
		RateLimitPerMinute: envInt("RATE_LIMIT_PER_MINUTE", 30),
		RateLimitBurst:     envInt("RATE_LIMIT_BURST", 10),
	}

	if cfg.StorageDriver == "s3" {
		// Required for presigned uploads
		for key, v := range map[string]string{
			"S3_BUCKET":     cfg.S3Bucket,
			"S3_ACCESS_KEY": cfg.S3AccessKey,
			"S3_SECRET_KEY": cfg.S3SecretKey,
			"S3_PUBLIC_URL": cfg.S3PublicURL,
		} {
			if v == "" {
				envRequired(key)
			}
		}
	}

	if cfg.IsProduction() {
		validateProduction(cfg)
	}

	return cfg
}

// validateProduction ensures production deployments do not run on
// development defaults.
func validateProduction(cfg *Config) {
	if cfg.DBDriver == "sqlite" {
		slog.Warn("production deployment is using sqlite",
			"hint", "set DB_DRIVER=pgx and DB_CONNECTION to a PostgreSQL URL")
	}
	if cfg.StorageDriver != "s3" {
		slog.Error("production deployment requires STORAGE_DRIVER=s3", "storage_driver", cfg.StorageDriver)
		os.Exit(1)
	}
	if cfg.S3Endpoint == "" && cfg.S3Region == "auto" {
		slog.Error("production deployment requires S3_ENDPOINT or a concrete S3_REGION")
		os.Exit(1)
	}
}

func envString(key, def string) string {
	value := os.Getenv(key)
	if value == "" {
		value = def
	}
	return value
}

func envBool(key string, def bool) bool {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		slog.Warn("config invalid bool, using default", "key", key, "value", v, "default", def)
		return def
	}
	return b
}

func envInt(key string, def int) int {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		slog.Warn("config invalid int, using default", "key", key, "value", v, "default", def)
		return def
	}
	return i
}

func envFloat(key string, def float64) float64 {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		slog.Warn("config invalid float, using default", "key", key, "value", v, "default", def)
		return def
	}
	return f
}

func envDuration(key string, def time.Duration) time.Duration {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		slog.Warn("config invalid duration, using default", "key", key, "value", v, "default", def)
		return def
	}
	return d
}

func envRequired(key string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	slog.Error("config required env var missing", "key", key)
	os.Exit(1)
	return ""
}

func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// Region returns the configured bounding box amenities must fall inside.
func (c *Config) Region() model.Bounds {
	return model.Bounds{
		MinLat: c.RegionMinLat,
		MaxLat: c.RegionMaxLat,
		MinLng: c.RegionMinLng,
		MaxLng: c.RegionMaxLng,
	}
}
