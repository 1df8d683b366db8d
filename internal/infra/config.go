package infra

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Supported backends.
const (
	DBDriverPostgres = "postgres"
	DBDriverSQLite   = "sqlite"
	DBDriverMySQL    = "mysql"

	StorageDriverFS = "fs"
	StorageDriverS3 = "s3"

	QueueDriverMemory = "memory"
	QueueDriverRedis  = "redis"
)

// Config represents application configuration loaded from environment variables.
type Config struct {
	AppEnv string
	Port   string

	DatabaseDriver string
	DatabaseURL    string

	StorageDriver     string
	StorageDir        string
	StorageBaseURL    string
	S3Endpoint        string
	S3Region          string
	S3Bucket          string
	S3AccessKeyID     string
	S3SecretAccessKey string
	S3PublicBaseURL   string

	GeoIPDBPath string

	GeminiAPIKey      string
	GeminiModel       string
	GeminiImageModel  string
	GeminiBaseURL     string
	GeminiTemperature float64
	UploadRemoteRef   bool

	SerpAPIKey           string
	SerpAPIBaseURL       string
	SearchCacheTTL       time.Duration
	SearchMaxConcurrency int
	SearchLookupTimeout  time.Duration

	RatingTimeout  time.Duration
	MaxUploadBytes int64

	QueueDriver       string
	RedisURL          string
	QueueKey          string
	QueueCapacity     int
	EventsChannel     string
	InProcessWorkers  bool
	WorkerConcurrency int
	WorkerJobTimeout  time.Duration

	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration
	RateLimitPerMin  int
	CORSOrigins      []string
}

// LoadConfig loads configuration from environment variables and applies defaults where needed.
func LoadConfig() (*Config, error) {
	port := getEnv("PORT", "8080")
	cfg := &Config{
		AppEnv: getEnv("APP_ENV", "development"),
		Port:   port,

		DatabaseDriver: strings.ToLower(getEnv("DATABASE_DRIVER", DBDriverSQLite)),
		DatabaseURL:    os.Getenv("DATABASE_URL"),

		StorageDriver:     strings.ToLower(getEnv("STORAGE_DRIVER", StorageDriverFS)),
		StorageDir:        getEnv("STORAGE_DIR", "data/static"),
		StorageBaseURL:    getEnv("STORAGE_BASE_URL", fmt.Sprintf("http://localhost:%s/static", port)),
		S3Endpoint:        os.Getenv("S3_ENDPOINT"),
		S3Region:          getEnv("S3_REGION", "us-east-1"),
		S3Bucket:          os.Getenv("S3_BUCKET"),
		S3AccessKeyID:     os.Getenv("S3_ACCESS_KEY_ID"),
		S3SecretAccessKey: os.Getenv("S3_SECRET_ACCESS_KEY"),
		S3PublicBaseURL:   os.Getenv("S3_PUBLIC_BASE_URL"),

		GeoIPDBPath: os.Getenv("GEOIP_DB_PATH"),

		GeminiAPIKey:      os.Getenv("GEMINI_API_KEY"),
		GeminiModel:       getEnv("GEMINI_MODEL", "gemini-2.5-flash"),
		GeminiImageModel:  getEnv("GEMINI_IMAGE_MODEL", "gemini-2.5-flash-image"),
		GeminiBaseURL:     getEnv("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com/v1beta"),
		GeminiTemperature: getEnvFloat("GEMINI_TEMPERATURE", 0.2),
		UploadRemoteRef:   getEnvBool("GEMINI_UPLOAD_FILES", true),

		SerpAPIKey:           os.Getenv("SERPAPI_API_KEY"),
		SerpAPIBaseURL:       getEnv("SERPAPI_BASE_URL", "https://serpapi.com"),
		SearchCacheTTL:       time.Second * time.Duration(getEnvIntRange("SEARCH_CACHE_TTL_SECONDS", 900, 1, 86400)),
		SearchMaxConcurrency: getEnvIntRange("SEARCH_MAX_CONCURRENCY", 4, 1, 4),
		SearchLookupTimeout:  time.Second * time.Duration(getEnvIntRange("SEARCH_LOOKUP_TIMEOUT_SECONDS", 20, 1, 120)),

		RatingTimeout:  time.Second * time.Duration(getEnvIntRange("RATING_TIMEOUT_SECONDS", 90, 5, 600)),
		MaxUploadBytes: int64(getEnvIntRange("MAX_UPLOAD_MB", 10, 1, 50)) << 20,

		QueueDriver:       strings.ToLower(getEnv("QUEUE_DRIVER", QueueDriverMemory)),
		RedisURL:          os.Getenv("REDIS_URL"),
		QueueKey:          getEnv("QUEUE_KEY", "jobs:queue"),
		QueueCapacity:     getEnvIntRange("QUEUE_CAPACITY", 256, 1, 100000),
		EventsChannel:     getEnv("EVENTS_CHANNEL", "jobs:events"),
		InProcessWorkers:  getEnvBool("IN_PROCESS_WORKERS", true),
		WorkerConcurrency: getEnvIntRange("WORKER_CONCURRENCY", 2, 1, 32),
		WorkerJobTimeout:  time.Second * time.Duration(getEnvIntRange("WORKER_JOB_TIMEOUT_SECONDS", 300, 10, 3600)),

		HTTPReadTimeout:  time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 30)),
		HTTPWriteTimeout: time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 120)),
		HTTPIdleTimeout:  time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),
		RateLimitPerMin:  getEnvIntRange("RATE_LIMIT_PER_MINUTE", 30, 1, 10000),
		CORSOrigins:      splitList(getEnv("CORS_ALLOWED_ORIGINS", "*")),
	}

	switch cfg.DatabaseDriver {
	case DBDriverSQLite:
		if cfg.DatabaseURL == "" {
			cfg.DatabaseURL = "data/saun.db"
		}
	case DBDriverPostgres, DBDriverMySQL:
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("DATABASE_URL is required for driver %s", cfg.DatabaseDriver)
		}
	default:
		return nil, fmt.Errorf("unsupported DATABASE_DRIVER %q", cfg.DatabaseDriver)
	}

	switch cfg.StorageDriver {
	case StorageDriverFS:
	case StorageDriverS3:
		if cfg.S3Bucket == "" {
			return nil, fmt.Errorf("S3_BUCKET is required for storage driver s3")
		}
	default:
		return nil, fmt.Errorf("unsupported STORAGE_DRIVER %q", cfg.StorageDriver)
	}

	switch cfg.QueueDriver {
	case QueueDriverMemory:
		if !cfg.InProcessWorkers {
			return nil, fmt.Errorf("IN_PROCESS_WORKERS=false requires QUEUE_DRIVER=redis")
		}
	case QueueDriverRedis:
		if cfg.RedisURL == "" {
			return nil, fmt.Errorf("REDIS_URL is required for queue driver redis")
		}
	default:
		return nil, fmt.Errorf("unsupported QUEUE_DRIVER %q", cfg.QueueDriver)
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvIntRange(key string, fallback, min, max int) int {
	v := getEnvInt(key, fallback)
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

func getEnvFloat(key string, fallback float64) float64 {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
