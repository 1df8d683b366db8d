// Package bootstrap builds the process-scoped collaborators shared by the
// api, worker and saunctl binaries from infra.Config.
package bootstrap

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"saun/internal/adapter/repo"
	"saun/internal/adapter/sqlstore"
	"saun/internal/domain"
	"saun/internal/infra"
	"saun/internal/providers/genai"
	"saun/internal/providers/serpapi"
	"saun/internal/queue"
	"saun/internal/storage"
)

// OpenStore connects the configured database and migrates it.
func OpenStore(ctx context.Context, cfg *infra.Config, logger zerolog.Logger) (domain.Store, error) {
	var store domain.Store
	switch cfg.DatabaseDriver {
	case infra.DBDriverPostgres:
		pool, err := infra.NewDBPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		store = repo.NewPGStore(pool, logger)
	case infra.DBDriverSQLite, infra.DBDriverMySQL:
		s, err := sqlstore.Open(ctx, cfg.DatabaseDriver, cfg.DatabaseURL, logger)
		if err != nil {
			return nil, err
		}
		store = s
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.DatabaseDriver)
	}
	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, err
	}
	return store, nil
}

// Blobs is the configured blob store. StaticDir is set only for the
// filesystem driver, which the API serves under /static.
type Blobs struct {
	Store     storage.Blob
	StaticDir string
}

func OpenBlobs(ctx context.Context, cfg *infra.Config) (*Blobs, error) {
	switch cfg.StorageDriver {
	case infra.StorageDriverS3:
		s3, err := storage.NewS3Store(ctx, storage.S3Options{
			Endpoint:        cfg.S3Endpoint,
			Region:          cfg.S3Region,
			Bucket:          cfg.S3Bucket,
			AccessKeyID:     cfg.S3AccessKeyID,
			SecretAccessKey: cfg.S3SecretAccessKey,
			PublicBaseURL:   cfg.S3PublicBaseURL,
		})
		if err != nil {
			return nil, err
		}
		if err := s3.EnsureBucket(ctx); err != nil {
			return nil, err
		}
		return &Blobs{Store: s3}, nil
	default:
		dir := cfg.StorageDir
		if abs, err := filepath.Abs(dir); err == nil {
			dir = abs
		}
		fs, err := storage.NewFileStore(dir, cfg.StorageBaseURL)
		if err != nil {
			return nil, err
		}
		return &Blobs{Store: fs, StaticDir: fs.BasePath()}, nil
	}
}

// NewGenAI builds the model client. A missing key is not fatal; calls fail
// with RemoteProviderError until one is configured.
func NewGenAI(cfg *infra.Config, logger *zerolog.Logger) (*genai.Client, error) {
	if cfg.GeminiAPIKey == "" {
		logger.Warn().Msg("GEMINI_API_KEY is empty; rating and generation will fail")
	}
	return genai.NewClient(genai.Options{
		APIKey:      cfg.GeminiAPIKey,
		BaseURL:     cfg.GeminiBaseURL,
		Model:       cfg.GeminiModel,
		Temperature: cfg.GeminiTemperature,
		Logger:      logger,
	})
}

func NewSerpAPI(cfg *infra.Config) *serpapi.Client {
	return serpapi.NewClient(serpapi.Options{APIKey: cfg.SerpAPIKey, BaseURL: cfg.SerpAPIBaseURL})
}

// Queue is the job queue plus the Redis client behind it, if any.
type Queue struct {
	Queue queue.Queue
	Redis *redis.Client
}

func OpenQueue(ctx context.Context, cfg *infra.Config) (*Queue, error) {
	if cfg.QueueDriver != infra.QueueDriverRedis {
		return &Queue{Queue: queue.NewMemoryQueue(cfg.QueueCapacity)}, nil
	}
	client, err := queue.NewRedisClient(ctx, cfg.RedisURL)
	if err != nil {
		return nil, err
	}
	return &Queue{Queue: queue.NewRedisQueue(client, cfg.QueueKey), Redis: client}, nil
}

// Close releases the Redis connection.
func (q *Queue) Close() error {
	if q.Redis == nil {
		return nil
	}
	return q.Redis.Close()
}
