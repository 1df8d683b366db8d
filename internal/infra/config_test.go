package infra

import "testing"

func TestLoadConfigDefaults(t *testing.T) {
	for _, key := range []string{"DATABASE_DRIVER", "DATABASE_URL", "PORT", "STORAGE_BASE_URL", "STORAGE_DRIVER", "QUEUE_DRIVER", "SEARCH_MAX_CONCURRENCY"} {
		t.Setenv(key, "")
	}

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.DatabaseDriver != DBDriverSQLite || cfg.DatabaseURL != "data/saun.db" {
		t.Fatalf("unexpected database defaults: %s %s", cfg.DatabaseDriver, cfg.DatabaseURL)
	}
	if cfg.StorageBaseURL != "http://localhost:8080/static" {
		t.Fatalf("StorageBaseURL mismatch: got %q", cfg.StorageBaseURL)
	}
	if cfg.MaxUploadBytes != 10<<20 {
		t.Fatalf("MaxUploadBytes mismatch: %d", cfg.MaxUploadBytes)
	}
	if cfg.QueueKey != "jobs:queue" || cfg.QueueDriver != QueueDriverMemory {
		t.Fatalf("unexpected queue defaults: %s %s", cfg.QueueDriver, cfg.QueueKey)
	}
}

func TestLoadConfigInheritsPortInStorageBaseURL(t *testing.T) {
	t.Setenv("PORT", "1919")
	t.Setenv("STORAGE_BASE_URL", "")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.StorageBaseURL != "http://localhost:1919/static" {
		t.Fatalf("StorageBaseURL mismatch: got %q", cfg.StorageBaseURL)
	}
}

func TestLoadConfigClampsSearchConcurrency(t *testing.T) {
	t.Setenv("SEARCH_MAX_CONCURRENCY", "64")
	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.SearchMaxConcurrency != 4 {
		t.Fatalf("SearchMaxConcurrency = %d, want 4", cfg.SearchMaxConcurrency)
	}
}

func TestLoadConfigClampsRateLimit(t *testing.T) {
	t.Setenv("RATE_LIMIT_PER_MINUTE", "0")
	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.RateLimitPerMin != 1 {
		t.Fatalf("RateLimitPerMin = %d, want 1", cfg.RateLimitPerMin)
	}
}

func TestLoadConfigRejectsInvalidCombinations(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"postgres without url", map[string]string{"DATABASE_DRIVER": "postgres", "DATABASE_URL": ""}},
		{"unknown driver", map[string]string{"DATABASE_DRIVER": "oracle"}},
		{"s3 without bucket", map[string]string{"STORAGE_DRIVER": "s3", "S3_BUCKET": ""}},
		{"redis without url", map[string]string{"QUEUE_DRIVER": "redis", "REDIS_URL": ""}},
		{"memory queue without workers", map[string]string{"QUEUE_DRIVER": "memory", "IN_PROCESS_WORKERS": "false"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			if _, err := LoadConfig(); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}
