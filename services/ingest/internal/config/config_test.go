package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
port: "8084"
redisAddr: "localhost:6379"
`))
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.ChunkSize != 1024 || cfg.ChunkOverlap != 128 {
		t.Fatalf("chunk window = %d/%d, want 1024/128", cfg.ChunkSize, cfg.ChunkOverlap)
	}
	if cfg.QueueName != "saral:ingest" || cfg.QueueGroup != "saral-ingest" || cfg.QueueConcurrency != 2 {
		t.Fatalf("unexpected queue defaults: %+v", cfg)
	}
	if cfg.StoreDriver != "memory" || cfg.StorageDir != "data/uploads" {
		t.Fatalf("unexpected storage defaults: %+v", cfg)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("INGEST_CHUNK_SIZE", "512")
	t.Setenv("INGEST_CHUNK_OVERLAP", "64")
	t.Setenv("INGEST_QUEUE_CONCURRENCY", "4")
	t.Setenv("INGEST_QUEUE_RETRY_DELAY_SECONDS", "5")
	t.Setenv("REDIS_ADDR", "redis:6379")
	t.Setenv("SARAL_STORE_DRIVER", "sqlite")
	t.Setenv("DATABASE_URL", "saral.db")

	cfg, err := Load(writeConfig(t, `
port: "8084"
redisAddr: "localhost:6379"
chunkSize: 800
chunkOverlap: 120
`))
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.ChunkSize != 512 || cfg.ChunkOverlap != 64 {
		t.Fatalf("chunk window = %d/%d, want 512/64", cfg.ChunkSize, cfg.ChunkOverlap)
	}
	if cfg.QueueConcurrency != 4 || cfg.RetryDelay() != 5*time.Second {
		t.Fatalf("queue = %d workers, %s delay", cfg.QueueConcurrency, cfg.RetryDelay())
	}
	if cfg.RedisAddr != "redis:6379" || cfg.StoreDriver != "sqlite" || cfg.DatabaseURL != "saral.db" {
		t.Fatalf("env overrides not applied: %+v", cfg)
	}
}

func TestLoadUsesEnvPath(t *testing.T) {
	t.Setenv("SARAL_INGEST_CONFIG", writeConfig(t, `
port: "9000"
redisAddr: "localhost:6379"
`))
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.Port != "9000" {
		t.Fatalf("port = %q", cfg.Port)
	}
}

func TestValidateConfigRejects(t *testing.T) {
	valid := func() FileConfig {
		return FileConfig{
			Port:         "8084",
			RedisAddr:    "localhost:6379",
			StoreDriver:  "memory",
			ChunkSize:    800,
			ChunkOverlap: 120,
		}
	}
	if err := validateConfig(valid()); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}
	tests := []struct {
		name   string
		mutate func(*FileConfig)
	}{
		{"missing port", func(c *FileConfig) { c.Port = "" }},
		{"missing redis", func(c *FileConfig) { c.RedisAddr = "" }},
		{"overlap not smaller than size", func(c *FileConfig) { c.ChunkOverlap = c.ChunkSize }},
		{"negative overlap", func(c *FileConfig) { c.ChunkOverlap = -1 }},
		{"zero size", func(c *FileConfig) { c.ChunkSize = 0 }},
		{"unknown driver", func(c *FileConfig) { c.StoreDriver = "mongo" }},
		{"postgres without dsn", func(c *FileConfig) { c.StoreDriver = "postgres" }},
		{"partial minio", func(c *FileConfig) { c.MinioEndpoint = "minio:9000" }},
		{"negative retries", func(c *FileConfig) { c.QueueMaxRetries = -1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			if err := validateConfig(cfg); err == nil {
				t.Fatalf("validateConfig() expected an error")
			}
		})
	}
}
