package config

import (
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

// Config holds all application configuration. Batch size, retry count
// and backoff are deliberately compile-time constants, not tunables.
type Config struct {
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`
	ServerAddr  string `env:"SERVER_ADDR" envDefault:":8080"`
	MetricsAddr string `env:"METRICS_ADDR" envDefault:":9091"`

	LogStoreEndpoint string        `env:"LOG_STORE_ENDPOINT" envDefault:"http://localhost:9428"`
	CacheDir         string        `env:"CACHE_DIR" envDefault:"./cache"`
	LogStoreDataDir  string        `env:"LOG_STORE_DATA_DIR" envDefault:"./cache/victoria-logs-data"`
	DownloadTimeout  time.Duration `env:"DOWNLOAD_TIMEOUT" envDefault:"5m"`

	RunInfoURL   string `env:"RUN_INFO_URL" envDefault:"https://argus.scylladb.com"`
	RunInfoToken string `env:"RUN_INFO_TOKEN"`
	KnowledgeDir string `env:"KNOWLEDGE_DIR" envDefault:"./knowledge_base"`

	IngestRateLimit float64 `env:"INGEST_RATE_LIMIT" envDefault:"5"`
	IngestBurst     int     `env:"INGEST_BURST" envDefault:"10"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	// Attempt to load .env file for local development.
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}
