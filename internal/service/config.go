package service

import (
	"os"

	"github.com/himanishpuri/FHVAEKit/internal/storage"
	"github.com/himanishpuri/FHVAEKit/pkg/logger"
)

type Config struct {
	DBPath     string
	TempDir    string
	SampleRate int
	Logger     logger.Interface
	Catalog    *storage.Catalog
}

type Option func(*Config)

func WithDBPath(path string) Option {
	return func(c *Config) {
		c.DBPath = path
	}
}

func WithTempDir(dir string) Option {
	return func(c *Config) {
		c.TempDir = dir
	}
}

// WithSampleRate resamples every loaded clip to rate. Zero keeps the native rate.
func WithSampleRate(rate int) Option {
	return func(c *Config) {
		c.SampleRate = rate
	}
}

func WithLogger(log logger.Interface) Option {
	return func(c *Config) {
		c.Logger = log
	}
}

// WithCatalog uses an already open catalog. The service does not close it.
func WithCatalog(catalog *storage.Catalog) Option {
	return func(c *Config) {
		c.Catalog = catalog
	}
}

func defaultConfig() *Config {
	dbPath := os.Getenv("FHVAE_DB_PATH")
	if dbPath == "" {
		dbPath = storage.DefaultDBFile
	}
	return &Config{
		DBPath:  dbPath,
		TempDir: os.TempDir(),
	}
}
