package prepare

import (
	"context"
	"os"

	"github.com/himanishpuri/FHVAEKit/internal/audio"
	"github.com/himanishpuri/FHVAEKit/internal/features"
	"github.com/himanishpuri/FHVAEKit/internal/storage"
	"github.com/himanishpuri/FHVAEKit/pkg/logger"
)

// LoadFunc reads one utterance. A positive rate requests resampling.
type LoadFunc func(ctx context.Context, path string, rate int) (*audio.Clip, error)

type Config struct {
	OutputDir  string
	FeatType   features.Kind
	SampleRate int
	WinT       float64
	HopT       float64
	NMels      int
	TempDir    string
	Logger     logger.Interface
	Catalog    *storage.Catalog
	Progress   func(set string, done int)
	Load       LoadFunc
}

type Option func(*Config)

// WithOutputDir writes partitions under dir instead of the dataset directory.
func WithOutputDir(dir string) Option {
	return func(c *Config) {
		c.OutputDir = dir
	}
}

func WithFeatType(kind features.Kind) Option {
	return func(c *Config) {
		c.FeatType = kind
	}
}

// WithSampleRate pins the batch rate and resamples every utterance to it.
func WithSampleRate(rate int) Option {
	return func(c *Config) {
		c.SampleRate = rate
	}
}

func WithFraming(winT, hopT float64) Option {
	return func(c *Config) {
		c.WinT = winT
		c.HopT = hopT
	}
}

func WithMels(n int) Option {
	return func(c *Config) {
		c.NMels = n
	}
}

func WithTempDir(dir string) Option {
	return func(c *Config) {
		c.TempDir = dir
	}
}

func WithLogger(log logger.Interface) Option {
	return func(c *Config) {
		c.Logger = log
	}
}

// WithCatalog records every materialized utterance in catalog.
func WithCatalog(catalog *storage.Catalog) Option {
	return func(c *Config) {
		c.Catalog = catalog
	}
}

// WithProgress is called after every utterance with the running count.
func WithProgress(fn func(set string, done int)) Option {
	return func(c *Config) {
		c.Progress = fn
	}
}

func WithLoader(fn LoadFunc) Option {
	return func(c *Config) {
		c.Load = fn
	}
}

func defaultConfig() *Config {
	return &Config{
		FeatType: features.KindFbank,
		WinT:     0.025,
		HopT:     0.010,
		NMels:    features.DefaultNMels,
		TempDir:  os.TempDir(),
	}
}

func newConfig(opts []Option) *Config {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.GetLogger()
	}
	if cfg.Load == nil {
		tempDir := cfg.TempDir
		cfg.Load = func(ctx context.Context, path string, rate int) (*audio.Clip, error) {
			return audio.Load(ctx, path, rate, tempDir)
		}
	}
	return cfg
}
