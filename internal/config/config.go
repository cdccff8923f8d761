// Package config loads the dbmeta configuration file: database connection,
// metadata cache and logging.
//
// Usage:
//
//	config.LoadEnv(".env", ".env.local")
//	cfg, err := config.Load("dbmeta.yaml")
//	if err != nil { ... }
//	adapter, closeCache, err := config.NewCache(ctx, &cfg.Cache)
package config

import (
	"os"
	"time"

	"github.com/joho/godotenv"
	"go.yaml.in/yaml/v3"

	"github.com/koustreak/dbmeta/internal/cache"
	"github.com/koustreak/dbmeta/internal/database"
	"github.com/koustreak/dbmeta/internal/errs"
	"github.com/koustreak/dbmeta/internal/filestore"
	"github.com/koustreak/dbmeta/internal/logger"
)

// Cache backends.
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
	BackendObject = "object"
)

// Config is the root of the configuration file.
type Config struct {
	Database database.Config `yaml:"database"`
	Cache    CacheConfig     `yaml:"cache"`
	Log      logger.Config   `yaml:"log"`
	HTTP     HTTPConfig      `yaml:"http"`
}

// CacheConfig selects and tunes the metadata cache.
type CacheConfig struct {
	Enabled bool   `yaml:"enabled"`
	Backend string `yaml:"backend"` // memory, redis, object

	// Duration is the TTL of cached records; zero never expires.
	Duration time.Duration `yaml:"duration"`

	// Exclude lists raw table names that are never cached.
	Exclude []string `yaml:"exclude"`

	Redis  cache.RedisConfig `yaml:"redis"`
	Object filestore.Config  `yaml:"object"`
}

// HTTPConfig configures the metadata HTTP surface.
type HTTPConfig struct {
	Addr string `yaml:"addr"`
}

// Default returns a configuration with every optional setting filled in.
// The database driver and DSN are left empty.
func Default() *Config {
	return &Config{
		Database: *database.DefaultConfig("", ""),
		Cache: CacheConfig{
			Enabled:  true,
			Backend:  BackendMemory,
			Duration: time.Hour,
			Redis:    cache.DefaultRedisConfig(),
			Object:   *filestore.DefaultConfig("localhost:9000", "", ""),
		},
		Log:  *logger.DefaultConfig(),
		HTTP: HTTPConfig{Addr: ":8080"},
	}
}

// LoadEnv loads variables from the given dotenv files into the process
// environment. Missing files are skipped; variables already set win.
func LoadEnv(files ...string) {
	for _, f := range files {
		_ = godotenv.Load(f)
	}
}

// Load reads the YAML file at path on top of Default, expanding ${VAR}
// references from the environment first.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindInvalidInput, "failed to read config file", err)
	}
	return Parse(data)
}

// Parse decodes YAML config data on top of Default and validates it.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), cfg); err != nil {
		return nil, errs.Wrap(errs.ErrKindInvalidInput, "failed to parse config", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports missing or inconsistent settings.
func (c *Config) Validate() error {
	if err := c.Database.Validate(); err != nil {
		return err
	}
	return c.Cache.Validate()
}

// Validate reports an unknown backend or one missing its settings.
func (c *CacheConfig) Validate() error {
	if c.Duration < 0 {
		return errs.New(errs.ErrKindInvalidInput, "cache duration must not be negative")
	}
	if !c.Enabled {
		return nil
	}
	switch c.Backend {
	case BackendMemory:
	case BackendRedis:
		if c.Redis.Addr == "" {
			return errs.New(errs.ErrKindInvalidInput, "cache.redis.addr is required")
		}
	case BackendObject:
		if c.Object.Endpoint == "" || c.Object.Bucket == "" {
			return errs.New(errs.ErrKindInvalidInput, "cache.object needs an endpoint and a bucket")
		}
	default:
		return errs.Newf(errs.ErrKindInvalidInput, "unknown cache backend %q", c.Backend)
	}
	return nil
}
