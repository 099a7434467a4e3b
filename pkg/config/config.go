// Package config loads tool settings from a TOML file and fills in
// defaults for anything the file leaves out. The file lives at
// ~/.config/modelprep/config.toml unless a path is given explicitly.
package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/modelprep/modelprep/pkg/cache"
	"github.com/modelprep/modelprep/pkg/errors"
	"github.com/modelprep/modelprep/pkg/model"
)

// Cache backend names accepted in the [cache] section.
const (
	BackendFile    = "file"
	BackendRedis   = "redis"
	BackendMongoDB = "mongodb"
	BackendNone    = "none"
)

// Config holds all tool settings.
type Config struct {
	// ModelsDir is where archives are downloaded and models extracted.
	ModelsDir string `toml:"models_dir"`

	// ZooURL is the base URL of the model zoo.
	ZooURL string `toml:"zoo_url"`

	Cache  CacheConfig  `toml:"cache"`
	Server ServerConfig `toml:"server"`
}

// CacheConfig selects and parameterizes the archive cache backend.
type CacheConfig struct {
	// Backend is one of file, redis, mongodb or none.
	Backend string `toml:"backend"`

	// Dir is the cache directory for the file backend.
	Dir string `toml:"dir"`

	// RedisURL is the connection URL for the redis backend.
	RedisURL string `toml:"redis_url"`

	// MongoURI, MongoDatabase and MongoCollection configure the mongodb
	// backend.
	MongoURI        string `toml:"mongo_uri"`
	MongoDatabase   string `toml:"mongo_database"`
	MongoCollection string `toml:"mongo_collection"`

	// TTL is how long cached archives stay valid. Zero means forever.
	TTL duration `toml:"ttl"`
}

// ServerConfig configures the conversion API server.
type ServerConfig struct {
	// Addr is the listen address, host:port.
	Addr string `toml:"addr"`
}

// duration lets TTLs be written as "24h" in the TOML file.
type duration time.Duration

func (d *duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = duration(v)
	return nil
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	home, _ := os.UserHomeDir()
	return &Config{
		ModelsDir: filepath.Join(home, ".modelprep", "models"),
		ZooURL:    model.DefaultZooURL,
		Cache: CacheConfig{
			Backend:         BackendFile,
			Dir:             filepath.Join(home, ".modelprep", "cache"),
			MongoDatabase:   "modelprep",
			MongoCollection: "archives",
		},
		Server: ServerConfig{
			Addr: "localhost:8080",
		},
	}
}

// DefaultPath returns the standard config file location.
func DefaultPath() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "modelprep", "config.toml")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "modelprep", "config.toml")
}

// Load reads the config file at path, applying defaults for missing
// fields. A missing file is not an error: defaults are returned. An
// empty path means DefaultPath.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultPath()
	}

	cfg := Default()
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidConfig, err, "parse config %s", path)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Cache.Backend {
	case BackendFile, BackendRedis, BackendMongoDB, BackendNone:
	default:
		return errors.New(errors.ErrCodeInvalidConfig, "unknown cache backend %q", c.Cache.Backend)
	}
	if c.Cache.Backend == BackendRedis && c.Cache.RedisURL == "" {
		return errors.New(errors.ErrCodeInvalidConfig, "cache backend redis requires redis_url")
	}
	if c.Cache.Backend == BackendMongoDB && c.Cache.MongoURI == "" {
		return errors.New(errors.ErrCodeInvalidConfig, "cache backend mongodb requires mongo_uri")
	}
	return nil
}

// CacheTTL returns the cache time-to-live as a time.Duration.
func (c *CacheConfig) CacheTTL() time.Duration { return time.Duration(c.TTL) }

// OpenCache builds the cache backend the config selects. The caller owns
// the returned cache and must Close it.
func (c *Config) OpenCache(ctx context.Context) (cache.Cache, error) {
	switch c.Cache.Backend {
	case BackendNone:
		return cache.NewNullCache(), nil
	case BackendFile:
		return cache.NewFileCache(c.Cache.Dir)
	case BackendRedis:
		return cache.NewRedisCache(ctx, c.Cache.RedisURL)
	case BackendMongoDB:
		return cache.NewMongoCache(ctx, c.Cache.MongoURI, c.Cache.MongoDatabase, c.Cache.MongoCollection)
	default:
		return nil, errors.New(errors.ErrCodeInvalidConfig, "unknown cache backend %q", c.Cache.Backend)
	}
}
