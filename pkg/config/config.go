// Package config loads the qlayout configuration file.
//
// The file is TOML and lives at $XDG_CONFIG_HOME/qlayout/config.toml
// (~/.config/qlayout/config.toml when XDG_CONFIG_HOME is unset). Every
// setting has a default, so the file and each of its sections are optional:
//
//	[bridges]
//	spacing = 120.0
//	clearance = 20.0
//
//	[store]
//	backend = "redis"
//	redis_url = "redis://localhost:6379/0"
package config

import (
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/matzehuels/qlayout/pkg/airbridge"
	"github.com/matzehuels/qlayout/pkg/errors"
	"github.com/matzehuels/qlayout/pkg/pipeline"
)

// AppName names the configuration, cache and data directories.
const AppName = "qlayout"

// Store and cache backends.
const (
	BackendFile  = "file"
	BackendRedis = "redis"
	BackendMongo = "mongo"
	BackendNone  = "none"
)

// Config is the whole configuration file.
type Config struct {
	Bridges  BridgesConfig  `toml:"bridges"`
	Topology TopologyConfig `toml:"topology"`
	Import   ImportConfig   `toml:"import"`
	Store    StoreConfig    `toml:"store"`
	Cache    CacheConfig    `toml:"cache"`
	Server   ServerConfig   `toml:"server"`
}

// BridgesConfig holds the air bridge placement defaults.
type BridgesConfig struct {
	Spacing   float64 `toml:"spacing"`
	Clearance float64 `toml:"clearance"`
	Span      float64 `toml:"span"`
	Type      string  `toml:"type"`
	Chip      string  `toml:"chip"`
	Width     float64 `toml:"width"`
}

// TopologyConfig holds the lattice settings.
type TopologyConfig struct {
	Spacing float64 `toml:"spacing"`
}

// ImportConfig holds the GDS import defaults.
type ImportConfig struct {
	Type  string `toml:"type"`
	Chip  string `toml:"chip"`
	Merge bool   `toml:"merge"`
}

// StoreConfig selects where design snapshots live.
type StoreConfig struct {
	Backend         string `toml:"backend"`
	Dir             string `toml:"dir"`
	RedisURL        string `toml:"redis_url"`
	RedisPrefix     string `toml:"redis_prefix"`
	MongoURI        string `toml:"mongo_uri"`
	MongoDatabase   string `toml:"mongo_database"`
	MongoCollection string `toml:"mongo_collection"`
}

// CacheConfig selects the pipeline cache.
type CacheConfig struct {
	Backend     string `toml:"backend"`
	Dir         string `toml:"dir"`
	RedisURL    string `toml:"redis_url"`
	RedisPrefix string `toml:"redis_prefix"`
	// Namespace prefixes every cache key so several users can share one
	// Redis cache.
	Namespace string `toml:"namespace"`
}

// ServerConfig configures "qlayout serve".
type ServerConfig struct {
	Addr           string        `toml:"addr"`
	ReadTimeout    time.Duration `toml:"read_timeout"`
	WriteTimeout   time.Duration `toml:"write_timeout"`
	MaxUploadBytes int64         `toml:"max_upload_bytes"`
}

// Default returns the built-in configuration.
func Default() *Config {
	b := airbridge.DefaultConfig()
	return &Config{
		Bridges: BridgesConfig{
			Spacing:   b.Spacing,
			Clearance: b.Clearance,
			Span:      b.Span,
			Type:      b.Type,
			Chip:      b.Chip,
			Width:     b.Width,
		},
		Topology: TopologyConfig{Spacing: 1000},
		Import: ImportConfig{
			Type: pipeline.DefaultImportType,
			Chip: pipeline.DefaultChip,
		},
		Store: StoreConfig{
			Backend:         BackendFile,
			RedisPrefix:     AppName + ":",
			MongoDatabase:   AppName,
			MongoCollection: "designs",
		},
		Cache: CacheConfig{
			Backend:     BackendFile,
			RedisPrefix: AppName + ":cache:",
		},
		Server: ServerConfig{
			Addr:           ":8080",
			ReadTimeout:    30 * time.Second,
			WriteTimeout:   60 * time.Second,
			MaxUploadBytes: 64 << 20,
		},
	}
}

// Load reads the file at path over the defaults. An empty path reads
// [DefaultPath] and tolerates its absence; an explicit path must exist.
func Load(path string) (*Config, error) {
	cfg := Default()
	explicit := path != ""
	if !explicit {
		p, err := DefaultPath()
		if err != nil {
			return cfg, nil
		}
		path = p
	}

	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		if os.IsNotExist(err) {
			if explicit {
				return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "config file %s not found", path)
			}
			return cfg, nil
		}
		return nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, "parse config %s", path)
	}
	if err := checkUndecoded(md, path); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Parse decodes configuration text over the defaults.
func Parse(data string) (*Config, error) {
	cfg := Default()
	md, err := toml.Decode(data, cfg)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, "parse config")
	}
	if err := checkUndecoded(md, "text"); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks value ranges and backend names.
func (c *Config) Validate() error {
	if _, err := c.AirBridge(); err != nil {
		return err
	}
	if c.Topology.Spacing <= 0 {
		return errors.New(errors.ErrCodeInvalidInput, "topology.spacing must be positive, got %g", c.Topology.Spacing)
	}
	if !slices.Contains([]string{BackendFile, BackendRedis, BackendMongo}, c.Store.Backend) {
		return errors.New(errors.ErrCodeInvalidInput, "store.backend must be file, redis or mongo, got %q", c.Store.Backend)
	}
	if c.Store.Backend == BackendRedis && c.Store.RedisURL == "" {
		return errors.New(errors.ErrCodeInvalidInput, "store.redis_url is required for the redis backend")
	}
	if c.Store.Backend == BackendMongo && c.Store.MongoURI == "" {
		return errors.New(errors.ErrCodeInvalidInput, "store.mongo_uri is required for the mongo backend")
	}
	if !slices.Contains([]string{BackendFile, BackendRedis, BackendNone}, c.Cache.Backend) {
		return errors.New(errors.ErrCodeInvalidInput, "cache.backend must be file, redis or none, got %q", c.Cache.Backend)
	}
	if c.Cache.Backend == BackendRedis && c.Cache.RedisURL == "" {
		return errors.New(errors.ErrCodeInvalidInput, "cache.redis_url is required for the redis backend")
	}
	if c.Server.MaxUploadBytes <= 0 {
		return errors.New(errors.ErrCodeInvalidInput, "server.max_upload_bytes must be positive")
	}
	return nil
}

// AirBridge returns the bridge placement settings.
func (c *Config) AirBridge() (airbridge.Config, error) {
	b := airbridge.Config{
		Spacing:   c.Bridges.Spacing,
		Clearance: c.Bridges.Clearance,
		Span:      c.Bridges.Span,
		Type:      c.Bridges.Type,
		Chip:      c.Bridges.Chip,
		Width:     c.Bridges.Width,
	}
	if b.Spacing <= 0 {
		return b, errors.New(errors.ErrCodeInvalidInput, "bridges.spacing must be positive, got %g", b.Spacing)
	}
	if b.Clearance < 0 {
		return b, errors.New(errors.ErrCodeInvalidInput, "bridges.clearance must not be negative, got %g", b.Clearance)
	}
	return b, nil
}

// DefaultPath returns $XDG_CONFIG_HOME/qlayout/config.toml.
func DefaultPath() (string, error) {
	dir, err := configHome()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, AppName, "config.toml"), nil
}

// CacheDir returns the cache directory: cache.dir when set, else
// $XDG_CACHE_HOME/qlayout.
func (c *Config) CacheDir() (string, error) {
	if c.Cache.Dir != "" {
		return c.Cache.Dir, nil
	}
	if v := os.Getenv("XDG_CACHE_HOME"); v != "" {
		return filepath.Join(v, AppName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", AppName), nil
}

// StoreDir returns the file store directory: store.dir when set, else
// $XDG_DATA_HOME/qlayout/designs.
func (c *Config) StoreDir() (string, error) {
	if c.Store.Dir != "" {
		return c.Store.Dir, nil
	}
	if v := os.Getenv("XDG_DATA_HOME"); v != "" {
		return filepath.Join(v, AppName, "designs"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".local", "share", AppName, "designs"), nil
}

func checkUndecoded(md toml.MetaData, source string) error {
	undecoded := md.Undecoded()
	if len(undecoded) == 0 {
		return nil
	}
	keys := make([]string, len(undecoded))
	for i, k := range undecoded {
		keys[i] = k.String()
	}
	return errors.New(errors.ErrCodeInvalidFormat, "config %s: unknown keys %s", source, strings.Join(keys, ", "))
}

func configHome() (string, error) {
	if v := os.Getenv("XDG_CONFIG_HOME"); v != "" {
		return v, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config"), nil
}
