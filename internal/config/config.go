// Package config loads apigraph configuration files.
//
// A configuration file is TOML or YAML, chosen by extension. Both formats
// share the same keys:
//
//	base_url = "https://api.example.com/v1"
//	strict = true
//
//	[headers]
//	Authorization = "Bearer ..."
//
//	[cache]
//	backend = "redis"
//	redis_addr = "localhost:6379"
//	ttl = "1h"
//
//	[types.articles.relations]
//	author = { kind = "to-one", target = "people" }
//
// Values not present in the file are filled in by [Config.WithDefaults].
package config

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/matzehuels/apigraph/pkg/cache"
	"github.com/matzehuels/apigraph/pkg/errors"
	"github.com/matzehuels/apigraph/pkg/model"
)

const appName = "apigraph"

// Cache backends.
const (
	BackendFile  = "file"
	BackendRedis = "redis"
	BackendNone  = "none"
)

// Defaults.
const (
	DefaultTTL        = 24 * time.Hour
	DefaultPrefix     = appName + ":"
	DefaultServerAddr = ":8080"
)

// Config is the complete apigraph configuration.
type Config struct {
	// BaseURL is the API root that relative fetch paths resolve against.
	BaseURL string `toml:"base_url" yaml:"base_url"`
	// Headers are sent with every request.
	Headers map[string]string `toml:"headers" yaml:"headers"`
	// Strict makes relationships missing from Types an error. Otherwise
	// they are skipped.
	Strict bool `toml:"strict" yaml:"strict"`
	// OpenTypes accepts types and relations that Types does not declare.
	OpenTypes bool `toml:"open_types" yaml:"open_types"`

	Cache  CacheConfig  `toml:"cache" yaml:"cache"`
	Server ServerConfig `toml:"server" yaml:"server"`

	// Types declares the model schema. An empty map means an open schema.
	Types map[string]model.TypeDef `toml:"types" yaml:"types"`
}

// CacheConfig selects and configures the HTTP response cache.
type CacheConfig struct {
	Backend       string   `toml:"backend" yaml:"backend"`
	Dir           string   `toml:"dir" yaml:"dir"`
	TTL           Duration `toml:"ttl" yaml:"ttl"`
	RedisAddr     string   `toml:"redis_addr" yaml:"redis_addr"`
	RedisPassword string   `toml:"redis_password" yaml:"redis_password"`
	RedisDB       int      `toml:"redis_db" yaml:"redis_db"`
	Prefix        string   `toml:"prefix" yaml:"prefix"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Addr string `toml:"addr" yaml:"addr"`
}

// Duration is a time.Duration written as a string such as "90s" or "24h".
type Duration time.Duration

// UnmarshalText implements encoding.TextUnmarshaler for both decoders.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// D returns the value as a time.Duration.
func (d Duration) D() time.Duration { return time.Duration(d) }

// =============================================================================
// Loading
// =============================================================================

// Load reads the configuration file at path. An empty path returns the
// defaults. Unknown keys are rejected so typos do not pass silently.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidConfig, err, "read config")
		}
		if err := Parse(data, filepath.Ext(path), cfg); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
	}
	cfg.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Parse decodes data into cfg. ext selects the format: ".toml", ".yaml" or ".yml".
func Parse(data []byte, ext string, cfg *Config) error {
	switch strings.ToLower(ext) {
	case ".toml":
		md, err := toml.Decode(string(data), cfg)
		if err != nil {
			return errors.Wrap(errors.ErrCodeInvalidConfig, err, "parse TOML")
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			return errors.New(errors.ErrCodeInvalidConfig, "unknown key %q", undecoded[0].String())
		}
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(cfg); err != nil && err != io.EOF {
			return errors.Wrap(errors.ErrCodeInvalidConfig, err, "parse YAML")
		}
	default:
		return errors.New(errors.ErrCodeInvalidConfig, "unsupported config format %q (want .toml, .yaml or .yml)", ext)
	}
	return nil
}

// DefaultPath returns the first existing config file under the user config
// directory, or "" when there is none.
func DefaultPath() string {
	dir, err := configDir()
	if err != nil {
		return ""
	}
	for _, name := range []string{"config.toml", "config.yaml", "config.yml"} {
		p := filepath.Join(dir, name)
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

func configDir() (string, error) {
	if home := os.Getenv("XDG_CONFIG_HOME"); home != "" {
		return filepath.Join(home, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", appName), nil
}

// CacheDir returns the default file cache directory.
func CacheDir() (string, error) {
	if cacheHome := os.Getenv("XDG_CACHE_HOME"); cacheHome != "" {
		return filepath.Join(cacheHome, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", appName), nil
}

// =============================================================================
// Defaults and Validation
// =============================================================================

// WithDefaults fills in every unset value and returns c for chaining.
func (c *Config) WithDefaults() *Config {
	if c.Cache.Backend == "" {
		c.Cache.Backend = BackendFile
	}
	if c.Cache.Dir == "" {
		c.Cache.Dir, _ = CacheDir()
	}
	if c.Cache.TTL == 0 {
		c.Cache.TTL = Duration(DefaultTTL)
	}
	if c.Cache.Prefix == "" {
		c.Cache.Prefix = DefaultPrefix
	}
	if c.Server.Addr == "" {
		c.Server.Addr = DefaultServerAddr
	}
	return c
}

// Validate checks the configuration after defaults are applied.
func (c *Config) Validate() error {
	if c.BaseURL != "" {
		if err := errors.ValidateURL(c.BaseURL); err != nil {
			return errors.Wrap(errors.ErrCodeInvalidConfig, err, "base_url")
		}
	}
	switch c.Cache.Backend {
	case BackendFile:
		if c.Cache.Dir == "" {
			return errors.New(errors.ErrCodeInvalidConfig, "cache.dir is required for the file backend")
		}
	case BackendRedis:
		if c.Cache.RedisAddr == "" {
			return errors.New(errors.ErrCodeInvalidConfig, "cache.redis_addr is required for the redis backend")
		}
	case BackendNone:
	default:
		return errors.New(errors.ErrCodeInvalidConfig, "unknown cache backend %q", c.Cache.Backend)
	}
	if c.Cache.TTL < 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "cache.ttl must not be negative")
	}
	if _, err := c.Schema(); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfig, err, "types")
	}
	return nil
}

// Schema builds the model registry from Types. Without declarations the
// schema is open.
func (c *Config) Schema() (*model.Schema, error) {
	if len(c.Types) == 0 {
		return model.OpenSchema(), nil
	}
	var opts []model.SchemaOption
	if c.OpenTypes {
		opts = append(opts, model.WithOpen())
	}
	return model.NewSchema(c.Types, opts...)
}

// SchemaHash fingerprints the schema settings so cached graphs built under
// a different schema are not reused.
func (c *Config) SchemaHash() string {
	data, _ := json.Marshal(struct {
		Types     map[string]model.TypeDef
		OpenTypes bool
	}{c.Types, c.OpenTypes})
	return cache.Hash(data)
}

// NewCache opens the configured cache backend.
func (c *Config) NewCache(ctx context.Context) (cache.Cache, error) {
	switch c.Cache.Backend {
	case BackendNone:
		return cache.NewNullCache(), nil
	case BackendRedis:
		rc, err := cache.NewRedisCache(ctx, cache.RedisConfig{
			Addr:     c.Cache.RedisAddr,
			Password: c.Cache.RedisPassword,
			DB:       c.Cache.RedisDB,
			Prefix:   c.Cache.Prefix,
		})
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeNetwork, err, "open redis cache")
		}
		return rc, nil
	default:
		fc, err := cache.NewFileCache(c.Cache.Dir)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidConfig, err, "open file cache")
		}
		return fc, nil
	}
}
