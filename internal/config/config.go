// Package config loads the application settings file.
//
// Files may be YAML, JSON or TOML. They are decoded into a generic map first and then
// into File with mapstructure, so every format shares one set of keys and unknown keys
// are rejected regardless of the syntax.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/aretw0/domaindetect/pkg/domain"
	"github.com/mitchellh/mapstructure"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// File is the full settings document.
type File struct {
	Resolution  domain.Config   `mapstructure:"resolution"`
	Library     LibrarySettings `mapstructure:"library"`
	Aligner     AlignerSettings `mapstructure:"aligner"`
	Cache       CacheSettings   `mapstructure:"cache"`
	Server      ServerSettings  `mapstructure:"server"`
	Log         LogSettings     `mapstructure:"log"`
	Concurrency int             `mapstructure:"concurrency"`
}

// LibrarySettings locate the domain library.
type LibrarySettings struct {
	// Path is a library file (.yaml, .json, .toml) or a directory of domain documents.
	Path    string `mapstructure:"path"`
	Version string `mapstructure:"version"`
	// Watch reloads nothing by itself; it lets servers report library changes.
	Watch bool `mapstructure:"watch"`
}

// AlignerSettings pick where hits come from: a precomputed hits file or a configured tool.
type AlignerSettings struct {
	HitsFile string `mapstructure:"hits_file"`
	// HitsFormat is tsv or json; empty guesses from the file extension.
	HitsFormat string `mapstructure:"hits_format"`
	JSONPath   string `mapstructure:"jsonpath"`
	ToolsFile  string `mapstructure:"tools_file"`
	Tool       string `mapstructure:"tool"`
}

// CacheSettings select the hit cache backend.
type CacheSettings struct {
	// Backend is one of none, memory, file, sqlite or redis.
	Backend string        `mapstructure:"backend"`
	Path    string        `mapstructure:"path"`
	Redis   RedisSettings `mapstructure:"redis"`
}

// RedisSettings configure the redis cache and the distributed locker.
type RedisSettings struct {
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	Prefix   string        `mapstructure:"prefix"`
	TTL      time.Duration `mapstructure:"ttl"`
}

// ServerSettings configure the REST server.
type ServerSettings struct {
	Addr            string        `mapstructure:"addr"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// LogSettings configure the logger.
type LogSettings struct {
	Level string `mapstructure:"level"`
}

// Cache backends.
const (
	CacheNone   = "none"
	CacheMemory = "memory"
	CacheFile   = "file"
	CacheSQLite = "sqlite"
	CacheRedis  = "redis"
)

// Default returns the settings used when no file is given.
func Default() File {
	return File{
		Resolution: domain.DefaultConfig(),
		Cache: CacheSettings{
			Backend: CacheNone,
			Redis: RedisSettings{
				Addr:   "localhost:6379",
				Prefix: "domaindetect:",
			},
		},
		Server: ServerSettings{
			Addr:            ":8080",
			ShutdownTimeout: 10 * time.Second,
		},
		Log: LogSettings{Level: "info"},
	}
}

// Load reads path over the defaults. An empty path returns the defaults.
func Load(path string) (File, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config: %w", err)
	}

	raw, err := parse(data, strings.ToLower(filepath.Ext(path)))
	if err != nil {
		return cfg, fmt.Errorf("failed to parse %s: %w", filepath.Base(path), err)
	}
	if err := Decode(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("invalid config %s: %w", filepath.Base(path), err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Decode merges raw into cfg. Keys absent from raw keep their current values.
func Decode(raw map[string]any, cfg *File) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:      cfg,
		ErrorUnused: true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.TextUnmarshallerHookFunc(),
			mapstructure.StringToTimeDurationHookFunc(),
		),
	})
	if err != nil {
		return err
	}
	return dec.Decode(raw)
}

// Validate checks the resolution policy and the backend selection.
func (f File) Validate() error {
	var errs []error
	if err := f.Resolution.Validate(); err != nil {
		errs = append(errs, err)
	}
	switch f.Cache.Backend {
	case CacheNone, CacheMemory, CacheFile, CacheSQLite, CacheRedis:
	default:
		errs = append(errs, &domain.ConfigError{Key: "cache.backend", Reason: "must be none, memory, file, sqlite or redis", Value: f.Cache.Backend})
	}
	if f.Concurrency < 0 {
		errs = append(errs, &domain.ConfigError{Key: "concurrency", Reason: "must be >= 0", Value: f.Concurrency})
	}
	if f.Aligner.HitsFile != "" && f.Aligner.Tool != "" {
		errs = append(errs, &domain.ConfigError{Key: "aligner", Reason: "hits_file and tool are mutually exclusive", Value: f.Aligner.Tool})
	}
	return errors.Join(errs...)
}

func parse(data []byte, ext string) (map[string]any, error) {
	raw := map[string]any{}
	switch ext {
	case ".json":
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, err
		}
	case ".toml":
		if err := toml.Unmarshal(data, &raw); err != nil {
			return nil, err
		}
	case ".yaml", ".yml", "":
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unsupported config format %q", ext)
	}
	return raw, nil
}
