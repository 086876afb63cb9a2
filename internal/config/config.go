// Package config loads runtime settings in three layers: built-in defaults,
// an optional YAML file, then environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// ConfigPathEnvVar overrides the config file location.
const ConfigPathEnvVar = "CONFIG_PATH"

var DefaultConfigPaths = []string{
	"config.yaml",
	"configs/config.yaml",
}

type Config struct {
	Address      string        `koanf:"address"`
	PlacesPath   string        `koanf:"places_path"`
	WeightsPath  string        `koanf:"weights_path"`
	SQLitePath   string        `koanf:"sqlite_path"`
	ReadTimeout  time.Duration `koanf:"read_timeout"`
	WriteTimeout time.Duration `koanf:"write_timeout"`
	Log          LogConfig     `koanf:"log"`
	Cache        CacheConfig   `koanf:"cache"`
}

type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

type CacheConfig struct {
	// ScoreMemoSize is the number of memoized match scores; 0 disables memoization.
	ScoreMemoSize int           `koanf:"score_memo_size"`
	PageSize      int           `koanf:"page_size"`
	PageTTL       time.Duration `koanf:"page_ttl"`
	// ValkeyAddr enables the shared page cache when set.
	ValkeyAddr string `koanf:"valkey_addr"`
}

func defaultConfig() Config {
	return Config{
		Address:      ":8080",
		PlacesPath:   "data/places.json",
		WeightsPath:  "configs/weights.json",
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		Cache: CacheConfig{
			ScoreMemoSize: 0,
			PageSize:      1000,
			PageTTL:       time.Minute,
		},
	}
}

// envMappings keeps the historical flat variable names working.
var envMappings = map[string]string{
	"api_address":        "address",
	"places_path":        "places_path",
	"weights_path":       "weights_path",
	"sqlite_path":        "sqlite_path",
	"http_read_timeout":  "read_timeout",
	"http_write_timeout": "write_timeout",
	"log_level":          "log.level",
	"log_format":         "log.format",
	"score_memo_size":    "cache.score_memo_size",
	"page_cache_size":    "cache.page_size",
	"page_cache_ttl":     "cache.page_ttl",
	"valkey_addr":        "cache.valkey_addr",
}

func envTransform(key string) string {
	return envMappings[strings.ToLower(key)]
}

// Load builds the configuration: defaults < YAML file < environment.
func Load() (*Config, error) {
	k := koanf.New(".")
	defaults := defaultConfig()

	if err := k.Load(structs.Provider(&defaults, "koanf"), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if path := findConfigFile(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	// Unmapped variables transform to "" and are skipped.
	if err := k.Load(env.Provider("", ".", envTransform), nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func findConfigFile() string {
	if p := os.Getenv(ConfigPathEnvVar); p != "" {
		return p
	}
	for _, p := range DefaultConfigPaths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

func (c *Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Address) == "" {
		errs = append(errs, errors.New("address is required"))
	}
	if c.PlacesPath == "" && c.SQLitePath == "" {
		errs = append(errs, errors.New("one of places_path or sqlite_path is required"))
	}
	if c.Cache.ScoreMemoSize < 0 {
		errs = append(errs, errors.New("cache.score_memo_size must be >= 0"))
	}
	if c.Cache.PageSize < 0 {
		errs = append(errs, errors.New("cache.page_size must be >= 0"))
	}
	switch strings.ToLower(c.Log.Format) {
	case "json", "console":
	default:
		errs = append(errs, fmt.Errorf("log.format must be json or console, got %q", c.Log.Format))
	}
	return errors.Join(errs...)
}
