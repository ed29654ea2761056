// Package config loads emulator settings from the environment and an
// optional .env file.
package config

import (
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	"github.com/prognoshealth/vtlemu/mapping"
	"github.com/prognoshealth/vtlemu/vtl"
)

// Config holds all emulator configuration.
type Config struct {
	Render    RenderConfig
	Engine    EngineConfig
	LogLevel  string
	Port      string
	RateLimit RateLimitConfig
}

// RenderConfig holds the per-render defaults.
type RenderConfig struct {
	ThrowOnError       bool
	MinifyJSON         bool
	PreserveWhitespace bool
	JSONMiss           string
}

// EngineConfig holds template engine settings.
type EngineConfig struct {
	EmptyCheck  bool
	GobbleLines bool
	MaxLoops    int
	CacheSize   int
}

// RateLimitConfig holds the dev server rate limit.
type RateLimitConfig struct {
	RequestsPerSecond float64
	Burst             int
}

// Load reads configuration from the environment. A .env file in the working
// directory is applied first when present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()
	setDefaults(v)

	return fromViper(v)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("VTL_THROW_ON_ERROR", false)
	v.SetDefault("VTL_MINIFY_JSON", false)
	v.SetDefault("VTL_PRESERVE_WHITESPACE", false)
	v.SetDefault("VTL_JSON_MISS", "empty")
	v.SetDefault("VTL_EMPTY_CHECK", false)
	v.SetDefault("VTL_GOBBLE_LINES", false)
	v.SetDefault("VTL_MAX_LOOPS", vtl.DefaultMaxLoops)
	v.SetDefault("VTL_CACHE_SIZE", 256)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("PORT", "8080")
	v.SetDefault("RATE_LIMIT_RPS", 50.0)
	v.SetDefault("RATE_LIMIT_BURST", 100)
}

func fromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		Render: RenderConfig{
			ThrowOnError:       v.GetBool("VTL_THROW_ON_ERROR"),
			MinifyJSON:         v.GetBool("VTL_MINIFY_JSON"),
			PreserveWhitespace: v.GetBool("VTL_PRESERVE_WHITESPACE"),
			JSONMiss:           v.GetString("VTL_JSON_MISS"),
		},
		Engine: EngineConfig{
			EmptyCheck:  v.GetBool("VTL_EMPTY_CHECK"),
			GobbleLines: v.GetBool("VTL_GOBBLE_LINES"),
			MaxLoops:    v.GetInt("VTL_MAX_LOOPS"),
			CacheSize:   v.GetInt("VTL_CACHE_SIZE"),
		},
		LogLevel: v.GetString("LOG_LEVEL"),
		Port:     v.GetString("PORT"),
		RateLimit: RateLimitConfig{
			RequestsPerSecond: v.GetFloat64("RATE_LIMIT_RPS"),
			Burst:             v.GetInt("RATE_LIMIT_BURST"),
		},
	}

	if _, err := mapping.ParseJSONMiss(cfg.Render.JSONMiss); err != nil {
		return nil, errors.Wrap(err, "invalid VTL_JSON_MISS")
	}
	if _, err := logrus.ParseLevel(cfg.LogLevel); err != nil {
		return nil, errors.Wrap(err, "invalid LOG_LEVEL")
	}

	return cfg, nil
}

// RenderOptions returns the default options for each render.
func (c *Config) RenderOptions() mapping.Options {
	miss, _ := mapping.ParseJSONMiss(c.Render.JSONMiss)

	return mapping.Options{
		ThrowOnError:       c.Render.ThrowOnError,
		MinifyJSON:         c.Render.MinifyJSON,
		PreserveWhitespace: c.Render.PreserveWhitespace,
		JSONMiss:           miss,
	}
}

// EngineOptions returns the template engine options. A parse cache is
// created when CacheSize is positive; the caller owns closing it.
func (c *Config) EngineOptions() ([]vtl.Option, *vtl.Cache, error) {
	opts := []vtl.Option{
		vtl.WithEmptyCheck(c.Engine.EmptyCheck),
		vtl.WithLineGobbling(c.Engine.GobbleLines),
		vtl.WithMaxLoops(c.Engine.MaxLoops),
	}

	if c.Engine.CacheSize <= 0 {
		return opts, nil, nil
	}

	cache, err := vtl.NewCache(int64(c.Engine.CacheSize))
	if err != nil {
		return nil, nil, errors.Wrap(err, "failed creating template cache")
	}

	return append(opts, vtl.WithCache(cache)), cache, nil
}

// Logger returns a logrus logger at the configured level.
func (c *Config) Logger() *logrus.Logger {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	if level, err := logrus.ParseLevel(c.LogLevel); err == nil {
		logger.SetLevel(level)
	}

	return logger
}
