// Package config handles TomatoClock configuration using Viper.
//
// Configuration sources (in priority order):
//  1. Environment variables (TOMATOCLOCK_*)
//  2. Config file (<UserConfigDir>/tomatoclock/config.yaml, or --config)
//  3. Built-in defaults
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/spf13/viper"

	"tomatoclock/internal/core/model"
	"tomatoclock/internal/storage"
)

// AppName names the config, data and runtime directories.
const AppName = "tomatoclock"

const (
	// DefaultPersistEvery is how often tick-only changes are written out.
	DefaultPersistEvery = 30 * time.Second
	// DefaultRateLimit is the HTTP API request budget per second.
	DefaultRateLimit = 5.0
)

// Config holds the TomatoClock configuration.
type Config struct {
	mu   sync.Mutex
	v    *viper.Viper
	path string
}

// Settings is the typed view of the configuration used to wire the application.
type Settings struct {
	Engine        model.EngineConfig
	PersistEvery  time.Duration
	StorageDir    string
	SessionDir    string
	HTTPAddr      string
	HTTPRateLimit float64
	LogLevel      string
	LogFormat     string
	// TracingExporter is one of none, stdout or otlp.
	TracingExporter string
	TracingEndpoint string
	Notifications   bool
	// Sound plays the completion alarm.
	Sound bool
}

// Load reads configuration from all sources. An explicit path must exist;
// the default config file is optional.
func Load(explicitPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	path := explicitPath
	if explicitPath != "" {
		v.SetConfigFile(explicitPath)
	} else {
		configDir, err := os.UserConfigDir()
		if err == nil {
			dir := filepath.Join(configDir, AppName)
			v.AddConfigPath(dir)
			v.SetConfigName("config")
			v.SetConfigType("yaml")
			path = filepath.Join(dir, "config.yaml")
		}
	}

	v.SetEnvPrefix("TOMATOCLOCK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if explicitPath != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}
	if used := v.ConfigFileUsed(); used != "" {
		path = used
	}

	return &Config{v: v, path: path}, nil
}

func setDefaults(v *viper.Viper) {
	engine := model.DefaultEngineConfig()
	v.SetDefault("durations.work", engine.Defaults.Durations.Work)
	v.SetDefault("durations.short_break", engine.Defaults.Durations.ShortBreak)
	v.SetDefault("durations.long_break", engine.Defaults.Durations.LongBreak)
	v.SetDefault("auto_advance", engine.Defaults.AutoAdvance)
	v.SetDefault("timer.tick_interval", engine.TickInterval)
	v.SetDefault("timer.auto_advance_delay", engine.AutoAdvanceDelay)
	v.SetDefault("timer.stale_after", engine.StaleAfter)
	v.SetDefault("timer.persist_every", DefaultPersistEvery)
	v.SetDefault("timer.long_break_every", engine.LongBreakEvery)
	v.SetDefault("storage.dir", "")
	v.SetDefault("storage.session_dir", "")
	v.SetDefault("http.addr", "")
	v.SetDefault("http.rate_limit", DefaultRateLimit)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("tracing.exporter", "none")
	v.SetDefault("tracing.endpoint", "")
	v.SetDefault("notifications.enabled", true)
	v.SetDefault("notifications.sound", true)
}

// Path returns the config file location, whether or not it exists yet.
func (c *Config) Path() string {
	return c.path
}

// Set overrides a key for this process, e.g. from a command-line flag.
func (c *Config) Set(key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.v.Set(key, value)
}

// Preferences returns the configured default durations and auto-advance flag.
// Invalid durations fall back to the built-in defaults.
func (c *Config) Preferences() model.Preferences {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.preferencesLocked()
}

func (c *Config) preferencesLocked() model.Preferences {
	durations := model.Durations{
		Work:       c.v.GetInt("durations.work"),
		ShortBreak: c.v.GetInt("durations.short_break"),
		LongBreak:  c.v.GetInt("durations.long_break"),
	}
	if !durations.Valid() {
		durations = model.DefaultDurations()
	}
	return model.Preferences{
		Durations:   durations,
		AutoAdvance: c.v.GetBool("auto_advance"),
	}
}

// Settings resolves every key into typed values.
func (c *Config) Settings() (Settings, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	engine := model.DefaultEngineConfig()
	engine.Defaults = c.preferencesLocked()
	engine.TickInterval = c.v.GetDuration("timer.tick_interval")
	engine.AutoAdvanceDelay = c.v.GetDuration("timer.auto_advance_delay")
	engine.StaleAfter = c.v.GetDuration("timer.stale_after")
	engine.LongBreakEvery = c.v.GetInt("timer.long_break_every")

	settings := Settings{
		Engine:          engine,
		PersistEvery:    c.v.GetDuration("timer.persist_every"),
		StorageDir:      c.v.GetString("storage.dir"),
		SessionDir:      c.v.GetString("storage.session_dir"),
		HTTPAddr:        c.v.GetString("http.addr"),
		HTTPRateLimit:   c.v.GetFloat64("http.rate_limit"),
		LogLevel:        c.v.GetString("log.level"),
		LogFormat:       c.v.GetString("log.format"),
		TracingExporter: strings.ToLower(c.v.GetString("tracing.exporter")),
		TracingEndpoint: c.v.GetString("tracing.endpoint"),
		Notifications:   c.v.GetBool("notifications.enabled"),
		Sound:           c.v.GetBool("notifications.sound"),
	}
	if settings.PersistEvery <= 0 {
		settings.PersistEvery = DefaultPersistEvery
	}
	if settings.HTTPRateLimit <= 0 {
		settings.HTTPRateLimit = DefaultRateLimit
	}

	if settings.StorageDir == "" {
		dir, err := storage.DefaultDir(AppName)
		if err != nil {
			return settings, err
		}
		settings.StorageDir = dir
	}
	if settings.SessionDir == "" {
		settings.SessionDir = storage.SessionDir(AppName)
	}

	switch settings.TracingExporter {
	case "", "none", "stdout", "otlp":
	default:
		return settings, fmt.Errorf("invalid tracing exporter: %q (allowed: none, stdout, otlp)", settings.TracingExporter)
	}
	return settings, nil
}

func (c *Config) reload() (model.Preferences, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.v.ReadInConfig(); err != nil {
		return model.Preferences{}, err
	}
	return c.preferencesLocked(), nil
}
