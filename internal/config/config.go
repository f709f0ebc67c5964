// Package config assembles the runtime settings of the wizard binaries.
//
// Sources are layered, later ones winning: built-in defaults, an optional
// .env file, an optional YAML file, then WIZARD_* environment variables.
// Command-line flags are applied on top by the caller.
package config

import (
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Store drivers.
const (
	DriverMemory = "memory"
	DriverFile   = "file"
	DriverRedis  = "redis"
	DriverSQLite = "sqlite"
)

// EnvPrefix namespaces every environment variable read by Load.
const EnvPrefix = "WIZARD_"

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("invalid configuration")

// Store selects and configures the session store.
type Store struct {
	Driver        string        `yaml:"driver"`
	Path          string        `yaml:"path"`
	RedisAddr     string        `yaml:"redis_addr"`
	RedisPassword string        `yaml:"redis_password"`
	RedisDB       int           `yaml:"redis_db"`
	TTL           time.Duration `yaml:"ttl"`
}

// Config holds everything the server and CLI need.
type Config struct {
	Addr       string `yaml:"addr"`
	BackendURL string `yaml:"backend_url"`
	Token      string `yaml:"token"`
	GuidesDir  string `yaml:"guides_dir"`
	Store      Store  `yaml:"store"`

	// EncryptionKey is a base64 encoded 32 byte AES key. Empty disables encryption at rest.
	EncryptionKey string `yaml:"encryption_key"`

	WriteInterval time.Duration `yaml:"write_interval"`
	MaxSessions   int           `yaml:"max_sessions"`
	Debug         bool          `yaml:"debug"`

	// LogFormat is "text" or "json".
	LogFormat string `yaml:"log_format"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		Addr:        ":8080",
		GuidesDir:   "guides",
		MaxSessions: 1024,
		LogFormat:   "text",
		Store: Store{
			Driver: DriverFile,
			Path:   ".wizard/sessions",
			TTL:    30 * 24 * time.Hour,
		},
	}
}

// Sources names the optional files Load reads. Empty paths are skipped.
type Sources struct {
	EnvFile    string
	ConfigFile string
}

// Load layers the sources over Default and validates the result.
// A missing .env file is ignored; a missing config file is an error.
func Load(src Sources) (Config, error) {
	cfg := Default()

	if src.EnvFile != "" {
		dotenv, err := godotenv.Read(src.EnvFile)
		switch {
		case err == nil:
			if err := cfg.applyEnv(mapLookup(dotenv)); err != nil {
				return Config{}, fmt.Errorf("%s: %w", src.EnvFile, err)
			}
		case errors.Is(err, os.ErrNotExist):
		default:
			return Config{}, fmt.Errorf("read %s: %w", src.EnvFile, err)
		}
	}

	configFile := src.ConfigFile
	if configFile == "" {
		configFile = os.Getenv(EnvPrefix + "CONFIG")
	}
	if configFile != "" {
		data, err := os.ReadFile(configFile)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse %s: %w", configFile, err)
		}
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

type lookupFunc func(key string) (string, bool)

func mapLookup(m map[string]string) lookupFunc {
	return func(key string) (string, bool) {
		v, ok := m[key]
		return v, ok
	}
}

func (c *Config) applyEnv(lookup lookupFunc) error {
	str := func(name string, dst *string) {
		if v, ok := lookup(EnvPrefix + name); ok {
			*dst = strings.TrimSpace(v)
		}
	}
	var errs []error
	num := func(name string, dst *int) {
		if v, ok := lookup(EnvPrefix + name); ok {
			n, err := strconv.Atoi(strings.TrimSpace(v))
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, name, err))
				return
			}
			*dst = n
		}
	}
	dur := func(name string, dst *time.Duration) {
		if v, ok := lookup(EnvPrefix + name); ok {
			d, err := time.ParseDuration(strings.TrimSpace(v))
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, name, err))
				return
			}
			*dst = d
		}
	}
	flag := func(name string, dst *bool) {
		if v, ok := lookup(EnvPrefix + name); ok {
			b, err := strconv.ParseBool(strings.TrimSpace(v))
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, name, err))
				return
			}
			*dst = b
		}
	}

	str("ADDR", &c.Addr)
	str("BACKEND_URL", &c.BackendURL)
	str("TOKEN", &c.Token)
	str("GUIDES_DIR", &c.GuidesDir)
	str("STORE_DRIVER", &c.Store.Driver)
	str("STORE_PATH", &c.Store.Path)
	str("REDIS_ADDR", &c.Store.RedisAddr)
	str("REDIS_PASSWORD", &c.Store.RedisPassword)
	num("REDIS_DB", &c.Store.RedisDB)
	dur("SESSION_TTL", &c.Store.TTL)
	str("ENCRYPTION_KEY", &c.EncryptionKey)
	dur("WRITE_INTERVAL", &c.WriteInterval)
	num("MAX_SESSIONS", &c.MaxSessions)
	flag("DEBUG", &c.Debug)
	str("LOG_FORMAT", &c.LogFormat)

	return errors.Join(errs...)
}

// Validate checks the settings for consistency.
func (c Config) Validate() error {
	var errs []error
	invalid := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: "+format, append([]any{ErrInvalid}, args...)...))
	}

	if strings.TrimSpace(c.Addr) == "" {
		invalid("addr must not be empty")
	}
	switch c.Store.Driver {
	case DriverMemory:
	case DriverFile, DriverSQLite:
		if c.Store.Path == "" {
			invalid("store driver %q needs a path", c.Store.Driver)
		}
	case DriverRedis:
		if c.Store.RedisAddr == "" {
			invalid("store driver %q needs redis_addr", c.Store.Driver)
		}
	default:
		invalid("unknown store driver %q", c.Store.Driver)
	}
	if c.Store.TTL < 0 {
		invalid("session ttl must not be negative")
	}
	if c.WriteInterval < 0 {
		invalid("write interval must not be negative")
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		invalid("unknown log format %q", c.LogFormat)
	}
	if c.MaxSessions < 0 {
		invalid("max sessions must not be negative")
	}
	if _, err := c.EncryptionKeyBytes(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// EncryptionKeyBytes decodes EncryptionKey. It returns nil when encryption is disabled.
func (c Config) EncryptionKeyBytes() ([]byte, error) {
	if c.EncryptionKey == "" {
		return nil, nil
	}
	key, err := base64.StdEncoding.DecodeString(c.EncryptionKey)
	if err != nil {
		return nil, fmt.Errorf("%w: encryption key is not base64: %v", ErrInvalid, err)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("%w: encryption key must be 32 bytes, got %d", ErrInvalid, len(key))
	}
	return key, nil
}

// LogLevel maps Debug onto a slog level.
func (c Config) LogLevel() slog.Level {
	if c.Debug {
		return slog.LevelDebug
	}
	return slog.LevelInfo
}
