// Package config loads server settings from a YAML file, a .env file and
// LUCCA_* environment variables, in increasing order of precedence.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

const DefaultPath = "config.yaml"

type Config struct {
	Addr         string        `yaml:"addr"`
	LogLevel     string        `yaml:"logLevel"`
	Database     Database      `yaml:"database"`
	Auth         Auth          `yaml:"auth"`
	Redis        Redis         `yaml:"redis"`
	WS           WS            `yaml:"ws"`
	StoreTimeout time.Duration `yaml:"storeTimeout"`
}

type Database struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

type Auth struct {
	Secret string        `yaml:"secret"`
	MaxAge time.Duration `yaml:"maxAge"`
	// Timeout closes connections that have not authenticated in time.
	Timeout time.Duration `yaml:"timeout"`
}

// Redis is optional; presence tracking is disabled without an address.
type Redis struct {
	Addr        string        `yaml:"addr"`
	Password    string        `yaml:"password"`
	DB          int           `yaml:"db"`
	PresenceTTL time.Duration `yaml:"presenceTTL"`
}

type WS struct {
	SendBuffer      int   `yaml:"sendBuffer"`
	MaxMessageBytes int64 `yaml:"maxMessageBytes"`
	// AllowedOrigins restricts browser upgrades; empty allows any origin.
	AllowedOrigins []string `yaml:"allowedOrigins"`
}

// Load reads path (DefaultPath when empty). A missing default file is not an
// error; a missing explicit one is.
func Load(path string) (Config, error) {
	cfg := Config{}

	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return cfg, errors.Wrap(err, "load .env")
	}

	explicit := path != ""
	if !explicit {
		path = DefaultPath
	}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, errors.Wrap(err, "parse config")
		}
	case explicit || !os.IsNotExist(err):
		return cfg, errors.Wrap(err, "read config")
	}

	if err := applyEnv(&cfg); err != nil {
		return cfg, err
	}
	applyDefaults(&cfg)
	if err := validate(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) error {
	override := func(key string, dst *string) {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			*dst = v
		}
	}
	override("LUCCA_ADDR", &cfg.Addr)
	override("LUCCA_LOG_LEVEL", &cfg.LogLevel)
	override("LUCCA_DB_DRIVER", &cfg.Database.Driver)
	override("LUCCA_DB_DSN", &cfg.Database.DSN)
	override("LUCCA_AUTH_SECRET", &cfg.Auth.Secret)
	override("LUCCA_REDIS_ADDR", &cfg.Redis.Addr)
	override("LUCCA_REDIS_PASSWORD", &cfg.Redis.Password)

	if v := os.Getenv("LUCCA_WS_ALLOWED_ORIGINS"); v != "" {
		cfg.WS.AllowedOrigins = nil
		for _, o := range strings.Split(v, ",") {
			if o = strings.TrimSpace(o); o != "" {
				cfg.WS.AllowedOrigins = append(cfg.WS.AllowedOrigins, o)
			}
		}
	}
	if v := os.Getenv("LUCCA_REDIS_DB"); v != "" {
		db, err := strconv.Atoi(v)
		if err != nil {
			return errors.Wrap(err, "LUCCA_REDIS_DB")
		}
		cfg.Redis.DB = db
	}
	return nil
}

func applyDefaults(cfg *Config) {
	if cfg.Addr == "" {
		cfg.Addr = ":8080"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.Database.Driver == "" {
		cfg.Database.Driver = "sqlite3"
	}
	if cfg.Database.DSN == "" && cfg.Database.Driver == "sqlite3" {
		cfg.Database.DSN = "luccachat.db"
	}
	if cfg.Auth.MaxAge == 0 {
		cfg.Auth.MaxAge = 7 * 24 * time.Hour
	}
	if cfg.Auth.Timeout == 0 {
		cfg.Auth.Timeout = 30 * time.Second
	}
	if cfg.Redis.PresenceTTL == 0 {
		cfg.Redis.PresenceTTL = 90 * time.Second
	}
	if cfg.WS.SendBuffer == 0 {
		cfg.WS.SendBuffer = 256
	}
	if cfg.WS.MaxMessageBytes == 0 {
		cfg.WS.MaxMessageBytes = 64 * 1024
	}
	if cfg.StoreTimeout == 0 {
		cfg.StoreTimeout = 5 * time.Second
	}
}

func validate(cfg Config) error {
	switch cfg.Database.Driver {
	case "sqlite3", "postgres":
	default:
		return errors.Errorf("config: unsupported database driver %q", cfg.Database.Driver)
	}
	if cfg.Database.DSN == "" {
		return errors.New("config: database.dsn is required (set in config.yaml or LUCCA_DB_DSN)")
	}
	if cfg.Auth.Secret == "" {
		return errors.New("config: auth.secret is required (set in config.yaml or LUCCA_AUTH_SECRET)")
	}
	if cfg.Auth.MaxAge < 0 || cfg.Auth.Timeout < 0 || cfg.StoreTimeout < 0 {
		return errors.New("config: durations must not be negative")
	}
	if cfg.WS.SendBuffer < 0 || cfg.WS.MaxMessageBytes < 0 {
		return errors.New("config: ws limits must not be negative")
	}
	return nil
}
