// Package config loads server configuration from defaults, an optional
// .env file and SIPDAH_* environment variables.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/go-viper/mapstructure/v2"
	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix is stripped from environment variable names. A double
// underscore separates nesting levels: SIPDAH_DATABASE__MAX_CONNS maps to
// database.max_conns.
const EnvPrefix = "SIPDAH_"

// Config is the root server configuration.
type Config struct {
	App      AppConfig      `koanf:"app"`
	Log      LogConfig      `koanf:"log"`
	Database DatabaseConfig `koanf:"database"`
	Redis    RedisConfig    `koanf:"redis"`
	JWT      JWTConfig      `koanf:"jwt"`
	Cookie   CookieConfig   `koanf:"cookie"`
}

type AppConfig struct {
	Env             string        `koanf:"env" validate:"oneof=development staging production test"`
	Port            int           `koanf:"port" validate:"min=1,max=65535"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout" validate:"gt=0"`
	BcryptCost      int           `koanf:"bcrypt_cost" validate:"min=4,max=31"`
}

type LogConfig struct {
	Level       string `koanf:"level" validate:"oneof=debug info warn error"`
	Development bool   `koanf:"development"`
}

// DatabaseConfig holds pool and unit-of-work settings.
type DatabaseConfig struct {
	DSN              string        `koanf:"dsn" validate:"required"`
	MaxConns         int32         `koanf:"max_conns" validate:"min=1"`
	MinConns         int32         `koanf:"min_conns" validate:"min=0,ltefield=MaxConns"`
	MaxConnIdleTime  time.Duration `koanf:"max_conn_idle_time"`
	AcquireTimeout   time.Duration `koanf:"acquire_timeout" validate:"gt=0"`
	StatementTimeout time.Duration `koanf:"statement_timeout" validate:"min=0"`
	RollbackTimeout  time.Duration `koanf:"rollback_timeout" validate:"gt=0"`
}

type RedisConfig struct {
	Addr        string        `koanf:"addr" validate:"required,hostname_port"`
	Password    string        `koanf:"password"`
	DB          int           `koanf:"db" validate:"min=0"`
	DialTimeout time.Duration `koanf:"dial_timeout" validate:"gt=0"`
}

// JWTConfig holds token secrets and lifetimes.
type JWTConfig struct {
	AccessSecret  string        `koanf:"access_secret" validate:"required,min=16"`
	AccessTTL     time.Duration `koanf:"access_ttl" validate:"gt=0"`
	RefreshSecret string        `koanf:"refresh_secret" validate:"required,min=16,nefield=AccessSecret"`
	RefreshTTL    time.Duration `koanf:"refresh_ttl" validate:"gtfield=AccessTTL"`
}

type CookieConfig struct {
	Domain string `koanf:"domain"`
	Secure bool   `koanf:"secure"`
}

// Default returns the configuration used when nothing overrides a key.
func Default() Config {
	return Config{
		App: AppConfig{
			Env:             "development",
			Port:            8080,
			ShutdownTimeout: 30 * time.Second,
			BcryptCost:      10,
		},
		Log: LogConfig{
			Level:       "info",
			Development: true,
		},
		Database: DatabaseConfig{
			MaxConns:         10,
			MinConns:         1,
			MaxConnIdleTime:  30 * time.Second,
			AcquireTimeout:   15 * time.Second,
			StatementTimeout: 30 * time.Second,
			RollbackTimeout:  5 * time.Second,
		},
		Redis: RedisConfig{
			Addr:        "localhost:6379",
			DialTimeout: 5 * time.Second,
		},
		JWT: JWTConfig{
			AccessTTL:  15 * time.Minute,
			RefreshTTL: 7 * 24 * time.Hour,
		},
	}
}

// IsProduction reports whether the server runs in production.
func (c *Config) IsProduction() bool {
	return c.App.Env == "production"
}

// Load reads dotenv files (missing files are skipped), then applies
// defaults and environment overrides, and validates the result.
func Load(dotenvFiles ...string) (*Config, error) {
	for _, path := range dotenvFiles {
		if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", path, err)
		}
	}

	k := koanf.New(".")

	if err := k.Load(structs.Provider(Default(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if err := k.Load(env.Provider(".", env.Opt{
		Prefix:        EnvPrefix,
		TransformFunc: transformEnvKey,
	}), nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{
		Tag: "koanf",
		DecoderConfig: &mapstructure.DecoderConfig{
			WeaklyTypedInput: true,
			Result:           &cfg,
			TagName:          "koanf",
			DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
		},
	}); err != nil {
		return nil, fmt.Errorf("unmarshal configuration: %w", err)
	}

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// transformEnvKey maps SIPDAH_JWT__ACCESS_TTL to jwt.access_ttl.
func transformEnvKey(key, value string) (string, any) {
	key = strings.ToLower(strings.TrimPrefix(key, EnvPrefix))
	return strings.ReplaceAll(key, "__", "."), value
}
