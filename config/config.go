// Package config builds the process configuration once at start up.
//
// Sources are layered, later wins: defaults, an optional JSON file selected
// with -c or CONFIG, environment variables, then command line flags.
package config

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	auth "github.com/goliatone/go-admin-auth"
	"github.com/goliatone/go-admin-auth/repository"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

const (
	DefaultAddress         = ":8080"
	DefaultShutdownTimeout = 5 * time.Second
	DefaultBodyLimit       = 1 << 20
	DefaultDSN             = "file:admin-auth.db?cache=shared"
	DefaultIssuer          = "admin-auth"
	DefaultLogLevel        = "info"
)

type Config struct {
	Env       string          `json:"env"`
	Server    ServerConfig    `json:"server"`
	Database  DatabaseConfig  `json:"database"`
	Auth      auth.Config     `json:"auth"`
	RateLimit RateLimitConfig `json:"rate_limit"`
	Log       LogConfig       `json:"log"`
}

type ServerConfig struct {
	Address         string        `json:"address"`
	ShutdownTimeout time.Duration `json:"shutdown_timeout"`
	BodyLimit       int           `json:"body_limit"`
}

type DatabaseConfig struct {
	Driver string `json:"driver"`
	DSN    string `json:"dsn"`
}

// RateLimitConfig applies to the credential endpoints
type RateLimitConfig struct {
	RPS   float64 `json:"rps"`
	Burst int     `json:"burst"`
}

type LogConfig struct {
	Level string `json:"level"`
}

// Default returns the development defaults. Secrets are left empty so that
// Validate fails until they are provided.
func Default() *Config {
	return &Config{
		Env: EnvDevelopment,
		Server: ServerConfig{
			Address:         DefaultAddress,
			ShutdownTimeout: DefaultShutdownTimeout,
			BodyLimit:       DefaultBodyLimit,
		},
		Database: DatabaseConfig{
			Driver: repository.DriverSQLite,
			DSN:    DefaultDSN,
		},
		Auth: auth.Config{
			Issuer: DefaultIssuer,
		}.WithDefaults(),
		RateLimit: RateLimitConfig{
			RPS:   5,
			Burst: 10,
		},
		Log: LogConfig{
			Level: DefaultLogLevel,
		},
	}
}

// IsProduction reports whether the production profile is selected
func (c *Config) IsProduction() bool {
	return c.Env == EnvProduction
}

// DatabaseOptions maps the database section onto repository options
func (c *Config) DatabaseOptions() repository.Options {
	return repository.Options{
		Driver: c.Database.Driver,
		DSN:    c.Database.DSN,
	}
}

// Redacted returns a copy with secrets masked, safe to print
func (c *Config) Redacted() *Config {
	out := *c
	out.Auth = c.Auth.Redacted()
	return &out
}

// Validate checks the settings the service cannot start without
func (c *Config) Validate() error {
	return validation.Errors{
		"env": validation.Validate(c.Env, validation.In(EnvDevelopment, EnvProduction)),
		"server": validation.ValidateStruct(&c.Server,
			validation.Field(&c.Server.Address, validation.Required),
			validation.Field(&c.Server.ShutdownTimeout, validation.Min(0)),
		),
		"database": validation.ValidateStruct(&c.Database,
			validation.Field(&c.Database.Driver, validation.Required, validation.In(driverNames()...)),
			validation.Field(&c.Database.DSN, validation.Required),
		),
		"auth": validation.ValidateStruct(&c.Auth,
			validation.Field(&c.Auth.AccessSecret, validation.Required),
			validation.Field(&c.Auth.RefreshSecret, validation.Required),
			validation.Field(&c.Auth.AccessTTL, validation.Required, validation.Min(time.Second)),
			validation.Field(&c.Auth.RefreshTTL, validation.Required, validation.Min(time.Second)),
			validation.Field(&c.Auth.CSRFTokenBytes, validation.Min(16)),
		),
		"rate_limit": validation.ValidateStruct(&c.RateLimit,
			validation.Field(&c.RateLimit.RPS, validation.Required, validation.Min(0.0)),
			validation.Field(&c.RateLimit.Burst, validation.Required, validation.Min(1)),
		),
		"log": validation.Validate(c.Log.Level, validation.In("debug", "info", "warn", "error")),
	}.Filter()
}

func driverNames() []any {
	out := make([]any, 0, len(repository.Drivers))
	for _, d := range repository.Drivers {
		out = append(out, d)
	}
	return out
}
