package config

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"
)

// Getenv matches os.Getenv, injectable for tests
type Getenv func(key string) string

// fileConfig is the JSON document shape. Durations are strings such as
// "15m" or "7d".
type fileConfig struct {
	Env    string `json:"env"`
	Server struct {
		Address         string `json:"address"`
		ShutdownTimeout string `json:"shutdown_timeout"`
		BodyLimit       int    `json:"body_limit"`
	} `json:"server"`
	Database struct {
		Driver string `json:"driver"`
		DSN    string `json:"dsn"`
	} `json:"database"`
	Auth struct {
		AccessSecret      string `json:"access_secret"`
		RefreshSecret     string `json:"refresh_secret"`
		AccessTTL         string `json:"access_ttl"`
		RefreshTTL        string `json:"refresh_ttl"`
		Issuer            string `json:"issuer"`
		BcryptCost        int    `json:"bcrypt_cost"`
		CookieSecure      *bool  `json:"cookie_secure"`
		AccessCookieName  string `json:"access_cookie_name"`
		RefreshCookieName string `json:"refresh_cookie_name"`
		CSRFCookieName    string `json:"csrf_cookie_name"`
		CSRFHeaderName    string `json:"csrf_header_name"`
	} `json:"auth"`
	RateLimit struct {
		RPS   float64 `json:"rps"`
		Burst int     `json:"burst"`
	} `json:"rate_limit"`
	Log struct {
		Level string `json:"level"`
	} `json:"log"`
}

// flagValues holds what the command line provided; only flags that were
// actually set are applied
type flagValues struct {
	configPath string
	env        string
	address    string
	driver     string
	dsn        string
	logLevel   string
}

// Load builds the configuration from args (without the program name) and
// the environment. The returned Config has not been validated.
func Load(args []string, getenv Getenv) (*Config, error) {
	if getenv == nil {
		getenv = os.Getenv
	}

	fv := flagValues{}
	fs := flag.NewFlagSet("admin-auth", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.StringVar(&fv.configPath, "c", "", "path to a JSON config file")
	fs.StringVar(&fv.env, "env", "", "environment: development or production")
	fs.StringVar(&fv.address, "addr", "", "listen address")
	fs.StringVar(&fv.driver, "db-driver", "", "database driver: sqlite or postgres")
	fs.StringVar(&fv.dsn, "db-dsn", "", "database DSN")
	fs.StringVar(&fv.logLevel, "log-level", "", "log level")

	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("parse flags: %w", err)
	}

	cfg := Default()

	path := fv.configPath
	if path == "" {
		path = getenv("CONFIG")
	}
	if path != "" {
		if err := applyFile(cfg, path); err != nil {
			return nil, err
		}
	}

	if err := applyEnv(cfg, getenv); err != nil {
		return nil, err
	}

	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "env":
			cfg.Env = fv.env
		case "addr":
			cfg.Server.Address = fv.address
		case "db-driver":
			cfg.Database.Driver = fv.driver
		case "db-dsn":
			cfg.Database.DSN = fv.dsn
		case "log-level":
			cfg.Log.Level = fv.logLevel
		}
	})

	if cfg.IsProduction() {
		cfg.Auth.CookieSecure = true
	}
	cfg.Auth = cfg.Auth.WithDefaults()

	return cfg, nil
}

func applyFile(cfg *Config, path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	fc := fileConfig{}
	if err := json.Unmarshal(raw, &fc); err != nil {
		return fmt.Errorf("decode config file %s: %w", path, err)
	}

	setString(&cfg.Env, fc.Env)
	setString(&cfg.Server.Address, fc.Server.Address)
	if err := setDuration(&cfg.Server.ShutdownTimeout, fc.Server.ShutdownTimeout); err != nil {
		return fmt.Errorf("server.shutdown_timeout: %w", err)
	}
	if fc.Server.BodyLimit > 0 {
		cfg.Server.BodyLimit = fc.Server.BodyLimit
	}

	setString(&cfg.Database.Driver, fc.Database.Driver)
	setString(&cfg.Database.DSN, fc.Database.DSN)

	setString(&cfg.Auth.AccessSecret, fc.Auth.AccessSecret)
	setString(&cfg.Auth.RefreshSecret, fc.Auth.RefreshSecret)
	if err := setDuration(&cfg.Auth.AccessTTL, fc.Auth.AccessTTL); err != nil {
		return fmt.Errorf("auth.access_ttl: %w", err)
	}
	if err := setDuration(&cfg.Auth.RefreshTTL, fc.Auth.RefreshTTL); err != nil {
		return fmt.Errorf("auth.refresh_ttl: %w", err)
	}
	setString(&cfg.Auth.Issuer, fc.Auth.Issuer)
	if fc.Auth.BcryptCost > 0 {
		cfg.Auth.BcryptCost = fc.Auth.BcryptCost
	}
	if fc.Auth.CookieSecure != nil {
		cfg.Auth.CookieSecure = *fc.Auth.CookieSecure
	}
	setString(&cfg.Auth.AccessCookieName, fc.Auth.AccessCookieName)
	setString(&cfg.Auth.RefreshCookieName, fc.Auth.RefreshCookieName)
	setString(&cfg.Auth.CSRFCookieName, fc.Auth.CSRFCookieName)
	setString(&cfg.Auth.CSRFHeaderName, fc.Auth.CSRFHeaderName)

	if fc.RateLimit.RPS > 0 {
		cfg.RateLimit.RPS = fc.RateLimit.RPS
	}
	if fc.RateLimit.Burst > 0 {
		cfg.RateLimit.Burst = fc.RateLimit.Burst
	}
	setString(&cfg.Log.Level, fc.Log.Level)

	return nil
}

// applyEnv reads the environment. The access and refresh secrets fall back
// to JWT_SECRET when their own variable is unset.
func applyEnv(cfg *Config, getenv Getenv) error {
	env := firstOf(getenv, "APP_ENV", "NODE_ENV")
	setString(&cfg.Env, strings.ToLower(env))

	setString(&cfg.Server.Address, getenv("HTTP_ADDR"))
	if port := getenv("PORT"); port != "" && getenv("HTTP_ADDR") == "" {
		cfg.Server.Address = ":" + strings.TrimPrefix(port, ":")
	}

	setString(&cfg.Database.Driver, getenv("DATABASE_DRIVER"))
	setString(&cfg.Database.DSN, getenv("DATABASE_URL"))

	setString(&cfg.Auth.AccessSecret, firstOf(getenv, "JWT_ACCESS_SECRET", "JWT_SECRET"))
	setString(&cfg.Auth.RefreshSecret, firstOf(getenv, "JWT_REFRESH_SECRET", "JWT_SECRET"))
	if err := setDuration(&cfg.Auth.AccessTTL, getenv("JWT_ACCESS_EXPIRES_IN")); err != nil {
		return fmt.Errorf("JWT_ACCESS_EXPIRES_IN: %w", err)
	}
	if err := setDuration(&cfg.Auth.RefreshTTL, getenv("JWT_REFRESH_EXPIRES_IN")); err != nil {
		return fmt.Errorf("JWT_REFRESH_EXPIRES_IN: %w", err)
	}
	setString(&cfg.Auth.Issuer, getenv("JWT_ISSUER"))

	if v := getenv("BCRYPT_COST"); v != "" {
		cost, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("BCRYPT_COST: %w", err)
		}
		cfg.Auth.BcryptCost = cost
	}

	if v := getenv("RATE_LIMIT_RPS"); v != "" {
		rps, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("RATE_LIMIT_RPS: %w", err)
		}
		cfg.RateLimit.RPS = rps
	}
	if v := getenv("RATE_LIMIT_BURST"); v != "" {
		burst, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("RATE_LIMIT_BURST: %w", err)
		}
		cfg.RateLimit.Burst = burst
	}

	setString(&cfg.Log.Level, strings.ToLower(getenv("LOG_LEVEL")))
	return nil
}

// ParseDuration accepts Go durations, a day suffix ("7d") and bare numbers
// read as seconds
func ParseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty duration")
	}

	if days, ok := strings.CutSuffix(s, "d"); ok {
		n, err := strconv.Atoi(days)
		if err != nil {
			return 0, fmt.Errorf("invalid duration %q", s)
		}
		return time.Duration(n) * 24 * time.Hour, nil
	}

	if n, err := strconv.Atoi(s); err == nil {
		return time.Duration(n) * time.Second, nil
	}

	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q", s)
	}
	return d, nil
}

func setDuration(dst *time.Duration, raw string) error {
	if raw == "" {
		return nil
	}
	d, err := ParseDuration(raw)
	if err != nil {
		return err
	}
	*dst = d
	return nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func firstOf(getenv Getenv, keys ...string) string {
	for _, k := range keys {
		if v := getenv(k); v != "" {
			return v
		}
	}
	return ""
}
