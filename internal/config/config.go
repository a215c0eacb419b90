// Package config loads the service configuration.
//
// Values come from built-in defaults, then an optional YAML file, then
// environment variables, each layer overriding the previous one.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gopkg.in/yaml.v3"
)

// Environment names.
const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
	EnvTest        = "test"
)

// Config is the full service configuration.
type Config struct {
	Env        string   `yaml:"env"`
	Version    string   `yaml:"version"`
	Server     Server   `yaml:"server"`
	Database   Database `yaml:"database"`
	Log        Log      `yaml:"log"`
	Trace      Trace    `yaml:"trace"`
	Auth       Auth     `yaml:"auth"`
	BcryptCost int      `yaml:"bcrypt_cost"`
}

type Server struct {
	Addr              string        `yaml:"addr"`
	ReadTimeout       time.Duration `yaml:"read_timeout"`
	ReadHeaderTimeout time.Duration `yaml:"read_header_timeout"`
	WriteTimeout      time.Duration `yaml:"write_timeout"`
	IdleTimeout       time.Duration `yaml:"idle_timeout"`
	ShutdownTimeout   time.Duration `yaml:"shutdown_timeout"`
	// RequestTimeout bounds one controller invocation.
	RequestTimeout time.Duration `yaml:"request_timeout"`
	// CrashOnPanic stops the process once a recovered controller panic has been answered.
	CrashOnPanic bool `yaml:"crash_on_panic"`
}

type Database struct {
	// URL selects PostgreSQL. Empty means the in-memory store.
	URL      string `yaml:"url"`
	MaxConns int    `yaml:"max_conns"`
}

type Log struct {
	Level  string `yaml:"level"`
	Pretty bool   `yaml:"pretty"`
}

type Trace struct {
	Header string `yaml:"header"`
}

// Auth settings are loaded for completeness; no endpoint authenticates yet.
type Auth struct {
	JWTSecret             string `yaml:"jwt_secret"`
	JWTExpiresIn          string `yaml:"jwt_expires_in"`
	RefreshTokenExpiresIn string `yaml:"refresh_token_expires_in"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Env:     EnvDevelopment,
		Version: "1.0.0",
		Server: Server{
			Addr:              ":3000",
			ReadTimeout:       15 * time.Second,
			ReadHeaderTimeout: 5 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       60 * time.Second,
			ShutdownTimeout:   10 * time.Second,
			RequestTimeout:    10 * time.Second,
		},
		Database: Database{MaxConns: 10},
		Log:      Log{Level: "info"},
		Trace:    Trace{Header: "X-Trace-ID"},
		Auth: Auth{
			JWTExpiresIn:          "1h",
			RefreshTokenExpiresIn: "7d",
		},
		BcryptCost: bcrypt.DefaultCost,
	}
}

// Load builds the configuration. An empty path skips the file layer.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	c.Env = getEnv("APP_ENV", c.Env)
	c.Version = getEnv("APP_VERSION", c.Version)
	if port := os.Getenv("PORT"); port != "" {
		c.Server.Addr = ":" + port
	}
	c.Server.Addr = getEnv("HTTP_ADDR", c.Server.Addr)
	c.Database.URL = getEnv("DATABASE_URL", c.Database.URL)
	c.Log.Level = getEnv("LOG_LEVEL", c.Log.Level)
	c.Auth.JWTSecret = getEnv("JWT_SECRET", c.Auth.JWTSecret)
	c.Auth.JWTExpiresIn = getEnv("JWT_EXPIRES_IN", c.Auth.JWTExpiresIn)
	c.Auth.RefreshTokenExpiresIn = getEnv("REFRESH_TOKEN_EXPIRES_IN", c.Auth.RefreshTokenExpiresIn)

	var err error
	if c.Database.MaxConns, err = getEnvInt("DB_MAX_CONNS", c.Database.MaxConns); err != nil {
		return err
	}
	if c.BcryptCost, err = getEnvInt("BCRYPT_COST", c.BcryptCost); err != nil {
		return err
	}
	if c.Log.Pretty, err = getEnvBool("LOG_PRETTY", c.Log.Pretty); err != nil {
		return err
	}
	if c.Server.CrashOnPanic, err = getEnvBool("CRASH_ON_PANIC", c.Server.CrashOnPanic); err != nil {
		return err
	}
	if c.Server.RequestTimeout, err = getEnvDuration("REQUEST_TIMEOUT", c.Server.RequestTimeout); err != nil {
		return err
	}
	return nil
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	switch c.Env {
	case EnvDevelopment, EnvProduction, EnvTest:
	default:
		return fmt.Errorf("config: unknown env %q", c.Env)
	}
	if c.Server.Addr == "" {
		return errors.New("config: server.addr is required")
	}
	if c.Server.RequestTimeout <= 0 {
		return errors.New("config: server.request_timeout must be positive")
	}
	if c.Database.MaxConns <= 0 {
		return fmt.Errorf("config: database.max_conns must be positive, got %d", c.Database.MaxConns)
	}
	if c.BcryptCost < bcrypt.MinCost || c.BcryptCost > bcrypt.MaxCost {
		return fmt.Errorf("config: bcrypt_cost must be in [%d, %d], got %d", bcrypt.MinCost, bcrypt.MaxCost, c.BcryptCost)
	}
	if c.Trace.Header == "" {
		return errors.New("config: trace.header is required")
	}
	return nil
}

// Production reports whether error details must be redacted.
func (c Config) Production() bool { return c.Env == EnvProduction }

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("config: %s: %w", key, err)
	}
	return n, nil
}

func getEnvBool(key string, fallback bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("config: %s: %w", key, err)
	}
	return b, nil
}

func getEnvDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("config: %s: %w", key, err)
	}
	return d, nil
}
