// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package config builds the server configuration from CLI flags, environment
// variables and a TOML file.
package config

import (
	"fmt"
	"strings"

	altsrc "github.com/urfave/cli-altsrc/v3"
	"github.com/urfave/cli-altsrc/v3/toml"
	"github.com/urfave/cli/v3"
)

var configFile = altsrc.StringSourcer("config.toml")

type Config struct { //nolint:govet // fieldalignment not critical for config structs
	Server  ServerConfig
	Log     LogConfig
	Redis   RedisConfig
	Cache   CacheConfig
	Limiter LimiterConfig
	SMTP    SMTPConfig
	TLS     TLSConfig
}

type ServerConfig struct { //nolint:govet // fieldalignment not critical for config structs
	Host        string
	Port        int
	BaseURL     string
	MaxBodySize int // in MB
}

type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // text, json
}

// RedisConfig describes the networked record backend.
type RedisConfig struct { //nolint:govet // fieldalignment not critical
	Addr      string
	Password  string
	DB        int
	Namespace string // key prefix, e.g. "scanlink"
}

// CacheConfig describes the local encrypted cache.
type CacheConfig struct {
	DSN string // SQLite path
	Key string // 32-byte hex key for sealing cache values
}

// LimiterConfig bounds record creation per actor.
type LimiterConfig struct {
	Limit         int // requests per window
	WindowSeconds int
}

// SMTPConfig configures optional scan alert emails. Alerts are disabled when
// Host is empty.
type SMTPConfig struct { //nolint:govet // fieldalignment not critical
	Host            string
	Port            int
	Username        string
	Password        string
	From            string
	To              string
	TLS             bool
	ThrottleMinutes int
}

type TLSConfig struct {
	Mode     string // auto, manual, off
	CertFile string // Path to certificate file (manual mode)
	KeyFile  string // Path to private key file (manual mode)
}

func NewFromCLI(cmd *cli.Command) *Config {
	cfg := &Config{
		Server: ServerConfig{
			Host:        cmd.String("host"),
			Port:        int(cmd.Int("port")),
			BaseURL:     cmd.String("base-url"),
			MaxBodySize: int(cmd.Int("max-body-size")),
		},
		Log: LogConfig{
			Level:  cmd.String("log-level"),
			Format: cmd.String("log-format"),
		},
		Redis: RedisConfig{
			Addr:      cmd.String("redis-addr"),
			Password:  cmd.String("redis-password"),
			DB:        int(cmd.Int("redis-db")),
			Namespace: cmd.String("redis-namespace"),
		},
		Cache: CacheConfig{
			DSN: cmd.String("cache-dsn"),
			Key: cmd.String("cache-key"),
		},
		Limiter: LimiterConfig{
			Limit:         int(cmd.Int("limiter-limit")),
			WindowSeconds: int(cmd.Int("limiter-window")),
		},
		SMTP: SMTPConfig{
			Host:            cmd.String("smtp-host"),
			Port:            int(cmd.Int("smtp-port")),
			Username:        cmd.String("smtp-username"),
			Password:        cmd.String("smtp-password"),
			From:            cmd.String("smtp-from"),
			To:              cmd.String("smtp-to"),
			TLS:             cmd.Bool("smtp-tls"),
			ThrottleMinutes: int(cmd.Int("smtp-throttle")),
		},
		TLS: TLSConfig{
			Mode:     cmd.String("tls-mode"),
			CertFile: cmd.String("tls-cert-file"),
			KeyFile:  cmd.String("tls-key-file"),
		},
	}

	if cfg.Server.BaseURL == "" {
		cfg.Server.BaseURL = buildBaseURL(cfg)
	}

	return cfg
}

func buildBaseURL(cfg *Config) string {
	host := cfg.Server.Host
	port := cfg.Server.Port

	scheme := "http"
	if shouldUseTLS(strings.ToLower(cfg.TLS.Mode), host) {
		scheme = "https"
	}

	// Hide default ports in URL
	if (scheme == "http" && port == 80) || (scheme == "https" && port == 443) {
		return fmt.Sprintf("%s://%s", scheme, host)
	}
	return fmt.Sprintf("%s://%s:%d", scheme, host, port)
}

func shouldUseTLS(mode, host string) bool {
	switch mode {
	case "off":
		return false
	case "manual":
		return true
	default: // "auto" or empty
		return !IsLocalhost(host)
	}
}

// IsLocalhost checks if the host is a localhost address.
func IsLocalhost(host string) bool {
	switch host {
	case "", "localhost", "127.0.0.1", "::1":
		return true
	}
	// Check for *.localhost subdomains (e.g., app.localhost)
	return strings.HasSuffix(host, ".localhost")
}

func Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "host",
			Value:   "localhost",
			Usage:   "Host to bind to",
			Sources: cli.NewValueSourceChain(cli.EnvVar("HOST"), toml.TOML("server.host", configFile)),
		},
		&cli.IntFlag{
			Name:    "port",
			Value:   8080,
			Usage:   "Port to listen on",
			Sources: cli.NewValueSourceChain(cli.EnvVar("PORT"), toml.TOML("server.port", configFile)),
		},
		&cli.StringFlag{
			Name:    "base-url",
			Usage:   "Base URL resolution links are built on",
			Sources: cli.NewValueSourceChain(cli.EnvVar("BASE_URL"), toml.TOML("server.base_url", configFile)),
		},
		&cli.IntFlag{
			Name:    "max-body-size",
			Value:   1,
			Usage:   "Maximum request body size in MB",
			Sources: cli.NewValueSourceChain(cli.EnvVar("MAX_BODY_SIZE"), toml.TOML("server.max_body_size", configFile)),
		},
		&cli.StringFlag{
			Name:    "log-level",
			Value:   "info",
			Usage:   "Log level (debug, info, warn, error)",
			Sources: cli.NewValueSourceChain(cli.EnvVar("LOG_LEVEL"), toml.TOML("log.level", configFile)),
		},
		&cli.StringFlag{
			Name:    "log-format",
			Value:   "text",
			Usage:   "Log format (text, json)",
			Sources: cli.NewValueSourceChain(cli.EnvVar("LOG_FORMAT"), toml.TOML("log.format", configFile)),
		},
		&cli.StringFlag{
			Name:    "redis-addr",
			Value:   "localhost:6379",
			Usage:   "Redis address of the networked record backend",
			Sources: cli.NewValueSourceChain(cli.EnvVar("REDIS_ADDR"), toml.TOML("redis.addr", configFile)),
		},
		&cli.StringFlag{
			Name:    "redis-password",
			Usage:   "Redis password",
			Sources: cli.NewValueSourceChain(cli.EnvVar("REDIS_PASSWORD"), toml.TOML("redis.password", configFile)),
		},
		&cli.IntFlag{
			Name:    "redis-db",
			Value:   0,
			Usage:   "Redis database number",
			Sources: cli.NewValueSourceChain(cli.EnvVar("REDIS_DB"), toml.TOML("redis.db", configFile)),
		},
		&cli.StringFlag{
			Name:    "redis-namespace",
			Value:   "scanlink",
			Usage:   "Key prefix for the record namespace",
			Sources: cli.NewValueSourceChain(cli.EnvVar("REDIS_NAMESPACE"), toml.TOML("redis.namespace", configFile)),
		},
		&cli.StringFlag{
			Name:    "cache-dsn",
			Value:   "./data/cache.db",
			Usage:   "SQLite path of the local record cache",
			Sources: cli.NewValueSourceChain(cli.EnvVar("CACHE_DSN"), toml.TOML("cache.dsn", configFile)),
		},
		&cli.StringFlag{
			Name:    "cache-key",
			Usage:   "Cache encryption key (32-byte hex, auto-generated if empty)",
			Sources: cli.NewValueSourceChain(cli.EnvVar("CACHE_KEY"), toml.TOML("cache.key", configFile)),
		},
		&cli.IntFlag{
			Name:    "limiter-limit",
			Value:   10,
			Usage:   "Record creations allowed per actor per window",
			Sources: cli.NewValueSourceChain(cli.EnvVar("LIMITER_LIMIT"), toml.TOML("limiter.limit", configFile)),
		},
		&cli.IntFlag{
			Name:    "limiter-window",
			Value:   60,
			Usage:   "Rate limit window in seconds",
			Sources: cli.NewValueSourceChain(cli.EnvVar("LIMITER_WINDOW"), toml.TOML("limiter.window", configFile)),
		},
		&cli.StringFlag{
			Name:    "smtp-host",
			Usage:   "SMTP host for scan alerts (alerts disabled when empty)",
			Sources: cli.NewValueSourceChain(cli.EnvVar("SMTP_HOST"), toml.TOML("smtp.host", configFile)),
		},
		&cli.IntFlag{
			Name:    "smtp-port",
			Value:   587,
			Usage:   "SMTP port",
			Sources: cli.NewValueSourceChain(cli.EnvVar("SMTP_PORT"), toml.TOML("smtp.port", configFile)),
		},
		&cli.StringFlag{
			Name:    "smtp-username",
			Usage:   "SMTP username",
			Sources: cli.NewValueSourceChain(cli.EnvVar("SMTP_USERNAME"), toml.TOML("smtp.username", configFile)),
		},
		&cli.StringFlag{
			Name:    "smtp-password",
			Usage:   "SMTP password",
			Sources: cli.NewValueSourceChain(cli.EnvVar("SMTP_PASSWORD"), toml.TOML("smtp.password", configFile)),
		},
		&cli.StringFlag{
			Name:    "smtp-from",
			Usage:   "Sender address for scan alerts",
			Sources: cli.NewValueSourceChain(cli.EnvVar("SMTP_FROM"), toml.TOML("smtp.from", configFile)),
		},
		&cli.StringFlag{
			Name:    "smtp-to",
			Usage:   "Recipient address for scan alerts",
			Sources: cli.NewValueSourceChain(cli.EnvVar("SMTP_TO"), toml.TOML("smtp.to", configFile)),
		},
		&cli.BoolFlag{
			Name:    "smtp-tls",
			Value:   true,
			Usage:   "Require TLS for SMTP",
			Sources: cli.NewValueSourceChain(cli.EnvVar("SMTP_TLS"), toml.TOML("smtp.tls", configFile)),
		},
		&cli.IntFlag{
			Name:    "smtp-throttle",
			Value:   15,
			Usage:   "Minutes between alerts for the same record",
			Sources: cli.NewValueSourceChain(cli.EnvVar("SMTP_THROTTLE"), toml.TOML("smtp.throttle_minutes", configFile)),
		},
		&cli.StringFlag{
			Name:    "tls-mode",
			Value:   "auto",
			Usage:   "TLS mode (auto, manual, off)",
			Sources: cli.NewValueSourceChain(cli.EnvVar("TLS_MODE"), toml.TOML("tls.mode", configFile)),
		},
		&cli.StringFlag{
			Name:    "tls-cert-file",
			Usage:   "Path to TLS certificate file (manual mode)",
			Sources: cli.NewValueSourceChain(cli.EnvVar("TLS_CERT_FILE"), toml.TOML("tls.cert_file", configFile)),
		},
		&cli.StringFlag{
			Name:    "tls-key-file",
			Usage:   "Path to TLS private key file (manual mode)",
			Sources: cli.NewValueSourceChain(cli.EnvVar("TLS_KEY_FILE"), toml.TOML("tls.key_file", configFile)),
		},
	}
}
