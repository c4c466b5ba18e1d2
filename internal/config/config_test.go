// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package config

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v3"
)

// runCLI builds a command with the full flag set and captures the config the
// action sees.
func runCLI(t *testing.T, args ...string) *Config {
	t.Helper()
	var cfg *Config
	cmd := &cli.Command{
		Name:  "scanlink",
		Flags: Flags(),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg = NewFromCLI(cmd)
			return nil
		},
	}
	require.NoError(t, cmd.Run(context.Background(), append([]string{"scanlink"}, args...)))
	require.NotNil(t, cfg)
	return cfg
}

func TestNewFromCLI_Defaults(t *testing.T) {
	cfg := runCLI(t)

	assert.Equal(t, "localhost", cfg.Server.Host)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "http://localhost:8080", cfg.Server.BaseURL)
	assert.Equal(t, 1, cfg.Server.MaxBodySize)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, "scanlink", cfg.Redis.Namespace)
	assert.Equal(t, "./data/cache.db", cfg.Cache.DSN)
	assert.Equal(t, 10, cfg.Limiter.Limit)
	assert.Equal(t, 60, cfg.Limiter.WindowSeconds)
	assert.Equal(t, 587, cfg.SMTP.Port)
	assert.True(t, cfg.SMTP.TLS)
	assert.Equal(t, 15, cfg.SMTP.ThrottleMinutes)
	assert.Equal(t, "auto", cfg.TLS.Mode)
}

func TestNewFromCLI_Flags(t *testing.T) {
	cfg := runCLI(t,
		"--host", "qr.example.com",
		"--port", "443",
		"--redis-addr", "redis.internal:6380",
		"--redis-namespace", "qr",
		"--limiter-limit", "5",
		"--tls-mode", "manual",
		"--tls-cert-file", "/etc/ssl/cert.pem",
		"--tls-key-file", "/etc/ssl/key.pem",
	)

	assert.Equal(t, "qr.example.com", cfg.Server.Host)
	assert.Equal(t, 443, cfg.Server.Port)
	assert.Equal(t, "https://qr.example.com", cfg.Server.BaseURL)
	assert.Equal(t, "redis.internal:6380", cfg.Redis.Addr)
	assert.Equal(t, "qr", cfg.Redis.Namespace)
	assert.Equal(t, 5, cfg.Limiter.Limit)
	assert.Equal(t, "manual", cfg.TLS.Mode)
}

func TestNewFromCLI_ExplicitBaseURLWins(t *testing.T) {
	cfg := runCLI(t, "--base-url", "https://links.example.com")

	assert.Equal(t, "https://links.example.com", cfg.Server.BaseURL)
}

func TestBuildBaseURL(t *testing.T) {
	tests := []struct {
		name string
		host string
		port int
		mode string
		want string
	}{
		{"localhost default port", "localhost", 8080, "auto", "http://localhost:8080"},
		{"localhost port 80", "localhost", 80, "auto", "http://localhost"},
		{"remote auto", "qr.example.com", 443, "auto", "https://qr.example.com"},
		{"remote auto nonstandard port", "qr.example.com", 8443, "auto", "https://qr.example.com:8443"},
		{"remote tls off", "qr.example.com", 80, "off", "http://qr.example.com"},
		{"manual on localhost", "localhost", 443, "manual", "https://localhost"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{
				Server: ServerConfig{Host: tt.host, Port: tt.port},
				TLS:    TLSConfig{Mode: tt.mode},
			}
			assert.Equal(t, tt.want, buildBaseURL(cfg))
		})
	}
}

func TestIsLocalhost(t *testing.T) {
	assert.True(t, IsLocalhost(""))
	assert.True(t, IsLocalhost("localhost"))
	assert.True(t, IsLocalhost("127.0.0.1"))
	assert.True(t, IsLocalhost("::1"))
	assert.True(t, IsLocalhost("app.localhost"))
	assert.False(t, IsLocalhost("example.com"))
	assert.False(t, IsLocalhost("localhost.example.com"))
}
