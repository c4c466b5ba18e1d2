// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package server

import (
	"fmt"
	"strings"

	"github.com/scanlinkhq/scanlink/internal/config"
)

// TLSMode is the resolved TLS behavior of the server.
type TLSMode string

const (
	// TLSModeOff serves plain HTTP.
	TLSModeOff TLSMode = "off"
	// TLSModeManual serves HTTPS with operator-provided certificate files.
	TLSModeManual TLSMode = "manual"
)

// ResolveTLS turns the configured TLS mode into a concrete one. In auto mode
// localhost stays on plain HTTP; a remote host uses the configured
// certificate files when present and falls back to plain HTTP otherwise.
func ResolveTLS(cfg *config.Config) (TLSMode, error) {
	switch strings.ToLower(cfg.TLS.Mode) {
	case "off":
		return TLSModeOff, nil

	case "manual":
		if cfg.TLS.CertFile == "" || cfg.TLS.KeyFile == "" {
			return "", fmt.Errorf("manual TLS mode requires tls.cert_file and tls.key_file")
		}
		return TLSModeManual, nil

	case "auto", "":
		if config.IsLocalhost(cfg.Server.Host) {
			return TLSModeOff, nil
		}
		if cfg.TLS.CertFile != "" && cfg.TLS.KeyFile != "" {
			return TLSModeManual, nil
		}
		return TLSModeOff, nil

	default:
		return "", fmt.Errorf("unknown TLS mode %q", cfg.TLS.Mode)
	}
}
