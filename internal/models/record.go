// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package models

import (
	"fmt"
	"unicode/utf8"
)

const (
	// MaxLabelLength is the maximum number of characters for a record label.
	MaxLabelLength = 100
	// MaxContentLength is the maximum number of characters for record content.
	MaxContentLength = 4000
)

// Record represents one generated trackable code.
// CreatedAt and LastScannedAt are milliseconds since epoch;
// LastScannedAt is zero until the first successful scan.
type Record struct { //nolint:govet // fieldalignment not critical for models
	ID            string `json:"id" db:"id"`
	Label         string `json:"label" db:"label"`
	Content       string `json:"content" db:"content"`
	LogoRef       string `json:"logo_ref,omitempty" db:"logo_ref"`
	ScanCount     int64  `json:"scan_count" db:"scan_count"`
	CreatedAt     int64  `json:"created_at" db:"created_at"`
	LastScannedAt int64  `json:"last_scanned_at,omitempty" db:"last_scanned_at"`
}

// ValidationError describes malformed or oversized input. It is surfaced to
// the caller immediately and never retried.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Validate checks label and content length constraints.
func (r *Record) Validate() error {
	if r.Label == "" {
		return &ValidationError{Field: "label", Reason: "must not be empty"}
	}
	if utf8.RuneCountInString(r.Label) > MaxLabelLength {
		return &ValidationError{Field: "label", Reason: fmt.Sprintf("must be at most %d characters", MaxLabelLength)}
	}
	if r.Content == "" {
		return &ValidationError{Field: "content", Reason: "must not be empty"}
	}
	if utf8.RuneCountInString(r.Content) > MaxContentLength {
		return &ValidationError{Field: "content", Reason: fmt.Sprintf("must be at most %d characters", MaxContentLength)}
	}
	return nil
}
