// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package storage

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when a record is not found in the consulted tier.
var ErrNotFound = errors.New("record not found")

// ErrUnreachable is returned when the networked tier is skipped because the
// connectivity signal reports it as offline.
var ErrUnreachable = errors.New("networked backend unreachable")

// PersistenceError reports that both storage tiers failed on write. Creation
// must surface it as a failure; no partial record exists.
type PersistenceError struct {
	RemoteErr error
	LocalErr  error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("both storage tiers failed: remote: %v, local: %v", e.RemoteErr, e.LocalErr)
}

func (e *PersistenceError) Unwrap() []error {
	return []error{e.RemoteErr, e.LocalErr}
}
