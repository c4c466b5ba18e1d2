// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package storage provides the tiered record store: a networked Redis tier
// with an encrypted local SQLite cache as fallback, plus a legacy plaintext
// cache kept for data written by older builds.
package storage

import (
	"context"
	"log/slog"

	"github.com/scanlinkhq/scanlink/internal/models"
)

// Remote is the networked storage tier.
type Remote interface {
	Save(ctx context.Context, record *models.Record) error
	Get(ctx context.Context, id string) (*models.Record, error)
	ListRecent(ctx context.Context, limit int) ([]models.Record, error)
	IncrementScan(ctx context.Context, id string) error
}

// Local is the device-local storage tier.
type Local interface {
	Save(ctx context.Context, record *models.Record) error
	Get(ctx context.Context, id string) (*models.Record, error)
	GetLegacy(ctx context.Context, id string) (*models.Record, error)
	ListRecent(ctx context.Context, limit int) ([]models.Record, error)
	IncrementScan(ctx context.Context, id string) error
}

// Connectivity reports whether the networked tier is currently reachable.
// The store re-evaluates it before every operation instead of caching the
// decision, so simulated states can be injected in tests.
type Connectivity interface {
	Online(ctx context.Context) bool
}

// ConnectivityFunc adapts a function to the Connectivity interface.
type ConnectivityFunc func(ctx context.Context) bool

// Online implements Connectivity.
func (f ConnectivityFunc) Online(ctx context.Context) bool { return f(ctx) }

// Store is the tiered record store. Writes go to the networked tier when it
// is reachable and degrade to the encrypted local cache otherwise; reads
// consult whichever tier is currently authoritative for writes.
type Store struct {
	remote Remote
	local  Local
	online Connectivity
}

// New creates a tiered Store.
func New(remote Remote, local Local, online Connectivity) *Store {
	return &Store{remote: remote, local: local, online: online}
}

// Write persists the record. The networked tier is preferred; on failure the
// write degrades to the local cache. A PersistenceError is returned only
// when both tiers fail.
func (s *Store) Write(ctx context.Context, record *models.Record) error {
	var remoteErr error
	if s.online.Online(ctx) {
		remoteErr = s.remote.Save(ctx, record)
		if remoteErr == nil {
			return nil
		}
		slog.Warn("remote write failed, degrading to local cache", "id", record.ID, "error", remoteErr)
	} else {
		remoteErr = ErrUnreachable
	}

	if localErr := s.local.Save(ctx, record); localErr != nil {
		return &PersistenceError{RemoteErr: remoteErr, LocalErr: localErr}
	}
	return nil
}

// Read loads the record from the tier that is currently authoritative for
// writes. Callers needing the full fallback chain use the scan resolver.
func (s *Store) Read(ctx context.Context, id string) (*models.Record, error) {
	if s.online.Online(ctx) {
		return s.remote.Get(ctx, id)
	}
	return s.local.Get(ctx, id)
}

// ListRecent returns up to limit records, newest first, from the
// authoritative tier.
func (s *Store) ListRecent(ctx context.Context, limit int) ([]models.Record, error) {
	if s.online.Online(ctx) {
		return s.remote.ListRecent(ctx, limit)
	}
	return s.local.ListRecent(ctx, limit)
}

// IncrementScan increments the record's scan counter by exactly one on the
// authoritative tier and stamps the scan time.
func (s *Store) IncrementScan(ctx context.Context, id string) error {
	if s.online.Online(ctx) {
		return s.remote.IncrementScan(ctx, id)
	}
	return s.local.IncrementScan(ctx, id)
}

// ReadRemote reads directly from the networked tier, or ErrUnreachable when
// the connectivity signal reports it offline. First source of the scan
// resolution chain.
func (s *Store) ReadRemote(ctx context.Context, id string) (*models.Record, error) {
	if !s.online.Online(ctx) {
		return nil, ErrUnreachable
	}
	return s.remote.Get(ctx, id)
}

// ReadEncrypted reads from the encrypted local cache, transparently
// migrating a legacy entry under the same ID. Second source of the chain.
func (s *Store) ReadEncrypted(ctx context.Context, id string) (*models.Record, error) {
	return s.local.Get(ctx, id)
}

// ReadLegacy reads from the legacy plaintext cache without migration. Third
// source of the chain.
func (s *Store) ReadLegacy(ctx context.Context, id string) (*models.Record, error) {
	return s.local.GetLegacy(ctx, id)
}
