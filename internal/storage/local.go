// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/vinovest/sqlx"

	"github.com/scanlinkhq/scanlink/internal/models"
	"github.com/scanlinkhq/scanlink/internal/vault"
)

// LocalStore is the device-local storage tier. Record payloads are sealed
// with authenticated encryption before they touch disk; a second table holds
// plaintext entries written by builds that predate the encrypted cache and
// is drained into the encrypted table on first read.
//
// The local tier is single-process, so its read-modify-write scan increment
// needs no cross-process coordination.
type LocalStore struct {
	db    *sqlx.DB
	vault *vault.Vault
}

// NewLocalStore creates a LocalStore on the given cache database.
func NewLocalStore(db *sqlx.DB, v *vault.Vault) *LocalStore {
	return &LocalStore{db: db, vault: v}
}

type cacheRow struct {
	ID        string `db:"id"`
	Payload   []byte `db:"payload"`
	CreatedAt int64  `db:"created_at"`
	UpdatedAt int64  `db:"updated_at"`
}

// Save seals the record and upserts it into the encrypted cache.
func (s *LocalStore) Save(ctx context.Context, record *models.Record) error {
	plaintext, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("encoding record %s: %w", record.ID, err)
	}
	sealed, err := s.vault.Seal(plaintext)
	if err != nil {
		return fmt.Errorf("sealing record %s: %w", record.ID, err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO cache_records (id, payload, created_at, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET payload = excluded.payload, updated_at = excluded.updated_at`,
		record.ID, sealed, record.CreatedAt, time.Now().UnixMilli())
	if err != nil {
		return fmt.Errorf("caching record %s: %w", record.ID, err)
	}
	return nil
}

// Get loads a record from the encrypted cache. When the record is absent but
// a legacy plaintext entry exists under the same ID, the entry is migrated
// into the encrypted cache transparently and returned.
func (s *LocalStore) Get(ctx context.Context, id string) (*models.Record, error) {
	var row cacheRow
	err := s.db.GetContext(ctx, &row, `SELECT id, payload, created_at, updated_at FROM cache_records WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return s.migrateLegacy(ctx, id)
	}
	if err != nil {
		return nil, fmt.Errorf("reading cached record %s: %w", id, err)
	}

	record, err := s.open(row.Payload)
	if err != nil {
		return nil, fmt.Errorf("opening cached record %s: %w", id, err)
	}
	return record, nil
}

// GetLegacy reads a plaintext entry from the legacy cache without migrating
// it. The scan resolver consults this tier for data written by older builds.
func (s *LocalStore) GetLegacy(ctx context.Context, id string) (*models.Record, error) {
	var payload string
	err := s.db.GetContext(ctx, &payload, `SELECT payload FROM legacy_records WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("reading legacy record %s: %w", id, err)
	}

	var record models.Record
	if err := json.Unmarshal([]byte(payload), &record); err != nil {
		return nil, fmt.Errorf("parsing legacy record %s: %w", id, err)
	}
	return &record, nil
}

// ListRecent returns up to limit cached records, newest first. Entries that
// no longer open (key rotation, corruption) are skipped, not fatal.
func (s *LocalStore) ListRecent(ctx context.Context, limit int) ([]models.Record, error) {
	if limit <= 0 {
		return nil, nil
	}

	var rows []cacheRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT id, payload, created_at, updated_at FROM cache_records
		ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing cached records: %w", err)
	}

	records := make([]models.Record, 0, len(rows))
	for _, row := range rows {
		record, err := s.open(row.Payload)
		if err != nil {
			slog.Warn("skipping unreadable cache entry", "id", row.ID, "error", err)
			continue
		}
		records = append(records, *record)
	}
	return records, nil
}

// IncrementScan bumps the scan counter and stamps the scan time. Plain
// read-modify-write; the cache has no concurrent writers within a process
// session.
func (s *LocalStore) IncrementScan(ctx context.Context, id string) error {
	record, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	record.ScanCount++
	record.LastScannedAt = time.Now().UnixMilli()
	return s.Save(ctx, record)
}

// migrateLegacy moves a plaintext legacy entry into the encrypted cache and
// deletes the plaintext row. Returns ErrNotFound when no legacy entry exists.
func (s *LocalStore) migrateLegacy(ctx context.Context, id string) (*models.Record, error) {
	record, err := s.GetLegacy(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.Save(ctx, record); err != nil {
		return nil, fmt.Errorf("migrating legacy record %s: %w", id, err)
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM legacy_records WHERE id = ?`, id); err != nil {
		// The encrypted copy exists; a stale plaintext row is only a
		// cleanup problem.
		slog.Warn("failed to delete migrated legacy entry", "id", id, "error", err)
	}
	slog.Info("migrated legacy cache entry", "id", id)
	return record, nil
}

func (s *LocalStore) open(sealed []byte) (*models.Record, error) {
	plaintext, err := s.vault.Open(sealed)
	if err != nil {
		return nil, err
	}
	var record models.Record
	if err := json.Unmarshal(plaintext, &record); err != nil {
		return nil, err
	}
	return &record, nil
}
