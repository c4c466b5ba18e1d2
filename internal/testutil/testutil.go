// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package testutil provides test helpers and fakes.
package testutil

import (
	"context"
	"io"
	"net/http/httptest"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"github.com/vinovest/sqlx"

	"github.com/scanlinkhq/scanlink/internal/database"
	"github.com/scanlinkhq/scanlink/internal/models"
	"github.com/scanlinkhq/scanlink/internal/storage"
	"github.com/scanlinkhq/scanlink/internal/vault"
)

// NewTestDB creates an in-memory SQLite cache database for tests.
func NewTestDB(t *testing.T) *sqlx.DB {
	t.Helper()
	db, err := database.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = db.Close()
	})
	return db
}

// NewTestVault creates a vault with a fixed key for tests.
func NewTestVault(t *testing.T) *vault.Vault {
	t.Helper()
	key := make([]byte, 32)
	for i := range key {
		key[i] = byte(i)
	}
	v, err := vault.New(key)
	require.NoError(t, err)
	return v
}

// NewLocalStore creates a LocalStore on a fresh in-memory database.
func NewLocalStore(t *testing.T) (*storage.LocalStore, *sqlx.DB) {
	t.Helper()
	db := NewTestDB(t)
	return storage.NewLocalStore(db, NewTestVault(t)), db
}

// NewTestRecord returns a record with plausible field values.
func NewTestRecord(id string) *models.Record {
	return &models.Record{
		ID:        id,
		Label:     "Test " + id,
		Content:   "https://example.com/" + id,
		CreatedAt: time.Now().UnixMilli(),
	}
}

// NewEchoContext creates an Echo context for handler tests.
func NewEchoContext(e *echo.Echo, method, path string, body io.Reader) (echo.Context, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(method, path, body)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	return c, rec
}

// Online is a Connectivity that always reports the backend reachable.
var Online = storage.ConnectivityFunc(func(context.Context) bool { return true })

// Offline is a Connectivity that always reports the backend unreachable.
var Offline = storage.ConnectivityFunc(func(context.Context) bool { return false })

// FakeRemote is an in-memory stand-in for the networked storage tier.
// The error fields, when set, are returned by the corresponding method.
type FakeRemote struct {
	mu      sync.Mutex
	records map[string]*models.Record

	SaveErr error
	GetErr  error
	ListErr error
	IncrErr error
}

// NewFakeRemote creates an empty FakeRemote.
func NewFakeRemote() *FakeRemote {
	return &FakeRemote{records: make(map[string]*models.Record)}
}

// Seed stores a record directly, bypassing error injection.
func (f *FakeRemote) Seed(record *models.Record) {
	f.mu.Lock()
	defer f.mu.Unlock()
	clone := *record
	f.records[record.ID] = &clone
}

// Save implements storage.Remote.
func (f *FakeRemote) Save(_ context.Context, record *models.Record) error {
	if f.SaveErr != nil {
		return f.SaveErr
	}
	f.Seed(record)
	return nil
}

// Get implements storage.Remote.
func (f *FakeRemote) Get(_ context.Context, id string) (*models.Record, error) {
	if f.GetErr != nil {
		return nil, f.GetErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	record, ok := f.records[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	clone := *record
	return &clone, nil
}

// ListRecent implements storage.Remote.
func (f *FakeRemote) ListRecent(_ context.Context, limit int) ([]models.Record, error) {
	if f.ListErr != nil {
		return nil, f.ListErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	list := make([]models.Record, 0, len(f.records))
	for _, record := range f.records {
		list = append(list, *record)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].CreatedAt > list[j].CreatedAt })
	if len(list) > limit {
		list = list[:limit]
	}
	return list, nil
}

// IncrementScan implements storage.Remote.
func (f *FakeRemote) IncrementScan(_ context.Context, id string) error {
	if f.IncrErr != nil {
		return f.IncrErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	record, ok := f.records[id]
	if !ok {
		return storage.ErrNotFound
	}
	record.ScanCount++
	record.LastScannedAt = time.Now().UnixMilli()
	return nil
}

// ScanCount returns the stored scan count for a record.
func (f *FakeRemote) ScanCount(t *testing.T, id string) int64 {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	record, ok := f.records[id]
	require.True(t, ok, "record %s not in fake remote", id)
	return record.ScanCount
}
