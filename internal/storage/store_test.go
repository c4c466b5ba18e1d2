// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package storage_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scanlinkhq/scanlink/internal/models"
	"github.com/scanlinkhq/scanlink/internal/storage"
	"github.com/scanlinkhq/scanlink/internal/testutil"
)

func newTieredStore(t *testing.T, online storage.Connectivity) (*storage.Store, *testutil.FakeRemote, *storage.LocalStore) {
	t.Helper()
	remote := testutil.NewFakeRemote()
	local, _ := testutil.NewLocalStore(t)
	return storage.New(remote, local, online), remote, local
}

func TestStore_WritePrefersRemote(t *testing.T) {
	store, remote, local := newTieredStore(t, testutil.Online)
	ctx := context.Background()

	record := testutil.NewTestRecord("w1")
	require.NoError(t, store.Write(ctx, record))

	got, err := remote.Get(ctx, record.ID)
	require.NoError(t, err)
	assert.Equal(t, record.Content, got.Content)

	_, err = local.Get(ctx, record.ID)
	assert.ErrorIs(t, err, storage.ErrNotFound, "online writes stay out of the local cache")
}

func TestStore_WriteFallsBackWhenOffline(t *testing.T) {
	store, _, local := newTieredStore(t, testutil.Offline)
	ctx := context.Background()

	record := testutil.NewTestRecord("w2")
	require.NoError(t, store.Write(ctx, record))

	got, err := local.Get(ctx, record.ID)
	require.NoError(t, err)
	assert.Equal(t, record.Content, got.Content)
}

func TestStore_WriteFallsBackWhenRemoteFails(t *testing.T) {
	store, remote, local := newTieredStore(t, testutil.Online)
	remote.SaveErr = errors.New("connection reset")
	ctx := context.Background()

	record := testutil.NewTestRecord("w3")
	require.NoError(t, store.Write(ctx, record))

	got, err := local.Get(ctx, record.ID)
	require.NoError(t, err)
	assert.Equal(t, record.Content, got.Content)
}

func TestStore_WriteBothTiersFail(t *testing.T) {
	remote := testutil.NewFakeRemote()
	remote.SaveErr = errors.New("connection reset")
	store := storage.New(remote, failingLocal{}, testutil.Online)

	err := store.Write(context.Background(), testutil.NewTestRecord("w4"))

	var perr *storage.PersistenceError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, remote.SaveErr, perr.RemoteErr)
	assert.Error(t, perr.LocalErr)
}

func TestStore_WriteOfflineBothTiersFail(t *testing.T) {
	store := storage.New(testutil.NewFakeRemote(), failingLocal{}, testutil.Offline)

	err := store.Write(context.Background(), testutil.NewTestRecord("w5"))

	var perr *storage.PersistenceError
	require.ErrorAs(t, err, &perr)
	assert.ErrorIs(t, perr.RemoteErr, storage.ErrUnreachable)
}

func TestStore_ReadSelectsTier(t *testing.T) {
	ctx := context.Background()
	remote := testutil.NewFakeRemote()
	local, _ := testutil.NewLocalStore(t)

	remoteRecord := testutil.NewTestRecord("r1")
	remoteRecord.Label = "remote"
	remote.Seed(remoteRecord)

	localRecord := testutil.NewTestRecord("r1")
	localRecord.Label = "local"
	require.NoError(t, local.Save(ctx, localRecord))

	got, err := storage.New(remote, local, testutil.Online).Read(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, "remote", got.Label)

	got, err = storage.New(remote, local, testutil.Offline).Read(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, "local", got.Label)
}

func TestStore_ListRecentSelectsTier(t *testing.T) {
	ctx := context.Background()
	remote := testutil.NewFakeRemote()
	local, _ := testutil.NewLocalStore(t)

	remote.Seed(testutil.NewTestRecord("remote-only"))
	require.NoError(t, local.Save(ctx, testutil.NewTestRecord("local-only")))

	list, err := storage.New(remote, local, testutil.Online).ListRecent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "remote-only", list[0].ID)

	list, err = storage.New(remote, local, testutil.Offline).ListRecent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "local-only", list[0].ID)
}

func TestStore_IncrementScanSelectsTier(t *testing.T) {
	ctx := context.Background()
	remote := testutil.NewFakeRemote()
	local, _ := testutil.NewLocalStore(t)

	remote.Seed(testutil.NewTestRecord("s1"))
	require.NoError(t, local.Save(ctx, testutil.NewTestRecord("s1")))

	require.NoError(t, storage.New(remote, local, testutil.Online).IncrementScan(ctx, "s1"))
	assert.Equal(t, int64(1), remote.ScanCount(t, "s1"))

	require.NoError(t, storage.New(remote, local, testutil.Offline).IncrementScan(ctx, "s1"))
	got, err := local.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), got.ScanCount, "offline increment must not touch the remote count")
	assert.Equal(t, int64(1), remote.ScanCount(t, "s1"))
}

func TestStore_ReadRemoteOffline(t *testing.T) {
	store, remote, _ := newTieredStore(t, testutil.Offline)
	remote.Seed(testutil.NewTestRecord("r2"))

	_, err := store.ReadRemote(context.Background(), "r2")
	assert.ErrorIs(t, err, storage.ErrUnreachable)
}

func TestStore_ResolutionSourcesAreIndependent(t *testing.T) {
	store, remote, local := newTieredStore(t, testutil.Online)
	ctx := context.Background()

	remote.Seed(testutil.NewTestRecord("remote-1"))
	require.NoError(t, local.Save(ctx, testutil.NewTestRecord("cached-1")))

	got, err := store.ReadRemote(ctx, "remote-1")
	require.NoError(t, err)
	assert.Equal(t, "remote-1", got.ID)
	_, err = store.ReadRemote(ctx, "cached-1")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	got, err = store.ReadEncrypted(ctx, "cached-1")
	require.NoError(t, err)
	assert.Equal(t, "cached-1", got.ID)
	_, err = store.ReadEncrypted(ctx, "remote-1")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	_, err = store.ReadLegacy(ctx, "cached-1")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

// failingLocal fails every operation, standing in for a broken cache file.
type failingLocal struct{}

var errDiskFull = errors.New("disk full")

func (failingLocal) Save(context.Context, *models.Record) error { return errDiskFull }

func (failingLocal) Get(context.Context, string) (*models.Record, error) { return nil, errDiskFull }

func (failingLocal) GetLegacy(context.Context, string) (*models.Record, error) {
	return nil, errDiskFull
}

func (failingLocal) ListRecent(context.Context, int) ([]models.Record, error) {
	return nil, errDiskFull
}

func (failingLocal) IncrementScan(context.Context, string) error { return errDiskFull }
