// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package records_test

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scanlinkhq/scanlink/internal/models"
	"github.com/scanlinkhq/scanlink/internal/ratelimit"
	"github.com/scanlinkhq/scanlink/internal/records"
	"github.com/scanlinkhq/scanlink/internal/storage"
	"github.com/scanlinkhq/scanlink/internal/testutil"
)

const testBaseURL = "https://scanlink.test"

func newService(t *testing.T, opts ...records.Option) (*records.Service, *testutil.FakeRemote) {
	t.Helper()
	remote := testutil.NewFakeRemote()
	local, _ := testutil.NewLocalStore(t)
	store := storage.New(remote, local, testutil.Online)
	return records.NewService(store, ratelimit.New(), testBaseURL, opts...), remote
}

func TestService_Create(t *testing.T) {
	svc, remote := newService(t)

	result, err := svc.Create(context.Background(), records.CreateInput{
		Label:   "Standup",
		Content: "https://meet.example/abc",
		ActorID: "alice",
	})
	require.NoError(t, err)

	assert.False(t, result.Duplicate)
	assert.NotEmpty(t, result.Record.ID)
	assert.NotZero(t, result.Record.CreatedAt)
	assert.Zero(t, result.Record.ScanCount)

	stored, err := remote.Get(context.Background(), result.Record.ID)
	require.NoError(t, err)
	assert.Equal(t, "https://meet.example/abc", stored.Content)
}

func TestService_CreateLinkFormat(t *testing.T) {
	svc, _ := newService(t, records.WithIDGenerator(func() string { return "fixed-id" }))

	result, err := svc.Create(context.Background(), records.CreateInput{
		Label:   "Standup",
		Content: "https://meet.example/abc",
		ActorID: "alice",
	})
	require.NoError(t, err)

	parsed, err := url.Parse(result.Link)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(result.Link, testBaseURL+records.ResolvePath+"?"))
	assert.Equal(t, "fixed-id", parsed.Query().Get("id"))

	payload, err := models.DecodeInlinePayload(parsed.Query().Get("data"))
	require.NoError(t, err)
	assert.Equal(t, "https://meet.example/abc", payload.Content)
	assert.Equal(t, "Standup", payload.Label)
}

func TestService_CreateLinkOmitsOversizedPayload(t *testing.T) {
	svc, _ := newService(t)

	result, err := svc.Create(context.Background(), records.CreateInput{
		Label:   "Big",
		Content: "https://example.com/" + strings.Repeat("x", models.MaxContentLength-20),
		ActorID: "alice",
	})
	require.NoError(t, err)

	parsed, err := url.Parse(result.Link)
	require.NoError(t, err)
	assert.NotEmpty(t, parsed.Query().Get("id"))
	assert.Empty(t, parsed.Query().Get("data"), "oversized payload must be omitted, not truncated")
}

func TestService_CreateValidation(t *testing.T) {
	svc, _ := newService(t)

	_, err := svc.Create(context.Background(), records.CreateInput{
		Label:   "No content",
		ActorID: "alice",
	})

	var verr *models.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "content", verr.Field)
}

func TestService_CreateRateLimited(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	for i := range ratelimit.DefaultLimit {
		_, err := svc.Create(ctx, records.CreateInput{
			Label:   "Entry",
			Content: "https://example.com/" + string(rune('a'+i)),
			ActorID: "alice",
		})
		require.NoError(t, err)
	}

	_, err := svc.Create(ctx, records.CreateInput{
		Label:   "One too many",
		Content: "https://example.com/overflow",
		ActorID: "alice",
	})

	var rerr *records.RateLimitError
	require.ErrorAs(t, err, &rerr)
	assert.Zero(t, rerr.Remaining)

	// A different actor is unaffected.
	_, err = svc.Create(ctx, records.CreateInput{
		Label:   "Other actor",
		Content: "https://example.com/bob",
		ActorID: "bob",
	})
	assert.NoError(t, err)
}

func TestService_CreateDuplicateReturnsExisting(t *testing.T) {
	svc, remote := newService(t)
	ctx := context.Background()

	first, err := svc.Create(ctx, records.CreateInput{
		Label:   "Standup",
		Content: "https://meet.example/abc",
		ActorID: "alice",
	})
	require.NoError(t, err)

	second, err := svc.Create(ctx, records.CreateInput{
		Label:   "Standup",
		Content: "https://meet.example/abc",
		ActorID: "alice",
	})
	require.NoError(t, err)

	assert.True(t, second.Duplicate)
	assert.Equal(t, first.Record.ID, second.Record.ID)

	list, err := remote.ListRecent(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, list, 1, "duplicate creation must not write a second record")
}

func TestService_CreateSameContentDifferentLabelIsNotDuplicate(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	first, err := svc.Create(ctx, records.CreateInput{
		Label:   "Standup",
		Content: "https://meet.example/abc",
		ActorID: "alice",
	})
	require.NoError(t, err)

	second, err := svc.Create(ctx, records.CreateInput{
		Label:   "Retro",
		Content: "https://meet.example/abc",
		ActorID: "alice",
	})
	require.NoError(t, err)

	assert.False(t, second.Duplicate)
	assert.NotEqual(t, first.Record.ID, second.Record.ID)
}

func TestService_DuplicateDetectionFailsOpen(t *testing.T) {
	svc, remote := newService(t)
	remote.ListErr = errors.New("connection reset")

	result, err := svc.Create(context.Background(), records.CreateInput{
		Label:   "Standup",
		Content: "https://meet.example/abc",
		ActorID: "alice",
	})
	require.NoError(t, err)
	assert.False(t, result.Duplicate)
}

func TestService_DuplicateScanDepthIsBounded(t *testing.T) {
	svc, remote := newService(t, records.WithClock(func() time.Time { return time.Unix(1700000000, 0) }))
	ctx := context.Background()

	// The matching record sits just beyond the scan depth.
	old := testutil.NewTestRecord("buried")
	old.Label = "Standup"
	old.Content = "https://meet.example/abc"
	old.CreatedAt = 1000
	remote.Seed(old)
	for i := range records.DuplicateScanDepth {
		filler := testutil.NewTestRecord("filler-" + string(rune('a'+i%26)) + string(rune('a'+i/26)))
		filler.CreatedAt = int64(2000 + i)
		remote.Seed(filler)
	}

	result, err := svc.Create(ctx, records.CreateInput{
		Label:   "Standup",
		Content: "https://meet.example/abc",
		ActorID: "alice",
	})
	require.NoError(t, err)
	assert.False(t, result.Duplicate, "records beyond the scan depth are not found")
}

func TestService_CreatePersistenceErrorPassesThrough(t *testing.T) {
	remote := testutil.NewFakeRemote()
	remote.SaveErr = errors.New("connection reset")
	local, db := testutil.NewLocalStore(t)
	require.NoError(t, db.Close())

	store := storage.New(remote, local, testutil.Online)
	svc := records.NewService(store, ratelimit.New(), testBaseURL)

	_, err := svc.Create(context.Background(), records.CreateInput{
		Label:   "Standup",
		Content: "https://meet.example/abc",
		ActorID: "alice",
	})

	var perr *storage.PersistenceError
	assert.ErrorAs(t, err, &perr)
}

func TestService_RejectedCreateDoesNotConsumeQuota(t *testing.T) {
	limiter := ratelimit.New()
	remote := testutil.NewFakeRemote()
	local, _ := testutil.NewLocalStore(t)
	store := storage.New(remote, local, testutil.Online)
	svc := records.NewService(store, limiter, testBaseURL)

	_, err := svc.Create(context.Background(), records.CreateInput{ActorID: "alice"})
	require.Error(t, err)

	assert.Equal(t, ratelimit.DefaultLimit, limiter.Remaining("alice"), "validation failures happen before the limiter")
}
