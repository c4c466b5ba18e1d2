// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package storage

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/scanlinkhq/scanlink/internal/models"
)

// pingTimeout bounds the connectivity probe so an unreachable backend does
// not stall tier selection.
const pingTimeout = 2 * time.Second

// incrementScript atomically bumps the scan counter and stamps the scan time
// in a single server-side step, so no increment is lost under concurrent
// scans of the same record.
//
// KEYS[1]: record hash key
// ARGV[1]: scan timestamp (milliseconds)
//
// Returns 1 when the record exists, 0 otherwise.
var incrementScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then
    return 0
end
redis.call('HINCRBY', KEYS[1], 'scan_count', 1)
redis.call('HSET', KEYS[1], 'last_scanned_at', ARGV[1])
return 1
`)

// RemoteStore is the networked storage tier, a Redis keyspace holding one
// hash per record plus a sorted-set recency index.
type RemoteStore struct {
	client    *redis.Client
	namespace string
}

// NewRemoteStore creates a RemoteStore on the given client. Keys are scoped
// under the namespace so several deployments can share one Redis.
func NewRemoteStore(client *redis.Client, namespace string) *RemoteStore {
	if namespace == "" {
		namespace = "scanlink"
	}
	return &RemoteStore{client: client, namespace: namespace}
}

func (s *RemoteStore) recordKey(id string) string {
	return s.namespace + ":records:" + id
}

func (s *RemoteStore) indexKey() string {
	return s.namespace + ":records:index"
}

// Online reports whether the backend currently answers a ping. The tiered
// store consults this before every operation.
func (s *RemoteStore) Online(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	return s.client.Ping(ctx).Err() == nil
}

// Save persists the record hash and updates the recency index in one
// transactional pipeline.
func (s *RemoteStore) Save(ctx context.Context, record *models.Record) error {
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, s.recordKey(record.ID), recordToFields(record))
		pipe.ZAdd(ctx, s.indexKey(), redis.Z{
			Score:  float64(record.CreatedAt),
			Member: record.ID,
		})
		return nil
	})
	if err != nil {
		return fmt.Errorf("saving record %s: %w", record.ID, err)
	}
	return nil
}

// Get loads a record by ID, or ErrNotFound.
func (s *RemoteStore) Get(ctx context.Context, id string) (*models.Record, error) {
	fields, err := s.client.HGetAll(ctx, s.recordKey(id)).Result()
	if err != nil {
		return nil, fmt.Errorf("loading record %s: %w", id, err)
	}
	if len(fields) == 0 {
		return nil, ErrNotFound
	}
	return recordFromFields(fields), nil
}

// ListRecent returns up to limit records, newest first, via the recency index.
func (s *RemoteStore) ListRecent(ctx context.Context, limit int) ([]models.Record, error) {
	if limit <= 0 {
		return nil, nil
	}

	ids, err := s.client.ZRevRange(ctx, s.indexKey(), 0, int64(limit)-1).Result()
	if err != nil {
		return nil, fmt.Errorf("listing recent records: %w", err)
	}

	cmds := make([]*redis.MapStringStringCmd, len(ids))
	_, err = s.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for i, id := range ids {
			cmds[i] = pipe.HGetAll(ctx, s.recordKey(id))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("loading recent records: %w", err)
	}

	records := make([]models.Record, 0, len(ids))
	for _, cmd := range cmds {
		fields, err := cmd.Result()
		if err != nil || len(fields) == 0 {
			// Index entry without a hash; skip rather than fail the listing.
			continue
		}
		records = append(records, *recordFromFields(fields))
	}
	return records, nil
}

// IncrementScan atomically increments the scan counter by one and stamps
// last_scanned_at, or returns ErrNotFound when the record does not exist.
func (s *RemoteStore) IncrementScan(ctx context.Context, id string) error {
	now := time.Now().UnixMilli()
	res, err := incrementScript.Run(ctx, s.client, []string{s.recordKey(id)}, now).Int()
	if err != nil {
		return fmt.Errorf("incrementing scan count for %s: %w", id, err)
	}
	if res == 0 {
		return ErrNotFound
	}
	return nil
}

func recordToFields(r *models.Record) map[string]any {
	return map[string]any{
		"id":              r.ID,
		"label":           r.Label,
		"content":         r.Content,
		"logo_ref":        r.LogoRef,
		"scan_count":      r.ScanCount,
		"created_at":      r.CreatedAt,
		"last_scanned_at": r.LastScannedAt,
	}
}

func recordFromFields(fields map[string]string) *models.Record {
	return &models.Record{
		ID:            fields["id"],
		Label:         fields["label"],
		Content:       fields["content"],
		LogoRef:       fields["logo_ref"],
		ScanCount:     parseInt(fields["scan_count"]),
		CreatedAt:     parseInt(fields["created_at"]),
		LastScannedAt: parseInt(fields["last_scanned_at"]),
	}
}

func parseInt(s string) int64 {
	n, _ := strconv.ParseInt(s, 10, 64)
	return n
}
