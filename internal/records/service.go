// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package records implements the record creation path: rate limiting,
// duplicate detection, identifier generation, the tiered write, and
// construction of the resolution link.
package records

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/scanlinkhq/scanlink/internal/idgen"
	"github.com/scanlinkhq/scanlink/internal/models"
	"github.com/scanlinkhq/scanlink/internal/ratelimit"
)

// DuplicateScanDepth bounds how many recent records the duplicate check
// inspects. The bounded scan trades recall for latency; duplicate detection
// is advisory, not a uniqueness constraint.
const DuplicateScanDepth = 50

// ResolvePath is the path component of resolution links. It is part of the
// wire contract for already-issued links and must not change.
const ResolvePath = "/r"

// RateLimitError reports an exhausted creation quota. The caller must wait;
// the core schedules no retries.
type RateLimitError struct {
	Remaining int
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limit exceeded, %d requests remaining in window", e.Remaining)
}

// Store is the persistence the creation path needs; *storage.Store satisfies it.
type Store interface {
	Write(ctx context.Context, record *models.Record) error
	Read(ctx context.Context, id string) (*models.Record, error)
	ListRecent(ctx context.Context, limit int) ([]models.Record, error)
}

// Service is the record creation service.
type Service struct {
	store   Store
	limiter *ratelimit.Limiter
	baseURL string
	newID   func() string
	now     func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithIDGenerator injects an identifier generator, used by tests.
func WithIDGenerator(newID func() string) Option {
	return func(s *Service) { s.newID = newID }
}

// WithClock injects a clock, used by tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates a Service. baseURL is the externally visible origin
// that resolution links are built on.
func NewService(store Store, limiter *ratelimit.Limiter, baseURL string, opts ...Option) *Service {
	s := &Service{
		store:   store,
		limiter: limiter,
		baseURL: strings.TrimSuffix(baseURL, "/"),
		newID:   idgen.NewID,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateInput is the caller-supplied part of a new record.
type CreateInput struct {
	Label   string
	Content string
	LogoRef string
	ActorID string
}

// CreateResult is the outcome of a creation request. Duplicate is true when
// an existing record matched and no new record was written.
type CreateResult struct {
	Record    *models.Record `json:"record"`
	Link      string         `json:"link"`
	Duplicate bool           `json:"duplicate"`
}

// Create runs the creation path: validation, rate limit, duplicate search,
// identifier generation, tiered write. Returns a ValidationError,
// RateLimitError or PersistenceError as typed failures.
func (s *Service) Create(ctx context.Context, in CreateInput) (*CreateResult, error) {
	record := &models.Record{
		Label:   in.Label,
		Content: in.Content,
		LogoRef: in.LogoRef,
	}
	if err := record.Validate(); err != nil {
		return nil, err
	}

	if !s.limiter.CanProceed(in.ActorID) {
		return nil, &RateLimitError{Remaining: s.limiter.Remaining(in.ActorID)}
	}

	if existing := s.FindDuplicate(ctx, in.Content, in.Label); existing != nil {
		return &CreateResult{Record: existing, Link: s.Link(existing), Duplicate: true}, nil
	}

	record.ID = s.newID()
	record.CreatedAt = s.now().UnixMilli()

	if err := s.store.Write(ctx, record); err != nil {
		return nil, err
	}

	slog.Info("record created", "id", record.ID, "label", record.Label)
	return &CreateResult{Record: record, Link: s.Link(record)}, nil
}

// FindDuplicate scans at most the DuplicateScanDepth most recent records for
// an exact match on content and label. Read failures return nil: detection
// never blocks creation.
func (s *Service) FindDuplicate(ctx context.Context, content, label string) *models.Record {
	recent, err := s.store.ListRecent(ctx, DuplicateScanDepth)
	if err != nil {
		slog.Warn("duplicate detection read failed, proceeding with creation", "error", err)
		return nil
	}
	for i := range recent {
		if recent[i].Content == content && recent[i].Label == label {
			return &recent[i]
		}
	}
	return nil
}

// Link builds the resolution link for a record:
// <origin>/r?id=<id>&data=<base64 fallback>. The data parameter is omitted
// when the encoded fallback payload would exceed its size bound.
func (s *Service) Link(record *models.Record) string {
	query := url.Values{}
	query.Set("id", record.ID)
	if payload := models.EncodeInlinePayload(record); payload != "" {
		query.Set("data", payload)
	}
	return s.baseURL + ResolvePath + "?" + query.Encode()
}
