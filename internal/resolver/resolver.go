// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package resolver turns a scanned identifier back into displayable or
// navigable content through an ordered chain of sources. The creating device
// and the scanning device are frequently different, so any device-local
// cache is unreliable; the inline payload guarantees the chain degrades to
// "still shows the right content" with zero connectivity and zero shared
// storage, at the cost of losing analytics for that scan.
package resolver

import (
	"context"
	"errors"
	"log/slog"

	"github.com/scanlinkhq/scanlink/internal/models"
	"github.com/scanlinkhq/scanlink/internal/safety"
	"github.com/scanlinkhq/scanlink/internal/storage"
)

// Source names the tier that answered a resolution.
type Source string

const (
	SourceRemote    Source = "remote"
	SourceEncrypted Source = "encrypted-cache"
	SourceLegacy    Source = "legacy-cache"
	SourceInline    Source = "inline"
)

// Sources is the tier access the resolver needs; *storage.Store satisfies it.
type Sources interface {
	ReadRemote(ctx context.Context, id string) (*models.Record, error)
	ReadEncrypted(ctx context.Context, id string) (*models.Record, error)
	ReadLegacy(ctx context.Context, id string) (*models.Record, error)
	IncrementScan(ctx context.Context, id string) error
}

// ScanNotifier receives a notification after each counted scan. Delivery is
// cooperative and carries no ordering guarantee relative to other
// subscriptions on the same record.
type ScanNotifier interface {
	NotifyScan(record *models.Record)
}

// Resolution is a successful resolution outcome. Mode distinguishes a safe
// redirect from display-as-text; both are successes, not errors. Record is
// nil when the inline payload answered (nothing durable to report on).
type Resolution struct {
	Mode    safety.Mode
	URL     string
	Content string
	Label   string
	Source  Source
	Record  *models.Record
}

// Resolver resolves identifiers through the four-tier chain.
type Resolver struct {
	sources    Sources
	classifier safety.Classifier
	notifier   ScanNotifier
}

// New creates a Resolver. notifier may be nil.
func New(sources Sources, classifier safety.Classifier, notifier ScanNotifier) *Resolver {
	return &Resolver{sources: sources, classifier: classifier, notifier: notifier}
}

// Resolve attempts, in order: networked backend, encrypted local cache,
// legacy plaintext cache, and finally the inline fallback payload carried in
// the request. Each source has independent failure isolation: an error from
// one source is logged and the next is tried. When every source comes up
// empty the resolution fails with storage.ErrNotFound.
//
// A hit from a stored tier triggers a best-effort scan-count increment whose
// failure never fails the resolution. An inline hit triggers no increment;
// there is no durable record to update.
func (r *Resolver) Resolve(ctx context.Context, id string, inlineData string) (*Resolution, error) {
	tiers := []struct {
		source Source
		read   func(context.Context, string) (*models.Record, error)
	}{
		{SourceRemote, r.sources.ReadRemote},
		{SourceEncrypted, r.sources.ReadEncrypted},
		{SourceLegacy, r.sources.ReadLegacy},
	}

	for _, tier := range tiers {
		record, err := tier.read(ctx, id)
		if err != nil {
			if !errors.Is(err, storage.ErrNotFound) {
				slog.Warn("resolution tier failed", "tier", tier.source, "id", id, "error", err)
			}
			continue
		}
		r.countScan(ctx, record)
		return r.finish(record.Content, record.Label, tier.source, record), nil
	}

	if payload, err := models.DecodeInlinePayload(inlineData); err == nil {
		return r.finish(payload.Content, payload.Label, SourceInline, nil), nil
	} else if inlineData != "" {
		slog.Warn("invalid inline payload", "id", id, "error", err)
	}

	return nil, storage.ErrNotFound
}

// countScan applies the best-effort increment and scan notification.
// Counter-update failures are logged only, never surfaced to the scanner.
func (r *Resolver) countScan(ctx context.Context, record *models.Record) {
	if err := r.sources.IncrementScan(ctx, record.ID); err != nil {
		slog.Warn("scan counter update failed", "id", record.ID, "error", err)
		return
	}
	record.ScanCount++
	if r.notifier != nil {
		r.notifier.NotifyScan(record)
	}
}

func (r *Resolver) finish(content, label string, source Source, record *models.Record) *Resolution {
	outcome := r.classifier.Classify(content)
	return &Resolution{
		Mode:    outcome.Mode,
		URL:     outcome.URL,
		Content: content,
		Label:   label,
		Source:  source,
		Record:  record,
	}
}
