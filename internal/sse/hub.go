// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package sse distributes scan events to subscribers and formats them for
// Server-Sent Events delivery.
package sse

import (
	"sync"

	"github.com/samber/lo"

	"github.com/scanlinkhq/scanlink/internal/models"
)

// ScanEvent describes one counted scan of a record.
type ScanEvent struct {
	RecordID  string `json:"record_id"`
	Label     string `json:"label"`
	ScanCount int64  `json:"scan_count"`
	ScannedAt int64  `json:"scanned_at"`
}

// Hub manages scan event subscriptions per record. Delivery is cooperative:
// sends never block, and there is no ordering guarantee between
// subscriptions on the same record.
type Hub struct {
	subs     map[string][]chan ScanEvent
	wildcard []chan ScanEvent
	mu       sync.RWMutex
}

// NewHub creates a new scan event hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[string][]chan ScanEvent)}
}

// Subscribe registers interest in scans of one record. The returned disposer
// removes the subscription and closes the channel; it is safe to call once.
func (h *Hub) Subscribe(recordID string) (<-chan ScanEvent, func()) {
	ch := make(chan ScanEvent, 10) // buffered to prevent blocking publishers

	h.mu.Lock()
	h.subs[recordID] = append(h.subs[recordID], ch)
	h.mu.Unlock()

	dispose := func() {
		h.mu.Lock()
		defer h.mu.Unlock()

		h.subs[recordID] = lo.Filter(h.subs[recordID], func(c chan ScanEvent, _ int) bool {
			return c != ch
		})
		if len(h.subs[recordID]) == 0 {
			delete(h.subs, recordID)
		}
		close(ch)
	}
	return ch, dispose
}

// SubscribeAll registers interest in scans of every record.
func (h *Hub) SubscribeAll() (<-chan ScanEvent, func()) {
	ch := make(chan ScanEvent, 10)

	h.mu.Lock()
	h.wildcard = append(h.wildcard, ch)
	h.mu.Unlock()

	dispose := func() {
		h.mu.Lock()
		defer h.mu.Unlock()

		h.wildcard = lo.Filter(h.wildcard, func(c chan ScanEvent, _ int) bool {
			return c != ch
		})
		close(ch)
	}
	return ch, dispose
}

// Publish delivers the event to all matching subscribers. Subscribers with a
// full buffer are skipped rather than blocked on.
func (h *Hub) Publish(event ScanEvent) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, ch := range h.subs[event.RecordID] {
		select {
		case ch <- event:
		default:
		}
	}
	for _, ch := range h.wildcard {
		select {
		case ch <- event:
		default:
		}
	}
}

// NotifyScan adapts the hub to the resolver's scan notification contract.
func (h *Hub) NotifyScan(record *models.Record) {
	h.Publish(ScanEvent{
		RecordID:  record.ID,
		Label:     record.Label,
		ScanCount: record.ScanCount,
		ScannedAt: record.LastScannedAt,
	})
}

// SubscriberCount returns the total number of active subscriptions.
func (h *Hub) SubscriberCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	total := lo.SumBy(lo.Values(h.subs), func(chs []chan ScanEvent) int {
		return len(chs)
	})
	return total + len(h.wildcard)
}
