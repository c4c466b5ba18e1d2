// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package handlers

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/scanlinkhq/scanlink/internal/sse"
)

// heartbeatInterval keeps SSE connections alive through proxies.
const heartbeatInterval = 30 * time.Second

// Events handles GET /api/records/:id/events and streams scan events for
// one record as Server-Sent Events until the client disconnects.
func (h *Handlers) Events(c echo.Context) error {
	recordID := c.Param("id")

	w := c.Response()
	flusher, ok := w.Writer.(http.Flusher)
	if !ok {
		return c.JSON(http.StatusInternalServerError, errorResponse{
			Kind:    "internal",
			Message: "SSE not supported",
		})
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // Disable nginx buffering
	w.WriteHeader(http.StatusOK)

	events, dispose := h.hub.Subscribe(recordID)
	defer dispose()

	// Send initial connection event
	if _, err := w.Write([]byte(sse.FormatEvent("connected", "ok"))); err != nil {
		return nil
	}
	flusher.Flush()

	ticker := time.NewTicker(heartbeatInterval)
	defer ticker.Stop()

	ctx := c.Request().Context()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if _, err := w.Write([]byte(sse.Heartbeat)); err != nil {
				return nil // Client disconnected
			}
			flusher.Flush()
		case event, ok := <-events:
			if !ok {
				return nil
			}
			if _, err := w.Write([]byte(sse.FormatScanEvent(event))); err != nil {
				return nil
			}
			flusher.Flush()
		}
	}
}
