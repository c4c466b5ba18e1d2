// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package handlers contains the HTTP handlers for record creation, scan
// resolution and scan event streaming.
package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/scanlinkhq/scanlink/internal/records"
	"github.com/scanlinkhq/scanlink/internal/resolver"
	"github.com/scanlinkhq/scanlink/internal/sse"
	"github.com/scanlinkhq/scanlink/internal/storage"
)

// ActorContextKey is the echo context key under which the actor middleware
// stores the anonymous actor ID.
const ActorContextKey = "actor"

// Handlers contains all HTTP handlers.
type Handlers struct {
	service  *records.Service
	store    *storage.Store
	resolver *resolver.Resolver
	hub      *sse.Hub
}

// New creates a new Handlers instance.
func New(service *records.Service, store *storage.Store, res *resolver.Resolver, hub *sse.Hub) *Handlers {
	return &Handlers{service: service, store: store, resolver: res, hub: hub}
}

// Health returns the health status.
func (h *Handlers) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status": "ok",
	})
}

// actorID returns the anonymous actor set by the middleware, or a single
// shared identity when the middleware is absent.
func actorID(c echo.Context) string {
	if actor, ok := c.Get(ActorContextKey).(string); ok && actor != "" {
		return actor
	}
	return "anonymous"
}
