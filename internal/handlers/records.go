// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package handlers

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	qrcode "github.com/skip2/go-qrcode"

	"github.com/scanlinkhq/scanlink/internal/records"
)

const (
	defaultListLimit = 50
	maxListLimit     = 200

	defaultQRSize = 256
	minQRSize     = 128
	maxQRSize     = 1024
)

// createRequest is the JSON body for record creation.
type createRequest struct {
	Label   string `json:"label"`
	Content string `json:"content"`
	LogoRef string `json:"logo_ref,omitempty"`
}

// CreateRecord handles POST /api/records. A duplicate match answers with the
// existing record and status 200; a fresh record answers with 201.
func (h *Handlers) CreateRecord(c echo.Context) error {
	var req createRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{
			Kind:    "validation",
			Message: "malformed request body",
		})
	}

	result, err := h.service.Create(c.Request().Context(), records.CreateInput{
		Label:   req.Label,
		Content: req.Content,
		LogoRef: req.LogoRef,
		ActorID: actorID(c),
	})
	if err != nil {
		return writeError(c, err)
	}

	status := http.StatusCreated
	if result.Duplicate {
		status = http.StatusOK
	}
	return c.JSON(status, result)
}

// ListRecords handles GET /api/records.
func (h *Handlers) ListRecords(c echo.Context) error {
	limit := defaultListLimit
	if raw := c.QueryParam("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			return c.JSON(http.StatusBadRequest, errorResponse{
				Kind:    "validation",
				Message: "limit must be a positive integer",
				Field:   "limit",
			})
		}
		limit = min(parsed, maxListLimit)
	}

	list, err := h.store.ListRecent(c.Request().Context(), limit)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{"records": list})
}

// GetRecord handles GET /api/records/:id.
func (h *Handlers) GetRecord(c echo.Context) error {
	record, err := h.store.Read(c.Request().Context(), c.Param("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{
		"record": record,
		"link":   h.service.Link(record),
	})
}

// RecordQR handles GET /api/records/:id/qr and renders the record's
// resolution link as a QR PNG.
func (h *Handlers) RecordQR(c echo.Context) error {
	record, err := h.store.Read(c.Request().Context(), c.Param("id"))
	if err != nil {
		return writeError(c, err)
	}

	size := defaultQRSize
	if raw := c.QueryParam("size"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < minQRSize || parsed > maxQRSize {
			return c.JSON(http.StatusBadRequest, errorResponse{
				Kind:    "validation",
				Message: "size must be between 128 and 1024",
				Field:   "size",
			})
		}
		size = parsed
	}

	png, err := qrcode.Encode(h.service.Link(record), qrcode.Medium, size)
	if err != nil {
		return writeError(c, err)
	}
	return c.Blob(http.StatusOK, "image/png", png)
}
