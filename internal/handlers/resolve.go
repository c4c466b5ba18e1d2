// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/scanlinkhq/scanlink/internal/safety"
)

// Resolve handles GET /r?id=..&data=.., the endpoint scanned codes point at.
// Safe URLs redirect; everything else is answered as display-only text.
func (h *Handlers) Resolve(c echo.Context) error {
	id := c.QueryParam("id")
	if id == "" {
		return c.JSON(http.StatusBadRequest, errorResponse{
			Kind:    "validation",
			Message: "id query parameter is required",
			Field:   "id",
		})
	}

	resolution, err := h.resolver.Resolve(c.Request().Context(), id, c.QueryParam("data"))
	if err != nil {
		return writeError(c, err)
	}

	if resolution.Mode == safety.ModeNavigate {
		return c.Redirect(http.StatusFound, resolution.URL)
	}

	return c.JSON(http.StatusOK, map[string]any{
		"mode":    string(resolution.Mode),
		"label":   resolution.Label,
		"content": resolution.Content,
	})
}
