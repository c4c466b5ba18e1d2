// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package handlers

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/scanlinkhq/scanlink/internal/models"
	"github.com/scanlinkhq/scanlink/internal/records"
	"github.com/scanlinkhq/scanlink/internal/storage"
)

// errorResponse is the JSON error body. Kind lets callers render distinct
// messaging per failure class.
type errorResponse struct {
	Kind      string `json:"error"`
	Message   string `json:"message"`
	Field     string `json:"field,omitempty"`
	Remaining *int   `json:"remaining,omitempty"`
}

// writeError maps the typed failure taxonomy onto HTTP responses.
func writeError(c echo.Context, err error) error {
	var validationErr *models.ValidationError
	if errors.As(err, &validationErr) {
		return c.JSON(http.StatusBadRequest, errorResponse{
			Kind:    "validation",
			Message: validationErr.Error(),
			Field:   validationErr.Field,
		})
	}

	var rateLimitErr *records.RateLimitError
	if errors.As(err, &rateLimitErr) {
		return c.JSON(http.StatusTooManyRequests, errorResponse{
			Kind:      "rate_limit",
			Message:   rateLimitErr.Error(),
			Remaining: &rateLimitErr.Remaining,
		})
	}

	var persistenceErr *storage.PersistenceError
	if errors.As(err, &persistenceErr) {
		return c.JSON(http.StatusServiceUnavailable, errorResponse{
			Kind:    "persistence",
			Message: "record could not be stored",
		})
	}

	if errors.Is(err, storage.ErrNotFound) {
		return c.JSON(http.StatusNotFound, errorResponse{
			Kind:    "not_found",
			Message: "content unavailable",
		})
	}

	return c.JSON(http.StatusInternalServerError, errorResponse{
		Kind:    "internal",
		Message: "internal server error",
	})
}
