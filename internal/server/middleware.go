// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package server

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/securecookie"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/scanlinkhq/scanlink/internal/config"
	"github.com/scanlinkhq/scanlink/internal/handlers"
)

// actorCookieName carries the anonymous actor identity the rate limiter
// keys on.
const actorCookieName = "_actor"

func setupMiddleware(e *echo.Echo, cfg *config.Config, sc *securecookie.SecureCookie) {
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(requestLogger())
	e.Use(middleware.Secure())
	e.Use(middleware.Gzip())
	e.Use(middleware.BodyLimit(fmt.Sprintf("%dM", cfg.Server.MaxBodySize)))
	e.Use(actorMiddleware(sc, strings.HasPrefix(cfg.Server.BaseURL, "https://")))
}

// actorMiddleware assigns each client a signed anonymous actor cookie. There
// is no identity system; the actor exists solely as the rate-limiting
// subject.
func actorMiddleware(sc *securecookie.SecureCookie, secure bool) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			var actor string

			if cookie, err := c.Cookie(actorCookieName); err == nil {
				if decodeErr := sc.Decode(actorCookieName, cookie.Value, &actor); decodeErr != nil {
					actor = ""
				}
			}

			if actor == "" {
				actor = uuid.NewString()
				encoded, err := sc.Encode(actorCookieName, actor)
				if err == nil {
					c.SetCookie(&http.Cookie{
						Name:     actorCookieName,
						Value:    encoded,
						Path:     "/",
						MaxAge:   int((365 * 24 * time.Hour).Seconds()),
						HttpOnly: true,
						Secure:   secure,
						SameSite: http.SameSiteLaxMode,
					})
				}
			}

			c.Set(handlers.ActorContextKey, actor)
			return next(c)
		}
	}
}

// requestLogger returns middleware that logs requests using slog.
func requestLogger() echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:   true,
		LogURI:      true,
		LogMethod:   true,
		LogLatency:  true,
		LogError:    true,
		HandleError: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			// Health checks would flood the log
			if c.Path() == "/health" {
				return nil
			}

			attrs := []slog.Attr{
				slog.String("method", v.Method),
				slog.String("uri", v.URI),
				slog.Int("status", v.Status),
				slog.Duration("latency", v.Latency),
			}

			if v.Error != nil {
				attrs = append(attrs, slog.String("error", v.Error.Error()))
				slog.LogAttrs(c.Request().Context(), slog.LevelError, "request", attrs...)
				return nil
			}

			slog.LogAttrs(c.Request().Context(), slog.LevelInfo, "request", attrs...)
			return nil
		},
	})
}
