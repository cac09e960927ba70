package middleware

import (
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/carelab/carelab/internal/platform/auth"
)

// Logger emits one structured line per request. The actor fields come from
// the authenticated principal so request logs can be joined against the
// workflow audit events written by the services.
func Logger(logger zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			req := c.Request()
			rid, _ := c.Get("request_id").(string)

			err := next(c)

			evt := logger.Info()
			if err != nil {
				evt = logger.Error().Err(err)
			}

			// The auth middleware runs inside this one, so the principal is
			// only on the request context after next returns.
			if p := auth.PrincipalFromContext(c.Request().Context()); p.Username != "" {
				evt = evt.Str("actor", p.Username).Str("actor_role", p.Role)
			}

			evt.
				Str("request_id", rid).
				Str("method", req.Method).
				Str("path", req.URL.Path).
				Int("status", c.Response().Status).
				Int64("bytes_out", c.Response().Size).
				Dur("latency", time.Since(start)).
				Str("remote_ip", c.RealIP()).
				Msg("request")

			return err
		}
	}
}
