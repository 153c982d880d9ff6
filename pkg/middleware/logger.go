package middleware

import (
	"strings"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/labstack/echo/v4"

	appctx "github.com/Ramsey-B/wisteria/pkg/context"
	"github.com/Ramsey-B/wisteria/pkg/tracing"
)

// Logger emits one access log line per request. Health and metrics probes are
// skipped; they fire every few seconds and drown everything else.
func Logger(logger ectologger.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) (err error) {
			req := c.Request()
			res := c.Response()
			start := time.Now()
			if err = next(c); err != nil {
				c.Error(err)
			}

			path := req.URL.Path
			if path == "/metrics" || strings.HasPrefix(path, "/api/v1/health") {
				return nil
			}

			ctx := req.Context()
			log := logger.WithContext(ctx).WithFields(map[string]interface{}{
				"request_id":  appctx.GetRequestID(ctx),
				"trace_id":    tracing.GetTraceID(ctx),
				"method":      req.Method,
				"uri":         req.RequestURI,
				"status":      res.Status,
				"route":       c.Path(),
				"remote_ip":   c.RealIP(),
				"host":        req.Host,
				"user_agent":  req.UserAgent(),
				"duration_ms": time.Since(start).Milliseconds(),
				"bytes_out":   res.Size,
			})

			switch {
			case res.Status >= 500:
				log.Error("Request")
			case res.Status >= 400:
				log.Warn("Request")
			default:
				log.Info("Request")
			}

			return nil
		}
	}
}
