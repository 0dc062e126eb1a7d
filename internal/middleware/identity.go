package middleware

// identity.go holds helpers that read the identity JWTAuth stored in
// the echo context, plus the request id and access log middleware.

import (
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/construction-supply-tracker/internal/metrics"
	"github.com/iliyamo/construction-supply-tracker/internal/model"
)

// Identity returns the authenticated user id and role.  ok is false
// on routes that did not run JWTAuth.
func Identity(c echo.Context) (userID int64, role model.Role, ok bool) {
	uid, ok1 := c.Get("user_id").(int64)
	r, ok2 := c.Get("role").(model.Role)
	return uid, r, ok1 && ok2
}

// RequestID makes sure every request carries an X-Request-ID, reusing
// the caller's when present, and echoes it on the response.
func RequestID() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			id := c.Request().Header.Get(echo.HeaderXRequestID)
			if id == "" {
				id = uuid.NewString()
			}
			c.Set("request_id", id)
			c.Response().Header().Set(echo.HeaderXRequestID, id)
			return next(c)
		}
	}
}

// AccessLog logs every request with zap and records it in m when m is
// not nil.
func AccessLog(log *zap.Logger, m *metrics.Server) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			reqID, _ := c.Get("request_id").(string)
			l := log.With(zap.String("request_id", reqID))
			c.Set("logger", l)

			err := next(c)
			if err != nil {
				c.Error(err)
			}

			latency := time.Since(start)
			status := c.Response().Status
			l.Info("HTTP Request",
				zap.String("method", c.Request().Method),
				zap.String("path", c.Request().URL.Path),
				zap.Int("status", status),
				zap.Duration("latency", latency),
				zap.String("ip", c.RealIP()),
			)
			if m != nil {
				m.Observe(c.Request().Method, c.Path(), strconv.Itoa(status), latency.Seconds())
			}
			return nil
		}
	}
}
