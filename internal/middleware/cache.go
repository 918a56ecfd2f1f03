package middleware

import (
	"bytes"
	"context"
	"crypto/sha1"
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/resource-booking/internal/config"
)

// bodyCapture duplicates the response body into a buffer while streaming it
// to the client, up to a configured limit.
type bodyCapture struct {
	http.ResponseWriter
	status int
	buf    bytes.Buffer
	limit  int64
}

func (w *bodyCapture) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *bodyCapture) Write(b []byte) (int, error) {
	if w.limit <= 0 || int64(w.buf.Len()+len(b)) <= w.limit {
		w.buf.Write(b)
	} else {
		// Oversized bodies are streamed but never cached.
		w.buf.Reset()
		w.limit = -1
	}
	return w.ResponseWriter.Write(b)
}

// NewRedisCache caches successful JSON GET responses in Redis.  The public
// resource catalog changes rarely, so serving repeat reads from Redis keeps
// browse traffic off MySQL.  Keys hash the route and raw query; only 200
// responses within the body size limit are stored.
func NewRedisCache(cfg config.CacheConfig, rdb *redis.Client) echo.MiddlewareFunc {
	if !cfg.Enabled || rdb == nil {
		return func(next echo.HandlerFunc) echo.HandlerFunc {
			return func(c echo.Context) error { return next(c) }
		}
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if c.Request().Method != http.MethodGet {
				return next(c)
			}
			sum := sha1.Sum([]byte(c.Path() + "?" + c.Request().URL.RawQuery))
			key := fmt.Sprintf("%s:%x", cfg.Prefix, sum[:])

			if body, err := rdb.Get(c.Request().Context(), key).Bytes(); err == nil {
				c.Response().Header().Set("X-Cache", "HIT")
				return c.Blob(http.StatusOK, echo.MIMEApplicationJSON, body)
			}

			capture := &bodyCapture{ResponseWriter: c.Response().Writer, status: http.StatusOK, limit: int64(cfg.MaxBodyBytes)}
			c.Response().Writer = capture
			c.Response().Header().Set("X-Cache", "MISS")

			if err := next(c); err != nil {
				return err
			}
			ct := c.Response().Header().Get(echo.HeaderContentType)
			if capture.status == http.StatusOK && capture.buf.Len() > 0 && strings.HasPrefix(ct, echo.MIMEApplicationJSON) {
				// Detached context: the client response is already written.
				_ = rdb.SetEx(context.Background(), key, capture.buf.Bytes(), cfg.TTL).Err()
			}
			return nil
		}
	}
}
