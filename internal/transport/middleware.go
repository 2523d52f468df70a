package transport

import (
	"bytes"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/alanyang/prompt-vault/internal/metrics"
	portidempotency "github.com/alanyang/prompt-vault/internal/port/idempotency"
)

// IdempotencyHeader names the client-chosen key of a retryable mutation.
const IdempotencyHeader = "Idempotency-Key"

// noisyPaths are high-frequency read paths logged at Debug to keep Info clean.
var noisyPaths = map[string]bool{
	"/api/ws":  true,
	"/healthz": true,
	"/metrics": true,
}

func RequestLogger(m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		if c.Request.Method == http.MethodOptions {
			return
		}
		elapsed := time.Since(start)
		if m != nil {
			m.HTTPRequests.WithLabelValues(c.Request.Method, strconv.Itoa(c.Writer.Status())).Inc()
			m.HTTPDuration.WithLabelValues(c.Request.Method).Observe(elapsed.Seconds())
		}

		attrs := []any{
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", elapsed,
		}
		if c.Request.Method == http.MethodGet && noisyPaths[c.Request.URL.Path] {
			slog.Debug("request", attrs...)
			return
		}
		slog.Info("request", attrs...)
	}
}

func CORSMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS, PUT")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, "+IdempotencyHeader)
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

var mutatingMethods = map[string]bool{
	http.MethodPost:   true,
	http.MethodPut:    true,
	http.MethodPatch:  true,
	http.MethodDelete: true,
}

// IdempotencyMiddleware replays the first successful JSON response of a
// mutation for every later request carrying the same Idempotency-Key.
// Requests without the header pass through untouched.
func IdempotencyMiddleware(store portidempotency.IdempotencyStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.GetHeader(IdempotencyHeader)
		if key == "" || !mutatingMethods[c.Request.Method] {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		scoped := c.Request.Method + " " + c.Request.URL.Path + " " + key

		prev, seen, err := store.Check(ctx, scoped)
		if err != nil {
			slog.ErrorContext(ctx, "idempotency check failed", "key", key, "error", err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "idempotency check failed"})
			return
		}
		if seen {
			c.Header("Idempotent-Replayed", "true")
			c.Data(prev.Status, "application/json; charset=utf-8", prev.Body)
			c.Abort()
			return
		}

		rec := &recorder{ResponseWriter: c.Writer}
		c.Writer = rec
		c.Next()

		status := rec.Status()
		if status < 200 || status >= 300 {
			return
		}
		if !strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
			return
		}
		resp := portidempotency.Response{Status: status, Body: rec.body.Bytes()}
		if err := store.Store(ctx, scoped, c.Request.Method+" "+c.FullPath(), resp); err != nil {
			slog.WarnContext(ctx, "failed to store idempotent response", "key", key, "error", err)
		}
	}
}

// recorder tees the response body so it can be stored after the handler ran.
type recorder struct {
	gin.ResponseWriter
	body bytes.Buffer
}

func (r *recorder) Write(b []byte) (int, error) {
	r.body.Write(b)
	return r.ResponseWriter.Write(b)
}

func (r *recorder) WriteString(s string) (int, error) {
	r.body.WriteString(s)
	return r.ResponseWriter.WriteString(s)
}
