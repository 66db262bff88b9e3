package middleware

import (
	"bytes"
	"context"
	"io"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"order-pipeline/internal/errs"
	"order-pipeline/internal/idempotency"
	"order-pipeline/internal/logger"
)

// Idempotency replays the first response recorded for an Idempotency-Key.
// The key is claimed before the handler runs, so a retry arriving while the
// first request is still in flight is rejected rather than run again.
// Requests without the header, or with no store configured, run normally.
// Server errors release the key so the client can retry them.
func Idempotency(store idempotency.Store, ttl time.Duration, log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		clientKey := strings.TrimSpace(c.GetHeader(idempotency.Header))
		if store == nil || clientKey == "" {
			c.Next()
			return
		}
		ctx := c.Request.Context()

		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			abortWithError(c, errs.Wrap(errs.CodeValidation, err, "unreadable request body"))
			return
		}
		c.Request.Body = io.NopCloser(bytes.NewReader(body))

		hash := idempotency.HashBody(body)
		key := idempotency.Key(c.Request.Method, c.Request.URL.Path, clientKey)

		claimed, err := store.Claim(ctx, key, idempotency.PendingRecord(hash), idempotency.PendingTTL)
		if err != nil {
			// the unique checkout key still prevents a second order
			log.Warn(ctx, "idempotency claim failed; running request", err)
			c.Next()
			return
		}
		if !claimed {
			stored, err := store.Get(ctx, key)
			if err != nil {
				log.Warn(ctx, "idempotency lookup failed", err)
			}
			replay(c, stored, hash)
			return
		}

		// Outlives client disconnects so the claim is never left behind.
		persistCtx := context.WithoutCancel(ctx)
		completed := false
		defer func() {
			if !completed {
				if err := store.Release(persistCtx, key); err != nil {
					log.Warn(ctx, "releasing idempotency key failed", err)
				}
			}
		}()

		capture := &responseCapture{ResponseWriter: c.Writer}
		c.Writer = capture
		c.Next()

		status := c.Writer.Status()
		if status >= 500 {
			return
		}
		rec := &idempotency.Record{
			Status:      status,
			ContentType: c.Writer.Header().Get("Content-Type"),
			Body:        capture.body.Bytes(),
			RequestHash: hash,
		}
		if err := store.Complete(persistCtx, key, rec, ttl); err != nil {
			log.Warn(ctx, "persisting idempotency record failed", err)
			return
		}
		completed = true
	}
}

// replay answers a request whose key is already taken.
func replay(c *gin.Context, stored *idempotency.Record, hash string) {
	switch {
	case stored == nil || stored.Pending && stored.RequestHash == hash:
		abortWithError(c, errs.New(errs.CodeConflict, "a request with this idempotency key is still in progress"))
		return
	case stored.RequestHash != hash:
		abortWithError(c, errs.New(errs.CodeConflict, "idempotency key reused with a different request"))
		return
	}
	if stored.ContentType != "" {
		c.Header("Content-Type", stored.ContentType)
	}
	c.Header("Idempotent-Replayed", "true")
	c.Status(stored.Status)
	_, _ = c.Writer.Write(stored.Body)
	c.Abort()
}

type responseCapture struct {
	gin.ResponseWriter
	body bytes.Buffer
}

func (r *responseCapture) Write(b []byte) (int, error) {
	r.body.Write(b)
	return r.ResponseWriter.Write(b)
}

func (r *responseCapture) WriteString(s string) (int, error) {
	r.body.WriteString(s)
	return r.ResponseWriter.WriteString(s)
}
