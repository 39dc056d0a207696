package middleware

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"SafeHaven/pkg/cache"

	"github.com/gin-gonic/gin"
)

type IdempotencyConfig struct {
	HeaderName string        // defaults to Idempotency-Key
	TTL        time.Duration // rejection window for repeats
	Store      cache.Cache
}

// IdempotencyMiddleware rejects repeats of the same request within the
// TTL. A panicked SOS button sends duplicates; only the first may open
// an alert and start an escalation chain. Clients that send no key are
// deduplicated on a body hash. Keys are scoped to the authenticated
// caller, so two users sending identical payloads never collide. The
// reservation is released when the handler fails, so a request that
// came back non-2xx can be resubmitted under the same key.
func IdempotencyMiddleware(cfg IdempotencyConfig) gin.HandlerFunc {
	if cfg.HeaderName == "" {
		cfg.HeaderName = "Idempotency-Key"
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 10 * time.Minute
	}
	store := cfg.Store
	if store == nil {
		store = cache.NewLocalCache(cache.LocalConfig{DefaultExpiration: cfg.TTL})
	}
	return func(c *gin.Context) {
		key := strings.TrimSpace(c.GetHeader(cfg.HeaderName))
		if key == "" {
			b, _ := io.ReadAll(c.Request.Body)
			c.Request.Body = io.NopCloser(bytes.NewReader(b))
			h := sha256.Sum256(b)
			key = hex.EncodeToString(h[:])
		}
		if id, ok := c.Get("identity_id"); ok {
			key = fmt.Sprintf("%v:%s", id, key)
		}
		cacheKey := "idem:" + key

		reserved, err := store.SetNX(c, cacheKey, 1, cfg.TTL)
		if err != nil {
			// cache outage must not block an emergency request
			c.Next()
			return
		}
		if !reserved {
			c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": "duplicate request"})
			return
		}

		c.Next()

		if status := c.Writer.Status(); status < http.StatusOK || status >= http.StatusMultipleChoices {
			store.Delete(c, cacheKey)
		}
	}
}
