package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"
)

// RateLimiterConfig drives the shared API limiter. Rate uses the
// ulule formatted syntax, e.g. "100-M" or "10-S".
type RateLimiterConfig struct {
	Rate       string   `json:"rate"`
	Identifier string   `json:"identifier"` // "ip" or "user"
	SkipPaths  []string `json:"skip_paths"` // prefix match
	AddHeaders bool     `json:"add_headers"`
}

type RateLimiter struct {
	cfg RateLimiterConfig
	lim *limiter.Limiter
}

// NewRateLimiter builds a limiter over the given store; a nil store
// selects the in-memory one.
func NewRateLimiter(cfg RateLimiterConfig, store limiter.Store) *RateLimiter {
	if store == nil {
		store = memory.NewStore()
	}
	rate, err := limiter.NewRateFromFormatted(cfg.Rate)
	if err != nil {
		rate = limiter.Rate{Period: time.Minute, Limit: 100}
	}
	return &RateLimiter{cfg: cfg, lim: limiter.New(store, rate)}
}

func (l *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		for _, pref := range l.cfg.SkipPaths {
			if pref != "" && strings.HasPrefix(c.Request.URL.Path, pref) {
				c.Next()
				return
			}
		}

		lctx, err := l.lim.Get(c, l.key(c))
		if err != nil {
			c.Next()
			return
		}
		if l.cfg.AddHeaders {
			c.Header("X-RateLimit-Limit", strconv.FormatInt(lctx.Limit, 10))
			c.Header("X-RateLimit-Remaining", strconv.FormatInt(lctx.Remaining, 10))
		}
		if lctx.Reached {
			retry := int(time.Until(time.Unix(lctx.Reset, 0)).Seconds())
			if retry < 0 {
				retry = 0
			}
			c.Header("Retry-After", strconv.Itoa(retry))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "Too Many Requests"})
			return
		}
		c.Next()
	}
}

func (l *RateLimiter) key(c *gin.Context) string {
	if l.cfg.Identifier == "user" {
		if v, ok := c.Get("identity_id"); ok {
			if id, ok := v.(uint); ok {
				return "user:" + strconv.FormatUint(uint64(id), 10)
			}
		}
	}
	ip := c.ClientIP()
	ip = strings.TrimPrefix(ip, "::ffff:")
	return "ip:" + ip
}
