package middleware

import (
	"net/http"
	"sync"
	"time"

	"pickupshop/internal/apierror"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// rateEntry tracks request counts per IP within a fixed window.
type rateEntry struct {
	count     int
	windowEnd time.Time
	mu        sync.Mutex
}

// limiter is one independent set of per-IP counters.
type limiter struct {
	mu      sync.Mutex
	entries map[string]*rateEntry
	limit   int
	window  time.Duration
}

func (l *limiter) allow(ip string, now time.Time) (bool, time.Time) {
	l.mu.Lock()
	entry, exists := l.entries[ip]
	if !exists {
		entry = &rateEntry{}
		l.entries[ip] = entry
	}
	l.mu.Unlock()

	entry.mu.Lock()
	defer entry.mu.Unlock()
	if now.After(entry.windowEnd) {
		entry.count = 0
		entry.windowEnd = now.Add(l.window)
	}
	entry.count++
	return entry.count <= l.limit, entry.windowEnd
}

// purge drops windows that already ended and returns how many were removed.
func (l *limiter) purge(now time.Time) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	purged := 0
	for ip, entry := range l.entries {
		entry.mu.Lock()
		if now.After(entry.windowEnd) {
			delete(l.entries, ip)
			purged++
		}
		entry.mu.Unlock()
	}
	return purged
}

// RateLimiter returns a per-IP limiter allowing limit requests per window.
// Expired entries are purged every purgeInterval.
func RateLimiter(limit int, window time.Duration) gin.HandlerFunc {
	l := &limiter{entries: make(map[string]*rateEntry), limit: limit, window: window}
	go purgeExpiredEntries(l)

	return func(c *gin.Context) {
		ok, windowEnd := l.allow(c.ClientIP(), time.Now())
		if !ok {
			c.Header("Retry-After", windowEnd.Format(time.RFC1123))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, apierror.New("rate_limited", "Too many requests, try again shortly"))
			return
		}
		c.Next()
	}
}

const purgeInterval = 5 * time.Minute

func purgeExpiredEntries(l *limiter) {
	ticker := time.NewTicker(purgeInterval)
	defer ticker.Stop()

	for now := range ticker.C {
		if n := l.purge(now); n > 0 {
			log.Debug().Int("entries_purged", n).Msg("rate limiter map purged")
		}
	}
}
