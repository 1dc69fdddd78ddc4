package rpc

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const visitorIdleTTL = 10 * time.Minute

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// rateLimiter throttles callers by client address. A zero rate disables it.
type rateLimiter struct {
	perSecond  float64
	burst      int
	trustProxy bool
	trusted    map[string]struct{}

	mu       sync.Mutex
	visitors map[string]*visitor
	now      func() time.Time
}

func newRateLimiter(perSecond float64, burst int, trustProxy bool, trustedProxies []string) *rateLimiter {
	if burst <= 0 {
		burst = 1
	}
	trusted := make(map[string]struct{}, len(trustedProxies))
	for _, proxy := range trustedProxies {
		if trimmed := strings.TrimSpace(proxy); trimmed != "" {
			trusted[trimmed] = struct{}{}
		}
	}
	return &rateLimiter{
		perSecond:  perSecond,
		burst:      burst,
		trustProxy: trustProxy,
		trusted:    trusted,
		visitors:   make(map[string]*visitor),
		now:        time.Now,
	}
}

func (l *rateLimiter) Allow(r *http.Request) bool {
	if l == nil || l.perSecond <= 0 {
		return true
	}
	id := l.clientSource(r)
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()
	l.evict(now)
	v, ok := l.visitors[id]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(rate.Limit(l.perSecond), l.burst)}
		l.visitors[id] = v
	}
	v.lastSeen = now
	return v.limiter.AllowN(now, 1)
}

func (l *rateLimiter) evict(now time.Time) {
	for id, v := range l.visitors {
		if now.Sub(v.lastSeen) > visitorIdleTTL {
			delete(l.visitors, id)
		}
	}
}

// clientSource honours X-Forwarded-For only when the direct peer is a
// configured proxy.
func (l *rateLimiter) clientSource(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	if !l.trustProxy {
		return host
	}
	if _, ok := l.trusted[host]; !ok {
		return host
	}
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		parts := strings.Split(forwarded, ",")
		if candidate := strings.TrimSpace(parts[0]); candidate != "" {
			return candidate
		}
	}
	return host
}
