package middleware

import (
	"context"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/jonny/engagebot/pkg/apierror"
)

const (
	maxClients   = 10000
	staleAfter   = 10 * time.Minute
	evictEvery   = 5 * time.Minute
	headerRetry  = "Retry-After"
	errRateLimit = "rate limit exceeded"
)

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// clientLimiters keeps one limiter per client IP. Meta delivers callbacks from
// a small pool of addresses, so the burst is a full minute of traffic.
type clientLimiters struct {
	mu      sync.Mutex
	clients map[string]*clientLimiter
	every   rate.Limit
	burst   int
}

func newClientLimiters(ctx context.Context, requestsPerMinute int) *clientLimiters {
	cl := &clientLimiters{
		clients: make(map[string]*clientLimiter),
		every:   rate.Every(time.Minute / time.Duration(requestsPerMinute)),
		burst:   requestsPerMinute,
	}
	go cl.evictionLoop(ctx)
	return cl
}

func (cl *clientLimiters) evictionLoop(ctx context.Context) {
	ticker := time.NewTicker(evictEvery)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			cl.evictStale(time.Now().Add(-staleAfter))
		}
	}
}

func (cl *clientLimiters) evictStale(cutoff time.Time) {
	cl.mu.Lock()
	defer cl.mu.Unlock()
	for ip, c := range cl.clients {
		if c.lastSeen.Before(cutoff) {
			delete(cl.clients, ip)
		}
	}
}

// allow reports whether ip may proceed and, if not, how long it should wait.
// Unknown clients are refused once maxClients are tracked.
func (cl *clientLimiters) allow(ip string) (bool, time.Duration) {
	cl.mu.Lock()
	c, ok := cl.clients[ip]
	if !ok {
		if len(cl.clients) >= maxClients {
			cl.mu.Unlock()
			return false, staleAfter
		}
		c = &clientLimiter{limiter: rate.NewLimiter(cl.every, cl.burst)}
		cl.clients[ip] = c
	}
	c.lastSeen = time.Now()
	cl.mu.Unlock()

	if c.limiter.Allow() {
		return true, 0
	}
	return false, time.Duration(float64(time.Second) / float64(cl.every))
}

// NewRateLimiter returns a middleware that limits requests per minute per
// client IP. trustProxy controls whether X-Forwarded-For is used for IP
// extraction. The eviction goroutine stops when ctx is done. A non-positive
// limit disables rate limiting.
func NewRateLimiter(ctx context.Context, requestsPerMinute int, trustProxy bool) func(http.Handler) http.Handler {
	if requestsPerMinute <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	limiters := newClientLimiters(ctx, requestsPerMinute)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ok, retryAfter := limiters.allow(remoteIP(r, trustProxy))
			if !ok {
				secs := int(math.Ceil(retryAfter.Seconds()))
				w.Header().Set(headerRetry, strconv.Itoa(secs))
				apierror.Write(w, apierror.TooManyRequests(errRateLimit))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// remoteIP extracts the client IP from the request.
// Only trusts X-Forwarded-For when trustProxy is true (i.e., behind a known reverse proxy).
func remoteIP(r *http.Request, trustProxy bool) string {
	if trustProxy {
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			client, _, _ := strings.Cut(xff, ",")
			return strings.TrimSpace(client)
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
