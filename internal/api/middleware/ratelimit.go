package middleware

import (
	"bytes"
	"io"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/tidwall/gjson"
	"golang.org/x/time/rate"
)

// callKeyPeek bounds how much of a webhook body is read to find its call_sid.
// jambonz puts call_sid near the top of every payload.
const callKeyPeek = 4 << 10

// RateLimitConfig configures per-call rate limiting of webhook requests.
type RateLimitConfig struct {
	// Rate is the number of requests allowed per second per call.
	Rate rate.Limit
	// Burst is the maximum burst size per call.
	Burst int
	// IdleTTL is how long a call's bucket survives without requests. Calls
	// hang up without telling this layer, so idle buckets are swept.
	IdleTTL time.Duration
}

// NewRateLimitConfig returns a config allowing perSecond requests per call
// with the given burst.
func NewRateLimitConfig(perSecond float64, burst int) RateLimitConfig {
	return RateLimitConfig{
		Rate:    rate.Limit(perSecond),
		Burst:   burst,
		IdleTTL: 2 * time.Minute,
	}
}

type bucket struct {
	*rate.Limiter
	touched time.Time
}

// CallRateLimiter keeps one token bucket per call. All calls arrive from the
// same few jambonz feature servers, so buckets are keyed on the call_sid in
// the webhook body rather than the peer address. Requests without a
// call_sid share a bucket per peer address.
type CallRateLimiter struct {
	cfg    RateLimitConfig
	logger *slog.Logger

	mu      sync.Mutex
	buckets map[string]*bucket

	done     chan struct{}
	stopOnce sync.Once
}

// NewCallRateLimiter creates a limiter and starts sweeping idle buckets
// until Stop is called.
func NewCallRateLimiter(cfg RateLimitConfig, logger *slog.Logger) *CallRateLimiter {
	l := &CallRateLimiter{
		cfg:     cfg,
		logger:  logger.With("subsystem", "ratelimit"),
		buckets: make(map[string]*bucket),
		done:    make(chan struct{}),
	}
	go l.run()
	return l
}

// Allow spends a token from key's bucket.
func (l *CallRateLimiter) Allow(key string) bool {
	now := time.Now()

	l.mu.Lock()
	b := l.buckets[key]
	if b == nil {
		b = &bucket{Limiter: rate.NewLimiter(l.cfg.Rate, l.cfg.Burst)}
		l.buckets[key] = b
	}
	b.touched = now
	l.mu.Unlock()

	return b.AllowN(now, 1)
}

// Stop ends the sweep. Calling it again is a no-op.
func (l *CallRateLimiter) Stop() {
	l.stopOnce.Do(func() { close(l.done) })
}

func (l *CallRateLimiter) run() {
	t := time.NewTicker(l.cfg.IdleTTL)
	defer t.Stop()
	for {
		select {
		case now := <-t.C:
			l.forget(now)
		case <-l.done:
			return
		}
	}
}

// forget drops buckets untouched since now minus IdleTTL.
func (l *CallRateLimiter) forget(now time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()

	before := len(l.buckets)
	for key, b := range l.buckets {
		if now.Sub(b.touched) >= l.cfg.IdleTTL {
			delete(l.buckets, key)
		}
	}
	if n := before - len(l.buckets); n > 0 {
		l.logger.Debug("forgot idle calls", "count", n, "active", len(l.buckets))
	}
}

// RateLimit returns middleware that hands a request to throttled once its
// call has spent its budget. A nil throttled answers 429.
func RateLimit(l *CallRateLimiter, throttled http.Handler) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := callKey(r)
			if l.Allow(key) {
				next.ServeHTTP(w, r)
				return
			}

			l.logger.Warn("call throttled", "key", key, "path", r.URL.Path)
			if throttled != nil {
				throttled.ServeHTTP(w, r)
				return
			}
			w.Header().Set("Retry-After", "1")
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
		})
	}
}

// callKey returns the request's call_sid, or its peer address when the body
// has none. The body is left intact for the handler.
func callKey(r *http.Request) string {
	if r.Body != nil && r.Body != http.NoBody {
		head, _ := io.ReadAll(io.LimitReader(r.Body, callKeyPeek))
		r.Body = struct {
			io.Reader
			io.Closer
		}{io.MultiReader(bytes.NewReader(head), r.Body), r.Body}

		if sid := gjson.GetBytes(head, "call_sid"); sid.Type == gjson.String && sid.Str != "" {
			return "call:" + sid.Str
		}
	}
	return "addr:" + clientIP(r)
}

// clientIP strips the port from RemoteAddr. chi's RealIP middleware runs
// first when the service sits behind a proxy.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
