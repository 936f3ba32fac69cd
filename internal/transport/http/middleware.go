package http

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/strogmv/notifyevents/internal/pkg/circuitbreaker"
	"github.com/strogmv/notifyevents/internal/pkg/errors"
	"github.com/strogmv/notifyevents/internal/pkg/logger"
)

const requestIDHeader = "X-Request-ID"

// RequestIDMiddleware propagates X-Request-ID, generating one when absent,
// and attaches it to the request logger.
func RequestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" || len(id) > 128 {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(withRequestID(r.Context(), id)))
	})
}

type requestIDKey struct{}

func withRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

func requestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// AccessLogMiddleware logs one line per request.
func AccessLogMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusResponseWriter{ResponseWriter: w}
		next.ServeHTTP(sw, r)
		if sw.status == 0 {
			sw.status = http.StatusOK
		}
		l := logger.From(r.Context()).With("request_id", requestID(r.Context()))
		attrs := []any{"method", r.Method, "path", r.URL.Path, "status", sw.status, "duration", time.Since(start)}
		if sw.status >= http.StatusInternalServerError {
			l.Error("request", attrs...)
			return
		}
		l.Info("request", attrs...)
	})
}

// RateLimiter counts requests per client host in one second windows.
// Counters live in Redis when a client is configured and reachable, in memory otherwise.
type RateLimiter struct {
	rdb redis.Cmdable
	max int
	now func() time.Time

	mu    sync.Mutex
	state map[string]*rateState
}

type rateState struct {
	windowStart time.Time
	count       int
}

func NewRateLimiter(rdb redis.Cmdable, rps, burst int) *RateLimiter {
	max := rps
	if burst > max {
		max = burst
	}
	return &RateLimiter{rdb: rdb, max: max, now: time.Now, state: map[string]*rateState{}}
}

func (l *RateLimiter) Middleware(next http.Handler) http.Handler {
	if l == nil || l.max <= 0 {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !l.allow(r.Context(), clientHost(r.RemoteAddr)) {
			w.Header().Set("Retry-After", "1")
			errors.WriteError(w, r, errors.New(http.StatusTooManyRequests, "Too Many Requests", "Rate limit exceeded"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// clientHost drops the ephemeral port so every connection of a host shares one counter.
func clientHost(remoteAddr string) string {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		return remoteAddr
	}
	return host
}

// windowKey names the Redis counter of client for the second containing now.
// Each window has its own key, so a lost EXPIRE never blocks a client past its window.
func windowKey(client string, now time.Time) string {
	return "notifyevents:rate:" + client + ":" + strconv.FormatInt(now.Unix(), 10)
}

func (l *RateLimiter) allow(ctx context.Context, client string) bool {
	now := l.now()
	if l.rdb != nil {
		key := windowKey(client, now)
		var incr *redis.IntCmd
		_, err := l.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			incr = pipe.Incr(ctx, key)
			pipe.Expire(ctx, key, 2*time.Second)
			return nil
		})
		if err == nil {
			return int(incr.Val()) <= l.max
		}
		logger.From(ctx).Warn("Rate limiter falling back to memory", "error", err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	st, ok := l.state[client]
	if !ok {
		st = &rateState{windowStart: now}
		l.state[client] = st
	}
	if now.Sub(st.windowStart) >= time.Second {
		st.windowStart = now
		st.count = 0
	}
	st.count++
	return st.count <= l.max
}

// TimeoutMiddleware bounds handler execution with http.TimeoutHandler.
func TimeoutMiddleware(timeout string) func(http.Handler) http.Handler {
	d, err := time.ParseDuration(timeout)
	if err != nil || d <= 0 {
		d = 30 * time.Second
	}
	return func(next http.Handler) http.Handler {
		return http.TimeoutHandler(next, d, `{"type":"about:blank","title":"Gateway Timeout","status":504,"detail":"Request timed out"}`)
	}
}

type statusResponseWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusResponseWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

func (w *statusResponseWriter) Write(b []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	return w.ResponseWriter.Write(b)
}

func MaxBodySizeMiddleware(limit int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.ContentLength > limit {
				errors.WriteError(w, r, errors.New(http.StatusRequestEntityTooLarge, "Payload Too Large", fmt.Sprintf("Request body too large (max %d bytes)", limit)))
				return
			}
			r.Body = http.MaxBytesReader(w, r.Body, limit)
			next.ServeHTTP(w, r)
		})
	}
}

// CircuitBreakerMiddleware sheds load with 503 after repeated 5xx responses.
func CircuitBreakerMiddleware(breaker *circuitbreaker.Breaker, retryAfter time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !breaker.Allow() {
				w.Header().Set("Retry-After", fmt.Sprintf("%d", int(retryAfter.Seconds())))
				errors.WriteError(w, r, errors.New(http.StatusServiceUnavailable, "Service Unavailable", "Circuit breaker is open"))
				return
			}

			sw := &statusResponseWriter{ResponseWriter: w}
			next.ServeHTTP(sw, r)

			if sw.status >= 500 {
				breaker.RecordFailure()
			} else {
				breaker.RecordSuccess()
			}
		})
	}
}
