package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"kpireview/internal/transport/http/api"
)

// sweepAt bounds the key map: expired windows are dropped once it grows past this.
const sweepAt = 4096

// Throttle counts events per key in fixed windows. A nil Throttle or one with
// a non-positive limit admits everything.
type Throttle struct {
	mu      sync.Mutex
	limit   int
	period  time.Duration
	now     func() time.Time
	windows map[string]*throttleWindow
}

type throttleWindow struct {
	used   int
	resets time.Time
}

// Decision is the outcome of one Take.
type Decision struct {
	Key       string
	Limit     int
	Remaining int
	RetryIn   time.Duration
	Allowed   bool
}

func NewThrottle(limit int, period time.Duration) *Throttle {
	return &Throttle{
		limit:   limit,
		period:  period,
		now:     time.Now,
		windows: map[string]*throttleWindow{},
	}
}

func (t *Throttle) Take(key string) Decision {
	if t == nil || t.limit <= 0 {
		return Decision{Key: key, Allowed: true}
	}
	now := t.now()

	t.mu.Lock()
	defer t.mu.Unlock()
	win, ok := t.windows[key]
	if !ok || !now.Before(win.resets) {
		if len(t.windows) >= sweepAt {
			t.sweep(now)
		}
		win = &throttleWindow{resets: now.Add(t.period)}
		t.windows[key] = win
	}
	win.used++
	return Decision{
		Key:       key,
		Limit:     t.limit,
		Remaining: max(t.limit-win.used, 0),
		RetryIn:   win.resets.Sub(now),
		Allowed:   win.used <= t.limit,
	}
}

func (t *Throttle) sweep(now time.Time) {
	for k, w := range t.windows {
		if !now.Before(w.resets) {
			delete(t.windows, k)
		}
	}
}

// Admit writes the rate-limit headers for d and, when d is over the limit,
// answers 429 and returns false.
func Admit(w http.ResponseWriter, r *http.Request, d Decision) bool {
	if d.Limit <= 0 {
		return true
	}
	retry := max(int((d.RetryIn+time.Second-1)/time.Second), 1)
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(d.Limit))
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
	w.Header().Set("X-RateLimit-Reset", strconv.Itoa(retry))
	if d.Allowed {
		return true
	}
	w.Header().Set("Retry-After", strconv.Itoa(retry))
	slog.Warn("rate limit exceeded", "key", d.Key, "method", r.Method, "path", r.URL.Path, "limit", d.Limit)
	api.Fail(w, http.StatusTooManyRequests, "rate_limited", "too many requests", GetRequestID(r.Context()))
	return false
}

// SensitiveRateLimit guards the credential endpoints and the manual store
// refresh. Login and signup are counted per client address and per submitted
// handle, so rotating addresses does not reset the budget for one account.
// Review writes are throttled by the review handlers per (director, staff).
func SensitiveRateLimit(perWindow int, window time.Duration) func(http.Handler) http.Handler {
	credentials := NewThrottle(max(perWindow/4, 1), window)
	refresh := NewThrottle(max(perWindow/2, 1), window)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost || perWindow <= 0 {
				next.ServeHTTP(w, r)
				return
			}
			switch strings.TrimPrefix(r.URL.Path, "/api/v1") {
			case "/auth/login", "/auth/signup":
				if !Admit(w, r, credentials.Take("ip:"+clientIP(r))) {
					return
				}
				if handle := peekHandle(r); handle != "" && !Admit(w, r, credentials.Take("handle:"+handle)) {
					return
				}
			case "/admin/refresh":
				if !Admit(w, r, refresh.Take(actorKey(r))) {
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

func actorKey(r *http.Request) string {
	if user, ok := GetUser(r.Context()); ok && user.UserID != "" {
		return "user:" + user.UserID
	}
	return "ip:" + clientIP(r)
}

func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		if first = strings.TrimSpace(first); first != "" {
			return first
		}
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil && host != "" {
		return host
	}
	return r.RemoteAddr
}

// peekHandle reads the "handle" field of a JSON body and restores the body for
// the next handler.
func peekHandle(r *http.Request) string {
	if r.Body == nil || !strings.Contains(strings.ToLower(r.Header.Get("Content-Type")), "application/json") {
		return ""
	}
	raw, err := io.ReadAll(io.LimitReader(r.Body, 64<<10))
	r.Body = io.NopCloser(bytes.NewReader(raw))
	if err != nil {
		return ""
	}
	var body struct {
		Handle string `json:"handle"`
	}
	if json.Unmarshal(raw, &body) != nil {
		return ""
	}
	return strings.ToLower(strings.TrimSpace(body.Handle))
}
