package httpserver

import (
	"encoding/json"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/fdg312/coach-hub/internal/config"
	"golang.org/x/time/rate"
)

const (
	visitorIdleTTL = 3 * time.Minute
	sweepEvery     = 1024
)

type visitor struct {
	bucket   *rate.Limiter
	lastSeen time.Time
}

// visitors держит token bucket на каждый IP клиента
type visitors struct {
	mu      sync.Mutex
	byIP    map[string]*visitor
	limit   rate.Limit
	burst   int
	lookups int
	now     func() time.Time
}

func newVisitors(limit rate.Limit, burst int) *visitors {
	return &visitors{
		byIP:  make(map[string]*visitor),
		limit: limit,
		burst: burst,
		now:   time.Now,
	}
}

func (v *visitors) allow(ip string) bool {
	v.mu.Lock()
	defer v.mu.Unlock()

	now := v.now()
	vis, ok := v.byIP[ip]
	if !ok {
		vis = &visitor{bucket: rate.NewLimiter(v.limit, v.burst)}
		v.byIP[ip] = vis
	}
	vis.lastSeen = now

	v.lookups++
	if v.lookups%sweepEvery == 0 {
		v.sweep(now)
	}
	return vis.bucket.AllowN(now, 1)
}

// sweep забывает IP, не появлявшиеся дольше visitorIdleTTL
func (v *visitors) sweep(now time.Time) {
	for ip, vis := range v.byIP {
		if now.Sub(vis.lastSeen) > visitorIdleTTL {
			delete(v.byIP, ip)
		}
	}
}

type rateLimitedBody struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// RateLimitMiddleware limits each client IP to RateLimitRPS with RateLimitBurst.
// RateLimitRPS <= 0 disables it; /healthz is never limited.
func RateLimitMiddleware(cfg *config.Config, next http.Handler) http.Handler {
	if cfg.RateLimitRPS <= 0 {
		return next
	}

	burst := cfg.RateLimitBurst
	if burst <= 0 {
		burst = cfg.RateLimitRPS
	}
	limits := newVisitors(rate.Limit(cfg.RateLimitRPS), burst)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/healthz" || limits.allow(clientIP(r)) {
			next.ServeHTTP(w, r)
			return
		}

		var body rateLimitedBody
		body.Error.Code = "rate_limited"
		body.Error.Message = "Too many requests"
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Retry-After", "1")
		w.WriteHeader(http.StatusTooManyRequests)
		json.NewEncoder(w).Encode(body)
	})
}

// clientIP: первый адрес X-Forwarded-For, иначе хост из RemoteAddr
func clientIP(r *http.Request) string {
	if first, _, _ := strings.Cut(r.Header.Get("X-Forwarded-For"), ","); strings.TrimSpace(first) != "" {
		return strings.TrimSpace(first)
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
