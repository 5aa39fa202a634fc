package httpapi

import (
	"net"
	"net/http"
	"strings"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/time/rate"
)

const rateLimitedHTML = "<!DOCTYPE html><html><head><title>429</title></head><body><h1>Too Many Requests</h1><p>Silakan coba lagi nanti.</p></body></html>"

// IPLimiter keeps one token bucket per client IP. When full it forgets the
// least recently seen IP.
type IPLimiter struct {
	limit rate.Limit
	burst int

	mu      sync.Mutex // get-or-create must not race two buckets for one IP
	clients *lru.Cache[string, *rate.Limiter]
}

func NewIPLimiter(rps float64, burst, maxClients int) *IPLimiter {
	if rps <= 0 {
		rps = 1
	}
	if burst <= 0 {
		burst = 60
	}
	if maxClients <= 0 {
		maxClients = 10000
	}
	clients, _ := lru.New[string, *rate.Limiter](maxClients) // size is positive here
	return &IPLimiter{
		limit:   rate.Limit(rps),
		burst:   burst,
		clients: clients,
	}
}

func (l *IPLimiter) Allow(ip string) bool {
	l.mu.Lock()
	lim, ok := l.clients.Get(ip)
	if !ok {
		lim = rate.NewLimiter(l.limit, l.burst)
		l.clients.Add(ip, lim)
	}
	l.mu.Unlock()
	return lim.Allow()
}

func (l *IPLimiter) Len() int { return l.clients.Len() }

func (l *IPLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !l.Allow(ClientIP(r)) {
			w.Header().Set("Content-Type", "text/html")
			w.Header().Set("Retry-After", "60")
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(rateLimitedHTML))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// ClientIP prefers CF-Connecting-IP, then the first X-Forwarded-For hop.
func ClientIP(r *http.Request) string {
	if ip := strings.TrimSpace(r.Header.Get("CF-Connecting-IP")); ip != "" {
		return ip
	}
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
