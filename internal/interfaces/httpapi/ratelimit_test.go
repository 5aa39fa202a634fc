package httpapi

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
)

func TestIPLimiterBurst(t *testing.T) {
	l := NewIPLimiter(0.001, 2, 10)
	h := l.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest("GET", "/aturTS/1", nil)
		req.Header.Set("CF-Connecting-IP", "203.0.113.7")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
		if rec.Code == http.StatusTooManyRequests && rec.Header().Get("Retry-After") != "60" {
			t.Errorf("missing Retry-After header")
		}
	}
	if codes[0] != 200 || codes[1] != 200 || codes[2] != http.StatusTooManyRequests {
		t.Errorf("codes = %v", codes)
	}

	// a different client has its own bucket
	req := httptest.NewRequest("GET", "/aturTS/1", nil)
	req.Header.Set("CF-Connecting-IP", "203.0.113.8")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("second client limited: %d", rec.Code)
	}
}

func TestIPLimiterEvictsLeastRecent(t *testing.T) {
	l := NewIPLimiter(0.001, 1, 2)
	l.Allow("a")
	l.Allow("b")
	l.Allow("a") // a becomes most recent, denied
	l.Allow("c") // evicts b

	if l.Len() != 2 {
		t.Fatalf("len = %d, want 2", l.Len())
	}
	if l.Allow("a") {
		t.Error("a should still be limited")
	}
	if !l.Allow("b") {
		t.Error("b was evicted and should get a fresh bucket")
	}
}

func TestIPLimiterConcurrentClientSharesBucket(t *testing.T) {
	l := NewIPLimiter(0.001, 5, 10)
	var allowed atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if l.Allow("198.51.100.1") {
				allowed.Add(1)
			}
		}()
	}
	wg.Wait()
	if n := allowed.Load(); n != 5 {
		t.Errorf("allowed = %d, want burst of 5", n)
	}
	if l.Len() != 1 {
		t.Errorf("len = %d, want 1", l.Len())
	}
}

func TestClientIP(t *testing.T) {
	cases := []struct {
		name   string
		header map[string]string
		remote string
		want   string
	}{
		{"cloudflare", map[string]string{"CF-Connecting-IP": "1.1.1.1", "X-Forwarded-For": "2.2.2.2"}, "3.3.3.3:1", "1.1.1.1"},
		{"forwarded", map[string]string{"X-Forwarded-For": " 2.2.2.2 , 4.4.4.4"}, "3.3.3.3:1", "2.2.2.2"},
		{"remote", nil, "3.3.3.3:1234", "3.3.3.3"},
		{"bare remote", nil, "3.3.3.3", "3.3.3.3"},
	}
	for _, c := range cases {
		req := httptest.NewRequest("GET", "/", nil)
		req.RemoteAddr = c.remote
		for k, v := range c.header {
			req.Header.Set(k, v)
		}
		if got := ClientIP(req); got != c.want {
			t.Errorf("%s: ClientIP = %q, want %q", c.name, got, c.want)
		}
	}
}
