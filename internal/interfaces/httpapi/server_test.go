package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"goldroom/internal/application/usecase/coordinator"
	"goldroom/internal/domain"
	"goldroom/internal/infrastructure/storage/memory"
)

// flakyRepo fails the first `fails` saves.
type flakyRepo struct {
	*memory.Repo
	mu    sync.Mutex
	fails int
}

func (f *flakyRepo) SaveState(ctx context.Context, st *domain.PersistedState) error {
	f.mu.Lock()
	if f.fails > 0 {
		f.fails--
		f.mu.Unlock()
		return errors.New("disk full")
	}
	f.mu.Unlock()
	return f.Repo.SaveState(ctx, st)
}

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func newTestServer(t *testing.T, opts Options) *httptest.Server {
	t.Helper()
	return newTestServerWithRepo(t, opts, memory.New())
}

func newTestServerWithRepo(t *testing.T, opts Options, repo coordinator.Repository) *httptest.Server {
	t.Helper()
	svc := coordinator.NewService(coordinator.ServiceDeps{
		Repo:     repo,
		Interval: time.Hour,
	})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = svc.Run(ctx)
		close(done)
	}()

	srv := httptest.NewServer(NewHandler(svc, opts))
	t.Cleanup(func() {
		srv.Close()
		cancel()
		<-done
	})
	return srv
}

func TestWSRequiresUpgrade(t *testing.T) {
	srv := newTestServer(t, Options{AdminSecret: "s"})
	resp, err := http.Get(srv.URL + "/ws")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUpgradeRequired {
		t.Errorf("status = %d, want 426", resp.StatusCode)
	}
}

func TestWSSnapshotAndPong(t *testing.T) {
	srv := newTestServer(t, Options{AdminSecret: "s"})

	c, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/ws", nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer c.Close()
	_ = c.SetReadDeadline(time.Now().Add(2 * time.Second))

	_, first, err := c.ReadMessage()
	if err != nil {
		t.Fatalf("read snapshot: %v", err)
	}
	var snap map[string]any
	if err := json.Unmarshal(first, &snap); err != nil {
		t.Fatalf("snapshot not json: %v", err)
	}
	if snap["limit_bulan"] != float64(8) {
		t.Errorf("limit_bulan = %v", snap["limit_bulan"])
	}

	if err := c.WriteMessage(websocket.TextMessage, []byte("ping")); err != nil {
		t.Fatalf("write ping: %v", err)
	}
	_, pong, err := c.ReadMessage()
	if err != nil {
		t.Fatalf("read pong: %v", err)
	}
	if string(pong) != `{"pong":true}` {
		t.Errorf("pong = %s", pong)
	}
}

func TestStateEndpoint(t *testing.T) {
	srv := newTestServer(t, Options{AdminSecret: "s"})
	resp, err := http.Get(srv.URL + "/api/state")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
		t.Errorf("content-type = %q", ct)
	}
	var body struct {
		History []any `json:"history"`
		Usd     []any `json:"usd_idr_history"`
		Limit   int   `json:"limit_bulan"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.History == nil || body.Usd == nil || body.Limit != 8 {
		t.Errorf("unexpected body: %+v", body)
	}
}

func TestSetLimitGate(t *testing.T) {
	clock := &fakeClock{t: time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)}
	srv := newTestServer(t, Options{
		AdminSecret: "rahasia",
		MaxLimit:    88888,
		Limiter:     NewIPLimiter(1000, 1000, 10),
		Now:         clock.Now,
	})

	steps := []struct {
		name    string
		path    string
		advance time.Duration
		want    int
	}{
		{"missing value", "/aturTS", 0, http.StatusBadRequest},
		{"missing key", "/aturTS/10", 0, http.StatusBadRequest},
		{"wrong key", "/aturTS/10?key=salah", 0, http.StatusForbidden},
		{"not a number", "/aturTS/sepuluh?key=rahasia", 0, http.StatusBadRequest},
		{"too large", "/aturTS/88889?key=rahasia", 0, http.StatusBadRequest},
		{"negative", "/aturTS/-1?key=rahasia", 0, http.StatusBadRequest},
		{"ok", "/aturTS/12?key=rahasia", 0, http.StatusOK},
		{"too soon", "/aturTS/13?key=rahasia", time.Second, http.StatusTooManyRequests},
		{"after window", "/aturTS/14?key=rahasia", 5 * time.Second, http.StatusOK},
	}
	for _, st := range steps {
		clock.Advance(st.advance)
		resp, err := http.Get(srv.URL + st.path)
		if err != nil {
			t.Fatalf("%s: %v", st.name, err)
		}
		resp.Body.Close()
		if resp.StatusCode != st.want {
			t.Errorf("%s: status = %d, want %d", st.name, resp.StatusCode, st.want)
		}
	}

	resp, err := http.Get(srv.URL + "/api/state")
	if err != nil {
		t.Fatalf("get state: %v", err)
	}
	defer resp.Body.Close()
	var body struct {
		Limit int `json:"limit_bulan"`
	}
	_ = json.NewDecoder(resp.Body).Decode(&body)
	if body.Limit != 14 {
		t.Errorf("limit_bulan = %d, want 14", body.Limit)
	}
}

func TestSetLimitResponseBody(t *testing.T) {
	srv := newTestServer(t, Options{AdminSecret: "rahasia"})
	resp, err := http.Get(srv.URL + "/aturTS/20?key=rahasia")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	var body map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["status"] != "ok" || body["limit_bulan"] != float64(20) {
		t.Errorf("body = %v", body)
	}
}

func TestSetLimitFailureDoesNotHoldWindow(t *testing.T) {
	clock := &fakeClock{t: time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)}
	repo := &flakyRepo{Repo: memory.New(), fails: 1}
	srv := newTestServerWithRepo(t, Options{
		AdminSecret: "rahasia",
		Limiter:     NewIPLimiter(1000, 1000, 10),
		Now:         clock.Now,
	}, repo)

	for _, want := range []int{http.StatusInternalServerError, http.StatusOK, http.StatusTooManyRequests} {
		clock.Advance(time.Second)
		resp, err := http.Get(srv.URL + "/aturTS/11?key=rahasia")
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		resp.Body.Close()
		if resp.StatusCode != want {
			t.Errorf("status = %d, want %d", resp.StatusCode, want)
		}
	}

	st, err := repo.LoadState(context.Background())
	if err != nil || st.LimitBulan == nil || *st.LimitBulan != 11 {
		t.Errorf("retry not persisted: %+v %v", st, err)
	}
}
