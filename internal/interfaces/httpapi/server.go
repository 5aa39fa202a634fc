package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"goldroom/internal/application/port"
	"goldroom/internal/application/usecase/coordinator"
)

// Coordinator is the subset of coordinator.Service the HTTP layer needs.
type Coordinator interface {
	Join(ctx context.Context, sub port.Subscriber) error
	Leave(sub port.Subscriber)
	Snapshot(ctx context.Context) (*coordinator.Snapshot, error)
	SetLimit(ctx context.Context, n int) (int, error)
}

type Options struct {
	AdminSecret      string
	MinLimit         int
	MaxLimit         int
	AdminMinInterval time.Duration

	Limiter *IPLimiter

	MetricsPath    string
	MetricsHandler http.Handler

	Now func() time.Time
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(*http.Request) bool { return true },
}

type handler struct {
	coord Coordinator
	gate  *adminGate
}

// NewHandler builds the router: /ws, /api/state, /aturTS/{value} and optionally metrics.
func NewHandler(c Coordinator, opts Options) http.Handler {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.MaxLimit <= 0 {
		opts.MaxLimit = 88888
	}
	if opts.AdminMinInterval <= 0 {
		opts.AdminMinInterval = 5 * time.Second
	}
	if opts.Limiter == nil {
		opts.Limiter = NewIPLimiter(0, 0, 0)
	}

	h := &handler{
		coord: c,
		gate: &adminGate{
			secret:      opts.AdminSecret,
			minLimit:    opts.MinLimit,
			maxLimit:    opts.MaxLimit,
			minInterval: opts.AdminMinInterval,
			now:         opts.Now,
		},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", h.handleWS)
	mux.HandleFunc("/api/state", h.handleState)
	setLimit := opts.Limiter.Middleware(http.HandlerFunc(h.handleSetLimit))
	mux.Handle("/aturTS", setLimit)
	mux.Handle("/aturTS/", setLimit)
	if opts.MetricsHandler != nil && opts.MetricsPath != "" {
		mux.Handle(opts.MetricsPath, opts.MetricsHandler)
	}
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, errorBody("Halaman tidak ditemukan"))
	})
	return mux
}

func (s *handler) handleState(w http.ResponseWriter, r *http.Request) {
	snap, err := s.coord.Snapshot(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("snapshot failed")
		writeJSON(w, http.StatusServiceUnavailable, errorBody("unavailable"))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(snap.Body)
}

func (s *handler) handleWS(w http.ResponseWriter, r *http.Request) {
	if !websocket.IsWebSocketUpgrade(r) {
		http.Error(w, "Expected WebSocket", http.StatusUpgradeRequired)
		return
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	sub := newSubscriber(conn)
	go sub.writeLoop()

	if err := s.coord.Join(r.Context(), sub); err != nil {
		log.Debug().Err(err).Str("subscriber", sub.ID()).Msg("join failed")
		_ = sub.Close()
		return
	}

	_ = conn.SetReadDeadline(time.Now().Add(readTimeout))
	conn.SetPongHandler(func(string) error {
		_ = conn.SetReadDeadline(time.Now().Add(readTimeout))
		return nil
	})
	for {
		mt, data, err := conn.ReadMessage()
		if err != nil {
			break
		}
		_ = conn.SetReadDeadline(time.Now().Add(readTimeout))
		if mt == websocket.TextMessage && string(data) == "ping" {
			_ = sub.Send(coordinator.PongMsg)
		}
	}
	s.coord.Leave(sub)
	_ = sub.Close()
}

func errorBody(msg string) map[string]string {
	return map[string]string{"error": msg}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// Server wraps http.Server with context-driven shutdown.
type Server struct {
	srv *http.Server
}

func NewServer(addr string, h http.Handler) *Server {
	return &Server{srv: &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}}
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", s.srv.Addr).Msg("http listening")
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.srv.Shutdown(sctx)
}
