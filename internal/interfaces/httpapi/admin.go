package httpapi

import (
	"crypto/subtle"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// adminGate guards /aturTS. Only successful calls start the spacing window.
type adminGate struct {
	secret      string
	minLimit    int
	maxLimit    int
	minInterval time.Duration
	now         func() time.Time

	mu          sync.Mutex
	lastSuccess time.Time
}

func (g *adminGate) ready() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.readyLocked(g.now())
}

func (g *adminGate) readyLocked(now time.Time) bool {
	return g.lastSuccess.IsZero() || now.Sub(g.lastSuccess) >= g.minInterval
}

// reserve starts a new spacing window if the previous one has elapsed. The
// window is held while the call runs so concurrent calls cannot both pass;
// release undoes it when the call fails.
func (g *adminGate) reserve() (at, prev time.Time, ok bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	now := g.now()
	if !g.readyLocked(now) {
		return time.Time{}, time.Time{}, false
	}
	prev = g.lastSuccess
	g.lastSuccess = now
	return now, prev, true
}

func (g *adminGate) release(at, prev time.Time) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.lastSuccess.Equal(at) {
		g.lastSuccess = prev
	}
}

func (s *handler) handleSetLimit(w http.ResponseWriter, r *http.Request) {
	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	if len(parts) < 2 || strings.TrimSpace(parts[1]) == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("Parameter tidak lengkap"))
		return
	}
	value := parts[1]

	key := r.URL.Query().Get("key")
	if key == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("Parameter key diperlukan"))
		return
	}
	if subtle.ConstantTimeCompare([]byte(key), []byte(s.gate.secret)) != 1 {
		log.Warn().Str("ip", ClientIP(r)).Msg("admin key rejected")
		writeJSON(w, http.StatusForbidden, errorBody("Akses ditolak"))
		return
	}

	n, err := strconv.Atoi(value)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("Nilai harus berupa angka"))
		return
	}
	if !s.gate.ready() {
		writeJSON(w, http.StatusTooManyRequests, errorBody("Terlalu cepat, tunggu beberapa detik"))
		return
	}
	if n < s.gate.minLimit || n > s.gate.maxLimit {
		writeJSON(w, http.StatusBadRequest, errorBody(fmt.Sprintf("Nilai harus %d-%d", s.gate.minLimit, s.gate.maxLimit)))
		return
	}
	at, prev, ok := s.gate.reserve()
	if !ok {
		writeJSON(w, http.StatusTooManyRequests, errorBody("Terlalu cepat, tunggu beberapa detik"))
		return
	}

	got, err := s.coord.SetLimit(r.Context(), n)
	if err != nil {
		s.gate.release(at, prev)
		log.Error().Err(err).Int("limit", n).Msg("set limit failed")
		writeJSON(w, http.StatusInternalServerError, errorBody("Gagal menyimpan"))
		return
	}
	log.Info().Int("limit", got).Msg("monthly limit updated")
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "limit_bulan": got})
}
