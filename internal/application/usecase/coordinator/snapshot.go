package coordinator

import (
	"bytes"
	"encoding/json"
	"fmt"

	"goldroom/internal/domain"
)

// Snapshot is the serialized, display-ready projection of the store.
type Snapshot struct {
	Body       []byte
	HistoryLen int
	UsdLen     int
	Limit      int
}

type snapshotPayload struct {
	History    []HistoryItem `json:"history"`
	UsdHistory []UsdItem     `json:"usd_idr_history"`
	Limit      int           `json:"limit_bulan"`
}

// SnapshotCache memoizes the serialized snapshot until the next Invalidate.
// Owned by the coordinator goroutine, not safe for concurrent use.
type SnapshotCache struct {
	store *domain.Store
	fmt   *Formatter

	dirty  bool
	cached *Snapshot
}

func NewSnapshotCache(store *domain.Store, f *Formatter) *SnapshotCache {
	return &SnapshotCache{store: store, fmt: f, dirty: true}
}

func (c *SnapshotCache) Invalidate() {
	c.dirty = true
	c.cached = nil
}

// Get returns the cached snapshot, rebuilding it only when dirty.
func (c *SnapshotCache) Get() (*Snapshot, error) {
	if !c.dirty && c.cached != nil {
		return c.cached, nil
	}

	history := c.store.History()
	usd := c.store.UsdHistory()
	p := snapshotPayload{
		History:    make([]HistoryItem, 0, len(history)),
		UsdHistory: make([]UsdItem, 0, len(usd)),
		Limit:      c.store.MonthlyLimit(),
	}
	for _, e := range history {
		p.History = append(p.History, c.fmt.Item(e))
	}
	for _, u := range usd {
		p.UsdHistory = append(p.UsdHistory, UsdItem{Price: u.Price, Time: u.Time})
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(&p); err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}

	c.cached = &Snapshot{
		Body:       bytes.TrimRight(buf.Bytes(), "\n"),
		HistoryLen: len(p.History),
		UsdLen:     len(p.UsdHistory),
		Limit:      p.Limit,
	}
	c.dirty = false
	return c.cached, nil
}
