package domain

import "slices"

// PersistedState is the recoverable part of a Store, laid out as the flat
// key-value record written after every mutation.
type PersistedState struct {
	History      []HistoryEntry `json:"history"`
	UsdHistory   []UsdRateEntry `json:"usdIdrHistory"`
	LastBuy      *int64         `json:"lastBuy"`
	ShownUpdates []string       `json:"shownUpdates"`
	LimitBulan   *int           `json:"limitBulan"`
}

// Empty reports whether nothing was ever stored.
func (p *PersistedState) Empty() bool {
	return p == nil || (len(p.History) == 0 && len(p.UsdHistory) == 0 &&
		p.LastBuy == nil && len(p.ShownUpdates) == 0 && p.LimitBulan == nil)
}

// Export copies the recoverable state out of the store.
func (s *Store) Export() PersistedState {
	limit := s.monthlyLimit
	st := PersistedState{
		History:      slices.Clone(s.history),
		UsdHistory:   slices.Clone(s.usd),
		ShownUpdates: s.seen.Keys(),
		LimitBulan:   &limit,
	}
	if s.lastBuy != nil {
		v := *s.lastBuy
		st.LastBuy = &v
	}
	return st
}

// Restore replaces the store contents with p, trimming every series to the
// store limits (most recent entries win). Absent fields keep their current value.
func (s *Store) Restore(p PersistedState) {
	if p.History != nil {
		h := p.History
		if over := len(h) - s.limits.MaxHistory; over > 0 {
			h = h[over:]
		}
		s.history = slices.Clone(h)
	}
	if p.UsdHistory != nil {
		u := p.UsdHistory
		if over := len(u) - s.limits.MaxUsdHistory; over > 0 {
			u = u[over:]
		}
		s.usd = slices.Clone(u)
	}
	if p.LastBuy != nil {
		v := *p.LastBuy
		s.lastBuy = &v
	}
	if p.ShownUpdates != nil {
		s.seen.Reset(p.ShownUpdates)
	}
	if p.LimitBulan != nil {
		s.monthlyLimit = *p.LimitBulan
	}
}
