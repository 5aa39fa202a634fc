package storage

import (
	"encoding/json"
	"fmt"

	"goldroom/internal/domain"
)

// Keys of the flat state record. Every backend stores one JSON value per key.
const (
	KeyHistory      = "history"
	KeyUsdHistory   = "usdIdrHistory"
	KeyLastBuy      = "lastBuy"
	KeyShownUpdates = "shownUpdates"
	KeyLimitBulan   = "limitBulan"
)

var Keys = []string{KeyHistory, KeyUsdHistory, KeyLastBuy, KeyShownUpdates, KeyLimitBulan}

// Encode flattens st into key -> JSON value.
func Encode(st *domain.PersistedState) (map[string]string, error) {
	if st == nil {
		st = &domain.PersistedState{}
	}
	fields := map[string]any{
		KeyHistory:      st.History,
		KeyUsdHistory:   st.UsdHistory,
		KeyLastBuy:      st.LastBuy,
		KeyShownUpdates: st.ShownUpdates,
		KeyLimitBulan:   st.LimitBulan,
	}
	out := make(map[string]string, len(fields))
	for k, v := range fields {
		b, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", k, err)
		}
		out[k] = string(b)
	}
	return out, nil
}

// Decode rebuilds a state from key -> JSON value. Absent keys stay unset.
func Decode(kv map[string]string) (*domain.PersistedState, error) {
	st := &domain.PersistedState{}
	targets := map[string]any{
		KeyHistory:      &st.History,
		KeyUsdHistory:   &st.UsdHistory,
		KeyLastBuy:      &st.LastBuy,
		KeyShownUpdates: &st.ShownUpdates,
		KeyLimitBulan:   &st.LimitBulan,
	}
	for k, dst := range targets {
		raw, ok := kv[k]
		if !ok || raw == "" {
			continue
		}
		if err := json.Unmarshal([]byte(raw), dst); err != nil {
			return nil, fmt.Errorf("decode %s: %w", k, err)
		}
	}
	return st, nil
}
