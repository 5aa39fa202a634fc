package domain

import (
	"strings"
	"time"
)

// Limits bounds the series held by a Store.
type Limits struct {
	MaxHistory    int
	MaxUsdHistory int
	SeenCapacity  int
}

func DefaultLimits() Limits {
	return Limits{
		MaxHistory:    DefaultMaxHistory,
		MaxUsdHistory: DefaultMaxUsdHistory,
		SeenCapacity:  DefaultSeenCapacity,
	}
}

// Store 持有全部可恢复状态：金价历史、USD/IDR 历史、去重窗口和月度限额。
// 不是并发安全的，只能由协调器 goroutine 访问。
type Store struct {
	limits Limits

	history []HistoryEntry
	usd     []UsdRateEntry
	lastBuy *int64
	seen    *SeenSet

	monthlyLimit int
}

func NewStore(limits Limits, monthlyLimit int) *Store {
	def := DefaultLimits()
	if limits.MaxHistory <= 0 {
		limits.MaxHistory = def.MaxHistory
	}
	if limits.MaxUsdHistory <= 0 {
		limits.MaxUsdHistory = def.MaxUsdHistory
	}
	if limits.SeenCapacity <= 0 {
		limits.SeenCapacity = def.SeenCapacity
	}
	return &Store{
		limits:       limits,
		seen:         NewSeenSet(limits.SeenCapacity),
		monthlyLimit: monthlyLimit,
	}
}

// AppendPrimary 应用一条金价推送，返回被接受的记录。
// 字段缺失返回 ErrIncomplete，重复的 created_at 返回 ErrDuplicate。
func (s *Store) AppendPrimary(q RawQuote) (HistoryEntry, error) {
	if q.BuyingRate.Missing() || q.SellingRate.Missing() || q.CreatedAt.Missing() {
		return HistoryEntry{}, ErrIncomplete
	}
	key := strings.TrimSpace(q.CreatedAt.Value)
	if s.seen.Has(key) {
		return HistoryEntry{}, ErrDuplicate
	}

	buy, err := ParseRate(q.BuyingRate)
	if err != nil {
		return HistoryEntry{}, err
	}
	sell, err := ParseRate(q.SellingRate)
	if err != nil {
		return HistoryEntry{}, err
	}

	var diff int64
	if s.lastBuy != nil {
		diff = buy - *s.lastBuy
	}
	e := HistoryEntry{
		BuyingRate:  buy,
		SellingRate: sell,
		Status:      ClassifyDiff(diff),
		Diff:        diff,
		CreatedAt:   key,
	}

	s.history = append(s.history, e)
	if over := len(s.history) - s.limits.MaxHistory; over > 0 {
		s.history = s.history[over:]
	}
	s.lastBuy = &buy
	s.seen.Add(key)
	return e, nil
}

// AppendSecondary 仅在价格与最后一条不同时追加 USD/IDR 记录
func (s *Store) AppendSecondary(price string, now time.Time) (UsdRateEntry, bool) {
	if n := len(s.usd); n > 0 && s.usd[n-1].Price == price {
		return UsdRateEntry{}, false
	}
	e := UsdRateEntry{Price: price, Time: ClockAt(now, JakartaOffset)}
	s.usd = append(s.usd, e)
	if over := len(s.usd) - s.limits.MaxUsdHistory; over > 0 {
		s.usd = s.usd[over:]
	}
	return e, true
}

func (s *Store) SetMonthlyLimit(n int) { s.monthlyLimit = n }

func (s *Store) MonthlyLimit() int { return s.monthlyLimit }

// History returns the primary series oldest first. Callers must not modify it.
func (s *Store) History() []HistoryEntry { return s.history }

// UsdHistory returns the USD/IDR series oldest first. Callers must not modify it.
func (s *Store) UsdHistory() []UsdRateEntry { return s.usd }

func (s *Store) LastBuyingRate() (int64, bool) {
	if s.lastBuy == nil {
		return 0, false
	}
	return *s.lastBuy, true
}

func (s *Store) SeenLen() int { return s.seen.Len() }

func (s *Store) Limits() Limits { return s.limits }
