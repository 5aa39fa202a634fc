package domain

import "errors"

// Status 表示相对上一条记录的买入价变化方向，取值即展示用的符号
type Status string

const (
	StatusUp   Status = "\U0001F680" // 🚀
	StatusDown Status = "\U0001F53B" // 🔻
	StatusFlat Status = "\u2796"     // ➖
)

const (
	DefaultMaxHistory    = 1441 // one per minute for ~24h
	DefaultMaxUsdHistory = 11
	DefaultSeenCapacity  = 5000
	DefaultMonthlyLimit  = 8
)

var (
	ErrIncomplete  = errors.New("quote is missing buying_rate, selling_rate or created_at")
	ErrDuplicate   = errors.New("quote already applied")
	ErrUnparseable = errors.New("quote rate is not a number")
)

// HistoryEntry is one accepted primary-feed observation.
type HistoryEntry struct {
	BuyingRate  int64  `json:"buying_rate"`
	SellingRate int64  `json:"selling_rate"`
	Status      Status `json:"status"`
	Diff        int64  `json:"diff"`
	CreatedAt   string `json:"created_at"`
}

// UsdRateEntry is one accepted USD/IDR observation.
type UsdRateEntry struct {
	Price string `json:"price"`
	Time  string `json:"time"`
}

// RawQuote carries the primary-feed fields as delivered upstream.
type RawQuote struct {
	BuyingRate  RawField
	SellingRate RawField
	CreatedAt   RawField
}

// ClassifyDiff maps the sign of diff to a Status.
func ClassifyDiff(diff int64) Status {
	switch {
	case diff > 0:
		return StatusUp
	case diff < 0:
		return StatusDown
	default:
		return StatusFlat
	}
}
