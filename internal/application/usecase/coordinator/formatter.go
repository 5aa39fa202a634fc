package coordinator

import (
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"goldroom/internal/domain"
)

const (
	glyphRocket  = "\U0001F680"
	glyphWarning = "\U0001F53B"
	glyphDash    = "➖"
	glyphGreen   = "\U0001F7E2"
	glyphRed     = "\U0001F534"

	profitFailed = "-"
)

// 上游时间戳按 UTC+7 墙上时间解释；带时区的 RFC3339 先换算到 UTC+7
var timestampLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04",
	"2006-01-02T15:04",
	time.RFC3339Nano,
}

var jakarta = time.FixedZone("WIB", int(domain.JakartaOffset/time.Second))

// DisplayAmount groups digits by thousands with '.' (1234567 -> "1.234.567").
func DisplayAmount(n int64) string {
	s := strconv.FormatInt(n, 10)
	sign := ""
	if n < 0 {
		sign, s = "-", s[1:]
	}
	if len(s) <= 3 {
		return sign + s
	}

	var sb strings.Builder
	sb.Grow(len(sign) + len(s) + len(s)/3)
	sb.WriteString(sign)
	head := len(s) % 3
	if head > 0 {
		sb.WriteString(s[:head])
	}
	for i := head; i < len(s); i += 3 {
		if i > 0 {
			sb.WriteByte('.')
		}
		sb.WriteString(s[i : i+3])
	}
	return sb.String()
}

// DisplayTime reformats an upstream timestamp to HH:MM:SS. Unparseable input
// is returned unchanged.
func DisplayTime(ts string) string {
	v := strings.TrimSpace(ts)
	for _, layout := range timestampLayouts {
		t, err := time.ParseInLocation(layout, v, jakarta)
		if err == nil {
			return domain.ClockAt(t, domain.JakartaOffset)
		}
	}
	return ts
}

func DisplayDiff(diff int64, status domain.Status) string {
	switch status {
	case domain.StatusUp:
		return glyphRocket + "+" + DisplayAmount(diff)
	case domain.StatusDown:
		if diff < 0 {
			diff = -diff
		}
		return glyphWarning + "-" + DisplayAmount(diff)
	default:
		return glyphDash + "tetap"
	}
}

// ProfitEstimate 计算以 capital 买入、按卖出价卖出后相对 costBasis 的盈亏，
// 并附带可买克数（4 位小数，逗号作小数点）。买入价为 0 时返回 "-"。
func ProfitEstimate(e domain.HistoryEntry, capital, costBasis int64) string {
	if e.BuyingRate == 0 {
		return profitFailed
	}
	grams := decimal.NewFromInt(capital).Div(decimal.NewFromInt(e.BuyingRate))
	val := grams.Mul(decimal.NewFromInt(e.SellingRate)).
		Sub(decimal.NewFromInt(costBasis)).
		Floor().
		IntPart()
	gramStr := strings.Replace(grams.StringFixed(4), ".", ",", 1) + "gr"

	switch {
	case val > 0:
		return "+" + DisplayAmount(val) + glyphGreen + gramStr
	case val < 0:
		return "-" + DisplayAmount(-val) + glyphRed + gramStr
	default:
		return DisplayAmount(0) + glyphDash + gramStr
	}
}

// ProfitTier is one capital / cost-basis pair shown next to every entry.
type ProfitTier struct {
	Capital   int64
	CostBasis int64
}

var DefaultProfitTiers = [5]ProfitTier{
	{Capital: 10_000_000, CostBasis: 9_669_000},
	{Capital: 20_000_000, CostBasis: 19_330_000},
	{Capital: 30_000_000, CostBasis: 28_995_000},
	{Capital: 40_000_000, CostBasis: 38_660_000},
	{Capital: 50_000_000, CostBasis: 48_325_000},
}

type HistoryItem struct {
	BuyingRate         string `json:"buying_rate"`
	SellingRate        string `json:"selling_rate"`
	BuyingRateRaw      int64  `json:"buying_rate_raw"`
	SellingRateRaw     int64  `json:"selling_rate_raw"`
	WaktuDisplay       string `json:"waktu_display"`
	DiffDisplay        string `json:"diff_display"`
	TransactionDisplay string `json:"transaction_display"`
	CreatedAt          string `json:"created_at"`
	Jt10               string `json:"jt10"`
	Jt20               string `json:"jt20"`
	Jt30               string `json:"jt30"`
	Jt40               string `json:"jt40"`
	Jt50               string `json:"jt50"`
}

type UsdItem struct {
	Price string `json:"price"`
	Time  string `json:"time"`
}

type Formatter struct {
	Tiers [5]ProfitTier
}

func NewFormatter() *Formatter {
	return &Formatter{Tiers: DefaultProfitTiers}
}

// Item expands one history entry into its display form.
func (f *Formatter) Item(e domain.HistoryEntry) HistoryItem {
	buy := DisplayAmount(e.BuyingRate)
	sell := DisplayAmount(e.SellingRate)
	diff := DisplayDiff(e.Diff, e.Status)
	return HistoryItem{
		BuyingRate:         buy,
		SellingRate:        sell,
		BuyingRateRaw:      e.BuyingRate,
		SellingRateRaw:     e.SellingRate,
		WaktuDisplay:       DisplayTime(e.CreatedAt) + string(e.Status),
		DiffDisplay:        diff,
		TransactionDisplay: "Beli: " + buy + "<br>Jual: " + sell + "<br>" + diff,
		CreatedAt:          e.CreatedAt,
		Jt10:               ProfitEstimate(e, f.Tiers[0].Capital, f.Tiers[0].CostBasis),
		Jt20:               ProfitEstimate(e, f.Tiers[1].Capital, f.Tiers[1].CostBasis),
		Jt30:               ProfitEstimate(e, f.Tiers[2].Capital, f.Tiers[2].CostBasis),
		Jt40:               ProfitEstimate(e, f.Tiers[3].Capital, f.Tiers[3].CostBasis),
		Jt50:               ProfitEstimate(e, f.Tiers[4].Capital, f.Tiers[4].CostBasis),
	}
}
