package domain

import (
	"math"
	"strconv"
	"strings"
)

// RawField is an upstream value: either a JSON number (Quoted=false, Value holds
// the literal) or a JSON string (Quoted=true).
type RawField struct {
	Value  string
	Quoted bool
}

func NumberField(v string) RawField { return RawField{Value: v} }

func TextField(v string) RawField { return RawField{Value: v, Quoted: true} }

// Missing reports whether the field is absent, null, empty or a numeric zero.
func (f RawField) Missing() bool {
	v := strings.TrimSpace(f.Value)
	if v == "" {
		return true
	}
	if f.Quoted {
		return false
	}
	if v == "null" || v == "false" {
		return true
	}
	n, err := strconv.ParseFloat(v, 64)
	return err == nil && n == 0
}

// ParseRate converts a rate field to an integer amount. JSON numbers are
// floored; strings use '.' as thousands separator and ',' as decimal
// separator ("1.234.567,89" -> 1234567). Values outside the int64 range
// are ErrUnparseable.
func ParseRate(f RawField) (int64, error) {
	s := strings.TrimSpace(f.Value)
	if f.Quoted {
		s = strings.ReplaceAll(s, ".", "")
		s = strings.Replace(s, ",", ".", 1)
	}
	n, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(n) || math.IsInf(n, 0) {
		return 0, ErrUnparseable
	}
	n = math.Floor(n)
	if n >= math.MaxInt64 || n <= math.MinInt64 {
		return 0, ErrUnparseable
	}
	return int64(n), nil
}
