package dataset

import (
	"math"
	"strconv"
	"strings"
	"time"
)

// Coercion policy
//
// Every cell coming from storage or from a request payload goes through one
// of these functions. A value that does not parse never raises: numeric
// feature columns fall back to 0, the Returned flag falls back to 0,
// timestamps fall back to the zero time (the null-date sentinel) and a
// missing risk score becomes NaN so aggregations can skip it.

const (
	DateLayout      = "2006-01-02"
	TimestampLayout = "2006-01-02 15:04:05"
)

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
	TimestampLayout,
	"2006-01-02T15:04:05",
	DateLayout,
}

// ParseFloat parses s, returning def when s is blank, unparseable or not finite.
func ParseFloat(s string, def float64) float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return def
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return def
	}
	return f
}

// ParseInt parses s as an integer. Float spellings such as "1.0" are
// truncated toward zero.
func ParseInt(s string, def int) int {
	s = strings.TrimSpace(s)
	if s == "" {
		return def
	}
	if i, err := strconv.Atoi(s); err == nil {
		return i
	}
	f := ParseFloat(s, math.NaN())
	if math.IsNaN(f) {
		return def
	}
	return int(f)
}

// ParseScore parses a stored risk score. Missing values become NaN.
func ParseScore(s string) float64 {
	return ParseFloat(s, math.NaN())
}

// ParseTime tries the known layouts in order and returns the zero time when
// none matches.
func ParseTime(s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "nat") {
		return time.Time{}
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

// FloatOf coerces a decoded JSON value (number, string, bool or nil) to a
// float64 using the same default policy as ParseFloat.
func FloatOf(v any, def float64) float64 {
	switch x := v.(type) {
	case nil:
		return def
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return def
		}
		return x
	case float32:
		return FloatOf(float64(x), def)
	case int:
		return float64(x)
	case int64:
		return float64(x)
	case bool:
		if x {
			return 1
		}
		return 0
	case string:
		return ParseFloat(x, def)
	default:
		return def
	}
}

// FormatFloat renders f so that ParseFloat returns exactly f again.
// NaN is rendered as an empty cell.
func FormatFloat(f float64) string {
	if math.IsNaN(f) {
		return ""
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}

// FormatTimestamp renders t for storage; the zero time becomes "".
func FormatTimestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339Nano)
}
