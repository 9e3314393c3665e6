package provider

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// ExtractValue normalizes a numeric value from loosely typed JSON.
//
// The live API returns goals as numbers or null, identifiers sometimes as
// strings. Historical exports carry numbers as text, sometimes with a ".0"
// suffix. This handles all of them.
//
// Returns the scalar float64 value, and ok=false if not extractable.
func ExtractValue(val interface{}) (float64, bool) {
	if val == nil {
		return 0, false
	}

	switch v := val.(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return 0, false
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil && !math.IsNaN(f) {
			return f, true
		}
		return 0, false
	default:
		return 0, false
	}
}

// ExtractInt is ExtractValue restricted to whole numbers.
func ExtractInt(val interface{}) (int, bool) {
	f, ok := ExtractValue(val)
	if !ok || f != math.Trunc(f) || math.IsInf(f, 0) {
		return 0, false
	}
	if f >= float64(math.MaxInt) || f < float64(math.MinInt) {
		return 0, false
	}
	return int(f), true
}

// ExtractScore parses a non-negative score; anything else is null.
func ExtractScore(val interface{}) *int {
	n, ok := ExtractInt(val)
	if !ok || n < 0 {
		return nil
	}
	return &n
}
