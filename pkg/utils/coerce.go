package utils

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ParseFloat converts a loosely typed attribute value to float64. The second
// return value is false when v is missing or cannot be read as a number.
// Strings may carry thousands separators ("1,250.5").
func ParseFloat(v interface{}) (float64, bool) {
	var f float64
	switch n := v.(type) {
	case nil:
		return 0, false
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int32:
		f = float64(n)
	case int64:
		f = float64(n)
	case uint:
		f = float64(n)
	case uint32:
		f = float64(n)
	case uint64:
		f = float64(n)
	case json.Number:
		parsed, err := n.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	case string:
		s := strings.TrimSpace(strings.ReplaceAll(n, ",", ""))
		if s == "" {
			return 0, false
		}
		parsed, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}

	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// SafeFloat returns v as float64, or def when v is missing or malformed
func SafeFloat(v interface{}, def float64) float64 {
	if f, ok := ParseFloat(v); ok {
		return f
	}
	return def
}

// SafeInt returns v truncated to int64, or def when v is missing or malformed
func SafeInt(v interface{}, def int64) int64 {
	if f, ok := ParseFloat(v); ok {
		return int64(f)
	}
	return def
}

// OptionalFloat is SafeFloat with "absent" instead of a default
func OptionalFloat(v interface{}) *float64 {
	if f, ok := ParseFloat(v); ok {
		return &f
	}
	return nil
}

// OptionalInt is SafeInt with "absent" instead of a default
func OptionalInt(v interface{}) *int64 {
	if f, ok := ParseFloat(v); ok {
		i := int64(f)
		return &i
	}
	return nil
}

// SafeBool reads booleans stored as bool, number or string ("true", "1", "yes").
func SafeBool(v interface{}, def bool) bool {
	switch b := v.(type) {
	case nil:
		return def
	case bool:
		return b
	case string:
		switch strings.ToLower(strings.TrimSpace(b)) {
		case "true", "1", "yes":
			return true
		}
		return false
	}

	if f, ok := ParseFloat(v); ok {
		return f != 0
	}
	return def
}

// OptionalBool is SafeBool that keeps "absent" distinct from false
func OptionalBool(v interface{}) *bool {
	if v == nil {
		return nil
	}
	b := SafeBool(v, false)
	return &b
}

// SafeString renders v as a string; nil becomes "".
func SafeString(v interface{}) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	default:
		return fmt.Sprint(v)
	}
}

// SafeStringList returns list attributes as strings; anything else is empty.
func SafeStringList(v interface{}) []string {
	switch list := v.(type) {
	case []string:
		out := make([]string, len(list))
		copy(out, list)
		return out
	case []interface{}:
		out := make([]string, 0, len(list))
		for _, item := range list {
			out = append(out, SafeString(item))
		}
		return out
	}
	return []string{}
}

// SafeList returns list attributes unchanged; anything else is empty.
func SafeList(v interface{}) []interface{} {
	if list, ok := v.([]interface{}); ok {
		return list
	}
	return []interface{}{}
}
