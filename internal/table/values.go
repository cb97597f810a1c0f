// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package table

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// ToFloat coerces a scalar to a number. Booleans count as 0/1 and numeric
// strings are parsed; anything else reports false.
func ToFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case int:
		return float64(t), true
	case int32:
		return float64(t), true
	case int64:
		return float64(t), true
	case float32:
		return float64(t), true
	case float64:
		return t, !math.IsNaN(t)
	case bool:
		if t {
			return 1, true
		}
		return 0, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

func isNumber(v any) bool {
	switch v.(type) {
	case int, int32, int64, float32, float64:
		return true
	}
	return false
}

// LooseEqual compares scalars the way a lenient equality check would:
// 3 == "3", true == 1, nil only equals nil.
func LooseEqual(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}

	if isNumber(a) || isNumber(b) {
		fa, okA := ToFloat(a)
		fb, okB := ToFloat(b)
		return okA && okB && fa == fb
	}

	_, boolA := a.(bool)
	_, boolB := b.(bool)
	if boolA != boolB {
		fa, okA := ToFloat(a)
		fb, okB := ToFloat(b)
		return okA && okB && fa == fb
	}

	return fmt.Sprint(a) == fmt.Sprint(b)
}

var timeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"Mon Jan 02 2006 15:04:05 GMT-0700",
	time.RFC1123Z,
	time.RFC1123,
}

// ParseTime reads a timestamp value. Numbers are unix milliseconds.
func ParseTime(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, true
	case string:
		s := strings.TrimSpace(t)
		// "Mon Jan 02 2006 15:04:05 GMT-0700 (Zone Name)"
		if i := strings.Index(s, " ("); i > 0 {
			s = s[:i]
		}
		for _, layout := range timeLayouts {
			if ts, err := time.Parse(layout, s); err == nil {
				return ts, true
			}
		}
		return time.Time{}, false
	default:
		if f, ok := ToFloat(v); ok && isNumber(v) {
			return time.UnixMilli(int64(f)), true
		}
		return time.Time{}, false
	}
}
