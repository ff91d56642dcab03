// Package fields models the untyped field map returned by the extraction
// service. The extractor is not guaranteed to return uniform types; the same
// key may arrive as a string, number, boolean, or null across submissions.
// Value is a tagged union so every consumption site handles the kinds
// explicitly instead of coercing ad hoc.
package fields

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Kind identifies which variant a Value holds.
type Kind int

const (
	KindNull Kind = iota
	KindString
	KindNumber
	KindBool
)

// Value is one extracted field value: string, number, boolean, or null.
type Value struct {
	kind Kind
	str  string
	num  float64
	b    bool
}

// String creates a string-kinded value.
func String(s string) Value { return Value{kind: KindString, str: s} }

// Number creates a number-kinded value.
func Number(n float64) Value { return Value{kind: KindNumber, num: n} }

// Bool creates a bool-kinded value.
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// Null creates a null-kinded value.
func Null() Value { return Value{kind: KindNull} }

// Kind returns the variant tag.
func (v Value) Kind() Kind { return v.kind }

// UnmarshalJSON accepts string, number, boolean, or null.
func (v *Value) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "null" {
		*v = Null()
		return nil
	}

	var num float64
	if err := json.Unmarshal(data, &num); err == nil {
		*v = Number(num)
		return nil
	}

	var b bool
	if err := json.Unmarshal(data, &b); err == nil {
		*v = Bool(b)
		return nil
	}

	var str string
	if err := json.Unmarshal(data, &str); err == nil {
		*v = String(str)
		return nil
	}

	return fmt.Errorf("cannot unmarshal %s into field value", trimmed)
}

// MarshalJSON writes the underlying variant back out.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindString:
		return json.Marshal(v.str)
	case KindNumber:
		return json.Marshal(v.num)
	case KindBool:
		return json.Marshal(v.b)
	default:
		return []byte("null"), nil
	}
}

// IsMissing reports whether the value carries no usable data: null, or a
// string that is empty or whitespace.
func (v Value) IsMissing() bool {
	switch v.kind {
	case KindNull:
		return true
	case KindString:
		return strings.TrimSpace(v.str) == ""
	default:
		return false
	}
}

// Display coerces any kind to a string for templates and concatenation.
func (v Value) Display() string {
	switch v.kind {
	case KindString:
		return v.str
	case KindNumber:
		return strconv.FormatFloat(v.num, 'f', -1, 64)
	case KindBool:
		return strconv.FormatBool(v.b)
	default:
		return ""
	}
}

// TrueLike reports whether the value reads as an affirmative:
// true booleans, non-zero numbers, and yes/true/y strings.
func (v Value) TrueLike() bool {
	switch v.kind {
	case KindBool:
		return v.b
	case KindNumber:
		return v.num != 0
	case KindString:
		switch strings.ToLower(strings.TrimSpace(v.str)) {
		case "yes", "true", "y", "1":
			return true
		}
	}
	return false
}

// Money parses the value as a dollar amount. Accepted string forms include
// "$5M", "750K", "2.5 million", "1B", and "1,500,000". Number kinds are taken
// as-is. Returns ok=false for unparseable non-empty strings, which callers
// must treat as distinct from absent.
func (v Value) Money() (float64, bool) {
	switch v.kind {
	case KindNumber:
		return v.num, true
	case KindString:
		return parseMoney(v.str)
	default:
		return 0, false
	}
}

// Count parses the value as an integer count. String forms may carry commas,
// a "K" suffix, or a range ("50-100"), which resolves to the upper bound.
func (v Value) Count() (int, bool) {
	switch v.kind {
	case KindNumber:
		return int(v.num), true
	case KindString:
		return parseCount(v.str)
	default:
		return 0, false
	}
}

func parseMoney(raw string) (float64, bool) {
	cleaned := strings.ToLower(strings.TrimSpace(raw))
	if cleaned == "" {
		return 0, false
	}

	cleaned = strings.ReplaceAll(cleaned, "$", "")
	cleaned = strings.ReplaceAll(cleaned, ",", "")
	cleaned = strings.ReplaceAll(cleaned, "usd", "")
	cleaned = strings.TrimSpace(cleaned)

	multiplier := 1.0
	switch {
	case strings.HasSuffix(cleaned, "billion"):
		multiplier = 1e9
		cleaned = strings.TrimSuffix(cleaned, "billion")
	case strings.HasSuffix(cleaned, "million"):
		multiplier = 1e6
		cleaned = strings.TrimSuffix(cleaned, "million")
	case strings.HasSuffix(cleaned, "thousand"):
		multiplier = 1e3
		cleaned = strings.TrimSuffix(cleaned, "thousand")
	case strings.HasSuffix(cleaned, "mm"):
		multiplier = 1e6
		cleaned = strings.TrimSuffix(cleaned, "mm")
	case strings.HasSuffix(cleaned, "b"):
		multiplier = 1e9
		cleaned = strings.TrimSuffix(cleaned, "b")
	case strings.HasSuffix(cleaned, "m"):
		multiplier = 1e6
		cleaned = strings.TrimSuffix(cleaned, "m")
	case strings.HasSuffix(cleaned, "k"):
		multiplier = 1e3
		cleaned = strings.TrimSuffix(cleaned, "k")
	}

	cleaned = strings.TrimSpace(cleaned)
	amount, err := strconv.ParseFloat(cleaned, 64)
	if err != nil || amount < 0 {
		return 0, false
	}
	return amount * multiplier, true
}

func parseCount(raw string) (int, bool) {
	cleaned := strings.ToLower(strings.TrimSpace(raw))
	if cleaned == "" {
		return 0, false
	}

	cleaned = strings.ReplaceAll(cleaned, ",", "")

	// Ranges resolve to the upper bound ("50-100" → 100).
	if idx := strings.LastIndex(cleaned, "-"); idx > 0 {
		cleaned = strings.TrimSpace(cleaned[idx+1:])
	}

	multiplier := 1.0
	if strings.HasSuffix(cleaned, "k") {
		multiplier = 1e3
		cleaned = strings.TrimSuffix(cleaned, "k")
	}

	cleaned = strings.TrimSpace(strings.TrimSuffix(cleaned, "+"))
	parsed, err := strconv.ParseFloat(cleaned, 64)
	if err != nil || parsed < 0 {
		return 0, false
	}
	return int(parsed * multiplier), true
}
