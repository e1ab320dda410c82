package normalize

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

const dayLayout = "2006-01-02"

var columnNameSanitizer = strings.NewReplacer(" ", "", "_", "", ".", "", "-", "", "/", "")

// ColumnKey folds case and drops separators so "Product_ID", "PRODUCT ID"
// and "product-id" compare equal.
func ColumnKey(name string) string {
	return normalizeColumnName(name)
}

func normalizeColumnName(name string) string {
	name = strings.TrimSpace(strings.ToLower(name))
	return columnNameSanitizer.Replace(name)
}

// toString coerces a cell value to trimmed text. Whole floats lose their ".0".
func toString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case []byte:
		return strings.TrimSpace(string(t))
	case json.Number:
		text := strings.TrimSpace(t.String())
		// Integer literals pass through untouched so long ids keep every digit
		if !strings.ContainsAny(text, ".eE") {
			return text
		}
		if f, err := t.Float64(); err == nil && !math.IsInf(f, 0) && !math.IsNaN(f) {
			return strconv.FormatFloat(f, 'f', -1, 64)
		}
		return text
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case int32:
		return strconv.FormatInt(int64(t), 10)
	case uint64:
		return strconv.FormatUint(t, 10)
	case uint32:
		return strconv.FormatUint(uint64(t), 10)
	case bool:
		return strconv.FormatBool(t)
	case time.Time:
		return t.Format(time.RFC3339)
	case interface{ String() string }:
		return strings.TrimSpace(t.String())
	}
	return ""
}

// parseNumber is a best-effort conversion to float64. Blank, "-", NaN and infinities fail.
func parseNumber(v any) (float64, bool) {
	var f float64
	switch t := v.(type) {
	case nil:
		return 0, false
	case float64:
		f = t
	case float32:
		f = float64(t)
	case int:
		f = float64(t)
	case int64:
		f = float64(t)
	case int32:
		f = float64(t)
	case int16:
		f = float64(t)
	case int8:
		f = float64(t)
	case uint:
		f = float64(t)
	case uint64:
		f = float64(t)
	case uint32:
		f = float64(t)
	case uint16:
		f = float64(t)
	case uint8:
		f = float64(t)
	case json.Number:
		parsed, err := t.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	case []byte:
		return parseNumberString(string(t))
	case string:
		return parseNumberString(t)
	default:
		return 0, false
	}

	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func parseNumberString(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" || s == "-" {
		return 0, false
	}
	s = strings.ReplaceAll(s, ",", "")
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// numberOr returns the parsed number or def when parsing fails
func numberOr(v any, def float64) float64 {
	if f, ok := parseNumber(v); ok {
		return f
	}
	return def
}

// isBlank reports whether a value carries no information
func isBlank(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(t) == ""
	case []byte:
		return strings.TrimSpace(string(t)) == ""
	case float64:
		return math.IsNaN(t)
	}
	return false
}

// parseDay reduces a date-like value to its calendar day (YYYY-MM-DD).
// Numbers are spreadsheet serial dates. Unrecognized text passes through trimmed.
func parseDay(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case time.Time:
		return t.Format(dayLayout)
	case string, []byte, json.Number:
		// handled below
	default:
		if f, ok := parseNumber(v); ok {
			return serialToDay(f, toString(v))
		}
		return toString(v)
	}

	s := toString(v)
	if s == "" {
		return ""
	}

	if len(s) >= len(dayLayout) {
		head := s[:len(dayLayout)]
		if _, err := time.Parse(dayLayout, head); err == nil {
			if len(s) == len(dayLayout) || s[len(dayLayout)] == 'T' || s[len(dayLayout)] == ' ' {
				return head
			}
		}
	}

	for _, layout := range []string{time.RFC1123, time.RFC1123Z, time.RFC3339Nano} {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts.Format(dayLayout)
		}
	}

	if f, ok := parseNumberString(s); ok {
		return serialToDay(f, s)
	}

	return s
}

func serialToDay(serial float64, fallback string) string {
	if serial <= 0 {
		return fallback
	}
	ts, err := excelize.ExcelDateToTime(serial, false)
	if err != nil {
		return fallback
	}
	return ts.Format(dayLayout)
}
