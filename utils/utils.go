package utils

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var camelBoundary = regexp.MustCompile("([a-z0-9])([A-Z])")

// CamelToSnake convert from camelCase to snake_case
func CamelToSnake(input string) string {
	return strings.ToLower(camelBoundary.ReplaceAllString(input, "${1}_${2}"))
}

// TitleFromField derives a human column title from an accessor path,
// e.g. "part.ipn" -> "Part Ipn", "stock_level" -> "Stock Level".
func TitleFromField(field string) string {
	field = strings.NewReplacer(".", " ", "_", " ").Replace(CamelToSnake(field))
	return cases.Title(language.Und).String(field)
}

// ExtractInt64 coerces the loosely typed values a JSON record or a database
// scan may hold into an int64. Returns 0 when the value cannot be read as
// an integer.
func ExtractInt64(value any) int64 {
	switch v := value.(type) {
	case int64:
		return v
	case int32:
		return int64(v)
	case int:
		return int64(v)
	case uint64:
		return int64(v)
	case uint32:
		return int64(v)
	case uint:
		return int64(v)
	case float64:
		return int64(v)
	case float32:
		return int64(v)
	case json.Number:
		if n, err := v.Int64(); err == nil {
			return n
		}
	case []byte:
		if n, err := strconv.ParseInt(string(v), 10, 64); err == nil {
			return n
		}
	case string:
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return 0
}

// SanitizeNumeric reduces a payload value to a number. The bool result
// reports whether the value was acceptable.
func SanitizeNumeric(value any) (any, bool) {
	switch v := value.(type) {
	case string:
		trimmed := strings.TrimSpace(v)
		if trimmed == "" {
			return nil, false
		}
		if i, err := strconv.ParseInt(trimmed, 10, 64); err == nil {
			return i, true
		}
		if f, err := strconv.ParseFloat(trimmed, 64); err == nil {
			return f, true
		}
		return nil, false
	case float64, float32, int, int64, int32, uint, uint64:
		return v, true
	case bool:
		// Booleans land on numeric columns with some drivers.
		return v, true
	default:
		return nil, false
	}
}

// IsNumericColumnType reports whether a SQL column type holds numbers.
func IsNumericColumnType(sqlType string) bool {
	sqlType = strings.ToLower(sqlType)
	for _, prefix := range []string{
		"int", "bigint", "smallint", "tinyint", "mediumint", "serial",
		"float", "double", "real", "numeric", "decimal",
	} {
		if strings.HasPrefix(sqlType, prefix) {
			return true
		}
	}
	return false
}

// FormatTime renders a record timestamp value with outputFormat, accepting
// the handful of layouts remote endpoints and database scans produce.
func FormatTime(value any, outputFormat string) string {
	switch v := value.(type) {
	case time.Time:
		return v.Format(outputFormat)
	case string:
		for _, layout := range []string{
			time.RFC3339,
			"2006-01-02 15:04:05",
			"2006-01-02",
		} {
			if t, err := time.Parse(layout, v); err == nil {
				return t.Format(outputFormat)
			}
		}
		return v // fallback
	case []byte:
		return FormatTime(string(v), outputFormat)
	default:
		return fmt.Sprintf("%v", value)
	}
}
