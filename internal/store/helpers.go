// ABOUTME: SQL helpers shared by the core store and plugin stores.
// ABOUTME: LIKE escaping for squirrel predicates and SQLite timestamp text.

package store

import (
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
)

// TimeFormat is how timestamps are stored as text. It sorts lexically.
const TimeFormat = "2006-01-02 15:04:05"

// EscapeLike escapes %, _ and \ so pattern matches literally in a LIKE
// clause with ESCAPE '\'. Backslash goes first to avoid double escaping.
func EscapeLike(pattern string) string {
	pattern = strings.ReplaceAll(pattern, "\\", "\\\\")
	pattern = strings.ReplaceAll(pattern, "%", "\\%")
	pattern = strings.ReplaceAll(pattern, "_", "\\_")
	return pattern
}

// Contains matches rows whose column contains value.
func Contains(column, value string) sq.Sqlizer {
	return sq.Expr(column+` LIKE ? ESCAPE '\'`, "%"+EscapeLike(value)+"%")
}

// HasPrefix matches rows whose column starts with value.
func HasPrefix(column, value string) sq.Sqlizer {
	return sq.Expr(column+` LIKE ? ESCAPE '\'`, EscapeLike(value)+"%")
}

// FormatTime renders t in UTC using TimeFormat.
func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeFormat)
}
