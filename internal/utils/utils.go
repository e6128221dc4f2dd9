package utils

import (
	"fmt"
	"strings"
	"time"
)

// dateFormats are tried in order by ParseDate
var dateFormats = []string{
	time.RFC3339,
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"01/02/2006",
	"01/02/2006 15:04:05",
	"Jan 2, 2006",
	"2 Jan 2006",
}

// ParseDate parses a date string in the formats seen in exported spreadsheets.
// Slash dates are read month first.
func ParseDate(dateStr string) (time.Time, error) {
	dateStr = strings.TrimSpace(dateStr)
	for _, format := range dateFormats {
		if date, err := time.Parse(format, dateStr); err == nil {
			return date.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unable to parse date: %s", dateStr)
}

// FindColumnIndex returns the index of the first header matching one of
// names, ignoring case and surrounding space, or -1
func FindColumnIndex(header []string, names []string) int {
	for i, column := range header {
		column = strings.ToLower(strings.TrimSpace(column))
		for _, name := range names {
			if column == strings.ToLower(name) {
				return i
			}
		}
	}
	return -1
}

// SplitList splits a cell holding several values separated by ; or |
func SplitList(cell string) []string {
	fields := strings.FieldsFunc(cell, func(r rune) bool { return r == ';' || r == '|' })
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}
