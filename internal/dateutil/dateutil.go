// Package dateutil parses and formats the maintenance date encodings used
// throughout the collection: the regional DD/MM/YYYY form shown to the user
// and ISO-8601 strings produced by API clients. Regional dates are anchored
// to local noon so that converting them to an absolute instant never drifts
// across a day boundary.
package dateutil

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"time"
)

// RegionalLayout is the canonical display layout for maintenance dates.
const RegionalLayout = "02/01/2006"

// ErrInvalidDateFormat reports a date string that matches neither the
// regional DD/MM/YYYY pattern nor a parseable ISO-8601 string.
var ErrInvalidDateFormat = errors.New("invalid date format")

// ParseError wraps ErrInvalidDateFormat with the offending input.
type ParseError struct {
	Input string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("invalid date format: %q", e.Input)
}

// Unwrap makes errors.Is(err, ErrInvalidDateFormat) work.
func (e *ParseError) Unwrap() error { return ErrInvalidDateFormat }

var regionalPattern = regexp.MustCompile(`^(\d{2})/(\d{2})/(\d{4})$`)

// isoLayouts are tried in order for non-regional input.
var isoLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// Parse converts a regional DD/MM/YYYY or ISO-8601 date string into an
// instant in the local time zone. Regional dates are normalized to 12:00
// local before conversion. Returns a *ParseError for malformed input.
func Parse(text string) (time.Time, error) {
	if m := regionalPattern.FindStringSubmatch(text); m != nil {
		day, _ := strconv.Atoi(m[1])
		month, _ := strconv.Atoi(m[2])
		year, _ := strconv.Atoi(m[3])
		if day < 1 || day > 31 || month < 1 || month > 12 || year < 1900 {
			return time.Time{}, &ParseError{Input: text}
		}
		// time.Date normalizes out-of-range days (31/04 would roll into
		// May); reject anything that does not round-trip.
		t := time.Date(year, time.Month(month), day, 12, 0, 0, 0, time.Local)
		if t.Day() != day || t.Month() != time.Month(month) || t.Year() != year {
			return time.Time{}, &ParseError{Input: text}
		}
		return t, nil
	}

	for _, layout := range isoLayouts {
		if t, err := time.ParseInLocation(layout, text, time.Local); err == nil {
			return t, nil
		}
	}
	return time.Time{}, &ParseError{Input: text}
}

// Format renders an instant as a zero-padded regional DD/MM/YYYY string.
func Format(t time.Time) string {
	return t.Format(RegionalLayout)
}

// StartOfDay truncates an instant to 00:00 local on the same calendar day.
func StartOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// DaysBetween returns the number of calendar days from `from` to `to`,
// truncating both to the start of their day first. Same day yields 0;
// `to` one day in the past yields -1. Rounding absorbs DST-shortened or
// DST-lengthened days.
func DaysBetween(from, to time.Time) int {
	diff := StartOfDay(to).Sub(StartOfDay(from))
	days := diff.Hours() / 24
	if days >= 0 {
		return int(days + 0.5)
	}
	return -int(-days + 0.5)
}
