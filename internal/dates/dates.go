// Package dates parses the heterogeneous date strings that show up in trip
// forms and spreadsheet exports and formats calendar dates for display and
// CSV output. All dates are bare calendar days pinned to UTC midnight.
package dates

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// ErrUnparsableDate indicates that no accepted date format matched the input.
var ErrUnparsableDate = errors.New("dates: unparsable date")

var (
	isoPattern      = regexp.MustCompile(`^(\d{4})-(\d{1,2})-(\d{1,2})$`)
	dayFirstPattern = regexp.MustCompile(`^(\d{1,2})-(\d{1,2})-(\d{4})$`)
)

// fallbackLayouts is tried last, best-effort, for inputs neither explicit
// pattern matches (e.g. "Jan 2, 2024" pasted from a calendar app).
var fallbackLayouts = []string{
	"2006-01-02T15:04:05Z07:00",
	"Jan 2, 2006",
	"January 2, 2006",
	"2 Jan 2006",
	"2 January 2006",
}

// Parse converts a date-like string into a UTC-midnight calendar date.
//
// Separators "." and "/" are treated as "-". The ISO year-first pattern is
// tried before the day-first pattern, so "2024-03-05" is March 5 while
// "03-05-2024" is day 3 of May: machine exports are ISO, legacy spreadsheet
// exports are day-month-year, and day-first deliberately wins over the
// US month-first reading.
func Parse(raw string) (time.Time, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return time.Time{}, fmt.Errorf("%w: empty", ErrUnparsableDate)
	}

	normalized := strings.NewReplacer(".", "-", "/", "-").Replace(trimmed)

	if match := isoPattern.FindStringSubmatch(normalized); match != nil {
		return calendarDate(match[1], match[2], match[3])
	}
	if match := dayFirstPattern.FindStringSubmatch(normalized); match != nil {
		return calendarDate(match[3], match[2], match[1])
	}

	for _, layout := range fallbackLayouts {
		if parsed, err := time.Parse(layout, trimmed); err == nil {
			return time.Date(parsed.Year(), parsed.Month(), parsed.Day(), 0, 0, 0, 0, time.UTC), nil
		}
	}

	return time.Time{}, fmt.Errorf("%w: %q", ErrUnparsableDate, raw)
}

// calendarDate builds a UTC midnight date and rejects impossible components
// (month 13, day 32) that the digit patterns alone let through.
func calendarDate(yearText, monthText, dayText string) (time.Time, error) {
	year, _ := strconv.Atoi(yearText)
	month, _ := strconv.Atoi(monthText)
	day, _ := strconv.Atoi(dayText)

	date := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if date.Year() != year || date.Month() != time.Month(month) || date.Day() != day {
		return time.Time{}, fmt.Errorf("%w: %04d-%02d-%02d is not a calendar date", ErrUnparsableDate, year, month, day)
	}
	return date, nil
}

// FormatHuman renders a date as D/M/YYYY without zero padding, the format
// used in user-facing messages and gap annotations.
func FormatHuman(date time.Time) string {
	utc := date.UTC()
	return fmt.Sprintf("%d/%d/%d", utc.Day(), int(utc.Month()), utc.Year())
}

// FormatISO renders a date as YYYY-MM-DD, the format used in CSV exports.
func FormatISO(date time.Time) string {
	return date.UTC().Format("2006-01-02")
}

// Midnight truncates a timestamp to its UTC calendar date.
func Midnight(value time.Time) time.Time {
	utc := value.UTC()
	return time.Date(utc.Year(), utc.Month(), utc.Day(), 0, 0, 0, 0, time.UTC)
}

// WholeDays returns the number of whole days from a to b.
func WholeDays(a, b time.Time) int {
	return int(Midnight(b).Sub(Midnight(a)) / (24 * time.Hour))
}
