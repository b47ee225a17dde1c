package validation

import (
	"errors"
	"strings"
	"time"
)

// DateLayout is the only accepted calendar date form. Zero padding makes
// lexicographic comparison of two valid dates equivalent to chronological order.
const DateLayout = "2006-01-02"

// ErrDateEmpty is returned when the date is empty or whitespace-only.
var ErrDateEmpty = errors.New("date is required")

// ErrDateFormat is returned when the input is not a valid YYYY-MM-DD calendar date.
var ErrDateFormat = errors.New("invalid date format, use YYYY-MM-DD")

// ParseDate checks that input is a real calendar date in YYYY-MM-DD form
// (e.g. rejects 2020-13-40 and 2019-02-29) and returns the parsed day in UTC.
func ParseDate(input string) (time.Time, error) {
	if strings.TrimSpace(input) == "" {
		return time.Time{}, ErrDateEmpty
	}
	if len(input) != len(DateLayout) {
		return time.Time{}, ErrDateFormat
	}
	t, err := time.Parse(DateLayout, input)
	if err != nil {
		return time.Time{}, ErrDateFormat
	}
	return t, nil
}

// ValidateDate reports whether input is a valid YYYY-MM-DD date.
func ValidateDate(input string) error {
	_, err := ParseDate(input)
	return err
}

// DaysBefore returns the YYYY-MM-DD date n calendar days before date.
func DaysBefore(date string, n int) (string, error) {
	t, err := ParseDate(date)
	if err != nil {
		return "", err
	}
	return t.AddDate(0, 0, -n).Format(DateLayout), nil
}
