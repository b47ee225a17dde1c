package service

import (
	"errors"
	"fmt"
)

// ErrNoDataAvailable is returned by ComputeBounds when the measurement table is empty.
// The most-active-station route has no defined behaviour then, so startup must fail.
var ErrNoDataAvailable = errors.New("no measurement data available")

// ErrStationNotFound is returned when the most active station has measurements but no station row.
var ErrStationNotFound = errors.New("station not found")

// RangeErrorKind tags why a date-range query was rejected. Values double as metric labels.
type RangeErrorKind string

const (
	InvalidDateFormat RangeErrorKind = "invalid_date_format"
	InvalidInterval   RangeErrorKind = "invalid_interval"
	OutOfRange        RangeErrorKind = "out_of_range"
	NoDataInRange     RangeErrorKind = "no_data_in_range"
)

// RangeError is the tagged failure result of QueryRange. Message is user-facing.
type RangeError struct {
	Kind    RangeErrorKind
	Message string
}

func (e *RangeError) Error() string {
	return e.Message
}

// AsRangeError unwraps err into a *RangeError.
func AsRangeError(err error) (*RangeError, bool) {
	var re *RangeError
	if errors.As(err, &re) {
		return re, true
	}
	return nil, false
}

func errInvalidDateFormat() error {
	return &RangeError{Kind: InvalidDateFormat, Message: "Invalid date format. Please use YYYY-MM-DD"}
}

func errInvalidInterval(start, end string) error {
	return &RangeError{Kind: InvalidInterval, Message: fmt.Sprintf("Invalid interval: start=%s end=%s", start, end)}
}

func errOutOfRange() error {
	return &RangeError{Kind: OutOfRange, Message: "Interval is out of range"}
}

func errNoDataInRange() error {
	return &RangeError{Kind: NoDataInRange, Message: "Query returned no data"}
}
