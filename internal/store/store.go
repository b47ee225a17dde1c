// Package store is the read-only data access layer over the station and
// measurement relations. Callers depend on the Store and Session interfaces,
// never on driver rows.
package store

import (
	"context"
	"errors"

	"github.com/kjstillabower/climate-api/internal/models"
)

// ErrClosed is returned when a Store or Session is used after Close.
var ErrClosed = errors.New("store: closed")

// Store hands out request-scoped sessions.
type Store interface {
	// Open acquires a session. The caller must Close it on every exit path.
	Open(ctx context.Context) (Session, error)
	Ping(ctx context.Context) error
	Close() error
}

// Session is a scoped connection to the data store. All dates are YYYY-MM-DD strings
// and all comparisons are lexicographic.
type Session interface {
	// DateBounds returns MIN(date) and MAX(date) over all measurements; ok is false when there are none.
	DateBounds(ctx context.Context) (first, last string, ok bool, err error)
	// StationActivity counts measurement rows with date > after, grouped by station, ordered by station.
	StationActivity(ctx context.Context, after string) ([]models.StationCount, error)
	// MaxPrecipitationByDate returns MAX(prcp) per date for date > after, ascending by date.
	MaxPrecipitationByDate(ctx context.Context, after string) ([]models.PrecipitationDay, error)
	// Stations returns every distinct station in storage order.
	Stations(ctx context.Context) ([]models.Station, error)
	// Station looks up one station by identifier.
	Station(ctx context.Context, id string) (models.Station, bool, error)
	// Observations returns tobs for one station with date > after, ascending by date.
	Observations(ctx context.Context, stationID, after string) ([]models.TemperatureObservation, error)
	// TemperatureSummary aggregates tobs over start <= date <= end. ok is false when the
	// aggregate is empty (no non-NULL tobs in the interval).
	TemperatureSummary(ctx context.Context, start, end string) (models.TemperatureSummary, bool, error)
	Close() error
}
