package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/kjstillabower/climate-api/internal/models"
	"github.com/kjstillabower/climate-api/internal/observability"
	"github.com/kjstillabower/climate-api/internal/store"
	"github.com/kjstillabower/climate-api/internal/validation"
)

// ClimateService answers the read-only climate queries. bounds is computed once
// at startup and never mutated, so one ClimateService is safe for concurrent use.
type ClimateService struct {
	store  store.Store
	bounds models.Bounds
}

// NewClimateService creates a ClimateService over st using the precomputed bounds.
func NewClimateService(st store.Store, bounds models.Bounds) *ClimateService {
	return &ClimateService{store: st, bounds: bounds}
}

// Bounds returns the dataset bounds the service was built with.
func (s *ClimateService) Bounds() models.Bounds {
	return s.bounds
}

// withSession runs fn on a fresh session and always releases it.
func (s *ClimateService) withSession(ctx context.Context, fn func(store.Session) error) error {
	sess, err := s.store.Open(ctx)
	if err != nil {
		return fmt.Errorf("open session: %w", err)
	}
	defer closeSession(ctx, sess)
	return fn(sess)
}

// closeSession releases sess and logs a failed close; the caller's result stands.
func closeSession(ctx context.Context, sess store.Session) {
	if err := sess.Close(); err != nil {
		observability.LoggerFromContext(ctx).Warn("session close failed", zap.Error(err))
	}
}

// Precipitation returns the maximum precipitation per day over the trailing year, ascending by date.
func (s *ClimateService) Precipitation(ctx context.Context) ([]models.PrecipitationDay, error) {
	var days []models.PrecipitationDay
	err := s.withSession(ctx, func(sess store.Session) error {
		var err error
		days, err = sess.MaxPrecipitationByDate(ctx, s.bounds.YearBefore)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("precipitation: %w", err)
	}
	return days, nil
}

// Stations returns every station in the dataset.
func (s *ClimateService) Stations(ctx context.Context) ([]models.Station, error) {
	var stations []models.Station
	err := s.withSession(ctx, func(sess store.Session) error {
		var err error
		stations, err = sess.Stations(ctx)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("stations: %w", err)
	}
	return stations, nil
}

// MostActiveStation returns the most active station's metadata and its trailing-year
// temperature observations. Both reads share one session.
func (s *ClimateService) MostActiveStation(ctx context.Context) (models.StationObservations, error) {
	var out models.StationObservations
	id := s.bounds.MostActiveStationID
	err := s.withSession(ctx, func(sess store.Session) error {
		st, ok, err := sess.Station(ctx, id)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: %s", ErrStationNotFound, id)
		}
		obs, err := sess.Observations(ctx, id, s.bounds.YearBefore)
		if err != nil {
			return err
		}
		out = models.StationObservations{Station: st, Tobs: obs}
		return nil
	})
	if err != nil {
		return models.StationObservations{}, fmt.Errorf("most active station: %w", err)
	}
	return out, nil
}

// QueryFrom is QueryRange from start to the last date in the dataset.
func (s *ClimateService) QueryFrom(ctx context.Context, start string) (models.RangeResult, error) {
	return s.QueryRange(ctx, start, s.bounds.LastDate)
}

// QueryRange returns MIN, AVG (rounded to 2 places) and MAX tobs over
// start <= date <= end after clamping the interval to the dataset bounds.
// Rejections are *RangeError; any other error is a store failure.
//
// Steps, each short-circuiting: validate both dates, reject start > end,
// clamp end down to last_date, clamp start up to first_date, reject an interval
// that lies wholly outside the dataset, aggregate, reject an empty aggregate.
func (s *ClimateService) QueryRange(ctx context.Context, start, end string) (models.RangeResult, error) {
	logger := observability.LoggerFromContext(ctx)

	result, err := s.queryRange(ctx, start, end)
	if err != nil {
		if re, ok := AsRangeError(err); ok {
			observability.RangeQueriesTotal.WithLabelValues(string(re.Kind)).Inc()
			if re.Kind == NoDataInRange {
				logger.Warn("range aggregate empty after bounds check",
					zap.String("start", start), zap.String("end", end))
			} else {
				logger.Debug("range query rejected",
					zap.String("kind", string(re.Kind)), zap.String("start", start), zap.String("end", end))
			}
			return models.RangeResult{}, err
		}
		observability.RangeQueriesTotal.WithLabelValues("error").Inc()
		return models.RangeResult{}, fmt.Errorf("range query: %w", err)
	}
	observability.RangeQueriesTotal.WithLabelValues("success").Inc()
	return result, nil
}

func (s *ClimateService) queryRange(ctx context.Context, start, end string) (models.RangeResult, error) {
	if validation.ValidateDate(start) != nil || validation.ValidateDate(end) != nil {
		return models.RangeResult{}, errInvalidDateFormat()
	}
	if start > end {
		return models.RangeResult{}, errInvalidInterval(start, end)
	}
	if end > s.bounds.LastDate {
		end = s.bounds.LastDate
		observability.RangeQueriesClampedTotal.WithLabelValues("end").Inc()
	}
	if start < s.bounds.FirstDate {
		start = s.bounds.FirstDate
		observability.RangeQueriesClampedTotal.WithLabelValues("start").Inc()
	}
	if start > s.bounds.LastDate || end < s.bounds.FirstDate {
		return models.RangeResult{}, errOutOfRange()
	}

	var summary models.TemperatureSummary
	var ok bool
	err := s.withSession(ctx, func(sess store.Session) error {
		var err error
		summary, ok, err = sess.TemperatureSummary(ctx, start, end)
		return err
	})
	if err != nil {
		return models.RangeResult{}, err
	}
	if !ok {
		return models.RangeResult{}, errNoDataInRange()
	}
	return models.RangeResult{
		Min:   summary.Min,
		Avg:   summary.Avg,
		Max:   summary.Max,
		Start: start,
		End:   end,
	}, nil
}
