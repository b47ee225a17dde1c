package service

import (
	"context"
	"fmt"

	"github.com/kjstillabower/climate-api/internal/models"
	"github.com/kjstillabower/climate-api/internal/store"
	"github.com/kjstillabower/climate-api/internal/validation"
)

// activityWindowDays is the trailing window for "last year of data" queries.
const activityWindowDays = 365

// ComputeBounds reads the dataset span and the most active station in the
// trailing 365 days. Run once at startup; the result is never refreshed.
func ComputeBounds(ctx context.Context, st store.Store) (models.Bounds, error) {
	sess, err := st.Open(ctx)
	if err != nil {
		return models.Bounds{}, fmt.Errorf("open session: %w", err)
	}
	defer closeSession(ctx, sess)

	first, last, ok, err := sess.DateBounds(ctx)
	if err != nil {
		return models.Bounds{}, fmt.Errorf("date bounds: %w", err)
	}
	if !ok {
		return models.Bounds{}, ErrNoDataAvailable
	}
	if err := validation.ValidateDate(first); err != nil {
		return models.Bounds{}, fmt.Errorf("first date %q: %w", first, err)
	}
	yearBefore, err := validation.DaysBefore(last, activityWindowDays)
	if err != nil {
		return models.Bounds{}, fmt.Errorf("last date %q: %w", last, err)
	}

	counts, err := sess.StationActivity(ctx, yearBefore)
	if err != nil {
		return models.Bounds{}, fmt.Errorf("station activity: %w", err)
	}
	mostActive, ok := mostActiveStation(counts)
	if !ok {
		return models.Bounds{}, ErrNoDataAvailable
	}

	return models.Bounds{
		FirstDate:           first,
		LastDate:            last,
		YearBefore:          yearBefore,
		MostActiveStationID: mostActive,
	}, nil
}

// mostActiveStation picks the highest count; ties go to the lowest station identifier
// so the answer does not depend on store row order.
func mostActiveStation(counts []models.StationCount) (string, bool) {
	best := -1
	for i, c := range counts {
		if c.Station == "" || c.Count <= 0 {
			continue
		}
		if best < 0 || c.Count > counts[best].Count ||
			(c.Count == counts[best].Count && c.Station < counts[best].Station) {
			best = i
		}
	}
	if best < 0 {
		return "", false
	}
	return counts[best].Station, true
}
