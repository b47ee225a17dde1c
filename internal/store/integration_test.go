//go:build integration
// +build integration

package store

import (
	"context"
	"testing"

	"github.com/kjstillabower/climate-api/internal/testhelpers"
)

// TestIntegration_HawaiiDataset checks the real dataset: stations are unique and
// every trailing-year precipitation date is unique and ascending.
func TestIntegration_HawaiiDataset(t *testing.T) {
	st, err := OpenSQLite(testhelpers.IntegrationDatabasePath(t), 2)
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	defer st.Close()

	ctx := context.Background()
	sess := openSession(t, st)

	first, last, ok, err := sess.DateBounds(ctx)
	if err != nil || !ok {
		t.Fatalf("DateBounds = %q, %q, %v, %v", first, last, ok, err)
	}
	if first > last {
		t.Errorf("first date %s after last date %s", first, last)
	}

	stations, err := sess.Stations(ctx)
	if err != nil {
		t.Fatalf("Stations: %v", err)
	}
	seen := make(map[string]bool)
	for _, s := range stations {
		if seen[s.Station] {
			t.Errorf("duplicate station %s", s.Station)
		}
		seen[s.Station] = true
		if s.Name == "" {
			t.Errorf("station %s has no name", s.Station)
		}
	}

	days, err := sess.MaxPrecipitationByDate(ctx, first)
	if err != nil {
		t.Fatalf("MaxPrecipitationByDate: %v", err)
	}
	for i := 1; i < len(days); i++ {
		if days[i].Date <= days[i-1].Date {
			t.Fatalf("precipitation dates not strictly ascending at %s", days[i].Date)
		}
	}
}
