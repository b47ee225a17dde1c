package store

import (
	"context"
	"errors"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/kjstillabower/climate-api/internal/models"
	"github.com/kjstillabower/climate-api/internal/testhelpers"
)

func f(v float64) *float64 { return &v }

func fixtureStations() []models.Station {
	return []models.Station{
		{Station: "USC00519397", Name: "WAIKIKI 717.2, HI US", Latitude: 21.2716, Longitude: -157.8168, Elevation: 3.0},
		{Station: "USC00513117", Name: "KANEOHE 838.1, HI US", Latitude: 21.4234, Longitude: -157.8015, Elevation: 14.6},
		{Station: "USC00519281", Name: "WAIHEE 837.5, HI US", Latitude: 21.45167, Longitude: -157.84889, Elevation: 32.9},
	}
}

func fixtureMeasurements() []models.Measurement {
	return []models.Measurement{
		{Station: "USC00519397", Date: "2010-01-01", Prcp: f(0.08), Tobs: f(65)},
		{Station: "USC00513117", Date: "2010-01-01", Prcp: f(0.28), Tobs: f(67)},
		{Station: "USC00519397", Date: "2016-08-23", Prcp: f(0.00), Tobs: f(81)},
		{Station: "USC00519397", Date: "2016-08-24", Prcp: f(0.08), Tobs: f(79)},
		{Station: "USC00513117", Date: "2016-08-24", Prcp: f(2.15), Tobs: f(76)},
		{Station: "USC00519281", Date: "2016-08-24", Prcp: nil, Tobs: f(77)},
		{Station: "USC00519281", Date: "2016-12-01", Prcp: nil, Tobs: nil},
		{Station: "USC00519281", Date: "2017-08-22", Prcp: f(0.5), Tobs: f(76)},
		{Station: "USC00519397", Date: "2017-08-23", Prcp: f(0.0), Tobs: f(81)},
		{Station: "USC00519281", Date: "2017-08-23", Prcp: f(0.1), Tobs: f(82)},
	}
}

func newSQLiteFixture(t *testing.T, stations []models.Station, measurements []models.Measurement) *SQLiteStore {
	t.Helper()
	path := testhelpers.NewSQLiteFile(t, stations, measurements)
	st, err := OpenSQLite(path, 2)
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	return st
}

// implementations returns both stores loaded with the same rows so every
// behaviour is checked for parity.
func implementations(t *testing.T, stations []models.Station, measurements []models.Measurement) map[string]Store {
	return map[string]Store{
		"sqlite": newSQLiteFixture(t, stations, measurements),
		"memory": NewMemoryStore(stations, measurements),
	}
}

func openSession(t *testing.T, s Store) Session {
	t.Helper()
	sess, err := s.Open(context.Background())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = sess.Close() })
	return sess
}

func TestDateBounds(t *testing.T) {
	for name, s := range implementations(t, fixtureStations(), fixtureMeasurements()) {
		t.Run(name, func(t *testing.T) {
			first, last, ok, err := openSession(t, s).DateBounds(context.Background())
			if err != nil || !ok {
				t.Fatalf("DateBounds: ok=%v err=%v", ok, err)
			}
			if first != "2010-01-01" || last != "2017-08-23" {
				t.Errorf("DateBounds = (%q, %q), want (2010-01-01, 2017-08-23)", first, last)
			}
		})
	}
}

func TestDateBounds_Empty(t *testing.T) {
	for name, s := range implementations(t, fixtureStations(), nil) {
		t.Run(name, func(t *testing.T) {
			_, _, ok, err := openSession(t, s).DateBounds(context.Background())
			if err != nil {
				t.Fatalf("DateBounds: %v", err)
			}
			if ok {
				t.Error("DateBounds ok = true on empty measurement table")
			}
		})
	}
}

func TestStationActivity(t *testing.T) {
	want := []models.StationCount{
		{Station: "USC00513117", Count: 1},
		{Station: "USC00519281", Count: 4},
		{Station: "USC00519397", Count: 2},
	}
	for name, s := range implementations(t, fixtureStations(), fixtureMeasurements()) {
		t.Run(name, func(t *testing.T) {
			got, err := openSession(t, s).StationActivity(context.Background(), "2016-08-23")
			if err != nil {
				t.Fatalf("StationActivity: %v", err)
			}
			if !reflect.DeepEqual(got, want) {
				t.Errorf("StationActivity = %+v, want %+v", got, want)
			}
		})
	}
}

// TestMaxPrecipitationByDate verifies the cutoff is exclusive, dates ascend,
// the maximum across stations wins and an all-NULL day yields nil.
func TestMaxPrecipitationByDate(t *testing.T) {
	for name, s := range implementations(t, fixtureStations(), fixtureMeasurements()) {
		t.Run(name, func(t *testing.T) {
			got, err := openSession(t, s).MaxPrecipitationByDate(context.Background(), "2016-08-23")
			if err != nil {
				t.Fatalf("MaxPrecipitationByDate: %v", err)
			}
			wantDates := []string{"2016-08-24", "2016-12-01", "2017-08-22", "2017-08-23"}
			if len(got) != len(wantDates) {
				t.Fatalf("got %d days, want %d: %+v", len(got), len(wantDates), got)
			}
			for i, d := range got {
				if d.Date != wantDates[i] {
					t.Errorf("day[%d] = %q, want %q", i, d.Date, wantDates[i])
				}
			}
			if got[0].Prcp == nil || *got[0].Prcp != 2.15 {
				t.Errorf("2016-08-24 prcp = %v, want 2.15", got[0].Prcp)
			}
			if got[1].Prcp != nil {
				t.Errorf("2016-12-01 prcp = %v, want nil", *got[1].Prcp)
			}
		})
	}
}

func TestStations_Deduplicated(t *testing.T) {
	stations := append(fixtureStations(), fixtureStations()[0])
	for name, s := range implementations(t, stations, fixtureMeasurements()) {
		t.Run(name, func(t *testing.T) {
			got, err := openSession(t, s).Stations(context.Background())
			if err != nil {
				t.Fatalf("Stations: %v", err)
			}
			if !reflect.DeepEqual(got, fixtureStations()) {
				t.Errorf("Stations = %+v, want %+v", got, fixtureStations())
			}
		})
	}
}

func TestStation_Lookup(t *testing.T) {
	for name, s := range implementations(t, fixtureStations(), fixtureMeasurements()) {
		t.Run(name, func(t *testing.T) {
			sess := openSession(t, s)
			st, ok, err := sess.Station(context.Background(), "USC00519281")
			if err != nil || !ok {
				t.Fatalf("Station: ok=%v err=%v", ok, err)
			}
			if st.Name != "WAIHEE 837.5, HI US" || st.Elevation != 32.9 {
				t.Errorf("Station = %+v", st)
			}
			if _, ok, err := sess.Station(context.Background(), "NOPE"); ok || err != nil {
				t.Errorf("Station(missing) ok=%v err=%v, want false, nil", ok, err)
			}
		})
	}
}

func TestObservations(t *testing.T) {
	for name, s := range implementations(t, fixtureStations(), fixtureMeasurements()) {
		t.Run(name, func(t *testing.T) {
			got, err := openSession(t, s).Observations(context.Background(), "USC00519281", "2016-08-23")
			if err != nil {
				t.Fatalf("Observations: %v", err)
			}
			if len(got) != 4 {
				t.Fatalf("got %d observations, want 4: %+v", len(got), got)
			}
			if got[0].Date != "2016-08-24" || got[0].Tobs == nil || *got[0].Tobs != 77 {
				t.Errorf("first = %+v", got[0])
			}
			if got[1].Tobs != nil {
				t.Errorf("NULL tobs scanned as %v", *got[1].Tobs)
			}
			if got[3].Date != "2017-08-23" {
				t.Errorf("last date = %q, want 2017-08-23", got[3].Date)
			}
		})
	}
}

func TestTemperatureSummary(t *testing.T) {
	for name, s := range implementations(t, fixtureStations(), fixtureMeasurements()) {
		t.Run(name, func(t *testing.T) {
			// 2016-08-24 .. 2016-12-01: 79, 76, 77 and one NULL
			got, ok, err := openSession(t, s).TemperatureSummary(context.Background(), "2016-08-24", "2016-12-01")
			if err != nil || !ok {
				t.Fatalf("TemperatureSummary: ok=%v err=%v", ok, err)
			}
			want := models.TemperatureSummary{Min: 76, Avg: 77.33, Max: 79}
			if got != want {
				t.Errorf("TemperatureSummary = %+v, want %+v", got, want)
			}
		})
	}
}

// TestTemperatureSummary_Rounding pins the visible rounding contract: the exact
// binary average is rounded to 2 places, ties away from zero, in both stores.
func TestTemperatureSummary_Rounding(t *testing.T) {
	tests := []struct {
		name string
		tobs []float64
		want float64
	}{
		{"binary tie rounds up", []float64{70.125, 70.125}, 70.13},
		{"single binary tie", []float64{72.125}, 72.13},
		{"negative tie rounds away from zero", []float64{-1.125}, -1.13},
		{"just below boundary", []float64{70, 70.01}, 70},
		{"sum just below boundary", []float64{0, 0.01, 0.02, 0.03}, 0.01},
		{"pair just below boundary", []float64{2.67, 2.68}, 2.67},
		{"decimal five below binary value", []float64{10.235}, 10.23},
		{"plain average", []float64{62, 70.5, 74}, 68.83},
	}
	for _, tt := range tests {
		rows := make([]models.Measurement, len(tt.tobs))
		for i, v := range tt.tobs {
			rows[i] = models.Measurement{Station: "A", Date: "2017-01-01", Tobs: f(v)}
		}
		for name, s := range implementations(t, nil, rows) {
			t.Run(tt.name+"/"+name, func(t *testing.T) {
				got, ok, err := openSession(t, s).TemperatureSummary(context.Background(), "2017-01-01", "2017-01-01")
				if err != nil || !ok {
					t.Fatalf("TemperatureSummary: ok=%v err=%v", ok, err)
				}
				if got.Avg != tt.want {
					t.Errorf("Avg = %v, want %v", got.Avg, tt.want)
				}
			})
		}
	}
}

func TestRoundHalfAway(t *testing.T) {
	tests := []struct {
		in   float64
		want float64
	}{
		{70.005, 70},
		{10.235, 10.23},
		{70.125, 70.13},
		{-70.125, -70.13},
		{1.5, 1.5},
		{0.004, 0},
	}
	for _, tt := range tests {
		if got := roundHalfAway(tt.in, 2); got != tt.want {
			t.Errorf("roundHalfAway(%v, 2) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestStationActivity_SkipsNullStation(t *testing.T) {
	rows := []models.Measurement{
		{Station: "A", Date: "2017-01-01", Tobs: f(70)},
		{Station: "", Date: "2017-01-01", Tobs: f(71)},
		{Station: "", Date: "2017-01-02", Tobs: f(72)},
	}
	for name, s := range implementations(t, nil, rows) {
		t.Run(name, func(t *testing.T) {
			got, err := openSession(t, s).StationActivity(context.Background(), "2016-12-31")
			if err != nil {
				t.Fatalf("StationActivity: %v", err)
			}
			want := []models.StationCount{{Station: "A", Count: 1}}
			if !reflect.DeepEqual(got, want) {
				t.Errorf("StationActivity = %+v, want %+v", got, want)
			}
		})
	}
}

func TestTemperatureSummary_EmptyAggregate(t *testing.T) {
	for name, s := range implementations(t, fixtureStations(), fixtureMeasurements()) {
		t.Run(name, func(t *testing.T) {
			sess := openSession(t, s)
			if _, ok, err := sess.TemperatureSummary(context.Background(), "2012-01-01", "2012-12-31"); ok || err != nil {
				t.Errorf("no rows: ok=%v err=%v, want false, nil", ok, err)
			}
			if _, ok, err := sess.TemperatureSummary(context.Background(), "2016-12-01", "2016-12-01"); ok || err != nil {
				t.Errorf("only NULL tobs: ok=%v err=%v, want false, nil", ok, err)
			}
		})
	}
}

func TestOpenSQLite_MissingFile(t *testing.T) {
	if _, err := OpenSQLite(filepath.Join(t.TempDir(), "nope.sqlite"), 1); err == nil {
		t.Fatal("OpenSQLite(missing) expected error, got nil")
	}
	if _, err := OpenSQLite("  ", 1); err == nil {
		t.Fatal("OpenSQLite(empty) expected error, got nil")
	}
}

func TestSQLiteStore_ReadOnly(t *testing.T) {
	s := newSQLiteFixture(t, fixtureStations(), fixtureMeasurements())
	if _, err := s.db.Exec(`DELETE FROM measurement`); err == nil {
		t.Fatal("write on read-only store succeeded")
	}
}

func TestSQLiteStore_Ping(t *testing.T) {
	s := newSQLiteFixture(t, fixtureStations(), fixtureMeasurements())
	if err := s.Ping(context.Background()); err != nil {
		t.Errorf("Ping: %v", err)
	}
}

func TestMemoryStore_SessionAccounting(t *testing.T) {
	m := NewMemoryStore(fixtureStations(), fixtureMeasurements())
	sess, err := m.Open(context.Background())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if m.OpenSessions() != 1 || m.SessionsOpened() != 1 {
		t.Errorf("open=%d total=%d, want 1/1", m.OpenSessions(), m.SessionsOpened())
	}
	_ = sess.Close()
	_ = sess.Close()
	if m.OpenSessions() != 0 {
		t.Errorf("open after double Close = %d, want 0", m.OpenSessions())
	}
	if _, err := sess.Stations(context.Background()); !errors.Is(err, ErrClosed) {
		t.Errorf("query after Close error = %v, want ErrClosed", err)
	}
}

func TestMemoryStore_FailWith(t *testing.T) {
	m := NewMemoryStore(fixtureStations(), fixtureMeasurements())
	boom := errors.New("disk I/O error")
	m.FailWith(boom)
	sess := openSession(t, m)
	if _, err := sess.Stations(context.Background()); !errors.Is(err, boom) {
		t.Errorf("Stations error = %v, want %v", err, boom)
	}
	if err := m.Ping(context.Background()); !errors.Is(err, boom) {
		t.Errorf("Ping error = %v, want %v", err, boom)
	}
	m.FailWith(nil)
	if _, err := sess.Stations(context.Background()); err != nil {
		t.Errorf("Stations after reset: %v", err)
	}
}

func TestMemoryStore_Closed(t *testing.T) {
	m := NewMemoryStore(nil, nil)
	_ = m.Close()
	if _, err := m.Open(context.Background()); !errors.Is(err, ErrClosed) {
		t.Errorf("Open after Close error = %v, want ErrClosed", err)
	}
}
