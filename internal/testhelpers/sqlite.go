// Package testhelpers builds SQLite datasets for tests.
package testhelpers

import (
	"database/sql"
	"os"
	"path/filepath"
	"testing"

	_ "modernc.org/sqlite"

	"github.com/kjstillabower/climate-api/internal/models"
)

// Schema is the hawaii.sqlite table layout.
const Schema = `
CREATE TABLE station (
  id        INTEGER NOT NULL PRIMARY KEY,
  station   TEXT,
  name      TEXT,
  latitude  FLOAT,
  longitude FLOAT,
  elevation FLOAT
);
CREATE TABLE measurement (
  id      INTEGER NOT NULL PRIMARY KEY,
  station TEXT,
  date    TEXT,
  prcp    FLOAT,
  tobs    FLOAT
);
`

// NewSQLiteFile writes the given rows to a fresh hawaii-schema database under
// t.TempDir and returns its path. The file is closed before returning.
// A measurement with an empty Station is stored with a NULL station.
func NewSQLiteFile(t *testing.T, stations []models.Station, measurements []models.Measurement) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "hawaii.sqlite")
	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			t.Fatalf("close db: %v", err)
		}
	}()

	if _, err := db.Exec(Schema); err != nil {
		t.Fatalf("exec schema: %v", err)
	}
	for _, s := range stations {
		if _, err := db.Exec(`INSERT INTO station (station, name, latitude, longitude, elevation) VALUES (?, ?, ?, ?, ?)`,
			s.Station, s.Name, s.Latitude, s.Longitude, s.Elevation); err != nil {
			t.Fatalf("insert station: %v", err)
		}
	}
	for _, m := range measurements {
		if _, err := db.Exec(`INSERT INTO measurement (station, date, prcp, tobs) VALUES (?, ?, ?, ?)`,
			nullIfEmpty(m.Station), m.Date, m.Prcp, m.Tobs); err != nil {
			t.Fatalf("insert measurement: %v", err)
		}
	}
	return path
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// IntegrationDatabasePath returns the real dataset path from CLIMATE_DB_PATH.
// Skips the test if it is not set.
func IntegrationDatabasePath(t *testing.T) string {
	t.Helper()
	path := os.Getenv("CLIMATE_DB_PATH")
	if path == "" {
		t.Skip("CLIMATE_DB_PATH not set, skipping integration test")
	}
	if _, err := os.Stat(path); err != nil {
		t.Skipf("dataset %s unavailable: %v", path, err)
	}
	return path
}
