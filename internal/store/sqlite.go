package store

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/kjstillabower/climate-api/internal/models"
	"github.com/kjstillabower/climate-api/internal/observability"
)

//go:embed sql/date-bounds.sql
var dateBoundsSQL string

//go:embed sql/station-activity.sql
var stationActivitySQL string

//go:embed sql/max-precipitation.sql
var maxPrecipitationSQL string

//go:embed sql/get-stations.sql
var getStationsSQL string

//go:embed sql/get-station.sql
var getStationSQL string

//go:embed sql/get-observations.sql
var getObservationsSQL string

//go:embed sql/temperature-summary.sql
var temperatureSummarySQL string

// SQLiteStore reads the station/measurement schema from a SQLite file.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens path read-only. The file must already exist; an empty path
// or missing file is an error rather than a freshly created database.
func OpenSQLite(path string, maxOpenConns int) (*SQLiteStore, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("sqlite: database path is required")
	}
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("sqlite: %w", err)
	}

	db, err := sql.Open("sqlite", buildDSN(path))
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if maxOpenConns > 0 {
		db.SetMaxOpenConns(maxOpenConns)
		db.SetMaxIdleConns(maxOpenConns)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// buildDSN opens the file read-only; query_only also rejects writes on the connection itself.
func buildDSN(path string) string {
	params := []string{
		"mode=ro",
		"_pragma=busy_timeout(5000)",
		"_pragma=query_only(1)",
	}
	return fmt.Sprintf("file:%s?%s", path, strings.Join(params, "&"))
}

// Open pins one pooled connection for the lifetime of the session.
func (s *SQLiteStore) Open(ctx context.Context) (Session, error) {
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	return &sqliteSession{conn: conn}, nil
}

// Ping checks that the database is reachable. Used for health checks.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the underlying pool. Call during shutdown.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

type sqliteSession struct {
	conn *sql.Conn
}

func (s *sqliteSession) Close() error {
	return s.conn.Close()
}

func (s *sqliteSession) DateBounds(ctx context.Context) (first, last string, ok bool, err error) {
	start := time.Now()
	defer func() { observability.ObserveStoreQuery("date_bounds", start, err) }()

	var minDate, maxDate sql.NullString
	if err = s.conn.QueryRowContext(ctx, dateBoundsSQL).Scan(&minDate, &maxDate); err != nil {
		return "", "", false, fmt.Errorf("query date bounds: %w", err)
	}
	if !minDate.Valid || !maxDate.Valid {
		return "", "", false, nil
	}
	return minDate.String, maxDate.String, true, nil
}

func (s *sqliteSession) StationActivity(ctx context.Context, after string) (out []models.StationCount, err error) {
	start := time.Now()
	defer func() { observability.ObserveStoreQuery("station_activity", start, err) }()

	rows, err := s.conn.QueryContext(ctx, stationActivitySQL, after)
	if err != nil {
		return nil, fmt.Errorf("query station activity: %w", err)
	}
	defer closeRows(ctx, rows, "station activity")
	for rows.Next() {
		var station sql.NullString
		var count int
		if err = rows.Scan(&station, &count); err != nil {
			return nil, fmt.Errorf("scan station activity: %w", err)
		}
		// Rows with a NULL station group together and cannot be the most active station.
		if !station.Valid {
			continue
		}
		out = append(out, models.StationCount{Station: station.String, Count: count})
	}
	err = rows.Err()
	return out, err
}

func (s *sqliteSession) MaxPrecipitationByDate(ctx context.Context, after string) (out []models.PrecipitationDay, err error) {
	start := time.Now()
	defer func() { observability.ObserveStoreQuery("max_precipitation", start, err) }()

	rows, err := s.conn.QueryContext(ctx, maxPrecipitationSQL, after)
	if err != nil {
		return nil, fmt.Errorf("query precipitation: %w", err)
	}
	defer closeRows(ctx, rows, "precipitation")
	for rows.Next() {
		var d models.PrecipitationDay
		var prcp sql.NullFloat64
		if err = rows.Scan(&d.Date, &prcp); err != nil {
			return nil, fmt.Errorf("scan precipitation: %w", err)
		}
		d.Prcp = nullFloat(prcp)
		out = append(out, d)
	}
	err = rows.Err()
	return out, err
}

func (s *sqliteSession) Stations(ctx context.Context) (out []models.Station, err error) {
	start := time.Now()
	defer func() { observability.ObserveStoreQuery("stations", start, err) }()

	rows, err := s.conn.QueryContext(ctx, getStationsSQL)
	if err != nil {
		return nil, fmt.Errorf("query stations: %w", err)
	}
	defer closeRows(ctx, rows, "stations")
	for rows.Next() {
		var st models.Station
		if st, err = scanStation(rows); err != nil {
			return nil, err
		}
		out = append(out, st)
	}
	err = rows.Err()
	return out, err
}

func (s *sqliteSession) Station(ctx context.Context, id string) (st models.Station, ok bool, err error) {
	start := time.Now()
	defer func() { observability.ObserveStoreQuery("station", start, err) }()

	st, err = scanStation(s.conn.QueryRowContext(ctx, getStationSQL, id))
	if err == sql.ErrNoRows {
		return models.Station{}, false, nil
	}
	if err != nil {
		return models.Station{}, false, err
	}
	return st, true, nil
}

func (s *sqliteSession) Observations(ctx context.Context, stationID, after string) (out []models.TemperatureObservation, err error) {
	start := time.Now()
	defer func() { observability.ObserveStoreQuery("observations", start, err) }()

	rows, err := s.conn.QueryContext(ctx, getObservationsSQL, stationID, after)
	if err != nil {
		return nil, fmt.Errorf("query observations: %w", err)
	}
	defer closeRows(ctx, rows, "observations")
	for rows.Next() {
		var o models.TemperatureObservation
		var tobs sql.NullFloat64
		if err = rows.Scan(&o.Date, &tobs); err != nil {
			return nil, fmt.Errorf("scan observations: %w", err)
		}
		o.Tobs = nullFloat(tobs)
		out = append(out, o)
	}
	err = rows.Err()
	return out, err
}

func (s *sqliteSession) TemperatureSummary(ctx context.Context, startDate, endDate string) (sum models.TemperatureSummary, ok bool, err error) {
	start := time.Now()
	defer func() { observability.ObserveStoreQuery("temperature_summary", start, err) }()

	var tmin, tavg, tmax sql.NullFloat64
	err = s.conn.QueryRowContext(ctx, temperatureSummarySQL, startDate, endDate).Scan(&tmin, &tavg, &tmax)
	if err == sql.ErrNoRows {
		return models.TemperatureSummary{}, false, nil
	}
	if err != nil {
		return models.TemperatureSummary{}, false, fmt.Errorf("query temperature summary: %w", err)
	}
	if !tmin.Valid || !tavg.Valid || !tmax.Valid {
		return models.TemperatureSummary{}, false, nil
	}
	return models.TemperatureSummary{Min: tmin.Float64, Avg: tavg.Float64, Max: tmax.Float64}, true, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanStation(row rowScanner) (models.Station, error) {
	var st models.Station
	var name sql.NullString
	var lat, lon, elev sql.NullFloat64
	if err := row.Scan(&st.Station, &name, &lat, &lon, &elev); err != nil {
		if err == sql.ErrNoRows {
			return st, err
		}
		return st, fmt.Errorf("scan station: %w", err)
	}
	st.Name = name.String
	st.Latitude = lat.Float64
	st.Longitude = lon.Float64
	st.Elevation = elev.Float64
	return st, nil
}

func nullFloat(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

func closeRows(ctx context.Context, rows *sql.Rows, what string) {
	if err := rows.Close(); err != nil {
		observability.LoggerFromContext(ctx).Error("close rows", zap.String("query", what), zap.Error(err))
	}
}
