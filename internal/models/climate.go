package models

// Station is a fixed weather-observation location.
type Station struct {
	Station   string  `json:"station"`
	Name      string  `json:"name"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Elevation float64 `json:"elevation"`
}

// Measurement is one day's recorded precipitation and temperature for one station.
// Prcp and Tobs are nil when the source row holds NULL.
type Measurement struct {
	Station string
	Date    string // YYYY-MM-DD
	Prcp    *float64
	Tobs    *float64
}

// PrecipitationDay is the maximum precipitation recorded on Date across all stations.
type PrecipitationDay struct {
	Date string
	Prcp *float64
}

// TemperatureObservation is a single station's observed temperature on Date.
type TemperatureObservation struct {
	Date string
	Tobs *float64
}

// StationCount is the number of measurement rows recorded for a station.
type StationCount struct {
	Station string
	Count   int
}

// TemperatureSummary holds MIN, rounded AVG and MAX of tobs over a date interval.
type TemperatureSummary struct {
	Min float64
	Avg float64
	Max float64
}

// Bounds is the immutable span of the dataset, computed once at startup.
type Bounds struct {
	FirstDate           string `json:"firstDate"`
	LastDate            string `json:"lastDate"`
	YearBefore          string `json:"yearBefore"`
	MostActiveStationID string `json:"mostActiveStation"`
}

// RangeResult is the successful outcome of a date-range temperature query.
// Start and End are the clamped values actually used.
type RangeResult struct {
	Min   float64 `json:"TMIN"`
	Avg   float64 `json:"TAVG"`
	Max   float64 `json:"TMAX"`
	Start string  `json:"start"`
	End   string  `json:"end"`
}

// StationObservations is a station's metadata plus its temperature observations in ascending date order.
type StationObservations struct {
	Station
	Tobs []TemperatureObservation
}
