package http

import (
	"bytes"
	"encoding/json"

	"github.com/kjstillabower/climate-api/internal/models"
)

// dateEntry is one key/value pair of a date-keyed JSON object.
type dateEntry struct {
	Date  string
	Value *float64
}

// dateObject marshals as a JSON object whose keys appear in slice order.
// A nil Value is written as null.
type dateObject []dateEntry

func (d dateObject) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, e := range d {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(e.Date)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(e.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func precipitationObject(days []models.PrecipitationDay) dateObject {
	obj := make(dateObject, len(days))
	for i, d := range days {
		obj[i] = dateEntry{Date: d.Date, Value: d.Prcp}
	}
	return obj
}

// tobsResponse is the /tobs body: station fields first, then the date-keyed tobs object.
type tobsResponse struct {
	models.Station
	Tobs dateObject `json:"tobs"`
}

// newTobsResponse builds the /tobs body. Observations arrive sorted by date;
// a repeated date keeps the last value so every key is unique.
func newTobsResponse(obs models.StationObservations) tobsResponse {
	tobs := make(dateObject, 0, len(obs.Tobs))
	for _, o := range obs.Tobs {
		if n := len(tobs); n > 0 && tobs[n-1].Date == o.Date {
			tobs[n-1].Value = o.Tobs
			continue
		}
		tobs = append(tobs, dateEntry{Date: o.Date, Value: o.Tobs})
	}
	return tobsResponse{Station: obs.Station, Tobs: tobs}
}
