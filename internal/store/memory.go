package store

import (
	"context"
	"math"
	"math/big"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/kjstillabower/climate-api/internal/models"
)

// MemoryStore is an in-memory Store with the same query semantics as the SQLite
// store, including SQLite's AVG summation and ROUND(x, 2) of the exact binary
// value half away from zero. Used as the test fake. A Measurement with an empty
// Station stands for a NULL station column.
type MemoryStore struct {
	mu           sync.RWMutex
	stations     []models.Station
	measurements []models.Measurement
	err          error
	closed       bool

	openSessions atomic.Int64
	sessions     atomic.Int64
}

// NewMemoryStore copies the given rows.
func NewMemoryStore(stations []models.Station, measurements []models.Measurement) *MemoryStore {
	return &MemoryStore{
		stations:     append([]models.Station(nil), stations...),
		measurements: append([]models.Measurement(nil), measurements...),
	}
}

// FailWith makes every subsequent query (and Ping) return err. nil restores normal behaviour.
func (m *MemoryStore) FailWith(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// OpenSessions returns the number of sessions opened and not yet closed.
func (m *MemoryStore) OpenSessions() int64 {
	return m.openSessions.Load()
}

// SessionsOpened returns the total number of sessions ever opened.
func (m *MemoryStore) SessionsOpened() int64 {
	return m.sessions.Load()
}

func (m *MemoryStore) Open(ctx context.Context) (Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, ErrClosed
	}
	m.openSessions.Add(1)
	m.sessions.Add(1)
	return &memorySession{store: m}, nil
}

func (m *MemoryStore) Ping(ctx context.Context) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return ErrClosed
	}
	return m.err
}

func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

type memorySession struct {
	store  *MemoryStore
	closed atomic.Bool
}

func (s *memorySession) Close() error {
	if s.closed.CompareAndSwap(false, true) {
		s.store.openSessions.Add(-1)
	}
	return nil
}

// begin read-locks the store; the returned func releases it.
func (s *memorySession) begin(ctx context.Context) (func(), error) {
	if s.closed.Load() {
		return nil, ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.store.mu.RLock()
	if s.store.err != nil {
		err := s.store.err
		s.store.mu.RUnlock()
		return nil, err
	}
	return s.store.mu.RUnlock, nil
}

func (s *memorySession) DateBounds(ctx context.Context) (string, string, bool, error) {
	done, err := s.begin(ctx)
	if err != nil {
		return "", "", false, err
	}
	defer done()

	if len(s.store.measurements) == 0 {
		return "", "", false, nil
	}
	first, last := s.store.measurements[0].Date, s.store.measurements[0].Date
	for _, m := range s.store.measurements[1:] {
		if m.Date < first {
			first = m.Date
		}
		if m.Date > last {
			last = m.Date
		}
	}
	return first, last, true, nil
}

func (s *memorySession) StationActivity(ctx context.Context, after string) ([]models.StationCount, error) {
	done, err := s.begin(ctx)
	if err != nil {
		return nil, err
	}
	defer done()

	counts := make(map[string]int)
	for _, m := range s.store.measurements {
		if m.Date > after && m.Station != "" {
			counts[m.Station]++
		}
	}
	out := make([]models.StationCount, 0, len(counts))
	for station, n := range counts {
		out = append(out, models.StationCount{Station: station, Count: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Station < out[j].Station })
	return out, nil
}

func (s *memorySession) MaxPrecipitationByDate(ctx context.Context, after string) ([]models.PrecipitationDay, error) {
	done, err := s.begin(ctx)
	if err != nil {
		return nil, err
	}
	defer done()

	byDate := make(map[string]*float64)
	for _, m := range s.store.measurements {
		if m.Date <= after {
			continue
		}
		cur, seen := byDate[m.Date]
		if !seen {
			byDate[m.Date] = nil
		}
		if m.Prcp != nil && (cur == nil || *m.Prcp > *cur) {
			v := *m.Prcp
			byDate[m.Date] = &v
		}
	}
	out := make([]models.PrecipitationDay, 0, len(byDate))
	for date, prcp := range byDate {
		out = append(out, models.PrecipitationDay{Date: date, Prcp: prcp})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out, nil
}

func (s *memorySession) Stations(ctx context.Context) ([]models.Station, error) {
	done, err := s.begin(ctx)
	if err != nil {
		return nil, err
	}
	defer done()

	seen := make(map[string]struct{}, len(s.store.stations))
	out := make([]models.Station, 0, len(s.store.stations))
	for _, st := range s.store.stations {
		if _, dup := seen[st.Station]; dup {
			continue
		}
		seen[st.Station] = struct{}{}
		out = append(out, st)
	}
	return out, nil
}

func (s *memorySession) Station(ctx context.Context, id string) (models.Station, bool, error) {
	done, err := s.begin(ctx)
	if err != nil {
		return models.Station{}, false, err
	}
	defer done()

	for _, st := range s.store.stations {
		if st.Station == id {
			return st, true, nil
		}
	}
	return models.Station{}, false, nil
}

func (s *memorySession) Observations(ctx context.Context, stationID, after string) ([]models.TemperatureObservation, error) {
	done, err := s.begin(ctx)
	if err != nil {
		return nil, err
	}
	defer done()

	var out []models.TemperatureObservation
	for _, m := range s.store.measurements {
		if m.Station == stationID && m.Date > after {
			out = append(out, models.TemperatureObservation{Date: m.Date, Tobs: m.Tobs})
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out, nil
}

func (s *memorySession) TemperatureSummary(ctx context.Context, start, end string) (models.TemperatureSummary, bool, error) {
	done, err := s.begin(ctx)
	if err != nil {
		return models.TemperatureSummary{}, false, err
	}
	defer done()

	var sum models.TemperatureSummary
	var total kbnSum
	n := 0
	for _, m := range s.store.measurements {
		if m.Tobs == nil || m.Date < start || m.Date > end {
			continue
		}
		v := *m.Tobs
		if n == 0 || v < sum.Min {
			sum.Min = v
		}
		if n == 0 || v > sum.Max {
			sum.Max = v
		}
		total.add(v)
		n++
	}
	if n == 0 {
		return models.TemperatureSummary{}, false, nil
	}
	sum.Avg = roundHalfAway(total.value()/float64(n), 2)
	return sum, true, nil
}

// kbnSum is the Kahan-Babuska-Neumaier accumulator SQLite uses for SUM and AVG over REAL values.
type kbnSum struct {
	sum, err float64
}

func (k *kbnSum) add(v float64) {
	t := k.sum + v
	if math.Abs(k.sum) > math.Abs(v) {
		k.err += (k.sum - t) + v
	} else {
		k.err += (v - t) + k.sum
	}
	k.sum = t
}

func (k kbnSum) value() float64 {
	return k.sum + k.err
}

// roundHalfAway rounds the exact binary value of x to places decimals, ties away
// from zero, as SQLite's ROUND(x, places) does. Scaling by 10^places in float64
// would move values just below a ...5 boundary onto it.
func roundHalfAway(x float64, places int) float64 {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return x
	}
	const prec = 256 // 53-bit mantissa times 10^places stays exact
	scale := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(places)), nil)

	v := new(big.Float).SetPrec(prec).SetFloat64(math.Abs(x))
	v.Mul(v, new(big.Float).SetPrec(prec).SetInt(scale))
	whole, _ := v.Int(nil)
	frac := new(big.Float).SetPrec(prec).Sub(v, new(big.Float).SetPrec(prec).SetInt(whole))
	if frac.Cmp(big.NewFloat(0.5)) >= 0 {
		whole.Add(whole, big.NewInt(1))
	}

	num, _ := new(big.Float).SetInt(whole).Float64()
	den, _ := new(big.Float).SetInt(scale).Float64()
	return math.Copysign(num/den, x)
}
