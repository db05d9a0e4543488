// Package airquality provides PM2.5 classification and cached access to
// station measurements for the dashboard.
package airquality

import (
	"errors"
	"sort"
	"time"
)

// Provider errors.
var (
	ErrStationNotFound     = errors.New("station not found")
	ErrNoMeasurements      = errors.New("no measurements available")
	ErrProviderUnavailable = errors.New("air quality provider unavailable")
	ErrCacheEmpty          = errors.New("air quality cache is empty")
)

// Pollutant represents an air quality pollutant type.
type Pollutant string

const (
	PollutantNO2  Pollutant = "NO2"
	PollutantPM25 Pollutant = "PM25"
	PollutantPM10 Pollutant = "PM10"
	PollutantO3   Pollutant = "O3"
)

// Station represents an air quality monitoring station.
type Station struct {
	ID         string
	Name       string
	Lat        float64
	Lon        float64
	Pollutants []Pollutant
	UpdatedAt  time.Time
}

// Measurement represents a single pollutant measurement at a station.
type Measurement struct {
	StationID  string
	Pollutant  Pollutant
	Value      float64
	Unit       string
	MeasuredAt time.Time
}

// StationLevel is a station's latest PM2.5 reading and its classification.
type StationLevel struct {
	Station    *Station
	PM25       float64
	Level      Level
	MeasuredAt time.Time
}

// Snapshot is a point-in-time copy of provider data.
type Snapshot struct {
	// Stations maps station ID to station metadata.
	Stations map[string]*Station

	// Measurements holds the latest measurement per "stationID:pollutant".
	Measurements map[string]*Measurement

	FetchedAt time.Time
	Provider  string
}

// NewSnapshot creates an empty snapshot.
func NewSnapshot(provider string) *Snapshot {
	return &Snapshot{
		Stations:     make(map[string]*Station),
		Measurements: make(map[string]*Measurement),
		FetchedAt:    time.Now(),
		Provider:     provider,
	}
}

func measurementKey(stationID string, pollutant Pollutant) string {
	return stationID + ":" + string(pollutant)
}

// GetMeasurement retrieves a measurement for a station and pollutant.
func (s *Snapshot) GetMeasurement(stationID string, pollutant Pollutant) *Measurement {
	return s.Measurements[measurementKey(stationID, pollutant)]
}

// SetMeasurement adds or replaces a measurement.
func (s *Snapshot) SetMeasurement(m *Measurement) {
	s.Measurements[measurementKey(m.StationID, m.Pollutant)] = m
}

// StationList returns all stations ordered by ID.
func (s *Snapshot) StationList() []*Station {
	stations := make([]*Station, 0, len(s.Stations))
	for _, station := range s.Stations {
		stations = append(stations, station)
	}
	sort.Slice(stations, func(i, j int) bool { return stations[i].ID < stations[j].ID })
	return stations
}

// Levels classifies every station that has a PM2.5 measurement.
func (s *Snapshot) Levels() []StationLevel {
	var out []StationLevel
	for _, station := range s.StationList() {
		m := s.GetMeasurement(station.ID, PollutantPM25)
		if m == nil {
			continue
		}
		out = append(out, StationLevel{
			Station:    station,
			PM25:       m.Value,
			Level:      Classify(m.Value),
			MeasuredAt: m.MeasuredAt,
		})
	}
	return out
}
