// Package airquality provides air quality data access, normalization and caching.
package airquality

import (
	"encoding/json"
	"errors"
	"time"
)

// Provider errors.
var (
	ErrProviderUnavailable = errors.New("air quality provider unavailable")
	ErrInvalidCoordinates  = errors.New("invalid coordinates")
)

// Code identifies a tracked pollutant.
type Code string

const (
	CodePM25 Code = "pm25"
	CodePM10 Code = "pm10"
	CodeO3   Code = "o3"
	CodeNO2  Code = "no2"
	CodeSO2  Code = "so2"
	CodeCO   Code = "co"
)

// TrackedCodes is the fixed pollutant set extracted from provider payloads.
var TrackedCodes = []Code{CodePM25, CodePM10, CodeO3, CodeNO2, CodeSO2, CodeCO}

// Canonical unit strings. CO is reported in mg/m³, everything else in µg/m³.
const (
	UnitMicrogramsPerM3 = "µg/m³"
	UnitMilligramsPerM3 = "mg/m³"
)

// Reading is one pollutant concentration in its canonical unit. Value is nil
// when the payload had no usable number for the pollutant.
type Reading struct {
	Code  Code     `json:"code"`
	Value *float64 `json:"value"`
	Unit  string   `json:"unit"`
}

// Normalized is the canonical representation of a provider payload. It is
// produced fresh per request and not mutated after construction, except that
// the weather backfill may fill fields that are still nil.
type Normalized struct {
	CurrentAQI     int              `json:"currentAqi"`
	Pollutants     map[Code]Reading `json:"pollutants"`
	PollutantUnits map[Code]string  `json:"pollutantUnits"`

	Temperature *float64 `json:"temperature,omitempty"`
	Humidity    *float64 `json:"humidity,omitempty"`
	WindSpeed   *float64 `json:"windSpeed,omitempty"`
	FeelsLike   *float64 `json:"feelsLikeTemperature,omitempty"`

	// Raw keeps the original payload for diagnostics when extraction comes
	// up empty.
	Raw json.RawMessage `json:"raw,omitempty"`
}

// HasWeather reports whether every weather field was present in the payload.
func (n *Normalized) HasWeather() bool {
	return n.Temperature != nil && n.Humidity != nil && n.WindSpeed != nil && n.FeelsLike != nil
}

// HourlyRecord is one hour of AQI history.
type HourlyRecord struct {
	Time time.Time `json:"time"`
	AQI  int       `json:"aqi"`
}

// DailyAverage is the mean AQI of one UTC day, derived from hourly history.
type DailyAverage struct {
	Day string `json:"day"`
	AQI int    `json:"aqi"`
}
