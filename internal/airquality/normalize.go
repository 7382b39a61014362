package airquality

import (
	"encoding/json"
	"math"
	"strings"
)

// universalAQICode marks the provider's location-independent AQI scale.
const universalAQICode = "uaqi"

// Molar masses in g/mol for gas-phase pollutants. Particulates have no
// defined molar mass, so ppb/ppm values for them are not convertible.
var molarMass = map[Code]float64{
	CodeCO:  28.01,
	CodeNO2: 46.0055,
	CodeO3:  48.00,
	CodeSO2: 64.066,
}

// molarVolume is the volume in liters of one mole of gas at 25°C and 1 atm,
// the reference conditions used by the provider's concentration units.
const molarVolume = 24.45

// Candidate key names for ambient weather fields that some payload variants
// carry at the top level.
var (
	temperatureKeys = []string{"temperature", "temp", "air_temperature", "temperature_c"}
	humidityKeys    = []string{"humidity", "relative_humidity"}
	windSpeedKeys   = []string{"windSpeed", "wind_speed", "windspeed", "wind_m_s"}
)

type indexEntry struct {
	Code string `json:"code"`
	AQI  int    `json:"aqi"`
}

type concentration struct {
	Value *float64 `json:"value"`
	Units string   `json:"units"`
}

// listPollutant is the list-shaped payload variant: entries carry a code and
// a concentration with explicit units, or a bare value with top-level units.
type listPollutant struct {
	Code          string         `json:"code"`
	DisplayName   string         `json:"displayName"`
	FullName      string         `json:"fullName"`
	Value         *float64       `json:"value"`
	Units         string         `json:"units"`
	Concentration *concentration `json:"concentration"`
}

// keyedPollutant is the keyed-shaped fallback variant: values may be a bare
// number or an object with value/concentration/measurement fields.
type keyedPollutant struct {
	Value         *float64       `json:"value"`
	Measurement   *float64       `json:"measurement"`
	Concentration *concentration `json:"concentration"`
}

type rawPayload struct {
	Indexes           []indexEntry    `json:"indexes"`
	Pollutants        json.RawMessage `json:"pollutants"`
	CurrentConditions *struct {
		Index *indexEntry `json:"index"`
	} `json:"currentConditions"`
}

// Normalize converts a provider payload into the canonical representation.
// It never fails: malformed or missing fields degrade to nil readings and a
// zero AQI, and the original payload is retained under Raw.
func Normalize(raw []byte) *Normalized {
	n := &Normalized{
		Pollutants:     make(map[Code]Reading, len(TrackedCodes)),
		PollutantUnits: make(map[Code]string, len(TrackedCodes)),
		Raw:            json.RawMessage(raw),
	}
	for _, code := range TrackedCodes {
		n.Pollutants[code] = Reading{Code: code, Unit: canonicalUnit(code)}
		n.PollutantUnits[code] = canonicalUnit(code)
	}

	var payload rawPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return n
	}

	n.CurrentAQI = extractAQI(payload)

	var top map[string]json.RawMessage
	if err := json.Unmarshal(raw, &top); err == nil {
		n.Temperature = readNumber(top, temperatureKeys)
		n.Humidity = readNumber(top, humidityKeys)
		n.WindSpeed = readNumber(top, windSpeedKeys)
	}

	extractPollutants(n, payload.Pollutants)

	return n
}

// extractAQI prefers the universal AQI index, then the first index entry,
// then a nested current-conditions index, then zero.
func extractAQI(payload rawPayload) int {
	for _, idx := range payload.Indexes {
		if strings.EqualFold(idx.Code, universalAQICode) {
			return idx.AQI
		}
	}
	if len(payload.Indexes) > 0 {
		return payload.Indexes[0].AQI
	}
	if payload.CurrentConditions != nil && payload.CurrentConditions.Index != nil {
		return payload.CurrentConditions.Index.AQI
	}
	return 0
}

func extractPollutants(n *Normalized, raw json.RawMessage) {
	if len(raw) == 0 {
		return
	}

	var list []listPollutant
	if err := json.Unmarshal(raw, &list); err == nil {
		extractFromList(n, list)
		return
	}

	var keyed map[string]json.RawMessage
	if err := json.Unmarshal(raw, &keyed); err == nil {
		extractFromKeyed(n, keyed)
	}
}

// extractFromList handles the rigorous path: each entry declares its units
// and is converted to the canonical unit system.
func extractFromList(n *Normalized, list []listPollutant) {
	for _, p := range list {
		code := Code(strings.ToLower(p.Code))
		if _, tracked := n.Pollutants[code]; !tracked {
			continue
		}

		value := p.Value
		units := p.Units
		if p.Concentration != nil {
			if p.Concentration.Value != nil {
				value = p.Concentration.Value
			}
			if p.Concentration.Units != "" {
				units = p.Concentration.Units
			}
		}

		ugm3 := toMicrogramsPerM3(value, units, code)

		reading := Reading{Code: code, Unit: canonicalUnit(code)}
		if ugm3 != nil {
			v := *ugm3
			if code == CodeCO {
				v /= 1000
			}
			v = round2(v)
			reading.Value = &v
		}
		n.Pollutants[code] = reading
	}
}

// extractFromKeyed handles the degraded path: codes are matched against map
// keys case-insensitively (or by substring) and values are assumed to be in
// the target units already.
func extractFromKeyed(n *Normalized, keyed map[string]json.RawMessage) {
	for _, code := range TrackedCodes {
		raw, ok := lookupKey(keyed, string(code))
		if !ok {
			continue
		}

		var value *float64
		var num float64
		if err := json.Unmarshal(raw, &num); err == nil {
			value = &num
		} else {
			var obj keyedPollutant
			if err := json.Unmarshal(raw, &obj); err != nil {
				continue
			}
			switch {
			case obj.Concentration != nil && obj.Concentration.Value != nil:
				value = obj.Concentration.Value
			case obj.Value != nil:
				value = obj.Value
			case obj.Measurement != nil:
				value = obj.Measurement
			}
		}

		if value != nil {
			n.Pollutants[code] = Reading{Code: code, Value: value, Unit: canonicalUnit(code)}
		}
	}
}

func lookupKey(keyed map[string]json.RawMessage, code string) (json.RawMessage, bool) {
	for key, raw := range keyed {
		if strings.EqualFold(key, code) {
			return raw, true
		}
	}
	for key, raw := range keyed {
		if strings.Contains(strings.ToLower(key), code) {
			return raw, true
		}
	}
	return nil, false
}

// toMicrogramsPerM3 converts a raw value to µg/m³ based on its units string.
// Unknown or missing units are treated as already µg/m³. A nil result means
// the value is not convertible (particulate ppb/ppm) or absent.
func toMicrogramsPerM3(value *float64, units string, code Code) *float64 {
	if value == nil {
		return nil
	}

	u := strings.ToUpper(units)
	switch {
	case strings.Contains(u, "MICROGRAM"):
		return value
	case strings.Contains(u, "PARTS_PER_BILLION"), strings.Contains(u, "PPB"):
		return ppbToUgM3(*value, code)
	case strings.Contains(u, "PARTS_PER_MILLION"), strings.Contains(u, "PPM"):
		return ppbToUgM3(*value*1000, code)
	default:
		return value
	}
}

func ppbToUgM3(ppb float64, code Code) *float64 {
	mw, ok := molarMass[code]
	if !ok {
		return nil
	}
	v := ppb * mw / molarVolume
	return &v
}

func canonicalUnit(code Code) string {
	if code == CodeCO {
		return UnitMilligramsPerM3
	}
	return UnitMicrogramsPerM3
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// readNumber returns the first candidate key whose value is a JSON number.
func readNumber(obj map[string]json.RawMessage, keys []string) *float64 {
	for _, key := range keys {
		raw, ok := obj[key]
		if !ok {
			continue
		}
		var v float64
		if err := json.Unmarshal(raw, &v); err == nil {
			return &v
		}
	}
	return nil
}
