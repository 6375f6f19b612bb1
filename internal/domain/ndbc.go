package domain

import (
	"fmt"
	"log/slog"
	"time"
)

// ndbcFieldMap is the canonical NDBC fixed-field key mapping (§4.B).
var ndbcFieldMap = map[string]string{
	"WVHT": "wave_height",
	"DPD":  "dominant_period",
	"APD":  "average_period",
	"MWD":  "wave_direction",
	"WSPD": "wind_speed",
	"WDIR": "wind_direction",
	"ATMP": "air_temperature",
	"WTMP": "water_temperature",
	"PRES": "pressure",
}

// ParseNDBCRow converts one raw NDBC key/value row into an Observation. raw
// values may be strings, numbers, or nil; every field is passed through
// SafeFloatField so out-of-range or unparseable values become null with a
// logged rejection rather than failing the whole row.
func ParseNDBCRow(logger *slog.Logger, row map[string]any, timestamp time.Time) Observation {
	get := func(ndbcKey string) *float64 {
		field := ndbcFieldMap[ndbcKey]
		raw, ok := row[ndbcKey]
		if !ok {
			return nil
		}
		v, _ := SafeFloatField(logger, raw, field)
		return v
	}

	return Observation{
		Timestamp:        timestamp,
		WaveHeight:       get("WVHT"),
		DominantPeriod:   get("DPD"),
		AveragePeriod:    get("APD"),
		WaveDirection:    get("MWD"),
		WindSpeed:        get("WSPD"),
		WindDirection:    get("WDIR"),
		AirTemperature:   get("ATMP"),
		WaterTemperature: get("WTMP"),
		Pressure:         get("PRES"),
	}
}

// BuoyInput is the explicit tagged variant replacing the original's
// duck-typed dictionary-or-record acceptance (see SPEC_FULL.md / Design
// Notes §9). Exactly one of Raw or Parsed is set.
type BuoyInput struct {
	Raw    map[string]any // NDBC fixed-field row keyed by station, observations, etc.
	Parsed *BuoyData
}

// NewRawBuoyInput wraps an unvalidated raw payload.
func NewRawBuoyInput(raw map[string]any) BuoyInput {
	return BuoyInput{Raw: raw}
}

// NewParsedBuoyInput wraps an already-normalized BuoyData.
func NewParsedBuoyInput(data BuoyData) BuoyInput {
	return BuoyInput{Parsed: &data}
}

// Normalize is the single gate through which every BuoyInput passes to
// become a BuoyData. Raw payloads are expected to carry "station_id",
// "name", "lat", "lon", and an "observations" slice of NDBC rows each
// tagged with a "timestamp" key (RFC3339).
func Normalize(logger *slog.Logger, in BuoyInput) (BuoyData, error) {
	if in.Parsed != nil {
		out := *in.Parsed
		out.SortObservationsDescending()
		return out, nil
	}
	if in.Raw == nil {
		return BuoyData{}, fmt.Errorf("domain: %w: buoy input has neither raw nor parsed payload", ErrInputValidation)
	}

	station, _ := in.Raw["station_id"].(string)
	if station == "" {
		return BuoyData{}, fmt.Errorf("domain: %w: buoy raw input missing station_id", ErrInputValidation)
	}
	name, _ := in.Raw["name"].(string)
	lat, _ := toFloat(in.Raw["lat"])
	lon, _ := toFloat(in.Raw["lon"])
	spectrumFile, _ := in.Raw["spectrum_file"].(string)

	rawObs, _ := in.Raw["observations"].([]map[string]any)
	observations := make([]Observation, 0, len(rawObs))
	for _, row := range rawObs {
		ts := parseTimestamp(row["timestamp"])
		observations = append(observations, ParseNDBCRow(logger, row, ts))
	}

	data := BuoyData{
		StationID:    station,
		Name:         name,
		Lat:          lat,
		Lon:          lon,
		Observations: observations,
		SpectrumFile: spectrumFile,
		Metadata:     map[string]any{},
	}
	data.SortObservationsDescending()
	return data, nil
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}

func parseTimestamp(v any) time.Time {
	s, ok := v.(string)
	if !ok {
		return clock.Now()
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return clock.Now()
	}
	return t
}
