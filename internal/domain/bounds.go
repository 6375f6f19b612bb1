package domain

import (
	"log/slog"
	"strconv"
	"strings"
)

// rejectionHook, when set, is called once per bounds rejection for metrics
// instrumentation, mirroring the package-level clock swap in clock.go so
// the validator stays free of a hard observability dependency.
var rejectionHook func(field string)

// SetRejectionHook installs a callback invoked on every bounds rejection.
// Pass nil to disable.
func SetRejectionHook(h func(field string)) { rejectionHook = h }

func notifyRejected(field string) {
	if rejectionHook != nil {
		rejectionHook(field)
	}
}

// Bound describes the inclusive valid range for one measured field.
type Bound struct {
	Min float64
	Max float64
}

// Bounds is the canonical table of physically plausible ranges for every
// measured field the ingest path handles. Values outside range are noise:
// sensor glitches, transcription errors, or unit mismatches upstream.
var Bounds = map[string]Bound{
	"wave_height":        {Min: 0.0, Max: 30.0},
	"dominant_period":    {Min: 4.0, Max: 30.0},
	"average_period":     {Min: 2.0, Max: 25.0},
	"wind_speed":         {Min: 0.0, Max: 150.0},
	"pressure":           {Min: 900.0, Max: 1100.0},
	"water_temperature":  {Min: -2.0, Max: 35.0},
	"air_temperature":    {Min: -40.0, Max: 50.0},
	"direction":          {Min: 0.0, Max: 360.0},
}

// SafeFloat coerces raw to a float64 and checks it against [min,max]. It
// returns (nil, false) for empty input with no warning logged — absence is
// not an error. Out-of-range or unparseable non-empty input returns
// (nil, true) and logs a WARN with the field name and raw value. A period
// below 4s is a phantom swell: always rejected regardless of the bounds
// passed in, since no caller should ever widen that floor.
func SafeFloat(logger *slog.Logger, raw any, min, max float64, fieldName string) (*float64, bool) {
	if raw == nil {
		return nil, false
	}

	var val float64
	switch v := raw.(type) {
	case float64:
		val = v
	case float32:
		val = float64(v)
	case int:
		val = float64(v)
	case int64:
		val = float64(v)
	case string:
		trimmed := strings.TrimSpace(v)
		if trimmed == "" {
			return nil, false
		}
		parsed, err := strconv.ParseFloat(trimmed, 64)
		if err != nil {
			if logger != nil {
				logger.Warn("bounds rejection: unparseable value", "field", fieldName, "value", raw)
			}
			notifyRejected(fieldName)
			return nil, true
		}
		val = parsed
	default:
		if logger != nil {
			logger.Warn("bounds rejection: unsupported type", "field", fieldName, "value", raw)
		}
		notifyRejected(fieldName)
		return nil, true
	}

	if fieldName == "dominant_period" && val < 4.0 {
		if logger != nil {
			logger.Warn("bounds rejection: phantom swell period", "field", fieldName, "value", val)
		}
		notifyRejected(fieldName)
		return nil, true
	}

	if val < min || val > max {
		if logger != nil {
			logger.Warn("bounds rejection: out of range", "field", fieldName, "value", val, "min", min, "max", max)
		}
		notifyRejected(fieldName)
		return nil, true
	}

	return &val, false
}

// SafeFloatField looks up fieldName in Bounds and applies SafeFloat with its
// table range. Fields not present in the table use (-1e300, 1e300) —
// effectively unbounded, logged only on parse failure.
func SafeFloatField(logger *slog.Logger, raw any, fieldName string) (*float64, bool) {
	b, ok := Bounds[fieldName]
	if !ok {
		return SafeFloat(logger, raw, -1e300, 1e300, fieldName)
	}
	return SafeFloat(logger, raw, b.Min, b.Max, fieldName)
}
