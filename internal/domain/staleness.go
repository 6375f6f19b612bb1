package domain

import (
	"log/slog"
	"time"
)

// StaleAge classifies how far observed is behind the current clock.
type StaleAge int

const (
	StaleNone StaleAge = iota
	StaleInfo          // > 6h
	StaleWarn          // > 24h
)

// ClassifyStaleness compares the observation timestamp against the current
// clock and reports which threshold it crosses, logging at the
// corresponding level. Callers apply the quality-override implications
// themselves (§4.G: >24h overrides to suspect/excluded as context dictates).
func ClassifyStaleness(logger *slog.Logger, observed time.Time, source string) StaleAge {
	age := clock.Now().Sub(observed)
	switch {
	case age > 24*time.Hour:
		if logger != nil {
			logger.Warn("stale data", "source", source, "age_hours", age.Hours())
		}
		return StaleWarn
	case age > 6*time.Hour:
		if logger != nil {
			logger.Info("stale data", "source", source, "age_hours", age.Hours())
		}
		return StaleInfo
	default:
		return StaleNone
	}
}

// AgeHours returns the age of observed relative to the current clock, in
// hours.
func AgeHours(observed time.Time) float64 {
	return clock.Now().Sub(observed).Hours()
}
