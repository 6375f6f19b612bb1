package domain

import (
	"fmt"
	"sort"
	"time"
)

// Quality is the tri-state reliability flag carried by every swell-bearing
// record. Excluded records are dropped before forecast synthesis; suspect
// records pass through with caveats.
type Quality string

const (
	QualityValid    Quality = "valid"
	QualitySuspect  Quality = "suspect"
	QualityExcluded Quality = "excluded"
)

// ToHawaiianFeet converts a meters significant-height value to the
// Hawaiian-scale face-height convention used in local surf reports.
func ToHawaiianFeet(meters float64) float64 {
	return meters * 6.56168
}

// Significance implements the §4.H significance formula: sig =
// min(1,H/5)*min(1.5,T/10), clipped to [0,1]. Shared by the fusion engine
// (buoy/spectral events) and the wave-model processor (auto-detected
// events), so both sides of §4.H step 3 score events identically.
func Significance(heightM, periodS float64) float64 {
	a := heightM / 5.0
	if a > 1 {
		a = 1
	}
	b := periodS / 10.0
	if b > 1.5 {
		b = 1.5
	}
	sig := a * b
	if sig > 1 {
		sig = 1
	}
	if sig < 0 {
		sig = 0
	}
	return sig
}

// Observation is a single buoy reading. Every numeric field is either nil
// (failed bounds or absent in the source) or within the §4.A bounds table.
// Immutable once constructed.
type Observation struct {
	Timestamp         time.Time
	WaveHeight        *float64 // meters
	DominantPeriod    *float64 // seconds
	AveragePeriod     *float64 // seconds
	WaveDirection     *float64 // degrees
	WindSpeed         *float64 // m/s
	WindDirection     *float64 // degrees
	AirTemperature    *float64 // celsius
	WaterTemperature  *float64 // celsius
	Pressure          *float64 // hPa
}

// BuoyData holds the ordered observation history for one NDBC station.
// Observations must be sorted newest first.
type BuoyData struct {
	StationID    string
	Name         string
	Lat          float64
	Lon          float64
	Observations []Observation
	SpectrumFile string
	Metadata     map[string]any
}

// SortObservationsDescending orders b.Observations newest first, satisfying
// the BuoyData invariant.
func (b *BuoyData) SortObservationsDescending() {
	sort.SliceStable(b.Observations, func(i, j int) bool {
		return b.Observations[i].Timestamp.After(b.Observations[j].Timestamp)
	})
}

// Latest returns the newest observation, or false if there are none.
func (b *BuoyData) Latest() (Observation, bool) {
	if len(b.Observations) == 0 {
		return Observation{}, false
	}
	return b.Observations[0], true
}

// WeatherPeriod is one NWS gridpoint forecast period, units normalized at
// ingest (temperature in °C, wind speed in m/s).
type WeatherPeriod struct {
	Timestamp        time.Time
	TemperatureC     *float64
	WindSpeedMS      *float64
	WindDirection    *float64
	ShortForecast    string
	DetailedForecast string
}

// WaveModelPoint is one grid point of a wave-model run.
type WaveModelPoint struct {
	Lat       float64
	Lon       float64
	Height    *float64 // meters
	Period    *float64 // seconds
	Direction *float64 // degrees
	WindSpeed *float64 // m/s, optional
}

// ModelForecast is one forecast-hour slice of a model run.
type ModelForecast struct {
	Timestamp     time.Time
	ForecastHour  int
	Points        []WaveModelPoint
	Events        []SwellEvent // pre-extracted events, when the payload carries them
}

// ModelData is a complete wave-model run (WW3 or SWAN), forecasts ordered by
// forecast-hour ascending.
type ModelData struct {
	ModelID   string
	RunTime   time.Time
	Region    string
	Forecasts []ModelForecast
	Metadata  map[string]any // forecast_range_hours, height_trend, shore_impacts — set by wavemodel.Process
}

// SortForecastsAscending orders m.Forecasts by forecast-hour ascending,
// satisfying the ModelData invariant.
func (m *ModelData) SortForecastsAscending() {
	sort.SliceStable(m.Forecasts, func(i, j int) bool {
		return m.Forecasts[i].ForecastHour < m.Forecasts[j].ForecastHour
	})
}

// SwellComponent is one spectral peak or single-component reading attached
// to a SwellEvent. Immutable.
type SwellComponent struct {
	Height     float64 // meters
	Period     float64 // seconds
	Direction  float64 // degrees
	Confidence float64 // 0..1
	Source     string
	Quality    Quality
}

// SwellEvent is a fused, shore-impact-mapped swell with a primary component
// set and optional secondary components. start <= peak <= end when peak/end
// are set; a valid event always has at least one non-excluded component.
type SwellEvent struct {
	ID                string
	Start             time.Time
	Peak              *time.Time
	End               *time.Time
	PrimaryDirection  float64 // degrees
	Significance      float64 // 0..1
	HawaiianFeet       float64
	SourceLabel       string
	Quality           Quality
	PrimaryComponents []SwellComponent
	SecondaryComponents []SwellComponent
	Metadata          map[string]any
}

// PrimaryDirectionCardinal derives the 16-point compass label for the
// event's primary direction.
func (e SwellEvent) PrimaryDirectionCardinal() string {
	return DegreesToCompass(e.PrimaryDirection)
}

// Valid reports whether the event satisfies the invariant required of a
// quality_flag=valid event: at least one component, none of them excluded.
func (e SwellEvent) Valid() bool {
	if e.Quality != QualityValid {
		return true // invariant only binds when Quality==valid
	}
	if len(e.PrimaryComponents) == 0 {
		return false
	}
	for _, c := range e.PrimaryComponents {
		if c.Quality == QualityExcluded {
			return false
		}
	}
	return true
}

// ForecastLocation is one of the four named Hawaii shores, carrying the
// subset of SwellEvents (by index into SwellForecast.Events, the
// arena-and-index pattern that breaks the Event<->Location cycle) that
// affect it.
type ForecastLocation struct {
	Name           string
	ShoreLabel     string
	Lat            float64
	Lon            float64
	Facing         float64 // degrees
	EventIndices   []int   // indices into the owning SwellForecast.Events
	Metadata       map[string]any // popular_breaks, seasonal_factor, wind_factor, overall_quality
}

// SwellForecast is the top-level fusion output: events live here (the
// arena); locations reference them by index.
type SwellForecast struct {
	ForecastID string
	Generated  time.Time
	Events     []SwellEvent
	Locations  []ForecastLocation
	Metadata   map[string]any
}

// SortEventsBySignificance orders f.Events by significance descending, then
// start time ascending, per the SwellForecast invariant.
func (f *SwellForecast) SortEventsBySignificance() {
	sort.SliceStable(f.Events, func(i, j int) bool {
		if f.Events[i].Significance != f.Events[j].Significance {
			return f.Events[i].Significance > f.Events[j].Significance
		}
		return f.Events[i].Start.Before(f.Events[j].Start)
	})
}

// EventsForLocation resolves a ForecastLocation's EventIndices against the
// forecast's event arena.
func (f *SwellForecast) EventsForLocation(loc ForecastLocation) []SwellEvent {
	out := make([]SwellEvent, 0, len(loc.EventIndices))
	for _, idx := range loc.EventIndices {
		if idx >= 0 && idx < len(f.Events) {
			out = append(out, f.Events[idx])
		}
	}
	return out
}

// ConfidenceCategory is the three-tier bucket a ConfidenceReport's overall
// score is classified into.
type ConfidenceCategory string

const (
	ConfidenceHigh   ConfidenceCategory = "high"
	ConfidenceMedium ConfidenceCategory = "medium"
	ConfidenceLow    ConfidenceCategory = "low"
)

// ConfidenceReport is the output of the five-factor confidence scorer.
type ConfidenceReport struct {
	OverallScore float64
	Category     ConfidenceCategory
	Factors      map[string]float64    // 5 keys: consensus, reliability, completeness, horizon, accuracy
	Breakdown    map[string]any        // per-source scores + human-readable descriptions
	Warnings     []string
}

// SourceScore is the §4.D Source Scorer output for one source.
type SourceScore struct {
	Overall      float64
	Tier         int
	TierScore    float64
	Freshness    float64
	Completeness float64
	Accuracy     float64
}

// SpecialistKind closes the sum of specialist stages, replacing the
// original's dynamic per-specialist schema dispatch.
type SpecialistKind string

const (
	SpecialistBuoy     SpecialistKind = "buoy"
	SpecialistPressure SpecialistKind = "pressure"
	SpecialistSenior   SpecialistKind = "senior"
)

// SpecialistOutput is the common envelope every specialist stage returns.
// Data carries the specialist-specific structured payload (see the
// specialist/* packages).
type SpecialistOutput struct {
	Kind       SpecialistKind
	Confidence float64
	Data       any
	Narrative  string
	Metadata   map[string]any // "timestamp" key always present
}

// NewSpecialistMetadata returns a metadata map stamped with the current
// clock time, satisfying the "timestamp always present" invariant.
func NewSpecialistMetadata() map[string]any {
	return map[string]any{"timestamp": clock.Now()}
}

// String implements fmt.Stringer for debugging/log output.
func (o SpecialistOutput) String() string {
	return fmt.Sprintf("SpecialistOutput{kind=%s confidence=%.3f}", o.Kind, o.Confidence)
}
