// Package buoy implements the §4.G Buoy Processor: parse-clean-trend-
// anomaly-quality-flag pipeline shared by the fusion engine's per-source
// stage and the buoy analyst specialist (§4.K), which re-runs the same
// routines over specialist-scoped input without mutating upstream data.
package buoy

import (
	"math"
	"sort"

	"github.com/stonezone/surfcast-fusion/internal/domain"
)

// TrendCategory classifies the slope of a buoy's recent height or period
// readings.
type TrendCategory string

const (
	TrendSteady              TrendCategory = "steady"
	TrendIncreasingStrong     TrendCategory = "increasing_strong"
	TrendIncreasingModerate   TrendCategory = "increasing_moderate"
	TrendIncreasingSlight     TrendCategory = "increasing_slight"
	TrendDecreasingStrong     TrendCategory = "decreasing_strong"
	TrendDecreasingModerate   TrendCategory = "decreasing_moderate"
	TrendDecreasingSlight     TrendCategory = "decreasing_slight"
)

// Trend is the result of CalculateTrend for one buoy/field pair.
type Trend struct {
	StationID string
	Slope     float64
	Category  TrendCategory
}

// CalculateTrend computes slope = (newest-oldest)/(n-1) over the n most
// recent non-nil values of field, where observations is newest-first (the
// BuoyData invariant). Returns ok=false when fewer than 2 values are
// available.
func CalculateTrend(observations []domain.Observation, n int, field func(domain.Observation) *float64) (slope float64, category TrendCategory, ok bool) {
	vals := recentValues(observations, n, field)
	if len(vals) < 2 {
		return 0, TrendSteady, false
	}

	// vals[0] is the most recent (observations are newest-first), so the
	// slope runs from the last element (oldest) to the first (newest).
	oldest := vals[len(vals)-1]
	newest := vals[0]
	slope = (newest - oldest) / float64(len(vals)-1)
	return slope, categorize(slope), true
}

func categorize(slope float64) TrendCategory {
	abs := math.Abs(slope)
	switch {
	case abs < 0.01:
		return TrendSteady
	case slope > 0.1:
		return TrendIncreasingStrong
	case slope > 0.05:
		return TrendIncreasingModerate
	case slope > 0:
		return TrendIncreasingSlight
	case slope < -0.1:
		return TrendDecreasingStrong
	case slope < -0.05:
		return TrendDecreasingModerate
	default:
		return TrendDecreasingSlight
	}
}

func recentValues(observations []domain.Observation, n int, field func(domain.Observation) *float64) []float64 {
	vals := make([]float64, 0, n)
	for _, obs := range observations {
		if len(vals) >= n {
			break
		}
		if v := field(obs); v != nil {
			vals = append(vals, *v)
		}
	}
	return vals
}

// AnomalySeverity classifies a Z-score anomaly's strength.
type AnomalySeverity string

const (
	AnomalyNone     AnomalySeverity = "none"
	AnomalyModerate AnomalySeverity = "moderate" // Z > 2
	AnomalyHigh     AnomalySeverity = "high"     // Z > 3
)

// Anomaly is the per-buoy Z-score outcome for one field.
type Anomaly struct {
	StationID string
	Value     float64
	ZScore    float64
	Severity  AnomalySeverity
}

// DetectAnomalies pools latestValue across all buoys (keyed by station id),
// computes the population mean/stddev, and Z-scores each buoy's value
// against the pool. Requires >= 3 stations; otherwise returns nil
// (insufficient sample for a meaningful Z-score).
func DetectAnomalies(latestValue map[string]float64) []Anomaly {
	if len(latestValue) < 3 {
		return nil
	}

	mean, stddev := meanStddev(latestValue)
	if stddev == 0 {
		return nil
	}

	out := make([]Anomaly, 0, len(latestValue))
	for station, v := range latestValue {
		z := math.Abs(v-mean) / stddev
		severity := AnomalyNone
		switch {
		case z > 3:
			severity = AnomalyHigh
		case z > 2:
			severity = AnomalyModerate
		}
		out = append(out, Anomaly{StationID: station, Value: v, ZScore: z, Severity: severity})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].StationID < out[j].StationID })
	return out
}

func meanStddev(values map[string]float64) (mean, stddev float64) {
	n := float64(len(values))
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	mean = sum / n

	variance := 0.0
	for _, v := range values {
		d := v - mean
		variance += d * d
	}
	variance /= n
	stddev = math.Sqrt(variance)
	return mean, stddev
}

// QualityInput bundles the facts needed to assign a buoy's quality flag.
type QualityInput struct {
	HeightAnomaly   AnomalySeverity
	PeriodAnomaly   AnomalySeverity
	HeightTrend     TrendCategory
	ObservationCount int
	LatestHeight    *float64 // meters
	LatestPeriod    *float64 // seconds
	LatestDirection *float64 // degrees
	AgeHours        float64
}

// AssignQualityFlag applies the §4.G decision table. The rules are checked
// in the spec's stated precedence: excluded conditions first, then
// suspect, else valid.
func AssignQualityFlag(in QualityInput) domain.Quality {
	highAnomaly := in.HeightAnomaly == AnomalyHigh || in.PeriodAnomaly == AnomalyHigh
	moderateAnomaly := in.HeightAnomaly == AnomalyModerate || in.PeriodAnomaly == AnomalyModerate
	stronglyDeclining := in.HeightTrend == TrendDecreasingStrong

	singleScanLarge := in.ObservationCount <= 2 && in.LatestHeight != nil && *in.LatestHeight > 2.5
	unphysical := in.LatestHeight != nil && *in.LatestHeight > 10.0

	if highAnomaly || (moderateAnomaly && stronglyDeclining) || singleScanLarge || unphysical || in.AgeHours > 24 {
		return domain.QualityExcluded
	}

	inconsistentPair := in.LatestHeight != nil && in.LatestPeriod != nil && periodHeightInconsistent(*in.LatestHeight, *in.LatestPeriod, in.LatestDirection)

	shortPeriodLarge := in.LatestHeight != nil && in.LatestPeriod != nil && *in.LatestHeight > 2.0 && *in.LatestPeriod < 10.0

	southSwellChoppy := in.LatestDirection != nil && in.LatestHeight != nil && in.LatestPeriod != nil &&
		*in.LatestDirection >= 135 && *in.LatestDirection <= 225 &&
		*in.LatestHeight > 2.0 && *in.LatestPeriod < 13.0

	if (moderateAnomaly && !stronglyDeclining) || in.AgeHours > 6 || shortPeriodLarge || southSwellChoppy || inconsistentPair {
		return domain.QualitySuspect
	}

	return domain.QualityValid
}

// periodHeightInconsistent flags physically implausible height/period
// combinations beyond the explicit south-swell and short-period rules:
// very large height with a very short period, outside any swell window.
func periodHeightInconsistent(height, period float64, direction *float64) bool {
	if direction != nil && *direction >= 135 && *direction <= 225 {
		return false // handled by the south-swell rule
	}
	return height > 3.0 && period < 8.0
}

// Agreement is the §4.G cross-buoy agreement result for one quantity.
type Agreement struct {
	Value          float64
	Interpretation string
}

// calculateAgreement returns 1 - min(1, cv) for a coefficient of variation
// cv = stddev/mean.
func calculateAgreement(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	mean := sum / float64(len(values))
	if mean == 0 {
		return 0
	}
	variance := 0.0
	for _, v := range values {
		d := v - mean
		variance += d * d
	}
	variance /= float64(len(values))
	cv := math.Sqrt(variance) / mean
	if cv > 1 {
		cv = 1
	}
	return 1 - cv
}

// CrossValidation is the combined cross-buoy agreement outcome.
type CrossValidation struct {
	HeightAgreement  float64
	PeriodAgreement  float64
	Overall          float64
	Interpretation   string
}

// CalculateCrossValidation combines per-quantity agreement into the overall
// 0.6*height + 0.4*period score and its qualitative interpretation.
func CalculateCrossValidation(heights, periods []float64) CrossValidation {
	heightAgreement := calculateAgreement(heights)
	periodAgreement := calculateAgreement(periods)
	overall := 0.6*heightAgreement + 0.4*periodAgreement

	return CrossValidation{
		HeightAgreement: heightAgreement,
		PeriodAgreement: periodAgreement,
		Overall:         overall,
		Interpretation:  interpretAgreement(overall),
	}
}

func interpretAgreement(overall float64) string {
	switch {
	case overall >= 0.9:
		return "excellent"
	case overall >= 0.75:
		return "good"
	case overall >= 0.6:
		return "moderate"
	case overall >= 0.4:
		return "poor"
	default:
		return "very-poor"
	}
}

// CleanObservations drops observations missing both height and period
// (nothing swell-relevant survives), per §4.G's clean stage. Individual
// out-of-bounds fields are already nulled by ParseNDBCRow/SafeFloatField
// upstream.
func CleanObservations(observations []domain.Observation) []domain.Observation {
	out := make([]domain.Observation, 0, len(observations))
	for _, obs := range observations {
		if obs.WaveHeight == nil && obs.DominantPeriod == nil {
			continue
		}
		out = append(out, obs)
	}
	return out
}

// SpecialTag names an informational condition tag surfaced in buoy
// metadata, supplementing the original's special-condition tagging
// (large_swell/long_period_swell/storm_conditions).
type SpecialTag string

const (
	TagLargeSwell      SpecialTag = "large_swell"
	TagLongPeriodSwell SpecialTag = "long_period_swell"
	TagStormConditions SpecialTag = "storm_conditions"
)

// SpecialConditions returns the tags that apply to the latest observation.
func SpecialConditions(latest domain.Observation) []SpecialTag {
	var tags []SpecialTag
	if latest.WaveHeight != nil && *latest.WaveHeight > 4.0 {
		tags = append(tags, TagLargeSwell)
	}
	if latest.DominantPeriod != nil && *latest.DominantPeriod > 16.0 {
		tags = append(tags, TagLongPeriodSwell)
	}
	if latest.WindSpeed != nil && *latest.WindSpeed > 15.0 && latest.WaveHeight != nil && *latest.WaveHeight > 3.0 {
		tags = append(tags, TagStormConditions)
	}
	return tags
}

// DetectGaps returns the hour-gaps between consecutive observations
// (newest-first) that exceed 3 hours, supplementing the original's
// data-gap detection as buoy metadata distinct from the quality-flag rules.
func DetectGaps(observations []domain.Observation) []float64 {
	var gaps []float64
	for i := 0; i+1 < len(observations); i++ {
		gap := observations[i].Timestamp.Sub(observations[i+1].Timestamp).Hours()
		if gap > 3.0 {
			gaps = append(gaps, gap)
		}
	}
	return gaps
}

// HawaiiScale converts a meters height to the doubled Hawaiian-scale feet
// convention used by the original buoy processor's display helper; the
// factor (2 × 3.28084 = 6.56168 per meter) is the same one
// domain.ToHawaiianFeet uses.
func HawaiiScale(meters float64) float64 {
	return meters * 2 * 3.28084
}
