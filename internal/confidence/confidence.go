// Package confidence implements the §4.I Confidence Scorer: a five-factor
// weighted score (consensus, reliability, completeness, horizon, accuracy)
// with a three-tier category and enumerated warnings.
package confidence

import (
	"fmt"
	"math"
	"sort"

	"github.com/stonezone/surfcast-fusion/internal/domain"
)

// Weights are the default factor weights, summing to 1.0.
var Weights = map[string]float64{
	"consensus":    0.30,
	"reliability":  0.25,
	"completeness": 0.20,
	"horizon":      0.15,
	"accuracy":     0.10,
}

// ExpectedSourceClasses is the fixed set of source classes completeness is
// measured against.
var ExpectedSourceClasses = []string{"buoys", "models", "charts", "satellite"}

// Input bundles everything the scorer needs to compute one ConfidenceReport.
type Input struct {
	ModelEventHeights    []float64 // meters, one per source=model SwellEvent
	SourceScores         []domain.SourceScore
	PresentSourceClasses map[string]bool // subset of ExpectedSourceClasses present in this forecast
	DaysAhead            int
	RecentMAEFt          *float64 // from validation metadata; nil => default accuracy
}

// Score computes the full ConfidenceReport for Input.
func Score(in Input) domain.ConfidenceReport {
	consensus := consensusScore(in.ModelEventHeights)
	reliability := reliabilityScore(in.SourceScores)
	completeness := completenessScore(in.PresentSourceClasses)
	horizon := horizonScore(in.DaysAhead)
	accuracy := accuracyScore(in.RecentMAEFt)

	overall := Weights["consensus"]*consensus +
		Weights["reliability"]*reliability +
		Weights["completeness"]*completeness +
		Weights["horizon"]*horizon +
		Weights["accuracy"]*accuracy

	report := domain.ConfidenceReport{
		OverallScore: overall,
		Category:     categorize(overall),
		Factors: map[string]float64{
			"consensus":    consensus,
			"reliability":  reliability,
			"completeness": completeness,
			"horizon":      horizon,
			"accuracy":     accuracy,
		},
		Breakdown: buildBreakdown(in, consensus, reliability, completeness, horizon, accuracy),
		Warnings:  buildWarnings(completeness, consensus, in.PresentSourceClasses),
	}
	return report
}

func consensusScore(modelHeights []float64) float64 {
	if len(modelHeights) == 0 {
		return 0.5
	}
	if len(modelHeights) < 2 {
		return 0.7
	}
	mean, stddev := meanStddev(modelHeights)
	if mean == 0 {
		return 0.5
	}
	cv := stddev / mean
	return 1.0 / (1.0 + cv)
}

func meanStddev(values []float64) (mean, stddev float64) {
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	mean = sum / float64(len(values))

	variance := 0.0
	for _, v := range values {
		d := v - mean
		variance += d * d
	}
	variance /= float64(len(values))
	return mean, math.Sqrt(variance)
}

func reliabilityScore(scores []domain.SourceScore) float64 {
	if len(scores) == 0 {
		return 0.5
	}
	sum := 0.0
	for _, s := range scores {
		sum += s.Overall
	}
	return sum / float64(len(scores))
}

func completenessScore(present map[string]bool) float64 {
	count := 0
	for _, class := range ExpectedSourceClasses {
		if present[class] {
			count++
		}
	}
	return float64(count) / float64(len(ExpectedSourceClasses))
}

func horizonScore(daysAhead int) float64 {
	v := 1.0 - 0.1*float64(daysAhead)
	if v < 0.5 {
		return 0.5
	}
	return v
}

func accuracyScore(recentMAEFt *float64) float64 {
	if recentMAEFt == nil {
		return 0.7
	}
	v := 1.0 - *recentMAEFt/5.0
	if v < 0 {
		return 0
	}
	return v
}

func categorize(overall float64) domain.ConfidenceCategory {
	switch {
	case overall >= 0.7:
		return domain.ConfidenceHigh
	case overall >= 0.4:
		return domain.ConfidenceMedium
	default:
		return domain.ConfidenceLow
	}
}

func buildWarnings(completeness, consensus float64, present map[string]bool) []string {
	var warnings []string
	if completeness < 0.5 {
		warnings = append(warnings, "limited data")
	}
	if consensus < 0.5 {
		warnings = append(warnings, "model disagreement")
	}
	var missing []string
	for _, class := range ExpectedSourceClasses {
		if !present[class] {
			missing = append(missing, class)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		warnings = append(warnings, fmt.Sprintf("missing feeds: %s", joinComma(missing)))
	}
	return warnings
}

func joinComma(parts []string) string {
	out := ""
	for i, p := range parts {
		if i > 0 {
			out += ", "
		}
		out += p
	}
	return out
}

// buildBreakdown supplements the raw factor map with human-readable
// descriptions, per-source-class score counts and the per-source scores, carried from the
// original's _build_breakdown/format_confidence_for_display (see
// SPEC_FULL.md Supplemented Features) — spec.md only requires the raw
// factor map, but this is a low-risk, directly useful addition for the
// preparer's confidence digest.
func buildBreakdown(in Input, consensus, reliability, completeness, horizon, accuracy float64) map[string]any {
	sourceCounts := map[string]int{}
	for _, class := range ExpectedSourceClasses {
		if in.PresentSourceClasses[class] {
			sourceCounts[class] = 1
		}
	}

	return map[string]any{
		"consensus_description":    describeConsensus(consensus),
		"reliability_description":  fmt.Sprintf("mean source reliability %.2f across %d sources", reliability, len(in.SourceScores)),
		"completeness_description": fmt.Sprintf("%d of %d expected feed classes present", len(sourceCounts), len(ExpectedSourceClasses)),
		"horizon_description":      fmt.Sprintf("%.0f-day-ahead forecast horizon", float64(in.DaysAhead)),
		"accuracy_description":     describeAccuracy(in.RecentMAEFt, accuracy),
		"source_counts":            sourceCounts,
		"source_scores":            in.SourceScores,
	}
}

func describeConsensus(consensus float64) string {
	switch {
	case consensus >= 0.8:
		return "models strongly agree"
	case consensus >= 0.5:
		return "models show moderate agreement"
	default:
		return "models disagree significantly"
	}
}

func describeAccuracy(recentMAEFt *float64, accuracy float64) string {
	if recentMAEFt == nil {
		return "no recent validation history, default accuracy assumed"
	}
	return fmt.Sprintf("recent mean absolute error %.2fft (accuracy %.2f)", *recentMAEFt, accuracy)
}
