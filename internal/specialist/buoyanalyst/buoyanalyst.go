// Package buoyanalyst implements the §4.K Buoy Analyst specialist: it
// re-runs the buoy-processor's trend, anomaly, and quality-flag routines
// over a specialist-scoped buoy set (without mutating upstream fusion
// state) and submits the result to an LLM for a technical narrative.
package buoyanalyst

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/stonezone/surfcast-fusion/internal/domain"
	"github.com/stonezone/surfcast-fusion/internal/llm"
	"github.com/stonezone/surfcast-fusion/internal/processing/buoy"
)

const trendWindow = 5

// TrendResult is one buoy's height/period slope classification.
type TrendResult struct {
	StationID      string
	HeightSlope    float64
	HeightCategory buoy.TrendCategory
	PeriodSlope    float64
	PeriodCategory buoy.TrendCategory
}

// AnomalyResult is one buoy's Z-score outcome for height and/or period.
type AnomalyResult struct {
	StationID      string
	HeightSeverity buoy.AnomalySeverity
	HeightZScore   float64
	PeriodSeverity buoy.AnomalySeverity
	PeriodZScore   float64
}

// SummaryStats are the min/max/mean of height and period across every
// observation in the analyzed set.
type SummaryStats struct {
	HeightMin, HeightMax, HeightMean float64
	PeriodMin, PeriodMax, PeriodMean float64
	ObservationCount                 int
}

// Data is the buoy analyst's structured output, per §4.K.
type Data struct {
	Trends          []TrendResult
	Anomalies       []AnomalyResult
	QualityFlags    map[string]domain.Quality
	CrossValidation buoy.CrossValidation
	SummaryStats    SummaryStats
}

// Analyst is the constructor-injected §4.K specialist.
type Analyst struct {
	client    llm.Client
	retryCfg  llm.RetryConfig
	modelName string
}

// New constructs an Analyst bound to an LLM client and model identifier.
func New(client llm.Client, modelName string) *Analyst {
	return &Analyst{client: client, retryCfg: llm.DefaultRetryConfig, modelName: modelName}
}

// WithRetryConfig overrides the LLM retry/backoff policy (e.g. from
// config's llm.max_retries), returning a for chaining.
func (a *Analyst) WithRetryConfig(cfg llm.RetryConfig) *Analyst {
	if cfg.MaxRetries > 0 {
		a.retryCfg = cfg
	}
	return a
}

// Analyze runs the §4.K flow over buoys and returns the SpecialistOutput.
func (a *Analyst) Analyze(ctx context.Context, buoys []domain.BuoyData) (domain.SpecialistOutput, error) {
	cleaned := make([]domain.BuoyData, 0, len(buoys))
	for _, b := range buoys {
		b.Observations = buoy.CleanObservations(b.Observations)
		if len(b.Observations) > 0 {
			cleaned = append(cleaned, b)
		}
	}

	trends := computeTrends(cleaned)
	anomalies := computeAnomalies(cleaned)
	qualityFlags := computeQualityFlags(cleaned, anomalies, trends)
	crossValidation := computeCrossValidation(cleaned)
	stats := computeSummaryStats(cleaned)

	data := Data{
		Trends:          trends,
		Anomalies:       anomalies,
		QualityFlags:    qualityFlags,
		CrossValidation: crossValidation,
		SummaryStats:    stats,
	}

	confidenceScore := confidence(cleaned, buoys, anomalies, crossValidation)

	narrative, _, err := llm.GenerateWithRetry(ctx, a.client, a.retryCfg, systemPrompt(), userPrompt(data), nil)
	if err != nil {
		return domain.SpecialistOutput{}, fmt.Errorf("buoy analyst: %w", err)
	}

	return domain.SpecialistOutput{
		Kind:       domain.SpecialistBuoy,
		Confidence: confidenceScore,
		Data:       data,
		Narrative:  narrative,
		Metadata:   domain.NewSpecialistMetadata(),
	}, nil
}

func computeTrends(buoys []domain.BuoyData) []TrendResult {
	trends := make([]TrendResult, 0, len(buoys))
	for _, b := range buoys {
		heightSlope, heightCat, heightOK := buoy.CalculateTrend(b.Observations, trendWindow, func(o domain.Observation) *float64 { return o.WaveHeight })
		periodSlope, periodCat, periodOK := buoy.CalculateTrend(b.Observations, trendWindow, func(o domain.Observation) *float64 { return o.DominantPeriod })
		if !heightOK && !periodOK {
			continue
		}
		trends = append(trends, TrendResult{
			StationID:      b.StationID,
			HeightSlope:    heightSlope,
			HeightCategory: heightCat,
			PeriodSlope:    periodSlope,
			PeriodCategory: periodCat,
		})
	}
	sort.SliceStable(trends, func(i, j int) bool { return trends[i].StationID < trends[j].StationID })
	return trends
}

func computeAnomalies(buoys []domain.BuoyData) []AnomalyResult {
	heights := map[string]float64{}
	periods := map[string]float64{}
	for _, b := range buoys {
		latest, ok := b.Latest()
		if !ok {
			continue
		}
		if latest.WaveHeight != nil {
			heights[b.StationID] = *latest.WaveHeight
		}
		if latest.DominantPeriod != nil {
			periods[b.StationID] = *latest.DominantPeriod
		}
	}

	heightAnomalies := indexByStation(buoy.DetectAnomalies(heights))
	periodAnomalies := indexByStation(buoy.DetectAnomalies(periods))

	stations := map[string]bool{}
	for s := range heightAnomalies {
		stations[s] = true
	}
	for s := range periodAnomalies {
		stations[s] = true
	}

	out := make([]AnomalyResult, 0, len(stations))
	for s := range stations {
		r := AnomalyResult{StationID: s, HeightSeverity: buoy.AnomalyNone, PeriodSeverity: buoy.AnomalyNone}
		if a, ok := heightAnomalies[s]; ok {
			r.HeightSeverity = a.Severity
			r.HeightZScore = a.ZScore
		}
		if a, ok := periodAnomalies[s]; ok {
			r.PeriodSeverity = a.Severity
			r.PeriodZScore = a.ZScore
		}
		out = append(out, r)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].StationID < out[j].StationID })
	return out
}

func indexByStation(anomalies []buoy.Anomaly) map[string]buoy.Anomaly {
	out := make(map[string]buoy.Anomaly, len(anomalies))
	for _, a := range anomalies {
		out[a.StationID] = a
	}
	return out
}

func computeQualityFlags(buoys []domain.BuoyData, anomalies []AnomalyResult, trends []TrendResult) map[string]domain.Quality {
	anomalyByStation := map[string]AnomalyResult{}
	for _, a := range anomalies {
		anomalyByStation[a.StationID] = a
	}
	trendByStation := map[string]TrendResult{}
	for _, t := range trends {
		trendByStation[t.StationID] = t
	}

	flags := make(map[string]domain.Quality, len(buoys))
	for _, b := range buoys {
		latest, ok := b.Latest()
		if !ok {
			continue
		}
		anomaly := anomalyByStation[b.StationID]
		trend := trendByStation[b.StationID]
		flags[b.StationID] = buoy.AssignQualityFlag(buoy.QualityInput{
			HeightAnomaly:    anomaly.HeightSeverity,
			PeriodAnomaly:    anomaly.PeriodSeverity,
			HeightTrend:      trend.HeightCategory,
			ObservationCount: len(b.Observations),
			LatestHeight:     latest.WaveHeight,
			LatestPeriod:     latest.DominantPeriod,
			LatestDirection:  latest.WaveDirection,
			AgeHours:         domain.AgeHours(latest.Timestamp),
		})
	}
	return flags
}

func computeCrossValidation(buoys []domain.BuoyData) buoy.CrossValidation {
	var heights, periods []float64
	for _, b := range buoys {
		latest, ok := b.Latest()
		if !ok {
			continue
		}
		if latest.WaveHeight != nil {
			heights = append(heights, *latest.WaveHeight)
		}
		if latest.DominantPeriod != nil {
			periods = append(periods, *latest.DominantPeriod)
		}
	}
	return buoy.CalculateCrossValidation(heights, periods)
}

func computeSummaryStats(buoys []domain.BuoyData) SummaryStats {
	var stats SummaryStats
	var heightSum, periodSum float64
	var heightN, periodN int
	stats.HeightMin, stats.PeriodMin = -1, -1

	for _, b := range buoys {
		for _, obs := range b.Observations {
			stats.ObservationCount++
			if obs.WaveHeight != nil {
				h := *obs.WaveHeight
				if stats.HeightMin < 0 || h < stats.HeightMin {
					stats.HeightMin = h
				}
				if h > stats.HeightMax {
					stats.HeightMax = h
				}
				heightSum += h
				heightN++
			}
			if obs.DominantPeriod != nil {
				p := *obs.DominantPeriod
				if stats.PeriodMin < 0 || p < stats.PeriodMin {
					stats.PeriodMin = p
				}
				if p > stats.PeriodMax {
					stats.PeriodMax = p
				}
				periodSum += p
				periodN++
			}
		}
	}
	if stats.HeightMin < 0 {
		stats.HeightMin = 0
	}
	if stats.PeriodMin < 0 {
		stats.PeriodMin = 0
	}
	if heightN > 0 {
		stats.HeightMean = heightSum / float64(heightN)
	}
	if periodN > 0 {
		stats.PeriodMean = periodSum / float64(periodN)
	}
	return stats
}

// confidence implements §4.K point 5: 0.5*quality + 0.3*consistency +
// 0.2*completeness, where quality = 1 - anomalies/buoys, consistency = the
// cross-buoy agreement score, completeness = buoys_with_data / total.
func confidence(cleaned, all []domain.BuoyData, anomalies []AnomalyResult, cv buoy.CrossValidation) float64 {
	if len(all) == 0 {
		return 0
	}
	anomalyCount := 0
	for _, a := range anomalies {
		if a.HeightSeverity != buoy.AnomalyNone || a.PeriodSeverity != buoy.AnomalyNone {
			anomalyCount++
		}
	}
	quality := 1.0 - float64(anomalyCount)/float64(len(cleaned))
	if quality < 0 {
		quality = 0
	}
	completeness := float64(len(cleaned)) / float64(len(all))

	score := 0.5*quality + 0.3*cv.Overall + 0.2*completeness
	if score > 1 {
		return 1
	}
	if score < 0 {
		return 0
	}
	return score
}

func systemPrompt() string {
	return "You are a veteran NDBC buoy analyst writing a 500-1000 word technical " +
		"narrative for a Hawaii surf forecast. Cover trend direction and magnitude " +
		"per buoy, any Z-score anomalies and their likely cause, cross-buoy " +
		"agreement, and what the summary statistics imply for incoming swell."
}

func userPrompt(data Data) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Observations analyzed: %d\n\n", data.SummaryStats.ObservationCount)

	b.WriteString("Trends:\n")
	for _, t := range data.Trends {
		fmt.Fprintf(&b, "- %s: height slope %.3f (%s), period slope %.3f (%s)\n",
			t.StationID, t.HeightSlope, t.HeightCategory, t.PeriodSlope, t.PeriodCategory)
	}

	b.WriteString("\nAnomalies:\n")
	for _, a := range data.Anomalies {
		fmt.Fprintf(&b, "- %s: height Z=%.2f (%s), period Z=%.2f (%s)\n",
			a.StationID, a.HeightZScore, a.HeightSeverity, a.PeriodZScore, a.PeriodSeverity)
	}

	fmt.Fprintf(&b, "\nCross-buoy agreement: height=%.2f period=%.2f overall=%.2f (%s)\n",
		data.CrossValidation.HeightAgreement, data.CrossValidation.PeriodAgreement,
		data.CrossValidation.Overall, data.CrossValidation.Interpretation)

	fmt.Fprintf(&b, "\nSummary stats: height %.2f-%.2fm (mean %.2f), period %.1f-%.1fs (mean %.1f)\n",
		data.SummaryStats.HeightMin, data.SummaryStats.HeightMax, data.SummaryStats.HeightMean,
		data.SummaryStats.PeriodMin, data.SummaryStats.PeriodMax, data.SummaryStats.PeriodMean)

	b.WriteString("\nQuality flags: ")
	stations := make([]string, 0, len(data.QualityFlags))
	for s := range data.QualityFlags {
		stations = append(stations, s)
	}
	sort.Strings(stations)
	for _, s := range stations {
		fmt.Fprintf(&b, "%s=%s ", s, data.QualityFlags[s])
	}
	b.WriteString("\n")

	return b.String()
}
