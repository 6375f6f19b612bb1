// Package senior implements the §4.M Senior Forecaster specialist: it
// cross-validates the buoy and pressure analysts' outputs against the
// fused swell events, detects contradictions between them, and synthesizes
// the final shore-wise narrative.
package senior

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/stonezone/surfcast-fusion/internal/domain"
	"github.com/stonezone/surfcast-fusion/internal/llm"
	"github.com/stonezone/surfcast-fusion/internal/processing/buoy"
	"github.com/stonezone/surfcast-fusion/internal/specialist/buoyanalyst"
	"github.com/stonezone/surfcast-fusion/internal/specialist/pressureanalyst"
)

// DefaultMinSpecialistsRequired is the spec's documented floor (§4.M, §5).
const DefaultMinSpecialistsRequired = 2

// DefaultConfidenceFloor is the per-specialist confidence a specialist must
// clear to count toward the minimum.
const DefaultConfidenceFloor = 0.3

// Impact classifies how much a contradiction should weigh on overall
// confidence.
type Impact string

const (
	ImpactLow    Impact = "low"
	ImpactMedium Impact = "medium"
	ImpactHigh   Impact = "high"
)

// Contradiction is one detected disagreement between the buoy and pressure
// analysts, per §4.M point 1.
type Contradiction struct {
	Issue      string
	Resolution string
	Impact     Impact
}

// ShoreForecast is the per-shore synthesis, per §4.M point 4.
type ShoreForecast struct {
	Shore         string
	SizeRangeFeet string
	Conditions    string
	Timing        string
	Confidence    float64
}

// SwellBreakdownEntry is one merged pressure/buoy swell record, per §4.M
// point 5.
type SwellBreakdownEntry struct {
	Direction           string
	DirectionDegrees    float64
	HeightRangeFeet     string
	PeriodRangeS        string
	Confidence          float64
	HasPressureSupport  bool
	HasBuoyConfirmation bool
}

// Data is the senior forecaster's structured output.
type Data struct {
	Contradictions []Contradiction
	AgreementScore float64
	KeyFindings    []string
	ShoreForecasts []ShoreForecast
	SwellBreakdown []SwellBreakdownEntry
}

// Forecaster is the constructor-injected §4.M specialist.
type Forecaster struct {
	client          llm.Client
	retryCfg        llm.RetryConfig
	modelName       string
	minSpecialists  int
	confidenceFloor float64
}

// New constructs a Forecaster with the spec's default minimum-specialist
// and confidence-floor thresholds.
func New(client llm.Client, modelName string) *Forecaster {
	return &Forecaster{
		client:          client,
		retryCfg:        llm.DefaultRetryConfig,
		modelName:       modelName,
		minSpecialists:  DefaultMinSpecialistsRequired,
		confidenceFloor: DefaultConfidenceFloor,
	}
}

// WithThresholds overrides the minimum-specialist count and confidence
// floor (e.g. from config), returning f for chaining.
func (f *Forecaster) WithThresholds(minSpecialists int, confidenceFloor float64) *Forecaster {
	if minSpecialists > 0 {
		f.minSpecialists = minSpecialists
	}
	f.confidenceFloor = confidenceFloor
	return f
}

// WithRetryConfig overrides the LLM retry/backoff policy, returning f for
// chaining.
func (f *Forecaster) WithRetryConfig(cfg llm.RetryConfig) *Forecaster {
	if cfg.MaxRetries > 0 {
		f.retryCfg = cfg
	}
	return f
}

// Synthesize cross-validates the subordinate specialist outputs against the
// fused events and produces the final SpecialistOutput. Fails with
// domain.ErrInsufficientSpecialists when fewer than minSpecialists clear
// the confidence floor.
func (f *Forecaster) Synthesize(ctx context.Context, specialists []domain.SpecialistOutput, events []domain.SwellEvent, seasonalContext map[string]string) (domain.SpecialistOutput, error) {
	qualifying := 0
	var buoyOut, pressureOut *domain.SpecialistOutput
	for i := range specialists {
		s := &specialists[i]
		if s.Confidence > f.confidenceFloor {
			qualifying++
		}
		switch s.Kind {
		case domain.SpecialistBuoy:
			buoyOut = s
		case domain.SpecialistPressure:
			pressureOut = s
		}
	}
	if qualifying < f.minSpecialists {
		return domain.SpecialistOutput{}, fmt.Errorf("senior forecaster: %w (%d of %d required)", domain.ErrInsufficientSpecialists, qualifying, f.minSpecialists)
	}

	buoyData := buoyDataOf(buoyOut)
	pressureData := pressureDataOf(pressureOut)

	buoyEvents := filterBySourcePrefix(events, "buoy")
	buoyDirections := directionsOf(buoyEvents)

	contradictions := detectContradictions(buoyData, pressureData, buoyDirections)
	agreement := agreementScore(buoyOut, pressureOut, buoyDirections, pressureData)
	findings := keyFindings(buoyData, pressureData, events)
	shoreForecasts := buildShoreForecasts(events, buoyEvents, pressureData)
	breakdown := buildSwellBreakdown(pressureData, buoyEvents)

	overall := synthesisConfidence(agreement, contradictions, len(specialists))

	data := Data{
		Contradictions: contradictions,
		AgreementScore: agreement,
		KeyFindings:    findings,
		ShoreForecasts: shoreForecasts,
		SwellBreakdown: breakdown,
	}

	narrative, _, err := llm.GenerateWithRetry(ctx, f.client, f.retryCfg, systemPrompt(), userPrompt(data, seasonalContext), nil)
	if err != nil {
		return domain.SpecialistOutput{}, fmt.Errorf("senior forecaster: %w", err)
	}

	return domain.SpecialistOutput{
		Kind:       domain.SpecialistSenior,
		Confidence: overall,
		Data:       data,
		Narrative:  narrative,
		Metadata:   domain.NewSpecialistMetadata(),
	}, nil
}

func buoyDataOf(out *domain.SpecialistOutput) buoyanalyst.Data {
	if out == nil {
		return buoyanalyst.Data{}
	}
	d, ok := out.Data.(buoyanalyst.Data)
	if !ok {
		return buoyanalyst.Data{}
	}
	return d
}

func pressureDataOf(out *domain.SpecialistOutput) pressureanalyst.Data {
	if out == nil {
		return pressureanalyst.Data{}
	}
	d, ok := out.Data.(pressureanalyst.Data)
	if !ok {
		return pressureanalyst.Data{}
	}
	return d
}

func filterBySourcePrefix(events []domain.SwellEvent, prefix string) []domain.SwellEvent {
	out := make([]domain.SwellEvent, 0, len(events))
	for _, ev := range events {
		if strings.HasPrefix(ev.SourceLabel, prefix) {
			out = append(out, ev)
		}
	}
	return out
}

func directionsOf(events []domain.SwellEvent) []float64 {
	out := make([]float64, len(events))
	for i, ev := range events {
		out[i] = ev.PrimaryDirection
	}
	return out
}

const directionMatchTolerance = 45.0

// detectContradictions implements §4.M point 1's two named rules. The buoy
// analyst's TrendResult carries no direction of its own (a station's
// bearing lives on the fused SwellEvent it seeded, not the trend record),
// so the "buoy direction" set used here is the set of fused buoy-sourced
// event directions — the same bearings those trends describe.
func detectContradictions(bd buoyanalyst.Data, pd pressureanalyst.Data, buoyDirections []float64) []Contradiction {
	var out []Contradiction

	for _, t := range bd.Trends {
		if t.HeightCategory != buoy.TrendIncreasingStrong {
			continue
		}
		matched := false
		for _, dir := range buoyDirections {
			if anyFetchOrSwellNear(pd, dir) {
				matched = true
				break
			}
		}
		if !matched {
			out = append(out, Contradiction{
				Issue:      fmt.Sprintf("buoy %s shows strong increasing height with no corresponding pressure-analyst swell or fetch", t.StationID),
				Resolution: "likely local windswell rather than a tracked groundswell",
				Impact:     ImpactMedium,
			})
		}
	}

	now := domain.Now()
	for _, s := range pd.PredictedSwells {
		if s.Confidence <= 0.7 {
			continue
		}
		matched := false
		for _, dir := range buoyDirections {
			if domain.AngularDifference(dir, s.DirectionDegrees) <= directionMatchTolerance {
				matched = true
				break
			}
		}
		if matched {
			continue
		}
		arrival := s.EnhancedArrival
		past := arrival != nil && arrival.Before(now)
		impact := ImpactLow
		resolution := "swell has not yet reached buoy coverage"
		if past {
			impact = ImpactHigh
			resolution = "expected arrival has passed with no buoy confirmation; prediction may be overstated"
		}
		out = append(out, Contradiction{
			Issue:      fmt.Sprintf("pressure analyst predicts high-confidence swell from %s with no matching buoy signal", s.SourceSystem),
			Resolution: resolution,
			Impact:     impact,
		})
	}

	return out
}

func anyFetchOrSwellNear(pd pressureanalyst.Data, direction float64) bool {
	for _, s := range pd.Systems {
		if fetchDeg, ok := domain.DirectionToDegrees(s.Fetch.Direction); ok {
			if domain.AngularDifference(direction, fetchDeg) <= directionMatchTolerance {
				return true
			}
		}
	}
	for _, s := range pd.PredictedSwells {
		if domain.AngularDifference(direction, s.DirectionDegrees) <= directionMatchTolerance {
			return true
		}
	}
	return false
}

// agreementScore implements §4.M point 2: an equal-weighted mean of
// directional match rate, trend-vs-arrival alignment, and confidence
// closeness. The spec names the three components without stating exact
// weights; equal weighting is recorded as an Open Question decision in
// DESIGN.md.
func agreementScore(buoyOut, pressureOut *domain.SpecialistOutput, buoyDirections []float64, pd pressureanalyst.Data) float64 {
	directional := directionalMatchRate(buoyDirections, pd.PredictedSwells)
	trendAlignment := trendArrivalAlignment(buoyOut, pd.PredictedSwells)
	confDiff := 1.0
	if buoyOut != nil && pressureOut != nil {
		diff := buoyOut.Confidence - pressureOut.Confidence
		if diff < 0 {
			diff = -diff
		}
		confDiff = 1 - diff
	}
	return (directional + trendAlignment + confDiff) / 3.0
}

func directionalMatchRate(buoyDirections []float64, swells []pressureanalyst.PredictedSwell) float64 {
	if len(buoyDirections) == 0 || len(swells) == 0 {
		return 0.5
	}
	matches := 0
	for _, dir := range buoyDirections {
		for _, s := range swells {
			if domain.AngularDifference(dir, s.DirectionDegrees) <= directionMatchTolerance {
				matches++
				break
			}
		}
	}
	return float64(matches) / float64(len(buoyDirections))
}

func trendArrivalAlignment(buoyOut *domain.SpecialistOutput, swells []pressureanalyst.PredictedSwell) float64 {
	bd := buoyDataOf(buoyOut)
	increasing := 0
	for _, t := range bd.Trends {
		if strings.HasPrefix(string(t.HeightCategory), "increasing") {
			increasing++
		}
	}
	if increasing == 0 {
		if len(swells) == 0 {
			return 1.0 // nothing increasing, nothing incoming: consistent
		}
		return 0.5
	}
	imminent := 0
	now := domain.Now()
	for _, s := range swells {
		if s.EnhancedArrival != nil && s.EnhancedArrival.Sub(now) <= 72*time.Hour && s.EnhancedArrival.After(now) {
			imminent++
		}
	}
	if imminent == 0 {
		return 0.3
	}
	return 1.0
}

const keyFindingsCap = 5

// keyFindings implements §4.M point 3.
func keyFindings(bd buoyanalyst.Data, pd pressureanalyst.Data, events []domain.SwellEvent) []string {
	var findings []string

	trends := append([]buoyanalyst.TrendResult(nil), bd.Trends...)
	sort.SliceStable(trends, func(i, j int) bool { return abs(trends[i].HeightSlope) > abs(trends[j].HeightSlope) })
	for i := 0; i < len(trends) && i < 2; i++ {
		t := trends[i]
		findings = append(findings, fmt.Sprintf("buoy %s: %s height trend (slope %.3f m/obs)", t.StationID, t.HeightCategory, t.HeightSlope))
	}

	swells := append([]pressureanalyst.PredictedSwell(nil), pd.PredictedSwells...)
	sort.SliceStable(swells, func(i, j int) bool { return swells[i].Confidence > swells[j].Confidence })
	for i := 0; i < len(swells) && i < 2 && len(findings) < keyFindingsCap; i++ {
		s := swells[i]
		findings = append(findings, fmt.Sprintf("pressure analyst: %s swell from %s, confidence %.2f", s.Direction, s.SourceSystem, s.Confidence))
	}

	sortedEvents := append([]domain.SwellEvent(nil), events...)
	sort.SliceStable(sortedEvents, func(i, j int) bool { return sortedEvents[i].Significance > sortedEvents[j].Significance })
	for i := 0; i < len(sortedEvents) && len(findings) < keyFindingsCap; i++ {
		ev := sortedEvents[i]
		findings = append(findings, fmt.Sprintf("%.1fft %s swell detected (significance %.2f)", ev.HawaiianFeet, ev.PrimaryDirectionCardinal(), ev.Significance))
	}

	if len(findings) > keyFindingsCap {
		findings = findings[:keyFindingsCap]
	}
	return findings
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

// buoyFaceFeetFactor converts meters to face-height feet for shore-forecast
// sizing, per §4.M point 4 (distinct from the fusion engine's Hawaiian-scale
// 6.56168 factor used elsewhere — both are named explicitly in the spec and
// kept separate rather than conflated).
const buoyFaceFeetFactor = 1.8 * 3.28084

const shoreBearingTolerance = 60.0
const groundswellPeriodFloor = 12.0

// buildShoreForecasts implements §4.M point 4 for the four Hawaii shores.
func buildShoreForecasts(events []domain.SwellEvent, buoyEvents []domain.SwellEvent, pd pressureanalyst.Data) []ShoreForecast {
	out := make([]ShoreForecast, 0, len(domain.Shores))
	for _, shore := range domain.Shores {
		relevantEvents := eventsNearBearing(events, shore.Facing)
		relevantSwells := swellsNearBearing(pd.PredictedSwells, shore.Facing)

		if len(relevantEvents) == 0 && len(relevantSwells) == 0 {
			continue
		}

		sizeRange := estimateSizeRange(relevantEvents, relevantSwells)
		conditions := estimateConditions(relevantEvents)
		timing := estimateTiming(relevantEvents, relevantSwells)
		confidence := estimateShoreConfidence(relevantEvents, relevantSwells)

		out = append(out, ShoreForecast{
			Shore:         shore.Name,
			SizeRangeFeet: sizeRange,
			Conditions:    conditions,
			Timing:        timing,
			Confidence:    confidence,
		})
	}
	return out
}

func eventsNearBearing(events []domain.SwellEvent, bearing float64) []domain.SwellEvent {
	var out []domain.SwellEvent
	for _, ev := range events {
		if domain.AngularDifference(ev.PrimaryDirection, bearing) <= shoreBearingTolerance {
			out = append(out, ev)
		}
	}
	return out
}

func swellsNearBearing(swells []pressureanalyst.PredictedSwell, bearing float64) []pressureanalyst.PredictedSwell {
	var out []pressureanalyst.PredictedSwell
	for _, s := range swells {
		if domain.AngularDifference(s.DirectionDegrees, bearing) <= shoreBearingTolerance {
			out = append(out, s)
		}
	}
	return out
}

func estimateSizeRange(events []domain.SwellEvent, swells []pressureanalyst.PredictedSwell) string {
	var minFt, maxFt float64
	have := false
	for _, ev := range events {
		for _, c := range ev.PrimaryComponents {
			ft := c.Height * buoyFaceFeetFactor
			if !have || ft < minFt {
				minFt = ft
			}
			if !have || ft > maxFt {
				maxFt = ft
			}
			have = true
		}
	}
	for _, s := range swells {
		loFt := s.HeightRangeM[0] * buoyFaceFeetFactor
		hiFt := s.HeightRangeM[1] * buoyFaceFeetFactor
		if !have || loFt < minFt {
			minFt = loFt
		}
		if !have || hiFt > maxFt {
			maxFt = hiFt
		}
		have = true
	}
	if !have {
		return "flat"
	}
	return fmt.Sprintf("%.0f-%.0fft", minFt, maxFt)
}

func estimateConditions(events []domain.SwellEvent) string {
	if len(events) == 0 {
		return "small and clean"
	}
	hasGroundswell := false
	directions := map[string]bool{}
	for _, ev := range events {
		for _, c := range ev.PrimaryComponents {
			if c.Period >= groundswellPeriodFloor {
				hasGroundswell = true
			}
		}
		directions[ev.PrimaryDirectionCardinal()] = true
	}
	diverse := len(directions) > 1

	switch {
	case hasGroundswell && !diverse:
		return "clean"
	case hasGroundswell && diverse:
		return "mixed and choppy"
	case !hasGroundswell && diverse:
		return "fair to choppy"
	default:
		return "small and clean"
	}
}

func estimateTiming(events []domain.SwellEvent, swells []pressureanalyst.PredictedSwell) string {
	now := domain.Now()
	for _, s := range swells {
		if s.EnhancedArrival != nil && s.EnhancedArrival.After(now) && s.EnhancedArrival.Sub(now) <= 24*time.Hour {
			return fmt.Sprintf("New swell arriving %s, building thereafter", s.EnhancedArrival.Format("Mon 15:04 MST"))
		}
	}
	for _, ev := range events {
		if ev.Peak != nil && ev.Peak.After(now) {
			return "Building through the period, peak in 12-24 hours"
		}
	}
	return "Steady through period"
}

func estimateShoreConfidence(events []domain.SwellEvent, swells []pressureanalyst.PredictedSwell) float64 {
	dataFactor := float64(len(events)+len(swells)) / 3.0
	if dataFactor > 1 {
		dataFactor = 1
	}
	sum, n := 0.0, 0
	for _, ev := range events {
		sum += ev.Significance
		n++
	}
	for _, s := range swells {
		sum += s.Confidence
		n++
	}
	sourceFactor := 0.5
	if n > 0 {
		sourceFactor = sum / float64(n)
	}
	score := 0.4*dataFactor + 0.6*sourceFactor
	if score > 1 {
		return 1
	}
	if score < 0 {
		return 0
	}
	return score
}

const swellBreakdownCap = 5
const breakdownDirectionTolerance = 30.0

// buildSwellBreakdown implements §4.M point 5.
func buildSwellBreakdown(pd pressureanalyst.Data, buoyEvents []domain.SwellEvent) []SwellBreakdownEntry {
	var entries []SwellBreakdownEntry

	for _, s := range pd.PredictedSwells {
		entry := SwellBreakdownEntry{
			Direction:          s.Direction,
			DirectionDegrees:   s.DirectionDegrees,
			HeightRangeFeet:    fmt.Sprintf("%.0f-%.0fft", s.HeightRangeM[0]*buoyFaceFeetFactor, s.HeightRangeM[1]*buoyFaceFeetFactor),
			PeriodRangeS:       fmt.Sprintf("%.0f-%.0fs", s.PeriodRangeS[0], s.PeriodRangeS[1]),
			Confidence:         s.Confidence,
			HasPressureSupport: true,
		}
		for _, ev := range buoyEvents {
			if domain.AngularDifference(ev.PrimaryDirection, s.DirectionDegrees) <= breakdownDirectionTolerance {
				entry.HasBuoyConfirmation = true
				break
			}
		}
		entries = append(entries, entry)
	}

	for _, ev := range buoyEvents {
		matched := false
		for _, e := range entries {
			if domain.AngularDifference(ev.PrimaryDirection, e.DirectionDegrees) <= breakdownDirectionTolerance {
				matched = true
				break
			}
		}
		if matched {
			continue
		}
		height, period := 0.0, 0.0
		if len(ev.PrimaryComponents) > 0 {
			height = ev.PrimaryComponents[0].Height
			period = ev.PrimaryComponents[0].Period
		}
		entries = append(entries, SwellBreakdownEntry{
			Direction:           ev.PrimaryDirectionCardinal(),
			DirectionDegrees:    ev.PrimaryDirection,
			HeightRangeFeet:     fmt.Sprintf("%.0fft", height*buoyFaceFeetFactor),
			PeriodRangeS:        fmt.Sprintf("%.0fs", period),
			Confidence:          ev.Significance,
			HasBuoyConfirmation: true,
		})
	}

	sort.SliceStable(entries, func(i, j int) bool { return entries[i].Confidence > entries[j].Confidence })
	if len(entries) > swellBreakdownCap {
		entries = entries[:swellBreakdownCap]
	}
	return entries
}

// synthesisConfidence implements §4.M point 6.
func synthesisConfidence(agreement float64, contradictions []Contradiction, numSpecialists int) float64 {
	score := agreement
	for _, c := range contradictions {
		switch c.Impact {
		case ImpactHigh:
			score -= 0.15
		case ImpactMedium:
			score -= 0.05
		}
	}
	if numSpecialists >= 3 {
		score *= 1.1
	}
	if score > 1 {
		return 1
	}
	if score < 0 {
		return 0
	}
	return score
}

func systemPrompt() string {
	return "You are the senior forecaster, writing in the style of a veteran Hawaii " +
		"surf forecast in a 500-800 word narrative. Synthesize the buoy and pressure " +
		"analysts' findings, resolve any contradictions, and give a shore-by-shore " +
		"outlook grounded in the supplied swell breakdown."
}

func userPrompt(data Data, seasonalContext map[string]string) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Agreement score: %.2f\n\n", data.AgreementScore)

	b.WriteString("Contradictions:\n")
	for _, c := range data.Contradictions {
		fmt.Fprintf(&b, "- [%s] %s -> %s\n", c.Impact, c.Issue, c.Resolution)
	}

	b.WriteString("\nKey findings:\n")
	for _, k := range data.KeyFindings {
		fmt.Fprintf(&b, "- %s\n", k)
	}

	b.WriteString("\nShore forecasts:\n")
	for _, sf := range data.ShoreForecasts {
		fmt.Fprintf(&b, "- %s: %s, %s, %s (confidence %.2f)\n", sf.Shore, sf.SizeRangeFeet, sf.Conditions, sf.Timing, sf.Confidence)
	}

	b.WriteString("\nSwell breakdown:\n")
	for _, e := range data.SwellBreakdown {
		fmt.Fprintf(&b, "- %s %s @ %s, confidence %.2f (pressure=%v buoy=%v)\n",
			e.Direction, e.HeightRangeFeet, e.PeriodRangeS, e.Confidence, e.HasPressureSupport, e.HasBuoyConfirmation)
	}

	b.WriteString("\nSeasonal context:\n")
	shores := make([]string, 0, len(seasonalContext))
	for s := range seasonalContext {
		shores = append(shores, s)
	}
	sort.Strings(shores)
	for _, s := range shores {
		fmt.Fprintf(&b, "- %s: %s\n", s, seasonalContext[s])
	}

	return b.String()
}
