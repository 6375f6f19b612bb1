// Package wavemodel implements the §4.G Wave-Model Processor: cleaning,
// trend/peak detection, per-shore impact, and swell-event auto-detection
// over WW3/SWAN model runs.
package wavemodel

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/stonezone/surfcast-fusion/internal/domain"
)

// CleanPoints drops points with non-physical height, period, or direction.
func CleanPoints(points []domain.WaveModelPoint) []domain.WaveModelPoint {
	out := make([]domain.WaveModelPoint, 0, len(points))
	for _, p := range points {
		if p.Height == nil || *p.Height <= 0 {
			continue
		}
		if p.Period == nil || *p.Period <= 0 {
			continue
		}
		if p.Direction == nil || *p.Direction < 0 || *p.Direction > 360 {
			continue
		}
		out = append(out, p)
	}
	return out
}

// ForecastRangeHours returns the hour span [min,max] across a model's
// forecast-hour offsets.
func ForecastRangeHours(forecasts []domain.ModelForecast) (min, max int) {
	if len(forecasts) == 0 {
		return 0, 0
	}
	min, max = forecasts[0].ForecastHour, forecasts[0].ForecastHour
	for _, f := range forecasts {
		if f.ForecastHour < min {
			min = f.ForecastHour
		}
		if f.ForecastHour > max {
			max = f.ForecastHour
		}
	}
	return min, max
}

// HeightTrendCategory classifies the height trend across a forecast's
// duration.
type HeightTrendCategory string

const (
	HeightIncreasing HeightTrendCategory = "increasing"
	HeightDecreasing HeightTrendCategory = "decreasing"
	HeightStable     HeightTrendCategory = "stable"
	HeightPeaking    HeightTrendCategory = "peaking"
)

// averageHeight returns the mean of non-nil heights across a forecast's
// points, or 0 if none.
func averageHeight(points []domain.WaveModelPoint) float64 {
	sum, n := 0.0, 0
	for _, p := range points {
		if p.Height != nil {
			sum += *p.Height
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

// HeightTrend compares the first-third vs last-third average heights
// across a time-ordered series of per-forecast average heights, flagging
// "peaking" when the middle third's max exceeds both tails by >= 25%.
func HeightTrend(forecasts []domain.ModelForecast) HeightTrendCategory {
	n := len(forecasts)
	if n < 3 {
		return HeightStable
	}

	avgHeights := make([]float64, n)
	for i, f := range forecasts {
		avgHeights[i] = averageHeight(f.Points)
	}

	third := n / 3
	if third == 0 {
		third = 1
	}
	firstThird := avgHeights[:third]
	lastThird := avgHeights[n-third:]
	middle := avgHeights[third : n-third]

	firstAvg := mean(firstThird)
	lastAvg := mean(lastThird)

	if len(middle) > 0 {
		middleMax := maxOf(middle)
		if middleMax >= firstAvg*1.25 && middleMax >= lastAvg*1.25 {
			return HeightPeaking
		}
	}

	if firstAvg == 0 {
		return HeightStable
	}
	ratio := lastAvg / firstAvg
	switch {
	case ratio > 1.1:
		return HeightIncreasing
	case ratio < 0.9:
		return HeightDecreasing
	default:
		return HeightStable
	}
}

func mean(vals []float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range vals {
		sum += v
	}
	return sum / float64(len(vals))
}

func maxOf(vals []float64) float64 {
	m := vals[0]
	for _, v := range vals[1:] {
		if v > m {
			m = v
		}
	}
	return m
}

// PeakConditions identifies the forecast slice with the highest average
// height.
func PeakConditions(forecasts []domain.ModelForecast) (domain.ModelForecast, bool) {
	if len(forecasts) == 0 {
		return domain.ModelForecast{}, false
	}
	best := forecasts[0]
	bestAvg := averageHeight(best.Points)
	for _, f := range forecasts[1:] {
		avg := averageHeight(f.Points)
		if avg > bestAvg {
			best = f
			bestAvg = avg
		}
	}
	return best, true
}

// ShoreImpact is the per-shore model-derived impact summary.
type ShoreImpact struct {
	ShoreName     string
	AverageHeight float64
	AverageDirection float64
	Weight        float64 // ExposureFactor * SeasonalFactor
}

const shoreSelectionRadiusKM = 50.0

// ShoreImpacts computes, for each Hawaii shore, the average height and
// direction of model points within 50km of the shore's centroid, weighted
// by ExposureFactor(shore, direction) * SeasonalFactor(shore, at).
func ShoreImpacts(points []domain.WaveModelPoint, at time.Time) []ShoreImpact {
	impacts := make([]ShoreImpact, 0, len(domain.Shores))
	for _, shore := range domain.Shores {
		var heights, dirs []float64
		for _, p := range points {
			if haversineKM(shore.Lat, shore.Lon, p.Lat, p.Lon) <= shoreSelectionRadiusKM {
				if p.Height != nil {
					heights = append(heights, *p.Height)
				}
				if p.Direction != nil {
					dirs = append(dirs, *p.Direction)
				}
			}
		}
		if len(heights) == 0 {
			continue
		}
		avgHeight := mean(heights)
		avgDir := circularMean(dirs)
		weight := domain.ExposureFactor(shore, avgDir) * domain.SeasonalFactor(shore, at)
		impacts = append(impacts, ShoreImpact{
			ShoreName:        shore.Name,
			AverageHeight:    avgHeight,
			AverageDirection: avgDir,
			Weight:           weight,
		})
	}
	return impacts
}

func circularMean(degrees []float64) float64 {
	if len(degrees) == 0 {
		return 0
	}
	var sumSin, sumCos float64
	for _, d := range degrees {
		rad := d * math.Pi / 180
		sumSin += math.Sin(rad)
		sumCos += math.Cos(rad)
	}
	meanRad := math.Atan2(sumSin/float64(len(degrees)), sumCos/float64(len(degrees)))
	meanDeg := meanRad * 180 / math.Pi
	if meanDeg < 0 {
		meanDeg += 360
	}
	return meanDeg
}

func haversineKM(lat1, lon1, lat2, lon2 float64) float64 {
	const earthRadiusKM = 6371.0
	phi1 := lat1 * math.Pi / 180
	phi2 := lat2 * math.Pi / 180
	dPhi := (lat2 - lat1) * math.Pi / 180
	dLambda := (lon2 - lon1) * math.Pi / 180

	a := math.Sin(dPhi/2)*math.Sin(dPhi/2) +
		math.Cos(phi1)*math.Cos(phi2)*math.Sin(dLambda/2)*math.Sin(dLambda/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusKM * c
}

// DetectedEvent is an auto-detected swell event within a model's
// time-series of average heights.
type DetectedEvent struct {
	StartIndex int
	PeakIndex  int
	EndIndex   int
	PeakHeight float64
}

// DetectEvents finds local maxima in the average-height time series that
// exceed their immediate neighbours by >= 20%, then traces backward and
// forward to the first crossing of 50% of the peak height to bound the
// event.
func DetectEvents(forecasts []domain.ModelForecast) []DetectedEvent {
	n := len(forecasts)
	if n < 3 {
		return nil
	}
	heights := make([]float64, n)
	for i, f := range forecasts {
		heights[i] = averageHeight(f.Points)
	}

	var events []DetectedEvent
	for i := 1; i < n-1; i++ {
		if heights[i] > heights[i-1]*1.2 && heights[i] > heights[i+1]*1.2 {
			threshold := heights[i] * 0.5
			start := i
			for start > 0 && heights[start-1] >= threshold {
				start--
			}
			end := i
			for end < n-1 && heights[end+1] >= threshold {
				end++
			}
			events = append(events, DetectedEvent{StartIndex: start, PeakIndex: i, EndIndex: end, PeakHeight: heights[i]})
		}
	}
	sort.SliceStable(events, func(i, j int) bool { return events[i].PeakHeight > events[j].PeakHeight })
	return events
}

// Process runs the full §4.G wave-model pipeline over one model run ahead
// of fusion: it cleans every forecast's points in place, auto-detects swell
// events from the cleaned series and attaches them to the forecast-hour
// slice they peak in (feeding §4.H step 3's pre-extracted-events path), and
// records forecast-range/height-trend/shore-impact summaries onto the
// model's metadata.
func Process(model *domain.ModelData) {
	for i := range model.Forecasts {
		model.Forecasts[i].Points = CleanPoints(model.Forecasts[i].Points)
	}

	for _, d := range DetectEvents(model.Forecasts) {
		if d.PeakIndex < 0 || d.PeakIndex >= len(model.Forecasts) {
			continue
		}
		peak := &model.Forecasts[d.PeakIndex]
		peak.Events = append(peak.Events, buildSwellEvent(*peak, d, model.ModelID))
	}

	if model.Metadata == nil {
		model.Metadata = map[string]any{}
	}
	minHour, maxHour := ForecastRangeHours(model.Forecasts)
	model.Metadata["forecast_range_hours"] = [2]int{minHour, maxHour}
	model.Metadata["height_trend"] = HeightTrend(model.Forecasts)

	var allPoints []domain.WaveModelPoint
	for _, f := range model.Forecasts {
		allPoints = append(allPoints, f.Points...)
	}
	model.Metadata["shore_impacts"] = ShoreImpacts(allPoints, domain.Now())
}

// buildSwellEvent turns one DetectEvents result into a domain.SwellEvent,
// using the peak forecast-hour slice's highest cleaned point for direction
// and period. Mirrors fusion's model-event construction so a pre-extracted
// wave-model event scores identically to the max-height fallback it
// replaces.
func buildSwellEvent(peak domain.ModelForecast, d DetectedEvent, modelID string) domain.SwellEvent {
	var bestPoint *domain.WaveModelPoint
	for i := range peak.Points {
		p := &peak.Points[i]
		if p.Height == nil {
			continue
		}
		if bestPoint == nil || *p.Height > *bestPoint.Height {
			bestPoint = p
		}
	}

	height, period, direction := d.PeakHeight, 12.0, 0.0
	if bestPoint != nil {
		height = *bestPoint.Height
		if bestPoint.Period != nil {
			period = *bestPoint.Period
		}
		if bestPoint.Direction != nil {
			direction = *bestPoint.Direction
		}
	}

	return domain.SwellEvent{
		ID:               domain.GenerateEventID("model", modelID, fmt.Sprintf("%.2f", direction), fmt.Sprintf("%.2f", height)),
		Start:            peak.Timestamp,
		PrimaryDirection: direction,
		Significance:     domain.Significance(height, period),
		HawaiianFeet:     domain.ToHawaiianFeet(height),
		SourceLabel:      "model",
		Quality:          domain.QualityValid,
		PrimaryComponents: []domain.SwellComponent{{
			Height:     height,
			Period:     period,
			Direction:  direction,
			Confidence: 0.75,
			Source:     "model",
			Quality:    domain.QualityValid,
		}},
		Metadata: map[string]any{"detected": true},
	}
}
