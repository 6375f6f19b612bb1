// Package fusion implements the §4.H Data Fusion Engine: combines
// per-source processed input into a single SwellForecast, mapping events to
// shores and attaching auxiliary feed summaries.
package fusion

import (
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/stonezone/surfcast-fusion/internal/confidence"
	"github.com/stonezone/surfcast-fusion/internal/domain"
	"github.com/stonezone/surfcast-fusion/internal/processing/wavemodel"
	"github.com/stonezone/surfcast-fusion/internal/scoring"
	"github.com/stonezone/surfcast-fusion/internal/spectral"
)

// DefaultMinPeriod is the minimum dominant period (seconds) a single-buoy
// observation must carry to seed a SwellEvent, configurable per §4.H.
const DefaultMinPeriod = 8.0

// Config holds the tunables §4.H calls out explicitly.
type Config struct {
	MinPeriod float64
	DaysAhead int
}

// AuxiliaryFeeds bundles the secondary inputs the fusion engine attaches
// to SwellForecast.Metadata without deep modeling, per §4.H point 7.
type AuxiliaryFeeds struct {
	METAR        map[string]any
	Tides        []map[string]any // up to 3 upcoming highs/lows + latest water level
	TropicalHeadline string
	ChartURIs    []string
	Altimetry    map[string]any
	Nearshore    map[string]any
	UpperAir     []map[string]any // each carries a "pressure_level" key
	Climatology  map[string]any   // includes today's H1/10 averages and records per shore
	WeatherTextCounts map[string]int // §4.G keyword tallies from weather.AnalyzeText, keyed rain/shower/thunder/storm/sunny/clear/cloudy
}

// Input is everything the fusion engine needs for one forecast run.
type Input struct {
	Buoys           []domain.BuoyData
	BuoySpectra     map[string]spectral.Spectrum // keyed by station id, when available
	WindFactorByShore map[string]float64          // precomputed per-shore wind surf-impact, 0..1 scale
	Models          []domain.ModelData
	Aux             AuxiliaryFeeds
	RecentMAEFt     *float64
	PresentSourceClasses map[string]bool
}

// Engine is the constructor-injected fusion stage (no singletons, per
// Design Notes §9).
type Engine struct {
	cfg      Config
	logger   *slog.Logger
	scorer   *scoring.Scorer
	spectral *spectral.Analyzer
}

// New constructs an Engine. A zero cfg.MinPeriod defaults to
// DefaultMinPeriod.
func New(cfg Config, logger *slog.Logger, scorer *scoring.Scorer, analyzer *spectral.Analyzer) *Engine {
	if cfg.MinPeriod <= 0 {
		cfg.MinPeriod = DefaultMinPeriod
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{cfg: cfg, logger: logger, scorer: scorer, spectral: analyzer}
}

// Fuse runs the full §4.H algorithm and returns the assembled
// SwellForecast.
func (e *Engine) Fuse(in Input) (*domain.SwellForecast, error) {
	forecast := &domain.SwellForecast{
		ForecastID: domain.GenerateEventID("forecast", domain.Now().Format(time.RFC3339Nano)),
		Generated:  domain.Now(),
		Metadata:   map[string]any{},
	}
	for _, shore := range domain.Shores {
		forecast.Locations = append(forecast.Locations, domain.ForecastLocation{
			Name:       shore.Name,
			ShoreLabel: shore.Name,
			Lat:        shore.Lat,
			Lon:        shore.Lon,
			Facing:     shore.Facing,
			Metadata:   map[string]any{},
		})
	}

	sourceScores := e.attachSourceScores(in)
	forecast.Metadata["source_scores"] = sourceScores

	events := e.extractBuoyEvents(in)
	events = append(events, e.extractModelEvents(in)...)
	events = mergeEvents(events)

	forecast.Events = events
	e.mapEventsToShores(forecast)
	e.computeLocationQuality(forecast, in)
	e.integrateAuxiliary(forecast, in.Aux)

	modelHeights := make([]float64, 0)
	for _, ev := range events {
		if ev.SourceLabel == "model" {
			modelHeights = append(modelHeights, metersFromFeet(ev.HawaiianFeet))
		}
	}
	scoreList := make([]domain.SourceScore, 0, len(sourceScores))
	for _, s := range sourceScores {
		scoreList = append(scoreList, s)
	}
	report := confidence.Score(confidence.Input{
		ModelEventHeights:    modelHeights,
		SourceScores:         scoreList,
		PresentSourceClasses: in.PresentSourceClasses,
		DaysAhead:            e.cfg.DaysAhead,
		RecentMAEFt:          in.RecentMAEFt,
	})
	forecast.Metadata["confidence"] = report.OverallScore
	forecast.Metadata["confidence_report"] = report

	forecast.SortEventsBySignificance()
	return forecast, nil
}

func metersFromFeet(feet float64) float64 {
	return feet / 6.56168
}

func (e *Engine) attachSourceScores(in Input) map[string]domain.SourceScore {
	scores := map[string]domain.SourceScore{}
	if e.scorer == nil {
		return scores
	}
	for _, b := range in.Buoys {
		latest, ok := b.Latest()
		if !ok {
			continue
		}
		nonNull, expected := countFields(latest)
		scores[b.StationID] = e.scorer.Score(b.StationID, scoring.Input{
			Kind:           scoring.SourceBuoy,
			ObservedAt:     latest.Timestamp,
			NonNullFields:  nonNull,
			ExpectedFields: expected,
		})
	}
	for _, m := range in.Models {
		scores[m.ModelID] = e.scorer.Score(m.ModelID, scoring.Input{
			Kind:           scoring.SourceModel,
			ObservedAt:     m.RunTime,
			NonNullFields:  1,
			ExpectedFields: 1,
		})
	}
	return scores
}

func countFields(obs domain.Observation) (nonNull, expected int) {
	fields := []*float64{
		obs.WaveHeight, obs.DominantPeriod, obs.AveragePeriod, obs.WaveDirection,
		obs.WindSpeed, obs.WindDirection, obs.AirTemperature, obs.WaterTemperature, obs.Pressure,
	}
	expected = len(fields)
	for _, f := range fields {
		if f != nil {
			nonNull++
		}
	}
	return nonNull, expected
}

func (e *Engine) extractBuoyEvents(in Input) []domain.SwellEvent {
	var events []domain.SwellEvent
	for _, b := range in.Buoys {
		if spectrum, ok := in.BuoySpectra[b.StationID]; ok {
			peaks := e.spectral.ExtractPeaks(spectrum)
			if len(peaks) >= 2 {
				primary, secondary := spectral.ToSwellComponents(peaks, "buoy_spectral")
				for i, p := range peaks {
					comp := primary
					if i > 0 {
						comp = []domain.SwellComponent{secondary[i-1]}
					}
					events = append(events, e.buildEvent(comp, p.Direction, "buoy_spectral", domain.QualityValid, b.StationID))
				}
				continue
			}
		}

		latest, ok := b.Latest()
		if !ok {
			continue
		}
		if latest.WaveHeight == nil || latest.DominantPeriod == nil || *latest.DominantPeriod < e.cfg.MinPeriod {
			continue
		}

		quality := e.qualityForBuoy(b)
		if quality == domain.QualityExcluded {
			continue
		}
		if domain.AgeHours(latest.Timestamp) > 24 {
			quality = domain.QualitySuspect
		}

		direction := 0.0
		if latest.WaveDirection != nil {
			direction = *latest.WaveDirection
		}
		comp := []domain.SwellComponent{{
			Height:     *latest.WaveHeight,
			Period:     *latest.DominantPeriod,
			Direction:  direction,
			Confidence: 0.7,
			Source:     "buoy",
			Quality:    quality,
		}}
		events = append(events, e.buildEvent(comp, direction, "buoy", quality, b.StationID))
	}
	return events
}

// qualityForBuoy is a conservative single-buoy heuristic: the full §4.G
// cross-buoy quality-flag pipeline runs in the buoy processor/specialist;
// here the fusion engine only needs the unphysical and single-scan
// excluded checks that don't require pooling across buoys. Age is handled
// by the caller, which downgrades a >24h observation to suspect.
func (e *Engine) qualityForBuoy(b domain.BuoyData) domain.Quality {
	latest, ok := b.Latest()
	if !ok {
		return domain.QualityExcluded
	}
	if latest.WaveHeight != nil && *latest.WaveHeight > 10.0 {
		return domain.QualityExcluded
	}
	if len(b.Observations) <= 2 && latest.WaveHeight != nil && *latest.WaveHeight > 2.5 {
		return domain.QualityExcluded
	}
	return domain.QualityValid
}

func (e *Engine) buildEvent(components []domain.SwellComponent, direction float64, source string, quality domain.Quality, stationID string) domain.SwellEvent {
	h, t := 0.0, 0.0
	if len(components) > 0 {
		h = components[0].Height
		t = components[0].Period
	}
	sig := domain.Significance(h, t)
	return domain.SwellEvent{
		ID:                domain.GenerateEventID(source, stationID, fmt.Sprintf("%.2f", direction), fmt.Sprintf("%.2f", h)),
		Start:             domain.Now(),
		PrimaryDirection:  direction,
		Significance:      sig,
		HawaiianFeet:      domain.ToHawaiianFeet(h),
		SourceLabel:       source,
		Quality:           quality,
		PrimaryComponents: components,
		Metadata:          map[string]any{},
	}
}

func (e *Engine) extractModelEvents(in Input) []domain.SwellEvent {
	var events []domain.SwellEvent
	for _, m := range in.Models {
		hasPreExtracted := false
		for _, f := range m.Forecasts {
			if len(f.Events) > 0 {
				hasPreExtracted = true
				events = append(events, f.Events...)
			}
		}
		if hasPreExtracted {
			continue
		}

		best, ok := wavemodel.PeakConditions(m.Forecasts)
		if !ok {
			continue
		}
		var bestPoint *domain.WaveModelPoint
		for i := range best.Points {
			p := &best.Points[i]
			if p.Height == nil {
				continue
			}
			if bestPoint == nil || *p.Height > *bestPoint.Height {
				bestPoint = p
			}
		}
		if bestPoint == nil {
			continue
		}
		direction := 0.0
		if bestPoint.Direction != nil {
			direction = *bestPoint.Direction
		}
		period := 12.0
		if bestPoint.Period != nil {
			period = *bestPoint.Period
		}
		comp := []domain.SwellComponent{{
			Height:     *bestPoint.Height,
			Period:     period,
			Direction:  direction,
			Confidence: 0.75,
			Source:     "model",
			Quality:    domain.QualityValid,
		}}
		events = append(events, e.buildEvent(comp, direction, "model", domain.QualityValid, m.ModelID))
	}
	return events
}

// mergeEvents collapses same-source-type events within 24h whose primary
// directions differ by <= 45 degrees, to the higher-significance event.
func mergeEvents(events []domain.SwellEvent) []domain.SwellEvent {
	merged := make([]domain.SwellEvent, 0, len(events))
	used := make([]bool, len(events))

	for i := range events {
		if used[i] {
			continue
		}
		best := events[i]
		used[i] = true
		for j := i + 1; j < len(events); j++ {
			if used[j] {
				continue
			}
			if events[j].SourceLabel != best.SourceLabel {
				continue
			}
			if math.Abs(events[j].Start.Sub(best.Start).Hours()) > 24 {
				continue
			}
			if domain.AngularDifference(events[j].PrimaryDirection, best.PrimaryDirection) > 45 {
				continue
			}
			used[j] = true
			if events[j].Significance > best.Significance {
				best = events[j]
			}
		}
		merged = append(merged, best)
	}
	return merged
}

func (e *Engine) mapEventsToShores(forecast *domain.SwellForecast) {
	for li := range forecast.Locations {
		loc := &forecast.Locations[li]
		shore, ok := domain.ShoreByName(loc.Name)
		if !ok {
			continue
		}
		for ei, ev := range forecast.Events {
			factor := domain.ExposureFactor(shore, ev.PrimaryDirection)
			if factor <= 0 {
				continue
			}
			loc.EventIndices = append(loc.EventIndices, ei)
			loc.Metadata[fmt.Sprintf("exposure_%s", loc.Name)] = factor
		}
	}
}

func (e *Engine) computeLocationQuality(forecast *domain.SwellForecast, in Input) {
	now := domain.Now()
	for li := range forecast.Locations {
		loc := &forecast.Locations[li]
		shore, ok := domain.ShoreByName(loc.Name)
		if !ok {
			continue
		}
		seasonal := domain.SeasonalFactor(shore, now)
		windFactor := 0.5
		if v, ok := in.WindFactorByShore[loc.Name]; ok {
			windFactor = v
		}

		bestSig, bestExposure := 0.0, 0.0
		for _, idx := range loc.EventIndices {
			if idx < 0 || idx >= len(forecast.Events) {
				continue
			}
			ev := forecast.Events[idx]
			exposure := domain.ExposureFactor(shore, ev.PrimaryDirection)
			if ev.Significance*exposure > bestSig*bestExposure {
				bestSig = ev.Significance
				bestExposure = exposure
			}
		}

		quality := 0.3*seasonal + 0.4*windFactor + 0.3*(bestSig*bestExposure)
		if quality > 1 {
			quality = 1
		}
		if quality < 0 {
			quality = 0
		}
		loc.Metadata["seasonal_factor"] = seasonal
		loc.Metadata["wind_factor"] = windFactor
		loc.Metadata["overall_quality"] = quality
	}
}

func (e *Engine) integrateAuxiliary(forecast *domain.SwellForecast, aux AuxiliaryFeeds) {
	if aux.METAR != nil {
		forecast.Metadata["weather"] = aux.METAR
	}
	if len(aux.Tides) > 0 {
		n := len(aux.Tides)
		if n > 3 {
			n = 3
		}
		forecast.Metadata["tides"] = aux.Tides[:n]
	}
	if aux.TropicalHeadline != "" {
		forecast.Metadata["tropical"] = aux.TropicalHeadline
	}
	if len(aux.ChartURIs) > 0 {
		forecast.Metadata["charts"] = aux.ChartURIs
	}
	if aux.Altimetry != nil {
		forecast.Metadata["altimetry"] = aux.Altimetry
	}
	if aux.Nearshore != nil {
		forecast.Metadata["nearshore"] = aux.Nearshore
	}
	if len(aux.UpperAir) > 0 {
		forecast.Metadata["upper_air"] = summarizeUpperAir(aux.UpperAir)
	}
	if aux.Climatology != nil {
		forecast.Metadata["climatology"] = aux.Climatology
	}
	if len(aux.WeatherTextCounts) > 0 {
		forecast.Metadata["weather_text_counts"] = aux.WeatherTextCounts
	}
}

// summarizeUpperAir groups upper-air diagnostics by pressure level, e.g.
// "250 hPa: 2 diagnostic(s) available".
func summarizeUpperAir(entries []map[string]any) []string {
	byLevel := map[string]int{}
	for _, entry := range entries {
		level := fmt.Sprintf("%v", entry["pressure_level"])
		byLevel[level]++
	}
	summaries := make([]string, 0, len(byLevel))
	for level, count := range byLevel {
		summaries = append(summaries, fmt.Sprintf("%s hPa: %d diagnostic(s) available", level, count))
	}
	return summaries
}
