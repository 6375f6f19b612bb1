// Package pressureanalyst implements the §4.L Pressure-Chart Analyst
// specialist: a vision-LLM call over a sequence of pressure-chart images,
// parsing storm systems and predicted swells out of structured JSON, then
// physics-enhancing each predicted swell's arrival time via the
// propagation calculator.
package pressureanalyst

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/stonezone/surfcast-fusion/internal/domain"
	"github.com/stonezone/surfcast-fusion/internal/llm"
	"github.com/stonezone/surfcast-fusion/internal/propagation"
)

var allowedExtensions = map[string]bool{
	".png": true, ".jpg": true, ".jpeg": true, ".gif": true, ".webp": true,
}

// ChartImage is one input pressure-chart image.
type ChartImage struct {
	Path      string
	Timestamp time.Time
}

// Fetch is a wind-fetch window feeding a storm system's swell generation.
type Fetch struct {
	Direction   string  `json:"direction"`
	DistanceNM  float64 `json:"distance_nm"`
	DurationHrs float64 `json:"duration_hrs"`
	Quality     string  `json:"quality"` // strong|moderate|weak
}

// System is one identified pressure system (low, high, front).
type System struct {
	Type            string  `json:"type"`
	Location        string  `json:"location"`
	Lat             float64 `json:"lat"`
	Lon             float64 `json:"lon"`
	PressureMB      float64 `json:"pressure_mb"`
	WindSpeedKt     float64 `json:"wind_speed_kt"`
	Movement        string  `json:"movement"`
	Intensification string  `json:"intensification"`
	Fetch           Fetch   `json:"fetch"`
}

// PredictedSwell is one storm-to-Hawaii swell prediction, enhanced with
// §4.F physics once source lat/lon/period are available.
type PredictedSwell struct {
	SourceSystem      string  `json:"source_system"`
	SourceLat         float64 `json:"source_lat"`
	SourceLon         float64 `json:"source_lon"`
	Direction         string  `json:"direction"`
	DirectionDegrees  float64 `json:"direction_degrees"`
	ArrivalWindow     string  `json:"arrival_window"`
	HeightRangeM      [2]float64 `json:"height_range_m"`
	PeriodRangeS      [2]float64 `json:"period_range_s"`
	Confidence        float64 `json:"confidence"`
	GenerationTime    time.Time `json:"-"`
	LLMArrival        string     // preserved original LLM estimate, per §4.L point 4
	EnhancedArrival   *time.Time // physics-based override
	TravelTimeHrs     float64
	GroupVelocityKnots float64
}

// FrontalBoundary is one identified frontal system on a chart.
type FrontalBoundary struct {
	Type     string `json:"type"`
	Location string `json:"location"`
	Movement string `json:"movement"`
}

// rawResponse mirrors the vision LLM's structured JSON contract.
type rawResponse struct {
	Systems          []System          `json:"systems"`
	PredictedSwells  []rawSwell        `json:"predicted_swells"`
	FrontalBoundaries []FrontalBoundary `json:"frontal_boundaries"`
}

// rawSwell additionally carries the generation timestamp as a string, since
// the vision model reports it in ISO-8601 rather than a Go time.Time.
type rawSwell struct {
	PredictedSwell
	GenerationTimeISO string `json:"generation_time"`
}

// Data is the pressure analyst's structured output, per §4.L.
type Data struct {
	Systems           []System
	PredictedSwells   []PredictedSwell
	FrontalBoundaries []FrontalBoundary
}

// Analyst is the constructor-injected §4.L specialist.
type Analyst struct {
	client    llm.Client
	retryCfg  llm.RetryConfig
	modelName string
}

// New constructs an Analyst bound to a vision-capable LLM client.
func New(client llm.Client, modelName string) *Analyst {
	return &Analyst{client: client, retryCfg: llm.DefaultRetryConfig, modelName: modelName}
}

// WithRetryConfig overrides the LLM retry/backoff policy, returning a for
// chaining.
func (a *Analyst) WithRetryConfig(cfg llm.RetryConfig) *Analyst {
	if cfg.MaxRetries > 0 {
		a.retryCfg = cfg
	}
	return a
}

// Analyze validates the chart images, invokes the vision LLM, parses its
// JSON response (falling back to an empty structured payload on parse
// failure per §7's LLMFormatError disposition), physics-enhances the
// predicted swells, and returns the SpecialistOutput.
func (a *Analyst) Analyze(ctx context.Context, images []ChartImage, region string) (domain.SpecialistOutput, error) {
	valid := validImages(images)

	llmImages := make([]llm.Image, len(valid))
	for i, img := range valid {
		llmImages[i] = llm.Image{Path: img.Path, Detail: llm.DetailHigh}
	}

	narrative, _, err := llm.GenerateWithRetry(ctx, a.client, a.retryCfg, systemPrompt(), userPrompt(valid, region), llmImages)
	if err != nil {
		return domain.SpecialistOutput{}, fmt.Errorf("pressure analyst: %w", err)
	}

	data, parseErr := parseResponse(narrative)
	if parseErr != nil {
		// §7 LLMFormatError: empty structured data, narrative still used.
		data = Data{}
	}

	enhanceArrivals(&data)

	confidenceScore := confidence(data, valid)

	return domain.SpecialistOutput{
		Kind:       domain.SpecialistPressure,
		Confidence: confidenceScore,
		Data:       data,
		Narrative:  narrative,
		Metadata:   domain.NewSpecialistMetadata(),
	}, nil
}

func validImages(images []ChartImage) []ChartImage {
	out := make([]ChartImage, 0, len(images))
	for _, img := range images {
		ext := strings.ToLower(filepath.Ext(img.Path))
		if !allowedExtensions[ext] {
			continue
		}
		if _, err := os.Stat(img.Path); err != nil {
			continue
		}
		out = append(out, img)
	}
	return out
}

func systemPrompt() string {
	return "You are a marine meteorologist analyzing surface pressure chart imagery " +
		"for a Hawaii surf forecast. Respond with JSON only, no prose outside the " +
		"JSON object, matching this shape: {\"systems\":[{\"type\":\"\",\"location\":\"\"," +
		"\"lat\":0,\"lon\":0,\"pressure_mb\":0,\"wind_speed_kt\":0,\"movement\":\"\"," +
		"\"intensification\":\"\",\"fetch\":{\"direction\":\"\",\"distance_nm\":0," +
		"\"duration_hrs\":0,\"quality\":\"\"}}],\"predicted_swells\":[{\"source_system\":\"\"," +
		"\"source_lat\":0,\"source_lon\":0,\"direction\":\"\",\"direction_degrees\":0," +
		"\"arrival_window\":\"\",\"height_range_m\":[0,0],\"period_range_s\":[0,0]," +
		"\"confidence\":0,\"generation_time\":\"\"}],\"frontal_boundaries\":[{\"type\":\"\"," +
		"\"location\":\"\",\"movement\":\"\"}]}"
}

func userPrompt(images []ChartImage, region string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Region: %s\n%d chart(s) in chronological order:\n", region, len(images))
	for _, img := range images {
		fmt.Fprintf(&b, "- %s (%s)\n", img.Path, img.Timestamp.Format(time.RFC3339))
	}
	return b.String()
}

// parseResponse strips Markdown code fences (LLMs frequently wrap JSON in
// ```json ... ``` blocks despite being told not to) and unmarshals the
// remaining text.
func parseResponse(text string) (Data, error) {
	cleaned := stripFences(text)

	var raw rawResponse
	if err := json.Unmarshal([]byte(cleaned), &raw); err != nil {
		return Data{}, fmt.Errorf("%w: %w", domain.ErrLLMFormat, err)
	}

	swells := make([]PredictedSwell, len(raw.PredictedSwells))
	for i, rs := range raw.PredictedSwells {
		swells[i] = rs.PredictedSwell
		if t, err := time.Parse(time.RFC3339, rs.GenerationTimeISO); err == nil {
			swells[i].GenerationTime = t
		}
		swells[i].LLMArrival = rs.ArrivalWindow
	}

	return Data{
		Systems:           raw.Systems,
		PredictedSwells:   swells,
		FrontalBoundaries: raw.FrontalBoundaries,
	}, nil
}

func stripFences(text string) string {
	t := strings.TrimSpace(text)
	t = strings.TrimPrefix(t, "```json")
	t = strings.TrimPrefix(t, "```")
	t = strings.TrimSuffix(t, "```")
	return strings.TrimSpace(t)
}

// enhanceArrivals applies §4.F's physics-based arrival calculator to every
// predicted swell that carries a source location, a period, and a
// generation time, overwriting the LLM's own estimate while preserving it
// as LLMArrival.
func enhanceArrivals(data *Data) {
	for i := range data.PredictedSwells {
		s := &data.PredictedSwells[i]
		if s.SourceLat == 0 && s.SourceLon == 0 {
			continue
		}
		if s.PeriodRangeS[1] <= 0 || s.GenerationTime.IsZero() {
			continue
		}
		period := s.PeriodRangeS[1]
		arrival, details := propagation.Arrival(s.SourceLat, s.SourceLon, period, s.GenerationTime)
		s.EnhancedArrival = &arrival
		s.TravelTimeHrs = details.TravelHours
		s.GroupVelocityKnots = details.GroupVelocityKnots
	}
}

// confidence implements §4.L point 5.
func confidence(data Data, images []ChartImage) float64 {
	completeness := completenessScore(len(images))
	consistency := consistencyScore(data.Systems)
	quality := qualityScore(data.PredictedSwells)

	if spanHours(images) >= 24 {
		quality *= 1.1
		if quality > 1 {
			quality = 1
		}
	}

	score := 0.5*quality + 0.3*consistency + 0.2*completeness
	if score > 1 {
		return 1
	}
	if score < 0 {
		return 0
	}
	return score
}

func completenessScore(n int) float64 {
	switch {
	case n >= 6:
		return 1.0
	case n >= 4:
		return 0.8
	case n >= 2:
		return 0.6
	default:
		return 0.4
	}
}

var fetchQualityScore = map[string]float64{
	"strong":   1.0,
	"moderate": 0.7,
	"weak":     0.4,
}

func consistencyScore(systems []System) float64 {
	if len(systems) == 0 {
		return 0.5
	}
	sum := 0.0
	n := 0
	for _, s := range systems {
		if v, ok := fetchQualityScore[strings.ToLower(s.Fetch.Quality)]; ok {
			sum += v
			n++
		}
	}
	if n == 0 {
		return 0.5
	}
	return sum / float64(n)
}

func qualityScore(swells []PredictedSwell) float64 {
	if len(swells) == 0 {
		return 0.4
	}
	sum := 0.0
	for _, s := range swells {
		sum += s.Confidence
	}
	return sum / float64(len(swells))
}

func spanHours(images []ChartImage) float64 {
	if len(images) < 2 {
		return 0
	}
	sorted := append([]ChartImage(nil), images...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Timestamp.Before(sorted[j].Timestamp) })
	return sorted[len(sorted)-1].Timestamp.Sub(sorted[0].Timestamp).Hours()
}
