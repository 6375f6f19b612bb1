// Package prepare implements the §4.J Forecast-Data Preparer: filters
// excluded data from a fused SwellForecast, builds per-shore and overall
// digests, collects and ranks bundle images under a token budget.
package prepare

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/stonezone/surfcast-fusion/internal/domain"
)

// Season is the four-way seasonal bucket used for narrative context.
type Season string

const (
	SeasonWinter Season = "winter" // Nov-Mar
	SeasonSpring Season = "spring" // Apr-May
	SeasonSummer Season = "summer" // Jun-Aug
	SeasonFall   Season = "fall"   // Sep-Oct
)

// SeasonFor classifies a date into one of the four seasonal buckets.
func SeasonFor(t time.Time) Season {
	switch t.Month() {
	case time.November, time.December, time.January, time.February, time.March:
		return SeasonWinter
	case time.April, time.May:
		return SeasonSpring
	case time.June, time.July, time.August:
		return SeasonSummer
	default:
		return SeasonFall
	}
}

const defaultDigestEventCount = 6

// Prepared is the prompt-ready structure handed to the specialists.
type Prepared struct {
	Forecast        *domain.SwellForecast
	ShoreDigests    map[string][]string
	OverallDigest   map[string]string // 4 fixed sections + up to 5 optional
	SeasonalContext map[string]string // per-shore narrative
	Images          []Image
	TokenEstimate   int
}

// FilterExcluded drops every SwellEvent (and component) flagged excluded,
// and drops events whose remaining component set is empty, logging each
// removal at WARN. Returns a new forecast; the input is not mutated.
func FilterExcluded(logger *slog.Logger, forecast *domain.SwellForecast) *domain.SwellForecast {
	if logger == nil {
		logger = slog.Default()
	}
	out := &domain.SwellForecast{
		ForecastID: forecast.ForecastID,
		Generated:  forecast.Generated,
		Metadata:   forecast.Metadata,
	}

	indexRemap := map[int]int{}
	for oldIdx, ev := range forecast.Events {
		if ev.Quality == domain.QualityExcluded {
			logger.Warn("dropping excluded event", "event_id", ev.ID)
			continue
		}
		filtered := ev
		filtered.PrimaryComponents = filterComponents(logger, ev.ID, ev.PrimaryComponents)
		filtered.SecondaryComponents = filterComponents(logger, ev.ID, ev.SecondaryComponents)
		if len(filtered.PrimaryComponents) == 0 {
			logger.Warn("dropping event with no remaining components", "event_id", ev.ID)
			continue
		}
		indexRemap[oldIdx] = len(out.Events)
		out.Events = append(out.Events, filtered)
	}

	for _, loc := range forecast.Locations {
		newIndices := make([]int, 0, len(loc.EventIndices))
		for _, idx := range loc.EventIndices {
			if newIdx, ok := indexRemap[idx]; ok {
				newIndices = append(newIndices, newIdx)
			}
		}
		loc.EventIndices = newIndices
		out.Locations = append(out.Locations, loc)
	}
	return out
}

func filterComponents(logger *slog.Logger, eventID string, components []domain.SwellComponent) []domain.SwellComponent {
	out := make([]domain.SwellComponent, 0, len(components))
	for _, c := range components {
		if c.Quality == domain.QualityExcluded {
			logger.Warn("dropping excluded component", "event_id", eventID, "source", c.Source)
			continue
		}
		out = append(out, c)
	}
	return out
}

// BuildShoreDigests summarizes, per shore, up to N events ordered by
// Hawaiian-scale height descending, as human-readable lines.
func BuildShoreDigests(forecast *domain.SwellForecast, n int) map[string][]string {
	if n <= 0 {
		n = defaultDigestEventCount
	}
	hst := time.FixedZone("HST", -10*3600)
	digests := make(map[string][]string, len(forecast.Locations))

	for _, loc := range forecast.Locations {
		events := forecast.EventsForLocation(loc)
		sort.SliceStable(events, func(i, j int) bool { return events[i].HawaiianFeet > events[j].HawaiianFeet })
		if len(events) > n {
			events = events[:n]
		}

		lines := make([]string, 0, len(events))
		for _, ev := range events {
			exposure := loc.Metadata[fmt.Sprintf("exposure_%s", loc.Name)]
			window := ev.Start.In(hst).Format("Jan 2 15:04 MST")
			lines = append(lines, fmt.Sprintf(
				"%.1fft %s swell from %s, source=%s, exposure=%v, window=%s",
				ev.HawaiianFeet, ev.PrimaryDirectionCardinal(), ev.PrimaryDirectionCardinal(), ev.SourceLabel, exposure, window,
			))
		}
		digests[loc.Name] = lines
	}
	return digests
}

// BuildOverallDigest produces the sectioned textual summary: confidence,
// swell matrix, timeline and data gaps always, plus weather, tides,
// upper-air, climatology and tropical sections when present in metadata.
func BuildOverallDigest(forecast *domain.SwellForecast) map[string]string {
	digest := map[string]string{}

	confidenceVal, _ := forecast.Metadata["confidence"].(float64)
	digest["quality_and_confidence"] = fmt.Sprintf("overall confidence %.2f", confidenceVal)

	var matrixLines []string
	for _, ev := range forecast.Events {
		h13 := ev.HawaiianFeet
		h110 := h13 * 1.3
		matrixLines = append(matrixLines, fmt.Sprintf("%s: H1/3=%.1fft H1/10~%.1fft", ev.ID, h13, h110))
	}
	digest["swell_matrix"] = strings.Join(matrixLines, "; ")

	digest["timeline"] = buildTimeline(forecast)

	if weather, ok := forecast.Metadata["weather"]; ok {
		digest["weather_snapshot"] = fmt.Sprintf("%v", weather)
	}
	if tides, ok := forecast.Metadata["tides"]; ok {
		digest["tides"] = fmt.Sprintf("%v", tides)
	}
	if upper, ok := forecast.Metadata["upper_air"]; ok {
		digest["upper_air"] = fmt.Sprintf("%v", upper)
	}
	if climo, ok := forecast.Metadata["climatology"]; ok {
		digest["climatology"] = fmt.Sprintf("%v", climo)
	}
	if tropical, ok := forecast.Metadata["tropical"]; ok {
		digest["tropical"] = fmt.Sprintf("%v", tropical)
	}

	digest["data_gaps"] = describeGaps(forecast)
	return digest
}

func buildTimeline(forecast *domain.SwellForecast) string {
	hst := time.FixedZone("HST", -10*3600)
	byDay := map[string][]string{}
	for _, ev := range forecast.Events {
		day := ev.Start.In(hst).Format("Jan 2")
		byDay[day] = append(byDay[day], fmt.Sprintf("%s %.1fft", ev.PrimaryDirectionCardinal(), ev.HawaiianFeet))
	}
	days := make([]string, 0, len(byDay))
	for day := range byDay {
		days = append(days, day)
	}
	sort.Strings(days)

	var lines []string
	for _, day := range days {
		lines = append(lines, fmt.Sprintf("%s: %s", day, strings.Join(byDay[day], ", ")))
	}
	return strings.Join(lines, " | ")
}

func describeGaps(forecast *domain.SwellForecast) string {
	var missing []string
	if _, ok := forecast.Metadata["weather"]; !ok {
		missing = append(missing, "weather")
	}
	if _, ok := forecast.Metadata["tides"]; !ok {
		missing = append(missing, "tides")
	}
	if len(missing) == 0 {
		return "no known data gaps"
	}
	return "missing: " + strings.Join(missing, ", ")
}

// BuildSeasonalContext produces a per-shore narrative string for the
// current season.
func BuildSeasonalContext(at time.Time) map[string]string {
	season := SeasonFor(at)
	out := make(map[string]string, len(domain.Shores))
	for _, shore := range domain.Shores {
		rating := domain.SeasonalFactor(shore, at)
		out[shore.Name] = fmt.Sprintf("%s season, seasonal rating %.1f for the %s shore", season, rating, shore.Name)
	}
	return out
}

// ImageCategory classifies a bundle image.
type ImageCategory string

const (
	ImagePressure  ImageCategory = "pressure"
	ImageWaveModel ImageCategory = "wave_model"
	ImageSatellite ImageCategory = "satellite"
	ImageSST       ImageCategory = "sst"
)

// Detail is the LLM vision detail level for one image.
type Detail string

const (
	DetailHigh Detail = "high"
	DetailAuto Detail = "auto"
	DetailLow  Detail = "low"
)

// imageTokenCost maps detail level to its estimated token cost.
var imageTokenCost = map[Detail]int{
	DetailHigh: 3000,
	DetailAuto: 1500,
	DetailLow:  500,
}

// Image is one bundle image selected for specialist prompts.
type Image struct {
	Path        string
	Category    ImageCategory
	Detail      Detail
	Timestamp   time.Time
	Description string
}

// chartMetadataEntry mirrors one element of charts/metadata.json.
type chartMetadataEntry struct {
	Status   string `json:"status"`
	FilePath string `json:"file_path"`
}

// CollectImages walks a bundle directory's charts/, satellite/, and
// models/ subdirectories, classifying files by name and reading
// charts/metadata.json for status/order. Missing bundle directory returns
// an empty set, not an error, per §7.
func CollectImages(logger *slog.Logger, bundleDir string) []Image {
	if logger == nil {
		logger = slog.Default()
	}
	if _, err := os.Stat(bundleDir); err != nil {
		logger.Info("bundle directory missing, empty image set", "bundle_dir", bundleDir)
		return nil
	}

	var images []Image
	images = append(images, collectCharts(logger, filepath.Join(bundleDir, "charts"))...)
	images = append(images, collectDir(filepath.Join(bundleDir, "satellite", "satellite"), ImageSatellite)...)
	images = append(images, collectDir(filepath.Join(bundleDir, "models"), ImageWaveModel)...)
	return images
}

func collectCharts(logger *slog.Logger, dir string) []Image {
	entries := readChartMetadata(logger, filepath.Join(dir, "metadata.json"))

	var images []Image
	for _, entry := range entries {
		if entry.Status != "" && entry.Status != "ok" && entry.Status != "success" {
			continue
		}
		category := ImagePressure
		base := strings.ToLower(filepath.Base(entry.FilePath))
		if strings.HasPrefix(base, "sst_") || strings.HasPrefix(base, "sea_surface_temp") {
			category = ImageSST
		}
		images = append(images, Image{Path: entry.FilePath, Category: category})
	}
	return images
}

func readChartMetadata(logger *slog.Logger, path string) []chartMetadataEntry {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil
	}
	var entries []chartMetadataEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		logger.Warn("chart metadata parse failed", "path", path, "error", err)
		return nil
	}
	return entries
}

func collectDir(dir string, category ImageCategory) []Image {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	var images []Image
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		images = append(images, Image{Path: filepath.Join(dir, e.Name()), Category: category})
	}
	return images
}

const maxSelectedImages = 10

// SelectCriticalImages applies the priority-ordered selection with the
// hard cap (default 10, never more than 4 of any single type): up to 4
// pressure charts (default high detail), up to 4 wave-model charts
// (default auto), 1 latest satellite (default auto), 1 SST (default low).
func SelectCriticalImages(images []Image, maxImages int) []Image {
	if maxImages <= 0 {
		maxImages = maxSelectedImages
	}

	pressure := filterAndSort(images, ImagePressure, 4)
	waveModel := filterAndSort(images, ImageWaveModel, 4)
	satellite := latestOf(images, ImageSatellite, 1)
	sst := latestOf(images, ImageSST, 1)

	selected := make([]Image, 0, maxImages)
	selected = append(selected, applyDetail(pressure, DetailHigh, "Pressure forecast")...)
	selected = append(selected, applyDetail(waveModel, DetailAuto, "Wave model forecast")...)
	selected = append(selected, applyDetail(satellite, DetailAuto, "Satellite imagery")...)
	selected = append(selected, applyDetail(sst, DetailLow, "Sea surface temperature")...)

	if len(selected) > maxImages {
		selected = selected[:maxImages]
	}
	return selected
}

func filterAndSort(images []Image, category ImageCategory, limit int) []Image {
	var matched []Image
	for _, img := range images {
		if img.Category == category {
			matched = append(matched, img)
		}
	}
	sort.SliceStable(matched, func(i, j int) bool { return matched[i].Timestamp.Before(matched[j].Timestamp) })
	if len(matched) > limit {
		matched = matched[:limit]
	}
	return matched
}

func latestOf(images []Image, category ImageCategory, limit int) []Image {
	var matched []Image
	for _, img := range images {
		if img.Category == category {
			matched = append(matched, img)
		}
	}
	sort.SliceStable(matched, func(i, j int) bool { return matched[i].Timestamp.After(matched[j].Timestamp) })
	if len(matched) > limit {
		matched = matched[:limit]
	}
	return matched
}

func applyDetail(images []Image, detail Detail, label string) []Image {
	out := make([]Image, len(images))
	for i, img := range images {
		img.Detail = detail
		if img.Description == "" {
			img.Description = label
		}
		out[i] = img
	}
	return out
}

// EstimateTokens applies §4.J point 7's budget formula: text_chars/4 +
// base_prompt_5000 + output_10000 + sum of per-image costs.
func EstimateTokens(textChars int, images []Image) int {
	total := textChars/4 + 5000 + 10000
	for _, img := range images {
		if cost, ok := imageTokenCost[img.Detail]; ok {
			total += cost
		}
	}
	return total
}
