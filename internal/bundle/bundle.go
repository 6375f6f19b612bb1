// Package bundle loads one forecast run's on-disk inputs — NDBC buoy rows,
// wave-model runs (JSON or native NetCDF), pressure-chart images, and raw
// weather periods — into a pipeline.Request, the same crawler-output
// assembly role the teacher's extract stage played for storm events.
package bundle

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/stonezone/surfcast-fusion/internal/adapter/wavenc"
	"github.com/stonezone/surfcast-fusion/internal/domain"
	"github.com/stonezone/surfcast-fusion/internal/fusion"
	"github.com/stonezone/surfcast-fusion/internal/pipeline"
	"github.com/stonezone/surfcast-fusion/internal/processing/weather"
	"github.com/stonezone/surfcast-fusion/internal/specialist/pressureanalyst"
)

var chartExtensions = map[string]bool{
	".png": true, ".jpg": true, ".jpeg": true, ".gif": true, ".webp": true,
}

// rawBuoy mirrors one station's entry in buoys.json: a sequence of raw NDBC
// fixed-field rows, each with an explicit observation timestamp since NDBC
// itself doesn't carry one per row in the wire format this bundle uses.
type rawBuoy struct {
	StationID string           `json:"station_id"`
	Name      string           `json:"name"`
	Lat       float64          `json:"lat"`
	Lon       float64          `json:"lon"`
	Rows      []rawBuoyRow     `json:"rows"`
}

type rawBuoyRow struct {
	Timestamp time.Time      `json:"timestamp"`
	Fields    map[string]any `json:"fields"`
}

// rawWeatherPeriod is one NWS gridpoint period before unit normalization.
type rawWeatherPeriod struct {
	Timestamp        time.Time `json:"timestamp"`
	WindSpeed        float64   `json:"wind_speed"`
	WindSpeedUnit    string    `json:"wind_speed_unit"`
	WindDirection    float64   `json:"wind_direction"`
	TemperatureValue float64   `json:"temperature"`
	TemperatureUnit  string    `json:"temperature_unit"`
	ShortForecast    string    `json:"short_forecast"`
	DetailedForecast string    `json:"detailed_forecast"`
}

// Load reads every recognized file under dir and assembles a pipeline.Request.
// Missing optional inputs (models, charts, weather, aux) are simply omitted
// rather than treated as errors. It fails when dir cannot be stat'ed or when
// buoys.json or models.json exists but cannot be read or parsed; malformed
// weather.json and aux.json are logged and skipped.
func Load(logger *slog.Logger, dir, region string) (pipeline.Request, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if _, err := os.Stat(dir); err != nil {
		return pipeline.Request{}, fmt.Errorf("bundle: %w", err)
	}

	req := pipeline.Request{
		Region:    region,
		BundleDir: dir,
	}

	buoys, spectra, err := loadBuoys(logger, dir)
	if err != nil {
		return pipeline.Request{}, err
	}
	req.Buoys = buoys
	req.BuoySpectra = spectra

	models, err := loadModels(logger, dir)
	if err != nil {
		return pipeline.Request{}, err
	}
	req.Models = models

	req.ChartImages = loadCharts(logger, dir)

	windFactors, textCounts := loadWeatherAnalysis(logger, dir)
	req.WindFactorByShore = windFactors

	req.Aux = loadAux(logger, dir)
	if textCounts != (weather.TextCounts{}) {
		req.Aux.WeatherTextCounts = map[string]int{
			"rain":    textCounts.Rain,
			"shower":  textCounts.Shower,
			"thunder": textCounts.Thunder,
			"storm":   textCounts.Storm,
			"sunny":   textCounts.Sunny,
			"clear":   textCounts.Clear,
			"cloudy":  textCounts.Cloudy,
		}
	}

	req.PresentSourceClasses = map[string]bool{
		"buoys":  len(req.Buoys) > 0,
		"models": len(req.Models) > 0,
		"charts": len(req.ChartImages) > 0,
	}

	return req, nil
}

func loadBuoys(logger *slog.Logger, dir string) ([]domain.BuoyData, map[string]any, error) {
	path := filepath.Join(dir, "buoys.json")
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("bundle: read buoys.json: %w", err)
	}

	var raw []rawBuoy
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, nil, fmt.Errorf("bundle: parse buoys.json: %w", err)
	}

	out := make([]domain.BuoyData, 0, len(raw))
	for _, rb := range raw {
		observations := make([]domain.Observation, 0, len(rb.Rows))
		for _, row := range rb.Rows {
			observations = append(observations, domain.ParseNDBCRow(logger, row.Fields, row.Timestamp))
		}
		bd := domain.BuoyData{
			StationID:    rb.StationID,
			Name:         rb.Name,
			Lat:          rb.Lat,
			Lon:          rb.Lon,
			Observations: observations,
		}
		bd.SortObservationsDescending()
		out = append(out, bd)
	}
	return out, nil, nil
}

// loadModels reads models.json (pre-extracted JSON ModelData records) and
// any *.nc files under models/, returning the JSON runs followed by every
// readable native grid; unreadable grids are logged and skipped.
func loadModels(logger *slog.Logger, dir string) ([]domain.ModelData, error) {
	var out []domain.ModelData

	jsonPath := filepath.Join(dir, "models.json")
	if data, err := os.ReadFile(jsonPath); err == nil {
		var models []domain.ModelData
		if err := json.Unmarshal(data, &models); err != nil {
			return nil, fmt.Errorf("bundle: parse models.json: %w", err)
		}
		for i := range models {
			models[i].SortForecastsAscending()
		}
		out = append(out, models...)
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("bundle: read models.json: %w", err)
	}

	modelsDir := filepath.Join(dir, "models")
	entries, err := os.ReadDir(modelsDir)
	if err != nil {
		if os.IsNotExist(err) {
			return out, nil
		}
		return nil, fmt.Errorf("bundle: read models dir: %w", err)
	}

	region := wavenc.HawaiiRegion()
	for _, entry := range entries {
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(entry.Name()), ".nc") {
			continue
		}
		modelID := strings.TrimSuffix(entry.Name(), filepath.Ext(entry.Name()))
		path := filepath.Join(modelsDir, entry.Name())
		grid, err := wavenc.Load(path, modelID, region)
		if err != nil {
			logger.Warn("skipping unreadable netcdf grid", "path", path, "error", err)
			continue
		}
		out = append(out, grid)
	}
	return out, nil
}

func loadCharts(logger *slog.Logger, dir string) []pressureanalyst.ChartImage {
	chartsDir := filepath.Join(dir, "charts")
	entries, err := os.ReadDir(chartsDir)
	if err != nil {
		return nil
	}

	out := make([]pressureanalyst.ChartImage, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !chartExtensions[strings.ToLower(filepath.Ext(entry.Name()))] {
			continue
		}
		path := filepath.Join(chartsDir, entry.Name())
		info, err := entry.Info()
		ts := domain.Now()
		if err == nil {
			ts = info.ModTime()
		} else {
			logger.Warn("chart stat failed, using current time", "path", path, "error", err)
		}
		out = append(out, pressureanalyst.ChartImage{Path: path, Timestamp: ts})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return out
}

// loadWeatherAnalysis reads weather.json and runs both halves of the §4.G
// Weather Processor over it: ClassifyWind against the most recent period's
// wind (producing the per-shore surf-impact factors the fusion engine
// applies) and AnalyzeText across every period's forecast strings
// (producing the condition-keyword tallies fusion attaches to
// metadata.weather_text_counts).
func loadWeatherAnalysis(logger *slog.Logger, dir string) (map[string]float64, weather.TextCounts) {
	path := filepath.Join(dir, "weather.json")
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, weather.TextCounts{}
	}

	var raw []rawWeatherPeriod
	if err := json.Unmarshal(data, &raw); err != nil {
		logger.Warn("bundle: parse weather.json failed", "error", err)
		return nil, weather.TextCounts{}
	}
	if len(raw) == 0 {
		return nil, weather.TextCounts{}
	}

	periods := make([]domain.WeatherPeriod, len(raw))
	for i, r := range raw {
		periods[i] = domain.WeatherPeriod{
			Timestamp:        r.Timestamp,
			ShortForecast:    r.ShortForecast,
			DetailedForecast: r.DetailedForecast,
		}
	}
	textCounts := weather.AnalyzeText(periods)

	sort.Slice(raw, func(i, j int) bool { return raw[i].Timestamp.After(raw[j].Timestamp) })
	latest := raw[0]
	speedMS := weather.NormalizeWindSpeed(latest.WindSpeed, latest.WindSpeedUnit)

	factors := make(map[string]float64, len(domain.Shores))
	for _, shore := range domain.Shores {
		_, impact := weather.ClassifyWind(speedMS, latest.WindDirection, shore.Facing)
		// ClassifyWind reports impact on [-1,1]; fusion's WindFactorByShore
		// is a 0..1 scale, so rescale rather than reinterpret the sign.
		factors[shore.Name] = (impact + 1) / 2
	}
	return factors, textCounts
}

func loadAux(logger *slog.Logger, dir string) fusion.AuxiliaryFeeds {
	path := filepath.Join(dir, "aux.json")
	data, err := os.ReadFile(path)
	if err != nil {
		return fusion.AuxiliaryFeeds{}
	}
	var aux fusion.AuxiliaryFeeds
	if err := json.Unmarshal(data, &aux); err != nil {
		logger.Warn("bundle: parse aux.json failed", "error", err)
		return fusion.AuxiliaryFeeds{}
	}
	return aux
}
