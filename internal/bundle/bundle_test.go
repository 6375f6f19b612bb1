package bundle

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeJSON(t *testing.T, path string, v any) {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o644))
}

func TestLoad_MissingDirReturnsError(t *testing.T) {
	_, err := Load(slog.Default(), filepath.Join(t.TempDir(), "does-not-exist"), "North Pacific")
	assert.Error(t, err)
}

func TestLoad_EmptyDirProducesEmptyRequest(t *testing.T) {
	dir := t.TempDir()
	req, err := Load(slog.Default(), dir, "North Pacific")
	require.NoError(t, err)
	assert.Empty(t, req.Buoys)
	assert.Empty(t, req.Models)
	assert.Empty(t, req.ChartImages)
	assert.Nil(t, req.WindFactorByShore)
	assert.False(t, req.PresentSourceClasses["buoys"])
}

func TestLoad_ParsesBuoysJSON(t *testing.T) {
	dir := t.TempDir()
	now := time.Now().UTC()
	writeJSON(t, filepath.Join(dir, "buoys.json"), []rawBuoy{
		{
			StationID: "51201",
			Name:      "Waimea Bay",
			Lat:       21.67,
			Lon:       -158.07,
			Rows: []rawBuoyRow{
				{Timestamp: now, Fields: map[string]any{"WVHT": 2.5, "DPD": 14.0, "MWD": 315.0}},
				{Timestamp: now.Add(-time.Hour), Fields: map[string]any{"WVHT": 2.3, "DPD": 13.0, "MWD": 310.0}},
			},
		},
	})

	req, err := Load(slog.Default(), dir, "North Pacific")
	require.NoError(t, err)
	require.Len(t, req.Buoys, 1)
	assert.Equal(t, "51201", req.Buoys[0].StationID)
	require.Len(t, req.Buoys[0].Observations, 2)
	assert.InDelta(t, 2.5, *req.Buoys[0].Observations[0].WaveHeight, 0.001)
	assert.True(t, req.PresentSourceClasses["buoys"])
}

func TestLoad_InvalidBuoysJSONErrors(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "buoys.json"), []byte("{not json"), 0o644))
	_, err := Load(slog.Default(), dir, "North Pacific")
	assert.Error(t, err)
}

func TestLoad_CollectsChartImagesSortedByTime(t *testing.T) {
	dir := t.TempDir()
	chartsDir := filepath.Join(dir, "charts")
	require.NoError(t, os.Mkdir(chartsDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(chartsDir, "b.png"), []byte("fake"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(chartsDir, "ignore.txt"), []byte("fake"), 0o644))

	req, err := Load(slog.Default(), dir, "North Pacific")
	require.NoError(t, err)
	require.Len(t, req.ChartImages, 1)
	assert.Contains(t, req.ChartImages[0].Path, "b.png")
	assert.True(t, req.PresentSourceClasses["charts"])
}

func TestLoad_ComputesWindFactorsFromLatestWeatherPeriod(t *testing.T) {
	dir := t.TempDir()
	now := time.Now().UTC()
	writeJSON(t, filepath.Join(dir, "weather.json"), []rawWeatherPeriod{
		{Timestamp: now.Add(-time.Hour), WindSpeed: 5, WindSpeedUnit: "kt", WindDirection: 0},
		{Timestamp: now, WindSpeed: 20, WindSpeedUnit: "kt", WindDirection: 180},
	})

	req, err := Load(slog.Default(), dir, "North Pacific")
	require.NoError(t, err)
	require.NotNil(t, req.WindFactorByShore)
	for _, v := range req.WindFactorByShore {
		assert.GreaterOrEqual(t, v, 0.0)
		assert.LessOrEqual(t, v, 1.0)
	}
}

func TestLoad_AnalyzesWeatherTextIntoAuxCounts(t *testing.T) {
	dir := t.TempDir()
	now := time.Now().UTC()
	writeJSON(t, filepath.Join(dir, "weather.json"), []rawWeatherPeriod{
		{Timestamp: now.Add(-time.Hour), WindSpeed: 5, WindSpeedUnit: "kt", WindDirection: 0,
			ShortForecast: "Rain showers", DetailedForecast: "Periods of rain and thunder expected."},
		{Timestamp: now, WindSpeed: 8, WindSpeedUnit: "kt", WindDirection: 180,
			ShortForecast: "Sunny", DetailedForecast: "Clear skies with sunny conditions."},
	})

	req, err := Load(slog.Default(), dir, "North Pacific")
	require.NoError(t, err)
	require.NotNil(t, req.Aux.WeatherTextCounts)
	assert.Equal(t, 1, req.Aux.WeatherTextCounts["rain"])
	assert.Equal(t, 1, req.Aux.WeatherTextCounts["shower"])
	assert.Equal(t, 1, req.Aux.WeatherTextCounts["thunder"])
	assert.Equal(t, 1, req.Aux.WeatherTextCounts["sunny"])
	assert.Equal(t, 1, req.Aux.WeatherTextCounts["clear"])
}

func TestLoad_InvalidWeatherJSONIsSkippedNotFatal(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "weather.json"), []byte("{not json"), 0o644))
	req, err := Load(slog.Default(), dir, "North Pacific")
	require.NoError(t, err)
	assert.Nil(t, req.WindFactorByShore)
}

func TestLoad_ParsesAuxJSON(t *testing.T) {
	dir := t.TempDir()
	writeJSON(t, filepath.Join(dir, "aux.json"), map[string]any{
		"TropicalHeadline": "no active systems",
		"ChartURIs":        []string{"https://example.com/chart1.png"},
	})

	req, err := Load(slog.Default(), dir, "North Pacific")
	require.NoError(t, err)
	assert.Equal(t, "no active systems", req.Aux.TropicalHeadline)
	assert.Len(t, req.Aux.ChartURIs, 1)
}
