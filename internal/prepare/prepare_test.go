package prepare

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stonezone/surfcast-fusion/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeasonFor(t *testing.T) {
	assert.Equal(t, SeasonWinter, SeasonFor(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, SeasonSpring, SeasonFor(time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, SeasonSummer, SeasonFor(time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, SeasonFall, SeasonFor(time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)))
}

func TestFilterExcluded_DropsExcludedEventsAndRemapsIndices(t *testing.T) {
	forecast := &domain.SwellForecast{
		Events: []domain.SwellEvent{
			{ID: "keep", Quality: domain.QualityValid, PrimaryComponents: []domain.SwellComponent{{Quality: domain.QualityValid}}},
			{ID: "drop", Quality: domain.QualityExcluded},
		},
		Locations: []domain.ForecastLocation{
			{Name: "North", EventIndices: []int{0, 1}},
		},
	}

	out := FilterExcluded(nil, forecast)
	require.Len(t, out.Events, 1)
	assert.Equal(t, "keep", out.Events[0].ID)
	assert.Equal(t, []int{0}, out.Locations[0].EventIndices)
}

func TestFilterExcluded_DropsEventWithNoRemainingComponents(t *testing.T) {
	forecast := &domain.SwellForecast{
		Events: []domain.SwellEvent{
			{ID: "empty-after-filter", Quality: domain.QualityValid, PrimaryComponents: []domain.SwellComponent{{Quality: domain.QualityExcluded}}},
		},
	}
	out := FilterExcluded(nil, forecast)
	assert.Empty(t, out.Events)
}

func TestBuildShoreDigests_OrdersByHeightDescending(t *testing.T) {
	forecast := &domain.SwellForecast{
		Events: []domain.SwellEvent{
			{ID: "small", HawaiianFeet: 3.0, PrimaryDirection: 0, Start: time.Now()},
			{ID: "big", HawaiianFeet: 8.0, PrimaryDirection: 0, Start: time.Now()},
		},
		Locations: []domain.ForecastLocation{
			{Name: "North", EventIndices: []int{0, 1}, Metadata: map[string]any{}},
		},
	}
	digests := BuildShoreDigests(forecast, 6)
	require.Len(t, digests["North"], 2)
	assert.Contains(t, digests["North"][0], "8.0ft")
}

func TestSelectCriticalImages_CapsAtTenAndFourPerType(t *testing.T) {
	var images []Image
	for i := 0; i < 10; i++ {
		images = append(images, Image{Path: "p", Category: ImagePressure, Timestamp: time.Now().Add(time.Duration(i) * time.Hour)})
	}
	for i := 0; i < 10; i++ {
		images = append(images, Image{Path: "w", Category: ImageWaveModel, Timestamp: time.Now().Add(time.Duration(i) * time.Hour)})
	}
	images = append(images, Image{Path: "s", Category: ImageSatellite, Timestamp: time.Now()})
	images = append(images, Image{Path: "sst", Category: ImageSST, Timestamp: time.Now()})

	selected := SelectCriticalImages(images, 0)
	assert.LessOrEqual(t, len(selected), maxSelectedImages)

	counts := map[ImageCategory]int{}
	for _, img := range selected {
		counts[img.Category]++
	}
	for _, c := range counts {
		assert.LessOrEqual(t, c, 4)
	}
}

func TestEstimateTokens_IncludesImageCosts(t *testing.T) {
	images := []Image{{Detail: DetailHigh}, {Detail: DetailLow}}
	total := EstimateTokens(4000, images)
	assert.Equal(t, 1000+5000+10000+3000+500, total)
}

func TestCollectImages_MissingBundleDirEmpty(t *testing.T) {
	images := CollectImages(nil, "/nonexistent/bundle/path")
	assert.Empty(t, images)
}

func TestCollectImages_ClassifiesSSTAndPressure(t *testing.T) {
	dir := t.TempDir()
	chartsDir := filepath.Join(dir, "charts")
	require.NoError(t, os.MkdirAll(chartsDir, 0o755))

	metadata := []chartMetadataEntry{
		{Status: "ok", FilePath: filepath.Join(chartsDir, "pressure_001.png")},
		{Status: "ok", FilePath: filepath.Join(chartsDir, "sst_pacific.png")},
	}
	data, err := json.Marshal(metadata)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(chartsDir, "metadata.json"), data, 0o644))

	images := CollectImages(nil, dir)
	require.Len(t, images, 2)

	var sawSST, sawPressure bool
	for _, img := range images {
		if img.Category == ImageSST {
			sawSST = true
		}
		if img.Category == ImagePressure {
			sawPressure = true
		}
	}
	assert.True(t, sawSST)
	assert.True(t, sawPressure)
}
