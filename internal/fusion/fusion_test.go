package fusion

import (
	"testing"
	"time"

	"github.com/stonezone/surfcast-fusion/internal/domain"
	"github.com/stonezone/surfcast-fusion/internal/scoring"
	"github.com/stonezone/surfcast-fusion/internal/spectral"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func f(v float64) *float64 { return &v }

func newEngine() *Engine {
	return New(Config{DaysAhead: 1}, nil, scoring.New(16), spectral.New(2))
}

func TestSignificance_ClippedToOne(t *testing.T) {
	assert.Equal(t, 1.0, domain.Significance(10, 20))
}

func TestSignificance_Formula(t *testing.T) {
	// H=2.5m -> min(1, 0.5)=0.5; T=8s -> min(1.5, 0.8)=0.8 -> 0.4
	assert.InDelta(t, 0.4, domain.Significance(2.5, 8), 1e-9)
}

func TestFuse_HappyPathProducesEventsAndLocations(t *testing.T) {
	e := newEngine()

	buoy := domain.BuoyData{
		StationID: "51201",
		Lat:       21.67, Lon: -158.07,
		Observations: []domain.Observation{
			{Timestamp: time.Now(), WaveHeight: f(2.3), DominantPeriod: f(12.0), WaveDirection: f(315)},
		},
	}

	forecast, err := e.Fuse(Input{
		Buoys: []domain.BuoyData{buoy},
		PresentSourceClasses: map[string]bool{"buoys": true},
	})
	require.NoError(t, err)
	require.NotEmpty(t, forecast.Events)
	assert.Len(t, forecast.Locations, 4)
	assert.Contains(t, forecast.Metadata, "confidence")
}

func TestFuse_PhantomSwellProducesNoEvent(t *testing.T) {
	e := newEngine()
	buoy := domain.BuoyData{
		StationID: "X",
		Observations: []domain.Observation{
			{Timestamp: time.Now(), WaveHeight: f(1.2), DominantPeriod: nil}, // period rejected upstream
		},
	}
	forecast, err := e.Fuse(Input{Buoys: []domain.BuoyData{buoy}})
	require.NoError(t, err)
	assert.Empty(t, forecast.Events)
}

func TestFuse_UnphysicalHeightExcluded(t *testing.T) {
	e := newEngine()
	buoy := domain.BuoyData{
		StationID: "bad",
		Observations: []domain.Observation{
			{Timestamp: time.Now(), WaveHeight: f(15.0), DominantPeriod: f(14.0)},
		},
	}
	forecast, err := e.Fuse(Input{Buoys: []domain.BuoyData{buoy}})
	require.NoError(t, err)
	assert.Empty(t, forecast.Events)
}

func TestMergeEvents_CollapsesWithinToleranceAndWindow(t *testing.T) {
	now := time.Now()
	a := domain.SwellEvent{SourceLabel: "buoy", Start: now, PrimaryDirection: 310, Significance: 0.5}
	b := domain.SwellEvent{SourceLabel: "buoy", Start: now.Add(2 * time.Hour), PrimaryDirection: 320, Significance: 0.8}
	merged := mergeEvents([]domain.SwellEvent{a, b})
	require.Len(t, merged, 1)
	assert.Equal(t, 0.8, merged[0].Significance)
}

func TestMergeEvents_KeepsDistantDirectionsSeparate(t *testing.T) {
	now := time.Now()
	a := domain.SwellEvent{SourceLabel: "buoy", Start: now, PrimaryDirection: 0, Significance: 0.5}
	b := domain.SwellEvent{SourceLabel: "buoy", Start: now, PrimaryDirection: 180, Significance: 0.8}
	merged := mergeEvents([]domain.SwellEvent{a, b})
	assert.Len(t, merged, 2)
}

func TestFuse_WeatherTextCountsSurfacedInMetadata(t *testing.T) {
	e := newEngine()
	forecast, err := e.Fuse(Input{
		Aux: AuxiliaryFeeds{WeatherTextCounts: map[string]int{"rain": 2, "sunny": 1}},
	})
	require.NoError(t, err)
	counts, ok := forecast.Metadata["weather_text_counts"].(map[string]int)
	require.True(t, ok)
	assert.Equal(t, 2, counts["rain"])
}

func TestFuse_ComputesLocationQualityInRange(t *testing.T) {
	e := newEngine()
	buoy := domain.BuoyData{
		StationID: "51201",
		Observations: []domain.Observation{
			{Timestamp: time.Now(), WaveHeight: f(3.0), DominantPeriod: f(14.0), WaveDirection: f(320)},
		},
	}
	forecast, err := e.Fuse(Input{Buoys: []domain.BuoyData{buoy}})
	require.NoError(t, err)
	for _, loc := range forecast.Locations {
		q, ok := loc.Metadata["overall_quality"].(float64)
		require.True(t, ok)
		assert.GreaterOrEqual(t, q, 0.0)
		assert.LessOrEqual(t, q, 1.0)
	}
}
