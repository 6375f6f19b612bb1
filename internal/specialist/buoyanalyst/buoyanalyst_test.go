package buoyanalyst

import (
	"context"
	"testing"
	"time"

	"github.com/stonezone/surfcast-fusion/internal/domain"
	"github.com/stonezone/surfcast-fusion/internal/llm"
	"github.com/stonezone/surfcast-fusion/internal/processing/buoy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func f(v float64) *float64 { return &v }

func obsSeries(heights []float64, period float64) []domain.Observation {
	now := time.Now()
	out := make([]domain.Observation, len(heights))
	for i, h := range heights {
		out[i] = domain.Observation{
			Timestamp:      now.Add(-time.Duration(i) * time.Hour),
			WaveHeight:     f(h),
			DominantPeriod: f(period),
		}
	}
	return out
}

func TestAnalyze_HappyPathProducesNarrativeAndConfidence(t *testing.T) {
	a := New(llm.NewStubClient(), "test-model")

	buoys := []domain.BuoyData{
		{StationID: "51201", Observations: obsSeries([]float64{1.0, 1.1, 1.2, 1.3, 1.4}, 12)},
		{StationID: "51202", Observations: obsSeries([]float64{1.1, 1.2, 1.2, 1.3, 1.3}, 12)},
		{StationID: "51203", Observations: obsSeries([]float64{1.2, 1.2, 1.3, 1.3, 1.4}, 12)},
	}

	out, err := a.Analyze(context.Background(), buoys)
	require.NoError(t, err)
	assert.Equal(t, domain.SpecialistBuoy, out.Kind)
	assert.NotEmpty(t, out.Narrative)
	assert.GreaterOrEqual(t, out.Confidence, 0.0)
	assert.LessOrEqual(t, out.Confidence, 1.0)
	assert.Contains(t, out.Metadata, "timestamp")

	data, ok := out.Data.(Data)
	require.True(t, ok)
	assert.Len(t, data.Trends, 3)
	assert.Len(t, data.QualityFlags, 3)
}

func TestAnalyze_DetectsOutlierAnomaly(t *testing.T) {
	a := New(llm.NewStubClient(), "test-model")
	buoys := []domain.BuoyData{
		{StationID: "a", Observations: obsSeries([]float64{1.0}, 12)},
		{StationID: "b", Observations: obsSeries([]float64{1.1}, 12)},
		{StationID: "c", Observations: obsSeries([]float64{1.2}, 12)},
		{StationID: "d", Observations: obsSeries([]float64{1.0}, 12)},
		{StationID: "e", Observations: obsSeries([]float64{8.0}, 12)},
	}

	out, err := a.Analyze(context.Background(), buoys)
	require.NoError(t, err)
	data := out.Data.(Data)

	var outlier AnomalyResult
	for _, an := range data.Anomalies {
		if an.StationID == "e" {
			outlier = an
		}
	}
	assert.Equal(t, buoy.AnomalyHigh, outlier.HeightSeverity)
}

func TestComputeSummaryStats_MinMaxMean(t *testing.T) {
	buoys := []domain.BuoyData{
		{StationID: "a", Observations: obsSeries([]float64{1.0, 2.0, 3.0}, 10)},
	}
	stats := computeSummaryStats(buoys)
	assert.Equal(t, 1.0, stats.HeightMin)
	assert.Equal(t, 3.0, stats.HeightMax)
	assert.InDelta(t, 2.0, stats.HeightMean, 1e-9)
	assert.Equal(t, 3, stats.ObservationCount)
}

func TestAnalyze_EmptyBuoySetYieldsZeroConfidence(t *testing.T) {
	a := New(llm.NewStubClient(), "test-model")
	out, err := a.Analyze(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 0.0, out.Confidence)
}
