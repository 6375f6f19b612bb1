package buoy

import (
	"testing"
	"time"

	"github.com/stonezone/surfcast-fusion/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func f(v float64) *float64 { return &v }

func obsAt(t time.Time, height float64) domain.Observation {
	return domain.Observation{Timestamp: t, WaveHeight: f(height)}
}

func TestCalculateTrend_SteadyBelowThreshold(t *testing.T) {
	base := time.Now()
	obs := []domain.Observation{
		obsAt(base, 2.0),
		obsAt(base.Add(-time.Hour), 2.005),
		obsAt(base.Add(-2*time.Hour), 2.0),
	}
	slope, category, ok := CalculateTrend(obs, 3, func(o domain.Observation) *float64 { return o.WaveHeight })
	require.True(t, ok)
	assert.Equal(t, TrendSteady, category)
	assert.InDelta(t, 0, slope, 0.01)
}

func TestCalculateTrend_StrongIncreasing(t *testing.T) {
	base := time.Now()
	obs := []domain.Observation{
		obsAt(base, 3.0),
		obsAt(base.Add(-time.Hour), 2.5),
		obsAt(base.Add(-2*time.Hour), 2.0),
	}
	_, category, ok := CalculateTrend(obs, 3, func(o domain.Observation) *float64 { return o.WaveHeight })
	require.True(t, ok)
	assert.Equal(t, TrendIncreasingStrong, category)
}

func TestCalculateTrend_InsufficientData(t *testing.T) {
	obs := []domain.Observation{obsAt(time.Now(), 2.0)}
	_, _, ok := CalculateTrend(obs, 3, func(o domain.Observation) *float64 { return o.WaveHeight })
	assert.False(t, ok)
}

func TestDetectAnomalies_RequiresThreeValues(t *testing.T) {
	anomalies := DetectAnomalies(map[string]float64{"a": 1.0, "b": 1.1})
	assert.Nil(t, anomalies)
}

func TestDetectAnomalies_FlagsOutlier(t *testing.T) {
	values := map[string]float64{
		"b1": 1.0, "b2": 1.1, "b3": 1.2, "b4": 1.0, "b5": 8.0,
	}
	anomalies := DetectAnomalies(values)
	require.NotEmpty(t, anomalies)

	var outlier Anomaly
	for _, a := range anomalies {
		if a.StationID == "b5" {
			outlier = a
		}
	}
	assert.Equal(t, AnomalyHigh, outlier.Severity)
}

func TestAssignQualityFlag_ExcludedOnHighAnomaly(t *testing.T) {
	q := AssignQualityFlag(QualityInput{
		HeightAnomaly:    AnomalyHigh,
		ObservationCount: 10,
		LatestHeight:     f(2.0),
	})
	assert.Equal(t, domain.QualityExcluded, q)
}

func TestAssignQualityFlag_ExcludedOnUnphysicalHeight(t *testing.T) {
	q := AssignQualityFlag(QualityInput{LatestHeight: f(12.0), ObservationCount: 10})
	assert.Equal(t, domain.QualityExcluded, q)
}

func TestAssignQualityFlag_ExcludedOnSingleScanLarge(t *testing.T) {
	q := AssignQualityFlag(QualityInput{LatestHeight: f(3.0), ObservationCount: 1})
	assert.Equal(t, domain.QualityExcluded, q)
}

func TestAssignQualityFlag_ExcludedOnAgeOver24h(t *testing.T) {
	q := AssignQualityFlag(QualityInput{LatestHeight: f(1.0), ObservationCount: 10, AgeHours: 30})
	assert.Equal(t, domain.QualityExcluded, q)
}

func TestAssignQualityFlag_SuspectOnModerateAnomalyWithoutDecline(t *testing.T) {
	q := AssignQualityFlag(QualityInput{
		HeightAnomaly:    AnomalyModerate,
		HeightTrend:      TrendSteady,
		ObservationCount: 10,
		LatestHeight:     f(1.5),
	})
	assert.Equal(t, domain.QualitySuspect, q)
}

func TestAssignQualityFlag_ExcludedOnModerateAnomalyWithStrongDecline(t *testing.T) {
	q := AssignQualityFlag(QualityInput{
		HeightAnomaly:    AnomalyModerate,
		HeightTrend:      TrendDecreasingStrong,
		ObservationCount: 10,
		LatestHeight:     f(1.5),
	})
	assert.Equal(t, domain.QualityExcluded, q)
}

func TestAssignQualityFlag_SuspectOnSouthSwellChoppy(t *testing.T) {
	q := AssignQualityFlag(QualityInput{
		ObservationCount: 10,
		LatestHeight:     f(2.5),
		LatestPeriod:     f(11.0),
		LatestDirection:  f(180),
	})
	assert.Equal(t, domain.QualitySuspect, q)
}

func TestAssignQualityFlag_ValidOtherwise(t *testing.T) {
	q := AssignQualityFlag(QualityInput{
		ObservationCount: 10,
		LatestHeight:     f(1.5),
		LatestPeriod:     f(12.0),
		LatestDirection:  f(315),
	})
	assert.Equal(t, domain.QualityValid, q)
}

func TestCalculateCrossValidation_IdenticalValuesPerfectAgreement(t *testing.T) {
	cv := CalculateCrossValidation([]float64{2.0, 2.0, 2.0}, []float64{12.0, 12.0, 12.0})
	assert.InDelta(t, 1.0, cv.Overall, 1e-9)
	assert.Equal(t, "excellent", cv.Interpretation)
}

func TestCalculateCrossValidation_HighVarianceIsPoor(t *testing.T) {
	cv := CalculateCrossValidation([]float64{1.0, 5.0, 0.2}, []float64{8.0, 20.0, 6.0})
	assert.Less(t, cv.Overall, 0.75)
}

func TestCleanObservations_DropsBothMissing(t *testing.T) {
	obs := []domain.Observation{
		{WaveHeight: f(2.0)},
		{DominantPeriod: f(12.0)},
		{},
	}
	cleaned := CleanObservations(obs)
	assert.Len(t, cleaned, 2)
}

func TestSpecialConditions_TagsLargeSwellAndLongPeriod(t *testing.T) {
	obs := domain.Observation{WaveHeight: f(5.0), DominantPeriod: f(17.0)}
	tags := SpecialConditions(obs)
	assert.Contains(t, tags, TagLargeSwell)
	assert.Contains(t, tags, TagLongPeriodSwell)
}

func TestSpecialConditions_StormConditionsNeedsBoth(t *testing.T) {
	obs := domain.Observation{WaveHeight: f(3.5), WindSpeed: f(16.0)}
	tags := SpecialConditions(obs)
	assert.Contains(t, tags, TagStormConditions)
}

func TestDetectGaps_FindsGapsOver3Hours(t *testing.T) {
	base := time.Now()
	obs := []domain.Observation{
		{Timestamp: base},
		{Timestamp: base.Add(-1 * time.Hour)},
		{Timestamp: base.Add(-5 * time.Hour)}, // 4h gap from previous
	}
	gaps := DetectGaps(obs)
	require.Len(t, gaps, 1)
	assert.InDelta(t, 4.0, gaps[0], 1e-9)
}

func TestHawaiiScale(t *testing.T) {
	assert.InDelta(t, 6.56168, HawaiiScale(1.0), 1e-3)
}
