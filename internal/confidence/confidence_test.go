package confidence

import (
	"testing"

	"github.com/stonezone/surfcast-fusion/internal/domain"
	"github.com/stretchr/testify/assert"
)

func fullPresence() map[string]bool {
	return map[string]bool{"buoys": true, "models": true, "charts": true, "satellite": true}
}

func TestScore_OverallIsWeightedSum(t *testing.T) {
	in := Input{
		ModelEventHeights:    []float64{3.0, 2.8},
		SourceScores:         []domain.SourceScore{{Overall: 0.9}, {Overall: 0.8}},
		PresentSourceClasses: fullPresence(),
		DaysAhead:            1,
	}
	report := Score(in)

	expected := Weights["consensus"]*report.Factors["consensus"] +
		Weights["reliability"]*report.Factors["reliability"] +
		Weights["completeness"]*report.Factors["completeness"] +
		Weights["horizon"]*report.Factors["horizon"] +
		Weights["accuracy"]*report.Factors["accuracy"]

	assert.InDelta(t, expected, report.OverallScore, 1e-9)
}

func TestScore_CategoryBoundaries(t *testing.T) {
	assert.Equal(t, domain.ConfidenceHigh, categorize(0.7))
	assert.Equal(t, domain.ConfidenceMedium, categorize(0.4))
	assert.Equal(t, domain.ConfidenceLow, categorize(0.39))
}

func TestConsensusScore_FewerThanTwoModels(t *testing.T) {
	assert.Equal(t, 0.7, consensusScore([]float64{3.0}))
	assert.Equal(t, 0.5, consensusScore(nil))
}

func TestConsensusScore_IdenticalHeightsPerfectConsensus(t *testing.T) {
	assert.InDelta(t, 1.0, consensusScore([]float64{3.0, 3.0, 3.0}), 1e-9)
}

func TestCompletenessScore_AllFourPresent(t *testing.T) {
	assert.Equal(t, 1.0, completenessScore(fullPresence()))
}

func TestCompletenessScore_NonePresent(t *testing.T) {
	assert.Equal(t, 0.0, completenessScore(map[string]bool{}))
}

func TestHorizonScore_FloorsAtPointFive(t *testing.T) {
	assert.Equal(t, 0.5, horizonScore(10))
	assert.InDelta(t, 0.9, horizonScore(1), 1e-9)
}

func TestAccuracyScore_DefaultsWhenAbsent(t *testing.T) {
	assert.Equal(t, 0.7, accuracyScore(nil))
}

func TestAccuracyScore_FromMAE(t *testing.T) {
	mae := 1.0
	assert.InDelta(t, 0.8, accuracyScore(&mae), 1e-9)
}

func TestBuildWarnings_LimitedDataAndMissingFeeds(t *testing.T) {
	present := map[string]bool{"buoys": true}
	warnings := buildWarnings(0.25, 0.9, present)
	assert.Contains(t, warnings, "limited data")

	found := false
	for _, w := range warnings {
		if w == "missing feeds: charts, models, satellite" {
			found = true
		}
	}
	assert.True(t, found)
}

func TestBuildWarnings_ModelDisagreement(t *testing.T) {
	warnings := buildWarnings(1.0, 0.3, fullPresence())
	assert.Contains(t, warnings, "model disagreement")
}
