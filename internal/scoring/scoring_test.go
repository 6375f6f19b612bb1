package scoring

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestScore_BuoyFullFreshComplete(t *testing.T) {
	s := New(16)
	in := Input{
		Kind:           SourceBuoy,
		ObservedAt:     time.Now(),
		NonNullFields:  9,
		ExpectedFields: 9,
	}
	score := s.Score("51201", in)

	assert.Equal(t, 1, score.Tier)
	assert.Equal(t, 1.0, score.TierScore)
	assert.InDelta(t, 1.0, score.Freshness, 0.01)
	assert.Equal(t, 1.0, score.Completeness)
	assert.Equal(t, 0.7, score.Accuracy)

	expected := 0.4*1.0 + 0.25*score.Freshness + 0.2*1.0 + 0.15*0.7
	assert.InDelta(t, expected, score.Overall, 1e-6)
}

func TestScore_UnknownSourceUsesDefaultTier(t *testing.T) {
	s := New(16)
	score := s.Score("mystery", Input{Kind: SourceUnknown, ObservedAt: time.Now(), ExpectedFields: 1})
	assert.Equal(t, 0, score.Tier)
	assert.Equal(t, 0.5, score.TierScore)
}

func TestScore_StaleSourceHasZeroFreshness(t *testing.T) {
	s := New(16)
	score := s.Score("old-buoy", Input{
		Kind:       SourceBuoy,
		ObservedAt: time.Now().Add(-48 * time.Hour),
	})
	assert.Equal(t, 0.0, score.Freshness)
}

func TestScore_AccuracyOverrideIsCached(t *testing.T) {
	s := New(16)
	override := 0.92
	score := s.Score("51201", Input{Kind: SourceBuoy, ObservedAt: time.Now(), AccuracyOverride: &override})
	assert.Equal(t, 0.92, score.Accuracy)

	// Subsequent call without override reuses the cached value.
	second := s.Score("51201", Input{Kind: SourceBuoy, ObservedAt: time.Now()})
	assert.Equal(t, 0.92, second.Accuracy)
}

func TestScore_NoExpectedFieldsIsZeroCompleteness(t *testing.T) {
	s := New(16)
	score := s.Score("x", Input{Kind: SourceModel, ObservedAt: time.Now(), ExpectedFields: 0})
	assert.Equal(t, 0.0, score.Completeness)
}
