// Package scoring implements the §4.D Source Scorer: tiered reliability
// weighting for every ingested source, combining a fixed source-type tier
// with freshness, completeness, and accuracy.
package scoring

import (
	"time"

	"github.com/stonezone/surfcast-fusion/internal/cache"
	"github.com/stonezone/surfcast-fusion/internal/domain"
)

// SourceKind identifies the class of source being scored, for tier lookup.
type SourceKind string

const (
	SourceBuoy    SourceKind = "buoy"    // Tier 1
	SourceModel   SourceKind = "model"   // Tier 2
	SourceWeather SourceKind = "weather" // Tier 3
	SourceUnknown SourceKind = "unknown"
)

var tierScores = map[SourceKind]float64{
	SourceBuoy:    1.0,
	SourceModel:   0.9,
	SourceWeather: 0.8,
}

func tierOf(kind SourceKind) (int, float64) {
	switch kind {
	case SourceBuoy:
		return 1, tierScores[SourceBuoy]
	case SourceModel:
		return 2, tierScores[SourceModel]
	case SourceWeather:
		return 3, tierScores[SourceWeather]
	default:
		return 0, 0.5
	}
}

// Input describes one source's observed characteristics at scoring time.
type Input struct {
	Kind             SourceKind
	ObservedAt       time.Time
	NonNullFields    int
	ExpectedFields   int
	AccuracyOverride *float64 // set when a performance query supplied recent accuracy
}

const defaultAccuracy = 0.7

// Scorer computes source reliability scores. AccuracyCache memoizes
// accuracy lookups keyed by source id, avoiding repeated performance-store
// queries within one forecast run.
type Scorer struct {
	AccuracyCache *cache.LRU[string, float64]
}

// New creates a Scorer with a bounded accuracy cache.
func New(cacheSize int) *Scorer {
	return &Scorer{AccuracyCache: cache.New[string, float64](cacheSize)}
}

// Score computes the weighted overall reliability for one source, per
// §4.D: overall = 0.4*tier + 0.25*freshness + 0.2*completeness + 0.15*accuracy.
func (s *Scorer) Score(sourceID string, in Input) domain.SourceScore {
	tier, tierScore := tierOf(in.Kind)

	freshness := freshnessScore(in.ObservedAt)
	completeness := completenessScore(in.NonNullFields, in.ExpectedFields)
	accuracy := s.accuracyScore(sourceID, in.AccuracyOverride)

	overall := 0.4*tierScore + 0.25*freshness + 0.2*completeness + 0.15*accuracy

	return domain.SourceScore{
		Overall:      overall,
		Tier:         tier,
		TierScore:    tierScore,
		Freshness:    freshness,
		Completeness: completeness,
		Accuracy:     accuracy,
	}
}

func freshnessScore(observedAt time.Time) float64 {
	if observedAt.IsZero() {
		return 0
	}
	ageHours := domain.AgeHours(observedAt)
	v := 1 - ageHours/24
	if v < 0 {
		return 0
	}
	return v
}

func completenessScore(nonNull, expected int) float64 {
	if expected <= 0 {
		return 0
	}
	v := float64(nonNull) / float64(expected)
	if v > 1 {
		return 1
	}
	if v < 0 {
		return 0
	}
	return v
}

func (s *Scorer) accuracyScore(sourceID string, override *float64) float64 {
	if override != nil {
		if s.AccuracyCache != nil {
			s.AccuracyCache.Put(sourceID, *override)
		}
		return *override
	}
	if s.AccuracyCache != nil {
		if v, ok := s.AccuracyCache.Get(sourceID); ok {
			return v
		}
	}
	return defaultAccuracy
}
