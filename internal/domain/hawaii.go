package domain

import "time"

// DegreeRange is an inclusive [From,To] arc in degrees. When From > To the
// range wraps across 360°/0° (e.g. 270-360 then 0-90 for a north shore).
type DegreeRange struct {
	From float64
	To   float64
}

// Contains reports whether direction (degrees) falls inside r, handling the
// 360°/0° wraparound case.
func (r DegreeRange) Contains(direction float64) bool {
	d := normalizeDegrees(direction)
	from := normalizeDegrees(r.From)
	to := normalizeDegrees(r.To)
	if from <= to {
		return d >= from && d <= to
	}
	return d >= from || d <= to
}

// midpoint returns the center direction of the range, accounting for wrap.
func (r DegreeRange) midpoint() float64 {
	from := normalizeDegrees(r.From)
	to := normalizeDegrees(r.To)
	if from <= to {
		return (from + to) / 2
	}
	span := (360 - from) + to
	return normalizeDegrees(from + span/2)
}

// Shore is one of the four static Hawaii shore-exposure records: position,
// facing bearing, the directions it is exposed to at all, the narrower band
// that produces quality surf, and a seasonal rating by month.
type Shore struct {
	Name           string
	Lat            float64
	Lon            float64
	Facing         float64
	ExposureRanges []DegreeRange
	QualityRanges  []DegreeRange
	SeasonalRating map[time.Month]float64
}

// Shores is the static table of §4.C. Seasonal ratings follow the
// winter-peaked/summer-peaked/near-constant characterizations of Hawaii's
// north, south, west, and east facing coasts.
var Shores = []Shore{
	{
		Name: "North", Lat: 21.6639, Lon: -158.0529, Facing: 0,
		ExposureRanges: []DegreeRange{{270, 360}, {0, 90}},
		QualityRanges:  []DegreeRange{{305, 340}},
		SeasonalRating: map[time.Month]float64{
			time.January: 0.9, time.February: 0.9, time.March: 0.8,
			time.April: 0.5, time.May: 0.3, time.June: 0.2,
			time.July: 0.2, time.August: 0.2, time.September: 0.3,
			time.October: 0.5, time.November: 0.8, time.December: 0.9,
		},
	},
	{
		Name: "South", Lat: 21.2749, Lon: -157.8238, Facing: 180,
		ExposureRanges: []DegreeRange{{90, 270}},
		QualityRanges:  []DegreeRange{{170, 200}},
		SeasonalRating: map[time.Month]float64{
			time.January: 0.2, time.February: 0.2, time.March: 0.3,
			time.April: 0.4, time.May: 0.6, time.June: 0.9,
			time.July: 0.9, time.August: 0.9, time.September: 0.8,
			time.October: 0.6, time.November: 0.3, time.December: 0.2,
		},
	},
	{
		Name: "West", Lat: 21.4152, Lon: -158.1928, Facing: 270,
		ExposureRanges: []DegreeRange{{210, 330}},
		QualityRanges:  []DegreeRange{{270, 310}},
		SeasonalRating: map[time.Month]float64{
			time.January: 0.8, time.February: 0.8, time.March: 0.6,
			time.April: 0.5, time.May: 0.4, time.June: 0.3,
			time.July: 0.3, time.August: 0.3, time.September: 0.4,
			time.October: 0.5, time.November: 0.6, time.December: 0.8,
		},
	},
	{
		Name: "East", Lat: 21.4813, Lon: -157.7040, Facing: 90,
		ExposureRanges: []DegreeRange{{30, 150}},
		QualityRanges:  []DegreeRange{{60, 90}},
		SeasonalRating: map[time.Month]float64{
			time.January: 0.6, time.February: 0.6, time.March: 0.6,
			time.April: 0.6, time.May: 0.6, time.June: 0.6,
			time.July: 0.6, time.August: 0.6, time.September: 0.6,
			time.October: 0.6, time.November: 0.6, time.December: 0.6,
		},
	},
}

// ShoreByName looks up a shore by its exact name ("North", "South", "West",
// "East"). The bool is false when no such shore exists.
func ShoreByName(name string) (Shore, bool) {
	for _, s := range Shores {
		if s.Name == name {
			return s, true
		}
	}
	return Shore{}, false
}

// ExposureFactor returns the shore's exposure to an incoming swell
// direction: 1.0 at the midpoint of a quality range, decaying linearly to
// 0.8 at its edges; 0.5 inside an exposure range but outside every quality
// range; 0 when direction falls in neither.
func ExposureFactor(shore Shore, direction float64) float64 {
	for _, qr := range shore.QualityRanges {
		if qr.Contains(direction) {
			return qualityDecay(qr, direction)
		}
	}
	for _, er := range shore.ExposureRanges {
		if er.Contains(direction) {
			return 0.5
		}
	}
	return 0.0
}

// qualityDecay computes the 1.0-at-midpoint, 0.8-at-edge linear decay
// within a quality range.
func qualityDecay(qr DegreeRange, direction float64) float64 {
	mid := qr.midpoint()
	halfSpan := qr.span() / 2
	if halfSpan <= 0 {
		return 1.0
	}
	distance := AngularDifference(direction, mid)
	normalized := distance / halfSpan
	if normalized > 1 {
		normalized = 1
	}
	return 1.0 - normalized*0.2
}

// span returns the angular width of the range in degrees, handling wrap.
func (r DegreeRange) span() float64 {
	from := normalizeDegrees(r.From)
	to := normalizeDegrees(r.To)
	if from <= to {
		return to - from
	}
	return (360 - from) + to
}

// SeasonalFactor reads the shore's rating for date's month, defaulting to
// 0.5 when the shore has no entry for that month (should not occur given
// the fully-populated static table, but guards future data edits).
func SeasonalFactor(shore Shore, date time.Time) float64 {
	if v, ok := shore.SeasonalRating[date.Month()]; ok {
		return v
	}
	return 0.5
}
