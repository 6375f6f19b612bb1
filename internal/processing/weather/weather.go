// Package weather implements the §4.G Weather Processor: unit
// normalization, wind-condition classification with per-shore surf impact,
// and textual forecast-string analysis.
package weather

import (
	"strings"

	"github.com/stonezone/surfcast-fusion/internal/domain"
)

// NormalizeWindSpeed converts a wind speed in the given unit to m/s. Unit
// matching is case-insensitive; unrecognized units are returned unchanged.
func NormalizeWindSpeed(value float64, unit string) float64 {
	switch strings.ToLower(strings.TrimSpace(unit)) {
	case "mph":
		return value * 0.44704
	case "kt", "kts", "knots":
		return value * 0.51444
	case "km/h", "kph":
		return value * 0.27778
	case "m/s", "ms":
		return value
	default:
		return value
	}
}

// NormalizeTemperature converts a temperature in F or C to Celsius.
func NormalizeTemperature(value float64, unit string) float64 {
	switch strings.ToUpper(strings.TrimSpace(unit)) {
	case "F":
		return (value - 32) * 5.0 / 9.0
	default:
		return value
	}
}

// WindCondition classifies both the strength tier and, at the strong tier,
// whether the wind blows offshore (favorable, grooming the face) or
// onshore (unfavorable, chopping it up).
type WindCondition string

const (
	WindCalm           WindCondition = "calm"
	WindLight          WindCondition = "light"
	WindModerate       WindCondition = "moderate"
	WindStrongOffshore WindCondition = "strong_offshore"
	WindStrongOnshore  WindCondition = "strong_onshore"
)

// impactByCondition is the surf-impact score in [-1,+1] per wind-condition
// class, before the offshore/onshore split is already baked into the
// strong tiers above.
var impactByCondition = map[WindCondition]float64{
	WindCalm:           0.3,
	WindLight:          0.1,
	WindModerate:       -0.2,
	WindStrongOffshore: 0.6,
	WindStrongOnshore:  -0.8,
}

// ClassifyWind determines the wind condition and its surf impact for a
// shore with the given facing bearing (degrees). The offshore bearing is
// facing+180; a wind blowing from within 90° of that bearing is offshore.
func ClassifyWind(speedMS, directionDeg, shoreFacing float64) (WindCondition, float64) {
	var tier string
	switch {
	case speedMS < 2.5:
		tier = "calm"
	case speedMS <= 5.0:
		tier = "light"
	case speedMS <= 7.5:
		tier = "moderate"
	default:
		tier = "strong"
	}

	if tier != "strong" {
		cond := WindCondition(tier)
		return cond, impactByCondition[cond]
	}

	offshore := domain.AngularDifference(directionDeg, normalizedOffshoreBearing(shoreFacing)) <= 90
	if offshore {
		return WindStrongOffshore, impactByCondition[WindStrongOffshore]
	}
	return WindStrongOnshore, impactByCondition[WindStrongOnshore]
}

func normalizedOffshoreBearing(facing float64) float64 {
	b := facing + 180
	for b >= 360 {
		b -= 360
	}
	for b < 0 {
		b += 360
	}
	return b
}

// TextCounts tallies the occurrence of weather-condition keywords across a
// set of forecast strings.
type TextCounts struct {
	Rain    int
	Shower  int
	Thunder int
	Storm   int
	Sunny   int
	Clear   int
	Cloudy  int
}

var keywordFields = []struct {
	keyword string
	inc     func(*TextCounts)
}{
	{"rain", func(c *TextCounts) { c.Rain++ }},
	{"shower", func(c *TextCounts) { c.Shower++ }},
	{"thunder", func(c *TextCounts) { c.Thunder++ }},
	{"storm", func(c *TextCounts) { c.Storm++ }},
	{"sunny", func(c *TextCounts) { c.Sunny++ }},
	{"clear", func(c *TextCounts) { c.Clear++ }},
	{"cloudy", func(c *TextCounts) { c.Cloudy++ }},
}

// AnalyzeText scans period text (short and detailed forecast strings) and
// increments keyword counters, case-insensitively.
func AnalyzeText(periods []domain.WeatherPeriod) TextCounts {
	var counts TextCounts
	for _, p := range periods {
		combined := strings.ToLower(p.ShortForecast + " " + p.DetailedForecast)
		for _, kf := range keywordFields {
			if strings.Contains(combined, kf.keyword) {
				kf.inc(&counts)
			}
		}
	}
	return counts
}
