package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestToHawaiianFeet_RoundTrips(t *testing.T) {
	meters := 2.3
	feet := ToHawaiianFeet(meters)
	assert.InDelta(t, meters, feet/6.56168, 1e-6)
}

func TestSwellEvent_ValidRequiresNonExcludedComponent(t *testing.T) {
	valid := SwellEvent{
		Quality:           QualityValid,
		PrimaryComponents: []SwellComponent{{Quality: QualityValid}},
	}
	assert.True(t, valid.Valid())

	noComponents := SwellEvent{Quality: QualityValid}
	assert.False(t, noComponents.Valid())

	excludedComponent := SwellEvent{
		Quality:           QualityValid,
		PrimaryComponents: []SwellComponent{{Quality: QualityExcluded}},
	}
	assert.False(t, excludedComponent.Valid())
}

func TestSwellEvent_PrimaryDirectionCardinal(t *testing.T) {
	e := SwellEvent{PrimaryDirection: 315}
	assert.Equal(t, "NW", e.PrimaryDirectionCardinal())
}

func TestSwellForecast_SortEventsBySignificance(t *testing.T) {
	t0 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	f := &SwellForecast{
		Events: []SwellEvent{
			{ID: "low", Significance: 0.3, Start: t0},
			{ID: "high", Significance: 0.9, Start: t0.Add(time.Hour)},
			{ID: "high-earlier", Significance: 0.9, Start: t0},
		},
	}
	f.SortEventsBySignificance()

	assert.Equal(t, "high-earlier", f.Events[0].ID)
	assert.Equal(t, "high", f.Events[1].ID)
	assert.Equal(t, "low", f.Events[2].ID)
}

func TestSwellForecast_EventsForLocation(t *testing.T) {
	f := &SwellForecast{
		Events: []SwellEvent{{ID: "a"}, {ID: "b"}, {ID: "c"}},
	}
	loc := ForecastLocation{EventIndices: []int{2, 0, 99}}

	got := f.EventsForLocation(loc)
	assert.Len(t, got, 2)
	assert.Equal(t, "c", got[0].ID)
	assert.Equal(t, "a", got[1].ID)
}

func TestBuoyData_Latest(t *testing.T) {
	empty := BuoyData{}
	_, ok := empty.Latest()
	assert.False(t, ok)

	withData := BuoyData{Observations: []Observation{{Timestamp: time.Now()}}}
	obs, ok := withData.Latest()
	assert.True(t, ok)
	assert.Equal(t, withData.Observations[0], obs)
}
