package propagation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestArrival_StormScenario(t *testing.T) {
	// §8 scenario 4: 985mb low at 45N 160W, period 14s, generation
	// 2025-10-07T00:00Z. Expected travel 40-55h, Cg ~21.5 knots.
	gen := time.Date(2025, 10, 7, 0, 0, 0, 0, time.UTC)
	arrival, details := Arrival(45.0, -160.0, 14.0, gen)

	assert.InDelta(t, 21.5, details.GroupVelocityKnots, 0.5)
	assert.GreaterOrEqual(t, details.TravelHours, 40.0)
	assert.LessOrEqual(t, details.TravelHours, 55.0)
	assert.True(t, arrival.After(gen))
}

func TestArrival_LongerPeriodTravelsFaster(t *testing.T) {
	gen := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	_, shortPeriod := Arrival(40.0, -170.0, 10.0, gen)
	_, longPeriod := Arrival(40.0, -170.0, 18.0, gen)

	assert.Less(t, longPeriod.TravelHours, shortPeriod.TravelHours)
	assert.Greater(t, longPeriod.GroupVelocityKnots, shortPeriod.GroupVelocityKnots)
}

func TestArrival_ZeroDistanceIsImmediate(t *testing.T) {
	gen := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	_, details := Arrival(21.5, -158.0, 14.0, gen)
	assert.InDelta(t, 0, details.DistanceNM, 1e-6)
	assert.InDelta(t, 0, details.TravelHours, 1e-6)
}
