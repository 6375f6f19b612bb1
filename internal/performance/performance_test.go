package performance

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStubStore_ReturnsDefaultAccuracy(t *testing.T) {
	s := NewStubStore()
	report, err := s.RecentPerformance(context.Background(), 30, 10, 5.0)
	require.NoError(t, err)
	assert.Equal(t, defaultAccuracy, report.Overall.Categorical)
	assert.InDelta(t, 1.5, report.Overall.MAE, 1e-9)
}
