package kafka

import (
	"testing"
	"time"

	"github.com/stonezone/surfcast-fusion/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSerializeToMessage(t *testing.T) {
	now := time.Date(2026, 1, 15, 18, 0, 0, 0, time.UTC)
	forecast := &domain.SwellForecast{
		ForecastID: "fc-1",
		Generated:  now,
		Events: []domain.SwellEvent{
			{ID: "ev-1", PrimaryDirection: 315, Significance: 0.8},
		},
	}

	msg, err := serializeToMessage(forecast)
	require.NoError(t, err)

	assert.Equal(t, []byte("fc-1"), msg.Key)
	assert.Contains(t, string(msg.Value), `"ForecastID":"fc-1"`)
	require.Len(t, msg.Headers, 1)
	assert.Equal(t, "generated_at", msg.Headers[0].Key)
	assert.Equal(t, []byte(now.Format(time.RFC3339)), msg.Headers[0].Value)
}

func TestSerializeToMessage_EmptyForecastStillSerializes(t *testing.T) {
	forecast := &domain.SwellForecast{ForecastID: "empty"}
	msg, err := serializeToMessage(forecast)
	require.NoError(t, err)
	assert.Equal(t, []byte("empty"), msg.Key)
}
