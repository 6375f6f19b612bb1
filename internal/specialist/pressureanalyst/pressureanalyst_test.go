package pressureanalyst

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stonezone/surfcast-fusion/internal/llm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type scriptedClient struct {
	response string
	err      error
}

func (s scriptedClient) GenerateText(_ context.Context, _, _ string, _ []llm.Image) (string, llm.Usage, error) {
	if s.err != nil {
		return "", llm.Usage{}, s.err
	}
	return s.response, llm.Usage{TotalTokens: 100}, nil
}

func writeTempChart(t *testing.T, name string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte("fake-png-bytes"), 0o644))
	return path
}

const validJSON = `{
  "systems": [
    {"type": "low", "location": "North Pacific", "lat": 45.0, "lon": -160.0,
     "pressure_mb": 985, "wind_speed_kt": 50, "movement": "ESE",
     "intensification": "steady", "fetch": {"direction": "NNE", "distance_nm": 600, "duration_hrs": 24, "quality": "strong"}}
  ],
  "predicted_swells": [
    {"source_system": "North Pacific low", "source_lat": 45.0, "source_lon": -160.0,
     "direction": "NW", "direction_degrees": 315, "arrival_window": "in 48 hours",
     "height_range_m": [2.0, 3.0], "period_range_s": [12, 14], "confidence": 0.8,
     "generation_time": "2025-10-07T00:00:00Z"}
  ],
  "frontal_boundaries": []
}`

func TestAnalyze_ParsesValidJSONAndEnhancesArrival(t *testing.T) {
	chart := writeTempChart(t, "chart1.png")
	a := New(scriptedClient{response: validJSON}, "vision-model")

	out, err := a.Analyze(context.Background(), []ChartImage{{Path: chart, Timestamp: time.Now()}}, "North Pacific")
	require.NoError(t, err)

	data, ok := out.Data.(Data)
	require.True(t, ok)
	require.Len(t, data.PredictedSwells, 1)
	swell := data.PredictedSwells[0]
	require.NotNil(t, swell.EnhancedArrival)
	assert.InDelta(t, 21.5, swell.GroupVelocityKnots, 1.0)
	assert.Greater(t, swell.TravelTimeHrs, 0.0)
	assert.Equal(t, "in 48 hours", swell.LLMArrival)
}

func TestAnalyze_MalformedJSONYieldsEmptyDataButNarrative(t *testing.T) {
	chart := writeTempChart(t, "chart1.png")
	a := New(scriptedClient{response: "not json at all"}, "vision-model")

	out, err := a.Analyze(context.Background(), []ChartImage{{Path: chart, Timestamp: time.Now()}}, "North Pacific")
	require.NoError(t, err)
	assert.NotEmpty(t, out.Narrative)

	data := out.Data.(Data)
	assert.Empty(t, data.Systems)
	assert.Empty(t, data.PredictedSwells)
}

func TestAnalyze_StripsMarkdownFences(t *testing.T) {
	chart := writeTempChart(t, "chart1.png")
	fenced := "```json\n" + validJSON + "\n```"
	a := New(scriptedClient{response: fenced}, "vision-model")

	out, err := a.Analyze(context.Background(), []ChartImage{{Path: chart, Timestamp: time.Now()}}, "North Pacific")
	require.NoError(t, err)
	data := out.Data.(Data)
	assert.Len(t, data.Systems, 1)
}

func TestValidImages_FiltersBadExtensionsAndMissingFiles(t *testing.T) {
	png := writeTempChart(t, "good.png")
	txt := writeTempChart(t, "bad.txt")

	images := []ChartImage{
		{Path: png},
		{Path: txt},
		{Path: "/nonexistent/path.png"},
	}
	valid := validImages(images)
	require.Len(t, valid, 1)
	assert.Equal(t, png, valid[0].Path)
}

func TestCompletenessScore_Buckets(t *testing.T) {
	assert.Equal(t, 1.0, completenessScore(6))
	assert.Equal(t, 0.8, completenessScore(4))
	assert.Equal(t, 0.6, completenessScore(2))
	assert.Equal(t, 0.4, completenessScore(0))
}
