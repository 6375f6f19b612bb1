package spectral

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func twoPeakSpectrum() Spectrum {
	// 5 frequency bins x 8 direction bins, two well-separated peaks.
	freqs := []float64{0.05, 0.07, 0.09, 0.11, 0.13}
	dirs := []float64{0, 45, 90, 135, 180, 225, 270, 315}
	energy := make([][]float64, len(freqs))
	for i := range energy {
		energy[i] = make([]float64, len(dirs))
	}
	energy[1][6] = 10.0 // strong peak at 0.07 Hz, 270 deg
	energy[1][5] = 2.0
	energy[1][7] = 2.0
	energy[3][1] = 4.0 // weaker peak at 0.11 Hz, 45 deg
	energy[3][0] = 1.0
	energy[3][2] = 1.0
	return Spectrum{Frequencies: freqs, Directions: dirs, Energy: energy}
}

func TestExtractPeaks_OrdersByHeightDescending(t *testing.T) {
	a := New(1)
	peaks := a.ExtractPeaks(twoPeakSpectrum())

	require.Len(t, peaks, 2)
	assert.Greater(t, peaks[0].Height, peaks[1].Height)
	assert.InDelta(t, 270.0, peaks[0].Direction, 1e-9)
}

func TestExtractPeaks_EmptySpectrumNoPeaks(t *testing.T) {
	a := New(DefaultPeakWindow)
	peaks := a.ExtractPeaks(Spectrum{})
	assert.Empty(t, peaks)
}

func TestExtractPeaks_ZeroEnergyNoPeaks(t *testing.T) {
	a := New(DefaultPeakWindow)
	freqs := []float64{0.1, 0.2}
	dirs := []float64{0, 90}
	energy := [][]float64{{0, 0}, {0, 0}}
	peaks := a.ExtractPeaks(Spectrum{Frequencies: freqs, Directions: dirs, Energy: energy})
	assert.Empty(t, peaks)
}

func TestNew_NonPositiveWindowDefaults(t *testing.T) {
	a := New(0)
	assert.Equal(t, DefaultPeakWindow, a.PeakWindow)
	a2 := New(-3)
	assert.Equal(t, DefaultPeakWindow, a2.PeakWindow)
}

func TestToSwellComponents_FirstIsPrimary(t *testing.T) {
	peaks := []Peak{
		{Height: 3, Period: 14, Direction: 315, Confidence: 0.6},
		{Height: 1.2, Period: 9, Direction: 90, Confidence: 0.2},
	}
	primary, secondary := ToSwellComponents(peaks, "buoy_spectral")
	require.Len(t, primary, 1)
	require.Len(t, secondary, 1)
	assert.Equal(t, 315.0, primary[0].Direction)
	assert.Equal(t, 90.0, secondary[0].Direction)
}
