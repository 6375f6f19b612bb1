// Package spectral implements the §4.E Spectral Analyzer: extraction of
// directional-spectrum peaks (height, period, direction, confidence) from a
// buoy's frequency/direction energy grid.
package spectral

import (
	"math"
	"sort"

	"github.com/stonezone/surfcast-fusion/internal/domain"
)

// DefaultPeakWindow is the ±bin neighbourhood integrated around each local
// maximum to recover its partition energy. Hard-coded in the source with no
// stated justification (see SPEC_FULL.md Open Questions); exposed here as a
// configurable default rather than a literal constant.
const DefaultPeakWindow = 2

// Spectrum is a directional wave-energy grid: Energy[freqIdx][dirIdx] in
// m²/Hz/rad (or any consistent unit — only relative magnitudes matter for
// peak detection; see H_s formula for the absolute conversion).
type Spectrum struct {
	Frequencies []float64 // Hz, ascending
	Directions  []float64 // degrees, 0-360
	Energy      [][]float64
}

// Peak is one detected spectral partition.
type Peak struct {
	Height     float64 // meters, significant height of the partition
	Period     float64 // seconds
	Direction  float64 // degrees
	Confidence float64 // fractional share of total spectrum energy
}

// Analyzer extracts peaks from spectra. PeakWindow configures the
// integration neighbourhood; zero selects DefaultPeakWindow.
type Analyzer struct {
	PeakWindow int
}

// New creates an Analyzer with the given peak-integration window. A
// non-positive window falls back to DefaultPeakWindow.
func New(peakWindow int) *Analyzer {
	if peakWindow <= 0 {
		peakWindow = DefaultPeakWindow
	}
	return &Analyzer{PeakWindow: peakWindow}
}

// ExtractPeaks finds local maxima of the 2-D energy field and returns them
// ordered by descending height. A bin is a local max if it is >= all eight
// neighbours (with direction wraparound; frequency edges are not wrapped).
func (a *Analyzer) ExtractPeaks(s Spectrum) []Peak {
	nf := len(s.Frequencies)
	nd := len(s.Directions)
	if nf == 0 || nd == 0 {
		return nil
	}

	total := totalEnergy(s.Energy)
	if total <= 0 {
		return nil
	}

	var peaks []Peak
	for fi := 0; fi < nf; fi++ {
		for di := 0; di < nd; di++ {
			if !isLocalMax(s, fi, di) {
				continue
			}
			energy := a.integrateNeighborhood(s, fi, di)
			if energy <= 0 {
				continue
			}
			hs := 4 * math.Sqrt(energy)
			period := 1.0 / s.Frequencies[fi]
			peaks = append(peaks, Peak{
				Height:     hs,
				Period:     period,
				Direction:  s.Directions[di],
				Confidence: energy / total,
			})
		}
	}

	sort.SliceStable(peaks, func(i, j int) bool {
		return peaks[i].Height > peaks[j].Height
	})
	return peaks
}

func totalEnergy(grid [][]float64) float64 {
	sum := 0.0
	for _, row := range grid {
		for _, v := range row {
			sum += v
		}
	}
	return sum
}

func isLocalMax(s Spectrum, fi, di int) bool {
	nf := len(s.Frequencies)
	nd := len(s.Directions)
	v := s.Energy[fi][di]
	for dfi := -1; dfi <= 1; dfi++ {
		for ddi := -1; ddi <= 1; ddi++ {
			if dfi == 0 && ddi == 0 {
				continue
			}
			ofi := fi + dfi
			if ofi < 0 || ofi >= nf {
				continue
			}
			odi := ((di+ddi)%nd + nd) % nd // direction wraps
			if s.Energy[ofi][odi] > v {
				return false
			}
		}
	}
	return true
}

// integrateNeighborhood sums the energy grid within ±PeakWindow bins of
// (fi,di) in both frequency and direction, wrapping direction.
func (a *Analyzer) integrateNeighborhood(s Spectrum, fi, di int) float64 {
	nf := len(s.Frequencies)
	nd := len(s.Directions)
	sum := 0.0
	for dfi := -a.PeakWindow; dfi <= a.PeakWindow; dfi++ {
		ofi := fi + dfi
		if ofi < 0 || ofi >= nf {
			continue
		}
		for ddi := -a.PeakWindow; ddi <= a.PeakWindow; ddi++ {
			odi := ((di+ddi)%nd + nd) % nd
			sum += s.Energy[ofi][odi]
		}
	}
	return sum
}

// ToSwellComponents converts peaks into primary/secondary SwellComponents
// ranked by energy: the first peak is labelled primary, the rest secondary,
// per §4.E's "one SwellEvent per peak, primary/secondary by energy rank".
func ToSwellComponents(peaks []Peak, source string) (primary []domain.SwellComponent, secondary []domain.SwellComponent) {
	for i, p := range peaks {
		c := domain.SwellComponent{
			Height:     p.Height,
			Period:     p.Period,
			Direction:  p.Direction,
			Confidence: p.Confidence,
			Source:     source,
			Quality:    domain.QualityValid,
		}
		if i == 0 {
			primary = append(primary, c)
		} else {
			secondary = append(secondary, c)
		}
	}
	return primary, secondary
}
