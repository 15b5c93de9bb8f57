// Package filter provides optional peak-array filtering applied before
// points are pooled for noise analysis. Filters operate on a record's
// index-aligned m/z and intensity arrays and are never applied implicitly.
package filter

import (
	"sort"

	"github.com/cail-lab/kmdnoise/pkg/core"
)

// Config holds filtering configuration.
type Config struct {
	TopN            int     // Keep only top N most intense peaks (0 = no limit)
	IntensityCutoff float64 // Keep only peaks above this % of base peak (0 = no cutoff)
}

// Apply applies all configured filters to a record's peak arrays. Records
// without full arrays pass through untouched. Index alignment between the
// arrays is preserved; derived Kendrick arrays must be recomputed after
// filtering.
func (c *Config) Apply(rec *core.SpectrumRecord) {
	if !rec.HasArrays() {
		return
	}

	if c.IntensityCutoff > 0 {
		c.filterByIntensity(rec)
	}

	if c.TopN > 0 {
		c.filterTopN(rec)
	}
}

// filterByIntensity removes peaks below the intensity cutoff percentage
// of the most intense peak.
func (c *Config) filterByIntensity(rec *core.SpectrumRecord) {
	maxIntensity := 0.0
	for _, intensity := range rec.IntensityArray {
		if intensity > maxIntensity {
			maxIntensity = intensity
		}
	}

	threshold := (c.IntensityCutoff / 100.0) * maxIntensity
	keepPeaks(rec, func(i int) bool { return rec.IntensityArray[i] >= threshold })
}

// filterTopN keeps only the N most intense peaks, preserving m/z order.
func (c *Config) filterTopN(rec *core.SpectrumRecord) {
	if len(rec.IntensityArray) <= c.TopN {
		return
	}

	// Intensity of the N-th most intense peak.
	intensities := make([]float64, len(rec.IntensityArray))
	copy(intensities, rec.IntensityArray)
	sort.Sort(sort.Reverse(sort.Float64Slice(intensities)))
	threshold := intensities[c.TopN-1]

	// Keep peaks at or above the threshold, capped at N to break ties.
	kept := 0
	keepPeaks(rec, func(i int) bool {
		if kept >= c.TopN || rec.IntensityArray[i] < threshold {
			return false
		}
		kept++
		return true
	})
}

// RemoveZeroIntensityPeaks removes peaks with zero or negative intensity.
func RemoveZeroIntensityPeaks(rec *core.SpectrumRecord) {
	if !rec.HasArrays() {
		return
	}
	keepPeaks(rec, func(i int) bool { return rec.IntensityArray[i] > 0 })
}

// keepPeaks compacts both arrays, retaining index i when keep(i) is true.
// keep is called in ascending index order exactly once per peak.
func keepPeaks(rec *core.SpectrumRecord, keep func(i int) bool) {
	var mz, intensity []float64
	for i := range rec.MZArray {
		if keep(i) {
			mz = append(mz, rec.MZArray[i])
			intensity = append(intensity, rec.IntensityArray[i])
		}
	}
	rec.MZArray = mz
	rec.IntensityArray = intensity

	// Derived Kendrick arrays no longer align with the filtered peaks.
	rec.KendrickMassArray = nil
	rec.KMDFractionArray = nil
	rec.KMDRoundArray = nil
}
