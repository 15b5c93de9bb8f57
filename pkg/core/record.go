// Package core provides the spectrum record model and Kendrick mass defect
// calculations used throughout kmdnoise.
package core

import (
	"fmt"
	"math"
	"strings"
)

// SpectrumRecord represents one acquired scan extracted from an mzML file.
// Optional fields are nil when the source spectrum did not declare them;
// absence is a first-class value, never an error. Derived Kendrick fields
// are computed by Augment and are never loaded from the instrument file.
type SpectrumRecord struct {
	// ID is the scan identifier, preferring the "scan=<digits>" substring
	// of the native spectrum id when present.
	ID      string `json:"id"`
	MSLevel string `json:"ms_level"`

	// Base peak fields are kept as decimal-formatted strings to preserve
	// the precision reported by the instrument.
	BasePeakMZ        *string `json:"base_peak_mz"`
	BasePeakIntensity *string `json:"base_peak_intensity"`

	// Full peak arrays, index-aligned (same index = same peak). Present
	// only for spectra that declared binary data arrays. Serialized
	// without omitempty: an empty array and an absent one are distinct
	// states and must round-trip as such.
	MZArray        []float64 `json:"m_z_array"`
	IntensityArray []float64 `json:"intensity_array"`

	// Derived scalar fields (base-peak mode).
	KendrickMass *float64 `json:"kendrick_mass,omitempty"`
	KMDFraction  *float64 `json:"kendrick_mass_defect_fraction,omitempty"`
	KMDRound     *float64 `json:"kendrick_mass_defect_round,omitempty"`

	// Derived array fields (full-array mode), parallel to MZArray.
	KendrickMassArray []float64 `json:"kendrick_mass_array,omitempty"`
	KMDFractionArray  []float64 `json:"kendrick_mass_defect_fraction_array,omitempty"`
	KMDRoundArray     []float64 `json:"kendrick_mass_defect_round_array,omitempty"`

	// DecodeErrors records per-array decode failures attached during
	// extraction. The record is still emitted with whatever succeeded.
	DecodeErrors []string `json:"decode_errors,omitempty"`
}

// ValidationError represents an error found during record validation.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error in %s: %s", e.Field, e.Message)
}

// Validate checks the record's structural invariants: paired arrays of
// equal length, derived arrays parallel to the m/z array, finite values.
func (s *SpectrumRecord) Validate() error {
	var errs []string

	if s.ID == "" {
		errs = append(errs, "id is required")
	}
	if (s.MZArray == nil) != (s.IntensityArray == nil) {
		errs = append(errs, "m/z and intensity arrays must be present together")
	}
	if s.MZArray != nil && len(s.MZArray) != len(s.IntensityArray) {
		errs = append(errs, fmt.Sprintf("array length mismatch: %d m/z vs %d intensity",
			len(s.MZArray), len(s.IntensityArray)))
	}
	for _, derived := range [][]float64{s.KendrickMassArray, s.KMDFractionArray, s.KMDRoundArray} {
		if derived != nil && len(derived) != len(s.MZArray) {
			errs = append(errs, fmt.Sprintf("derived array length %d does not match m/z array length %d",
				len(derived), len(s.MZArray)))
		}
	}
	for i, mz := range s.MZArray {
		if math.IsNaN(mz) || math.IsInf(mz, 0) {
			errs = append(errs, fmt.Sprintf("peak %d has invalid m/z", i))
		}
	}
	for i, intensity := range s.IntensityArray {
		if math.IsNaN(intensity) || math.IsInf(intensity, 0) {
			errs = append(errs, fmt.Sprintf("peak %d has invalid intensity", i))
		}
	}

	if len(errs) > 0 {
		return &ValidationError{
			Field:   "SpectrumRecord",
			Message: strings.Join(errs, "; "),
		}
	}

	return nil
}

// HasArrays reports whether the record carries full, non-empty peak arrays.
func (s *SpectrumRecord) HasArrays() bool {
	return len(s.MZArray) > 0 && len(s.IntensityArray) > 0
}

// CountByMSLevel tallies records per ms_level value.
func CountByMSLevel(records []SpectrumRecord) map[string]int {
	counts := make(map[string]int)
	for _, rec := range records {
		counts[rec.MSLevel]++
	}
	return counts
}
