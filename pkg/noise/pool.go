package noise

import (
	"fmt"

	"github.com/cail-lab/kmdnoise/pkg/core"
)

// KMD variant names, as exposed to the CLI and plotting collaborators.
const (
	VariantFractional = "fractional"
	VariantRound      = "round"
)

// PoolPoints flattens augmented records into the pooled (m/z, KMD,
// intensity) triples the band is built from. Full-array records
// contribute one point per peak; records without arrays fall back to
// their base-peak scalars. Records whose derived fields are absent
// (unparseable or missing input) contribute nothing.
func PoolPoints(records []core.SpectrumRecord, variant string) ([]Point, error) {
	if variant != VariantFractional && variant != VariantRound {
		return nil, fmt.Errorf("unknown KMD variant %q, must be %q or %q",
			variant, VariantFractional, VariantRound)
	}

	var points []Point
	for _, rec := range records {
		if rec.HasArrays() {
			kmd := rec.KMDFractionArray
			if variant == VariantRound {
				kmd = rec.KMDRoundArray
			}
			if len(kmd) != len(rec.MZArray) || len(rec.IntensityArray) != len(rec.MZArray) {
				continue
			}
			for i := range rec.MZArray {
				points = append(points, Point{
					MZ:        rec.MZArray[i],
					KMD:       kmd[i],
					Intensity: rec.IntensityArray[i],
				})
			}
			continue
		}

		kmd := rec.KMDFraction
		if variant == VariantRound {
			kmd = rec.KMDRound
		}
		if kmd == nil || rec.BasePeakMZ == nil {
			continue
		}
		mz, ok := core.ParseDecimal(*rec.BasePeakMZ)
		if !ok {
			continue
		}

		intensity := 0.0
		if rec.BasePeakIntensity != nil {
			if v, ok := core.ParseDecimal(*rec.BasePeakIntensity); ok {
				intensity = v
			}
		}

		points = append(points, Point{MZ: mz, KMD: *kmd, Intensity: intensity})
	}

	return points, nil
}
