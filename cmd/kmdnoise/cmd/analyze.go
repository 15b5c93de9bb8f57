package cmd

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/cail-lab/kmdnoise/pkg/core"
	"github.com/cail-lab/kmdnoise/pkg/filter"
	"github.com/cail-lab/kmdnoise/pkg/noise"
	"github.com/cail-lab/kmdnoise/pkg/store"
)

// analysisResult carries the outcome of the shared analyze/export pipeline.
type analysisResult struct {
	records []core.SpectrumRecord
	unit    core.RepeatUnit
	variant string
	points  []noise.Point
	band    noise.Band
	est     noise.Estimate

	// Resolved parameters, for reporting and export.
	lowerX float64
	upperX float64
	margin float64
	slope  float64
}

// runAnalysis loads the spectrum store, applies the optional peak filters,
// augments every record with KMD fields, and estimates the noise level.
func runAnalysis(cmd *cobra.Command) (*analysisResult, error) {
	// Validate input file exists
	if _, err := os.Stat(inputFile); os.IsNotExist(err) {
		return nil, fmt.Errorf("input file does not exist: %s", inputFile)
	}

	records, err := store.Load(inputFile)
	if err != nil {
		return nil, err
	}

	fmt.Printf("Loaded %d records from %s\n", len(records), inputFile)
	printCountsByMSLevel(core.CountByMSLevel(records))

	variant := stringSetting(cmd, "method", method)
	if variant != noise.VariantFractional && variant != noise.VariantRound {
		return nil, fmt.Errorf("invalid method '%s', must be fractional or round", variant)
	}

	unit, err := resolveRepeatUnit(stringSetting(cmd, "repeat-unit", repeatUnitName))
	if err != nil {
		return nil, err
	}

	filterConfig := &filter.Config{
		TopN:            topN,
		IntensityCutoff: cutoffPercent,
	}

	for i := range records {
		if topN > 0 || cutoffPercent > 0 {
			filter.RemoveZeroIntensityPeaks(&records[i])
			filterConfig.Apply(&records[i])
		}
		unit.Augment(&records[i])
	}

	points, err := noise.PoolPoints(records, variant)
	if err != nil {
		return nil, err
	}

	res := &analysisResult{
		records: records,
		unit:    unit,
		variant: variant,
		points:  points,
		margin:  floatSetting(cmd, "band-margin", bandMargin),
		slope:   floatSetting(cmd, "slope", slope),
	}

	opts := noise.Options{
		BandMargin: &res.margin,
		Slope:      &res.slope,
	}
	if cmd.Flags().Changed("lower-x") {
		opts.LowerX = &lowerX
	}
	if cmd.Flags().Changed("upper-x") {
		opts.UpperX = &upperX
	}

	res.band, res.est = noise.EstimateNoise(points, opts)
	res.lowerX, res.upperX = opts.Bounds(points)
	return res, nil
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	res, err := runAnalysis(cmd)
	if err != nil {
		return err
	}

	fmt.Printf("Repeat unit: %s (nominal %.4g, exact %.6g)\n", res.unit.Name, res.unit.Nominal, res.unit.Exact)
	fmt.Printf("KMD variant: %s\n", res.variant)
	fmt.Printf("Pooled %d points, analysis window m/z %.4f - %.4f\n", res.est.Total, res.lowerX, res.upperX)
	fmt.Printf("In-band points: %d\n", res.est.InBand)

	if res.est.Defined {
		fmt.Printf("Noise level: %.6g\n", res.est.Noise)
	} else {
		fmt.Println("Noise level: undefined")
		fmt.Fprintln(os.Stderr, "Warning: no points classified inside the band, widen the margin or check the m/z window")
	}

	if augmentInPlace {
		backupErr, err := store.Augment(inputFile, res.records)
		if err != nil {
			return err
		}
		if backupErr != nil {
			fmt.Fprintf(os.Stderr, "Warning: %v\n", backupErr)
		} else {
			fmt.Printf("Original backed up to %s.bak\n", inputFile)
		}
		fmt.Printf("Augmented records written to %s\n", inputFile)
	}

	if bandOutFile != "" {
		if err := writeBandOverlay(res); err != nil {
			return err
		}
		fmt.Printf("Band overlay written to %s\n", bandOutFile)
	}

	return nil
}

// bandOverlay is the JSON payload consumed by the plotting side: the band
// breakpoints plus the (possibly downsampled) in-band points.
type bandOverlay struct {
	RepeatUnit string         `json:"repeat_unit"`
	Variant    string         `json:"variant"`
	XBand      []float64      `json:"x_band"`
	YLow       []float64      `json:"y_low"`
	YHigh      []float64      `json:"y_high"`
	Noise      *float64       `json:"noise"`
	InBand     []overlayPoint `json:"in_band_points"`
}

type overlayPoint struct {
	MZ        float64 `json:"mz"`
	KMD       float64 `json:"kmd"`
	Intensity float64 `json:"intensity"`
}

func writeBandOverlay(res *analysisResult) error {
	opts := noise.Options{
		LowerX:     &res.lowerX,
		UpperX:     &res.upperX,
		BandMargin: &res.margin,
		Slope:      &res.slope,
	}
	inside := noise.Classify(res.points, res.band, opts)
	if downsampleCap > 0 && len(inside) > downsampleCap {
		rng := rand.New(rand.NewSource(time.Now().UnixNano()))
		inside = noise.Downsample(inside, downsampleCap, rng)
		fmt.Printf("Downsampled band overlay to %d of %d in-band points\n", len(inside), res.est.InBand)
	}

	overlay := bandOverlay{
		RepeatUnit: res.unit.Name,
		Variant:    res.variant,
		XBand:      res.band.X,
		YLow:       res.band.Low,
		YHigh:      res.band.High,
		InBand:     make([]overlayPoint, 0, len(inside)),
	}
	if res.est.Defined {
		overlay.Noise = &res.est.Noise
	}
	for _, p := range inside {
		overlay.InBand = append(overlay.InBand, overlayPoint{MZ: p.MZ, KMD: p.KMD, Intensity: p.Intensity})
	}

	data, err := json.MarshalIndent(overlay, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode band overlay: %w", err)
	}
	data = append(data, '\n')

	if err := os.WriteFile(bandOutFile, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", bandOutFile, err)
	}
	return nil
}
