// Package cmd provides CLI command implementations
package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/cail-lab/kmdnoise/pkg/core"
	"github.com/cail-lab/kmdnoise/pkg/noise"
)

var (
	cfgFile string

	// Flags for the pipeline commands
	inputFile      string
	outputFile     string
	method         string
	repeatUnitName string
	augmentInPlace bool
	lowerX         float64
	upperX         float64
	bandMargin     float64
	slope          float64
	topN           int
	cutoffPercent  float64
	downsampleCap  int
	bandOutFile    string
)

var rootCmd = &cobra.Command{
	Use:   "kmdnoise",
	Short: "Kendrick mass defect noise analysis for mzML data",
	Long: `kmdnoise extracts MS1 peak lists from mzML instrument output and
estimates the spectrum noise floor from a Kendrick Mass Defect (KMD) band.

The pipeline runs in stages:
- extract: decode the mzML binary peak arrays into a JSON spectrum store
- analyze: compute KMD values, build the slanted noise band, and estimate
  the noise level as the geometric mean of in-band intensities
- export: write augmented spectra and the analysis summary to SQLite`,
	Version: "1.0.0",
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Config file (default: ./kmdnoise.yaml or ~/.config/kmdnoise/kmdnoise.yaml)")

	rootCmd.AddCommand(extractCmd)
	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(exportCmd)

	// Extract command flags
	extractCmd.Flags().StringVarP(&inputFile, "in", "i", "", "Input mzML file path (required)")
	extractCmd.Flags().StringVarP(&outputFile, "out", "o", "", "Output JSON file (default: input name with .json extension)")
	extractCmd.MarkFlagRequired("in")

	// Analyze command flags
	analyzeCmd.Flags().StringVarP(&inputFile, "in", "i", "", "Input JSON file from extract (required)")
	analyzeCmd.Flags().StringVar(&method, "method", "round", "KMD variant: fractional or round")
	analyzeCmd.Flags().StringVar(&repeatUnitName, "repeat-unit", "CH2", "Repeat unit for Kendrick scaling: CH2, H2O, CO2, NH3, or a name from repeat_units.csv")
	analyzeCmd.Flags().BoolVar(&augmentInPlace, "augment", false, "Rewrite the input JSON with derived KMD fields (original backed up to .bak)")
	analyzeCmd.Flags().Float64Var(&lowerX, "lower-x", 0, "Lower m/z bound of the analysis window (default: data minimum)")
	analyzeCmd.Flags().Float64Var(&upperX, "upper-x", 0, "Upper m/z bound of the analysis window (default: data maximum)")
	analyzeCmd.Flags().Float64Var(&bandMargin, "band-margin", noise.DefaultBandMargin, "KMD margin added on both sides of the band envelope")
	analyzeCmd.Flags().Float64Var(&slope, "slope", noise.DefaultSlope, "Diagonal slope of the band envelope")
	analyzeCmd.Flags().IntVar(&topN, "top-n", 0, "Keep only top N most intense peaks per spectrum (0 = no limit)")
	analyzeCmd.Flags().Float64Var(&cutoffPercent, "cutoff", 0, "Intensity cutoff as % of base peak (0 = no cutoff)")
	analyzeCmd.Flags().IntVar(&downsampleCap, "downsample", 0, "Cap on in-band points written to --band-out (0 = no cap)")
	analyzeCmd.Flags().StringVar(&bandOutFile, "band-out", "", "Write the band envelope and in-band points as JSON for plotting")
	analyzeCmd.MarkFlagRequired("in")

	// Export command flags
	exportCmd.Flags().StringVarP(&inputFile, "in", "i", "", "Input JSON file from extract (required)")
	exportCmd.Flags().StringVarP(&outputFile, "out", "o", "", "Output database file (required)")
	exportCmd.Flags().StringVar(&method, "method", "round", "KMD variant: fractional or round")
	exportCmd.Flags().StringVar(&repeatUnitName, "repeat-unit", "CH2", "Repeat unit for Kendrick scaling: CH2, H2O, CO2, NH3, or a name from repeat_units.csv")
	exportCmd.Flags().Float64Var(&lowerX, "lower-x", 0, "Lower m/z bound of the analysis window (default: data minimum)")
	exportCmd.Flags().Float64Var(&upperX, "upper-x", 0, "Upper m/z bound of the analysis window (default: data maximum)")
	exportCmd.Flags().Float64Var(&bandMargin, "band-margin", noise.DefaultBandMargin, "KMD margin added on both sides of the band envelope")
	exportCmd.Flags().Float64Var(&slope, "slope", noise.DefaultSlope, "Diagonal slope of the band envelope")
	exportCmd.Flags().IntVar(&topN, "top-n", 0, "Keep only top N most intense peaks per spectrum (0 = no limit)")
	exportCmd.Flags().Float64Var(&cutoffPercent, "cutoff", 0, "Intensity cutoff as % of base peak (0 = no cutoff)")
	exportCmd.MarkFlagRequired("in")
	exportCmd.MarkFlagRequired("out")
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("kmdnoise")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "kmdnoise"))
		}
	}

	viper.SetEnvPrefix("KMDNOISE")
	viper.AutomaticEnv()

	viper.SetDefault("repeat-units-csv", "repeat_units.csv")

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// stringSetting resolves a string option: an explicitly set flag wins,
// then a config/env value, then the flag default.
func stringSetting(cmd *cobra.Command, name string, flagValue string) string {
	if cmd.Flags().Changed(name) || !viper.IsSet(name) {
		return flagValue
	}
	return viper.GetString(name)
}

// floatSetting resolves a float option with the same precedence.
func floatSetting(cmd *cobra.Command, name string, flagValue float64) float64 {
	if cmd.Flags().Changed(name) || !viper.IsSet(name) {
		return flagValue
	}
	return viper.GetFloat64(name)
}

// resolveRepeatUnit looks up a repeat unit by name against the built-in
// set, merged with custom definitions from the repeat-units CSV when the
// file exists.
func resolveRepeatUnit(name string) (core.RepeatUnit, error) {
	units := core.DefaultRepeatUnits()

	csvPath := viper.GetString("repeat-units-csv")
	if _, err := os.Stat(csvPath); err == nil {
		f, err := os.Open(csvPath)
		if err == nil {
			if err := units.LoadFromCSV(f); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: failed to load %s: %v\n", csvPath, err)
			}
			f.Close()
		}
	}

	unit, ok := units.Get(name)
	if !ok {
		names := units.Names()
		sort.Strings(names)
		return core.RepeatUnit{}, fmt.Errorf("unknown repeat unit '%s', known units: %v", name, names)
	}
	return unit, nil
}

// printCountsByMSLevel prints the ms-level tally in sorted level order.
func printCountsByMSLevel(counts map[string]int) {
	levels := make([]string, 0, len(counts))
	for level := range counts {
		levels = append(levels, level)
	}
	sort.Strings(levels)

	for _, level := range levels {
		label := level
		if label == "" {
			label = "(unknown)"
		}
		fmt.Printf("  ms_level=%s: %d spectra\n", label, counts[level])
	}
}

var extractCmd = &cobra.Command{
	Use:   "extract",
	Short: "Extract MS1 spectra from an mzML file to JSON",
	Long: `Extract decodes the base64/zlib binary peak arrays of an mzML file and
writes the MS1 spectra to a JSON spectrum store for later analysis.

Examples:
  # Extract to sample.json
  kmdnoise extract --in sample.mzML

  # Extract to an explicit output path
  kmdnoise extract --in sample.mzML --out peaks.json`,
	RunE: runExtract,
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Compute KMD values and estimate the noise level",
	Long: `Analyze computes Kendrick mass defect values for every extracted
spectrum, pools the peaks, builds the slanted noise band over the m/z
range, and reports the geometric-mean noise level of the in-band points.

Examples:
  # Estimate the noise level with default CH2 scaling
  kmdnoise analyze --in sample.json

  # Fractional KMD over a restricted window, augmenting the store in place
  kmdnoise analyze --in sample.json --method fractional --lower-x 200 --upper-x 1200 --augment

  # Emit the band overlay for plotting, capped at 5000 points
  kmdnoise analyze --in sample.json --band-out band.json --downsample 5000`,
	RunE: runAnalyze,
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export augmented spectra and the analysis summary to SQLite",
	Long: `Export runs the same analysis pipeline as analyze, then writes the
augmented spectrum records, the noise estimate, and the run parameters to
a SQLite database.

Examples:
  kmdnoise export --in sample.json --out sample.db

  kmdnoise export --in sample.json --out sample.db --repeat-unit H2O --top-n 500`,
	RunE: runExport,
}
