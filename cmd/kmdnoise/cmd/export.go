package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/cail-lab/kmdnoise/pkg/core"
	"github.com/cail-lab/kmdnoise/pkg/writer/sqlite"
)

// partialDecode reports whether the record lost one of its peak arrays to
// a binary decode failure. Such records are still exported, with NULL for
// the missing blob, mirroring the JSON store's partial-failure semantics.
func partialDecode(rec *core.SpectrumRecord) bool {
	return len(rec.DecodeErrors) > 0 && (rec.MZArray == nil) != (rec.IntensityArray == nil)
}

func runExport(cmd *cobra.Command, args []string) error {
	res, err := runAnalysis(cmd)
	if err != nil {
		return err
	}

	writer, err := sqlite.NewWriter(outputFile)
	if err != nil {
		return fmt.Errorf("failed to create output database: %w", err)
	}

	count := 0
	skipped := 0
	for i := range res.records {
		rec := &res.records[i]

		if err := rec.Validate(); err != nil && !partialDecode(rec) {
			fmt.Fprintf(os.Stderr, "Warning: invalid record %s: %v\n", rec.ID, err)
			skipped++
			continue
		}

		if err := writer.WriteRecord(rec); err != nil {
			writer.Close()
			return fmt.Errorf("failed to write record %s: %w", rec.ID, err)
		}
		count++
	}

	if err := writer.WriteAnalysis(res.est, res.lowerX, res.upperX, res.margin, res.slope); err != nil {
		writer.Close()
		return err
	}

	if err := writer.Finalize(inputFile, res.unit.Name, res.variant); err != nil {
		return fmt.Errorf("failed to finalize database: %w", err)
	}

	fmt.Printf("\nExport complete!\n")
	fmt.Printf("Records written: %d\n", count)
	if skipped > 0 {
		fmt.Printf("Skipped: %d records (validation errors)\n", skipped)
	}
	if res.est.Defined {
		fmt.Printf("Noise level: %.6g (%d in-band points)\n", res.est.Noise, res.est.InBand)
	} else {
		fmt.Printf("Noise level: undefined (0 of %d points in band)\n", res.est.Total)
	}
	fmt.Printf("Output: %s\n", outputFile)

	return nil
}
