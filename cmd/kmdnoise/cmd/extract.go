package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cail-lab/kmdnoise/pkg/reader/mzml"
	"github.com/cail-lab/kmdnoise/pkg/store"
)

func runExtract(cmd *cobra.Command, args []string) error {
	// Validate input file exists
	if _, err := os.Stat(inputFile); os.IsNotExist(err) {
		return fmt.Errorf("input file does not exist: %s", inputFile)
	}

	inFile, err := os.Open(inputFile)
	if err != nil {
		return fmt.Errorf("failed to open input file: %w", err)
	}
	defer inFile.Close()

	fmt.Printf("Extracting %s...\n", inputFile)

	result, err := mzml.Parse(inFile)
	if err != nil {
		return fmt.Errorf("failed to extract %s: %w", inputFile, err)
	}

	fmt.Println("Spectra found:")
	printCountsByMSLevel(result.CountsByMSLevel)

	if result.DecodeErrorCount > 0 {
		fmt.Fprintf(os.Stderr, "Warning: %d binary array(s) failed to decode, affected spectra keep their scalar fields\n",
			result.DecodeErrorCount)
	}

	out := outputFile
	if out == "" {
		out = strings.TrimSuffix(inputFile, filepath.Ext(inputFile)) + ".json"
	}

	if err := store.Save(out, result.Records); err != nil {
		return err
	}

	fmt.Printf("Extracted %d ms-level=1 spectra to %s\n", len(result.Records), out)
	return nil
}
