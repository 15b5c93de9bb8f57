// kmdnoise - Kendrick mass defect noise analysis for mzML data
package main

import (
	"fmt"
	"os"

	"github.com/cail-lab/kmdnoise/cmd/kmdnoise/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
