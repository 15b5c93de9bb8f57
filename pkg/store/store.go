// Package store persists spectrum records as the JSON interchange format
// consumed by downstream analysis and plotting collaborators.
package store

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/cail-lab/kmdnoise/pkg/core"
)

// Load reads a JSON array of spectrum records. Records lacking array or
// derived fields load with those fields absent; that is steady state,
// not an error.
func Load(path string) ([]core.SpectrumRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	var records []core.SpectrumRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	return records, nil
}

// Save writes records as a pretty-printed JSON array. Key order follows
// the struct field order, so output is stable across runs for diffing.
func Save(path string, records []core.SpectrumRecord) error {
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode records: %w", err)
	}
	data = append(data, '\n')

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}

	return nil
}

// Augment overwrites path with the augmented records after renaming the
// original file to path+".bak". A failed backup is reported through the
// returned backup error and the write proceeds regardless; only the write
// error is fatal to the operation.
func Augment(path string, records []core.SpectrumRecord) (backupErr, err error) {
	bak := path + ".bak"
	if renameErr := os.Rename(path, bak); renameErr != nil {
		backupErr = fmt.Errorf("failed to back up %s to %s: %w", path, bak, renameErr)
	}

	return backupErr, Save(path, records)
}
