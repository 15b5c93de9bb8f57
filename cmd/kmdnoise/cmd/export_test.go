package cmd

import (
	"database/sql"
	"path/filepath"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cail-lab/kmdnoise/pkg/core"
	"github.com/cail-lab/kmdnoise/pkg/store"
)

func strPtr(s string) *string { return &s }

func TestExportKeepsPartialDecodeRecords(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "spectra.json")
	out := filepath.Join(dir, "spectra.db")

	records := []core.SpectrumRecord{
		{
			// m/z array lost to a decode failure, intensity survived. The
			// record keeps its scalar fields and must reach the database.
			ID:                "scan=1",
			MSLevel:           "1",
			BasePeakMZ:        strPtr("455.2"),
			BasePeakIntensity: strPtr("10000"),
			IntensityArray:    []float64{10.0, 20.0},
			DecodeErrors:      []string{"decode mz array of spectrum scan=1: invalid base64"},
		},
		{
			ID:                "scan=2",
			MSLevel:           "1",
			BasePeakMZ:        strPtr("300.1"),
			BasePeakIntensity: strPtr("500"),
		},
	}
	require.NoError(t, store.Save(in, records))

	inputFile = in
	outputFile = out
	require.NoError(t, runExport(exportCmd, nil))

	db, err := sql.Open("sqlite3", out)
	require.NoError(t, err)
	defer db.Close()

	var count int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM ScanTable").Scan(&count))
	assert.Equal(t, 2, count)

	var blobMass, blobIntensity []byte
	var decodeErrors int
	require.NoError(t, db.QueryRow(
		"SELECT blobMass, blobIntensity, DecodeErrors FROM ScanTable WHERE NativeId = 'scan=1'").
		Scan(&blobMass, &blobIntensity, &decodeErrors))
	assert.Nil(t, blobMass, "missing array stores NULL, not an empty blob")
	assert.Len(t, blobIntensity, 2*8)
	assert.Equal(t, 1, decodeErrors)
}
