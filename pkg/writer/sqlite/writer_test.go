package sqlite

import (
	"database/sql"
	"encoding/binary"
	"math"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cail-lab/kmdnoise/pkg/core"
	"github.com/cail-lab/kmdnoise/pkg/noise"
)

func strPtr(s string) *string { return &s }

func TestWriteAndReadBack(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.db")

	w, err := NewWriter(path)
	require.NoError(t, err)

	rec := &core.SpectrumRecord{
		ID:                "scan=1",
		MSLevel:           "1",
		BasePeakMZ:        strPtr("455.234"),
		BasePeakIntensity: strPtr("12345.6"),
		MZArray:           []float64{100.0, 200.0, 300.0},
		IntensityArray:    []float64{10.0, 20.0, 30.0},
	}
	core.CH2.Augment(rec)
	require.NoError(t, w.WriteRecord(rec))

	basePeakOnly := &core.SpectrumRecord{ID: "scan=2", MSLevel: "1"}
	require.NoError(t, w.WriteRecord(basePeakOnly))

	est := noise.Estimate{Noise: 42.5, Defined: true, InBand: 3, Total: 3}
	require.NoError(t, w.WriteAnalysis(est, 100, 300, noise.DefaultBandMargin, noise.DefaultSlope))
	require.NoError(t, w.Finalize("input.mzML", "CH2", "round"))

	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	defer db.Close()

	var count int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM ScanTable").Scan(&count))
	assert.Equal(t, 2, count)

	var nativeID string
	var blobMass []byte
	require.NoError(t, db.QueryRow(
		"SELECT NativeId, blobMass FROM ScanTable WHERE ScanId = 1").Scan(&nativeID, &blobMass))
	assert.Equal(t, "scan=1", nativeID)
	require.Len(t, blobMass, 3*8)
	assert.Equal(t, 100.0, math.Float64frombits(binary.LittleEndian.Uint64(blobMass)))

	var noiseLevel float64
	var inBand int
	require.NoError(t, db.QueryRow(
		"SELECT NoiseLevel, InBandCount FROM AnalysisTable").Scan(&noiseLevel, &inBand))
	assert.Equal(t, 42.5, noiseLevel)
	assert.Equal(t, 3, inBand)

	var repeatUnit string
	require.NoError(t, db.QueryRow("SELECT RepeatUnit FROM HeaderTable").Scan(&repeatUnit))
	assert.Equal(t, "CH2", repeatUnit)
}

func TestUndefinedNoiseStoresNull(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.db")

	w, err := NewWriter(path)
	require.NoError(t, err)
	require.NoError(t, w.WriteAnalysis(noise.Estimate{Defined: false, Total: 10}, 0, 0, 0.025, noise.DefaultSlope))
	require.NoError(t, w.Finalize("input.mzML", "CH2", "fractional"))

	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	defer db.Close()

	var level sql.NullFloat64
	var defined bool
	require.NoError(t, db.QueryRow("SELECT NoiseLevel, NoiseDefined FROM AnalysisTable").Scan(&level, &defined))
	assert.False(t, level.Valid, "undefined estimate must store NULL, not a number")
	assert.False(t, defined)
}
