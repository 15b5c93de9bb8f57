package filter

import (
	"testing"

	"github.com/cail-lab/kmdnoise/pkg/core"
)

func arrayRecord(mz, intensity []float64) *core.SpectrumRecord {
	return &core.SpectrumRecord{
		ID:             "scan=1",
		MSLevel:        "1",
		MZArray:        mz,
		IntensityArray: intensity,
	}
}

func TestIntensityCutoff(t *testing.T) {
	rec := arrayRecord(
		[]float64{100, 200, 300, 400},
		[]float64{1, 50, 1000, 5},
	)

	cfg := &Config{IntensityCutoff: 1.0} // 1% of 1000 = 10
	cfg.Apply(rec)

	wantMZ := []float64{200, 300}
	if len(rec.MZArray) != len(wantMZ) {
		t.Fatalf("expected %d peaks, got %d", len(wantMZ), len(rec.MZArray))
	}
	for i := range wantMZ {
		if rec.MZArray[i] != wantMZ[i] {
			t.Errorf("peak %d: m/z = %v, want %v", i, rec.MZArray[i], wantMZ[i])
		}
	}
	if err := rec.Validate(); err != nil {
		t.Errorf("filtered record failed validation: %v", err)
	}
}

func TestTopN(t *testing.T) {
	rec := arrayRecord(
		[]float64{100, 200, 300, 400, 500},
		[]float64{10, 50, 30, 40, 20},
	)

	cfg := &Config{TopN: 3}
	cfg.Apply(rec)

	// Top 3 by intensity are m/z 200, 300, 400, kept in m/z order.
	wantMZ := []float64{200, 300, 400}
	if len(rec.MZArray) != 3 {
		t.Fatalf("expected 3 peaks, got %d", len(rec.MZArray))
	}
	for i := range wantMZ {
		if rec.MZArray[i] != wantMZ[i] {
			t.Errorf("peak %d: m/z = %v, want %v", i, rec.MZArray[i], wantMZ[i])
		}
	}
}

func TestTopNWithTies(t *testing.T) {
	rec := arrayRecord(
		[]float64{100, 200, 300, 400},
		[]float64{5, 5, 5, 5},
	)

	cfg := &Config{TopN: 2}
	cfg.Apply(rec)

	if len(rec.MZArray) != 2 {
		t.Errorf("tie-break should cap at N: got %d peaks", len(rec.MZArray))
	}
}

func TestTopNNoOpWhenFewerPeaks(t *testing.T) {
	rec := arrayRecord([]float64{100, 200}, []float64{1, 2})

	cfg := &Config{TopN: 10}
	cfg.Apply(rec)

	if len(rec.MZArray) != 2 {
		t.Errorf("expected arrays untouched, got %d peaks", len(rec.MZArray))
	}
}

func TestRemoveZeroIntensityPeaks(t *testing.T) {
	rec := arrayRecord(
		[]float64{100, 200, 300},
		[]float64{0, 10, -1},
	)

	RemoveZeroIntensityPeaks(rec)

	if len(rec.MZArray) != 1 || rec.MZArray[0] != 200 {
		t.Errorf("expected only m/z 200 to survive, got %v", rec.MZArray)
	}
}

func TestApplySkipsBasePeakRecords(t *testing.T) {
	mz := "455.2"
	rec := &core.SpectrumRecord{ID: "scan=1", MSLevel: "1", BasePeakMZ: &mz}

	cfg := &Config{TopN: 1, IntensityCutoff: 50}
	cfg.Apply(rec)

	if rec.MZArray != nil {
		t.Error("base-peak record should pass through untouched")
	}
}
