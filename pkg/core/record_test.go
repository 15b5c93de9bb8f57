package core

import (
	"math"
	"testing"
)

func strPtr(s string) *string { return &s }

func TestRecordValidation(t *testing.T) {
	tests := []struct {
		name    string
		rec     *SpectrumRecord
		wantErr bool
	}{
		{
			name: "base peak only",
			rec: &SpectrumRecord{
				ID:                "scan=100",
				MSLevel:           "1",
				BasePeakMZ:        strPtr("455.2"),
				BasePeakIntensity: strPtr("12345.6"),
			},
			wantErr: false,
		},
		{
			name: "full arrays",
			rec: &SpectrumRecord{
				ID:             "scan=101",
				MSLevel:        "1",
				MZArray:        []float64{100.0, 200.0},
				IntensityArray: []float64{10.0, 20.0},
			},
			wantErr: false,
		},
		{
			name:    "missing id",
			rec:     &SpectrumRecord{MSLevel: "1"},
			wantErr: true,
		},
		{
			name: "array length mismatch",
			rec: &SpectrumRecord{
				ID:             "scan=102",
				MSLevel:        "1",
				MZArray:        []float64{100.0, 200.0},
				IntensityArray: []float64{10.0},
			},
			wantErr: true,
		},
		{
			name: "intensity array without m/z array",
			rec: &SpectrumRecord{
				ID:             "scan=103",
				MSLevel:        "1",
				IntensityArray: []float64{10.0},
			},
			wantErr: true,
		},
		{
			name: "derived array length mismatch",
			rec: &SpectrumRecord{
				ID:                "scan=104",
				MSLevel:           "1",
				MZArray:           []float64{100.0, 200.0},
				IntensityArray:    []float64{10.0, 20.0},
				KendrickMassArray: []float64{99.8},
			},
			wantErr: true,
		},
		{
			name: "NaN m/z",
			rec: &SpectrumRecord{
				ID:             "scan=105",
				MSLevel:        "1",
				MZArray:        []float64{math.NaN()},
				IntensityArray: []float64{10.0},
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.rec.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestHasArrays(t *testing.T) {
	rec := &SpectrumRecord{ID: "scan=1", MSLevel: "1"}
	if rec.HasArrays() {
		t.Error("record without arrays reported HasArrays")
	}

	rec.MZArray = []float64{}
	rec.IntensityArray = []float64{}
	if rec.HasArrays() {
		t.Error("empty arrays should not count as full-array mode")
	}

	rec.MZArray = []float64{100.0}
	rec.IntensityArray = []float64{10.0}
	if !rec.HasArrays() {
		t.Error("record with arrays reported !HasArrays")
	}
}

func TestCountByMSLevel(t *testing.T) {
	records := []SpectrumRecord{
		{ID: "scan=1", MSLevel: "1"},
		{ID: "scan=2", MSLevel: "2"},
		{ID: "scan=3", MSLevel: "1"},
	}

	counts := CountByMSLevel(records)
	if counts["1"] != 2 || counts["2"] != 1 {
		t.Errorf("CountByMSLevel = %v", counts)
	}
}

func TestParseDecimal(t *testing.T) {
	tests := []struct {
		in     string
		want   float64
		wantOK bool
	}{
		{"455.234", 455.234, true},
		{" 12.5 ", 12.5, true},
		{"1,234.5", 1234.5, true},
		{"1,234,567", 1234567, true},
		{"1.5e3", 1500, true},
		{"", 0, false},
		{"abc", 0, false},
		{"12..5", 0, false},
	}

	for _, tt := range tests {
		got, ok := ParseDecimal(tt.in)
		if ok != tt.wantOK || (ok && got != tt.want) {
			t.Errorf("ParseDecimal(%q) = %v, %v; want %v, %v", tt.in, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestFormatDecimalNoExponent(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{10000000, "10000000"},
		{0.000001, "0.000001"},
		{455.234, "455.234"},
		{-3.5, "-3.5"},
	}

	for _, tt := range tests {
		if got := FormatDecimal(tt.in); got != tt.want {
			t.Errorf("FormatDecimal(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNormalizeDecimal(t *testing.T) {
	if got := NormalizeDecimal("1.5e3"); got != "1500" {
		t.Errorf("NormalizeDecimal(1.5e3) = %q, want 1500", got)
	}
	// Unparseable input passes through verbatim.
	if got := NormalizeDecimal("n/a"); got != "n/a" {
		t.Errorf("NormalizeDecimal(n/a) = %q", got)
	}
}
