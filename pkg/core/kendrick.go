package core

import "math"

// RepeatUnit defines the chemical repeat unit used for Kendrick scaling.
// The nominal mass is the integer mass of the unit; the exact mass is its
// monoisotopic mass.
type RepeatUnit struct {
	Name    string
	Nominal float64
	Exact   float64
}

// CH2 is the conventional Kendrick repeat unit and the default everywhere.
var CH2 = RepeatUnit{Name: "CH2", Nominal: 14.0, Exact: 14.01565}

// Built-in repeat units selectable from the CLI.
var builtinRepeatUnits = []RepeatUnit{
	CH2,
	{Name: "H2O", Nominal: 18.0, Exact: 18.0105646},
	{Name: "CO2", Nominal: 44.0, Exact: 43.9898292},
	{Name: "NH3", Nominal: 17.0, Exact: 17.0265491},
}

// KendrickMass rescales an m/z value so the repeat unit has an exact
// integer nominal mass: km = mz * (nominal / exact).
func (u RepeatUnit) KendrickMass(mz float64) float64 {
	return mz * (u.Nominal / u.Exact)
}

// FractionalDefect returns km - floor(km), always in [0, 1).
func (u RepeatUnit) FractionalDefect(mz float64) float64 {
	km := u.KendrickMass(mz)
	return km - math.Floor(km)
}

// RoundedDefect returns round(km) - km, in (-0.5, 0.5]. Ties round half
// away from zero (math.Round), so a Kendrick mass ending in exactly .5
// yields a defect of +0.5.
func (u RepeatUnit) RoundedDefect(mz float64) float64 {
	km := u.KendrickMass(mz)
	return math.Round(km) - km
}

// KendrickMassSlice applies KendrickMass element-wise. Nil in, nil out.
func (u RepeatUnit) KendrickMassSlice(mz []float64) []float64 {
	return u.apply(mz, u.KendrickMass)
}

// FractionalDefectSlice applies FractionalDefect element-wise.
func (u RepeatUnit) FractionalDefectSlice(mz []float64) []float64 {
	return u.apply(mz, u.FractionalDefect)
}

// RoundedDefectSlice applies RoundedDefect element-wise.
func (u RepeatUnit) RoundedDefectSlice(mz []float64) []float64 {
	return u.apply(mz, u.RoundedDefect)
}

func (u RepeatUnit) apply(mz []float64, f func(float64) float64) []float64 {
	if mz == nil {
		return nil
	}
	out := make([]float64, len(mz))
	for i, v := range mz {
		out[i] = f(v)
	}
	return out
}

// Augment computes the derived Kendrick fields on a record in place.
// Full-array mode is selected when both peak arrays are present and
// non-empty; otherwise the scalar base-peak m/z is used. A missing or
// unparseable input leaves the derived fields nil.
func (u RepeatUnit) Augment(rec *SpectrumRecord) {
	if rec.HasArrays() {
		rec.KendrickMassArray = u.KendrickMassSlice(rec.MZArray)
		rec.KMDFractionArray = u.FractionalDefectSlice(rec.MZArray)
		rec.KMDRoundArray = u.RoundedDefectSlice(rec.MZArray)
		return
	}

	if rec.BasePeakMZ == nil {
		return
	}
	mz, ok := ParseDecimal(*rec.BasePeakMZ)
	if !ok {
		return
	}

	km := u.KendrickMass(mz)
	fraction := u.FractionalDefect(mz)
	round := u.RoundedDefect(mz)
	rec.KendrickMass = &km
	rec.KMDFraction = &fraction
	rec.KMDRound = &round
}
