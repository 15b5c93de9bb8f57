// Package noise implements the Kendrick-mass-defect noise band: a dynamic
// slanted envelope over the m/z range used to separate homologous-series
// signal from background, and a geometric-mean noise floor estimated from
// the points inside the band.
package noise

import (
	"math"
	"math/rand"
	"sort"
)

const (
	// DefaultSlope is the diagonal tilt of the band, matching instrument
	// drift. Empirical constant carried over from the R original.
	DefaultSlope = 0.0011232

	// DefaultBandMargin widens each window's KMD envelope on both sides.
	// An empirical tuning default, not a physical constant.
	DefaultBandMargin = 0.025

	// tileRange replicates each point at kmd+k for k in [-tileRange,
	// tileRange], catching points offset by whole Kendrick-mass units.
	tileRange = 6

	// windowDivisor sets the envelope window size to max(1, N/windowDivisor).
	windowDivisor = 100
)

// Point is one pooled (m/z, KMD, intensity) triple.
type Point struct {
	MZ        float64
	KMD       float64
	Intensity float64
}

// Band is the computed noise envelope: ascending window centers X with
// parallel lower and upper KMD bounds. Low[i] <= High[i] for all i.
type Band struct {
	X    []float64
	Low  []float64
	High []float64
}

// Estimate is the noise floor computed from in-band intensities. Defined
// is false when zero points classified inside the band; callers must
// report that distinctly from a numeric zero.
type Estimate struct {
	Noise   float64
	Defined bool
	InBand  int
	Total   int
}

// Options configures band construction and classification. Nil fields
// select the defaults, so a zero slope or margin can be requested
// explicitly.
type Options struct {
	// LowerX and UpperX bound the m/z selection window; nil defaults to
	// the data minimum/maximum.
	LowerX *float64
	UpperX *float64
	// BandMargin widens the envelope; nil selects DefaultBandMargin.
	BandMargin *float64
	// Slope tilts the envelope; nil selects DefaultSlope.
	Slope *float64
}

func (o *Options) margin() float64 {
	if o.BandMargin != nil {
		return *o.BandMargin
	}
	return DefaultBandMargin
}

func (o *Options) slope() float64 {
	if o.Slope != nil {
		return *o.Slope
	}
	return DefaultSlope
}

// Bounds resolves the m/z selection window: explicit LowerX/UpperX where
// set, the data extent otherwise. Classification and the reported analysis
// window both come from here, so they cannot drift apart.
func (o *Options) Bounds(points []Point) (lower, upper float64) {
	if len(points) > 0 {
		lower, upper = math.Inf(1), math.Inf(-1)
		for _, p := range points {
			lower = math.Min(lower, p.MZ)
			upper = math.Max(upper, p.MZ)
		}
	}
	if o.LowerX != nil {
		lower = *o.LowerX
	}
	if o.UpperX != nil {
		upper = *o.UpperX
	}
	return lower, upper
}

// BuildBand computes the windowed envelope over the pooled points: sort by
// m/z, partition into windows of max(1, N/100) points, and per window take
// the mean m/z as center and the min/max KMD shifted by slope*center and
// widened by the margin. The envelope is extended flat to the requested
// bounds rather than extrapolating the slope.
func BuildBand(points []Point, opts Options) Band {
	if len(points) == 0 {
		return Band{}
	}

	sorted := make([]Point, len(points))
	copy(sorted, points)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].MZ < sorted[j].MZ })

	lowerX, upperX := opts.Bounds(points)
	slope := opts.slope()
	margin := opts.margin()

	window := len(sorted) / windowDivisor
	if window < 1 {
		window = 1
	}

	var band Band
	for start := 0; start < len(sorted); start += window {
		end := start + window
		if end > len(sorted) {
			end = len(sorted)
		}
		chunk := sorted[start:end]

		sum := 0.0
		minKMD := chunk[0].KMD
		maxKMD := chunk[0].KMD
		for _, p := range chunk {
			sum += p.MZ
			minKMD = math.Min(minKMD, p.KMD)
			maxKMD = math.Max(maxKMD, p.KMD)
		}
		center := sum / float64(len(chunk))

		band.X = append(band.X, center)
		band.Low = append(band.Low, minKMD+slope*center-margin)
		band.High = append(band.High, maxKMD+slope*center+margin)
	}

	// Flat extension so the envelope spans [lowerX, upperX].
	if lowerX < band.X[0] {
		band.X = append([]float64{lowerX}, band.X...)
		band.Low = append([]float64{band.Low[0]}, band.Low...)
		band.High = append([]float64{band.High[0]}, band.High...)
	}
	if last := len(band.X) - 1; upperX > band.X[last] {
		band.X = append(band.X, upperX)
		band.Low = append(band.Low, band.Low[last])
		band.High = append(band.High, band.High[last])
	}

	return band
}

// interpolate evaluates the piecewise-linear envelope at x. Points outside
// the breakpoint range clamp to the nearest edge value.
func interpolate(xs, ys []float64, x float64) float64 {
	if x <= xs[0] {
		return ys[0]
	}
	if x >= xs[len(xs)-1] {
		return ys[len(ys)-1]
	}

	i := sort.SearchFloat64s(xs, x)
	// xs[i-1] < x <= xs[i]
	x0, x1 := xs[i-1], xs[i]
	y0, y1 := ys[i-1], ys[i]
	if x1 == x0 {
		return y0
	}
	return y0 + (y1-y0)*(x-x0)/(x1-x0)
}

// Classify tiles every point at kmd+k for integer k in [-6, 6] and returns
// the tiled points that fall inside the band: m/z within [lowerX, upperX]
// and KMD within the interpolated envelope. Kendrick defects are periodic
// modulo 1 under integer-repeat shifts, so the tiling catches points whose
// true band position is offset by whole Kendrick-mass units.
func Classify(points []Point, band Band, opts Options) []Point {
	if len(band.X) == 0 {
		return nil
	}

	lowerX, upperX := opts.Bounds(points)

	var inside []Point
	for _, p := range points {
		if p.MZ < lowerX || p.MZ > upperX {
			continue
		}
		low := interpolate(band.X, band.Low, p.MZ)
		high := interpolate(band.X, band.High, p.MZ)
		for k := -tileRange; k <= tileRange; k++ {
			kmd := p.KMD + float64(k)
			if kmd >= low && kmd <= high {
				inside = append(inside, Point{MZ: p.MZ, KMD: kmd, Intensity: p.Intensity})
			}
		}
	}
	return inside
}

// EstimateNoise builds the band, classifies the pooled points, and reduces
// the in-band intensities to their geometric mean: intensities are floored
// at 1.0, log-transformed, averaged, and exponentiated back. With zero
// in-band points the estimate is undefined, never coerced to a number.
func EstimateNoise(points []Point, opts Options) (Band, Estimate) {
	band := BuildBand(points, opts)
	inside := Classify(points, band, opts)

	est := Estimate{InBand: len(inside), Total: len(points)}
	if len(inside) == 0 {
		return band, est
	}

	sum := 0.0
	for _, p := range inside {
		sum += math.Log(math.Max(p.Intensity, 1.0))
	}
	est.Noise = math.Exp(sum / float64(len(inside)))
	est.Defined = true
	return band, est
}

// Downsample returns a uniform random sample of at most max points,
// without replacement. Display-side reduction only: the noise estimate is
// always computed on the full in-band set first.
func Downsample(points []Point, max int, rng *rand.Rand) []Point {
	if max <= 0 || len(points) <= max {
		return points
	}

	idx := rng.Perm(len(points))[:max]
	sort.Ints(idx)
	sampled := make([]Point, 0, max)
	for _, i := range idx {
		sampled = append(sampled, points[i])
	}
	return sampled
}
