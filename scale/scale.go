package scale

import (
	"math"
	"slices"

	mscale "github.com/aclements/go-moremath/scale"
	"github.com/lucasb-eyer/go-colorful"

	"github.com/ChristianF88/realtyx/filter"
)

const (
	lowQuantile  = 0.05
	highQuantile = 0.95
)

// SizeRange bounds the rendered size of a group, in pixels.
type SizeRange struct {
	MinPx float64
	MaxPx float64
}

// DefaultSizeRange is used when the caller has no layout constraints.
var DefaultSizeRange = SizeRange{MinPx: 6, MaxPx: 40}

// Scale maps group values to a [0,1] color position and group counts to a size.
type Scale struct {
	Low  float64
	Mid  float64
	High float64

	MinCount int
	MaxCount int
	Sizes    SizeRange

	color mscale.Linear
	size  mscale.QQ
}

// Compute builds a Scale from the finite entries of values and from counts.
// The color domain is the 5%..95% quantile range, falling back to [min, max]
// and then to [0, 1]. A zero-width domain is widened by a small epsilon.
func Compute(values []float64, counts []int, sr SizeRange) Scale {
	low, high := domain(finiteSorted(values))

	s := Scale{
		Low:   low,
		Mid:   (low + high) / 2,
		High:  high,
		Sizes: sr,
		color: mscale.Linear{Min: low, Max: high, Clamp: true},
	}

	if len(counts) > 0 {
		s.MinCount, s.MaxCount = counts[0], counts[0]
		for _, c := range counts[1:] {
			s.MinCount = min(s.MinCount, c)
			s.MaxCount = max(s.MaxCount, c)
		}
	}
	s.size = mscale.QQ{
		Src:  &mscale.Linear{Min: sqrtCount(s.MinCount), Max: sqrtCount(s.MaxCount), Clamp: true},
		Dest: &mscale.Linear{Min: sr.MinPx, Max: sr.MaxPx},
	}
	return s
}

// domain returns a non-degenerate [low, high] for ascending sorted values.
func domain(sorted []float64) (float64, float64) {
	var low, high float64
	switch {
	case len(sorted) == 0:
		low, high = 0, 1
	default:
		low = filter.Quantile(sorted, lowQuantile)
		high = filter.Quantile(sorted, highQuantile)
		if !isFinite(low) || !isFinite(high) {
			low, high = sorted[0], sorted[len(sorted)-1]
		}
	}
	if high <= low {
		high = low + epsilon(low)
	}
	return low, high
}

func epsilon(low float64) float64 {
	return 1e-9 * math.Max(1, math.Abs(low))
}

// Color maps v into [0, 1], clamping outside the domain. NaN stays NaN.
func (s Scale) Color(v float64) float64 {
	if math.IsNaN(v) {
		return math.NaN()
	}
	return s.color.Map(v)
}

// Size maps a group count to pixels on a square-root scale. When every group
// has the same count, all sizes are the midpoint of the range.
func (s Scale) Size(count int) float64 {
	return s.size.Map(sqrtCount(count))
}

// Hex returns the gradient color of v.
func (s Scale) Hex(v float64) string {
	return Gradient(s.Color(v))
}

// Ticks returns at most n legend ticks inside [Low, High].
func (s Scale) Ticks(n int) []float64 {
	if n <= 0 {
		return nil
	}
	major, _ := s.color.Ticks(mscale.TickOptions{Max: n})
	out := major[:0:0]
	for _, t := range major {
		if t >= s.Low && t <= s.High {
			out = append(out, t)
		}
	}
	if len(out) == 0 {
		out = []float64{s.Low, s.Mid, s.High}
		if n < 3 {
			out = []float64{s.Low, s.High}[:min(n, 2)]
		}
	}
	return out
}

func sqrtCount(c int) float64 {
	return math.Sqrt(float64(max(c, 0)))
}

func finiteSorted(xs []float64) []float64 {
	out := make([]float64, 0, len(xs))
	for _, x := range xs {
		if isFinite(x) {
			out = append(out, x)
		}
	}
	slices.Sort(out)
	return out
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// Gradient stops: low, mid, high.
var (
	stopLow  = mustHex("#2c7bb6")
	stopMid  = mustHex("#ffffbf")
	stopHigh = mustHex("#d7191c")
)

// NeutralHex is used for values without a position on the scale.
const NeutralHex = "#9e9e9e"

// Gradient returns the hex color at position t of the 3-stop gradient.
func Gradient(t float64) string {
	if math.IsNaN(t) {
		return NeutralHex
	}
	t = math.Max(0, math.Min(1, t))
	if t < 0.5 {
		return stopLow.BlendLab(stopMid, t*2).Clamped().Hex()
	}
	return stopMid.BlendLab(stopHigh, (t-0.5)*2).Clamped().Hex()
}

func mustHex(s string) colorful.Color {
	c, err := colorful.Hex(s)
	if err != nil {
		panic(err)
	}
	return c
}
