package scale

import (
	"math"

	mscale "github.com/aclements/go-moremath/scale"
)

// Category classifies a value against a LogScale.
type Category int

const (
	InRange Category = iota
	OutOfRange
)

func (c Category) String() string {
	if c == OutOfRange {
		return "out_of_range"
	}
	return "in_range"
}

// LogScale is a logarithmic color scale over strictly positive values.
type LogScale struct {
	Low  float64
	High float64
	// Empty is set when no positive value was available; every value is then out of range.
	Empty bool

	log mscale.Log
}

// ComputeLog builds a LogScale from the strictly positive finite entries of values.
func ComputeLog(values []float64) LogScale {
	pos := make([]float64, 0, len(values))
	for _, v := range finiteSorted(values) {
		if v > 0 {
			pos = append(pos, v)
		}
	}
	if len(pos) == 0 {
		return LogScale{Empty: true}
	}

	low, high := domain(pos)
	l, err := mscale.NewLog(low, high, 10)
	if err != nil {
		// domain() over positive values cannot straddle 0
		return LogScale{Empty: true}
	}
	l.SetClamp(true)
	return LogScale{Low: low, High: high, log: l}
}

// Color maps v to [0, 1]. Zero, negative and NaN values are OutOfRange.
func (s LogScale) Color(v float64) (float64, Category) {
	if s.Empty || !(v > 0) || math.IsInf(v, 1) {
		return math.NaN(), OutOfRange
	}
	return s.log.Map(v), InRange
}

// Hex returns the gradient color of v, or NeutralHex when out of range.
func (s LogScale) Hex(v float64) string {
	t, cat := s.Color(v)
	if cat == OutOfRange {
		return NeutralHex
	}
	return Gradient(t)
}
