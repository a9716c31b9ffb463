package scale

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompute_Domain(t *testing.T) {
	values := make([]float64, 101)
	for i := range values {
		values[i] = float64(i)
	}
	s := Compute(values, nil, DefaultSizeRange)
	assert.InDelta(t, 5, s.Low, 1e-9)
	assert.InDelta(t, 95, s.High, 1e-9)
	assert.InDelta(t, 50, s.Mid, 1e-9)

	assert.Equal(t, 0.0, s.Color(-100), "clamped below")
	assert.Equal(t, 1.0, s.Color(1e9), "clamped above")
	assert.InDelta(t, 0.5, s.Color(50), 1e-9)
	assert.True(t, math.IsNaN(s.Color(math.NaN())))
}

func TestCompute_Degenerate(t *testing.T) {
	t.Run("no values", func(t *testing.T) {
		s := Compute(nil, nil, DefaultSizeRange)
		assert.Equal(t, 0.0, s.Low)
		assert.Equal(t, 1.0, s.High)
		assert.Equal(t, 0.5, s.Mid)
	})

	t.Run("only non-finite values", func(t *testing.T) {
		s := Compute([]float64{math.NaN(), math.Inf(1)}, nil, DefaultSizeRange)
		assert.Equal(t, 0.0, s.Low)
		assert.Equal(t, 1.0, s.High)
	})

	t.Run("single group is finite", func(t *testing.T) {
		s := Compute([]float64{0.42}, []int{3}, DefaultSizeRange)
		assert.Equal(t, 0.42, s.Low)
		assert.Greater(t, s.High, s.Low)
		assert.InDelta(t, 0.42, s.High, 1e-8)
		c := s.Color(0.42)
		assert.False(t, math.IsNaN(c) || math.IsInf(c, 0))
		assert.GreaterOrEqual(t, c, 0.0)
		assert.LessOrEqual(t, c, 1.0)
		size := s.Size(3)
		assert.InDelta(t, (DefaultSizeRange.MinPx+DefaultSizeRange.MaxPx)/2, size, 1e-9)
	})

	t.Run("large equal values use relative epsilon", func(t *testing.T) {
		s := Compute([]float64{5e6, 5e6}, nil, DefaultSizeRange)
		assert.InDelta(t, 5e6*1e-9, s.High-s.Low, 1e-6)
	})
}

func TestSize_Sqrt(t *testing.T) {
	s := Compute(nil, []int{1, 4, 100}, SizeRange{MinPx: 0, MaxPx: 90})
	assert.Equal(t, 1, s.MinCount)
	assert.Equal(t, 100, s.MaxCount)
	assert.InDelta(t, 0, s.Size(1), 1e-9)
	assert.InDelta(t, 90, s.Size(100), 1e-9)
	// sqrt(4)=2 is 1/9 of the way from 1 to 10
	assert.InDelta(t, 10, s.Size(4), 1e-9)
	assert.InDelta(t, 90, s.Size(1000), 1e-9, "clamped")
}

func TestSize_EqualCounts(t *testing.T) {
	s := Compute(nil, []int{7, 7, 7}, SizeRange{MinPx: 10, MaxPx: 20})
	for _, c := range []int{0, 7, 50} {
		assert.Equal(t, 15.0, s.Size(c))
	}
}

func TestTicks(t *testing.T) {
	s := Compute([]float64{0, 100}, nil, DefaultSizeRange)
	ticks := s.Ticks(6)
	require.NotEmpty(t, ticks)
	assert.LessOrEqual(t, len(ticks), 6)
	for i, v := range ticks {
		assert.GreaterOrEqual(t, v, s.Low)
		assert.LessOrEqual(t, v, s.High)
		if i > 0 {
			assert.Greater(t, v, ticks[i-1])
		}
	}
	assert.Nil(t, s.Ticks(0))
}

func TestGradient(t *testing.T) {
	assert.Equal(t, "#2c7bb6", Gradient(0))
	assert.Equal(t, "#ffffbf", Gradient(0.5))
	assert.Equal(t, "#d7191c", Gradient(1))
	assert.Equal(t, "#d7191c", Gradient(3))
	assert.Equal(t, NeutralHex, Gradient(math.NaN()))
}

func TestComputeLog(t *testing.T) {
	s := ComputeLog([]float64{-5, 0, 1, 10, 100, math.NaN()})
	require.False(t, s.Empty)
	assert.Greater(t, s.Low, 0.0)

	for _, v := range []float64{0, -1, math.NaN()} {
		_, cat := s.Color(v)
		assert.Equal(t, OutOfRange, cat, "v=%v", v)
		assert.Equal(t, NeutralHex, s.Hex(v))
	}

	lo, cat := s.Color(1)
	assert.Equal(t, InRange, cat)
	hi, _ := s.Color(100)
	assert.Less(t, lo, hi)
	assert.GreaterOrEqual(t, lo, 0.0)
	assert.LessOrEqual(t, hi, 1.0)

	empty := ComputeLog([]float64{0, -3})
	assert.True(t, empty.Empty)
	_, cat = empty.Color(10)
	assert.Equal(t, OutOfRange, cat)
}
