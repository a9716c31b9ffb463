package filter

import (
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/ChristianF88/realtyx/ingestor"
)

// FilterSet holds independent predicates combined with AND.
// A numeric bound that is zero, negative or NaN is unset and accepts everything.
// Optional record fields that are NaN fail any active predicate on that field.
type FilterSet struct {
	PriceMin         float64
	PriceMax         float64
	SizeMin          float64
	SizeMax          float64
	EMIMax           float64
	CrimeMax         float64
	NeighbourhoodMin float64
	YearMin          int
	// Location is matched case-insensitively against "city country".
	Location string
	// PriceQuantile caps prices at that quantile of the filtered set. Active in (0, 1).
	PriceQuantile float64
	NoLegalCases  bool
	// Types restricts property types; empty means all.
	Types []string
}

func active(v float64) bool {
	return v > 0 && !math.IsInf(v, 1)
}

// QuantileActive reports whether the price cap applies. q <= 0 is unset,
// since 0 is the zero value of config files and flags.
func (f FilterSet) QuantileActive() bool {
	return f.PriceQuantile > 0 && f.PriceQuantile < 1
}

// IsZero reports whether no predicate is active.
func (f FilterSet) IsZero() bool {
	return !active(f.PriceMin) && !active(f.PriceMax) &&
		!active(f.SizeMin) && !active(f.SizeMax) &&
		!active(f.EMIMax) && !active(f.CrimeMax) &&
		!active(f.NeighbourhoodMin) && f.YearMin <= 0 &&
		strings.TrimSpace(f.Location) == "" && !f.QuantileActive() &&
		!f.NoLegalCases && len(f.Types) == 0
}

// Fingerprint is a canonical representation of the active predicates.
// Two FilterSets with equal fingerprints select the same records.
func (f FilterSet) Fingerprint() string {
	var b strings.Builder
	bound := func(name string, v float64) {
		if active(v) {
			fmt.Fprintf(&b, "%s=%g;", name, v)
		}
	}
	bound("pmin", f.PriceMin)
	bound("pmax", f.PriceMax)
	bound("smin", f.SizeMin)
	bound("smax", f.SizeMax)
	bound("emi", f.EMIMax)
	bound("crime", f.CrimeMax)
	bound("nbh", f.NeighbourhoodMin)
	if f.YearMin > 0 {
		fmt.Fprintf(&b, "year=%d;", f.YearMin)
	}
	if loc := strings.ToLower(strings.TrimSpace(f.Location)); loc != "" {
		fmt.Fprintf(&b, "loc=%q;", loc)
	}
	if f.QuantileActive() {
		fmt.Fprintf(&b, "q=%g;", f.PriceQuantile)
	}
	if f.NoLegalCases {
		b.WriteString("nolegal;")
	}
	if len(f.Types) > 0 {
		types := slices.Clone(f.Types)
		slices.Sort(types)
		types = slices.Compact(types)
		fmt.Fprintf(&b, "types=%q;", types)
	}
	return b.String()
}

// matcher is a FilterSet prepared for repeated evaluation.
type matcher struct {
	fs       FilterSet
	location string
	types    map[string]struct{}
}

func newMatcher(fs FilterSet) *matcher {
	m := &matcher{fs: fs, location: strings.ToLower(strings.TrimSpace(fs.Location))}
	if len(fs.Types) > 0 {
		m.types = make(map[string]struct{}, len(fs.Types))
		for _, t := range fs.Types {
			m.types[t] = struct{}{}
		}
	}
	return m
}

// match evaluates every simple predicate. The quantile cap is applied afterwards.
func (m *matcher) match(r *ingestor.Record) bool {
	fs := &m.fs
	if active(fs.PriceMin) && !(r.Price >= fs.PriceMin) {
		return false
	}
	if active(fs.PriceMax) && !(r.Price <= fs.PriceMax) {
		return false
	}
	if active(fs.SizeMin) && !(r.Size >= fs.SizeMin) {
		return false
	}
	if active(fs.SizeMax) && !(r.Size <= fs.SizeMax) {
		return false
	}
	// NaN comparisons are false, so missing optional values fail here.
	if active(fs.EMIMax) && !(r.EMIRatio <= fs.EMIMax) {
		return false
	}
	if active(fs.CrimeMax) && !(r.Crime <= fs.CrimeMax) {
		return false
	}
	if active(fs.NeighbourhoodMin) && !(r.Neighbourhood >= fs.NeighbourhoodMin) {
		return false
	}
	if fs.YearMin > 0 && r.Year < fs.YearMin {
		return false
	}
	if fs.NoLegalCases && !(r.LegalCases == 0) {
		return false
	}
	if m.types != nil {
		if _, ok := m.types[r.Type]; !ok {
			return false
		}
	}
	if m.location != "" {
		hay := strings.ToLower(r.City + " " + r.Country)
		if !strings.Contains(hay, m.location) {
			return false
		}
	}
	return true
}

// Apply returns the indices of the records accepted by fs, in input order.
// Invalid records are never returned.
func Apply(records []ingestor.Record, fs FilterSet) []int {
	m := newMatcher(fs)

	var idx []int
	if len(records) >= parallelThreshold {
		idx = applyParallel(records, m)
	} else {
		idx = applyRange(records, m, 0, len(records), nil)
	}

	if fs.QuantileActive() && len(idx) > 0 {
		prices := make([]float64, len(idx))
		for i, j := range idx {
			prices[i] = records[j].Price
		}
		slices.Sort(prices)
		limit := Quantile(prices, fs.PriceQuantile)
		kept := idx[:0]
		for _, j := range idx {
			if records[j].Price <= limit {
				kept = append(kept, j)
			}
		}
		idx = kept
	}
	return idx
}

func applyRange(records []ingestor.Record, m *matcher, start, end int, out []int) []int {
	for i := start; i < end; i++ {
		r := &records[i]
		if r.Valid() && m.match(r) {
			out = append(out, i)
		}
	}
	return out
}

// Quantile returns the q-quantile of the ascending sorted slice using linear
// interpolation between order statistics: pos = (n-1)q.
// It returns NaN for an empty slice; q is clamped to [0, 1].
func Quantile(sorted []float64, q float64) float64 {
	n := len(sorted)
	if n == 0 || math.IsNaN(q) {
		return math.NaN()
	}
	if q <= 0 {
		return sorted[0]
	}
	if q >= 1 {
		return sorted[n-1]
	}
	pos := float64(n-1) * q
	lo := int(math.Floor(pos))
	if lo >= n-1 {
		return sorted[n-1]
	}
	frac := pos - float64(lo)
	return sorted[lo] + frac*(sorted[lo+1]-sorted[lo])
}
