package aggregate

import (
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/aclements/go-moremath/stats"

	"github.com/ChristianF88/realtyx/filter"
	"github.com/ChristianF88/realtyx/ingestor"
)

// minNormalizer keeps scores finite when the normalizer is zero.
const minNormalizer = 1e-6

// Depth selects the grouping key.
type Depth int

const (
	DepthCountry Depth = iota
	DepthCity
)

func (d Depth) String() string {
	if d == DepthCity {
		return "city"
	}
	return "country"
}

// Mode is the normalization applied to the quality score.
type Mode int

const (
	ModePPSQM Mode = iota
	ModePPSQMGlobal
	ModeCityPrice
)

var modeNames = map[Mode]string{
	ModePPSQM:       "ppsqm",
	ModePPSQMGlobal: "ppsqm_global",
	ModeCityPrice:   "city_price",
}

func (m Mode) String() string {
	if s, ok := modeNames[m]; ok {
		return s
	}
	return fmt.Sprintf("mode(%d)", int(m))
}

// Modes lists every normalization mode in declaration order.
func Modes() []Mode {
	return []Mode{ModePPSQM, ModePPSQMGlobal, ModeCityPrice}
}

// ParseMode resolves a mode name.
func ParseMode(s string) (Mode, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for m, n := range modeNames {
		if n == name {
			return m, nil
		}
	}
	return 0, fmt.Errorf("unknown normalization mode %q (valid: ppsqm, ppsqm_global, city_price)", s)
}

// Weights are the relative importance of the three quality ratings.
type Weights struct {
	Neighbourhood float64
	Connectivity  float64
	Satisfaction  float64
}

// Normalize returns weights summing to 1. Negative and NaN inputs count as 0;
// all zeros yields 1/3 each.
func (w Weights) Normalize() Weights {
	clean := func(v float64) float64 {
		if math.IsNaN(v) || v < 0 || math.IsInf(v, 1) {
			return 0
		}
		return v
	}
	n, c, s := clean(w.Neighbourhood), clean(w.Connectivity), clean(w.Satisfaction)
	if m := max(n, c, s); m > 0 {
		n, c, s = n/m, c/m, s/m
	}
	sum := n + c + s
	if sum == 0 {
		third := 1.0 / 3
		return Weights{third, third, third}
	}
	return Weights{n / sum, c / sum, s / sum}
}

// Key identifies a group. City is empty at country depth.
type Key struct {
	Country string
	City    string
}

func (k Key) String() string {
	if k.City == "" {
		return k.Country
	}
	return k.Country + "/" + k.City
}

// Less orders keys by (country, city).
func (k Key) Less(o Key) bool {
	if k.Country != o.Country {
		return k.Country < o.Country
	}
	return k.City < o.City
}

// Group is one aggregated bucket. Means of optional fields are NaN when no
// member has a finite value.
type Group struct {
	Key Key
	N   int

	MeanPrice          float64
	MeanSize           float64
	MeanPricePerArea   float64
	MedianPricePerArea float64
	MinPrice           float64
	MaxPrice           float64

	MeanNeighbourhood float64
	MeanConnectivity  float64
	MeanSatisfaction  float64
	MeanCrime         float64
	MeanLegalCases    float64
	MeanEMIRatio      float64
	MeanYear          float64

	MeanScore float64

	TypeCounts map[string]int
	// Members indexes the records slice passed to Aggregate.
	Members []int
}

// Result holds the groups of one aggregation pass.
type Result struct {
	Depth   Depth
	Mode    Mode
	Weights Weights // normalized
	// GlobalMedianPPSQM is the median price-per-area of the filtered set, or 1.
	GlobalMedianPPSQM float64
	Groups            []Group
	ByKey             map[Key]*Group
	// Scores is indexed like records; NaN for records outside the filtered set.
	Scores []float64
}

// Lookup returns the group for key.
func (r *Result) Lookup(k Key) (*Group, bool) {
	g, ok := r.ByKey[k]
	return g, ok
}

// Countries returns the distinct countries in key order.
func (r *Result) Countries() []string {
	var out []string
	for _, g := range r.Groups {
		if len(out) == 0 || out[len(out)-1] != g.Key.Country {
			out = append(out, g.Key.Country)
		}
	}
	return out
}

// Aggregate groups the records selected by indices. It is pure and its
// output does not depend on the order of indices.
func Aggregate(records []ingestor.Record, indices []int, w Weights, mode Mode, depth Depth) *Result {
	res := &Result{
		Depth:   depth,
		Mode:    mode,
		Weights: w.Normalize(),
		ByKey:   make(map[Key]*Group),
		Scores:  make([]float64, len(records)),
	}
	for i := range res.Scores {
		res.Scores[i] = math.NaN()
	}

	idx := slices.Clone(indices)
	slices.Sort(idx)
	idx = slices.Compact(idx)
	idx = slices.DeleteFunc(idx, func(i int) bool {
		return i < 0 || i >= len(records) || !records[i].Valid()
	})

	res.GlobalMedianPPSQM = globalMedian(records, idx)

	var cityPrice map[Key]float64
	if mode == ModeCityPrice {
		cityPrice = meanPriceByCity(records, idx)
	}

	for _, i := range idx {
		r := &records[i]
		res.Scores[i] = score(r, res.Weights, mode, res.GlobalMedianPPSQM, cityPrice)
	}

	members := make(map[Key][]int)
	for _, i := range idx {
		k := Key{Country: records[i].Country}
		if depth == DepthCity {
			k.City = records[i].City
		}
		members[k] = append(members[k], i)
	}

	keys := make([]Key, 0, len(members))
	for k := range members {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, func(a, b Key) int {
		if a.Less(b) {
			return -1
		}
		if b.Less(a) {
			return 1
		}
		return 0
	})

	res.Groups = make([]Group, len(keys))
	for gi, k := range keys {
		res.Groups[gi] = buildGroup(records, k, members[k], res.Scores)
	}
	for gi := range res.Groups {
		res.ByKey[res.Groups[gi].Key] = &res.Groups[gi]
	}
	return res
}

func score(r *ingestor.Record, w Weights, mode Mode, median float64, cityPrice map[Key]float64) float64 {
	q := w.Neighbourhood*r.Neighbourhood + w.Connectivity*r.Connectivity + w.Satisfaction*r.Satisfaction

	var norm float64
	switch mode {
	case ModePPSQM:
		norm = r.PricePerArea
		if !isFinite(norm) || norm == 0 {
			norm = median
		}
	case ModePPSQMGlobal:
		norm = median
	case ModeCityPrice:
		norm = cityPrice[Key{r.Country, r.City}]
	}
	if !isFinite(norm) {
		norm = 1
	}
	return q / math.Max(minNormalizer, norm)
}

func globalMedian(records []ingestor.Record, idx []int) float64 {
	vals := make([]float64, 0, len(idx))
	for _, i := range idx {
		if v := records[i].PricePerArea; isFinite(v) {
			vals = append(vals, v)
		}
	}
	if len(vals) == 0 {
		return 1
	}
	slices.Sort(vals)
	return filter.Quantile(vals, 0.5)
}

func meanPriceByCity(records []ingestor.Record, idx []int) map[Key]float64 {
	prices := make(map[Key][]float64)
	for _, i := range idx {
		r := &records[i]
		k := Key{r.Country, r.City}
		prices[k] = append(prices[k], r.Price)
	}
	out := make(map[Key]float64, len(prices))
	for k, p := range prices {
		out[k] = SortedMean(p)
	}
	return out
}

func buildGroup(records []ingestor.Record, k Key, members []int, scores []float64) Group {
	g := Group{
		Key:        k,
		N:          len(members),
		TypeCounts: make(map[string]int),
		Members:    members,
	}

	col := func(get func(*ingestor.Record) float64) []float64 {
		out := make([]float64, 0, len(members))
		for _, i := range members {
			out = append(out, get(&records[i]))
		}
		return out
	}

	prices := col(func(r *ingestor.Record) float64 { return r.Price })
	g.MeanPrice = SortedMean(prices)
	g.MinPrice, g.MaxPrice = stats.Bounds(prices)
	g.MeanSize = SortedMean(col(func(r *ingestor.Record) float64 { return r.Size }))

	ppsqm := finiteSorted(col(func(r *ingestor.Record) float64 { return r.PricePerArea }))
	if len(ppsqm) == 0 {
		g.MeanPricePerArea, g.MedianPricePerArea = 0, 0
	} else {
		g.MeanPricePerArea = stats.Mean(ppsqm)
		g.MedianPricePerArea = filter.Quantile(ppsqm, 0.5)
	}

	g.MeanNeighbourhood = SortedMean(col(func(r *ingestor.Record) float64 { return r.Neighbourhood }))
	g.MeanConnectivity = SortedMean(col(func(r *ingestor.Record) float64 { return r.Connectivity }))
	g.MeanSatisfaction = SortedMean(col(func(r *ingestor.Record) float64 { return r.Satisfaction }))
	g.MeanCrime = SortedMean(col(func(r *ingestor.Record) float64 { return r.Crime }))
	g.MeanLegalCases = SortedMean(col(func(r *ingestor.Record) float64 { return r.LegalCases }))
	g.MeanEMIRatio = SortedMean(col(func(r *ingestor.Record) float64 { return r.EMIRatio }))
	g.MeanYear = SortedMean(col(func(r *ingestor.Record) float64 {
		if r.Year <= 0 {
			return math.NaN()
		}
		return float64(r.Year)
	}))

	s := make([]float64, 0, len(members))
	for _, i := range members {
		s = append(s, scores[i])
	}
	g.MeanScore = SortedMean(s)

	for _, i := range members {
		t := records[i].Type
		if t == "" {
			t = "unknown"
		}
		g.TypeCounts[t]++
	}
	return g
}

// SortedMean is the mean of the finite values of xs, accumulated in
// ascending order so the result is independent of input order.
// It returns NaN when xs holds no finite value.
func SortedMean(xs []float64) float64 {
	return stats.Mean(finiteSorted(xs))
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
