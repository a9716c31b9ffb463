package pipeline

import (
	"github.com/ChristianF88/realtyx/aggregate"
	"github.com/ChristianF88/realtyx/detail"
	"github.com/ChristianF88/realtyx/filter"
	"github.com/ChristianF88/realtyx/ingestor"
	"github.com/ChristianF88/realtyx/navigation"
	"github.com/ChristianF88/realtyx/scale"
)

const legendTicks = 5

// GroupView is a visible group with its scale mappings.
type GroupView struct {
	Group *aggregate.Group
	Color float64
	Hex   string
	Size  float64
}

// Legend describes the color scale of a RenderModel.
type Legend struct {
	Low     float64
	Mid     float64
	High    float64
	Ticks   []float64
	LowHex  string
	MidHex  string
	HighHex string
}

// RenderModel is the output of one pipeline pass.
type RenderModel struct {
	Seq         uint64
	View        ViewState
	Depth       aggregate.Depth
	Groups      []GroupView
	Scale       scale.Scale
	Legend      Legend
	Detail      detail.Payload
	BackEnabled bool
	Filtered    int
	Rejected    int

	// Available lists every (country, city) present after filtering.
	Available *navigation.Set
	// Cities is the city-level aggregation of the filtered set.
	Cities *aggregate.Result
	// Countries is the country-level aggregation of the filtered set.
	Countries *aggregate.Result
}

// Run computes the RenderModel of v over records. It is pure.
func Run(records []ingestor.Record, v ViewState) RenderModel {
	idx := filter.Apply(records, v.Filter)

	cities := aggregate.Aggregate(records, idx, v.Weights, v.Mode, aggregate.DepthCity)
	countries := aggregate.Aggregate(records, idx, v.Weights, v.Mode, aggregate.DepthCountry)

	avail := navigation.NewSet()
	for _, g := range cities.Groups {
		avail.Add(g.Key.Country, g.Key.City)
	}

	m := RenderModel{
		View:        v,
		BackEnabled: v.Nav.BackEnabled(),
		Filtered:    len(idx),
		Available:   avail,
		Cities:      cities,
		Countries:   countries,
	}

	var visible []*aggregate.Group
	switch v.Nav.Level {
	case navigation.LevelWorld:
		m.Depth = aggregate.DepthCountry
		for i := range countries.Groups {
			visible = append(visible, &countries.Groups[i])
		}
	case navigation.LevelCountry:
		m.Depth = aggregate.DepthCity
		for i := range cities.Groups {
			if cities.Groups[i].Key.Country == v.Nav.Country {
				visible = append(visible, &cities.Groups[i])
			}
		}
	case navigation.LevelCity:
		m.Depth = aggregate.DepthCity
		if g, ok := cities.Lookup(aggregate.Key{Country: v.Nav.Country, City: v.Nav.City}); ok {
			visible = append(visible, g)
		}
	}

	values := make([]float64, len(visible))
	counts := make([]int, len(visible))
	for i, g := range visible {
		values[i] = g.MeanScore
		counts[i] = g.N
	}
	sizes := v.Sizes
	if sizes.MaxPx <= 0 {
		sizes = scale.DefaultSizeRange
	}
	m.Scale = scale.Compute(values, counts, sizes)

	m.Groups = make([]GroupView, len(visible))
	for i, g := range visible {
		m.Groups[i] = GroupView{
			Group: g,
			Color: m.Scale.Color(g.MeanScore),
			Hex:   m.Scale.Hex(g.MeanScore),
			Size:  m.Scale.Size(g.N),
		}
	}

	m.Legend = Legend{
		Low:     m.Scale.Low,
		Mid:     m.Scale.Mid,
		High:    m.Scale.High,
		Ticks:   m.Scale.Ticks(legendTicks),
		LowHex:  scale.Gradient(0),
		MidHex:  scale.Gradient(0.5),
		HighHex: scale.Gradient(1),
	}

	if g := focusGroup(v, cities, countries); g != nil {
		m.Detail = detail.Project(records, g, cities.Scores, v.TopN)
	}
	return m
}

// RunDataset runs the pipeline over ds and reports its rejected row count.
func RunDataset(ds *ingestor.Dataset, v ViewState) RenderModel {
	m := Run(ds.Records, v)
	m.Rejected = ds.Rejected
	return m
}

// focusGroup picks the explicit focus when it exists, otherwise the current node.
func focusGroup(v ViewState, cities, countries *aggregate.Result) *aggregate.Group {
	if v.Focus != (aggregate.Key{}) {
		if v.Focus.City == "" {
			if g, ok := countries.Lookup(v.Focus); ok {
				return g
			}
		} else if g, ok := cities.Lookup(v.Focus); ok {
			return g
		}
	}
	switch v.Nav.Level {
	case navigation.LevelCity:
		g, _ := cities.Lookup(aggregate.Key{Country: v.Nav.Country, City: v.Nav.City})
		return g
	case navigation.LevelCountry:
		g, _ := countries.Lookup(aggregate.Key{Country: v.Nav.Country})
		return g
	}
	return nil
}
