package output

import (
	"fmt"
	"io"
	"math"
	"os"
	"slices"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/go-echarts/go-echarts/v2/types"

	"github.com/ChristianF88/realtyx/aggregate"
	"github.com/ChristianF88/realtyx/geo"
	"github.com/ChristianF88/realtyx/ingestor"
	"github.com/ChristianF88/realtyx/pipeline"
	"github.com/ChristianF88/realtyx/scale"
)

// ChartData is everything the HTML charts are drawn from.
type ChartData struct {
	Title   string
	Records []ingestor.Record
	Model   pipeline.RenderModel
	// Countries canonicalizes country names for the world map; nil uses
	// the built-in table only.
	Countries *geo.Canonicalizer
	// Locations adds a city bubble map when set.
	Locations *geo.Locations
}

// PlotCharts renders every chart into one HTML page at filename.
func PlotCharts(d ChartData, filename string) error {
	f, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("could not create chart file %s: %w", filename, err)
	}
	defer f.Close()

	if err := WriteCharts(f, d); err != nil {
		return err
	}
	return nil
}

// WriteCharts renders the chart page to w.
func WriteCharts(w io.Writer, d ChartData) error {
	page := components.NewPage()
	page.SetPageTitle(d.Title)
	page.SetLayout(components.PageFlexLayout)
	page.AddCharts(
		treemapChart(d),
		worldMapChart(d),
		scatterChart(d),
		yearLineChart(d),
		typeHeatmapChart(d),
	)
	if d.Locations != nil && d.Locations.Len() > 0 {
		page.AddCharts(cityGeoChart(d))
	}

	if err := page.Render(w); err != nil {
		return fmt.Errorf("rendering charts: %w", err)
	}
	return nil
}

func initOpts(title string) charts.GlobalOpts {
	return charts.WithInitializationOpts(opts.Initialization{
		PageTitle:       title,
		Width:           "90vw",
		Height:          "70vh",
		Theme:           types.ThemeVintage,
		BackgroundColor: "transparent",
	})
}

func titleOpts(title, subtitle string) charts.GlobalOpts {
	return charts.WithTitleOpts(opts.Title{
		Title:    title,
		Subtitle: subtitle,
		Left:     "center",
	})
}

func gradientColors() []string {
	return []string{scale.Gradient(0), scale.Gradient(0.5), scale.Gradient(1)}
}

// treemapChart nests cities in countries, sized by listing count.
func treemapChart(d ChartData) *charts.TreeMap {
	var nodes []opts.TreeMapNode
	if cities := d.Model.Cities; cities != nil {
		for _, g := range cities.Groups {
			if len(nodes) == 0 || nodes[len(nodes)-1].Name != g.Key.Country {
				nodes = append(nodes, opts.TreeMapNode{Name: g.Key.Country})
			}
			last := &nodes[len(nodes)-1]
			last.Value += g.N
			last.Children = append(last.Children, opts.TreeMapNode{Name: g.Key.City, Value: g.N})
		}
	}

	tm := charts.NewTreeMap()
	tm.SetGlobalOptions(
		initOpts(d.Title),
		titleOpts("Listings by Country and City", "area = number of listings"),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(false)}),
		charts.WithTooltipOpts(opts.Tooltip{Trigger: "item"}),
	)
	tm.AddSeries("listings", nodes)
	return tm
}

// worldMapChart colors countries by their mean price per m².
func worldMapChart(d ChartData) *charts.Map {
	var data []opts.MapData
	lo, hi := math.Inf(1), math.Inf(-1)
	if countries := d.Model.Countries; countries != nil {
		for _, g := range countries.Groups {
			v := g.MeanPricePerArea
			if !finite(v) {
				continue
			}
			lo, hi = math.Min(lo, v), math.Max(hi, v)
			data = append(data, opts.MapData{Name: d.Countries.Canonical(g.Key.Country), Value: round2(v)})
		}
	}
	if len(data) == 0 {
		lo, hi = 0, 1
	}

	m := charts.NewMap()
	m.RegisterMapType("world")
	m.SetGlobalOptions(
		initOpts(d.Title),
		titleOpts("Mean Price per m² by Country", ""),
		charts.WithTooltipOpts(opts.Tooltip{Trigger: "item"}),
		charts.WithVisualMapOpts(opts.VisualMap{
			Calculable: opts.Bool(true),
			Min:        float32(lo),
			Max:        float32(hi),
			InRange:    &opts.VisualMapInRange{Color: gradientColors()},
			Orient:     "vertical",
			Right:      "5%",
			Top:        "middle",
		}),
	)
	m.AddSeries("price per m²", data)
	return m
}

// scatterChart plots city neighbourhood rating against price per m².
// Symbol size follows a sqrt scale of the listing count and color the mean score.
func scatterChart(d ChartData) *charts.Scatter {
	var groups []aggregate.Group
	if d.Model.Cities != nil {
		groups = d.Model.Cities.Groups
	}

	scores := make([]float64, len(groups))
	counts := make([]int, len(groups))
	for i, g := range groups {
		scores[i] = g.MeanScore
		counts[i] = g.N
	}
	sc := scale.Compute(scores, counts, scale.DefaultSizeRange)

	var data []opts.ScatterData
	for _, g := range groups {
		if !finite(g.MeanNeighbourhood) || !finite(g.MeanPricePerArea) {
			continue
		}
		data = append(data, opts.ScatterData{
			Name:       g.Key.String(),
			Value:      []any{round2(g.MeanNeighbourhood), round2(g.MeanPricePerArea), nullable(g.MeanScore)},
			SymbolSize: int(math.Round(sc.Size(g.N))),
		})
	}

	s := charts.NewScatter()
	s.SetGlobalOptions(
		initOpts(d.Title),
		titleOpts("Neighbourhood Rating vs Price per m²", "one point per city"),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(false)}),
		charts.WithTooltipOpts(opts.Tooltip{
			Trigger: "item",
			Formatter: opts.FuncOpts(`function (params) {
		return params.name + '<br />Neighbourhood: ' + params.value[0] +
			'<br />Price/m²: ' + params.value[1] + '<br />Score: ' + params.value[2];
	}`),
		}),
		charts.WithXAxisOpts(opts.XAxis{Name: "Mean neighbourhood rating", Type: "value"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Mean price per m²", Type: "value"}),
		charts.WithVisualMapOpts(opts.VisualMap{
			Dimension: "2",
			Min:       float32(sc.Low),
			Max:       float32(sc.High),
			InRange:   &opts.VisualMapInRange{Color: gradientColors()},
			Orient:    "vertical",
			Right:     "2%",
			Top:       "middle",
		}),
	)
	s.AddSeries("cities", data)
	return s
}

// yearLineChart shows mean price and mean price per m² by construction year.
func yearLineChart(d ChartData) *charts.Line {
	prices := make(map[int][]float64)
	ppsqm := make(map[int][]float64)
	forEachFiltered(d, func(r *ingestor.Record) {
		if r.Year <= 0 {
			return
		}
		prices[r.Year] = append(prices[r.Year], r.Price)
		ppsqm[r.Year] = append(ppsqm[r.Year], r.PricePerArea)
	})

	years := make([]int, 0, len(prices))
	for y := range prices {
		years = append(years, y)
	}
	slices.Sort(years)

	priceData := make([]opts.LineData, len(years))
	ppsqmData := make([]opts.LineData, len(years))
	for i, y := range years {
		priceData[i] = opts.LineData{Value: nullableRounded(aggregate.SortedMean(prices[y]))}
		ppsqmData[i] = opts.LineData{Value: nullableRounded(aggregate.SortedMean(ppsqm[y]))}
	}

	l := charts.NewLine()
	l.SetGlobalOptions(
		initOpts(d.Title),
		titleOpts("Prices by Construction Year", ""),
		charts.WithTooltipOpts(opts.Tooltip{Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), Top: "bottom"}),
		charts.WithXAxisOpts(opts.XAxis{Name: "Year", Type: "category"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Mean price", Type: "value"}),
	)
	l.ExtendYAxis(opts.YAxis{Name: "Mean price per m²", Type: "value"})
	l.SetXAxis(years).
		AddSeries("mean price", priceData).
		AddSeries("mean price per m²", ppsqmData, charts.WithSeriesOpts(func(s *charts.SingleSeries) {
			s.YAxisIndex = 1
		}))
	return l
}

// typeHeatmapChart is a country by property type grid of mean price per m².
func typeHeatmapChart(d ChartData) *charts.HeatMap {
	type cell struct{ country, typ string }
	values := make(map[cell][]float64)
	countrySet := make(map[string]struct{})
	typeSet := make(map[string]struct{})
	forEachFiltered(d, func(r *ingestor.Record) {
		t := r.Type
		if t == "" {
			t = "unknown"
		}
		c := cell{r.Country, t}
		values[c] = append(values[c], r.PricePerArea)
		countrySet[r.Country] = struct{}{}
		typeSet[t] = struct{}{}
	})

	countries := sortedKeys(countrySet)
	typeNames := sortedKeys(typeSet)

	var data []opts.HeatMapData
	var maxVal float64
	for xi, t := range typeNames {
		for yi, c := range countries {
			xs, ok := values[cell{c, t}]
			if !ok {
				continue
			}
			v := aggregate.SortedMean(xs)
			if !finite(v) {
				continue
			}
			maxVal = math.Max(maxVal, v)
			data = append(data, opts.HeatMapData{
				Value: [3]any{xi, yi, round2(v)},
				Name:  fmt.Sprintf("%s / %s (%d)", c, t, len(xs)),
			})
		}
	}

	hm := charts.NewHeatMap()
	hm.SetGlobalOptions(
		initOpts(d.Title),
		titleOpts("Mean Price per m² by Country and Property Type", ""),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(false)}),
		charts.WithTooltipOpts(opts.Tooltip{
			Trigger: "item",
			Formatter: opts.FuncOpts(`function (params) {
		return params.name + '<br />Price/m²: ' + params.value[2];
	}`),
		}),
		charts.WithVisualMapOpts(opts.VisualMap{
			Show:    opts.Bool(true),
			Min:     0,
			Max:     float32(maxVal),
			InRange: &opts.VisualMapInRange{Color: gradientColors()},
			Orient:  "vertical",
			Right:   "2%",
			Top:     "middle",
		}),
		charts.WithXAxisOpts(opts.XAxis{Name: "Type", Type: "category", Data: typeNames}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Country", Type: "category", Data: countries}),
	)
	hm.AddSeries("price per m²", data)
	return hm
}

// cityGeoChart places every city with known coordinates on a world map.
func cityGeoChart(d ChartData) *charts.Geo {
	var data []opts.GeoData
	if d.Model.Cities != nil {
		for _, g := range d.Model.Cities.Groups {
			p, ok := d.Locations.Point(g.Key.Country, g.Key.City)
			if !ok {
				continue
			}
			data = append(data, opts.GeoData{
				Name:  g.Key.String(),
				Value: []any{p.Lon(), p.Lat(), round2(g.MeanPricePerArea)},
			})
		}
	}

	g := charts.NewGeo()
	g.SetGlobalOptions(
		initOpts(d.Title),
		titleOpts("Cities by Mean Price per m²", ""),
		charts.WithGeoComponentOpts(opts.GeoComponent{Map: "world"}),
		charts.WithTooltipOpts(opts.Tooltip{Trigger: "item"}),
	)
	g.AddSeries("cities", types.ChartScatter, data)
	return g
}

// forEachFiltered visits every record that survived the view's filters.
func forEachFiltered(d ChartData, fn func(*ingestor.Record)) {
	if d.Model.Cities == nil {
		return
	}
	for _, g := range d.Model.Cities.Groups {
		for _, i := range g.Members {
			if i >= 0 && i < len(d.Records) {
				fn(&d.Records[i])
			}
		}
	}
}

func sortedKeys(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	slices.Sort(out)
	return out
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}

// nullable keeps NaN out of the chart JSON, which encoding/json rejects.
func nullable(f float64) any {
	if !finite(f) {
		return nil
	}
	return f
}

func nullableRounded(f float64) any {
	if !finite(f) {
		return nil
	}
	return round2(f)
}
