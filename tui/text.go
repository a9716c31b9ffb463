package tui

import (
	"fmt"
	"math"
	"strings"

	"github.com/ChristianF88/realtyx/filter"
	"github.com/ChristianF88/realtyx/ingestor"
	"github.com/ChristianF88/realtyx/navigation"
	"github.com/ChristianF88/realtyx/output"
	"github.com/ChristianF88/realtyx/pipeline"
	"github.com/ChristianF88/realtyx/scale"
)

const legendWidth = 24

// swatch is a colored block in tview's dynamic color syntax.
func swatch(hex string) string {
	if hex == "" {
		hex = scale.NeutralHex
	}
	return fmt.Sprintf("[%s]██[-]", hex)
}

// groupLabel is the list entry of one visible group.
func groupLabel(g pipeline.GroupView, depthCity bool) string {
	name := g.Group.Key.Country
	if depthCity {
		name = g.Group.Key.City
	}
	return fmt.Sprintf("%s %-20s %7s  %10s/m²  %s",
		swatch(g.Hex), truncate(name, 20), output.FormatNumber(g.Group.N),
		money(g.Group.MeanPricePerArea), num(g.Group.MeanScore))
}

// legendText draws the color gradient with its low, mid and high values.
func legendText(l pipeline.Legend) string {
	var b strings.Builder
	for i := 0; i < legendWidth; i++ {
		t := float64(i) / float64(legendWidth-1)
		fmt.Fprintf(&b, "[%s]█", scale.Gradient(t))
	}
	b.WriteString("[-]\n")
	fmt.Fprintf(&b, "%-10s %10s %10s\n", num(l.Low), num(l.Mid), num(l.High))
	if len(l.Ticks) > 0 {
		ticks := make([]string, len(l.Ticks))
		for i, t := range l.Ticks {
			ticks[i] = num(t)
		}
		fmt.Fprintf(&b, "[dim]ticks:[-] %s\n", strings.Join(ticks, "  "))
	}
	return b.String()
}

// summaryText describes the dataset and the current view.
func summaryText(ds *ingestor.Dataset, viewName string, m *pipeline.RenderModel) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[white::b]%s[white::-]  [dim]view[-] [yellow]%s[-]\n", ds.Path, viewName)
	fmt.Fprintf(&b, "[dim]Rows:[-] %s accepted, %s rejected\n",
		output.FormatNumber(ds.Accepted()), output.FormatNumber(ds.Rejected))
	if m == nil {
		b.WriteString("[dim]computing...[-]\n")
		return b.String()
	}

	v := m.View
	fmt.Fprintf(&b, "[dim]Location:[-] %s   [dim]Mode:[-] %s   [dim]Listings:[-] %s in %d groups\n",
		breadcrumb(v.Nav), v.Mode, output.FormatNumber(m.Filtered), len(m.Groups))
	w := v.Weights.Normalize()
	fmt.Fprintf(&b, "[dim]Weights:[-] neighbourhood %.2f, connectivity %.2f, satisfaction %.2f\n",
		w.Neighbourhood, w.Connectivity, w.Satisfaction)
	if filters := filterLabels(v.Filter); len(filters) > 0 {
		fmt.Fprintf(&b, "[dim]Filters:[-] %s\n", strings.Join(filters, ", "))
	} else {
		b.WriteString("[dim]Filters:[-] none\n")
	}
	return b.String()
}

// detailText renders the detail payload of the focused group.
func detailText(m *pipeline.RenderModel) string {
	if m == nil {
		return ""
	}
	d := m.Detail
	if d.Summary.Count == 0 {
		if m.View.Nav.Level == navigation.LevelWorld {
			return "[dim]Select a country to see its listings.[-]"
		}
		return "[dim]No listings.[-]"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "[white::b]%s[white::-]  %s listings\n", d.Key, output.FormatNumber(d.Summary.Count))
	fmt.Fprintf(&b, "Mean price %s  mean size %s m²\n", money(d.Summary.MeanPrice), num(d.Summary.MeanSize))
	fmt.Fprintf(&b, "Price/m² mean %s  median %s\n", money(d.Summary.MeanPricePerArea), money(d.Summary.MedianPricePerArea))
	fmt.Fprintf(&b, "Score %s  EMI %s  crime %s  neighbourhood %s\n\n",
		num(d.Summary.MeanScore), num(d.Summary.MeanEMIRatio), num(d.Summary.MeanCrime), num(d.Summary.MeanNeighbourhood))

	fmt.Fprintf(&b, "[yellow]%8s  %-12s %5s %12s %8s %8s[-]\n", "ID", "Type", "Year", "Price", "m²", "Score")
	for _, row := range d.Top {
		r := row.Record
		year := "-"
		if r.Year > 0 {
			year = fmt.Sprintf("%d", r.Year)
		}
		fmt.Fprintf(&b, "%8d  %-12s %5s %12s %8s %8s\n",
			r.ID, truncate(r.Type, 12), year, money(r.Price), num(r.Size), num(row.Score))
	}
	if d.Truncated {
		fmt.Fprintf(&b, "[dim]... %d more, press 'a' to show all[-]\n", d.Summary.Count-len(d.Top))
	}
	return b.String()
}

func breadcrumb(s navigation.State) string {
	switch s.Level {
	case navigation.LevelCountry:
		return "World › " + s.Country
	case navigation.LevelCity:
		return "World › " + s.Country + " › " + s.City
	}
	return "World"
}

func filterLabels(f filter.FilterSet) []string {
	return output.FilterLabels(output.NewFilterParams(f))
}

func num(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "n/a"
	}
	return fmt.Sprintf("%.3g", v)
}

func money(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "n/a"
	}
	return output.FormatNumber(int(math.Round(v)))
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
