package output

import (
	"fmt"
	"io"
	"math"
	"strings"
)

const (
	heavyRule = "═══════════════════════════════════════════════════════════════════════════════"
	lightRule = "───────────────────────────────────────────────────────────────────────────────"
	dotRule   = "..............................................................................."
)

// WritePlain formats the output as a human-readable report.
func WritePlain(w io.Writer, j *JSONOutput) error {
	p := &printer{w: w}

	p.printf("%s\n", heavyRule)
	p.printf("                              realtyx Summary\n")
	p.printf("%s\n\n", heavyRule)

	p.printf("📊 DATASET\n")
	p.printf("%s\n", lightRule)
	p.printf("Data File:       %s\n", j.General.DataFile)
	p.printf("Analysis Type:   %s\n", j.Metadata.AnalysisType)
	p.printf("Generated:       %s\n", j.Metadata.GeneratedAt.Format("2006-01-02 15:04:05 MST"))
	p.printf("Duration:        %d ms\n", j.Metadata.DurationMS)
	p.printf("Rows:            %s total, %s accepted, %s rejected\n",
		FormatNumber(j.General.TotalRows), FormatNumber(j.General.Accepted), FormatNumber(j.General.Rejected))
	p.printf("Load Time:       %d ms (%s rows/sec)\n",
		j.General.Parsing.DurationMS, FormatNumber(int(j.General.Parsing.RatePerSecond)))
	if j.General.Delimiter != "" {
		p.printf("Delimiter:       %q\n", j.General.Delimiter)
	}
	p.printf("\n")

	for _, v := range j.Views {
		p.printView(v)
	}

	if len(j.Warnings) > 0 || len(j.Errors) > 0 {
		p.printf("⚠️  DIAGNOSTICS\n")
		p.printf("%s\n", lightRule)
		if len(j.Warnings) > 0 {
			p.printf("Warnings:\n")
			for _, warning := range j.Warnings {
				p.printf("  • %s\n", warning.Message)
			}
		}
		if len(j.Errors) > 0 {
			p.printf("Errors:\n")
			for _, err := range j.Errors {
				p.printf("  • %s\n", err.Message)
			}
		}
		p.printf("\n")
	}

	p.printf("%s\n", heavyRule)
	return p.err
}

type printer struct {
	w   io.Writer
	err error
}

func (p *printer) printf(format string, args ...any) {
	if p.err != nil {
		return
	}
	_, p.err = fmt.Fprintf(p.w, format, args...)
}

func (p *printer) printView(v ViewResult) {
	p.printf("🏠 VIEW: %s\n", v.Name)
	p.printf("%s\n", lightRule)
	p.printf("Mode:            %s\n", v.Parameters.Mode)
	p.printf("Weights:         neighbourhood %.2f, connectivity %.2f, satisfaction %.2f\n",
		float64(v.Parameters.Weights[0]), float64(v.Parameters.Weights[1]), float64(v.Parameters.Weights[2]))
	p.printf("Navigation:      %s\n", v.Parameters.Navigation)
	if filters := FilterLabels(v.Parameters.Filters); len(filters) > 0 {
		p.printf("Active Filters:  %s\n", strings.Join(filters, ", "))
	} else {
		p.printf("Active Filters:  None\n")
	}
	p.printf("Listings:        %s after filtering, %d groups\n", FormatNumber(v.Stats.Filtered), v.Stats.Groups)
	p.printf("Score Scale:     %s .. %s .. %s\n", fmtFloat(v.Scale.Low), fmtFloat(v.Scale.Mid), fmtFloat(v.Scale.High))
	p.printf("\n")

	if len(v.Groups) > 0 {
		p.printf("📍 GROUPS\n")
		p.printf("%s\n", dotRule)
		p.printf("  %-28s %7s %14s %12s %10s\n", "Group", "Count", "Mean Price", "Price/m²", "Score")
		for _, g := range v.Groups {
			name := g.Country
			if g.City != "" {
				name = g.Country + " / " + g.City
			}
			p.printf("  %-28s %7d %14s %12s %10s\n",
				truncate(name, 28), g.Count, fmtMoney(g.MeanPrice), fmtMoney(g.MeanPricePerArea), fmtFloat(g.MeanScore))
		}
		p.printf("\n")
	}

	if d := v.Detail; d != nil {
		title := d.Country
		if d.City != "" {
			title = d.Country + " / " + d.City
		}
		p.printf("🔍 DETAIL: %s (%d listings)\n", title, d.Summary.Count)
		p.printf("%s\n", dotRule)
		p.printf("  Mean price %s, mean size %s m², median price/m² %s, mean score %s\n",
			fmtMoney(d.Summary.MeanPrice), fmtFloat(d.Summary.MeanSize),
			fmtMoney(d.Summary.MedianPricePerArea), fmtFloat(d.Summary.MeanScore))
		p.printf("  %8s  %-12s %6s %14s %10s %10s\n", "ID", "Type", "Year", "Price", "m²", "Score")
		for _, l := range d.Listings {
			p.printf("  %8d  %-12s %6d %14s %10s %10s\n",
				l.ID, truncate(l.Type, 12), l.Year, fmtMoney(l.Price), fmtFloat(l.Size), fmtFloat(l.Score))
		}
		if d.Truncated {
			p.printf("  ... %d more\n", d.Summary.Count-len(d.Listings))
		}
		p.printf("\n")
	}

	p.printf("%s\n\n", strings.Repeat("=", len(heavyRule)/3))
}

// FilterLabels returns a list of active filter descriptions for plain output
func FilterLabels(f FilterParams) []string {
	var filters []string
	add := func(label string, v Float) {
		if v != 0 {
			filters = append(filters, fmt.Sprintf("%s%g", label, float64(v)))
		}
	}
	add("price>=", f.PriceMin)
	add("price<=", f.PriceMax)
	add("size>=", f.SizeMin)
	add("size<=", f.SizeMax)
	add("emi<=", f.EMIMax)
	add("crime<=", f.CrimeMax)
	add("neighbourhood>=", f.NeighbourhoodMin)
	add("price quantile=", f.PriceQuantile)
	if f.YearMin > 0 {
		filters = append(filters, fmt.Sprintf("year>=%d", f.YearMin))
	}
	if f.Location != "" {
		filters = append(filters, fmt.Sprintf("location~%q", f.Location))
	}
	if f.NoLegalCases {
		filters = append(filters, "no legal cases")
	}
	if len(f.Types) > 0 {
		filters = append(filters, "types="+strings.Join(f.Types, "|"))
	}
	return filters
}

func fmtFloat(f Float) string {
	v := float64(f)
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "n/a"
	}
	return fmt.Sprintf("%.3g", v)
}

func fmtMoney(f Float) string {
	v := float64(f)
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "n/a"
	}
	return FormatNumber(int(math.Round(v)))
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

// FormatNumber adds thousand separators to numbers
func FormatNumber(n int) string {
	if n < 0 {
		return "-" + FormatNumber(-n)
	}
	str := fmt.Sprintf("%d", n)
	if len(str) <= 3 {
		return str
	}

	var result strings.Builder
	for i, digit := range str {
		if i > 0 && (len(str)-i)%3 == 0 {
			result.WriteString(",")
		}
		result.WriteRune(digit)
	}
	return result.String()
}
