package output

import (
	"encoding/json"
	"math"
	"strconv"
	"sync"
	"time"

	"github.com/ChristianF88/realtyx/aggregate"
	"github.com/ChristianF88/realtyx/detail"
	"github.com/ChristianF88/realtyx/filter"
	"github.com/ChristianF88/realtyx/ingestor"
	"github.com/ChristianF88/realtyx/pipeline"
	"github.com/ChristianF88/realtyx/version"
)

// Float is a float64 that marshals NaN and ±Inf as null.
type Float float64

func (f Float) MarshalJSON() ([]byte, error) {
	v := float64(f)
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return []byte("null"), nil
	}
	return strconv.AppendFloat(nil, v, 'g', -1, 64), nil
}

func (f *Float) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*f = Float(math.NaN())
		return nil
	}
	v, err := strconv.ParseFloat(string(b), 64)
	if err != nil {
		return err
	}
	*f = Float(v)
	return nil
}

// JSONOutput represents the complete analysis output structure
type JSONOutput struct {
	Metadata Metadata     `json:"metadata"`
	General  General      `json:"general"`
	Views    []ViewResult `json:"views"`
	Warnings []Warning    `json:"warnings"`
	Errors   []Error      `json:"errors"`

	// Mutex for thread-safe warning/error appending
	mu sync.Mutex `json:"-"`
}

// Metadata contains information about the analysis run
type Metadata struct {
	GeneratedAt  time.Time `json:"generated_at"`
	AnalysisType string    `json:"analysis_type"`
	Version      string    `json:"version"`
	DurationMS   int64     `json:"duration_ms"`
}

// General contains overall statistics about the loaded dataset
type General struct {
	DataFile       string         `json:"data_file,omitempty"`
	TotalRows      int            `json:"total_rows"`
	Accepted       int            `json:"accepted"`
	Rejected       int            `json:"rejected"`
	RejectReasons  map[string]int `json:"reject_reasons,omitempty"`
	Delimiter      string         `json:"delimiter,omitempty"`
	MissingColumns []string       `json:"missing_columns,omitempty"`
	Parsing        Parsing        `json:"parsing"`
}

// Parsing contains load performance metrics
type Parsing struct {
	DurationMS    int64  `json:"duration_ms"`
	RatePerSecond int64  `json:"rate_per_second"`
	Format        string `json:"format,omitempty"`
}

// ViewResult is the rendered state of one named view.
type ViewResult struct {
	Name       string         `json:"name"`
	Parameters ViewParameters `json:"parameters"`
	Stats      ViewStats      `json:"stats"`
	Groups     []GroupResult  `json:"groups"`
	Scale      ScaleResult    `json:"scale"`
	Detail     *DetailResult  `json:"detail,omitempty"`
}

// ViewParameters echoes the settings the view was computed with.
type ViewParameters struct {
	Mode       string       `json:"mode"`
	Weights    [3]Float     `json:"weights"`
	Top        int          `json:"top"`
	Navigation string       `json:"navigation"`
	Filters    FilterParams `json:"filters"`
}

// FilterParams lists the active filter predicates.
type FilterParams struct {
	PriceMin         Float    `json:"price_min,omitempty"`
	PriceMax         Float    `json:"price_max,omitempty"`
	SizeMin          Float    `json:"size_min,omitempty"`
	SizeMax          Float    `json:"size_max,omitempty"`
	EMIMax           Float    `json:"emi_max,omitempty"`
	CrimeMax         Float    `json:"crime_max,omitempty"`
	NeighbourhoodMin Float    `json:"neighbourhood_min,omitempty"`
	Location         string   `json:"location,omitempty"`
	YearMin          int      `json:"year_min,omitempty"`
	PriceQuantile    Float    `json:"price_quantile,omitempty"`
	NoLegalCases     bool     `json:"no_legal_cases,omitempty"`
	Types            []string `json:"types,omitempty"`
}

// ViewStats contains timing and size information about a view
type ViewStats struct {
	Filtered   int   `json:"filtered"`
	Groups     int   `json:"groups"`
	DurationUS int64 `json:"duration_us"`
}

// GroupResult is one aggregated group at the view's depth.
type GroupResult struct {
	Country            string         `json:"country"`
	City               string         `json:"city,omitempty"`
	Count              int            `json:"count"`
	MeanPrice          Float          `json:"mean_price"`
	MeanSize           Float          `json:"mean_size"`
	MeanPricePerArea   Float          `json:"mean_price_per_sqm"`
	MedianPricePerArea Float          `json:"median_price_per_sqm"`
	MinPrice           Float          `json:"min_price"`
	MaxPrice           Float          `json:"max_price"`
	MeanNeighbourhood  Float          `json:"mean_neighbourhood"`
	MeanConnectivity   Float          `json:"mean_connectivity"`
	MeanSatisfaction   Float          `json:"mean_satisfaction"`
	MeanCrime          Float          `json:"mean_crime"`
	MeanLegalCases     Float          `json:"mean_legal_cases"`
	MeanEMIRatio       Float          `json:"mean_emi_ratio"`
	MeanYear           Float          `json:"mean_year"`
	MeanScore          Float          `json:"mean_score"`
	Color              string         `json:"color"`
	Size               Float          `json:"size_px"`
	Types              map[string]int `json:"types,omitempty"`
}

// ScaleResult is the color legend of a view.
type ScaleResult struct {
	Low       Float   `json:"low"`
	Mid       Float   `json:"mid"`
	High      Float   `json:"high"`
	Ticks     []Float `json:"ticks"`
	LowColor  string  `json:"low_color"`
	MidColor  string  `json:"mid_color"`
	HighColor string  `json:"high_color"`
}

// DetailResult is the detail panel of the focused group.
type DetailResult struct {
	Country   string          `json:"country"`
	City      string          `json:"city,omitempty"`
	Summary   SummaryResult   `json:"summary"`
	Listings  []ListingResult `json:"listings"`
	Truncated bool            `json:"truncated"`
}

// SummaryResult mirrors detail.Summary.
type SummaryResult struct {
	Count              int   `json:"count"`
	MeanPrice          Float `json:"mean_price"`
	MeanSize           Float `json:"mean_size"`
	MeanPricePerArea   Float `json:"mean_price_per_sqm"`
	MedianPricePerArea Float `json:"median_price_per_sqm"`
	MeanScore          Float `json:"mean_score"`
	MeanEMIRatio       Float `json:"mean_emi_ratio"`
	MeanCrime          Float `json:"mean_crime"`
	MeanNeighbourhood  Float `json:"mean_neighbourhood"`
}

// ListingResult is one row of the detail table.
type ListingResult struct {
	ID            int    `json:"id"`
	Country       string `json:"country"`
	City          string `json:"city"`
	Type          string `json:"type,omitempty"`
	Year          int    `json:"year,omitempty"`
	Price         Float  `json:"price"`
	Size          Float  `json:"size_sqm"`
	PricePerArea  Float  `json:"price_per_sqm"`
	Score         Float  `json:"score"`
	Neighbourhood Float  `json:"neighbourhood"`
	Connectivity  Float  `json:"connectivity"`
	Satisfaction  Float  `json:"satisfaction"`
	EMIRatio      Float  `json:"emi_ratio"`
}

// Warning represents a warning message
type Warning struct {
	Type    string `json:"type"`
	Message string `json:"message"`
	Count   int    `json:"count,omitempty"`
}

// Error represents an error message
type Error struct {
	Type    string `json:"type"`
	Message string `json:"message"`
	Count   int    `json:"count,omitempty"`
}

// NewJSONOutput creates a new JSONOutput with default metadata
func NewJSONOutput(analysisType string, startTime time.Time) *JSONOutput {
	return &JSONOutput{
		Metadata: Metadata{
			GeneratedAt:  time.Now().UTC(),
			AnalysisType: analysisType,
			Version:      version.Version,
			DurationMS:   time.Since(startTime).Milliseconds(),
		},
		Views:    []ViewResult{},
		Warnings: []Warning{},
		Errors:   []Error{},
	}
}

// ToJSON converts the output to pretty-printed JSON
func (j *JSONOutput) ToJSON() ([]byte, error) {
	return json.MarshalIndent(j, "", "  ")
}

// ToCompactJSON converts the output to compact JSON
func (j *JSONOutput) ToCompactJSON() ([]byte, error) {
	return json.Marshal(j)
}

// AddWarning adds a warning to the output (thread-safe)
func (j *JSONOutput) AddWarning(warningType, message string, count int) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Warnings = append(j.Warnings, Warning{
		Type:    warningType,
		Message: message,
		Count:   count,
	})
}

// AddError adds an error to the output (thread-safe)
func (j *JSONOutput) AddError(errorType, message string, count int) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Errors = append(j.Errors, Error{
		Type:    errorType,
		Message: message,
		Count:   count,
	})
}

// UpdateDuration updates the duration in metadata
func (j *JSONOutput) UpdateDuration(startTime time.Time) {
	j.Metadata.DurationMS = time.Since(startTime).Milliseconds()
}

// SetDataset fills the general section from a loaded dataset.
func (j *JSONOutput) SetDataset(ds *ingestor.Dataset, loadTime time.Duration) {
	j.General = General{
		DataFile:       ds.Path,
		TotalRows:      ds.TotalRows,
		Accepted:       ds.Accepted(),
		Rejected:       ds.Rejected,
		RejectReasons:  ds.RejectReasons,
		Delimiter:      delimiterName(ds.Delimiter),
		MissingColumns: ds.MissingOptional,
		Parsing: Parsing{
			DurationMS: loadTime.Milliseconds(),
			Format:     formatName(ds),
		},
	}
	if secs := loadTime.Seconds(); secs > 0 {
		j.General.Parsing.RatePerSecond = int64(float64(ds.TotalRows) / secs)
	}
}

func delimiterName(d rune) string {
	switch d {
	case 0:
		return ""
	case '\t':
		return "tab"
	}
	return string(d)
}

func formatName(ds *ingestor.Dataset) string {
	if ds.Delimiter == 0 {
		return "xlsx"
	}
	return "delimited"
}

// NewFilterParams reports the filter bounds of f. An inactive price quantile is omitted.
func NewFilterParams(f filter.FilterSet) FilterParams {
	p := FilterParams{
		PriceMin:         Float(f.PriceMin),
		PriceMax:         Float(f.PriceMax),
		SizeMin:          Float(f.SizeMin),
		SizeMax:          Float(f.SizeMax),
		EMIMax:           Float(f.EMIMax),
		CrimeMax:         Float(f.CrimeMax),
		NeighbourhoodMin: Float(f.NeighbourhoodMin),
		Location:         f.Location,
		YearMin:          f.YearMin,
		NoLegalCases:     f.NoLegalCases,
		Types:            f.Types,
	}
	if f.QuantileActive() {
		p.PriceQuantile = Float(f.PriceQuantile)
	}
	return p
}

// NewViewResult converts a RenderModel into its JSON form.
func NewViewResult(name string, m pipeline.RenderModel, elapsed time.Duration) ViewResult {
	v := m.View
	w := v.Weights.Normalize()
	vr := ViewResult{
		Name: name,
		Parameters: ViewParameters{
			Mode:       v.Mode.String(),
			Weights:    [3]Float{Float(w.Neighbourhood), Float(w.Connectivity), Float(w.Satisfaction)},
			Top:        v.TopN,
			Navigation: v.Nav.String(),
			Filters:    NewFilterParams(v.Filter),
		},
		Stats: ViewStats{
			Filtered:   m.Filtered,
			Groups:     len(m.Groups),
			DurationUS: elapsed.Microseconds(),
		},
		Groups: make([]GroupResult, 0, len(m.Groups)),
		Scale: ScaleResult{
			Low:       Float(m.Legend.Low),
			Mid:       Float(m.Legend.Mid),
			High:      Float(m.Legend.High),
			Ticks:     floats(m.Legend.Ticks),
			LowColor:  m.Legend.LowHex,
			MidColor:  m.Legend.MidHex,
			HighColor: m.Legend.HighHex,
		},
	}
	for _, gv := range m.Groups {
		gr := groupResult(gv.Group)
		gr.Color = gv.Hex
		gr.Size = Float(gv.Size)
		vr.Groups = append(vr.Groups, gr)
	}

	if m.Detail.Summary.Count > 0 {
		vr.Detail = detailResult(m.Detail)
	}
	return vr
}

func groupResult(g *aggregate.Group) GroupResult {
	return GroupResult{
		Country:            g.Key.Country,
		City:               g.Key.City,
		Count:              g.N,
		MeanPrice:          Float(g.MeanPrice),
		MeanSize:           Float(g.MeanSize),
		MeanPricePerArea:   Float(g.MeanPricePerArea),
		MedianPricePerArea: Float(g.MedianPricePerArea),
		MinPrice:           Float(g.MinPrice),
		MaxPrice:           Float(g.MaxPrice),
		MeanNeighbourhood:  Float(g.MeanNeighbourhood),
		MeanConnectivity:   Float(g.MeanConnectivity),
		MeanSatisfaction:   Float(g.MeanSatisfaction),
		MeanCrime:          Float(g.MeanCrime),
		MeanLegalCases:     Float(g.MeanLegalCases),
		MeanEMIRatio:       Float(g.MeanEMIRatio),
		MeanYear:           Float(g.MeanYear),
		MeanScore:          Float(g.MeanScore),
		Types:              g.TypeCounts,
	}
}

func detailResult(p detail.Payload) *DetailResult {
	s := p.Summary
	d := &DetailResult{
		Country: p.Key.Country,
		City:    p.Key.City,
		Summary: SummaryResult{
			Count:              s.Count,
			MeanPrice:          Float(s.MeanPrice),
			MeanSize:           Float(s.MeanSize),
			MeanPricePerArea:   Float(s.MeanPricePerArea),
			MedianPricePerArea: Float(s.MedianPricePerArea),
			MeanScore:          Float(s.MeanScore),
			MeanEMIRatio:       Float(s.MeanEMIRatio),
			MeanCrime:          Float(s.MeanCrime),
			MeanNeighbourhood:  Float(s.MeanNeighbourhood),
		},
		Listings:  make([]ListingResult, 0, len(p.Top)),
		Truncated: p.Truncated,
	}
	for _, row := range p.Top {
		r := row.Record
		d.Listings = append(d.Listings, ListingResult{
			ID:            r.ID,
			Country:       r.Country,
			City:          r.City,
			Type:          r.Type,
			Year:          r.Year,
			Price:         Float(r.Price),
			Size:          Float(r.Size),
			PricePerArea:  Float(r.PricePerArea),
			Score:         Float(row.Score),
			Neighbourhood: Float(r.Neighbourhood),
			Connectivity:  Float(r.Connectivity),
			Satisfaction:  Float(r.Satisfaction),
			EMIRatio:      Float(r.EMIRatio),
		})
	}
	return d
}

func floats(xs []float64) []Float {
	out := make([]Float, len(xs))
	for i, x := range xs {
		out[i] = Float(x)
	}
	return out
}
