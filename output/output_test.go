package output

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/ChristianF88/realtyx/geo"
	"github.com/ChristianF88/realtyx/ingestor"
	"github.com/ChristianF88/realtyx/navigation"
	"github.com/ChristianF88/realtyx/pipeline"
)

func testRecords() []ingestor.Record {
	recs := []ingestor.Record{
		ingestor.NewRecord(1, "X", "A", 100, 10),
		ingestor.NewRecord(2, "X", "A", 300, 10),
		ingestor.NewRecord(3, "Y", "B", 200, 20),
	}
	for i := range recs {
		recs[i].Neighbourhood = float64(5 + i)
		recs[i].Connectivity = 5
		recs[i].Satisfaction = 5
		recs[i].Year = 2000 + i
		recs[i].Type = "Apartment"
	}
	return recs
}

func cityModel(t *testing.T, recs []ingestor.Record) pipeline.RenderModel {
	t.Helper()
	v := pipeline.DefaultView()
	v.Nav = navigation.City("X", "A")
	return pipeline.Run(recs, v)
}

func TestFloat_MarshalNaNAsNull(t *testing.T) {
	data, err := json.Marshal(struct {
		A Float   `json:"a"`
		B Float   `json:"b"`
		C []Float `json:"c"`
	}{Float(math.NaN()), 2.5, []Float{Float(math.Inf(1)), 1}})
	if err != nil {
		t.Fatalf("Marshal error: %v", err)
	}
	if got, want := string(data), `{"a":null,"b":2.5,"c":[null,1]}`; got != want {
		t.Errorf("Marshal = %s, want %s", got, want)
	}

	var f Float
	if err := json.Unmarshal([]byte("null"), &f); err != nil || !math.IsNaN(float64(f)) {
		t.Errorf("Unmarshal(null) = %v, %v; want NaN", f, err)
	}
}

func TestJSONOutput_ToJSON_RoundTrip(t *testing.T) {
	recs := testRecords()
	out := NewJSONOutput("summary", time.Now())
	out.SetDataset(&ingestor.Dataset{
		Path:          "listings.csv",
		Delimiter:     ';',
		Records:       recs,
		TotalRows:     4,
		Rejected:      1,
		RejectReasons: map[string]int{ingestor.ReasonPrice: 1},
	}, 2*time.Second)
	out.Views = append(out.Views, NewViewResult("paris", cityModel(t, recs), time.Millisecond))
	out.AddWarning("rejected_rows", "1 rows rejected", 1)

	data, err := out.ToJSON()
	if err != nil {
		t.Fatalf("ToJSON() error: %v", err)
	}

	var restored JSONOutput
	if err := json.Unmarshal(data, &restored); err != nil {
		t.Fatalf("Unmarshal error: %v", err)
	}

	if restored.General.Accepted != 3 || restored.General.Rejected != 1 {
		t.Errorf("General = %+v", restored.General)
	}
	if restored.General.Delimiter != ";" || restored.General.Parsing.Format != "delimited" {
		t.Errorf("Delimiter/Format = %q/%q", restored.General.Delimiter, restored.General.Parsing.Format)
	}
	if restored.General.Parsing.RatePerSecond != 2 {
		t.Errorf("RatePerSecond = %d, want 2", restored.General.Parsing.RatePerSecond)
	}
	if len(restored.Views) != 1 {
		t.Fatalf("len(Views) = %d, want 1", len(restored.Views))
	}

	v := restored.Views[0]
	if v.Parameters.Navigation != navigation.City("X", "A").String() {
		t.Errorf("Navigation = %q", v.Parameters.Navigation)
	}
	if len(v.Groups) != 1 || v.Groups[0].Count != 2 || v.Groups[0].MeanPrice != 200 {
		t.Fatalf("Groups = %+v", v.Groups)
	}
	if v.Groups[0].MeanPricePerArea != 20 {
		t.Errorf("MeanPricePerArea = %v, want 20", v.Groups[0].MeanPricePerArea)
	}
	if !math.IsNaN(float64(v.Groups[0].MeanCrime)) {
		t.Errorf("MeanCrime = %v, want null/NaN", v.Groups[0].MeanCrime)
	}
	if v.Detail == nil || len(v.Detail.Listings) != 2 {
		t.Fatalf("Detail = %+v", v.Detail)
	}
	// Same quality, lower price per m² ranks first.
	if v.Detail.Listings[0].ID != 1 {
		t.Errorf("first listing ID = %d, want 1", v.Detail.Listings[0].ID)
	}
	if len(restored.Warnings) != 1 || restored.Warnings[0].Count != 1 {
		t.Errorf("Warnings = %+v", restored.Warnings)
	}

	if !strings.Contains(string(data), `"mean_crime": null`) {
		t.Error("expected NaN means to serialize as null")
	}

	compact, err := out.ToCompactJSON()
	if err != nil {
		t.Fatalf("ToCompactJSON() error: %v", err)
	}
	if len(compact) >= len(data) {
		t.Errorf("compact JSON (%d bytes) should be shorter than indented (%d bytes)", len(compact), len(data))
	}
}

func TestNewViewResult_WorldHasNoDetail(t *testing.T) {
	m := pipeline.Run(testRecords(), pipeline.DefaultView())
	vr := NewViewResult("world", m, 0)

	if len(vr.Groups) != 2 {
		t.Fatalf("len(Groups) = %d, want 2", len(vr.Groups))
	}
	if vr.Groups[0].Country != "X" || vr.Groups[0].City != "" {
		t.Errorf("first group = %+v", vr.Groups[0])
	}
	if vr.Detail != nil {
		t.Errorf("Detail = %+v, want nil at world level", vr.Detail)
	}
	if vr.Groups[0].Color == "" || vr.Scale.LowColor == "" {
		t.Error("expected colors on groups and legend")
	}
}

func TestJSONOutput_AddWarning_Concurrent(t *testing.T) {
	out := NewJSONOutput("summary", time.Now())

	const goroutines = 10
	var wg sync.WaitGroup
	wg.Add(goroutines)
	for i := 0; i < goroutines; i++ {
		go func(id int) {
			defer wg.Done()
			out.AddWarning("concurrent", fmt.Sprintf("warning from goroutine %d", id), id)
		}(i)
	}
	wg.Wait()

	if len(out.Warnings) != goroutines {
		t.Errorf("len(Warnings) = %d, want %d", len(out.Warnings), goroutines)
	}

	seen := make(map[int]bool)
	for _, w := range out.Warnings {
		seen[w.Count] = true
	}
	for i := 0; i < goroutines; i++ {
		if !seen[i] {
			t.Errorf("missing warning from goroutine %d", i)
		}
	}
}

func TestJSONOutput_AddError_Concurrent(t *testing.T) {
	out := NewJSONOutput("summary", time.Now())

	const goroutines = 10
	var wg sync.WaitGroup
	wg.Add(goroutines)
	for i := 0; i < goroutines; i++ {
		go func(id int) {
			defer wg.Done()
			out.AddError("concurrent", fmt.Sprintf("error from goroutine %d", id), id)
		}(i)
	}
	wg.Wait()

	if len(out.Errors) != goroutines {
		t.Errorf("len(Errors) = %d, want %d", len(out.Errors), goroutines)
	}
}

func TestWritePlain(t *testing.T) {
	recs := testRecords()
	out := NewJSONOutput("summary", time.Now())
	out.SetDataset(&ingestor.Dataset{Path: "listings.csv", Delimiter: ',', Records: recs, TotalRows: 3}, 0)
	out.Views = append(out.Views, NewViewResult("paris", cityModel(t, recs), 0))
	out.AddWarning("missing_columns", "missing optional columns: rooms", 1)

	var buf bytes.Buffer
	if err := WritePlain(&buf, out); err != nil {
		t.Fatalf("WritePlain error: %v", err)
	}
	text := buf.String()
	for _, want := range []string{"realtyx Summary", "VIEW: paris", "X / A", "DETAIL: X / A (2 listings)", "missing optional columns: rooms"} {
		if !strings.Contains(text, want) {
			t.Errorf("plain output missing %q", want)
		}
	}
}

func TestFilterLabels(t *testing.T) {
	got := FilterLabels(FilterParams{PriceMax: 5e5, YearMin: 1990, NoLegalCases: true, Types: []string{"Villa"}})
	want := []string{"price<=500000", "year>=1990", "no legal cases", "types=Villa"}
	if strings.Join(got, ";") != strings.Join(want, ";") {
		t.Errorf("FilterLabels = %q, want %q", got, want)
	}
	if len(FilterLabels(FilterParams{})) != 0 {
		t.Error("empty FilterParams should have no active filters")
	}
}

func TestWriteCharts(t *testing.T) {
	recs := testRecords()
	locs := geo.NewLocations()
	locs.Add("X", "A", 48.85, 2.35)

	var buf bytes.Buffer
	err := WriteCharts(&buf, ChartData{
		Title:     "test",
		Records:   recs,
		Model:     pipeline.Run(recs, pipeline.DefaultView()),
		Countries: geo.NewCanonicalizer(map[string]string{"X": "France"}),
		Locations: locs,
	})
	if err != nil {
		t.Fatalf("WriteCharts error: %v", err)
	}
	html := buf.String()
	for _, want := range []string{"echarts", "Listings by Country and City", "France", "Prices by Construction Year", "Cities by Mean Price"} {
		if !strings.Contains(html, want) {
			t.Errorf("chart page missing %q", want)
		}
	}
}

func TestPlotCharts_BadPath(t *testing.T) {
	err := PlotCharts(ChartData{}, filepath.Join(t.TempDir(), "missing", "plot.html"))
	if err == nil {
		t.Error("expected error for unwritable path")
	}
}

func TestWriteXLSX(t *testing.T) {
	recs := testRecords()
	out := NewJSONOutput("export", time.Now())
	out.SetDataset(&ingestor.Dataset{Path: "listings.csv", Delimiter: ',', Records: recs, TotalRows: 3}, 0)
	out.Views = append(out.Views, NewViewResult("paris", cityModel(t, recs), 0))

	path := filepath.Join(t.TempDir(), "out.xlsx")
	if err := WriteXLSX(out, path); err != nil {
		t.Fatalf("WriteXLSX error: %v", err)
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		t.Fatalf("OpenFile error: %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows(groupsSheet)
	if err != nil {
		t.Fatalf("GetRows(%s) error: %v", groupsSheet, err)
	}
	if len(rows) != 2 {
		t.Fatalf("group rows = %d, want 2 (header + 1)", len(rows))
	}
	if rows[1][0] != "paris" || rows[1][1] != "X" || rows[1][2] != "A" || rows[1][3] != "2" {
		t.Errorf("group row = %q", rows[1])
	}

	listings, err := f.GetRows(listingsSheet)
	if err != nil {
		t.Fatalf("GetRows(%s) error: %v", listingsSheet, err)
	}
	if len(listings) != 3 {
		t.Errorf("listing rows = %d, want 3", len(listings))
	}
}

func TestFormatNumber(t *testing.T) {
	tests := []struct {
		input int
		want  string
	}{
		{0, "0"},
		{1, "1"},
		{999, "999"},
		{1000, "1,000"},
		{1046826, "1,046,826"},
		{-1234, "-1,234"},
	}
	for _, tt := range tests {
		if got := FormatNumber(tt.input); got != tt.want {
			t.Errorf("FormatNumber(%d) = %q, want %q", tt.input, got, tt.want)
		}
	}
}
