package config

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ChristianF88/realtyx/aggregate"
	"github.com/ChristianF88/realtyx/navigation"
)

const testConfigContent = `
[global]
logLevel = "debug"
logFormat = "json"
logFile = "/tmp/realtyx.log"

[dataset]
path = "DATASET"
delimiter = ";"
cityCoordinates = ""
plotPath = "/tmp/plot.html"
xlsxPath = "/tmp/out.xlsx"

[countryAliases]
USA = "United States"
Holland = "Netherlands"

[views.default]
mode = "ppsqm"
weights = [1.0, 1.0, 1.0]
top = 10
priceMax = 0
emiMax = 0.35
crimeMax = 5
priceQuantile = 1.0

[views.paris_value]
mode = "city_price"
weights = [2, 1, 0]
top = 0
country = "France"
city = "Paris"
priceMin = 100000
location = "paris"
yearMin = 1990
priceQuantile = 0.9
noLegalCases = true
types = ["Apartment", " Studio ", ""]
neighbourhoodMin = "high"
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	tmpDir := t.TempDir()
	dataPath := filepath.Join(tmpDir, "listings.csv")
	if err := os.WriteFile(dataPath, []byte("country,city,price,m2\n"), 0644); err != nil {
		t.Fatalf("Failed to write dataset: %v", err)
	}
	configPath := filepath.Join(tmpDir, "test_config.toml")
	content = strings.ReplaceAll(content, "DATASET", filepath.ToSlash(dataPath))
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write test config file: %v", err)
	}
	return configPath
}

func TestLoadConfig(t *testing.T) {
	config, err := LoadConfig(writeConfig(t, testConfigContent))
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if config.Global.LogLevel != "debug" || config.Global.LogFormat != "json" {
		t.Errorf("Global = %+v", config.Global)
	}
	if lc := config.LoggingConfig(); lc.File != "/tmp/realtyx.log" {
		t.Errorf("LoggingConfig().File = %q", lc.File)
	}
	if config.Dataset.PlotPath != "/tmp/plot.html" || config.Dataset.XLSXPath != "/tmp/out.xlsx" {
		t.Errorf("Dataset = %+v", config.Dataset)
	}
	if d, err := config.Dataset.DelimiterRune(); err != nil || d != ';' {
		t.Errorf("DelimiterRune() = %q, %v, want ';'", d, err)
	}
	if config.CountryAliases["USA"] != "United States" {
		t.Errorf("CountryAliases = %v", config.CountryAliases)
	}

	names := config.ViewNames()
	if len(names) != 2 || names[0] != "default" || names[1] != "paris_value" {
		t.Fatalf("ViewNames() = %v, want [default paris_value]", names)
	}

	def := config.Views["default"]
	if def.EMIMax != 0.35 || def.CrimeMax != 5 || def.PriceQuantile != 1 {
		t.Errorf("default view bounds = %+v", def)
	}
	if fs := def.FilterSet(); fs.QuantileActive() {
		t.Errorf("priceQuantile = 1 must not cap")
	}

	pv := config.Views["paris_value"]
	if pv.Name != "paris_value" {
		t.Errorf("Name = %q", pv.Name)
	}
	if pv.Top != 0 {
		t.Errorf("Top = %d, want 0", pv.Top)
	}
	if pv.YearMin != 1990 || pv.PriceMin != 100000 || !pv.NoLegalCases {
		t.Errorf("paris_value = %+v", pv)
	}
	if len(pv.Types) != 2 || pv.Types[1] != "Studio" {
		t.Errorf("Types = %q, want [Apartment Studio]", pv.Types)
	}
	if pv.NeighbourhoodMin != 0 {
		t.Errorf("non-numeric neighbourhoodMin should be unset, got %v", pv.NeighbourhoodMin)
	}
	mode, err := pv.ParsedMode()
	if err != nil || mode != aggregate.ModeCityPrice {
		t.Errorf("ParsedMode() = %v, %v", mode, err)
	}
	w := pv.AggregateWeights()
	if w.Neighbourhood != 2 || w.Connectivity != 1 || w.Satisfaction != 0 {
		t.Errorf("AggregateWeights() = %+v", w)
	}

	if err := config.ValidateGlobal(); err != nil {
		t.Errorf("ValidateGlobal() = %v", err)
	}
	if err := config.ValidateDataset(); err != nil {
		t.Errorf("ValidateDataset() = %v", err)
	}
	if err := config.ValidateViews(); err != nil {
		t.Errorf("ValidateViews() = %v", err)
	}
}

func TestLoadConfig_MissingSections(t *testing.T) {
	config, err := LoadConfig(writeConfig(t, "[views.only]\n"))
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if config.Global == nil || config.Dataset == nil {
		t.Fatal("Global and Dataset must default to empty sections")
	}
	if config.Views["only"].Top != DefaultTop {
		t.Errorf("Top = %d, want %d", config.Views["only"].Top, DefaultTop)
	}
	if err := config.ValidateDataset(); err == nil {
		t.Error("expected error for missing dataset path")
	}
}

func TestLoadConfig_Errors(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
		t.Error("expected error for missing file")
	}
	if _, err := LoadConfig(writeConfig(t, "[views\nmode=")); err == nil {
		t.Error("expected parse error")
	}
}

func TestViewConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		view    ViewConfig
		wantErr string
	}{
		{"valid default", *NewDefaultView("x"), ""},
		{"empty mode is ppsqm", ViewConfig{Top: 3}, ""},
		{"unknown mode", ViewConfig{Mode: "cheapest"}, "unknown normalization mode"},
		{"negative weight", ViewConfig{Weights: []float64{1, -1, 1}, weightsRaw: 3}, "non-negative"},
		{"two weights", ViewConfig{Weights: []float64{1, 1}, weightsRaw: 2}, "3 entries"},
		{"NaN weight is unset", ViewConfig{Weights: []float64{math.NaN(), 1, 1}, weightsRaw: 3}, ""},
		{"negative top", ViewConfig{Top: -1}, "top must be"},
		{"city without country", ViewConfig{City: "Paris"}, "requires a country"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.view.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() = %v, want nil", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() = %v, want error containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestValidateGlobal(t *testing.T) {
	c := &Config{Global: &GlobalConfig{LogLevel: "trace"}}
	if err := c.ValidateGlobal(); err == nil {
		t.Error("expected invalid logLevel error")
	}
	c.Global = &GlobalConfig{LogFormat: "xml"}
	if err := c.ValidateGlobal(); err == nil {
		t.Error("expected invalid logFormat error")
	}
}

func TestDelimiterRune(t *testing.T) {
	tests := []struct {
		in      string
		want    rune
		wantErr bool
	}{
		{"", 0, false},
		{"auto", 0, false},
		{",", ',', false},
		{"tab", '\t', false},
		{"::", 0, true},
	}
	for _, tt := range tests {
		got, err := (&DatasetConfig{Delimiter: tt.in}).DelimiterRune()
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("DelimiterRune(%q) = %q, %v", tt.in, got, err)
		}
	}
}

func TestViewState(t *testing.T) {
	avail := navigation.NewSet()
	avail.Add("France", "Paris")

	v := &ViewConfig{Country: "France", City: "Paris", Top: 4, PriceMax: 5e5}
	vs, err := v.ViewState(avail)
	if err != nil {
		t.Fatalf("ViewState failed: %v", err)
	}
	if vs.Nav != navigation.City("France", "Paris") {
		t.Errorf("Nav = %v, want City(France, Paris)", vs.Nav)
	}
	if vs.TopN != 4 || vs.Filter.PriceMax != 5e5 {
		t.Errorf("ViewState = %+v", vs)
	}

	v = &ViewConfig{Country: "France", City: "Lyon"}
	vs, _ = v.ViewState(avail)
	if vs.Nav != navigation.Country("France") {
		t.Errorf("unknown city should stay at country level, got %v", vs.Nav)
	}

	v = &ViewConfig{Country: "Spain"}
	vs, _ = v.ViewState(avail)
	if vs.Nav != navigation.World() {
		t.Errorf("unknown country should stay at world level, got %v", vs.Nav)
	}

	if _, err := (&ViewConfig{Mode: "bogus"}).ViewState(avail); err == nil {
		t.Error("expected mode error")
	}
}

func TestParseWeights(t *testing.T) {
	w, err := ParseWeights("2, 1 ,x")
	if err != nil {
		t.Fatalf("ParseWeights failed: %v", err)
	}
	if w.Neighbourhood != 2 || w.Connectivity != 1 || w.Satisfaction != 0 {
		t.Errorf("ParseWeights = %+v", w)
	}
	for _, bad := range []string{"1,1", "1,-2,1", ""} {
		if _, err := ParseWeights(bad); err == nil {
			t.Errorf("ParseWeights(%q) expected error", bad)
		}
	}
	if got := ParseList(" Villa,,Studio "); len(got) != 2 || got[1] != "Studio" {
		t.Errorf("ParseList = %q", got)
	}
}
