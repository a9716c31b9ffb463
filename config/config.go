package config

import (
	"fmt"
	"math"
	"os"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/ChristianF88/realtyx/aggregate"
	"github.com/ChristianF88/realtyx/filter"
	"github.com/ChristianF88/realtyx/logging"
	"github.com/ChristianF88/realtyx/navigation"
	"github.com/ChristianF88/realtyx/pipeline"
	"github.com/ChristianF88/realtyx/scale"
)

// DefaultViewName is used when the configuration defines no view.
const DefaultViewName = "default"

// DefaultTop is the detail size of a view that does not set top.
const DefaultTop = 10

type GlobalConfig struct {
	LogLevel  string `toml:"logLevel"`
	LogFormat string `toml:"logFormat"`
	LogFile   string `toml:"logFile"`
}

type DatasetConfig struct {
	Path            string `toml:"path"`
	Delimiter       string `toml:"delimiter"`
	CityCoordinates string `toml:"cityCoordinates"`
	PlotPath        string `toml:"plotPath"`
	XLSXPath        string `toml:"xlsxPath"`
}

// ViewConfig is one named combination of filters, weights and navigation.
// Numeric filter bounds that are missing, zero or not numbers are unset.
type ViewConfig struct {
	Name             string
	Mode             string    `toml:"mode"`
	Weights          []float64 `toml:"weights"`
	Top              int       `toml:"top"`
	Country          string    `toml:"country"`
	City             string    `toml:"city"`
	PriceMin         float64   `toml:"priceMin"`
	PriceMax         float64   `toml:"priceMax"`
	SizeMin          float64   `toml:"sizeMin"`
	SizeMax          float64   `toml:"sizeMax"`
	EMIMax           float64   `toml:"emiMax"`
	CrimeMax         float64   `toml:"crimeMax"`
	NeighbourhoodMin float64   `toml:"neighbourhoodMin"`
	Location         string    `toml:"location"`
	YearMin          int       `toml:"yearMin"`
	PriceQuantile    float64   `toml:"priceQuantile"`
	NoLegalCases     bool      `toml:"noLegalCases"`
	Types            []string  `toml:"types"`

	// weightsRaw keeps the number of configured weights for validation.
	weightsRaw int
}

type Config struct {
	Global         *GlobalConfig
	Dataset        *DatasetConfig
	CountryAliases map[string]string
	Views          map[string]*ViewConfig
}

func LoadConfig(configPath string) (*Config, error) {
	configData, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var rawConfig map[string]any
	if _, err := toml.Decode(string(configData), &rawConfig); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	config := &Config{
		CountryAliases: make(map[string]string),
		Views:          make(map[string]*ViewConfig),
	}

	for key, value := range rawConfig {
		section, ok := value.(map[string]any)
		if !ok {
			continue
		}
		switch key {
		case "global":
			config.Global = parseGlobalConfig(section)
		case "dataset":
			config.Dataset = parseDatasetConfig(section)
		case "countryAliases":
			for alias, target := range section {
				if s, ok := target.(string); ok {
					config.CountryAliases[alias] = s
				}
			}
		case "views":
			for name, sub := range section {
				viewMap, ok := sub.(map[string]any)
				if !ok {
					continue
				}
				config.Views[name] = parseViewConfig(name, viewMap)
			}
		}
	}

	if config.Global == nil {
		config.Global = &GlobalConfig{}
	}
	if config.Dataset == nil {
		config.Dataset = &DatasetConfig{}
	}

	return config, nil
}

func parseGlobalConfig(m map[string]any) *GlobalConfig {
	config := &GlobalConfig{}
	if v, ok := m["logLevel"].(string); ok {
		config.LogLevel = v
	}
	if v, ok := m["logFormat"].(string); ok {
		config.LogFormat = v
	}
	if v, ok := m["logFile"].(string); ok {
		config.LogFile = v
	}
	return config
}

func parseDatasetConfig(m map[string]any) *DatasetConfig {
	config := &DatasetConfig{}
	if v, ok := m["path"].(string); ok {
		config.Path = v
	}
	if v, ok := m["delimiter"].(string); ok {
		config.Delimiter = v
	}
	if v, ok := m["cityCoordinates"].(string); ok {
		config.CityCoordinates = v
	}
	if v, ok := m["plotPath"].(string); ok {
		config.PlotPath = v
	}
	if v, ok := m["xlsxPath"].(string); ok {
		config.XLSXPath = v
	}
	return config
}

// number accepts TOML integers and floats. Anything else is unset.
func number(v any) (float64, bool) {
	switch n := v.(type) {
	case int64:
		return float64(n), true
	case float64:
		if math.IsNaN(n) {
			return 0, false
		}
		return n, true
	}
	return 0, false
}

func parseViewConfig(name string, m map[string]any) *ViewConfig {
	config := &ViewConfig{Name: name, Top: DefaultTop}
	if v, ok := m["mode"].(string); ok {
		config.Mode = v
	}
	if v, ok := m["weights"].([]any); ok {
		config.weightsRaw = len(v)
		for _, item := range v {
			f, ok := number(item)
			if !ok {
				f = math.NaN()
			}
			config.Weights = append(config.Weights, f)
		}
	}
	if v, ok := number(m["top"]); ok {
		config.Top = int(v)
	}
	if v, ok := m["country"].(string); ok {
		config.Country = strings.TrimSpace(v)
	}
	if v, ok := m["city"].(string); ok {
		config.City = strings.TrimSpace(v)
	}
	if v, ok := m["location"].(string); ok {
		config.Location = v
	}

	bounds := map[string]*float64{
		"priceMin":         &config.PriceMin,
		"priceMax":         &config.PriceMax,
		"sizeMin":          &config.SizeMin,
		"sizeMax":          &config.SizeMax,
		"emiMax":           &config.EMIMax,
		"crimeMax":         &config.CrimeMax,
		"neighbourhoodMin": &config.NeighbourhoodMin,
		"priceQuantile":    &config.PriceQuantile,
	}
	for key, dst := range bounds {
		if v, ok := number(m[key]); ok {
			*dst = v
		}
	}
	if v, ok := number(m["yearMin"]); ok {
		config.YearMin = int(v)
	}
	if v, ok := m["noLegalCases"].(bool); ok {
		config.NoLegalCases = v
	}
	if v, ok := m["types"].([]any); ok {
		for _, item := range v {
			if s, ok := item.(string); ok && strings.TrimSpace(s) != "" {
				config.Types = append(config.Types, strings.TrimSpace(s))
			}
		}
	}
	return config
}

// NewDefaultView returns a view with no filters and default settings.
func NewDefaultView(name string) *ViewConfig {
	return &ViewConfig{Name: name, Mode: aggregate.ModePPSQM.String(), Top: DefaultTop}
}

// ViewNames returns the configured view names in sorted order.
func (c *Config) ViewNames() []string {
	names := make([]string, 0, len(c.Views))
	for name := range c.Views {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DelimiterRune returns the configured delimiter, or 0 for auto-detection.
func (d *DatasetConfig) DelimiterRune() (rune, error) {
	switch d.Delimiter {
	case "", "auto":
		return 0, nil
	case ",", ";", "\t", "|":
		return rune(d.Delimiter[0]), nil
	case "tab", "\\t":
		return '\t', nil
	}
	return 0, fmt.Errorf("unsupported delimiter %q (use ',', ';', tab or '|')", d.Delimiter)
}

// LoggingConfig converts the global section for the logging package.
func (c *Config) LoggingConfig() logging.Config {
	if c.Global == nil {
		return logging.Config{}
	}
	return logging.Config{Level: c.Global.LogLevel, Format: c.Global.LogFormat, File: c.Global.LogFile}
}

func (c *Config) ValidateGlobal() error {
	if c.Global == nil {
		return nil
	}
	if !logging.ValidLevel(c.Global.LogLevel) {
		return fmt.Errorf("invalid logLevel %q (valid: debug, info, warn, error)", c.Global.LogLevel)
	}
	switch strings.ToLower(c.Global.LogFormat) {
	case "", "json", "console":
	default:
		return fmt.Errorf("invalid logFormat %q (valid: json, console)", c.Global.LogFormat)
	}
	return nil
}

func (c *Config) ValidateDataset() error {
	if c.Dataset == nil {
		return fmt.Errorf("dataset configuration section is required")
	}

	if c.Dataset.Path == "" {
		return fmt.Errorf("path is required in dataset configuration")
	}

	if _, err := os.Stat(c.Dataset.Path); os.IsNotExist(err) {
		return fmt.Errorf("dataset file does not exist: %s", c.Dataset.Path)
	}

	if _, err := c.Dataset.DelimiterRune(); err != nil {
		return err
	}

	if c.Dataset.CityCoordinates != "" {
		if _, err := os.Stat(c.Dataset.CityCoordinates); os.IsNotExist(err) {
			return fmt.Errorf("cityCoordinates file does not exist: %s", c.Dataset.CityCoordinates)
		}
	}

	return nil
}

func (c *Config) ValidateViews() error {
	for _, name := range c.ViewNames() {
		if err := c.Views[name].Validate(); err != nil {
			return fmt.Errorf("view %q: %w", name, err)
		}
	}
	return nil
}

// Validate checks the settings that cannot be treated as unset.
func (v *ViewConfig) Validate() error {
	if _, err := v.ParsedMode(); err != nil {
		return err
	}
	if v.weightsRaw != 0 && v.weightsRaw != 3 {
		return fmt.Errorf("weights must have 3 entries (neighbourhood, connectivity, satisfaction), got %d", v.weightsRaw)
	}
	for _, w := range v.Weights {
		if w < 0 {
			return fmt.Errorf("weights must be non-negative, got %v", v.Weights)
		}
	}
	if v.Top < 0 {
		return fmt.Errorf("top must be >= 0, got %d", v.Top)
	}
	if v.City != "" && v.Country == "" {
		return fmt.Errorf("city %q requires a country", v.City)
	}
	return nil
}

// ParsedMode returns the normalization mode, ppsqm when unset.
func (v *ViewConfig) ParsedMode() (aggregate.Mode, error) {
	if strings.TrimSpace(v.Mode) == "" {
		return aggregate.ModePPSQM, nil
	}
	return aggregate.ParseMode(v.Mode)
}

// FilterSet converts the view's filter settings.
func (v *ViewConfig) FilterSet() filter.FilterSet {
	return filter.FilterSet{
		PriceMin:         v.PriceMin,
		PriceMax:         v.PriceMax,
		SizeMin:          v.SizeMin,
		SizeMax:          v.SizeMax,
		EMIMax:           v.EMIMax,
		CrimeMax:         v.CrimeMax,
		NeighbourhoodMin: v.NeighbourhoodMin,
		YearMin:          v.YearMin,
		Location:         v.Location,
		PriceQuantile:    v.PriceQuantile,
		NoLegalCases:     v.NoLegalCases,
		Types:            v.Types,
	}
}

// AggregateWeights converts the weights list. Missing entries count as 0.
func (v *ViewConfig) AggregateWeights() aggregate.Weights {
	var w [3]float64
	copy(w[:], v.Weights)
	return aggregate.Weights{Neighbourhood: w[0], Connectivity: w[1], Satisfaction: w[2]}
}

// ViewState builds the pipeline input of the view. A country or city that
// has no groups after filtering leaves navigation at the last reachable level.
func (v *ViewConfig) ViewState(avail navigation.Available) (pipeline.ViewState, error) {
	mode, err := v.ParsedMode()
	if err != nil {
		return pipeline.ViewState{}, err
	}
	vs := pipeline.ViewState{
		Filter:  v.FilterSet(),
		Weights: v.AggregateWeights(),
		Mode:    mode,
		Nav:     navigation.World(),
		TopN:    v.Top,
		Sizes:   scale.DefaultSizeRange,
	}
	if v.Country != "" {
		if tr, err := navigation.SelectCountry(vs.Nav, v.Country, avail); err == nil {
			vs.Nav = tr.To
		}
	}
	if v.City != "" && vs.Nav.Level == navigation.LevelCountry {
		if tr, err := navigation.SelectCity(vs.Nav, v.City, avail); err == nil {
			vs.Nav = tr.To
		}
	}
	return vs, nil
}
