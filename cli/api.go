package cli

import (
	"fmt"
	"io"
	"time"

	cli "github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/ChristianF88/realtyx/analysis"
	"github.com/ChristianF88/realtyx/config"
	"github.com/ChristianF88/realtyx/geo"
	"github.com/ChristianF88/realtyx/ingestor"
	"github.com/ChristianF88/realtyx/logging"
	"github.com/ChristianF88/realtyx/output"
	"github.com/ChristianF88/realtyx/tui"
)

// flagsViewName names the single view built from CLI flags.
const flagsViewName = "cli"

// OutputConfig contains output formatting options
type OutputConfig struct {
	Compact bool
	Plain   bool
	// View selects the view drawn on the chart page.
	View string
}

// Summary evaluates every view of cfg and writes the result to w. Charts and
// the XLSX export are written when their paths are configured. A dataset that
// cannot be loaded is reported in the output and returned as an error.
func Summary(w io.Writer, cfg *config.Config, oc OutputConfig) error {
	start := time.Now()
	logger, err := setupLogging(cfg, false)
	if err != nil {
		return err
	}
	defer logger.Sync()

	result, ds, err := analysis.RunFromConfig(cfg)
	if err != nil {
		if outErr := outputResult(w, result, oc); outErr != nil {
			return outErr
		}
		return fmt.Errorf("analysis failed: %w", err)
	}

	if cfg.Dataset.PlotPath != "" {
		plotStart := time.Now()
		if err := renderCharts(cfg, ds, oc.View, result); err != nil {
			result.AddError("render_error", err.Error(), 1)
		} else {
			result.AddWarning("info", fmt.Sprintf("Charts generated in %v at %s", time.Since(plotStart), cfg.Dataset.PlotPath), 0)
		}
	}

	if cfg.Dataset.XLSXPath != "" {
		exportStart := time.Now()
		if err := output.WriteXLSX(result, cfg.Dataset.XLSXPath); err != nil {
			result.AddError("export_error", err.Error(), 1)
		} else {
			result.AddWarning("info", fmt.Sprintf("Workbook written in %v at %s", time.Since(exportStart), cfg.Dataset.XLSXPath), 0)
		}
	}

	result.UpdateDuration(start)
	if err := outputResult(w, result, oc); err != nil {
		return err
	}
	if n := len(result.Errors); n > 0 {
		return fmt.Errorf("%d error(s) reported, see output", n)
	}
	return nil
}

// Browse opens the terminal browser. The dataset loads behind a progress page
// and a load failure is shown in the browser until the user quits.
func Browse(cfg *config.Config) error {
	logger, err := setupLogging(cfg, true)
	if err != nil {
		return err
	}
	defer logger.Sync()

	app := tui.NewApp(cfg, logger)
	load := func() (*ingestor.Dataset, error) {
		return analysis.LoadDataset(cfg, output.NewJSONOutput("browse", time.Now()))
	}
	if err := app.Run(load); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}

// renderCharts draws the chart page of one view.
func renderCharts(cfg *config.Config, ds *ingestor.Dataset, viewName string, result *output.JSONOutput) error {
	if viewName == "" {
		names := cfg.ViewNames()
		if len(names) == 0 {
			viewName = config.DefaultViewName
		} else {
			viewName = names[0]
		}
	}
	view, ok := cfg.Views[viewName]
	if !ok {
		view = config.NewDefaultView(viewName)
	}

	m, err := analysis.EvaluateView(ds, view)
	if err != nil {
		return fmt.Errorf("view %q: %w", viewName, err)
	}

	data := output.ChartData{
		Title:     fmt.Sprintf("realtyx: %s", viewName),
		Records:   ds.Records,
		Model:     m,
		Countries: geo.NewCanonicalizer(cfg.CountryAliases),
	}
	if path := cfg.Dataset.CityCoordinates; path != "" {
		locs, err := geo.LoadLocations(path)
		if err != nil {
			result.AddWarning("coordinates", fmt.Sprintf("city coordinates not loaded: %v", err), 1)
		} else {
			data.Locations = locs
		}
	}
	return output.PlotCharts(data, cfg.Dataset.PlotPath)
}

// setupLogging installs the process logger. The browser owns the terminal, so
// it logs to a file or nowhere.
func setupLogging(cfg *config.Config, interactive bool) (*zap.Logger, error) {
	lc := cfg.LoggingConfig()
	if interactive && lc.File == "" {
		lc.Discard = true
	}
	logger, err := logging.New(lc)
	if err != nil {
		return nil, err
	}
	logging.SetDefault(logger)
	return logger, nil
}

// createConfigFromCLI creates a config.Config directly from CLI parameters
// with a single view, the same structure a config file produces.
func createConfigFromCLI(c *cli.Context) (*config.Config, error) {
	weights, err := config.ParseWeights(c.String("weights"))
	if err != nil {
		return nil, err
	}

	cfg := &config.Config{
		Global: &config.GlobalConfig{
			LogLevel: c.String("logLevel"),
			LogFile:  c.String("logFile"),
		},
		Dataset: &config.DatasetConfig{
			Path:            c.String("data"),
			Delimiter:       c.String("delimiter"),
			CityCoordinates: c.String("coords"),
			PlotPath:        c.String("plotPath"),
			XLSXPath:        c.String("xlsx"),
		},
		CountryAliases: make(map[string]string),
		Views:          make(map[string]*config.ViewConfig),
	}

	cfg.Views[flagsViewName] = &config.ViewConfig{
		Name:             flagsViewName,
		Mode:             c.String("mode"),
		Weights:          []float64{weights.Neighbourhood, weights.Connectivity, weights.Satisfaction},
		Top:              c.Int("top"),
		Country:          c.String("country"),
		City:             c.String("city"),
		PriceMin:         c.Float64("priceMin"),
		PriceMax:         c.Float64("priceMax"),
		SizeMin:          c.Float64("sizeMin"),
		SizeMax:          c.Float64("sizeMax"),
		EMIMax:           c.Float64("emiMax"),
		CrimeMax:         c.Float64("crimeMax"),
		NeighbourhoodMin: c.Float64("neighbourhoodMin"),
		YearMin:          c.Int("yearMin"),
		Location:         c.String("location"),
		PriceQuantile:    c.Float64("priceQuantile"),
		NoLegalCases:     c.Bool("noLegalCases"),
		Types:            config.ParseList(c.String("types")),
	}
	return cfg, nil
}

// outputResult is the unified output function that handles all output formats
func outputResult(w io.Writer, jsonOutput *output.JSONOutput, oc OutputConfig) error {
	if oc.Plain {
		return output.WritePlain(w, jsonOutput)
	}

	var jsonBytes []byte
	var err error

	if oc.Compact {
		jsonBytes, err = jsonOutput.ToCompactJSON()
	} else {
		jsonBytes, err = jsonOutput.ToJSON()
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON output: %w", err)
	}
	_, err = fmt.Fprintln(w, string(jsonBytes))
	return err
}
