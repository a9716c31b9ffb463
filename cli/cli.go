package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	cli "github.com/urfave/cli/v2"

	"github.com/ChristianF88/realtyx/aggregate"
	"github.com/ChristianF88/realtyx/config"
	"github.com/ChristianF88/realtyx/version"
)

// parseDate attempts to parse the build date
func parseDate(d string) time.Time {
	t, err := time.Parse(time.RFC3339, d)
	if err != nil {
		return time.Now()
	}
	return t
}

// Shared flag definitions to eliminate duplication
var (
	// Configuration flags
	configFlag = &cli.StringFlag{
		Name:  "config",
		Usage: "Path to configuration file (mutually exclusive with other flags)",
	}

	// Dataset flags
	dataFlag = &cli.StringFlag{
		Name:  "data",
		Usage: "Path to the listings file (.csv, .txt or .xlsx)",
	}
	delimiterFlag = &cli.StringFlag{
		Name:  "delimiter",
		Usage: "Field delimiter: ',', ';', tab or '|' (default: detected from the header)",
	}
	coordsFlag = &cli.StringFlag{
		Name:  "coords",
		Usage: "Path to a country,city,lat,lon CSV used to place cities on the map",
	}

	// Filtering flags
	priceMinFlag = &cli.Float64Flag{
		Name:  "priceMin",
		Usage: "Minimum listing price",
	}
	priceMaxFlag = &cli.Float64Flag{
		Name:  "priceMax",
		Usage: "Maximum listing price",
	}
	sizeMinFlag = &cli.Float64Flag{
		Name:  "sizeMin",
		Usage: "Minimum size in m²",
	}
	sizeMaxFlag = &cli.Float64Flag{
		Name:  "sizeMax",
		Usage: "Maximum size in m²",
	}
	emiMaxFlag = &cli.Float64Flag{
		Name:  "emiMax",
		Usage: "Maximum EMI to income ratio",
	}
	crimeMaxFlag = &cli.Float64Flag{
		Name:  "crimeMax",
		Usage: "Maximum number of reported crime cases",
	}
	neighbourhoodMinFlag = &cli.Float64Flag{
		Name:  "neighbourhoodMin",
		Usage: "Minimum neighbourhood rating",
	}
	yearMinFlag = &cli.IntFlag{
		Name:  "yearMin",
		Usage: "Earliest construction year",
	}
	locationFlag = &cli.StringFlag{
		Name:  "location",
		Usage: "Case-insensitive substring matched against \"city country\"",
	}
	priceQuantileFlag = &cli.Float64Flag{
		Name:  "priceQuantile",
		Usage: "Keep listings priced at or below this quantile of the filtered set (0 < q < 1)",
	}
	noLegalCasesFlag = &cli.BoolFlag{
		Name:  "noLegalCases",
		Usage: "Only listings without legal cases",
	}
	typesFlag = &cli.StringFlag{
		Name:  "types",
		Usage: "Comma-separated property types to keep (e.g. 'Villa,Apartment')",
	}

	// Scoring and navigation flags
	weightsFlag = &cli.StringFlag{
		Name:  "weights",
		Usage: "Quality weights neighbourhood,connectivity,satisfaction (renormalized to sum to 1)",
		Value: "1,1,1",
	}
	modeFlag = &cli.StringFlag{
		Name:  "mode",
		Usage: "Score normalization: ppsqm, ppsqm_global or city_price",
		Value: aggregate.ModePPSQM.String(),
	}
	countryFlag = &cli.StringFlag{
		Name:  "country",
		Usage: "Drill into this country",
	}
	cityFlag = &cli.StringFlag{
		Name:  "city",
		Usage: "Drill into this city (requires --country)",
	}
	topFlag = &cli.IntFlag{
		Name:  "top",
		Usage: "Number of listings in the detail table (0 shows all)",
		Value: config.DefaultTop,
	}

	// Output flags
	plotPathFlag = &cli.StringFlag{
		Name:  "plotPath",
		Usage: "Path where to save the chart page (e.g., '/path/to/charts.html')",
	}
	xlsxFlag = &cli.StringFlag{
		Name:  "xlsx",
		Usage: "Path where to save the XLSX export (e.g., '/path/to/listings.xlsx')",
	}
	viewFlag = &cli.StringFlag{
		Name:  "view",
		Usage: "Name of the configured view to chart (default: first view by name)",
	}
	compactFlag = &cli.BoolFlag{
		Name:  "compact",
		Usage: "Output compact JSON (no pretty printing)",
		Value: false,
	}
	plainFlag = &cli.BoolFlag{
		Name:  "plain",
		Usage: "Output plain text format for easy readability",
		Value: false,
	}

	// Logging flags
	logLevelFlag = &cli.StringFlag{
		Name:  "logLevel",
		Usage: "Log level: debug, info, warn or error",
		Value: "warn",
	}
	logFileFlag = &cli.StringFlag{
		Name:  "logFile",
		Usage: "Write logs to this file instead of stderr",
	}
)

var datasetFlags = []cli.Flag{dataFlag, delimiterFlag}

var viewFlags = []cli.Flag{
	priceMinFlag, priceMaxFlag, sizeMinFlag, sizeMaxFlag,
	emiMaxFlag, crimeMaxFlag, neighbourhoodMinFlag, yearMinFlag,
	locationFlag, priceQuantileFlag, noLegalCasesFlag, typesFlag,
	weightsFlag, modeFlag, countryFlag, cityFlag, topFlag,
}

var logFlags = []cli.Flag{logLevelFlag, logFileFlag}

func flags(groups ...[]cli.Flag) []cli.Flag {
	var all []cli.Flag
	for _, g := range groups {
		all = append(all, g...)
	}
	return all
}

// Shared validation functions
func validateConfigModeFlags(c *cli.Context, allowedFlags []string) error {
	// Create a map for quick lookup of allowed flags
	allowed := make(map[string]bool)
	for _, flag := range allowedFlags {
		allowed[flag] = true
	}

	for _, flag := range c.Command.Flags {
		name := flag.Names()[0]
		if name == "config" {
			continue
		}
		if c.IsSet(name) && !allowed[name] {
			return fmt.Errorf("when using --config, only %v flags are allowed", allowedFlags)
		}
	}
	return nil
}

func validateOutputPath(kind, path string) error {
	if path != "" {
		dir := filepath.Dir(path)
		if dir == "." {
			dir, _ = os.Getwd()
		}
		if _, err := os.Stat(dir); os.IsNotExist(err) {
			return fmt.Errorf("%s directory does not exist: %s", kind, dir)
		}
	}
	return nil
}

// validateConfig applies the same checks to config files and flag-built configs.
func validateConfig(cfg *config.Config) error {
	if err := cfg.ValidateGlobal(); err != nil {
		return fmt.Errorf("invalid global configuration: %w", err)
	}
	if err := cfg.ValidateDataset(); err != nil {
		return fmt.Errorf("invalid dataset configuration: %w", err)
	}
	if err := cfg.ValidateViews(); err != nil {
		return fmt.Errorf("invalid view configuration: %w", err)
	}
	if err := validateOutputPath("plot", cfg.Dataset.PlotPath); err != nil {
		return err
	}
	return validateOutputPath("xlsx", cfg.Dataset.XLSXPath)
}

// loadCommandConfig returns the validated configuration of a command, from
// --config or from flags. allowed lists the flags accepted next to --config.
func loadCommandConfig(c *cli.Context, allowed []string) (*config.Config, error) {
	configPath := c.String("config")
	if configPath == "" {
		return handleFlagsMode(c)
	}

	if err := validateConfigModeFlags(c, allowed); err != nil {
		return nil, err
	}
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := validateConfig(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// handleFlagsMode builds a single-view configuration from CLI flags.
func handleFlagsMode(c *cli.Context) (*config.Config, error) {
	if !c.IsSet("data") {
		return nil, fmt.Errorf("data is required when not using --config")
	}
	cfg, err := createConfigFromCLI(c)
	if err != nil {
		return nil, err
	}
	if err := validateConfig(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Command handler functions to reduce deep nesting

func handleSummaryCommand(c *cli.Context) error {
	cfg, err := loadCommandConfig(c, []string{"compact", "plain"})
	if err != nil {
		return err
	}
	return Summary(c.App.Writer, cfg, outputConfig(c))
}

func handleRenderCommand(c *cli.Context) error {
	cfg, err := loadCommandConfig(c, []string{"compact", "plain", "view"})
	if err != nil {
		return err
	}
	if cfg.Dataset.PlotPath == "" {
		return fmt.Errorf("plotPath is required for render (flag --plotPath or dataset.plotPath)")
	}
	if name := c.String("view"); name != "" {
		if _, ok := cfg.Views[name]; !ok {
			return fmt.Errorf("view %q is not configured (available: %v)", name, cfg.ViewNames())
		}
	}
	return Summary(c.App.Writer, cfg, outputConfig(c))
}

func handleExportCommand(c *cli.Context) error {
	cfg, err := loadCommandConfig(c, []string{"compact", "plain"})
	if err != nil {
		return err
	}
	if cfg.Dataset.XLSXPath == "" {
		return fmt.Errorf("xlsx is required for export (flag --xlsx or dataset.xlsxPath)")
	}
	return Summary(c.App.Writer, cfg, outputConfig(c))
}

func handleBrowseCommand(c *cli.Context) error {
	cfg, err := loadCommandConfig(c, nil)
	if err != nil {
		return err
	}
	return Browse(cfg)
}

func outputConfig(c *cli.Context) OutputConfig {
	return OutputConfig{
		Compact: c.Bool("compact"),
		Plain:   c.Bool("plain"),
		View:    c.String("view"),
	}
}

var App = &cli.App{
	Name:     "realtyx",
	Usage:    "Aggregate, score and explore property listings by country and city",
	Version:  version.Version,
	Compiled: parseDate(version.Date),
	Commands: []*cli.Command{
		{
			Name:   "summary",
			Usage:  "Print grouped statistics and detail tables as JSON or plain text",
			Flags:  flags([]cli.Flag{configFlag}, datasetFlags, viewFlags, []cli.Flag{coordsFlag, plotPathFlag, xlsxFlag, compactFlag, plainFlag}, logFlags),
			Action: handleSummaryCommand,
		},
		{
			Name:   "render",
			Usage:  "Write an HTML chart page for a view",
			Flags:  flags([]cli.Flag{configFlag}, datasetFlags, viewFlags, []cli.Flag{coordsFlag, plotPathFlag, viewFlag, compactFlag, plainFlag}, logFlags),
			Action: handleRenderCommand,
		},
		{
			Name:   "browse",
			Usage:  "Explore the listings interactively in the terminal",
			Flags:  flags([]cli.Flag{configFlag}, datasetFlags, viewFlags, logFlags),
			Action: handleBrowseCommand,
		},
		{
			Name:   "export",
			Usage:  "Write group and detail tables to an XLSX workbook",
			Flags:  flags([]cli.Flag{configFlag}, datasetFlags, viewFlags, []cli.Flag{xlsxFlag, compactFlag, plainFlag}, logFlags),
			Action: handleExportCommand,
		},
	},
}
