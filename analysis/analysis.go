package analysis

import (
	"fmt"
	"runtime"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ChristianF88/realtyx/config"
	"github.com/ChristianF88/realtyx/ingestor"
	"github.com/ChristianF88/realtyx/logging"
	"github.com/ChristianF88/realtyx/navigation"
	"github.com/ChristianF88/realtyx/output"
	"github.com/ChristianF88/realtyx/pipeline"
)

// RunFromConfig loads the dataset once and evaluates every configured view
// in parallel. Results are sorted by view name.
func RunFromConfig(cfg *config.Config) (*output.JSONOutput, *ingestor.Dataset, error) {
	analysisStart := time.Now()
	jsonOutput := output.NewJSONOutput("summary", analysisStart)

	if cfg == nil {
		jsonOutput.AddError("config_error", "configuration is nil", 1)
		return jsonOutput, nil, fmt.Errorf("configuration is nil")
	}
	if cfg.Dataset == nil || cfg.Dataset.Path == "" {
		jsonOutput.AddError("config_error", "dataset path is missing", 1)
		return jsonOutput, nil, fmt.Errorf("dataset configuration section is missing")
	}

	ds, err := LoadDataset(cfg, jsonOutput)
	if err != nil {
		return jsonOutput, nil, err
	}

	views := cfg.Views
	if len(views) == 0 {
		jsonOutput.AddWarning("config_warning", "no views configured, using the default view", 1)
		views = map[string]*config.ViewConfig{config.DefaultViewName: config.NewDefaultView(config.DefaultViewName)}
	}

	jsonOutput.Views = evaluateViews(ds, views, jsonOutput)
	jsonOutput.UpdateDuration(analysisStart)
	return jsonOutput, ds, nil
}

// LoadDataset reads the configured dataset and records load statistics and
// data warnings in jsonOutput.
func LoadDataset(cfg *config.Config, jsonOutput *output.JSONOutput) (*ingestor.Dataset, error) {
	delimiter, err := cfg.Dataset.DelimiterRune()
	if err != nil {
		jsonOutput.AddError("config_error", err.Error(), 1)
		return nil, err
	}

	loadStart := time.Now()
	ds, err := ingestor.LoadFile(cfg.Dataset.Path, delimiter)
	loadDuration := time.Since(loadStart)
	if err != nil {
		jsonOutput.AddError("load_error", fmt.Sprintf("failed to load dataset %s: %v", cfg.Dataset.Path, err), 1)
		return nil, err
	}

	jsonOutput.SetDataset(ds, loadDuration)
	logging.L().Info("dataset loaded",
		zap.String("path", ds.Path),
		zap.Int("rows", ds.TotalRows),
		zap.Int("accepted", ds.Accepted()),
		zap.Int("rejected", ds.Rejected),
		zap.Duration("duration", loadDuration),
	)

	AddDatasetWarnings(ds, jsonOutput)
	return ds, nil
}

// AddDatasetWarnings reports rejected rows and missing optional columns.
func AddDatasetWarnings(ds *ingestor.Dataset, jsonOutput *output.JSONOutput) {
	if ds.Rejected > 0 {
		reasons := make([]string, 0, len(ds.RejectReasons))
		for reason := range ds.RejectReasons {
			reasons = append(reasons, reason)
		}
		sort.Strings(reasons)
		parts := make([]string, len(reasons))
		for i, reason := range reasons {
			parts[i] = fmt.Sprintf("%s: %d", reason, ds.RejectReasons[reason])
		}
		jsonOutput.AddWarning("rejected_rows",
			fmt.Sprintf("%d of %d rows rejected (%s)", ds.Rejected, ds.TotalRows, strings.Join(parts, ", ")),
			ds.Rejected)
		logging.L().Warn("rows rejected", zap.Int("rejected", ds.Rejected), zap.Any("reasons", ds.RejectReasons))
	}
	if len(ds.MissingOptional) > 0 {
		jsonOutput.AddWarning("missing_columns",
			fmt.Sprintf("missing optional columns: %s", strings.Join(ds.MissingOptional, ", ")),
			len(ds.MissingOptional))
	}
	if ds.Accepted() == 0 {
		jsonOutput.AddWarning("empty_dataset", "no valid listings found in dataset", 1)
	}
}

type viewWork struct {
	name string
	view *config.ViewConfig
}

func evaluateViews(ds *ingestor.Dataset, views map[string]*config.ViewConfig, jsonOutput *output.JSONOutput) []output.ViewResult {
	var wg sync.WaitGroup
	var resultsMutex sync.Mutex
	results := make([]output.ViewResult, 0, len(views))

	workChan := make(chan viewWork, len(views))

	numWorkers := runtime.NumCPU()
	if len(views) < numWorkers {
		numWorkers = len(views)
	}

	for i := 0; i < numWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			for work := range workChan {
				start := time.Now()
				m, err := EvaluateView(ds, work.view)
				if err != nil {
					jsonOutput.AddError("view_error", fmt.Sprintf("view %q: %v", work.name, err), 1)
					continue
				}
				if msg := navigationWarning(work.view, m.View.Nav); msg != "" {
					jsonOutput.AddWarning("navigation", fmt.Sprintf("view %q: %s", work.name, msg), 1)
				}
				elapsed := time.Since(start)
				logging.L().Debug("view evaluated",
					zap.String("view", work.name),
					zap.Int("filtered", m.Filtered),
					zap.Int("groups", len(m.Groups)),
					zap.Duration("duration", elapsed),
				)

				result := output.NewViewResult(work.name, m, elapsed)
				resultsMutex.Lock()
				results = append(results, result)
				resultsMutex.Unlock()
			}
		}()
	}

	for name, view := range views {
		workChan <- viewWork{name: name, view: view}
	}
	close(workChan)

	wg.Wait()

	sort.Slice(results, func(i, j int) bool {
		return results[i].Name < results[j].Name
	})
	return results
}

// EvaluateView runs the pipeline for one configured view. The country and
// city of the view are resolved against the groups that survive its filters.
func EvaluateView(ds *ingestor.Dataset, view *config.ViewConfig) (pipeline.RenderModel, error) {
	vs, err := view.ViewState(navigation.NewSet())
	if err != nil {
		return pipeline.RenderModel{}, err
	}
	m := pipeline.RunDataset(ds, vs)
	if view.Country == "" {
		return m, nil
	}

	vs, err = view.ViewState(m.Available)
	if err != nil {
		return pipeline.RenderModel{}, err
	}
	return pipeline.RunDataset(ds, vs), nil
}

func navigationWarning(view *config.ViewConfig, nav navigation.State) string {
	switch {
	case view.Country != "" && nav.Level == navigation.LevelWorld:
		return fmt.Sprintf("country %q has no listings after filtering, showing world", view.Country)
	case view.City != "" && nav.Level == navigation.LevelCountry:
		return fmt.Sprintf("city %q has no listings in %s after filtering, showing country", view.City, view.Country)
	}
	return ""
}
