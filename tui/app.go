package tui

import (
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
	"go.uber.org/zap"

	"github.com/ChristianF88/realtyx/aggregate"
	"github.com/ChristianF88/realtyx/analysis"
	"github.com/ChristianF88/realtyx/config"
	"github.com/ChristianF88/realtyx/filter"
	"github.com/ChristianF88/realtyx/ingestor"
	"github.com/ChristianF88/realtyx/logging"
	"github.com/ChristianF88/realtyx/navigation"
	"github.com/ChristianF88/realtyx/pipeline"
)

const (
	pageProgress = "progress"
	pageBrowse   = "browse"
	pageFilters  = "filters"
	pageError    = "error"
)

// App is the interactive listing browser.
type App struct {
	app          *tview.Application
	pages        *tview.Pages
	progressView *tview.TextView
	errorView    *tview.TextView
	groups       *tview.List
	summary      *tview.TextView
	detail       *tview.TextView
	legend       *tview.TextView
	statusBar    *tview.TextView

	logger *zap.Logger

	// Named views cycled with 't' (immutable after construction)
	viewNames   []string
	views       map[string]*config.ViewConfig
	datasetPath string

	// Set once by the loader before loaded is stored
	ds     *ingestor.Dataset
	engine *pipeline.Engine

	// Shared mutable state protected by mu (accessed from engine goroutines)
	mu        sync.Mutex
	sess      *session
	viewIndex int
	keys      []aggregate.Key
	notice    string

	// Atomic flags for cross-goroutine signaling
	loaded        atomic.Bool
	failed        atomic.Bool
	switchingView atomic.Bool
	populating    atomic.Bool
}

// NewApp creates the browser for the views of cfg. A config without views
// browses the default view.
func NewApp(cfg *config.Config, logger *zap.Logger) *App {
	if logger == nil {
		logger = logging.L()
	}
	a := &App{
		app:    tview.NewApplication(),
		pages:  tview.NewPages(),
		logger: logger,
		views:  make(map[string]*config.ViewConfig),
		sess:   newSession(pipeline.DefaultView()),
	}

	if cfg != nil {
		for name, v := range cfg.Views {
			a.views[name] = v
		}
		if cfg.Dataset != nil {
			a.datasetPath = cfg.Dataset.Path
		}
	}
	if len(a.views) == 0 {
		a.views[config.DefaultViewName] = config.NewDefaultView(config.DefaultViewName)
	}
	a.viewNames = (&config.Config{Views: a.views}).ViewNames()

	a.setupUI()
	return a
}

// Run shows the progress page while load runs, then starts browsing.
// A load error is terminal: the error page stays until the user quits.
func (a *App) Run(load func() (*ingestor.Dataset, error)) error {
	go a.animateProgress()
	go a.start(load)
	return a.app.Run()
}

func (a *App) start(load func() (*ingestor.Dataset, error)) {
	ds, err := load()
	if err != nil {
		a.logger.Error("dataset load failed", zap.Error(err))
		a.ShowError(err.Error())
		return
	}
	a.setDataset(ds)

	a.app.QueueUpdateDraw(func() {
		a.pages.SwitchToPage(pageBrowse)
		a.app.SetFocus(a.groups)
		a.render()
	})
	a.switchView(0)
}

func (a *App) setDataset(ds *ingestor.Dataset) {
	a.ds = ds
	a.engine = pipeline.NewEngine(ds, a.deliver, a.logger)
	a.loaded.Store(true)
}

// ShowError replaces every page with a terminal error message.
func (a *App) ShowError(message string) {
	a.failed.Store(true)
	a.app.QueueUpdateDraw(func() {
		a.showError(message)
	})
}

func (a *App) showError(message string) {
	a.errorView.SetText(fmt.Sprintf("[red]Error:[white] %s\n\n[yellow]Press 'q' to quit[white]", message))
	a.statusBar.SetText("[red]Loading failed![white] | Press 'q' to quit")
	a.pages.SwitchToPage(pageError)
}

// setupUI initializes the user interface
func (a *App) setupUI() {
	a.progressView = tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(false).
		SetWrap(false)
	a.progressView.SetBorder(true).SetTitle(" realtyx ").SetTitleAlign(tview.AlignCenter)

	a.errorView = tview.NewTextView().
		SetDynamicColors(true).
		SetWrap(true)
	a.errorView.SetBorder(true).SetTitle(" realtyx ").SetTitleAlign(tview.AlignCenter)

	a.statusBar = tview.NewTextView().
		SetDynamicColors(true).
		SetText("[yellow]Loading dataset...[white] | Press 'q' to quit")
	a.statusBar.SetBorder(false)

	a.groups = tview.NewList().
		ShowSecondaryText(false).
		SetHighlightFullLine(true)
	a.groups.SetBorder(true).SetTitle(" World ").SetTitleAlign(tview.AlignLeft)
	a.groups.SetSelectedFunc(func(index int, _, _ string, _ rune) {
		a.onSelect(index)
	})
	a.groups.SetChangedFunc(func(index int, _, _ string, _ rune) {
		a.onHighlight(index)
	})

	a.summary = tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(false)
	a.summary.SetBorder(true).SetTitle(" Summary ").SetTitleAlign(tview.AlignLeft)

	a.detail = tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(true)
	a.detail.SetBorder(true).SetTitle(" Detail ").SetTitleAlign(tview.AlignLeft)

	a.legend = tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(false)
	a.legend.SetBorder(true).SetTitle(" Score Scale ").SetTitleAlign(tview.AlignLeft)

	right := tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(a.detail, 0, 1, false).
		AddItem(a.legend, 5, 0, false)
	body := tview.NewFlex().SetDirection(tview.FlexColumn).
		AddItem(a.groups, 0, 1, true).
		AddItem(right, 0, 1, false)
	browse := tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(a.summary, 6, 0, false).
		AddItem(body, 0, 1, true).
		AddItem(a.statusBar, 1, 0, false)

	progress := tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(a.progressView, 0, 1, true).
		AddItem(a.statusBar, 1, 0, false)

	failure := tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(a.errorView, 0, 1, true).
		AddItem(a.statusBar, 1, 0, false)

	a.pages.AddPage(pageProgress, progress, true, true)
	a.pages.AddPage(pageBrowse, browse, true, false)
	a.pages.AddPage(pageError, failure, true, false)

	a.app.SetInputCapture(a.handleKey)
	a.app.SetRoot(a.pages, true)
}

// handleKey implements the global key bindings. Keys reach the filter form
// untouched while it is open.
func (a *App) handleKey(event *tcell.EventKey) *tcell.EventKey {
	if a.failed.Load() || !a.loaded.Load() {
		if event.Rune() == 'q' || event.Rune() == 'Q' {
			a.app.Stop()
		}
		return nil
	}

	if front, _ := a.pages.GetFrontPage(); front != pageBrowse {
		return event
	}

	switch event.Key() {
	case tcell.KeyBackspace, tcell.KeyBackspace2:
		a.apply(a.sess.back)
		return nil
	}

	switch event.Rune() {
	case 'q', 'Q':
		a.app.Stop()
		return nil
	case 'b', 'B':
		a.apply(a.sess.back)
		return nil
	case 'h', 'H':
		a.apply(a.sess.reset)
		return nil
	case 'a', 'A':
		a.apply(func() (pipeline.ViewState, bool) { return a.sess.toggleAll(), true })
		return nil
	case 't', 'T':
		if len(a.viewNames) > 1 {
			a.nextView()
		}
		return nil
	case 'f', 'F':
		a.showFilters()
		return nil
	}
	return event
}

// apply runs a session command and submits the resulting view if it changed.
func (a *App) apply(cmd func() (pipeline.ViewState, bool)) {
	a.mu.Lock()
	vs, changed := cmd()
	a.mu.Unlock()
	if changed {
		a.submit(vs)
	}
}

func (a *App) submit(vs pipeline.ViewState) {
	seq := a.engine.Submit(vs)
	a.logger.Debug("view submitted", zap.Uint64("seq", seq), zap.Stringer("nav", vs.Nav))
	a.statusBar.SetText(a.status("[yellow]computing...[white]"))
}

// deliver receives engine results. It runs on engine goroutines and hands the
// model to the UI goroutine without waiting for it.
func (a *App) deliver(m pipeline.RenderModel) {
	go a.app.QueueUpdateDraw(func() {
		a.mu.Lock()
		ok := a.sess.accept(m)
		a.mu.Unlock()
		if !ok {
			a.logger.Debug("superseded model dropped", zap.Uint64("seq", m.Seq))
			return
		}
		a.render()
	})
}

func (a *App) onSelect(index int) {
	key, ok := a.keyAt(index)
	if !ok {
		return
	}
	a.apply(func() (pipeline.ViewState, bool) { return a.sess.drill(key) })
}

func (a *App) onHighlight(index int) {
	if a.populating.Load() {
		return
	}
	key, ok := a.keyAt(index)
	if !ok {
		return
	}
	a.apply(func() (pipeline.ViewState, bool) { return a.sess.focus(key) })
}

func (a *App) keyAt(index int) (aggregate.Key, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if index < 0 || index >= len(a.keys) {
		return aggregate.Key{}, false
	}
	return a.keys[index], true
}

// nextView cycles to the next named view in config mode
func (a *App) nextView() {
	if !a.switchingView.CompareAndSwap(false, true) {
		return
	}
	a.mu.Lock()
	next := (a.viewIndex + 1) % len(a.viewNames)
	a.mu.Unlock()
	a.switchView(next)
}

// switchView resolves the named view against the dataset and submits it.
func (a *App) switchView(index int) {
	a.switchingView.Store(true)
	name := a.viewNames[index]
	view := a.views[name]
	go func() {
		defer a.switchingView.Store(false)
		m, err := analysis.EvaluateView(a.ds, view)
		if err != nil {
			a.logger.Warn("view rejected", zap.String("view", name), zap.Error(err))
			a.app.QueueUpdateDraw(func() {
				a.setNotice(fmt.Sprintf("[red]view %s: %v[white]", name, err))
			})
			return
		}

		a.mu.Lock()
		a.viewIndex = index
		a.notice = ""
		vs := a.sess.replace(m.View)
		a.mu.Unlock()
		a.engine.Submit(vs)
	}()
}

func (a *App) showFilters() {
	a.mu.Lock()
	current := a.sess.view.Filter
	a.mu.Unlock()

	closeForm := func() {
		a.pages.RemovePage(pageFilters)
		a.app.SetFocus(a.groups)
	}
	form := newFilterForm(current,
		func(fs filter.FilterSet) {
			closeForm()
			a.apply(func() (pipeline.ViewState, bool) { return a.sess.applyFilters(fs) })
		},
		closeForm,
		func(ignored []string) {
			a.setNotice("[yellow]ignored invalid " + tview.Escape(strings.Join(ignored, ", ")) + "[white]")
		},
	)

	centered := tview.NewFlex().
		AddItem(nil, 0, 1, false).
		AddItem(tview.NewFlex().SetDirection(tview.FlexRow).
			AddItem(nil, 0, 1, false).
			AddItem(form, 29, 0, true).
			AddItem(a.statusBar, 1, 0, false).
			AddItem(nil, 0, 1, false), 50, 0, true).
		AddItem(nil, 0, 1, false)
	a.pages.AddPage(pageFilters, centered, true, true)
	a.app.SetFocus(form)
}

func (a *App) setNotice(notice string) {
	a.mu.Lock()
	a.notice = notice
	a.mu.Unlock()
	a.statusBar.SetText(a.status(""))
}

// render redraws every panel from the current session. It must run on
// the UI goroutine.
func (a *App) render() {
	a.mu.Lock()
	m := a.sess.model
	name := a.viewNames[a.viewIndex]
	focus := a.sess.view.Focus
	var keys []aggregate.Key
	if m != nil {
		keys = make([]aggregate.Key, len(m.Groups))
		for i, g := range m.Groups {
			keys[i] = g.Group.Key
		}
	}
	a.keys = keys
	a.mu.Unlock()

	a.summary.SetText(summaryText(a.ds, name, m))
	if m == nil {
		a.statusBar.SetText(a.status("[yellow]computing...[white]"))
		return
	}

	a.populating.Store(true)
	current := a.groups.GetCurrentItem()
	a.groups.Clear()
	depthCity := m.Depth == aggregate.DepthCity
	for _, g := range m.Groups {
		a.groups.AddItem(groupLabel(g, depthCity), "", 0, nil)
	}
	for i, k := range keys {
		if k == focus {
			current = i
		}
	}
	if current >= 0 && current < len(keys) {
		a.groups.SetCurrentItem(current)
	}
	a.populating.Store(false)
	a.groups.SetTitle(" " + breadcrumb(m.View.Nav) + " ")

	a.detail.SetText(detailText(m)).ScrollToBeginning()
	a.legend.SetText(legendText(m.Legend))
	a.statusBar.SetText(a.status(""))
}

// status builds the status bar line.
func (a *App) status(extra string) string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return statusText(a.viewNames[a.viewIndex], a.viewIndex, len(a.viewNames), a.sess, a.notice, extra)
}

func statusText(viewName string, index, total int, s *session, notice, extra string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[green]%s[white]", viewName)
	if total > 1 {
		fmt.Fprintf(&b, " (%d/%d)", index+1, total)
	}
	if extra != "" {
		b.WriteString(" | " + extra)
	}
	if notice != "" {
		b.WriteString(" | " + notice)
	}

	var keys []string
	if s.view.Nav.Level != navigation.LevelCity {
		keys = append(keys, "Enter: drill in")
	}
	if s.view.Nav.BackEnabled() {
		keys = append(keys, "b: back", "h: world")
	}
	if total > 1 {
		keys = append(keys, "t: next view")
	}
	if s.showAll {
		keys = append(keys, "a: top listings")
	} else {
		keys = append(keys, "a: all listings")
	}
	keys = append(keys, "f: filters", "q: quit")
	b.WriteString(" | " + strings.Join(keys, ", "))
	return b.String()
}

// animateProgress shows a progress animation while the dataset loads
func (a *App) animateProgress() {
	stages := []string{
		"[yellow]▶[white] Reading dataset...",
		"[blue]▶[white] Resolving columns...",
		"[cyan]▶[white] Normalizing listings...",
		"[green]▶[white] Preparing views...",
	}

	stageIndex := 0
	dots := 0

	for !a.loaded.Load() && !a.failed.Load() {
		stage := stages[stageIndex%len(stages)]
		dotStr := strings.Repeat(".", dots%4)

		content := fmt.Sprintf(`
[white::b]realtyx Listing Browser[white::-]

%s%s

[dim]Dataset:[white] %s
[dim]Views:[white] %d

[dim]Press 'q' to quit[white]
`, stage, dotStr, a.datasetPath, len(a.viewNames))

		a.app.QueueUpdateDraw(func() {
			a.progressView.SetText(content)
		})

		time.Sleep(200 * time.Millisecond)
		dots++

		if dots%20 == 0 {
			stageIndex++
		}
	}
}
