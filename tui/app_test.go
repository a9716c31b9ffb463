package tui

import (
	"strings"
	"testing"

	"github.com/gdamore/tcell/v2"

	"github.com/ChristianF88/realtyx/config"
	"github.com/ChristianF88/realtyx/ingestor"
)

func runeKey(r rune) *tcell.EventKey {
	return tcell.NewEventKey(tcell.KeyRune, r, tcell.ModNone)
}

func TestNewApp_ViewNames(t *testing.T) {
	a := NewApp(&config.Config{
		Dataset: &config.DatasetConfig{Path: "listings.csv"},
		Views: map[string]*config.ViewConfig{
			"paris": {Name: "paris"},
			"cheap": {Name: "cheap"},
		},
	}, nil)
	if got := strings.Join(a.viewNames, ","); got != "cheap,paris" {
		t.Errorf("viewNames = %s, want cheap,paris", got)
	}
	if a.datasetPath != "listings.csv" {
		t.Errorf("datasetPath = %q", a.datasetPath)
	}

	a = NewApp(nil, nil)
	if len(a.viewNames) != 1 || a.viewNames[0] != config.DefaultViewName {
		t.Errorf("viewNames = %v, want only the default view", a.viewNames)
	}
}

func TestHandleKey_BeforeLoad(t *testing.T) {
	a := NewApp(nil, nil)
	if ev := a.handleKey(runeKey('f')); ev != nil {
		t.Error("keys other than quit should be swallowed before the dataset is loaded")
	}
	if front, _ := a.pages.GetFrontPage(); front != pageProgress {
		t.Errorf("front page = %s, want %s", front, pageProgress)
	}
}

func TestShowError_DisablesInteraction(t *testing.T) {
	a := NewApp(nil, nil)
	a.setDataset(&ingestor.Dataset{Records: testRecords()})
	a.failed.Store(true)
	a.showError("failed to load dataset: boom")

	if front, _ := a.pages.GetFrontPage(); front != pageError {
		t.Errorf("front page = %s, want %s", front, pageError)
	}
	if text := a.errorView.GetText(true); !strings.Contains(text, "boom") {
		t.Errorf("error text = %q", text)
	}
	if ev := a.handleKey(runeKey('f')); ev != nil {
		t.Error("keys should be swallowed after a load failure")
	}
	if front, _ := a.pages.GetFrontPage(); front != pageError {
		t.Errorf("front page after 'f' = %s, want %s", front, pageError)
	}
}

func TestHandleKey_FilterForm(t *testing.T) {
	a := NewApp(nil, nil)
	a.setDataset(&ingestor.Dataset{Records: testRecords()})
	a.pages.SwitchToPage(pageBrowse)

	if ev := a.handleKey(runeKey('b')); ev != nil {
		t.Error("'b' should be handled")
	}
	if ev := a.handleKey(runeKey('x')); ev == nil {
		t.Error("unbound keys should pass through")
	}

	a.handleKey(runeKey('f'))
	if front, _ := a.pages.GetFrontPage(); front != pageFilters {
		t.Fatalf("front page = %s, want %s", front, pageFilters)
	}
	// Typing into the form must not trigger browser bindings.
	if ev := a.handleKey(runeKey('q')); ev == nil {
		t.Error("keys should reach the filter form")
	}
}
