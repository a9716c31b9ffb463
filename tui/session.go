package tui

import (
	"github.com/ChristianF88/realtyx/aggregate"
	"github.com/ChristianF88/realtyx/detail"
	"github.com/ChristianF88/realtyx/filter"
	"github.com/ChristianF88/realtyx/navigation"
	"github.com/ChristianF88/realtyx/pipeline"
)

// session holds the browser's ViewState and the last delivered model.
// Every command returns the next ViewState and whether it must be submitted.
type session struct {
	view  pipeline.ViewState
	model *pipeline.RenderModel
	// top is the detail size used when showAll is off.
	top     int
	showAll bool
}

func newSession(v pipeline.ViewState) *session {
	top := v.TopN
	if top <= 0 {
		top = pipeline.DefaultView().TopN
	}
	return &session{view: v, top: top, showAll: v.TopN == detail.All}
}

// accept stores m if it belongs to the current view.
func (s *session) accept(m pipeline.RenderModel) bool {
	if m.View.Fingerprint() != s.view.Fingerprint() {
		return false
	}
	s.model = &m
	return true
}

func (s *session) available() navigation.Available {
	if s.model == nil || s.model.Available == nil {
		return navigation.NewSet()
	}
	return s.model.Available
}

// drill selects the group named by key one level down.
func (s *session) drill(key aggregate.Key) (pipeline.ViewState, bool) {
	var (
		tr  navigation.Transition
		err error
	)
	switch s.view.Nav.Level {
	case navigation.LevelWorld:
		tr, err = navigation.SelectCountry(s.view.Nav, key.Country, s.available())
	case navigation.LevelCountry:
		tr, err = navigation.SelectCity(s.view.Nav, key.City, s.available())
	default:
		return s.view, false
	}
	if err != nil {
		return s.view, false
	}
	return s.move(tr)
}

func (s *session) back() (pipeline.ViewState, bool) {
	return s.move(navigation.Back(s.view.Nav))
}

func (s *session) reset() (pipeline.ViewState, bool) {
	tr := navigation.Reset(s.view.Nav)
	if !tr.Changed && s.view.Focus == (aggregate.Key{}) {
		return s.view, false
	}
	s.view.Nav = tr.To
	s.view.Focus = aggregate.Key{}
	return s.view, true
}

func (s *session) move(tr navigation.Transition) (pipeline.ViewState, bool) {
	if !tr.Changed {
		return s.view, false
	}
	s.view.Nav = tr.To
	s.view.Focus = aggregate.Key{}
	return s.view, true
}

// focus shows the detail of the highlighted group without drilling in.
func (s *session) focus(key aggregate.Key) (pipeline.ViewState, bool) {
	switch s.view.Nav.Level {
	case navigation.LevelWorld:
	case navigation.LevelCountry:
		if key.City == "" {
			return s.view, false
		}
	default:
		return s.view, false
	}
	if s.view.Focus == key {
		return s.view, false
	}
	s.view.Focus = key
	return s.view, true
}

func (s *session) toggleAll() pipeline.ViewState {
	s.showAll = !s.showAll
	if s.showAll {
		s.view.TopN = detail.All
	} else {
		s.view.TopN = s.top
	}
	return s.view
}

// applyFilters replaces the filter set. A different record set resets to World.
func (s *session) applyFilters(fs filter.FilterSet) (pipeline.ViewState, bool) {
	next := s.view
	next.Filter = fs
	next = pipeline.Apply(s.view, next)
	changed := next.Fingerprint() != s.view.Fingerprint()
	s.view = next
	return s.view, changed
}

// replace switches to a different named view.
func (s *session) replace(v pipeline.ViewState) pipeline.ViewState {
	*s = *newSession(v)
	return s.view
}
