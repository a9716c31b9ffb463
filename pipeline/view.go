package pipeline

import (
	"fmt"
	"strings"

	"github.com/ChristianF88/realtyx/aggregate"
	"github.com/ChristianF88/realtyx/filter"
	"github.com/ChristianF88/realtyx/navigation"
	"github.com/ChristianF88/realtyx/scale"
)

// ViewState is everything a render depends on besides the records.
// It is owned by the caller and passed by value.
type ViewState struct {
	Filter  filter.FilterSet
	Weights aggregate.Weights
	Mode    aggregate.Mode
	Nav     navigation.State
	// TopN limits the detail table; detail.All (0) shows every member.
	TopN int
	// Focus selects the detail group. The zero Key means the current node.
	Focus aggregate.Key
	Sizes scale.SizeRange
}

// DefaultView is the initial state of an interactive session.
func DefaultView() ViewState {
	return ViewState{
		Mode:  aggregate.ModePPSQM,
		Nav:   navigation.World(),
		TopN:  10,
		Sizes: scale.DefaultSizeRange,
	}
}

// Fingerprint identifies the render output of v for a fixed dataset.
func (v ViewState) Fingerprint() string {
	var b strings.Builder
	b.WriteString(v.scope())
	fmt.Fprintf(&b, "|nav=%s:%q/%q|top=%d|focus=%q/%q|px=%g-%g",
		v.Nav.Level, v.Nav.Country, v.Nav.City, v.TopN,
		v.Focus.Country, v.Focus.City, v.Sizes.MinPx, v.Sizes.MaxPx)
	return b.String()
}

// scope covers the parts of v that decide the filtered and scored records.
// Views sharing a scope differ only in navigation and presentation.
func (v ViewState) scope() string {
	w := v.Weights.Normalize()
	return fmt.Sprintf("f{%s}|w{%g,%g,%g}|m=%s",
		v.Filter.Fingerprint(),
		w.Neighbourhood, w.Connectivity, w.Satisfaction, v.Mode)
}

// Apply returns next, with navigation reset to World and focus cleared when
// its filters select a different record set than prev.
func Apply(prev, next ViewState) ViewState {
	oldFP, newFP := prev.Filter.Fingerprint(), next.Filter.Fingerprint()
	if oldFP != newFP {
		next.Nav = navigation.OnFilterChange(next.Nav, oldFP, newFP).To
		next.Focus = aggregate.Key{}
	}
	return next
}
