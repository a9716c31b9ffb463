package navigation

import (
	"errors"
	"fmt"
)

// ErrInvalidTransition is returned when a transition is not allowed from the
// current state. The state is left unchanged.
var ErrInvalidTransition = errors.New("invalid navigation transition")

// Level is the drill-down depth of a State.
type Level int

const (
	LevelWorld Level = iota
	LevelCountry
	LevelCity
)

func (l Level) String() string {
	switch l {
	case LevelCountry:
		return "country"
	case LevelCity:
		return "city"
	default:
		return "world"
	}
}

// State is one of World, Country(c) or City(c, city). The zero value is World.
type State struct {
	Level   Level
	Country string
	City    string
}

// World is the initial state and the target of Reset.
func World() State { return State{} }

// Country returns the Country(c) state.
func Country(c string) State { return State{Level: LevelCountry, Country: c} }

// City returns the City(c, city) state.
func City(c, city string) State { return State{Level: LevelCity, Country: c, City: city} }

func (s State) String() string {
	switch s.Level {
	case LevelCountry:
		return fmt.Sprintf("Country(%s)", s.Country)
	case LevelCity:
		return fmt.Sprintf("City(%s, %s)", s.Country, s.City)
	default:
		return "World"
	}
}

// BackEnabled reports whether Back would change the state.
func (s State) BackEnabled() bool {
	return s.Level != LevelWorld
}

// Transition describes the effect of a navigation command.
// Callers drop cached scales and detail output when Changed is set.
type Transition struct {
	From    State
	To      State
	Changed bool
}

func moved(from, to State) Transition {
	return Transition{From: from, To: to, Changed: from != to}
}

func stay(s State) Transition {
	return Transition{From: s, To: s}
}

// Available answers which drill-down targets currently have groups.
type Available interface {
	HasCountry(country string) bool
	HasCity(country, city string) bool
}

// SelectCountry drills from World into country. Selecting a country without
// groups, or an empty name, is a no-op. It is invalid from any other state.
func SelectCountry(s State, country string, avail Available) (Transition, error) {
	if s.Level != LevelWorld {
		return stay(s), fmt.Errorf("select country %q from %s: %w", country, s, ErrInvalidTransition)
	}
	if country == "" || avail == nil || !avail.HasCountry(country) {
		return stay(s), nil
	}
	return moved(s, Country(country)), nil
}

// SelectCity drills from Country(c) into City(c, city), if that group exists.
func SelectCity(s State, city string, avail Available) (Transition, error) {
	if s.Level != LevelCountry {
		return stay(s), fmt.Errorf("select city %q from %s: %w", city, s, ErrInvalidTransition)
	}
	if city == "" || avail == nil || !avail.HasCity(s.Country, city) {
		return stay(s), fmt.Errorf("select city %q in %s: %w", city, s.Country, ErrInvalidTransition)
	}
	return moved(s, City(s.Country, city)), nil
}

// Back goes City -> Country -> World. It is a no-op at World.
func Back(s State) Transition {
	switch s.Level {
	case LevelCity:
		return moved(s, Country(s.Country))
	case LevelCountry:
		return moved(s, World())
	default:
		return stay(s)
	}
}

// Reset returns to World.
func Reset(s State) Transition {
	return moved(s, World())
}

// OnFilterChange resets to World when the filter fingerprint changed.
func OnFilterChange(s State, oldFingerprint, newFingerprint string) Transition {
	if oldFingerprint == newFingerprint {
		return stay(s)
	}
	return Reset(s)
}

// Set is an Available built from explicit (country, city) pairs.
type Set struct {
	countries map[string]map[string]struct{}
}

// NewSet returns an empty Set.
func NewSet() *Set {
	return &Set{countries: make(map[string]map[string]struct{})}
}

// Add registers country and, when non-empty, city.
func (a *Set) Add(country, city string) {
	cities, ok := a.countries[country]
	if !ok {
		cities = make(map[string]struct{})
		a.countries[country] = cities
	}
	if city != "" {
		cities[city] = struct{}{}
	}
}

func (a *Set) HasCountry(country string) bool {
	_, ok := a.countries[country]
	return ok
}

func (a *Set) HasCity(country, city string) bool {
	cities, ok := a.countries[country]
	if !ok {
		return false
	}
	_, ok = cities[city]
	return ok
}
