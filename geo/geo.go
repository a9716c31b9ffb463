package geo

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/biter777/countries"
	"github.com/paulmach/orb"
	orbgeo "github.com/paulmach/orb/geo"
)

// Canonicalizer maps free-form country names to the names used by the
// world map renderer.
type Canonicalizer struct {
	aliases map[string]string
}

// NewCanonicalizer returns a Canonicalizer that consults aliases before the
// ISO country table. Alias keys are matched case-insensitively.
func NewCanonicalizer(aliases map[string]string) *Canonicalizer {
	c := &Canonicalizer{aliases: make(map[string]string, len(aliases))}
	for k, v := range aliases {
		c.aliases[strings.ToLower(strings.TrimSpace(k))] = strings.TrimSpace(v)
	}
	return c
}

// Canonical resolves name via the alias table, then the ISO country table,
// and finally returns the trimmed input.
func (c *Canonicalizer) Canonical(name string) string {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return ""
	}
	if c != nil {
		if v, ok := c.aliases[strings.ToLower(trimmed)]; ok && v != "" {
			return v
		}
	}
	if code := countries.ByName(trimmed); code != countries.Unknown && code.IsValid() {
		return code.String()
	}
	return trimmed
}

// CanonicalCountry is Canonical with a one-off alias table.
func CanonicalCountry(name string, aliases map[string]string) string {
	return NewCanonicalizer(aliases).Canonical(name)
}

type cityKey struct {
	country string
	city    string
}

// Locations is a (country, city) -> point table. Points are (lon, lat).
type Locations struct {
	points    map[cityKey]orb.Point
	byCountry map[string]orb.MultiPoint
}

// NewLocations returns an empty table.
func NewLocations() *Locations {
	return &Locations{
		points:    make(map[cityKey]orb.Point),
		byCountry: make(map[string]orb.MultiPoint),
	}
}

// Add registers the coordinates of a city.
func (l *Locations) Add(country, city string, lat, lon float64) {
	k := cityKey{norm(country), norm(city)}
	p := orb.Point{lon, lat}
	if _, dup := l.points[k]; !dup {
		l.byCountry[k.country] = append(l.byCountry[k.country], p)
	}
	l.points[k] = p
}

// Len returns the number of cities.
func (l *Locations) Len() int {
	return len(l.points)
}

// Point returns the coordinates of a city.
func (l *Locations) Point(country, city string) (orb.Point, bool) {
	p, ok := l.points[cityKey{norm(country), norm(city)}]
	return p, ok
}

// Centroid returns the center of the bounding box of a country's cities.
func (l *Locations) Centroid(country string) (orb.Point, bool) {
	mp, ok := l.byCountry[norm(country)]
	if !ok || len(mp) == 0 {
		return orb.Point{}, false
	}
	return mp.Bound().Center(), true
}

// SpreadKm is the largest distance between a country's centroid and one of its cities.
func (l *Locations) SpreadKm(country string) float64 {
	c, ok := l.Centroid(country)
	if !ok {
		return 0
	}
	var maxM float64
	for _, p := range l.byCountry[norm(country)] {
		maxM = max(maxM, orbgeo.Distance(c, p))
	}
	return maxM / 1000
}

func norm(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// LoadLocations reads a city,country,lat,lon CSV with a header row.
// Rows with unparsable coordinates are skipped.
func LoadLocations(path string) (*Locations, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open city coordinates: %w", err)
	}
	defer f.Close()
	return ReadLocations(f)
}

// ReadLocations parses the CSV form described in LoadLocations.
func ReadLocations(r io.Reader) (*Locations, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("city coordinates: empty file")
		}
		return nil, fmt.Errorf("city coordinates header: %w", err)
	}
	col := map[string]int{"city": -1, "country": -1, "lat": -1, "lon": -1}
	for i, h := range header {
		h = strings.ToLower(strings.TrimSpace(h))
		if _, ok := col[h]; ok {
			col[h] = i
		}
	}
	for name, i := range col {
		if i < 0 {
			return nil, fmt.Errorf("city coordinates: missing column %q", name)
		}
	}

	locs := NewLocations()
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("city coordinates: %w", err)
		}
		get := func(name string) string {
			if i := col[name]; i < len(row) {
				return strings.TrimSpace(row[i])
			}
			return ""
		}
		lat, err1 := strconv.ParseFloat(get("lat"), 64)
		lon, err2 := strconv.ParseFloat(get("lon"), 64)
		if err1 != nil || err2 != nil || get("city") == "" {
			continue
		}
		locs.Add(get("country"), get("city"), lat, lon)
	}
	return locs, nil
}
