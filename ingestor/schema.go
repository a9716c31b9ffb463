package ingestor

import (
	"fmt"
	"strings"
)

// Field is a logical column of the listing dataset.
type Field int

const (
	FieldID Field = iota
	FieldCountry
	FieldCity
	FieldType
	FieldPrice
	FieldSizeSqm
	FieldSizeSqft
	FieldYear
	FieldRooms
	FieldBaths
	FieldFurnish
	FieldDecision
	FieldNeighbourhood
	FieldConnectivity
	FieldSatisfaction
	FieldCrime
	FieldLegalCases
	FieldEMIRatio
	numFields
)

var fieldNames = [numFields]string{
	"id", "country", "city", "property_type", "price", "size_m2", "size_sqft",
	"constructed_year", "rooms", "bathrooms", "furnishing_status", "decision",
	"neighbourhood_rating", "connectivity_score", "satisfaction_score",
	"crime_cases_reported", "legal_cases_on_property", "emi_to_income_ratio",
}

func (f Field) String() string {
	if f < 0 || f >= numFields {
		return fmt.Sprintf("field(%d)", int(f))
	}
	return fieldNames[f]
}

// Aliases lists the accepted raw column names per logical field, in priority order.
// Matching is case-sensitive; the first alias present in the header wins.
var Aliases = map[Field][]string{
	FieldID:            {"property_id", "id", "Id"},
	FieldCountry:       {"country", "Country"},
	FieldCity:          {"city", "City"},
	FieldType:          {"property_type", "type", "Type"},
	FieldPrice:         {"price", "Price", "amount", "Amount"},
	FieldSizeSqm:       {"property_size_m2", "size_m2", "m2"},
	FieldSizeSqft:      {"property_size_sqft", "size_sqft", "Size_sqft", "sqft"},
	FieldYear:          {"constructed_year", "construction_year", "year_built", "Year"},
	FieldRooms:         {"rooms", "Rooms"},
	FieldBaths:         {"bathrooms", "Bathrooms"},
	FieldFurnish:       {"furnishing_status"},
	FieldDecision:      {"decision", "Decision"},
	FieldNeighbourhood: {"neighbourhood_rating", "neighborhood_rating"},
	FieldConnectivity:  {"connectivity_score"},
	FieldSatisfaction:  {"satisfaction_score"},
	FieldCrime:         {"crime_cases_reported"},
	FieldLegalCases:    {"legal_cases_on_property"},
	FieldEMIRatio:      {"emi_to_income_ratio"},
}

// optionalFields are reported when missing but never block a load.
var optionalFields = []Field{
	FieldType, FieldYear, FieldRooms, FieldBaths, FieldFurnish, FieldDecision,
	FieldNeighbourhood, FieldConnectivity, FieldSatisfaction,
	FieldCrime, FieldLegalCases, FieldEMIRatio,
}

// Schema maps every logical field to a column index, -1 when absent.
type Schema struct {
	index [numFields]int
}

// ResolveSchema builds a Schema from a header row.
// Country, city, price and one of the size columns are required.
func ResolveSchema(header []string) (*Schema, error) {
	pos := make(map[string]int, len(header))
	for i, h := range header {
		h = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		if _, dup := pos[h]; !dup {
			pos[h] = i
		}
	}

	s := &Schema{}
	for f := Field(0); f < numFields; f++ {
		s.index[f] = -1
		for _, alias := range Aliases[f] {
			if i, ok := pos[alias]; ok {
				s.index[f] = i
				break
			}
		}
	}

	var missing []string
	for _, f := range []Field{FieldCountry, FieldCity, FieldPrice} {
		if !s.Has(f) {
			missing = append(missing, f.String())
		}
	}
	if !s.Has(FieldSizeSqm) && !s.Has(FieldSizeSqft) {
		missing = append(missing, "size_m2|size_sqft")
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing required columns: %s", strings.Join(missing, ", "))
	}
	return s, nil
}

// Has reports whether the field was found in the header.
func (s *Schema) Has(f Field) bool {
	return s.index[f] >= 0
}

// Index returns the column index of f, or -1.
func (s *Schema) Index(f Field) int {
	return s.index[f]
}

// MissingOptional returns the optional fields absent from the header.
func (s *Schema) MissingOptional() []string {
	var out []string
	for _, f := range optionalFields {
		if !s.Has(f) {
			out = append(out, f.String())
		}
	}
	return out
}

// value returns the trimmed cell of f in row, or "" when absent.
func (s *Schema) value(row []string, f Field) string {
	i := s.index[f]
	if i < 0 || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}
