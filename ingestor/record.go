package ingestor

import "math"

// SqftToSqm converts square feet to square metres.
const SqftToSqm = 0.092903

// Decision is the optional purchase decision flag of a listing.
type Decision int8

const (
	DecisionUnknown Decision = -1
	DecisionNo      Decision = 0
	DecisionYes     Decision = 1
)

// Record is one normalized property listing.
// Optional numeric fields hold NaN when the column is missing or unparsable.
type Record struct {
	ID       int
	Country  string
	City     string
	Type     string
	Size     float64 // m²
	Price    float64
	Year     int
	Rooms    float64
	Baths    float64
	Furnish  string
	Decision Decision

	Neighbourhood float64
	Connectivity  float64
	Satisfaction  float64
	Crime         float64
	LegalCases    float64
	EMIRatio      float64

	PricePerArea float64
}

// Valid reports whether the record can take part in aggregation.
func (r *Record) Valid() bool {
	return isFinite(r.Price) && isFinite(r.Size) && r.Size > 0
}

// derive fills the fields computed from the raw ones.
func (r *Record) derive() {
	r.PricePerArea = r.Price / math.Max(1, r.Size)
}

// NewRecord builds a derived Record with every optional numeric field unset.
func NewRecord(id int, country, city string, price, size float64) Record {
	nan := math.NaN()
	r := Record{
		ID:            id,
		Country:       country,
		City:          city,
		Price:         price,
		Size:          size,
		Decision:      DecisionUnknown,
		Rooms:         nan,
		Baths:         nan,
		Neighbourhood: nan,
		Connectivity:  nan,
		Satisfaction:  nan,
		Crime:         nan,
		LegalCases:    nan,
		EMIRatio:      nan,
	}
	r.derive()
	return r
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// Dataset is the result of loading one input file.
type Dataset struct {
	Path      string
	Delimiter rune
	Records   []Record
	TotalRows int
	Rejected  int
	// RejectReasons counts rejected rows per reason.
	RejectReasons map[string]int
	// MissingOptional lists optional logical columns absent from the header.
	MissingOptional []string
}

// Accepted returns the number of valid records.
func (d *Dataset) Accepted() int {
	return len(d.Records)
}
