package ingestor

import (
	"errors"
	"math"
	"strconv"
	"strings"
)

// ErrRejected marks a row that could not be turned into a valid Record.
var ErrRejected = errors.New("record rejected")

// Reject reasons, used as keys of Dataset.RejectReasons.
const (
	ReasonPrice    = "invalid price"
	ReasonSize     = "invalid size"
	ReasonLocation = "empty country or city"
)

// RejectedError carries the reason a row was rejected. It matches ErrRejected.
type RejectedError struct {
	Row    int
	Reason string
}

func (e *RejectedError) Error() string {
	return "row " + strconv.Itoa(e.Row) + ": " + e.Reason
}

func (e *RejectedError) Unwrap() error {
	return ErrRejected
}

// Normalize converts one raw row into a Record. rowNum is 1-based and is used
// as the identifier when the id column is missing or unparsable.
func (s *Schema) Normalize(row []string, rowNum int) (Record, error) {
	rec := Record{
		ID:       rowNum,
		Country:  s.value(row, FieldCountry),
		City:     s.value(row, FieldCity),
		Type:     s.value(row, FieldType),
		Furnish:  s.value(row, FieldFurnish),
		Price:    parseFloat(s.value(row, FieldPrice)),
		Year:     parseInt(s.value(row, FieldYear)),
		Decision: parseDecision(s.value(row, FieldDecision)),

		Rooms:         parseFloat(s.value(row, FieldRooms)),
		Baths:         parseFloat(s.value(row, FieldBaths)),
		Neighbourhood: parseFloat(s.value(row, FieldNeighbourhood)),
		Connectivity:  parseFloat(s.value(row, FieldConnectivity)),
		Satisfaction:  parseFloat(s.value(row, FieldSatisfaction)),
		Crime:         parseFloat(s.value(row, FieldCrime)),
		LegalCases:    parseFloat(s.value(row, FieldLegalCases)),
		EMIRatio:      parseFloat(s.value(row, FieldEMIRatio)),
	}

	if id, err := strconv.Atoi(s.value(row, FieldID)); err == nil {
		rec.ID = id
	}

	if s.Has(FieldSizeSqm) {
		rec.Size = parseFloat(s.value(row, FieldSizeSqm))
	} else {
		rec.Size = parseFloat(s.value(row, FieldSizeSqft)) * SqftToSqm
	}

	switch {
	case rec.Country == "" || rec.City == "":
		return Record{}, &RejectedError{Row: rowNum, Reason: ReasonLocation}
	case !isFinite(rec.Price):
		return Record{}, &RejectedError{Row: rowNum, Reason: ReasonPrice}
	case !isFinite(rec.Size) || rec.Size <= 0:
		return Record{}, &RejectedError{Row: rowNum, Reason: ReasonSize}
	}

	rec.derive()
	return rec, nil
}

// parseFloat returns NaN for empty or non-numeric input.
func parseFloat(s string) float64 {
	if s == "" {
		return math.NaN()
	}
	s = strings.ReplaceAll(s, " ", "")
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return math.NaN()
	}
	return f
}

// parseInt accepts integral floats such as "1998.0" and returns 0 otherwise.
func parseInt(s string) int {
	if s == "" {
		return 0
	}
	if i, err := strconv.Atoi(s); err == nil {
		return i
	}
	f := parseFloat(s)
	if !isFinite(f) || f != math.Trunc(f) {
		return 0
	}
	return int(f)
}

func parseDecision(s string) Decision {
	switch strings.ToLower(s) {
	case "1", "1.0", "yes", "true", "y":
		return DecisionYes
	case "0", "0.0", "no", "false", "n":
		return DecisionNo
	default:
		return DecisionUnknown
	}
}
