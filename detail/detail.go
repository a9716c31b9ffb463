package detail

import (
	"math"
	"slices"

	"github.com/ChristianF88/realtyx/aggregate"
	"github.com/ChristianF88/realtyx/ingestor"
)

// All requests every member of the group.
const All = 0

// Summary describes the selected group as a whole.
type Summary struct {
	Count              int
	MeanPrice          float64
	MeanSize           float64
	MeanPricePerArea   float64
	MedianPricePerArea float64
	MeanScore          float64
	MeanEMIRatio       float64
	MeanCrime          float64
	MeanNeighbourhood  float64
}

// Row is one member listing with its composite score.
type Row struct {
	Index  int
	Score  float64
	Record ingestor.Record
}

// Payload is the detail view of one group.
type Payload struct {
	Key       aggregate.Key
	Summary   Summary
	Top       []Row
	Truncated bool
}

// Project builds the detail payload of group. Members are ordered by score
// descending with ties broken by ascending ID; NaN scores go last. n <= 0
// returns every member. scores is indexed like records.
func Project(records []ingestor.Record, group *aggregate.Group, scores []float64, n int) Payload {
	if group == nil {
		return Payload{}
	}

	p := Payload{
		Key: group.Key,
		Summary: Summary{
			Count:              group.N,
			MeanPrice:          group.MeanPrice,
			MeanSize:           group.MeanSize,
			MeanPricePerArea:   group.MeanPricePerArea,
			MedianPricePerArea: group.MedianPricePerArea,
			MeanScore:          group.MeanScore,
			MeanEMIRatio:       group.MeanEMIRatio,
			MeanCrime:          group.MeanCrime,
			MeanNeighbourhood:  group.MeanNeighbourhood,
		},
	}

	rows := make([]Row, 0, len(group.Members))
	for _, i := range group.Members {
		if i < 0 || i >= len(records) {
			continue
		}
		s := math.NaN()
		if i < len(scores) {
			s = scores[i]
		}
		rows = append(rows, Row{Index: i, Score: s, Record: records[i]})
	}

	slices.SortStableFunc(rows, compareRows)

	if n > 0 && len(rows) > n {
		rows = rows[:n]
		p.Truncated = true
	}
	p.Top = rows
	return p
}

func compareRows(a, b Row) int {
	an, bn := math.IsNaN(a.Score), math.IsNaN(b.Score)
	switch {
	case an && !bn:
		return 1
	case !an && bn:
		return -1
	case !an && a.Score != b.Score:
		if a.Score > b.Score {
			return -1
		}
		return 1
	}
	switch {
	case a.Record.ID < b.Record.ID:
		return -1
	case a.Record.ID > b.Record.ID:
		return 1
	}
	return 0
}
