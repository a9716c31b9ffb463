package config

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ChristianF88/realtyx/aggregate"
)

// ParseWeights parses "n,c,s" as used by the --weights flag.
// Non-numeric entries count as 0, negative entries are rejected.
func ParseWeights(s string) (aggregate.Weights, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 3 {
		return aggregate.Weights{}, fmt.Errorf("weights must be 3 comma-separated numbers, got %q", s)
	}
	var w [3]float64
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			continue
		}
		if f < 0 {
			return aggregate.Weights{}, fmt.Errorf("weights must be non-negative, got %q", s)
		}
		w[i] = f
	}
	return aggregate.Weights{Neighbourhood: w[0], Connectivity: w[1], Satisfaction: w[2]}, nil
}

// ParseList splits a comma-separated flag value, dropping empty entries.
func ParseList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
