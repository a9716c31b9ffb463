package testutil

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// DatasetHeader is the header written by GenerateTestCSV.
const DatasetHeader = "property_id,country,city,property_type,furnishing_status,property_size_sqft,price,constructed_year,rooms,bathrooms,crime_cases_reported,legal_cases_on_property,emi_to_income_ratio,satisfaction_score,neighbourhood_rating,connectivity_score,decision"

// GenerateTestCSV creates a temporary listing dataset with numRows rows
// spread over a fixed set of countries, cities and property types.
// Returns the file path and a cleanup function.
func GenerateTestCSV(t testing.TB, numRows int) (string, func()) {
	t.Helper()

	if numRows < 1 {
		numRows = 1
	}

	tmpFile, err := os.CreateTemp("", "test_listings_*.csv")
	if err != nil {
		t.Fatalf("Failed to create temp dataset: %v", err)
	}

	locations := [][2]string{
		{"France", "Paris"},
		{"France", "Lyon"},
		{"Germany", "Berlin"},
		{"Germany", "Munich"},
		{"Japan", "Tokyo"},
		{"USA", "New York"},
		{"USA", "Chicago"},
	}
	types := []string{"Apartment", "Villa", "Townhouse", "Studio"}
	furnish := []string{"Furnished", "Semi-Furnished", "Unfurnished"}

	var content strings.Builder
	content.WriteString(DatasetHeader)
	content.WriteString("\n")
	for i := 0; i < numRows; i++ {
		loc := locations[i%len(locations)]
		size := 500 + (i*37)%2500
		price := 90000 + (i*7919)%900000
		fmt.Fprintf(&content, "%d,%s,%s,%s,%s,%d,%d,%d,%d,%d,%d,%d,%.2f,%d,%d,%d,%d\n",
			i+1,
			loc[0], loc[1],
			types[i%len(types)],
			furnish[i%len(furnish)],
			size, price,
			1960+i%60,
			1+i%6, 1+i%3,
			i%7, i%3,
			0.1+float64(i%40)/100,
			1+i%10, 1+(i*3)%10, 1+(i*7)%10,
			i%2,
		)
	}

	if _, err := tmpFile.WriteString(content.String()); err != nil {
		t.Fatalf("Failed to write to temp dataset: %v", err)
	}

	tmpFile.Close()

	cleanup := func() {
		os.Remove(tmpFile.Name())
	}

	return tmpFile.Name(), cleanup
}

// WriteFile writes content to name inside a fresh test directory and returns its path.
func WriteFile(t *testing.T, name, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to write %s: %v", path, err)
	}
	return path
}

// TempFilePath returns a cross-platform temporary file path
// with the given pattern. Does not create the file.
func TempFilePath(t *testing.T, pattern string) string {
	t.Helper()

	tmpFile, err := os.CreateTemp("", pattern)
	if err != nil {
		t.Fatalf("Failed to create temp file: %v", err)
	}

	path := tmpFile.Name()
	tmpFile.Close()
	os.Remove(path)

	return path
}
