package main

import (
	"fmt"
	"testing"

	"github.com/ChristianF88/realtyx/ingestor"
	"github.com/ChristianF88/realtyx/navigation"
	"github.com/ChristianF88/realtyx/pipeline"
	"github.com/ChristianF88/realtyx/testutil"
)

// BenchmarkEndToEnd loads a generated listings file and renders the common views.
func BenchmarkEndToEnd(b *testing.B) {
	sizes := []int{1000, 10000, 100000}

	for _, size := range sizes {
		path, cleanup := testutil.GenerateTestCSV(b, size)

		b.Run(fmt.Sprintf("Load_%d_rows", size), func(b *testing.B) {
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				if _, err := ingestor.LoadFile(path, 0); err != nil {
					b.Fatal(err)
				}
			}
		})

		ds, err := ingestor.LoadFile(path, 0)
		if err != nil {
			cleanup()
			b.Fatalf("Failed to load dataset: %v", err)
		}

		world := pipeline.DefaultView()

		city := pipeline.DefaultView()
		city.Nav = navigation.City("France", "Paris")

		capped := pipeline.DefaultView()
		capped.Filter.PriceQuantile = 0.75
		capped.Filter.NoLegalCases = true

		views := []struct {
			name string
			view pipeline.ViewState
		}{
			{"World", world},
			{"City", city},
			{"Quantile", capped},
		}

		for _, v := range views {
			b.Run(fmt.Sprintf("%s_%d_rows", v.name, size), func(b *testing.B) {
				b.ReportAllocs()
				for i := 0; i < b.N; i++ {
					_ = pipeline.RunDataset(ds, v.view)
				}
			})
		}

		cleanup()
	}
}
