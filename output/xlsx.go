package output

import (
	"fmt"
	"math"

	"github.com/xuri/excelize/v2"
)

const (
	groupsSheet   = "Groups"
	listingsSheet = "Listings"
	datasetSheet  = "Dataset"
)

var groupHeader = []any{
	"View", "Country", "City", "Count", "Mean Price", "Mean Size m²", "Mean Price/m²",
	"Median Price/m²", "Min Price", "Max Price", "Neighbourhood", "Connectivity",
	"Satisfaction", "Crime", "Legal Cases", "EMI Ratio", "Mean Year", "Mean Score", "Color",
}

var listingHeader = []any{
	"View", "Country", "City", "ID", "Type", "Year", "Price", "Size m²", "Price/m²",
	"Score", "Neighbourhood", "Connectivity", "Satisfaction", "EMI Ratio",
}

// WriteXLSX exports the group and detail tables of every view to path.
func WriteXLSX(j *JSONOutput, path string) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), groupsSheet); err != nil {
		return fmt.Errorf("naming sheet: %w", err)
	}
	for _, name := range []string{listingsSheet, datasetSheet} {
		if _, err := f.NewSheet(name); err != nil {
			return fmt.Errorf("creating sheet %s: %w", name, err)
		}
	}

	header, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("creating header style: %w", err)
	}

	groups := [][]any{groupHeader}
	listings := [][]any{listingHeader}
	for _, v := range j.Views {
		for _, g := range v.Groups {
			groups = append(groups, []any{
				v.Name, g.Country, g.City, g.Count, cellValue(g.MeanPrice), cellValue(g.MeanSize),
				cellValue(g.MeanPricePerArea), cellValue(g.MedianPricePerArea), cellValue(g.MinPrice),
				cellValue(g.MaxPrice), cellValue(g.MeanNeighbourhood), cellValue(g.MeanConnectivity),
				cellValue(g.MeanSatisfaction), cellValue(g.MeanCrime), cellValue(g.MeanLegalCases),
				cellValue(g.MeanEMIRatio), cellValue(g.MeanYear), cellValue(g.MeanScore), g.Color,
			})
		}
		if v.Detail == nil {
			continue
		}
		for _, l := range v.Detail.Listings {
			listings = append(listings, []any{
				v.Name, l.Country, l.City, l.ID, l.Type, l.Year, cellValue(l.Price), cellValue(l.Size),
				cellValue(l.PricePerArea), cellValue(l.Score), cellValue(l.Neighbourhood),
				cellValue(l.Connectivity), cellValue(l.Satisfaction), cellValue(l.EMIRatio),
			})
		}
	}

	dataset := [][]any{
		{"Data File", j.General.DataFile},
		{"Total Rows", j.General.TotalRows},
		{"Accepted", j.General.Accepted},
		{"Rejected", j.General.Rejected},
		{"Generated", j.Metadata.GeneratedAt.Format("2006-01-02 15:04:05 MST")},
		{"Version", j.Metadata.Version},
	}

	for sheet, rows := range map[string][][]any{groupsSheet: groups, listingsSheet: listings, datasetSheet: dataset} {
		if err := writeRows(f, sheet, rows); err != nil {
			return err
		}
	}

	for _, sheet := range []string{groupsSheet, listingsSheet} {
		if err := f.SetRowStyle(sheet, 1, 1, header); err != nil {
			return fmt.Errorf("styling %s: %w", sheet, err)
		}
		if err := f.SetPanes(sheet, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"}); err != nil {
			return fmt.Errorf("freezing %s header: %w", sheet, err)
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("saving workbook %s: %w", path, err)
	}
	return nil
}

func writeRows(f *excelize.File, sheet string, rows [][]any) error {
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("writing %s row %d: %w", sheet, i+1, err)
		}
	}
	return nil
}

// cellValue leaves non-finite values as empty cells.
func cellValue(v Float) any {
	x := float64(v)
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return nil
	}
	return x
}
