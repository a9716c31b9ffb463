package tui

import (
	"math"
	"strconv"
	"strings"

	"github.com/rivo/tview"

	"github.com/ChristianF88/realtyx/config"
	"github.com/ChristianF88/realtyx/filter"
)

// Filter form fields, in display order.
const (
	fieldPriceMin      = "Price min"
	fieldPriceMax      = "Price max"
	fieldSizeMin       = "Size min (m²)"
	fieldSizeMax       = "Size max (m²)"
	fieldEMIMax        = "EMI ratio max"
	fieldCrimeMax      = "Crime max"
	fieldNeighbourhood = "Neighbourhood min"
	fieldYearMin       = "Built from"
	fieldQuantile      = "Price quantile"
	fieldLocation      = "Location"
	fieldTypes         = "Types"
	fieldNoLegal       = "No legal cases"
)

var numericFields = []string{
	fieldPriceMin, fieldPriceMax, fieldSizeMin, fieldSizeMax,
	fieldEMIMax, fieldCrimeMax, fieldNeighbourhood, fieldQuantile,
}

// filterValues renders f as form field values. Unset bounds are empty.
func filterValues(f filter.FilterSet) map[string]string {
	bound := func(v float64) string {
		if v > 0 {
			return strconv.FormatFloat(v, 'g', -1, 64)
		}
		return ""
	}
	values := map[string]string{
		fieldPriceMin:      bound(f.PriceMin),
		fieldPriceMax:      bound(f.PriceMax),
		fieldSizeMin:       bound(f.SizeMin),
		fieldSizeMax:       bound(f.SizeMax),
		fieldEMIMax:        bound(f.EMIMax),
		fieldCrimeMax:      bound(f.CrimeMax),
		fieldNeighbourhood: bound(f.NeighbourhoodMin),
		fieldLocation:      f.Location,
		fieldTypes:         strings.Join(f.Types, ","),
	}
	if f.YearMin > 0 {
		values[fieldYearMin] = strconv.Itoa(f.YearMin)
	}
	if f.QuantileActive() {
		values[fieldQuantile] = bound(f.PriceQuantile)
	}
	return values
}

// parseFilterValues builds a FilterSet from form values. Empty fields are
// unset. Invalid fields are unset as well and returned by label in ignored,
// the remaining fields still apply.
func parseFilterValues(values map[string]string, noLegal bool) (fs filter.FilterSet, ignored []string) {
	nums := make(map[string]float64, len(numericFields))
	for _, name := range numericFields {
		s := strings.TrimSpace(values[name])
		if s == "" {
			continue
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil || v < 0 || math.IsNaN(v) {
			ignored = append(ignored, name)
			continue
		}
		nums[name] = v
	}
	if q := nums[fieldQuantile]; q > 1 {
		delete(nums, fieldQuantile)
		ignored = append(ignored, fieldQuantile)
	}

	var year int
	if s := strings.TrimSpace(values[fieldYearMin]); s != "" {
		y, err := strconv.Atoi(s)
		if err != nil || y < 0 {
			ignored = append(ignored, fieldYearMin)
		} else {
			year = y
		}
	}

	return filter.FilterSet{
		PriceMin:         nums[fieldPriceMin],
		PriceMax:         nums[fieldPriceMax],
		SizeMin:          nums[fieldSizeMin],
		SizeMax:          nums[fieldSizeMax],
		EMIMax:           nums[fieldEMIMax],
		CrimeMax:         nums[fieldCrimeMax],
		NeighbourhoodMin: nums[fieldNeighbourhood],
		YearMin:          year,
		PriceQuantile:    nums[fieldQuantile],
		Location:         strings.TrimSpace(values[fieldLocation]),
		NoLegalCases:     noLegal,
		Types:            config.ParseList(values[fieldTypes]),
	}, ignored
}

// newFilterForm builds the filter form prefilled from f. apply receives the
// parsed FilterSet; cancel closes the form without changes. ignored is told
// which fields were dropped as invalid.
func newFilterForm(f filter.FilterSet, apply func(filter.FilterSet), cancel func(), ignored func([]string)) *tview.Form {
	values := filterValues(f)
	form := tview.NewForm()
	for _, name := range []string{
		fieldPriceMin, fieldPriceMax, fieldSizeMin, fieldSizeMax,
		fieldEMIMax, fieldCrimeMax, fieldNeighbourhood, fieldYearMin,
		fieldQuantile, fieldLocation, fieldTypes,
	} {
		form.AddInputField(name, values[name], 24, nil, nil)
	}
	form.AddCheckbox(fieldNoLegal, f.NoLegalCases, nil)

	collect := func() (filter.FilterSet, []string) {
		current := make(map[string]string, form.GetFormItemCount())
		for i := 0; i < form.GetFormItemCount(); i++ {
			if in, ok := form.GetFormItem(i).(*tview.InputField); ok {
				current[in.GetLabel()] = in.GetText()
			}
		}
		noLegal := false
		if cb, ok := form.GetFormItemByLabel(fieldNoLegal).(*tview.Checkbox); ok {
			noLegal = cb.IsChecked()
		}
		return parseFilterValues(current, noLegal)
	}

	form.AddButton("Apply", func() {
		fs, dropped := collect()
		apply(fs)
		if len(dropped) > 0 {
			ignored(dropped)
		}
	})
	form.AddButton("Clear", func() {
		apply(filter.FilterSet{})
	})
	form.AddButton("Cancel", cancel)
	form.SetCancelFunc(cancel)

	form.SetBorder(true).SetTitle(" Filters ").SetTitleAlign(tview.AlignLeft)
	return form
}
