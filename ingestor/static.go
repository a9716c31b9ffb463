package ingestor

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

// sampleLines is how many lines after the header are inspected for the delimiter.
const sampleLines = 20

// LoadError is a terminal failure to read a dataset.
type LoadError struct {
	Path string
	Op   string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load %s: %s: %v", e.Path, e.Op, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// ErrNoHeader is returned (wrapped in a LoadError) for empty inputs.
var ErrNoHeader = errors.New("no header row")

// DetectDelimiter counts ';' and ',' in the header and the first lines of
// sample. ';' wins only when strictly more frequent.
func DetectDelimiter(sample []byte) rune {
	semi, comma := 0, 0
	for i, line := range bytes.SplitN(sample, []byte{'\n'}, sampleLines+2) {
		if i > sampleLines {
			break
		}
		semi += bytes.Count(line, []byte{';'})
		comma += bytes.Count(line, []byte{','})
	}
	if semi > comma {
		return ';'
	}
	return ','
}

// LoadFile reads a delimited text or .xlsx file into a Dataset.
// delimiter 0 means auto-detect; it is ignored for .xlsx input.
func LoadFile(path string, delimiter rune) (*Dataset, error) {
	if strings.EqualFold(filepath.Ext(path), ".xlsx") {
		rows, err := readXLSX(path)
		if err != nil {
			return nil, &LoadError{Path: path, Op: "read xlsx", Err: err}
		}
		return buildDataset(path, 0, rows)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{Path: path, Op: "open", Err: err}
	}
	if delimiter == 0 {
		delimiter = DetectDelimiter(data)
	}
	rows, err := readDelimited(bytes.NewReader(data), delimiter)
	if err != nil {
		return nil, &LoadError{Path: path, Op: "parse", Err: err}
	}
	return buildDataset(path, delimiter, rows)
}

func readDelimited(r io.Reader, delimiter rune) ([][]string, error) {
	cr := csv.NewReader(r)
	cr.Comma = delimiter
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.TrimLeadingSpace = true
	return cr.ReadAll()
}

// readXLSX returns the rows of the first sheet.
func readXLSX(path string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, errors.New("workbook has no sheets")
	}
	return f.GetRows(sheets[0])
}

func buildDataset(path string, delimiter rune, rows [][]string) (*Dataset, error) {
	if len(rows) == 0 {
		return nil, &LoadError{Path: path, Op: "header", Err: ErrNoHeader}
	}
	schema, err := ResolveSchema(rows[0])
	if err != nil {
		return nil, &LoadError{Path: path, Op: "header", Err: err}
	}

	ds := &Dataset{
		Path:            path,
		Delimiter:       delimiter,
		Records:         make([]Record, 0, len(rows)-1),
		RejectReasons:   make(map[string]int),
		MissingOptional: schema.MissingOptional(),
	}
	if !schema.Has(FieldID) {
		ds.MissingOptional = append(ds.MissingOptional, FieldID.String())
	}

	for i, row := range rows[1:] {
		if isBlank(row) {
			continue
		}
		ds.TotalRows++
		rec, err := schema.Normalize(row, i+1)
		if err != nil {
			var rej *RejectedError
			if errors.As(err, &rej) {
				ds.RejectReasons[rej.Reason]++
			}
			ds.Rejected++
			continue
		}
		ds.Records = append(ds.Records, rec)
	}
	return ds, nil
}

func isBlank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
