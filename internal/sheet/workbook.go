package sheet

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

// ReadWorkbook reads every sheet of an .xlsx/.xlsm workbook.
// Cells are read raw so date cells arrive as Excel serial numbers.
// A sheet that fails to parse is reported as a warning and skipped.
func ReadWorkbook(path string) ([]Sheet, []Warning, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	var sheets []Sheet
	var warnings []Warning
	for _, name := range f.GetSheetList() {
		source := path + "#" + name
		rows, err := f.GetRows(name, excelize.Options{RawCellValue: true})
		if err != nil {
			warnings = append(warnings, Warning{Source: source, Err: err})
			continue
		}
		if len(rows) == 0 {
			continue
		}
		sheets = append(sheets, FromRows(source, trimAll(rows[0]), rows[1:]))
	}
	return sheets, warnings, nil
}

// ReadCSV reads a CSV export as a single sheet
func ReadCSV(path string) (Sheet, error) {
	f, err := os.Open(path)
	if err != nil {
		return Sheet{}, fmt.Errorf("failed to open csv: %w", err)
	}
	defer f.Close()
	return parseCSV(path, f)
}

func parseCSV(source string, r io.Reader) (Sheet, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	records, err := cr.ReadAll()
	if err != nil {
		return Sheet{}, fmt.Errorf("failed to parse csv: %w", err)
	}
	if len(records) == 0 {
		return Sheet{Source: source}, nil
	}
	if len(records[0]) > 0 {
		records[0][0] = strings.TrimPrefix(records[0][0], "\ufeff")
	}
	header := trimAll(records[0])
	return FromRows(source, header, records[1:]), nil
}

// ReadFile dispatches on the file extension
func ReadFile(path string) ([]Sheet, []Warning, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		s, err := ReadCSV(path)
		if err != nil {
			return nil, nil, err
		}
		return []Sheet{s}, nil, nil
	case ".xlsx", ".xlsm":
		return ReadWorkbook(path)
	default:
		return nil, nil, fmt.Errorf("unsupported file type %q", filepath.Ext(path))
	}
}

func trimAll(in []string) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = strings.TrimSpace(s)
	}
	return out
}
