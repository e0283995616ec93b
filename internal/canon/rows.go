package canon

import (
	"github.com/sigreer/assetpulse/internal/device"
	"github.com/sigreer/assetpulse/internal/sheet"
)

// Result is the canonical view of one raw sheet
type Result struct {
	Source  string
	Records []device.Record
	// Fields that had a column in the sheet
	Present map[device.Field]bool
}

// Sheet canonicalizes every row of s. Columns matching no rule are dropped.
// Rows are returned even without a hostname; the merger discards those.
func (m *Mapper) Sheet(s sheet.Sheet) Result {
	bound := m.Bind(s.Names())
	res := Result{
		Source:  s.Source,
		Present: make(map[device.Field]bool, len(bound)),
	}
	if len(bound) == 0 {
		return res
	}
	for f := range bound {
		res.Present[f] = true
	}

	rows := s.Rows()
	res.Records = make([]device.Record, 0, rows)
	for i := 0; i < rows; i++ {
		res.Records = append(res.Records, Row(bound, func(col int) any { return s.Cell(col, i) }))
	}
	return res
}

// Row builds one record from a field binding and a cell accessor
func Row(bound map[device.Field]int, cell func(col int) any) device.Record {
	var r device.Record
	for f, col := range bound {
		Set(&r, f, cell(col))
	}
	return r
}
