package tabular

import (
	"bytes"
	"encoding/csv"
	"fmt"

	"github.com/yair/conference-portal/pkg/domain"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// ReadCSV reads comma-separated text. Quoting is lenient and rows may have
// differing field counts.
func ReadCSV(data []byte) (*Sheet, error) {
	r := csv.NewReader(bytes.NewReader(bytes.TrimPrefix(data, utf8BOM)))
	r.LazyQuotes = true
	r.FieldsPerRecord = -1

	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: parse csv: %v", domain.ErrUnsupportedFormat, err)
	}

	rows := make([][]Cell, len(records))
	for i, rec := range records {
		row := make([]Cell, len(rec))
		for j, v := range rec {
			row[j] = Cell{Text: v}
		}
		rows[i] = row
	}

	return fromRows(rows), nil
}
