// Package tabular reads uploaded spreadsheets (XLSX, CSV or HTML tables)
// into a uniform header-plus-rows shape.
package tabular

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/yair/conference-portal/pkg/domain"
)

// Cell is one spreadsheet value. Time is set when the source stored a real
// date rather than text; Href carries an attached hyperlink target.
type Cell struct {
	Text string
	Time *time.Time
	Href string
}

// Blank reports whether the cell carries no text and no link.
func (c Cell) Blank() bool {
	return strings.TrimSpace(c.Text) == "" && c.Href == "" && c.Time == nil
}

// Sheet is a header row plus data rows. Rows may be shorter than the header.
type Sheet struct {
	Header []string
	Rows   [][]Cell
}

// CellAt returns the cell at column col of row, or a zero Cell when the row is short.
func CellAt(row []Cell, col int) Cell {
	if col < 0 || col >= len(row) {
		return Cell{}
	}
	return row[col]
}

// Format is a supported input encoding.
type Format string

const (
	FormatXLSX Format = "xlsx"
	FormatCSV  Format = "csv"
	FormatHTML Format = "html"
)

var (
	zipMagic = []byte("PK\x03\x04")
	oleMagic = []byte{0xD0, 0xCF, 0x11, 0xE0}
)

// Detect picks the format from the file extension, falling back to the
// content when the extension is missing or unknown.
func Detect(filename string, data []byte) (Format, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".xlsx", ".xlsm":
		return FormatXLSX, nil
	case ".csv":
		return FormatCSV, nil
	case ".html", ".htm":
		return FormatHTML, nil
	case ".xls":
		return "", fmt.Errorf("%w: legacy .xls workbooks are not supported, save as .xlsx", domain.ErrUnsupportedFormat)
	}

	switch {
	case bytes.HasPrefix(data, zipMagic):
		return FormatXLSX, nil
	case bytes.HasPrefix(data, oleMagic):
		return "", fmt.Errorf("%w: legacy .xls workbooks are not supported, save as .xlsx", domain.ErrUnsupportedFormat)
	case bytes.HasPrefix(bytes.TrimSpace(data), []byte("<")):
		return FormatHTML, nil
	default:
		return FormatCSV, nil
	}
}

// Read parses data according to its detected format.
func Read(filename string, data []byte) (*Sheet, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, fmt.Errorf("%w: empty file", domain.ErrUnsupportedFormat)
	}

	format, err := Detect(filename, data)
	if err != nil {
		return nil, err
	}

	var sheet *Sheet
	switch format {
	case FormatXLSX:
		sheet, err = ReadXLSX(data)
	case FormatHTML:
		sheet, err = ReadHTML(data)
	default:
		sheet, err = ReadCSV(data)
	}
	if err != nil {
		return nil, err
	}
	if len(sheet.Header) == 0 {
		return nil, fmt.Errorf("%w: no header row found", domain.ErrUnsupportedFormat)
	}
	return sheet, nil
}

// fromRows splits raw rows into header and data, dropping leading blank rows.
func fromRows(rows [][]Cell) *Sheet {
	for len(rows) > 0 && blankRow(rows[0]) {
		rows = rows[1:]
	}
	if len(rows) == 0 {
		return &Sheet{}
	}

	header := make([]string, len(rows[0]))
	for i, c := range rows[0] {
		header[i] = strings.TrimSpace(c.Text)
	}
	return &Sheet{Header: header, Rows: rows[1:]}
}

func blankRow(row []Cell) bool {
	for _, c := range row {
		if !c.Blank() {
			return false
		}
	}
	return true
}
