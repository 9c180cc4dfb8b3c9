package tabular

import (
	"bytes"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/yair/conference-portal/pkg/domain"
)

// ReadXLSX reads the first worksheet of an XLSX workbook. Cells keep their
// displayed text; date-formatted numeric cells also carry the decoded time.
func ReadXLSX(data []byte) (*Sheet, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: open workbook: %v", domain.ErrUnsupportedFormat, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("%w: workbook has no sheets", domain.ErrUnsupportedFormat)
	}
	name := sheets[0]

	formatted, err := f.GetRows(name)
	if err != nil {
		return nil, fmt.Errorf("%w: read rows: %v", domain.ErrUnsupportedFormat, err)
	}
	raw, err := f.GetRows(name, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("%w: read raw rows: %v", domain.ErrUnsupportedFormat, err)
	}

	date1904 := false
	if props, err := f.GetWorkbookProps(); err == nil && props.Date1904 != nil {
		date1904 = *props.Date1904
	}

	styles := map[int]bool{}
	rows := make([][]Cell, len(formatted))
	for r, values := range formatted {
		row := make([]Cell, len(values))
		for c, text := range values {
			row[c] = Cell{Text: text}

			ref, err := excelize.CoordinatesToCellName(c+1, r+1)
			if err != nil {
				continue
			}

			if ok, target, err := f.GetCellHyperLink(name, ref); err == nil && ok {
				row[c].Href = target
			}

			rawValue := ""
			if r < len(raw) && c < len(raw[r]) {
				rawValue = raw[r][c]
			}
			serial, err := strconv.ParseFloat(rawValue, 64)
			if err != nil || !isDateStyled(f, name, ref, styles) {
				continue
			}
			if t, err := excelize.ExcelDateToTime(serial, date1904); err == nil {
				row[c].Time = &t
			}
		}
		rows[r] = row
	}

	return fromRows(rows), nil
}

// isDateStyled reports whether the cell's number format renders a date.
// Results are memoized per style index in seen.
func isDateStyled(f *excelize.File, sheet, ref string, seen map[int]bool) bool {
	idx, err := f.GetCellStyle(sheet, ref)
	if err != nil || idx == 0 {
		return false
	}
	if v, ok := seen[idx]; ok {
		return v
	}

	style, err := f.GetStyle(idx)
	isDate := err == nil && (builtinDateFormat(style.NumFmt) ||
		(style.CustomNumFmt != nil && customDateFormat(*style.CustomNumFmt)))
	seen[idx] = isDate
	return isDate
}

func builtinDateFormat(id int) bool {
	switch {
	case id >= 14 && id <= 17, id == 22:
		return true
	case id >= 27 && id <= 36, id >= 50 && id <= 58:
		// CJK locale date formats
		return true
	}
	return false
}

var literalSections = regexp.MustCompile(`"[^"]*"|\[[^\]]*\]|\\.`)

func customDateFormat(format string) bool {
	f := strings.ToLower(literalSections.ReplaceAllString(format, ""))
	return strings.ContainsAny(f, "yd") || strings.Contains(f, "mmm")
}
