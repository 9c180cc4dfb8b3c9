package ingest

import (
	"strings"
	"time"

	"github.com/yair/conference-portal/pkg/tabular"
)

const isoDate = "2006-01-02"

// dateLayouts are tried in order. Numeric dates are read day first, as the
// source sheets write them (08-10-2025 is 8 October).
var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006/1/2",
	"2-1-2006",
	"2/1/2006",
	"2.1.2006",
	"2-1-2006 15:04",
	"2/1/2006 15:04",
	"2-1-06",
	"2/1/06",
	"2 Jan 2006",
	"2 January 2006",
	"2-Jan-2006",
	"2-Jan-06",
	"Jan 2, 2006",
	"January 2, 2006",
	"Jan 2 2006",
	"January 2 2006",
	"Monday, January 2, 2006",
	"Mon, Jan 2, 2006",
	"Jan 2006",
	"January 2006",
}

// normalizeDate renders a cell as YYYY-MM-DD. Unparsable text is returned
// unchanged and blank cells yield "".
func normalizeDate(c tabular.Cell) string {
	if c.Time != nil {
		return c.Time.Format(isoDate)
	}

	s := strings.TrimSpace(c.Text)
	if s == "" {
		return ""
	}
	if t, ok := parseDayFirst(s); ok {
		return t.Format(isoDate)
	}
	return s
}

func parseDayFirst(s string) (time.Time, bool) {
	s = strings.Join(strings.Fields(s), " ")
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
