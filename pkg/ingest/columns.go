package ingest

import (
	"strings"

	"github.com/yair/conference-portal/pkg/domain"
)

// Field is a semantic column the normalizer knows how to read.
type Field string

const (
	FieldTopic     Field = "topic"
	FieldEventName Field = "eventName"
	FieldStartDate Field = "startDate"
	FieldEndDate   Field = "endDate"
	FieldLocation  Field = "location"
	FieldOrganizer Field = "agencies"
	FieldQuarter   Field = "quarter"
	FieldPrice     Field = "price"
)

// requiredFields must all be present for a sheet to be accepted, reported in this order.
var requiredFields = []Field{FieldTopic, FieldEventName, FieldLocation}

// headerRules are tried in order against the lowercased header; the first
// rule with a matching substring claims the column.
var headerRules = []struct {
	field    Field
	patterns []string
}{
	{FieldTopic, []string{"topic"}},
	{FieldEventName, []string{"event name", "eventname"}},
	{FieldStartDate, []string{"start date", "startdate"}},
	{FieldEndDate, []string{"end date", "enddate"}},
	{FieldLocation, []string{"location"}},
	{FieldOrganizer, []string{"agencies"}},
	{FieldQuarter, []string{"quarter"}},
	{FieldPrice, []string{"fees", "price", "cost", "budget"}},
}

// linkColumnIndex is where the fixed sheet layout (topic, event name, start,
// end, quarter, location, link, agencies) puts the untitled link column.
const linkColumnIndex = 6

// Columns maps semantic fields to header positions.
type Columns struct {
	index map[Field]int
	link  int
}

// Index returns the column position of f, or -1.
func (c Columns) Index(f Field) int {
	if i, ok := c.index[f]; ok {
		return i
	}
	return -1
}

// Link returns the link column position, or -1.
func (c Columns) Link() int {
	return c.link
}

// DetectColumns maps header cells to fields. A later header matching the
// same field replaces the earlier one. It fails with a
// *domain.MissingColumnsError when a required field has no column.
func DetectColumns(header []string) (Columns, error) {
	cols := Columns{index: make(map[Field]int), link: -1}

	for i, h := range header {
		lower := strings.ToLower(strings.TrimSpace(h))

		matched := false
		for _, rule := range headerRules {
			if containsAny(lower, rule.patterns) {
				cols.index[rule.field] = i
				matched = true
				break
			}
		}
		if !matched && unlabeled(h) && cols.link == -1 {
			cols.link = i
		}
	}

	if len(header) > linkColumnIndex && unlabeled(header[linkColumnIndex]) {
		cols.link = linkColumnIndex
	}

	var missing []string
	for _, f := range requiredFields {
		if _, ok := cols.index[f]; !ok {
			missing = append(missing, string(f))
		}
	}
	if len(missing) > 0 {
		detected := make([]string, len(header))
		copy(detected, header)
		return Columns{}, &domain.MissingColumnsError{Missing: missing, Detected: detected}
	}

	return cols, nil
}

// unlabeled reports a blank header or a pandas-style "Unnamed: N" placeholder.
func unlabeled(h string) bool {
	h = strings.TrimSpace(h)
	return h == "" || strings.HasPrefix(h, "Unnamed")
}

func containsAny(s string, patterns []string) bool {
	for _, p := range patterns {
		if strings.Contains(s, p) {
			return true
		}
	}
	return false
}
