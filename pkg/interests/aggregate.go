package interests

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/yair/conference-portal/pkg/domain"
)

const (
	summarySheet       = "Summary"
	registrationsSheet = "Registrations"
)

// Aggregate groups registrations by event name and fee, sorted by event
// name then fee.
func (s *Service) Aggregate(ctx context.Context) ([]domain.InterestSummary, error) {
	records, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	return Summarize(records), nil
}

// Summarize counts records per (event name, fee) and sums the parsed fee.
func Summarize(records []domain.Interest) []domain.InterestSummary {
	type key struct{ name, fees string }

	groups := make(map[key]*domain.InterestSummary)
	for _, r := range records {
		k := key{name: r.EventName, fees: r.EventPrice}
		if k.name == "" {
			k.name = "Unknown"
		}
		if k.fees == "" {
			k.fees = domain.DefaultPrice
		}

		g, ok := groups[k]
		if !ok {
			g = &domain.InterestSummary{EventName: k.name, Fees: k.fees}
			groups[k] = g
		}
		g.Count++
		g.Total += ParsePrice(r.EventPrice)
	}

	out := make([]domain.InterestSummary, 0, len(groups))
	for _, g := range groups {
		out = append(out, *g)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].EventName != out[j].EventName {
			return out[i].EventName < out[j].EventName
		}
		return out[i].Fees < out[j].Fees
	})
	return out
}

// ParsePrice reads a fee such as "$1,250" as a number. TBD and anything
// unparsable count as zero.
func ParsePrice(s string) float64 {
	s = strings.TrimSpace(strings.NewReplacer("$", "", ",", "").Replace(s))
	if strings.EqualFold(s, domain.DefaultPrice) {
		return 0
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}

// ExportXLSX renders the aggregation and the raw registrations as a workbook.
func (s *Service) ExportXLSX(ctx context.Context) ([]byte, error) {
	records, err := s.List(ctx)
	if err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return nil, err
	}
	if err := writeRows(f, summarySheet, []any{"Event Name", "Fees", "No. of interests", "Total"}, summaryRows(Summarize(records))); err != nil {
		return nil, err
	}

	if _, err := f.NewSheet(registrationsSheet); err != nil {
		return nil, err
	}
	header := []any{"Timestamp", "Event Name", "Fees", "Topic", "First Name", "Last Name", "Username", "Email", "Role", "City", "Country"}
	rows := make([][]any, len(records))
	for i, r := range records {
		rows[i] = []any{r.Timestamp, r.EventName, r.EventPrice, r.Topic, r.FirstName, r.LastName, r.Username, r.Email, r.Role, r.City, r.Country}
	}
	if err := writeRows(f, registrationsSheet, header, rows); err != nil {
		return nil, err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to render workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func summaryRows(summaries []domain.InterestSummary) [][]any {
	rows := make([][]any, len(summaries))
	for i, s := range summaries {
		rows[i] = []any{s.EventName, s.Fees, s.Count, s.Total}
	}
	return rows
}

func writeRows(f *excelize.File, sheet string, header []any, rows [][]any) error {
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return err
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return err
		}
	}
	return nil
}
