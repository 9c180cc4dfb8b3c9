// Package ingest turns uploaded spreadsheets into catalog events: columns are
// detected from the header, each row is cleaned up, its location parsed and
// resolved, and the result replaces the catalog wholesale.
package ingest

import (
	"context"
	"strings"

	"github.com/yair/conference-portal/pkg/domain"
	"github.com/yair/conference-portal/pkg/geocode"
	"github.com/yair/conference-portal/pkg/location"
	"github.com/yair/conference-portal/pkg/tabular"
)

// Resolver resolves a parsed location to coordinates; satisfied by *geocode.Resolver.
type Resolver interface {
	Resolve(ctx context.Context, city, country, raw string) geocode.Result
}

type Normalizer struct {
	resolver Resolver
}

func NewNormalizer(resolver Resolver) *Normalizer {
	return &Normalizer{resolver: resolver}
}

// Normalize converts every non-blank row of sheet into an event. Rows are
// processed sequentially so external geocoder calls are never concurrent.
// Per-row problems never fail the sheet; only a missing required column does.
func (n *Normalizer) Normalize(ctx context.Context, sheet *tabular.Sheet) ([]domain.Event, error) {
	cols, err := DetectColumns(sheet.Header)
	if err != nil {
		return nil, err
	}

	events := make([]domain.Event, 0, len(sheet.Rows))
	for _, row := range sheet.Rows {
		if blank(row) {
			continue
		}
		events = append(events, n.normalizeRow(ctx, cols, row))
	}
	return events, nil
}

func (n *Normalizer) normalizeRow(ctx context.Context, cols Columns, row []tabular.Cell) domain.Event {
	text := func(f Field) string {
		return strings.TrimSpace(tabular.CellAt(row, cols.Index(f)).Text)
	}

	raw := text(FieldLocation)
	city, country := location.Parse(raw)

	e := domain.Event{
		EventName:       text(FieldEventName),
		Topic:           text(FieldTopic),
		StartDate:       normalizeDate(tabular.CellAt(row, cols.Index(FieldStartDate))),
		EndDate:         normalizeDate(tabular.CellAt(row, cols.Index(FieldEndDate))),
		City:            city,
		Country:         country,
		LocationRaw:     raw,
		Quarter:         text(FieldQuarter),
		Organizer:       text(FieldOrganizer),
		RegistrationURL: registrationLink(row, cols.Link()),
		Price:           text(FieldPrice),
	}
	if e.Price == "" {
		e.Price = domain.DefaultPrice
	}

	if n.resolver != nil {
		e.SetCoordinates(n.resolver.Resolve(ctx, city, country, raw).Pointer())
	}

	e.RefreshID()
	return e
}

func blank(row []tabular.Cell) bool {
	for _, c := range row {
		if !c.Blank() {
			return false
		}
	}
	return true
}
