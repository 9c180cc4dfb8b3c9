package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/yair/conference-portal/pkg/domain"
	"github.com/yair/conference-portal/pkg/logging"
	"github.com/yair/conference-portal/pkg/tabular"
)

// Catalog is the store an ingestion replaces; satisfied by *catalog.Store.
type Catalog interface {
	Replace(events []domain.Event) error
	Len() int
}

// Report summarizes one ingestion.
type Report struct {
	Processed  int `json:"processed"`
	Unresolved int `json:"unresolved"`
	Total      int `json:"total"`
}

func (r Report) Message() string {
	return fmt.Sprintf("Database Refreshed: Processed %d rows. Total events in system: %d.", r.Processed, r.Total)
}

type Service struct {
	normalizer *Normalizer
	catalog    Catalog
}

func NewService(normalizer *Normalizer, catalog Catalog) *Service {
	return &Service{normalizer: normalizer, catalog: catalog}
}

// Ingest parses an uploaded file and replaces the whole catalog with its
// rows. Nothing is replaced when reading, column detection or saving fails.
func (s *Service) Ingest(ctx context.Context, filename string, data []byte) (Report, error) {
	start := time.Now()
	logging.Info("ingestion started", "file", filename, "bytes", len(data))

	sheet, err := tabular.Read(filename, data)
	if err != nil {
		logging.Error("ingestion rejected", err, "file", filename)
		return Report{}, err
	}

	events, err := s.normalizer.Normalize(ctx, sheet)
	if err != nil {
		logging.Error("ingestion rejected", err, "file", filename, "headers", sheet.Header)
		return Report{}, err
	}

	if err := s.catalog.Replace(events); err != nil {
		logging.Error("failed to persist catalog", err, "file", filename)
		return Report{}, fmt.Errorf("failed to save events: %w", err)
	}

	report := Report{Processed: len(events), Total: s.catalog.Len()}
	for i := range events {
		if !events[i].HasCoordinates() {
			report.Unresolved++
		}
	}

	logging.Info("ingestion finished",
		"file", filename,
		"processed", report.Processed,
		"unresolved", report.Unresolved,
		"elapsed", time.Since(start))

	return report, nil
}
