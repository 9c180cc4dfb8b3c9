package catalog

import (
	"context"
	"time"

	"github.com/yair/conference-portal/pkg/domain"
	"github.com/yair/conference-portal/pkg/geocode"
	"github.com/yair/conference-portal/pkg/logging"
)

// Resolver is satisfied by *geocode.Resolver.
type Resolver interface {
	Resolve(ctx context.Context, city, country, raw string) geocode.Result
}

// failureForgetter is implemented by resolvers that cache negative results.
type failureForgetter interface {
	ForgetFailures() int
}

type RegeocodeFailure struct {
	EventName string `json:"eventName"`
	Location  string `json:"location"`
	Reason    string `json:"reason"`
}

type RegeocodeReport struct {
	Geocoded int                `json:"geocoded"`
	Failed   int                `json:"failed"`
	Total    int                `json:"total"`
	Failures []RegeocodeFailure `json:"failures"`
}

const reasonNotFound = "Location not found"

// Regeocode resolves coordinates again for every event, or with force false
// only for events still missing them, then saves. Events with neither a
// city nor a raw location are left alone. With force, cached failures are
// dropped first so they get a fresh external attempt.
//
// Resolution runs without holding the lock; results are applied by id, so
// an ingestion that lands in between wins for the events it replaced.
func (s *Store) Regeocode(ctx context.Context, resolver Resolver, force bool) (RegeocodeReport, error) {
	start := time.Now()
	if force {
		if f, ok := resolver.(failureForgetter); ok {
			dropped := f.ForgetFailures()
			logging.Debug("dropped cached geocode failures", "count", dropped)
		}
	}

	snapshot := s.All()
	report := RegeocodeReport{Failures: []RegeocodeFailure{}}
	resolved := make(map[string]*domain.Coordinates)

	for _, e := range snapshot {
		if ctx.Err() != nil {
			break
		}
		if !force && e.HasCoordinates() {
			continue
		}
		if e.City == "" && e.LocationRaw == "" {
			continue
		}

		res := resolver.Resolve(ctx, e.City, e.Country, e.LocationRaw)
		if res.Found() {
			resolved[e.ID] = res.Pointer()
			report.Geocoded++
			continue
		}

		report.Failed++
		loc := e.LocationRaw
		if loc == "" {
			loc = e.City
		}
		report.Failures = append(report.Failures, RegeocodeFailure{
			EventName: e.EventName,
			Location:  loc,
			Reason:    reasonNotFound,
		})
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	next := make([]domain.Event, len(s.events))
	copy(next, s.events)
	for i := range next {
		if c, ok := resolved[next[i].ID]; ok {
			next[i].SetCoordinates(c)
		}
	}
	if err := s.write(next); err != nil {
		return report, err
	}
	s.events = next
	report.Total = len(next)

	logging.Info("re-geocode finished",
		"force", force,
		"geocoded", report.Geocoded,
		"failed", report.Failed,
		"elapsed", time.Since(start))

	return report, ctx.Err()
}
