// Package geocode resolves event locations to coordinates through a tiered
// lookup: the static gazetteer first, then an external geocoding service
// queried with the raw location and finally with "city, country".
package geocode

import (
	"context"
	"errors"
	"strings"

	"github.com/yair/conference-portal/pkg/domain"
	"github.com/yair/conference-portal/pkg/logging"
)

// ErrNotFound is returned by a Geocoder when the service answered but had no match.
var ErrNotFound = errors.New("geocode: no match")

// Geocoder is an external place-name search. Errors other than ErrNotFound
// are treated as service failures.
type Geocoder interface {
	Geocode(ctx context.Context, query string) (domain.Coordinates, error)
}

// PlaceTable is the offline tier, satisfied by *gazetteer.Gazetteer.
type PlaceTable interface {
	Lookup(raw string) (domain.Coordinates, bool)
}

type Status int

const (
	StatusNotFound Status = iota
	StatusFound
	StatusServiceError
)

func (s Status) String() string {
	switch s {
	case StatusFound:
		return "found"
	case StatusServiceError:
		return "service_error"
	default:
		return "not_found"
	}
}

// Result is the outcome of resolving one location. Err carries the last
// service failure when Status is StatusServiceError.
type Result struct {
	Status      Status
	Coordinates domain.Coordinates
	Err         error
}

func (r Result) Found() bool {
	return r.Status == StatusFound
}

// Pointer returns the coordinates for storage on an event, nil when unresolved.
func (r Result) Pointer() *domain.Coordinates {
	if !r.Found() {
		return nil
	}
	c := r.Coordinates
	return &c
}

// CacheKey builds the memo key for a (city, country, raw) triple.
func CacheKey(city, country, raw string) string {
	return strings.ToLower(strings.TrimSpace(city + "," + country + "," + raw))
}

type Resolver struct {
	places   PlaceTable
	geocoder Geocoder
	cache    *Cache
}

// NewResolver wires the tiers together. A nil geocoder disables the external
// tiers; a nil cache gets a fresh one.
func NewResolver(places PlaceTable, geocoder Geocoder, cache *Cache) *Resolver {
	if cache == nil {
		cache = NewCache()
	}
	return &Resolver{places: places, geocoder: geocoder, cache: cache}
}

// Resolve never fails: external errors are absorbed into the returned Status
// and every outcome, negative ones included, is memoized.
func (r *Resolver) Resolve(ctx context.Context, city, country, raw string) Result {
	key := CacheKey(city, country, raw)
	if res, ok := r.cache.Get(key); ok {
		return res
	}

	res := r.resolve(ctx, city, country, raw)
	r.cache.Put(key, res)
	return res
}

func (r *Resolver) resolve(ctx context.Context, city, country, raw string) Result {
	if r.places != nil {
		query := raw
		if query == "" {
			query = city
		}
		if c, ok := r.places.Lookup(query); ok {
			return Result{Status: StatusFound, Coordinates: c}
		}
	}

	if r.geocoder == nil {
		return Result{Status: StatusNotFound}
	}

	var lastErr error
	var queries []string
	if raw != "" {
		queries = append(queries, raw)
	}
	if city != "" {
		if country != "" {
			queries = append(queries, city+", "+country)
		} else {
			queries = append(queries, city)
		}
	}

	for _, q := range queries {
		c, err := r.geocoder.Geocode(ctx, q)
		if err == nil {
			return Result{Status: StatusFound, Coordinates: c}
		}
		if errors.Is(err, ErrNotFound) {
			logging.Debug("geocoder returned no match", "query", q)
			continue
		}
		logging.Error("geocoder call failed", err, "query", q)
		lastErr = err
	}

	if lastErr != nil {
		return Result{Status: StatusServiceError, Err: lastErr}
	}
	return Result{Status: StatusNotFound}
}

// ForgetFailures drops memoized service errors so the next Resolve retries them.
func (r *Resolver) ForgetFailures() int {
	return r.cache.DropFailures()
}

// ForgetUnresolved drops memoized misses as well as service errors, for
// periodic retries of locations the geocoder may have learned since.
func (r *Resolver) ForgetUnresolved() int {
	return r.cache.DropUnresolved()
}

func (r *Resolver) CacheLen() int {
	return r.cache.Len()
}
