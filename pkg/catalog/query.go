package catalog

import (
	"sort"
	"strings"

	"github.com/golang/geo/s2"

	"github.com/yair/conference-portal/pkg/domain"
)

// earthRadiusKm is the mean Earth radius used to turn s2 angles into distances.
const earthRadiusKm = 6371.0088

// Filter narrows Get. Zero-valued fields match everything.
type Filter struct {
	Topic   string
	City    string
	Country string
	Quarter string
	// Query is a case-insensitive substring over name, topic, organizer and location.
	Query string
	// Near with a positive RadiusKm keeps events within that great-circle
	// distance. Events without coordinates never match.
	Near     *domain.Coordinates
	RadiusKm float64
}

func (f Filter) matches(e *domain.Event) bool {
	if !equalFold(f.Topic, e.Topic) || !equalFold(f.City, e.City) ||
		!equalFold(f.Country, e.Country) || !equalFold(f.Quarter, e.Quarter) {
		return false
	}

	if q := strings.ToLower(strings.TrimSpace(f.Query)); q != "" {
		hay := strings.ToLower(strings.Join([]string{e.EventName, e.Topic, e.Organizer, e.LocationRaw, e.City, e.Country}, " "))
		if !strings.Contains(hay, q) {
			return false
		}
	}

	if f.Near != nil && f.RadiusKm > 0 {
		c, ok := e.Coordinates()
		if !ok || DistanceKm(*f.Near, c) > f.RadiusKm {
			return false
		}
	}
	return true
}

func equalFold(want, got string) bool {
	want = strings.TrimSpace(want)
	return want == "" || strings.EqualFold(want, strings.TrimSpace(got))
}

// DistanceKm is the great-circle distance between a and b.
func DistanceKm(a, b domain.Coordinates) float64 {
	la := s2.LatLngFromDegrees(a.Lat, a.Lng)
	lb := s2.LatLngFromDegrees(b.Lat, b.Lng)
	return la.Distance(lb).Radians() * earthRadiusKm
}

// Get returns the events matching f in catalog order.
func (s *Store) Get(f Filter) []domain.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Event, 0, len(s.events))
	for i := range s.events {
		if f.matches(&s.events[i]) {
			out = append(out, s.events[i])
		}
	}
	return out
}

// FilterOptions lists the distinct non-empty values of topic, city, country
// and tags, each sorted. Tags are comma separated on the event.
func (s *Store) FilterOptions() map[string][]string {
	sets := map[string]map[string]struct{}{
		"topic":   {},
		"city":    {},
		"country": {},
		"tags":    {},
	}
	add := func(key, v string) {
		if v = strings.TrimSpace(v); v != "" {
			sets[key][v] = struct{}{}
		}
	}

	s.mu.RLock()
	for _, e := range s.events {
		add("topic", e.Topic)
		add("city", e.City)
		add("country", e.Country)
		for _, tag := range strings.Split(e.Tags, ",") {
			add("tags", tag)
		}
	}
	s.mu.RUnlock()

	out := make(map[string][]string, len(sets))
	for key, set := range sets {
		values := make([]string, 0, len(set))
		for v := range set {
			values = append(values, v)
		}
		sort.Strings(values)
		out[key] = values
	}
	return out
}

// Stats is the admin dashboard summary.
type Stats struct {
	TotalEvents int `json:"total_events"`
	Topics      int `json:"topics"`
	Countries   int `json:"countries"`
}

// Stats counts events and distinct topic and country values. An empty value
// counts as one distinct value.
func (s *Store) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	topics := make(map[string]struct{})
	countries := make(map[string]struct{})
	for _, e := range s.events {
		topics[e.Topic] = struct{}{}
		countries[e.Country] = struct{}{}
	}
	return Stats{TotalEvents: len(s.events), Topics: len(topics), Countries: len(countries)}
}
