package catalog

import (
	"context"
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/yair/conference-portal/pkg/domain"
	"github.com/yair/conference-portal/pkg/geocode"
)

func coords(lat, lng float64) *domain.Coordinates {
	return &domain.Coordinates{Lat: lat, Lng: lng}
}

func newEvent(name, start, raw string, c *domain.Coordinates) domain.Event {
	e := domain.Event{
		EventName:       name,
		StartDate:       start,
		LocationRaw:     raw,
		RegistrationURL: domain.PlaceholderRegistration,
		Price:           domain.DefaultPrice,
	}
	e.SetCoordinates(c)
	e.RefreshID()
	return e
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
}

func TestStore_Load(t *testing.T) {
	t.Run("missing file gives empty catalog", func(t *testing.T) {
		s := NewStore(filepath.Join(t.TempDir(), "events.json"))
		if err := s.Load(); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if s.Len() != 0 {
			t.Errorf("expected empty catalog, got %d", s.Len())
		}
	})

	t.Run("recomputes ids and dedupes", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "events.json")
		writeFile(t, path, `[
			{"id": "stale-1", "eventName": "Summit", "startDate": "2025-10-08", "locationRaw": "Paris", "lat": null, "lng": null},
			{"id": "other", "eventName": "Forum", "startDate": "2025-11-01", "locationRaw": "Rome"},
			{"id": "stale-2", "eventName": "Summit", "startDate": "2025-10-08", "location_raw": "Paris", "lat": 48.85, "lng": 2.35},
			{"eventName": "Forum", "startDate": "2025-11-01", "locationRaw": "Rome", "topic": "later"}
		]`)

		s := NewStore(path)
		if err := s.Load(); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		events := s.All()
		if len(events) != 2 {
			t.Fatalf("expected 2 events after dedupe, got %d", len(events))
		}
		if events[0].ID != "Summit_2025-10-08_Paris" || !events[0].HasCoordinates() {
			t.Errorf("expected located Summit first, got %+v", events[0])
		}
		if events[1].ID != "Forum_2025-11-01_Rome" || events[1].Topic != "later" {
			t.Errorf("expected later Forum to win, got %+v", events[1])
		}

		// the cleaned list is persisted
		reloaded := NewStore(path)
		if err := reloaded.Load(); err != nil {
			t.Fatal(err)
		}
		if !reflect.DeepEqual(reloaded.All(), events) {
			t.Error("expected persisted list to match cleaned list")
		}
	})

	t.Run("parse error keeps previous list", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "events.json")
		s := NewStore(path)
		if err := s.Replace([]domain.Event{newEvent("Summit", "2025-10-08", "Paris", nil)}); err != nil {
			t.Fatal(err)
		}

		writeFile(t, path, "{not json")
		if err := s.Load(); err == nil {
			t.Fatal("expected parse error")
		}
		if s.Len() != 1 {
			t.Errorf("expected previous list kept, got %d events", s.Len())
		}
	})

	t.Run("seed file is copied when data file is absent", func(t *testing.T) {
		dir := t.TempDir()
		seed := filepath.Join(dir, "seed.json")
		writeFile(t, seed, `[{"eventName": "Summit", "startDate": "2025-10-08", "locationRaw": "Paris"}]`)

		path := filepath.Join(dir, "scratch", "events.json")
		s := NewStore(path, WithSeedFile(seed))
		if err := s.Load(); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if s.Len() != 1 {
			t.Fatalf("expected seeded event, got %d", s.Len())
		}
		if _, err := os.Stat(path); err != nil {
			t.Errorf("expected data file to exist: %v", err)
		}
	})

	t.Run("seed file ignored when data file exists", func(t *testing.T) {
		dir := t.TempDir()
		seed := filepath.Join(dir, "seed.json")
		writeFile(t, seed, `[{"eventName": "Seeded"}]`)
		path := filepath.Join(dir, "events.json")
		writeFile(t, path, `[]`)

		s := NewStore(path, WithSeedFile(seed))
		if err := s.Load(); err != nil {
			t.Fatal(err)
		}
		if s.Len() != 0 {
			t.Errorf("expected existing empty catalog, got %d", s.Len())
		}
	})
}

func TestStore_Replace(t *testing.T) {
	t.Run("round trip keeps ids stable", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "events.json")
		s := NewStore(path)

		in := []domain.Event{
			newEvent("GeoTech Summit", "2025-10-08", "London, UK", coords(51.5072, -0.1276)),
			newEvent("Hydrogen Expo", "TBD", "Atlantis", nil),
		}
		in[1].RegistrationURL = "https://h2.example.com/?a=1&b=2"

		if err := s.Replace(in); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		reloaded := NewStore(path)
		if err := reloaded.Load(); err != nil {
			t.Fatal(err)
		}
		if !reflect.DeepEqual(reloaded.All(), in) {
			t.Errorf("round trip mismatch:\n got %+v\nwant %+v", reloaded.All(), in)
		}
	})

	t.Run("file format", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "events.json")
		s := NewStore(path)
		e := newEvent("Expo", "2025-10-08", "Paris", nil)
		e.RegistrationURL = "https://x.example.com/?a=1&b=2"
		if err := s.Replace([]domain.Event{e}); err != nil {
			t.Fatal(err)
		}

		data, err := os.ReadFile(path)
		if err != nil {
			t.Fatal(err)
		}
		text := string(data)
		if !strings.HasPrefix(text, "[\n  {\n    \"id\"") {
			t.Errorf("expected 2-space indentation, got %q", text[:20])
		}
		if !strings.Contains(text, "a=1&b=2") {
			t.Error("expected ampersand written unescaped")
		}
		if !strings.Contains(text, `"lat": null`) {
			t.Error("expected null coordinates")
		}
	})

	t.Run("empty catalog writes an array", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "events.json")
		if err := NewStore(path).Replace(nil); err != nil {
			t.Fatal(err)
		}
		var out []domain.Event
		data, _ := os.ReadFile(path)
		if err := json.Unmarshal(data, &out); err != nil || out == nil {
			t.Errorf("expected empty JSON array, got %q (%v)", data, err)
		}
	})

	t.Run("failed write keeps memory", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "data")
		s := NewStore(filepath.Join(dir, "events.json"))
		if err := s.Replace([]domain.Event{newEvent("Summit", "2025-10-08", "Paris", nil)}); err != nil {
			t.Fatal(err)
		}

		if err := os.RemoveAll(dir); err != nil {
			t.Fatal(err)
		}
		writeFile(t, dir, "not a directory")

		err := s.Replace([]domain.Event{newEvent("A", "", "", nil), newEvent("B", "", "", nil)})
		if err == nil {
			t.Fatal("expected write error")
		}
		if s.Len() != 1 {
			t.Errorf("expected previous list kept, got %d", s.Len())
		}
	})
}

func TestDedupe(t *testing.T) {
	located := newEvent("Summit", "2025-10-08", "Paris", coords(48.85, 2.35))
	bare := newEvent("Summit", "2025-10-08", "Paris", nil)
	other := newEvent("Forum", "2025-11-01", "Rome", nil)

	tests := []struct {
		name string
		in   []domain.Event
		want []domain.Event
	}{
		{"located beats earlier bare", []domain.Event{bare, other, located}, []domain.Event{located, other}},
		{"bare never replaces located", []domain.Event{located, bare}, []domain.Event{located}},
		{"no duplicates", []domain.Event{located, other}, []domain.Event{located, other}},
		{"empty", nil, []domain.Event{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Dedupe(tt.in)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Dedupe() = %+v, want %+v", got, tt.want)
			}
		})
	}

	t.Run("same presence later wins", func(t *testing.T) {
		first := newEvent("Summit", "2025-10-08", "Paris", nil)
		second := first
		second.Topic = "AI"

		got := Dedupe([]domain.Event{first, other, second})
		if len(got) != 2 || got[0].Topic != "AI" {
			t.Errorf("expected later record at first position, got %+v", got)
		}
	})
}

func testCatalog(t *testing.T) *Store {
	t.Helper()
	s := NewStore(filepath.Join(t.TempDir(), "events.json"))

	london := newEvent("GeoTech Summit", "2025-10-08", "London, UK", coords(51.5072, -0.1276))
	london.Topic, london.City, london.Country, london.Quarter = "AI", "London", "UK", "Q4"
	london.Organizer, london.Tags = "Acme", "ml, vision"

	paris := newEvent("Energy Forum", "2025-11-02", "Paris, France", coords(48.8566, 2.3522))
	paris.Topic, paris.City, paris.Country, paris.Quarter = "Energy", "Paris", "France", "Q4"
	paris.Tags = "hydrogen,ml"

	nowhere := newEvent("Remote Expo", "2026-01-10", "Atlantis", nil)
	nowhere.Topic, nowhere.City, nowhere.Quarter = "ai", "Atlantis", "Q1"

	if err := s.Replace([]domain.Event{london, paris, nowhere}); err != nil {
		t.Fatal(err)
	}
	return s
}

func names(events []domain.Event) []string {
	out := make([]string, len(events))
	for i, e := range events {
		out[i] = e.EventName
	}
	return out
}

func TestStore_Get(t *testing.T) {
	s := testCatalog(t)

	tests := []struct {
		name   string
		filter Filter
		want   []string
	}{
		{"zero filter", Filter{}, []string{"GeoTech Summit", "Energy Forum", "Remote Expo"}},
		{"topic is case insensitive", Filter{Topic: "AI"}, []string{"GeoTech Summit", "Remote Expo"}},
		{"country", Filter{Country: "france"}, []string{"Energy Forum"}},
		{"quarter and topic", Filter{Quarter: "Q4", Topic: "energy"}, []string{"Energy Forum"}},
		{"query on organizer", Filter{Query: "acme"}, []string{"GeoTech Summit"}},
		{"query on location", Filter{Query: "atlan"}, []string{"Remote Expo"}},
		{"near london", Filter{Near: coords(51.5, -0.12), RadiusKm: 50}, []string{"GeoTech Summit"}},
		{"near london wide", Filter{Near: coords(51.5, -0.12), RadiusKm: 400}, []string{"GeoTech Summit", "Energy Forum"}},
		{"no match", Filter{City: "Tokyo"}, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := names(s.Get(tt.filter))
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Get() = %v, want %v", got, tt.want)
			}
		})
	}

	t.Run("find", func(t *testing.T) {
		e, ok := s.Find("Energy_Forum_2025-11-02_Paris,_France")
		if !ok || e.EventName != "Energy Forum" {
			t.Errorf("expected to find Energy Forum, got %+v %v", e, ok)
		}
		if _, ok := s.Find("missing"); ok {
			t.Error("expected missing id not found")
		}
	})
}

func TestDistanceKm(t *testing.T) {
	d := DistanceKm(domain.Coordinates{Lat: 51.5072, Lng: -0.1276}, domain.Coordinates{Lat: 48.8566, Lng: 2.3522})
	if math.Abs(d-343.5) > 2 {
		t.Errorf("expected London-Paris around 343km, got %.1f", d)
	}
}

func TestStore_FilterOptionsAndStats(t *testing.T) {
	s := testCatalog(t)

	opts := s.FilterOptions()
	want := map[string][]string{
		"topic":   {"AI", "Energy", "ai"},
		"city":    {"Atlantis", "London", "Paris"},
		"country": {"France", "UK"},
		"tags":    {"hydrogen", "ml", "vision"},
	}
	if !reflect.DeepEqual(opts, want) {
		t.Errorf("FilterOptions() = %v, want %v", opts, want)
	}

	stats := s.Stats()
	if stats != (Stats{TotalEvents: 3, Topics: 3, Countries: 3}) {
		t.Errorf("unexpected stats %+v", stats)
	}
}

type stubResolver struct {
	known     map[string]domain.Coordinates
	calls     []string
	forgotten int
}

func (r *stubResolver) Resolve(_ context.Context, city, country, raw string) geocode.Result {
	r.calls = append(r.calls, raw)
	if c, ok := r.known[raw]; ok {
		return geocode.Result{Status: geocode.StatusFound, Coordinates: c}
	}
	return geocode.Result{Status: geocode.StatusNotFound}
}

func (r *stubResolver) ForgetFailures() int {
	r.forgotten++
	return 0
}

func TestStore_Regeocode(t *testing.T) {
	ctx := context.Background()

	t.Run("only missing coordinates", func(t *testing.T) {
		s := testCatalog(t)
		r := &stubResolver{known: map[string]domain.Coordinates{"Atlantis": {Lat: 1, Lng: 2}}}

		report, err := s.Regeocode(ctx, r, false)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !reflect.DeepEqual(r.calls, []string{"Atlantis"}) {
			t.Errorf("expected one resolve call, got %v", r.calls)
		}
		if r.forgotten != 0 {
			t.Error("failures should only be forgotten on force")
		}
		if report.Geocoded != 1 || report.Failed != 0 || report.Total != 3 {
			t.Errorf("unexpected report %+v", report)
		}

		e, _ := s.Find("Remote_Expo_2026-01-10_Atlantis")
		if !e.HasCoordinates() || *e.Lat != 1 {
			t.Errorf("expected coordinates applied, got %+v", e)
		}

		reloaded := NewStore(s.path)
		if err := reloaded.Load(); err != nil {
			t.Fatal(err)
		}
		if e, _ := reloaded.Find("Remote_Expo_2026-01-10_Atlantis"); !e.HasCoordinates() {
			t.Error("expected coordinates persisted")
		}
	})

	t.Run("force re-resolves everything and reports failures", func(t *testing.T) {
		s := testCatalog(t)
		r := &stubResolver{known: map[string]domain.Coordinates{"London, UK": {Lat: 51.5, Lng: -0.1}}}

		report, err := s.Regeocode(ctx, r, true)
		if err != nil {
			t.Fatal(err)
		}
		if r.forgotten != 1 {
			t.Errorf("expected failures forgotten once, got %d", r.forgotten)
		}
		if len(r.calls) != 3 || report.Geocoded != 1 || report.Failed != 2 {
			t.Errorf("unexpected calls %v report %+v", r.calls, report)
		}
		want := RegeocodeFailure{EventName: "Energy Forum", Location: "Paris, France", Reason: "Location not found"}
		if report.Failures[0] != want {
			t.Errorf("unexpected failure %+v", report.Failures[0])
		}

		// a failed re-resolve keeps existing coordinates
		if e, _ := s.Find("Energy_Forum_2025-11-02_Paris,_France"); !e.HasCoordinates() {
			t.Error("expected previous coordinates kept on failure")
		}
	})

	t.Run("events without any location are skipped", func(t *testing.T) {
		s := NewStore(filepath.Join(t.TempDir(), "events.json"))
		if err := s.Replace([]domain.Event{newEvent("Webinar", "", "", nil)}); err != nil {
			t.Fatal(err)
		}
		r := &stubResolver{}

		report, err := s.Regeocode(ctx, r, true)
		if err != nil {
			t.Fatal(err)
		}
		if len(r.calls) != 0 || report.Failed != 0 || report.Total != 1 {
			t.Errorf("unexpected calls %v report %+v", r.calls, report)
		}
	})
}

func TestStore_Clusters(t *testing.T) {
	s := testCatalog(t)
	near := newEvent("Second London", "2025-12-01", "Oxford Circus", coords(51.5155, -0.1410))
	if err := s.Replace(append(s.All(), near)); err != nil {
		t.Fatal(err)
	}

	clusters := s.Clusters(DefaultClusterPrecision)
	if len(clusters) != 2 {
		t.Fatalf("expected 2 clusters, got %+v", clusters)
	}
	if clusters[0].Count != 2 || clusters[1].Count != 1 {
		t.Errorf("expected London cluster first with 2 events, got %+v", clusters)
	}
	if len(clusters[0].Geohash) != 4 {
		t.Errorf("expected precision 4 geohash, got %s", clusters[0].Geohash)
	}
	if math.Abs(clusters[0].Lat-51.51135) > 0.001 {
		t.Errorf("expected mean latitude, got %f", clusters[0].Lat)
	}

	t.Run("precision is clamped", func(t *testing.T) {
		for _, c := range s.Clusters(0) {
			if len(c.Geohash) != MinClusterPrecision {
				t.Errorf("expected clamped precision, got %s", c.Geohash)
			}
		}
		for _, c := range s.Clusters(40) {
			if len(c.Geohash) != MaxClusterPrecision {
				t.Errorf("expected clamped precision, got %s", c.Geohash)
			}
		}
	})
}
