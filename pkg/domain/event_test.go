package domain

import (
	"encoding/json"
	"testing"
)

func TestGenerateID(t *testing.T) {
	t.Run("deterministic", func(t *testing.T) {
		a := GenerateID("GeoTech Summit", "2025-10-08", "London, UK")
		b := GenerateID("GeoTech Summit", "2025-10-08", "London, UK")
		if a != b {
			t.Errorf("expected identical ids, got %q and %q", a, b)
		}
		if a != "GeoTech_Summit_2025-10-08_London,_UK" {
			t.Errorf("unexpected id %q", a)
		}
	})

	t.Run("trims and strips unsafe characters", func(t *testing.T) {
		tests := []struct {
			name     string
			event    string
			date     string
			location string
			want     string
		}{
			{"surrounding whitespace", "  Expo  ", " 2025-01-02 ", " Tokyo ", "Expo_2025-01-02_Tokyo"},
			{"pipe and slash", "AI/ML Forum", "2025-03-04", "Hotel | Bangalore, India", "AIML_Forum_2025-03-04_Hotel__Bangalore,_India"},
			{"quotes", `The "Big" Show's`, "2025-05-06", "Paris", "The_Big_Shows_2025-05-06_Paris"},
			{"tabs become underscores", "Data\tDay", "2025-07-08", "Rome", "Data_Day_2025-07-08_Rome"},
			{"empty parts", "", "", "", "__"},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				if got := GenerateID(tt.event, tt.date, tt.location); got != tt.want {
					t.Errorf("GenerateID() = %q, want %q", got, tt.want)
				}
			})
		}
	})

	t.Run("refresh id uses event fields", func(t *testing.T) {
		e := Event{EventName: "Summit", StartDate: "2025-01-01", LocationRaw: "Doha"}
		e.RefreshID()
		if e.ID != "Summit_2025-01-01_Doha" {
			t.Errorf("expected refreshed id, got %q", e.ID)
		}
	})
}

func TestEventCoordinates(t *testing.T) {
	t.Run("unset", func(t *testing.T) {
		var e Event
		if e.HasCoordinates() {
			t.Error("expected no coordinates")
		}
		if _, ok := e.Coordinates(); ok {
			t.Error("expected Coordinates() to report absent")
		}
	})

	t.Run("set and clear", func(t *testing.T) {
		var e Event
		e.SetCoordinates(&Coordinates{Lat: 51.5072, Lng: -0.1276})
		c, ok := e.Coordinates()
		if !ok {
			t.Fatal("expected coordinates")
		}
		if c.Lat != 51.5072 || c.Lng != -0.1276 {
			t.Errorf("unexpected coordinates %+v", c)
		}

		e.SetCoordinates(nil)
		if e.HasCoordinates() {
			t.Error("expected coordinates to be cleared")
		}
	})
}

func TestEventJSON(t *testing.T) {
	t.Run("null coordinates are serialized", func(t *testing.T) {
		e := Event{ID: "x", EventName: "Expo", Price: DefaultPrice, RegistrationURL: PlaceholderRegistration}
		data, err := json.Marshal(e)
		if err != nil {
			t.Fatalf("marshal failed: %v", err)
		}

		var raw map[string]any
		if err := json.Unmarshal(data, &raw); err != nil {
			t.Fatalf("unmarshal failed: %v", err)
		}
		for _, key := range []string{"id", "eventName", "topic", "startDate", "endDate", "city", "country",
			"locationRaw", "quarter", "organizer", "registrationUrl", "description", "tags", "price", "lat", "lng"} {
			if _, ok := raw[key]; !ok {
				t.Errorf("expected key %q in %s", key, data)
			}
		}
		if raw["lat"] != nil || raw["lng"] != nil {
			t.Errorf("expected null coordinates, got %v/%v", raw["lat"], raw["lng"])
		}
	})

	t.Run("legacy location key", func(t *testing.T) {
		var e Event
		if err := json.Unmarshal([]byte(`{"eventName":"Expo","location_raw":"Tokyo Japan","lat":35.6,"lng":139.6}`), &e); err != nil {
			t.Fatalf("unmarshal failed: %v", err)
		}
		if e.LocationRaw != "Tokyo Japan" {
			t.Errorf("expected legacy location to be read, got %q", e.LocationRaw)
		}
		if !e.HasCoordinates() {
			t.Error("expected coordinates to be read")
		}
	})

	t.Run("current key wins over legacy", func(t *testing.T) {
		var e Event
		if err := json.Unmarshal([]byte(`{"locationRaw":"Paris","location_raw":"Rome"}`), &e); err != nil {
			t.Fatalf("unmarshal failed: %v", err)
		}
		if e.LocationRaw != "Paris" {
			t.Errorf("expected locationRaw to win, got %q", e.LocationRaw)
		}
	})
}

func TestInterestSameRegistration(t *testing.T) {
	base := Interest{EventName: "Expo", Email: "a@corp.com", Username: "alice"}

	tests := []struct {
		name  string
		other Interest
		want  bool
	}{
		{"same email", Interest{EventName: "Expo", Email: "a@corp.com"}, true},
		{"same username", Interest{EventName: "Expo", Email: "b@corp.com", Username: "alice"}, true},
		{"different event", Interest{EventName: "Summit", Email: "a@corp.com"}, false},
		{"different user", Interest{EventName: "Expo", Email: "b@corp.com", Username: "bob"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := base.SameRegistration(tt.other); got != tt.want {
				t.Errorf("SameRegistration() = %v, want %v", got, tt.want)
			}
		})
	}

	t.Run("blank usernames never match", func(t *testing.T) {
		a := Interest{EventName: "Expo", Email: "a@corp.com"}
		b := Interest{EventName: "Expo", Email: "b@corp.com"}
		if a.SameRegistration(b) {
			t.Error("expected blank usernames not to collide")
		}
	})
}
